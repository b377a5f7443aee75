package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aidanvyas/asset-pricing-code/internal/report"
	"github.com/aidanvyas/asset-pricing-code/internal/studyconfig"
)

var (
	runStudyFile string
	runDryRun    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "연구 파일(YAML)의 모든 작업 일괄 실행",
	Long: `study.yaml 에 정의된 팩터 복제, 분위 정렬, 전이, 회귀, 기술통계 작업을 순서대로 실행합니다.
run id 는 연구 설정의 SHA-256 해시이며 Redis 캐시 키와 결과 테이블 키로 사용됩니다.

Example:
  go run ./cmd/quant run --study configs/study.yaml
  go run ./cmd/quant run --study configs/study.yaml --dry-run`,
	RunE: runStudy,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runStudyFile, "study", "configs/study.yaml", "연구 설정 파일")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "설정 검증만 수행")
}

func runStudy(cmd *cobra.Command, args []string) error {
	started := time.Now()
	ctx := cmd.Context()

	study, _, err := studyconfig.Load(runStudyFile)
	if err != nil {
		return err
	}
	runID, err := studyconfig.Hash(study)
	if err != nil {
		return err
	}
	for _, w := range studyconfig.Warn(study) {
		PrintWarning(fmt.Sprintf("[%s] %s", w.Code, w.Message))
	}

	d, err := initDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	window, err := study.Window.Parse(d.window())
	if err != nil {
		return err
	}
	PrintJobHeader(JobMetadata{
		Job:    "Study: " + study.Meta.StudyID,
		RunID:  runID,
		Window: windowPeriod(window),
		Detail: fmt.Sprintf("%d jobs", study.JobCount()),
	})
	if runDryRun {
		PrintSuccess("study file is valid")
		return nil
	}

	ds, err := d.loadDataset(ctx)
	if err != nil {
		return err
	}
	s := newSession(d, ds, runID, window, study.Output.Formats, precisionOrDefault(study.Output.Precision))

	total, step := study.JobCount(), 0
	progress := func(tag, msg string) {
		step++
		PrintProgress(tag, msg, step, total)
	}

	if study.Replication.Enable {
		progress("factors", "replication")
		from := window.Start
		if study.Replication.CompareFrom != "" {
			if from, err = time.Parse(studyconfig.DateLayout, study.Replication.CompareFrom); err != nil {
				return err
			}
		}
		if err := s.factors(ctx, from); err != nil {
			return err
		}
	}
	for _, cfg := range study.Sorts {
		progress("sorts", cfg.Name())
		if err := s.sort(ctx, cfg); err != nil {
			return err
		}
	}
	for _, job := range study.Transitions {
		progress("transitions", job.VariantOrDefault()+"/"+job.Sort.Name())
		if err := s.transition(ctx, job); err != nil {
			return err
		}
	}
	for _, job := range study.Regressions.FamaMacBeth {
		progress("fama-macbeth", job.Name)
		if err := s.famaMacBeth(ctx, job); err != nil {
			return err
		}
	}
	for _, job := range study.Regressions.Spanning {
		progress("spanning", job.Factor)
		if err := s.spanning(ctx, job); err != nil {
			return err
		}
	}
	if len(study.Describe.Variables) > 0 {
		progress("describe", fmt.Sprint(study.Describe.Variables))
		if err := s.describe(ctx, study.Describe); err != nil {
			return err
		}
	}

	PrintJobCompletion(study.Meta.StudyID, started)
	return nil
}

// precisionOrDefault maps an unset precision to the report default
func precisionOrDefault(p int) int {
	if p == 0 {
		return report.DefaultPrecision
	}
	return p
}
