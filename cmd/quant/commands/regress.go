package commands

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aidanvyas/asset-pricing-code/internal/audit"
	"github.com/aidanvyas/asset-pricing-code/internal/studyconfig"
)

var regressCmd = &cobra.Command{
	Use:   "regress",
	Short: "S6 Audit - Fama-MacBeth 및 spanning 회귀",
	Long: `회귀 분석을 실행합니다.

명령어:
  fama-macbeth   월별 횡단면 회귀 (통제변수 + 예측변수)
  spanning       팩터의 시계열 spanning 회귀`,
}

var (
	fmName       string
	fmPredictors []string
	fmOutput     outputFlags

	spanFactor string
	spanOn     []string
	spanOutput outputFlags
)

var regressFamaMacBethCmd = &cobra.Command{
	Use:   "fama-macbeth",
	Short: "Fama-MacBeth 횡단면 회귀",
	Long: `월별로 retadj 를 통제변수(LOG_DEC_ME, BE_ME, MOMENTUM, INVESTMENT)와 예측변수에 회귀하고
계수의 시계열 평균(%)과 t-통계량을 보고합니다. 변수는 전체 표본 1/99% 윈저라이즈.

Example:
  go run ./cmd/quant regress fama-macbeth
  go run ./cmd/quant regress fama-macbeth --predictors OP_BE,AT_GR1`,
	RunE: runFamaMacBeth,
}

var regressSpanningCmd = &cobra.Command{
	Use:   "spanning",
	Short: "Spanning 회귀",
	Long: `factor 를 다른 팩터들에 시계열 회귀합니다 (절편은 월 %).
팩터는 공표 벤치마크 컬럼을 먼저 찾고, 없으면 복제 팩터를 사용합니다.

Example:
  go run ./cmd/quant regress spanning --factor UMD --on Mkt-RF,SMB,HML,RMW,CMA`,
	RunE: runSpanning,
}

func init() {
	rootCmd.AddCommand(regressCmd)
	regressCmd.AddCommand(regressFamaMacBethCmd)
	regressCmd.AddCommand(regressSpanningCmd)

	regressFamaMacBethCmd.Flags().StringVar(&fmName, "name", "controls_only", "작업 이름")
	regressFamaMacBethCmd.Flags().StringSliceVar(&fmPredictors, "predictors", nil, "추가 예측변수")
	fmOutput.bind(regressFamaMacBethCmd)

	regressSpanningCmd.Flags().StringVar(&spanFactor, "factor", "UMD", "종속 팩터")
	regressSpanningCmd.Flags().StringSliceVar(&spanOn, "on", []string{"Mkt-RF", "SMB", "HML", "RMW", "CMA"}, "설명 팩터")
	spanOutput.bind(regressSpanningCmd)
}

func runFamaMacBeth(cmd *cobra.Command, args []string) error {
	started := time.Now()
	job := studyconfig.FamaMacBethJob{Name: fmName, Predictors: upper(fmPredictors)}

	s, done, err := adhoc(cmd, fmOutput, job)
	if err != nil {
		return err
	}
	defer done()

	PrintJobHeader(JobMetadata{
		Job:    "S6 Fama-MacBeth: " + job.Name,
		RunID:  s.runID,
		Window: windowPeriod(s.window),
		Detail: strings.Join(append(audit.Controls(), job.Predictors...), ", "),
	})
	if err := s.famaMacBeth(cmd.Context(), job); err != nil {
		return err
	}
	PrintJobCompletion("fama-macbeth", started)
	return nil
}

func runSpanning(cmd *cobra.Command, args []string) error {
	started := time.Now()
	job := studyconfig.SpanningJob{Factor: spanFactor, On: spanOn}

	s, done, err := adhoc(cmd, spanOutput, job)
	if err != nil {
		return err
	}
	defer done()

	PrintJobHeader(JobMetadata{
		Job:    "S6 Spanning: " + job.Factor,
		RunID:  s.runID,
		Window: windowPeriod(s.window),
		Detail: strings.Join(job.On, ", "),
	})
	if err := s.spanning(cmd.Context(), job); err != nil {
		return err
	}
	PrintJobCompletion("spanning", started)
	return nil
}

// upper normalises factor names given on the command line
func upper(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = strings.ToUpper(n)
	}
	return out
}
