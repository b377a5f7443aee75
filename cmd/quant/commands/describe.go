package commands

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aidanvyas/asset-pricing-code/internal/audit"
	"github.com/aidanvyas/asset-pricing-code/internal/studyconfig"
)

var (
	describeVariables   []string
	describePercentiles []float64
	describeOutput      outputFlags
)

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "S6 Audit - 기간별 횡단면 기술통계",
	Long: `회귀 패널의 변수별로 월마다 count, mean, sd, min, 백분위, max 를 계산하고 시간 평균합니다.
(기간, 변수) 조합은 WORKERS 크기의 워커 풀에서 병렬 계산.

Example:
  go run ./cmd/quant describe --variables BE_ME,OP_BE,AT_GR1
  go run ./cmd/quant describe --variables BE_ME --percentiles 10,50,90`,
	RunE: runDescribe,
}

func init() {
	rootCmd.AddCommand(describeCmd)
	describeCmd.Flags().StringSliceVar(&describeVariables, "variables", []string{"BE_ME", "LOG_DEC_ME", "MOMENTUM", "INVESTMENT"}, "변수 목록")
	describeCmd.Flags().Float64SliceVar(&describePercentiles, "percentiles", audit.DefaultPercentiles, "백분위 (0~100)")
	describeOutput.bind(describeCmd)
}

func runDescribe(cmd *cobra.Command, args []string) error {
	started := time.Now()
	job := studyconfig.DescribeJob{Variables: upper(describeVariables), Percentiles: describePercentiles}

	s, done, err := adhoc(cmd, describeOutput, job)
	if err != nil {
		return err
	}
	defer done()

	PrintJobHeader(JobMetadata{
		Job:    "S6 Describe",
		RunID:  s.runID,
		Window: windowPeriod(s.window),
		Detail: strings.Join(job.Variables, ", "),
	})
	if err := s.describe(cmd.Context(), job); err != nil {
		return err
	}
	PrintJobCompletion("describe", started)
	return nil
}
