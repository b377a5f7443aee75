package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aidanvyas/asset-pricing-code/internal/studyconfig"
)

var (
	transitionsFlags      sortFlags
	transitionsVariant    string
	transitionsIndustries int
	transitionsSpan       int
	transitionsOutput     outputFlags
)

var transitionsCmd = &cobra.Command{
	Use:   "transitions",
	Short: "S5 Transitions - 분위 전이 행렬",
	Long: `종목이 과거 분위에서 현재 분위로 이동한 확률(행 합 100%)과 코너 수익률을 계산합니다.

변형:
- standard: 모멘텀은 lookback+lag 개월, 연간 팩터는 lookback 년 전 분위
- multi_year: 다년 평균 팩터의 과거 분위 → 현재 분위
- returns: 과거 팩터 분위 → 최근 12개월 수익률 분위
- industry_adjusted: 산업 중앙값 대비 팩터로 정렬
- industry: 산업별 breakpoint, 산업별 행렬

Example:
  go run ./cmd/quant transitions --factor MOMENTUM --lookback 12 --lag 1 --quantiles 5
  go run ./cmd/quant transitions --factor BE_ME --lookback 1 --variant industry --industries 10`,
	RunE: runTransitions,
}

func init() {
	rootCmd.AddCommand(transitionsCmd)
	transitionsFlags.bind(transitionsCmd, "BE_ME")
	transitionsCmd.Flags().StringVar(&transitionsVariant, "variant", "standard", "전이 변형")
	transitionsCmd.Flags().IntVar(&transitionsIndustries, "industries", 0, "산업 분류 (5, 10, 12)")
	transitionsCmd.Flags().IntVar(&transitionsSpan, "span", 0, "다년 평균 연수 (기본 5)")
	transitionsOutput.bind(transitionsCmd)
}

func runTransitions(cmd *cobra.Command, args []string) error {
	started := time.Now()
	job := studyconfig.TransitionJob{
		Sort:       transitionsFlags.config(),
		Variant:    transitionsVariant,
		Industries: transitionsIndustries,
		Span:       transitionsSpan,
	}
	if err := job.Sort.Validate(); err != nil {
		return err
	}

	s, done, err := adhoc(cmd, transitionsOutput, job)
	if err != nil {
		return err
	}
	defer done()

	PrintJobHeader(JobMetadata{
		Job:    "S5 Transitions: " + job.Sort.Name(),
		RunID:  s.runID,
		Window: windowPeriod(s.window),
		Detail: fmt.Sprintf("variant=%s industries=%d span=%d", job.VariantOrDefault(), job.Industries, job.Span),
	})
	if err := s.transition(cmd.Context(), job); err != nil {
		return err
	}
	PrintJobCompletion(job.Sort.Name(), started)
	return nil
}
