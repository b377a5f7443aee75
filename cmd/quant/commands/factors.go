package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aidanvyas/asset-pricing-code/internal/factors"
	"github.com/aidanvyas/asset-pricing-code/internal/studyconfig"
)

var (
	factorsCompareFrom string
	factorsOutput      outputFlags
)

var factorsCmd = &cobra.Command{
	Use:   "factors",
	Short: "S4 Factors - Fama-French 팩터 복제 및 공표치 비교",
	Long: `Mkt-RF, SMB, HML, RMW, CMA, UMD 를 복제하고 공표 팩터와의 상관계수를 계산합니다.

출력:
- factors: 월별 복제 팩터 수익률
- summary: 팩터별 요약 통계
- comparison: Pearson / Spearman 상관
- legs_*: 2×3 포트폴리오 수익률

Example:
  go run ./cmd/quant factors
  go run ./cmd/quant factors --compare-from 1970-01-01 --format csv,xlsx`,
	RunE: runFactors,
}

func init() {
	rootCmd.AddCommand(factorsCmd)
	factorsCmd.Flags().StringVar(&factorsCompareFrom, "compare-from", "1963-07-01", "비교 시작일 (YYYY-MM-DD)")
	factorsOutput.bind(factorsCmd)
}

func runFactors(cmd *cobra.Command, args []string) error {
	started := time.Now()
	from, err := time.Parse(studyconfig.DateLayout, factorsCompareFrom)
	if err != nil {
		return fmt.Errorf("--compare-from: %w", err)
	}

	s, done, err := adhoc(cmd, factorsOutput, map[string]interface{}{"job": "factors", "compare_from": factorsCompareFrom})
	if err != nil {
		return err
	}
	defer done()

	PrintJobHeader(JobMetadata{
		Job:    "S4 Factors: " + fmt.Sprint(factors.FactorNames()),
		RunID:  s.runID,
		Window: windowPeriod(s.window),
	})
	if err := s.factors(cmd.Context(), from); err != nil {
		return err
	}
	PrintJobCompletion("factors", started)
	return nil
}
