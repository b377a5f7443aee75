package commands

import (
	"time"

	"github.com/spf13/cobra"
)

var (
	sortsFlags  sortFlags
	sortsOutput outputFlags
)

var sortsCmd = &cobra.Command{
	Use:   "sorts",
	Short: "S3 Portfolio - 분위 정렬 포트폴리오",
	Long: `연간 팩터(6월 재조정) 또는 모멘텀 [lookback, lag](월별 재조정)으로 분위 포트폴리오를 만듭니다.

출력:
- returns: 월 × 분위 가치가중 수익률 + H-L
- summary: 평균, t-통계량, Sharpe, CAPM 알파/베타, 시가총액 비중

Example:
  go run ./cmd/quant sorts --factor BE_ME --quantiles 10 --reference NYSE_ONLY
  go run ./cmd/quant sorts --factor MOMENTUM --lookback 12 --lag 1 --quantiles 5`,
	RunE: runSorts,
}

func init() {
	rootCmd.AddCommand(sortsCmd)
	sortsFlags.bind(sortsCmd, "BE_ME")
	sortsOutput.bind(sortsCmd)
}

func runSorts(cmd *cobra.Command, args []string) error {
	started := time.Now()
	cfg := sortsFlags.config()
	if err := cfg.Validate(); err != nil {
		return err
	}

	s, done, err := adhoc(cmd, sortsOutput, cfg)
	if err != nil {
		return err
	}
	defer done()

	PrintJobHeader(JobMetadata{
		Job:    "S3 Portfolio: " + cfg.Name(),
		RunID:  s.runID,
		Window: windowPeriod(s.window),
	})
	if err := s.sort(cmd.Context(), cfg); err != nil {
		return err
	}
	PrintJobCompletion(cfg.Name(), started)
	return nil
}
