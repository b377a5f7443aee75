package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "Fama-French 팩터 복제 및 포트폴리오 전이 연구 엔진",
	Long: `Asset Pricing Research CLI

CRSP/Compustat 가공 → 분위 정렬 → 팩터 복제 → 전이 행렬 → 회귀 분석.
S0~S6 파이프라인 단계를 커맨드 하나씩으로 실행하거나 연구 파일(YAML)로 일괄 실행.

Usage:
  go run ./cmd/quant [command]

Examples:
  go run ./cmd/quant process
  go run ./cmd/quant factors
  go run ./cmd/quant sorts --factor BE_ME --quantiles 10 --reference NYSE_ONLY
  go run ./cmd/quant transitions --factor MOMENTUM --lookback 12 --lag 1
  go run ./cmd/quant run --study configs/study.yaml`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment (development|research|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
