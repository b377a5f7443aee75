package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aidanvyas/asset-pricing-code/internal/s0_data"
)

var processRawDir string

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "S0 Data - WRDS 원천 파일 가공",
	Long: `Compustat, CRSP, CCM 원천 파일을 월별 패널과 6월 스냅샷으로 가공합니다.

단계:
- Compustat: BE, OP, AT_GR1 등 파생 항목
- CRSP: 상장폐지 수익률 보정, PERMCO 시가총액 합산, 가중치(wt), 12월 시가총액
- CCM: 링크 구간 내 6월 스냅샷 병합

출력: MONTHLY_FILE, SNAPSHOT_FILE

Example:
  go run ./cmd/quant process
  go run ./cmd/quant process --raw-dir data/raw`,
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)
	processCmd.Flags().StringVar(&processRawDir, "raw-dir", "", "원천 파일 디렉터리 (기본: DATA_DIR)")
}

func runProcess(cmd *cobra.Command, args []string) error {
	started := time.Now()
	ctx := cmd.Context()

	d, err := initDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	dir := processRawDir
	if dir == "" {
		dir = d.cfg.Data.Dir
	}
	PrintJobHeader(JobMetadata{
		Job:    "S0 Data: Process raw WRDS extracts",
		Window: &Period{StartDate: d.cfg.Data.CRSPStart.Format("2006-01-02"), EndDate: d.cfg.Data.CRSPEnd.Format("2006-01-02")},
		Detail: dir,
	})

	ds, err := s0_data.NewProcessor(d.log, d.cfg.Data).Run(ctx, s0_data.DefaultRawFiles(dir), d.cfg.Data)
	if err != nil {
		return fmt.Errorf("process raw data: %w", err)
	}

	PrintKeyValues([][2]string{
		{"Monthly rows", fmt.Sprint(ds.Monthly.Len())},
		{"Snapshot rows", fmt.Sprint(ds.Snapshot.Len())},
		{"Monthly file", d.cfg.Data.MonthlyFile},
		{"Snapshot file", d.cfg.Data.SnapshotFile},
	})
	PrintJobCompletion("process", started)
	return nil
}
