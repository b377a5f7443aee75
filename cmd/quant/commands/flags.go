package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
	"github.com/aidanvyas/asset-pricing-code/internal/report"
	"github.com/aidanvyas/asset-pricing-code/internal/studyconfig"
)

// sortFlags binds the SortConfig fields to command flags
type sortFlags struct {
	quantiles int
	factor    string
	lookback  int
	lag       int
	reference string
	sign      int
}

func (f *sortFlags) bind(cmd *cobra.Command, defaultFactor string) {
	cmd.Flags().IntVar(&f.quantiles, "quantiles", 10, "분위 수")
	cmd.Flags().StringVar(&f.factor, "factor", defaultFactor, "정렬 팩터 (BE_ME, OP_BE, MOMENTUM, ...)")
	cmd.Flags().IntVar(&f.lookback, "lookback", 0, "모멘텀 lookback (월)")
	cmd.Flags().IntVar(&f.lag, "lag", 0, "모멘텀 lag (월)")
	cmd.Flags().StringVar(&f.reference, "reference", string(contracts.ReferenceAll), "breakpoint 기준 유니버스 (ALL, NYSE_ONLY)")
	cmd.Flags().IntVar(&f.sign, "sign", 1, "롱숏 방향 (1 = 상위-하위, -1 = 하위-상위)")
}

func (f *sortFlags) config() contracts.SortConfig {
	return contracts.SortConfig{
		Quantiles:      f.quantiles,
		Factor:         strings.ToUpper(f.factor),
		LookbackPeriod: f.lookback,
		Lag:            f.lag,
		Reference:      contracts.ReferenceUniverse(strings.ToUpper(f.reference)),
		Sign:           f.sign,
	}
}

// outputFlags binds report format and precision
type outputFlags struct {
	formats   []string
	precision int
}

func (f *outputFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.formats, "format", report.DefaultFormats, "출력 형식 (csv, xlsx, json, console)")
	cmd.Flags().IntVar(&f.precision, "precision", report.DefaultPrecision, "소수점 자리수")
}

// adhoc opens a session for a single command; run id 는 작업 설정의 해시
func adhoc(cmd *cobra.Command, out outputFlags, job interface{}) (*session, func(), error) {
	ctx := cmd.Context()
	d, err := initDeps(ctx)
	if err != nil {
		return nil, nil, err
	}
	runID, err := studyconfig.HashJob(job)
	if err != nil {
		d.Close()
		return nil, nil, err
	}
	ds, err := d.loadDataset(ctx)
	if err != nil {
		d.Close()
		return nil, nil, err
	}
	return newSession(d, ds, runID, d.window(), out.formats, out.precision), d.Close, nil
}
