package factors

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
	"github.com/aidanvyas/asset-pricing-code/internal/portfolio"
	"github.com/aidanvyas/asset-pricing-code/internal/s0_data"
	"github.com/aidanvyas/asset-pricing-code/internal/s1_universe"
	"github.com/aidanvyas/asset-pricing-code/internal/s2_signals"
	"github.com/aidanvyas/asset-pricing-code/pkg/logger"
	"github.com/aidanvyas/asset-pricing-code/pkg/redis"
)

// SortOutput is the result of one quantile sort
type SortOutput struct {
	Config    contracts.SortConfig
	Table     *contracts.ReturnTable // 평가 구간 (기간, 분위) 수익률
	LongShort contracts.Series       // sign·(top − bottom)
	CapShare  map[string]float64     // 분위별 평균 시가총액 비중
	Cached    bool
}

// JobName is the persisted job identifier of a sort
func JobName(cfg contracts.SortConfig) string {
	return "sorts/" + cfg.Name()
}

// Runner runs configured quantile sorts through the shared portfolio pipeline
// ⭐ SSOT: SortConfig → 포트폴리오 형성 경로는 여기서만
type Runner struct {
	sorter  *portfolio.Sorter
	signals *s2_signals.Builder
	cache   contracts.ResultCache
	runID   string
	logger  *logger.Logger
}

// NewRunner creates a runner without a result cache
func NewRunner(log *logger.Logger) *Runner {
	return &Runner{
		sorter:  portfolio.NewSorter(log),
		signals: s2_signals.NewBuilder(log),
		logger:  log,
	}
}

// WithCache enables result caching under runID (the study hash)
func (r *Runner) WithCache(cache contracts.ResultCache, runID string) *Runner {
	r.cache = cache
	r.runID = runID
	return r
}

// Sorter exposes the shared portfolio pipeline
func (r *Runner) Sorter() *portfolio.Sorter {
	return r.sorter
}

// Signals exposes the factor builder
func (r *Runner) Signals() *s2_signals.Builder {
	return r.signals
}

// Values resolves the factor of cfg on the panel it is sorted on
func (r *Runner) Values(ds *s0_data.Dataset, cfg contracts.SortConfig) ([]float64, error) {
	if cfg.IsMomentum() {
		return r.signals.Monthly(ds.Monthly, cfg)
	}
	return r.signals.Annual(ds.Snapshot, cfg.Factor)
}

// Form resolves the factor and forms rank portfolios.
// 연간 팩터는 6월 스냅샷 정렬 후 12개월 보유, 모멘텀은 매월 정렬
func (r *Runner) Form(ds *s0_data.Dataset, cfg contracts.SortConfig) (*portfolio.SortResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	values, err := r.Values(ds, cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", cfg.Factor, err)
	}
	return r.FormValues(ds, cfg, values)
}

// FormValues forms rank portfolios on precomputed factor values (transformed signals)
func (r *Runner) FormValues(ds *s0_data.Dataset, cfg contracts.SortConfig, values []float64) (*portfolio.SortResult, error) {
	if cfg.IsMomentum() {
		ref := r.sorter.ReferenceMask(ds.Monthly, cfg.Reference)
		return r.sorter.SortMonthly(ds.Monthly, portfolio.RankDimension(cfg.Factor, values, cfg.Quantiles, ref))
	}
	ref := r.sorter.ReferenceMask(ds.Snapshot, cfg.Reference, s1_universe.PositiveDecME)
	return r.sorter.SortAnnual(ds.Monthly, ds.Snapshot, portfolio.RankDimension(cfg.Factor, values, cfg.Quantiles, ref))
}

// Sort runs one quantile sort and derives the long-short series inside window
func (r *Runner) Sort(ctx context.Context, ds *s0_data.Dataset, cfg contracts.SortConfig, window contracts.Window) (*SortOutput, error) {
	start := time.Now()
	log := r.logger.WithStage(contracts.StageFactors).WithField("sort", cfg.Name())

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// 캐시에는 구간 적용 전 전체 테이블 저장, 구간은 읽은 뒤 적용
	key := r.cacheKey(ds, cfg)
	full, cached, err := r.cachedTable(ctx, key)
	if err != nil {
		log.WithError(err).Warn("Result cache read failed")
	}
	if full == nil {
		result, err := r.Form(ds, cfg)
		if err != nil {
			return nil, err
		}
		full = result.Table
		r.storeTable(ctx, key, full)
	}
	table := full.Window(window)

	ls, err := Combine(table, cfg.TopLabel(), cfg.BottomLabel(), cfg.Sign, window)
	if err != nil {
		return nil, err
	}
	out := &SortOutput{
		Config:    cfg,
		Table:     table,
		LongShort: ls,
		CapShare:  portfolio.CapitalizationShare(table),
		Cached:    cached,
	}

	log.WithFields(map[string]interface{}{
		"periods": len(table.Dates()),
		"cells":   table.Len(),
		"cached":  cached,
	}).Timed(start, "Quantile sort complete")
	return out, nil
}

// cachedReturn is the JSON-safe form of a table cell (NaN → null)
type cachedReturn struct {
	Date    time.Time `json:"date"`
	Label   string    `json:"label"`
	Return  *float64  `json:"return"`
	Weight  float64   `json:"weight"`
	Members int       `json:"members"`
}

// cacheKey ties a sort to the run and to the loaded panels (재가공된 데이터는 다른 키)
func (r *Runner) cacheKey(ds *s0_data.Dataset, cfg contracts.SortConfig) string {
	return redis.ReturnsKey(r.runID, JobName(cfg)+"@"+Fingerprint(ds))
}

// Fingerprint summarises the shape of the loaded panels: row counts and date span
func Fingerprint(ds *s0_data.Dataset) string {
	return panelShape(ds.Monthly) + "/" + panelShape(ds.Snapshot)
}

func panelShape(p *s0_data.Panel) string {
	if p == nil || p.Len() == 0 {
		return "0"
	}
	first, last := p.Row(0).Date, p.Row(0).Date
	for _, o := range p.Rows() {
		if o.Date.Before(first) {
			first = o.Date
		}
		if o.Date.After(last) {
			last = o.Date
		}
	}
	return fmt.Sprintf("%d:%s:%s", p.Len(), first.Format("200601"), last.Format("200601"))
}

func (r *Runner) cachedTable(ctx context.Context, key string) (*contracts.ReturnTable, bool, error) {
	if r.cache == nil {
		return nil, false, nil
	}
	var rows []cachedReturn
	found, err := r.cache.Get(ctx, key, &rows)
	if err != nil || !found {
		return nil, false, err
	}
	return decodeTable(rows), true, nil
}

func (r *Runner) storeTable(ctx context.Context, key string, table *contracts.ReturnTable) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, key, encodeTable(table), 0); err != nil {
		r.logger.WithStage(contracts.StageFactors).WithError(err).Warn("Result cache write failed")
	}
}

func encodeTable(table *contracts.ReturnTable) []cachedReturn {
	rows := make([]cachedReturn, 0, table.Len())
	for _, row := range table.Rows() {
		c := cachedReturn{Date: row.Date, Label: row.Label, Weight: row.Weight, Members: row.Members}
		if !math.IsNaN(row.Return) {
			v := row.Return
			c.Return = &v
		}
		rows = append(rows, c)
	}
	return rows
}

func decodeTable(rows []cachedReturn) *contracts.ReturnTable {
	table := contracts.NewReturnTable()
	for _, c := range rows {
		ret := math.NaN()
		if c.Return != nil {
			ret = *c.Return
		}
		table.Add(contracts.PortfolioReturn{Date: c.Date, Label: c.Label, Return: ret, Weight: c.Weight, Members: c.Members})
	}
	return table
}
