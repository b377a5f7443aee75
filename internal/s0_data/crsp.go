package s0_data

import (
	"math"
	"sort"
	"time"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
	"github.com/aidanvyas/asset-pricing-code/pkg/logger"
)

// Derived CRSP columns carried on the monthly panel
const (
	FieldCumRetx  = "cumretx"
	FieldLCumRetx = "lcumretx"
	FieldLagME    = "lme"
	FieldMEBase   = "mebase"
)

// 성과 관련 상장폐지 코드에서 DLRET 결측 시 대체 수익률
const (
	delistReturnNYSEAMEX = -0.30
	delistReturnNASDAQ   = -0.55
)

// CRSPProcessor builds the monthly panel and the June snapshot from raw CRSP files
// ⭐ SSOT: CRSP 수익률/가중치 계산은 여기서만
type CRSPProcessor struct {
	logger *logger.Logger
	window contracts.Window
}

// NewCRSPProcessor creates a processor keeping calendar dates inside window
func NewCRSPProcessor(log *logger.Logger, window contracts.Window) *CRSPProcessor {
	return &CRSPProcessor{logger: log, window: window}
}

type crspRow struct {
	permno int64
	permco int64
	month  int
	ret    float64
	retx   float64
	me     float64
	shrcd  int
	exchcd int
	sic    int
}

type monthKey struct {
	entity int64
	month  int
}

// IsPerformanceDelisting reports delisting code 500 or 520..584
func IsPerformanceDelisting(code int) bool {
	return code == 500 || (code >= 520 && code <= 584)
}

// DelistingReturn fills a missing performance-related delisting return by exchange
func DelistingReturn(d Delisting, exchangeCode int) float64 {
	if !math.IsNaN(d.Return) || !IsPerformanceDelisting(d.Code) {
		return d.Return
	}
	switch exchangeCode {
	case contracts.ExchangeNYSE, contracts.ExchangeAMEX:
		return delistReturnNYSEAMEX
	case contracts.ExchangeNASDAQ:
		return delistReturnNASDAQ
	}
	return d.Return
}

// Process returns the monthly panel and the June rows carrying the prior December me
func (c *CRSPProcessor) Process(stocks []StockMonth, names []NameSpan, delistings []Delisting) (*Panel, *Panel) {
	start := time.Now()

	rows := c.joinNames(stocks, names)
	c.adjustForDelisting(rows, delistings)
	rows = aggregatePERMCO(rows)

	monthly := c.buildMonthly(rows)
	june := c.buildJune(monthly)

	c.logger.WithStage(contracts.StageData).WithFields(map[string]interface{}{
		"stock_months": len(stocks),
		"monthly_rows": monthly.Len(),
		"june_rows":    june.Len(),
		"elapsed_ms":   time.Since(start).Milliseconds(),
	}).Info("Processed CRSP data")

	return monthly, june
}

// joinNames keeps stock months covered by a names record, inside the window, on exchanges 1..3
func (c *CRSPProcessor) joinNames(stocks []StockMonth, names []NameSpan) []crspRow {
	byPERMNO := make(map[int64][]NameSpan)
	for _, n := range names {
		byPERMNO[n.PERMNO] = append(byPERMNO[n.PERMNO], n)
	}

	seen := make(map[monthKey]bool)
	out := make([]crspRow, 0, len(stocks))
	for _, s := range stocks {
		if !c.window.Contains(s.Date) {
			continue
		}
		for _, n := range byPERMNO[s.PERMNO] {
			if s.Date.Before(n.Start) || s.Date.After(n.End) {
				continue
			}
			if n.ExchangeCode < contracts.ExchangeNYSE || n.ExchangeCode > contracts.ExchangeNASDAQ {
				continue
			}
			k := monthKey{s.PERMNO, contracts.MonthIndex(s.Date)}
			if seen[k] {
				continue // 겹치는 names 구간
			}
			seen[k] = true
			out = append(out, crspRow{
				permno: s.PERMNO,
				permco: s.PERMCO,
				month:  k.month,
				ret:    s.Ret,
				retx:   s.Retx,
				me:     math.Abs(s.Prc) * s.ShrOut,
				shrcd:  n.ShareCode,
				exchcd: n.ExchangeCode,
				sic:    n.SIC,
			})
		}
	}
	return out
}

// adjustForDelisting compounds the delisting return into ret (missing values count as zero)
func (c *CRSPProcessor) adjustForDelisting(rows []crspRow, delistings []Delisting) {
	byKey := make(map[monthKey]Delisting, len(delistings))
	for _, d := range delistings {
		k := monthKey{d.PERMNO, contracts.MonthIndex(d.Date)}
		if _, ok := byKey[k]; !ok {
			byKey[k] = d
		}
	}

	filled := 0
	for i := range rows {
		r := &rows[i]
		dlret := 0.0
		if d, ok := byKey[monthKey{r.permno, r.month}]; ok {
			v := DelistingReturn(d, r.exchcd)
			if math.IsNaN(d.Return) && !math.IsNaN(v) {
				filled++
			}
			dlret = zeroIfNaN(v)
		}
		r.ret = (1+zeroIfNaN(r.ret))*(1+dlret) - 1
	}

	c.logger.WithFields(map[string]interface{}{
		"delistings": len(delistings),
		"filled":     filled,
	}).Debug("Applied delisting returns")
}

// aggregatePERMCO keeps the largest-me security per (month, PERMCO) and gives it the company's total me.
// 최대 me 동률이면 먼저 나온 행, me 가 모두 결측인 회사는 제외
func aggregatePERMCO(rows []crspRow) []crspRow {
	type company struct {
		best int
		sum  float64
	}
	groups := make(map[monthKey]*company)
	var order []monthKey
	for i, r := range rows {
		k := monthKey{r.permco, r.month}
		g, ok := groups[k]
		if !ok {
			g = &company{best: -1}
			groups[k] = g
			order = append(order, k)
		}
		if math.IsNaN(r.me) {
			continue
		}
		g.sum += r.me
		if g.best < 0 || r.me > rows[g.best].me {
			g.best = i
		}
	}

	out := make([]crspRow, 0, len(groups))
	for _, k := range order {
		g := groups[k]
		if g.best < 0 {
			continue
		}
		r := rows[g.best]
		r.me = g.sum
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].permno != out[j].permno {
			return out[i].permno < out[j].permno
		}
		return out[i].month < out[j].month
	})
	return out
}

// buildMonthly computes count, lagged me, within-fiscal-year compounding and the rebalancing weight.
// wt = lme (7월), 그 외 mebase × lcumretx
func (c *CRSPProcessor) buildMonthly(rows []crspRow) *Panel {
	n := len(rows)
	obs := make([]contracts.Observation, n)
	cumretx := make([]float64, n)
	lcumretx := make([]float64, n)
	lme := make([]float64, n)
	mebase := make([]float64, n)

	var (
		prevEntity int64 = -1
		count      int
		product    float64
		prevYear   int
		base       float64
	)
	for i, r := range rows {
		date := contracts.MonthEnd(r.month)
		ffyear := contracts.FiscalYear(date, contracts.DefaultFiscalLag)
		ffmonth := contracts.FiscalMonth(date, contracts.DefaultFiscalLag)
		gross := 1 + r.retx

		first := r.permno != prevEntity
		if first {
			prevEntity, count = r.permno, 0
			prevYear, product, base = ffyear, 1, math.NaN()
			lcumretx[i], lme[i] = math.NaN(), r.me/gross
		} else {
			lcumretx[i], lme[i] = cumretx[i-1], rows[i-1].me
		}
		if ffyear != prevYear {
			prevYear, product, base = ffyear, 1, math.NaN()
		}

		// 누적곱은 결측을 건너뜀
		if math.IsNaN(gross) {
			cumretx[i] = math.NaN()
		} else {
			product *= gross
			cumretx[i] = product
		}

		if ffmonth == 1 {
			base = lme[i]
		}
		mebase[i] = base

		wt := base * lcumretx[i]
		if ffmonth == 1 {
			wt = lme[i]
		}

		obs[i] = contracts.Observation{
			Entity:       r.permno,
			Date:         date,
			Return:       r.ret,
			ReturnExDiv:  r.retx,
			MarketEquity: r.me,
			Weight:       wt,
			DecME:        math.NaN(),
			ShareCode:    r.shrcd,
			ExchangeCode: r.exchcd,
			SIC:          r.sic,
			FiscalYear:   ffyear,
			Count:        count,
		}
		count++
	}

	p := NewPanel(obs)
	p, _ = p.WithColumn(FieldCumRetx, cumretx)
	p, _ = p.WithColumn(FieldLCumRetx, lcumretx)
	p, _ = p.WithColumn(FieldLagME, lme)
	p, _ = p.WithColumn(FieldMEBase, mebase)
	return p
}

// buildJune joins June rows with the December me of the prior calendar year (inner join)
func (c *CRSPProcessor) buildJune(monthly *Panel) *Panel {
	decME := make(map[fiscalKey]float64)
	for _, o := range monthly.Rows() {
		if o.Date.Month() == time.December {
			decME[fiscalKey{o.Entity, o.Date.Year() + 1}] = o.MarketEquity
		}
	}

	var idx []int
	rows := monthly.Rows()
	for i, o := range rows {
		if o.Date.Month() != time.June {
			continue
		}
		if _, ok := decME[fiscalKey{o.Entity, o.Date.Year()}]; ok {
			idx = append(idx, i)
		}
	}

	june := monthly.Select(idx)
	out := june.Rows()
	for i := range out {
		out[i].DecME = decME[fiscalKey{out[i].Entity, out[i].Date.Year()}]
		out[i].FiscalYear = out[i].Date.Year()
	}
	return rebuild(june, out)
}

// rebuild returns a panel over new rows with the float columns of p
func rebuild(p *Panel, rows []contracts.Observation) *Panel {
	q := NewPanel(rows)
	for _, name := range p.ColumnNames() {
		col, _ := p.Float(name)
		q, _ = q.WithColumn(name, col)
	}
	for _, name := range p.LabelNames() {
		col, _ := p.Labels(name)
		q, _ = q.WithLabels(name, col)
	}
	return q
}
