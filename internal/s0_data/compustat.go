package s0_data

import (
	"math"
	"sort"
	"time"

	"github.com/aidanvyas/asset-pricing-code/pkg/logger"
)

// CompustatProcessor derives book equity, profitability and asset growth items
// ⭐ SSOT: Compustat 파생 변수 계산은 여기서만
type CompustatProcessor struct {
	logger *logger.Logger
}

// NewCompustatProcessor creates a new Compustat processor
func NewCompustatProcessor(log *logger.Logger) *CompustatProcessor {
	return &CompustatProcessor{logger: log}
}

// coalesce returns the first non-missing value
func coalesce(values ...float64) float64 {
	for _, v := range values {
		if !math.IsNaN(v) {
			return v
		}
	}
	return math.NaN()
}

// zeroIfNaN treats a missing item as zero
func zeroIfNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

// Process sorts firm-years by (gvkey, datadate), numbers them per gvkey and adds the derived items.
// 입력 슬라이스는 변경하지 않음
func (c *CompustatProcessor) Process(records []Fundamental) []Fundamental {
	start := time.Now()
	out := make([]Fundamental, len(records))
	for i, r := range records {
		values := make(map[string]float64, len(r.Values)+12)
		for k, v := range r.Values {
			values[k] = v
		}
		r.Values = values
		out[i] = r
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].GVKey != out[j].GVKey {
			return out[i].GVKey < out[j].GVKey
		}
		return out[i].DataDate.Before(out[j].DataDate)
	})

	prevKey := ""
	count := 0
	prevAT := math.NaN()
	for i := range out {
		f := &out[i]
		if f.GVKey != prevKey {
			prevKey, count, prevAT = f.GVKey, 0, math.NaN()
		}
		f.Count = count
		count++

		derive(f)

		// 직전 행 대비 총자산 증가율 (결측이면 NaN)
		at := f.Values["AT"]
		f.Values["AT_GR1"] = at/prevAT - 1
		prevAT = at
	}

	c.logger.WithFields(map[string]interface{}{
		"firm_years": len(out),
		"elapsed_ms": time.Since(start).Milliseconds(),
	}).Info("Processed Compustat fundamentals")

	return out
}

// derive computes the upper-case items of one firm-year
func derive(f *Fundamental) {
	v := f.Value

	pstk := coalesce(v("pstkrv"), v("pstkl"), v("pstk"))
	seq := coalesce(v("seq"), v("ceq")+zeroIfNaN(pstk), v("at")-v("lt"))
	txditc := coalesce(v("txditc"), v("txdb")+v("itcb"))
	be := seq + zeroIfNaN(txditc) - zeroIfNaN(pstk)
	sale := coalesce(v("sale"), v("revt"))
	opex := coalesce(v("xopr"), v("cogs")+v("xsga"))
	gp := coalesce(v("gp"), sale-v("cogs"))
	ebitda := coalesce(v("ebitda"), v("oibdp"), sale-opex, gp-v("xsga"))
	op := ebitda - v("xint")
	at := coalesce(v("at"), seq+v("dltt")+zeroIfNaN(v("lct"))+zeroIfNaN(v("lo"))+zeroIfNaN(v("txditc")))

	f.Values["PSTK"] = pstk
	f.Values["SEQ"] = seq
	f.Values["TXDITC"] = txditc
	f.Values["BE"] = be
	f.Values["SALE"] = sale
	f.Values["OPEX"] = opex
	f.Values["GP"] = gp
	f.Values["EBITDA"] = ebitda
	f.Values["OP"] = op
	f.Values["OP_BE"] = op / be
	f.Values["AT"] = at
}
