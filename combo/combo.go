// Package combo enriches CTD records with futures-equivalent risk metrics
// and generates the pairwise hedge combinations downstream sizing consumes.
package combo

import (
	"log/slog"

	"github.com/tmglimp/Zfut-arbs/basket"
	"github.com/tmglimp/Zfut-arbs/fincalc"
)

// Pricing constants shared with the theoretical pricing stage.
const (
	Period   = 2
	DayCount = fincalc.DayCountActAct
)

// MaxCombos bounds the combination table to the most recently generated
// rows.
const MaxCombos = 750

// Combination is an ordered pair of enriched CTD records. A and B are
// copies; the source records are not referenced.
type Combination struct {
	A basket.CTDRecord
	B basket.CTDRecord
}

// Generator computes futures KPIs and hedge pairs.
type Generator struct {
	log *slog.Logger
	cap int
}

func NewGenerator(logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{log: logger, cap: MaxCombos}
}

// ComputeKPIs fills duration, convexity and DV01 for each CTD bond at the
// curve-implied yield, then scales by the conversion factor into
// futures-equivalent terms. Records whose analytics fail are dropped from
// the output, logged, never fatal.
func (g *Generator) ComputeKPIs(records []basket.CTDRecord, settle string) []basket.CTDRecord {
	out := make([]basket.CTDRecord, 0, len(records))
	for _, r := range records {
		mdur, err := fincalc.MDur(r.CTDCoupon, r.CTDYTM, r.CTDCurveYield, Period,
			r.CTDPrevCoupon, settle, r.CTDNextCoupon, DayCount)
		if err != nil {
			g.log.Warn("kpi failed", "symbol", r.Symbol, "err", err)
			continue
		}
		macdur, err := fincalc.MacDur(r.CTDCoupon, r.CTDYTM, r.CTDCurveYield, Period,
			r.CTDPrevCoupon, settle, r.CTDNextCoupon, DayCount)
		if err != nil {
			g.log.Warn("kpi failed", "symbol", r.Symbol, "err", err)
			continue
		}
		cvx, err := fincalc.Cvx(r.CTDCoupon, r.CTDYTM, r.CTDCurveYield, Period,
			r.CTDPrevCoupon, settle, r.CTDNextCoupon, DayCount)
		if err != nil {
			g.log.Warn("kpi failed", "symbol", r.Symbol, "err", err)
			continue
		}
		dv01, err := fincalc.DV01(r.CTDCoupon, r.CTDYTM, r.CTDCurveYield, Period,
			r.CTDPrevCoupon, settle, r.CTDNextCoupon, DayCount)
		if err != nil {
			g.log.Warn("kpi failed", "symbol", r.Symbol, "err", err)
			continue
		}

		r.CTDMDur = mdur
		r.CTDMacDur = macdur
		r.CTDCvx = cvx
		r.CTDDV01 = dv01
		cf := r.CTDConversionFactor
		r.FutMDur = mdur / cf
		r.FutMacDur = macdur / cf
		r.FutCvx = cvx / cf
		r.FutDV01 = dv01 / cf
		out = append(out, r)
	}
	return out
}

// Combine returns every ordered pair (A, B) with distinct CTD bonds, in
// generation order, trimmed to the most recent cap rows when the full cross
// product is larger.
func (g *Generator) Combine(records []basket.CTDRecord) []Combination {
	var combos []Combination
	for _, a := range records {
		for _, b := range records {
			if a.CTDID == b.CTDID {
				continue
			}
			combos = append(combos, Combination{A: a, B: b})
		}
	}
	if len(combos) > g.cap {
		combos = combos[len(combos)-g.cap:]
	}
	return combos
}
