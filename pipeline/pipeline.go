// Package pipeline sequences one full run: curve fit, theoretical pricing,
// CTD selection and hedge combination. It owns the single published
// snapshot, swapped in atomically only when a run fully succeeds.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tmglimp/Zfut-arbs/basket"
	"github.com/tmglimp/Zfut-arbs/combo"
	"github.com/tmglimp/Zfut-arbs/curve"
	"github.com/tmglimp/Zfut-arbs/fincalc"
	"github.com/tmglimp/Zfut-arbs/market"
)

// ErrNoInput means a run was started with no usable input rows at all.
var ErrNoInput = errors.New("pipeline: no input data")

// Snapshot is the complete output of one successful run. It is immutable:
// readers always see either this snapshot or the one that replaces it.
type Snapshot struct {
	Curve  *curve.Curve
	Bonds  []market.Bond // augmented with CurveYield and TheoPrice
	Hedges []basket.CTDRecord
	Combos []combo.Combination
	Settle string
	Stamp  time.Time
}

// Runner drives pipeline runs and holds the current published snapshot.
type Runner struct {
	fitter    *curve.Fitter
	selector  *basket.Selector
	generator *combo.Generator
	log       *slog.Logger

	mu      sync.RWMutex
	current *Snapshot
}

func NewRunner(cfg curve.Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		fitter:    curve.NewFitter(cfg, logger),
		selector:  basket.NewSelector(logger),
		generator: combo.NewGenerator(logger),
		log:       logger,
	}
}

// Published returns the current snapshot, or nil before the first successful
// run. The returned snapshot is never mutated.
func (r *Runner) Published() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Run executes one pipeline pass over an immutable copy of the input
// universe. On success the new snapshot is published and returned; on
// failure the previous snapshot is left in place and the reason returned.
func (r *Runner) Run(obs []market.YieldObservation, bonds []market.Bond, futures []market.Future, settle string) (*Snapshot, error) {
	if len(obs) == 0 && len(bonds) == 0 && len(futures) == 0 {
		return nil, ErrNoInput
	}

	fitted, err := r.fitter.Fit(obs)
	if err != nil {
		return nil, fmt.Errorf("pipeline: curve fit: %w", err)
	}

	priced := r.priceBonds(fitted, bonds, settle)

	hedges := r.selector.SelectAll(futures, priced)
	hedges = r.generator.ComputeKPIs(hedges, settle)
	combos := r.generator.Combine(hedges)

	snap := &Snapshot{
		Curve:  fitted,
		Bonds:  priced,
		Hedges: hedges,
		Combos: combos,
		Settle: settle,
		Stamp:  time.Now(),
	}

	r.mu.Lock()
	r.current = snap
	r.mu.Unlock()

	r.log.Info("snapshot published",
		"bonds", len(priced), "hedges", len(hedges), "combos", len(combos),
		"gcv", fitted.GCV, "lambda", fitted.Lambda)
	return snap, nil
}

// priceBonds evaluates the fitted curve at each bond's maturity and prices
// the bond at that yield. The curve is fit on yields in percent; pricing
// uses the decimal yield. Bonds that cannot be priced are dropped.
func (r *Runner) priceBonds(c *curve.Curve, bonds []market.Bond, settle string) []market.Bond {
	clean, dropped := market.CleanBonds(bonds)
	if dropped > 0 {
		r.log.Warn("dropped unpriceable bonds", "dropped", dropped, "kept", len(clean))
	}

	xs := make([]float64, len(clean))
	for i, b := range clean {
		xs[i] = b.YearsToMaturity
	}
	yields := c.Evaluate(xs)

	out := make([]market.Bond, 0, len(clean))
	for i, b := range clean {
		b.CurveYield = yields[i] / 100.0
		theo, err := fincalc.BPrice(b.Coupon, b.YearsToMaturity, b.CurveYield,
			combo.Period, b.PrevCoupon, settle, b.NextCoupon, combo.DayCount)
		if err != nil {
			r.log.Warn("pricing failed", "cusip", b.Cusip, "err", err)
			continue
		}
		b.TheoPrice = theo
		out = append(out, b)
	}
	return out
}
