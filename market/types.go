// Package market defines the in-memory tables the pipeline computes over:
// zero-coupon yield observations, deliverable bond instruments and futures
// contracts. Collaborating layers fill these from their own feeds.
package market

import "math"

// YieldObservation is a single zero-coupon market yield, immutable once
// sampled.
type YieldObservation struct {
	MaturityYears    float64
	Yield            float64
	OriginalMaturity float64
}

// Bond is one deliverable Treasury instrument joined with its live quotes.
// CurveYield and TheoPrice are outputs, filled during a pipeline run; the
// reference and quote fields are never mutated by the core.
type Bond struct {
	ID               string
	Cusip            string
	Coupon           float64
	MaturityDate     string // YYYYMMDD
	PrevCoupon       string // YYYYMMDD
	NextCoupon       string // YYYYMMDD
	YearsToMaturity  float64
	OriginalMaturity float64
	ConversionFactor float64
	BidPrice         float64
	AskPrice         float64
	BidYield         float64
	AskYield         float64

	CurveYield float64
	TheoPrice  float64
}

// Future is one Treasury futures contract row.
type Future struct {
	Symbol        string
	ProductCode   string // ZQ, ZT, Z3, ZF, ZN or TN
	YearsToExpiry float64
	Price         float64
}

// Valid reports whether the observation carries the fields curve fitting
// needs.
func (o YieldObservation) Valid() bool {
	return o.MaturityYears > 0 &&
		!math.IsNaN(o.MaturityYears) && !math.IsNaN(o.Yield)
}

// Priceable reports whether the bond has every field theoretical pricing
// needs. Rows failing this are dropped from the run, not errored.
func (b Bond) Priceable() bool {
	return !math.IsNaN(b.Coupon) && !math.IsNaN(b.YearsToMaturity) &&
		!math.IsNaN(b.OriginalMaturity) && !math.IsNaN(b.ConversionFactor) &&
		b.YearsToMaturity > 0 && b.ConversionFactor > 0 &&
		b.PrevCoupon != "" && b.NextCoupon != "" && b.MaturityDate != ""
}

// CleanObservations drops rows missing the fields needed for fitting and
// returns the survivors plus the number dropped.
func CleanObservations(obs []YieldObservation) ([]YieldObservation, int) {
	out := make([]YieldObservation, 0, len(obs))
	for _, o := range obs {
		if o.Valid() {
			out = append(out, o)
		}
	}
	return out, len(obs) - len(out)
}

// CleanBonds drops bonds that cannot be priced and returns the survivors
// plus the number dropped.
func CleanBonds(bonds []Bond) ([]Bond, int) {
	out := make([]Bond, 0, len(bonds))
	for _, b := range bonds {
		if b.Priceable() {
			out = append(out, b)
		}
	}
	return out, len(bonds) - len(out)
}
