// Package basket selects the cheapest-to-deliver bond for each Treasury
// futures contract from the curve-priced instrument table.
package basket

import (
	"log/slog"
	"math"

	"github.com/tmglimp/Zfut-arbs/market"
)

// window is the deliverable maturity window and original-maturity cap for
// one futures product.
type window struct {
	lower, upper, maxOrigin float64
}

// Deliverable windows per CME product code. The offsets are added to the
// contract's years to expiry; maxOrigin caps the bond's original maturity.
// Fixed table, not derived.
var windows = map[string]window{
	"ZQ": {0, 31.0 / 360.0, math.Inf(1)},
	"ZT": {1.74, 2.03, 5.25},
	"Z3": {2.74, 3.03, 7.0},
	"ZF": {4.1677, 5.28, 5.25},
	"ZN": {6.5, 8.03, 10.0},
	"TN": {9.5, 10.03, 10.0},
}

// Window returns the absolute deliverable maturity range and origin cap for
// a product code at the given years to expiry. ok is false for codes outside
// the fixed table.
func Window(productCode string, yearsToExpiry float64) (lower, upper, maxOrigin float64, ok bool) {
	w, ok := windows[productCode]
	if !ok {
		return 0, 0, 0, false
	}
	return yearsToExpiry + w.lower, yearsToExpiry + w.upper, w.maxOrigin, true
}

// CTDRecord is a futures contract merged with a copy of its selected
// deliverable's fields. It owns the copied view; the source Bond is only
// read.
type CTDRecord struct {
	Symbol        string
	ProductCode   string
	YearsToExpiry float64
	FuturesPrice  float64

	CTDID               string
	CTDCusip            string
	CTDCoupon           float64
	CTDMaturityDate     string
	CTDPrevCoupon       string
	CTDNextCoupon       string
	CTDYTM              float64
	CTDCurveYield       float64
	CTDBidPrice         float64
	CTDAskPrice         float64
	CTDBidYield         float64
	CTDAskYield         float64
	CTDConversionFactor float64
	CTDTheoPrice        float64
	CTDImpliedRepo      float64

	// Futures-equivalent risk, filled by the combo stage.
	CTDMDur   float64
	CTDMacDur float64
	CTDCvx    float64
	CTDDV01   float64
	FutMDur   float64
	FutMacDur float64
	FutCvx    float64
	FutDV01   float64
}

// Selector pairs futures contracts with their cheapest-to-deliver bond.
type Selector struct {
	log *slog.Logger
}

func NewSelector(logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{log: logger}
}

// SelectCTD returns the CTD record for one contract, or nil when the
// contract has no eligible deliverable. Candidates must already carry a
// theoretical price; rows with a NaN theoretical price are ignored. The
// minimum implied repo rate wins, first occurrence on ties.
func (s *Selector) SelectCTD(fut market.Future, candidates []market.Bond) *CTDRecord {
	if math.IsNaN(fut.YearsToExpiry) || math.IsNaN(fut.Price) {
		s.log.Warn("future missing expiry or price", "symbol", fut.Symbol)
		return nil
	}
	lower, upper, maxOrigin, ok := Window(fut.ProductCode, fut.YearsToExpiry)
	if !ok {
		s.log.Warn("unknown product code", "symbol", fut.Symbol, "code", fut.ProductCode)
		return nil
	}

	bestIdx := -1
	bestRepo := math.Inf(1)
	for i, b := range candidates {
		if math.IsNaN(b.YearsToMaturity) || math.IsNaN(b.OriginalMaturity) {
			continue
		}
		if b.YearsToMaturity < lower || b.YearsToMaturity > upper {
			continue
		}
		if b.OriginalMaturity > maxOrigin {
			continue
		}
		if math.IsNaN(b.TheoPrice) {
			continue
		}
		repo := fut.Price*b.ConversionFactor - b.TheoPrice
		if repo < bestRepo {
			bestRepo = repo
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		s.log.Info("no eligible deliverable", "symbol", fut.Symbol,
			"window_lower", lower, "window_upper", upper)
		return nil
	}

	b := candidates[bestIdx]
	return &CTDRecord{
		Symbol:        fut.Symbol,
		ProductCode:   fut.ProductCode,
		YearsToExpiry: fut.YearsToExpiry,
		FuturesPrice:  fut.Price,

		CTDID:               b.ID,
		CTDCusip:            b.Cusip,
		CTDCoupon:           b.Coupon,
		CTDMaturityDate:     b.MaturityDate,
		CTDPrevCoupon:       b.PrevCoupon,
		CTDNextCoupon:       b.NextCoupon,
		CTDYTM:              b.YearsToMaturity,
		CTDCurveYield:       b.CurveYield,
		CTDBidPrice:         b.BidPrice,
		CTDAskPrice:         b.AskPrice,
		CTDBidYield:         b.BidYield,
		CTDAskYield:         b.AskYield,
		CTDConversionFactor: b.ConversionFactor,
		CTDTheoPrice:        b.TheoPrice,
		CTDImpliedRepo:      bestRepo,
	}
}

// SelectAll runs SelectCTD across the futures table, skipping contracts
// without a CTD.
func (s *Selector) SelectAll(futures []market.Future, candidates []market.Bond) []CTDRecord {
	out := make([]CTDRecord, 0, len(futures))
	for _, fut := range futures {
		if rec := s.SelectCTD(fut, candidates); rec != nil {
			out = append(out, *rec)
		}
	}
	return out
}
