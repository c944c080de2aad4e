package pipeline

import (
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tmglimp/Zfut-arbs/curve"
	"github.com/tmglimp/Zfut-arbs/market"
)

const settle = "20250830"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// universe builds a consistent input set: observations on a gently sloping
// yield curve (in percent), bonds inside the ZN and ZF deliverable windows
// and the two matching futures contracts.
func universe() ([]market.YieldObservation, []market.Bond, []market.Future) {
	var obs []market.YieldObservation
	for i := 0; i < 120; i++ {
		x := 0.25 + (30.0-0.25)*float64(i)/119.0
		y := 2.0 + 0.3*x - 0.01*x*x
		obs = append(obs, market.YieldObservation{MaturityYears: x, Yield: y, OriginalMaturity: x})
	}

	bond := func(id string, ytm, origin, cf float64) market.Bond {
		return market.Bond{
			ID: id, Cusip: "C" + id,
			Coupon:       4.0,
			MaturityDate: "20350515", PrevCoupon: "20250515", NextCoupon: "20251115",
			YearsToMaturity: ytm, OriginalMaturity: origin, ConversionFactor: cf,
			BidPrice: 99.0, AskPrice: 99.1, BidYield: 0.041, AskYield: 0.040,
		}
	}
	bonds := []market.Bond{
		bond("N1", 7.0, 10.0, 0.88),
		bond("N2", 7.5, 10.0, 0.90),
		bond("F1", 9.5, 5.0, 0.85),
	}
	futures := []market.Future{
		{Symbol: "ZNZ5", ProductCode: "ZN", YearsToExpiry: 0.25, Price: 110.0},
		{Symbol: "ZFZ5", ProductCode: "ZF", YearsToExpiry: 5.0, Price: 108.0},
	}
	return obs, bonds, futures
}

func TestRunPublishesCompleteSnapshot(t *testing.T) {
	r := NewRunner(curve.DefaultConfig(), quietLogger())
	require.Nil(t, r.Published())

	obs, bonds, futures := universe()
	snap, err := r.Run(obs, bonds, futures, settle)
	require.NoError(t, err)
	require.NotNil(t, snap)
	require.Same(t, snap, r.Published())

	require.NotNil(t, snap.Curve)
	require.Len(t, snap.Bonds, 3)
	for _, b := range snap.Bonds {
		require.False(t, math.IsNaN(b.CurveYield))
		require.Greater(t, b.TheoPrice, 0.0)
		// Curve is fit in percent, pricing yield is decimal.
		require.Less(t, b.CurveYield, 1.0)
	}

	// ZN picks between N1/N2, ZF gets F1.
	require.Len(t, snap.Hedges, 2)
	require.Equal(t, "ZNZ5", snap.Hedges[0].Symbol)
	require.Equal(t, "ZFZ5", snap.Hedges[1].Symbol)
	for _, h := range snap.Hedges {
		require.Greater(t, h.FutDV01, 0.0)
		require.Greater(t, h.FutMDur, 0.0)
	}

	// Two distinct CTDs give both ordered pairs.
	require.Len(t, snap.Combos, 2)
	require.NotEqual(t, snap.Combos[0].A.CTDID, snap.Combos[0].B.CTDID)
}

func TestFailedRunKeepsPreviousSnapshot(t *testing.T) {
	r := NewRunner(curve.DefaultConfig(), quietLogger())
	obs, bonds, futures := universe()

	snap, err := r.Run(obs, bonds, futures, settle)
	require.NoError(t, err)

	// Second run with unusable observations fails and leaves the first
	// snapshot published.
	bad := []market.YieldObservation{{MaturityYears: math.NaN(), Yield: 1.0}}
	_, err = r.Run(bad, bonds, futures, settle)
	require.ErrorIs(t, err, curve.ErrNoObservations)
	require.Same(t, snap, r.Published())
}

func TestRunNoInput(t *testing.T) {
	r := NewRunner(curve.DefaultConfig(), quietLogger())
	_, err := r.Run(nil, nil, nil, settle)
	require.ErrorIs(t, err, ErrNoInput)
	require.Nil(t, r.Published())
}

func TestRunWithoutFuturesStillPublishes(t *testing.T) {
	// Contracts without deliverables are skipped, never fatal.
	r := NewRunner(curve.DefaultConfig(), quietLogger())
	obs, bonds, _ := universe()

	snap, err := r.Run(obs, bonds, nil, settle)
	require.NoError(t, err)
	require.Empty(t, snap.Hedges)
	require.Empty(t, snap.Combos)
	require.Len(t, snap.Bonds, 3)
}

func TestRunDropsUnpriceableBonds(t *testing.T) {
	r := NewRunner(curve.DefaultConfig(), quietLogger())
	obs, bonds, futures := universe()
	bonds = append(bonds, market.Bond{ID: "BAD", YearsToMaturity: math.NaN()})

	snap, err := r.Run(obs, bonds, futures, settle)
	require.NoError(t, err)
	require.Len(t, snap.Bonds, 3)
}
