package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tmglimp/Zfut-arbs/basket"
	"github.com/tmglimp/Zfut-arbs/curve"
	"github.com/tmglimp/Zfut-arbs/pipeline"
)

// Integration test; needs a reachable Postgres.
func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("ZFUT_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("ZFUT_TEST_DATABASE_URL not set")
	}
	s, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Init(context.Background()))
	return s
}

func TestSaveAndReloadSnapshot(t *testing.T) {
	s := testStore(t)

	basis, err := curve.NewBasis([]float64{2, 5, 10}, curve.SplineDegree, 0.25, 30.0)
	require.NoError(t, err)
	snap := &pipeline.Snapshot{
		Curve: &curve.Curve{
			Basis:  basis,
			Coef:   []float64{1, 2, 3, 4, 5, 6, 7},
			Lambda: 1.7,
			GCV:    0.0021,
			Knots:  3,
		},
		Hedges: []basket.CTDRecord{{
			Symbol: "ZNZ5", ProductCode: "ZN", CTDCusip: "912810AA",
			CTDImpliedRepo: -0.01, CTDTheoPrice: 98.5, FutDV01: 0.072, FutMDur: 6.1,
		}},
		Stamp: time.Now(),
	}
	require.NoError(t, s.SaveSnapshot(context.Background(), snap))

	knots, lambda, gcv, err := s.LatestCurve(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, knots)
	require.Equal(t, 1.7, lambda)
	require.Equal(t, 0.0021, gcv)
}
