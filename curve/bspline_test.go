package curve

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func testBasis(t *testing.T, k int) Basis {
	t.Helper()
	interior := make([]float64, k)
	for i := 0; i < k; i++ {
		interior[i] = 1.0 + 28.0*float64(i)/float64(k-1)
	}
	b, err := NewBasis(interior, SplineDegree, 0.25, 30.0)
	require.NoError(t, err)
	return b
}

func TestBasisPartitionOfUnity(t *testing.T) {
	b := testBasis(t, 6)
	for _, x := range []float64{0.25, 0.7, 1.0, 5.3, 14.9, 29.99, 30.0} {
		row := b.Row(x)
		require.Len(t, row, b.NumBasis())
		sum := 0.0
		for _, v := range row {
			require.GreaterOrEqual(t, v, 0.0)
			sum += v
		}
		require.InDelta(t, 1.0, sum, 1e-12, "basis at x=%v must sum to one", x)
	}
}

func TestBasisClampsOutOfRange(t *testing.T) {
	b := testBasis(t, 5)
	require.Equal(t, b.Row(0.25), b.Row(0.01))
	require.Equal(t, b.Row(30.0), b.Row(45.0))
}

func TestDesignMatrixFullRank(t *testing.T) {
	// With n >= k + degree + 1 well-spread points the design has full
	// column rank.
	for _, k := range []int{4, 6, 8, 11} {
		b := testBasis(t, k)
		m := b.NumBasis()
		n := m + 5
		xs := make([]float64, n)
		for i := range xs {
			xs[i] = 0.25 + (30.0-0.25)*float64(i)/float64(n-1)
		}
		X := b.DesignMatrix(xs)

		var svd mat.SVD
		require.True(t, svd.Factorize(X, mat.SVDThin))
		sv := svd.Values(nil)
		rank := 0
		for _, s := range sv {
			if s > 1e-10 {
				rank++
			}
		}
		require.Equal(t, m, rank, "k=%d", k)
	}
}

func TestNewBasisRejectsBadInput(t *testing.T) {
	_, err := NewBasis([]float64{1, 2}, 3, 5.0, 5.0)
	require.Error(t, err)

	_, err = NewBasis([]float64{9.0}, 3, 0.0, 5.0)
	require.Error(t, err)

	_, err = NewBasis([]float64{3.0, 1.0}, 3, 0.0, 5.0)
	require.Error(t, err)
}
