package curve

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Basis is a clamped B-spline basis on a fixed knot sequence. It is built
// once per fit trial and stored on the selected Curve so new points can be
// projected onto the identical basis later.
type Basis struct {
	Interior []float64 `json:"interior_knots"`
	Degree   int       `json:"degree"`
	Lo       float64   `json:"lo"`
	Hi       float64   `json:"hi"`
}

// NewBasis builds a clamped basis of the given degree with interior knots
// placed at the supplied positions. lo and hi are the boundary knots, taken
// from the range of the training data.
func NewBasis(interior []float64, degree int, lo, hi float64) (Basis, error) {
	if degree < 1 {
		return Basis{}, fmt.Errorf("curve: degree must be >= 1, got %d", degree)
	}
	if hi <= lo {
		return Basis{}, fmt.Errorf("curve: empty knot range [%v, %v]", lo, hi)
	}
	for i, v := range interior {
		if v < lo || v > hi {
			return Basis{}, fmt.Errorf("curve: interior knot %v outside [%v, %v]", v, lo, hi)
		}
		if i > 0 && v < interior[i-1] {
			return Basis{}, fmt.Errorf("curve: interior knots not sorted at %d", i)
		}
	}
	return Basis{Interior: append([]float64(nil), interior...), Degree: degree, Lo: lo, Hi: hi}, nil
}

// NumBasis is the number of basis functions, i.e. design matrix columns.
func (b Basis) NumBasis() int {
	return len(b.Interior) + b.Degree + 1
}

// knotVector expands the clamped knot sequence: the boundary knots repeated
// degree+1 times around the interior knots.
func (b Basis) knotVector() []float64 {
	t := make([]float64, 0, 2*(b.Degree+1)+len(b.Interior))
	for i := 0; i <= b.Degree; i++ {
		t = append(t, b.Lo)
	}
	t = append(t, b.Interior...)
	for i := 0; i <= b.Degree; i++ {
		t = append(t, b.Hi)
	}
	return t
}

// Row evaluates every basis function at x using the Cox-de Boor recursion.
// Points outside [Lo, Hi] are clamped to the boundary before evaluation.
func (b Basis) Row(x float64) []float64 {
	if x < b.Lo {
		x = b.Lo
	}
	if x > b.Hi {
		x = b.Hi
	}
	t := b.knotVector()
	n := make([]float64, len(t)-1)
	for i := range n {
		if (x >= t[i] && x < t[i+1]) || (x == b.Hi && t[i] < t[i+1] && t[i+1] == b.Hi) {
			n[i] = 1.0
		}
	}
	for d := 1; d <= b.Degree; d++ {
		for i := 0; i+d+1 < len(t); i++ {
			var v float64
			if den := t[i+d] - t[i]; den > 0 {
				v += (x - t[i]) / den * n[i]
			}
			if den := t[i+d+1] - t[i+1]; den > 0 {
				v += (t[i+d+1] - x) / den * n[i+1]
			}
			n[i] = v
		}
	}
	return n[:b.NumBasis()]
}

// DesignMatrix stacks Row(x) for every x into an n x NumBasis matrix.
func (b Basis) DesignMatrix(xs []float64) *mat.Dense {
	m := b.NumBasis()
	X := mat.NewDense(len(xs), m, nil)
	for i, x := range xs {
		X.SetRow(i, b.Row(x))
	}
	return X
}
