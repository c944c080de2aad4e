// Package curve fits a penalized cubic B-spline yield curve to zero-coupon
// observations. Knot counts and fit parameters are searched in parallel and
// the winner is the minimum-GCV fit that is not too jagged.
package curve

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"github.com/tmglimp/Zfut-arbs/market"
)

// SplineDegree is fixed: the curve is always cubic.
const SplineDegree = 3

// gcvEps guards the GCV denominator n - trace(H).
const gcvEps = 1e-6

var (
	// ErrNoObservations means the cleaned input table was empty.
	ErrNoObservations = errors.New("curve: no usable yield observations")
	// ErrAllFitsFailed means every grid trial failed to solve.
	ErrAllFitsFailed = errors.New("curve: all fit trials failed")
)

// ParamSet is one quantile/optimizer-bound combination of the fit grid. The
// knots sit at quantiles of the observed maturities between QtLower and
// QtUpper; the smoothing search runs over log-lambda in [BoundLower,
// BoundUpper].
type ParamSet struct {
	QtLower    float64 `yaml:"qt_lower"`
	QtUpper    float64 `yaml:"qt_upper"`
	BoundLower float64 `yaml:"bound_lower"`
	BoundUpper float64 `yaml:"bound_upper"`
}

// Config controls the fit grid.
type Config struct {
	KnotMin        int        `yaml:"knot_min"`
	KnotMax        int        `yaml:"knot_max"`
	ParamSets      []ParamSet `yaml:"param_sets"`
	MaxSlopeChange float64    `yaml:"max_slope_change"`
	Workers        int        `yaml:"workers"`
	Progress       bool       `yaml:"progress"`
}

// DefaultConfig mirrors the single-parameter-set production grid.
func DefaultConfig() Config {
	return Config{
		KnotMin:        4,
		KnotMax:        11,
		ParamSets:      []ParamSet{{QtLower: 0.001, QtUpper: 0.999, BoundLower: 0, BoundUpper: 1}},
		MaxSlopeChange: 0.00001,
		Workers:        4,
	}
}

// WideConfig is the full 16-parameter-set grid used when a broader search is
// worth the extra compute.
func WideConfig() Config {
	cfg := DefaultConfig()
	cfg.ParamSets = []ParamSet{
		{0.001, 0.999, 0, 1}, {0.005, 0.995, 0, 1}, {0.01, 0.99, 0, 1}, {0.05, 0.95, 0, 1},
		{0.1, 0.9, 0, 1}, {0.2, 0.8, 0, 1},
		{0.001, 0.995, 0, 1}, {0.001, 0.99, 0, 1}, {0.001, 0.95, 0, 1}, {0.001, 0.9, 0, 1},
		{0.001, 0.8, 0, 1},
		{0.005, 0.999, 0, 1}, {0.01, 0.999, 0, 1}, {0.05, 0.999, 0, 1}, {0.1, 0.999, 0, 1},
		{0.2, 0.999, 0, 1},
	}
	return cfg
}

// Curve is one accepted fit. It is immutable; a later run replaces it
// wholesale rather than updating it.
type Curve struct {
	Basis  Basis     `json:"basis"`
	Coef   []float64 `json:"coefficients"`
	Lambda float64   `json:"lambda"`
	GCV    float64   `json:"gcv"`
	Knots  int       `json:"knots"`
}

// Evaluate projects new x values onto the stored basis and applies the
// fitted coefficients. Calling it on the training maturities reproduces the
// training fitted values.
func (c *Curve) Evaluate(xs []float64) []float64 {
	X := c.Basis.DesignMatrix(xs)
	out := make([]float64, len(xs))
	coef := mat.NewVecDense(len(c.Coef), c.Coef)
	var y mat.VecDense
	y.MulVec(X, coef)
	copy(out, y.RawVector().Data)
	return out
}

// trial is one completed grid fit, kept with its sorted fitted values for
// the jaggedness check.
type trial struct {
	curve      Curve
	xSorted    []float64
	yhatSorted []float64
}

// Fitter runs the penalized-spline grid search.
type Fitter struct {
	cfg Config
	log *slog.Logger
}

func NewFitter(cfg Config, logger *slog.Logger) *Fitter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.KnotMin < 1 || cfg.KnotMax < cfg.KnotMin {
		cfg = DefaultConfig()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if len(cfg.ParamSets) == 0 {
		cfg.ParamSets = DefaultConfig().ParamSets
	}
	return &Fitter{cfg: cfg, log: logger}
}

// Fit runs every (knot count, parameter set) trial on a bounded worker pool
// and returns the selected curve. Individual trial failures are logged and
// skipped; Fit fails only if no trial succeeds.
func (f *Fitter) Fit(obs []market.YieldObservation) (*Curve, error) {
	clean, dropped := market.CleanObservations(obs)
	if dropped > 0 {
		f.log.Warn("dropped unusable yield observations", "dropped", dropped, "kept", len(clean))
	}
	if len(clean) == 0 {
		return nil, ErrNoObservations
	}

	x := make([]float64, len(clean))
	y := make([]float64, len(clean))
	for i, o := range clean {
		x[i] = o.MaturityYears
		y[i] = o.Yield
	}
	xSorted := append([]float64(nil), x...)
	sort.Float64s(xSorted)

	nTrials := (f.cfg.KnotMax - f.cfg.KnotMin + 1) * len(f.cfg.ParamSets)
	var bar *progressbar.ProgressBar
	if f.cfg.Progress {
		bar = progressBar(nTrials)
	}

	var (
		mu      sync.Mutex
		results []trial
	)
	g := new(errgroup.Group)
	g.SetLimit(f.cfg.Workers)
	for k := f.cfg.KnotMin; k <= f.cfg.KnotMax; k++ {
		for _, ps := range f.cfg.ParamSets {
			k, ps := k, ps
			g.Go(func() error {
				tr, err := f.runTrial(x, y, xSorted, k, ps)
				if bar != nil {
					bar.Add(1)
				}
				if err != nil {
					f.log.Warn("fit trial failed",
						"knots", k, "qt_lower", ps.QtLower, "qt_upper", ps.QtUpper, "err", err)
					return nil
				}
				mu.Lock()
				results = append(results, tr)
				mu.Unlock()
				return nil
			})
		}
	}
	g.Wait()

	if len(results) == 0 {
		return nil, ErrAllFitsFailed
	}

	best := selectBest(results, f.cfg.MaxSlopeChange)
	f.log.Info("curve fit selected",
		"knots", best.curve.Knots, "lambda", best.curve.Lambda, "gcv", best.curve.GCV,
		"trials", len(results), "grid", nTrials)
	c := best.curve
	return &c, nil
}

// runTrial fits one knot count / parameter set: knots at maturity quantiles,
// smoothing lambda picked by bounded GCV minimization over log-lambda.
func (f *Fitter) runTrial(x, y, xSorted []float64, k int, ps ParamSet) (trial, error) {
	knots := quantileKnots(xSorted, k, ps.QtLower, ps.QtUpper)
	basis, err := NewBasis(knots, SplineDegree, xSorted[0], xSorted[len(xSorted)-1])
	if err != nil {
		return trial{}, err
	}
	X := basis.DesignMatrix(x)

	logLam, err := minimizeGCV(X, y, ps.BoundLower, ps.BoundUpper)
	if err != nil {
		return trial{}, err
	}
	lam := math.Exp(logLam)
	gcv, coef, yhat, err := fitPenalized(X, y, lam)
	if err != nil {
		return trial{}, err
	}
	if math.IsInf(gcv, 0) || math.IsNaN(gcv) {
		return trial{}, fmt.Errorf("non-finite gcv score")
	}

	// Sort fitted values by maturity for the jaggedness check.
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return x[idx[i]] < x[idx[j]] })
	xs := make([]float64, len(x))
	ys := make([]float64, len(x))
	for i, j := range idx {
		xs[i] = x[j]
		ys[i] = yhat[j]
	}

	return trial{
		curve: Curve{
			Basis:  basis,
			Coef:   coef,
			Lambda: lam,
			GCV:    gcv,
			Knots:  k,
		},
		xSorted:    xs,
		yhatSorted: ys,
	}, nil
}

// quantileKnots places k interior knots at evenly spaced quantiles of the
// sorted maturities between lo and hi.
func quantileKnots(xSorted []float64, k int, lo, hi float64) []float64 {
	knots := make([]float64, k)
	for i := 0; i < k; i++ {
		p := lo
		if k > 1 {
			p = lo + (hi-lo)*float64(i)/float64(k-1)
		}
		knots[i] = stat.Quantile(p, stat.Empirical, xSorted, nil)
	}
	return knots
}

// fitPenalized solves the ridge-penalized normal equations
// (X'X + lam*I) beta = X'y and returns the GCV score, the coefficients and
// the fitted values.
func fitPenalized(X *mat.Dense, y []float64, lam float64) (gcv float64, coef, yhat []float64, err error) {
	n, m := X.Dims()
	var xtx mat.Dense
	xtx.Mul(X.T(), X)
	a := mat.NewDense(m, m, nil)
	a.CloneFrom(&xtx)
	for i := 0; i < m; i++ {
		a.Set(i, i, a.At(i, i)+lam)
	}

	yv := mat.NewVecDense(n, y)
	var xty mat.VecDense
	xty.MulVec(X.T(), yv)

	var beta mat.VecDense
	if err := beta.SolveVec(a, &xty); err != nil {
		return 0, nil, nil, fmt.Errorf("singular penalized system: %w", err)
	}

	var fitted mat.VecDense
	fitted.MulVec(X, &beta)

	rss := 0.0
	yhat = make([]float64, n)
	for i := 0; i < n; i++ {
		yhat[i] = fitted.AtVec(i)
		r := y[i] - yhat[i]
		rss += r * r
	}

	// trace(H) = trace((X'X + lam*I)^-1 X'X), via one linear solve.
	var z mat.Dense
	if err := z.Solve(a, &xtx); err != nil {
		return 0, nil, nil, fmt.Errorf("singular penalized system: %w", err)
	}
	traceH := 0.0
	for i := 0; i < m; i++ {
		traceH += z.At(i, i)
	}

	denom := float64(n) - traceH
	if denom <= gcvEps {
		gcv = math.Inf(1)
	} else {
		gcv = rss / (denom * denom)
	}

	coef = make([]float64, m)
	for i := 0; i < m; i++ {
		v := beta.AtVec(i)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, nil, nil, fmt.Errorf("non-finite coefficient")
		}
		coef[i] = v
	}
	return gcv, coef, yhat, nil
}

// minimizeGCV finds log-lambda in [lo, hi] minimizing the GCV score. The
// search runs Nelder-Mead on the scalar with evaluations clamped into the
// bounds, then clamps the result.
func minimizeGCV(X *mat.Dense, y []float64, lo, hi float64) (float64, error) {
	if hi < lo {
		return 0, fmt.Errorf("bad lambda bounds [%v, %v]", lo, hi)
	}
	objective := func(par []float64) float64 {
		u := clamp(par[0], lo, hi)
		gcv, _, _, err := fitPenalized(X, y, math.Exp(u))
		if err != nil {
			return math.Inf(1)
		}
		return gcv
	}
	problem := optimize.Problem{Func: objective}
	init := []float64{(lo + hi) / 2.0}
	res, err := optimize.Minimize(problem, init, nil, &optimize.NelderMead{})
	if err != nil && res == nil {
		return 0, fmt.Errorf("lambda search failed: %w", err)
	}
	return clamp(res.X[0], lo, hi), nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// isTooJagged rejects a fit whose slope changes more than maxChange between
// consecutive sorted points.
func isTooJagged(xSorted, yhatSorted []float64, maxChange float64) bool {
	if len(xSorted) < 3 {
		return false
	}
	slopes := make([]float64, len(xSorted)-1)
	for i := 0; i < len(slopes); i++ {
		dx := xSorted[i+1] - xSorted[i]
		if dx != 0 {
			slopes[i] = (yhatSorted[i+1] - yhatSorted[i]) / dx
		}
	}
	for i := 0; i+1 < len(slopes); i++ {
		if math.Abs(slopes[i+1]-slopes[i]) > maxChange {
			return true
		}
	}
	return false
}

// selectBest picks the minimum-GCV trial among non-jagged fits, falling back
// to the global minimum when every fit is jagged.
func selectBest(results []trial, maxChange float64) trial {
	bestAny, bestSmooth := -1, -1
	for i, r := range results {
		if bestAny < 0 || r.curve.GCV < results[bestAny].curve.GCV {
			bestAny = i
		}
		if isTooJagged(r.xSorted, r.yhatSorted, maxChange) {
			continue
		}
		if bestSmooth < 0 || r.curve.GCV < results[bestSmooth].curve.GCV {
			bestSmooth = i
		}
	}
	if bestSmooth >= 0 {
		return results[bestSmooth]
	}
	return results[bestAny]
}

// progress bar initialization
func progressBar(length int) *progressbar.ProgressBar {
	return progressbar.NewOptions(
		length,
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(20),
		progressbar.OptionSetDescription("fitting curve"),
	)
}
