package services

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"autoscout-evaluator/models"
	"autoscout-evaluator/utils"
)

var (
	// ErrInsufficientData means the dataset is empty or too small to fit a
	// spline basis. It is a terminal "cannot analyze" outcome, never a
	// classification.
	ErrInsufficientData = errors.New("insufficient data for analysis")

	// ErrInvalidConfig means an analysis parameter failed its precondition.
	ErrInvalidConfig = errors.New("invalid analysis configuration")
)

// splineDegree is the degree of the piecewise-polynomial basis. Price vs.
// mileage is smooth and monotonically falling with diminishing slope, which a
// cubic basis captures without manual feature engineering.
const splineDegree = 3

// minKnots is the smallest basis the fitter will fall back to on scarce data.
const minKnots = 2

// FittedCurve is an immutable regression of price on a spline expansion of
// mileage, built once per analysis run.
type FittedCurve struct {
	basis      *splineBasis
	coeffs     []float64 // intercept followed by one weight per basis column
	mae        float64
	minMileage float64
	maxMileage float64
}

// MAE returns the training-set mean absolute error. It is diagnostic only
// and does not gate evaluation.
func (f *FittedCurve) MAE() float64 { return f.mae }

// Predict returns the fair price estimate for the given mileage. Mileage
// outside the fitted range is clamped to its nearest boundary, so the curve
// extrapolates as a constant.
func (f *FittedCurve) Predict(mileage float64) float64 {
	x := mileage
	if x < f.minMileage {
		x = f.minMileage
	}
	if x > f.maxMileage {
		x = f.maxMileage
	}

	features := f.basis.eval(x)
	y := f.coeffs[0]
	for i, v := range features {
		y += f.coeffs[i+1] * v
	}
	return y
}

// CurvePoint is one sampled (mileage, predicted price) pair of the curve.
type CurvePoint struct {
	Mileage        float64
	PredictedPrice float64
}

// Sample returns n evenly spaced points along the fitted curve, for
// diagnostic plotting. n must be at least 2.
func (f *FittedCurve) Sample(n int) []CurvePoint {
	if n < 2 {
		n = 2
	}
	points := make([]CurvePoint, n)
	step := (f.maxMileage - f.minMileage) / float64(n-1)
	for i := 0; i < n; i++ {
		m := f.minMileage + float64(i)*step
		points[i] = CurvePoint{Mileage: m, PredictedPrice: f.Predict(m)}
	}
	return points
}

// Fitter builds FittedCurves from cleaned datasets.
type Fitter struct {
	logger *utils.Logger
}

// NewFitter creates a Fitter with the given logger.
func NewFitter(logger *utils.Logger) *Fitter {
	return &Fitter{logger: logger}
}

// Fit regresses price on a cubic B-spline expansion of mileage using
// ordinary least squares. knotCount must be at least 4; when the dataset has
// too few distinct mileage values for the requested basis the knot count is
// reduced, and below the absolute minimum the fit fails with
// ErrInsufficientData instead of producing a singular model.
func (f *Fitter) Fit(listings []*models.Listing, knotCount int) (*FittedCurve, error) {
	if knotCount < 4 {
		return nil, fmt.Errorf("%w: knot count %d is below the minimum of 4", ErrInvalidConfig, knotCount)
	}
	if len(listings) == 0 {
		return nil, fmt.Errorf("%w: empty dataset", ErrInsufficientData)
	}

	distinct := countDistinctMileages(listings)
	maxKnots := distinct - splineDegree + 1
	if maxKnots < minKnots {
		return nil, fmt.Errorf("%w: %d distinct mileage values, need at least %d",
			ErrInsufficientData, distinct, splineDegree+1)
	}

	knots := knotCount
	if knots > maxKnots {
		f.logger.Warn("[fitter] Only %d distinct mileage values — reducing knots %d → %d",
			distinct, knotCount, maxKnots)
		knots = maxKnots
	}

	minM, maxM := mileageRange(listings)
	basis := newSplineBasis(minM, maxM, knots, splineDegree)

	cols := 1 + basis.features()
	design := mat.NewDense(len(listings), cols, nil)
	target := mat.NewVecDense(len(listings), nil)
	for i, l := range listings {
		design.Set(i, 0, 1)
		for j, v := range basis.eval(l.Mileage) {
			design.Set(i, j+1, v)
		}
		target.SetVec(i, l.Price)
	}

	var qr mat.QR
	qr.Factorize(design)
	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, target); err != nil {
		return nil, fmt.Errorf("%w: singular spline system: %v", ErrInsufficientData, err)
	}

	curve := &FittedCurve{
		basis:      basis,
		coeffs:     beta.RawVector().Data,
		minMileage: minM,
		maxMileage: maxM,
	}

	var absSum float64
	for _, l := range listings {
		absSum += math.Abs(l.Price - curve.Predict(l.Mileage))
	}
	curve.mae = absSum / float64(len(listings))

	f.logger.Info("[fitter] Spline regression fitted — %d listings, %d knots, MAE CHF %.2f",
		len(listings), knots, curve.mae)
	return curve, nil
}

func countDistinctMileages(listings []*models.Listing) int {
	seen := make(map[float64]struct{}, len(listings))
	for _, l := range listings {
		seen[l.Mileage] = struct{}{}
	}
	return len(seen)
}

func mileageRange(listings []*models.Listing) (min, max float64) {
	min, max = listings[0].Mileage, listings[0].Mileage
	for _, l := range listings[1:] {
		if l.Mileage < min {
			min = l.Mileage
		}
		if l.Mileage > max {
			max = l.Mileage
		}
	}
	return min, max
}

// splineBasis is a uniform cubic B-spline basis over [min, max]. The knot
// vector is padded with degree extra knots on each side; the last basis
// function is dropped so the expansion carries no constant column and the
// regression keeps an explicit intercept.
type splineBasis struct {
	knots  []float64
	degree int
	count  int // basis functions before the bias drop
}

func newSplineBasis(min, max float64, knotCount, degree int) *splineBasis {
	step := (max - min) / float64(knotCount-1)
	knots := make([]float64, 0, knotCount+2*degree)
	for i := -degree; i < knotCount+degree; i++ {
		knots = append(knots, min+float64(i)*step)
	}
	return &splineBasis{
		knots:  knots,
		degree: degree,
		count:  knotCount + degree - 1,
	}
}

// features returns the number of columns the basis contributes.
func (b *splineBasis) features() int { return b.count - 1 }

// eval returns the basis column values at x. x must lie within [min, max].
func (b *splineBasis) eval(x float64) []float64 {
	out := make([]float64, b.features())
	for i := range out {
		out[i] = b.bspline(i, b.degree, x)
	}
	return out
}

// bspline computes B(i,d) at x by the Cox–de Boor recursion. The final
// interval of the domain is closed on the right so x == max is supported.
func (b *splineBasis) bspline(i, d int, x float64) float64 {
	if d == 0 {
		// Exactly one interval may be active per x. At the domain max the
		// closed-right interval ending there wins; the half-open rule would
		// also light up the out-of-domain interval starting at the max.
		if domainMax := b.knots[len(b.knots)-b.degree-1]; x == domainMax {
			if b.knots[i] < x && b.knots[i+1] == x {
				return 1
			}
			return 0
		}
		if b.knots[i] <= x && x < b.knots[i+1] {
			return 1
		}
		return 0
	}

	var left, right float64
	if den := b.knots[i+d] - b.knots[i]; den > 0 {
		left = (x - b.knots[i]) / den * b.bspline(i, d-1, x)
	}
	if den := b.knots[i+d+1] - b.knots[i+1]; den > 0 {
		right = (b.knots[i+d+1] - x) / den * b.bspline(i+1, d-1, x)
	}
	return left + right
}
