// Package spline implements the natural cubic spline used by the shot
// engine to interpolate the impact point across the trigger instant. It
// replaces the original implementation's cubic_splines crate
// (BoundaryCondition::Natural) with a small tridiagonal solve built on
// gonum's linear algebra primitives.
package spline

import (
	"errors"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// ErrTooFewPoints is returned when fewer than 3 (x, y) samples are given;
// a natural cubic spline needs at least 3 points to have well-defined
// second derivatives.
var ErrTooFewPoints = errors.New("spline: at least 3 points are required")

// ErrNonMonotonicX is returned when the input x-values are not strictly
// increasing, which the tridiagonal construction requires.
var ErrNonMonotonicX = errors.New("spline: x values must be strictly increasing")

// Natural is a natural cubic spline: piecewise cubic polynomials through
// a set of (x, y) samples with zero second derivative at both endpoints.
type Natural struct {
	x  []float64
	y  []float64
	m  []float64 // second derivatives at each knot
}

// NewNatural builds a natural cubic spline through the given samples.
// points need not be pre-sorted by x; they are sorted internally. x
// values must be distinct.
func NewNatural(points []Point) (*Natural, error) {
	if len(points) < 3 {
		return nil, ErrTooFewPoints
	}

	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	n := len(sorted)
	x := make([]float64, n)
	y := make([]float64, n)
	for i, p := range sorted {
		x[i] = p.X
		y[i] = p.Y
		if i > 0 && x[i] <= x[i-1] {
			return nil, ErrNonMonotonicX
		}
	}

	m, err := solveSecondDerivatives(x, y)
	if err != nil {
		return nil, err
	}

	return &Natural{x: x, y: y, m: m}, nil
}

// Point is a single (x, y) spline knot.
type Point struct {
	X, Y float64
}

// solveSecondDerivatives assembles the standard natural cubic spline
// tridiagonal system for the second derivatives at the interior knots
// (the two endpoint second derivatives are fixed at zero) and solves it
// with gonum's dense LU solve.
func solveSecondDerivatives(x, y []float64) ([]float64, error) {
	n := len(x)
	m := make([]float64, n) // m[0] and m[n-1] stay 0 (natural boundary)

	if n == 3 {
		// A single interior equation; solve it directly without
		// building a 1x1 matrix system.
		h0 := x[1] - x[0]
		h1 := x[2] - x[1]
		rhs := 6 * ((y[2]-y[1])/h1 - (y[1]-y[0])/h0)
		diag := 2 * (h0 + h1)
		m[1] = rhs / diag
		return m, nil
	}

	interior := n - 2
	a := mat.NewDense(interior, interior, nil)
	b := mat.NewDense(interior, 1, nil)

	h := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		h[i] = x[i+1] - x[i]
	}

	for i := 1; i <= interior; i++ {
		row := i - 1
		a.Set(row, row, 2*(h[i-1]+h[i]))
		if row > 0 {
			a.Set(row, row-1, h[i-1])
		}
		if row < interior-1 {
			a.Set(row, row+1, h[i])
		}
		rhs := 6 * ((y[i+1]-y[i])/h[i] - (y[i]-y[i-1])/h[i-1])
		b.Set(row, 0, rhs)
	}

	var sol mat.Dense
	if err := sol.Solve(a, b); err != nil {
		return nil, err
	}

	for i := 0; i < interior; i++ {
		m[i+1] = sol.At(i, 0)
	}
	return m, nil
}

// Eval evaluates the spline at t. If t falls outside [x[0], x[n-1]] it
// evaluates the nearest boundary segment's cubic (cubic extrapolation).
func (s *Natural) Eval(t float64) float64 {
	i := s.segment(t)
	h := s.x[i+1] - s.x[i]

	a := (s.x[i+1] - t) / h
	b := (t - s.x[i]) / h

	return a*s.y[i] + b*s.y[i+1] +
		((a*a*a-a)*s.m[i]+(b*b*b-b)*s.m[i+1])*(h*h)/6
}

// segment returns the index i such that t falls in [x[i], x[i+1]],
// clamping to the first/last segment when t is outside the knot range.
func (s *Natural) segment(t float64) int {
	n := len(s.x)
	if t <= s.x[0] {
		return 0
	}
	if t >= s.x[n-1] {
		return n - 2
	}
	i := sort.SearchFloat64s(s.x, t)
	if i == 0 {
		return 0
	}
	if s.x[i] == t {
		// exact hit on an interior knot: use the segment that starts at it
		// (the last knot never reaches here; it is clamped above)
		if i == n-1 {
			return i - 1
		}
		return i
	}
	return i - 1
}
