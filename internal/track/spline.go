package track

import "math"

// periodicSpline is a C2-continuous cubic spline through m values with
// uniform knots on [0,1) and period 1. It stores the second derivatives
// at each knot, obtained from the cyclic tridiagonal system that the
// periodic boundary condition produces.
type periodicSpline struct {
	y []float64 // Knot values, y[i] at u = i/m
	m []float64 // Second derivatives at each knot
	h float64   // Knot spacing, 1/len(y)
}

// newPeriodicSpline fits a periodic cubic spline through the given values.
// Requires at least 3 values; callers validate before constructing.
func newPeriodicSpline(values []float64) *periodicSpline {
	n := len(values)
	h := 1.0 / float64(n)

	// Right-hand side of the continuity equations:
	// (h/6)M[i-1] + (2h/3)M[i] + (h/6)M[i+1] = (y[i+1] - 2y[i] + y[i-1]) / h
	d := make([]float64, n)
	for i := 0; i < n; i++ {
		prev := values[(i-1+n)%n]
		next := values[(i+1)%n]
		d[i] = (next - 2*values[i] + prev) / h
	}

	sub := h / 6.0
	diag := 2.0 * h / 3.0

	return &periodicSpline{
		y: append([]float64(nil), values...),
		m: solveCyclicTridiagonal(sub, diag, sub, d),
		h: h,
	}
}

// solveCyclicTridiagonal solves a constant-coefficient cyclic tridiagonal
// system (sub/diag/super plus the two wraparound corners) using the
// Sherman-Morrison correction over a plain Thomas solve.
func solveCyclicTridiagonal(sub, diag, super float64, d []float64) []float64 {
	n := len(d)
	if n == 1 {
		return []float64{d[0] / (diag + sub + super)}
	}
	if n == 2 {
		// Both corners collapse onto the off-diagonals.
		a := diag
		b := sub + super
		det := a*a - b*b
		return []float64{
			(a*d[0] - b*d[1]) / det,
			(a*d[1] - b*d[0]) / det,
		}
	}

	gamma := -diag
	b := make([]float64, n)
	for i := range b {
		b[i] = diag
	}
	b[0] -= gamma
	b[n-1] -= super * sub / gamma

	x := thomasSolve(sub, b, super, d)

	u := make([]float64, n)
	u[0] = gamma
	u[n-1] = sub
	z := thomasSolve(sub, b, super, u)

	// v = [1, 0, ..., 0, super/gamma]
	factor := (x[0] + super*x[n-1]/gamma) / (1.0 + z[0] + super*z[n-1]/gamma)
	for i := range x {
		x[i] -= factor * z[i]
	}
	return x
}

// thomasSolve solves a tridiagonal system with constant sub/super diagonals
// and a per-row main diagonal. d is not modified.
func thomasSolve(sub float64, diag []float64, super float64, d []float64) []float64 {
	n := len(d)
	cp := make([]float64, n)
	dp := make([]float64, n)

	cp[0] = super / diag[0]
	dp[0] = d[0] / diag[0]
	for i := 1; i < n; i++ {
		denom := diag[i] - sub*cp[i-1]
		cp[i] = super / denom
		dp[i] = (d[i] - sub*dp[i-1]) / denom
	}

	x := make([]float64, n)
	x[n-1] = dp[n-1]
	for i := n - 2; i >= 0; i-- {
		x[i] = dp[i] - cp[i]*x[i+1]
	}
	return x
}

// segment locates the knot interval containing u and returns the index,
// plus the normalized weights of the classic cubic spline evaluation form.
func (s *periodicSpline) segment(u float64) (i int, a, b float64) {
	u = wrapUnit(u)
	n := len(s.y)
	i = int(u / s.h)
	if i >= n {
		i = n - 1
	}
	left := float64(i) * s.h
	b = (u - left) / s.h
	a = 1.0 - b
	return i, a, b
}

// At evaluates the spline value at parameter u (periodic).
func (s *periodicSpline) At(u float64) float64 {
	i, a, b := s.segment(u)
	j := (i + 1) % len(s.y)
	h2 := s.h * s.h
	return a*s.y[i] + b*s.y[j] +
		((a*a*a-a)*s.m[i]+(b*b*b-b)*s.m[j])*h2/6.0
}

// Deriv1 evaluates the first derivative dS/du at parameter u.
func (s *periodicSpline) Deriv1(u float64) float64 {
	i, a, b := s.segment(u)
	j := (i + 1) % len(s.y)
	return (s.y[j]-s.y[i])/s.h +
		((1.0-3.0*a*a)*s.m[i]+(3.0*b*b-1.0)*s.m[j])*s.h/6.0
}

// Deriv2 evaluates the second derivative d2S/du2 at parameter u.
func (s *periodicSpline) Deriv2(u float64) float64 {
	i, a, b := s.segment(u)
	j := (i + 1) % len(s.y)
	return a*s.m[i] + b*s.m[j]
}

// wrapUnit reduces u into [0,1).
func wrapUnit(u float64) float64 {
	u = math.Mod(u, 1.0)
	if u < 0 {
		u += 1.0
	}
	return u
}
