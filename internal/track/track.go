// Package track builds the closed racing circuit: a periodic cubic spline
// fitted through ordered waypoints, with precomputed arc-length and
// curvature tables for constant-time queries during simulation.
package track

import (
	"fmt"
	"math"
	"sort"
)

// Point is a 2D position in track coordinates (meters).
type Point struct {
	X float64
	Y float64
}

// Distance returns the Euclidean distance to another point.
func (p Point) Distance(o Point) float64 {
	dx := o.X - p.X
	dy := o.Y - p.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// curvEpsilon keeps the curvature denominator away from zero on straights.
const curvEpsilon = 1e-9

// minSegment is the floor applied to arc-table segments so the table stays
// strictly monotonic even if the fitted curve produces near-zero-speed samples.
const minSegment = 1e-9

// headingProbe is the arc-length offset used for the secant heading
// convention. Every consumer of "car orientation" must use the same value.
const headingProbe = 1.0

// Track is an immutable closed circuit. Built once per race.
type Track struct {
	sx, sy *periodicSpline

	us     []float64 // Sampled parameters, uniform over [0,1]
	arcLen []float64 // Cumulative arc length at each sample, strictly increasing
	curv   []float64 // Curvature magnitude at each sample
	length float64   // Total lap length, arcLen[len-1]

	outline []Point // Sampled centerline for observers
}

// Build fits a periodic curve through the waypoints and samples it at
// resolution parameter steps. A duplicated closing waypoint is tolerated
// and dropped. Fails only on degenerate input: fewer than 3 distinct
// waypoints cannot define a closed circuit.
func Build(waypoints []Point, resolution int) (*Track, error) {
	pts := append([]Point(nil), waypoints...)
	if n := len(pts); n >= 2 && pts[0].Distance(pts[n-1]) < 1e-9 {
		pts = pts[:n-1]
	}
	if len(pts) < 3 {
		return nil, fmt.Errorf("track: need at least 3 distinct waypoints, got %d", len(pts))
	}
	if resolution < 16 {
		resolution = 16
	}

	xs := make([]float64, len(pts))
	ys := make([]float64, len(pts))
	for i, p := range pts {
		xs[i] = p.X
		ys[i] = p.Y
	}

	t := &Track{
		sx: newPeriodicSpline(xs),
		sy: newPeriodicSpline(ys),
	}
	t.sample(resolution)
	return t, nil
}

// sample fills the arc-length and curvature tables at the given resolution.
func (t *Track) sample(resolution int) {
	t.us = make([]float64, resolution)
	t.arcLen = make([]float64, resolution)
	t.curv = make([]float64, resolution)
	t.outline = make([]Point, resolution)

	prev := Point{X: t.sx.At(0), Y: t.sy.At(0)}
	for i := 0; i < resolution; i++ {
		u := float64(i) / float64(resolution-1)
		t.us[i] = u

		p := Point{X: t.sx.At(u), Y: t.sy.At(u)}
		t.outline[i] = p
		if i == 0 {
			t.arcLen[i] = 0
		} else {
			seg := prev.Distance(p)
			if seg < minSegment {
				seg = minSegment
			}
			t.arcLen[i] = t.arcLen[i-1] + seg
		}
		prev = p

		x1 := t.sx.Deriv1(u)
		y1 := t.sy.Deriv1(u)
		x2 := t.sx.Deriv2(u)
		y2 := t.sy.Deriv2(u)
		speed2 := x1*x1 + y1*y1 + curvEpsilon
		t.curv[i] = math.Abs(x1*y2-y1*x2) / math.Pow(speed2, 1.5)
	}
	t.length = t.arcLen[resolution-1]
}

// Length returns the total lap length in meters.
func (t *Track) Length() float64 {
	return t.length
}

// Pos returns the 2D point at parameter u. Periodic with period 1.
func (t *Track) Pos(u float64) Point {
	return Point{X: t.sx.At(u), Y: t.sy.At(u)}
}

// Curvature returns the curvature magnitude at parameter u, interpolated
// from the sampled table. Periodic with period 1.
func (t *Track) Curvature(u float64) float64 {
	u = wrapUnit(u)
	pos := u * float64(len(t.curv)-1)
	i := int(pos)
	if i >= len(t.curv)-1 {
		return t.curv[len(t.curv)-1]
	}
	frac := pos - float64(i)
	return t.curv[i] + frac*(t.curv[i+1]-t.curv[i])
}

// SToU converts an arc length to the curve parameter u. The arc length is
// reduced modulo the lap length first, so any accumulated race progress is
// a valid input. The inversion interpolates the precomputed monotone table,
// so its error is bounded by the sampling resolution.
func (t *Track) SToU(s float64) float64 {
	s = math.Mod(s, t.length)
	if s < 0 {
		s += t.length
	}

	i := sort.SearchFloat64s(t.arcLen, s)
	if i <= 0 {
		return t.us[0]
	}
	if i >= len(t.arcLen) {
		return t.us[len(t.us)-1]
	}
	s0, s1 := t.arcLen[i-1], t.arcLen[i]
	frac := (s - s0) / (s1 - s0)
	return t.us[i-1] + frac*(t.us[i]-t.us[i-1])
}

// PointAt returns the track position at an arc length.
func (t *Track) PointAt(s float64) Point {
	return t.Pos(t.SToU(s))
}

// HeadingAt returns the direction of travel at an arc length, in radians.
// This is the system-wide secant convention: sample the centerline at s and
// s+1m and take the angle of the connecting vector.
func (t *Track) HeadingAt(s float64) float64 {
	p1 := t.PointAt(s)
	p2 := t.PointAt(s + headingProbe)
	return math.Atan2(p2.Y-p1.Y, p2.X-p1.X)
}

// CurvatureAt returns the curvature at an arc length.
func (t *Track) CurvatureAt(s float64) float64 {
	return t.Curvature(t.SToU(s))
}

// Outline returns the sampled centerline, for track broadcasts and
// visualizing observers. The returned slice must not be modified.
func (t *Track) Outline() []Point {
	return t.outline
}
