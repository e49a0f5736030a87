package track

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildGP(t *testing.T) *Track {
	t.Helper()
	trk, err := Build(GPLayout(), 2000)
	require.NoError(t, err)
	return trk
}

func TestBuildRejectsDegenerateInput(t *testing.T) {
	t.Parallel()

	t.Run("fewer than 3 waypoints", func(t *testing.T) {
		_, err := Build([]Point{{X: 0, Y: 0}, {X: 100, Y: 0}}, 100)
		assert.Error(t, err)
	})

	t.Run("closing duplicate does not count as distinct", func(t *testing.T) {
		pts := []Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 0, Y: 0}}
		_, err := Build(pts, 100)
		assert.Error(t, err)
	})

	t.Run("triangle is enough", func(t *testing.T) {
		pts := []Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 50, Y: 80}}
		trk, err := Build(pts, 200)
		require.NoError(t, err)
		assert.Greater(t, trk.Length(), 0.0)
	})
}

func TestPosIsPeriodic(t *testing.T) {
	t.Parallel()
	trk := buildGP(t)

	for _, u := range []float64{0.0, 0.1, 0.25, 0.5, 0.73, 0.99} {
		p1 := trk.Pos(u)
		p2 := trk.Pos(u + 1.0)
		assert.InDelta(t, p1.X, p2.X, 1e-6, "u=%v", u)
		assert.InDelta(t, p1.Y, p2.Y, 1e-6, "u=%v", u)
	}

	// Negative parameters wrap the same way.
	p1 := trk.Pos(-0.3)
	p2 := trk.Pos(0.7)
	assert.InDelta(t, p1.X, p2.X, 1e-6)
	assert.InDelta(t, p1.Y, p2.Y, 1e-6)
}

func TestSplinePassesThroughWaypoints(t *testing.T) {
	t.Parallel()
	trk := buildGP(t)

	pts := GPLayout()
	n := len(pts) - 1 // drop the closing duplicate
	for i := 0; i < n; i++ {
		u := float64(i) / float64(n)
		got := trk.Pos(u)
		assert.InDelta(t, pts[i].X, got.X, 1e-6, "waypoint %d", i)
		assert.InDelta(t, pts[i].Y, got.Y, 1e-6, "waypoint %d", i)
	}
}

func TestArcLengthTableStrictlyMonotonic(t *testing.T) {
	t.Parallel()
	trk := buildGP(t)

	for i := 1; i < len(trk.arcLen); i++ {
		require.Greater(t, trk.arcLen[i], trk.arcLen[i-1], "sample %d", i)
	}
	assert.Equal(t, trk.arcLen[len(trk.arcLen)-1], trk.Length())
}

func TestSToURoundTrip(t *testing.T) {
	t.Parallel()
	trk := buildGP(t)
	L := trk.Length()

	// Re-encoding an arc length through the parameter table must land
	// within a resolution-bounded tolerance of the input.
	tol := 2.0 * L / 2000.0
	for _, s := range []float64{0, 1, L * 0.25, L * 0.5, L * 0.9, L + 37.5, 3*L + 0.1} {
		u := trk.SToU(s)
		p := trk.Pos(u)

		// Walk the arc table back to an arc length for comparison.
		want := math.Mod(s, L)
		got := trk.arcAtU(u)
		assert.InDelta(t, want, got, tol, "s=%v", s)

		// The position derived via SToU tracks the curve.
		assert.InDelta(t, trk.PointAt(s).X, p.X, 1e-9)
		assert.InDelta(t, trk.PointAt(s).Y, p.Y, 1e-9)
	}
}

// arcAtU interpolates the arc-length table at u; test-only inverse check.
func (t *Track) arcAtU(u float64) float64 {
	pos := wrapUnit(u) * float64(len(t.us)-1)
	i := int(pos)
	if i >= len(t.us)-1 {
		return t.arcLen[len(t.arcLen)-1]
	}
	frac := pos - float64(i)
	return t.arcLen[i] + frac*(t.arcLen[i+1]-t.arcLen[i])
}

func TestCurvatureOnCircle(t *testing.T) {
	t.Parallel()

	// A circle of radius r has curvature 1/r everywhere.
	const r = 100.0
	var pts []Point
	for i := 0; i < 16; i++ {
		a := 2 * math.Pi * float64(i) / 16
		pts = append(pts, Point{X: r * math.Cos(a), Y: r * math.Sin(a)})
	}
	trk, err := Build(pts, 1000)
	require.NoError(t, err)

	assert.InDelta(t, 2*math.Pi*r, trk.Length(), 2*math.Pi*r*0.01)
	for _, u := range []float64{0, 0.2, 0.5, 0.8} {
		assert.InDelta(t, 1.0/r, trk.Curvature(u), 1.0/r*0.05, "u=%v", u)
	}
}

func TestHeadingFollowsDirectionOfTravel(t *testing.T) {
	t.Parallel()

	// Counterclockwise circle: at angle a the travel direction is a+pi/2.
	const r = 200.0
	var pts []Point
	for i := 0; i < 24; i++ {
		a := 2 * math.Pi * float64(i) / 24
		pts = append(pts, Point{X: r * math.Cos(a), Y: r * math.Sin(a)})
	}
	trk, err := Build(pts, 2000)
	require.NoError(t, err)

	h := trk.HeadingAt(0)
	assert.InDelta(t, math.Pi/2, h, 0.05)

	quarter := trk.Length() / 4
	h = trk.HeadingAt(quarter)
	assert.InDelta(t, math.Pi, math.Abs(h), 0.05)
}

func TestCurvatureNonNegativeAndFinite(t *testing.T) {
	t.Parallel()
	trk := buildGP(t)

	for i := 0; i <= 500; i++ {
		u := float64(i) / 500
		c := trk.Curvature(u)
		require.False(t, math.IsNaN(c) || math.IsInf(c, 0), "u=%v", u)
		require.GreaterOrEqual(t, c, 0.0, "u=%v", u)
	}
}

func TestOutlineMatchesLength(t *testing.T) {
	t.Parallel()
	trk := buildGP(t)

	outline := trk.Outline()
	require.Len(t, outline, 2000)

	total := 0.0
	for i := 1; i < len(outline); i++ {
		total += outline[i-1].Distance(outline[i])
	}
	assert.InDelta(t, trk.Length(), total, trk.Length()*1e-6)
}
