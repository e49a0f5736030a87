package race

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandingsOrderingKey(t *testing.T) {
	t.Parallel()
	s := testSim(t, Options{Cars: 4})
	cars := s.Cars()

	// Laps dominate, then in-lap position, then total time.
	cars[0].LapsCompleted, cars[0].S, cars[0].TotalTime = 3, 100, 50
	cars[1].LapsCompleted, cars[1].S, cars[1].TotalTime = 4, 10, 80
	cars[2].LapsCompleted, cars[2].S, cars[2].TotalTime = 3, 200, 90
	cars[3].LapsCompleted, cars[3].S, cars[3].TotalTime = 3, 200, 40

	ranked := s.Standings()
	assert.Equal(t, cars[1], ranked[0], "most laps leads")
	assert.Equal(t, cars[3], ranked[1], "same progress, lower time wins")
	assert.Equal(t, cars[2], ranked[2])
	assert.Equal(t, cars[0], ranked[3])
}

func TestStandingsAlwaysAPermutation(t *testing.T) {
	t.Parallel()
	s := testSim(t, Options{Cars: 10})

	// Exact ties across every key must still produce ranks 1..N.
	for _, c := range s.Cars() {
		c.LapsCompleted = 7
		c.S = 500.0
		c.TotalTime = 123.0
	}
	ranked := s.Standings()

	seen := make(map[int]bool, len(ranked))
	for _, c := range ranked {
		require.False(t, seen[c.Position], "duplicate rank %d", c.Position)
		require.GreaterOrEqual(t, c.Position, 1)
		require.LessOrEqual(t, c.Position, len(ranked))
		seen[c.Position] = true
	}
}

func TestIntervalsToLeader(t *testing.T) {
	t.Parallel()
	s := testSim(t, Options{Cars: 3})
	cars := s.Cars()
	L := s.Track().Length()

	cars[0].LapsCompleted, cars[0].S, cars[0].TotalTime = 5, 300, 100
	cars[1].LapsCompleted, cars[1].S, cars[1].TotalTime = 5, 100, 112
	cars[2].LapsCompleted, cars[2].S, cars[2].TotalTime = 4, 300, 130

	ranked := s.Standings()
	s.computeIntervals(ranked)

	leader := cars[0]
	assert.Zero(t, leader.TimeInterval)
	assert.Zero(t, leader.DistanceInterval)

	assert.Equal(t, 12.0, cars[1].TimeInterval)
	assert.Equal(t, -200.0, cars[1].DistanceInterval)

	assert.Equal(t, 30.0, cars[2].TimeInterval)
	assert.Equal(t, -L, cars[2].DistanceInterval, "one lap down, same in-lap position")
}

func TestUndercutTimeGain(t *testing.T) {
	t.Parallel()
	s := testSim(t, Options{Cars: 2})
	a, b := s.Cars()[0], s.Cars()[1]

	// A entered the pit with a recorded -2.0s gap to B and exits with the
	// current gap at +1.0s: the stop gained exactly 3.0 seconds.
	a.Position = 2
	a.prePitRank = 2
	a.prePitGaps = map[string]float64{b.Name: -2.0}
	a.History = append(a.History, PitStop{Lap: 10, OldTyre: Soft, Undercuts: map[string]UndercutOutcome{}})

	a.TotalTime = 100.0
	b.TotalTime = 101.0 // gap after: +1.0

	s.scoreUndercuts(a)

	outcome, ok := a.History[0].Undercuts[b.Name]
	require.True(t, ok)
	assert.Equal(t, 3.0, outcome.TimeGain)
	assert.Equal(t, -2.0, outcome.GapBefore)
	assert.Equal(t, 1.0, outcome.GapAfter)
	assert.Equal(t, 2, outcome.PositionBefore)
}

func TestUndercutSummaryFiltersInsignificant(t *testing.T) {
	t.Parallel()
	s := testSim(t, Options{Cars: 3})
	a := s.Cars()[0]

	a.History = []PitStop{{
		Lap: 12,
		Undercuts: map[string]UndercutOutcome{
			"Rival One": {TimeGain: 0.4},
			"Rival Two": {TimeGain: -2.5, PositionChange: -1},
		},
	}}

	summary := undercutSummaryFor(a, false)
	require.Len(t, summary, 1)
	require.Len(t, summary[0].Undercuts, 1)
	assert.Equal(t, "Rival Two", summary[0].Undercuts[0].Versus)

	// Raw per-rival data is retained regardless of significance.
	assert.Len(t, a.History[0].Undercuts, 2)
}

func TestRaceUndercutSummaryOnlyWhenFinished(t *testing.T) {
	t.Parallel()
	s := testSim(t, Options{Cars: 2, TotalLaps: 1})
	s.Start()
	c := s.Cars()[0]

	c.History = []PitStop{{
		Lap:       1,
		Undercuts: map[string]UndercutOutcome{"X": {TimeGain: 5.0}},
	}}

	assert.Nil(t, s.Snapshot().UndercutSummary)

	// Push the leader over the line to finish the race.
	L := s.Track().Length()
	c.S = L - 0.5
	c.V = 30.0
	s.Step()
	require.True(t, s.Finished())

	snap := s.Snapshot()
	require.NotNil(t, snap.UndercutSummary)
	assert.Equal(t, c.Name, snap.UndercutSummary[0].Car)
}
