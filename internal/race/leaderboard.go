package race

import (
	"math"
	"sort"
)

// Standings returns the field ordered by race progress: laps completed
// first, arc-length position within the lap second, and cumulative time as
// the final tiebreak. Ranks are written back to the cars; they are
// recomputed from scratch on every call, never maintained incrementally.
func (s *Sim) Standings() []*Car {
	ranked := make([]*Car, len(s.cars))
	copy(ranked, s.cars)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.LapsCompleted != b.LapsCompleted {
			return a.LapsCompleted > b.LapsCompleted
		}
		if a.S != b.S {
			return a.S > b.S
		}
		return a.TotalTime < b.TotalTime
	})

	for i, c := range ranked {
		c.Position = i + 1
	}
	return ranked
}

// rankIndex returns the car's index in a ranked slice, or -1.
func rankIndex(ranked []*Car, c *Car) int {
	for i, r := range ranked {
		if r == c {
			return i
		}
	}
	return -1
}

// computeIntervals fills every car's time and distance interval to the
// leader. The distance interval is expressed in accumulated-progress space
// (lap difference times lap length, plus the in-lap offset), not wrapped.
func (s *Sim) computeIntervals(ranked []*Car) {
	if len(ranked) == 0 {
		return
	}
	leader := ranked[0]
	L := s.track.Length()
	for _, c := range ranked {
		c.TimeInterval = c.TotalTime - leader.TotalTime
		lapDiff := c.LapsCompleted - leader.LapsCompleted
		c.DistanceInterval = float64(lapDiff)*L + (c.S - leader.S)
	}
}

// scoreUndercuts finalizes the undercut analysis for a car exiting the pit
// lane. For every rival the time gap recorded at entry is compared against
// the gap now; the difference is the time gained or lost by pitting when
// the car did. Runs exactly once per stop.
func (s *Sim) scoreUndercuts(c *Car) {
	stop := c.lastStop()
	if stop == nil || c.prePitRank == 0 {
		return
	}

	s.Standings() // refresh ranks for the position delta
	for _, rival := range s.cars {
		if rival == c {
			continue
		}
		gapBefore := c.prePitGaps[rival.Name]
		gapAfter := rival.TotalTime - c.TotalTime

		stop.Undercuts[rival.Name] = UndercutOutcome{
			TimeGain:       round2(gapAfter - gapBefore),
			PositionBefore: c.prePitRank,
			PositionAfter:  c.Position,
			PositionChange: c.prePitRank - c.Position,
			RivalPosition:  rival.Position,
			GapBefore:      round2(gapBefore),
			GapAfter:       round2(gapAfter),
		}
	}
}

// SignificantUndercut is one rival comparison worth surfacing: the stop
// gained or lost more than a second against that rival.
type SignificantUndercut struct {
	Versus         string  `json:"vs"`
	TimeGain       float64 `json:"time_gain"`
	PositionChange int     `json:"position_change"`
	PositionBefore int     `json:"position_before,omitempty"`
	PositionAfter  int     `json:"position_after,omitempty"`
}

// StopUndercuts groups a stop's significant outcomes for one car.
type StopUndercuts struct {
	Car       string                `json:"car,omitempty"`
	Lap       int                   `json:"lap"`
	PitTime   float64               `json:"pit_time,omitempty"`
	OldTyre   Compound              `json:"old_tyre,omitempty"`
	NewTyre   Compound              `json:"new_tyre,omitempty"`
	Undercuts []SignificantUndercut `json:"undercuts"`
}

// significanceThreshold filters undercut outcomes for summary views. Raw
// per-rival data is always retained in the pit history regardless.
const significanceThreshold = 1.0

// undercutSummaryFor lists a single car's stops that produced significant
// gains or losses.
func undercutSummaryFor(c *Car, includeDetail bool) []StopUndercuts {
	var out []StopUndercuts
	for _, stop := range c.History {
		var sig []SignificantUndercut
		for rival, data := range stop.Undercuts {
			if math.Abs(data.TimeGain) <= significanceThreshold {
				continue
			}
			entry := SignificantUndercut{
				Versus:         rival,
				TimeGain:       data.TimeGain,
				PositionChange: data.PositionChange,
			}
			if includeDetail {
				entry.PositionBefore = data.PositionBefore
				entry.PositionAfter = data.PositionAfter
			}
			sig = append(sig, entry)
		}
		if len(sig) == 0 {
			continue
		}
		sort.Slice(sig, func(i, j int) bool { return sig[i].Versus < sig[j].Versus })
		entry := StopUndercuts{Lap: stop.Lap, Undercuts: sig}
		if includeDetail {
			entry.PitTime = stop.PitTime
			entry.OldTyre = stop.OldTyre
			entry.NewTyre = stop.NewTyre
		}
		out = append(out, entry)
	}
	return out
}

// UndercutSummary aggregates every car's significant undercut outcomes;
// surfaced on the race snapshot once the race is finished.
func (s *Sim) UndercutSummary() []StopUndercuts {
	var out []StopUndercuts
	for _, c := range s.cars {
		for _, entry := range undercutSummaryFor(c, true) {
			entry.Car = c.Name
			out = append(out, entry)
		}
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
