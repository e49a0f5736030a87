package race

import (
	"math"

	"github.com/apexsim/raceserver/config"
)

// pitstopProbability is the per-second chance that a car elects to pit this
// tick. The shape matters more than the constants: exactly zero below 0.8
// wear, a shallow ramp to 0.85, a steep ramp to 0.90, forced beyond that.
// Below the forced threshold the base probability is stretched or squeezed
// by the traffic picture around the car: a comfortable gap behind lets the
// stint run longer, a closing rival pushes the stop earlier, a projected
// rejoin into clear air makes the stop more attractive, and heavy pit
// traffic delays it.
func (s *Sim) pitstopProbability(c *Car, ranked []*Car) float64 {
	if c.Wear < 0.8 {
		return 0.0
	}

	idx := rankIndex(ranked, c)
	gapBehind, fastApproaching := s.gapBehind(c, ranked, idx)

	var prob float64
	switch {
	case c.Wear < 0.85:
		prob = 0.1 + 0.1*((c.Wear-0.80)/0.05)
	case c.Wear < 0.90:
		prob = 0.2 + 0.6*((c.Wear-0.85)/0.05)
	default:
		return 1.0
	}

	// Stretch or bring forward based on the cars around.
	if gapBehind > config.PitStretchGap {
		prob *= 0.3
	} else if fastApproaching {
		prob = math.Min(1.0, prob*1.5)
	}

	// Prefer stops that rejoin into empty space.
	if c.Wear >= 0.85 && s.rejoinGapOpportunity(c) {
		prob = math.Min(1.0, prob*1.3)
	}

	// Avoid synchronized pit traffic.
	if s.carsInPit() >= config.PitTrafficLimit {
		prob *= 0.5
	}

	return prob
}

// gapBehind returns the time gap to the next car in the ranked order, and
// whether that car is close enough to count as a threat.
func (s *Sim) gapBehind(c *Car, ranked []*Car, idx int) (gap float64, threat bool) {
	if idx < 0 || idx >= len(ranked)-1 {
		return 0, false
	}
	behind := ranked[idx+1]
	if c.V <= 0.1 {
		return 0, false
	}
	L := s.track.Length()
	lapDiff := behind.LapsCompleted - c.LapsCompleted
	distance := float64(lapDiff)*L + (c.S - behind.S)
	gap = distance / c.V
	threat = gap > 0 && gap < config.PitThreatGap
	return gap, threat
}

// rejoinGapOpportunity projects where every running rival will be when this
// car would rejoin after an average-length stop, and reports whether the
// car would come out into a 2-5 second pocket of clear air.
func (s *Sim) rejoinGapOpportunity(c *Car) bool {
	if c.V <= 0.1 {
		return false
	}
	L := s.track.Length()
	estimatedPit := config.PitTimeBase + 1.0
	rejoinTime := c.TotalTime + estimatedPit
	rejoinProgress := float64(c.LapsCompleted)*L + c.S

	for _, rival := range s.cars {
		if rival == c || rival.InPit {
			continue
		}
		timeUntilRejoin := rejoinTime - s.clock
		if timeUntilRejoin <= 0 {
			continue
		}
		rivalFuture := float64(rival.LapsCompleted)*L + rival.S + rival.V*timeUntilRejoin
		gap := math.Abs(rivalFuture-rejoinProgress) / c.V
		if gap >= 2.0 && gap <= 5.0 {
			return true
		}
	}
	return false
}

// carsInPit counts cars currently in the pit lane.
func (s *Sim) carsInPit() int {
	n := 0
	for _, c := range s.cars {
		if c.InPit {
			n++
		}
	}
	return n
}
