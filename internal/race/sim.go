package race

import (
	"math"
	"math/rand"
	"time"

	"github.com/apexsim/raceserver/config"
	"github.com/apexsim/raceserver/internal/track"
)

// Weather is fixed per race and read by the grip and speed models.
type Weather struct {
	Rain      float64 `json:"rain"`       // [0,1]
	TrackTemp float64 `json:"track_temp"` // Celsius
	Wind      float64 `json:"wind"`       // m/s, reserved for future models
}

// DefaultWeather is a mild, slightly damp race day.
func DefaultWeather() Weather {
	return Weather{Rain: 0.15, TrackTemp: 25.0, Wind: 0.0}
}

// PitPolicy controls whether a car's arc-length position advances while it
// sits in the pit lane.
type PitPolicy int

const (
	// PitFreeze holds the car's position during the stop; rivals may lap it.
	PitFreeze PitPolicy = iota
	// PitCoast keeps the car moving at its pre-entry speed for bookkeeping,
	// which makes rejoin-gap estimates track the pit lane more closely.
	PitCoast
)

// Options configure a simulation at construction. Zero values fall back to
// the engine defaults.
type Options struct {
	Cars      int
	TotalLaps int
	DT        float64
	Weather   Weather
	Physics   Physics
	PitPolicy PitPolicy
	Rand      *rand.Rand
}

// Sim is the race simulation: it owns the track, the cars, the clock and
// the started/finished lifecycle flags. It is not self-clocking; an outer
// loop calls Step at its own cadence. Sim performs no locking: a full tick
// is an atomic unit of observable state, and callers must not read car
// state mid-tick.
type Sim struct {
	track     *track.Track
	cars      []*Car
	dt        float64
	clock     float64
	weather   Weather
	totalLaps int
	physics   Physics
	pitPolicy PitPolicy
	rng       *rand.Rand

	started  bool
	finished bool
}

// New builds a simulation over the given track.
func New(trk *track.Track, opts Options) *Sim {
	if opts.Cars <= 0 {
		opts.Cars = config.DefaultCars
	}
	if opts.TotalLaps <= 0 {
		opts.TotalLaps = config.DefaultTotalLaps
	}
	if opts.DT <= 0 {
		opts.DT = config.TickDuration
	}
	if opts.Weather == (Weather{}) {
		opts.Weather = DefaultWeather()
	}
	if opts.Physics == nil {
		opts.Physics = NewBasicModel()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	s := &Sim{
		track:     trk,
		dt:        opts.DT,
		weather:   opts.Weather,
		totalLaps: opts.TotalLaps,
		physics:   opts.Physics,
		pitPolicy: opts.PitPolicy,
		rng:       opts.Rand,
	}
	s.cars = NewGrid(opts.Cars, opts.Weather.TrackTemp, s.rng)
	return s
}

// Track returns the circuit the race runs on.
func (s *Sim) Track() *track.Track { return s.track }

// Cars returns the car list in construction order. Read-only between ticks.
func (s *Sim) Cars() []*Car { return s.cars }

// Clock returns the simulated race time in seconds.
func (s *Sim) Clock() float64 { return s.clock }

// Weather returns the race weather.
func (s *Sim) Weather() Weather { return s.weather }

// TotalLaps returns the configured lap target.
func (s *Sim) TotalLaps() int { return s.totalLaps }

// SetTotalLaps overrides the lap target. Only meaningful before the start.
func (s *Sim) SetTotalLaps(n int) {
	if n > 0 {
		s.totalLaps = n
	}
}

// Started reports whether the race is underway.
func (s *Sim) Started() bool { return s.started }

// Finished reports whether any car has completed the final lap.
func (s *Sim) Finished() bool { return s.finished }

// Start moves the race from idle to stepping. Ticks are no-ops before this.
func (s *Sim) Start() { s.started = true }

// SetWeather replaces the race weather. Intended for use before Start.
func (s *Sim) SetWeather(w Weather) { s.weather = w }

// Reset restores the race and every car to the initial grid: fresh
// compounds, zeroed degradation, time and lap counters, cleared pit
// history, and both lifecycle flags down. Idempotent.
func (s *Sim) Reset() {
	s.clock = 0
	s.started = false
	s.finished = false
	for i, c := range s.cars {
		c.resetToGrid(i, s.weather.TrackTemp, s.rng)
	}
}

// Step advances the whole field by one tick of dt simulated seconds. The
// ranked order used for DRS and pit-gap decisions is computed once from the
// start-of-tick state, so no car sees a rival already updated this tick.
func (s *Sim) Step() {
	if !s.started || s.finished {
		return
	}

	ranked := s.Standings()
	for _, c := range s.cars {
		s.stepCar(c, ranked)
	}
	s.clock += s.dt
}

// stepCar runs the per-car state machine for one tick.
func (s *Sim) stepCar(c *Car, ranked []*Car) {
	if c.InPit {
		s.tickPit(c)
		return
	}

	u := s.track.SToU(c.S)
	curv := s.track.Curvature(u)

	// DRS gate, evaluated from the start-of-tick order before any speed
	// math. Recomputed from scratch every tick; there is no latch.
	c.DRSActive = s.drsEligible(c, ranked, curv)

	// Corner anticipation: the binding limit is the tighter of the corner
	// under the car and the one it will reach within the lookahead window.
	grip := s.grip(c)
	lookahead := c.V * config.CornerLookaheadSec
	curvAhead := s.track.Curvature(s.track.SToU(c.S + lookahead))

	vCorner := s.physics.CorneringSpeed(c, curv, grip)
	vCornerAhead := s.physics.CorneringSpeed(c, curvAhead, grip)
	vStraight := s.physics.StraightSpeed(c, s.weather, grip)
	target := math.Min(vStraight, math.Min(vCorner, vCornerAhead))

	s.physics.Advance(c, target, s.dt)

	// Pit-stop decision. Entry books the stop immediately; the rest of the
	// tick (incidents, degradation, advance) still applies to this tick.
	if !c.InPit && s.rng.Float64() < s.pitstopProbability(c, ranked)*s.dt {
		s.enterPit(c)
	}

	// Incident injection: one draw, then a severity tier.
	if s.rng.Float64() < s.errorProbability(c)*s.dt {
		r := s.rng.Float64()
		switch {
		case r < 0.6:
			c.V *= config.MinorIncidentSpeedScale
			c.TotalTime += config.MinorIncidentPenalty
		case r < 0.9:
			c.V = 0
			c.TotalTime += config.MajorIncidentPenalty
		default:
			if s.physics.CriticalIncident(c) == IncidentForcePit && !c.InPit {
				s.enterPit(c)
			}
		}
	}

	s.applyDegradation(c, curv)

	c.TotalTime += s.dt
	s.advancePosition(c, c.V)
}

// tickPit counts down the pit-lane timer and handles the exit transition.
func (s *Sim) tickPit(c *Car) {
	c.PitCounter -= s.dt
	if s.pitPolicy == PitCoast {
		s.advancePosition(c, c.V)
	}
	if c.PitCounter <= 0 {
		s.exitPit(c)
	}
}

// advancePosition moves the car along the track and detects lap and race
// completion. The race can finish mid-tick, as soon as any car crosses the
// line on its final lap.
func (s *Sim) advancePosition(c *Car, v float64) {
	L := s.track.Length()
	before := math.Floor(c.S / L)
	c.S += v * s.dt
	if math.Floor(c.S/L) > before {
		c.LapsCompleted++
		if c.LapsCompleted >= s.totalLaps {
			s.finished = true
		}
	}
}

// grip is the composite grip coefficient: compound base, degraded by wear,
// adjusted for rain per compound family, and scaled by driver skill.
// Floored so worn tires in heavy rain never zero out the speed models.
func (s *Sim) grip(c *Car) float64 {
	grip := c.Tyre.Base() * (1 - 0.6*c.Wear)

	rain := s.weather.Rain
	switch c.Tyre {
	case Wet:
		grip *= 1 + 0.5*rain
	case Intermediate:
		if rain > 0.3 {
			grip *= 1 + 0.3*rain
		} else {
			grip *= 1 - 0.5*rain
		}
	default:
		grip *= 1 - 0.9*rain
	}

	grip *= 0.8 + 0.4*c.DriverSkill
	return math.Max(grip, 0.05)
}

// errorProbability is the per-second chance of a racing incident. Rises
// with rain, wear and aggression, falls with skill, capped to keep ticks
// bounded.
func (s *Sim) errorProbability(c *Car) float64 {
	base := 0.0005 + 0.001*(1-c.DriverSkill)
	prob := base * (1 + 4*s.weather.Rain + 6*c.Wear + c.Aggression)
	return math.Min(prob, config.MaxErrorProbability)
}

// drsEligible applies the four DRS conditions: the leader has run the
// minimum laps, the car is not the leader, the distance-derived time gap to
// the car ahead is within the window, and the car is on a straight.
func (s *Sim) drsEligible(c *Car, ranked []*Car, curv float64) bool {
	if len(ranked) == 0 || ranked[0].LapsCompleted < config.DRSMinLeaderLaps {
		return false
	}
	idx := rankIndex(ranked, c)
	if idx <= 0 {
		return false
	}
	gap := s.timeGapToRival(c, ranked[idx-1])
	return gap > 0 && gap <= config.DRSMaxTimeGap && curv < config.DRSStraightCurv
}

// timeGapToRival converts the accumulated-progress distance gap to a rival
// into seconds at the car's current speed. Stopped cars report an
// effectively infinite gap.
func (s *Sim) timeGapToRival(c, rival *Car) float64 {
	if c.V <= 0.1 {
		return 999.0
	}
	L := s.track.Length()
	lapDiff := c.LapsCompleted - rival.LapsCompleted
	distance := float64(lapDiff)*L + (rival.S - c.S)
	return distance / c.V
}

// applyDegradation updates tire wear, tire temperature and fuel load.
func (s *Sim) applyDegradation(c *Car, curv float64) {
	// Wear: low grip wears the tire faster, a positive feedback loop.
	wearRate := config.BaseWearRate * (1 + 0.8*(1-s.grip(c)))
	multiplier := c.Tyre.WearRate()
	if c.DRSActive {
		multiplier *= config.DRSWearPenalty
	}
	c.Wear = math.Min(c.Wear+wearRate*multiplier*s.dt, config.MaxWear)

	// Temperature: heat from speed and a slip proxy, convective cooling
	// toward ambient, clamped between ambient and the hard ceiling.
	ambient := s.weather.TrackTemp
	slip := 0.0
	if c.V > 0 {
		slip = math.Abs(curv) * c.V
	}
	heatGen := config.HeatGenFactor * c.V * slip * c.Tyre.HeatFactor()
	cooling := config.CoolingFactor * (c.TireTemp - ambient)
	c.TireTemp += (heatGen - cooling) * s.dt
	c.TireTemp = math.Max(ambient, math.Min(c.TireTemp, config.TireTempCeiling))

	c.Fuel = math.Max(0, c.Fuel-config.FuelBurnRate*s.dt)
}

// pitstopTime rolls a stochastic pit-lane duration: a small chance of a bad
// stop with a wide uniform spread, otherwise a clamped normal variation
// around the base service time.
func (s *Sim) pitstopTime() float64 {
	if s.rng.Float64() < config.BadStopChance {
		return config.PitTimeBase + (s.rng.Float64()*4.0 - 2.0)
	}
	variation := s.rng.NormFloat64() * 0.5
	variation = math.Max(-1.0, math.Min(1.0, variation))
	return config.PitTimeBase + variation
}

// enterPit transitions the car to the pit lane: the stop duration is booked
// into total time immediately, and the current rank plus the signed time
// gap to every rival are snapshotted for undercut scoring at exit.
func (s *Sim) enterPit(c *Car) {
	c.InPit = true
	pitTime := s.pitstopTime()
	c.PitCounter = pitTime

	// Snapshot rank and signed gaps before the stop is booked, so the
	// scoring at exit measures what the stop actually cost or gained.
	c.prePitRank = c.Position
	c.prePitGaps = make(map[string]float64, len(s.cars)-1)
	for _, rival := range s.cars {
		if rival != c {
			c.prePitGaps[rival.Name] = rival.TotalTime - c.TotalTime
		}
	}

	// Pit time is booked immediately, not drip-fed across the stop.
	c.TotalTime += pitTime

	c.PitStops++
	c.History = append(c.History, PitStop{
		Lap:       c.LapsCompleted,
		OldTyre:   c.Tyre,
		PitTime:   math.Round(pitTime*100) / 100,
		Undercuts: map[string]UndercutOutcome{},
	})
}

// exitPit transitions the car back onto the track: weather-conditional
// fresh compound, wear and temperature reset, and the just-completed stop's
// undercut analysis finalized into its history entry.
func (s *Sim) exitPit(c *Car) {
	c.InPit = false
	c.PitCounter = 0

	switch {
	case s.weather.Rain > config.RainForWets:
		c.Tyre = Wet
	case s.weather.Rain > config.RainForInters:
		c.Tyre = Intermediate
	default:
		c.Tyre = dryCompounds[s.rng.Intn(len(dryCompounds))]
	}
	if stop := c.lastStop(); stop != nil {
		stop.NewTyre = c.Tyre
	}

	s.scoreUndercuts(c)

	c.Wear = 0
	c.TireTemp = s.weather.TrackTemp + config.TireWarmup
	c.prePitRank = 0
	c.prePitGaps = nil
}
