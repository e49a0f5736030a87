package race

import "math"

// CarSnapshot is the per-car view handed to observers each observation
// point. Field names follow the streaming protocol the front end consumes.
type CarSnapshot struct {
	Name     string   `json:"name"`
	Color    string   `json:"color"`
	Position int      `json:"position"`
	Laps     int      `json:"laps"`
	Wear     float64  `json:"wear"`
	Tyre     Compound `json:"tyre"`
	Fuel     float64  `json:"fuel"`
	Speed    float64  `json:"speed"` // km/h
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Angle    float64  `json:"angle"` // Heading, radians
	TotalTime float64 `json:"total_time"`
	OnPit    bool     `json:"on_pit"`

	RPM       float64 `json:"rpm"`
	Gear      int     `json:"gear"`
	TireTemp  float64 `json:"tire_temp"`
	DRSActive bool    `json:"drs_active"`
	Overtaking bool   `json:"overtaking"`

	PitstopHistory   []PitStop       `json:"pitstop_history"`
	PitstopCount     int             `json:"pitstop_count"`
	TimeInterval     float64         `json:"time_interval"`
	DistanceInterval float64         `json:"distance_interval"`
	UndercutSummary  []StopUndercuts `json:"undercut_summary"`
}

// RaceSnapshot is the aggregate race view broadcast to observers. The
// undercut summary is only attached once the race has finished.
type RaceSnapshot struct {
	RaceID           string           `json:"race_id,omitempty"`
	Time             float64          `json:"time"`
	Cars             []CarSnapshot    `json:"cars"`
	Weather          Weather          `json:"weather"`
	TotalLaps        int              `json:"total_laps"`
	TyreDistribution map[Compound]int `json:"tyre_distribution"`
	RaceFinished     bool             `json:"race_finished"`
	RaceStarted      bool             `json:"race_started"`
	PhysicsModel     string           `json:"physics_model"`
	UndercutSummary  []StopUndercuts  `json:"undercut_summary,omitempty"`
}

// Snapshot builds an immutable view of the race for observers. It must be
// called between ticks only: it refreshes ranks and leader intervals, then
// copies everything an observer needs so later ticks cannot race with a
// slow consumer.
func (s *Sim) Snapshot() *RaceSnapshot {
	ranked := s.Standings()
	s.computeIntervals(ranked)

	tyres := make(map[Compound]int, len(dryCompounds))
	for _, c := range s.cars {
		tyres[c.Tyre]++
	}

	snap := &RaceSnapshot{
		Time:             round2(s.clock),
		Cars:             make([]CarSnapshot, 0, len(s.cars)),
		Weather:          s.weather,
		TotalLaps:        s.totalLaps,
		TyreDistribution: tyres,
		RaceFinished:     s.finished,
		RaceStarted:      s.started,
		PhysicsModel:     s.physics.Name(),
	}
	for _, c := range s.cars {
		snap.Cars = append(snap.Cars, s.carSnapshot(c))
	}
	if s.finished {
		snap.UndercutSummary = s.UndercutSummary()
	}
	return snap
}

// carSnapshot copies one car into observer form, deriving the on-track
// position and the secant heading from the car's arc-length progress.
func (s *Sim) carSnapshot(c *Car) CarSnapshot {
	pos := s.track.PointAt(c.S)

	history := make([]PitStop, len(c.History))
	copy(history, c.History)

	return CarSnapshot{
		Name:      c.Name,
		Color:     c.Color,
		Position:  c.Position,
		Laps:      c.LapsCompleted,
		Wear:      round3(c.Wear),
		Tyre:      c.Tyre,
		Fuel:      round1(c.Fuel),
		Speed:     round1(c.V * 3.6),
		X:         pos.X,
		Y:         pos.Y,
		Angle:     s.track.HeadingAt(c.S),
		TotalTime: round2(c.TotalTime),
		OnPit:     c.InPit,

		RPM:        c.RPM,
		Gear:       c.Gear,
		TireTemp:   round1(c.TireTemp),
		DRSActive:  c.DRSActive,
		Overtaking: c.Overtaking,

		PitstopHistory:   history,
		PitstopCount:     c.PitStops,
		TimeInterval:     round2(c.TimeInterval),
		DistanceInterval: round1(c.DistanceInterval),
		UndercutSummary:  undercutSummaryFor(c, false),
	}
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
