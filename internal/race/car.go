// Package race implements the core simulation: per-car state, the tick
// engine that advances it, the physics strategies, and the leaderboard and
// pit-strategy analytics derived from it.
package race

import (
	"math/rand"

	"github.com/apexsim/raceserver/config"
)

// Compound is a tire compound.
type Compound string

const (
	Soft         Compound = "SOFT"
	Medium       Compound = "MEDIUM"
	Hard         Compound = "HARD"
	Intermediate Compound = "INTERMEDIATE"
	Wet          Compound = "WET"
)

// compoundBase is the base grip/speed multiplier per compound.
var compoundBase = map[Compound]float64{
	Soft:         1.00,
	Medium:       0.95,
	Hard:         0.90,
	Intermediate: 0.82,
	Wet:          0.78,
}

// compoundWearRate scales tire wear per compound. Soft wears fastest.
var compoundWearRate = map[Compound]float64{
	Soft:         2.0,
	Medium:       1.0,
	Hard:         0.5,
	Intermediate: 1.1,
	Wet:          1.2,
}

// compoundHeatFactor scales tire heat generation per compound.
var compoundHeatFactor = map[Compound]float64{
	Soft:         1.2,
	Medium:       1.0,
	Hard:         0.8,
	Intermediate: 0.85,
	Wet:          0.9,
}

// dryCompounds are the race-start and dry-pit-stop choices.
var dryCompounds = []Compound{Soft, Medium, Hard}

// Base returns the compound's base grip multiplier.
func (c Compound) Base() float64 { return compoundBase[c] }

// WearRate returns the compound's wear-rate multiplier.
func (c Compound) WearRate() float64 { return compoundWearRate[c] }

// HeatFactor returns the compound's heat-generation multiplier.
func (c Compound) HeatFactor() float64 { return compoundHeatFactor[c] }

// UndercutOutcome records the effect of one pit stop against one rival:
// the time gained or lost by pitting when the car did, and the resulting
// position change.
type UndercutOutcome struct {
	TimeGain       float64 `json:"time_gain"`
	PositionBefore int     `json:"position_before"`
	PositionAfter  int     `json:"position_after"`
	PositionChange int     `json:"position_change"`
	RivalPosition  int     `json:"other_position"`
	GapBefore      float64 `json:"time_gap_before"`
	GapAfter       float64 `json:"time_gap_after"`
}

// PitStop is one entry in a car's pit history. Undercuts is populated when
// the stop completes; until then it is an empty map.
type PitStop struct {
	Lap       int                        `json:"lap"`
	OldTyre   Compound                   `json:"tyre"`
	NewTyre   Compound                   `json:"new_tyre,omitempty"`
	PitTime   float64                    `json:"pit_time"`
	Undercuts map[string]UndercutOutcome `json:"undercuts"`
}

// Car is the mutable per-competitor state record. It has no behavior of
// its own; the tick engine mutates it and the leaderboard reads it.
type Car struct {
	// Identity
	Name        string
	Color       string
	DriverSkill float64 // (0,1], fixed for the race
	Aggression  float64 // [0,1], fixed for the race

	// Race progress
	S             float64 // Accumulated arc length, wraps via modulo only on queries
	V             float64 // Speed, m/s, never negative
	LapsCompleted int
	TotalTime     float64 // Cumulative elapsed time including booked pit time

	// Consumables
	Tyre     Compound
	Wear     float64 // [0, 0.99], reset on pit exit
	TireTemp float64 // Bounded by ambient and a hard ceiling
	Fuel     float64 // Floored at zero

	// Pit state
	InPit      bool
	PitCounter float64 // Remaining pit-lane seconds
	PitStops   int
	History    []PitStop

	// Enhanced-physics bookkeeping
	RPM        float64
	Gear       int
	Overtaking bool

	// Transient per-tick fields, recomputed every tick
	DRSActive        bool
	Position         int // Leaderboard rank, 1..N
	TimeInterval     float64
	DistanceInterval float64

	// Pit-entry snapshot for undercut scoring; valid while a stop is pending
	prePitRank int
	prePitGaps map[string]float64
}

// driverNames rotate onto the grid in order.
var driverNames = []string{
	"Oscar Piastri", "Lando Norris", "George Russell", "Kimi Antonelli",
	"Max Verstappen", "Yuki Tsunoda", "Charles Leclerc", "Lewis Hamilton",
	"Alexander Albon", "Carlos Sainz", "Liam Lawson", "Isack Hadjar",
	"Lance Stroll", "Fernando Alonso", "Esteban Ocon", "Oliver Bearman",
	"Nico Hulkenberg", "Gabriel Bortoleto", "Pierre Gasly", "Franco Colapinto",
}

var driverColors = []string{
	"#00D2BE", "#0600EF", "#DC0000", "#FF8700", "#DC0000",
	"#0600EF", "#00D2BE", "#006F62", "#FF8700", "#006F62",
	"#1E41FF", "#FF1800", "#00D4AB", "#E10600", "#00665E",
	"#FFB800", "#000000", "#FFFFFF", "#0090FF", "#FF6B00",
}

// NewGrid builds n cars on a fresh starting grid with fixed 2m spacing
// behind the start line, randomized skill/aggression and dry compounds.
func NewGrid(n int, ambientTemp float64, rng *rand.Rand) []*Car {
	cars := make([]*Car, 0, n)
	for i := 0; i < n; i++ {
		c := &Car{
			Name:        driverNames[i%len(driverNames)],
			Color:       driverColors[i%len(driverColors)],
			DriverSkill: 0.75 + rng.Float64()*0.25,
			Aggression:  0.3 + rng.Float64()*0.7,
		}
		c.resetToGrid(i, ambientTemp, rng)
		cars = append(cars, c)
	}
	return cars
}

// resetToGrid restores every mutable field to its initial-construction
// value: grid slot, zeroed progress and degradation, fresh random dry
// compound, empty pit history. Identity fields are untouched.
func (c *Car) resetToGrid(gridIndex int, ambientTemp float64, rng *rand.Rand) {
	c.S = float64(gridIndex) * config.GridSpacing
	c.V = 0
	c.LapsCompleted = 0
	c.TotalTime = 0

	c.Tyre = dryCompounds[rng.Intn(len(dryCompounds))]
	c.Wear = 0
	c.TireTemp = ambientTemp + config.TireWarmup
	c.Fuel = config.InitialFuel

	c.InPit = false
	c.PitCounter = 0
	c.PitStops = 0
	c.History = nil

	c.RPM = 5000
	c.Gear = 1
	c.Overtaking = false

	c.DRSActive = false
	c.Position = 0
	c.TimeInterval = 0
	c.DistanceInterval = 0

	c.prePitRank = 0
	c.prePitGaps = nil
}

// lastStop returns the most recent pit history entry, or nil.
func (c *Car) lastStop() *PitStop {
	if len(c.History) == 0 {
		return nil
	}
	return &c.History[len(c.History)-1]
}
