package race

import (
	"math"

	"github.com/apexsim/raceserver/config"
)

// IncidentOutcome is the effect of a critical-tier incident, decided by the
// physics strategy in play.
type IncidentOutcome int

const (
	// IncidentNone absorbs the critical tier with no effect.
	IncidentNone IncidentOutcome = iota
	// IncidentForcePit sends the car to the pit lane for repairs.
	IncidentForcePit
)

// Physics is the speed-model strategy used by the tick engine. Two
// implementations exist: BasicModel (heuristic speed curves) and
// EnhancedModel (power/aero-derived). The variant is selected explicitly
// at construction and never swapped mid-race.
type Physics interface {
	// Name identifies the model in snapshots and logs.
	Name() string

	// StraightSpeed returns the straight-line speed ceiling for the car
	// under the given weather and grip, including any active DRS boost.
	StraightSpeed(c *Car, w Weather, grip float64) float64

	// CorneringSpeed returns the maximum speed through a section of the
	// given curvature with the given grip.
	CorneringSpeed(c *Car, curvature, grip float64) float64

	// Advance moves the car's speed toward target over dt seconds with the
	// model's acceleration and braking behavior, then clamps it to
	// [0, target]: a car may lag its limit but never exceed it.
	Advance(c *Car, target, dt float64)

	// CriticalIncident resolves the reserved 10% incident severity tier.
	CriticalIncident(c *Car) IncidentOutcome
}

// BasicModel is the default heuristic speed model: fixed acceleration,
// two-tier braking, and empirically tuned speed curves.
type BasicModel struct{}

// NewBasicModel returns the heuristic physics model.
func NewBasicModel() *BasicModel { return &BasicModel{} }

func (m *BasicModel) Name() string { return "basic" }

func (m *BasicModel) StraightSpeed(c *Car, w Weather, grip float64) float64 {
	base := config.BaseStraightSpeed + config.SkillSpeedBonus*c.DriverSkill
	base *= 1 - config.RainSpeedPenalty*w.Rain
	// Compound speed multiplier: soft fastest, wets slowest.
	base *= 0.90 + 0.15*c.Tyre.Base()
	// Grip folds in wear, so worn tires also cost straight-line speed.
	base *= 0.95 + 0.10*grip
	base *= 1 - config.FuelSpeedPenalty*c.Fuel
	if c.DRSActive {
		base *= config.DRSSpeedBoost
	}
	return base
}

func (m *BasicModel) CorneringSpeed(c *Car, curvature, grip float64) float64 {
	curv := math.Max(curvature, 1e-6)
	v := math.Sqrt(grip * config.CorneringConstant / curv)
	// Heavier car corners slower.
	v *= 1 - config.FuelSpeedPenalty*c.Fuel
	return v
}

func (m *BasicModel) Advance(c *Car, target, dt float64) {
	if c.V > target {
		// Brake harder when significantly over the limit.
		if c.V-target > config.HardBrakeExcess {
			c.V -= config.HardBrakeRate * dt
		} else {
			c.V -= config.BrakeRate * dt
		}
	} else if c.V < target {
		c.V += config.AccelRate * dt
	}
	c.V = math.Max(0, math.Min(c.V, target))
}

// CriticalIncident is a no-op in the basic model: the reserved tier is
// absorbed without effect.
func (m *BasicModel) CriticalIncident(c *Car) IncidentOutcome {
	return IncidentNone
}
