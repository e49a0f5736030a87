package race

import (
	"math"

	"github.com/apexsim/raceserver/config"
)

// EnhancedModel derives speeds from car power, aerodynamics and mass
// instead of tuned curves. It also keeps gear/RPM bookkeeping on the car
// and converts critical incidents into forced pit stops for repairs.
type EnhancedModel struct{}

// F1 car constants.
const (
	carMass        = 798.0    // kg, car plus driver, dry
	fuelMassPerKg  = 0.7      // kg of mass per unit of fuel load
	powerMax       = 746000.0 // W, ~1000 hp
	dragCoeff      = 0.75
	downforceCoeff = 3.5
	frontalArea    = 1.5 // m^2
	airDensity     = 1.225
	gravity        = 9.81
	drsDragScale   = 0.85 // 15% drag reduction with the wing open
	rollingCoeff   = 0.02
	maxAccelG      = 2.0 // Traction-limited acceleration ceiling
	brakeFriction  = 1.2
	maxBrakeSpeed  = 100.0 // m/s reference for brake fade
	idleRPM        = 5000.0
	maxRPM         = 15000.0
	wheelRadius    = 0.33
	finalDrive     = 3.5
)

// gearRatios is the 8-speed transmission.
var gearRatios = [...]float64{2.9, 2.0, 1.5, 1.2, 1.0, 0.85, 0.75, 0.65}

// NewEnhancedModel returns the power/aero-derived physics model.
func NewEnhancedModel() *EnhancedModel { return &EnhancedModel{} }

func (m *EnhancedModel) Name() string { return "enhanced" }

func (m *EnhancedModel) mass(c *Car) float64 {
	return carMass + c.Fuel*fuelMassPerKg
}

// StraightSpeed solves power = drag·v for the drag-limited top speed, then
// applies the same driver/weather/compound attenuations the basic model
// uses so both models stay comparable lap to lap.
func (m *EnhancedModel) StraightSpeed(c *Car, w Weather, grip float64) float64 {
	cd := dragCoeff
	if c.DRSActive {
		cd *= drsDragScale
	}
	// P = 0.5·rho·Cd·A·v^3  =>  v = cbrt(2P / (rho·Cd·A))
	vTop := math.Cbrt(2 * powerMax / (airDensity * cd * frontalArea))

	vTop *= 0.92 + 0.08*c.DriverSkill
	vTop *= 1 - config.RainSpeedPenalty*w.Rain
	vTop *= 0.90 + 0.15*c.Tyre.Base()
	vTop *= 0.95 + 0.10*grip
	vTop *= 1 - config.FuelSpeedPenalty*c.Fuel
	return vTop
}

// CorneringSpeed uses v = sqrt(grip·g·r) with downforce-assisted grip. The
// downforce available is taken at the car's current speed, which makes fast
// sweepers faster than the basic model and slow corners about the same.
func (m *EnhancedModel) CorneringSpeed(c *Car, curvature, grip float64) float64 {
	curv := math.Max(curvature, 1e-6)

	downforce := 0.5 * airDensity * downforceCoeff * frontalArea * c.V * c.V
	downforceFactor := downforce / (m.mass(c) * gravity)
	effectiveGrip := grip * (1 + 0.3*downforceFactor)

	return math.Sqrt(effectiveGrip * gravity / curv)
}

// Advance applies power-limited acceleration against drag and rolling
// resistance, or speed-faded braking when over the target, and keeps the
// car's gear/RPM state current.
func (m *EnhancedModel) Advance(c *Car, target, dt float64) {
	mass := m.mass(c)

	if c.V > target {
		excess := c.V - target
		fade := math.Sqrt(math.Max(0, 1-c.V/maxBrakeSpeed))
		decel := brakeFriction * gravity * fade
		if excess <= config.HardBrakeExcess {
			decel *= 0.7
		}
		c.V -= decel * dt
	} else if c.V < target {
		v := math.Max(c.V, 0.1)
		drag := 0.5 * airDensity * dragCoeff * frontalArea * v * v
		rolling := rollingCoeff * mass * gravity
		accel := (powerMax/v - drag - rolling) / mass
		accel = math.Max(0, math.Min(accel, maxAccelG*gravity))
		c.V += accel * dt
	}
	c.V = math.Max(0, math.Min(c.V, target))

	c.Gear = selectGear(c.V, c.Gear)
	c.RPM = rpmFromSpeed(c.V, c.Gear)
}

// CriticalIncident forces a pit stop: the damage needs service.
func (m *EnhancedModel) CriticalIncident(c *Car) IncidentOutcome {
	return IncidentForcePit
}

// rpmFromSpeed converts wheel speed to engine RPM through the drivetrain.
func rpmFromSpeed(speed float64, gear int) float64 {
	if gear < 1 || gear > len(gearRatios) {
		return idleRPM
	}
	ratio := gearRatios[gear-1] * finalDrive
	rpm := (speed / wheelRadius) * ratio * 9.55
	return math.Max(idleRPM, math.Min(rpm, maxRPM))
}

// selectGear upshifts near the limiter and downshifts when the engine bogs.
func selectGear(speed float64, gear int) int {
	if gear < 1 {
		gear = 1
	}
	if speed < 5.0 {
		return 1
	}
	rpm := rpmFromSpeed(speed, gear)
	if rpm > 14000 && gear < len(gearRatios) {
		return gear + 1
	}
	if rpm < 8000 && gear > 1 {
		return gear - 1
	}
	return gear
}
