package config

// Simulation constants - must stay in sync with the broadcast cadence the
// front end expects
const (
	// Stepping / Network
	TickDuration      = 0.5 // Simulated seconds advanced per tick
	StepsPerBroadcast = 3   // Ticks batched between observation points
	BroadcastRateMS   = 100 // Wall-clock interval between broadcasts
	FinishHoldMS      = 2000 // Pause on the final classification before reset

	// Race settings
	DefaultCars      = 20
	DefaultTotalLaps = 36
	TrackResolution  = 2000 // Arc-length table samples
	GridSpacing      = 2.0  // Meters between consecutive grid slots

	// Speed model
	BaseStraightSpeed  = 80.0 // m/s before driver skill bonus
	SkillSpeedBonus    = 20.0 // m/s at perfect skill
	RainSpeedPenalty   = 0.25 // Fraction of straight speed lost in full rain
	FuelSpeedPenalty   = 0.001 // Per unit of fuel load
	CorneringConstant  = 12.0 // Grip-to-speed scaling in v = sqrt(grip*k/curv)
	DRSSpeedBoost      = 1.10
	DRSMaxTimeGap      = 1.0   // Seconds behind the car ahead
	DRSMinLeaderLaps   = 3     // Leader laps before DRS is enabled
	DRSStraightCurv    = 0.001 // Curvature ceiling that still counts as straight
	CornerLookaheadSec = 2.0   // Seconds of travel used for corner anticipation

	// Acceleration / Braking (m/s per second)
	AccelRate        = 6.0
	BrakeRate        = 15.0
	HardBrakeRate    = 20.0
	HardBrakeExcess  = 5.0 // Overshoot beyond which hard braking engages

	// Degradation
	BaseWearRate    = 0.0005
	MaxWear         = 0.99
	DRSWearPenalty  = 1.05
	FuelBurnRate    = 0.02  // Per simulated second
	InitialFuel     = 100.0
	TireTempCeiling = 150.0
	TireWarmup      = 10.0 // Degrees above ambient for fresh tires
	HeatGenFactor   = 0.01
	CoolingFactor   = 0.05

	// Incidents
	MinorIncidentSpeedScale = 0.6
	MinorIncidentPenalty    = 2.0 // Seconds added to total time
	MajorIncidentPenalty    = 6.0
	MaxErrorProbability     = 0.5 // Per simulated second

	// Pit stops
	PitTimeBase      = 22.0 // Seconds in the pit lane
	BadStopChance    = 0.075
	PitStretchGap    = 3.0 // Gap behind (s) that lets a car stretch its stint
	PitThreatGap     = 2.0 // Closing gap (s) that pushes an early stop
	PitTrafficLimit  = 3   // Cars in pit that trigger stint stretching
	RainForWets      = 0.6
	RainForInters    = 0.3
)

// Server configuration
type ServerConfig struct {
	Host       string
	Port       int
	EnableCORS bool
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:       "0.0.0.0",
		Port:       8080,
		EnableCORS: true,
	}
}

// Weather bounds applied to start-race requests
const (
	MinTrackTemp = 15.0
	MaxTrackTemp = 50.0
	MaxWind      = 20.0
)
