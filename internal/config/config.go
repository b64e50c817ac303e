package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// MaxConfigFileBytes bounds the size of a configuration file accepted by Load.
const MaxConfigFileBytes = 1 << 20

// DrivetrainConfig describes the physical drivetrain.
type DrivetrainConfig struct {
	TrackWidthM         float64 `yaml:"track_width_m"`         // distance between left and right wheel contact patches
	WheelDiameterM      float64 `yaml:"wheel_diameter_m"`      // e.g. 0.1524 for 6" wheels
	TicksPerRotation    int     `yaml:"ticks_per_rotation"`    // encoder ticks per wheel rotation
	VelocityPeriodMs    int     `yaml:"velocity_period_ms"`    // native velocity unit is ticks per this period (TalonSRX: 100ms)
	MaxSpeedMps         float64 `yaml:"max_speed_mps"`         // wheel velocity setpoints are clamped to this
	MaxAccelerationMps2 float64 `yaml:"max_acceleration_mps2"` // used when generating trajectories
}

// FeedforwardConfig holds the characterized motor model, per side.
type FeedforwardConfig struct {
	KsVolts                      float64 `yaml:"ks_volts"`
	KvVoltSecondsPerMeter        float64 `yaml:"kv_volt_seconds_per_meter"`
	KaVoltSecondsSquaredPerMeter float64 `yaml:"ka_volt_seconds_squared_per_meter"`
	BatteryVoltageBudget         float64 `yaml:"battery_voltage_budget"` // volts mapped to a feedforward fraction of 1.0
}

// RamseteConfig holds the trajectory tracker gains.
type RamseteConfig struct {
	B    float64 `yaml:"b"`    // > 0, larger converges harder on position error
	Zeta float64 `yaml:"zeta"` // damping, 0 < zeta < 1 underdamped
}

// VisionConfig holds the vision alignment policy and the camera mount.
type VisionConfig struct {
	RotateGain       float64 `yaml:"rotate_gain"`        // steer per degree of error
	ToleranceDeg     float64 `yaml:"tolerance_deg"`      // error considered aligned; 0 requires an exact center
	MinCommand       float64 `yaml:"min_command"`        // smallest steer magnitude sent while aligning; 0 disables
	SeekSpeed        float64 `yaml:"seek_speed"`         // steer magnitude while the target is lost; 0 holds still
	SettleTicks      int     `yaml:"settle_ticks"`       // consecutive in-tolerance ticks to finish
	RunForever       bool    `yaml:"run_forever"`        // never report completion
	MountHeightM     float64 `yaml:"mount_height_m"`     // camera lens height
	MountAngleDeg    float64 `yaml:"mount_angle_deg"`    // camera pitch from horizon
	TargetHeightM    float64 `yaml:"target_height_m"`    // target center height
	HorizontalFOVDeg float64 `yaml:"horizontal_fov_deg"` // camera horizontal field of view
	RingLightPin     int     `yaml:"ring_light_pin"`     // GPIO pin (BCM) for the LED ring. 0 = not used.
}

// ManualConfig tunes curvature drive.
type ManualConfig struct {
	Deadband       float64 `yaml:"deadband"` // 0 disables
	QuickTurnBelow float64 `yaml:"quick_turn_below"` // forward speed at or below which quick turn is forced
	MaxOutput      float64 `yaml:"max_output"`
}

// DefaultsConfig contains generic runtime parameters.
type DefaultsConfig struct {
	ControlPeriodMs int  `yaml:"control_period_ms"` // control tick period
	DebugLevel      int  `yaml:"debug_level"`       // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO        bool `yaml:"mock_gpio"`         // use mock GPIO (true=dev/test, false=real Raspberry Pi)
}

// Config aggregates all application configuration.
type Config struct {
	Drivetrain  DrivetrainConfig  `yaml:"drivetrain"`
	Feedforward FeedforwardConfig `yaml:"feedforward"`
	Ramsete     RamseteConfig     `yaml:"ramsete"`
	Vision      VisionConfig      `yaml:"vision"`
	Manual      ManualConfig      `yaml:"manual"`
	Defaults    DefaultsConfig    `yaml:"defaults"`
}

// ValidateConfigPath checks that path names a .yaml file inside a configs/ directory.
func ValidateConfigPath(path string) error {
	if path == "" {
		return fmt.Errorf("config path is empty")
	}
	clean := filepath.Clean(path)
	if filepath.Ext(clean) != ".yaml" {
		return fmt.Errorf("config file must have .yaml extension, got %q", filepath.Ext(clean))
	}
	abs, err := filepath.Abs(clean)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	if filepath.Base(filepath.Dir(abs)) != "configs" {
		return fmt.Errorf("config file must be inside a configs/ directory: %s", path)
	}
	return nil
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), MaxConfigFileBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := presets()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// presets returns the defaults of fields for which 0 is a meaningful setting.
// yaml.v3 leaves absent keys untouched, so an explicit 0 in the file survives.
func presets() Config {
	return Config{
		Vision: VisionConfig{
			ToleranceDeg: 2,
			MinCommand:   0.2,
			SeekSpeed:    0.15,
		},
		Manual: ManualConfig{
			Deadband:       0.02,
			QuickTurnBelow: 0.15,
		},
	}
}

// applyDefaults fills zero values and rejects values no component can work with.
func (c *Config) applyDefaults() error {
	d := &c.Drivetrain
	if d.TrackWidthM < 0 || d.WheelDiameterM < 0 || d.TicksPerRotation < 0 {
		return fmt.Errorf("drivetrain geometry must be positive")
	}
	if d.TrackWidthM == 0 {
		d.TrackWidthM = 0.508 // 20"
	}
	if d.WheelDiameterM == 0 {
		d.WheelDiameterM = 0.1524 // 6"
	}
	if d.TicksPerRotation == 0 {
		d.TicksPerRotation = 4096 // mag encoder, quadrature
	}
	if d.VelocityPeriodMs <= 0 {
		d.VelocityPeriodMs = 100
	}
	if d.MaxSpeedMps <= 0 {
		d.MaxSpeedMps = 3
	}
	if d.MaxAccelerationMps2 <= 0 {
		d.MaxAccelerationMps2 = 3
	}

	f := &c.Feedforward
	if f.KsVolts < 0 || f.KvVoltSecondsPerMeter < 0 || f.KaVoltSecondsSquaredPerMeter < 0 {
		return fmt.Errorf("feedforward gains must be >= 0")
	}
	if f.KsVolts == 0 && f.KvVoltSecondsPerMeter == 0 && f.KaVoltSecondsSquaredPerMeter == 0 {
		f.KsVolts = 0.22
		f.KvVoltSecondsPerMeter = 1.98
		f.KaVoltSecondsSquaredPerMeter = 0.2
	}
	if f.BatteryVoltageBudget <= 0 {
		f.BatteryVoltageBudget = 12
	}

	r := &c.Ramsete
	if r.B < 0 || r.Zeta < 0 {
		return fmt.Errorf("ramsete gains must be >= 0, got b=%.2f zeta=%.2f", r.B, r.Zeta)
	}
	if r.B == 0 {
		r.B = 2
	}
	if r.Zeta == 0 {
		r.Zeta = 0.7
	}

	v := &c.Vision
	if v.ToleranceDeg < 0 {
		return fmt.Errorf("vision.tolerance_deg must be >= 0, got %.2f", v.ToleranceDeg)
	}
	if v.MinCommand < 0 || v.MinCommand > 1 {
		return fmt.Errorf("vision.min_command must be between 0 and 1, got %.2f", v.MinCommand)
	}
	if v.SeekSpeed < 0 || v.SeekSpeed > 1 {
		return fmt.Errorf("vision.seek_speed must be between 0 and 1, got %.2f", v.SeekSpeed)
	}
	if v.RotateGain <= 0 {
		v.RotateGain = 0.025
	}
	if v.SettleTicks <= 0 {
		v.SettleTicks = 5
	}
	if v.MountHeightM <= 0 {
		v.MountHeightM = 0.4572 // 18"
	}
	if v.TargetHeightM <= 0 {
		v.TargetHeightM = 1.27 // 50"
	}
	if math.Abs(v.MountAngleDeg) >= 90 {
		return fmt.Errorf("vision.mount_angle_deg must be within (-90, 90), got %.2f", v.MountAngleDeg)
	}
	if v.HorizontalFOVDeg <= 0 {
		v.HorizontalFOVDeg = 59.6
	}

	m := &c.Manual
	if m.Deadband < 0 || m.Deadband >= 1 {
		return fmt.Errorf("manual.deadband must be between 0 and 1, got %.2f", m.Deadband)
	}
	if m.QuickTurnBelow < 0 {
		return fmt.Errorf("manual.quick_turn_below must be >= 0, got %.2f", m.QuickTurnBelow)
	}
	if m.MaxOutput <= 0 || m.MaxOutput > 1 {
		m.MaxOutput = 1
	}

	if c.Defaults.ControlPeriodMs <= 0 {
		c.Defaults.ControlPeriodMs = 20
	}
	return nil
}

// ControlPeriod returns the control tick period.
func (c *Config) ControlPeriod() time.Duration {
	return time.Duration(c.Defaults.ControlPeriodMs) * time.Millisecond
}

// VelocityPeriod returns the period of the actuator's native velocity unit.
func (c *Config) VelocityPeriod() time.Duration {
	return time.Duration(c.Drivetrain.VelocityPeriodMs) * time.Millisecond
}

// WheelCircumferenceM returns the wheel circumference in meters.
func (c *Config) WheelCircumferenceM() float64 {
	return c.Drivetrain.WheelDiameterM * math.Pi
}

// CameraMountAngleRad returns the camera pitch in radians.
func (c *Config) CameraMountAngleRad() float64 {
	return c.Vision.MountAngleDeg * math.Pi / 180.0
}
