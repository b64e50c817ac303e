// Package drive turns wheel velocity targets into actuator commands and maps
// driver joystick input to open-loop wheel output.
package drive

import (
	"math"
	"time"

	"github.com/cjeanneret/DriveGo/internal/config"
	"github.com/cjeanneret/DriveGo/internal/debug"
	"github.com/cjeanneret/DriveGo/internal/logic/geometry"
	"github.com/cjeanneret/DriveGo/internal/logic/motion"
)

// Feedforward is the linear permanent-magnet DC motor model.
type Feedforward struct {
	KS float64 // volts to overcome static friction
	KV float64 // volts per m/s
	KA float64 // volts per m/s²
}

// Calculate returns the voltage needed to hold velocity v while accelerating at a.
func (f Feedforward) Calculate(v, a float64) float64 {
	return f.KS*sign(v) + f.KV*v + f.KA*a
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// Config is what the wheel controllers need from the configuration.
type Config struct {
	Feedforward   Feedforward
	BatteryBudget float64 // volts mapped to a feedforward fraction of 1
	MaxSpeed      float64 // m/s, setpoints are clamped to ±MaxSpeed
}

// ConfigFrom extracts the drive settings.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Feedforward: Feedforward{
			KS: cfg.Feedforward.KsVolts,
			KV: cfg.Feedforward.KvVoltSecondsPerMeter,
			KA: cfg.Feedforward.KaVoltSecondsSquaredPerMeter,
		},
		BatteryBudget: cfg.Feedforward.BatteryVoltageBudget,
		MaxSpeed:      cfg.Drivetrain.MaxSpeedMps,
	}
}

// WheelCommand is the output for one wheel.
type WheelCommand struct {
	Feedforward float64 // fraction of the battery budget, added to the velocity loop output
	Setpoint    float64 // native rate (ticks per velocity period)
}

// WheelController computes the velocity-mode command for one wheel.
// The actuator runs the feedback loop on the setpoint; the feedforward is
// an additive bias.
type WheelController struct {
	cfg    Config
	conv   *geometry.EncoderConverter
	prev   float64
	primed bool
}

// NewWheelController creates a controller for one wheel.
func NewWheelController(cfg Config, conv *geometry.EncoderConverter) *WheelController {
	return &WheelController{cfg: cfg, conv: conv}
}

// Reset makes the next Compute behave like the first one.
func (w *WheelController) Reset() {
	w.primed = false
	w.prev = 0
}

// Compute returns the command for target m/s given the measured wheel speed.
// The first call after construction or Reset seeds the previous velocity
// from measured and uses zero acceleration, as does any call with dt ≤ 0.
func (w *WheelController) Compute(target, measured float64, dt time.Duration) WheelCommand {
	target = math.Max(-w.cfg.MaxSpeed, math.Min(w.cfg.MaxSpeed, target))

	if !w.primed {
		w.prev = measured
		w.primed = true
		dt = 0
	}

	accel := 0.0
	if dt > 0 {
		accel = (target - w.prev) / dt.Seconds()
	}
	w.prev = target

	volts := w.cfg.Feedforward.Calculate(target, accel)
	return WheelCommand{
		Feedforward: volts / w.cfg.BatteryBudget,
		Setpoint:    w.conv.MPSToRate(target),
	}
}

// DriveController pairs the left and right wheel controllers.
type DriveController struct {
	Left  *WheelController
	Right *WheelController
}

// NewDriveController creates both wheel controllers.
func NewDriveController(cfg Config, conv *geometry.EncoderConverter) *DriveController {
	return &DriveController{
		Left:  NewWheelController(cfg, conv),
		Right: NewWheelController(cfg, conv),
	}
}

// Reset resets both sides.
func (d *DriveController) Reset() {
	d.Left.Reset()
	d.Right.Reset()
}

// Compute returns a velocity-mode command for the target wheel speeds.
func (d *DriveController) Compute(target, measured geometry.WheelSpeeds, dt time.Duration) motion.Command {
	l := d.Left.Compute(target.Left, measured.Left, dt)
	r := d.Right.Compute(target.Right, measured.Right, dt)
	debug.Verbose("Wheel setpoints: L=%.1f (ff %.3f) R=%.1f (ff %.3f)", l.Setpoint, l.Feedforward, r.Setpoint, r.Feedforward)
	return motion.Command{
		Mode:             motion.ModeVelocity,
		Left:             l.Setpoint,
		Right:            r.Setpoint,
		LeftFeedforward:  l.Feedforward,
		RightFeedforward: r.Feedforward,
	}
}
