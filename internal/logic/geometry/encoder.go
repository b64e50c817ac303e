package geometry

import (
	"time"

	"github.com/cjeanneret/DriveGo/internal/config"
)

// EncoderConverter maps encoder ticks to wheel rotations and linear distance,
// and native velocity units (ticks per velocity period) to meters per second.
type EncoderConverter struct {
	ticksPerRotation float64
	circumference    float64
	periodsPerSecond float64
}

// NewEncoderConverter creates a converter from configuration.
func NewEncoderConverter(cfg *config.Config) *EncoderConverter {
	return NewEncoderConverterFrom(cfg.Drivetrain.TicksPerRotation, cfg.WheelCircumferenceM(), cfg.VelocityPeriod())
}

// NewEncoderConverterFrom creates a converter from raw parameters.
// ticksPerRotation, circumference and velocityPeriod must be non-zero.
func NewEncoderConverterFrom(ticksPerRotation int, circumference float64, velocityPeriod time.Duration) *EncoderConverter {
	return &EncoderConverter{
		ticksPerRotation: float64(ticksPerRotation),
		circumference:    circumference,
		periodsPerSecond: float64(time.Second) / float64(velocityPeriod),
	}
}

// TicksToRotations converts encoder ticks to wheel rotations.
func (e *EncoderConverter) TicksToRotations(ticks float64) float64 {
	return ticks / e.ticksPerRotation
}

// RotationsToTicks converts wheel rotations to encoder ticks.
func (e *EncoderConverter) RotationsToTicks(rotations float64) float64 {
	return rotations * e.ticksPerRotation
}

// TicksToMeters converts encoder ticks to distance travelled by the wheel.
func (e *EncoderConverter) TicksToMeters(ticks float64) float64 {
	return e.TicksToRotations(ticks) * e.circumference
}

// MetersToTicks converts wheel travel to encoder ticks.
func (e *EncoderConverter) MetersToTicks(meters float64) float64 {
	return e.RotationsToTicks(meters / e.circumference)
}

// RateToMPS converts a native velocity (ticks per velocity period) to m/s.
func (e *EncoderConverter) RateToMPS(ticksPerPeriod float64) float64 {
	return e.TicksToMeters(ticksPerPeriod * e.periodsPerSecond)
}

// MPSToRate converts m/s to the native velocity unit.
func (e *EncoderConverter) MPSToRate(mps float64) float64 {
	return e.MetersToTicks(mps) / e.periodsPerSecond
}

// WheelSpeeds converts a pair of native rates to wheel speeds.
func (e *EncoderConverter) WheelSpeeds(leftRate, rightRate float64) WheelSpeeds {
	return WheelSpeeds{Left: e.RateToMPS(leftRate), Right: e.RateToMPS(rightRate)}
}
