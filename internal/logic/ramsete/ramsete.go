// Package ramsete implements the RAMSETE nonlinear trajectory tracker for a
// differential drive.
package ramsete

import (
	"math"

	"github.com/cjeanneret/DriveGo/internal/config"
	"github.com/cjeanneret/DriveGo/internal/logic/geometry"
	"github.com/cjeanneret/DriveGo/internal/logic/trajectory"
)

// Config holds the tracker gains and the drivetrain geometry.
type Config struct {
	B          float64 // > 0, aggressiveness on position error
	Zeta       float64 // damping, 0 < Zeta < 1 underdamped
	TrackWidth float64 // meters
}

// ConfigFrom extracts the tracker settings.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		B:          cfg.Ramsete.B,
		Zeta:       cfg.Ramsete.Zeta,
		TrackWidth: cfg.Drivetrain.TrackWidthM,
	}
}

// Ramsete computes corrected chassis speeds from the pose error.
type Ramsete struct {
	B    float64
	Zeta float64
}

// Calculate returns the chassis speeds that drive current toward ref.
// The error is ref expressed in the robot frame: x along the heading,
// y to the left, theta counter-clockwise.
func (r Ramsete) Calculate(current geometry.Pose, ref trajectory.State) geometry.ChassisSpeeds {
	e := ref.Pose.RelativeTo(current)
	ex, ey, eTheta := e.X(), e.Y(), e.Heading

	vRef := ref.Velocity
	omegaRef := ref.AngularVelocity()

	k := 2 * r.Zeta * math.Sqrt(omegaRef*omegaRef+r.B*vRef*vRef)
	return geometry.ChassisSpeeds{
		Linear:  vRef*math.Cos(eTheta) + k*ex,
		Angular: omegaRef + k*eTheta + r.B*vRef*sinc(eTheta)*ey,
	}
}

func sinc(x float64) float64 {
	if math.Abs(x) < 1e-9 {
		return 1 - x*x/6
	}
	return math.Sin(x) / x
}
