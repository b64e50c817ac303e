package geometry

import (
	"fmt"
	"math"

	"github.com/cjeanneret/DriveGo/internal/config"
)

// TargetRange estimates the floor distance to a vision target from the
// vertical angle reported by a fixed camera.
type TargetRange struct {
	mountHeight  float64
	mountAngle   float64 // radians above the horizon
	targetHeight float64
}

// NewTargetRange creates a range estimator from the camera mount configuration.
// Returns an error if camera and target heights coincide (no parallax).
func NewTargetRange(cfg *config.Config) (*TargetRange, error) {
	if math.Abs(cfg.Vision.TargetHeightM-cfg.Vision.MountHeightM) < 1e-6 {
		return nil, fmt.Errorf("target height must differ from camera mount height")
	}
	return &TargetRange{
		mountHeight:  cfg.Vision.MountHeightM,
		mountAngle:   cfg.CameraMountAngleRad(),
		targetHeight: cfg.Vision.TargetHeightM,
	}, nil
}

// Distance returns the distance in meters for a target seen angleYDeg above
// the crosshair. ok is false when the geometry puts the target at or behind
// the horizon.
// Formula: d = (h_target - h_camera) / tan(mount_angle + angle_y)
func (r *TargetRange) Distance(angleYDeg float64) (float64, bool) {
	tan := math.Tan(r.mountAngle + Radians(angleYDeg))
	d := (r.targetHeight - r.mountHeight) / tan
	if math.IsInf(d, 0) || math.IsNaN(d) || d <= 0 {
		return 0, false
	}
	return d, true
}
