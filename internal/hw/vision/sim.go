package vision

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/cjeanneret/DriveGo/internal/logic/geometry"
)

// SimCamera computes what a fixed forward-facing camera would report for a
// target at a known field position.
type SimCamera struct {
	Target       r2.Vec  // field position of the target, meters
	TargetHeight float64 // meters above the floor
	MountHeight  float64 // camera lens height, meters
	MountAngle   float64 // camera pitch above horizontal, radians
	HalfFOV      float64 // half the horizontal field of view, radians
}

// Frame returns the target record seen from pose. The target is invalid when
// it is behind the camera or outside the horizontal field of view.
func (c SimCamera) Frame(pose geometry.Pose) Target {
	local := r2.Rotate(r2.Sub(c.Target, pose.Translation), -pose.Heading, r2.Vec{})
	if local.X <= 0 {
		return Target{}
	}
	bearing := math.Atan2(local.Y, local.X) // counter-clockwise positive
	if math.Abs(bearing) > c.HalfFOV {
		return Target{}
	}
	dist := r2.Norm(local)
	elevation := math.Atan2(c.TargetHeight-c.MountHeight, dist) - c.MountAngle
	return Target{
		AngleX: -geometry.Degrees(bearing),
		AngleY: geometry.Degrees(elevation),
		Valid:  true,
	}
}

// SimSource feeds SimCamera frames for the current pose into a Latest
// holder while the distance pipeline is selected.
type SimSource struct {
	Camera SimCamera
	Pose   func() geometry.Pose
	Latest *Latest
}

// Snapshot renders a frame for the current pose and returns it.
func (s *SimSource) Snapshot() Target {
	if s.Latest.Pipeline() == PipelineDistance {
		s.Latest.Publish(s.Camera.Frame(s.Pose()))
	}
	return s.Latest.Snapshot()
}
