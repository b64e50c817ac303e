package geometry

import "math"

// WheelSpeeds holds left and right wheel velocities in meters per second.
type WheelSpeeds struct {
	Left  float64
	Right float64
}

// Clamp limits both wheels to ±max independently.
func (w WheelSpeeds) Clamp(max float64) WheelSpeeds {
	return WheelSpeeds{
		Left:  math.Max(-max, math.Min(max, w.Left)),
		Right: math.Max(-max, math.Min(max, w.Right)),
	}
}

// ChassisSpeeds is the robot's body velocity: Linear in m/s (forward
// positive) and Angular in rad/s (counter-clockwise positive).
type ChassisSpeeds struct {
	Linear  float64
	Angular float64
}

// Kinematics converts between chassis and wheel speeds for a differential drive.
type Kinematics struct {
	TrackWidth float64
}

// ToWheelSpeeds returns the wheel speeds producing the given chassis motion.
func (k Kinematics) ToWheelSpeeds(c ChassisSpeeds) WheelSpeeds {
	return WheelSpeeds{
		Left:  c.Linear - c.Angular*k.TrackWidth/2,
		Right: c.Linear + c.Angular*k.TrackWidth/2,
	}
}

// ToChassisSpeeds is the inverse of ToWheelSpeeds.
func (k Kinematics) ToChassisSpeeds(w WheelSpeeds) ChassisSpeeds {
	return ChassisSpeeds{
		Linear:  (w.Left + w.Right) / 2,
		Angular: (w.Right - w.Left) / k.TrackWidth,
	}
}
