// Package odometry tracks the robot pose from encoder distances and a gyro.
package odometry

import (
	"math"
	"sync"

	"github.com/cjeanneret/DriveGo/internal/debug"
	"github.com/cjeanneret/DriveGo/internal/logic/geometry"
)

// Estimator integrates wheel travel and gyro heading into a field pose.
// Safe for concurrent use: the control loop updates it while the web
// layer reads it.
type Estimator struct {
	mu         sync.RWMutex
	trackWidth float64
	pose       geometry.Pose
	gyroOffset float64 // radians added to the gyro reading
	offsetSet  bool    // false until a valid gyro sample anchors gyroOffset
	prevLeft   float64
	prevRight  float64
}

// New creates an estimator at the origin with the gyro reading 0.
func New(trackWidth float64) *Estimator {
	return &Estimator{trackWidth: trackWidth, offsetSet: true}
}

// Reset puts the estimator at pose, assuming encoder distances are 0.
// gyroDeg is the gyro reading at the moment of the reset.
func (e *Estimator) Reset(pose geometry.Pose, gyroDeg float64) {
	e.ResetAt(pose, gyroDeg, 0, 0)
}

// ResetAt puts the estimator at pose with the given encoder distances as the
// new reference. A NaN gyroDeg leaves the offset unset until the first valid
// sample, which is then anchored to the wheel-derived heading.
func (e *Estimator) ResetAt(pose geometry.Pose, gyroDeg, leftM, rightM float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pose = pose
	e.offsetSet = !math.IsNaN(gyroDeg)
	if e.offsetSet {
		e.gyroOffset = pose.Heading - geometry.Radians(gyroDeg)
	} else {
		e.gyroOffset = 0
	}
	e.prevLeft = leftM
	e.prevRight = rightM
	debug.Pose("Odometry reset", pose.X(), pose.Y(), pose.Heading)
}

// Update integrates one sample: gyro heading in degrees (counter-clockwise
// positive) and cumulative wheel distances in meters. Returns the new pose.
//
// A NaN gyro sample is treated as a dropout: heading change for that tick is
// taken from the wheel difference. The offset is left untouched, so the next
// valid gyro sample is authoritative again.
func (e *Estimator) Update(gyroDeg, leftM, rightM float64) geometry.Pose {
	e.mu.Lock()
	defer e.mu.Unlock()

	dLeft := leftM - e.prevLeft
	dRight := rightM - e.prevRight
	e.prevLeft = leftM
	e.prevRight = rightM

	var heading float64
	switch {
	case math.IsNaN(gyroDeg):
		heading = geometry.NormalizeAngle(e.pose.Heading + (dRight-dLeft)/e.trackWidth)
		debug.Trace("Gyro dropout, wheel-derived heading %.4f rad", heading)
	case !e.offsetSet:
		heading = geometry.NormalizeAngle(e.pose.Heading + (dRight-dLeft)/e.trackWidth)
		e.gyroOffset = heading - geometry.Radians(gyroDeg)
		e.offsetSet = true
		debug.Trace("Gyro offset anchored at %.4f rad", e.gyroOffset)
	default:
		heading = geometry.NormalizeAngle(geometry.Radians(gyroDeg) + e.gyroOffset)
	}

	twist := geometry.Twist{
		Dx:     (dLeft + dRight) / 2,
		DTheta: geometry.NormalizeAngle(heading - e.pose.Heading),
	}
	next := e.pose.Exp(twist)
	next.Heading = heading
	e.pose = next
	return next
}

// Pose returns the current estimate.
func (e *Estimator) Pose() geometry.Pose {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pose
}
