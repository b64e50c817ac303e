package trajectory

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/cjeanneret/DriveGo/internal/config"
	"github.com/cjeanneret/DriveGo/internal/logic/geometry"
)

// SampleStep is the time between generated states.
const SampleStep = 0.02

// Profile is a trapezoidal velocity profile over a distance.
type Profile struct {
	Distance   float64 // meters, always positive
	PeakSpeed  float64 // m/s reached (below MaxSpeed for short moves)
	AccelTime  float64 // seconds spent accelerating (and decelerating)
	CruiseTime float64 // seconds at PeakSpeed
	Accel      float64
}

// TotalTime returns the profile duration in seconds.
func (p Profile) TotalTime() float64 {
	return 2*p.AccelTime + p.CruiseTime
}

// NewProfile plans the fastest trapezoid covering distance within the limits.
// When the distance is too short to reach maxSpeed the profile is triangular.
func NewProfile(distance, maxSpeed, maxAccel float64) (Profile, error) {
	if maxSpeed <= 0 || maxAccel <= 0 {
		return Profile{}, fmt.Errorf("invalid limits: speed=%v accel=%v", maxSpeed, maxAccel)
	}
	distance = math.Abs(distance)

	accelTime := maxSpeed / maxAccel
	accelDist := 0.5 * maxAccel * accelTime * accelTime
	peak := maxSpeed
	cruise := 0.0
	if 2*accelDist > distance {
		// Never reaches max speed
		accelTime = math.Sqrt(distance / maxAccel)
		peak = maxAccel * accelTime
	} else {
		cruise = (distance - 2*accelDist) / maxSpeed
	}

	return Profile{
		Distance:   distance,
		PeakSpeed:  peak,
		AccelTime:  accelTime,
		CruiseTime: cruise,
		Accel:      maxAccel,
	}, nil
}

// At returns distance travelled, speed and acceleration at time t.
func (p Profile) At(t float64) (dist, speed, accel float64) {
	switch {
	case t <= 0:
		return 0, 0, p.Accel
	case t < p.AccelTime:
		return 0.5 * p.Accel * t * t, p.Accel * t, p.Accel
	case t < p.AccelTime+p.CruiseTime:
		ramp := 0.5 * p.Accel * p.AccelTime * p.AccelTime
		return ramp + p.PeakSpeed*(t-p.AccelTime), p.PeakSpeed, 0
	case t < p.TotalTime():
		remaining := p.TotalTime() - t
		return p.Distance - 0.5*p.Accel*remaining*remaining, p.Accel * remaining, -p.Accel
	default:
		return p.Distance, 0, 0
	}
}

// Straight generates a straight trajectory from start along its heading.
// A negative distance drives backwards without turning around.
func Straight(start geometry.Pose, distance, maxSpeed, maxAccel float64) (*Trajectory, error) {
	profile, err := NewProfile(distance, maxSpeed, maxAccel)
	if err != nil {
		return nil, err
	}
	dir := 1.0
	if distance < 0 {
		dir = -1.0
	}
	heading := r2.Rotate(r2.Vec{X: 1}, start.Heading, r2.Vec{})

	total := profile.TotalTime()
	steps := int(math.Ceil(total/SampleStep - 1e-9))
	states := make([]State, 0, steps+1)
	for i := 0; i <= steps; i++ {
		t := math.Min(float64(i)*SampleStep, total)
		d, v, a := profile.At(t)
		if i == steps {
			a = 0
		}
		states = append(states, State{
			Time: t,
			Pose: geometry.Pose{
				Translation: r2.Add(start.Translation, r2.Scale(dir*d, heading)),
				Heading:     start.Heading,
			},
			Velocity:     dir * v,
			Acceleration: dir * a,
		})
	}
	return New(states)
}

// StraightFromConfig generates a straight trajectory with the drivetrain limits.
func StraightFromConfig(cfg *config.Config, start geometry.Pose, distance float64) (*Trajectory, error) {
	return Straight(start, distance, cfg.Drivetrain.MaxSpeedMps, cfg.Drivetrain.MaxAccelerationMps2)
}
