// Package trajectory holds time-indexed reference paths for the tracker.
package trajectory

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/cjeanneret/DriveGo/internal/logic/geometry"
)

var (
	// ErrEmpty is returned for a trajectory without states.
	ErrEmpty = errors.New("trajectory has no states")
	// ErrNotMonotonic is returned when state times decrease.
	ErrNotMonotonic = errors.New("trajectory times are not monotonic")
)

const timeEpsilon = 1e-9

// State is one reference point of a trajectory.
type State struct {
	Time         float64 // seconds since trajectory start
	Pose         geometry.Pose
	Velocity     float64 // m/s, negative when driving backwards
	Acceleration float64 // m/s²
	Curvature    float64 // rad/m
}

// AngularVelocity returns the reference turn rate in rad/s.
func (s State) AngularVelocity() float64 {
	return s.Velocity * s.Curvature
}

// interpolate moves from s toward end by frac of the time between them,
// advancing the pose by the kinematic distance covered.
func (s State) interpolate(end State, frac float64) State {
	newT := s.Time + (end.Time-s.Time)*frac
	deltaT := newT - s.Time
	if deltaT < 0 {
		return end.interpolate(s, 1-frac)
	}

	reversing := s.Velocity < 0 || (s.Velocity == 0 && s.Acceleration < 0)
	newV := s.Velocity + s.Acceleration*deltaT
	newS := s.Velocity*deltaT + 0.5*s.Acceleration*deltaT*deltaT
	if reversing {
		newS = -newS
	}

	poseFrac := frac
	if dist := s.Pose.Distance(end.Pose); dist > timeEpsilon {
		poseFrac = newS / dist
	}

	return State{
		Time:         newT,
		Velocity:     newV,
		Acceleration: s.Acceleration,
		Pose:         s.Pose.Lerp(end.Pose, poseFrac),
		Curvature:    s.Curvature + (end.Curvature-s.Curvature)*frac,
	}
}

// Trajectory is an immutable, time-ordered list of states.
type Trajectory struct {
	states []State
}

// New validates and copies states into a Trajectory.
func New(states []State) (*Trajectory, error) {
	if len(states) == 0 {
		return nil, ErrEmpty
	}
	for i := 1; i < len(states); i++ {
		if states[i].Time < states[i-1].Time {
			return nil, fmt.Errorf("%w: state %d at %.3fs after %.3fs", ErrNotMonotonic, i, states[i].Time, states[i-1].Time)
		}
	}
	for i, s := range states {
		if math.IsNaN(s.Time) || math.IsNaN(s.Velocity) || math.IsNaN(s.Pose.X()) || math.IsNaN(s.Pose.Y()) {
			return nil, fmt.Errorf("state %d contains NaN", i)
		}
	}
	cp := make([]State, len(states))
	copy(cp, states)
	return &Trajectory{states: cp}, nil
}

// States returns a copy of the states.
func (t *Trajectory) States() []State {
	cp := make([]State, len(t.states))
	copy(cp, t.states)
	return cp
}

// Len returns the number of states.
func (t *Trajectory) Len() int { return len(t.states) }

// TotalTime returns the duration in seconds.
func (t *Trajectory) TotalTime() float64 {
	return t.states[len(t.states)-1].Time
}

// InitialPose returns the pose of the first state.
func (t *Trajectory) InitialPose() geometry.Pose {
	return t.states[0].Pose
}

// Sample returns the interpolated state at time sec. Times before the start
// or after the end return the first or last state.
func (t *Trajectory) Sample(sec float64) State {
	s, _ := t.SampleFrom(1, sec)
	return s
}

// SampleFrom is Sample with the search starting at index from. It returns
// the index of the upper bracketing state, to pass back on the next call
// when sample times only increase.
func (t *Trajectory) SampleFrom(from int, sec float64) (State, int) {
	n := len(t.states)
	if sec <= t.states[0].Time {
		return t.states[0], 1
	}
	if sec >= t.TotalTime() {
		return t.states[n-1], n - 1
	}

	low := from
	if low < 1 {
		low = 1
	}
	if low > n-1 || t.states[low-1].Time >= sec {
		low = 1
	}
	high := n - 1
	for low != high {
		mid := (low + high) / 2
		if t.states[mid].Time < sec {
			low = mid + 1
		} else {
			high = mid
		}
	}

	upper := t.states[low]
	prev := t.states[low-1]
	if scalar.EqualWithinAbs(upper.Time, prev.Time, timeEpsilon) {
		return upper, low
	}
	return prev.interpolate(upper, (sec-prev.Time)/(upper.Time-prev.Time)), low
}
