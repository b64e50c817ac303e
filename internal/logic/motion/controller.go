// Package motion defines the contract shared by every drive controller and
// the loop that runs one of them at a time against the drivetrain.
package motion

import (
	"fmt"
	"math"
	"time"

	"github.com/cjeanneret/DriveGo/internal/hw/vision"
	"github.com/cjeanneret/DriveGo/internal/logic/geometry"
)

// Mode selects how a Command is applied to the drivetrain.
type Mode int

const (
	// ModeNeutral stops both wheels.
	ModeNeutral Mode = iota
	// ModeVelocity is closed-loop velocity: Left/Right are native rate
	// setpoints, the feedforward fields are additive fractions of the
	// battery budget.
	ModeVelocity
	// ModePercent is open-loop output, Left/Right in [-1, 1].
	ModePercent
)

func (m Mode) String() string {
	switch m {
	case ModeNeutral:
		return "neutral"
	case ModeVelocity:
		return "velocity"
	case ModePercent:
		return "percent"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Command is one tick of drivetrain output.
type Command struct {
	Mode             Mode    `json:"mode"`
	Left             float64 `json:"left"`
	Right            float64 `json:"right"`
	LeftFeedforward  float64 `json:"left_ff,omitempty"`
	RightFeedforward float64 `json:"right_ff,omitempty"`
}

// Neutral returns the stop command.
func Neutral() Command {
	return Command{Mode: ModeNeutral}
}

// Percent returns an open-loop command with both sides clamped to [-1, 1].
func Percent(left, right float64) Command {
	return Command{Mode: ModePercent, Left: clampUnit(left), Right: clampUnit(right)}
}

func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

// Stick is the driver joystick state.
type Stick struct {
	Forward   float64 `json:"forward"`  // [-1, 1], positive forward
	Rotation  float64 `json:"rotation"` // [-1, 1], positive clockwise
	QuickTurn bool    `json:"quick_turn"`
}

// Inputs is everything a controller may read during one tick.
type Inputs struct {
	Time     time.Duration // elapsed since the controller was started
	Dt       time.Duration // since the previous tick, 0 on the first
	Pose     geometry.Pose
	Measured geometry.WheelSpeeds
	Target   vision.Target
	Stick    Stick
}

// Controller is a drive behavior run one tick at a time. Implementations are
// not safe for concurrent use; the Runner calls them from a single goroutine.
type Controller interface {
	// Name identifies the controller in logs and ownership tokens.
	Name() string
	// Start is called once before the first Tick.
	Start(in Inputs) error
	// Tick computes the command for this period and whether the controller
	// has finished.
	Tick(in Inputs) (Command, bool)
	// Stop releases any collaborator state and returns the final command,
	// which must be neutral.
	Stop() Command
}
