package drive

import (
	"math"

	"github.com/cjeanneret/DriveGo/internal/config"
	"github.com/cjeanneret/DriveGo/internal/debug"
	"github.com/cjeanneret/DriveGo/internal/logic/motion"
)

const (
	quickStopThreshold = 0.2
	quickStopAlpha     = 0.1
)

// CurvatureDrive maps forward speed and rotation to left/right output.
// Without quick turn, rotation sets the path curvature so turning scales
// with speed; with quick turn, rotation spins the robot directly.
type CurvatureDrive struct {
	deadband       float64
	quickTurnBelow float64
	maxOutput      float64
	accumulator    float64
}

// NewCurvatureDrive creates a curvature drive from the manual settings.
func NewCurvatureDrive(cfg config.ManualConfig) *CurvatureDrive {
	return &CurvatureDrive{
		deadband:       cfg.Deadband,
		quickTurnBelow: cfg.QuickTurnBelow,
		maxOutput:      cfg.MaxOutput,
	}
}

// Drive returns left and right output in [-maxOutput, maxOutput].
// forward and rotation are in [-1, 1]; positive rotation turns clockwise.
// Quick turn is forced when forward is at or below the configured threshold.
func (c *CurvatureDrive) Drive(forward, rotation float64, quickTurn bool) (left, right float64) {
	if forward <= c.quickTurnBelow {
		quickTurn = true
	}

	forward = applyDeadband(limit(forward), c.deadband)
	rotation = applyDeadband(limit(rotation), c.deadband)

	var angular float64
	overPower := quickTurn
	if quickTurn {
		if math.Abs(forward) < quickStopThreshold {
			c.accumulator = (1-quickStopAlpha)*c.accumulator + quickStopAlpha*limit(rotation)*2
		}
		angular = rotation
	} else {
		angular = math.Abs(forward)*rotation - c.accumulator
		switch {
		case c.accumulator > 1:
			c.accumulator--
		case c.accumulator < -1:
			c.accumulator++
		default:
			c.accumulator = 0
		}
	}

	left = forward + angular
	right = forward - angular

	if overPower {
		switch {
		case left > 1:
			right -= left - 1
			left = 1
		case right > 1:
			left -= right - 1
			right = 1
		case left < -1:
			right -= left + 1
			left = -1
		case right < -1:
			left -= right + 1
			right = -1
		}
	}

	if m := math.Max(math.Abs(left), math.Abs(right)); m > 1 {
		left /= m
		right /= m
	}
	return left * c.maxOutput, right * c.maxOutput
}

// Reset clears the quick-stop accumulator.
func (c *CurvatureDrive) Reset() {
	c.accumulator = 0
}

func limit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

func applyDeadband(v, deadband float64) float64 {
	if math.Abs(v) <= deadband {
		return 0
	}
	if v > 0 {
		return (v - deadband) / (1 - deadband)
	}
	return (v + deadband) / (1 - deadband)
}

// Manual is the joystick controller. It runs until stopped.
type Manual struct {
	drive *CurvatureDrive
}

// NewManual creates the joystick controller.
func NewManual(cfg config.ManualConfig) *Manual {
	return &Manual{drive: NewCurvatureDrive(cfg)}
}

func (m *Manual) Name() string { return "manual" }

func (m *Manual) Start(motion.Inputs) error {
	m.drive.Reset()
	return nil
}

func (m *Manual) Tick(in motion.Inputs) (motion.Command, bool) {
	l, r := m.drive.Drive(in.Stick.Forward, in.Stick.Rotation, in.Stick.QuickTurn)
	return motion.Percent(l, r), false
}

func (m *Manual) Stop() motion.Command {
	debug.Controller(m.Name(), "stopping")
	return motion.Neutral()
}
