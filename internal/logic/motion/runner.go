package motion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cjeanneret/DriveGo/internal/debug"
	"github.com/cjeanneret/DriveGo/internal/hw/drivetrain"
	"github.com/cjeanneret/DriveGo/internal/hw/vision"
	"github.com/cjeanneret/DriveGo/internal/logic/geometry"
	"github.com/cjeanneret/DriveGo/internal/logic/odometry"
)

// Sensors is the drivetrain input side.
type Sensors interface {
	ReadSensors() (drivetrain.Reading, error)
}

// Reason tells why a run ended.
type Reason string

const (
	ReasonDone      Reason = "done"
	ReasonTimeout   Reason = "timeout"
	ReasonCancelled Reason = "cancelled"
	ReasonError     Reason = "error"
)

// Result summarizes one controller run.
type Result struct {
	Controller string        `json:"controller"`
	Reason     Reason        `json:"reason"`
	Ticks      int           `json:"ticks"`
	Elapsed    time.Duration `json:"elapsed"`
	Pose       geometry.Pose `json:"-"`
}

// Sample is published after every tick.
type Sample struct {
	Controller string
	Time       time.Duration
	Pose       geometry.Pose
	Measured   geometry.WheelSpeeds
	Target     vision.Target
	Command    Command
}

// Step is one controller of a sequence.
type Step struct {
	Controller Controller
	Timeout    time.Duration  // 0 = no timeout
	ResetPose  *geometry.Pose // reset odometry to this pose before starting
}

// RunnerDeps are the collaborators of a Runner.
type RunnerDeps struct {
	Lock      *DriveLock
	Sensors   Sensors
	Odometry  *odometry.Estimator
	Converter *geometry.EncoderConverter
	Clock     Clock
	Vision    vision.Source // optional
	Stick     *StickLatch   // optional
}

// Runner runs controllers one at a time at a fixed period. It owns the
// odometry update: each tick reads the sensors, updates the pose, ticks the
// controller and applies its command under the drive lock.
type Runner struct {
	deps     RunnerDeps
	onSample func(Sample)
}

// NewRunner checks the required collaborators.
func NewRunner(deps RunnerDeps) (*Runner, error) {
	if deps.Lock == nil || deps.Sensors == nil || deps.Odometry == nil || deps.Converter == nil || deps.Clock == nil {
		return nil, errors.New("runner requires lock, sensors, odometry, converter and clock")
	}
	return &Runner{deps: deps}, nil
}

// OnSample registers a callback invoked after every tick from the loop goroutine.
func (r *Runner) OnSample(fn func(Sample)) {
	r.onSample = fn
}

// RunSequence runs the steps in order and stops at the first step that
// does not finish on its own or by timeout.
func (r *Runner) RunSequence(ctx context.Context, steps []Step) ([]Result, error) {
	results := make([]Result, 0, len(steps))
	for i, s := range steps {
		debug.Step(i+1, s.Controller.Name())
		res, err := r.Run(ctx, s)
		results = append(results, res)
		if err != nil {
			return results, fmt.Errorf("step %d (%s): %w", i+1, s.Controller.Name(), err)
		}
	}
	return results, nil
}

// Run acquires the drivetrain and runs one controller until it reports done,
// the step timeout expires or ctx is cancelled. The controller's final
// neutral command is always applied before the drivetrain is released.
// Cancellation is reported in the Result, not as an error.
func (r *Runner) Run(ctx context.Context, step Step) (res Result, err error) {
	c := step.Controller
	res.Controller = c.Name()

	token, err := r.deps.Lock.Acquire(c.Name())
	if err != nil {
		res.Reason = ReasonError
		return res, err
	}
	defer func() {
		final := c.Stop()
		if applyErr := r.deps.Lock.Apply(token, final); applyErr != nil && err == nil {
			err = fmt.Errorf("apply final command: %w", applyErr)
			res.Reason = ReasonError
		}
		if relErr := r.deps.Lock.Release(token); relErr != nil && err == nil {
			err = relErr
		}
		debug.Controller(c.Name(), string(res.Reason))
		debug.Pose("Final pose", res.Pose.X(), res.Pose.Y(), res.Pose.Heading)
	}()

	if step.ResetPose != nil {
		if err = r.resetOdometry(*step.ResetPose); err != nil {
			res.Reason = ReasonError
			return res, err
		}
	}

	in, err := r.inputs(0, 0)
	if err != nil {
		res.Reason = ReasonError
		return res, err
	}
	if err = c.Start(in); err != nil {
		res.Reason = ReasonError
		return res, fmt.Errorf("start %s: %w", c.Name(), err)
	}
	debug.Controller(c.Name(), "started")

	r.deps.Clock.Reset()
	for {
		cmd, done := c.Tick(in)
		if err = r.deps.Lock.Apply(token, cmd); err != nil {
			res.Reason = ReasonError
			return res, fmt.Errorf("apply command: %w", err)
		}
		res.Ticks++
		res.Elapsed = in.Time
		res.Pose = in.Pose
		r.publish(c.Name(), in, cmd)

		if done {
			res.Reason = ReasonDone
			return res, nil
		}
		if step.Timeout > 0 && in.Time >= step.Timeout {
			res.Reason = ReasonTimeout
			debug.Live("%s timed out after %v", c.Name(), step.Timeout)
			return res, nil
		}

		elapsed, waitErr := r.deps.Clock.Wait(ctx)
		if waitErr != nil {
			res.Reason = ReasonCancelled
			return res, nil
		}
		if in, err = r.inputs(elapsed, elapsed-in.Time); err != nil {
			res.Reason = ReasonError
			return res, err
		}
	}
}

func (r *Runner) resetOdometry(pose geometry.Pose) error {
	reading, err := r.deps.Sensors.ReadSensors()
	if err != nil {
		return fmt.Errorf("read sensors: %w", err)
	}
	conv := r.deps.Converter
	r.deps.Odometry.ResetAt(pose, reading.HeadingDeg,
		conv.TicksToMeters(float64(reading.LeftTicks)),
		conv.TicksToMeters(float64(reading.RightTicks)))
	return nil
}

func (r *Runner) inputs(elapsed, dt time.Duration) (Inputs, error) {
	reading, err := r.deps.Sensors.ReadSensors()
	if err != nil {
		return Inputs{}, fmt.Errorf("read sensors: %w", err)
	}
	conv := r.deps.Converter
	in := Inputs{
		Time: elapsed,
		Dt:   dt,
		Pose: r.deps.Odometry.Update(reading.HeadingDeg,
			conv.TicksToMeters(float64(reading.LeftTicks)),
			conv.TicksToMeters(float64(reading.RightTicks))),
		Measured: conv.WheelSpeeds(reading.LeftRate, reading.RightRate),
	}
	if r.deps.Vision != nil {
		in.Target = r.deps.Vision.Snapshot()
	}
	if r.deps.Stick != nil {
		in.Stick = r.deps.Stick.Get()
	}
	return in, nil
}

func (r *Runner) publish(name string, in Inputs, cmd Command) {
	if debug.IsEnabled(debug.LevelVerbose) {
		debug.Wheels(debug.Fmt("%s t=%.2fs", name, in.Time.Seconds()), cmd.Left, cmd.Right)
	}
	if r.onSample == nil {
		return
	}
	r.onSample(Sample{
		Controller: name,
		Time:       in.Time,
		Pose:       in.Pose,
		Measured:   in.Measured,
		Target:     in.Target,
		Command:    cmd,
	})
}
