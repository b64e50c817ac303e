package ramsete

import (
	"github.com/cjeanneret/DriveGo/internal/debug"
	"github.com/cjeanneret/DriveGo/internal/logic/drive"
	"github.com/cjeanneret/DriveGo/internal/logic/geometry"
	"github.com/cjeanneret/DriveGo/internal/logic/motion"
	"github.com/cjeanneret/DriveGo/internal/logic/trajectory"
)

// Tracker follows a trajectory with RAMSETE feedback and per-wheel velocity
// control. Without a trajectory it only emits neutral and finishes at once.
type Tracker struct {
	ramsete Ramsete
	kin     geometry.Kinematics
	wheels  *drive.DriveController
	traj    *trajectory.Trajectory

	cursor  int
	elapsed float64
	ref     trajectory.State
}

// NewTracker creates a tracker for traj, which may be nil.
func NewTracker(cfg Config, wheels *drive.DriveController, traj *trajectory.Trajectory) *Tracker {
	return &Tracker{
		ramsete: Ramsete{B: cfg.B, Zeta: cfg.Zeta},
		kin:     geometry.Kinematics{TrackWidth: cfg.TrackWidth},
		wheels:  wheels,
		traj:    traj,
	}
}

func (t *Tracker) Name() string { return "ramsete" }

func (t *Tracker) Start(in motion.Inputs) error {
	t.cursor = 1
	t.elapsed = 0
	t.wheels.Reset()
	if t.traj == nil {
		debug.Live("Tracker started without a trajectory")
		return nil
	}
	debug.Live("Tracker started: %d states, %.2fs", t.traj.Len(), t.traj.TotalTime())
	return nil
}

// Tick samples the reference at the elapsed time and returns the wheel
// command. Time never moves backwards. The tracker reports done on the tick
// that reaches the trajectory duration; if ticked further it keeps tracking
// the final state.
func (t *Tracker) Tick(in motion.Inputs) (motion.Command, bool) {
	if t.traj == nil {
		return motion.Neutral(), true
	}

	if sec := in.Time.Seconds(); sec > t.elapsed {
		t.elapsed = sec
	}
	t.ref, t.cursor = t.traj.SampleFrom(t.cursor, t.elapsed)

	speeds := t.ramsete.Calculate(in.Pose, t.ref)
	target := t.kin.ToWheelSpeeds(speeds)
	debug.Verbose("Tracker t=%.2fs ref=(%.3f, %.3f) v=%.2f w=%.2f", t.elapsed, t.ref.Pose.X(), t.ref.Pose.Y(), speeds.Linear, speeds.Angular)

	cmd := t.wheels.Compute(target, in.Measured, in.Dt)
	return cmd, t.elapsed >= t.traj.TotalTime()
}

func (t *Tracker) Stop() motion.Command {
	debug.Controller(t.Name(), "stopping")
	return motion.Neutral()
}

// Reference returns the last sampled reference state.
func (t *Tracker) Reference() trajectory.State {
	return t.ref
}
