package main

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/cjeanneret/DriveGo/internal/config"
	"github.com/cjeanneret/DriveGo/internal/debug"
	"github.com/cjeanneret/DriveGo/internal/hw/drivetrain"
	"github.com/cjeanneret/DriveGo/internal/hw/gpio"
	"github.com/cjeanneret/DriveGo/internal/hw/vision"
	"github.com/cjeanneret/DriveGo/internal/logic/align"
	"github.com/cjeanneret/DriveGo/internal/logic/drive"
	"github.com/cjeanneret/DriveGo/internal/logic/geometry"
	"github.com/cjeanneret/DriveGo/internal/logic/motion"
	"github.com/cjeanneret/DriveGo/internal/logic/odometry"
	"github.com/cjeanneret/DriveGo/internal/logic/ramsete"
	"github.com/cjeanneret/DriveGo/internal/logic/trajectory"
	"github.com/cjeanneret/DriveGo/internal/web"
)

// defaultStraightDistanceM is driven when a straight routine names no distance.
const defaultStraightDistanceM = -4.0

// simTarget is the field position of the simulated vision target.
var simTarget = r2.Vec{X: 5, Y: 1}

// robot wires the simulated drivetrain, vision and controllers together.
type robot struct {
	cfg      *config.Config
	pathsDir string

	sim      *drivetrain.Sim
	odo      *odometry.Estimator
	conv     *geometry.EncoderConverter
	pipeline vision.Switchers
	ranger   *geometry.TargetRange
	runner   *motion.Runner
	stick    *motion.StickLatch

	telemetry *web.Telemetry // optional
}

// newRobot builds the drive stack. clockFor picks real-time or instant pacing
// for the simulated plant.
func newRobot(cfg *config.Config, g gpio.Driver, pathsDir string, clockFor func(motion.Plant) motion.Clock) (*robot, error) {
	conv := geometry.NewEncoderConverter(cfg)
	sim, err := drivetrain.NewSim(drivetrain.SimConfig{
		TrackWidth:  cfg.Drivetrain.TrackWidthM,
		MaxSpeedMps: cfg.Drivetrain.MaxSpeedMps,
		Converter:   conv,
	})
	if err != nil {
		return nil, fmt.Errorf("create drivetrain: %w", err)
	}
	ranger, err := geometry.NewTargetRange(cfg)
	if err != nil {
		return nil, fmt.Errorf("create target range: %w", err)
	}

	odo := odometry.New(cfg.Drivetrain.TrackWidthM)
	latest := &vision.Latest{}
	source := &vision.SimSource{
		Camera: vision.SimCamera{
			Target:       simTarget,
			TargetHeight: cfg.Vision.TargetHeightM,
			MountHeight:  cfg.Vision.MountHeightM,
			MountAngle:   cfg.CameraMountAngleRad(),
			HalfFOV:      geometry.Radians(cfg.Vision.HorizontalFOVDeg) / 2,
		},
		Pose:   sim.Pose,
		Latest: latest,
	}
	stick := &motion.StickLatch{}

	runner, err := motion.NewRunner(motion.RunnerDeps{
		Lock:      motion.NewDriveLock(sim),
		Sensors:   sim,
		Odometry:  odo,
		Converter: conv,
		Clock:     clockFor(sim),
		Vision:    source,
		Stick:     stick,
	})
	if err != nil {
		return nil, err
	}

	return &robot{
		cfg:      cfg,
		pathsDir: pathsDir,
		sim:      sim,
		odo:      odo,
		conv:     conv,
		pipeline: vision.Switchers{vision.NewRingLight(g, cfg.Vision.RingLightPin), latest},
		ranger:   ranger,
		runner:   runner,
		stick:    stick,
	}, nil
}

// record routes runner samples to the telemetry recorder.
func (r *robot) record(t *web.Telemetry) {
	r.telemetry = t
	r.runner.OnSample(t.Record)
}

// run executes one routine and returns the per-step results.
func (r *robot) run(ctx context.Context, req web.RunRequest) ([]motion.Result, error) {
	step, traj, err := r.plan(req)
	if err != nil {
		return nil, err
	}
	if r.telemetry != nil {
		r.telemetry.Begin(traj)
	}
	results, err := r.runner.RunSequence(ctx, []motion.Step{step})
	if a, ok := step.Controller.(*align.Aligner); ok {
		debug.PrintStruct("Alignment status", a.Status())
	}
	return results, err
}

// plan builds the controller for req. traj is nil for routines that do not
// follow a trajectory.
func (r *robot) plan(req web.RunRequest) (motion.Step, *trajectory.Trajectory, error) {
	step := motion.Step{Timeout: req.Timeout()}
	switch req.Routine {
	case web.RoutineStraight:
		dist := req.DistanceM
		if dist == 0 {
			dist = defaultStraightDistanceM
		}
		start := r.odo.Pose()
		traj, err := trajectory.StraightFromConfig(r.cfg, start, dist)
		if err != nil {
			return step, nil, err
		}
		step.Controller = r.tracker(traj)
		step.ResetPose = &start
		return step, traj, nil

	case web.RoutinePath:
		traj, err := trajectory.LoadNamed(r.pathsDir, req.Path)
		if err != nil {
			return step, nil, err
		}
		start := traj.InitialPose()
		r.sim.Place(start)
		step.Controller = r.tracker(traj)
		step.ResetPose = &start
		return step, traj, nil

	case web.RoutineAlign:
		cfg := align.ConfigFrom(r.cfg)
		if req.RunForever != nil {
			cfg.RunForever = *req.RunForever
		}
		step.Controller = align.New(cfg, r.pipeline, r.ranger)
		return step, nil, nil

	case web.RoutineManual:
		step.Controller = drive.NewManual(r.cfg.Manual)
		return step, nil, nil
	}
	return step, nil, fmt.Errorf("unknown routine %q", req.Routine)
}

func (r *robot) tracker(traj *trajectory.Trajectory) *ramsete.Tracker {
	wheels := drive.NewDriveController(drive.ConfigFrom(r.cfg), r.conv)
	return ramsete.NewTracker(ramsete.ConfigFrom(r.cfg), wheels, traj)
}

// endless reports whether req can only end by timeout or cancellation.
func endless(cfg *config.Config, req web.RunRequest) bool {
	switch req.Routine {
	case web.RoutineManual:
		return true
	case web.RoutineAlign:
		if req.RunForever != nil {
			return *req.RunForever
		}
		return cfg.Vision.RunForever
	}
	return false
}

// summarize logs the outcome of a run.
func summarize(results []motion.Result) {
	debug.Summary("Run Summary")
	for _, res := range results {
		debug.Info("%s: %s after %d ticks (%.2fs)", res.Controller, res.Reason, res.Ticks, res.Elapsed.Seconds())
	}
}
