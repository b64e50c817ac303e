// Package align keeps the robot pointed at a vision target with a
// proportional steering loop.
package align

import (
	"fmt"
	"math"

	"github.com/cjeanneret/DriveGo/internal/config"
	"github.com/cjeanneret/DriveGo/internal/debug"
	"github.com/cjeanneret/DriveGo/internal/hw/vision"
	"github.com/cjeanneret/DriveGo/internal/logic/geometry"
	"github.com/cjeanneret/DriveGo/internal/logic/motion"
)

// State of the aligner.
type State int

const (
	Searching State = iota // no target seen this tick
	Aligning               // target visible, outside tolerance
	Settled                // within tolerance for SettleTicks consecutive ticks
)

func (s State) String() string {
	switch s {
	case Searching:
		return "SEARCHING"
	case Aligning:
		return "ALIGNING"
	case Settled:
		return "SETTLED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config is the alignment policy.
type Config struct {
	RotateGain   float64 // steer per degree of error
	ToleranceDeg float64
	MinCommand   float64 // steer magnitude floor while aligning
	SeekSpeed    float64 // steer magnitude while the target is lost
	SettleTicks  int
	RunForever   bool // never report completion
}

// ConfigFrom extracts the alignment policy.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		RotateGain:   cfg.Vision.RotateGain,
		ToleranceDeg: cfg.Vision.ToleranceDeg,
		MinCommand:   cfg.Vision.MinCommand,
		SeekSpeed:    cfg.Vision.SeekSpeed,
		SettleTicks:  cfg.Vision.SettleTicks,
		RunForever:   cfg.Vision.RunForever,
	}
}

// Status is a snapshot of the aligner for telemetry.
type Status struct {
	State       State   `json:"-"`
	StateName   string  `json:"state"`
	SettleCount int     `json:"settle_count"`
	LastAngle   float64 `json:"last_angle_deg"`
	HasTarget   bool    `json:"has_target"`
	DistanceM   float64 `json:"distance_m,omitempty"`
}

// Aligner steers toward the target: positive AngleX (target to the right)
// drives the left side forward and the right side back.
type Aligner struct {
	cfg      Config
	pipeline vision.PipelineSwitcher
	ranger   *geometry.TargetRange // optional

	state       State
	settleCount int
	last        vision.Target
	seen        bool
	distance    float64
}

// New creates an aligner. ranger may be nil when no distance estimate is wanted.
func New(cfg Config, pipeline vision.PipelineSwitcher, ranger *geometry.TargetRange) *Aligner {
	return &Aligner{cfg: cfg, pipeline: pipeline, ranger: ranger}
}

func (a *Aligner) Name() string { return "vision-align" }

// Start resets the settle loop and selects the distance pipeline.
func (a *Aligner) Start(motion.Inputs) error {
	a.state = Searching
	a.settleCount = 0
	a.last = vision.Target{}
	a.seen = false
	a.distance = 0
	if err := a.pipeline.SetPipeline(vision.PipelineDistance); err != nil {
		return fmt.Errorf("select distance pipeline: %w", err)
	}
	debug.Controller(a.Name(), "distance pipeline selected")
	return nil
}

// Tick returns the steering command for this frame.
func (a *Aligner) Tick(in motion.Inputs) (motion.Command, bool) {
	steer := a.Steer(in.Target)
	return motion.Percent(steer, -steer), a.done()
}

// Steer updates the settle loop with one frame and returns the steer value
// (left = +steer, right = -steer).
func (a *Aligner) Steer(t vision.Target) float64 {
	debug.Target(t.Valid, t.AngleX)

	if !t.Valid {
		a.settleCount = 0
		a.setState(Searching)
		if !a.seen {
			return 0
		}
		return a.cfg.SeekSpeed * sign(a.last.AngleX)
	}

	a.last = t
	a.seen = true
	a.updateDistance(t)

	errDeg := t.AngleX
	if math.Abs(errDeg) <= a.cfg.ToleranceDeg {
		a.settleCount++
		if a.settleCount >= a.cfg.SettleTicks {
			a.setState(Settled)
		} else {
			a.setState(Aligning)
		}
		debug.Verbose("Aligned %.2f°, settle %d/%d", errDeg, a.settleCount, a.cfg.SettleTicks)
		return 0
	}

	a.settleCount = 0
	a.setState(Aligning)
	steer := errDeg * a.cfg.RotateGain
	if math.Abs(steer) < a.cfg.MinCommand {
		steer = math.Copysign(a.cfg.MinCommand, errDeg)
	}
	return math.Max(-1, math.Min(1, steer))
}

// sign is -1, 0 or 1; a centered last target gives no seek direction.
func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func (a *Aligner) done() bool {
	return !a.cfg.RunForever && a.settleCount >= a.cfg.SettleTicks
}

func (a *Aligner) updateDistance(t vision.Target) {
	if a.ranger == nil {
		return
	}
	if d, ok := a.ranger.Distance(t.AngleY); ok {
		a.distance = d
	}
}

func (a *Aligner) setState(s State) {
	if s != a.state {
		debug.Controller(a.Name(), s.String())
		a.state = s
	}
}

// Stop restores the driver pipeline and returns the neutral command.
func (a *Aligner) Stop() motion.Command {
	if err := a.pipeline.SetPipeline(vision.PipelineDriver); err != nil {
		debug.Error(fmt.Errorf("restore driver pipeline: %w", err))
	}
	debug.Controller(a.Name(), "driver pipeline restored")
	return motion.Neutral()
}

// Status returns the current aligner state.
func (a *Aligner) Status() Status {
	return Status{
		State:       a.state,
		StateName:   a.state.String(),
		SettleCount: a.settleCount,
		LastAngle:   a.last.AngleX,
		HasTarget:   a.seen,
		DistanceM:   a.distance,
	}
}
