package web

import (
	"sync"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/cjeanneret/DriveGo/internal/hw/vision"
	"github.com/cjeanneret/DriveGo/internal/logic/motion"
	"github.com/cjeanneret/DriveGo/internal/logic/trajectory"
)

// MaxTrailPoints bounds the estimated path kept for the debug chart.
const MaxTrailPoints = 5000

// Snapshot is the latest drive sample in wire form.
type Snapshot struct {
	Controller string         `json:"controller"`
	TimeSec    float64        `json:"t"`
	X          float64        `json:"x"`
	Y          float64        `json:"y"`
	HeadingDeg float64        `json:"heading_deg"`
	LeftMps    float64        `json:"left_mps"`
	RightMps   float64        `json:"right_mps"`
	Command    motion.Command `json:"command"`
	Target     vision.Target  `json:"target"`
	Samples    int            `json:"samples"`
}

// Telemetry records runner samples for the telemetry endpoint, the path chart
// and the SSE stream. Only every Every-th sample is broadcast.
type Telemetry struct {
	Broadcaster *StatusBroadcaster
	Every       int

	mu        sync.RWMutex
	last      Snapshot
	trail     []r2.Vec
	reference []r2.Vec
}

// NewTelemetry creates a recorder that broadcasts one sample out of every.
func NewTelemetry(b *StatusBroadcaster, every int) *Telemetry {
	if every < 1 {
		every = 1
	}
	return &Telemetry{Broadcaster: b, Every: every}
}

// Record stores s. It is meant to be passed to motion.Runner.OnSample.
func (t *Telemetry) Record(s motion.Sample) {
	snap := Snapshot{
		Controller: s.Controller,
		TimeSec:    s.Time.Seconds(),
		X:          s.Pose.X(),
		Y:          s.Pose.Y(),
		HeadingDeg: s.Pose.HeadingDeg(),
		LeftMps:    s.Measured.Left,
		RightMps:   s.Measured.Right,
		Command:    s.Command,
		Target:     s.Target,
	}

	t.mu.Lock()
	snap.Samples = t.last.Samples + 1
	t.last = snap
	if len(t.trail) < MaxTrailPoints {
		t.trail = append(t.trail, s.Pose.Translation)
	}
	t.mu.Unlock()

	if t.Broadcaster != nil && snap.Samples%t.Every == 0 {
		t.Broadcaster.BroadcastTelemetry(snap)
	}
}

// Begin clears the trail and stores the reference path of traj (nil for
// routines that do not follow a trajectory).
func (t *Telemetry) Begin(traj *trajectory.Trajectory) {
	var ref []r2.Vec
	if traj != nil {
		states := traj.States()
		ref = make([]r2.Vec, len(states))
		for i, s := range states {
			ref[i] = s.Pose.Translation
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = Snapshot{}
	t.trail = nil
	t.reference = ref
}

// Latest returns the most recent sample.
func (t *Telemetry) Latest() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}

// Paths returns copies of the reference and estimated paths.
func (t *Telemetry) Paths() (reference, estimated []r2.Vec) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	reference = append([]r2.Vec(nil), t.reference...)
	estimated = append([]r2.Vec(nil), t.trail...)
	return reference, estimated
}
