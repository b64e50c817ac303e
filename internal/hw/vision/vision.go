// Package vision models the targeting camera: per-frame target records,
// pipeline selection and the illumination ring.
package vision

import (
	"fmt"
	"sync"

	"github.com/cjeanneret/DriveGo/internal/debug"
)

// Target is one vision frame. AngleX is the horizontal offset from the
// crosshair in degrees, positive when the target is to the right. AngleY is
// the vertical offset, positive above the crosshair.
type Target struct {
	AngleX float64 `json:"angle_x"`
	AngleY float64 `json:"angle_y"`
	Valid  bool    `json:"valid"`
}

// Pipeline selects the camera processing mode.
type Pipeline int

const (
	// PipelineDriver is the unprocessed stream for the human driver.
	PipelineDriver Pipeline = iota
	// PipelineDistance runs target detection.
	PipelineDistance
)

func (p Pipeline) String() string {
	switch p {
	case PipelineDriver:
		return "driver"
	case PipelineDistance:
		return "distance"
	default:
		return fmt.Sprintf("pipeline(%d)", int(p))
	}
}

// PipelineSwitcher is the camera-side collaborator asked to change pipeline.
type PipelineSwitcher interface {
	SetPipeline(p Pipeline) error
}

// Source provides the most recent frame.
type Source interface {
	Snapshot() Target
}

// Switchers fans a pipeline request out to several collaborators, in order.
type Switchers []PipelineSwitcher

// SetPipeline forwards p to every switcher and returns the first error.
func (s Switchers) SetPipeline(p Pipeline) error {
	for _, sw := range s {
		if err := sw.SetPipeline(p); err != nil {
			return err
		}
	}
	return nil
}

// Latest holds the most recent frame published by the camera goroutine and
// the most recent valid one.
type Latest struct {
	mu        sync.RWMutex
	current   Target
	lastValid Target
	seen      bool
	pipeline  Pipeline
}

// Publish records a new frame.
func (l *Latest) Publish(t Target) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.current = t
	if t.Valid {
		l.lastValid = t
		l.seen = true
	}
}

// Snapshot returns the most recent frame.
func (l *Latest) Snapshot() Target {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// LastValid returns the most recent valid frame, if any.
func (l *Latest) LastValid() (Target, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastValid, l.seen
}

// SetPipeline records the requested pipeline. In the driver pipeline no
// detection runs, so the current frame is cleared.
func (l *Latest) SetPipeline(p Pipeline) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pipeline = p
	if p == PipelineDriver {
		l.current = Target{}
	}
	debug.Live("Vision pipeline: %s", p)
	return nil
}

// Pipeline returns the last requested pipeline.
func (l *Latest) Pipeline() Pipeline {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.pipeline
}
