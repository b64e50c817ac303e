package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cjeanneret/DriveGo/internal/logic/motion"
	"github.com/cjeanneret/DriveGo/internal/logic/trajectory"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

// Routine names accepted by POST /run.
const (
	RoutineStraight = "straight"
	RoutinePath     = "path"
	RoutineAlign    = "align"
	RoutineManual   = "manual"
)

// RunRequest selects a routine and optionally overrides its parameters.
// Zero values mean "use config default".
type RunRequest struct {
	Routine    string  `json:"routine"`
	Path       string  `json:"path,omitempty"`        // PathWeaver name, routine "path"
	DistanceM  float64 `json:"distance_m,omitempty"`  // routine "straight", negative drives backwards
	RunForever *bool   `json:"run_forever,omitempty"` // routine "align"
	TimeoutSec float64 `json:"timeout_sec,omitempty"`
}

// Timeout returns the requested step timeout, 0 for none.
func (r RunRequest) Timeout() time.Duration {
	return time.Duration(r.TimeoutSec * float64(time.Second))
}

// ValidateRequest checks the routine name and numeric ranges.
func ValidateRequest(r RunRequest) error {
	switch r.Routine {
	case RoutineStraight:
		if !finite(r.DistanceM) || math.Abs(r.DistanceM) > 50 {
			return fmt.Errorf("distance_m must be within [-50, 50], got %g", r.DistanceM)
		}
	case RoutinePath:
		if r.Path == "" {
			return errors.New("path is required for routine \"path\"")
		}
		if err := trajectory.ValidateName(r.Path); err != nil {
			return err
		}
	case RoutineAlign, RoutineManual:
	default:
		return fmt.Errorf("unknown routine %q", r.Routine)
	}
	if !finite(r.TimeoutSec) || r.TimeoutSec < 0 || r.TimeoutSec > 600 {
		return fmt.Errorf("timeout_sec must be within [0, 600], got %g", r.TimeoutSec)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// RunFunc runs a routine until it finishes or ctx is cancelled.
// It is called from the POST /run handler in a goroutine.
type RunFunc func(ctx context.Context, runID string, req RunRequest) error

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster *StatusBroadcaster
	Run         RunFunc
	Defaults    any // served by GET /config
	Stick       *motion.StickLatch
	Telemetry   *Telemetry
	staticFS    fs.FS

	runningMu sync.Mutex
	runID     string
	cancel    context.CancelFunc
	closed    bool
	runs      sync.WaitGroup
}

// NewHandlers creates handlers with the given dependencies.
// If run is nil, POST /run will return 503 Service Unavailable.
func NewHandlers(broadcaster *StatusBroadcaster, run RunFunc, defaults any, stick *motion.StickLatch, telemetry *Telemetry, staticFS fs.FS) *Handlers {
	return &Handlers{
		Broadcaster: broadcaster,
		Run:         run,
		Defaults:    defaults,
		Stick:       stick,
		Telemetry:   telemetry,
		staticFS:    staticFS,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// HandleConfig returns the configuration defaults as JSON.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Defaults)
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// Running returns the id of the run in progress, or "".
func (h *Handlers) Running() string {
	h.runningMu.Lock()
	defer h.runningMu.Unlock()
	return h.runID
}

// HandleRun handles POST /run to start a routine.
func (h *Handlers) HandleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := decodeJSON(w, r, &req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if err := ValidateRequest(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if h.Run == nil {
		http.Error(w, "drive not configured", http.StatusServiceUnavailable)
		return
	}

	h.runningMu.Lock()
	if h.closed {
		h.runningMu.Unlock()
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	if h.runID != "" {
		h.runningMu.Unlock()
		http.Error(w, "routine already in progress", http.StatusConflict)
		return
	}
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	h.runID = id
	h.cancel = cancel
	h.runs.Add(1)
	h.runningMu.Unlock()

	// Run in goroutine; clear running when done
	go func() {
		defer h.runs.Done()
		defer func() {
			cancel()
			h.runningMu.Lock()
			h.runID = ""
			h.cancel = nil
			h.runningMu.Unlock()
		}()

		h.Broadcaster.Broadcast("info", fmt.Sprintf("Run %s: %s started", id, req.Routine))
		if err := h.Run(ctx, id, req); err != nil {
			h.Broadcaster.Broadcast("error", "Routine failed: "+err.Error())
			log.Printf("run %s failed: %v", id, err)
		} else {
			h.Broadcaster.Broadcast("info", "Routine complete")
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started", "run_id": id})
}

// HandleStop handles POST /stop: it cancels the run in progress. The runner
// applies the controller's neutral command before returning.
func (h *Handlers) HandleStop(w http.ResponseWriter, r *http.Request) {
	h.runningMu.Lock()
	id, cancel := h.runID, h.cancel
	h.runningMu.Unlock()
	if cancel == nil {
		http.Error(w, "no routine in progress", http.StatusConflict)
		return
	}
	cancel()
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopping", "run_id": id})
}

// CancelAndWait refuses new runs, cancels the run in progress and waits for
// it to return or for ctx to expire.
func (h *Handlers) CancelAndWait(ctx context.Context) error {
	h.runningMu.Lock()
	h.closed = true
	cancel := h.cancel
	h.runningMu.Unlock()
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		h.runs.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HandleStick handles POST /stick: the driver joystick for the manual routine.
func (h *Handlers) HandleStick(w http.ResponseWriter, r *http.Request) {
	if h.Stick == nil {
		http.Error(w, "manual drive not configured", http.StatusServiceUnavailable)
		return
	}
	var s motion.Stick
	if err := decodeJSON(w, r, &s); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	for _, v := range []float64{s.Forward, s.Rotation} {
		if !finite(v) || v < -1 || v > 1 {
			http.Error(w, "forward and rotation must be within [-1, 1]", http.StatusBadRequest)
			return
		}
	}
	h.Stick.Set(s)
	w.WriteHeader(http.StatusNoContent)
}

// HandleTelemetry returns the latest drive sample as JSON.
func (h *Handlers) HandleTelemetry(w http.ResponseWriter, r *http.Request) {
	if h.Telemetry == nil {
		http.Error(w, "telemetry not configured", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Running string   `json:"running,omitempty"`
		Latest  Snapshot `json:"latest"`
	}{h.Running(), h.Telemetry.Latest()})
}

// HandleDebugPath renders the reference and estimated paths of the last run.
func (h *Handlers) HandleDebugPath(w http.ResponseWriter, r *http.Request) {
	if h.Telemetry == nil {
		http.Error(w, "telemetry not configured", http.StatusServiceUnavailable)
		return
	}
	ref, est := h.Telemetry.Paths()
	title := h.Telemetry.Latest().Controller
	if title == "" {
		title = "no run yet"
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := RenderPathChart(w, title, ref, est); err != nil {
		log.Printf("render path chart: %v", err)
	}
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	// Send initial comment to establish connection
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
