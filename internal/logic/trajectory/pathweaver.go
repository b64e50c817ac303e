package trajectory

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/cjeanneret/DriveGo/internal/debug"
	"github.com/cjeanneret/DriveGo/internal/logic/geometry"
)

// MaxPathFileBytes bounds the size of a path file.
const MaxPathFileBytes = 8 << 20

// PathExtension is the suffix of PathWeaver trajectory exports.
const PathExtension = ".wpilib.json"

type pathweaverState struct {
	Time         float64 `json:"time"`
	Velocity     float64 `json:"velocity"`
	Acceleration float64 `json:"acceleration"`
	Curvature    float64 `json:"curvature"`
	Pose         struct {
		Translation struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
		} `json:"translation"`
		Rotation struct {
			Radians float64 `json:"radians"`
		} `json:"rotation"`
	} `json:"pose"`
}

// ParsePathWeaver decodes a PathWeaver JSON export of at most MaxPathFileBytes.
func ParsePathWeaver(r io.Reader) (*Trajectory, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxPathFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read path: %w", err)
	}
	if len(data) > MaxPathFileBytes {
		return nil, fmt.Errorf("path file too large: more than %d bytes", MaxPathFileBytes)
	}
	var raw []pathweaverState
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode path: %w", err)
	}

	states := make([]State, len(raw))
	for i, s := range raw {
		states[i] = State{
			Time: s.Time,
			Pose: geometry.Pose{
				Translation: r2.Vec{X: s.Pose.Translation.X, Y: s.Pose.Translation.Y},
				Heading:     geometry.NormalizeAngle(s.Pose.Rotation.Radians),
			},
			Velocity:     s.Velocity,
			Acceleration: s.Acceleration,
			Curvature:    s.Curvature,
		}
	}
	return New(states)
}

// LoadPathWeaver reads a PathWeaver JSON file.
func LoadPathWeaver(path string) (*Trajectory, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat path: %w", err)
	}
	if info.Size() > MaxPathFileBytes {
		return nil, fmt.Errorf("path file too large: %d bytes (max %d)", info.Size(), MaxPathFileBytes)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open path: %w", err)
	}
	defer f.Close()

	t, err := ParsePathWeaver(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	debug.Info("Loaded path %s: %d states, %.2fs", path, t.Len(), t.TotalTime())
	return t, nil
}

// LoadNamed loads dir/<name>.wpilib.json. name must be a bare file name.
func LoadNamed(dir, name string) (*Trajectory, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	return LoadPathWeaver(filepath.Join(dir, name+PathExtension))
}

// ValidateName rejects empty names and names that could leave the paths directory.
func ValidateName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("invalid path name: %q", name)
	}
	return nil
}
