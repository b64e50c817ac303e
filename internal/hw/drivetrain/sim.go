package drivetrain

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/cjeanneret/DriveGo/internal/debug"
	"github.com/cjeanneret/DriveGo/internal/logic/geometry"
)

// SimConfig describes the simulated drivetrain.
type SimConfig struct {
	TrackWidth  float64 // meters
	MaxSpeedMps float64 // free speed reached at 100% output
	Converter   *geometry.EncoderConverter
}

// Sim is an ideal differential drivetrain: wheels reach the commanded
// velocity instantly, the gyro integrates the wheel difference exactly.
// The sim also tracks where the robot really is on the field, independent
// of what the odometry estimator believes. Safe for concurrent use.
type Sim struct {
	mu  sync.Mutex
	cfg SimConfig

	leftMps, rightMps   float64
	leftM, rightM       float64
	headingRad          float64       // gyro angle, unwrapped
	pose                geometry.Pose // ground truth on the field
	neutral             bool
	gyroDropout         bool
	commands            int
	lastLeft, lastRight float64 // last applied output, native rate or percent
}

// NewSim creates a simulated drivetrain at rest.
func NewSim(cfg SimConfig) (*Sim, error) {
	if cfg.Converter == nil {
		return nil, fmt.Errorf("sim drivetrain requires an encoder converter")
	}
	if cfg.TrackWidth <= 0 {
		return nil, fmt.Errorf("invalid track width: %v", cfg.TrackWidth)
	}
	if cfg.MaxSpeedMps <= 0 {
		return nil, fmt.Errorf("invalid max speed: %v", cfg.MaxSpeedMps)
	}
	debug.Verbose("Sim drivetrain: track=%.3fm max=%.2fm/s", cfg.TrackWidth, cfg.MaxSpeedMps)
	return &Sim{cfg: cfg, neutral: true}, nil
}

// SetVelocity commands both wheels in closed-loop velocity mode.
// Rates are native units; feedforward fractions are accepted and ignored
// since the simulated velocity loop is ideal.
func (s *Sim) SetVelocity(leftRate, leftFF, rightRate, rightFF float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leftMps = s.cfg.Converter.RateToMPS(leftRate)
	s.rightMps = s.cfg.Converter.RateToMPS(rightRate)
	s.lastLeft, s.lastRight = leftRate, rightRate
	s.neutral = false
	s.commands++
	debug.Trace("Sim velocity: L=%.1f(ff %.3f) R=%.1f(ff %.3f)", leftRate, leftFF, rightRate, rightFF)
	return nil
}

// SetPercent commands both wheels in open-loop percent output, [-1, 1].
func (s *Sim) SetPercent(left, right float64) error {
	if math.Abs(left) > 1 || math.Abs(right) > 1 {
		return fmt.Errorf("percent output out of range: left=%v right=%v", left, right)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leftMps = left * s.cfg.MaxSpeedMps
	s.rightMps = right * s.cfg.MaxSpeedMps
	s.lastLeft, s.lastRight = left, right
	s.neutral = false
	s.commands++
	debug.Trace("Sim percent: L=%.3f R=%.3f", left, right)
	return nil
}

// Neutral stops both wheels.
func (s *Sim) Neutral() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leftMps, s.rightMps = 0, 0
	s.lastLeft, s.lastRight = 0, 0
	s.neutral = true
	s.commands++
	debug.Trace("Sim neutral")
	return nil
}

// Advance moves the simulation forward by dt at the current wheel speeds.
func (s *Sim) Advance(dt time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sec := dt.Seconds()
	dl, dr := s.leftMps*sec, s.rightMps*sec
	dTheta := (dr - dl) / s.cfg.TrackWidth
	s.leftM += dl
	s.rightM += dr
	s.headingRad += dTheta
	s.pose = s.pose.Exp(geometry.Twist{Dx: (dl + dr) / 2, DTheta: dTheta})
}

// Pose returns the true field pose of the simulated robot.
func (s *Sim) Pose() geometry.Pose {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pose
}

// Place moves the robot to pose without turning the wheels, as when it is
// carried to a starting position. The gyro follows the new heading.
func (s *Sim) Place(pose geometry.Pose) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headingRad += geometry.NormalizeAngle(pose.Heading - s.pose.Heading)
	s.pose = pose
	debug.Verbose("Sim placed at (%.2f, %.2f) %.1f°", pose.X(), pose.Y(), pose.HeadingDeg())
}

// SetGyroDropout makes ReadSensors report NaN headings while enabled.
func (s *Sim) SetGyroDropout(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gyroDropout = on
}

// ReadSensors returns the current encoder and gyro snapshot.
func (s *Sim) ReadSensors() (Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv := s.cfg.Converter
	turnRate := geometry.Degrees((s.rightMps - s.leftMps) / s.cfg.TrackWidth)
	heading := geometry.Degrees(s.headingRad)
	if s.gyroDropout {
		heading = math.NaN()
		turnRate = math.NaN()
	}
	return Reading{
		LeftTicks:         int(math.Round(conv.MetersToTicks(s.leftM))),
		RightTicks:        int(math.Round(conv.MetersToTicks(s.rightM))),
		LeftRate:          conv.MPSToRate(s.leftMps),
		RightRate:         conv.MPSToRate(s.rightMps),
		HeadingDeg:        heading,
		TurnRateDegPerSec: turnRate,
	}, nil
}

// WheelSpeeds returns the current wheel velocities in m/s.
func (s *Sim) WheelSpeeds() geometry.WheelSpeeds {
	s.mu.Lock()
	defer s.mu.Unlock()
	return geometry.WheelSpeeds{Left: s.leftMps, Right: s.rightMps}
}

// LastOutput returns the last applied output pair and whether it was neutral.
func (s *Sim) LastOutput() (left, right float64, neutral bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastLeft, s.lastRight, s.neutral
}

// Commands returns how many commands have been applied.
func (s *Sim) Commands() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commands
}
