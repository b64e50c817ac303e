package drivetrain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjeanneret/DriveGo/internal/logic/geometry"
)

func newTestSim(t *testing.T) *Sim {
	t.Helper()
	conv := geometry.NewEncoderConverterFrom(4096, 0.5, 100*time.Millisecond)
	s, err := NewSim(SimConfig{TrackWidth: 0.5, MaxSpeedMps: 3, Converter: conv})
	require.NoError(t, err)
	return s
}

func TestSim_RejectsInvalidConfig(t *testing.T) {
	conv := geometry.NewEncoderConverterFrom(4096, 0.5, 100*time.Millisecond)
	cases := []struct {
		name string
		cfg  SimConfig
	}{
		{"no_converter", SimConfig{TrackWidth: 0.5, MaxSpeedMps: 3}},
		{"zero_track", SimConfig{MaxSpeedMps: 3, Converter: conv}},
		{"zero_speed", SimConfig{TrackWidth: 0.5, Converter: conv}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSim(tc.cfg)
			assert.Error(t, err)
		})
	}
}

func TestSim_VelocityStraight(t *testing.T) {
	s := newTestSim(t)
	conv := geometry.NewEncoderConverterFrom(4096, 0.5, 100*time.Millisecond)
	rate := conv.MPSToRate(1.0)
	require.NoError(t, s.SetVelocity(rate, 0.1, rate, 0.1))

	for i := 0; i < 50; i++ {
		s.Advance(20 * time.Millisecond)
	}
	r, err := s.ReadSensors()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, conv.TicksToMeters(float64(r.LeftTicks)), 1e-3)
	assert.InDelta(t, 1.0, conv.TicksToMeters(float64(r.RightTicks)), 1e-3)
	assert.InDelta(t, rate, r.LeftRate, 1e-9)
	assert.InDelta(t, 0.0, r.HeadingDeg, 1e-9)
	assert.Equal(t, 1, s.Commands())
}

func TestSim_PercentSpin(t *testing.T) {
	s := newTestSim(t)
	// 0.25 * 3 m/s = 0.75 m/s per wheel, opposite: 3 rad/s clockwise
	require.NoError(t, s.SetPercent(0.25, -0.25))
	s.Advance(time.Second)

	r, err := s.ReadSensors()
	require.NoError(t, err)
	assert.InDelta(t, geometry.Degrees(-3), r.HeadingDeg, 1e-9)
	assert.InDelta(t, geometry.Degrees(-3), r.TurnRateDegPerSec, 1e-9)

	l, rr, neutral := s.LastOutput()
	assert.Equal(t, 0.25, l)
	assert.Equal(t, -0.25, rr)
	assert.False(t, neutral)
}

func TestSim_PercentOutOfRange(t *testing.T) {
	s := newTestSim(t)
	assert.Error(t, s.SetPercent(1.5, 0))
}

func TestSim_NeutralStops(t *testing.T) {
	s := newTestSim(t)
	require.NoError(t, s.SetPercent(0.5, 0.5))
	require.NoError(t, s.Neutral())
	s.Advance(time.Second)
	assert.Equal(t, geometry.WheelSpeeds{}, s.WheelSpeeds())
	_, _, neutral := s.LastOutput()
	assert.True(t, neutral)
}

func TestSim_GyroDropout(t *testing.T) {
	s := newTestSim(t)
	s.SetGyroDropout(true)
	r, err := s.ReadSensors()
	require.NoError(t, err)
	assert.True(t, math.IsNaN(r.HeadingDeg))
	s.SetGyroDropout(false)
	r, _ = s.ReadSensors()
	assert.False(t, math.IsNaN(r.HeadingDeg))
}

func TestSim_PoseFollowsArc(t *testing.T) {
	s := newTestSim(t)
	// 1 rad/s on a 0.5 m track: quarter circle of radius 0.5 m in π/2 s.
	require.NoError(t, s.SetPercent(0.25/3, 0.75/3))
	steps := 1000
	for i := 0; i < steps; i++ {
		s.Advance(time.Duration(math.Pi / 2 / float64(steps) * float64(time.Second)))
	}
	p := s.Pose()
	assert.InDelta(t, 0.5, p.X(), 1e-3)
	assert.InDelta(t, 0.5, p.Y(), 1e-3)
	assert.InDelta(t, 90, p.HeadingDeg(), 1e-3)
}

func TestSim_PoseIgnoresGyroDropout(t *testing.T) {
	s := newTestSim(t)
	s.SetGyroDropout(true)
	require.NoError(t, s.SetPercent(0.5, 0.5))
	s.Advance(time.Second)
	p := s.Pose()
	assert.InDelta(t, 1.5, p.X(), 1e-9)
	assert.False(t, math.IsNaN(p.Heading))
}

func TestSim_PlaceKeepsEncoders(t *testing.T) {
	s := newTestSim(t)
	before, err := s.ReadSensors()
	require.NoError(t, err)

	s.Place(geometry.NewPose(1, 2, 90))
	after, err := s.ReadSensors()
	require.NoError(t, err)
	assert.Equal(t, before.LeftTicks, after.LeftTicks)
	assert.InDelta(t, 90, after.HeadingDeg-before.HeadingDeg, 1e-9)

	require.NoError(t, s.SetPercent(0.5, 0.5))
	s.Advance(time.Second)
	p := s.Pose()
	assert.InDelta(t, 1, p.X(), 1e-9)
	assert.InDelta(t, 3.5, p.Y(), 1e-9)
}
