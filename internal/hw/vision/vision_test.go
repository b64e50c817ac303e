package vision

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/cjeanneret/DriveGo/internal/hw/gpio"
	"github.com/cjeanneret/DriveGo/internal/logic/geometry"
)

// recordingDriver records GPIO calls for verification.
type recordingDriver struct {
	calls []gpioCall
}

type gpioCall struct {
	op    string
	pin   int
	level gpio.Level
}

func (d *recordingDriver) SetupPin(pin int, mode gpio.PinMode) error {
	d.calls = append(d.calls, gpioCall{op: "setup", pin: pin})
	return nil
}

func (d *recordingDriver) WritePin(pin int, level gpio.Level) error {
	d.calls = append(d.calls, gpioCall{op: "write", pin: pin, level: level})
	return nil
}

func (d *recordingDriver) ReadPin(pin int) (gpio.Level, error) {
	return gpio.Low, nil
}

func (d *recordingDriver) Close() error { return nil }

func (d *recordingDriver) writeCalls() []gpioCall {
	var result []gpioCall
	for _, c := range d.calls {
		if c.op == "write" {
			result = append(result, c)
		}
	}
	return result
}

func TestRingLight_InitializedOff(t *testing.T) {
	drv := &recordingDriver{}
	NewRingLight(drv, 18)

	require.Len(t, drv.calls, 2)
	assert.Equal(t, gpioCall{op: "setup", pin: 18}, drv.calls[0])
	assert.Equal(t, gpioCall{op: "write", pin: 18, level: gpio.Low}, drv.calls[1])
}

func TestRingLight_FollowsPipeline(t *testing.T) {
	drv := &recordingDriver{}
	rl := NewRingLight(drv, 18)
	drv.calls = nil

	require.NoError(t, rl.SetPipeline(PipelineDistance))
	require.NoError(t, rl.SetPipeline(PipelineDriver))

	writes := drv.writeCalls()
	want := []gpioCall{
		{op: "write", pin: 18, level: gpio.High},
		{op: "write", pin: 18, level: gpio.Low},
	}
	assert.Equal(t, want, writes)
}

func TestRingLight_NoPin(t *testing.T) {
	drv := &recordingDriver{}
	rl := NewRingLight(drv, 0)
	require.NoError(t, rl.SetPipeline(PipelineDistance))
	assert.Empty(t, drv.calls)
}

type failingSwitcher struct{ calls int }

func (f *failingSwitcher) SetPipeline(Pipeline) error {
	f.calls++
	return errors.New("camera offline")
}

func TestSwitchers_StopsAtFirstError(t *testing.T) {
	latest := &Latest{}
	bad := &failingSwitcher{}
	after := &Latest{}
	err := Switchers{latest, bad, after}.SetPipeline(PipelineDistance)
	require.Error(t, err)
	assert.Equal(t, PipelineDistance, latest.Pipeline())
	assert.Equal(t, 1, bad.calls)
	assert.Equal(t, PipelineDriver, after.Pipeline())
}

func TestLatest_RemembersLastValid(t *testing.T) {
	l := &Latest{}
	_, ok := l.LastValid()
	assert.False(t, ok)

	l.Publish(Target{AngleX: -4, Valid: true})
	l.Publish(Target{})

	assert.Equal(t, Target{}, l.Snapshot())
	last, ok := l.LastValid()
	require.True(t, ok)
	assert.Equal(t, -4.0, last.AngleX)
}

func TestLatest_DriverPipelineClearsFrame(t *testing.T) {
	l := &Latest{}
	l.Publish(Target{AngleX: 3, Valid: true})
	require.NoError(t, l.SetPipeline(PipelineDriver))
	assert.False(t, l.Snapshot().Valid)
}

func TestLatest_ConcurrentPublish(t *testing.T) {
	l := &Latest{}
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l.Publish(Target{AngleX: float64(i), Valid: true})
				_ = l.Snapshot()
			}
		}(i)
	}
	wg.Wait()
	assert.True(t, l.Snapshot().Valid)
}

func TestPipeline_String(t *testing.T) {
	assert.Equal(t, "driver", PipelineDriver.String())
	assert.Equal(t, "distance", PipelineDistance.String())
	assert.Equal(t, "pipeline(7)", Pipeline(7).String())
}

func TestSimCamera_Frame(t *testing.T) {
	cam := SimCamera{
		Target:       r2.Vec{X: 4, Y: 0},
		TargetHeight: 1.5,
		MountHeight:  0.5,
		MountAngle:   0,
		HalfFOV:      geometry.Radians(30),
	}

	cases := []struct {
		name   string
		pose   geometry.Pose
		valid  bool
		angleX float64
	}{
		{"dead_ahead", geometry.NewPose(0, 0, 0), true, 0},
		// robot turned left 10°: target now appears 10° to the right
		{"turned_left", geometry.NewPose(0, 0, 10), true, 10},
		{"turned_right", geometry.NewPose(0, 0, -20), true, -20},
		{"outside_fov", geometry.NewPose(0, 0, 45), false, 0},
		{"behind", geometry.NewPose(0, 0, 180), false, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := cam.Frame(tc.pose)
			assert.Equal(t, tc.valid, got.Valid)
			if tc.valid {
				assert.InDelta(t, tc.angleX, got.AngleX, 1e-9)
			}
		})
	}

	got := cam.Frame(geometry.NewPose(3, 0, 0))
	assert.InDelta(t, 45.0, got.AngleY, 1e-9)
	assert.False(t, math.IsNaN(got.AngleY))
}

func TestSimSource_OnlyInDistancePipeline(t *testing.T) {
	latest := &Latest{}
	src := &SimSource{
		Camera: SimCamera{Target: r2.Vec{X: 2}, TargetHeight: 1, MountHeight: 0.5, HalfFOV: 1},
		Pose:   func() geometry.Pose { return geometry.NewPose(0, 0, 5) },
		Latest: latest,
	}

	assert.False(t, src.Snapshot().Valid)

	require.NoError(t, latest.SetPipeline(PipelineDistance))
	got := src.Snapshot()
	require.True(t, got.Valid)
	assert.InDelta(t, 5.0, got.AngleX, 1e-9)

	require.NoError(t, latest.SetPipeline(PipelineDriver))
	assert.False(t, src.Snapshot().Valid)
}
