package geometry

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r2"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func TestNormalizeAngle(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0, 0},
		{math.Pi, math.Pi},
		{-math.Pi, math.Pi},
		{3 * math.Pi, math.Pi},
		{2 * math.Pi, 0},
		{math.Pi / 2, math.Pi / 2},
		{-math.Pi / 2, -math.Pi / 2},
		{5 * math.Pi / 2, math.Pi / 2},
		{-5 * math.Pi / 2, -math.Pi / 2},
	}
	for _, tc := range cases {
		got := NormalizeAngle(tc.in)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("NormalizeAngle(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestPose_ExpStraight(t *testing.T) {
	p := NewPose(1, 2, 90)
	got := p.Exp(Twist{Dx: 3})
	want := Pose{Translation: r2.Vec{X: 1, Y: 5}, Heading: math.Pi / 2}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("Exp mismatch (-want +got):\n%s", diff)
	}
}

func TestPose_ExpQuarterArc(t *testing.T) {
	// Quarter circle of radius 1 counter-clockwise from the origin
	got := Pose{}.Exp(Twist{Dx: math.Pi / 2, DTheta: math.Pi / 2})
	want := Pose{Translation: r2.Vec{X: 1, Y: 1}, Heading: math.Pi / 2}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("Exp mismatch (-want +got):\n%s", diff)
	}
}

func TestPose_ExpTinyRotation(t *testing.T) {
	got := Pose{}.Exp(Twist{Dx: 1, DTheta: 1e-12})
	assert.InDelta(t, 1, got.X(), 1e-9)
	assert.InDelta(t, 0, got.Y(), 1e-9)
}

func TestPose_RelativeTo(t *testing.T) {
	origin := NewPose(1, 1, 90)
	p := NewPose(1, 3, 90)
	got := p.RelativeTo(origin)
	want := Pose{Translation: r2.Vec{X: 2, Y: 0}, Heading: 0}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("RelativeTo mismatch (-want +got):\n%s", diff)
	}
}

func TestPose_Lerp(t *testing.T) {
	a := NewPose(0, 0, 170)
	b := NewPose(2, 4, -170)
	mid := a.Lerp(b, 0.5)
	assert.InDelta(t, 1, mid.X(), 1e-9)
	assert.InDelta(t, 2, mid.Y(), 1e-9)
	// shortest arc crosses ±180
	assert.InDelta(t, math.Pi, math.Abs(mid.Heading), 1e-9)
	assert.InDelta(t, math.Sqrt(20), a.Distance(b), 1e-9)
}

func TestKinematics_RoundTrip(t *testing.T) {
	k := Kinematics{TrackWidth: 0.5}
	c := ChassisSpeeds{Linear: 1.5, Angular: 2}
	w := k.ToWheelSpeeds(c)
	assert.InDelta(t, 1.0, w.Left, 1e-12)
	assert.InDelta(t, 2.0, w.Right, 1e-12)
	if diff := cmp.Diff(c, k.ToChassisSpeeds(w), approx); diff != "" {
		t.Errorf("ToChassisSpeeds mismatch (-want +got):\n%s", diff)
	}
}

func TestWheelSpeeds_Clamp(t *testing.T) {
	got := WheelSpeeds{Left: 5, Right: -5}.Clamp(3)
	assert.Equal(t, WheelSpeeds{Left: 3, Right: -3}, got)
	got = WheelSpeeds{Left: 1, Right: -2}.Clamp(3)
	assert.Equal(t, WheelSpeeds{Left: 1, Right: -2}, got)
}
