package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Pose is a position on the field (meters) and an orientation (radians,
// counter-clockwise positive, always within (-π, π]).
type Pose struct {
	Translation r2.Vec
	Heading     float64
}

// NewPose builds a pose from meters and a heading in degrees.
func NewPose(x, y, headingDeg float64) Pose {
	return Pose{
		Translation: r2.Vec{X: x, Y: y},
		Heading:     NormalizeAngle(Radians(headingDeg)),
	}
}

// X returns the x coordinate in meters.
func (p Pose) X() float64 { return p.Translation.X }

// Y returns the y coordinate in meters.
func (p Pose) Y() float64 { return p.Translation.Y }

// HeadingDeg returns the heading in degrees.
func (p Pose) HeadingDeg() float64 { return Degrees(p.Heading) }

// Twist is a displacement along a constant-curvature arc, expressed in the
// robot frame: Dx forward, Dy left, DTheta counter-clockwise.
type Twist struct {
	Dx, Dy, DTheta float64
}

// Exp applies a twist to the pose and returns the resulting pose.
func (p Pose) Exp(t Twist) Pose {
	sinTheta := math.Sin(t.DTheta)
	cosTheta := math.Cos(t.DTheta)

	var s, c float64
	if math.Abs(t.DTheta) < 1e-9 {
		s = 1.0 - t.DTheta*t.DTheta/6.0
		c = 0.5 * t.DTheta
	} else {
		s = sinTheta / t.DTheta
		c = (1 - cosTheta) / t.DTheta
	}

	local := r2.Vec{X: t.Dx*s - t.Dy*c, Y: t.Dx*c + t.Dy*s}
	return Pose{
		Translation: r2.Add(p.Translation, r2.Rotate(local, p.Heading, r2.Vec{})),
		Heading:     NormalizeAngle(p.Heading + t.DTheta),
	}
}

// RelativeTo expresses p in the frame of other.
func (p Pose) RelativeTo(other Pose) Pose {
	delta := r2.Sub(p.Translation, other.Translation)
	return Pose{
		Translation: r2.Rotate(delta, -other.Heading, r2.Vec{}),
		Heading:     NormalizeAngle(p.Heading - other.Heading),
	}
}

// Distance returns the straight-line distance between two poses.
func (p Pose) Distance(other Pose) float64 {
	return r2.Norm(r2.Sub(other.Translation, p.Translation))
}

// Lerp interpolates translation linearly and heading along the shortest arc.
func (p Pose) Lerp(end Pose, frac float64) Pose {
	return Pose{
		Translation: r2.Add(p.Translation, r2.Scale(frac, r2.Sub(end.Translation, p.Translation))),
		Heading:     NormalizeAngle(p.Heading + frac*NormalizeAngle(end.Heading-p.Heading)),
	}
}

// NormalizeAngle wraps an angle in radians into (-π, π].
func NormalizeAngle(rad float64) float64 {
	a := math.Remainder(rad, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 { return deg * math.Pi / 180.0 }

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 { return rad * 180.0 / math.Pi }
