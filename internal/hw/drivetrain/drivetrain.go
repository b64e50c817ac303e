// Package drivetrain holds the sensor snapshot of a differential drivetrain
// and a simulated drivetrain for running the controllers off-robot.
package drivetrain

// Reading is a snapshot of the drivetrain sensors taken once per control tick.
// Rates are in native units: encoder ticks per velocity period.
type Reading struct {
	LeftTicks         int
	RightTicks        int
	LeftRate          float64
	RightRate         float64
	HeadingDeg        float64 // counter-clockwise positive, continuous (not wrapped)
	TurnRateDegPerSec float64
}
