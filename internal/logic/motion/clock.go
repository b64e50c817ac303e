package motion

import (
	"context"
	"time"
)

// Clock paces the control loop.
type Clock interface {
	// Reset marks the start of a run.
	Reset()
	// Wait blocks until the next tick and returns the elapsed time since Reset.
	Wait(ctx context.Context) (time.Duration, error)
}

// Plant is a simulated system advanced by the simulated clock.
type Plant interface {
	Advance(dt time.Duration)
}

// RealClock ticks on wall time.
type RealClock struct {
	Period time.Duration
	start  time.Time
	next   time.Time
}

func (c *RealClock) Reset() {
	c.start = time.Now()
	c.next = c.start
}

func (c *RealClock) Wait(ctx context.Context) (time.Duration, error) {
	c.next = c.next.Add(c.Period)
	timer := time.NewTimer(time.Until(c.next))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return time.Since(c.start), ctx.Err()
	case <-timer.C:
		return time.Since(c.start), nil
	}
}

// SimClock advances a plant by exactly one period per tick without sleeping.
type SimClock struct {
	Period  time.Duration
	Plant   Plant
	elapsed time.Duration
}

func (c *SimClock) Reset() {
	c.elapsed = 0
}

func (c *SimClock) Wait(ctx context.Context) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return c.elapsed, err
	}
	c.Plant.Advance(c.Period)
	c.elapsed += c.Period
	return c.elapsed, nil
}

// WallSimClock ticks on wall time and advances a plant by the real time
// elapsed between ticks, so a simulated drivetrain moves at live speed.
type WallSimClock struct {
	Real  RealClock
	Plant Plant
	last  time.Duration
}

func (c *WallSimClock) Reset() {
	c.Real.Reset()
	c.last = 0
}

func (c *WallSimClock) Wait(ctx context.Context) (time.Duration, error) {
	elapsed, err := c.Real.Wait(ctx)
	if err != nil {
		return elapsed, err
	}
	c.Plant.Advance(elapsed - c.last)
	c.last = elapsed
	return elapsed, nil
}
