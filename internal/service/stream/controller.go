package stream

import (
	"context"
	"time"

	"github.com/oshokin/motion-stream/internal/logger"
)

// Actuator starts and stops the controlled stream.
type Actuator interface {
	// Start starts the stream.
	Start(ctx context.Context) error
	// Stop stops the stream.
	Stop(ctx context.Context) error
}

// ExpireFunc is called from the timer goroutine when an inactivity timer fires.
// The receiver is expected to call Controller.Expire with the same generation
// while holding whatever lock serializes the controller.
type ExpireFunc func(generation uint64)

// Controller is the start/stop state machine with an inactivity cooldown.
// It is not safe for concurrent use: callers serialize Observe, Expire and Close.
type Controller struct {
	// actuator receives start and stop commands.
	actuator Actuator
	// timeout is how long motion must be absent before stopping.
	timeout time.Duration
	// onExpire is invoked when the pending timer fires.
	onExpire ExpireFunc

	// state is the current state, Idle initially.
	state State
	// timer is the pending inactivity timer, nil unless CoolingDown.
	timer *time.Timer
	// deadline is when the pending timer fires.
	deadline time.Time
	// generation identifies the armed timer; a fired timer with an older value is stale.
	generation uint64
}

// NewController creates an Idle controller.
func NewController(actuator Actuator, timeout time.Duration, onExpire ExpireFunc) *Controller {
	if actuator == nil {
		panic("stream: nil actuator")
	}

	if onExpire == nil {
		panic("stream: nil expire callback")
	}

	return &Controller{
		actuator: actuator,
		timeout:  timeout,
		onExpire: onExpire,
		state:    Idle,
	}
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// Deadline returns when the pending inactivity timer fires.
// The second value is false when no timer is pending.
func (c *Controller) Deadline() (time.Time, bool) {
	if c.timer == nil {
		return time.Time{}, false
	}

	return c.deadline, true
}

// Observe applies one motion verdict.
func (c *Controller) Observe(ctx context.Context, isMotion bool) {
	if isMotion {
		c.onMotion(ctx)

		return
	}

	if c.state != Active {
		return
	}

	c.arm()
	c.state = CoolingDown

	logger.InfoKV(
		ctx,
		"Motion has stopped, stream will be stopped unless new motion is detected",
		"timeout",
		c.timeout,
	)
}

// Expire handles a fired inactivity timer. It reports whether the controller
// moved to Idle, in which case the caller must clear its rolling window.
func (c *Controller) Expire(ctx context.Context, generation uint64) bool {
	if c.state != CoolingDown || c.timer == nil || generation != c.generation {
		// Cancelled or superseded while the callback was waiting for the lock.
		return false
	}

	c.timer.Stop()
	c.timer = nil
	c.deadline = time.Time{}
	c.state = Idle

	if err := c.actuator.Stop(ctx); err != nil {
		logger.ErrorKV(ctx, "Failed to stop stream", "error", err)

		return true
	}

	logger.Info(ctx, "Stream stopped due to inactivity")

	return true
}

// Close cancels the pending inactivity timer, if any. The state is left as is.
func (c *Controller) Close() {
	c.cancel()
}

// onMotion applies a positive verdict.
func (c *Controller) onMotion(ctx context.Context) {
	switch c.state {
	case Active:
		return
	case CoolingDown:
		c.cancel()
		c.state = Active

		logger.Info(ctx, "Motion detected again, inactivity timer cancelled")
	case Idle:
		c.state = Active

		logger.Info(ctx, "Motion detected, starting stream")

		if err := c.actuator.Start(ctx); err != nil {
			logger.ErrorKV(ctx, "Failed to start stream", "error", err)
		}
	}
}

// arm cancels the current timer and starts a new one.
func (c *Controller) arm() {
	c.cancel()

	c.generation++
	generation := c.generation

	c.deadline = time.Now().Add(c.timeout)
	c.timer = time.AfterFunc(c.timeout, func() {
		c.onExpire(generation)
	})
}

// cancel stops the pending timer. A callback that already fired is rejected
// in Expire because the generation moves on.
func (c *Controller) cancel() {
	if c.timer == nil {
		return
	}

	c.timer.Stop()
	c.timer = nil
	c.deadline = time.Time{}
	c.generation++
}
