package timectrl

import (
	"context"
	"sync"
	"time"
)

// Clock gives access to the animation's simulated wall time.
type Clock interface {
	// Now returns the simulated time of the current frame.
	Now() time.Time
	// Frame returns the number of frames advanced so far.
	Frame() uint64
}

// Mode describes how the FrameClock advances frames.
type Mode int

const (
	// RealTime advances one frame per Interval of wall-clock time.
	RealTime Mode = iota
	// Accelerated advances as quickly as the listeners allow.
	Accelerated
)

// FrameClock drives the animation frame counter and notifies registered
// listeners once per frame.
type FrameClock struct {
	mu        sync.RWMutex
	StartTime time.Time
	Interval  time.Duration
	Mode      Mode

	frame     uint64
	listeners []func(uint64)
}

// NewFrameClock constructs a clock. A non-positive interval defaults to
// 60 frames per second.
func NewFrameClock(start time.Time, interval time.Duration, mode Mode) *FrameClock {
	if interval <= 0 {
		interval = time.Second / 60
	}
	return &FrameClock{
		StartTime: start,
		Interval:  interval,
		Mode:      mode,
	}
}

// Now returns StartTime plus Interval for every elapsed frame.
func (c *FrameClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.StartTime.Add(time.Duration(c.frame) * c.Interval)
}

// Frame returns the number of frames advanced so far.
func (c *FrameClock) Frame() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.frame
}

// AddListener registers a callback invoked with the new frame number after
// every step. Listeners run on the clock goroutine, in registration order.
func (c *FrameClock) AddListener(fn func(uint64)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Step advances one frame synchronously and returns its number.
func (c *FrameClock) Step() uint64 {
	c.mu.Lock()
	c.frame++
	frame := c.frame
	listeners := append([]func(uint64){}, c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(frame)
	}
	return frame
}

// Start runs the clock in a separate goroutine until frames steps have been
// taken (frames <= 0 runs until ctx is done). It returns a channel that is
// closed when the clock stops.
func (c *FrameClock) Start(ctx context.Context, frames int) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		var tick <-chan time.Time
		if c.Mode == RealTime {
			ticker := time.NewTicker(c.Interval)
			defer ticker.Stop()
			tick = ticker.C
		}

		for n := 0; frames <= 0 || n < frames; n++ {
			if tick != nil {
				select {
				case <-ctx.Done():
					return
				case <-tick:
				}
			} else if ctx.Err() != nil {
				return
			}
			c.Step()
		}
	}()
	return done
}
