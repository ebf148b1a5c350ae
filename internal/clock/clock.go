// Package clock drives periodic work. A single Clock owns the tick loop
// and fans each tick out to registered listeners; components never run
// their own sleep loops.
package clock

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Listener receives tick events.
type Listener interface {
	OnTick(now time.Time)
}

// stopJoinTimeout bounds how long Stop waits for the loop to exit.
const stopJoinTimeout = 2 * time.Second

// Clock ticks at a configurable interval with an optional time-speed
// multiplier. Speed above 1.0 makes clock time advance faster than wall
// time, which mostly matters for exercising decay.
type Clock struct {
	speed     float64
	interval  time.Duration
	listeners []Listener
	now       time.Time
	mu        sync.RWMutex
	cancel    context.CancelFunc
	done      chan struct{}
	logger    *zap.Logger
}

// New creates a clock with the given tick interval and speed multiplier.
func New(interval time.Duration, speed float64, logger *zap.Logger) *Clock {
	if speed <= 0 {
		speed = 1.0
	}
	return &Clock{
		speed:    speed,
		interval: interval,
		now:      time.Now(),
		logger:   logger,
	}
}

// AddListener registers a tick listener. Listeners added after Start may
// miss ticks already in flight.
func (c *Clock) AddListener(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// Now returns the current clock time.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Start begins the tick loop in a background goroutine.
func (c *Clock) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.loop(ctx)
	c.logger.Info("clock started",
		zap.Duration("interval", c.interval),
		zap.Float64("speed", c.speed))
}

// Stop halts the tick loop cooperatively. The stop signal is checked
// once per tick; Stop waits for the loop to exit, bounded so a stuck
// listener cannot hang shutdown. No tick is cancelled mid-dispatch.
func (c *Clock) Stop() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	select {
	case <-c.done:
		c.logger.Info("clock stopped")
	case <-time.After(stopJoinTimeout):
		c.logger.Warn("clock stop timed out waiting for tick loop")
	}
}

func (c *Clock) loop(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick()
		}
	}
}

func (c *Clock) tick() {
	c.mu.Lock()
	c.now = c.now.Add(time.Duration(float64(c.interval) * c.speed))
	now := c.now
	listeners := make([]Listener, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for _, l := range listeners {
		l.OnTick(now)
	}
}
