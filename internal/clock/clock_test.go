package clock

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type countingListener struct {
	mu    sync.Mutex
	ticks []time.Time
}

func (l *countingListener) OnTick(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ticks = append(l.ticks, now)
}

func (l *countingListener) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ticks)
}

func TestClockTicksListeners(t *testing.T) {
	c := New(5*time.Millisecond, 1.0, zap.NewNop())
	l := &countingListener{}
	c.AddListener(l)

	c.Start()
	defer c.Stop()

	deadline := time.After(time.Second)
	for l.count() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d ticks after 1s, want at least 3", l.count())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestClockTimeAdvancesMonotonically(t *testing.T) {
	c := New(5*time.Millisecond, 1.0, zap.NewNop())
	l := &countingListener{}
	c.AddListener(l)

	c.Start()
	for l.count() < 4 {
		time.Sleep(5 * time.Millisecond)
	}
	c.Stop()

	l.mu.Lock()
	defer l.mu.Unlock()
	for i := 1; i < len(l.ticks); i++ {
		if !l.ticks[i].After(l.ticks[i-1]) {
			t.Fatalf("tick %d time %v not after previous %v", i, l.ticks[i], l.ticks[i-1])
		}
	}
}

func TestClockSpeedMultiplier(t *testing.T) {
	c := New(10*time.Millisecond, 100.0, zap.NewNop())
	start := c.Now()
	l := &countingListener{}
	c.AddListener(l)

	c.Start()
	for l.count() < 2 {
		time.Sleep(5 * time.Millisecond)
	}
	c.Stop()

	// Two ticks at 100x speed advance clock time by ~2s.
	advanced := c.Now().Sub(start)
	if advanced < time.Second {
		t.Fatalf("clock advanced %v, want at least 1s at 100x speed", advanced)
	}
}

func TestClockStopIsIdempotentAndBounded(t *testing.T) {
	c := New(5*time.Millisecond, 1.0, zap.NewNop())
	c.Start()

	done := make(chan struct{})
	go func() {
		c.Stop()
		c.Stop() // second stop is a no-op on the cancelled context
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return within bound")
	}
}

func TestStopBeforeStart(t *testing.T) {
	c := New(5*time.Millisecond, 1.0, zap.NewNop())
	c.Stop() // must not panic
}
