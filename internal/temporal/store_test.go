package temporal

import (
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/nidhogg/mindspace/internal/relevance"
)

func newTestStore(cfg Config) *Store {
	return NewStore(cfg, zap.NewNop())
}

func TestRecordDefaults(t *testing.T) {
	s := newTestStore(Config{})
	now := time.Now()

	id := s.Record(now, "observation", 0.7, -0.2, []string{"missing-cause"}, relevance.ScaleShortTerm)
	ev, ok := s.Get(id)
	if !ok {
		t.Fatal("recorded event not found")
	}
	if ev.MemoryStrength != 1.0 {
		t.Errorf("initial strength = %v, want 1.0", ev.MemoryStrength)
	}
	if ev.Significance != 0.7 {
		t.Errorf("significance = %v, want 0.7", ev.Significance)
	}

	// Causal relations are soft references.
	if _, ok := s.Get("missing-cause"); ok {
		t.Error("unresolved causal id should not be found")
	}
}

func TestRecordClampsSignificance(t *testing.T) {
	s := newTestStore(Config{})
	now := time.Now()

	id := s.Record(now, "observation", 3.5, 0, nil, relevance.ScaleImmediate)
	ev, _ := s.Get(id)
	if ev.Significance != 1.0 {
		t.Errorf("significance = %v, want clamp to 1.0", ev.Significance)
	}

	id = s.Record(now, "observation", -1, 0, nil, relevance.ScaleImmediate)
	ev, _ = s.Get(id)
	if ev.Significance != 0.0 {
		t.Errorf("significance = %v, want clamp to 0.0", ev.Significance)
	}
}

func TestRecordUnknownScaleFallsBack(t *testing.T) {
	s := newTestStore(Config{})
	id := s.Record(time.Now(), "observation", 0.5, 0, nil, relevance.Scale("eon"))
	ev, _ := s.Get(id)
	if ev.Scale != relevance.ScaleShortTerm {
		t.Errorf("scale = %q, want short_term fallback", ev.Scale)
	}
}

func TestDecayMonotone(t *testing.T) {
	s := newTestStore(Config{})
	base := time.Now()
	id := s.Record(base, "observation", 0.9, 0, nil, relevance.ScaleShortTerm)

	prev := 1.0
	for _, age := range []time.Duration{
		30 * time.Minute, time.Hour, 2 * time.Hour, 24 * time.Hour,
	} {
		s.Decay(base.Add(age))
		ev, _ := s.Get(id)
		if ev.MemoryStrength > prev {
			t.Fatalf("strength rose from %v to %v at age %v", prev, ev.MemoryStrength, age)
		}
		prev = ev.MemoryStrength
	}

	// One half-life (1 hour for short_term) halves the strength.
	s2 := newTestStore(Config{})
	id2 := s2.Record(base, "observation", 0.9, 0, nil, relevance.ScaleShortTerm)
	s2.Decay(base.Add(time.Hour))
	ev, _ := s2.Get(id2)
	if ev.MemoryStrength < 0.499 || ev.MemoryStrength > 0.501 {
		t.Errorf("strength after one half-life = %v, want ~0.5", ev.MemoryStrength)
	}
}

func TestDecayFloor(t *testing.T) {
	s := newTestStore(Config{Decay: DecayConfig{HalfLifeFactor: 1.0, MinStrength: 0.05}})
	base := time.Now()
	id := s.Record(base, "observation", 0.9, 0, nil, relevance.ScaleImmediate)

	s.Decay(base.Add(time.Hour)) // thousands of half-lives
	ev, _ := s.Get(id)
	if ev.MemoryStrength != 0.05 {
		t.Errorf("strength = %v, want floor 0.05", ev.MemoryStrength)
	}
}

func TestDecayNeverResurrects(t *testing.T) {
	s := newTestStore(Config{})
	base := time.Now()
	id := s.Record(base, "observation", 0.9, 0, nil, relevance.ScaleImmediate)

	s.Decay(base.Add(10 * time.Second))
	ev, _ := s.Get(id)
	decayed := ev.MemoryStrength

	// A sweep with an earlier reference time must not raise strength.
	s.Decay(base.Add(2 * time.Second))
	ev, _ = s.Get(id)
	if ev.MemoryStrength > decayed {
		t.Fatalf("strength resurrected: %v -> %v", decayed, ev.MemoryStrength)
	}
}

func TestRecent(t *testing.T) {
	s := newTestStore(Config{})
	base := time.Now()
	for i := 0; i < 5; i++ {
		s.Record(base.Add(time.Duration(i)*time.Second), fmt.Sprintf("kind-%d", i), 0.5, 0, nil, relevance.ScaleShortTerm)
	}

	recent := s.Recent(3)
	if len(recent) != 3 {
		t.Fatalf("got %d events, want 3", len(recent))
	}
	if recent[0].Kind != "kind-4" || recent[2].Kind != "kind-2" {
		t.Errorf("wrong order: %s, %s, %s", recent[0].Kind, recent[1].Kind, recent[2].Kind)
	}

	// n larger than the store returns everything.
	if got := len(s.Recent(100)); got != 5 {
		t.Errorf("Recent(100) = %d events, want 5", got)
	}
}

func TestRelevant(t *testing.T) {
	s := newTestStore(Config{})
	now := time.Now()

	fresh := s.Record(now, "important", 0.9, 0, nil, relevance.ScaleShortTerm)
	s.Record(now.Add(-5*time.Hour), "stale", 0.9, 0, nil, relevance.ScaleShortTerm)
	s.Record(now, "trivial", 0.1, 0, nil, relevance.ScaleShortTerm)

	got := s.Relevant(now, relevance.DefaultThreshold)
	if len(got) != 1 {
		t.Fatalf("got %d relevant events, want 1", len(got))
	}
	if got[0].ID != fresh {
		t.Errorf("relevant event = %q, want %q", got[0].ID, fresh)
	}
}

func TestRetentionCap(t *testing.T) {
	s := newTestStore(Config{RetainCap: 10})
	base := time.Now()

	var first string
	for i := 0; i < 25; i++ {
		id := s.Record(base.Add(time.Duration(i)*time.Second), "observation", 0.5, 0, nil, relevance.ScaleShortTerm)
		if i == 0 {
			first = id
		}
	}

	if s.Len() != 10 {
		t.Fatalf("len = %d, want 10", s.Len())
	}
	if _, ok := s.Get(first); ok {
		t.Error("oldest event should have been evicted")
	}
	recent := s.Recent(10)
	if len(recent) != 10 {
		t.Fatalf("got %d events, want 10", len(recent))
	}
}

func TestReset(t *testing.T) {
	s := newTestStore(Config{})
	s.Record(time.Now(), "observation", 0.5, 0, nil, relevance.ScaleShortTerm)
	s.Reset()
	if s.Len() != 0 {
		t.Fatalf("len after reset = %d, want 0", s.Len())
	}
	if got := s.Recent(5); len(got) != 0 {
		t.Fatalf("recent after reset = %d events, want 0", len(got))
	}
}
