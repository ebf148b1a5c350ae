package relevance

import (
	"testing"
	"time"
)

func TestClassifyThresholds(t *testing.T) {
	cases := []struct {
		name                string
		priority, coherence float64
		want                Level
	}{
		{"both max", 1.0, 1.0, Conscious},
		{"just above conscious", 0.9, 0.75, Conscious},
		{"exactly 0.8 combined", 0.8, 0.8, Focused},
		{"exactly 0.6 combined", 0.9, 0.3, Peripheral},
		{"exactly 0.4 combined", 0.4, 0.4, Background},
		{"just above focused", 0.7, 0.55, Focused},
		{"low", 0.1, 0.1, Background},
	}
	for _, tc := range cases {
		if got := Classify(tc.priority, tc.coherence); got != tc.want {
			t.Errorf("%s: Classify(%v, %v) = %v, want %v",
				tc.name, tc.priority, tc.coherence, got, tc.want)
		}
	}
}

func TestClassifyDeterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		if got := Classify(0.9, 0.9); got != Conscious {
			t.Fatalf("run %d: got %v, want Conscious", i, got)
		}
	}
}

func TestLevelOrdering(t *testing.T) {
	if !(Background < Peripheral && Peripheral < Focused && Focused < Conscious) {
		t.Fatal("levels are not totally ordered")
	}
}

func TestCoherenceScenario(t *testing.T) {
	// One payload key, default producer strength:
	// (min(1, 1/10) + 0.5) / 2 = 0.3
	payload := map[string]any{"x": 1}
	got := Coherence(payload, DefaultProducerStrength)
	if got != 0.3 {
		t.Fatalf("Coherence = %v, want 0.3", got)
	}

	// combined = (0.9 + 0.3) / 2 = 0.6 exactly: falls to Peripheral,
	// not Focused, because thresholds are strict.
	if lvl := Classify(0.9, got); lvl != Peripheral {
		t.Fatalf("Classify(0.9, 0.3) = %v, want Peripheral", lvl)
	}
}

func TestCoherenceRichnessSaturates(t *testing.T) {
	payload := make(map[string]any, 25)
	for i := 0; i < 25; i++ {
		payload[string(rune('a'+i))] = i
	}
	if got := Coherence(payload, 1.0); got != 1.0 {
		t.Fatalf("Coherence = %v, want 1.0", got)
	}
}

func TestTemporalDistanceShortTerm(t *testing.T) {
	ref := time.Now()
	ev := ref.Add(-1800 * time.Second)
	if got := TemporalDistance(ev, ref, ScaleShortTerm); got != 0.5 {
		t.Fatalf("TemporalDistance = %v, want 0.5", got)
	}
}

func TestTemporalDistanceClamped(t *testing.T) {
	ref := time.Now()
	ev := ref.Add(-10 * time.Hour)
	if got := TemporalDistance(ev, ref, ScaleShortTerm); got != 1.0 {
		t.Fatalf("TemporalDistance = %v, want clamp to 1.0", got)
	}
	// Symmetric for future events.
	future := ref.Add(30 * time.Minute)
	if got := TemporalDistance(future, ref, ScaleShortTerm); got != 0.5 {
		t.Fatalf("future TemporalDistance = %v, want 0.5", got)
	}
}

func TestScaleDivisorFallback(t *testing.T) {
	if got := Scale("bogus").Divisor(); got != 3600.0 {
		t.Fatalf("unknown scale divisor = %v, want 3600", got)
	}
	if Scale("bogus").Valid() {
		t.Fatal("bogus scale reported valid")
	}
	if !ScaleExistential.Valid() {
		t.Fatal("existential scale reported invalid")
	}
}

func TestIsRelevantMonotonicity(t *testing.T) {
	// Non-increasing in distance.
	prev := Score(0.8, 0.9, 0.0)
	for d := 0.1; d <= 1.0; d += 0.1 {
		cur := Score(0.8, 0.9, d)
		if cur > prev {
			t.Fatalf("score increased with distance: %v -> %v at d=%v", prev, cur, d)
		}
		prev = cur
	}

	// Non-decreasing in significance.
	prev = Score(0.0, 0.9, 0.5)
	for s := 0.1; s <= 1.0; s += 0.1 {
		cur := Score(s, 0.9, 0.5)
		if cur < prev {
			t.Fatalf("score decreased with significance at s=%v", s)
		}
		prev = cur
	}

	// Non-decreasing in memory strength.
	prev = Score(0.8, 0.0, 0.5)
	for m := 0.1; m <= 1.0; m += 0.1 {
		cur := Score(0.8, m, 0.5)
		if cur < prev {
			t.Fatalf("score decreased with memory strength at m=%v", m)
		}
		prev = cur
	}
}

func TestIsRelevantThreshold(t *testing.T) {
	// (1.0 * 1.0) / (1 + 0) = 1.0 > 0.5
	if !IsRelevant(1.0, 1.0, 0.0, DefaultThreshold) {
		t.Fatal("fresh maximal event should be relevant")
	}
	// (0.5 * 1.0) / (1 + 0) = 0.5, strict >, not relevant
	if IsRelevant(0.5, 1.0, 0.0, DefaultThreshold) {
		t.Fatal("score equal to threshold should not be relevant")
	}
}

func TestLevelTextRoundTrip(t *testing.T) {
	for _, lvl := range Levels() {
		b, err := lvl.MarshalText()
		if err != nil {
			t.Fatalf("marshal %v: %v", lvl, err)
		}
		var back Level
		if err := back.UnmarshalText(b); err != nil {
			t.Fatalf("unmarshal %q: %v", b, err)
		}
		if back != lvl {
			t.Errorf("round trip %v -> %q -> %v", lvl, b, back)
		}
	}
	var l Level
	if err := l.UnmarshalText([]byte("nope")); err == nil {
		t.Fatal("expected error for unknown level name")
	}
}
