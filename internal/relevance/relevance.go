// Package relevance holds the pure scoring functions shared by the
// workspace and temporal stores: coherence, attention classification
// and time-weighted relevance. Nothing in here carries state, which
// keeps admission policy and decay policy independently testable.
package relevance

import (
	"fmt"
	"math"
	"time"
)

// Level is the attention rank assigned to workspace content.
// Levels are totally ordered: Background < Peripheral < Focused < Conscious.
type Level int

const (
	Background Level = iota
	Peripheral
	Focused
	Conscious
)

// String returns the wire name of the level.
func (l Level) String() string {
	switch l {
	case Background:
		return "background"
	case Peripheral:
		return "peripheral"
	case Focused:
		return "focused"
	case Conscious:
		return "conscious"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// MarshalText implements encoding.TextMarshaler so levels render as their
// wire names in JSON maps and fields.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(b []byte) error {
	switch string(b) {
	case "background":
		*l = Background
	case "peripheral":
		*l = Peripheral
	case "focused":
		*l = Focused
	case "conscious":
		*l = Conscious
	default:
		return fmt.Errorf("unknown attention level: %q", string(b))
	}
	return nil
}

// Levels lists all attention levels in ascending order.
func Levels() []Level {
	return []Level{Background, Peripheral, Focused, Conscious}
}

// Scale classifies an event's expected relevance horizon.
type Scale string

const (
	ScaleImmediate   Scale = "immediate"
	ScaleShortTerm   Scale = "short_term"
	ScaleMediumTerm  Scale = "medium_term"
	ScaleLongTerm    Scale = "long_term"
	ScaleExistential Scale = "existential"
)

// scaleDivisors normalize time distance per scale, in seconds.
var scaleDivisors = map[Scale]float64{
	ScaleImmediate:   1.0,
	ScaleShortTerm:   3600.0,     // 1 hour
	ScaleMediumTerm:  86400.0,    // 1 day
	ScaleLongTerm:    2592000.0,  // 30 days
	ScaleExistential: 31536000.0, // 1 year
}

// Divisor returns the normalization divisor for a scale.
// Unknown scales fall back to the short-term divisor.
func (s Scale) Divisor() float64 {
	if d, ok := scaleDivisors[s]; ok {
		return d
	}
	return scaleDivisors[ScaleShortTerm]
}

// Valid reports whether s is one of the known scales.
func (s Scale) Valid() bool {
	_, ok := scaleDivisors[s]
	return ok
}

// DefaultProducerStrength is used for producers with no configured connection.
const DefaultProducerStrength = 0.5

// DefaultThreshold gates IsRelevant when the caller passes no override.
const DefaultThreshold = 0.5

// ClampUnit clamps v to [0, 1].
func ClampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Coherence blends payload richness with the producer's connection strength.
// Richness saturates at 10 payload keys.
func Coherence(payload map[string]any, producerStrength float64) float64 {
	richness := math.Min(1.0, float64(len(payload))/10.0)
	return (richness + producerStrength) / 2.0
}

// Classify maps a priority/coherence pair to an attention level.
// Thresholds are strict: a combined score of exactly 0.8 is Focused,
// not Conscious.
func Classify(priority, coherence float64) Level {
	combined := (priority + coherence) / 2.0
	switch {
	case combined > 0.8:
		return Conscious
	case combined > 0.6:
		return Focused
	case combined > 0.4:
		return Peripheral
	default:
		return Background
	}
}

// TemporalDistance normalizes the gap between an event and a reference
// time by the event's scale divisor, clamped to [0, 1].
func TemporalDistance(eventTime, reference time.Time, scale Scale) float64 {
	delta := math.Abs(reference.Sub(eventTime).Seconds())
	return math.Min(1.0, delta/scale.Divisor())
}

// Score computes the time-weighted relevance of an event.
// It is non-increasing in distance and non-decreasing in significance
// and memory strength.
func Score(significance, memoryStrength, distance float64) float64 {
	return (significance * memoryStrength) / (1.0 + distance)
}

// IsRelevant reports whether an event's relevance exceeds the threshold.
func IsRelevant(significance, memoryStrength, distance, threshold float64) bool {
	return Score(significance, memoryStrength, distance) > threshold
}
