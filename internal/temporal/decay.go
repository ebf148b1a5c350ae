package temporal

import (
	"math"
	"time"

	"github.com/nidhogg/mindspace/internal/relevance"
)

// DecayConfig controls memory strength decay behavior.
type DecayConfig struct {
	HalfLifeFactor float64 // half-life as a multiple of the event scale divisor (default 1.0)
	MinStrength    float64 // floor value, never decay below this (default 0.05)
}

// DefaultDecayConfig returns sensible defaults.
func DefaultDecayConfig() DecayConfig {
	return DecayConfig{
		HalfLifeFactor: 1.0,
		MinStrength:    0.05,
	}
}

// strengthAt computes memory strength for an event of the given scale at
// the given age. Exponential half-life proportional to the scale divisor:
// an immediate event halves every second, a short-term event every hour,
// an existential event every year. Strength depends only on age, so
// repeated sweeps are monotone non-increasing and never resurrect.
func (c DecayConfig) strengthAt(age time.Duration, scale relevance.Scale) float64 {
	if age < 0 {
		age = 0
	}
	halfLife := c.HalfLifeFactor * scale.Divisor()
	if halfLife <= 0 {
		halfLife = scale.Divisor()
	}
	strength := math.Exp2(-age.Seconds() / halfLife)
	if strength < c.MinStrength {
		return c.MinStrength
	}
	return strength
}
