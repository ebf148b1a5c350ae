package workspace

import (
	"math"
	"time"

	"github.com/nidhogg/mindspace/internal/relevance"
)

// Metrics are the derived scalar summaries of workspace state.
// All values are in [0, 1].
type Metrics struct {
	CoherenceLevel     float64 `json:"coherence_level"`
	IntegrationDepth   float64 `json:"integration_depth"`
	AttentionStability float64 `json:"attention_stability"`
	ContentRichness    float64 `json:"content_richness"`
}

// metricsView is the minimal copy of store state the aggregation needs,
// taken under the read lock so the computation itself runs unlocked.
type metricsView struct {
	conscious []Item
	focusTop  []Item
	kinds     map[string]struct{}
}

// Aggregator derives summary metrics from a workspace store. It is a
// read-only consumer; it never mutates the store.
type Aggregator struct {
	store *Store
}

// NewAggregator creates an aggregator over the given store.
func NewAggregator(store *Store) *Aggregator {
	return &Aggregator{store: store}
}

// Aggregate computes current metrics against the reference time.
func (a *Aggregator) Aggregate(now time.Time) Metrics {
	v := a.store.metricsView()

	var m Metrics

	// Mean coherence over Conscious items.
	if len(v.conscious) > 0 {
		sum := 0.0
		producers := make(map[string]struct{})
		for _, it := range v.conscious {
			sum += it.Coherence
			producers[it.ProducerID] = struct{}{}
		}
		m.CoherenceLevel = sum / float64(len(v.conscious))
		m.IntegrationDepth = math.Min(1.0, float64(len(producers))/10.0)
	}

	// Mean age of the top five focus items, normalized to 5 minutes.
	if len(v.focusTop) > 0 {
		ageSum := 0.0
		for _, it := range v.focusTop {
			ageSum += now.Sub(it.CreatedAt).Seconds()
		}
		meanAge := ageSum / float64(len(v.focusTop))
		m.AttentionStability = math.Min(1.0, meanAge/300.0)
	}

	m.ContentRichness = math.Min(1.0, float64(len(v.kinds))/15.0)
	return m
}

// metricsView copies the fields Aggregate needs under a short read lock.
func (s *Store) metricsView() metricsView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := metricsView{kinds: make(map[string]struct{}, len(s.items))}
	for _, id := range s.order {
		it, ok := s.items[id]
		if !ok {
			continue
		}
		v.kinds[it.Kind] = struct{}{}
		if it.Level == relevance.Conscious {
			v.conscious = append(v.conscious, *it)
		}
	}

	top := len(s.focus)
	if top > 5 {
		top = 5
	}
	for _, id := range s.focus[:top] {
		if it, ok := s.items[id]; ok {
			v.focusTop = append(v.focusTop, *it)
		}
	}
	return v
}
