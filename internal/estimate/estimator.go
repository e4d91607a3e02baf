package estimate

import (
	"log/slog"
	"time"

	"github.com/cocosci/fishchain/internal/cache"
	"github.com/cocosci/fishchain/internal/model"
)

// Estimate is the interval for one category slot
type Estimate struct {
	Label      string                 `json:"label"`
	Proportion float64                `json:"proportion"`
	Interval   model.CredibleInterval `json:"interval"`
	OK         bool                   `json:"ok"` // false when the slot is unset or hidden
}

// Estimator applies a Policy to belief states and finalized responses
type Estimator struct {
	policy      Policy
	cache       cache.Cache
	ttl         time.Duration
	defaultSize float64
	logger      *slog.Logger
}

// Option configures an Estimator
type Option func(*Estimator)

// WithCache memoizes intervals in c
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(e *Estimator) {
		e.cache = c
		e.ttl = ttl
	}
}

// WithDefaultSize sets the confidence assumed when the slot is withheld
func WithDefaultSize(n float64) Option {
	return func(e *Estimator) {
		if n > 0 {
			e.defaultSize = n
		}
	}
}

// WithLogger sets the diagnostics logger
func WithLogger(l *slog.Logger) Option {
	return func(e *Estimator) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEstimator creates an estimator for policy
func NewEstimator(policy Policy, opts ...Option) *Estimator {
	e := &Estimator{
		policy:      policy,
		defaultSize: 1,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the underlying policy
func (e *Estimator) Policy() Policy {
	return e.policy
}

// Interval returns the policy interval for (p, n), consulting the cache first
func (e *Estimator) Interval(p, n float64) model.CredibleInterval {
	if e.cache == nil {
		return e.policy.Interval(p, n)
	}

	key := cache.Key(e.policy.Name(), p, n)
	if ci, ok := e.cache.Get(key); ok {
		return ci
	}

	ci := e.policy.Interval(p, n)
	e.cache.Set(key, ci, e.ttl)
	e.logger.Debug("interval computed", "policy", e.policy.Name(), "p", p, "n", n, "lower", ci.Lower, "upper", ci.Upper)
	return ci
}

// Intervals returns one estimate per category of the live state
func (e *Estimator) Intervals(state model.BeliefState, cond model.Condition) []Estimate {
	props, ok := Proportions(state)
	n := e.defaultSize
	if state.Confidence.Set && state.ConfidenceRevealed() {
		n = state.Confidence.Value
	}

	out := make([]Estimate, len(state.Values))
	for i := range state.Values {
		out[i].Label = labelAt(cond, i)
		if !ok[i] {
			continue
		}
		out[i].Proportion = props[i]
		out[i].Interval = e.Interval(props[i], n)
		out[i].OK = true
	}
	return out
}

// ResponseIntervals returns one estimate per condition category for a finalized response
func (e *Estimator) ResponseIntervals(resp model.FinalizedResponse, cond model.Condition) []Estimate {
	return e.Intervals(StateFromResponse(resp, cond), cond)
}

// Size returns the pseudo-count used for a response
func (e *Estimator) Size(resp model.FinalizedResponse) float64 {
	if resp.Confidence == nil {
		return EffectiveSize(e.policy, e.defaultSize)
	}
	return EffectiveSize(e.policy, *resp.Confidence)
}

// Proportions converts slot values to proportions. Fraction values are used as-is;
// counts are divided by the sum of the set, revealed counts.
func Proportions(state model.BeliefState) ([]float64, []bool) {
	props := make([]float64, len(state.Values))
	ok := make([]bool, len(state.Values))

	total := 0.0
	for i, slot := range state.Values {
		if slot.Set && state.IsRevealed(i) {
			ok[i] = true
			total += slot.Value
		}
	}

	for i, slot := range state.Values {
		if !ok[i] {
			continue
		}
		switch {
		case state.Mode != model.ModeCount:
			props[i] = slot.Value
		case total > 0:
			props[i] = slot.Value / total
		default:
			ok[i] = false
		}
	}
	return props, ok
}

// StateFromResponse rebuilds a read-only belief state from a finalized response
func StateFromResponse(resp model.FinalizedResponse, cond model.Condition) model.BeliefState {
	state := model.BeliefState{
		Mode:     resp.Mode,
		Values:   make([]model.Slot, len(cond.Categories)),
		Revealed: make([]bool, len(cond.Categories)+1),
	}
	for i, cat := range cond.Categories {
		if v, ok := resp.Values[cat.Label]; ok {
			state.Values[i] = model.Slot{Value: v, Set: true}
			state.Revealed[i] = true
		}
	}
	if resp.Confidence != nil {
		state.Confidence = model.Slot{Value: *resp.Confidence, Set: true}
		state.Revealed[len(cond.Categories)] = true
	}
	return state
}

func labelAt(cond model.Condition, i int) string {
	if i < len(cond.Categories) {
		return cond.Categories[i].Label
	}
	return ""
}
