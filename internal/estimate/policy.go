package estimate

import (
	"fmt"
	"math"

	"github.com/cocosci/fishchain/internal/model"
)

// Policy turns a reported proportion p and confidence n into a credible interval.
// Implementations are pure and cheap enough to run on every render.
type Policy interface {
	Name() string
	Interval(p, n float64) model.CredibleInterval
}

// Common equal-tail presets
var (
	Tails95 = EqualTail{LowTail: 0.025, HighTail: 0.975}
	Tails50 = EqualTail{LowTail: 0.25, HighTail: 0.75}
)

var fullInterval = model.CredibleInterval{Lower: 0, Upper: 1}

// EqualTail cuts the same probability mass from each tail of
// Beta(p*n + s, (1-p)*n + s).
type EqualTail struct {
	LowTail   float64
	HighTail  float64
	Smoothing float64
}

// Name identifies the policy and its parameters
func (e EqualTail) Name() string {
	return fmt.Sprintf("equal-tail(%g,%g,s=%g)", e.LowTail, e.HighTail, e.Smoothing)
}

// Interval returns [Q(low), Q(high)]; p at either boundary collapses onto it
func (e EqualTail) Interval(p, n float64) model.CredibleInterval {
	if p <= 0 {
		return model.CredibleInterval{Lower: 0, Upper: 0}
	}
	if p >= 1 {
		return model.CredibleInterval{Lower: 1, Upper: 1}
	}

	alpha, beta := shape(p, n, e.Smoothing)
	if !validShape(alpha, beta) {
		return fullInterval
	}

	return model.CredibleInterval{
		Lower: BetaQuantile(e.LowTail, alpha, beta),
		Upper: BetaQuantile(e.HighTail, alpha, beta),
	}
}

// HDI greedily grows a window around the mode of Beta(p*n + s, (1-p)*n + s)
// until it holds Coverage mass.
type HDI struct {
	Coverage  float64
	Step      float64
	Smoothing float64
}

// NewHDI returns an HDI policy with the usual +1 smoothing
func NewHDI(coverage, step float64) HDI {
	return HDI{Coverage: coverage, Step: step, Smoothing: 1}
}

// Name identifies the policy and its parameters
func (h HDI) Name() string {
	return fmt.Sprintf("hdi(%g,step=%g,s=%g)", h.Coverage, h.Step, h.Smoothing)
}

// MaxSteps bounds the greedy search
func (h HDI) MaxSteps() int {
	return 2*int(math.Ceil(1/h.step())) + 4
}

// Interval runs the greedy search. Exceeding MaxSteps is a bug and panics.
func (h HDI) Interval(p, n float64) model.CredibleInterval {
	alpha, beta := shape(clamp01(p), n, h.Smoothing)
	if !validShape(alpha, beta) {
		return fullInterval
	}

	coverage := math.Min(h.Coverage, 1)
	step := h.step()
	mode := BetaMode(alpha, beta)
	lo, hi := mode-step, mode+step

	mass := func(a, b float64) float64 {
		return BetaCDF(b, alpha, beta) - BetaCDF(a, alpha, beta)
	}

	limit := h.MaxSteps()
	for i := 0; mass(lo, hi) < coverage; i++ {
		if i >= limit {
			panic(fmt.Sprintf("hdi: no convergence after %d steps (alpha=%v beta=%v coverage=%v)", i, alpha, beta, coverage))
		}

		gainLo := mass(lo-step, lo)
		gainHi := mass(hi, hi+step)
		switch {
		case gainHi > gainLo:
			hi += step
		case gainLo > gainHi:
			lo -= step
		case lo > 0:
			lo -= step
		default:
			hi += step
		}
	}

	return model.CredibleInterval{Lower: clamp01(lo), Upper: clamp01(hi)}
}

func (h HDI) step() float64 {
	if h.Step <= 0 || h.Step > 0.5 {
		return 0.01
	}
	return h.Step
}

// SizeTransform maps a UI confidence c to an effective sample size 2^(c/Scale)
// before delegating to Base.
type SizeTransform struct {
	Base  Policy
	Scale float64
}

// Name identifies the policy and its parameters
func (s SizeTransform) Name() string {
	return fmt.Sprintf("size-transform(%s,scale=%g)", s.Base.Name(), s.scale())
}

// Size returns the effective sample size for a UI confidence
func (s SizeTransform) Size(confidence float64) float64 {
	return math.Pow(2, confidence/s.scale())
}

// Interval delegates to Base with the transformed size
func (s SizeTransform) Interval(p, confidence float64) model.CredibleInterval {
	return s.Base.Interval(p, s.Size(confidence))
}

func (s SizeTransform) scale() float64 {
	if s.Scale <= 0 {
		return 10
	}
	return s.Scale
}

// EffectiveSize returns the pseudo-count a policy actually feeds the Beta model
func EffectiveSize(p Policy, confidence float64) float64 {
	if st, ok := p.(SizeTransform); ok {
		return st.Size(confidence)
	}
	return confidence
}

// FromConfig builds the configured policy
func FromConfig(cfg model.IntervalConfig) (Policy, error) {
	if cfg.Smoothing < 0 {
		return nil, fmt.Errorf("interval smoothing must be >= 0, got %v", cfg.Smoothing)
	}

	tails := func() (EqualTail, error) {
		if cfg.LowTail < 0 || cfg.HighTail > 1 || cfg.LowTail >= cfg.HighTail {
			return EqualTail{}, fmt.Errorf("invalid tails (%v, %v)", cfg.LowTail, cfg.HighTail)
		}
		return EqualTail{LowTail: cfg.LowTail, HighTail: cfg.HighTail, Smoothing: cfg.Smoothing}, nil
	}

	switch cfg.Policy {
	case "", "equal-tail":
		return tails()
	case "hdi":
		if cfg.Coverage <= 0 || cfg.Coverage > 1 {
			return nil, fmt.Errorf("hdi coverage must be in (0,1], got %v", cfg.Coverage)
		}
		if cfg.Step <= 0 || cfg.Step > 0.5 {
			return nil, fmt.Errorf("hdi step must be in (0,0.5], got %v", cfg.Step)
		}
		if cfg.HDISmoothing < 0 {
			return nil, fmt.Errorf("hdi smoothing must be >= 0, got %v", cfg.HDISmoothing)
		}
		return HDI{Coverage: cfg.Coverage, Step: cfg.Step, Smoothing: cfg.HDISmoothing}, nil
	case "size-transform":
		base, err := tails()
		if err != nil {
			return nil, err
		}
		return SizeTransform{Base: base, Scale: cfg.SizeScale}, nil
	default:
		return nil, fmt.Errorf("unknown interval policy %q", cfg.Policy)
	}
}
