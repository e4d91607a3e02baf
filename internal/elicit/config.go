package elicit

import (
	"errors"
	"fmt"

	"github.com/cocosci/fishchain/internal/model"
)

// Config selects the widget variant
type Config struct {
	Mode               model.Mode
	Min                float64 // Slot bounds; fraction mode uses [0,1]
	Max                float64
	ConfidenceMin      float64
	ConfidenceMax      float64
	FixedTotal         float64 // Count mode: revealed values must sum to this; 0 disables
	RevealLimit        int     // Maximum revealed slots, confidence included; 0 disables revealing
	RevealByDefault    bool
	ConfidenceRequired bool
	Epsilon            float64
}

// FractionConfig is the slider widget: probabilities over n categories with a
// confidence from n to 50.
func FractionConfig(n int) Config {
	return Config{
		Mode:          model.ModeFraction,
		Min:           0,
		Max:           1,
		ConfidenceMin: float64(n),
		ConfidenceMax: 50,
		Epsilon:       0.001,
	}
}

// MessageConfig is the count widget used to compose a chain message
func MessageConfig(revealLimit int) Config {
	return Config{
		Mode:            model.ModeCount,
		Min:             1,
		Max:             20,
		ConfidenceMin:   1,
		ConfidenceMax:   15,
		RevealLimit:     revealLimit,
		RevealByDefault: true,
		Epsilon:         0.001,
	}
}

// ConfigFromModel converts the configuration file section
func ConfigFromModel(c model.ElicitationConfig) Config {
	cfg := Config{
		Mode:               c.Mode,
		Min:                c.Min,
		Max:                c.Max,
		ConfidenceMin:      c.ConfidenceMin,
		ConfidenceMax:      c.ConfidenceMax,
		FixedTotal:         c.FixedTotal,
		RevealLimit:        c.RevealLimit,
		RevealByDefault:    c.RevealByDefault,
		ConfidenceRequired: c.ConfidenceRequired,
		Epsilon:            c.Epsilon,
	}
	if cfg.Mode == model.ModeFraction {
		cfg.Min, cfg.Max = 0, 1
	}
	return cfg
}

// Validate rejects configurations no widget can honor
func (c Config) Validate() error {
	switch c.Mode {
	case model.ModeFraction:
		if c.Min < 0 || c.Max > 1 {
			return fmt.Errorf("fraction bounds must lie in [0,1], got [%v,%v]", c.Min, c.Max)
		}
		if c.FixedTotal != 0 {
			return errors.New("fixed total applies to count mode only")
		}
	case model.ModeCount:
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}

	if c.Min >= c.Max {
		return fmt.Errorf("invalid bounds [%v,%v]", c.Min, c.Max)
	}
	if c.ConfidenceMin > c.ConfidenceMax {
		return fmt.Errorf("invalid confidence bounds [%v,%v]", c.ConfidenceMin, c.ConfidenceMax)
	}
	if c.RevealLimit < 0 {
		return fmt.Errorf("reveal limit must be >= 0, got %d", c.RevealLimit)
	}
	if c.FixedTotal < 0 {
		return fmt.Errorf("fixed total must be >= 0, got %v", c.FixedTotal)
	}
	if c.Epsilon < 0 {
		return fmt.Errorf("epsilon must be >= 0, got %v", c.Epsilon)
	}
	return nil
}
