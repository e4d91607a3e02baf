package score

import (
	"fmt"
	"strings"

	"github.com/cocosci/fishchain/internal/estimate"
	"github.com/cocosci/fishchain/internal/model"
)

// Scorer checks finalized responses against the true lake proportions and
// assigns bonus tiers
type Scorer struct {
	estimator  *estimate.Estimator
	thresholds model.BonusConfig
}

// NewScorer creates a scorer. Thresholds must be ascending.
func NewScorer(est *estimate.Estimator, thresholds model.BonusConfig) (*Scorer, error) {
	if est == nil {
		return nil, fmt.Errorf("scorer needs an estimator")
	}
	if thresholds.Small < 0 || thresholds.Small > thresholds.Medium || thresholds.Medium > thresholds.Large {
		return nil, fmt.Errorf("bonus thresholds must be ascending, got %v/%v/%v",
			thresholds.Small, thresholds.Medium, thresholds.Large)
	}
	return &Scorer{estimator: est, thresholds: thresholds}, nil
}

// Score evaluates resp against cond. It never mutates either.
func (s *Scorer) Score(resp model.FinalizedResponse, cond model.Condition) model.Score {
	var signals []model.Signal

	// 1. Per-category coverage
	categories, coverageSignal := s.coverage(resp, cond)
	signals = append(signals, coverageSignal)
	allCovered := coverageSignal.Severity == model.SeverityInfo

	// 2. Hidden categories
	if hiddenSignal := s.hidden(categories); hiddenSignal.Type != "" {
		signals = append(signals, hiddenSignal)
	}

	// 3. Withheld confidence
	size := s.estimator.Size(resp)
	if resp.Confidence == nil {
		signals = append(signals, model.Signal{
			Type:        model.SignalNoEvidence,
			Severity:    model.SeverityWarning,
			Description: fmt.Sprintf("Confidence withheld, using default size %.2f", size),
			Data: map[string]interface{}{
				"effective_size": size,
			},
		})
	}

	// 4. Bonus tier
	tier, tierSignal := s.tier(size, allCovered)
	signals = append(signals, tierSignal)

	return model.Score{
		ResponseID:    resp.ID,
		ConditionID:   cond.ID,
		Policy:        s.estimator.Policy().Name(),
		Categories:    categories,
		AllCovered:    allCovered,
		EffectiveSize: size,
		Tier:          tier,
		Signals:       signals,
	}
}

// coverage checks each true probability against the reported interval
func (s *Scorer) coverage(resp model.FinalizedResponse, cond model.Condition) ([]model.CategoryCoverage, model.Signal) {
	estimates := s.estimator.ResponseIntervals(resp, cond)
	categories := make([]model.CategoryCoverage, len(cond.Categories))

	covered := 0
	var missed []string
	for i, cat := range cond.Categories {
		cc := model.CategoryCoverage{
			Label: cat.Label,
			True:  cat.TrueProbability,
		}
		if est := estimates[i]; est.OK {
			p := est.Proportion
			cc.Reported = &p
			cc.Interval = est.Interval
			cc.Covered = est.Interval.Contains(cat.TrueProbability)
		}
		if cc.Covered {
			covered++
		} else {
			missed = append(missed, cat.Label)
		}
		categories[i] = cc
	}

	total := len(cond.Categories)
	ratio := 0.0
	if total > 0 {
		ratio = float64(covered) / float64(total)
	}

	severity := model.SeverityInfo
	description := fmt.Sprintf("All %d categories inside their intervals", total)
	if covered < total {
		severity = model.SeverityWarning
		if covered == 0 {
			severity = model.SeverityCritical
		}
		description = fmt.Sprintf("Coverage: %d/%d (missed %s)", covered, total, strings.Join(missed, ", "))
	}

	return categories, model.Signal{
		Type:        model.SignalCoverage,
		Severity:    severity,
		Description: description,
		Data: map[string]interface{}{
			"covered": covered,
			"total":   total,
			"ratio":   ratio,
			"policy":  s.estimator.Policy().Name(),
			"formula": "lower(p_reported, n) <= p_true <= upper(p_reported, n)",
		},
	}
}

// hidden reports categories absent from the response
func (s *Scorer) hidden(categories []model.CategoryCoverage) model.Signal {
	var labels []string
	for _, cc := range categories {
		if cc.Reported == nil {
			labels = append(labels, cc.Label)
		}
	}
	if len(labels) == 0 {
		return model.Signal{}
	}

	return model.Signal{
		Type:        model.SignalHidden,
		Severity:    model.SeverityInfo,
		Description: fmt.Sprintf("%d categories not disclosed: %s", len(labels), strings.Join(labels, ", ")),
		Data: map[string]interface{}{
			"hidden": labels,
			"count":  len(labels),
		},
	}
}

// tier maps effective size to a bonus tier; a missed category forfeits the bonus
func (s *Scorer) tier(size float64, allCovered bool) (model.BonusTier, model.Signal) {
	tier := TierFor(size, s.thresholds)
	earned := tier
	if !allCovered {
		earned = model.TierNone
	}

	severity := model.SeverityInfo
	description := fmt.Sprintf("Effective size %.2f earns tier %s", size, earned)
	if earned != tier {
		severity = model.SeverityWarning
		description = fmt.Sprintf("Effective size %.2f would earn tier %s, forfeited by a missed category", size, tier)
	}

	return earned, model.Signal{
		Type:        model.SignalBonusTier,
		Severity:    severity,
		Description: description,
		Data: map[string]interface{}{
			"effective_size": size,
			"size_tier":      string(tier),
			"tier":           string(earned),
			"thresholds":     []float64{s.thresholds.Small, s.thresholds.Medium, s.thresholds.Large},
			"formula":        "large if n >= t3, medium if n >= t2, small if n >= t1, else none; none unless all covered",
		},
	}
}

// TierFor maps an effective size onto ascending thresholds
func TierFor(size float64, thresholds model.BonusConfig) model.BonusTier {
	switch {
	case size >= thresholds.Large:
		return model.TierLarge
	case size >= thresholds.Medium:
		return model.TierMedium
	case size >= thresholds.Small:
		return model.TierSmall
	default:
		return model.TierNone
	}
}
