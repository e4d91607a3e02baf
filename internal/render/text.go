package render

import (
	"fmt"
	"strings"

	"github.com/cocosci/fishchain/internal/estimate"
	"github.com/cocosci/fishchain/internal/model"
)

// barWidth is the number of cells in a full terminal bar
const barWidth = 20

// BeliefText renders a belief state as terminal bars with one interval per
// category. estimates must be in condition order, as Estimator.Intervals returns them.
func BeliefText(state model.BeliefState, estimates []estimate.Estimate, cond model.Condition) string {
	var sb strings.Builder

	width := len(model.InformationKey)
	for _, label := range cond.Labels() {
		if len(label) > width {
			width = len(label)
		}
	}

	for i, cat := range cond.Categories {
		if i >= len(state.Values) {
			break
		}
		slot := state.Values[i]
		fmt.Fprintf(&sb, "  %-*s ", width, cat.Label)

		switch {
		case !state.IsRevealed(i):
			sb.WriteString("(hidden)\n")
			continue
		case !slot.Set:
			sb.WriteString("(unset)\n")
			continue
		}

		var est estimate.Estimate
		if i < len(estimates) {
			est = estimates[i]
		}

		sb.WriteString(bar(est.Proportion))
		fmt.Fprintf(&sb, " %-6s", formatValue(slot.Value, state.Mode))
		if est.OK {
			fmt.Fprintf(&sb, " p=%.2f [%.2f, %.2f]", est.Proportion, est.Interval.Lower, est.Interval.Upper)
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "  %-*s ", width, model.InformationKey)
	switch {
	case !state.ConfidenceRevealed():
		sb.WriteString("(hidden)\n")
	case !state.Confidence.Set:
		sb.WriteString("(unset)\n")
	default:
		fmt.Fprintf(&sb, "%s catches\n", formatNumber(state.Confidence.Value))
	}

	return sb.String()
}

func bar(p float64) string {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	filled := int(p*barWidth + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

func formatValue(v float64, mode model.Mode) string {
	if mode == model.ModeFraction {
		return fmt.Sprintf("%.3f", v)
	}
	return formatNumber(v)
}
