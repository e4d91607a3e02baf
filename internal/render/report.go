package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/cocosci/fishchain/internal/model"
	"github.com/cocosci/fishchain/internal/worker"
)

// footer is appended to Markdown reports unless disabled
const footer = "\n---\n\n_Generated by fishchain. Intervals are posterior credible intervals over each category proportion._\n"

// Renderer writes score reports as JSON and Markdown
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// WriteJSON writes v as indented JSON
func (r *Renderer) WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// RenderJSON writes v as indented JSON to path
func (r *Renderer) RenderJSON(v any, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

// RenderMarkdown writes a single score report to path
func (r *Renderer) RenderMarkdown(score *model.Score, path string) error {
	return r.writeFile(path, r.ScoreMarkdown(score))
}

// RenderSummaryMarkdown writes a batch summary report to path
func (r *Renderer) RenderSummaryMarkdown(summary worker.Summary, results []*worker.ScoreResult, path string) error {
	return r.writeFile(path, r.SummaryMarkdown(summary, results))
}

// ScoreMarkdown renders one score as Markdown
func (r *Renderer) ScoreMarkdown(score *model.Score) string {
	var sb strings.Builder

	title := "Score report"
	if score.ResponseID != "" {
		title += ": " + score.ResponseID
	}
	fmt.Fprintf(&sb, "# %s\n\n", title)
	fmt.Fprintf(&sb, "- **Condition:** %s\n", score.ConditionID)
	fmt.Fprintf(&sb, "- **Policy:** %s\n", score.Policy)
	fmt.Fprintf(&sb, "- **Effective size:** %.2f\n", score.EffectiveSize)
	fmt.Fprintf(&sb, "- **All covered:** %s\n", yesNo(score.AllCovered))
	fmt.Fprintf(&sb, "- **Bonus tier:** %s\n\n", score.Tier)

	sb.WriteString("## Categories\n\n")
	sb.WriteString("| Category | Reported | Interval | True | Covered |\n")
	sb.WriteString("|----------|----------|----------|------|---------|\n")
	for _, cc := range score.Categories {
		reported, interval := "hidden", "-"
		if cc.Reported != nil {
			reported = fmt.Sprintf("%.3f", *cc.Reported)
			interval = fmt.Sprintf("[%.3f, %.3f]", cc.Interval.Lower, cc.Interval.Upper)
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %.3f | %s |\n", cc.Label, reported, interval, cc.True, yesNo(cc.Covered))
	}

	if len(score.Signals) > 0 {
		sb.WriteString("\n## Signals\n\n")
		for _, sig := range score.Signals {
			fmt.Fprintf(&sb, "- **%s** (%s): %s\n", sig.Type, sig.Severity, sig.Description)
		}
	}

	if r.includeFooter {
		sb.WriteString(footer)
	}
	return sb.String()
}

// SummaryMarkdown renders a batch summary and its failures as Markdown
func (r *Renderer) SummaryMarkdown(summary worker.Summary, results []*worker.ScoreResult) string {
	var sb strings.Builder

	sb.WriteString("# Batch score summary\n\n")
	fmt.Fprintf(&sb, "- **Responses:** %d\n", summary.Responses)
	fmt.Fprintf(&sb, "- **Scored:** %d\n", summary.Scored)
	fmt.Fprintf(&sb, "- **Failed:** %d\n", summary.Failed)
	fmt.Fprintf(&sb, "- **Fully covered:** %d (%.1f%%)\n", summary.AllCovered, summary.CoverageRate*100)
	fmt.Fprintf(&sb, "- **Category coverage:** %.1f%%\n", summary.CategoryCoverage*100)
	fmt.Fprintf(&sb, "- **Effective size:** mean %.2f, median %.2f, sd %.2f\n", summary.MeanSize, summary.MedianSize, summary.SizeStdDev)
	fmt.Fprintf(&sb, "- **Mean interval width:** %.3f\n\n", summary.MeanWidth)

	sb.WriteString("## Bonus tiers\n\n")
	sb.WriteString("| Tier | Responses |\n")
	sb.WriteString("|------|-----------|\n")
	tiers := make([]model.BonusTier, 0, len(summary.Tiers))
	for tier := range summary.Tiers {
		tiers = append(tiers, tier)
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].Rank() < tiers[j].Rank() })
	for _, tier := range tiers {
		fmt.Fprintf(&sb, "| %s | %d |\n", tier, summary.Tiers[tier])
	}

	var failures []*worker.ScoreResult
	for _, res := range results {
		if res.Error != nil {
			failures = append(failures, res)
		}
	}
	if len(failures) > 0 {
		sb.WriteString("\n## Failures\n\n")
		for _, res := range failures {
			id := res.ResponseID
			if id == "" {
				id = "(no id)"
			}
			fmt.Fprintf(&sb, "- line %d, %s: %v\n", res.Line, id, res.Error)
		}
	}

	if r.includeFooter {
		sb.WriteString(footer)
	}
	return sb.String()
}

func (r *Renderer) writeFile(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write markdown: %w", err)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
