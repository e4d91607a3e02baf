package render

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cocosci/fishchain/internal/model"
	"github.com/cocosci/fishchain/internal/worker"
)

func sampleScore() *model.Score {
	reported := 0.4
	return &model.Score{
		ResponseID:    "r1",
		ConditionID:   "0",
		Policy:        "equal-tail(0.025,0.975,s=0)",
		EffectiveSize: 5,
		Tier:          model.TierSmall,
		Categories: []model.CategoryCoverage{
			{Label: "purple", Reported: &reported, True: 0.5, Interval: model.CredibleInterval{Lower: 0.1, Upper: 0.8}, Covered: true},
			{Label: "cyan", True: 0.2},
		},
		Signals: []model.Signal{
			{Type: model.SignalHidden, Severity: model.SeverityWarning, Description: "1 category hidden"},
		},
	}
}

func TestRenderer_RenderJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "score.json")
	if err := NewRenderer(false).RenderJSON(sampleScore(), path); err != nil {
		t.Fatalf("RenderJSON failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded model.Score
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if decoded.ResponseID != "r1" || decoded.Tier != model.TierSmall {
		t.Errorf("unexpected decoded score: %+v", decoded)
	}
}

func TestRenderer_RenderJSON_BadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "score.json")
	if err := NewRenderer(false).RenderJSON(sampleScore(), path); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestRenderer_ScoreMarkdown(t *testing.T) {
	md := NewRenderer(true).ScoreMarkdown(sampleScore())

	for _, want := range []string{
		"# Score report: r1",
		"**Bonus tier:** small",
		"| purple | 0.400 | [0.100, 0.800] | 0.500 | yes |",
		"| cyan | hidden | - | 0.200 | no |",
		"**hidden** (warning): 1 category hidden",
		"Generated by fishchain",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("expected %q in:\n%s", want, md)
		}
	}

	if strings.Contains(NewRenderer(false).ScoreMarkdown(sampleScore()), "Generated by fishchain") {
		t.Error("expected no footer when disabled")
	}
}

func TestRenderer_RenderMarkdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "score.md")
	if err := NewRenderer(false).RenderMarkdown(sampleScore(), path); err != nil {
		t.Fatalf("RenderMarkdown failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# Score report") {
		t.Errorf("unexpected markdown: %s", data)
	}
}

func TestRenderer_SummaryMarkdown(t *testing.T) {
	summary := worker.Summary{
		Responses:    3,
		Scored:       2,
		Failed:       1,
		AllCovered:   1,
		CoverageRate: 0.5,
		Tiers: map[model.BonusTier]int{
			model.TierLarge:  1,
			model.TierNone:   1,
			model.TierSmall:  0,
			model.TierMedium: 0,
		},
		MeanSize: 12.5,
	}
	results := []*worker.ScoreResult{
		{Line: 1, ResponseID: "a", Score: sampleScore()},
		{Line: 4, ResponseID: "b", Error: errors.New("unknown condition")},
	}

	md := NewRenderer(false).SummaryMarkdown(summary, results)

	for _, want := range []string{
		"**Responses:** 3",
		"**Fully covered:** 1 (50.0%)",
		"mean 12.50",
		"- line 4, b: unknown condition",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("expected %q in:\n%s", want, md)
		}
	}
	if strings.Index(md, "| none |") > strings.Index(md, "| large |") {
		t.Errorf("expected tiers in rank order:\n%s", md)
	}
}
