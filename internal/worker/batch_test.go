package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cocosci/fishchain/internal/condition"
	"github.com/cocosci/fishchain/internal/estimate"
	"github.com/cocosci/fishchain/internal/model"
	"github.com/cocosci/fishchain/internal/score"
)

// stubScorer returns a fixed tier based on the reported confidence
type stubScorer struct{}

func (stubScorer) Score(resp model.FinalizedResponse, cond model.Condition) model.Score {
	size := 1.0
	if resp.Confidence != nil {
		size = *resp.Confidence
	}
	return model.Score{
		ResponseID:    resp.ID,
		ConditionID:   cond.ID,
		AllCovered:    size >= 10,
		EffectiveSize: size,
		Tier:          score.TierFor(size, model.BonusConfig{Small: 5, Medium: 15, Large: 30}),
	}
}

func writeJSONL(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "responses.jsonl")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func ptr(v float64) *float64 { return &v }

func TestBatchProcessor_ScoreRecords(t *testing.T) {
	processor := NewBatchProcessor(stubScorer{}, condition.DefaultTable(), 2, nil)

	records := []Record{
		{Line: 1, Response: model.FinalizedResponse{ID: "a", ConditionID: "0", Confidence: ptr(20)}},
		{Line: 2, Response: model.FinalizedResponse{ID: "b", ConditionID: "1", Confidence: ptr(3)}},
		{Line: 3, Response: model.FinalizedResponse{ID: "c", ConditionID: "2", Confidence: ptr(40)}},
	}

	results := processor.ScoreRecords(context.Background(), records)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, res := range results {
		if res.Error != nil {
			t.Errorf("unexpected error for %s: %v", res.ResponseID, res.Error)
			continue
		}
		if res.ResponseID != records[i].Response.ID || res.Line != records[i].Line {
			t.Errorf("result %d out of order: %+v", i, res)
		}
		if res.Score == nil {
			t.Errorf("expected score for %s", res.ResponseID)
		}
	}
	if results[2].Score.Tier != model.TierLarge {
		t.Errorf("expected large tier for size 40, got %s", results[2].Score.Tier)
	}
}

func TestBatchProcessor_UnknownCondition(t *testing.T) {
	processor := NewBatchProcessor(stubScorer{}, condition.DefaultTable(), 2, nil)

	results := processor.ScoreRecords(context.Background(), []Record{
		{Line: 7, Response: model.FinalizedResponse{ID: "x", ConditionID: "99"}},
	})

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if !errors.Is(results[0].Error, condition.ErrUnknownCondition) {
		t.Errorf("expected unknown condition error, got %v", results[0].Error)
	}
	if results[0].Score != nil {
		t.Error("expected nil score on error")
	}
}

func TestBatchProcessor_ScoreRecords_Empty(t *testing.T) {
	processor := NewBatchProcessor(stubScorer{}, condition.DefaultTable(), 2, nil)

	results := processor.ScoreRecords(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestReadResponses(t *testing.T) {
	content := `{"id":"a","condition_id":"0","mode":"count","values":{"red":4},"confidence":5}
# comment

{"id":"b","condition_id":"1","mode":"count","values":{}}
{"id":"a","condition_id":"0","mode":"count","values":{"red":9}}
`
	records, err := ReadResponses(writeJSONL(t, content))
	if err != nil {
		t.Fatalf("ReadResponses failed: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records after deduplication, got %d", len(records))
	}
	if records[0].Line != 1 || records[1].Line != 4 {
		t.Errorf("unexpected line numbers: %d, %d", records[0].Line, records[1].Line)
	}
	if records[0].Response.Values["red"] != 4 {
		t.Errorf("expected first occurrence kept, got %v", records[0].Response.Values)
	}
	if records[0].Response.Confidence == nil || *records[0].Response.Confidence != 5 {
		t.Errorf("expected confidence 5, got %v", records[0].Response.Confidence)
	}
}

func TestReadResponses_Malformed(t *testing.T) {
	_, err := ReadResponses(writeJSONL(t, "{\"id\":\"a\"}\nnot json\n"))
	if err == nil {
		t.Fatal("expected error for malformed line")
	}
}

func TestReadResponses_NonExistent(t *testing.T) {
	if _, err := ReadResponses("no_such_file.jsonl"); err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestBatchProcessor_ScoreFile(t *testing.T) {
	est := estimate.NewEstimator(estimate.Tails95, estimate.WithDefaultSize(1))
	scorer, err := score.NewScorer(est, model.DefaultConfig().Bonus)
	if err != nil {
		t.Fatal(err)
	}
	processor := NewBatchProcessor(scorer, condition.DefaultTable(), 3, nil)

	content := `{"id":"a","condition_id":"0","mode":"count","values":{"purple":5,"dark grey":2,"yellow":1,"cyan":2},"confidence":5}
{"id":"b","condition_id":"nope","mode":"count","values":{}}
`
	results, err := processor.ScoreFile(context.Background(), writeJSONL(t, content))
	if err != nil {
		t.Fatalf("ScoreFile failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Error != nil || results[0].Score == nil {
		t.Errorf("expected first response scored, got %v", results[0].Error)
	}
	if results[1].Error == nil {
		t.Error("expected error for unknown condition")
	}

	if _, err := processor.ScoreFile(context.Background(), "no_such_file.jsonl"); err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestSummarize(t *testing.T) {
	reported := 0.5
	results := []*ScoreResult{
		{Score: &model.Score{AllCovered: true, EffectiveSize: 10, Tier: model.TierSmall, Categories: []model.CategoryCoverage{
			{Covered: true, Reported: &reported, Interval: model.CredibleInterval{Lower: 0.2, Upper: 0.6}},
			{Covered: true, Reported: &reported, Interval: model.CredibleInterval{Lower: 0.3, Upper: 0.5}},
		}}},
		{Score: &model.Score{AllCovered: false, EffectiveSize: 20, Tier: model.TierNone, Categories: []model.CategoryCoverage{
			{Covered: false},
			{Covered: true, Reported: &reported, Interval: model.CredibleInterval{Lower: 0.1, Upper: 0.7}},
		}}},
		{Score: &model.Score{AllCovered: true, EffectiveSize: 30, Tier: model.TierLarge}},
		{Error: errors.New("boom")},
	}

	s := Summarize(results)

	if s.Responses != 4 || s.Scored != 3 || s.Failed != 1 {
		t.Errorf("unexpected counts: %+v", s)
	}
	if s.AllCovered != 2 {
		t.Errorf("expected 2 fully covered, got %d", s.AllCovered)
	}
	if diff := s.CoverageRate - 2.0/3; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("expected coverage rate 2/3, got %v", s.CoverageRate)
	}
	if s.CategoryCoverage != 0.75 {
		t.Errorf("expected category coverage 0.75, got %v", s.CategoryCoverage)
	}
	if s.MeanSize != 20 || s.MedianSize != 20 {
		t.Errorf("expected mean and median 20, got %v and %v", s.MeanSize, s.MedianSize)
	}
	if diff := s.MeanWidth - 0.4; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("expected mean width 0.4, got %v", s.MeanWidth)
	}
	if s.Tiers[model.TierSmall] != 1 || s.Tiers[model.TierLarge] != 1 || s.Tiers[model.TierNone] != 1 {
		t.Errorf("unexpected tier counts: %v", s.Tiers)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	if s.Scored != 0 || s.MeanSize != 0 {
		t.Errorf("expected zero summary, got %+v", s)
	}
}

func TestScoreResult_GetError(t *testing.T) {
	r1 := &ScoreResult{ResponseID: "a"}
	if r1.GetError() != nil {
		t.Errorf("expected nil error, got %v", r1.GetError())
	}

	expected := errors.New("score failed")
	r2 := &ScoreResult{ResponseID: "a", Error: expected}
	if r2.GetError() != expected {
		t.Errorf("expected %v, got %v", expected, r2.GetError())
	}
}
