package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/cocosci/fishchain/internal/model"
	"github.com/montanaflynn/stats"
)

// ConditionSource resolves condition ids
type ConditionSource interface {
	Lookup(id string) (model.Condition, error)
}

// ResponseScorer scores one finalized response
type ResponseScorer interface {
	Score(resp model.FinalizedResponse, cond model.Condition) model.Score
}

// Record is one finalized response read from a JSONL file
type Record struct {
	Line     int
	Response model.FinalizedResponse
}

// ScoreJob scores one record
type ScoreJob struct {
	Record     Record
	Scorer     ResponseScorer
	Conditions ConditionSource
}

// Execute executes the score job
func (j *ScoreJob) Execute(ctx context.Context) Result {
	result := &ScoreResult{Line: j.Record.Line, ResponseID: j.Record.Response.ID}
	if err := ctx.Err(); err != nil {
		result.Error = err
		return result
	}

	cond, err := j.Conditions.Lookup(j.Record.Response.ConditionID)
	if err != nil {
		result.Error = fmt.Errorf("line %d: %w", j.Record.Line, err)
		return result
	}

	score := j.Scorer.Score(j.Record.Response, cond)
	result.Score = &score
	return result
}

// ScoreResult is the outcome of a score job
type ScoreResult struct {
	Line       int
	ResponseID string
	Score      *model.Score
	Error      error
}

// GetError returns the error from the score result
func (r *ScoreResult) GetError() error {
	return r.Error
}

// BatchProcessor scores many responses concurrently
type BatchProcessor struct {
	scorer      ResponseScorer
	conditions  ConditionSource
	concurrency int
	logger      *slog.Logger
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(scorer ResponseScorer, conditions ConditionSource, concurrency int, logger *slog.Logger) *BatchProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchProcessor{
		scorer:      scorer,
		conditions:  conditions,
		concurrency: concurrency,
		logger:      logger,
	}
}

// ScoreRecords scores records concurrently and returns results in input order
func (b *BatchProcessor) ScoreRecords(ctx context.Context, records []Record) []*ScoreResult {
	if len(records) == 0 {
		return []*ScoreResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, rec := range records {
		pool.Submit(&ScoreJob{
			Record:     rec,
			Scorer:     b.scorer,
			Conditions: b.conditions,
		})
	}

	results := pool.Wait()

	scoreResults := make([]*ScoreResult, len(records))
	for i, result := range results {
		if result == nil {
			scoreResults[i] = &ScoreResult{Line: records[i].Line, ResponseID: records[i].Response.ID, Error: ctx.Err()}
			continue
		}
		scoreResults[i] = result.(*ScoreResult)
		if err := scoreResults[i].Error; err != nil {
			b.logger.Warn("response not scored", "line", records[i].Line, "id", records[i].Response.ID, "error", err)
		}
	}
	return scoreResults
}

// ScoreFile reads a JSONL file of finalized responses and scores them
func (b *BatchProcessor) ScoreFile(ctx context.Context, filePath string) ([]*ScoreResult, error) {
	records, err := ReadResponses(filePath)
	if err != nil {
		return nil, fmt.Errorf("read responses: %w", err)
	}

	return b.ScoreRecords(ctx, records), nil
}

// ReadResponses reads finalized responses from a JSONL file. Blank lines and
// lines starting with # are skipped; repeated response ids keep the first.
func ReadResponses(filePath string) ([]Record, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var records []Record
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var resp model.FinalizedResponse
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		if resp.ID != "" {
			if seen[resp.ID] {
				continue
			}
			seen[resp.ID] = true
		}
		records = append(records, Record{Line: lineNo, Response: resp})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return records, nil
}

// Summary aggregates a batch of scores
type Summary struct {
	Responses        int                     `json:"responses"`
	Scored           int                     `json:"scored"`
	Failed           int                     `json:"failed"`
	AllCovered       int                     `json:"all_covered"`
	CoverageRate     float64                 `json:"coverage_rate"`     // Fraction of scored responses with every category covered
	CategoryCoverage float64                 `json:"category_coverage"` // Fraction of all categories covered
	Tiers            map[model.BonusTier]int `json:"tiers"`
	MeanSize         float64                 `json:"mean_effective_size"`
	MedianSize       float64                 `json:"median_effective_size"`
	SizeStdDev       float64                 `json:"effective_size_stddev"`
	MeanWidth        float64                 `json:"mean_interval_width"`
}

// Summarize aggregates batch results
func Summarize(results []*ScoreResult) Summary {
	summary := Summary{
		Responses: len(results),
		Tiers: map[model.BonusTier]int{
			model.TierNone:   0,
			model.TierSmall:  0,
			model.TierMedium: 0,
			model.TierLarge:  0,
		},
	}

	var sizes, widths stats.Float64Data
	covered, categories := 0, 0
	for _, r := range results {
		if r.Error != nil || r.Score == nil {
			summary.Failed++
			continue
		}
		summary.Scored++
		if r.Score.AllCovered {
			summary.AllCovered++
		}
		summary.Tiers[r.Score.Tier]++
		sizes = append(sizes, r.Score.EffectiveSize)

		for _, cc := range r.Score.Categories {
			categories++
			if cc.Covered {
				covered++
			}
			if cc.Reported != nil {
				widths = append(widths, cc.Interval.Width())
			}
		}
	}

	if summary.Scored == 0 {
		return summary
	}

	summary.CoverageRate = float64(summary.AllCovered) / float64(summary.Scored)
	if categories > 0 {
		summary.CategoryCoverage = float64(covered) / float64(categories)
	}

	// stats only errors on empty input, which is excluded above
	summary.MeanSize, _ = sizes.Mean()
	summary.MedianSize, _ = sizes.Median()
	summary.SizeStdDev, _ = sizes.StandardDeviation()
	if len(widths) > 0 {
		summary.MeanWidth, _ = widths.Mean()
	}
	return summary
}
