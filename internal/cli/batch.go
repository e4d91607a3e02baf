package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cocosci/fishchain/internal/render"
	"github.com/cocosci/fishchain/internal/worker"
	"github.com/spf13/cobra"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	batchReports bool
	// noFooter is defined in score.go and shared here
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <responses.jsonl>",
	Short: "Score many finalized responses in parallel",
	Long: `Batch re-scores finalized responses concurrently:
- Read responses from a JSONL file (one response per line)
- Skip blank lines and # comments, keep the first of repeated ids
- Score responses in parallel with a configurable worker count
- Write a summary report, plus per-response reports with --reports

Example:
  fishchain batch responses.jsonl
  fishchain batch responses.jsonl --concurrency 8 --output-dir ./scores
  fishchain batch responses.jsonl --reports --timeout 5m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default: concurrency.workers)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./fishchain-scores", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch scoring")
	batchCmd.Flags().BoolVar(&batchReports, "reports", false, "write a JSON and Markdown report per response")
	batchCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	a, err := newApp()
	if err != nil {
		return err
	}
	workers := a.cfg.Concurrency.Workers
	if concurrency > 0 {
		workers = concurrency
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  fishchain Batch Scoring\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", workers)
	fmt.Fprintf(os.Stderr, "  Policy:       %s\n", a.estimator.Policy().Name())
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	processor := worker.NewBatchProcessor(a.scorer, a.conditions, workers, a.logger)

	fmt.Fprintf(os.Stderr, "⚙️  Scoring responses with %d workers...\n", workers)
	results, err := processor.ScoreFile(ctx, file)
	if err != nil {
		return fmt.Errorf("score file: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Loaded %d responses\n\n", len(results))

	renderer := render.NewRenderer(!noFooter)

	for _, result := range results {
		if result.Error != nil {
			fmt.Fprintf(os.Stderr, "✗ line %d %s: %v\n", result.Line, result.ResponseID, result.Error)
			continue
		}

		if batchReports {
			if err := writeScoreReports(renderer, result.Score, outputDir); err != nil {
				fmt.Fprintf(os.Stderr, "✗ %s: failed to write report: %v\n", result.ResponseID, err)
				continue
			}
		}

		if verbose {
			fmt.Fprintf(os.Stderr, "✓ %s (covered: %v, tier: %s)\n", result.ResponseID, result.Score.AllCovered, result.Score.Tier)
		}
	}

	summary := worker.Summarize(results)
	if err := renderer.RenderJSON(summary, filepath.Join(outputDir, "summary.json")); err != nil {
		return err
	}
	if err := renderer.RenderSummaryMarkdown(summary, results, filepath.Join(outputDir, "summary.md")); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:          %d responses\n", summary.Responses)
	fmt.Fprintf(os.Stderr, "  Scored:         %d\n", summary.Scored)
	fmt.Fprintf(os.Stderr, "  Failures:       %d\n", summary.Failed)
	fmt.Fprintf(os.Stderr, "  Fully covered:  %d (%.1f%%)\n", summary.AllCovered, summary.CoverageRate*100)
	fmt.Fprintf(os.Stderr, "  Mean size:      %.2f\n", summary.MeanSize)
	fmt.Fprintf(os.Stderr, "  Output:         %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	if a.cfg.Output.JSON {
		return renderer.WriteJSON(cmd.OutOrStdout(), summary)
	}
	return nil
}

// sanitizeFilename sanitizes a string for use as a filename
func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	)
	s = replacer.Replace(strings.TrimSpace(s))

	if s == "" || s == "." || s == ".." {
		s = "response"
	}

	// Limit length
	if len(s) > 100 {
		s = s[:100]
	}

	return s
}
