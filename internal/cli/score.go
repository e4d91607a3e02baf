package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cocosci/fishchain/internal/model"
	"github.com/cocosci/fishchain/internal/render"
	"github.com/spf13/cobra"
)

var (
	scoreCondition string
	scoreJSON      bool
	scoreOutputDir string
	noFooter       bool
)

// scoreCmd represents the score command
var scoreCmd = &cobra.Command{
	Use:   "score <response.json>",
	Short: "Score a finalized response against the lake's true proportions",
	Long: `Score checks whether each true category probability falls inside the
credible interval built from the participant's reported belief, and maps
the effective sample size to a bonus tier.

Use "-" to read the response from stdin.

Example:
  fishchain score response.json
  fishchain score response.json --condition 2 --json
  fishchain score response.json --output-dir ./scores`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringVar(&scoreCondition, "condition", "", "condition id (overrides the response's condition_id)")
	scoreCmd.Flags().BoolVar(&scoreJSON, "json", false, "print the score as JSON")
	scoreCmd.Flags().StringVar(&scoreOutputDir, "output-dir", "", "also write JSON and Markdown reports to this directory")
	scoreCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
}

func runScore(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	resp, err := readResponse(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}
	if scoreCondition != "" {
		resp.ConditionID = scoreCondition
	}

	cond, err := a.conditions.Lookup(resp.ConditionID)
	if err != nil {
		return err
	}

	s := a.scorer.Score(resp, cond)
	renderer := render.NewRenderer(!noFooter)

	if scoreOutputDir != "" {
		if err := writeScoreReports(renderer, &s, scoreOutputDir); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if scoreJSON || a.cfg.Output.JSON {
		return renderer.WriteJSON(out, s)
	}
	_, err = io.WriteString(out, renderer.ScoreMarkdown(&s))
	return err
}

// readResponse decodes a finalized response from path, or from stdin for "-"
func readResponse(path string, stdin io.Reader) (model.FinalizedResponse, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return model.FinalizedResponse{}, fmt.Errorf("read response: %w", err)
	}

	var resp model.FinalizedResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return model.FinalizedResponse{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

// writeScoreReports writes <id>.json and <id>.md into dir
func writeScoreReports(renderer *render.Renderer, s *model.Score, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	name := s.ResponseID
	if name == "" {
		name = "condition-" + s.ConditionID
	}
	slug := sanitizeFilename(name)

	if err := renderer.RenderJSON(s, filepath.Join(dir, slug+".json")); err != nil {
		return err
	}
	return renderer.RenderMarkdown(s, filepath.Join(dir, slug+".md"))
}
