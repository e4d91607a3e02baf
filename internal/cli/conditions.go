package cli

import (
	"fmt"
	"strings"

	"github.com/cocosci/fishchain/internal/render"
	"github.com/spf13/cobra"
)

var (
	showTruth      bool
	conditionsJSON bool
)

// conditionsCmd represents the conditions command
var conditionsCmd = &cobra.Command{
	Use:   "conditions",
	Short: "List the configured lakes",
	Long: `List every condition in the active table with its categories and
message reveal limits. True probabilities are only shown with --truth.`,
	Args: cobra.NoArgs,
	RunE: runConditions,
}

func init() {
	rootCmd.AddCommand(conditionsCmd)

	conditionsCmd.Flags().BoolVar(&showTruth, "truth", false, "show true category probabilities")
	conditionsCmd.Flags().BoolVar(&conditionsJSON, "json", false, "print the table as JSON")
}

func runConditions(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if conditionsJSON || a.cfg.Output.JSON {
		return render.NewRenderer(false).WriteJSON(out, a.conditions)
	}

	for _, id := range a.conditions.IDs() {
		cond, err := a.conditions.Lookup(id)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "%-4s %s", cond.ID, cond.Name)
		if cond.Trials > 0 {
			fmt.Fprintf(out, " (%d trials)", cond.Trials)
		}
		if limit := a.conditions.MessageLimit(id); limit > 0 {
			fmt.Fprintf(out, " [message reveal limit %d]", limit)
		}
		fmt.Fprintln(out)

		cats := make([]string, len(cond.Categories))
		for i, cat := range cond.Categories {
			cats[i] = cat.Label
			if showTruth {
				cats[i] += fmt.Sprintf("=%.2f", cat.TrueProbability)
			}
		}
		fmt.Fprintf(out, "     %s\n", strings.Join(cats, ", "))
	}
	return nil
}
