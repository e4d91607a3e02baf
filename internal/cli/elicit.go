package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/cocosci/fishchain/internal/chain"
	"github.com/cocosci/fishchain/internal/condition"
	"github.com/cocosci/fishchain/internal/elicit"
	"github.com/cocosci/fishchain/internal/estimate"
	"github.com/cocosci/fishchain/internal/model"
	"github.com/cocosci/fishchain/internal/render"
	"github.com/spf13/cobra"
)

var (
	elicitCondition        string
	elicitMode             string
	elicitMessageCondition string
	elicitOutput           string
	elicitPost             string
	elicitCatches          int
	elicitSeed             uint64
)

// elicitCmd represents the elicit command
var elicitCmd = &cobra.Command{
	Use:   "elicit",
	Short: "Collect a belief interactively",
	Long: `Run the belief widget in the terminal. Commands:

  set <label> <value>   set a category value (fraction mode renormalizes)
  conf <value>          set the confidence (number of catches)
  reveal <label>        toggle whether a slot is disclosed ("information" for confidence)
  show                  print the current state and intervals
  submit                validate and finalize
  quit                  discard without a response

Example:
  fishchain elicit --condition 0
  fishchain elicit --condition 2 --mode fraction
  fishchain elicit --condition 1 --message-condition 2 --post <chain-id>`,
	Args: cobra.NoArgs,
	RunE: runElicit,
}

func init() {
	rootCmd.AddCommand(elicitCmd)

	elicitCmd.Flags().StringVar(&elicitCondition, "condition", "0", "condition id")
	elicitCmd.Flags().StringVar(&elicitMode, "mode", "", "widget mode: fraction or count (overrides elicitation.mode)")
	elicitCmd.Flags().StringVar(&elicitMessageCondition, "message-condition", "", "compose a chain message with this condition's reveal limit")
	elicitCmd.Flags().StringVar(&elicitOutput, "output", "", "write the finalized response JSON to this file")
	elicitCmd.Flags().StringVar(&elicitPost, "post", "", "post the resulting belief message to this chain id")
	elicitCmd.Flags().IntVar(&elicitCatches, "catches", 0, "sample this many extra catches from the lake before eliciting")
	elicitCmd.Flags().Uint64Var(&elicitSeed, "seed", 0, "random seed for observations (0: time-based)")
}

func runElicit(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	cond, err := a.conditions.Lookup(elicitCondition)
	if err != nil {
		return err
	}

	cfg := elicit.ConfigFromModel(a.cfg.Elicitation)
	switch {
	case elicitMessageCondition != "":
		cfg = elicit.MessageConfig(a.conditions.MessageLimit(elicitMessageCondition))
	case elicitMode == string(model.ModeFraction):
		cfg = elicit.FractionConfig(len(cond.Categories))
	case elicitMode == string(model.ModeCount):
		cfg = elicit.MessageConfig(0)
	case elicitMode != "":
		return fmt.Errorf("unknown mode %q", elicitMode)
	}

	seed := elicitSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed>>1))
	printCatches(cmd.OutOrStdout(), observeLake(rng, cond, elicitCatches))

	collector, err := elicit.New(cond, cfg)
	if err != nil {
		return fmt.Errorf("create widget: %w", err)
	}

	s := &session{
		collector: collector,
		estimator: a.estimator,
		out:       cmd.OutOrStdout(),
	}
	resp, err := s.run(cmd.InOrStdin())
	if err != nil {
		return err
	}
	if resp == nil {
		fmt.Fprintln(os.Stderr, "Discarded, no response recorded.")
		return nil
	}

	renderer := render.NewRenderer(false)
	out := cmd.OutOrStdout()
	if err := renderer.WriteJSON(out, resp); err != nil {
		return err
	}
	if elicitOutput != "" {
		if err := renderer.RenderJSON(resp, elicitOutput); err != nil {
			return err
		}
	}

	scored := a.scorer.Score(*resp, cond)
	fmt.Fprintln(out)
	if _, err := io.WriteString(out, renderer.ScoreMarkdown(&scored)); err != nil {
		return err
	}

	if elicitPost != "" {
		_, client, err := newChainClient()
		if err != nil {
			return err
		}
		if err := client.PostMessage(cmd.Context(), elicitPost, chain.BeliefMessage(elicit.Message(*resp))); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Posted message to chain %s\n", elicitPost)
	}
	return nil
}

// observeLake returns the lake's fixed observations plus n sampled catches, shuffled
func observeLake(rng *rand.Rand, cond model.Condition, n int) []string {
	catches := append([]string(nil), cond.Observations...)
	if n > 0 {
		catches = append(catches, condition.SampleTrials(rng, cond, n)...)
	}
	condition.Shuffle(rng, catches)
	return catches
}

func printCatches(out io.Writer, catches []string) {
	if len(catches) == 0 {
		return
	}
	fmt.Fprintf(out, "You caught %d fish: %s\n", len(catches), strings.Join(catches, ", "))
}

// session drives a collector from line-oriented commands
type session struct {
	collector *elicit.Collector
	estimator *estimate.Estimator
	out       io.Writer
}

// run reads commands until submit succeeds, quit, or end of input.
// It returns nil when the widget was discarded.
func (s *session) run(in io.Reader) (*model.FinalizedResponse, error) {
	cond := s.collector.Condition()
	fmt.Fprintf(s.out, "Lake %s %s: %s\n", cond.ID, cond.Name, strings.Join(cond.Labels(), ", "))
	s.show()

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			break
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "set":
			if len(fields) < 3 {
				fmt.Fprintln(s.out, "usage: set <label> <value>")
				continue
			}
			label := strings.Join(fields[1:len(fields)-1], " ")
			s.apply(s.collector.SetCategoryValue(label, fields[len(fields)-1]))
		case "conf":
			if len(fields) != 2 {
				fmt.Fprintln(s.out, "usage: conf <value>")
				continue
			}
			s.apply(s.collector.SetConfidence(fields[1]))
		case "reveal":
			if len(fields) < 2 {
				fmt.Fprintln(s.out, "usage: reveal <label>")
				continue
			}
			s.apply(s.collector.ToggleReveal(strings.Join(fields[1:], " ")))
		case "show":
			s.show()
		case "submit":
			resp, err := s.collector.Submit()
			var verr *elicit.ValidationError
			switch {
			case errors.As(err, &verr):
				fmt.Fprintf(s.out, "✗ %s\n", verr.Message)
			case err != nil:
				return nil, err
			default:
				return &resp, nil
			}
		case "quit", "exit":
			s.collector.Discard()
			return nil, nil
		case "help":
			fmt.Fprintln(s.out, "commands: set <label> <value>, conf <value>, reveal <label>, show, submit, quit")
		default:
			fmt.Fprintf(s.out, "unknown command %q (try help)\n", fields[0])
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	s.collector.Discard()
	return nil, nil
}

func (s *session) apply(err error) {
	if err != nil {
		fmt.Fprintf(s.out, "✗ %v\n", err)
		return
	}
	s.show()
}

func (s *session) show() {
	state := s.collector.State()
	cond := s.collector.Condition()
	fmt.Fprint(s.out, render.BeliefText(state, s.estimator.Intervals(state, cond), cond))
	if cfg := s.collector.Config(); cfg.RevealLimit > 0 {
		fmt.Fprintf(s.out, "  revealed %d of %d\n", s.collector.RevealedCount(), cfg.RevealLimit)
	}
	if status := s.collector.Status(); status != "" {
		fmt.Fprintln(s.out, status)
	}
}
