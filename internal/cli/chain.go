package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cocosci/fishchain/internal/chain"
	"github.com/cocosci/fishchain/internal/elicit"
	"github.com/cocosci/fishchain/internal/model"
	"github.com/cocosci/fishchain/internal/render"
	"github.com/cocosci/fishchain/internal/worker"
	"github.com/spf13/cobra"
)

var (
	chainBaseURL  string
	chainNoBusy   bool
	chainHTML     bool
	chainText     string
	chainBelief   string
	chainResponse string
)

// chainCmd represents the chain command
var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Talk to the chain-assignment service",
	Long: `Assign, read, write and free transmission chains.

A chain holds the messages participants leave for the next participant.
Writers are assigned a chain, which stays busy until they post a message
or free it. Readers only view the last message.`,
}

var chainAssignCmd = &cobra.Command{
	Use:   "assign <condition>",
	Short: "Assign a chain for a condition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, client, err := newChainClient()
		if err != nil {
			return err
		}

		assign := client.Assign
		if chainNoBusy {
			assign = client.AssignNoBusy
		}
		c, err := assign(cmd.Context(), args[0])
		if errors.Is(err, chain.ErrNoFreeChains) {
			fmt.Fprintln(os.Stderr, chain.NoSpaceNotice)
			return err
		}
		if err != nil {
			return err
		}
		return printChain(cmd.OutOrStdout(), a, c)
	},
}

var chainReadCmd = &cobra.Command{
	Use:   "read <chain-id>",
	Short: "Mark a chain as read and show its last message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, client, err := newChainClient()
		if err != nil {
			return err
		}

		c, err := client.MarkRead(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printChain(cmd.OutOrStdout(), a, c)
	},
}

var chainFreeCmd = &cobra.Command{
	Use:   "free <chain-id>",
	Short: "Release a busy chain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, client, err := newChainClient()
		if err != nil {
			return err
		}
		if err := client.Free(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Freed chain %s\n", args[0])
		return nil
	},
}

var chainPostCmd = &cobra.Command{
	Use:   "post <chain-id>",
	Short: "Post a message and complete the chain turn",
	Long: `Post exactly one of:
  --text      free text, lines become paragraphs for the reader
  --belief    a JSON belief message, e.g. '{"purple": 4, "information": 6}'
  --response  a finalized response file; its revealed slots become the message`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		msg, err := chainMessageFromFlags(cmd)
		if err != nil {
			return err
		}

		_, client, err := newChainClient()
		if err != nil {
			return err
		}
		if err := client.PostMessage(cmd.Context(), args[0], msg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Posted message to chain %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chainCmd)
	chainCmd.AddCommand(chainAssignCmd, chainReadCmd, chainFreeCmd, chainPostCmd)

	chainCmd.PersistentFlags().StringVar(&chainBaseURL, "base-url", "", "chain service URL (overrides chain.base_url)")
	chainCmd.PersistentFlags().BoolVar(&chainHTML, "html", false, "print the reader's view of the last message as HTML")

	chainAssignCmd.Flags().BoolVar(&chainNoBusy, "no-busy", false, "assign without marking the chain busy (readers)")

	chainPostCmd.Flags().StringVar(&chainText, "text", "", "free-text message")
	chainPostCmd.Flags().StringVar(&chainBelief, "belief", "", "belief message as a JSON object")
	chainPostCmd.Flags().StringVar(&chainResponse, "response", "", "finalized response file to send as a belief message")
}

func newChainClient() (*app, *chain.Client, error) {
	a, err := newApp()
	if err != nil {
		return nil, nil, err
	}
	if chainBaseURL != "" {
		a.cfg.Chain.BaseURL = chainBaseURL
	}

	limiter := worker.NewLimiter(a.cfg.RateLimiting.RequestsPerSecond, a.cfg.RateLimiting.BurstSize)
	client, err := chain.NewClient(a.cfg.Chain, limiter, a.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("configure chain client: %w", err)
	}
	return a, client, nil
}

func chainMessageFromFlags(cmd *cobra.Command) (chain.ChainMessage, error) {
	set := 0
	for _, name := range []string{"text", "belief", "response"} {
		if cmd.Flags().Changed(name) {
			set++
		}
	}
	if set != 1 {
		return chain.ChainMessage{}, errors.New("exactly one of --text, --belief or --response is required")
	}

	switch {
	case cmd.Flags().Changed("text"):
		return chain.TextMessage(chainText), nil
	case cmd.Flags().Changed("belief"):
		var msg model.Message
		if err := json.Unmarshal([]byte(chainBelief), &msg); err != nil {
			return chain.ChainMessage{}, fmt.Errorf("decode belief: %w", err)
		}
		return chain.BeliefMessage(msg), nil
	default:
		resp, err := readResponse(chainResponse, cmd.InOrStdin())
		if err != nil {
			return chain.ChainMessage{}, err
		}
		return chain.BeliefMessage(elicit.Message(resp)), nil
	}
}

func printChain(out io.Writer, a *app, c *chain.Chain) error {
	if !chainHTML {
		return render.NewRenderer(false).WriteJSON(out, c)
	}

	var labels []string
	if cond, err := a.conditions.Lookup(string(c.Condition)); err == nil {
		labels = cond.Labels()
	}
	_, err := fmt.Fprintln(out, render.ReceivedMessageFor(c, labels))
	return err
}
