package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/tileagent/application"
	"github.com/felixgeelhaar/tileagent/domain/config"
	"github.com/felixgeelhaar/tileagent/infrastructure/storage"
)

// replayOptions holds options for the replay command.
type replayOptions struct {
	driver      string
	dsn         string
	agentID     string
	from        uint64
	transitions bool
	jsonOutput  bool
}

func (a *App) newReplayCmd() *cobra.Command {
	opts := &replayOptions{}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Rebuild an agent's history from its stored events",
		Long: `Replay the event stream of a stored agent and summarize what it did:
the states it went through, collaborator failures, reported resources and
finished artifacts.

Examples:
  tileagent replay --dsn file:events.db --agent artemis
  tileagent replay --dsn file:events.db --agent artemis --transitions`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.replay(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.driver, "driver", "sqlite", "Event store driver ("+strings.Join(storage.Drivers, ", ")+")")
	cmd.Flags().StringVar(&opts.dsn, "dsn", "", "Location of the event store (required)")
	cmd.Flags().StringVar(&opts.agentID, "agent", "", "Agent to replay (required)")
	cmd.Flags().Uint64Var(&opts.from, "from", 0, "Replay from this sequence number")
	cmd.Flags().BoolVar(&opts.transitions, "transitions", false, "List every state transition")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output the history as JSON")

	_ = cmd.MarkFlagRequired("dsn")
	_ = cmd.MarkFlagRequired("agent")

	return cmd
}

func (a *App) replay(ctx context.Context, opts *replayOptions) error {
	store, err := storage.Open(ctx, config.StorageSettings{Driver: opts.driver, DSN: opts.dsn})
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	h, err := application.NewReplay(store).ReconstructFrom(ctx, opts.agentID, opts.from)
	if err != nil {
		return fmt.Errorf("replay failed: %w", err)
	}

	if opts.jsonOutput {
		return a.encodeJSON(h)
	}

	_, _ = fmt.Fprintf(a.stdout, "Agent %s\n", h.AgentID)
	_, _ = fmt.Fprintf(a.stdout, "  Events: %d over %s\n", h.Events, h.Duration())
	_, _ = fmt.Fprintf(a.stdout, "  State: %s after %d steps\n", h.State, h.Steps)
	_, _ = fmt.Fprintf(a.stdout, "  Render budget: %d -> %d\n", h.InitialBudget, h.RenderBudget)
	_, _ = fmt.Fprintf(a.stdout, "  Renders: %d %v\n", len(h.Renders), h.Renders)
	_, _ = fmt.Fprintf(a.stdout, "  Quota met: %v\n", h.QuotaMet)
	printCounts(a, "Visits", h.Visits)
	printCounts(a, "Reported", h.Reported)
	printCounts(a, "Failures", h.Failures)
	if h.Terminated {
		_, _ = fmt.Fprintf(a.stdout, "  Status: TERMINATED\n")
	}

	if opts.transitions {
		_, _ = fmt.Fprintf(a.stdout, "\nTransitions:\n")
		for _, tr := range h.Transitions {
			_, _ = fmt.Fprintf(a.stdout, "  %5d  %-9s -> %s\n", tr.Step, tr.From, tr.To)
		}
	}
	return nil
}

func printCounts(a *App, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	_, _ = fmt.Fprintf(a.stdout, "  %s:\n", title)
	for _, k := range keys {
		_, _ = fmt.Fprintf(a.stdout, "    - %s: %d\n", k, counts[k])
	}
}
