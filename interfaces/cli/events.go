package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/tileagent/domain/config"
	"github.com/felixgeelhaar/tileagent/domain/event"
	"github.com/felixgeelhaar/tileagent/infrastructure/storage"
)

// eventsOptions holds options for the events command.
type eventsOptions struct {
	driver     string
	dsn        string
	agentID    string
	types      []string
	limit      int
	jsonOutput bool
}

func (a *App) newEventsCmd() *cobra.Command {
	opts := &eventsOptions{}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List stored agent events",
		Long: `List the event stream of an agent stored by "run --dsn".

Without --agent the IDs of every stored agent are listed.

Examples:
  # List agents
  tileagent events --dsn file:events.db

  # Show the transitions and the termination notice of one agent
  tileagent events --dsn file:events.db --agent artemis \
    --type state.transitioned --type agent.terminated

  # Read from Redis
  tileagent events --driver redis --dsn redis://localhost:6379/0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.listEvents(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.driver, "driver", "sqlite", "Event store driver ("+strings.Join(storage.Drivers, ", ")+")")
	cmd.Flags().StringVar(&opts.dsn, "dsn", "", "Location of the event store (required)")
	cmd.Flags().StringVar(&opts.agentID, "agent", "", "Agent whose events to list")
	cmd.Flags().StringArrayVar(&opts.types, "type", nil, "Only list events of this type (repeatable)")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "Maximum number of events")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output events as JSON")

	_ = cmd.MarkFlagRequired("dsn")

	return cmd
}

func (a *App) listEvents(ctx context.Context, opts *eventsOptions) error {
	store, err := storage.Open(ctx, config.StorageSettings{Driver: opts.driver, DSN: opts.dsn})
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if opts.agentID == "" {
		agents, err := store.ListAgents(ctx)
		if err != nil {
			return fmt.Errorf("failed to list agents: %w", err)
		}
		if opts.jsonOutput {
			return a.encodeJSON(agents)
		}
		for _, id := range agents {
			n, err := store.CountEvents(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to count events: %w", err)
			}
			_, _ = fmt.Fprintf(a.stdout, "%s\t%d events\n", id, n)
		}
		return nil
	}

	query := event.QueryOptions{Limit: opts.limit}
	for _, t := range opts.types {
		query.Types = append(query.Types, event.Type(t))
	}
	events, err := store.Query(ctx, opts.agentID, query)
	if err != nil {
		return fmt.Errorf("failed to query events: %w", err)
	}

	if opts.jsonOutput {
		return a.encodeJSON(events)
	}
	for _, e := range events {
		_, _ = fmt.Fprintf(a.stdout, "%4d  %s  %-20s %s\n",
			e.Sequence, e.Timestamp.Format(time.RFC3339), e.Type, string(e.Payload))
	}
	return nil
}

func (a *App) encodeJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
