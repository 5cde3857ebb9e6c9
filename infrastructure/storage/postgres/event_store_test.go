package postgres

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/tileagent/domain/event"
)

func TestNewEventStore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		schema string
		want   string
	}{
		{name: "default schema", schema: "", want: `"public"."events"`},
		{name: "custom schema", schema: "tiles", want: `"tiles"."events"`},
		{name: "quoted schema", schema: `we"ird`, want: `"we""ird"."events"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := NewEventStore(nil, tt.schema)
			if got := s.tableName(); got != tt.want {
				t.Errorf("tableName() = %s, want %s", got, tt.want)
			}
			if err := s.Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	for _, opt := range []Option{WithDSN("postgres://localhost/tiles"), WithSchema("tiles"), WithPoolSize(4, 1), WithAutoMigrate()} {
		opt(&cfg)
	}

	if cfg.DSN != "postgres://localhost/tiles" || cfg.Schema != "tiles" {
		t.Errorf("DSN, Schema = %s, %s", cfg.DSN, cfg.Schema)
	}
	if cfg.MaxConns != 4 || cfg.MinConns != 1 {
		t.Errorf("pool = (%d, %d), want (4, 1)", cfg.MaxConns, cfg.MinConns)
	}
	if !cfg.AutoMigrate {
		t.Error("AutoMigrate = false, want true")
	}
	if cfg.ConnectTimeout != 10*time.Second {
		t.Errorf("ConnectTimeout = %v, want 10s", cfg.ConnectTimeout)
	}
}

func TestEventStore_buildQuerySQL(t *testing.T) {
	t.Parallel()

	s := NewEventStore(nil, "public")

	tests := []struct {
		name      string
		opts      event.QueryOptions
		wantArgs  int
		contains  []string
		forbidden []string
	}{
		{
			name:      "agent only",
			opts:      event.QueryOptions{},
			wantArgs:  1,
			contains:  []string{"agent_id = $1", "ORDER BY sequence"},
			forbidden: []string{"ANY(", "LIMIT"},
		},
		{
			name:     "types",
			opts:     event.QueryOptions{Types: []event.Type{event.TypeQuotaReported, event.TypeAgentTerminated}},
			wantArgs: 2,
			contains: []string{"type = ANY($2)"},
		},
		{
			name:     "types and limit",
			opts:     event.QueryOptions{Types: []event.Type{event.TypeQuotaReported}, Limit: 5},
			wantArgs: 3,
			contains: []string{"type = ANY($2)", "LIMIT $3"},
		},
		{
			name:     "limit only",
			opts:     event.QueryOptions{Limit: 5},
			wantArgs: 2,
			contains: []string{"LIMIT $2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			query, args := s.buildQuerySQL("artemis", tt.opts)
			if len(args) != tt.wantArgs {
				t.Errorf("len(args) = %d, want %d", len(args), tt.wantArgs)
			}
			if args[0] != "artemis" {
				t.Errorf("args[0] = %v, want artemis", args[0])
			}
			for _, c := range tt.contains {
				if !strings.Contains(query, c) {
					t.Errorf("query missing %q:\n%s", c, query)
				}
			}
			for _, f := range tt.forbidden {
				if strings.Contains(query, f) {
					t.Errorf("query contains %q:\n%s", f, query)
				}
			}
		})
	}
}

func TestEventStore_wrapError(t *testing.T) {
	t.Parallel()

	s := NewEventStore(nil, "")

	if err := s.wrapError(nil); err != nil {
		t.Errorf("wrapError(nil) = %v, want nil", err)
	}
	if err := s.wrapError(context.DeadlineExceeded); !errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrConnectionFailed) {
		t.Errorf("wrapError(deadline) = %v", err)
	}
	if err := s.wrapError(errors.New("boom")); !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("wrapError(boom) = %v, want ErrConnectionFailed", err)
	}
}

func TestEventStore_AppendValidation(t *testing.T) {
	t.Parallel()

	s := NewEventStore(nil, "")
	ctx := context.Background()

	if err := s.Append(ctx); err != nil {
		t.Errorf("Append() with no events error = %v", err)
	}
	if err := s.Append(ctx, event.Event{AgentID: "artemis"}); !errors.Is(err, event.ErrInvalidEvent) {
		t.Errorf("Append() error = %v, want ErrInvalidEvent", err)
	}
}

func TestOpen_BadDSN(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), DefaultConfig(), WithDSN("postgres://%zz"))
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Open() error = %v, want ErrConnectionFailed", err)
	}
}

// TestEventStore_Server runs against TILEAGENT_POSTGRES_DSN when it is set.
func TestEventStore_Server(t *testing.T) {
	dsn := os.Getenv("TILEAGENT_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TILEAGENT_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	s, err := Open(ctx, DefaultConfig(), WithDSN(dsn), WithAutoMigrate())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = s.Close() }()

	agentID := "test-" + time.Now().Format("150405.000000000")
	for _, typ := range []event.Type{event.TypeAgentStarted, event.TypeQuotaReported, event.TypeAgentTerminated} {
		e, err := event.NewEvent(agentID, typ, map[string]int{"n": 1})
		if err != nil {
			t.Fatalf("NewEvent() error = %v", err)
		}
		if err := s.Append(ctx, e); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	loaded, err := s.LoadEventsFrom(ctx, agentID, 2)
	if err != nil {
		t.Fatalf("LoadEventsFrom() error = %v", err)
	}
	if len(loaded) != 2 || loaded[0].Sequence != 2 {
		t.Errorf("LoadEventsFrom(2) = %d events", len(loaded))
	}

	got, err := s.Query(ctx, agentID, event.QueryOptions{Types: []event.Type{event.TypeAgentTerminated}})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 1 || got[0].Sequence != 3 {
		t.Errorf("Query() = %+v, want the sequence 3 termination", got)
	}

	count, err := s.CountEvents(ctx, agentID)
	if err != nil || count != 3 {
		t.Errorf("CountEvents() = %d, %v; want 3", count, err)
	}
}
