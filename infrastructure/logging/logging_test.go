package logging

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/felixgeelhaar/tileagent/domain/agent"
	"github.com/felixgeelhaar/tileagent/domain/world"
)

// testLogger creates a logger that writes to a buffer for testing
func testLogger() (*bolt.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	handler := bolt.NewJSONHandler(buf)
	logger := bolt.New(handler).SetLevel(bolt.TRACE)
	return logger, buf
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	config := DefaultConfig()

	if config.Level != "info" {
		t.Errorf("Level = %s, want info", config.Level)
	}
	if config.Format != "console" {
		t.Errorf("Format = %s, want console", config.Format)
	}
	if config.Output != os.Stderr {
		t.Errorf("Output = %v, want os.Stderr", config.Output)
	}
}

func TestProductionConfig(t *testing.T) {
	t.Parallel()

	if got := ProductionConfig().Format; got != "json" {
		t.Errorf("Format = %s, want json", got)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected bolt.Level
	}{
		{"trace", bolt.TRACE},
		{"debug", bolt.DEBUG},
		{"info", bolt.INFO},
		{"warn", bolt.WARN},
		{"WARNING", bolt.WARN},
		{"error", bolt.ERROR},
		{"unknown", bolt.INFO},
		{"", bolt.INFO},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%s) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNew_DebugOverridesLevel(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	logger := New(Config{Level: "error", Format: "json", Debug: true, Output: buf})
	logger.Debug().Msg("visible")

	if !bytes.Contains(buf.Bytes(), []byte("visible")) {
		t.Errorf("debug message missing with Debug enabled: %q", buf.String())
	}

	buf.Reset()
	quiet := New(Config{Level: "error", Format: "json", Output: buf})
	quiet.Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("info message written at error level: %q", buf.String())
	}
}

func TestFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		field Field
		want  string
	}{
		{"agent id", AgentID("artemis-1"), `"agent_id":"artemis-1"`},
		{"state", State(agent.StateExplore), `"state":"explore"`},
		{"from state", FromState(agent.StateGather), `"from_state":"gather"`},
		{"to state", ToState(agent.StateRender), `"to_state":"render"`},
		{"collaborator", Collaborator("scanner"), `"collaborator":"scanner"`},
		{"category", Category(world.CategoryRock), `"category":"rock"`},
		{"coordinate", Coordinate(world.At(3, 7)), `"col":7`},
		{"budget", Budget(4), `"render_budget":4`},
		{"outcome", Outcome(world.RenderFinished), `"outcome":"finished"`},
		{"tick", Tick(12), `"tick":12`},
		{"reason", Reason("no energy"), `"reason":"no energy"`},
		{"component", Component("runner"), `"component":"runner"`},
		{"str", Str("key", "value"), `"key":"value"`},
		{"int", Int("count", 3), `"count":3`},
		{"bool", Bool("debug", true), `"debug":true`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			logger, buf := testLogger()
			tt.field(logger.Info()).Msg("test")

			if !bytes.Contains(buf.Bytes(), []byte(tt.want)) {
				t.Errorf("expected %s in output: %s", tt.want, buf.String())
			}
		})
	}
}

func TestErrorField(t *testing.T) {
	t.Parallel()

	t.Run("with error", func(t *testing.T) {
		t.Parallel()

		logger, buf := testLogger()
		ErrorField(errors.New("scan failed"))(logger.Error()).Msg("test")

		if !bytes.Contains(buf.Bytes(), []byte("scan failed")) {
			t.Errorf("expected error in output: %s", buf.String())
		}
	})

	t.Run("with nil error", func(t *testing.T) {
		t.Parallel()

		logger, buf := testLogger()
		ErrorField(nil)(logger.Info()).Msg("test")

		if bytes.Contains(buf.Bytes(), []byte(`"error"`)) {
			t.Errorf("unexpected error field in output: %s", buf.String())
		}
	})
}

func TestLogEvent(t *testing.T) {
	t.Parallel()

	logger, buf := testLogger()

	NewEvent(logger.Info()).
		Add(AgentID("a-1")).
		Add(State(agent.StateLocate)).
		Msg("step")

	if !bytes.Contains(buf.Bytes(), []byte(`"agent_id":"a-1"`)) {
		t.Errorf("expected agent_id field in output: %s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"state":"locate"`)) {
		t.Errorf("expected state field in output: %s", buf.String())
	}

	buf.Reset()
	NewEvent(logger.Info()).Add(Tick(2)).Send()
	if !bytes.Contains(buf.Bytes(), []byte(`"tick":2`)) {
		t.Errorf("expected tick field in output: %s", buf.String())
	}
}

// Tests below replace the default logger and are not parallel.

func TestApplyLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	previous := Get()
	SetDefault(New(Config{Level: "error", Format: "json", Output: buf}))
	t.Cleanup(func() { SetDefault(previous) })

	tests := []struct {
		name    string
		level   string
		debug   bool
		emit    func() *LogEvent
		visible bool
	}{
		{"debug overrides warn", "warn", true, Debug, true},
		{"warn without debug hides debug", "warn", false, Debug, false},
		{"warn without debug shows warn", "warn", false, Warn, true},
		{"debug keeps trace", "trace", true, Trace, true},
		{"debug hides trace at info", "info", true, Trace, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			ApplyLevel(tt.level, tt.debug)
			tt.emit().Msg("reloaded")

			if got := bytes.Contains(buf.Bytes(), []byte("reloaded")); got != tt.visible {
				t.Errorf("message visible = %v, want %v: %q", got, tt.visible, buf.String())
			}
		})
	}
}

func TestSetDefault(t *testing.T) {
	logger, buf := testLogger()
	previous := Get()
	SetDefault(logger)
	t.Cleanup(func() { SetDefault(previous) })

	Info().Add(Component("test")).Msg("through default")
	if !bytes.Contains(buf.Bytes(), []byte("through default")) {
		t.Errorf("default logger not replaced: %s", buf.String())
	}

	for name, ev := range map[string]*LogEvent{
		"trace": Trace(),
		"debug": Debug(),
		"warn":  Warn(),
		"error": Error(),
	} {
		if ev == nil {
			t.Errorf("%s() returned nil", name)
		}
	}
}
