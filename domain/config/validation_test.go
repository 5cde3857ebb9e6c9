package config

import (
	"strings"
	"testing"
)

func TestValidator_ValidateRequired(t *testing.T) {
	tests := []struct {
		name         string
		mutate       func(*Config)
		wantErrPaths []string
	}{
		{
			name:         "missing name",
			mutate:       func(c *Config) { c.Name = "" },
			wantErrPaths: []string{"name"},
		},
		{
			name:         "missing version",
			mutate:       func(c *Config) { c.Version = "" },
			wantErrPaths: []string{"version"},
		},
		{
			name:         "missing both name and version",
			mutate:       func(c *Config) { c.Name, c.Version = "", "" },
			wantErrPaths: []string{"name", "version"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			errs := NewValidator().Validate(cfg)
			if !errs.HasErrors() {
				t.Fatal("expected errors, got none")
			}
			assertErrorPaths(t, errs, tt.wantErrPaths)
		})
	}
}

func TestValidator_ValidateAgent(t *testing.T) {
	tests := []struct {
		name         string
		mutate       func(*Config)
		wantErrPaths []string
	}{
		{
			name:         "negative radius",
			mutate:       func(c *Config) { c.Agent.ScanRadius = -1 },
			wantErrPaths: []string{"agent.scan_radius"},
		},
		{
			name:         "unknown category",
			mutate:       func(c *Config) { c.Agent.Categories = []string{"rock", "gold"} },
			wantErrPaths: []string{"agent.categories[1]"},
		},
		{
			name:         "wildcard is not a target category",
			mutate:       func(c *Config) { c.Agent.Categories = []string{"*"} },
			wantErrPaths: []string{"agent.categories[0]"},
		},
		{
			name:         "inverted budget range",
			mutate:       func(c *Config) { c.Agent.RenderBudget = RangeSettings{Min: 5, Max: 2} },
			wantErrPaths: []string{"agent.render_budget.max"},
		},
		{
			name:         "negative budget",
			mutate:       func(c *Config) { c.Agent.RenderBudget = RangeSettings{Min: -1, Max: 2} },
			wantErrPaths: []string{"agent.render_budget.min"},
		},
		{
			name:         "unknown quota mode",
			mutate:       func(c *Config) { c.Agent.Quota.Mode = "all" },
			wantErrPaths: []string{"agent.quota.mode"},
		},
		{
			name:         "no goals",
			mutate:       func(c *Config) { c.Agent.Quota.Goals = nil },
			wantErrPaths: []string{"agent.quota.goals"},
		},
		{
			name: "invalid goal",
			mutate: func(c *Config) {
				c.Agent.Quota.Goals = []GoalSettings{{Category: "gold", Target: 0}}
			},
			wantErrPaths: []string{
				"agent.quota.goals[0].name",
				"agent.quota.goals[0].category",
				"agent.quota.goals[0].target",
			},
		},
		{
			name:         "wildcard goal is accepted",
			mutate:       func(c *Config) { c.Agent.Quota.Goals = []GoalSettings{{Name: "all", Category: "*", Target: 3}} },
			wantErrPaths: nil,
		},
		{
			name:         "badger without dsn stays in memory",
			mutate:       func(c *Config) { c.Storage = StorageSettings{Driver: "badger"} },
			wantErrPaths: nil,
		},
		{
			name: "empty artifacts",
			mutate: func(c *Config) {
				c.Agent.Artifacts.Catalog = nil
				c.Agent.Artifacts.Terminal = ""
			},
			wantErrPaths: []string{"agent.artifacts.catalog", "agent.artifacts.terminal"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			errs := NewValidator().Validate(cfg)
			assertErrorPaths(t, errs, tt.wantErrPaths)
		})
	}
}

func TestValidator_ValidateAmbient(t *testing.T) {
	tests := []struct {
		name         string
		mutate       func(*Config)
		wantErrPaths []string
	}{
		{
			name:         "density out of range",
			mutate:       func(c *Config) { c.World.Density.Rock = 1.5 },
			wantErrPaths: []string{"world.density.rock", "world.density"},
		},
		{
			name:         "negative ticks",
			mutate:       func(c *Config) { c.World.Ticks = -3 },
			wantErrPaths: []string{"world.ticks"},
		},
		{
			name:         "invalid log level",
			mutate:       func(c *Config) { c.Logging.Level = "loud" },
			wantErrPaths: []string{"logging.level"},
		},
		{
			name:         "invalid log format",
			mutate:       func(c *Config) { c.Logging.Format = "xml" },
			wantErrPaths: []string{"logging.format"},
		},
		{
			name:         "sqlite without dsn",
			mutate:       func(c *Config) { c.Storage = StorageSettings{Driver: "sqlite"} },
			wantErrPaths: []string{"storage.dsn"},
		},
		{
			name:         "unknown driver",
			mutate:       func(c *Config) { c.Storage.Driver = "cassandra" },
			wantErrPaths: []string{"storage.driver"},
		},
		{
			name:         "postgres without dsn",
			mutate:       func(c *Config) { c.Storage = StorageSettings{Driver: "postgres"} },
			wantErrPaths: []string{"storage.dsn"},
		},
		{
			name:         "negative breaker threshold",
			mutate:       func(c *Config) { c.Resilience.BreakerThreshold = -1 },
			wantErrPaths: []string{"resilience.breaker_threshold"},
		},
		{
			name:         "unknown trace exporter",
			mutate:       func(c *Config) { c.Telemetry.Traces = "jaeger" },
			wantErrPaths: []string{"telemetry.traces"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			errs := NewValidator().Validate(cfg)
			assertErrorPaths(t, errs, tt.wantErrPaths)
		})
	}
}

func TestValidationErrors_Error(t *testing.T) {
	t.Parallel()

	if got := (ValidationErrors{}).Error(); got != "no validation errors" {
		t.Errorf("empty Error() = %q", got)
	}

	one := ValidationErrors{{Path: "name", Message: "name is required"}}
	if got := one.Error(); got != "name: name is required" {
		t.Errorf("single Error() = %q", got)
	}

	two := append(one, ValidationError{Message: "bad"})
	if got := two.Error(); !strings.HasPrefix(got, "2 validation errors:") || !strings.Contains(got, "  - bad") {
		t.Errorf("multi Error() = %q", got)
	}
}

// assertErrorPaths verifies that errs contains exactly the expected paths.
func assertErrorPaths(t *testing.T, errs ValidationErrors, wantPaths []string) {
	t.Helper()

	if len(errs) != len(wantPaths) {
		t.Errorf("got %d errors, want %d:\n%v", len(errs), len(wantPaths), errs)
		return
	}

	for _, wantPath := range wantPaths {
		found := false
		for _, err := range errs {
			if err.Path == wantPath {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing expected error path %q in errors:\n%v", wantPath, errs)
		}
	}
}
