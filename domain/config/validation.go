package config

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/tileagent/domain/quota"
	"github.com/felixgeelhaar/tileagent/domain/world"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	// Path is the YAML path to the invalid field.
	Path string
	// Message describes the validation error.
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(e), strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates run configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(config *Config) ValidationErrors {
	v.errors = nil

	v.validateRequired(config)
	v.validateAgent(config.Agent)
	v.validateWorld(config.World)
	v.validateLogging(config.Logging)
	v.validateStorage(config.Storage)
	v.validateResilience(config.Resilience)
	v.validateTelemetry(config.Telemetry)

	return v.errors
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}

func (v *Validator) validateRequired(config *Config) {
	if config.Name == "" {
		v.addError("name", "name is required")
	}
	if config.Version == "" {
		v.addError("version", "version is required")
	}
}

func (v *Validator) validateAgent(a AgentSettings) {
	if a.ScanRadius < 0 {
		v.addError("agent.scan_radius", "scan_radius must be non-negative")
	}

	for i, name := range a.Categories {
		c := world.Category(name)
		if !c.IsValid() || c == world.CategoryAny {
			v.addError(fmt.Sprintf("agent.categories[%d]", i), fmt.Sprintf("unknown category: %s", name))
		}
	}

	if a.RenderBudget.Min < 0 {
		v.addError("agent.render_budget.min", "min must be non-negative")
	}
	if a.RenderBudget.Max < a.RenderBudget.Min {
		v.addError("agent.render_budget.max", "max must not be less than min")
	}

	if _, err := quota.ParseMode(a.Quota.Mode); err != nil {
		v.addError("agent.quota.mode", fmt.Sprintf("invalid mode: %s", a.Quota.Mode))
	}
	if len(a.Quota.Goals) == 0 {
		v.addError("agent.quota.goals", "at least one goal is required")
	}
	for i, g := range a.Quota.Goals {
		path := fmt.Sprintf("agent.quota.goals[%d]", i)
		if g.Name == "" {
			v.addError(path+".name", "goal name is required")
		}
		if !world.Category(g.Category).IsValid() {
			v.addError(path+".category", fmt.Sprintf("unknown category: %s", g.Category))
		}
		if g.Target <= 0 {
			v.addError(path+".target", "target must be positive")
		}
	}

	if len(a.Artifacts.Catalog) == 0 {
		v.addError("agent.artifacts.catalog", "at least one artifact is required")
	}
	for i, name := range a.Artifacts.Catalog {
		if name == "" {
			v.addError(fmt.Sprintf("agent.artifacts.catalog[%d]", i), "artifact name is required")
		}
	}
	if a.Artifacts.Terminal == "" {
		v.addError("agent.artifacts.terminal", "terminal artifact is required")
	}
	if a.Artifacts.ResizeHeight < 0 {
		v.addError("agent.artifacts.resize_height", "resize_height must be non-negative")
	}
	if a.Artifacts.Cells < 0 {
		v.addError("agent.artifacts.cells", "cells must be non-negative")
	}
}

func (v *Validator) validateWorld(w WorldSettings) {
	if w.Size < 0 {
		v.addError("world.size", "size must be non-negative")
	}
	if w.Ticks < 0 {
		v.addError("world.ticks", "ticks must be non-negative")
	}
	if w.CellsPerTick < 0 {
		v.addError("world.cells_per_tick", "cells_per_tick must be non-negative")
	}
	if w.Energy.Max < 0 {
		v.addError("world.energy.max", "max must be non-negative")
	}
	if w.Energy.Recharge < 0 {
		v.addError("world.energy.recharge", "recharge must be non-negative")
	}

	densities := map[string]float64{
		"world.density.rock":  w.Density.Rock,
		"world.density.tree":  w.Density.Tree,
		"world.density.water": w.Density.Water,
	}
	for path, d := range densities {
		if d < 0 || d > 1 {
			v.addError(path, "density must be between 0 and 1")
		}
	}
	if total := w.Density.Rock + w.Density.Tree + w.Density.Water; total > 1 {
		v.addError("world.density", "densities must not sum above 1")
	}
}

func (v *Validator) validateLogging(l LoggingSettings) {
	if l.Level != "" {
		switch strings.ToLower(l.Level) {
		case "trace", "debug", "info", "warn", "warning", "error":
		default:
			v.addError("logging.level", fmt.Sprintf("invalid level: %s", l.Level))
		}
	}
	if l.Format != "" && l.Format != "json" && l.Format != "console" {
		v.addError("logging.format", fmt.Sprintf("invalid format: %s", l.Format))
	}
}

func (v *Validator) validateStorage(s StorageSettings) {
	switch s.Driver {
	case "", "memory", "badger":
	case "sqlite", "postgres", "redis", "mongodb":
		if s.DSN == "" {
			v.addError("storage.dsn", fmt.Sprintf("dsn is required for %s driver", s.Driver))
		}
	default:
		v.addError("storage.driver", fmt.Sprintf("unknown driver: %s", s.Driver))
	}
}

func (v *Validator) validateTelemetry(t TelemetrySettings) {
	switch t.Traces {
	case "", "none", "stdout":
	default:
		v.addError("telemetry.traces", fmt.Sprintf("unknown trace exporter: %s", t.Traces))
	}
}

func (v *Validator) validateResilience(r ResilienceSettings) {
	if r.BreakerThreshold < 0 {
		v.addError("resilience.breaker_threshold", "breaker_threshold must be non-negative")
	}
	if r.BreakerTimeout < 0 {
		v.addError("resilience.breaker_timeout", "breaker_timeout must be non-negative")
	}
	if r.CollectRetryAttempts < 0 {
		v.addError("resilience.collect_retry_attempts", "collect_retry_attempts must be non-negative")
	}
}
