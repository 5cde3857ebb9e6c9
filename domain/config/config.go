// Package config provides domain models for agent configuration.
package config

import (
	"path/filepath"
	"time"

	"github.com/felixgeelhaar/tileagent/domain/quota"
	"github.com/felixgeelhaar/tileagent/domain/world"
)

// Config represents the complete configuration of one agent run.
type Config struct {
	// Name is a human-readable name for this configuration.
	Name string `json:"name" yaml:"name"`
	// Version is the configuration schema version.
	Version string `json:"version" yaml:"version"`
	// Description describes the run.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Agent contains the decision loop settings.
	Agent AgentSettings `json:"agent" yaml:"agent"`
	// World configures the reference tile world.
	World WorldSettings `json:"world,omitempty" yaml:"world,omitempty"`
	// Logging configures structured logging.
	Logging LoggingSettings `json:"logging,omitempty" yaml:"logging,omitempty"`
	// Storage configures the event store.
	Storage StorageSettings `json:"storage,omitempty" yaml:"storage,omitempty"`
	// Resilience configures collaborator circuit breakers.
	Resilience ResilienceSettings `json:"resilience,omitempty" yaml:"resilience,omitempty"`
	// Telemetry configures OpenTelemetry metrics.
	Telemetry TelemetrySettings `json:"telemetry,omitempty" yaml:"telemetry,omitempty"`
}

// AgentSettings contains decision loop settings.
type AgentSettings struct {
	// ScanRadius is the radius passed to the area scanner.
	ScanRadius int `json:"scan_radius,omitempty" yaml:"scan_radius,omitempty"`
	// Categories lists the resource categories the agent targets, in order.
	Categories []string `json:"categories,omitempty" yaml:"categories,omitempty"`
	// RenderBudget is the inclusive range the render budget is drawn from.
	RenderBudget RangeSettings `json:"render_budget,omitempty" yaml:"render_budget,omitempty"`
	// Quota configures the completion tracker.
	Quota QuotaSettings `json:"quota,omitempty" yaml:"quota,omitempty"`
	// Artifacts configures the artifact catalog.
	Artifacts ArtifactSettings `json:"artifacts,omitempty" yaml:"artifacts,omitempty"`
	// Debug enables debug-level logging of every step.
	Debug bool `json:"debug,omitempty" yaml:"debug,omitempty"`
}

// RangeSettings is an inclusive integer range.
type RangeSettings struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

// QuotaSettings configures the completion tracker.
type QuotaSettings struct {
	// Mode is "any" (every report counts toward every goal) or "per_category".
	Mode string `json:"mode,omitempty" yaml:"mode,omitempty"`
	// Goals are the tracked quotas.
	Goals []GoalSettings `json:"goals,omitempty" yaml:"goals,omitempty"`
}

// GoalSettings is a single quota.
type GoalSettings struct {
	Name     string `json:"name" yaml:"name"`
	Category string `json:"category" yaml:"category"`
	Target   int    `json:"target" yaml:"target"`
}

// ArtifactSettings configures what the agent renders.
type ArtifactSettings struct {
	// Dir is prepended to every catalog entry.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
	// Catalog lists the artifacts chosen at random while budget remains.
	Catalog []string `json:"catalog,omitempty" yaml:"catalog,omitempty"`
	// Terminal is the artifact rendered once the budget is spent.
	Terminal string `json:"terminal,omitempty" yaml:"terminal,omitempty"`
	// ResizeHeight is the target height handed to the renderer.
	ResizeHeight int `json:"resize_height,omitempty" yaml:"resize_height,omitempty"`
	// Cells is the number of tiles one artifact covers.
	Cells int `json:"cells,omitempty" yaml:"cells,omitempty"`
}

// WorldSettings configures the reference tile world and the tick loop.
type WorldSettings struct {
	Size         int             `json:"size,omitempty" yaml:"size,omitempty"`
	Seed         int64           `json:"seed,omitempty" yaml:"seed,omitempty"`
	Ticks        int             `json:"ticks,omitempty" yaml:"ticks,omitempty"`
	CellsPerTick int             `json:"cells_per_tick,omitempty" yaml:"cells_per_tick,omitempty"`
	Energy       EnergySettings  `json:"energy,omitempty" yaml:"energy,omitempty"`
	Density      DensitySettings `json:"density,omitempty" yaml:"density,omitempty"`
}

// EnergySettings configures the body's energy.
type EnergySettings struct {
	Max      int `json:"max,omitempty" yaml:"max,omitempty"`
	Recharge int `json:"recharge,omitempty" yaml:"recharge,omitempty"`
}

// DensitySettings is the probability of a tile holding each resource.
type DensitySettings struct {
	Rock  float64 `json:"rock,omitempty" yaml:"rock,omitempty"`
	Tree  float64 `json:"tree,omitempty" yaml:"tree,omitempty"`
	Water float64 `json:"water,omitempty" yaml:"water,omitempty"`
}

// LoggingSettings configures structured logging.
type LoggingSettings struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `json:"level,omitempty" yaml:"level,omitempty"`
	// Format is json or console.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// StorageSettings configures the event store.
type StorageSettings struct {
	// Driver is one of memory, sqlite, badger, postgres, redis and mongodb.
	Driver string `json:"driver,omitempty" yaml:"driver,omitempty"`
	// DSN locates the store: a sqlite data source name, a badger directory
	// (empty keeps badger in memory), a postgres connection string, a
	// redis URL or a mongodb URI.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
}

// ResilienceSettings configures collaborator guards.
type ResilienceSettings struct {
	Enabled              bool     `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	BreakerThreshold     int      `json:"breaker_threshold,omitempty" yaml:"breaker_threshold,omitempty"`
	BreakerTimeout       Duration `json:"breaker_timeout,omitempty" yaml:"breaker_timeout,omitempty"`
	CollectRetryAttempts int      `json:"collect_retry_attempts,omitempty" yaml:"collect_retry_attempts,omitempty"`
}

// TelemetrySettings configures metrics.
type TelemetrySettings struct {
	Enabled   bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	MeterName string `json:"meter_name,omitempty" yaml:"meter_name,omitempty"`
	// Traces is none or stdout.
	Traces string `json:"traces,omitempty" yaml:"traces,omitempty"`
}

// Default returns the configuration the original agent ran with.
func Default() *Config {
	return &Config{
		Name:    "artemis",
		Version: "1",
		Agent: AgentSettings{
			ScanRadius:   10,
			Categories:   []string{string(world.CategoryRock), string(world.CategoryTree)},
			RenderBudget: RangeSettings{Min: 0, Max: 13},
			Quota: QuotaSettings{
				Mode: "any",
				Goals: []GoalSettings{
					{Name: "collect", Category: string(world.CategoryTree), Target: 20},
				},
			},
			Artifacts: ArtifactSettings{
				Dir: "res/img",
				Catalog: []string{
					"agentileschi_giodittaoloferne.png",
					"fontana_concettospaziale.png",
					"giulialama_martirioeurosia.png",
					"meow.png",
					"paularego_war.png",
					"remediosvaro_fenomeno.png",
				},
				Terminal:     "meow.png",
				ResizeHeight: 50,
				Cells:        25,
			},
			Debug: true,
		},
		World: WorldSettings{
			Size:         200,
			Seed:         15,
			Ticks:        300,
			CellsPerTick: 5,
			Energy:       EnergySettings{Max: 1000, Recharge: 20},
			Density:      DensitySettings{Rock: 0.04, Tree: 0.06, Water: 0.05},
		},
		Logging: LoggingSettings{Level: "info", Format: "console"},
		Storage: StorageSettings{Driver: "memory"},
		Resilience: ResilienceSettings{
			Enabled:              true,
			BreakerThreshold:     5,
			BreakerTimeout:       Duration(30 * time.Second),
			CollectRetryAttempts: 1,
		},
	}
}

// TrackedCategories converts the configured category names.
func (a AgentSettings) TrackedCategories() ([]world.Category, error) {
	out := make([]world.Category, 0, len(a.Categories))
	for _, name := range a.Categories {
		c, err := world.ParseCategory(name)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// CatalogArtifacts returns the random-pick artifacts.
func (a ArtifactSettings) CatalogArtifacts() []world.Artifact {
	out := make([]world.Artifact, 0, len(a.Catalog))
	for _, name := range a.Catalog {
		out = append(out, a.artifact(name))
	}
	return out
}

// TerminalArtifact returns the artifact rendered once the budget is spent.
func (a ArtifactSettings) TerminalArtifact() world.Artifact {
	return a.artifact(a.Terminal)
}

func (a ArtifactSettings) artifact(name string) world.Artifact {
	path := name
	if a.Dir != "" {
		path = filepath.Join(a.Dir, name)
	}
	return world.Artifact{
		Name:   name,
		Path:   path,
		Height: a.ResizeHeight,
		Cells:  a.Cells,
	}
}

// Duration is a time.Duration that supports JSON/YAML string representation.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}

	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// NewTracker builds the completion tracker described by the quota settings.
func (q QuotaSettings) NewTracker() (*quota.Tracker, error) {
	mode, err := quota.ParseMode(q.Mode)
	if err != nil {
		return nil, err
	}
	quotas := make([]quota.Quota, 0, len(q.Goals))
	for _, g := range q.Goals {
		c, err := world.ParseCategory(g.Category)
		if err != nil {
			return nil, err
		}
		quotas = append(quotas, quota.Quota{Name: g.Name, Category: c, Target: g.Target})
	}
	return quota.New(mode, quotas...)
}
