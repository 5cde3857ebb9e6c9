package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	infraconfig "github.com/felixgeelhaar/tileagent/infrastructure/config"
)

// validateOptions holds options for the validate command.
type validateOptions struct {
	configPath string
	strict     bool
}

func (a *App) newValidateCmd() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Long: `Validate an agent configuration file for correctness.

This command checks:
  - File format (YAML or JSON)
  - Required fields (name, version)
  - Categories, quota goals and the render budget range
  - World size, energy and densities
  - Storage, resilience and telemetry settings
  - Environment variable references (in strict mode)

Examples:
  # Validate a configuration file
  tileagent validate -c agent.yaml

  # Strict validation (fail on missing env vars)
  tileagent validate -c agent.yaml --strict`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.validateConfig(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Enable strict validation (fail on missing env vars)")

	return cmd
}

func (a *App) validateConfig(opts *validateOptions) error {
	if opts.configPath == "" {
		return fmt.Errorf("configuration file path is required (-c flag)")
	}

	loader := infraconfig.NewLoader(
		infraconfig.WithValidation(true),
		infraconfig.WithStrictEnv(opts.strict),
	)
	cfg, err := loader.LoadFile(opts.configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	_, _ = fmt.Fprintf(a.stdout, "✓ Configuration is valid\n")
	_, _ = fmt.Fprintf(a.stdout, "  Name: %s\n", cfg.Name)
	_, _ = fmt.Fprintf(a.stdout, "  Version: %s\n", cfg.Version)
	if cfg.Description != "" {
		_, _ = fmt.Fprintf(a.stdout, "  Description: %s\n", cfg.Description)
	}

	_, _ = fmt.Fprintf(a.stdout, "\nConfiguration summary:\n")
	_, _ = fmt.Fprintf(a.stdout, "  Categories: %v\n", cfg.Agent.Categories)
	_, _ = fmt.Fprintf(a.stdout, "  Scan radius: %d\n", cfg.Agent.ScanRadius)
	_, _ = fmt.Fprintf(a.stdout, "  Render budget: [%d, %d]\n", cfg.Agent.RenderBudget.Min, cfg.Agent.RenderBudget.Max)
	_, _ = fmt.Fprintf(a.stdout, "  Quota mode: %s\n", cfg.Agent.Quota.Mode)
	for _, goal := range cfg.Agent.Quota.Goals {
		_, _ = fmt.Fprintf(a.stdout, "    - %s: %d %s\n", goal.Name, goal.Target, goal.Category)
	}
	_, _ = fmt.Fprintf(a.stdout, "  Artifacts: %d (terminal %s)\n", len(cfg.Agent.Artifacts.Catalog), cfg.Agent.Artifacts.Terminal)
	_, _ = fmt.Fprintf(a.stdout, "  World: %dx%d, seed %d, %d ticks\n", cfg.World.Size, cfg.World.Size, cfg.World.Seed, cfg.World.Ticks)

	driver := cfg.Storage.Driver
	if driver == "" {
		driver = "memory"
	}
	_, _ = fmt.Fprintf(a.stdout, "  Storage: %s\n", driver)
	if cfg.Resilience.Enabled {
		_, _ = fmt.Fprintf(a.stdout, "  Resilience: enabled (threshold=%d, timeout=%s)\n",
			cfg.Resilience.BreakerThreshold, cfg.Resilience.BreakerTimeout.Duration())
	}
	if cfg.Telemetry.Enabled {
		_, _ = fmt.Fprintf(a.stdout, "  Telemetry: enabled\n")
	}

	return nil
}
