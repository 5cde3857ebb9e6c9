package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/tileagent/application"
	"github.com/felixgeelhaar/tileagent/domain/agent"
	"github.com/felixgeelhaar/tileagent/domain/config"
	"github.com/felixgeelhaar/tileagent/domain/world"
	infraconfig "github.com/felixgeelhaar/tileagent/infrastructure/config"
	infraevent "github.com/felixgeelhaar/tileagent/infrastructure/event"
	"github.com/felixgeelhaar/tileagent/infrastructure/gridworld"
	"github.com/felixgeelhaar/tileagent/infrastructure/logging"
	"github.com/felixgeelhaar/tileagent/infrastructure/resilience"
	"github.com/felixgeelhaar/tileagent/infrastructure/storage"
	"github.com/felixgeelhaar/tileagent/infrastructure/telemetry"
)

// runOptions holds options for the run command.
type runOptions struct {
	configPath      string
	agentID         string
	ticks           int
	seed            int64
	seedSet         bool
	driver          string
	dsn             string
	watch           bool
	stopOnTerminate bool
	jsonOutput      bool
}

func (a *App) newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the agent in a generated tile world",
		Long: `Run the agent in a generated tile world for a number of ticks.

Without a configuration file the built-in defaults are used: a 200x200 world
with seed 15, 300 ticks and a render budget drawn from [0, 13].

Examples:
  # Run with the defaults
  tileagent run

  # Run a configuration file and keep its log level in sync with edits
  tileagent run -c agent.yaml --watch

  # Store the event stream in SQLite and stop once the agent terminates
  tileagent run --dsn file:events.db --stop-on-terminate --ticks 5000

  # Store the event stream in PostgreSQL
  tileagent run --driver postgres --dsn postgres://localhost/tiles`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.seedSet = cmd.Flags().Changed("seed")
			return a.runAgent(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVar(&opts.agentID, "agent-id", "", "Agent identity (default: random UUID)")
	cmd.Flags().IntVar(&opts.ticks, "ticks", 0, "Number of ticks to run (overrides config)")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "World seed (overrides config)")
	cmd.Flags().StringVar(&opts.driver, "driver", "sqlite", "Event store driver used with --dsn ("+strings.Join(storage.Drivers, ", ")+")")
	cmd.Flags().StringVar(&opts.dsn, "dsn", "", "Store events at this location (overrides config)")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Reload the log level when the configuration file changes")
	cmd.Flags().BoolVar(&opts.stopOnTerminate, "stop-on-terminate", false, "Stop as soon as the agent terminates")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output the summary as JSON")

	return cmd
}

// loadConfig loads path, or returns the defaults when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := infraconfig.NewLoader().LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// session holds everything one run owns.
type session struct {
	world      *gridworld.World
	controller *application.Controller
	store      storage.EventLog
	publisher  *infraevent.Publisher
	telemetry  *telemetry.Provider
}

// close flushes the event log and releases the store and telemetry.
func (s *session) close(ctx context.Context) error {
	s.controller.Close()
	return errors.Join(s.publisher.Close(), s.release(ctx))
}

func (s *session) release(ctx context.Context) error {
	var errs []error
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	if s.telemetry != nil {
		errs = append(errs, s.telemetry.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// newSession wires the world, collaborators, event log and controller.
func newSession(ctx context.Context, cfg *config.Config, agentID string) (_ *session, err error) {
	s := &session{}
	defer func() {
		if err != nil {
			_ = s.release(context.Background())
		}
	}()

	var metrics telemetry.Metrics = telemetry.NoopMetricsProvider{}
	var tracerOpt []application.Option
	if cfg.Telemetry.Enabled {
		s.telemetry, err = telemetry.NewProvider(telemetry.ProviderConfig{
			ServiceName:    cfg.Name,
			ServiceVersion: Version,
			MeterName:      cfg.Telemetry.MeterName,
			Traces:         cfg.Telemetry.Traces,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to set up telemetry: %w", err)
		}
		metrics = s.telemetry.Metrics()
		tracerOpt = append(tracerOpt, application.WithTracer(s.telemetry.Tracer()))
	}

	if s.store, err = storage.Open(ctx, cfg.Storage); err != nil {
		return nil, err
	}
	s.publisher = infraevent.NewPublisher(s.store, infraevent.WithBufferSize(64))

	s.world, err = gridworld.New(gridworld.FromSettings(cfg.World, cfg.Agent.Artifacts))
	if err != nil {
		return nil, fmt.Errorf("failed to generate world: %w", err)
	}

	var (
		scanner   world.Scanner   = s.world
		planner   world.Planner   = s.world.Planner()
		collector world.Collector = s.world
		renderer  world.Renderer  = s.world
	)
	if cfg.Resilience.Enabled {
		guard := resilience.NewGuard(metrics,
			resilience.WithBreakerThreshold(cfg.Resilience.BreakerThreshold),
			resilience.WithBreakerTimeout(cfg.Resilience.BreakerTimeout.Duration()),
			resilience.WithCollectRetryAttempts(cfg.Resilience.CollectRetryAttempts),
		)
		scanner = guard.Scanner(scanner)
		planner = guard.Planner(planner)
		collector = guard.Collector(collector)
		renderer = guard.Renderer(renderer)
	}

	categories, err := cfg.Agent.TrackedCategories()
	if err != nil {
		return nil, err
	}
	tracker, err := cfg.Agent.Quota.NewTracker()
	if err != nil {
		return nil, err
	}

	seed := uint64(cfg.World.Seed) // #nosec G115 -- any bit pattern is a valid seed
	opts := []application.Option{
		application.WithAgentID(agentID),
		application.WithScanner(scanner),
		application.WithPlanner(planner),
		application.WithCollector(collector),
		application.WithRenderer(renderer),
		application.WithView(s.world),
		application.WithCategories(categories...),
		application.WithScanRadius(cfg.Agent.ScanRadius),
		application.WithTracker(tracker),
		application.WithArtifacts(cfg.Agent.Artifacts.TerminalArtifact(), cfg.Agent.Artifacts.CatalogArtifacts()...),
		application.WithBudgetRange(cfg.Agent.RenderBudget.Min, cfg.Agent.RenderBudget.Max),
		application.WithRand(rand.New(rand.NewPCG(seed, ^seed))),
		application.WithPublisher(s.publisher),
		application.WithMetrics(metrics),
	}
	s.controller, err = application.NewControllerWithOptions(append(opts, tracerOpt...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create controller: %w", err)
	}
	return s, nil
}

// runResult is the JSON shape of a finished run.
type runResult struct {
	application.Summary
	Duration string           `json:"duration"`
	Painted  int              `json:"painted"`
	Metrics  map[string]int64 `json:"metrics,omitempty"`
}

func (a *App) runAgent(ctx context.Context, opts *runOptions) (err error) {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.ticks > 0 {
		cfg.World.Ticks = opts.ticks
	}
	if opts.seedSet {
		cfg.World.Seed = opts.seed
	}
	if opts.dsn != "" {
		cfg.Storage = config.StorageSettings{Driver: opts.driver, DSN: opts.dsn}
	}

	logging.SetDefault(logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Debug:  cfg.Agent.Debug,
		Output: a.stderr,
	}))

	if errs := config.NewValidator().Validate(cfg); errs.HasErrors() {
		return fmt.Errorf("invalid configuration: %w", errs)
	}

	s, err := newSession(ctx, cfg, opts.agentID)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(context.Background()); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close run: %w", cerr)
		}
	}()

	if opts.watch && opts.configPath != "" {
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go a.watchConfig(watchCtx, opts.configPath)
	}

	var runnerOpts []application.RunnerOption
	if cfg.World.Ticks > 0 {
		runnerOpts = append(runnerOpts, application.WithTicks(cfg.World.Ticks))
	}
	if opts.stopOnTerminate {
		runnerOpts = append(runnerOpts, application.WithStopOnTerminate())
	}

	start := time.Now()
	summary, err := runGuarded(ctx, application.NewRunner(s.controller, s.world, s.world.Body(), runnerOpts...))
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("agent run failed: %w", err)
	}

	result := runResult{
		Summary:  summary,
		Duration: time.Since(start).Round(time.Millisecond).String(),
		Painted:  s.world.Painted(),
	}
	if s.telemetry != nil {
		if result.Metrics, err = s.telemetry.Totals(ctx); err != nil {
			return fmt.Errorf("failed to collect metrics: %w", err)
		}
	}
	return a.printSummary(result, opts.jsonOutput)
}

// runGuarded runs r and turns a halted controller into an error.
func runGuarded(ctx context.Context, r *application.Runner) (summary application.Summary, err error) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		var ite *agent.InvalidTransitionError
		if e, ok := rec.(error); ok && errors.As(e, &ite) {
			err = fmt.Errorf("agent halted: %w", ite)
			return
		}
		panic(rec)
	}()
	return r.Run(ctx)
}

// applyReloaded applies the logging level and debug toggle of a reloaded
// configuration.
func applyReloaded(path string, cfg *config.Config) {
	logging.ApplyLevel(cfg.Logging.Level, cfg.Agent.Debug)
	logging.Info().
		Add(logging.Component("config")).
		Add(logging.Str("path", path)).
		Add(logging.Str("level", cfg.Logging.Level)).
		Add(logging.Bool("debug", cfg.Agent.Debug)).
		Msg("configuration reloaded")
}

// watchConfig applies every reloaded configuration.
func (a *App) watchConfig(ctx context.Context, path string) {
	w := infraconfig.NewWatcher(path, nil, func(cfg *config.Config) {
		applyReloaded(path, cfg)
	}, infraconfig.WithErrorHandler(func(err error) {
		logging.Warn().
			Add(logging.Component("config")).
			Add(logging.ErrorField(err)).
			Msg("configuration reload failed")
	}))
	if err := w.Run(ctx); err != nil {
		logging.Error().
			Add(logging.Component("config")).
			Add(logging.ErrorField(err)).
			Msg("configuration watcher stopped")
	}
}

func (a *App) printSummary(result runResult, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	_, _ = fmt.Fprintf(a.stdout, "Run completed\n")
	_, _ = fmt.Fprintf(a.stdout, "  Agent ID: %s\n", result.AgentID)
	_, _ = fmt.Fprintf(a.stdout, "  Ticks: %d\n", result.Ticks)
	_, _ = fmt.Fprintf(a.stdout, "  State: %s\n", result.State)
	_, _ = fmt.Fprintf(a.stdout, "  Render budget left: %d\n", result.RenderBudget)
	_, _ = fmt.Fprintf(a.stdout, "  Renders: %d\n", result.Renders)
	_, _ = fmt.Fprintf(a.stdout, "  Quotas met: %d\n", result.Completed)
	_, _ = fmt.Fprintf(a.stdout, "  Tiles painted: %d\n", result.Painted)
	_, _ = fmt.Fprintf(a.stdout, "  Duration: %s\n", result.Duration)
	if result.Terminated {
		_, _ = fmt.Fprintf(a.stdout, "  Status: TERMINATED\n")
	}
	if len(result.Metrics) > 0 {
		_, _ = fmt.Fprintf(a.stdout, "  Metrics:\n")
		for _, name := range telemetry.SortedNames(result.Metrics) {
			_, _ = fmt.Fprintf(a.stdout, "    - %s: %d\n", name, result.Metrics[name])
		}
	}
	return nil
}
