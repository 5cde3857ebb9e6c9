package application

import (
	"context"

	"github.com/felixgeelhaar/tileagent/domain/agent"
	"github.com/felixgeelhaar/tileagent/domain/world"
	"github.com/felixgeelhaar/tileagent/infrastructure/logging"
)

// Ticker advances world time between agent steps.
type Ticker interface {
	Tick()
}

// Summary describes a finished simulation.
type Summary struct {
	AgentID      string      `json:"agent_id"`
	Ticks        int         `json:"ticks"`
	FinalState   agent.State `json:"-"`
	State        string      `json:"final_state"`
	RenderBudget int         `json:"render_budget"`
	Renders      int         `json:"renders"`
	Completed    int         `json:"completed_quotas"`
	Terminated   bool        `json:"terminated"`
}

// Runner steps a controller against a world for a number of ticks.
type Runner struct {
	controller      *Controller
	world           Ticker
	handle          world.Handle
	ticks           int
	stopOnTerminate bool
	onTick          func(tick int, s agent.State)
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithTicks sets the number of ticks to run.
func WithTicks(n int) RunnerOption {
	return func(r *Runner) {
		r.ticks = n
	}
}

// WithStopOnTerminate ends the run once the agent terminated and published
// its termination notice.
func WithStopOnTerminate() RunnerOption {
	return func(r *Runner) {
		r.stopOnTerminate = true
	}
}

// WithTickHook calls fn after every tick.
func WithTickHook(fn func(tick int, s agent.State)) RunnerOption {
	return func(r *Runner) {
		r.onTick = fn
	}
}

// NewRunner creates a runner. It defaults to 300 ticks.
func NewRunner(c *Controller, w Ticker, h world.Handle, opts ...RunnerOption) *Runner {
	r := &Runner{
		controller: c,
		world:      w,
		handle:     h,
		ticks:      300,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run steps the agent once per tick, then advances the world. Cancellation
// is checked between ticks; the summary covers the ticks that ran.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	var ticks int
	var err error
	for ticks < r.ticks {
		if err = ctx.Err(); err != nil {
			break
		}

		s := r.controller.Step(ctx, r.handle)
		r.world.Tick()
		ticks++

		logging.Debug().
			Add(logging.AgentID(r.controller.Agent().ID())).
			Add(logging.Tick(ticks)).
			Add(logging.State(s)).
			Msg("tick")
		if r.onTick != nil {
			r.onTick(ticks, s)
		}
		if r.stopOnTerminate && r.controller.IsRetired() {
			break
		}
	}

	a := r.controller.Agent()
	summary := Summary{
		AgentID:      a.ID(),
		Ticks:        ticks,
		FinalState:   a.State(),
		State:        a.State().String(),
		RenderBudget: a.RenderBudget(),
		Renders:      a.Renders(),
		Completed:    a.Tracker().CompletedCount(),
		Terminated:   r.controller.IsTerminated(),
	}

	logging.Info().
		Add(logging.AgentID(summary.AgentID)).
		Add(logging.Tick(ticks)).
		Add(logging.State(summary.FinalState)).
		Add(logging.Int("renders", summary.Renders)).
		Msg("simulation finished")
	return summary, err
}
