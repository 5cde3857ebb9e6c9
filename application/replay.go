package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/tileagent/domain/agent"
	"github.com/felixgeelhaar/tileagent/domain/event"
)

// ErrNoHistory indicates an agent has no stored events.
var ErrNoHistory = errors.New("no events for agent")

// Replay rebuilds an agent's history from its event stream.
type Replay struct {
	eventStore event.Store
}

// NewReplay creates a new replay engine.
func NewReplay(eventStore event.Store) *Replay {
	return &Replay{eventStore: eventStore}
}

// History is what an agent's event stream says about its life.
type History struct {
	AgentID       string            `json:"agent_id"`
	Events        int               `json:"events"`
	StartedAt     time.Time         `json:"started_at"`
	LastEventAt   time.Time         `json:"last_event_at"`
	InitialBudget int               `json:"initial_budget"`
	RenderBudget  int               `json:"render_budget"`
	State         string            `json:"state"`
	Steps         uint64            `json:"steps"`
	Transitions   []StateTransition `json:"transitions,omitempty"`
	Visits        map[string]int    `json:"visits"`
	Failures      map[string]int    `json:"failures,omitempty"`
	Reported      map[string]int    `json:"reported,omitempty"`
	QuotaMet      bool              `json:"quota_met"`
	Renders       []string          `json:"renders,omitempty"`
	Terminated    bool              `json:"terminated"`
}

// StateTransition represents a state change.
type StateTransition struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Step      uint64    `json:"step"`
	Timestamp time.Time `json:"timestamp"`
}

// Duration returns the time between the first and the last event.
func (h *History) Duration() time.Duration {
	return h.LastEventAt.Sub(h.StartedAt)
}

// Reconstruct rebuilds the history of agentID.
func (r *Replay) Reconstruct(ctx context.Context, agentID string) (*History, error) {
	return r.ReconstructFrom(ctx, agentID, 0)
}

// ReconstructFrom rebuilds the history of agentID from a starting sequence.
func (r *Replay) ReconstructFrom(ctx context.Context, agentID string, fromSeq uint64) (*History, error) {
	events, err := r.eventStore.LoadEventsFrom(ctx, agentID, fromSeq)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoHistory, agentID)
	}
	return applyEvents(agentID, events)
}

// applyEvents folds events into a History.
func applyEvents(agentID string, events []event.Event) (*History, error) {
	h := &History{
		AgentID:     agentID,
		Events:      len(events),
		StartedAt:   events[0].Timestamp,
		LastEventAt: events[len(events)-1].Timestamp,
		State:       agent.StateInit.String(),
		Visits:      make(map[string]int),
		Failures:    make(map[string]int),
		Reported:    make(map[string]int),
	}

	for _, e := range events {
		switch e.Type {
		case event.TypeAgentStarted:
			var payload event.AgentStartedPayload
			if err := e.UnmarshalPayload(&payload); err != nil {
				return nil, fmt.Errorf("unmarshal agent.started: %w", err)
			}
			h.InitialBudget = payload.RenderBudget
			h.RenderBudget = payload.RenderBudget

		case event.TypeStateTransitioned:
			var payload event.StateTransitionedPayload
			if err := e.UnmarshalPayload(&payload); err != nil {
				return nil, fmt.Errorf("unmarshal state.transitioned: %w", err)
			}
			h.Transitions = append(h.Transitions, StateTransition{
				From:      payload.FromState,
				To:        payload.ToState,
				Step:      payload.Step,
				Timestamp: e.Timestamp,
			})
			h.Visits[payload.ToState]++
			h.State = payload.ToState
			h.Steps = payload.Step

		case event.TypeCollaboratorFailed:
			var payload event.CollaboratorFailedPayload
			if err := e.UnmarshalPayload(&payload); err != nil {
				return nil, fmt.Errorf("unmarshal collaborator.failed: %w", err)
			}
			h.Failures[payload.Collaborator]++

		case event.TypeQuotaReported:
			var payload event.QuotaReportedPayload
			if err := e.UnmarshalPayload(&payload); err != nil {
				return nil, fmt.Errorf("unmarshal quota.reported: %w", err)
			}
			h.Reported[payload.Category] += payload.Amount
			h.QuotaMet = h.QuotaMet || payload.Met

		case event.TypeRenderCompleted:
			var payload event.RenderCompletedPayload
			if err := e.UnmarshalPayload(&payload); err != nil {
				return nil, fmt.Errorf("unmarshal render.completed: %w", err)
			}
			h.Renders = append(h.Renders, payload.Artifact)
			h.RenderBudget = payload.RenderBudget

		case event.TypeAgentTerminated:
			var payload event.TerminatedPayload
			if err := e.UnmarshalPayload(&payload); err != nil {
				return nil, fmt.Errorf("unmarshal agent.terminated: %w", err)
			}
			h.Terminated = true
			h.State = agent.StateTerminate.String()
			h.Steps = max(h.Steps, payload.Steps)
		}
	}

	return h, nil
}
