package event

// Type classifies domain events.
type Type string

// Event types emitted by the controller.
const (
	TypeAgentStarted       Type = "agent.started"
	TypeStateTransitioned  Type = "state.transitioned"
	TypeCollaboratorFailed Type = "collaborator.failed"
	TypeQuotaReported      Type = "quota.reported"
	TypeRenderCompleted    Type = "render.completed"
	TypeAgentTerminated    Type = "agent.terminated"
)

// AgentStartedPayload contains data for agent.started events.
type AgentStartedPayload struct {
	RenderBudget int `json:"render_budget"`
}

// StateTransitionedPayload contains data for state.transitioned events.
type StateTransitionedPayload struct {
	FromState string `json:"from_state"`
	ToState   string `json:"to_state"`
	Step      uint64 `json:"step"`
}

// CollaboratorFailedPayload contains data for collaborator.failed events.
type CollaboratorFailedPayload struct {
	Collaborator string `json:"collaborator"`
	State        string `json:"state"`
	Error        string `json:"error"`
}

// QuotaReportedPayload contains data for quota.reported events.
type QuotaReportedPayload struct {
	Category string `json:"category"`
	Amount   int    `json:"amount"`
	Met      bool   `json:"met"`
}

// RenderCompletedPayload contains data for render.completed events.
type RenderCompletedPayload struct {
	Artifact     string `json:"artifact"`
	Outcome      string `json:"outcome"`
	Terminal     bool   `json:"terminal"`
	RenderBudget int    `json:"render_budget"`
}

// TerminatedPayload contains data for agent.terminated events.
type TerminatedPayload struct {
	Renders int    `json:"renders"`
	Steps   uint64 `json:"steps"`
}
