package world

import "context"

// Handle is the simulation-owned body of the agent. The agent reads it but
// never mutates it directly; movement and collection go through the ports.
type Handle interface {
	Position() Coordinate
	Energy() int
	Size() int
}

// Predicate selects tiles of interest during a scan.
type Predicate func(Tile) bool

// HoldsAny returns a predicate matching tiles that hold one of the categories.
func HoldsAny(categories ...Category) Predicate {
	return func(t Tile) bool {
		for _, c := range categories {
			if t.Content == c {
				return true
			}
		}
		return false
	}
}

// ScanRequest describes one area scan.
type ScanRequest struct {
	Origin       Coordinate
	Radius       int
	WorldSize    int
	EnergyBudget int
	Match        Predicate
}

// ScanStatus is the completion status of a scan.
type ScanStatus uint8

const (
	ScanComplete ScanStatus = iota
	ScanPartial
	ScanFailed
)

// String returns the status name.
func (s ScanStatus) String() string {
	switch s {
	case ScanComplete:
		return "complete"
	case ScanPartial:
		return "partial"
	case ScanFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ScanOutcome is the result of a scan. Found is only meaningful when the
// status is ScanComplete; Reason only when it is ScanFailed.
type ScanOutcome struct {
	Status ScanStatus
	Found  []Coordinate
	Reason string
}

// Scanner discovers tiles of interest around a position.
type Scanner interface {
	Scan(ctx context.Context, h Handle, req ScanRequest) ScanOutcome
}

// Planner turns world knowledge into targets and navigation actions.
type Planner interface {
	// Plan rebuilds the planner's cost model from a snapshot around start.
	Plan(snapshot Snapshot, start Coordinate) error
	// ActionsTo returns the action sequence towards target.
	ActionsTo(target Coordinate) ([]Action, error)
	// CoordinatesMatching lists known tiles holding the category.
	CoordinatesMatching(c Category) []Coordinate
}

// Collector gathers resources within reach of the body.
type Collector interface {
	CollectNearby(ctx context.Context, h Handle, c Category) (int, error)
}

// Artifact is something the renderer can produce.
type Artifact struct {
	Name   string `json:"name" yaml:"name"`
	Path   string `json:"path,omitempty" yaml:"path,omitempty"`
	Height int    `json:"height,omitempty" yaml:"height,omitempty"`
	Cells  int    `json:"cells,omitempty" yaml:"cells,omitempty"`
}

// RenderOutcome is the terminal status of one renderer invocation.
type RenderOutcome uint8

const (
	RenderFinished RenderOutcome = iota
	RenderFinishedUnit
	RenderWaitingForEnergy
	RenderWaitingForMaterials
)

// String returns the outcome name.
func (o RenderOutcome) String() string {
	switch o {
	case RenderFinished:
		return "finished"
	case RenderFinishedUnit:
		return "finished_unit"
	case RenderWaitingForEnergy:
		return "waiting_for_energy"
	case RenderWaitingForMaterials:
		return "waiting_for_materials"
	default:
		return "unknown"
	}
}

// Renderer advances an artifact at a position.
type Renderer interface {
	Advance(ctx context.Context, h Handle, a Artifact, at Coordinate) (RenderOutcome, error)
}

// View moves the body and exposes what it has seen.
type View interface {
	Move(ctx context.Context, h Handle, d Direction) error
	Teleport(ctx context.Context, h Handle, to Coordinate) error
	Snapshot(h Handle) (Snapshot, error)
}
