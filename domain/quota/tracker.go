// Package quota tracks production goals for the agent.
package quota

import (
	"fmt"
	"sync"

	"github.com/felixgeelhaar/tileagent/domain/world"
)

// Mode selects how reports are matched to quotas.
type Mode string

const (
	// ModePerCategory credits a report only to quotas of the same category
	// (or to quotas declared with the wildcard category).
	ModePerCategory Mode = "per_category"

	// ModeAny credits every report to every quota.
	ModeAny Mode = "any"
)

// ParseMode converts a configuration string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModePerCategory, ModeAny:
		return Mode(s), nil
	case "":
		return ModeAny, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Quota is a target quantity for a category.
type Quota struct {
	Name     string
	Category world.Category
	Target   int
}

// Progress is an immutable view of one quota.
type Progress struct {
	Name        string         `json:"name"`
	Category    world.Category `json:"category"`
	Target      int            `json:"target"`
	Accumulated int            `json:"accumulated"`
	Met         bool           `json:"met"`
}

// Tracker accumulates reported quantities against quotas. Accumulation only
// ever grows; there is no reset.
type Tracker struct {
	mode        Mode
	quotas      []Quota
	accumulated []int
	mu          sync.RWMutex
}

// New creates a tracker with the given mode and quotas.
func New(mode Mode, quotas ...Quota) (*Tracker, error) {
	if mode != ModePerCategory && mode != ModeAny {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	if len(quotas) == 0 {
		return nil, ErrNoQuotas
	}
	for _, q := range quotas {
		if q.Target <= 0 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidTarget, q.Name)
		}
		if !q.Category.IsValid() {
			return nil, fmt.Errorf("%w: %q", world.ErrUnknownCategory, q.Category)
		}
	}
	return &Tracker{
		mode:        mode,
		quotas:      append([]Quota(nil), quotas...),
		accumulated: make([]int, len(quotas)),
	}, nil
}

// Report credits amount of category to the matching quotas and returns the
// number of quotas credited. Non-positive amounts are ignored.
func (t *Tracker) Report(category world.Category, amount int) int {
	if amount <= 0 {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	credited := 0
	for i, q := range t.quotas {
		if t.mode == ModeAny || q.Category.Matches(category) {
			t.accumulated[i] += amount
			credited++
		}
	}
	return credited
}

// IsAnyMet returns true if at least one quota has reached its target.
func (t *Tracker) IsAnyMet() bool {
	return t.CompletedCount() > 0
}

// CompletedCount returns the number of quotas that have reached their target.
func (t *Tracker) CompletedCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for i, q := range t.quotas {
		if t.accumulated[i] >= q.Target {
			n++
		}
	}
	return n
}

// Accumulated returns the accumulated quantity of the named quota.
func (t *Tracker) Accumulated(name string) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for i, q := range t.quotas {
		if q.Name == name {
			return t.accumulated[i], true
		}
	}
	return 0, false
}

// Mode returns the tracker's matching mode.
func (t *Tracker) Mode() Mode {
	return t.mode
}

// Snapshot returns the progress of every quota in declaration order.
func (t *Tracker) Snapshot() []Progress {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Progress, len(t.quotas))
	for i, q := range t.quotas {
		out[i] = Progress{
			Name:        q.Name,
			Category:    q.Category,
			Target:      q.Target,
			Accumulated: t.accumulated[i],
			Met:         t.accumulated[i] >= q.Target,
		}
	}
	return out
}
