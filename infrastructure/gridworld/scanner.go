package gridworld

import (
	"context"

	"github.com/felixgeelhaar/tileagent/domain/world"
)

// Scan reveals every tile within req.Radius of req.Origin, row by row.
// Revealing an undiscovered tile costs RevealCost energy, capped by
// req.EnergyBudget; running dry mid-scan yields ScanPartial.
func (w *World) Scan(_ context.Context, h world.Handle, req world.ScanRequest) world.ScanOutcome {
	w.mu.Lock()
	defer w.mu.Unlock()

	b, err := w.bodyOf(h)
	if err != nil {
		return world.ScanOutcome{Status: world.ScanFailed, Reason: err.Error()}
	}
	if req.Radius < 0 {
		return world.ScanOutcome{Status: world.ScanFailed, Reason: "negative radius"}
	}
	budget := min(req.EnergyBudget, b.energy)
	if budget < RevealCost {
		return world.ScanOutcome{Status: world.ScanFailed, Reason: world.ErrNoEnergy.Error()}
	}

	size := w.size
	if req.WorldSize > 0 {
		size = min(size, req.WorldSize)
	}

	var found []world.Coordinate
	for r := req.Origin.Row - req.Radius; r <= req.Origin.Row+req.Radius; r++ {
		for c := req.Origin.Col - req.Radius; c <= req.Origin.Col+req.Radius; c++ {
			at := world.At(r, c)
			if !at.Within(size) {
				continue
			}
			cl := w.cellAt(at)
			if !cl.discovered {
				if budget < RevealCost {
					return world.ScanOutcome{Status: world.ScanPartial, Found: found}
				}
				budget -= RevealCost
				b.energy -= RevealCost
				cl.discovered = true
			}
			if req.Match != nil && req.Match(cl.tile()) {
				found = append(found, at)
			}
		}
	}
	return world.ScanOutcome{Status: world.ScanComplete, Found: found}
}

var _ world.Scanner = (*World)(nil)
