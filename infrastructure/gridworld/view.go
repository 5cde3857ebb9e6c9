package gridworld

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/tileagent/domain/world"
)

// Move steps the body one tile in direction d.
func (w *World) Move(_ context.Context, h world.Handle, d world.Direction) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	b, err := w.bodyOf(h)
	if err != nil {
		return err
	}
	return w.relocate(b, b.pos.Step(d), MoveCost)
}

// Teleport moves the body straight to a passable tile.
func (w *World) Teleport(_ context.Context, h world.Handle, to world.Coordinate) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	b, err := w.bodyOf(h)
	if err != nil {
		return err
	}
	return w.relocate(b, to, TeleportCost)
}

// relocate must be called with w.mu held.
func (w *World) relocate(b *Body, to world.Coordinate, cost int) error {
	if !to.Within(w.size) {
		return fmt.Errorf("%w: %s", world.ErrOutOfBounds, to)
	}
	cl := w.cellAt(to)
	if !cl.passable() {
		return fmt.Errorf("%w: %s", world.ErrBlocked, to)
	}
	if !b.spend(cost) {
		return world.ErrNoEnergy
	}
	b.pos = to
	cl.discovered = true
	return nil
}

// Snapshot returns the discovered part of the world. Undiscovered tiles are
// nil.
func (w *World) Snapshot(h world.Handle) (world.Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.bodyOf(h); err != nil {
		return nil, err
	}

	snap := make(world.Snapshot, w.size)
	for r := range w.cells {
		snap[r] = make([]*world.Tile, w.size)
		for c := range w.cells[r] {
			if cl := &w.cells[r][c]; cl.discovered {
				t := cl.tile()
				snap[r][c] = &t
			}
		}
	}
	return snap, nil
}

var _ world.View = (*World)(nil)
