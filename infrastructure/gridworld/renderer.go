package gridworld

import (
	"context"
	"math"

	"github.com/felixgeelhaar/tileagent/domain/world"
)

// renderJob is an artifact in progress. The anchor is fixed by the first
// Advance call.
type renderJob struct {
	anchor world.Coordinate
	done   int
}

// Advance paints up to CellsPerTick cells of artifact a, row by row from the
// anchor, in a square as wide as the artifact needs. Each cell takes one unit
// of any material and PaintCost energy. Progress is kept per artifact name
// until the artifact finishes, so later calls continue at the first anchor.
func (w *World) Advance(_ context.Context, h world.Handle, a world.Artifact, at world.Coordinate) (world.RenderOutcome, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	b, err := w.bodyOf(h)
	if err != nil {
		return 0, err
	}
	if !at.Within(w.size) {
		return 0, world.ErrOutOfBounds
	}

	total := a.Cells
	if total <= 0 {
		total = w.config.DefaultCells
	}
	width := int(math.Ceil(math.Sqrt(float64(total))))
	job, ok := w.renders[a.Name]
	if !ok {
		job = &renderJob{anchor: at}
	}
	done := job.done

	var painted int
	for done < total && painted < w.config.CellsPerTick {
		if b.energy < PaintCost {
			break
		}
		if _, ok := w.takeMaterial(); !ok {
			break
		}
		b.energy -= PaintCost

		cellAt := world.At(job.anchor.Row+done/width, job.anchor.Col+done%width)
		if cellAt.Within(w.size) {
			w.cellAt(cellAt).painted = true
		}
		done++
		painted++
	}

	if done >= total {
		delete(w.renders, a.Name)
		return world.RenderFinished, nil
	}
	job.done = done
	w.renders[a.Name] = job

	switch {
	case painted > 0:
		return world.RenderFinishedUnit, nil
	case b.energy < PaintCost:
		return world.RenderWaitingForEnergy, nil
	default:
		return world.RenderWaitingForMaterials, nil
	}
}

// takeMaterial removes one unit from the fullest backpack slot. Callers hold
// w.mu.
func (w *World) takeMaterial() (world.Category, bool) {
	var best world.Category
	for _, c := range []world.Category{world.CategoryRock, world.CategoryTree} {
		if w.backpack[c] > w.backpack[best] {
			best = c
		}
	}
	if w.backpack[best] == 0 {
		return "", false
	}
	w.backpack[best]--
	return best, true
}

var _ world.Renderer = (*World)(nil)
