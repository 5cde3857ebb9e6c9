package gridworld

import (
	"context"

	"github.com/felixgeelhaar/tileagent/domain/world"
)

// CollectNearby empties tiles holding category c in the 3×3 neighbourhood of
// the body into the backpack, one unit per CollectCost energy. Emptied tiles
// become passable.
func (w *World) CollectNearby(_ context.Context, h world.Handle, c world.Category) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	b, err := w.bodyOf(h)
	if err != nil {
		return 0, err
	}

	var collected int
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			at := world.At(b.pos.Row+dr, b.pos.Col+dc)
			if !at.Within(w.size) {
				continue
			}
			cl := w.cellAt(at)
			if cl.content == "" || !c.Matches(cl.content) {
				continue
			}
			cl.discovered = true
			for cl.amount > 0 {
				if !b.spend(CollectCost) {
					if collected == 0 {
						return 0, world.ErrNoEnergy
					}
					return collected, nil
				}
				cl.amount--
				w.backpack[cl.content]++
				collected++
			}
			cl.content = ""
		}
	}
	return collected, nil
}

var _ world.Collector = (*World)(nil)
