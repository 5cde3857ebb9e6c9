package gridworld

import (
	"cmp"
	"slices"

	"github.com/felixgeelhaar/tileagent/domain/world"
)

// Planner is a breadth-first planner over the discovered, passable part of a
// snapshot. Resource tiles are not passable, but may be the final step of a
// path. A Planner is not safe for concurrent use.
type Planner struct {
	teleportAfter int

	snapshot world.Snapshot
	start    world.Coordinate
	dist     [][]int
	via      [][]world.Direction
}

// PlannerOption configures a Planner.
type PlannerOption func(*Planner)

// WithTeleportAfter replaces paths longer than n moves with a teleport next
// to the target followed by the final move. Zero disables teleports.
func WithTeleportAfter(n int) PlannerOption {
	return func(p *Planner) {
		p.teleportAfter = n
	}
}

// NewPlanner creates a planner with no cost model.
func NewPlanner(opts ...PlannerOption) *Planner {
	p := &Planner{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Plan runs a breadth-first search from start over snapshot.
func (p *Planner) Plan(snapshot world.Snapshot, start world.Coordinate) error {
	size := snapshot.Size()
	if !start.Within(size) {
		return world.ErrOutOfBounds
	}

	dist := make([][]int, size)
	via := make([][]world.Direction, size)
	for r := range dist {
		dist[r] = make([]int, len(snapshot[r]))
		via[r] = make([]world.Direction, len(snapshot[r]))
		for c := range dist[r] {
			dist[r][c] = -1
		}
	}

	dist[start.Row][start.Col] = 0
	queue := make([]world.Coordinate, 0, 256)
	queue = append(queue, start)
	for head := 0; head < len(queue); head++ {
		at := queue[head]
		for _, d := range world.Directions() {
			next := at.Step(d)
			t := snapshot.At(next)
			if t == nil || !t.Passable || dist[next.Row][next.Col] >= 0 {
				continue
			}
			dist[next.Row][next.Col] = dist[at.Row][at.Col] + 1
			via[next.Row][next.Col] = d
			queue = append(queue, next)
		}
	}

	p.snapshot = snapshot
	p.start = start
	p.dist = dist
	p.via = via
	return nil
}

// reach returns the number of moves to stand on target, or -1.
func (p *Planner) reach(target world.Coordinate) int {
	if d := p.dist[target.Row][target.Col]; d >= 0 {
		return d
	}
	if p.snapshot.At(target) == nil {
		return -1
	}
	best := -1
	for _, d := range world.Directions() {
		n := target.Step(d)
		if !n.Within(len(p.dist)) {
			continue
		}
		if nd := p.dist[n.Row][n.Col]; nd >= 0 && (best < 0 || nd+1 < best) {
			best = nd + 1
		}
	}
	return best
}

// ActionsTo returns the moves from the planned start to target.
func (p *Planner) ActionsTo(target world.Coordinate) ([]world.Action, error) {
	if p.dist == nil {
		return nil, world.ErrNotPlanned
	}
	if !target.Within(len(p.dist)) {
		return nil, world.ErrOutOfBounds
	}

	var final []world.Direction
	end := target
	if p.dist[target.Row][target.Col] < 0 {
		if p.snapshot.At(target) == nil {
			return nil, world.ErrNoPath
		}
		best, bestDist := world.Direction(0), -1
		for _, d := range world.Directions() {
			n := target.Step(d)
			if !n.Within(len(p.dist)) {
				continue
			}
			if nd := p.dist[n.Row][n.Col]; nd >= 0 && (bestDist < 0 || nd < bestDist) {
				best, bestDist = d, nd
			}
		}
		if bestDist < 0 {
			return nil, world.ErrNoPath
		}
		end = target.Step(best)
		final = append(final, opposite(best))
	}

	var dirs []world.Direction
	for at := end; at != p.start; {
		d := p.via[at.Row][at.Col]
		dirs = append(dirs, d)
		at = at.Step(opposite(d))
	}
	slices.Reverse(dirs)
	dirs = append(dirs, final...)

	if p.teleportAfter > 0 && len(dirs) > p.teleportAfter {
		last := dirs[len(dirs)-1]
		return []world.Action{
			world.Teleport(target.Step(opposite(last))),
			world.Move(last),
		}, nil
	}

	actions := make([]world.Action, len(dirs))
	for i, d := range dirs {
		actions[i] = world.Move(d)
	}
	return actions, nil
}

// CoordinatesMatching lists reachable known tiles holding category c, nearest
// first.
func (p *Planner) CoordinatesMatching(c world.Category) []world.Coordinate {
	if p.dist == nil {
		return nil
	}

	type candidate struct {
		at   world.Coordinate
		dist int
	}
	var found []candidate
	for r, row := range p.snapshot {
		for col, t := range row {
			if t == nil || t.Content == "" || !c.Matches(t.Content) {
				continue
			}
			at := world.At(r, col)
			if d := p.reach(at); d >= 0 {
				found = append(found, candidate{at: at, dist: d})
			}
		}
	}

	slices.SortStableFunc(found, func(a, b candidate) int {
		return cmp.Compare(a.dist, b.dist)
	})
	out := make([]world.Coordinate, len(found))
	for i, f := range found {
		out[i] = f.at
	}
	return out
}

func opposite(d world.Direction) world.Direction {
	switch d {
	case world.North:
		return world.South
	case world.South:
		return world.North
	case world.East:
		return world.West
	default:
		return world.East
	}
}

var _ world.Planner = (*Planner)(nil)
