// Package gridworld is a small reference tile world implementing every
// collaborator port the agent consumes. It exists so the agent can be run end
// to end; it is not tuned for realism.
package gridworld

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/felixgeelhaar/tileagent/domain/world"
	"github.com/felixgeelhaar/tileagent/infrastructure/logging"
)

// cell is the world's ground truth for one tile.
type cell struct {
	water      bool
	content    world.Category
	amount     int
	discovered bool
	painted    bool
}

func (c *cell) passable() bool {
	return !c.water && c.content == ""
}

func (c *cell) tile() world.Tile {
	return world.Tile{
		Passable: c.passable(),
		Content:  c.content,
		Amount:   c.amount,
		Painted:  c.painted,
	}
}

// Body is the agent's handle into a World.
type Body struct {
	world  *World
	pos    world.Coordinate
	energy int
}

// Position returns the body's tile.
func (b *Body) Position() world.Coordinate {
	b.world.mu.Lock()
	defer b.world.mu.Unlock()
	return b.pos
}

// Energy returns the body's remaining energy.
func (b *Body) Energy() int {
	b.world.mu.Lock()
	defer b.world.mu.Unlock()
	return b.energy
}

// Size returns the side length of the world.
func (b *Body) Size() int {
	return b.world.size
}

// World is a square tile grid with a single body.
type World struct {
	mu       sync.Mutex
	config   Config
	size     int
	cells    [][]cell
	body     *Body
	backpack map[world.Category]int
	renders  map[string]*renderJob
	ticks    uint64

	planner *Planner
}

// New generates a world from cfg. Generation is deterministic for a seed.
func New(cfg Config) (*World, error) {
	if cfg.Size <= 0 {
		return nil, fmt.Errorf("gridworld: size must be positive, got %d", cfg.Size)
	}
	if cfg.RockDensity < 0 || cfg.TreeDensity < 0 || cfg.WaterDensity < 0 ||
		cfg.RockDensity+cfg.TreeDensity+cfg.WaterDensity > 1 {
		return nil, fmt.Errorf("gridworld: densities must be non-negative and sum to at most 1")
	}

	w := newWorld(cfg)
	seed := uint64(cfg.Seed) // #nosec G115 -- any bit pattern is a valid seed
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	centre := world.At(cfg.Size/2, cfg.Size/2)
	for r := range w.cells {
		for c := range w.cells[r] {
			at := world.At(r, c)
			if chebyshev(at, centre) <= 1 {
				continue // spawn clearing
			}
			roll := rng.Float64()
			cl := &w.cells[r][c]
			switch {
			case roll < cfg.WaterDensity:
				cl.water = true
			case roll < cfg.WaterDensity+cfg.RockDensity:
				cl.content = world.CategoryRock
				cl.amount = 1 + rng.IntN(3)
			case roll < cfg.WaterDensity+cfg.RockDensity+cfg.TreeDensity:
				cl.content = world.CategoryTree
				cl.amount = 1 + rng.IntN(3)
			}
		}
	}
	w.place(centre)

	logging.Debug().
		Add(logging.Component("gridworld")).
		Add(logging.Int("size", cfg.Size)).
		Add(logging.Int("energy", cfg.EnergyMax)).
		Add(logging.Coordinate(centre)).
		Msg("world generated")
	return w, nil
}

// NewFromLayout builds a world from rows of characters: '.' empty, 'R' rock,
// 'T' tree, '~' water and '@' the body. Resources hold one unit each. The
// layout must be square and contain exactly one body.
func NewFromLayout(cfg Config, rows ...string) (*World, error) {
	size := len(rows)
	if size == 0 {
		return nil, fmt.Errorf("gridworld: empty layout")
	}
	cfg.Size = size
	w := newWorld(cfg)

	var start *world.Coordinate
	for r, row := range rows {
		row = strings.TrimSpace(row)
		if len(row) != size {
			return nil, fmt.Errorf("gridworld: row %d has %d columns, want %d", r, len(row), size)
		}
		for c, ch := range row {
			cl := &w.cells[r][c]
			switch ch {
			case '.':
			case 'R':
				cl.content, cl.amount = world.CategoryRock, 1
			case 'T':
				cl.content, cl.amount = world.CategoryTree, 1
			case '~':
				cl.water = true
			case '@':
				if start != nil {
					return nil, fmt.Errorf("gridworld: more than one body in layout")
				}
				at := world.At(r, c)
				start = &at
			default:
				return nil, fmt.Errorf("gridworld: unknown tile %q at %s", ch, world.At(r, c))
			}
		}
	}
	if start == nil {
		return nil, fmt.Errorf("gridworld: layout has no body")
	}
	w.place(*start)
	return w, nil
}

func newWorld(cfg Config) *World {
	if cfg.CellsPerTick <= 0 {
		cfg.CellsPerTick = DefaultConfig().CellsPerTick
	}
	if cfg.DefaultCells <= 0 {
		cfg.DefaultCells = DefaultConfig().DefaultCells
	}
	cells := make([][]cell, cfg.Size)
	for r := range cells {
		cells[r] = make([]cell, cfg.Size)
	}
	w := &World{
		config:   cfg,
		size:     cfg.Size,
		cells:    cells,
		backpack: make(map[world.Category]int),
		renders:  make(map[string]*renderJob),
	}
	w.planner = NewPlanner(WithTeleportAfter(cfg.TeleportAfter))
	return w
}

func (w *World) place(at world.Coordinate) {
	w.body = &Body{world: w, pos: at, energy: w.config.EnergyMax}
	w.cellAt(at).discovered = true
}

func (w *World) cellAt(c world.Coordinate) *cell {
	return &w.cells[c.Row][c.Col]
}

// bodyOf resolves a handle to this world's body. Callers hold w.mu.
func (w *World) bodyOf(h world.Handle) (*Body, error) {
	b, ok := h.(*Body)
	if !ok || b.world != w {
		return nil, world.ErrUnknownHandle
	}
	return b, nil
}

// spend deducts cost from the body if it can afford it.
func (b *Body) spend(cost int) bool {
	if b.energy < cost {
		return false
	}
	b.energy -= cost
	return true
}

// Body returns the agent's handle.
func (w *World) Body() *Body {
	return w.body
}

// Size returns the side length of the grid.
func (w *World) Size() int {
	return w.size
}

// Tick advances world time and recharges the body.
func (w *World) Tick() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.ticks++
	w.body.energy = min(w.config.EnergyMax, w.body.energy+w.config.EnergyRecharge)
}

// Ticks returns the number of elapsed ticks.
func (w *World) Ticks() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ticks
}

// Tile returns the ground truth at c, discovered or not.
func (w *World) Tile(c world.Coordinate) (world.Tile, error) {
	if !c.Within(w.size) {
		return world.Tile{}, world.ErrOutOfBounds
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cellAt(c).tile(), nil
}

// Backpack returns a copy of the collected materials by category.
func (w *World) Backpack() map[world.Category]int {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make(map[world.Category]int, len(w.backpack))
	for k, v := range w.backpack {
		out[k] = v
	}
	return out
}

// Painted returns the number of painted tiles.
func (w *World) Painted() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	var n int
	for r := range w.cells {
		for c := range w.cells[r] {
			if w.cells[r][c].painted {
				n++
			}
		}
	}
	return n
}

// Discovered returns the number of discovered tiles.
func (w *World) Discovered() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	var n int
	for r := range w.cells {
		for c := range w.cells[r] {
			if w.cells[r][c].discovered {
				n++
			}
		}
	}
	return n
}

// Planner returns the world's planner.
func (w *World) Planner() *Planner {
	return w.planner
}

func chebyshev(a, b world.Coordinate) int {
	return max(abs(a.Row-b.Row), abs(a.Col-b.Col))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
