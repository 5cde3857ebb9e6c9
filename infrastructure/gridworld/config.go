package gridworld

import "github.com/felixgeelhaar/tileagent/domain/config"

// Energy costs of body operations.
const (
	RevealCost   = 1
	MoveCost     = 1
	TeleportCost = 5
	CollectCost  = 1
	PaintCost    = 1
)

// Config configures a generated world.
type Config struct {
	// Size is the side length of the square grid.
	Size int

	// Seed makes generation reproducible.
	Seed int64

	// EnergyMax caps the body's energy. The body starts full.
	EnergyMax int

	// EnergyRecharge is added to the body's energy on every Tick.
	EnergyRecharge int

	// CellsPerTick caps the cells painted by one Advance call.
	CellsPerTick int

	// DefaultCells is the artifact size used when an artifact names none.
	DefaultCells int

	// TeleportAfter makes the planner teleport when a path is longer than
	// this many moves. Zero disables teleports.
	TeleportAfter int

	// Densities are per-tile probabilities and must sum to at most 1.
	RockDensity  float64
	TreeDensity  float64
	WaterDensity float64
}

// DefaultConfig returns the world used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Size:           200,
		Seed:           15,
		EnergyMax:      1000,
		EnergyRecharge: 20,
		CellsPerTick:   5,
		DefaultCells:   25,
		RockDensity:    0.04,
		TreeDensity:    0.06,
		WaterDensity:   0.05,
	}
}

// FromSettings builds a world configuration from loaded settings. Unset
// values fall back to DefaultConfig.
func FromSettings(world config.WorldSettings, artifacts config.ArtifactSettings) Config {
	cfg := DefaultConfig()
	if world.Size > 0 {
		cfg.Size = world.Size
	}
	cfg.Seed = world.Seed
	if world.Energy.Max > 0 {
		cfg.EnergyMax = world.Energy.Max
	}
	if world.Energy.Recharge > 0 {
		cfg.EnergyRecharge = world.Energy.Recharge
	}
	if world.CellsPerTick > 0 {
		cfg.CellsPerTick = world.CellsPerTick
	}
	if artifacts.Cells > 0 {
		cfg.DefaultCells = artifacts.Cells
	}
	cfg.RockDensity = world.Density.Rock
	cfg.TreeDensity = world.Density.Tree
	cfg.WaterDensity = world.Density.Water
	return cfg
}
