package world

import "fmt"

// Category is a resource category found on tiles.
type Category string

// Categories the agent knows how to gather.
const (
	CategoryRock Category = "rock"
	CategoryTree Category = "tree"

	// CategoryAny matches every category. Used by wildcard quotas.
	CategoryAny Category = "*"
)

// IsValid returns true for a known concrete category or the wildcard.
func (c Category) IsValid() bool {
	switch c {
	case CategoryRock, CategoryTree, CategoryAny:
		return true
	default:
		return false
	}
}

// Matches reports whether c accepts a report for other.
func (c Category) Matches(other Category) bool {
	return c == CategoryAny || c == other
}

// ParseCategory converts a configuration string into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

// Tile is what the agent knows about one cell of the world.
type Tile struct {
	Passable bool
	Content  Category // empty when the tile holds nothing
	Amount   int
	Painted  bool
}

// Snapshot is the grid of visited-tile knowledge; nil entries are unknown.
type Snapshot [][]*Tile

// At returns the known tile at c, or nil when unknown or out of range.
func (s Snapshot) At(c Coordinate) *Tile {
	if c.Row < 0 || c.Row >= len(s) || c.Col < 0 || c.Col >= len(s[c.Row]) {
		return nil
	}
	return s[c.Row][c.Col]
}

// Size returns the number of rows.
func (s Snapshot) Size() int {
	return len(s)
}
