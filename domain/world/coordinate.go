// Package world defines the tile world vocabulary and the collaborator ports
// the agent consumes. Implementations live outside the domain layer.
package world

import "fmt"

// Coordinate addresses a tile by row and column.
type Coordinate struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// At is shorthand for Coordinate{Row: row, Col: col}.
func At(row, col int) Coordinate {
	return Coordinate{Row: row, Col: col}
}

// Step returns the neighbouring coordinate in direction d.
func (c Coordinate) Step(d Direction) Coordinate {
	switch d {
	case North:
		return Coordinate{Row: c.Row - 1, Col: c.Col}
	case South:
		return Coordinate{Row: c.Row + 1, Col: c.Col}
	case East:
		return Coordinate{Row: c.Row, Col: c.Col + 1}
	case West:
		return Coordinate{Row: c.Row, Col: c.Col - 1}
	default:
		return c
	}
}

// Within reports whether c lies inside a size×size grid.
func (c Coordinate) Within(size int) bool {
	return c.Row >= 0 && c.Col >= 0 && c.Row < size && c.Col < size
}

// String returns "(row,col)".
func (c Coordinate) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Direction is a single-tile move.
type Direction uint8

// Directions a body can move in.
const (
	North Direction = iota
	East
	South
	West
)

// Directions returns the four directions in clockwise order.
func Directions() []Direction {
	return []Direction{North, East, South, West}
}

// String returns the lower-case direction name.
func (d Direction) String() string {
	switch d {
	case North:
		return "north"
	case East:
		return "east"
	case South:
		return "south"
	case West:
		return "west"
	default:
		return "unknown"
	}
}

// ActionKind distinguishes moves from teleports.
type ActionKind uint8

const (
	ActionMove ActionKind = iota
	ActionTeleport
)

// Action is a primitive navigation command.
type Action struct {
	Kind      ActionKind
	Direction Direction  // set for ActionMove
	Target    Coordinate // set for ActionTeleport
}

// Move creates a directional move action.
func Move(d Direction) Action {
	return Action{Kind: ActionMove, Direction: d}
}

// Teleport creates a teleport action.
func Teleport(to Coordinate) Action {
	return Action{Kind: ActionTeleport, Target: to}
}

// String describes the action.
func (a Action) String() string {
	if a.Kind == ActionTeleport {
		return "teleport" + a.Target.String()
	}
	return "move:" + a.Direction.String()
}
