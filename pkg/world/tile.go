// Package world holds the spatial model shared by actors, actions and
// scripts, and the services they consume (map, pathfinder, armory,
// behavior functions, presentation).
package world

import "fmt"

// Tile is a position in the world. Z is the lift (elevation).
type Tile struct {
	X, Y, Z int
}

// NoTile is the invalid position.
var NoTile = Tile{-1, -1, -1}

// Valid returns false for NoTile and other negative coordinates.
func (t Tile) Valid() bool { return t.X >= 0 && t.Y >= 0 }

func (t Tile) String() string { return fmt.Sprintf("(%d,%d,%d)", t.X, t.Y, t.Z) }

// Add offsets a tile.
func (t Tile) Add(dx, dy, dz int) Tile { return Tile{t.X + dx, t.Y + dy, t.Z + dz} }

// Neighbor returns the adjacent tile in the given direction, at the same lift.
func (t Tile) Neighbor(d Dir) Tile {
	o := dirOffsets[d&7]
	return Tile{t.X + o[0], t.Y + o[1], t.Z}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Distance is the number of king moves between two tiles, counting the
// lift difference as well.
func (t Tile) Distance(o Tile) int {
	return max(max(abs(o.X-t.X), abs(o.Y-t.Y)), abs(o.Z-t.Z))
}

// Distance2D ignores the lift.
func (t Tile) Distance2D(o Tile) int {
	return max(abs(o.X-t.X), abs(o.Y-t.Y))
}

// Dir is one of the eight compass directions. North is 0 and
// directions go clockwise. The Y axis grows southwards.
type Dir int

// Directions.
const (
	North Dir = iota
	Northeast
	East
	Southeast
	South
	Southwest
	West
	Northwest
)

var dirOffsets = [8][2]int{
	North:     {0, -1},
	Northeast: {1, -1},
	East:      {1, 0},
	Southeast: {1, 1},
	South:     {0, 1},
	Southwest: {-1, 1},
	West:      {-1, 0},
	Northwest: {-1, -1},
}

var dirNames = [8]string{"n", "ne", "e", "se", "s", "sw", "w", "nw"}

func (d Dir) String() string { return dirNames[d&7] }

// Opposite returns the reverse direction.
func (d Dir) Opposite() Dir { return (d + 4) & 7 }

// Offset returns the unit step of the direction.
func (d Dir) Offset() (dx, dy int) {
	o := dirOffsets[d&7]
	return o[0], o[1]
}

// ParseDir converts a direction name (n, ne, ..., nw) to a Dir.
func ParseDir(s string) (Dir, bool) {
	for i, n := range dirNames {
		if n == s {
			return Dir(i), true
		}
	}
	return 0, false
}

// DirTowards returns the direction to go from one tile towards
// another. Shallow angles snap to the cardinal directions.
func DirTowards(from, to Tile) Dir {
	dx, dy := to.X-from.X, to.Y-from.Y
	ax, ay := abs(dx), abs(dy)
	switch {
	case dx == 0 && dy == 0:
		return North
	case ax > 2*ay:
		if dx > 0 {
			return East
		}
		return West
	case ay > 2*ax:
		if dy > 0 {
			return South
		}
		return North
	case dx > 0 && dy < 0:
		return Northeast
	case dx > 0:
		return Southeast
	case dy < 0:
		return Northwest
	default:
		return Southwest
	}
}

// Rect is a rectangle of tiles.
type Rect struct {
	X, Y, W, H int
}

// Contains returns true if the tile is inside the rectangle.
func (r Rect) Contains(t Tile) bool {
	return t.X >= r.X && t.X < r.X+r.W && t.Y >= r.Y && t.Y < r.Y+r.H
}

// Enlarge grows the rectangle by n tiles on every side.
func (r Rect) Enlarge(n int) Rect {
	return Rect{r.X - n, r.Y - n, r.W + 2*n, r.H + 2*n}
}

func (r Rect) String() string { return fmt.Sprintf("[%d,%d %dx%d]", r.X, r.Y, r.W, r.H) }
