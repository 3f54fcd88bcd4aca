package world

// Grid is a rectangular Map with walls. Solid objects registered in
// the object table block their tile as well.
type Grid struct {
	W, H   int
	walls  map[[2]int]struct{}
	loaded Rect
	camera Tile
	screen Rect
	objs   *Objects
}

var _ Map = (*Grid)(nil)

// NewGrid creates a w×h map, fully loaded, centered in the middle.
func NewGrid(w, h int, objs *Objects) *Grid {
	g := &Grid{
		W:      w,
		H:      h,
		walls:  make(map[[2]int]struct{}),
		loaded: Rect{0, 0, w, h},
		objs:   objs,
	}
	g.SetCamera(Tile{w / 2, h / 2, 0}, 20, 15)
	return g
}

// AddWall blocks every tile on the segment between the two tiles.
func (g *Grid) AddWall(x0, y0, x1, y1 int) {
	for _, t := range line(Tile{x0, y0, 0}, Tile{x1, y1, 0}) {
		g.walls[[2]int{t.X, t.Y}] = struct{}{}
	}
	g.walls[[2]int{x0, y0}] = struct{}{}
	g.walls[[2]int{x1, y1}] = struct{}{}
}

// IsWall returns true if the tile holds a wall.
func (g *Grid) IsWall(x, y int) bool {
	_, ok := g.walls[[2]int{x, y}]
	return ok
}

// SetLoaded changes the simulated region.
func (g *Grid) SetLoaded(r Rect) { g.loaded = r }

// SetCamera moves the camera; the screen is the w×h area around it.
func (g *Grid) SetCamera(t Tile, w, h int) {
	g.camera = t
	g.screen = Rect{t.X - w/2, t.Y - h/2, w, h}
}

// InBounds implements Map.
func (g *Grid) InBounds(t Tile) bool {
	return t.X >= 0 && t.Y >= 0 && t.X < g.W && t.Y < g.H && t.Z >= 0
}

// Blocked implements Map.
func (g *Grid) Blocked(t Tile) bool {
	if !g.InBounds(t) || g.IsWall(t.X, t.Y) {
		return true
	}
	return g.objs != nil && g.objs.SolidAt(t) != nil
}

// Loaded implements Map.
func (g *Grid) Loaded(t Tile) bool { return g.loaded.Contains(t) }

// Camera implements Map.
func (g *Grid) Camera() Tile { return g.camera }

// Screen implements Map.
func (g *Grid) Screen() Rect { return g.screen }

// FindSpot implements Map. It searches rings of growing radius around
// t and returns the first free tile, scanning each ring row by row.
func (g *Grid) FindSpot(t Tile, dist int) (Tile, bool) {
	for r := 0; r <= dist; r++ {
		for y := t.Y - r; y <= t.Y+r; y++ {
			for x := t.X - r; x <= t.X+r; x++ {
				if abs(x-t.X) != r && abs(y-t.Y) != r {
					continue
				}
				c := Tile{x, y, t.Z}
				if !g.Blocked(c) {
					return c, true
				}
			}
		}
	}
	return NoTile, false
}

// line returns the tiles strictly between a and b on a Bresenham line.
func line(a, b Tile) []Tile {
	var res []Tile
	dx, dy := abs(b.X-a.X), -abs(b.Y-a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	e := dx + dy
	x, y := a.X, a.Y
	for {
		if x == b.X && y == b.Y {
			break
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
		if x == b.X && y == b.Y {
			break
		}
		res = append(res, Tile{x, y, a.Z})
	}
	return res
}
