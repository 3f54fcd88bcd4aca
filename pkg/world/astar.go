package world

import "container/heap"

// AStar is an 8-way A* Pathfinder over a Map.
type AStar struct {
	M Map
	// Objs, when set, lets the search ignore the mover's own body.
	Objs *Objects
	// MaxNodes bounds the number of expanded tiles.
	MaxNodes int
}

var _ Pathfinder = (*AStar)(nil)

type node struct {
	t     Tile
	g, f  int
	index int
}

type openSet []*node

func (s openSet) Len() int { return len(s) }
func (s openSet) Less(i, j int) bool {
	if s[i].f != s[j].f {
		return s[i].f < s[j].f
	}
	return s[i].g > s[j].g
}
func (s openSet) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
	s[i].index = i
	s[j].index = j
}
func (s *openSet) Push(x interface{}) {
	n := x.(*node)
	n.index = len(*s)
	*s = append(*s, n)
}
func (s *openSet) Pop() interface{} {
	old := *s
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*s = old[:len(old)-1]
	return n
}

func (p *AStar) blocked(t Tile, c CostClient) bool {
	if !p.M.Blocked(t) {
		return false
	}
	if c.Mover != 0 && p.Objs != nil && p.M.InBounds(t) {
		if o := p.Objs.SolidAt(t); o != nil && o.ID() == c.Mover {
			return false
		}
	}
	return true
}

// FindPath implements Pathfinder.
func (p *AStar) FindPath(from, to Tile, c CostClient) ([]Tile, bool) {
	if from.Distance2D(to) <= c.Dist {
		return nil, true
	}
	limit := c.MaxCost
	if limit == 0 {
		limit = p.MaxNodes
	}
	if limit == 0 {
		limit = 4096
	}
	open := &openSet{}
	start := &node{t: from, f: from.Distance2D(to)}
	heap.Push(open, start)
	nodes := map[Tile]*node{from: start}
	cameFrom := map[Tile]Tile{}
	closed := map[Tile]bool{}
	for expanded := 0; open.Len() > 0 && expanded < limit; expanded++ {
		cur := heap.Pop(open).(*node)
		if cur.t.Distance2D(to) <= c.Dist {
			var path []Tile
			for t := cur.t; t != from; t = cameFrom[t] {
				path = append(path, t)
			}
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
			return path, true
		}
		closed[cur.t] = true
		for d := North; d <= Northwest; d++ {
			nt := cur.t.Neighbor(d)
			if closed[nt] || p.blocked(nt, c) {
				continue
			}
			g := cur.g + 1
			if n, ok := nodes[nt]; ok {
				if g >= n.g {
					continue
				}
				n.g, n.f = g, g+nt.Distance2D(to)
				cameFrom[nt] = cur.t
				heap.Fix(open, n.index)
				continue
			}
			n := &node{t: nt, g: g, f: g + nt.Distance2D(to)}
			nodes[nt] = n
			cameFrom[nt] = cur.t
			heap.Push(open, n)
		}
	}
	return nil, false
}

// StraightLineClear implements Pathfinder.
func (p *AStar) StraightLineClear(from, to Tile) bool {
	for _, t := range line(from, to) {
		if p.M.Blocked(t) {
			return false
		}
	}
	return true
}
