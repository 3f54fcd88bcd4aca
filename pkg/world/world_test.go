package world

import (
	"fmt"
	"testing"
)

func TestDirTowards(t *testing.T) {
	testData := []struct {
		dx, dy int
		exp    Dir
	}{
		{0, -5, North},
		{5, -5, Northeast},
		{5, 0, East},
		{5, 1, East},
		{3, 3, Southeast},
		{0, 4, South},
		{-2, 2, Southwest},
		{-7, 1, West},
		{-1, -1, Northwest},
		{1, -6, North},
	}
	for _, test := range testData {
		t.Run(fmt.Sprintf("%d,%d", test.dx, test.dy), func(t *testing.T) {
			from := Tile{10, 10, 0}
			d := DirTowards(from, from.Add(test.dx, test.dy, 0))
			if d != test.exp {
				t.Errorf("expected %s, got %s", test.exp, d)
			}
		})
	}
}

func TestNeighborRoundTrip(t *testing.T) {
	c := Tile{5, 5, 1}
	for d := North; d <= Northwest; d++ {
		n := c.Neighbor(d)
		if c.Distance(n) != 1 {
			t.Errorf("%s: neighbor %s is not adjacent", d, n)
		}
		if back := n.Neighbor(d.Opposite()); back != c {
			t.Errorf("%s: expected to come back to %s, got %s", d, c, back)
		}
		if pd, ok := ParseDir(d.String()); !ok || pd != d {
			t.Errorf("%s: parse mismatch %v", d, pd)
		}
	}
}

func TestWeakRef(t *testing.T) {
	objs := NewObjects()
	a := NewItem("lamp", 338, 4, Tile{1, 1, 0})
	b := NewItem("bed", 696, 1, Tile{2, 2, 0})
	objs.Add(a)
	objs.Add(b)
	ra := RefTo(a)
	if ra.Get(objs) != a {
		t.Fatal("expected live ref")
	}
	objs.Remove(a.ID())
	if ra.Get(objs) != nil {
		t.Fatal("expected stale ref to resolve to nil")
	}
	objs.Remove(a.ID())
	if objs.Len() != 1 || objs.ByName("bed") != b {
		t.Fatal("unexpected table contents")
	}
	if !(Ref{}).IsZero() || (Ref{}).Get(objs) != nil {
		t.Fatal("zero ref must resolve to nothing")
	}
}

func TestFindPath(t *testing.T) {
	objs := NewObjects()
	g := NewGrid(20, 20, objs)
	// A wall with a gap at y=10.
	g.AddWall(5, 0, 5, 9)
	g.AddWall(5, 11, 5, 19)
	p := &AStar{M: g, Objs: objs}

	testData := []struct {
		from, to Tile
		dist     int
		ok       bool
		steps    int
	}{
		{Tile{2, 10, 0}, Tile{8, 10, 0}, 0, true, 6},
		// Detour through the gap.
		{Tile{2, 2, 0}, Tile{8, 2, 0}, 0, true, 16},
		{Tile{2, 2, 0}, Tile{2, 2, 0}, 0, true, 0},
		{Tile{2, 2, 0}, Tile{5, 5, 0}, 0, false, 0},
		{Tile{2, 2, 0}, Tile{5, 5, 0}, 1, true, 2},
	}
	for _, test := range testData {
		t.Run(fmt.Sprintf("%s->%s/%d", test.from, test.to, test.dist), func(t *testing.T) {
			path, ok := p.FindPath(test.from, test.to, CostClient{Dist: test.dist})
			if ok != test.ok {
				t.Fatalf("expected ok=%v, got %v", test.ok, ok)
			}
			if len(path) != test.steps {
				t.Errorf("expected %d steps, got %d: %v", test.steps, len(path), path)
			}
			prev := test.from
			for _, s := range path {
				if prev.Distance2D(s) != 1 || g.Blocked(s) {
					t.Errorf("invalid step %s -> %s", prev, s)
				}
				prev = s
			}
		})
	}

	if p.StraightLineClear(Tile{2, 5, 0}, Tile{8, 5, 0}) {
		t.Error("expected the wall to block the line of fire")
	}
	if !p.StraightLineClear(Tile{2, 10, 0}, Tile{8, 10, 0}) {
		t.Error("expected the gap to let the line of fire through")
	}
}

func TestFindSpot(t *testing.T) {
	objs := NewObjects()
	g := NewGrid(10, 10, objs)
	rock := NewItem("rock", 1, 1, Tile{3, 3, 0})
	rock.SetSolid(true)
	objs.Add(rock)
	spot, ok := g.FindSpot(Tile{3, 3, 0}, 2)
	if !ok || spot == (Tile{3, 3, 0}) || spot.Distance2D(Tile{3, 3, 0}) != 1 {
		t.Errorf("unexpected spot %s (%v)", spot, ok)
	}
	if g.Loaded(Tile{12, 0, 0}) {
		t.Error("out of the world cannot be loaded")
	}
}
