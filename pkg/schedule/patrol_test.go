package schedule

import (
	"testing"

	"github.com/wonst719/exult-sub000/pkg/npc"
	"github.com/wonst719/exult-sub000/pkg/world"
)

func TestPatrolAdvance(t *testing.T) {
	p := &patrol{pathNum: -1, dir: 1, lastPath: 2}
	var got []int
	for i := 0; i < 7; i++ {
		p.advance()
		got = append(got, p.pathNum)
	}
	exp := []int{0, 1, 2, 1, 0, 1, 2}
	for i := range exp {
		if got[i] != exp[i] {
			t.Fatalf("expected %v, got %v", exp, got)
		}
	}
}

func TestPatrolWithoutEggs(t *testing.T) {
	e := newTestEnv()
	a := npc.NewActor(e.Env, "guard", 465, world.Tile{X: 5, Y: 5})
	a.SetScheduleType(npc.Patrol)
	p := a.Schedule().(*patrol)
	if !p.noPaths || !p.seekCombat || p.state != patrolLoiter {
		t.Errorf("expected a loitering guard, got state %d", p.state)
	}
	if p.center != a.Tile() {
		t.Errorf("expected to loiter around %s, got %s", a.Tile(), p.center)
	}
}

func TestPatrolFindsEggs(t *testing.T) {
	e := newTestEnv()
	eggs := make(map[int]*world.Item)
	for i, x := range []int{9, 13, 17} {
		egg := e.item("path", shapePath, 32, world.Tile{X: x, Y: 5})
		egg.SetFrame(i)
		eggs[i] = egg
	}
	// A farther egg with the same number.
	far := e.item("path", shapePath, 32, world.Tile{X: 5, Y: 29})
	far.SetFrame(0)

	a := npc.NewActor(e.Env, "guard", 465, world.Tile{X: 5, Y: 5})
	a.SetScheduleType(npc.Patrol)
	p := a.Schedule().(*patrol)
	if p.lastPath != 2 || p.pathNum != 0 {
		t.Fatalf("expected path 0 of 0-2, got %d of 0-%d", p.pathNum, p.lastPath)
	}
	if p.state != patrolWalk {
		t.Errorf("expected the guard walking, got state %d", p.state)
	}
	if egg := p.findPath(); egg != world.Object(eggs[0]) {
		t.Errorf("expected the closest egg 0, got %v", egg)
	}
}
