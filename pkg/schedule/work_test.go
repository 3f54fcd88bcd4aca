package schedule

import (
	"testing"

	"github.com/wonst719/exult-sub000/pkg/npc"
	"github.com/wonst719/exult-sub000/pkg/world"
)

func TestWorkWithoutStation(t *testing.T) {
	e := newTestEnv()
	a := npc.NewActor(e.Env, "smith", 465, world.Tile{X: 5, Y: 5})
	a.SetScheduleType(npc.Blacksmith)
	w := a.Schedule().(*work)
	if w.Step() != "heat" || w.failures != 1 {
		t.Errorf("expected to wait for a firepit, got step %s after %d failures", w.Step(), w.failures)
	}
}

func TestWorkCycle(t *testing.T) {
	e := newTestEnv()
	e.item("firepit", shapeFirepit, 4, world.Tile{X: 6, Y: 5})
	a := npc.NewActor(e.Env, "smith", 465, world.Tile{X: 5, Y: 5})

	a.SetScheduleType(npc.Blacksmith)
	w := a.Schedule().(*work)
	if w.Step() != "bellows" {
		t.Fatalf("expected the next step to be bellows, got %s", w.Step())
	}
	if w.held == nil || len(a.Carried()) != 1 {
		t.Fatalf("expected a blank in hand, carrying %d", len(a.Carried()))
	}

	a.SetScheduleType(npc.Loiter)
	if n := len(a.Carried()); n != 0 {
		t.Errorf("expected the blank scrapped, carrying %d", n)
	}
}

func TestWorkGoods(t *testing.T) {
	e := newTestEnv()
	a := npc.NewActor(e.Env, "seamstress", 465, world.Tile{X: 5, Y: 5})
	w := newSew(e.m, a, npc.Loiter)
	var first world.Object
	for i := 0; i < maxGoods+1; i++ {
		w.held = w.craft("clothes", shapeClothes, i)
		if first == nil {
			first = w.held
		}
		w.finish()
	}
	if len(w.goods) != maxGoods {
		t.Errorf("expected %d goods, got %d", maxGoods, len(w.goods))
	}
	for _, o := range a.Carried() {
		if o == first {
			t.Errorf("expected the oldest goods cleared away")
		}
	}
	if n := len(a.Carried()); n != maxGoods {
		t.Errorf("expected %d pieces left, got %d", maxGoods, n)
	}
}
