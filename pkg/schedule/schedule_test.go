package schedule

import (
	"context"
	"testing"

	"github.com/cockroachdb/cockroach/pkg/util/leaktest"
	"github.com/cockroachdb/cockroach/pkg/util/log"
	"github.com/wonst719/exult-sub000/pkg/npc"
	"github.com/wonst719/exult-sub000/pkg/world"
)

type testEnv struct {
	*npc.Env
	grid *world.Grid
	rec  *world.Recorder
	m    *Maker
}

func newTestEnv() *testEnv {
	objs := world.NewObjects()
	grid := world.NewGrid(30, 30, objs)
	rec := &world.Recorder{}
	env := npc.NewEnv(context.Background(), objs, npc.Options{
		Map:     grid,
		Paths:   &world.AStar{M: grid, Objs: objs},
		Armory:  world.TableArmory{599: {Damage: 4}, 602: {Damage: 6}},
		Usecode: rec,
		Media:   rec,
		Seed:    1,
	})
	m := NewMaker()
	m.Install(env)
	return &testEnv{Env: env, grid: grid, rec: rec, m: m}
}

func (e *testEnv) item(name string, shape, nframes int, at world.Tile) *world.Item {
	it := world.NewItem(name, shape, nframes, at)
	e.Objs.Add(it)
	return it
}

func TestLookup(t *testing.T) {
	m := NewMaker()
	b := &Behavior{Name: "coward", Poll: defaultPoll}
	ct := m.Define(b)
	if ct != npc.FirstScripted {
		t.Fatalf("expected the first class to get %s, got %s", npc.FirstScripted, ct)
	}
	if again := m.Define(&Behavior{Name: "coward"}); again != ct {
		t.Errorf("expected a redefinition to keep %s, got %s", ct, again)
	}
	if other := m.Define(&Behavior{Name: "brave"}); other != ct+1 {
		t.Errorf("expected the second class to get %s, got %s", ct+1, other)
	}

	testData := []struct {
		name string
		exp  npc.ScheduleType
		ok   bool
	}{
		{"combat", npc.Combat, true},
		{"desk_work", npc.DeskWork, true},
		{"forge", npc.Blacksmith, true},
		{"coward", ct, true},
		{"brave", ct + 1, true},
		{"juggle", npc.NoSchedule, false},
	}
	for _, test := range testData {
		t.Run(test.name, func(t *testing.T) {
			typ, ok := m.Lookup(test.name)
			if typ != test.exp || ok != test.ok {
				t.Errorf("expected %s/%v, got %s/%v", test.exp, test.ok, typ, ok)
			}
		})
	}
}

func TestMakeTypes(t *testing.T) {
	defer leaktest.AfterTest(t)()
	e := newTestEnv()
	a := npc.NewActor(e.Env, "finnigan", 465, world.Tile{X: 5, Y: 5})

	testData := []struct {
		t   npc.ScheduleType
		exp npc.ScheduleType
	}{
		{npc.Combat, npc.Combat},
		{npc.Duel, npc.Duel},
		{npc.Sleep, npc.Sleep},
		{npc.Patrol, npc.Patrol},
		{npc.Blacksmith, npc.Blacksmith},
		{npc.Bake, npc.Bake},
		{npc.Sew, npc.Sew},
		{npc.Waiter, npc.Waiter},
		{npc.DeskWork, npc.DeskWork},
		{npc.TendShop, npc.TendShop},
		{npc.Farm, npc.Farm},
		// Street maintenance needs a target.
		{npc.StreetMaintenance, npc.Loiter},
		// Undefined classes loiter.
		{npc.FirstScripted + 3, npc.Loiter},
	}
	for _, test := range testData {
		t.Run(test.t.String(), func(t *testing.T) {
			s := e.m.Make(a, test.t, npc.Loiter)
			if s.Type() != test.exp {
				t.Errorf("expected %s, got %s", test.exp, s.Type())
			}
			if s.PrevType() != npc.Loiter {
				t.Errorf("expected prev loiter, got %s", s.PrevType())
			}
		})
	}
}

func TestPrepareHands(t *testing.T) {
	e := newTestEnv()
	a := npc.NewActor(e.Env, "guard", 465, world.Tile{X: 5, Y: 5})
	a.AddWeapon(599)

	prepareHands(a, npc.Patrol)
	if a.Weapon() != 599 {
		t.Fatalf("expected a patrol to ready the weapon, got %d", a.Weapon())
	}
	prepareHands(a, npc.Sleep)
	if a.Weapon() != -1 {
		t.Errorf("expected sleep to empty the hands, got %d", a.Weapon())
	}

	a.SetWeapon(599)
	a.SetFlag(npc.InParty)
	prepareHands(a, npc.Sleep)
	if a.Weapon() != 599 {
		t.Errorf("expected a party member to keep the weapon, got %d", a.Weapon())
	}
	prepareHands(a, npc.Eat)
	if a.Weapon() != -1 {
		t.Errorf("expected eating to empty the hands, got %d", a.Weapon())
	}
}

func TestWalkToArrives(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)
	e := newTestEnv()
	a := npc.NewActor(e.Env, "spark", 465, world.Tile{X: 5, Y: 5})
	a.SetScheduleType(npc.Loiter)

	a.SetSchedule(e.m.WalkTo(a, world.Tile{X: 7, Y: 5}, npc.Stand, 0))
	if a.ScheduleType() != npc.Stand {
		t.Fatalf("expected an actor close to its spot to switch at once, got %s", a.ScheduleType())
	}
	if p := a.Schedule().PrevType(); p != npc.WalkToSchedule {
		t.Errorf("expected the walk as previous schedule, got %s", p)
	}
}

func TestWalkToGivesUp(t *testing.T) {
	e := newTestEnv()
	a := npc.NewActor(e.Env, "spark", 465, world.Tile{X: 5, Y: 5})
	dest := world.Tile{X: 20, Y: 20}

	w := newWalkTo(e.m, a, dest, npc.Stand, 0)
	w.retries = 2
	a.SetSchedule(w)
	if a.Tile() != dest {
		t.Errorf("expected a teleport to %s, got %s", dest, a.Tile())
	}
	if a.ScheduleType() != npc.Stand {
		t.Errorf("expected stand, got %s", a.ScheduleType())
	}
}

func TestClampTo(t *testing.T) {
	r := world.Rect{X: 5, Y: 5, W: 10, H: 10}
	testData := []struct {
		in, exp world.Tile
	}{
		{world.Tile{X: 7, Y: 8}, world.Tile{X: 7, Y: 8}},
		{world.Tile{X: 0, Y: 8}, world.Tile{X: 5, Y: 8}},
		{world.Tile{X: 30, Y: 30, Z: 2}, world.Tile{X: 14, Y: 14, Z: 2}},
	}
	for _, test := range testData {
		t.Run(test.in.String(), func(t *testing.T) {
			if got := clampTo(r, test.in); got != test.exp {
				t.Errorf("expected %s, got %s", test.exp, got)
			}
		})
	}
}

func TestSleepOnFloor(t *testing.T) {
	e := newTestEnv()
	a := npc.NewActor(e.Env, "beggar", 465, world.Tile{X: 5, Y: 5})
	a.SetScheduleType(npc.Sleep)
	if a.Frame()&0xf != npc.SleepFrame || !a.Flag(npc.Asleep) {
		t.Fatalf("expected the actor asleep on the floor, got frame %d", a.Frame())
	}
	a.SetScheduleType(npc.Stand)
	if a.Flag(npc.Asleep) || a.Frame()&0xf != npc.Standing {
		t.Errorf("expected the actor up, got frame %d", a.Frame())
	}
}

func TestSleepInBed(t *testing.T) {
	defer log.Scope(t).Close(t)
	e := newTestEnv()
	bed := e.item("bed", shapeBedEW, 17, world.Tile{X: 7, Y: 5})
	bed.SetFrame(3)
	a := npc.NewActor(e.Env, "iolo", 465, world.Tile{X: 5, Y: 5})

	a.SetScheduleType(npc.Sleep)
	s := a.Schedule().(*sleep)
	if s.bed.ID() != bed.ID() || s.state != 1 {
		t.Fatalf("expected the bed to be picked, got %d in state %d", s.bed.ID(), s.state)
	}
	s.WhatNow()
	if a.Tile() != bed.Tile() || !a.Flag(npc.Asleep) {
		t.Fatalf("expected the actor asleep in bed, at %s", a.Tile())
	}
	if bed.Frame() != 4 {
		t.Errorf("expected the bed unmade, got frame %d", bed.Frame())
	}
	// Only a nap calls the bed's behavior function.
	if lines := e.rec.Drain(); len(lines) != 0 {
		t.Errorf("unexpected calls: %q", lines)
	}

	a.SetScheduleType(npc.Loiter)
	if a.Flag(npc.Asleep) {
		t.Errorf("expected the actor awake")
	}
	if a.Tile() == bed.Tile() {
		t.Errorf("expected the actor out of bed")
	}
}

func TestSleepNap(t *testing.T) {
	e := newTestEnv()
	bed := e.item("bed", shapeBedEW, 17, world.Tile{X: 7, Y: 5})
	bed.SetFrame(3)
	a := npc.NewActor(e.Env, "iolo", 465, world.Tile{X: 5, Y: 5})
	a.SetScheduleType(npc.Sleep)
	e.rec.Drain()

	s := a.Schedule().(*sleep)
	s.SetBed(bed)
	if s.state != 0 || !s.napTime {
		t.Fatalf("expected a nap from the start, got state %d", s.state)
	}
	s.WhatNow()
	s.WhatNow()
	if a.Tile() != bed.Tile() || !a.Flag(npc.Asleep) {
		t.Fatalf("expected the actor asleep in bed, at %s", a.Tile())
	}
	lines := e.rec.Drain()
	if len(lines) != 1 || lines[0] != "call 0x622 on bed (double_click)" {
		t.Errorf("unexpected calls: %q", lines)
	}
}

func TestSleepTakenBed(t *testing.T) {
	e := newTestEnv()
	bed := e.item("bed", shapeBedNS, 17, world.Tile{X: 7, Y: 5})
	sleeper := npc.NewActor(e.Env, "dupre", 465, bed.Tile())
	sleeper.SetFlag(npc.Asleep)

	a := npc.NewActor(e.Env, "shamino", 465, world.Tile{X: 5, Y: 5})
	a.SetScheduleType(npc.Sleep)
	if s := a.Schedule().(*sleep); !s.bed.IsZero() {
		t.Errorf("expected an occupied bed to be skipped")
	}
	if !a.Flag(npc.Asleep) {
		t.Errorf("expected the actor asleep on the floor")
	}
}
