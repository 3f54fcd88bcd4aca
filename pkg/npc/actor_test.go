package npc

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/cockroachdb/cockroach/pkg/util/leaktest"
	"github.com/cockroachdb/cockroach/pkg/util/log"
	"github.com/kr/pretty"
	"github.com/wonst719/exult-sub000/pkg/tqueue"
	"github.com/wonst719/exult-sub000/pkg/world"
)

type fakeSchedule struct {
	m    *fakeMaker
	a    *Actor
	t    ScheduleType
	prev ScheduleType
}

func (s *fakeSchedule) Type() ScheduleType { return s.t }
func (s *fakeSchedule) WhatNow() {
	s.m.logf("whatnow %s", s.t)
	if fn := s.m.whatNow[s.t]; fn != nil {
		fn(s.a)
	}
}
func (s *fakeSchedule) OnDormant() { s.m.logf("dormant %s", s.t) }
func (s *fakeSchedule) Ending(n ScheduleType) { s.m.logf("ending %s -> %s", s.t, n) }
func (s *fakeSchedule) SetWeapon(removed bool) { s.m.logf("weapon removed=%t", removed) }
func (s *fakeSchedule) SetBed(world.Object) {}
func (s *fakeSchedule) Busy() bool { return false }
func (s *fakeSchedule) PrevType() ScheduleType { return s.prev }

type fakeMaker struct {
	log     []string
	whatNow map[ScheduleType]func(a *Actor)
}

func (m *fakeMaker) logf(format string, args ...interface{}) {
	m.log = append(m.log, fmt.Sprintf(format, args...))
}

func (m *fakeMaker) Make(a *Actor, t, prev ScheduleType) Schedule {
	m.logf("make %s (prev %s)", t, prev)
	return &fakeSchedule{m: m, a: a, t: t, prev: prev}
}

func (m *fakeMaker) WalkTo(a *Actor, dest world.Tile, next ScheduleType, delay int) Schedule {
	m.logf("walk_to %s for %s", dest, next)
	return &fakeSchedule{m: m, a: a, t: WalkToSchedule, prev: a.ScheduleType()}
}

func (m *fakeMaker) count(line string) int {
	n := 0
	for _, l := range m.log {
		if l == line {
			n++
		}
	}
	return n
}

type testEnv struct {
	*Env
	grid  *world.Grid
	rec   *world.Recorder
	maker *fakeMaker
}

func newTestEnv() *testEnv {
	objs := world.NewObjects()
	grid := world.NewGrid(30, 30, objs)
	rec := &world.Recorder{}
	env := NewEnv(context.Background(), objs, Options{
		Map:     grid,
		Paths:   &world.AStar{M: grid, Objs: objs},
		Usecode: rec,
		Media:   rec,
		Seed:    1,
	})
	m := &fakeMaker{whatNow: make(map[ScheduleType]func(*Actor))}
	env.Schedules = m
	return &testEnv{Env: env, grid: grid, rec: rec, maker: m}
}

// runTicks activates the queue once per tick from tick from to tick to.
func (e *testEnv) runTicks(from, to int) {
	for k := from; k <= to; k++ {
		e.Queue.Activate(tqueue.Time(k * e.StdDelay))
	}
}

type funcAction struct {
	actionBase
	fn func(a *Actor) int
}

func (f *funcAction) Step(a *Actor) int { return f.fn(a) }
func (f *funcAction) Kill() Action { return kill(f) }

func TestDeferredDestroy(t *testing.T) {
	defer leaktest.AfterTest(t)()
	e := newTestEnv()
	a := NewActor(e.Env, "iolo", 465, world.Tile{X: 5, Y: 5})

	old := NewFrames(100, 1, 2, 3)
	a.SetAction(old)
	a.Start(100, 0)
	next := NewFrames(100, 4)
	a.SetAction(next)

	if !IsKilled(old) || IsDestroyed(old) {
		t.Fatalf("expected the outgoing action to be killed but not destroyed")
	}
	if old.Kill() != nil {
		t.Errorf("expected a second kill to be a no-op")
	}
	if n := a.PendingDestroy(); n != 1 {
		t.Fatalf("expected 1 pending action, got %d", n)
	}

	e.Queue.Activate(0)
	if !IsDestroyed(old) {
		t.Errorf("expected the killed action to be destroyed at the next tick")
	}
	if n := a.PendingDestroy(); n != 0 {
		t.Errorf("expected no pending action, got %d", n)
	}
	if a.Frame() != 4 {
		t.Errorf("expected the new action to run, got frame %d", a.Frame())
	}
}

func TestReplacedWhileStepping(t *testing.T) {
	e := newTestEnv()
	a := NewActor(e.Env, "dupre", 465, world.Tile{X: 5, Y: 5})

	inner := NewFrames(100, 7)
	var first *funcAction
	destroyedDuring := true
	first = &funcAction{fn: func(a *Actor) int {
		a.SetAction(inner)
		destroyedDuring = IsDestroyed(first)
		return 0
	}}
	a.SetAction(first)
	a.Start(100, 0)

	e.Queue.Activate(0)
	if destroyedDuring {
		t.Fatal("action destroyed while still executing")
	}
	if a.Action() != Action(inner) {
		t.Fatalf("expected the replacement to be current, got %s", Describe(a.Action()))
	}
	if next, ok := e.Queue.NextTime(); !ok || next != 100 {
		t.Fatalf("expected the actor to be queued at 100, got %d (%t)", next, ok)
	}
	e.Queue.Activate(100)
	if !IsDestroyed(first) {
		t.Error("expected the replaced action to be destroyed")
	}
	if a.Frame() != 7 {
		t.Errorf("expected frame 7, got %d", a.Frame())
	}
}

func TestGroupReplacedWhileStepping(t *testing.T) {
	e := newTestEnv()
	a := NewActor(e.Env, "jaana", 465, world.Tile{X: 5, Y: 5})

	inner := NewFrames(100, 7)
	var stepped int
	g := NewGroup(
		&funcAction{fn: func(a *Actor) int {
			a.SetAction(inner)
			return 100
		}},
		&funcAction{fn: func(a *Actor) int {
			stepped++
			return 100
		}},
	)
	a.SetAction(g)
	a.Start(100, 0)

	e.Queue.Activate(0)
	if stepped != 0 {
		t.Errorf("expected the group to stop once replaced, stepped %d more", stepped)
	}
	if a.Action() != Action(inner) {
		t.Fatalf("expected the replacement to be current, got %s", Describe(a.Action()))
	}
	e.Queue.Activate(100)
	if !IsDestroyed(g) {
		t.Error("expected the replaced group to be destroyed")
	}
	if a.Frame() != 7 {
		t.Errorf("expected frame 7, got %d", a.Frame())
	}
}

func TestDestroyCascades(t *testing.T) {
	e := newTestEnv()
	a := NewActor(e.Env, "shamino", 465, world.Tile{X: 5, Y: 5})
	f1, f2 := NewFrames(100, 1), NewFrames(100, 2)
	seq := NewSequence(0, f1, NewGroup(f2))
	a.SetAction(seq)
	a.Start(100, 0)
	a.SetAction(nil)
	e.Queue.Activate(0)
	for i, act := range []Action{seq, f1, f2} {
		if !IsDestroyed(act) {
			t.Errorf("%d: expected %s to be destroyed", i, Describe(act))
		}
	}
}

func TestRemovedWhileStepping(t *testing.T) {
	e := newTestEnv()
	a := NewActor(e.Env, "ghost", 465, world.Tile{X: 5, Y: 5})
	a.SetAction(&funcAction{fn: func(a *Actor) int {
		a.Remove()
		return 100
	}})
	a.Start(100, 0)
	e.Queue.Activate(0)
	if a.Live() {
		t.Fatal("expected the actor to be gone")
	}
	if e.Queue.Len() != 0 {
		t.Errorf("expected an empty queue, got %s", e.Queue)
	}
}

func TestScheduleTransition(t *testing.T) {
	sc := log.Scope(t)
	defer sc.Close(t)

	e := newTestEnv()
	a := NewActor(e.Env, "spark", 465, world.Tile{X: 5, Y: 5})
	a.SetScheduleType(Loiter)
	a.SetScheduleType(Sleep)

	exp := []string{
		"make loiter (prev none)",
		"whatnow loiter",
		"ending loiter -> sleep",
		"make sleep (prev loiter)",
		"whatnow sleep",
	}
	if diff := pretty.Diff(exp, e.maker.log); len(diff) > 0 {
		t.Fatalf("unexpected transition:\n%s", strings.Join(diff, "\n"))
	}
	if a.ScheduleType() != Sleep {
		t.Errorf("expected sleep, got %s", a.ScheduleType())
	}

	// A behavior-function path in progress survives the switch.
	p := NewIfElsePath(a, world.Tile{X: 10, Y: 5}, nil, nil)
	if p.Done() {
		t.Fatal("expected a path to be found")
	}
	a.SetAction(p)
	a.SetScheduleType(Wait)
	if a.Action() != Action(p) {
		t.Errorf("expected the path to be kept, got %s", Describe(a.Action()))
	}
	// Any other action is stopped.
	a.SetAction(NewFrames(100, 1))
	a.SetScheduleType(Loiter)
	if a.Action() != nil {
		t.Errorf("expected the action to be dropped, got %s", Describe(a.Action()))
	}
}

func TestDormantSchedule(t *testing.T) {
	e := newTestEnv()
	e.grid.SetLoaded(world.Rect{X: 0, Y: 0, W: 10, H: 10})
	a := NewActor(e.Env, "thief", 465, world.Tile{X: 20, Y: 20})

	a.SetScheduleType(Loiter)
	if !a.Dormant() {
		t.Fatal("expected an actor outside the loaded region to be dormant")
	}
	if e.maker.count("whatnow loiter") != 0 || e.maker.count("dormant loiter") != 1 {
		t.Fatalf("expected only the dormant hook, got %v", e.maker.log)
	}

	// Far away and both ends unloaded: teleport.
	far := world.Tile{X: 28, Y: 5}
	a.SetScheduleAndLoc(Sit, far, 0)
	if a.Tile() != far {
		t.Errorf("expected a teleport to %s, got %s", far, a.Tile())
	}
	if a.ScheduleType() != Sit {
		t.Errorf("expected sit, got %s", a.ScheduleType())
	}

	// A loaded destination is walked to.
	dest := world.Tile{X: 5, Y: 5}
	a.SetScheduleAndLoc(Eat, dest, 0)
	if a.ScheduleType() != WalkToSchedule {
		t.Fatalf("expected walk_to_schedule, got %s", a.ScheduleType())
	}
	if next, loc := a.NextSchedule(); next != Eat || loc != dest {
		t.Errorf("expected eat at %s, got %s at %s", dest, next, loc)
	}
	if e.maker.count(fmt.Sprintf("walk_to %s for eat", dest)) != 1 {
		t.Errorf("expected the walk-to schedule to be created, got %v", e.maker.log)
	}
}

func TestDieAndResurrect(t *testing.T) {
	e := newTestEnv()
	a := NewActor(e.Env, "spark", 465, world.Tile{X: 8, Y: 8})
	a.SetTraits(Traits{Fun: 0x400})
	a.SetScheduleType(Loiter)
	a.Start(100, 0)

	a.Hit(nil, 25, 0)
	if !a.IsDead() || a.Live() {
		t.Fatal("expected the actor to be dead and out of the world")
	}
	if a.Health() != -15 {
		t.Errorf("expected health -15, got %d", a.Health())
	}
	if e.Queue.Find(a) {
		t.Error("expected the dead actor to leave the queue")
	}
	body := a.Body()
	if body == nil || body.Tile() != (world.Tile{X: 8, Y: 8}) {
		t.Fatalf("expected a body at the death spot, got %v", body)
	}
	found := false
	for _, l := range e.rec.Drain() {
		if l == "call 0x400 on spark (died)" {
			found = true
		}
	}
	if !found {
		t.Error("expected the death behavior function to be called")
	}

	a.Resurrect(body)
	if a.IsDead() || !a.Live() || a.Body() != nil {
		t.Fatal("expected the actor to be back in the world")
	}
	if a.Health() != a.MaxHealth() {
		t.Errorf("expected full health, got %d", a.Health())
	}
	if a.ScheduleType() != Loiter {
		t.Errorf("expected loiter, got %s", a.ScheduleType())
	}
	e.runTicks(0, 5)
	if pose := a.Frame() & 0xf; pose != Standing {
		t.Errorf("expected the actor to stand up, got pose %d", pose)
	}
}

func TestCantDieFightsBack(t *testing.T) {
	e := newTestEnv()
	lb := NewActor(e.Env, "lord british", 465, world.Tile{X: 8, Y: 8})
	lb.SetFlag(CantDie)
	rogue := NewActor(e.Env, "rogue", 465, world.Tile{X: 9, Y: 8})

	lb.Hit(rogue, 100, 0)
	if lb.Health() != 10 || lb.IsDead() {
		t.Fatalf("expected no damage, got health %d", lb.Health())
	}
	if lb.Target() != world.Object(rogue) {
		t.Errorf("expected the attacker to become the target")
	}
	if lb.ScheduleType() != Combat {
		t.Errorf("expected combat, got %s", lb.ScheduleType())
	}
}

func TestWalk(t *testing.T) {
	testData := []struct {
		name   string
		walls  [][4]int
		smart  bool
		expAt  world.Tile
		failed bool
		noPath bool
	}{
		{"straight", nil, false, world.Tile{X: 6, Y: 2}, false, false},
		{"straight blocked", [][4]int{{4, 0, 4, 29}}, false, world.Tile{X: 3, Y: 2}, true, false},
		{"around", [][4]int{{4, 0, 4, 6}}, true, world.Tile{X: 6, Y: 2}, false, false},
		{"no path", [][4]int{{4, 0, 4, 29}}, true, world.Tile{X: 2, Y: 2}, false, true},
	}
	for _, test := range testData {
		t.Run(test.name, func(t *testing.T) {
			e := newTestEnv()
			for _, w := range test.walls {
				e.grid.AddWall(w[0], w[1], w[2], w[3])
			}
			a := NewActor(e.Env, "walker", 465, world.Tile{X: 2, Y: 2})
			a.SetScheduleType(Wait)
			dest := world.Tile{X: 6, Y: 2}
			if test.smart {
				if ok := a.WalkPathToTile(a.Tile(), dest, 100, 0, 0, 2); ok == test.noPath {
					t.Fatalf("expected path found: %t", !test.noPath)
				}
			} else {
				a.WalkToTile(dest, 100, 0, 2)
			}
			walk, _ := a.Action().(*PathWalk)
			e.runTicks(0, 20)
			if a.Tile() != test.expAt {
				t.Errorf("expected %s, got %s", test.expAt, a.Tile())
			}
			if a.Action() != nil {
				t.Errorf("expected the walk to be over, got %s", Describe(a.Action()))
			}
			if test.noPath {
				return
			}
			if walk.Failed() != test.failed {
				t.Errorf("expected failed=%t", test.failed)
			}
			if pose := a.Frame() & 0xf; pose != Standing {
				t.Errorf("expected to end standing, got pose %d", pose)
			}
			if n := e.maker.count("whatnow wait"); n != 2 {
				t.Errorf("expected the schedule to be asked again once, got %d asks", n)
			}
		})
	}
}

func TestSameTickAsks(t *testing.T) {
	e := newTestEnv()
	a := NewActor(e.Env, "fidget", 465, world.Tile{X: 5, Y: 5})
	e.maker.whatNow[Wait] = func(a *Actor) {
		a.SetAction(NewNull())
		a.Start(0, 0)
	}
	a.SetScheduleType(Wait)
	e.Queue.Activate(0)
	if n := e.maker.count("whatnow wait"); n != 1+maxSameTickAsks {
		t.Errorf("expected %d asks, got %d", 1+maxSameTickAsks, n)
	}
	if next, ok := e.Queue.NextTime(); !ok || next != 100 {
		t.Errorf("expected the actor to be deferred to 100, got %d (%t)", next, ok)
	}
}

func TestActionSequence(t *testing.T) {
	e := newTestEnv()
	a := NewActor(e.Env, "cook", 465, world.Tile{X: 2, Y: 2})
	pot := world.NewItem("pot", 300, 4, world.Tile{X: 5, Y: 2})
	e.Objs.Add(pot)

	a.SetAction(NewActionSequence(a, world.Tile{X: 4, Y: 2},
		NewSequence(100, NewFaceObj(pot, 100), NewObjectAnimate(pot, 1, 100), NewPickup(pot, 100, false)), false))
	a.Start(100, 0)
	e.runTicks(0, 20)
	if a.Tile() != (world.Tile{X: 4, Y: 2}) {
		t.Errorf("expected to be next to the pot, got %s", a.Tile())
	}
	if e.Objs.Lookup(pot.ID()) != nil {
		t.Error("expected the pot to be picked up")
	}
	if c := a.Carried(); len(c) != 1 || c[0] != world.Object(pot) {
		t.Errorf("expected to carry the pot, got %v", c)
	}
	if pot.Frame() != 0 {
		t.Errorf("expected the pot to cycle back to frame 0, got %d", pot.Frame())
	}

	a.SetAction(NewPutdown(pot, world.Tile{X: 5, Y: 3}, 100))
	a.Start(100, 0)
	e.runTicks(21, 30)
	if e.Objs.Lookup(pot.ID()) != world.Object(pot) || pot.Tile() != (world.Tile{X: 5, Y: 3}) {
		t.Errorf("expected the pot back at (5,3,0), got %s", pot.Tile())
	}
}
