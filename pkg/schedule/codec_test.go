package schedule

import (
	"testing"

	"github.com/kr/pretty"
	"github.com/wonst719/exult-sub000/pkg/npc"
	"github.com/wonst719/exult-sub000/pkg/tqueue"
	"github.com/wonst719/exult-sub000/pkg/world"
)

func TestCodecCombat(t *testing.T) {
	e := newTestEnv()
	a := npc.NewActor(e.Env, "troll", 465, world.Tile{X: 5, Y: 5})
	foe := npc.NewActor(e.Env, "dupre", 465, world.Tile{X: 9, Y: 5})
	now := tqueue.Time(5000)

	c := newCombat(e.m, a, npc.Patrol)
	c.state = approach
	c.failures = 2
	c.fleed = 1
	c.dex = 7
	c.yelled = true
	c.alignment = npc.Evil
	c.teleportTime = now + 1200
	c.summonTime = now - 300
	c.invisibleTime = now + 4500
	c.opponents = []world.Ref{world.RefTo(foe)}

	data, err := Encode(c, now)
	if err != nil {
		t.Fatal(err)
	}
	// Restored later, the times keep their distance to the clock.
	later := now + 10000
	s, err := Decode(e.m, a, data, later)
	if err != nil {
		t.Fatal(err)
	}
	d, ok := s.(*Combat)
	if !ok {
		t.Fatalf("expected a combat schedule, got %T", s)
	}
	type summary struct {
		State                       string
		Prev                        npc.ScheduleType
		Failures, Fleed, Dex        int
		Yelled, Started             bool
		Align                       npc.Alignment
		Teleport, Summon, Invisible tqueue.Time
		Opponents                   []world.ObjID
	}
	sum := func(c *Combat, base tqueue.Time) summary {
		res := summary{
			State: c.State(), Prev: c.PrevType(),
			Failures: c.failures, Fleed: c.fleed, Dex: c.dex,
			Yelled: c.yelled, Started: c.startedBattle, Align: c.alignment,
			Teleport: c.teleportTime - base, Summon: c.summonTime - base, Invisible: c.invisibleTime - base,
		}
		for _, o := range c.opponents {
			res.Opponents = append(res.Opponents, o.ID())
		}
		return res
	}
	if diff := pretty.Diff(sum(c, now), sum(d, later)); len(diff) > 0 {
		t.Errorf("restored combat differs:\n%s", pretty.Sprint(diff))
	}
}

func TestCodecDuel(t *testing.T) {
	e := newTestEnv()
	a := npc.NewActor(e.Env, "sentri", 465, world.Tile{X: 5, Y: 5})
	dummy := world.NewItem("dummy", shapeDummy, 1, world.Tile{X: 7, Y: 5})
	e.Objs.Add(dummy)

	c := newDuel(e.m, a, npc.Loiter)
	c.duel.attacks = 5
	c.duel.practice = world.RefTo(dummy)
	data, err := Encode(c, 0)
	if err != nil {
		t.Fatal(err)
	}

	// The duel goes back to where it started, not where the actor is.
	a.Move(world.Tile{X: 12, Y: 9})
	s, err := Decode(e.m, a, data, 0)
	if err != nil {
		t.Fatal(err)
	}
	d, ok := s.(*Combat)
	if !ok || d.duel == nil {
		t.Fatalf("expected a duel, got %T", s)
	}
	if d.duel.start != (world.Tile{X: 5, Y: 5}) {
		t.Errorf("expected the duel to start from (5,5,0), got %s", d.duel.start)
	}
	if d.duel.attacks != 5 {
		t.Errorf("expected 5 attacks, got %d", d.duel.attacks)
	}
	if p := d.duel.practice.Get(e.Objs); p != world.Object(dummy) {
		t.Errorf("expected to practice on the dummy, got %v", p)
	}
}

func TestCodecWalkTo(t *testing.T) {
	e := newTestEnv()
	a := npc.NewActor(e.Env, "spark", 465, world.Tile{X: 5, Y: 5})
	dest := world.Tile{X: 25, Y: 12}
	w := newWalkTo(e.m, a, dest, npc.Sleep, 0)
	w.legs = 3

	data, err := Encode(w, 0)
	if err != nil {
		t.Fatal(err)
	}
	s, err := Decode(e.m, a, data, 0)
	if err != nil {
		t.Fatal(err)
	}
	r := s.(*walkTo)
	if r.dest != dest || r.next != npc.Sleep || r.legs != 3 || r.startPos != w.startPos {
		t.Errorf("unexpected walk: %s for %s after %d legs from %s", r.dest, r.next, r.legs, r.startPos)
	}
}

func TestCodecStatelessAndPacing(t *testing.T) {
	e := newTestEnv()
	a := npc.NewActor(e.Env, "guard", 465, world.Tile{X: 5, Y: 5})

	testData := []struct {
		name string
		s    npc.Schedule
	}{
		{"stand", newWait(e.m, a, npc.Stand, npc.Loiter)},
		{"loiter", newLoiter(e.m, a, npc.Loiter, npc.Sleep, loiterDist, loiterOdds)},
		{"pace", newPace(e.m, a, npc.VertPace, npc.Loiter, false)},
		{"sleep", newSleep(e.m, a, npc.Loiter)},
	}
	for _, test := range testData {
		t.Run(test.name, func(t *testing.T) {
			data, err := Encode(test.s, 0)
			if err != nil {
				t.Fatal(err)
			}
			s, err := Decode(e.m, a, data, 0)
			if err != nil {
				t.Fatal(err)
			}
			if s.Type() != test.s.Type() || s.PrevType() != test.s.PrevType() {
				t.Errorf("expected %s after %s, got %s after %s",
					test.s.Type(), test.s.PrevType(), s.Type(), s.PrevType())
			}
		})
	}
}

func TestCodecErrors(t *testing.T) {
	e := newTestEnv()
	a := npc.NewActor(e.Env, "spark", 465, world.Tile{X: 5, Y: 5})

	if _, err := Decode(e.m, a, []byte{0x02}, 0); err == nil {
		t.Errorf("expected truncated data to fail")
	}

	// A scripted class that is not defined any more.
	b := &Behavior{Name: "gone", Poll: defaultPoll}
	ct := e.m.Define(b)
	s := newScripted(e.m, a, ct, npc.Loiter, b)
	data, err := Encode(s, 0)
	if err != nil {
		t.Fatal(err)
	}
	delete(e.m.Behaviors, "gone")
	if _, err := Decode(e.m, a, data, 0); err == nil {
		t.Errorf("expected an undefined class to fail")
	}
}
