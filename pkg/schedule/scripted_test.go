package schedule

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/cockroach/pkg/util/leaktest"
	"github.com/cockroachdb/cockroach/pkg/util/log"
	"github.com/cockroachdb/datadriven"
	"github.com/wonst719/exult-sub000/pkg/npc"
	"github.com/wonst719/exult-sub000/pkg/world"
)

func TestParseBehavior(t *testing.T) {
	datadriven.RunTest(t, filepath.Join("testdata", "behavior"), func(d *datadriven.TestData) string {
		if d.Cmd != "parse" {
			t.Fatalf("%s: unknown command: %s", d.Pos, d.Cmd)
		}
		name := "test"
		for _, arg := range d.CmdArgs {
			if arg.Key == "name" && len(arg.Vals) > 0 {
				name = arg.Vals[0]
			}
		}
		b, err := ParseBehavior(name, strings.Split(d.Input, "\n"))
		if err != nil {
			return fmt.Sprintf("error: %v\n", err)
		}
		var out strings.Builder
		for _, r := range b.Rules {
			fmt.Fprintf(&out, "when %s then %s\n", r.Cond, r.Then)
		}
		fmt.Fprintf(&out, "otherwise %s\npoll %d\n", b.Otherwise, b.Poll)
		return out.String()
	})
}

func TestParseStep(t *testing.T) {
	testData := []struct {
		in     string
		exp    Step
		expErr string
	}{
		{"loiter", Step{Kind: StepSchedule, Schedule: "loiter"}, ""},
		{"schedule coward", Step{Kind: StepSchedule, Schedule: "coward"}, ""},
		{`say "Who goes there?"`, Step{Kind: StepSay, Text: "Who goes there?"}, ""},
		{"flee", Step{Kind: StepFlee}, ""},
		{"wait 1500", Step{Kind: StepWait, N: 1500}, ""},
		{"usecode 0x622", Step{Kind: StepUsecode, N: 0x622}, ""},
		{"walk -3 4", Step{Kind: StepWalk, DX: -3, DY: 4}, ""},
		{"", Step{}, "missing step"},
		{"wait", Step{}, "wait: expected one argument"},
		{"usecode 1 2", Step{}, "usecode: expected one argument"},
		{"schedule", Step{}, "schedule: expected a name"},
		{"dance wildly", Step{}, `unknown step: "dance wildly"`},
	}
	for _, test := range testData {
		t.Run(test.in, func(t *testing.T) {
			st, err := ParseStep(test.in)
			if test.expErr != "" {
				if err == nil || err.Error() != test.expErr {
					t.Fatalf("expected error %q, got %v", test.expErr, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if st != test.exp {
				t.Errorf("expected %+v, got %+v", test.exp, st)
			}
		})
	}
}

func TestParseBehaviorBadExpr(t *testing.T) {
	if _, err := ParseBehavior("bad", []string{"when health < then flee"}); err == nil {
		t.Errorf("expected an error for an incomplete condition")
	}
}

func define(t *testing.T, m *Maker, name string, lines ...string) npc.ScheduleType {
	t.Helper()
	b, err := ParseBehavior(name, lines)
	if err != nil {
		t.Fatal(err)
	}
	return m.Define(b)
}

func TestScriptedRules(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)
	e := newTestEnv()
	ct := define(t, e.m, "coward",
		"when health < 5 then flee",
		"otherwise wait 500")
	a := npc.NewActor(e.Env, "finnigan", 465, world.Tile{X: 5, Y: 5})

	a.SetScheduleType(ct)
	s, ok := a.Schedule().(*scripted)
	if !ok {
		t.Fatalf("expected a scripted schedule, got %T", a.Schedule())
	}
	if s.Fired() != "wait 500" {
		t.Errorf("expected the fallback step, got %q", s.Fired())
	}

	a.SetHealth(2)
	s.WhatNow()
	if s.Fired() != "flee" {
		t.Errorf("expected flee, got %q", s.Fired())
	}
	if a.ScheduleType() != npc.Combat || a.AttackMode() != npc.Flee {
		t.Errorf("expected a fleeing fighter, got %s/%v", a.ScheduleType(), a.AttackMode())
	}
}

func TestScriptedFunctions(t *testing.T) {
	e := newTestEnv()
	e.item("well", 470, 1, world.Tile{X: 7, Y: 5})
	ct := define(t, e.m, "gossip",
		"when flag('paralyzed') then wait 100",
		`when distance_to('well') <= 2 then say "Fine water."`,
		"otherwise loiter")
	a := npc.NewActor(e.Env, "tanya", 465, world.Tile{X: 5, Y: 5})

	a.SetScheduleType(ct)
	s := a.Schedule().(*scripted)
	if s.Fired() != `say "Fine water."` {
		t.Fatalf("expected the well to be close, got %q", s.Fired())
	}
	if lines := e.rec.Drain(); len(lines) != 1 || lines[0] != `tanya says "Fine water."` {
		t.Errorf("unexpected lines: %q", lines)
	}

	a.SetFlag(npc.Paralyzed)
	s.WhatNow()
	if s.Fired() != "wait 100" {
		t.Errorf("expected the flag rule, got %q", s.Fired())
	}

	a.ClearFlag(npc.Paralyzed)
	a.Move(world.Tile{X: 20, Y: 20})
	s.WhatNow()
	if a.ScheduleType() != npc.Loiter {
		t.Errorf("expected loiter, got %s", a.ScheduleType())
	}
}

func TestScriptedSameSchedule(t *testing.T) {
	e := newTestEnv()
	ct := define(t, e.m, "idle", "otherwise idle", "poll 300")
	a := npc.NewActor(e.Env, "idler", 465, world.Tile{X: 5, Y: 5})
	a.SetScheduleType(ct)
	if a.ScheduleType() != ct {
		t.Errorf("expected the class to stay active, got %s", a.ScheduleType())
	}
}
