package schedule

import (
	"fmt"
	"testing"

	"github.com/kr/pretty"
	"github.com/wonst719/exult-sub000/pkg/npc"
	"github.com/wonst719/exult-sub000/pkg/world"
)

// fighters places a good knight and two evil foes on screen.
func fighters(e *testEnv) (knight, brute, weakling *npc.Actor) {
	knight = npc.NewActor(e.Env, "knight", 465, world.Tile{X: 10, Y: 12})
	knight.SetAlignment(npc.Good)
	brute = npc.NewActor(e.Env, "brute", 465, world.Tile{X: 16, Y: 12})
	brute.SetAlignment(npc.Evil)
	brute.SetProps(npc.Props{Strength: 18, Dexterity: 10, Intelligence: 5, Health: 18, Combat: 10})
	weakling = npc.NewActor(e.Env, "weakling", 465, world.Tile{X: 11, Y: 16})
	weakling.SetAlignment(npc.Evil)
	weakling.SetProps(npc.Props{Strength: 6, Dexterity: 10, Intelligence: 5, Health: 6, Combat: 10})
	return knight, brute, weakling
}

func refIDs(refs []world.Ref) []world.ObjID {
	var res []world.ObjID
	for _, r := range refs {
		res = append(res, r.ID())
	}
	return res
}

func TestFindOpponentsIdempotent(t *testing.T) {
	e := newTestEnv()
	knight, brute, weakling := fighters(e)
	// Neutral bystanders are never opponents.
	npc.NewActor(e.Env, "cow", 465, world.Tile{X: 12, Y: 12})

	c := newCombat(e.m, knight, npc.Loiter)
	c.findOpponents()
	first := refIDs(c.Opponents())
	c.findOpponents()
	second := refIDs(c.Opponents())

	exp := []world.ObjID{brute.ID(), weakling.ID()}
	if diff := pretty.Diff(first, exp); len(diff) > 0 {
		t.Fatalf("unexpected opponents: %v", diff)
	}
	if diff := pretty.Diff(first, second); len(diff) > 0 {
		t.Errorf("expected the same opponents twice, got: %v", diff)
	}

	if o := c.findFoe(npc.Weakest); o != world.Object(weakling) {
		t.Errorf("expected the weakest foe, got %v", o)
	}
	if o := c.findFoe(npc.Strongest); o != world.Object(brute) {
		t.Errorf("expected the remaining foe, got %v", o)
	}
}

func TestFindFoeNearestPenalizesFleeing(t *testing.T) {
	e := newTestEnv()
	knight, brute, weakling := fighters(e)
	c := newCombat(e.m, knight, npc.Loiter)

	weakling.SetAttackMode(npc.Flee)
	if o := c.findFoe(npc.Nearest); o != world.Object(brute) {
		t.Errorf("expected the foe that stands its ground, got %v", o)
	}
}

func TestStartStrike(t *testing.T) {
	const sword, bow = 599, 597
	testData := []struct {
		name   string
		at     world.Tile
		weapon int
		ammo   int
		spare  []int
		wall   bool
		state  combatState
		// action is the type of the action started, empty for none.
		action    string
		expWeapon int
	}{
		{name: "out of reach", at: world.Tile{X: 16, Y: 12}, weapon: -1,
			state: approach, action: "*npc.Approach", expWeapon: -1},
		{name: "adjacent", at: world.Tile{X: 11, Y: 12}, weapon: -1,
			state: strike, action: "*npc.Frames", expWeapon: -1},
		{name: "adjacent with sword", at: world.Tile{X: 11, Y: 12}, weapon: sword,
			state: strike, action: "*npc.Frames", expWeapon: sword},
		{name: "bow in range", at: world.Tile{X: 16, Y: 12}, weapon: bow, ammo: 5,
			state: fire, action: "*npc.Frames", expWeapon: bow},
		{name: "bow beyond range", at: world.Tile{X: 22, Y: 12}, weapon: bow, ammo: 5,
			state: approach, action: "*npc.Approach", expWeapon: bow},
		{name: "bow behind a wall", at: world.Tile{X: 16, Y: 12}, weapon: bow, ammo: 5, wall: true,
			state: approach, action: "*npc.Approach", expWeapon: bow},
		{name: "bow without arrows", at: world.Tile{X: 16, Y: 12}, weapon: bow, spare: []int{sword},
			state: approach, expWeapon: sword},
		{name: "bow without arrows nor spare", at: world.Tile{X: 16, Y: 12}, weapon: bow,
			state: approach, expWeapon: -1},
	}
	for _, test := range testData {
		t.Run(test.name, func(t *testing.T) {
			e := newTestEnv()
			e.Armory = world.TableArmory{
				sword: {Shape: sword, Name: "sword", Damage: 4},
				bow:   {Shape: bow, Name: "bow", Damage: 3, Range: 8, AmmoFamily: 722, Class: world.Shoot},
			}
			if test.wall {
				e.grid.AddWall(13, 9, 13, 15)
			}
			knight, brute, _ := fighters(e)
			brute.Move(test.at)
			knight.SetWeapon(test.weapon)
			knight.SetAmmo(test.ammo)
			for _, w := range test.spare {
				knight.AddWeapon(w)
			}
			knight.SetTarget(brute, false)

			c := newCombat(e.m, knight, npc.Loiter)
			c.state = approach
			c.dex = dexToAttack
			c.startStrike()

			if c.state != test.state {
				t.Fatalf("expected %s, got %s", test.state, c.state)
			}
			if w := knight.Weapon(); w != test.expWeapon {
				t.Errorf("expected weapon %d, got %d", test.expWeapon, w)
			}
			if test.action == "" {
				if knight.Target() != nil {
					t.Errorf("expected the target to be dropped")
				}
				return
			}
			if act := fmt.Sprintf("%T", knight.Action()); act != test.action {
				t.Errorf("expected action %s, got %s", test.action, act)
			}
			attacked := test.state == strike || test.state == fire
			if attacked && c.dex != 0 {
				t.Errorf("expected the attack to cost dexterity, got %d", c.dex)
			}
			if !attacked && c.dex != dexToAttack {
				t.Errorf("expected no dexterity spent, got %d", c.dex)
			}
		})
	}
}

func TestOpponentPool(t *testing.T) {
	testData := []struct {
		name string
		// setup places the actors around the good knight, which is in
		// the party, and returns the opponents expected.
		setup func(e *testEnv, knight *npc.Actor) []*npc.Actor
	}{
		{"attacker of a party member", func(e *testEnv, knight *npc.Actor) []*npc.Actor {
			ally := npc.NewActor(e.Env, "ally", 465, world.Tile{X: 12, Y: 12})
			ally.SetAlignment(npc.Good)
			ally.SetFlag(npc.InParty)
			rogue := npc.NewActor(e.Env, "rogue", 465, world.Tile{X: 14, Y: 12})
			rogue.SetTarget(ally, false)
			npc.NewActor(e.Env, "idler", 465, world.Tile{X: 14, Y: 14})
			return []*npc.Actor{rogue}
		}},
		{"target of the leader", func(e *testEnv, knight *npc.Actor) []*npc.Actor {
			leader := npc.NewActor(e.Env, "leader", 465, world.Tile{X: 12, Y: 12})
			leader.SetAlignment(npc.Good)
			knight.SetLeader(leader)
			rogue := npc.NewActor(e.Env, "rogue", 465, world.Tile{X: 15, Y: 12})
			rogue.SetScheduleType(npc.Combat)
			leader.SetTarget(rogue, false)
			return []*npc.Actor{rogue}
		}},
		{"leader target not fighting", func(e *testEnv, knight *npc.Actor) []*npc.Actor {
			leader := npc.NewActor(e.Env, "leader", 465, world.Tile{X: 12, Y: 12})
			leader.SetAlignment(npc.Good)
			knight.SetLeader(leader)
			rogue := npc.NewActor(e.Env, "rogue", 465, world.Tile{X: 15, Y: 12})
			leader.SetTarget(rogue, false)
			return nil
		}},
		{"sleeping enemy as a last resort", func(e *testEnv, knight *npc.Actor) []*npc.Actor {
			orc := npc.NewActor(e.Env, "orc", 465, world.Tile{X: 15, Y: 12})
			orc.SetAlignment(npc.Evil)
			orc.SetFlag(npc.Asleep)
			return []*npc.Actor{orc}
		}},
		{"awake enemy before sleeping ones", func(e *testEnv, knight *npc.Actor) []*npc.Actor {
			orc := npc.NewActor(e.Env, "orc", 465, world.Tile{X: 15, Y: 12})
			orc.SetAlignment(npc.Evil)
			orc.SetFlag(npc.Asleep)
			troll := npc.NewActor(e.Env, "troll", 465, world.Tile{X: 17, Y: 12})
			troll.SetAlignment(npc.Evil)
			return []*npc.Actor{troll}
		}},
	}
	for _, test := range testData {
		t.Run(test.name, func(t *testing.T) {
			e := newTestEnv()
			knight := npc.NewActor(e.Env, "knight", 465, world.Tile{X: 10, Y: 12})
			knight.SetAlignment(npc.Good)
			knight.SetFlag(npc.InParty)
			exp := refIDs(nil)
			for _, o := range test.setup(e, knight) {
				exp = append(exp, o.ID())
			}

			c := newCombat(e.m, knight, npc.Loiter)
			c.findOpponents()
			if diff := pretty.Diff(refIDs(c.Opponents()), exp); len(diff) > 0 {
				t.Errorf("unexpected opponents: %v", diff)
			}
		})
	}
}

func TestFleeNeverStrikes(t *testing.T) {
	e := newTestEnv()
	knight, brute, _ := fighters(e)
	brute.Move(world.Tile{X: 11, Y: 12})
	knight.SetHealth(2)
	knight.SetAttackMode(npc.Flee)
	knight.SetTarget(brute, false)

	c := newCombat(e.m, knight, npc.Loiter)
	c.state = approach
	c.dex = 2 * dexToAttack
	for i := 0; i < 3; i++ {
		c.WhatNow()
		if c.state == strike || c.state == fire {
			t.Fatalf("expected a fleeing actor not to attack, got %s", c.state)
		}
	}
	if !knight.Flag(npc.Fleeing) {
		t.Errorf("expected the actor to be fleeing")
	}
	if c.fleed != 3 {
		t.Errorf("expected 3 flights, got %d", c.fleed)
	}
}

func TestWeakActorStartsFleeing(t *testing.T) {
	e := newTestEnv()
	knight, _, _ := fighters(e)
	knight.SetHealth(2)

	c := newCombat(e.m, knight, npc.Loiter)
	c.state = approach
	c.WhatNow()
	if knight.AttackMode() != npc.Flee {
		t.Errorf("expected the attack mode to switch to flee, got %s", knight.AttackMode())
	}
	if knight.Target() == nil {
		t.Errorf("expected a target to flee from")
	}
	if c.fleed != 1 {
		t.Errorf("expected one flight, got %d", c.fleed)
	}
}

func TestCantDieDoesNotFlee(t *testing.T) {
	e := newTestEnv()
	knight, _, _ := fighters(e)
	knight.SetHealth(2)
	knight.SetFlag(npc.CantDie)
	knight.SetAttackMode(npc.Flee)

	c := newCombat(e.m, knight, npc.Loiter)
	c.state = approach
	c.WhatNow()
	if knight.AttackMode() != npc.Nearest {
		t.Errorf("expected the attack mode to return to nearest, got %s", knight.AttackMode())
	}
	if c.fleed != 0 {
		t.Errorf("expected no flight, got %d", c.fleed)
	}
}

func TestGiveUp(t *testing.T) {
	testData := []struct {
		name  string
		party bool
		align npc.Alignment
		exp   npc.ScheduleType
	}{
		{"party", true, npc.Good, npc.FollowAvatar},
		{"good", false, npc.Good, npc.Patrol},
		// Nobody to switch to: the actor walks off and stays in combat.
		{"evil", false, npc.Evil, npc.Combat},
	}
	for _, test := range testData {
		t.Run(test.name, func(t *testing.T) {
			e := newTestEnv()
			a := npc.NewActor(e.Env, "squire", 465, world.Tile{X: 10, Y: 12})
			a.SetAlignment(test.align)
			if test.party {
				a.SetFlag(npc.InParty)
			}
			c := newCombat(e.m, a, npc.Patrol)
			a.SetSchedule(c)
			c.failures = maxFailures
			// No opponent in sight: one more failure.
			c.WhatNow()
			if a.ScheduleType() != test.exp {
				t.Errorf("expected %s, got %s", test.exp, a.ScheduleType())
			}
		})
	}
}

func TestGiveUpFollowsLeader(t *testing.T) {
	e := newTestEnv()
	leader := npc.NewActor(e.Env, "leader", 465, world.Tile{X: 22, Y: 12})
	leader.SetAlignment(npc.Good)
	a := npc.NewActor(e.Env, "squire", 465, world.Tile{X: 10, Y: 12})
	a.SetAlignment(npc.Good)
	a.SetFlag(npc.InParty)
	a.SetLeader(leader)

	c := newCombat(e.m, a, npc.Patrol)
	a.SetSchedule(c)
	c.failures = maxFailures
	c.WhatNow()
	if a.ScheduleType() != npc.FollowAvatar {
		t.Fatalf("expected to follow, got %s", a.ScheduleType())
	}
	if d := a.Dest().Distance(leader.Tile()); d > 6 {
		t.Errorf("expected to head for the leader at %s, going to %s", leader.Tile(), a.Dest())
	}
}
