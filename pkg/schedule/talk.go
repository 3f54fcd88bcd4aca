package schedule

import (
	"github.com/cockroachdb/cockroach/pkg/util/log"
	"github.com/wonst719/exult-sub000/pkg/npc"
	"github.com/wonst719/exult-sub000/pkg/world"
)

var (
	talkBarks   = []string{"Avatar!", "A word, please!", "I must speak with thee!"}
	arrestBarks = []string{"Halt!", "Stop, in the name of the law!", "Thou art under arrest!"}
)

// talkRetry is how long a talker waits after a conversation before
// seeking the avatar again.
const talkRetry = 10000

// talk walks up to the avatar and starts a conversation.
type talk struct {
	base
	barks []string
	fun   int
	ev    world.Event
	phase int
}

func newTalk(m *Maker, a *npc.Actor, prev npc.ScheduleType) *talk {
	return &talk{
		base:  newBase(m, a, npc.Talk, prev),
		barks: talkBarks,
		fun:   a.Traits().Fun,
		ev:    world.DoubleClick,
	}
}

// arrest is a talk with the guard's lines and behavior function.
type arrest struct{ *talk }

func newArrest(m *Maker, a *npc.Actor, prev npc.ScheduleType) *arrest {
	t := newTalk(m, a, prev)
	t.typ = npc.ArrestAvatar
	t.barks = arrestBarks
	t.fun = ArrestUsecode
	return &arrest{t}
}

// Ending implements npc.Schedule: the guard calms down unless a fight
// follows.
func (r *arrest) Ending(newType npc.ScheduleType) {
	if newType != npc.Combat {
		r.npc.SetAlignment(npc.Neutral)
	}
}

// WhatNow implements npc.Schedule.
func (t *talk) WhatNow() {
	a := t.npc
	env := t.env()
	speed := t.std()
	av := env.AvatarObj()
	if av == nil {
		a.Start(speed, 5000)
		return
	}
	if t.phase < 3 && a.DistanceTo(av) < 6 {
		t.phase = 3
		a.Start(speed, 250)
		return
	}
	if avActor, ok := av.(*npc.Actor); ok && avActor.Flag(npc.Invisible) && !a.Flag(npc.SeeInvisible) {
		t.phase = 0
		a.Start(speed, 5000)
		return
	}
	switch t.phase {
	case 0:
		if a.DistanceTo(av) > 50 {
			a.Start(speed, 5000)
			return
		}
		act, ok := npc.NewApproach(a, av, 5, 0, speed)
		if !ok {
			log.VEventf(t.ctx(), 2, "no path to %s", av.Name())
			a.Start(speed, 500)
			return
		}
		t.maybeBark(av)
		a.SetAction(act)
		a.Start(speed, 0)
		t.phase++
	case 1, 2:
		t.maybeBark(av)
		pos, dest := a.Tile(), av.Tile()
		a.WalkToTile(pos.Add(sign(dest.X-pos.X), sign(dest.Y-pos.Y), 0), speed, 500, 0)
		t.phase = 3
	case 3:
		if a.DistanceTo(av) > 5 || !straightPath(env, a, av) {
			t.phase = 0
			a.Start(speed, 500)
			return
		}
		a.ChangeFrame(npc.DirFrame(int(world.DirTowards(a.Tile(), av.Tile())), npc.Standing))
		t.phase++
		a.Start(speed, 250)
	case 4:
		a.Stop()
		log.VEventf(t.ctx(), 1, "talking to %s", av.Name())
		a.Trace("talk", av.Name())
		if env.Usecode != nil && t.fun != 0 {
			env.Usecode.Call(t.fun, a, t.ev)
		}
		// The conversation may have changed the schedule.
		if t.current() {
			t.phase = 0
			a.Start(speed, talkRetry)
		}
	}
}

// current is true while t is still the actor's schedule.
func (t *talk) current() bool {
	switch s := t.npc.Schedule().(type) {
	case *talk:
		return s == t
	case *arrest:
		return s.talk == t
	}
	return false
}

func (t *talk) maybeBark(av world.Object) {
	if straightPath(t.env(), t.npc, av) && t.rnd(3) == 0 {
		t.say(t.barks)
	}
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
