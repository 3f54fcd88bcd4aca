// Package schedule implements the high-level behaviors of actors:
// fighting, patrolling, sleeping, working and so on. A Maker builds
// them on demand and is installed into the npc environment.
package schedule

import (
	"context"

	"github.com/cockroachdb/cockroach/pkg/util/log"
	"github.com/cockroachdb/logtags"
	"github.com/wonst719/exult-sub000/pkg/npc"
	"github.com/wonst719/exult-sub000/pkg/script"
	"github.com/wonst719/exult-sub000/pkg/tqueue"
	"github.com/wonst719/exult-sub000/pkg/world"
)

// Behavior function numbers called by schedules.
const (
	SleepUsecode  = 0x622
	ArrestUsecode = 0x625
	SummonUsecode = 0x685
)

// PathShape is the shape of patrol path markers. The frame is the path
// number and the quality the action taken on arrival.
const PathShape = shapePath

// Shapes the schedules look for.
const (
	shapeBedEW       = 696
	shapeBedNS       = 1011
	shapeBedEW2      = 363
	shapeBedNS2      = 312
	shapeChair       = 873
	shapeBench       = 292
	shapeFood        = 377
	shapePlate       = 717
	shapePath        = 607
	shapeHammer      = 623
	shapeBook        = 642
	shapeDeskItem    = 675
	shapeArcheryTarg = 735
	shapeDummy       = 860
	shapeDuelBow     = 597
	shapeDuelArrows  = 722
	shapeDuelSword   = 602
)

var chairShapes = []int{shapeChair, shapeBench}

// base carries what every schedule shares.
type base struct {
	m        *Maker
	npc      *npc.Actor
	typ      npc.ScheduleType
	prev     npc.ScheduleType
	startPos world.Tile

	streetTime     tqueue.Time
	streetFailures int
}

func newBase(m *Maker, a *npc.Actor, t, prev npc.ScheduleType) base {
	return base{m: m, npc: a, typ: t, prev: prev, startPos: a.Tile()}
}

func (b *base) Type() npc.ScheduleType             { return b.typ }
func (b *base) PrevType() npc.ScheduleType         { return b.prev }
func (b *base) OnDormant()                         { b.npc.SetAction(nil) }
func (b *base) Ending(npc.ScheduleType)            {}
func (b *base) SetWeapon(bool)                     {}
func (b *base) SetBed(world.Object)                {}
func (b *base) Busy() bool                         { return false }
func (b *base) env() *npc.Env                      { return b.npc.Env() }
func (b *base) std() int                           { return b.npc.Env().StdDelay }
func (b *base) now() tqueue.Time                   { return b.npc.Env().Now() }
func (b *base) objs() *world.Objects               { return b.npc.Env().Objs }
func (b *base) ctx() context.Context               { return logtags.AddTag(b.npc.Ctx(), "sched", b.typ.String()) }
func (b *base) say(lines []string)                 { b.npc.Say(lines[b.rnd(len(lines))]) }
func (b *base) closest(shapes []int, dist int) world.Object {
	return b.objs().FindClosest(b.npc.Tile(), shapes, dist)
}

// rnd returns a random number in [0, n), or 0 when n is not positive.
func (b *base) rnd(n int) int {
	if n <= 0 {
		return 0
	}
	return b.env().Rand.Intn(n)
}

// canSpeak is false for monsters.
func (b *base) canSpeak() bool { return !b.npc.Traits().Monster }

// onScreen reports whether t is within the visible area enlarged by
// margin tiles. Without a map everything is visible.
func onScreen(env *npc.Env, t world.Tile, margin int) bool {
	if env.Map == nil {
		return true
	}
	return env.Map.Screen().Enlarge(margin).Contains(t)
}

// straightPath reports whether nothing stands between two objects.
func straightPath(env *npc.Env, from, to world.Object) bool {
	if env.Paths == nil {
		return true
	}
	return env.Paths.StraightLineClear(from.Tile(), to.Tile())
}

// findSpot looks for a free tile near t.
func findSpot(env *npc.Env, t world.Tile, dist int) (world.Tile, bool) {
	if env.Map == nil {
		return t, true
	}
	return env.Map.FindSpot(t, dist)
}

// pathTo creates a walk to within dist of dest, or nil.
func (b *base) pathTo(dest world.Tile, dist int) npc.Action {
	w, ok := npc.NewPathWalk(b.npc, world.NoTile, dest, dist, true, b.std(), 0)
	if !ok {
		return nil
	}
	return w
}

// walkTo walks to within dist of an object and then carries out
// whenThere. It returns false if there is no path.
func (b *base) walkTo(obj world.Object, dist int, whenThere npc.Action, delay int) bool {
	if b.npc.DistanceTo(obj) <= dist {
		if whenThere == nil {
			return true
		}
		b.npc.SetAction(whenThere)
		b.npc.Start(b.std(), delay)
		return true
	}
	walk := b.pathTo(obj.Tile(), dist)
	if walk == nil {
		return false
	}
	b.npc.SetAction(npc.NewSequence(0, walk, whenThere))
	b.npc.Start(b.std(), delay)
	return true
}

// setActionSequence walks to dest, or gets there somehow, and then
// carries out whenThere.
func (b *base) setActionSequence(dest world.Tile, whenThere npc.Action, fromOffscreen bool, delay int) {
	b.npc.SetAction(npc.NewActionSequence(b.npc, dest, whenThere, fromOffscreen))
	b.npc.Start(250, delay)
}

// stand makes sure the actor is on its feet.
func (b *base) stand() {
	if b.npc.Frame()&0xf != npc.Standing {
		b.npc.ChangeFrame(npc.DirFrame(b.npc.Facing(), npc.Standing))
	}
}

func (b *base) sitting() bool { return b.npc.Frame()&0xf == npc.SitFrame }

// dirFrames turns poses into frames facing dir.
func dirFrames(dir world.Dir, poses ...int) []int {
	res := make([]int, len(poses))
	for i, p := range poses {
		res[i] = npc.DirFrame(int(dir), p)
	}
	return res
}

// runScript starts a script for the actor.
func (b *base) runScript(delay int, args ...interface{}) *script.Script {
	return b.env().Run(b.npc, delay, args...)
}

// seekFoes looks for a visible enemy within 20 tiles. When one is
// found the actor switches to combat and the current schedule is gone.
func (b *base) seekFoes() bool {
	a := b.npc
	env := b.env()
	align := a.EffectiveAlignment()
	seeInvisible := a.Flag(npc.SeeInvisible)
	for _, o := range env.ActorsNear(a.Tile(), 20) {
		if o == a || o.Flag(npc.Asleep) || (!seeInvisible && o.Flag(npc.Invisible)) {
			continue
		}
		if !straightPath(env, a, o) {
			continue
		}
		if align.Hostile(o.EffectiveAlignment()) {
			log.VEventf(b.ctx(), 1, "spotted %s", o.Name())
			a.SetScheduleType(npc.Combat)
			a.SetTarget(o, false)
			return true
		}
	}
	return false
}

var (
	dayShapes   = []int{290, 291, 338, 997, 526}
	nightShapes = []int{322, 372, 336, 997, 889}
)

// tryStreetMaintenance looks for lamps to light or shutters to open
// or close. When it finds one it can reach, the actor switches to the
// street maintenance schedule and the current schedule is gone.
func (b *base) tryStreetMaintenance() bool {
	a := b.npc
	env := b.env()
	now := b.now()
	if now < b.streetTime || a.Traits().Monster {
		return false
	}
	b.streetTime = now + 30000 + tqueue.Time(b.streetFailures*5000)
	var shapes []int
	switch hour := env.Hour(); {
	case hour >= 9 && hour < 18:
		shapes = dayShapes
	case hour >= 18 || hour < 6:
		shapes = nightShapes
	default:
		// Dusk or dawn.
		return false
	}
	if env.Map != nil {
		scr := env.Map.Screen()
		if !scr.Enlarge(scr.W / 4).Contains(a.Tile()) {
			return false
		}
	}
	for _, shape := range shapes {
		for _, obj := range env.Objs.FindNearby(a.Tile(), shape, 20) {
			w, ok := npc.NewPathWalk(a, world.NoTile, obj.Tile(), 1, true, b.std(), 0)
			if !ok {
				b.streetFailures++
				continue
			}
			log.VEventf(b.ctx(), 1, "street maintenance at %s", obj)
			a.SetSchedule(newStreetMaintenance(b.m, a, w, obj, b.typ))
			return true
		}
	}
	return false
}

// tryProximityUsecode calls the actor's behavior function, one time in
// odds, through a script so that it does not run from within the
// schedule itself.
func (b *base) tryProximityUsecode(odds int) bool {
	fun := b.npc.Traits().Fun
	if fun == 0 || b.rnd(odds) != 0 {
		return false
	}
	b.runScript(b.std(), script.DontHalt, script.Usecode2, fun, int(world.NPCProximity))
	b.npc.Start(b.std(), 500+b.rnd(1000))
	return true
}

// nearest returns the object closest to the actor.
func (b *base) nearest(objs []world.Object) world.Object {
	var best world.Object
	bestDist := 1000
	for _, o := range objs {
		if d := b.npc.DistanceTo(o); d < bestDist {
			best, bestDist = o, d
		}
	}
	return best
}
