package schedule

import (
	"context"

	"github.com/cockroachdb/cockroach/pkg/util/log"
	"github.com/wonst719/exult-sub000/pkg/npc"
	"github.com/wonst719/exult-sub000/pkg/world"
)

// Maker builds schedules by type. It implements npc.ScheduleMaker.
type Maker struct {
	// Behaviors holds the externally defined behavior classes by name.
	Behaviors map[string]*Behavior
	// Scripted maps the scripted schedule types to behavior class
	// names.
	Scripted map[npc.ScheduleType]string

	// battleMusic is the last time battle music was started.
	battleMusic int64
	// paused is true while combat is paused.
	paused bool
}

var _ npc.ScheduleMaker = (*Maker)(nil)

// NewMaker creates a maker without behavior classes.
func NewMaker() *Maker {
	return &Maker{
		Behaviors:   make(map[string]*Behavior),
		Scripted:    make(map[npc.ScheduleType]string),
		battleMusic: -battleMusicGap,
	}
}

// Install makes env build its schedules with m.
func (m *Maker) Install(env *npc.Env) { env.Schedules = m }

// Define registers a behavior class and returns the schedule type
// that selects it. Redefining a class keeps its type.
func (m *Maker) Define(b *Behavior) npc.ScheduleType {
	m.Behaviors[b.Name] = b
	for t, name := range m.Scripted {
		if name == b.Name {
			return t
		}
	}
	t := npc.FirstScripted + npc.ScheduleType(len(m.Scripted))
	m.Scripted[t] = b.Name
	return t
}

// Lookup resolves a schedule name: built-in first, then the behavior
// classes.
func (m *Maker) Lookup(name string) (npc.ScheduleType, bool) {
	if t, ok := npc.ParseScheduleType(name); ok {
		return t, true
	}
	for t, n := range m.Scripted {
		if n == name {
			return t, true
		}
	}
	return npc.NoSchedule, false
}

// Make implements npc.ScheduleMaker.
func (m *Maker) Make(a *npc.Actor, t, prev npc.ScheduleType) npc.Schedule {
	prepareHands(a, t)
	switch t {
	case npc.Combat:
		return newCombat(m, a, prev)
	case npc.Duel:
		return newDuel(m, a, prev)
	case npc.HorizPace:
		return newPace(m, a, t, prev, true)
	case npc.VertPace:
		return newPace(m, a, t, prev, false)
	case npc.Talk:
		return newTalk(m, a, prev)
	case npc.ArrestAvatar:
		return newArrest(m, a, prev)
	case npc.Loiter:
		return newLoiter(m, a, t, prev, loiterDist, loiterOdds)
	case npc.TendShop:
		return newLoiter(m, a, t, prev, tendShopDist, tendShopOdds)
	case npc.Wander:
		return newWander(m, a, prev)
	case npc.Stand, npc.Wait:
		return newWait(m, a, t, prev)
	case npc.Sleep:
		return newSleep(m, a, prev)
	case npc.Sit:
		return newSit(m, a, t, prev)
	case npc.Eat, npc.EatAtInn:
		return newEat(m, a, t, prev)
	case npc.Patrol:
		return newPatrol(m, a, prev)
	case npc.DeskWork:
		return newDesk(m, a, prev)
	case npc.Blacksmith:
		return newForge(m, a, prev)
	case npc.Bake:
		return newBake(m, a, prev)
	case npc.Sew:
		return newSew(m, a, prev)
	case npc.Waiter:
		return newWaiter(m, a, prev)
	case npc.FollowAvatar:
		return newFollow(m, a, prev)
	case npc.StreetMaintenance:
		// Only meaningful with a target: see tryStreetMaintenance.
		return newLoiter(m, a, npc.Loiter, prev, loiterDist, loiterOdds)
	}
	if t >= npc.FirstScripted {
		name, ok := m.Scripted[t]
		b := m.Behaviors[name]
		if !ok || b == nil {
			log.Warningf(a.Ctx(), "undefined behavior class %s, loitering instead", t)
			return newLoiter(m, a, npc.Loiter, prev, loiterDist, loiterOdds)
		}
		return newScripted(m, a, t, prev, b)
	}
	// The remaining built-in activities look like loitering.
	return newLoiter(m, a, t, prev, loiterDist, loiterOdds)
}

// prepareHands readies a weapon for the schedules that carry one
// and puts it away for those that need free hands.
func prepareHands(a *npc.Actor, t npc.ScheduleType) {
	switch t {
	case npc.HorizPace, npc.VertPace, npc.Hound, npc.Preach, npc.Patrol:
		a.ReadyBestWeapon()
	case npc.TendShop, npc.Dance, npc.Eat, npc.Sit, npc.Shy, npc.Thief,
		npc.Waiter, npc.KidGames, npc.EatAtInn, npc.DeskWork:
		a.EmptyHands()
	case npc.Sleep:
		// Party members keep their weapons at hand.
		if !a.InParty() && !a.IsAvatar() {
			a.EmptyHands()
		}
	}
}

// WalkTo implements npc.ScheduleMaker.
func (m *Maker) WalkTo(a *npc.Actor, dest world.Tile, next npc.ScheduleType, delay int) npc.Schedule {
	return newWalkTo(m, a, dest, next, delay)
}

// PauseCombat suspends the time queue, as when the player pauses
// combat.
func (m *Maker) PauseCombat(ctx context.Context, env *npc.Env) {
	if m.paused {
		return
	}
	m.paused = true
	env.Queue.Pause(env.Now())
	log.Infof(ctx, "combat paused")
}

// ResumeCombat resumes the time queue after PauseCombat.
func (m *Maker) ResumeCombat(ctx context.Context, env *npc.Env) {
	if !m.paused {
		return
	}
	m.paused = false
	env.Queue.Resume(env.Now())
	log.Infof(ctx, "combat resumed")
}

// CombatPaused is true between PauseCombat and ResumeCombat.
func (m *Maker) CombatPaused() bool { return m.paused }
