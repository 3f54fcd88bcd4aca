// Package npc implements actors and the low-level actions they carry
// out on behalf of their schedules.
package npc

import (
	"context"
	"math/rand"

	"github.com/wonst719/exult-sub000/pkg/script"
	"github.com/wonst719/exult-sub000/pkg/tqueue"
	"github.com/wonst719/exult-sub000/pkg/world"
)

// DefaultStdDelay is the length of a tick in milliseconds.
const DefaultStdDelay = 100

// DefaultTicksPerMinute converts game minutes to ticks.
const DefaultTicksPerMinute = 25

// Schedule is the high-level behavior of an actor. Exactly one is
// active per actor at a time.
type Schedule interface {
	// Type returns the schedule type.
	Type() ScheduleType
	// WhatNow is called when the actor has nothing to do.
	WhatNow()
	// OnDormant is called instead of WhatNow while the actor's region
	// is not loaded. It must not move the actor.
	OnDormant()
	// Ending is called on the outgoing schedule, before the new one is
	// created.
	Ending(newType ScheduleType)
	// SetWeapon tells the schedule the readied weapon changed.
	SetWeapon(removed bool)
	// SetBed assigns a bed to a sleeping actor.
	SetBed(bed world.Object)
	// Busy is true while the schedule is in the middle of something
	// it should not be pulled away from.
	Busy() bool
	// PrevType returns the schedule active before this one, or
	// NoSchedule.
	PrevType() ScheduleType
}

// ScheduleMaker builds schedules by type.
type ScheduleMaker interface {
	// Make creates a schedule of the given type for a. prev is the
	// type of the schedule being replaced.
	Make(a *Actor, t ScheduleType, prev ScheduleType) Schedule
	// WalkTo creates the transient schedule walking a to dest before
	// switching to next.
	WalkTo(a *Actor, dest world.Tile, next ScheduleType, delay int) Schedule
}

// Options configures an environment.
type Options struct {
	Map     world.Map
	Paths   world.Pathfinder
	Armory  world.Armory
	Usecode world.Usecode
	Media   world.Presenter
	// Seed initializes the random source.
	Seed           int64
	StdDelay       int
	TicksPerMinute int
	KilledBarks    bool
	// StartHour is the hour of the day at time zero.
	StartHour int
}

// Env is the simulation context shared by every actor: the time queue,
// the object table, the consumed services and the script registry.
type Env struct {
	Ctx            context.Context
	Queue          *tqueue.Queue
	Objs           *world.Objects
	Map            world.Map
	Paths          world.Pathfinder
	Armory         world.Armory
	Usecode        world.Usecode
	Media          world.Presenter
	Scripts        *script.Registry
	Schedules      ScheduleMaker
	Rand           *rand.Rand
	StdDelay       int
	TicksPerMinute int
	StartHour      int

	// Avatar is the player character, if any.
	Avatar world.Ref

	// Trace, when set, is told about noteworthy transitions.
	Trace func(a *Actor, what, detail string)
}

// NewEnv creates an environment around an object table.
func NewEnv(ctx context.Context, objs *world.Objects, opts Options) *Env {
	e := &Env{
		Ctx:            ctx,
		Queue:          tqueue.New(),
		Objs:           objs,
		Map:            opts.Map,
		Paths:          opts.Paths,
		Armory:         opts.Armory,
		Usecode:        opts.Usecode,
		Media:          opts.Media,
		Rand:           rand.New(rand.NewSource(opts.Seed)),
		StdDelay:       opts.StdDelay,
		TicksPerMinute: opts.TicksPerMinute,
		StartHour:      opts.StartHour,
	}
	if e.StdDelay <= 0 {
		e.StdDelay = DefaultStdDelay
	}
	if e.TicksPerMinute <= 0 {
		e.TicksPerMinute = DefaultTicksPerMinute
	}
	if e.Armory == nil {
		e.Armory = world.TableArmory{}
	}
	e.Scripts = script.NewRegistry(&script.Host{
		Ctx:            ctx,
		Queue:          e.Queue,
		Objs:           objs,
		Usecode:        e.Usecode,
		Media:          e.Media,
		Avatar:         e.AvatarObj,
		RemoveObject:   e.Remove,
		StdDelay:       e.StdDelay,
		TicksPerMinute: e.TicksPerMinute,
		KilledBarks:    opts.KilledBarks,
	})
	return e
}

// Now returns the current game time.
func (e *Env) Now() tqueue.Time { return e.Queue.Now() }

// Hour returns the hour of the game day, 0 to 23.
func (e *Env) Hour() int {
	perHour := tqueue.Time(e.StdDelay * e.TicksPerMinute * 60)
	return (e.StartHour + int(e.Now()/perHour)) % 24
}

// AvatarObj returns the player character, or nil.
func (e *Env) AvatarObj() world.Object { return e.Avatar.Get(e.Objs) }

// Actor resolves a reference to an actor.
func (e *Env) Actor(r world.Ref) *Actor {
	a, _ := r.Get(e.Objs).(*Actor)
	return a
}

// Actors returns the live actors in ID order.
func (e *Env) Actors() []*Actor {
	var res []*Actor
	e.Objs.Each(func(o world.Object) bool {
		if a, ok := o.(*Actor); ok {
			res = append(res, a)
		}
		return true
	})
	return res
}

// ActorsNear returns the live actors within dist tiles of t, excluding
// the dead.
func (e *Env) ActorsNear(t world.Tile, dist int) []*Actor {
	var res []*Actor
	for _, a := range e.Actors() {
		if !a.IsDead() && a.Tile().Distance2D(t) <= dist {
			res = append(res, a)
		}
	}
	return res
}

// Remove takes an object out of the world, together with its queue
// entries and scripts.
func (e *Env) Remove(o world.Object) {
	if a, ok := o.(*Actor); ok {
		a.Remove()
		return
	}
	e.Scripts.Terminate(o)
	if t, ok := o.(tqueue.Task); ok {
		e.Queue.RemoveAll(t)
	}
	e.Objs.Remove(o.ID())
}

// Run starts a script for obj. The args follow script.Script.Add.
func (e *Env) Run(obj world.Object, delay int, args ...interface{}) *script.Script {
	s := e.Scripts.New(obj, args...)
	s.Start(delay)
	return s
}

func (e *Env) trace(a *Actor, what, detail string) {
	if e.Trace != nil {
		e.Trace(a, what, detail)
	}
}
