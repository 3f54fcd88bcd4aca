package schedule

import (
	"sort"

	"github.com/cockroachdb/cockroach/pkg/util/log"
	"github.com/wonst719/exult-sub000/pkg/npc"
	"github.com/wonst719/exult-sub000/pkg/script"
	"github.com/wonst719/exult-sub000/pkg/world"
)

var bedShapes = []int{shapeBedEW, shapeBedNS, shapeBedEW2, shapeBedNS2}

// Bed frames from spreadFirst to spreadLast show bedspreads: odd
// frames are made beds, even ones unmade.
const (
	spreadFirst = 3
	spreadLast  = 16
)

// sleep goes to the closest free bed, or lies down on the spot.
type sleep struct {
	base
	bed      world.Ref
	state    int
	floorLoc world.Tile
	napTime  bool
}

func newSleep(m *Maker, a *npc.Actor, prev npc.ScheduleType) *sleep {
	return &sleep{base: newBase(m, a, npc.Sleep, prev), floorLoc: world.NoTile}
}

// bedOccupied is true if someone other than a lies on bed.
func bedOccupied(env *npc.Env, bed world.Object, a *npc.Actor) bool {
	for _, o := range env.ActorsNear(bed.Tile(), 2) {
		if o != a && o.Tile().X == bed.Tile().X && o.Tile().Y == bed.Tile().Y {
			return true
		}
	}
	return false
}

// SetBed implements npc.Schedule.
func (s *sleep) SetBed(bed world.Object) {
	s.npc.SetAction(nil)
	s.bed = world.RefTo(bed)
	s.state = 0
	s.napTime = true
}

// WhatNow implements npc.Schedule.
func (s *sleep) WhatNow() {
	a := s.npc
	env := s.env()
	bed := s.bed.Get(env.Objs)
	if bed != nil && s.state <= 1 && bedOccupied(env, bed, a) {
		bed = nil
		s.bed = world.Ref{}
		s.state = 0
		a.Stop()
	}
	if bed == nil && s.state == 0 && !a.Flag(npc.Asleep) {
		best := 100
		for _, shape := range bedShapes {
			for _, b := range env.Objs.FindNearby(a.Tile(), shape, 24) {
				if d := a.DistanceTo(b); d < best && !bedOccupied(env, b, a) {
					best, bed = d, b
				}
			}
		}
		s.bed = world.RefTo(bed)
	}
	if bed == nil && a.IsAvatar() {
		a.StartStd()
		return
	}
	if a.Frame()&0xf == npc.SleepFrame {
		return
	}
	switch s.state {
	case 0:
		if bed == nil {
			// Lie down right here.
			a.ChangeFrame(a.Frame()&0x30 | npc.SleepFrame)
			a.SetFlag(npc.Asleep)
			a.Trace("sleep", "floor")
			return
		}
		s.state = 1
		if w := s.pathTo(bed.Tile(), 3); w != nil {
			a.SetAction(w)
		}
		a.Start(200, 0)
	case 1:
		a.Stop()
		if a.DistanceTo(bed) > 3 {
			s.state = 0
			a.Start(200, 0)
			return
		}
		dir := world.North
		if bed.Shape() == shapeBedEW || bed.Shape() == shapeBedEW2 {
			dir = world.West
		}
		a.ChangeFrame(npc.DirFrame(int(dir), npc.SleepFrame))
		s.floorLoc = a.Tile()
		env.Scripts.Terminate(bed)
		if f := bed.Frame(); f >= spreadFirst && f < spreadLast && f%2 == 1 {
			// Unmake the bed.
			bed.SetFrame(f + 1)
		}
		a.Move(bed.Tile())
		a.SetFlag(npc.Asleep)
		a.Trace("sleep", bed.Name())
		s.state = 2
		if s.napTime && env.Usecode != nil {
			env.Usecode.Call(SleepUsecode, bed, world.DoubleClick)
		}
	}
}

// Ending implements npc.Schedule: the actor gets out of bed and makes
// it, unless it goes on sleeping or waiting.
func (s *sleep) Ending(newType npc.ScheduleType) {
	if newType == npc.Wait || newType == npc.Sleep {
		return
	}
	a := s.npc
	env := s.env()
	makeBed := false
	dir := world.North
	if bed := s.bed.Get(env.Objs); bed != nil && a.Frame()&0xf == npc.SleepFrame && a.DistanceTo(bed) < 8 {
		if !s.floorLoc.Valid() {
			s.floorLoc = a.Tile()
		}
		if pos, ok := findSpot(env, s.floorLoc, 6); ok {
			s.floorLoc = pos
		}
		f := bed.Frame()
		if newType != npc.Combat && f >= spreadFirst && f <= spreadLast && f%2 == 0 && !bedOccupied(env, bed, a) {
			makeBed = true
			env.Run(bed, 0, script.Finish, script.DelayTicks, 3, script.Frame, f-1)
			dir = world.DirTowards(s.floorLoc, bed.Tile())
		}
	}
	if s.floorLoc.Valid() {
		a.Move(s.floorLoc)
	}
	a.ClearFlag(npc.Asleep)
	a.ChangeFrame(npc.DirFrame(a.Facing(), npc.Standing))
	if makeBed {
		log.VEventf(s.ctx(), 1, "making the bed")
		s.runScript(0, script.DontHalt, script.FaceDir, dir,
			script.NPCFrame+script.Opcode(npc.Ready), script.DelayTicks, 1,
			script.NPCFrame+script.Opcode(npc.Raise1), script.DelayTicks, 1,
			script.NPCFrame+script.Opcode(npc.Ready), script.DelayTicks, 1,
			script.NPCFrame+script.Opcode(npc.Standing))
	}
	s.state = 0
}

// Where actors sit by chair frame: north, east, south, west.
var sitOffsets = [4][2]int{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}

var chairThief = []string{"Hey, where is my chair?", "Who took my seat?"}

func sitLoc(chair world.Object) world.Tile {
	off := sitOffsets[chair.Frame()%4]
	return chair.Tile().Add(off[0], off[1], 0)
}

// seatTaken is true if someone other than a sits at loc or the spot
// is blocked.
func seatTaken(env *npc.Env, loc world.Tile, a *npc.Actor) bool {
	for _, o := range env.ActorsNear(loc, 0) {
		if o == a {
			continue
		}
		if p := o.Frame() & 0xf; p == npc.SitFrame || p == npc.Bow {
			return true
		}
	}
	if a.Tile() == loc {
		return false
	}
	return env.Map != nil && env.Map.Blocked(loc)
}

// sitDown walks to a chair and sits on it. Without a chair it picks
// the closest free one. It returns the chair, or nil.
func (b *base) sitDown(chair world.Object, delay int) world.Object {
	a := b.npc
	env := b.env()
	if chair == nil {
		var chairs []world.Object
		for _, shape := range chairShapes {
			chairs = append(chairs, env.Objs.FindNearby(a.Tile(), shape, 24)...)
		}
		sort.SliceStable(chairs, func(i, j int) bool {
			return a.DistanceTo(chairs[i]) < a.DistanceTo(chairs[j])
		})
		for _, c := range chairs {
			if seatTaken(env, sitLoc(c), a) {
				continue
			}
			if _, ok := npc.NewPathWalk(a, world.NoTile, c.Tile(), 1, true, 0, 0); ok {
				chair = c
				break
			}
		}
		if chair == nil {
			return nil
		}
	} else if seatTaken(env, sitLoc(chair), a) {
		return nil
	}
	loc, chairLoc := sitLoc(chair), chair.Tile()
	ref := world.RefTo(chair)
	dir := world.Dir(2 * (chair.Frame() % 4))
	sit := npc.NewFrames(b.std(), dirFrames(dir, npc.Bow, npc.SitFrame)...).WithGuard(func(a *npc.Actor) bool {
		if seatTaken(env, loc, a) {
			return false
		}
		if c := ref.Get(env.Objs); c == nil || c.Tile() != chairLoc {
			b.say(chairThief)
			return false
		}
		return true
	})
	b.setActionSequence(loc, sit, false, delay)
	return chair
}

// sit sits on a chair and stays there.
type sit struct {
	base
	chair world.Ref
	sat   bool
}

func newSit(m *Maker, a *npc.Actor, t, prev npc.ScheduleType) *sit {
	return &sit{base: newBase(m, a, t, prev)}
}

// WhatNow implements npc.Schedule.
func (s *sit) WhatNow() {
	a := s.npc
	chair := s.chair.Get(s.objs())
	if chair != nil && s.sitting() && a.Tile().Distance2D(chair.Tile()) <= 1 {
		return
	}
	delay := 0
	if s.sat {
		// Got up: wait a while.
		delay = 1000 + s.rnd(1000)
	}
	chair = s.sitDown(chair, delay)
	s.chair = world.RefTo(chair)
	if chair == nil {
		a.Start(200, 1000)
		return
	}
	s.sat = true
}

var (
	munchLines    = []string{"Mmm, good!", "Delicious.", "*munch*"}
	moreFoodLines = []string{"More food, please!", "Where is my meal?"}
)

type eatState int

const (
	findPlate eatState = iota
	serveFood
	eating
)

// eat sits down and eats. At an inn the food is brought by waiters;
// otherwise it appears on the actor's plate.
type eat struct {
	base
	inn   bool
	state eatState
	plate world.Ref
}

func newEat(m *Maker, a *npc.Actor, t, prev npc.ScheduleType) *eat {
	return &eat{base: newBase(m, a, t, prev), inn: t == npc.EatAtInn}
}

func (e *eat) nearbyFood() []world.Object {
	return e.objs().FindNearby(e.npc.Tile(), shapeFood, 2)
}

// WhatNow implements npc.Schedule.
func (e *eat) WhatNow() {
	a := e.npc
	if !e.sitting() {
		if e.sitDown(nil, 0) == nil {
			a.Start(250, 5000)
		}
		return
	}
	delay := 5000 + e.rnd(12000)
	if e.inn {
		if food := e.nearest(e.nearbyFood()); food != nil {
			if e.rnd(5) == 0 {
				e.env().Remove(food)
			}
			if e.canSpeak() && e.rnd(4) != 0 {
				e.say(munchLines)
			}
		} else if e.canSpeak() && e.rnd(4) != 0 {
			e.say(moreFoodLines)
		}
		a.Start(250, delay)
		return
	}
	switch e.state {
	case eating:
		if food := e.nearest(e.nearbyFood()); food != nil && e.rnd(5) == 0 {
			e.env().Remove(food)
		}
	case findPlate:
		e.state = serveFood
		delay = 0
		e.plate = world.Ref{}
		for _, p := range e.objs().FindNearby(a.Tile(), shapePlate, 1) {
			if p.Tile().Z/5 == a.Tile().Z/5 {
				e.plate = world.RefTo(p)
				break
			}
		}
	case serveFood:
		e.state = eating
		p := e.plate.Get(e.objs())
		if p == nil {
			e.state = findPlate
			break
		}
		food := world.NewItem("food", shapeFood, 31, p.Tile().Add(0, 0, 1))
		food.SetFrame(e.rnd(31))
		e.objs().Add(food)
	}
	a.Start(250, delay)
}

// Ending implements npc.Schedule: leftovers are cleared away.
func (e *eat) Ending(npc.ScheduleType) {
	for _, food := range e.nearbyFood() {
		e.env().Remove(food)
		if e.inn && e.canSpeak() {
			e.say(munchLines)
		}
	}
}
