package schedule

import (
	"github.com/cockroachdb/cockroach/pkg/util/log"
	"github.com/wonst719/exult-sub000/pkg/npc"
	"github.com/wonst719/exult-sub000/pkg/tqueue"
	"github.com/wonst719/exult-sub000/pkg/world"
)

const (
	loiterDist   = 12
	loiterOdds   = 12
	tendShopDist = 3
	tendShopOdds = 8

	wanderLeg  = 8
	wanderDist = 16
)

// loiter roams around the spot where it started.
type loiter struct {
	base
	center world.Tile
	dist   int
	odds   int
}

func newLoiter(m *Maker, a *npc.Actor, t, prev npc.ScheduleType, dist, odds int) *loiter {
	l := &loiter{base: newBase(m, a, t, prev), dist: dist}
	l.center = l.startPos
	if t == npc.Loiter || t == npc.TendShop {
		// Other activities sharing this schedule do not greet.
		l.odds = odds
	}
	return l
}

// WhatNow implements npc.Schedule.
func (l *loiter) WhatNow() {
	if l.rnd(3) == 0 && l.tryStreetMaintenance() {
		return
	}
	if l.odds > 0 && l.tryProximityUsecode(l.odds) {
		return
	}
	dest := l.center.Add(l.rnd(2*l.dist)-l.dist, l.rnd(2*l.dist)-l.dist, 0)
	l.npc.WalkToTile(dest, 2*l.std(), l.rnd(2000), 0)
}

// wander roams farther than loiter, along paths.
type wander struct {
	base
	center world.Tile
}

func newWander(m *Maker, a *npc.Actor, prev npc.ScheduleType) *wander {
	w := &wander{base: newBase(m, a, npc.Wander, prev)}
	w.center = w.startPos
	return w
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// WhatNow implements npc.Schedule.
func (w *wander) WhatNow() {
	a := w.npc
	if w.rnd(2) != 0 && w.tryStreetMaintenance() {
		return
	}
	pos := a.Tile().Add(w.rnd(2*wanderLeg)-wanderLeg, w.rnd(2*wanderLeg)-wanderLeg, 0)
	pos.X = clamp(pos.X, w.center.X-wanderDist, w.center.X+wanderDist)
	pos.Y = clamp(pos.Y, w.center.Y-wanderDist, w.center.Y+wanderDist)
	dest, ok := findSpot(w.env(), pos, 4)
	if !ok || !a.WalkPathToTile(world.NoTile, dest, w.std(), w.rnd(2000), 0, 0) {
		a.Start(250, w.rnd(3000))
	}
}

// wait does nothing at all.
type wait struct{ base }

func newWait(m *Maker, a *npc.Actor, t, prev npc.ScheduleType) *wait {
	return &wait{base: newBase(m, a, t, prev)}
}

// WhatNow implements npc.Schedule.
func (w *wait) WhatNow() {}

var (
	closeShutters = []string{"Closing the shutters.", "Time to close up."}
	openShutters  = []string{"Let in some light.", "Opening the shutters."}
	lampOn        = []string{"Let there be light.", "It is getting dark."}
	lampOff       = "Time to put out the light."
	newCandle     = "This candle is spent."
)

// Shapes handled by street maintenance.
const (
	shapeShutters1  = 290
	shapeShutters2  = 291
	shapeShutters3  = 322
	shapeShutters4  = 372
	shapeLitLight   = 338
	shapeUnlitLight = 336
	shapeSpentLight = 997
	shapeLampOff    = 526
	shapeLampOn     = 889
)

// streetMaintenance walks to a lamp or a shutter, works it, and then
// resumes the schedule it interrupted.
type streetMaintenance struct {
	base
	obj    world.Ref
	shape  int
	frame  int
	walk   npc.Action
	oldLoc world.Tile
}

func newStreetMaintenance(
	m *Maker, a *npc.Actor, walk npc.Action, obj world.Object, prev npc.ScheduleType,
) *streetMaintenance {
	s := &streetMaintenance{
		base:  newBase(m, a, npc.StreetMaintenance, prev),
		obj:   world.RefTo(obj),
		shape: obj.Shape(),
		frame: obj.Frame(),
		walk:  walk,
	}
	s.oldLoc = s.startPos
	return s
}

// WhatNow implements npc.Schedule.
func (s *streetMaintenance) WhatNow() {
	a := s.npc
	env := s.env()
	if s.walk != nil {
		a.SetAction(s.walk)
		a.Start(s.std(), 0)
		s.walk = nil
		return
	}
	obj := s.obj.Get(env.Objs)
	if obj != nil && s.shape != 0 && a.DistanceTo(obj) <= 2 &&
		obj.Shape() == s.shape && obj.Frame() == s.frame {
		log.VEventf(s.ctx(), 1, "maintaining %s", obj)
		dir := world.DirTowards(a.Tile(), obj.Tile())
		stand := npc.DirFrame(int(dir), npc.Standing)
		var work npc.Action
		if s.shape == shapeSpentLight {
			shape := shapeUnlitLight
			if h := env.Hour(); h >= 18 || h < 6 {
				shape = shapeLitLight
			}
			work = npc.NewChange(obj, shape, s.frame, 30+s.rnd(27))
		} else {
			work = npc.NewActivate(obj)
		}
		a.SetAction(npc.NewSequence(0,
			npc.NewFrames(s.std(), stand, npc.DirFrame(int(dir), npc.Ready)),
			npc.NewFacePos(obj.Tile(), s.std()),
			work,
			npc.NewFrames(s.std(), stand)))
		a.Start(s.std(), 0)
		if s.canSpeak() {
			s.bark()
		}
		// Once only.
		s.shape = 0
		return
	}
	log.VEventf(s.ctx(), 1, "done with street maintenance")
	if s.oldLoc.Valid() && a.Tile().Distance(s.oldLoc) > 2 {
		a.SetScheduleAndLoc(s.prev, s.oldLoc, 0)
		return
	}
	a.SetScheduleType(s.prev)
}

func (s *streetMaintenance) bark() {
	switch s.shape {
	case shapeShutters3, shapeShutters4:
		s.say(closeShutters)
	case shapeShutters1, shapeShutters2:
		if s.frame <= 3 {
			s.say(openShutters)
		} else {
			s.say(closeShutters)
		}
	case shapeUnlitLight, shapeLampOn:
		s.say(lampOn)
	case shapeLitLight, shapeLampOff:
		s.npc.Say(lampOff)
	case shapeSpentLight:
		s.npc.Say(newCandle)
	}
}

// follow keeps a party member close to its leader, or to the avatar.
type follow struct {
	base
	nextPathTime tqueue.Time
}

func newFollow(m *Maker, a *npc.Actor, prev npc.ScheduleType) *follow {
	return &follow{base: newBase(m, a, npc.FollowAvatar, prev)}
}

func (f *follow) leader() world.Object {
	if l := f.npc.Leader(); l != nil && l != f.npc {
		return l
	}
	if av := f.env().AvatarObj(); av != nil && av != world.Object(f.npc) {
		return av
	}
	return nil
}

// followPoll is how often a follower looks at its leader.
const followPoll = 500

// WhatNow implements npc.Schedule.
func (f *follow) WhatNow() {
	a := f.npc
	env := f.env()
	if a.Flag(npc.Asleep) || a.Flag(npc.Paralyzed) || a.IsDead() {
		return
	}
	l := f.leader()
	if l == nil {
		a.Start(f.std(), 4*followPoll)
		return
	}
	if a.DistanceTo(l) <= 3 {
		a.Start(f.std(), followPoll)
		return
	}
	now := f.now()
	if now < f.nextPathTime {
		a.Start(f.std(), int(f.nextPathTime-now))
		return
	}
	goal, ok := findSpot(env, l.Tile(), 3)
	if !ok {
		log.VEventf(f.ctx(), 2, "no free spot near %s", l.Name())
		f.nextPathTime = now + 1000
		a.Start(f.std(), 1000)
		return
	}
	speed := f.std()
	if la, ok := l.(*npc.Actor); ok && la.FrameTime() > 0 {
		speed = la.FrameTime()
	}
	if a.Tile().Distance(goal) <= 3 {
		a.Start(f.std(), followPoll)
		return
	}
	if a.WalkPathToTile(world.NoTile, goal, speed-speed/4, 0, 3, 1) {
		return
	}
	log.VEventf(f.ctx(), 2, "no path to %s", l.Name())
	f.nextPathTime = now + 1000
	a.Start(f.std(), 1000)
}

// pace walks back and forth along a line, turning around when
// blocked.
type pace struct {
	base
	horiz   bool
	loc     world.Tile
	phase   int
	blocked bool
	stepIdx int
}

func newPace(m *Maker, a *npc.Actor, t, prev npc.ScheduleType, horiz bool) *pace {
	p := &pace{base: newBase(m, a, t, prev), horiz: horiz}
	p.loc = p.startPos
	return p
}

var moveAside = []string{"Excuse me.", "Move aside, please.", "Pardon me."}

// WhatNow implements npc.Schedule.
func (p *pace) WhatNow() {
	a := p.npc
	delay := p.std()
	if p.phase == 0 {
		p.phase++
		if a.Tile() != p.loc {
			a.WalkToTile(p.loc, delay, delay, 0)
		} else {
			a.Start(delay, delay)
		}
		return
	}
	p.step(delay)
}

func (p *pace) step(delay int) {
	a := p.npc
	dir := a.Facing()
	switch p.phase {
	case 1:
		vertical := world.Dir(dir) == world.North || world.Dir(dir) == world.South
		if vertical == p.horiz {
			// Facing across the line.
			p.phase = 4
			a.Start(delay, delay)
			return
		}
		if p.blocked {
			p.blocked = false
			if blocker, ok := p.objs().SolidAt(a.Tile().Neighbor(world.Dir(dir))).(*npc.Actor); ok &&
				blocker != a && p.canSpeak() {
				p.say(moveAside)
			}
			p.phase++
			a.Start(delay, delay)
			return
		}
		to := a.Tile().Neighbor(world.Dir(dir))
		if !a.Step(to, a.WalkFrame(world.Dir(dir), &p.stepIdx)) {
			p.blocked = true
		}
		a.Start(delay, delay)
	case 2:
		p.phase++
		a.ChangeFrame(npc.DirFrame(dir, npc.Standing))
		a.Start(2*delay, 2*delay)
	case 3, 4:
		p.phase++
		a.ChangeFrame(npc.DirFrame((dir+6)%8, npc.Standing))
		a.Start(2*delay, 2*delay)
	default:
		p.phase = 1
		p.stepIdx = 0
		a.Start(2*delay, 2*delay)
	}
}
