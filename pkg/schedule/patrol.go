package schedule

import (
	"github.com/cockroachdb/cockroach/pkg/util/log"
	"github.com/wonst719/exult-sub000/pkg/npc"
	"github.com/wonst719/exult-sub000/pkg/script"
	"github.com/wonst719/exult-sub000/pkg/world"
)

// Path egg qualities. The low five bits select what to do at the
// egg; the high bits are flags.
const (
	pathNone       = 0
	pathWrap       = 1
	pathPause      = 2
	pathSit        = 3
	pathKneelTomb  = 4
	pathKneel      = 5
	pathLoiter     = 6
	pathLeftFace   = 7
	pathRightFace  = 8
	pathHorizPace  = 9
	pathVertPace   = 10
	pathReverse    = 11
	pathSkip       = 12
	pathHammer     = 13
	pathCheckArea  = 14
	pathUsecode    = 15
	pathBowDown    = 16
	pathBowUp      = 17
	pathReady      = 20
	pathUnready    = 21
	pathSwing1     = 22
	pathSwing2     = 23
	pathRead       = 24
	pathMaybeWrap  = 25
	pathSeekCombat = 32
	pathForever    = 64
)

const patrolSearch = 25

type patrolState int

const (
	patrolInit patrolState = iota - 1
	patrolFind
	patrolWalk
	patrolSitting
	patrolStandUp
	patrolLoiter
	patrolPace
	patrolHammer
)

// patrol walks from path egg to path egg in order of their frame
// numbers, doing what each egg's quality says when it gets there.
type patrol struct {
	base
	state      patrolState
	pathNum    int
	dir        int
	lastPath   int
	paths      map[int]world.Ref
	center     world.Tile
	pacer      *pace
	paceCount  int
	seekCombat bool
	forever    bool
	noPaths    bool
	book       world.Ref
	hammer     world.Object
}

func newPatrol(m *Maker, a *npc.Actor, prev npc.ScheduleType) *patrol {
	return &patrol{
		base:    newBase(m, a, npc.Patrol, prev),
		state:   patrolInit,
		pathNum: -1,
		dir:     1,
		paths:   make(map[int]world.Ref),
	}
}

// advance moves to the next path number, turning around at either end.
func (p *patrol) advance() {
	p.pathNum += p.dir
	if p.pathNum == 0 && p.dir == -1 {
		p.dir = 1
	} else if p.pathNum >= p.lastPath && p.dir == 1 {
		p.dir = -1
	}
}

// findPath returns the egg for the current path number.
func (p *patrol) findPath() world.Object {
	if p.pathNum < 0 {
		return nil
	}
	if egg := p.paths[p.pathNum].Get(p.objs()); egg != nil {
		return egg
	}
	var eggs []world.Object
	for _, o := range p.objs().FindNearby(p.npc.Tile(), shapePath, patrolSearch) {
		if o.Frame() == p.pathNum {
			eggs = append(eggs, o)
		}
	}
	egg := p.nearest(eggs)
	if egg != nil {
		p.paths[p.pathNum] = world.RefTo(egg)
	}
	return egg
}

// WhatNow implements npc.Schedule.
func (p *patrol) WhatNow() {
	if p.seekCombat && p.seekFoes() {
		return
	}
	a := p.npc
	speed := p.std()
	switch p.state {
	case patrolInit:
		eggs := p.objs().FindNearby(a.Tile(), shapePath, patrolSearch)
		for _, egg := range eggs {
			if egg.Frame() > p.lastPath {
				p.lastPath = egg.Frame()
			}
		}
		if len(eggs) == 0 {
			log.VEventf(p.ctx(), 1, "no path eggs around")
			p.seekCombat = true
			p.noPaths = true
			p.center = a.Tile()
			p.state = patrolLoiter
			a.Start(2*speed, p.rnd(500))
			return
		}
		p.state = patrolFind
		fallthrough
	case patrolFind:
		if p.forever {
			p.state = patrolWalk
			a.Start(speed, speed)
			return
		}
		p.advance()
		egg := p.findPath()
		if egg == nil {
			// Turn back at the end.
			p.dir = -p.dir
			p.pathNum += p.dir
			a.Start(speed, speed)
			return
		}
		d := egg.Tile()
		if !a.WalkPathToTile(world.NoTile, d, speed, 2*speed+p.rnd(500), 0, 0) {
			spot, ok := findSpot(p.env(), d, 1)
			if !ok || !a.WalkPathToTile(world.NoTile, spot, speed, p.rnd(1000), 0, 0) {
				log.VEventf(p.ctx(), 2, "no path to egg %d", p.pathNum)
				a.Start(speed, 2000)
				return
			}
		}
		p.state = patrolWalk
	case patrolWalk:
		egg := p.findPath()
		if egg == nil || (!p.forever && a.DistanceTo(egg) >= 2) {
			p.state = patrolFind
			a.Start(speed, speed)
			return
		}
		p.atPath(egg)
	case patrolSitting:
		if p.sitting() {
			if book := p.book.Get(p.objs()); book != nil && a.DistanceTo(book) < 4 {
				// Open it.
				if f := book.Frame(); f%3 != 0 {
					book.SetFrame(f - f%3)
				}
			}
			a.Start(250, 5000+p.rnd(10000))
		} else {
			a.Start(250, p.rnd(1000))
		}
		p.state = patrolStandUp
	case patrolStandUp:
		if p.sitting() {
			if book := p.book.Get(p.objs()); book != nil && a.DistanceTo(book) < 4 {
				f := book.Frame()
				book.SetFrame(f - f%3 + 1)
				p.book = world.Ref{}
			}
			p.runScript(0, script.DelayTicks, 2,
				script.NPCFrame+script.Opcode(npc.Bow), script.DelayTicks, 2,
				script.NPCFrame+script.Opcode(npc.Standing))
			a.Start(speed, 7*speed)
		} else {
			a.Start(speed, speed)
		}
		p.state = patrolFind
	case patrolLoiter:
		if !p.noPaths && p.rnd(5) == 0 {
			p.state = patrolFind
			a.Start(speed, speed)
			return
		}
		const dist = 12
		dest := p.center.Add(p.rnd(2*dist)-dist, p.rnd(2*dist)-dist, 0)
		a.WalkToTile(dest, speed, p.rnd(2000), 0)
	case patrolPace:
		if a.Tile().Distance(p.center) < 1 {
			p.paceCount++
			if p.paceCount == 6 {
				a.ChangeFrame(npc.DirFrame(a.Facing(), npc.Standing))
				a.Start(3*speed, 3*speed)
				p.state = patrolFind
				return
			}
			if p.pacer.phase >= 2 && p.pacer.phase <= 4 {
				p.paceCount--
			}
		}
		p.pacer.step(speed)
	case patrolHammer:
		p.swingHammer()
	default:
		p.state = patrolFind
		a.Start(speed, speed)
	}
}

// atPath carries out what the egg's quality asks for.
func (p *patrol) atPath(egg world.Object) {
	a := p.npc
	speed := p.std()
	delay := 2
	args := []interface{}{script.NPCFrame + script.Opcode(npc.Standing)}
	qual := egg.Quality()
	p.seekCombat = qual&pathSeekCombat != 0
	p.forever = qual&pathForever != 0 && qual&31 != pathNone
	log.VEventf(p.ctx(), 2, "at egg %d, quality %d", p.pathNum, qual)
	switch qual & 31 {
	case pathNone:
	case pathMaybeWrap, pathWrap:
		if qual&31 == pathMaybeWrap && p.rnd(2) != 0 {
			break
		}
		p.pathNum = -1
		p.dir = 1
	case pathPause:
		args = append(args, script.DelayTicks, 3)
		delay = 5
	case pathRead, pathSit:
		if qual&31 == pathRead {
			p.book = world.RefTo(p.objs().FindClosest(a.Tile(), []int{shapeBook}, 4))
		}
		if p.sitDown(nil, 0) != nil {
			p.runScript(0, args...)
			p.state = patrolSitting
			return
		}
	case pathKneelTomb, pathKneel:
		args = append(args, script.DelayTicks, 2,
			script.NPCFrame+script.Opcode(npc.Bow), script.DelayTicks, 4,
			script.NPCFrame+script.Opcode(npc.Kneel), script.DelayTicks, 20,
			script.NPCFrame+script.Opcode(npc.Bow), script.DelayTicks, 4,
			script.NPCFrame+script.Opcode(npc.Standing))
		delay = 36
	case pathLoiter:
		p.runScript(0, args...)
		p.center = egg.Tile()
		p.state = patrolLoiter
		a.Start(speed, speed*delay)
		return
	case pathLeftFace, pathRightFace:
		turns := [2]int{6, 4}
		if qual&31 == pathLeftFace {
			turns = [2]int{2, 4}
		}
		facing := a.Facing()
		for _, t := range turns {
			args = append(args, script.DelayTicks, 2, script.FaceDir, (facing+t)%8)
		}
		delay = 8
	case pathHorizPace, pathVertPace:
		p.pacer = newPace(p.m, a, p.typ, p.prev, qual&1 == 1)
		p.pacer.phase = 1
		p.paceCount = -1
		p.runScript(0, args...)
		p.center = egg.Tile()
		p.state = patrolPace
		a.Start(speed, speed*delay)
		return
	case pathReverse:
		if p.rnd(2) != 0 {
			p.dir = -p.dir
		}
	case pathSkip:
		if p.rnd(2) != 0 {
			p.advance()
		}
	case pathHammer:
		p.hammer = p.procure(p.hammer, shapeHammer, 15)
		p.runScript(0, args...)
		p.state = patrolHammer
		a.Start(speed, speed*delay)
		return
	case pathCheckArea:
		p.streetTime = 0
		if p.tryStreetMaintenance() {
			return
		}
		args = append(args, script.DelayTicks, 2)
		delay += 2
	case pathUsecode:
		args = append(args, script.DontHalt, script.Usecode2, a.Traits().Fun, int(world.NPCProximity))
		delay = 3
	case pathBowDown:
		args = append(args, script.DelayTicks, 2, script.NPCFrame+script.Opcode(npc.Bow), script.DelayTicks, 2)
		delay = 8
	case pathBowUp:
		args = append(args, script.NPCFrame+script.Opcode(npc.Bow), script.DelayTicks, 2,
			script.NPCFrame+script.Opcode(npc.Standing))
		delay = 8
	case pathReady:
		a.ReadyBestWeapon()
	case pathUnready:
		a.EmptyHands()
	case pathSwing1, pathSwing2:
		dir := world.Dir(a.Facing())
		poses := handPoses
		if w, ok := a.WeaponInfo(); ok {
			poses = attackPoses[w.Class]
		}
		poses = append(append([]int(nil), poses...), npc.Ready, npc.Standing)
		a.SetAction(npc.NewFrames(speed, dirFrames(dir, poses...)...))
		delay = len(poses)
	default:
		log.VEventf(p.ctx(), 1, "unhandled path quality %d", qual)
	}
	p.runScript(0, args...)
	p.state = patrolFind
	a.Start(speed, speed*delay)
}

// swingHammer readies the hammer and hammers away a few times.
func (p *patrol) swingHammer() {
	a := p.npc
	speed := p.std()
	p.state = patrolFind
	if p.hammer == nil || len(a.CarriedShape(shapeHammer)) == 0 {
		// Someone took it.
		p.hammer = nil
		p.state = patrolWalk
		a.Start(speed, speed)
		return
	}
	a.EmptyHands()
	a.SetWeapon(shapeHammer)
	reps := 1 + p.rnd(3)
	p.runScript(0, script.DelayTicks, 2,
		script.NPCFrame+script.Opcode(npc.Ready), script.DelayTicks, 2,
		script.NPCFrame+script.Opcode(npc.Raise1), script.DelayTicks, 2,
		script.Sfx, sfxHammer,
		script.NPCFrame+script.Opcode(npc.Out), script.DelayTicks, 2,
		script.Repeat, -13, reps,
		script.DelayTicks, 2,
		script.NPCFrame+script.Opcode(npc.Ready), script.DelayTicks, 2,
		script.NPCFrame+script.Opcode(npc.Standing))
	a.Start(speed, speed*(11*(reps+1)+6))
}

// Ending implements npc.Schedule: the hammer goes away.
func (p *patrol) Ending(npc.ScheduleType) {
	p.putAway(p.hammer)
	p.hammer = nil
}

const sfxHammer = 45

var toolNames = map[int]string{
	shapeHammer: "hammer",
}

// procure gets hold of an object of a shape: the one already procured
// if the actor still has it or it lies around, then one carried, then
// the nearest within dist, and otherwise a new one.
func (b *base) procure(obj world.Object, shape, dist int) world.Object {
	a := b.npc
	carried := a.CarriedShape(shape)
	for _, c := range carried {
		if c == obj {
			return c
		}
	}
	if obj != nil && b.objs().Lookup(obj.ID()) == obj && b.pickUp(obj) {
		return obj
	}
	if len(carried) > 0 {
		return carried[0]
	}
	if found := b.nearest(b.objs().FindNearby(a.Tile(), shape, dist)); found != nil && b.pickUp(found) {
		return found
	}
	made := world.NewItem(toolNames[shape], shape, 1, world.NoTile)
	a.Carry(made)
	return made
}

// pickUp walks to obj and takes it.
func (b *base) pickUp(obj world.Object) bool {
	return b.walkTo(obj, 1, npc.NewPickup(obj, b.std(), false), 0)
}

// putAway destroys a procured tool.
func (b *base) putAway(obj world.Object) {
	if obj == nil {
		return
	}
	a := b.npc
	if a.Weapon() == obj.Shape() {
		a.DropWeapon(obj.Shape())
	}
	if !a.Discard(obj) {
		if b.objs().Lookup(obj.ID()) == obj {
			b.env().Remove(obj)
		}
	}
}
