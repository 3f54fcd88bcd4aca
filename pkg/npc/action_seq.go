package npc

import "github.com/wonst719/exult-sub000/pkg/world"

// Frames shows a series of frames on the actor or on another object.
// A frame of -1 leaves the frame unchanged for that step.
type Frames struct {
	actionBase
	frames []int
	idx    int
	obj    world.Ref
	sfx    int
	guard  func(a *Actor) bool
}

// NewFrames creates a frame animation of the actor.
func NewFrames(speed int, frames ...int) *Frames {
	return &Frames{actionBase: actionBase{speed: speed}, frames: frames, sfx: -1}
}

// NewObjectFrames animates obj instead of the actor, playing sfx (when
// not negative) with the first frame.
func NewObjectFrames(obj world.Object, speed, sfx int, frames ...int) *Frames {
	return &Frames{actionBase: actionBase{speed: speed}, frames: frames, obj: world.RefTo(obj), sfx: sfx}
}

// WithGuard makes the animation check g before its first frame. The
// animation is abandoned when g returns false.
func (f *Frames) WithGuard(g func(a *Actor) bool) *Frames {
	f.guard = g
	return f
}

// Step implements Action.
func (f *Frames) Step(a *Actor) int {
	if f.idx == 0 && f.guard != nil && !f.guard(a) {
		return 0
	}
	var o world.Object = a
	if !f.obj.IsZero() {
		o = f.obj.Get(a.env.Objs)
	}
	if f.idx >= len(f.frames) || o == nil {
		return 0
	}
	if f.idx == 0 && f.sfx >= 0 && a.env.Media != nil {
		a.env.Media.Sfx(f.sfx, o)
	}
	fr := f.frames[f.idx]
	f.idx++
	if fr >= 0 {
		if o == world.Object(a) {
			a.ChangeFrame(fr)
		} else {
			o.SetFrame(fr)
		}
	}
	return f.speed
}

// Index returns how many frames were shown.
func (f *Frames) Index() int { return f.idx }

// Kill implements Action.
func (f *Frames) Kill() Action { return kill(f) }

// Sequence carries out actions one after the other. With a zero speed
// the next action starts in the same step the previous one finished.
type Sequence struct {
	actionBase
	actions []Action
	idx     int
}

// NewSequence creates a sequence. Nil actions are skipped.
func NewSequence(speed int, actions ...Action) *Sequence {
	s := &Sequence{actionBase: actionBase{speed: speed}}
	for _, act := range actions {
		if act != nil {
			s.actions = append(s.actions, act)
		}
	}
	return s
}

// Step implements Action.
func (s *Sequence) Step(a *Actor) int {
	for s.idx < len(s.actions) {
		if d := s.actions[s.idx].Step(a); d > 0 {
			return d
		}
		s.idx++
		if s.speed > 0 {
			if s.idx < len(s.actions) {
				return s.speed
			}
			break
		}
		if s.killed {
			// Replaced by the action that just finished.
			return 0
		}
	}
	return 0
}

// Stop implements Action.
func (s *Sequence) Stop(a *Actor) {
	if s.idx < len(s.actions) {
		s.actions[s.idx].Stop(a)
	}
}

// Dest implements Action.
func (s *Sequence) Dest() (world.Tile, bool) {
	for _, act := range s.actions[s.idx:] {
		if d, ok := act.Dest(); ok {
			return d, true
		}
	}
	return world.NoTile, false
}

// SmartPath implements Action.
func (s *Sequence) SmartPath() bool {
	return s.idx < len(s.actions) && s.actions[s.idx].SmartPath()
}

// Kill implements Action.
func (s *Sequence) Kill() Action { return kill(s) }

func (s *Sequence) children() []Action { return s.actions }

// Group carries out several actions side by side. Each step advances
// every unfinished member, and the group waits for the slowest.
type Group struct {
	actionBase
	actions  []Action
	finished []bool
}

// NewGroup creates a group. Nil actions are skipped.
func NewGroup(actions ...Action) *Group {
	g := &Group{}
	for _, act := range actions {
		if act != nil {
			g.actions = append(g.actions, act)
		}
	}
	g.finished = make([]bool, len(g.actions))
	return g
}

// Step implements Action.
func (g *Group) Step(a *Actor) int {
	delay := 0
	for i, act := range g.actions {
		if g.finished[i] {
			continue
		}
		d := act.Step(a)
		if g.killed {
			// A member replaced the actor's action.
			return 0
		}
		if d == 0 {
			g.finished[i] = true
		} else if d > delay {
			delay = d
		}
	}
	return delay
}

// Stop implements Action.
func (g *Group) Stop(a *Actor) {
	for i, act := range g.actions {
		if !g.finished[i] {
			act.Stop(a)
		}
	}
}

// Kill implements Action.
func (g *Group) Kill() Action { return kill(g) }

func (g *Group) children() []Action { return g.actions }

// ObjectAnimate cycles through all the frames of an object a number of
// times.
type ObjectAnimate struct {
	actionBase
	obj    world.Ref
	cycles int
}

// NewObjectAnimate creates an animation of obj.
func NewObjectAnimate(obj world.Object, cycles, speed int) *ObjectAnimate {
	return &ObjectAnimate{actionBase: actionBase{speed: speed}, obj: world.RefTo(obj), cycles: cycles}
}

// Step implements Action.
func (an *ObjectAnimate) Step(a *Actor) int {
	o := an.obj.Get(a.env.Objs)
	if o == nil || an.cycles <= 0 || o.NumFrames() <= 1 {
		return 0
	}
	f := (o.Frame() + 1) % o.NumFrames()
	o.SetFrame(f)
	if f == 0 {
		an.cycles--
		if an.cycles == 0 {
			return 0
		}
	}
	return an.speed
}

// Kill implements Action.
func (an *ObjectAnimate) Kill() Action { return kill(an) }

// Pickup bends down, takes or drops an object, and stands up again.
type Pickup struct {
	actionBase
	obj    world.Ref
	held   world.Object
	pos    world.Tile
	pickup bool
	toDel  bool
	stage  int
}

// NewPickup takes obj. With toDel the object is consumed instead of
// carried.
func NewPickup(obj world.Object, speed int, toDel bool) *Pickup {
	return &Pickup{
		actionBase: actionBase{speed: speed},
		obj:        world.RefTo(obj),
		pos:        obj.Tile(),
		pickup:     true,
		toDel:      toDel,
	}
}

// NewPutdown drops a carried object at pos.
func NewPutdown(obj world.Object, pos world.Tile, speed int) *Pickup {
	return &Pickup{actionBase: actionBase{speed: speed}, held: obj, pos: pos}
}

// Step implements Action.
func (p *Pickup) Step(a *Actor) int {
	dir := int(world.DirTowards(a.Tile(), p.pos))
	switch p.stage {
	case 0:
		p.stage++
		a.ChangeFrame(DirFrame(dir, Bow))
		return p.speed
	case 1:
		p.stage++
		if p.pickup {
			if o := p.obj.Get(a.env.Objs); o != nil {
				if p.toDel {
					a.env.Remove(o)
				} else {
					a.PickUp(o)
				}
			}
		} else if p.held != nil {
			a.PutDown(p.held, p.pos)
		}
		a.ChangeFrame(DirFrame(dir, Kneel))
		return p.speed
	case 2:
		p.stage++
		a.ChangeFrame(DirFrame(dir, Standing))
	}
	return 0
}

// Kill implements Action.
func (p *Pickup) Kill() Action { return kill(p) }
