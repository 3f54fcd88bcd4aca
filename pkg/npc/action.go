package npc

import (
	"fmt"

	"github.com/wonst719/exult-sub000/pkg/world"
)

// Action is the low-level activity an actor is physically carrying
// out. An action belongs to exactly one actor at a time.
type Action interface {
	// Step carries out one step and returns the delay in milliseconds
	// until the next one, or 0 when the action is done.
	Step(a *Actor) int
	// Stop interrupts the action, leaving the actor in a consistent
	// position.
	Stop(a *Actor)
	// Kill marks the action dead and returns what must be destroyed at
	// the next tick: the action itself, or nil if it was already dead.
	Kill() Action
	// Dest returns the destination of path-following actions.
	Dest() (world.Tile, bool)
	// SmartPath is true when following an obstacle-aware path.
	SmartPath() bool
	// Speed is the delay between steps.
	Speed() int
	// UsecodePath returns the action if it is a behavior-function path.
	UsecodePath() *IfElsePath

	base() *actionBase
}

// actionBase provides the default behavior of actions.
type actionBase struct {
	killed    bool
	destroyed bool
	speed     int
}

func (b *actionBase) base() *actionBase { return b }
func (b *actionBase) Stop(*Actor) {}
func (b *actionBase) Dest() (world.Tile, bool) { return world.NoTile, false }
func (b *actionBase) SmartPath() bool { return false }
func (b *actionBase) Speed() int { return b.speed }
func (b *actionBase) UsecodePath() *IfElsePath { return nil }
func (b *actionBase) children() []Action { return nil }

type container interface {
	children() []Action
}

func kill(act Action) Action {
	b := act.base()
	if b.killed {
		return nil
	}
	b.killed = true
	return act
}

// destroy releases an action and, transitively, the actions it owns.
func destroy(act Action) {
	if act == nil {
		return
	}
	b := act.base()
	if b.destroyed {
		return
	}
	b.killed = true
	b.destroyed = true
	if c, ok := act.(container); ok {
		for _, child := range c.children() {
			destroy(child)
		}
	}
}

// IsKilled reports whether the action was replaced.
func IsKilled(act Action) bool { return act.base().killed }

// IsDestroyed reports whether the action was released.
func IsDestroyed(act Action) bool { return act.base().destroyed }

// Null does nothing, once.
type Null struct{ actionBase }

// NewNull creates an action finishing immediately.
func NewNull() *Null { return &Null{} }

// Step implements Action.
func (n *Null) Step(*Actor) int { return 0 }

// Kill implements Action.
func (n *Null) Kill() Action { return kill(n) }

// Teleport moves the actor to a spot at once.
type Teleport struct {
	actionBase
	dest world.Tile
}

// NewTeleport creates a teleport to dest.
func NewTeleport(dest world.Tile) *Teleport { return &Teleport{dest: dest} }

// Step implements Action.
func (t *Teleport) Step(a *Actor) int {
	if a.Tile() != t.dest {
		a.Move(t.dest)
	}
	return 0
}

// Dest implements Action.
func (t *Teleport) Dest() (world.Tile, bool) { return t.dest, true }

// Kill implements Action.
func (t *Teleport) Kill() Action { return kill(t) }

// Activate uses an object, as by double-clicking it.
type Activate struct {
	actionBase
	obj world.Ref
}

// NewActivate creates an action activating obj.
func NewActivate(obj world.Object) *Activate { return &Activate{obj: world.RefTo(obj)} }

// Step implements Action.
func (ac *Activate) Step(a *Actor) int {
	if o := ac.obj.Get(a.env.Objs); o != nil && a.env.Usecode != nil {
		a.env.Usecode.Call(o.Shape(), o, world.DoubleClick)
	}
	return 0
}

// Kill implements Action.
func (ac *Activate) Kill() Action { return kill(ac) }

// UsecodeCall invokes a behavior function.
type UsecodeCall struct {
	actionBase
	fun  int
	item world.Ref
	ev   world.Event
}

// NewUsecodeCall creates an action calling fun on item.
func NewUsecodeCall(fun int, item world.Object, ev world.Event) *UsecodeCall {
	return &UsecodeCall{fun: fun, item: world.RefTo(item), ev: ev}
}

// Step implements Action.
func (u *UsecodeCall) Step(a *Actor) int {
	if item := u.item.Get(a.env.Objs); item != nil && a.env.Usecode != nil {
		a.env.Usecode.Call(u.fun, item, u.ev)
	}
	return 0
}

// Kill implements Action.
func (u *UsecodeCall) Kill() Action { return kill(u) }

// FacePos turns the actor towards a spot.
type FacePos struct {
	actionBase
	pos world.Tile
}

// NewFacePos creates an action turning towards pos.
func NewFacePos(pos world.Tile, speed int) *FacePos {
	return &FacePos{actionBase: actionBase{speed: speed}, pos: pos}
}

// NewFaceObj creates an action turning towards obj.
func NewFaceObj(obj world.Object, speed int) *FacePos { return NewFacePos(obj.Tile(), speed) }

// Step implements Action.
func (f *FacePos) Step(a *Actor) int {
	dir := world.DirTowards(a.Tile(), f.pos)
	frame := DirFrame(int(dir), a.Frame())
	if frame == a.Frame() {
		return 0
	}
	a.ChangeFrame(frame)
	return f.speed
}

// Kill implements Action.
func (f *FacePos) Kill() Action { return kill(f) }

// Change alters another object's shape, frame and quality. Negative
// values leave the attribute unchanged.
type Change struct {
	actionBase
	obj                   world.Ref
	shape, frame, quality int
}

// NewChange creates an action modifying obj.
func NewChange(obj world.Object, shape, frame, quality int) *Change {
	return &Change{obj: world.RefTo(obj), shape: shape, frame: frame, quality: quality}
}

// Step implements Action.
func (c *Change) Step(a *Actor) int {
	o := c.obj.Get(a.env.Objs)
	if o == nil {
		return 0
	}
	type mutable interface {
		SetShape(int)
		SetQuality(int)
	}
	if m, ok := o.(mutable); ok {
		if c.shape >= 0 {
			m.SetShape(c.shape)
		}
		if c.quality >= 0 {
			m.SetQuality(c.quality)
		}
	}
	if c.frame >= 0 {
		o.SetFrame(c.frame)
	}
	return 0
}

// Kill implements Action.
func (c *Change) Kill() Action { return kill(c) }

// Effect shows a visual effect on an object.
type Effect struct {
	actionBase
	kind   int
	obj    world.Ref
	dx, dy int
}

// NewEffect creates an action showing effect kind at obj's position
// shifted by dx, dy.
func NewEffect(kind int, obj world.Object, dx, dy int) *Effect {
	return &Effect{kind: kind, obj: world.RefTo(obj), dx: dx, dy: dy}
}

// Step implements Action.
func (e *Effect) Step(a *Actor) int {
	o := e.obj.Get(a.env.Objs)
	if o == nil {
		o = a
	}
	if a.env.Media != nil {
		a.env.Media.Effect(e.kind, o.Tile().Add(e.dx, e.dy, 0))
	}
	return 0
}

// Kill implements Action.
func (e *Effect) Kill() Action { return kill(e) }

// Sfx plays a sound effect.
type Sfx struct {
	actionBase
	id  int
	obj world.Ref
}

// NewSfx creates an action playing sound id from obj (the actor when
// obj is nil).
func NewSfx(id int, obj world.Object) *Sfx {
	return &Sfx{id: id, obj: world.RefTo(obj)}
}

// Step implements Action.
func (s *Sfx) Step(a *Actor) int {
	o := s.obj.Get(a.env.Objs)
	if o == nil {
		o = a
	}
	if a.env.Media != nil {
		a.env.Media.Sfx(s.id, o)
	}
	return 0
}

// Kill implements Action.
func (s *Sfx) Kill() Action { return kill(s) }

// Describe renders an action for traces.
func Describe(act Action) string {
	switch v := act.(type) {
	case nil:
		return "-"
	case *Null:
		return "null"
	case *IfElsePath:
		return fmt.Sprintf("if_else_path(%s)", v.dest)
	case *Approach:
		return fmt.Sprintf("approach(%s)", v.dest)
	case *PathWalk:
		return fmt.Sprintf("walk(%s)", v.dest)
	case *Teleport:
		return fmt.Sprintf("teleport(%s)", v.dest)
	case *Frames:
		return fmt.Sprintf("frames(%d/%d)", v.idx, len(v.frames))
	case *Sequence:
		return fmt.Sprintf("sequence(%d/%d)", v.idx, len(v.actions))
	case *Group:
		return fmt.Sprintf("group(%d)", len(v.actions))
	case *Activate:
		return "activate"
	case *UsecodeCall:
		return fmt.Sprintf("usecode(%#x)", v.fun)
	case *ObjectAnimate:
		return "animate"
	case *Pickup:
		if v.pickup {
			return "pickup"
		}
		return "putdown"
	case *FacePos:
		return fmt.Sprintf("face(%s)", v.pos)
	case *Change:
		return "change"
	case *Effect:
		return "effect"
	case *Sfx:
		return "sfx"
	}
	return fmt.Sprintf("%T", act)
}
