package npc

import (
	"github.com/cockroachdb/cockroach/pkg/util/log"
	"github.com/wonst719/exult-sub000/pkg/world"
)

// defaultMaxBlocked is how many times in a row a walk may be blocked
// before it gives up.
const defaultMaxBlocked = 3

// PathWalk moves the actor one tile per step towards a destination,
// either along an obstacle-aware path or in a straight line.
type PathWalk struct {
	actionBase
	src, dest  world.Tile
	dist       int
	smart      bool
	path       []world.Tile
	idx        int
	maxBlocked int
	blocked    int
	frameIdx   int
	failed     bool
}

// NewPathWalk prepares a walk from src to within dist tiles of dest.
// When src is not the actor's tile, the actor is placed there first:
// this is how actors enter the screen from off-screen locations. A
// smart walk searches for a path and fails when there is none.
func NewPathWalk(
	a *Actor, src, dest world.Tile, dist int, smart bool, speed, maxBlocked int,
) (*PathWalk, bool) {
	if speed <= 0 {
		speed = a.env.StdDelay
	}
	if maxBlocked <= 0 {
		maxBlocked = defaultMaxBlocked
	}
	p := &PathWalk{
		actionBase: actionBase{speed: speed},
		src:        src,
		dest:       dest,
		dist:       dist,
		smart:      smart,
		maxBlocked: maxBlocked,
	}
	if smart && a.env.Paths != nil {
		from := src
		if !from.Valid() {
			from = a.Tile()
		}
		path, ok := a.env.Paths.FindPath(from, dest, world.CostClient{Dist: dist, Mover: a.ID()})
		if !ok {
			log.VEventf(a.ctx(), 2, "no path from %s to %s", from, dest)
			return nil, false
		}
		p.path = path
	}
	return p, true
}

func (p *PathWalk) arrived(t world.Tile) bool {
	if p.smart && p.path != nil {
		return p.idx >= len(p.path)
	}
	return t.Distance2D(p.dest) <= p.dist
}

// Step implements Action.
func (p *PathWalk) Step(a *Actor) int {
	if p.src.Valid() && a.Tile() != p.src {
		// Entering from off-screen.
		a.Move(p.src)
	}
	p.src = world.NoTile
	cur := a.Tile()
	if p.arrived(cur) {
		p.Stop(a)
		return 0
	}
	var next world.Tile
	if p.smart && p.path != nil {
		next = p.path[p.idx]
	} else {
		next = cur.Neighbor(world.DirTowards(cur, p.dest))
		if cur.Distance2D(p.dest) <= 1 {
			next.Z = p.dest.Z
		}
	}
	dir := world.DirTowards(cur, next)
	if a.Step(next, a.WalkFrame(dir, &p.frameIdx)) {
		p.idx++
		p.blocked = 0
		return p.speed
	}
	p.blocked++
	if p.blocked > p.maxBlocked {
		p.failed = true
		p.Stop(a)
		return 0
	}
	if p.smart && a.env.Paths != nil {
		// Try to get around whatever is in the way.
		if path, ok := a.env.Paths.FindPath(cur, p.dest, world.CostClient{Dist: p.dist, Mover: a.ID()}); ok {
			p.path, p.idx = path, 0
		}
	}
	return p.speed
}

// Stop implements Action: the actor stands still where it is.
func (p *PathWalk) Stop(a *Actor) {
	a.SetFrame(DirFrame(a.Facing(), Standing))
}

// Failed is true if the walk gave up before arriving.
func (p *PathWalk) Failed() bool { return p.failed }

// Dest implements Action.
func (p *PathWalk) Dest() (world.Tile, bool) { return p.dest, true }

// SmartPath implements Action.
func (p *PathWalk) SmartPath() bool { return p.smart }

// Kill implements Action.
func (p *PathWalk) Kill() Action { return kill(p) }

// IfElsePath walks to a spot on behalf of a behavior function, then
// runs one action on success and another on failure.
type IfElsePath struct {
	PathWalk
	success, failure Action
	done, failed     bool
}

// NewIfElsePath creates a path to dest. When there is no path, the
// failure action runs at the first step.
func NewIfElsePath(a *Actor, dest world.Tile, success, failure Action) *IfElsePath {
	p := &IfElsePath{success: success, failure: failure}
	if w, ok := NewPathWalk(a, world.NoTile, dest, 0, true, 0, 0); ok {
		p.PathWalk = *w
	} else {
		p.PathWalk = PathWalk{actionBase: actionBase{speed: a.env.StdDelay}, src: world.NoTile, dest: dest}
		p.done, p.failed = true, true
	}
	return p
}

// Step implements Action.
func (p *IfElsePath) Step(a *Actor) int {
	if !p.done {
		if d := p.PathWalk.Step(a); d > 0 {
			return d
		}
		p.done = true
		p.failed = p.PathWalk.failed
		log.VEventf(a.ctx(), 2, "path to %s done (failed: %t)", p.dest, p.failed)
	}
	act := p.success
	if p.failed {
		act = p.failure
	}
	if act == nil {
		return 0
	}
	return act.Step(a)
}

// Done is true once the walk is over.
func (p *IfElsePath) Done() bool { return p.done }

// DoneAndFailed is true if the walk is over without arriving.
func (p *IfElsePath) DoneAndFailed() bool { return p.done && p.failed }

// UsecodePath implements Action.
func (p *IfElsePath) UsecodePath() *IfElsePath { return p }

// Kill implements Action.
func (p *IfElsePath) Kill() Action { return kill(p) }

func (p *IfElsePath) children() []Action {
	var res []Action
	for _, c := range []Action{p.success, p.failure} {
		if c != nil {
			res = append(res, c)
		}
	}
	return res
}

// approachCheckSteps is how often an approach looks at its target.
const approachCheckSteps = 2

// Approach walks towards a possibly moving target until within
// goalDist of it. It stops early when the target moved away from where
// the path was planned, so the schedule can plan again.
type Approach struct {
	PathWalk
	target    world.Ref
	targetPos world.Tile
	goalDist  int
	fireRange int
	steps     int
}

// NewApproach plans a path towards target. With a positive fireRange,
// the walk also ends as soon as the target is within that range and the
// line of fire is clear.
func NewApproach(a *Actor, target world.Object, goalDist, fireRange, speed int) (*Approach, bool) {
	w, ok := NewPathWalk(a, world.NoTile, target.Tile(), goalDist, true, speed, 0)
	if !ok {
		return nil, false
	}
	return &Approach{
		PathWalk:  *w,
		target:    world.RefTo(target),
		targetPos: target.Tile(),
		goalDist:  goalDist,
		fireRange: fireRange,
	}, true
}

// Step implements Action.
func (p *Approach) Step(a *Actor) int {
	t := p.target.Get(a.env.Objs)
	if t == nil {
		return 0
	}
	if p.steps%approachCheckSteps == 0 {
		dist := a.Tile().Distance(t.Tile())
		if dist <= p.goalDist {
			return 0
		}
		if t.Tile().Distance2D(p.targetPos) > 2 {
			return 0
		}
		if p.fireRange > 0 && dist <= p.fireRange && a.env.Paths != nil &&
			a.env.Paths.StraightLineClear(a.Tile(), t.Tile()) {
			return 0
		}
	}
	p.steps++
	return p.PathWalk.Step(a)
}

// Target returns the object approached.
func (p *Approach) Target() world.Ref { return p.target }

// Kill implements Action.
func (p *Approach) Kill() Action { return kill(p) }

// NewActionSequence walks to dest and then carries out whenThere. When
// no path can be found the actor is teleported. fromOffscreen starts
// the walk outside the visible area when the actor is not loaded.
func NewActionSequence(a *Actor, dest world.Tile, whenThere Action, fromOffscreen bool) Action {
	if a.Tile() == dest {
		if whenThere == nil {
			return NewNull()
		}
		return whenThere
	}
	src := a.Tile()
	if fromOffscreen && a.env.Map != nil && !a.env.Map.Loaded(src) {
		src = offscreenSpot(a, dest)
	}
	var first Action
	if w, ok := NewPathWalk(a, src, dest, 0, true, 0, 0); ok {
		first = w
	} else {
		first = NewTeleport(dest)
	}
	if whenThere == nil {
		return first
	}
	return NewSequence(0, first, whenThere)
}

// offscreenSpot returns a tile just outside the visible area, on the
// side of dest the actor comes from.
func offscreenSpot(a *Actor, dest world.Tile) world.Tile {
	scr := a.env.Map.Screen()
	t := dest
	switch dir := world.DirTowards(dest, a.Tile()); dir {
	case world.North, world.Northeast, world.Northwest:
		t.Y = scr.Y - 1
	case world.South, world.Southeast, world.Southwest:
		t.Y = scr.Y + scr.H
	case world.East:
		t.X = scr.X + scr.W
	default:
		t.X = scr.X - 1
	}
	if !t.Valid() || !a.env.Map.InBounds(t) {
		return a.Tile()
	}
	return t
}
