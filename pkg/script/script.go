// Package script implements the cooperative instruction-array
// interpreter used for cut-scenes, death sequences, door opening and
// other short animated sequences spliced into an object's timeline.
package script

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cockroachdb/cockroach/pkg/util/log"
	"github.com/cockroachdb/logtags"
	"github.com/wonst719/exult-sub000/pkg/tqueue"
	"github.com/wonst719/exult-sub000/pkg/world"
)

// Cell is one element of a script: an opcode, an integer operand or,
// for Say, a text operand.
type Cell struct {
	Val    int
	Text   string
	IsText bool
}

// Int makes an integer cell.
func Int(v int) Cell { return Cell{Val: v} }

// Text makes a text cell.
func Text(s string) Cell { return Cell{Text: s, IsText: true} }

func (c Cell) String() string {
	if c.IsText {
		return strconv.Quote(c.Text)
	}
	return strconv.Itoa(c.Val)
}

// Puppet is implemented by actors, which scripts can walk and pose.
type Puppet interface {
	world.Object
	// WalkFrame returns the next walking frame when facing dir and
	// advances *idx.
	WalkFrame(dir world.Dir, idx *int) int
	// ScriptStep moves the actor one step to the given tile, showing
	// the given frame. It returns false if the step was blocked.
	ScriptStep(to world.Tile, frame int) bool
	// SetUsecodeDir turns the actor to face dir.
	SetUsecodeDir(dir world.Dir)
	// UsecodeAttack completes an attack set up by a behavior function.
	UsecodeAttack()
}

// Damageable is implemented by objects that can take hits.
type Damageable interface {
	ReduceHealth(hps, typ int)
}

// Resurrecter is implemented by actors that can come back to life.
type Resurrecter interface {
	Resurrect(b *world.Body)
}

// Host is the environment scripts run in.
type Host struct {
	Ctx     context.Context
	Queue   *tqueue.Queue
	Objs    *world.Objects
	Usecode world.Usecode
	Media   world.Presenter
	// Avatar returns the object wait_while_near/far measure against.
	Avatar func() world.Object
	// RemoveObject removes an object from the world.
	RemoveObject func(world.Object)
	// StdDelay is the length of a tick in milliseconds.
	StdDelay int
	// TicksPerMinute converts game minutes to ticks.
	TicksPerMinute int
	// KilledBarks silences Say.
	KilledBarks bool
}

// Script is a resumable instruction array bound to an object.
type Script struct {
	reg  *Registry
	obj  world.Ref
	code []Cell
	// i is the cursor.
	i          int
	frameIndex int
	noHalt     bool
	mustFinish bool
	started    bool
	// delay is the start delay recorded by Decode.
	delay int
}

var _ tqueue.Task = (*Script)(nil)

// Add appends instructions. Arguments may be Opcode, int, string
// (a text operand), Cell or []Cell.
func (s *Script) Add(args ...interface{}) *Script {
	for _, a := range args {
		switch v := a.(type) {
		case Opcode:
			s.code = append(s.code, Int(int(v)))
		case int:
			s.code = append(s.code, Int(v))
		case world.Dir:
			s.code = append(s.code, Int(int(v)))
		case string:
			s.code = append(s.code, Text(v))
		case Cell:
			s.code = append(s.code, v)
		case []Cell:
			s.code = append(s.code, v...)
		default:
			panic(fmt.Sprintf("unsupported script cell %T", a))
		}
	}
	return s
}

// Object returns the object the script runs for, or nil if it is gone.
func (s *Script) Object() world.Object { return s.obj.Get(s.reg.host.Objs) }

// Code returns the instruction array.
func (s *Script) Code() []Cell { return s.code }

// Cursor returns the position of the next instruction.
func (s *Script) Cursor() int { return s.i }

// Done is true once the cursor reached the end.
func (s *Script) Done() bool { return s.i >= len(s.code) }

// Active is true once the script executed its first instruction.
func (s *Script) Active() bool { return s.i > 0 }

// NoHalt reports the "don't interrupt me" flag.
func (s *Script) NoHalt() bool { return s.noHalt }

// MustFinish reports the "run to completion when purged" flag.
func (s *Script) MustFinish() bool { return s.mustFinish }

// Started reports whether the script was registered.
func (s *Script) Started() bool { return s.started }

// Delay returns the start delay recorded when the script was decoded.
func (s *Script) Delay() int { return s.delay }

func (s *Script) String() string {
	return fmt.Sprintf("script(%v: %s)", s.Object(), Disassemble(s.code, s.i))
}

func (s *Script) ctx() context.Context {
	ctx := s.reg.host.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return logtags.AddTag(ctx, "script", s.obj.ID())
}

// Start makes the script live: it enters the registry and the time
// queue, and unless it carries a leading dont_halt marker, halts the
// other interruptible scripts of the same object.
func (s *Script) Start(delay int) {
	for _, c := range s.code {
		op := Opcode(c.Val)
		if op == DontHalt {
			s.noHalt = true
		} else if op == Finish {
			s.mustFinish = true
		} else {
			break
		}
	}
	r := s.reg
	if !s.noHalt {
		if o := s.Object(); o != nil {
			r.Terminate(o)
		}
	}
	if !s.started {
		s.started = true
		r.scripts = append([]*Script{s}, r.scripts...)
	}
	h := r.host
	h.Queue.Add(h.Queue.Now()+tqueue.Time(delay), s, nil)
}

// Halt stops the script at its next resumption, unless it is protected
// by dont_halt.
func (s *Script) Halt() {
	if !s.noHalt {
		s.i = len(s.code)
	}
}

// OnFire implements tqueue.Task.
func (s *Script) OnFire(now tqueue.Time, udata interface{}) {
	delay := s.Exec(false)
	if s.i < len(s.code) {
		s.reg.host.Queue.Add(now+tqueue.Time(delay), s, udata)
		return
	}
	s.reg.forget(s)
}

func (s *Script) arg() Cell {
	s.i++
	if s.i < len(s.code) {
		return s.code[s.i]
	}
	return Cell{}
}

// peekFlag consumes the next cell if it holds 0 or 1 and returns it.
// Otherwise it consumes nothing and returns -1.
func (s *Script) peekFlag() int {
	if s.i+1 < len(s.code) {
		v := s.code[s.i+1]
		if !v.IsText && (v.Val == 0 || v.Val == 1) {
			s.i++
			return v.Val
		}
	}
	return -1
}

func near(avatar, obj world.Object, dist int) bool {
	return avatar != nil && obj.Tile().Distance2D(avatar.Tile()) <= dist
}

// Exec runs instructions from the cursor and returns the delay until
// the next resumption. Normally one instruction runs per call; cont,
// loops, markers and plain steps do not use up the call. With finish
// set, everything up to the end runs at once and waits are skipped.
//
// If the object is gone when the script resumes, the script ends
// without further effects.
func (s *Script) Exec(finish bool) int {
	h := s.reg.host
	delay := h.StdDelay
	doAnother := true
	for ; s.i < len(s.code); s.i++ {
		op := Opcode(s.code[s.i].Val)
		if op != Cont && !doAnother {
			break
		}
		obj := s.obj.Get(h.Objs)
		if obj == nil {
			s.i = len(s.code)
			return delay
		}
		doAnother = finish
		switch op {
		case Cont:
			doAnother = true
		case Reset:
			if !finish {
				s.i = -1
			}
		case Repeat, Repeat2:
			doAnother = true
			s.loop(op)
		case WaitWhileNear:
			dist := s.arg().Val
			if !finish && near(h.Avatar(), obj, dist) {
				s.i -= 2
			}
		case WaitWhileFar:
			dist := s.arg().Val
			if !finish && !near(h.Avatar(), obj, dist) {
				s.i -= 2
			}
		case Nop1, Nop2:
		case Finish:
			s.mustFinish = true
			doAnother = true
		case DontHalt:
			s.noHalt = true
			doAnother = true
		case DelayTicks:
			delay *= s.arg().Val
		case DelayMinutes:
			delay *= h.TicksPerMinute * s.arg().Val
		case DelayHours:
			delay *= 60 * h.TicksPerMinute * s.arg().Val
		case Remove:
			h.RemoveObject(obj)
		case Rise:
			if t := obj.Tile(); t.Z < 10 {
				obj.Move(t.Add(0, 0, 1))
			}
		case Descend:
			if t := obj.Tile(); t.Z > 0 {
				obj.Move(t.Add(0, 0, -1))
			}
		case Frame:
			obj.SetFrame(s.arg().Val)
		case Egg:
			s.activateEgg(obj)
		case SetEgg:
			crit, dist := s.arg().Val, s.arg().Val
			if egg, ok := obj.(*world.Egg); ok {
				egg.Set(crit, dist)
			}
		case NextFrameMax:
			if obj.Frame()%32 < obj.NumFrames()-1 {
				obj.SetFrame(obj.Frame() + 1)
			}
		case NextFrame:
			if n := obj.NumFrames(); n > 0 {
				obj.SetFrame((obj.Frame() + 1) % n)
			}
		case PrevFrameMin:
			if obj.Frame() > 0 {
				obj.SetFrame(obj.Frame() - 1)
			}
		case PrevFrame:
			if n := obj.NumFrames(); n > 0 {
				obj.SetFrame((obj.Frame() - 1 + n) % n)
			}
		case Say:
			text := s.arg()
			if !h.KilledBarks {
				h.Media.Say(obj, text.Text)
			}
		case Step:
			dir := s.arg().Val
			dz := 0
			if s.i+1 < len(s.code) {
				dz = s.arg().Val
			}
			if destz := obj.Tile().Z + dz; destz < 0 || dz > 15 || dz < -15 {
				// Bogus elevation: neither step nor change height.
				doAnother = true
				break
			}
			if dir >= 0 {
				dir &= 7
			} else {
				dir = -1
			}
			s.step(obj, dir, dz)
		case Music:
			song := s.arg().Val
			continuous := false
			if song < 0 || song > 0xff {
				continuous = song>>8 != 0
				song &= 0xff
			} else if f := s.peekFlag(); f >= 0 {
				continuous = f != 0
			}
			h.Media.Music(song, continuous)
		case Usecode:
			fun := s.arg().Val
			if fun >= 0 && fun < 0x100 {
				// Short function numbers may be followed by a padding zero.
				if s.i+1 < len(s.code) && !s.code[s.i+1].IsText && s.code[s.i+1].Val == 0 {
					s.i++
				}
			}
			ev := world.InternalExec
			if obj.Kind() == world.KindEgg {
				ev = world.EggProximity
			}
			h.Usecode.Call(fun, obj, ev)
		case Usecode2:
			fun, ev := s.arg().Val, s.arg().Val
			h.Usecode.Call(fun, obj, world.Event(ev))
		case Speech:
			if track := s.arg().Val; track >= 0 {
				h.Media.Speech(track)
			}
		case Sfx:
			if id := s.arg().Val; !h.Media.SfxPlaying(id) {
				h.Media.Sfx(id, obj)
			}
		case FaceDir:
			dir := world.Dir(s.arg().Val & 7)
			if p, ok := obj.(Puppet); ok {
				p.SetUsecodeDir(dir)
			} else {
				obj.SetFrame(obj.Frame()&^0x30 | int(dir/2)<<4)
			}
			s.frameIndex = 0
		case Weather:
			kind := s.arg().Val & 0xff
			if kind == 0xff {
				kind = 0
			}
			h.Media.Weather(kind)
		case Hit:
			hps, typ := s.arg().Val, s.arg().Val
			if d, ok := obj.(Damageable); ok {
				d.ReduceHealth(hps, typ)
			}
		case Attack:
			if p, ok := obj.(Puppet); ok {
				p.UsecodeAttack()
			}
		case Resurrect:
			if b, ok := obj.(*world.Body); ok {
				if r, ok := b.Of.Get(h.Objs).(Resurrecter); ok {
					r.Resurrect(b)
				}
			}
		default:
			switch {
			case op >= NPCFrame && op <= NPCFrame+0xf:
				// Keep the facing, change the pose.
				obj.SetFrame(obj.Frame()&0x30 | int(op-NPCFrame))
			case op >= StepN && op <= StepNW:
				s.step(obj, int(op&7), 0)
				doAnother = true
			default:
				log.Warningf(s.ctx(), "unknown script opcode %s at %d", op, s.i)
			}
		}
	}
	return delay
}

// loop implements repeat and repeat2. The counter is decremented on
// every pass; while it stays positive the cursor jumps back by the
// offset, so a count of n runs the body n times. Once exhausted,
// repeat2 restores the counter from its reset operand so that an
// enclosing loop can run it again. A count of 255 loops forever.
func (s *Script) loop(op Opcode) {
	at := s.i
	if at+2 >= len(s.code) {
		s.i = len(s.code)
		return
	}
	count := s.code[at+2].Val
	if count != 255 {
		count--
		s.code[at+2].Val = count
	}
	if count > 0 {
		s.i = at + s.code[at+1].Val - 1
		if s.i < -1 {
			s.i = -1
		}
		return
	}
	if op == Repeat2 && at+3 < len(s.code) {
		s.code[at+2].Val = s.code[at+3].Val
		s.i = at + 3
	} else {
		s.i = at + 2
	}
}

func (s *Script) activateEgg(obj world.Object) {
	h := s.reg.host
	if egg, ok := obj.(*world.Egg); ok {
		egg.Activate(h.Usecode, h.Avatar())
	}
}

// step moves obj one tile in dir (or only vertically when dir is -1).
func (s *Script) step(obj world.Object, dir int, dz int) {
	if p, ok := obj.(Puppet); ok {
		t := obj.Tile()
		fdir := world.Dir(0)
		if dir != -1 {
			t = t.Neighbor(world.Dir(dir))
			fdir = world.Dir(dir)
		} else {
			fdir = world.Dir((obj.Frame() >> 4 & 3) * 2)
		}
		t.Z += dz
		if t.Z < 0 {
			t.Z = 0
		}
		frame := p.WalkFrame(fdir, &s.frameIndex)
		p.ScriptStep(t, frame)
		return
	}
	if obj.Kind() == world.KindBarge {
		// Wide objects move in four sub-steps, spreading the lift change.
		for i := 0; i < 4; i++ {
			t := obj.Tile()
			if dir != -1 {
				t = t.Neighbor(world.Dir(dir))
			}
			t.Z += dz / 4
			if i == 0 {
				t.Z += dz % 4
			}
			if t.Z < 0 {
				t.Z = 0
			}
			obj.Move(t)
		}
	}
}
