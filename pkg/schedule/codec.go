package schedule

import (
	"github.com/cockroachdb/errors"
	"github.com/gogo/protobuf/proto"
	"github.com/wonst719/exult-sub000/pkg/npc"
	"github.com/wonst719/exult-sub000/pkg/tqueue"
	"github.com/wonst719/exult-sub000/pkg/world"
)

// persistent schedules save the state that lets them carry on where
// they left off. Times are saved relative to now.
type persistent interface {
	save(now tqueue.Time) []int64
	restore(now tqueue.Time, f fields) error
}

// fields reads saved values in order.
type fields []int64

func (f *fields) next() int64 {
	if len(*f) == 0 {
		return 0
	}
	v := (*f)[0]
	*f = (*f)[1:]
	return v
}

func (f *fields) num() int       { return int(f.next()) }
func (f *fields) flag() bool     { return f.next() != 0 }
func (f *fields) ref() world.Ref { return world.RefID(world.ObjID(f.next())) }

func (f *fields) tile() world.Tile {
	return world.Tile{X: f.num(), Y: f.num(), Z: f.num()}
}

func (f *fields) after(now tqueue.Time) tqueue.Time { return now + tqueue.Time(f.next()) }

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func tileFields(t world.Tile) []int64 { return []int64{int64(t.X), int64(t.Y), int64(t.Z)} }

func (b *base) self() *base { return b }

// Encode serializes a schedule: its type, the previous type, the spot
// it started from and its own state, if any.
func Encode(s npc.Schedule, now tqueue.Time) ([]byte, error) {
	bs, ok := s.(interface{ self() *base })
	if !ok {
		return nil, errors.Newf("cannot encode schedule %T", s)
	}
	b := bs.self()
	var state []int64
	if p, ok := s.(persistent); ok {
		state = p.save(now)
	}
	buf := proto.NewBuffer(nil)
	put := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	put(buf.EncodeZigzag64(uint64(int64(s.Type()))))
	put(buf.EncodeZigzag64(uint64(int64(b.prev))))
	for _, v := range tileFields(b.startPos) {
		put(buf.EncodeZigzag64(uint64(v)))
	}
	put(buf.EncodeVarint(uint64(len(state))))
	for _, v := range state {
		put(buf.EncodeZigzag64(uint64(v)))
	}
	return buf.Bytes(), nil
}

// Decode rebuilds a schedule for a, as made by m. The caller installs
// it with a.SetSchedule.
func Decode(m *Maker, a *npc.Actor, data []byte, now tqueue.Time) (s npc.Schedule, err error) {
	buf := proto.NewBuffer(data)
	zigzag := func() int64 {
		v, err := buf.DecodeZigzag64()
		if err != nil {
			panic(err)
		}
		return int64(v)
	}
	defer func() {
		if p := recover(); p != nil {
			e, ok := p.(error)
			if !ok {
				panic(p)
			}
			s, err = nil, errors.Wrap(e, "decoding schedule")
		}
	}()

	typ := npc.ScheduleType(zigzag())
	prev := npc.ScheduleType(zigzag())
	start := world.Tile{X: int(zigzag()), Y: int(zigzag()), Z: int(zigzag())}
	n, err := buf.DecodeVarint()
	if err != nil {
		return nil, errors.Wrap(err, "decoding schedule")
	}
	if n > uint64(len(data)) {
		return nil, errors.Newf("decoding schedule: implausible field count %d", n)
	}
	state := make(fields, n)
	for i := range state {
		state[i] = zigzag()
	}

	if typ == npc.WalkToSchedule {
		w := newWalkTo(m, a, world.NoTile, npc.Loiter, 0)
		s = w
	} else {
		s = m.Make(a, typ, prev)
	}
	if s.Type() != typ {
		return nil, errors.Newf("decoding schedule: %s is not available", typ)
	}
	b := s.(interface{ self() *base }).self()
	b.prev = prev
	b.startPos = start
	if p, ok := s.(persistent); ok {
		if err := p.restore(now, state); err != nil {
			return nil, errors.Wrapf(err, "decoding %s", typ)
		}
	}
	return s, nil
}

func (c *Combat) save(now tqueue.Time) []int64 {
	res := []int64{
		int64(c.state), int64(c.failures), int64(c.fleed), int64(c.dex),
		b2i(c.yelled), b2i(c.startedBattle), int64(c.alignment),
		int64(c.teleportTime - now), int64(c.summonTime - now), int64(c.invisibleTime - now),
		int64(len(c.opponents)),
	}
	for _, o := range c.opponents {
		res = append(res, int64(o.ID()))
	}
	if d := c.duel; d != nil {
		res = append(res, tileFields(d.start)...)
		res = append(res, int64(d.attacks), int64(d.practice.ID()))
	}
	return res
}

func (c *Combat) restore(now tqueue.Time, f fields) error {
	c.state = combatState(f.num())
	if c.state < initial || c.state > waitReturn {
		return errors.Newf("invalid combat state %d", c.state)
	}
	c.failures = f.num()
	c.fleed = f.num()
	c.dex = f.num()
	c.yelled = f.flag()
	c.startedBattle = f.flag()
	c.alignment = npc.Alignment(f.num())
	c.teleportTime = f.after(now)
	c.summonTime = f.after(now)
	c.invisibleTime = f.after(now)
	c.opponents = nil
	for n := f.num(); n > 0; n-- {
		c.opponents = append(c.opponents, f.ref())
	}
	if d := c.duel; d != nil {
		d.start = f.tile()
		d.attacks = f.num()
		d.practice = f.ref()
	}
	return nil
}

func (w *walkTo) save(tqueue.Time) []int64 {
	return append(tileFields(w.dest), int64(w.next), int64(w.legs), int64(w.retries))
}

func (w *walkTo) restore(_ tqueue.Time, f fields) error {
	w.dest = f.tile()
	w.next = npc.ScheduleType(f.num())
	w.legs = f.num()
	w.retries = f.num()
	if !w.dest.Valid() {
		return errors.New("walk without a destination")
	}
	return nil
}

func (p *patrol) save(tqueue.Time) []int64 {
	return append([]int64{
		int64(p.state), int64(p.pathNum), int64(p.dir), int64(p.lastPath),
		b2i(p.seekCombat), b2i(p.forever), b2i(p.noPaths),
	}, tileFields(p.center)...)
}

func (p *patrol) restore(_ tqueue.Time, f fields) error {
	p.state = patrolState(f.num())
	p.pathNum = f.num()
	p.dir = f.num()
	p.lastPath = f.num()
	p.seekCombat = f.flag()
	p.forever = f.flag()
	p.noPaths = f.flag()
	p.center = f.tile()
	if p.dir != 1 && p.dir != -1 {
		return errors.Newf("invalid patrol direction %d", p.dir)
	}
	switch p.state {
	case patrolPace, patrolHammer:
		// Neither survives: start from the next egg.
		p.state = patrolFind
	}
	return nil
}

func (s *sleep) save(tqueue.Time) []int64 {
	return append([]int64{int64(s.bed.ID()), int64(s.state), b2i(s.napTime)}, tileFields(s.floorLoc)...)
}

func (s *sleep) restore(_ tqueue.Time, f fields) error {
	s.bed = f.ref()
	s.state = f.num()
	s.napTime = f.flag()
	s.floorLoc = f.tile()
	return nil
}

func (p *pace) save(tqueue.Time) []int64 {
	return append(tileFields(p.loc), int64(p.phase))
}

func (p *pace) restore(_ tqueue.Time, f fields) error {
	p.loc = f.tile()
	p.phase = f.num()
	return nil
}

func (l *loiter) save(tqueue.Time) []int64 { return tileFields(l.center) }

func (l *loiter) restore(_ tqueue.Time, f fields) error {
	l.center = f.tile()
	return nil
}

func (w *wander) save(tqueue.Time) []int64 { return tileFields(w.center) }

func (w *wander) restore(_ tqueue.Time, f fields) error {
	w.center = f.tile()
	return nil
}
