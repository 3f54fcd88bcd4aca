package script

import (
	"github.com/cockroachdb/errors"
	"github.com/gogo/protobuf/proto"
	"github.com/wonst719/exult-sub000/pkg/tqueue"
	"github.com/wonst719/exult-sub000/pkg/world"
)

const (
	cellInt  = 0
	cellText = 1
)

// Encode serializes a queued script: instruction count, cursor,
// instructions, frame index, no-halt flag and the delay remaining
// before its next resumption.
func (s *Script) Encode(now tqueue.Time) ([]byte, error) {
	when := s.reg.host.Queue.FindDelay(s, now)
	if when < 0 {
		return nil, errors.Newf("script for object %d is not queued", s.obj.ID())
	}
	b := proto.NewBuffer(nil)
	put := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	put(b.EncodeVarint(uint64(len(s.code))))
	put(b.EncodeZigzag64(uint64(s.i)))
	for _, c := range s.code {
		if c.IsText {
			put(b.EncodeVarint(cellText))
			put(b.EncodeStringBytes(c.Text))
		} else {
			put(b.EncodeVarint(cellInt))
			put(b.EncodeZigzag64(uint64(int64(c.Val))))
		}
	}
	put(b.EncodeVarint(uint64(s.frameIndex)))
	noHalt := uint64(0)
	if s.noHalt {
		noHalt = 1
	}
	put(b.EncodeVarint(noHalt))
	put(b.EncodeVarint(uint64(when)))
	return b.Bytes(), nil
}

// Decode restores a script for obj. The result is detached: the
// caller starts it with its recorded Delay.
func (r *Registry) Decode(obj world.Object, data []byte) (s *Script, err error) {
	b := proto.NewBuffer(data)
	varint := func() uint64 {
		v, err := b.DecodeVarint()
		if err != nil {
			panic(err)
		}
		return v
	}
	zigzag := func() int {
		v, err := b.DecodeZigzag64()
		if err != nil {
			panic(err)
		}
		return int(int64(v))
	}
	defer func() {
		if p := recover(); p != nil {
			e, ok := p.(error)
			if !ok {
				panic(p)
			}
			s, err = nil, errors.Wrap(e, "decoding script")
		}
	}()

	n := varint()
	if n > uint64(len(data)) {
		return nil, errors.Newf("decoding script: implausible instruction count %d", n)
	}
	s = r.New(obj)
	s.i = zigzag()
	s.code = make([]Cell, 0, n)
	for j := uint64(0); j < n; j++ {
		switch tag := varint(); tag {
		case cellInt:
			s.code = append(s.code, Int(zigzag()))
		case cellText:
			t, err := b.DecodeStringBytes()
			if err != nil {
				panic(err)
			}
			s.code = append(s.code, Text(t))
		default:
			return nil, errors.Newf("decoding script: unknown cell tag %d", tag)
		}
	}
	if s.i < 0 || s.i > len(s.code) {
		return nil, errors.Newf("decoding script: cursor %d outside of %d instructions", s.i, len(s.code))
	}
	s.frameIndex = int(varint())
	if s.frameIndex < 0 {
		return nil, errors.Newf("decoding script: invalid frame index %d", s.frameIndex)
	}
	s.noHalt = varint() != 0
	s.delay = int(varint())
	if s.delay < 0 {
		return nil, errors.Newf("decoding script: invalid delay %d", s.delay)
	}
	return s, nil
}
