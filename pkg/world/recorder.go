package world

import "fmt"

// Recorder is a Presenter and Usecode host that records every call as
// a line of text. The simulator narrates these lines; tests compare them.
type Recorder struct {
	Lines []string
	// OnCall, when set, is invoked for behavior function calls after
	// recording them. It may have arbitrary side effects, including
	// removing the item.
	OnCall  func(fun int, item Object, ev Event)
	playing map[int]bool
}

var _ Presenter = (*Recorder)(nil)
var _ Usecode = (*Recorder)(nil)

func (r *Recorder) record(format string, args ...interface{}) {
	r.Lines = append(r.Lines, fmt.Sprintf(format, args...))
}

func objName(o Object) string {
	if o == nil {
		return "<nil>"
	}
	if o.Name() != "" {
		return o.Name()
	}
	return fmt.Sprintf("obj%d", o.ID())
}

// Drain returns the recorded lines and forgets them.
func (r *Recorder) Drain() []string {
	l := r.Lines
	r.Lines = nil
	return l
}

// Call implements Usecode.
func (r *Recorder) Call(fun int, item Object, ev Event) {
	r.record("call %#x on %s (%s)", fun, objName(item), ev)
	if r.OnCall != nil {
		r.OnCall(fun, item, ev)
	}
}

// Say implements Presenter.
func (r *Recorder) Say(obj Object, text string) { r.record("%s says %q", objName(obj), text) }

// Music implements Presenter.
func (r *Recorder) Music(track int, continuous bool) {
	r.record("music %d (continuous=%v)", track, continuous)
}

// Speech implements Presenter.
func (r *Recorder) Speech(track int) { r.record("speech %d", track) }

// Sfx implements Presenter. Effects are considered to keep playing
// until StopSfx is called.
func (r *Recorder) Sfx(id int, obj Object) {
	if r.playing == nil {
		r.playing = make(map[int]bool)
	}
	r.playing[id] = true
	r.record("sfx %d at %s", id, objName(obj))
}

// StopSfx ends a sound effect.
func (r *Recorder) StopSfx(id int) { delete(r.playing, id) }

// SfxPlaying implements Presenter.
func (r *Recorder) SfxPlaying(id int) bool { return r.playing[id] }

// Weather implements Presenter.
func (r *Recorder) Weather(kind int) { r.record("weather %d", kind) }

// Effect implements Presenter.
func (r *Recorder) Effect(kind int, at Tile) { r.record("effect %d at %s", kind, at) }
