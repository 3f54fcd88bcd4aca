package script

import (
	"github.com/cockroachdb/cockroach/pkg/util/log"
	"github.com/wonst719/exult-sub000/pkg/world"
)

// Registry tracks the live scripts of a simulation. It is owned by
// the simulation context and lives as long as it does.
type Registry struct {
	host *Host
	// scripts holds the started scripts, most recent first.
	scripts []*Script
}

// NewRegistry creates a registry for scripts running in the given host.
func NewRegistry(h *Host) *Registry {
	return &Registry{host: h}
}

// Host returns the environment of the registry's scripts.
func (r *Registry) Host() *Host { return r.host }

// New creates a detached script for obj.
func (r *Registry) New(obj world.Object, args ...interface{}) *Script {
	s := &Script{reg: r, obj: world.RefTo(obj)}
	return s.Add(args...)
}

// Len returns the number of live scripts.
func (r *Registry) Len() int { return len(r.scripts) }

// forget removes a script that reached its end.
func (r *Registry) forget(s *Script) {
	for i, o := range r.scripts {
		if o == s {
			r.scripts = append(r.scripts[:i], r.scripts[i+1:]...)
			break
		}
	}
	r.host.Queue.RemoveAll(s)
}

// Find returns the first live script for obj after the given one (nil
// to start from the most recent).
func (r *Registry) Find(obj world.Object, after *Script) *Script {
	return r.find(obj, after, false)
}

// FindActive is like Find but skips scripts that have not executed
// anything yet.
func (r *Registry) FindActive(obj world.Object, after *Script) *Script {
	return r.find(obj, after, true)
}

func (r *Registry) find(obj world.Object, after *Script, active bool) *Script {
	start := 0
	if after != nil {
		for i, s := range r.scripts {
			if s == after {
				start = i + 1
				break
			}
		}
	}
	for _, s := range r.scripts[start:] {
		if s.obj.ID() == obj.ID() && (!active || s.Active()) {
			return s
		}
	}
	return nil
}

// Terminate halts every interruptible script of obj.
func (r *Registry) Terminate(obj world.Object) {
	for _, s := range append([]*Script(nil), r.scripts...) {
		if s.obj.ID() == obj.ID() {
			s.Halt()
		}
	}
}

// Purge halts the scripts that have not run yet and whose object is
// farther than dist from anchor, protected or not. Scripts that must
// finish are first run to completion.
func (r *Registry) Purge(anchor world.Tile, dist int) {
	for _, s := range append([]*Script(nil), r.scripts...) {
		o := s.Object()
		if o == nil || s.i != 0 || o.Tile().Distance(anchor) <= dist {
			continue
		}
		s.noHalt = false
		if s.mustFinish {
			log.VEventf(s.ctx(), 2, "running purged script to completion")
			s.Exec(true)
		}
		s.Halt()
	}
}

// Clear drops every script, removing them from the time queue.
func (r *Registry) Clear() {
	for _, s := range r.scripts {
		r.host.Queue.RemoveAll(s)
	}
	r.scripts = nil
}

// Each calls fn for every live script, most recent first.
func (r *Registry) Each(fn func(*Script)) {
	for _, s := range append([]*Script(nil), r.scripts...) {
		fn(s)
	}
}
