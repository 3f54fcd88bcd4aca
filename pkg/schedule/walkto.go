package schedule

import (
	"github.com/cockroachdb/cockroach/pkg/util/log"
	"github.com/wonst719/exult-sub000/pkg/npc"
	"github.com/wonst719/exult-sub000/pkg/world"
)

// walkTo is the transient schedule bringing an actor to the spot of
// its next schedule.
type walkTo struct {
	base
	dest       world.Tile
	next       npc.ScheduleType
	firstDelay int
	retries    int
	legs       int
}

func newWalkTo(m *Maker, a *npc.Actor, dest world.Tile, next npc.ScheduleType, delay int) *walkTo {
	w := &walkTo{
		base:       newBase(m, a, npc.WalkToSchedule, a.ScheduleType()),
		dest:       dest,
		next:       next,
		firstDelay: delay,
	}
	a.Stop()
	a.SetAction(nil)
	return w
}

// Busy implements npc.Schedule.
func (w *walkTo) Busy() bool { return true }

// WhatNow implements npc.Schedule.
func (w *walkTo) WhatNow() {
	a := w.npc
	env := w.env()
	if a.Tile().Distance(w.dest) <= 3 {
		log.VEventf(w.ctx(), 1, "arrived at %s for %s", w.dest, w.next)
		a.SetScheduleType(w.next)
		return
	}
	if w.legs >= 40 || w.retries >= 2 {
		// Give up and get there at once.
		log.VEventf(w.ctx(), 1, "teleporting to %s after %d legs, %d retries", w.dest, w.legs, w.retries)
		a.Move(w.dest)
		w.stand()
		a.SetScheduleType(w.next)
		return
	}
	from, to := a.Tile(), w.dest
	if env.Map != nil {
		scr := env.Map.Screen().Enlarge(6)
		srcOff, destOff := !scr.Contains(from), !scr.Contains(to)
		switch {
		case srcOff && destOff:
			// Nobody sees it: the next call teleports.
			w.retries = 100
			a.Start(200, 100)
			return
		case destOff:
			if from.Distance(to) > 80 || w.legs < 10 {
				// Walk off the screen; the rest happens out of sight.
				to = clampTo(scr, to)
				if to.Distance2D(from) <= 1 {
					w.retries = 100
					a.Start(200, 100)
					return
				}
			}
		case srcOff:
			from = world.NoTile
		}
	}
	delay := w.firstDelay + w.rnd(1000)
	w.firstDelay = 0
	if !a.WalkPathToTile(from, to, w.std(), delay, 0, 0) {
		log.VEventf(w.ctx(), 2, "no path to %s", to)
		a.WalkToTile(w.dest, w.std(), 1000, 0)
		w.retries++
		return
	}
	w.legs++
	w.retries = 0
}

// OnDormant implements npc.Schedule: a dormant actor cannot walk, so
// it arrives without being seen.
func (w *walkTo) OnDormant() {
	w.npc.SetAction(nil)
	w.WhatNow()
}

// clampTo returns the tile of r closest to t.
func clampTo(r world.Rect, t world.Tile) world.Tile {
	if t.X < r.X {
		t.X = r.X
	} else if t.X >= r.X+r.W {
		t.X = r.X + r.W - 1
	}
	if t.Y < r.Y {
		t.Y = r.Y
	} else if t.Y >= r.Y+r.H {
		t.Y = r.Y + r.H - 1
	}
	return t
}
