package schedule

import (
	"github.com/cockroachdb/cockroach/pkg/util/log"
	"github.com/wonst719/exult-sub000/pkg/npc"
	"github.com/wonst719/exult-sub000/pkg/world"
)

// Workshop shapes.
const (
	shapeFirepit    = 739
	shapeBellows    = 431
	shapeAnvil      = 991
	shapeTrough     = 719
	shapeBlank      = 668
	shapeTongs      = 994
	shapeOven       = 831
	shapeStove      = 664
	shapeFlourBag   = 863
	shapeWorkTable  = 1003
	shapeWorkTable2 = 1018
	shapeDough      = 658
	shapeShopTable  = 633
	shapeBale       = 653
	shapeSpinWheel  = 651
	shapeLoom       = 261
	shapeCloth      = 851
	shapeClothes    = 698
	shapeSewTable   = 971
	shapeWares      = 890
)

// A workStep walks to the closest of its stations and then carries out
// the action made by do. Without stations it acts on the spot.
type workStep struct {
	name     string
	stations []int
	do       func(w *work, station world.Object) npc.Action
}

// work runs a craft as a cycle of steps, making and moving the goods
// between workstations.
type work struct {
	base
	steps     []workStep
	step      int
	proximity int
	goods     []world.Object
	held      world.Object
	tool      world.Object
	failures  int
}

// maxGoods is how many finished products a worker leaves around
// before clearing away the oldest.
const maxGoods = 4

func newWork(m *Maker, a *npc.Actor, t, prev npc.ScheduleType, steps []workStep) *work {
	return &work{base: newBase(m, a, t, prev), steps: steps}
}

func newForge(m *Maker, a *npc.Actor, prev npc.ScheduleType) *work {
	return newWork(m, a, npc.Blacksmith, prev, forgeSteps)
}

func newBake(m *Maker, a *npc.Actor, prev npc.ScheduleType) *work {
	w := newWork(m, a, npc.Bake, prev, bakeSteps)
	w.proximity = 8
	return w
}

func newSew(m *Maker, a *npc.Actor, prev npc.ScheduleType) *work {
	return newWork(m, a, npc.Sew, prev, sewSteps)
}

// Step returns the name of the current step.
func (w *work) Step() string { return w.steps[w.step].name }

// WhatNow implements npc.Schedule.
func (w *work) WhatNow() {
	a := w.npc
	if w.proximity > 0 && w.tryProximityUsecode(w.proximity) {
		return
	}
	st := w.steps[w.step]
	var station world.Object
	if len(st.stations) > 0 {
		station = w.closest(st.stations, 24)
		if station == nil {
			log.VEventf(w.ctx(), 2, "no station for %s", st.name)
			w.restart()
			a.Start(250, 2500)
			return
		}
	}
	act := st.do(w, station)
	if act == nil {
		w.restart()
		a.Start(250, 2500)
		return
	}
	w.step = (w.step + 1) % len(w.steps)
	if station != nil && w.walkTo(station, 1, act, 100) {
		return
	}
	a.SetAction(act)
	a.Start(250, 100)
}

// restart drops what is in the works and begins the cycle anew.
func (w *work) restart() {
	w.failures++
	w.step = 0
	w.scrap(w.held)
	w.held = nil
}

// craft creates an object in the actor's hands.
func (w *work) craft(name string, shape, frame int) world.Object {
	it := world.NewItem(name, shape, 32, world.NoTile)
	it.SetFrame(frame)
	w.npc.Carry(it)
	return it
}

// ready puts a tool in the actor's hands in place of the previous one.
func (w *work) ready(name string, shape int) {
	w.putAway(w.tool)
	w.tool = w.craft(name, shape, 0)
	w.npc.EmptyHands()
	w.npc.SetWeapon(shape)
}

// scrap gets rid of a work piece, carried or lying around.
func (w *work) scrap(obj world.Object) {
	if obj == nil {
		return
	}
	if !w.npc.Discard(obj) && w.objs().Lookup(obj.ID()) == obj {
		w.env().Remove(obj)
	}
}

// finish turns the held piece into goods on display.
func (w *work) finish() {
	if w.held == nil {
		return
	}
	w.goods = append(w.goods, w.held)
	w.held = nil
	if len(w.goods) > maxGoods {
		w.scrap(w.goods[0])
		w.goods = w.goods[1:]
	}
	w.npc.Trace("work", w.typ.String())
}

// on is the spot on top of an object.
func on(obj world.Object) world.Tile { return obj.Tile().Add(0, 0, 1) }

func (w *work) bend(dir world.Dir) npc.Action {
	return npc.NewFrames(w.std(), dirFrames(dir, npc.Bow, npc.Standing)...)
}

func (w *work) facing(obj world.Object) world.Dir {
	return world.DirTowards(w.npc.Tile(), obj.Tile())
}

// Ending implements npc.Schedule: tools and unfinished pieces are put
// away.
func (w *work) Ending(npc.ScheduleType) {
	w.putAway(w.tool)
	w.tool = nil
	w.scrap(w.held)
	w.held = nil
}

var forgeSteps = []workStep{
	{name: "heat", stations: []int{shapeFirepit}, do: func(w *work, pit world.Object) npc.Action {
		w.held = w.craft("sword blank", shapeBlank, 0)
		return npc.NewPutdown(w.held, on(pit), 250)
	}},
	{name: "bellows", stations: []int{shapeBellows}, do: func(w *work, bellows world.Object) npc.Action {
		pit := w.closest([]int{shapeFirepit}, 24)
		if pit == nil || w.held == nil {
			return nil
		}
		acts := []npc.Action{npc.NewFaceObj(bellows, 250)}
		for heat := 1; heat <= 3; heat++ {
			acts = append(acts,
				npc.NewFrames(w.std(), npc.DirFrame(int(w.facing(bellows)), npc.Bow)),
				npc.NewObjectAnimate(bellows, 1, 300),
				npc.NewFrames(w.std(), npc.DirFrame(int(w.facing(bellows)), npc.Standing)),
				npc.NewObjectFrames(pit, 0, -1, heat),
				npc.NewObjectFrames(w.held, 0, -1, heat))
		}
		acts = append(acts, npc.NewObjectFrames(bellows, 0, -1, 0))
		return npc.NewSequence(0, acts...)
	}},
	{name: "take", stations: []int{shapeFirepit}, do: func(w *work, pit world.Object) npc.Action {
		if w.held == nil || w.objs().Lookup(w.held.ID()) != w.held {
			return nil
		}
		w.ready("tongs", shapeTongs)
		return npc.NewPickup(w.held, 250, false)
	}},
	{name: "anvil", stations: []int{shapeAnvil}, do: func(w *work, anvil world.Object) npc.Action {
		if w.held == nil {
			return nil
		}
		return npc.NewPutdown(w.held, on(anvil), 250)
	}},
	{name: "hammer", stations: []int{shapeAnvil}, do: func(w *work, anvil world.Object) npc.Action {
		if w.held == nil {
			return nil
		}
		w.ready("hammer", shapeHammer)
		swing := dirFrames(w.facing(anvil), attackPoses[world.Swing]...)
		var acts []npc.Action
		for heat := 3; heat > 0; heat-- {
			acts = append(acts,
				npc.NewFrames(w.std(), swing...),
				npc.NewObjectFrames(w.held, 0, sfxHammer, heat-1))
		}
		return npc.NewSequence(0, acts...)
	}},
	{name: "quench", stations: []int{shapeTrough}, do: func(w *work, trough world.Object) npc.Action {
		if w.held == nil || w.objs().Lookup(w.held.ID()) != w.held {
			return nil
		}
		if trough.Frame() == 0 {
			// Fill it first.
			trough.SetFrame(3)
		}
		w.ready("tongs", shapeTongs)
		blank := w.held
		anvil := w.closest([]int{shapeAnvil}, 24)
		if anvil == nil {
			return nil
		}
		w.finish()
		return npc.NewSequence(0,
			w.carryTo(trough, anvil, npc.NewPickup(blank, 250, false)),
			w.carryTo(anvil, trough, w.bend(w.facing(trough))),
			npc.NewObjectFrames(trough, 0, -1, trough.Frame()-1),
			npc.NewPutdown(blank, trough.Tile().Add(1, 0, 0), 250),
			npc.NewObjectFrames(blank, 0, -1, 0))
	}},
}

var bakeSteps = []workStep{
	{name: "flour", stations: []int{shapeFlourBag}, do: func(w *work, bag world.Object) npc.Action {
		return npc.NewSequence(0, w.bend(w.facing(bag)), npc.NewObjectFrames(bag, 0, -1, 0))
	}},
	{name: "dough", stations: []int{shapeWorkTable, shapeWorkTable2}, do: func(w *work, table world.Object) npc.Action {
		w.held = w.craft("dough", shapeDough, 0)
		dir := w.facing(table)
		return npc.NewSequence(0,
			npc.NewPutdown(w.held, on(table), 250),
			npc.NewFrames(w.std(), dirFrames(dir, npc.Reach1, npc.Standing, npc.Reach1, npc.Standing)...),
			npc.NewObjectFrames(w.held, w.std(), -1, 1, 2))
	}},
	{name: "oven", stations: []int{shapeWorkTable, shapeWorkTable2}, do: func(w *work, table world.Object) npc.Action {
		if w.held == nil || w.objs().Lookup(w.held.ID()) != w.held {
			return nil
		}
		oven := w.closest([]int{shapeOven, shapeStove}, 24)
		if oven == nil {
			return nil
		}
		dough := w.held
		return npc.NewSequence(0,
			npc.NewPickup(dough, 250, false),
			w.carryTo(table, oven, npc.NewPutdown(dough, on(oven), 250)))
	}},
	{name: "bake", stations: []int{shapeOven, shapeStove}, do: func(w *work, oven world.Object) npc.Action {
		if w.held == nil || w.objs().Lookup(w.held.ID()) != w.held {
			return nil
		}
		return npc.NewSequence(0,
			npc.NewFrames(8*w.std(), npc.DirFrame(int(w.facing(oven)), npc.Standing), -1),
			npc.NewChange(w.held, shapeFood, w.rnd(7), 0),
			npc.NewPickup(w.held, 250, false))
	}},
	{name: "display", stations: []int{shapeShopTable, shapeWares}, do: func(w *work, table world.Object) npc.Action {
		if w.held == nil {
			return nil
		}
		food := w.held
		w.finish()
		return npc.NewPutdown(food, on(table), 250)
	}},
}

var sewSteps = []workStep{
	{name: "wool", stations: []int{shapeBale}, do: func(w *work, bale world.Object) npc.Action {
		return w.bend(w.facing(bale))
	}},
	{name: "spin", stations: []int{shapeSpinWheel}, do: func(w *work, wheel world.Object) npc.Action {
		return npc.NewSequence(0,
			npc.NewFaceObj(wheel, 250),
			npc.NewObjectAnimate(wheel, 8, 200))
	}},
	{name: "weave", stations: []int{shapeLoom}, do: func(w *work, loom world.Object) npc.Action {
		w.held = w.craft("cloth", shapeCloth, w.rnd(2))
		return npc.NewSequence(0,
			npc.NewFaceObj(loom, 250),
			npc.NewObjectAnimate(loom, 4, 200))
	}},
	{name: "sew", stations: []int{shapeSewTable}, do: func(w *work, table world.Object) npc.Action {
		if w.held == nil {
			return nil
		}
		dir := w.facing(table)
		cloth := w.held
		return npc.NewSequence(0,
			npc.NewPutdown(cloth, on(table), 250),
			npc.NewFrames(w.std(), dirFrames(dir, npc.Reach1, npc.Standing, npc.Reach2, npc.Standing)...),
			npc.NewChange(cloth, shapeClothes, w.rnd(4), 0))
	}},
	{name: "display", stations: []int{shapeSewTable}, do: func(w *work, sewTable world.Object) npc.Action {
		if w.held == nil || w.objs().Lookup(w.held.ID()) != w.held {
			return nil
		}
		table := w.closest([]int{shapeWares, shapeShopTable}, 24)
		if table == nil {
			return nil
		}
		clothes := w.held
		w.finish()
		return npc.NewSequence(0,
			npc.NewPickup(clothes, 250, false),
			w.carryTo(sewTable, table, npc.NewPutdown(clothes, on(table), 250)))
	}},
}

// carryTo walks from one station to the next, planning the path ahead,
// and then carries out act. Without a path act happens where the actor
// stands.
func (w *work) carryTo(from, to world.Object, act npc.Action) npc.Action {
	walk, ok := npc.NewPathWalk(w.npc, from.Tile(), to.Tile(), 1, true, w.std(), 0)
	if !ok {
		return act
	}
	return npc.NewSequence(0, walk, act)
}
