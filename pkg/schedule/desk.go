package schedule

import (
	"github.com/cockroachdb/cockroach/pkg/util/log"
	"github.com/wonst719/exult-sub000/pkg/npc"
	"github.com/wonst719/exult-sub000/pkg/world"
)

var (
	deskShapes  = []int{283, 407}
	tableShapes = []int{890, 633, 1000, 283, 407}
)

type deskState int

const (
	deskSetup deskState = iota
	deskSit
	deskGetItem
	deskWorkAtTable
)

// desk sits at a desk and shuffles papers between it and the tables
// around.
type desk struct {
	base
	state deskState
	chair world.Ref
	table world.Ref
	item  world.Ref
	made  []world.Object
}

func newDesk(m *Maker, a *npc.Actor, prev npc.ScheduleType) *desk {
	return &desk{base: newBase(m, a, npc.DeskWork, prev)}
}

// deskItemFrame picks a desk item to create. Every third one is a
// document.
func (d *desk) deskItemFrame(n int) int {
	if n%3 == 2 {
		return []int{6, 13}[d.rnd(2)]
	}
	return []int{0, 1, 2, 3, 4, 5, 7, 8, 9, 12, 14, 15}[d.rnd(12)]
}

func (d *desk) inHand() []world.Object { return d.npc.CarriedShape(shapeDeskItem) }

// WhatNow implements npc.Schedule.
func (d *desk) WhatNow() {
	if d.rnd(3) == 0 && d.tryStreetMaintenance() {
		return
	}
	a := d.npc
	switch d.state {
	case deskSetup:
		d.stand()
		nearby := len(d.objs().FindNearby(a.Tile(), shapeDeskItem, 16))
		for i, n := 0, 7+d.rnd(5)-len(d.inHand())-nearby; i < n; i++ {
			it := world.NewItem("desk item", shapeDeskItem, 16, world.NoTile)
			it.SetFrame(d.deskItemFrame(i))
			a.Carry(it)
			d.made = append(d.made, it)
		}
		if dk := d.closest(deskShapes, 2); dk != nil {
			d.chair = world.RefTo(d.objs().FindClosest(dk.Tile(), chairShapes, 4))
		}
		if d.chair.IsZero() {
			d.chair = world.RefTo(d.closest(chairShapes, 8))
		}
		if d.chair.IsZero() {
			log.VEventf(d.ctx(), 2, "no chair at a desk")
			a.Start(200, 5000)
			return
		}
		d.state = deskSit
		fallthrough
	case deskSit:
		switch {
		case !d.sitting():
			chair := d.chair.Get(d.objs())
			if chair == nil || d.sitDown(chair, 0) == nil {
				d.chair = world.Ref{}
				d.state = deskSetup
				a.Start(200, 5000)
				return
			}
			a.Start(250, 0)
		case d.rnd(1+len(d.inHand())) != 0 && d.walkToTable():
			d.state = deskWorkAtTable
		case d.rnd(2) != 0 && d.walkToItem():
			d.state = deskGetItem
		default:
			// Stand up a second.
			dir := world.Dir(a.Facing())
			a.SetAction(npc.NewFrames(d.std(), dirFrames(dir,
				npc.Standing, npc.Reach1, npc.Standing, npc.Bow, npc.SitFrame)...))
			a.Start(250, 3000+d.rnd(2000))
		}
	case deskGetItem:
		d.state = deskSit
		if it := d.item.Get(d.objs()); it != nil && a.DistanceTo(it) <= 3 {
			a.ChangeFrame(npc.DirFrame(int(world.DirTowards(a.Tile(), it.Tile())), npc.Standing))
			a.SetAction(npc.NewPickup(it, 250, false))
		}
		d.item = world.Ref{}
		a.Start(250, 500+d.rnd(1000))
	case deskWorkAtTable:
		tbl := d.table.Get(d.objs())
		items := d.inHand()
		switch {
		case tbl == nil || d.rnd(3) == 0:
			d.state = deskSit
		case len(items) > 0 && d.rnd(6) != 0:
			it := items[d.rnd(len(items))]
			if spot, ok := findSpot(d.env(), tbl.Tile(), 1); ok {
				a.SetAction(npc.NewPutdown(it, spot.Add(0, 0, 1), 250))
				if d.rnd(2) != 0 {
					d.state = deskSit
				}
			}
		default:
			dir := world.DirTowards(a.Tile(), tbl.Tile())
			reach := npc.Reach1
			if d.rnd(2) != 0 {
				reach = npc.Reach2
			}
			a.SetAction(npc.NewSequence(0,
				npc.NewFaceObj(tbl, 200),
				npc.NewFrames(d.std(), dirFrames(dir, npc.Standing, reach, npc.Standing)...)))
		}
		a.Start(250, 1000+d.rnd(500))
	}
}

// walkToTable walks up to a random table around.
func (d *desk) walkToTable() bool {
	var tables []world.Object
	for _, shape := range tableShapes {
		tables = append(tables, d.objs().FindNearby(d.npc.Tile(), shape, 24)...)
	}
	for len(tables) > 0 {
		i := d.rnd(len(tables))
		tbl := tables[i]
		tables = append(tables[:i], tables[i+1:]...)
		pos, ok := findSpot(d.env(), tbl.Tile(), 1)
		if ok && d.npc.WalkPathToTile(world.NoTile, pos, d.std(), 1000+d.rnd(1000), 0, 0) {
			d.table = world.RefTo(tbl)
			return true
		}
	}
	d.table = world.Ref{}
	return false
}

// walkToItem walks up to a desk item lying on the same floor.
func (d *desk) walkToItem() bool {
	a := d.npc
	var items []world.Object
	for _, it := range d.objs().FindNearby(a.Tile(), shapeDeskItem, 12) {
		if it.Tile().Z/5 == a.Tile().Z/5 {
			items = append(items, it)
		}
	}
	if len(items) == 0 {
		return false
	}
	it := items[d.rnd(len(items))]
	if !d.walkTo(it, 2, nil, 0) {
		return false
	}
	d.item = world.RefTo(it)
	return true
}

// Ending implements npc.Schedule: the desk items created for the day
// are gone.
func (d *desk) Ending(npc.ScheduleType) {
	for _, it := range d.made {
		if !d.npc.Discard(it) && d.objs().Lookup(it.ID()) == it {
			d.env().Remove(it)
		}
	}
	d.made = nil
}

type waiterState int

const (
	waiterGetCustomer waiterState = iota
	waiterTakeOrder
	waiterPrepFood
	waiterServe
	waiterWaitAtCounter
)

var (
	orderLines = []string{"What wouldst thou like?", "Thy order?", "I will be right back."}
	serveLines = []string{"Enjoy thy meal.", "Here thou art.", "Anything else?"}
)

// waiter takes orders from actors eating nearby and brings them food.
type waiter struct {
	base
	state     waiterState
	customer  world.Ref
	served    []world.Ref
	food      world.Object
	customers int
}

func newWaiter(m *Maker, a *npc.Actor, prev npc.ScheduleType) *waiter {
	return &waiter{base: newBase(m, a, npc.Waiter, prev)}
}

// Served returns how many meals were brought.
func (w *waiter) Served() int { return w.customers }

// findCustomer picks a sitting diner not served yet.
func (w *waiter) findCustomer() *npc.Actor {
	var diners []*npc.Actor
	for _, o := range w.env().ActorsNear(w.npc.Tile(), 32) {
		if o == w.npc || o.Frame()&0xf != npc.SitFrame {
			continue
		}
		if t := o.ScheduleType(); t != npc.Eat && t != npc.EatAtInn {
			continue
		}
		if w.wasServed(o) {
			continue
		}
		diners = append(diners, o)
	}
	if len(diners) == 0 {
		return nil
	}
	return diners[w.rnd(len(diners))]
}

func (w *waiter) wasServed(o world.Object) bool {
	for _, r := range w.served {
		if r.ID() == o.ID() {
			return true
		}
	}
	return false
}

// WhatNow implements npc.Schedule.
func (w *waiter) WhatNow() {
	a := w.npc
	if w.state == waiterWaitAtCounter && w.rnd(4) == 0 && w.tryStreetMaintenance() {
		return
	}
	customer := w.env().Actor(w.customer)
	if w.state == waiterTakeOrder || w.state == waiterServe {
		if customer == nil || a.DistanceTo(customer) > 32 {
			w.state = waiterGetCustomer
			a.Start(200, 1000+w.rnd(1000))
			return
		}
	}
	switch w.state {
	case waiterGetCustomer:
		c := w.findCustomer()
		if c == nil {
			// Everyone was served: start over later.
			w.served = nil
			w.state = waiterWaitAtCounter
			a.Start(250, 2000+w.rnd(2000))
			return
		}
		w.customer = world.RefTo(c)
		if !w.walkTo(c, 2, npc.NewFaceObj(c, 200), 0) {
			a.Start(250, 1000)
			return
		}
		w.state = waiterTakeOrder
	case waiterTakeOrder:
		if w.canSpeak() {
			w.say(orderLines)
		}
		w.state = waiterPrepFood
		a.Start(250, 1000+w.rnd(1000))
	case waiterPrepFood:
		food := world.NewItem("food", shapeFood, 32, world.NoTile)
		food.SetFrame(w.rnd(31))
		a.Carry(food)
		w.food = food
		w.state = waiterServe
		if counter := w.closest([]int{shapeSewTable, shapeWares}, 24); counter != nil {
			dir := world.DirTowards(a.Tile(), counter.Tile())
			prep := npc.NewFrames(w.std(), dirFrames(dir, npc.Reach1, npc.Standing)...)
			if w.walkTo(counter, 1, prep, 0) {
				return
			}
		}
		a.Start(250, 500)
	case waiterServe:
		if a.DistanceTo(customer) > 2 {
			if !w.walkTo(customer, 2, nil, 0) {
				w.state = waiterGetCustomer
				a.Start(250, 1000)
			}
			return
		}
		spot := world.NoTile
		if plate := w.objs().FindClosest(customer.Tile(), []int{shapePlate}, 2); plate != nil {
			spot = on(plate)
		} else if pos, ok := findSpot(w.env(), customer.Tile(), 1); ok {
			spot = pos
		}
		if spot.Valid() && w.food != nil {
			a.SetAction(npc.NewSequence(0,
				npc.NewFaceObj(customer, 200),
				npc.NewPutdown(w.food, spot, 250)))
			log.VEventf(w.ctx(), 1, "served %s", customer.Name())
			a.Trace("serve", customer.Name())
			w.customers++
		}
		w.food = nil
		if w.canSpeak() {
			w.say(serveLines)
		}
		w.served = append(w.served, w.customer)
		w.state = waiterWaitAtCounter
		a.Start(250, 1000+w.rnd(2000))
	case waiterWaitAtCounter:
		w.state = waiterGetCustomer
		if a.Tile().Distance(w.startPos) > 2 {
			a.WalkToTile(w.startPos, w.std(), w.rnd(2000), 0)
			return
		}
		a.Start(250, 2000+w.rnd(3000))
	}
}

// Ending implements npc.Schedule.
func (w *waiter) Ending(npc.ScheduleType) {
	if w.food != nil {
		w.npc.Discard(w.food)
		w.food = nil
	}
}
