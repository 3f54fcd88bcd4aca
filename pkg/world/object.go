package world

import (
	"fmt"
	"sort"
)

// ObjID identifies an object in the object table. Zero is never
// assigned.
type ObjID uint32

// Kind classifies objects for the few places where behavior depends on it.
type Kind int

// Object kinds.
const (
	KindItem Kind = iota
	KindActor
	KindEgg
	KindBarge
	KindBody
)

// Object is anything placed in the world.
type Object interface {
	ID() ObjID
	Name() string
	Kind() Kind
	Shape() int
	Frame() int
	SetFrame(f int)
	NumFrames() int
	Quality() int
	Tile() Tile
	Move(t Tile)
	// Solid objects block movement on their tile.
	Solid() bool

	item() *Item
}

// Item is the base of every object.
type Item struct {
	id      ObjID
	name    string
	kind    Kind
	shape   int
	frame   int
	nframes int
	quality int
	tile    Tile
	solid   bool
}

var _ Object = (*Item)(nil)

// NewItem creates a free-standing item. It becomes visible to the
// simulation once added to an object table.
func NewItem(name string, shape, nframes int, at Tile) *Item {
	if nframes <= 0 {
		nframes = 1
	}
	return &Item{name: name, kind: KindItem, shape: shape, nframes: nframes, tile: at}
}

// Init initializes an embedded item.
func (it *Item) Init(name string, kind Kind, shape, nframes int, at Tile, solid bool) {
	if nframes <= 0 {
		nframes = 1
	}
	*it = Item{name: name, kind: kind, shape: shape, nframes: nframes, tile: at, solid: solid}
}

func (it *Item) item() *Item { return it }

// ID implements Object.
func (it *Item) ID() ObjID { return it.id }

// Name implements Object.
func (it *Item) Name() string { return it.name }

// Kind implements Object.
func (it *Item) Kind() Kind { return it.kind }

// Shape implements Object.
func (it *Item) Shape() int { return it.shape }

// Frame implements Object.
func (it *Item) Frame() int { return it.frame }

// SetFrame implements Object.
func (it *Item) SetFrame(f int) { it.frame = f }

// NumFrames implements Object.
func (it *Item) NumFrames() int { return it.nframes }

// Quality implements Object.
func (it *Item) Quality() int { return it.quality }

// SetQuality changes the quality field.
func (it *Item) SetQuality(q int) { it.quality = q }

// SetShape changes the shape.
func (it *Item) SetShape(s int) { it.shape = s }

// Tile implements Object.
func (it *Item) Tile() Tile { return it.tile }

// Move implements Object.
func (it *Item) Move(t Tile) { it.tile = t }

// Solid implements Object.
func (it *Item) Solid() bool { return it.solid }

// SetSolid changes whether the object blocks movement.
func (it *Item) SetSolid(b bool) { it.solid = b }

func (it *Item) String() string {
	if it.name != "" {
		return it.name
	}
	return fmt.Sprintf("obj%d", it.id)
}

// Egg is a trigger object calling a behavior function when activated.
type Egg struct {
	Item
	Criteria int
	Dist     int
	Fun      int
}

// NewEgg creates an egg.
func NewEgg(name string, fun int, at Tile) *Egg {
	e := &Egg{Fun: fun}
	e.Init(name, KindEgg, 275, 1, at, false)
	return e
}

// Set retargets the egg's activation criteria.
func (e *Egg) Set(criteria, dist int) {
	e.Criteria = criteria
	e.Dist = dist
}

// Activate calls the egg's behavior function.
func (e *Egg) Activate(u Usecode, by Object) {
	u.Call(e.Fun, e, EggProximity)
}

// Body is what remains of a dead actor.
type Body struct {
	Item
	Of Ref
}

// NewBody creates a body for the given actor.
func NewBody(of Object) *Body {
	b := &Body{Of: RefTo(of)}
	b.Init(of.Name()+"'s body", KindBody, 400, 1, of.Tile(), false)
	return b
}

// Ref is a weak, lookup-only reference to an object. It never keeps an
// object alive: once the object is removed from its table, Get
// returns nil.
type Ref struct {
	id ObjID
}

// RefTo returns a weak reference to o. A nil object yields the zero Ref.
func RefTo(o Object) Ref {
	if o == nil {
		return Ref{}
	}
	return Ref{id: o.ID()}
}

// RefID builds a reference from a raw ID (used when decoding saved state).
func RefID(id ObjID) Ref { return Ref{id: id} }

// ID returns the referenced ID.
func (r Ref) ID() ObjID { return r.id }

// IsZero is true for the reference to nothing.
func (r Ref) IsZero() bool { return r.id == 0 }

// Get resolves the reference, or returns nil if the object is gone.
func (r Ref) Get(tbl *Objects) Object {
	if r.id == 0 || tbl == nil {
		return nil
	}
	return tbl.Lookup(r.id)
}

// Objects is the table of all live objects. It is the only owner of
// objects; everything else refers to them through a Ref or for the
// duration of a single step.
type Objects struct {
	next ObjID
	byID map[ObjID]Object
	// ids is sorted, so that iteration is deterministic.
	ids []ObjID
}

// NewObjects creates an empty table.
func NewObjects() *Objects {
	return &Objects{byID: make(map[ObjID]Object)}
}

// Add registers an object and assigns its ID.
func (o *Objects) Add(obj Object) ObjID {
	o.next++
	id := o.next
	obj.item().id = id
	o.byID[id] = obj
	o.ids = append(o.ids, id)
	return id
}

// Restore registers again an object removed earlier, under its
// previous ID, so that the references to it resolve again.
func (o *Objects) Restore(obj Object) {
	id := obj.ID()
	if id == 0 {
		o.Add(obj)
		return
	}
	if _, ok := o.byID[id]; ok {
		return
	}
	o.byID[id] = obj
	i := sort.Search(len(o.ids), func(i int) bool { return o.ids[i] >= id })
	o.ids = append(o.ids, 0)
	copy(o.ids[i+1:], o.ids[i:])
	o.ids[i] = id
	if id > o.next {
		o.next = id
	}
}

// Remove unregisters an object. Removing an absent object is a no-op.
func (o *Objects) Remove(id ObjID) {
	if _, ok := o.byID[id]; !ok {
		return
	}
	delete(o.byID, id)
	i := sort.Search(len(o.ids), func(i int) bool { return o.ids[i] >= id })
	if i < len(o.ids) && o.ids[i] == id {
		o.ids = append(o.ids[:i], o.ids[i+1:]...)
	}
}

// Lookup returns the object with the given ID, or nil.
func (o *Objects) Lookup(id ObjID) Object {
	return o.byID[id]
}

// Len returns the number of live objects.
func (o *Objects) Len() int { return len(o.ids) }

// Each calls fn for every object in ID order until fn returns false.
// fn may remove objects.
func (o *Objects) Each(fn func(Object) bool) {
	ids := append([]ObjID(nil), o.ids...)
	for _, id := range ids {
		obj, ok := o.byID[id]
		if !ok {
			continue
		}
		if !fn(obj) {
			return
		}
	}
}

// ByName returns the first object with the given name.
func (o *Objects) ByName(name string) Object {
	var found Object
	o.Each(func(obj Object) bool {
		if obj.Name() == name {
			found = obj
			return false
		}
		return true
	})
	return found
}

// AnyShape matches every shape in FindNearby.
const AnyShape = -1

// FindNearby returns the objects of the given shape within dist tiles
// of t, in ID order.
func (o *Objects) FindNearby(t Tile, shape int, dist int) []Object {
	var res []Object
	o.Each(func(obj Object) bool {
		if shape != AnyShape && obj.Shape() != shape {
			return true
		}
		if obj.Tile().Distance2D(t) <= dist {
			res = append(res, obj)
		}
		return true
	})
	return res
}

// FindClosest returns the closest object with one of the given shapes.
func (o *Objects) FindClosest(t Tile, shapes []int, dist int) Object {
	var best Object
	bestDist := dist + 1
	o.Each(func(obj Object) bool {
		for _, s := range shapes {
			if obj.Shape() != s {
				continue
			}
			if d := obj.Tile().Distance2D(t); d < bestDist {
				best, bestDist = obj, d
			}
		}
		return true
	})
	return best
}

// SolidAt returns the solid object standing on t, if any.
func (o *Objects) SolidAt(t Tile) Object {
	var found Object
	o.Each(func(obj Object) bool {
		if obj.Solid() && obj.Tile() == t {
			found = obj
			return false
		}
		return true
	})
	return found
}
