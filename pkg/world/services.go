package world

// Map is the spatial service consumed by actions and schedules.
type Map interface {
	// InBounds returns false outside of the world.
	InBounds(t Tile) bool
	// Blocked returns true if nothing can stand on t.
	Blocked(t Tile) bool
	// Loaded returns false for tiles in regions that are not simulated.
	// Actors standing there are dormant.
	Loaded(t Tile) bool
	// FindSpot returns a free tile within dist of t.
	FindSpot(t Tile, dist int) (Tile, bool)
	// Camera is the point the simulation is centered on.
	Camera() Tile
	// Screen is the area considered visible around the camera.
	Screen() Rect
}

// CostClient describes what a path search may accept.
type CostClient struct {
	// Dist is how close to the goal the path must end.
	Dist int
	// Mover is the object the path is for. It never blocks itself.
	Mover ObjID
	// MaxCost bounds the search; zero means the pathfinder's default.
	MaxCost int
}

// Pathfinder finds walkable paths. The search algorithm is the
// implementation's business.
type Pathfinder interface {
	// FindPath returns the tiles to walk, excluding from and including
	// the last tile, or false if no path exists.
	FindPath(from, to Tile, c CostClient) ([]Tile, bool)
	// StraightLineClear returns true if nothing blocks the straight
	// line between the two tiles (endpoints excluded).
	StraightLineClear(from, to Tile) bool
}

// WeaponClass selects the attack animation.
type WeaponClass int

// Weapon classes.
const (
	Swing WeaponClass = iota
	Thrust
	Shoot
	Cast
)

// WeaponInfo is what the armory knows about a weapon.
type WeaponInfo struct {
	Shape int
	Name  string
	// Damage and DamageType are passed to the target on a hit.
	Damage     int
	DamageType int
	// Range is the reach of projectiles; zero for melee weapons.
	Range int
	// Reach is the melee reach, at least 1.
	Reach int
	// AmmoFamily is the ammo shape consumed per shot, 0 for none.
	AmmoFamily int
	// Projectile is the sprite shown in flight.
	Projectile int
	// UsesCharges is true for weapons consuming their own charges
	// rather than an ammo quantity.
	UsesCharges bool
	// Returns is true for thrown weapons that come back.
	Returns bool
	// NeedsLOF is true when the attack needs a clear line of fire.
	NeedsLOF bool
	// Spell is true for spellbooks and wands.
	Spell bool
	Class WeaponClass
}

// Ranged returns true for weapons that attack from a distance.
func (w WeaponInfo) Ranged() bool { return w.Range > 0 }

// EffectiveRange is the distance from which the weapon can hit.
func (w WeaponInfo) EffectiveRange() int {
	if w.Range > 0 {
		return w.Range
	}
	if w.Reach > 0 {
		return w.Reach
	}
	return 1
}

// Armory resolves weapons and ammunition.
type Armory interface {
	Weapon(shape int) (WeaponInfo, bool)
}

// TableArmory is an Armory backed by a map.
type TableArmory map[int]WeaponInfo

var _ Armory = TableArmory(nil)

// Weapon implements Armory.
func (t TableArmory) Weapon(shape int) (WeaponInfo, bool) {
	w, ok := t[shape]
	return w, ok
}

// Event is the synthetic event passed to behavior functions.
type Event int

// Behavior function events.
const (
	Proximity Event = iota
	DoubleClick
	InternalExec
	EggProximity
	Readied
	Unreadied
	Died
	Chat
	NPCProximity
	WeaponHit
)

var eventNames = []string{
	"proximity", "double_click", "internal", "egg_proximity", "readied",
	"unreadied", "died", "chat", "npc_proximity", "weapon_hit",
}

func (e Event) String() string {
	if e >= 0 && int(e) < len(eventNames) {
		return eventNames[e]
	}
	return "event?"
}

// Usecode invokes externally defined numbered behavior functions.
type Usecode interface {
	Call(fun int, item Object, ev Event)
}

// Presenter receives everything meant to be seen or heard.
type Presenter interface {
	Say(obj Object, text string)
	Music(track int, continuous bool)
	Speech(track int)
	Sfx(id int, obj Object)
	SfxPlaying(id int) bool
	Weather(kind int)
	Effect(kind int, at Tile)
}
