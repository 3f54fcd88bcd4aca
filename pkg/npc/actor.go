package npc

import (
	"context"
	"fmt"

	"github.com/cockroachdb/cockroach/pkg/util/log"
	"github.com/cockroachdb/logtags"
	"github.com/wonst719/exult-sub000/pkg/script"
	"github.com/wonst719/exult-sub000/pkg/tqueue"
	"github.com/wonst719/exult-sub000/pkg/world"
)

// maxSameTickAsks bounds how many times an actor asks its schedule
// for something to do within a single game time.
const maxSameTickAsks = 4

// Actor is an animated entity. It exclusively owns at most one action
// and at most one schedule.
type Actor struct {
	world.Item
	env *Env

	props      Props
	traits     Traits
	alignment  Alignment
	charmAlign Alignment
	flags      Flags
	attackMode AttackMode

	target    world.Ref
	oppressor world.Ref
	leader    world.Ref
	body      world.Ref

	// weapon is the readied weapon shape, -1 for bare hands.
	weapon  int
	ammo    int
	charges int
	spare   []int
	carried []world.Object

	action Action
	// deleted holds the killed actions waiting for the next tick.
	deleted []Action

	schedule     Schedule
	schedType    ScheduleType
	dormant      bool
	frameTime    int
	post         world.Tile
	scheduleLoc  world.Tile
	nextSchedule ScheduleType

	askTime tqueue.Time
	asks    int
}

var _ tqueue.Task = (*Actor)(nil)
var _ script.Puppet = (*Actor)(nil)
var _ script.Damageable = (*Actor)(nil)
var _ script.Resurrecter = (*Actor)(nil)

// NewActor creates an actor and adds it to the world.
func NewActor(env *Env, name string, shape int, at world.Tile) *Actor {
	a := &Actor{
		env:          env,
		weapon:       -1,
		schedType:    NoSchedule,
		nextSchedule: NoSchedule,
		post:         at,
		scheduleLoc:  world.NoTile,
		props: Props{
			Strength: 10, Dexterity: 10, Intelligence: 10, Health: 10, Combat: 10,
		},
	}
	a.Init(name, world.KindActor, shape, 32, at, true)
	env.Objs.Add(a)
	return a
}

// Env returns the environment the actor lives in.
func (a *Actor) Env() *Env { return a.env }

func (a *Actor) ctx() context.Context {
	ctx := a.env.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return logtags.AddTag(ctx, "npc", a.Name())
}

// Ctx returns a logging context tagged with the actor's name.
func (a *Actor) Ctx() context.Context { return a.ctx() }

// Live is false once the actor left the world.
func (a *Actor) Live() bool { return a.env.Objs.Lookup(a.ID()) == a }

// Props returns the gameplay properties.
func (a *Actor) Props() Props { return a.props }

// SetProps replaces the gameplay properties.
func (a *Actor) SetProps(p Props) { a.props = p }

// Health returns the current health.
func (a *Actor) Health() int { return a.props.Health }

// SetHealth changes the current health.
func (a *Actor) SetHealth(h int) { a.props.Health = h }

// MaxHealth is the strength.
func (a *Actor) MaxHealth() int { return a.props.Strength }

// Dexterity returns the dexterity property.
func (a *Actor) Dexterity() int { return a.props.Dexterity }

// Intelligence returns the intelligence property.
func (a *Actor) Intelligence() int { return a.props.Intelligence }

// Strength returns the strength property.
func (a *Actor) Strength() int { return a.props.Strength }

// CombatSkill returns the combat property.
func (a *Actor) CombatSkill() int { return a.props.Combat }

// Traits returns the innate capabilities.
func (a *Actor) Traits() Traits { return a.traits }

// SetTraits replaces the innate capabilities.
func (a *Actor) SetTraits(t Traits) { a.traits = t }

// Alignment returns the nominal alignment.
func (a *Actor) Alignment() Alignment { return a.alignment }

// SetAlignment changes the nominal alignment.
func (a *Actor) SetAlignment(al Alignment) {
	a.alignment = al
	a.charmAlign = al
}

// EffectiveAlignment takes the charmed flag into account.
func (a *Actor) EffectiveAlignment() Alignment {
	if a.Flag(Charmed) {
		return a.charmAlign
	}
	return a.alignment
}

// SetEffectiveAlignment changes the alignment the actor fights for.
// The nominal alignment is only changed when the actor is not charmed.
func (a *Actor) SetEffectiveAlignment(al Alignment) {
	a.charmAlign = al
	if !a.Flag(Charmed) {
		a.alignment = al
	}
}

// Flag tests a flag.
func (a *Actor) Flag(f Flags) bool { return a.flags&f != 0 }

// Flags returns all the flags.
func (a *Actor) Flags() Flags { return a.flags }

// SetFlag sets flags.
func (a *Actor) SetFlag(f Flags) { a.flags |= f }

// ClearFlag clears flags.
func (a *Actor) ClearFlag(f Flags) { a.flags &^= f }

// IsDead is true once the actor died.
func (a *Actor) IsDead() bool { return a.Flag(Dead) }

// IsAvatar is true for the player character.
func (a *Actor) IsAvatar() bool { return !a.env.Avatar.IsZero() && a.env.Avatar.ID() == a.ID() }

// InParty is true for party members.
func (a *Actor) InParty() bool { return a.Flag(InParty) }

// AttackMode returns the targeting policy.
func (a *Actor) AttackMode() AttackMode { return a.attackMode }

// SetAttackMode changes the targeting policy.
func (a *Actor) SetAttackMode(m AttackMode) { a.attackMode = m }

// Target returns the current target, or nil.
func (a *Actor) Target() world.Object { return a.target.Get(a.env.Objs) }

// SetTarget changes the target. With startCombat, an actor that is
// not fighting yet switches to combat.
func (a *Actor) SetTarget(o world.Object, startCombat bool) {
	a.target = world.RefTo(o)
	if startCombat && o != nil && !a.IsDead() && a.schedType != Combat {
		a.SetScheduleType(Combat)
	}
}

// Oppressor returns the last actor that hurt this one, or nil.
func (a *Actor) Oppressor() *Actor { return a.env.Actor(a.oppressor) }

// Leader returns the party leader, or nil.
func (a *Actor) Leader() *Actor { return a.env.Actor(a.leader) }

// SetLeader changes the party leader.
func (a *Actor) SetLeader(l *Actor) { a.leader = world.RefTo(l) }

// Post is the spot the actor's schedules are centered on.
func (a *Actor) Post() world.Tile { return a.post }

// SetPost changes the spot the actor's schedules are centered on.
func (a *Actor) SetPost(t world.Tile) { a.post = t }

// Weapon returns the readied weapon shape, -1 for bare hands.
func (a *Actor) Weapon() int { return a.weapon }

// WeaponInfo resolves the readied weapon.
func (a *Actor) WeaponInfo() (world.WeaponInfo, bool) {
	if a.weapon < 0 {
		return world.WeaponInfo{}, false
	}
	return a.env.Armory.Weapon(a.weapon)
}

// SetWeapon readies a weapon shape, -1 for bare hands. The previous
// weapon, if any, goes back with the spare ones.
func (a *Actor) SetWeapon(shape int) {
	if shape == a.weapon {
		return
	}
	if a.weapon >= 0 {
		a.spare = append(a.spare, a.weapon)
	}
	for i, s := range a.spare {
		if s == shape {
			a.spare = append(a.spare[:i], a.spare[i+1:]...)
			break
		}
	}
	a.weapon = shape
	if a.schedule != nil {
		a.schedule.SetWeapon(shape < 0)
	}
}

// DropWeapon gets rid of a weapon, readied or spare.
func (a *Actor) DropWeapon(shape int) {
	if a.weapon == shape {
		a.weapon = -1
		if a.schedule != nil {
			a.schedule.SetWeapon(true)
		}
		return
	}
	for i, s := range a.spare {
		if s == shape {
			a.spare = append(a.spare[:i], a.spare[i+1:]...)
			return
		}
	}
}

// AddWeapon gives the actor a spare weapon.
func (a *Actor) AddWeapon(shape int) { a.spare = append(a.spare, shape) }

// SpareWeapons returns the weapons carried but not readied.
func (a *Actor) SpareWeapons() []int { return a.spare }

// EmptyHands puts away the readied weapon.
func (a *Actor) EmptyHands() { a.SetWeapon(-1) }

// Ammo returns the ammunition count.
func (a *Actor) Ammo() int { return a.ammo }

// SetAmmo changes the ammunition count.
func (a *Actor) SetAmmo(n int) { a.ammo = n }

// Charges returns the charges left in the readied weapon.
func (a *Actor) Charges() int { return a.charges }

// SetCharges changes the charges left in the readied weapon.
func (a *Actor) SetCharges(n int) { a.charges = n }

// HasAmmoFor is true if the weapon can be used: melee weapons always
// can, ranged ones need ammunition or charges.
func (a *Actor) HasAmmoFor(w world.WeaponInfo) bool {
	switch {
	case w.UsesCharges:
		return a.charges > 0
	case w.AmmoFamily != 0:
		return a.ammo > 0
	}
	return true
}

// ReadyBestWeapon readies the most damaging usable weapon carried.
func (a *Actor) ReadyBestWeapon() bool {
	best, bestDamage := a.weapon, -1
	if w, ok := a.WeaponInfo(); ok && a.HasAmmoFor(w) {
		bestDamage = w.Damage
	}
	for _, s := range a.spare {
		if w, ok := a.env.Armory.Weapon(s); ok && a.HasAmmoFor(w) && w.Damage > bestDamage {
			best, bestDamage = s, w.Damage
		}
	}
	if best < 0 {
		return false
	}
	a.SetWeapon(best)
	return true
}

// SwapWeapon readies another usable weapon. It returns false if there
// is none.
func (a *Actor) SwapWeapon() bool {
	for _, s := range a.spare {
		if w, ok := a.env.Armory.Weapon(s); ok && a.HasAmmoFor(w) {
			a.SetWeapon(s)
			return true
		}
	}
	return false
}

// EffectiveRange is the distance at which the actor can hit with the
// given weapon, or with its innate reach.
func (a *Actor) EffectiveRange(w world.WeaponInfo, ok bool) int {
	if ok {
		if r := w.EffectiveRange(); r > 0 {
			return r
		}
	}
	if a.traits.Reach > 0 {
		return a.traits.Reach
	}
	return 1
}

// Carried returns the objects the actor picked up.
func (a *Actor) Carried() []world.Object { return a.carried }

// Action returns the current action, or nil.
func (a *Actor) Action() Action { return a.action }

// Schedule returns the active schedule, or nil.
func (a *Actor) Schedule() Schedule { return a.schedule }

// ScheduleType returns the type of the active schedule.
func (a *Actor) ScheduleType() ScheduleType { return a.schedType }

// Dormant is true while the actor's region is not loaded.
func (a *Actor) Dormant() bool { return a.dormant }

// SetDormant marks the actor as dormant or awake.
func (a *Actor) SetDormant(b bool) { a.dormant = b }

// FrameTime is the delay between frames of the current motion, 0 when
// the actor stands still.
func (a *Actor) FrameTime() int { return a.frameTime }

// PendingDestroy returns the number of killed actions waiting to be
// destroyed.
func (a *Actor) PendingDestroy() int { return len(a.deleted) }

// Dest returns where the current action leads, or the current tile.
func (a *Actor) Dest() world.Tile {
	if a.action != nil {
		if d, ok := a.action.Dest(); ok {
			return d
		}
	}
	return a.Tile()
}

// DistanceTo measures the distance to another object.
func (a *Actor) DistanceTo(o world.Object) int { return a.Tile().Distance(o.Tile()) }

// SetAction replaces the current action. The outgoing action may still
// be executing further up the stack: it is killed, and destroyed at the
// beginning of the next tick.
func (a *Actor) SetAction(act Action) {
	if act != a.action {
		if a.action != nil {
			if todel := a.action.Kill(); todel != nil {
				a.deleted = append(a.deleted, todel)
			}
		}
		a.action = act
	}
	if a.action == nil {
		a.frameTime = 0
	}
}

func (a *Actor) purgeDeletedActions() {
	for len(a.deleted) > 0 {
		act := a.deleted[len(a.deleted)-1]
		a.deleted = a.deleted[:len(a.deleted)-1]
		destroy(act)
	}
}

// OnFire implements tqueue.Task.
func (a *Actor) OnFire(now tqueue.Time, udata interface{}) {
	a.purgeDeletedActions()
	env := a.env
	std := tqueue.Time(env.StdDelay)
	if a.IsDead() || a.Flag(Paralyzed) || (a.Flag(Asleep) && a.schedType != Sleep) {
		env.Queue.Add(now+std, a, udata)
		return
	}
	if a.action == nil {
		a.frameTime = 0
		if a.Flag(UsecodeControl) {
			env.Queue.Add(now+std, a, udata)
			return
		}
		a.dispatch(now)
		return
	}

	act := a.action
	speed := act.Speed()
	delay := act.Step(a)
	if !a.Live() {
		// Removed while stepping.
		return
	}
	if a.action != act {
		// Replaced while stepping. The replacement runs next.
		if a.action != nil && !env.Queue.Find(a) {
			if delay <= 0 {
				delay = env.StdDelay
			}
			env.Queue.Add(now+tqueue.Time(delay), a, udata)
		}
		return
	}
	if delay > 0 {
		if !env.Queue.Find(a) {
			env.Queue.Add(now+tqueue.Time(delay), a, udata)
		}
		return
	}

	// The action is done.
	a.SetAction(nil)
	a.frameTime = speed
	if a.frameTime == 0 {
		a.frameTime = env.StdDelay
	}
	if a.askTime == now && a.asks >= maxSameTickAsks {
		if !env.Queue.Find(a) {
			env.Queue.Add(now+tqueue.Time(a.frameTime), a, udata)
		}
		return
	}
	a.dispatch(now)
}

// dispatch asks the schedule what to do next.
func (a *Actor) dispatch(now tqueue.Time) {
	if a.askTime != now {
		a.askTime, a.asks = now, 0
	}
	a.asks++
	if a.schedule == nil {
		return
	}
	if a.dormant {
		a.schedule.OnDormant()
	} else {
		a.schedule.WhatNow()
	}
}

// Start sets the actor in motion: it is queued after delay unless it
// already is and no delay is requested.
func (a *Actor) Start(speed, delay int) {
	a.dormant = false
	a.frameTime = speed
	q := a.env.Queue
	if !q.Find(a) || delay != 0 {
		if delay != 0 {
			q.RemoveAll(a)
		}
		q.Add(q.Now()+tqueue.Time(delay), a, nil)
	}
}

// StartStd starts the actor with the standard delay.
func (a *Actor) StartStd() {
	a.Start(a.env.StdDelay, a.env.StdDelay)
}

// Stop interrupts the current motion.
func (a *Actor) Stop() {
	if a.action != nil {
		a.action.Stop(a)
	}
	a.frameTime = 0
}

// WalkToTile walks in a straight line towards dest.
func (a *Actor) WalkToTile(dest world.Tile, speed, delay, maxBlocked int) {
	p, ok := NewPathWalk(a, a.Tile(), dest, 0, false, speed, maxBlocked)
	if !ok {
		a.SetAction(nil)
		return
	}
	a.SetAction(p)
	a.Start(speed, delay)
}

// WalkPathToTile finds a path from src (the actor's tile, or an
// off-screen location) to within dist of dest and follows it. It
// returns false if there is no path.
func (a *Actor) WalkPathToTile(src, dest world.Tile, speed, delay, dist, maxBlocked int) bool {
	p, ok := NewPathWalk(a, src, dest, dist, true, speed, maxBlocked)
	if !ok {
		a.SetAction(nil)
		return false
	}
	a.SetAction(p)
	a.Start(speed, delay)
	return true
}

// SetScheduleType switches to a new schedule: the current action is
// stopped unless it is a behavior-function path still in progress,
// the old schedule ends, the new one is created and, unless the
// actor's region is not loaded, asked what to do.
func (a *Actor) SetScheduleType(t ScheduleType) {
	a.setSchedule(t, nil)
}

// SetSchedule is like SetScheduleType for a schedule created by the
// caller.
func (a *Actor) SetSchedule(s Schedule) {
	a.setSchedule(s.Type(), s)
}

func (a *Actor) setSchedule(t ScheduleType, s Schedule) {
	if p := a.usecodePath(); p == nil || p.Done() {
		a.Stop()
		a.SetAction(nil)
	}
	if a.schedule != nil {
		a.schedule.Ending(t)
	}
	old := a.schedType
	if s == nil && a.env.Schedules != nil {
		s = a.env.Schedules.Make(a, t, old)
	}
	a.schedule = s
	a.schedType = t
	if s != nil {
		a.schedType = s.Type()
	}
	a.scheduleLoc = world.NoTile
	a.nextSchedule = NoSchedule
	log.VEventf(a.ctx(), 1, "schedule %s -> %s", old, a.schedType)
	a.env.trace(a, "schedule", a.schedType.String())

	if a.env.Map != nil && !a.env.Map.Loaded(a.Tile()) {
		a.dormant = true
		if s != nil {
			s.OnDormant()
		}
	} else if s != nil {
		a.dormant = false
		s.WhatNow()
	}
}

func (a *Actor) usecodePath() *IfElsePath {
	if a.action == nil {
		return nil
	}
	return a.action.UsecodePath()
}

// SetScheduleAndLoc switches to a schedule that must be carried out at
// dest. Unless both the actor and dest are off screen, the actor first
// walks there.
func (a *Actor) SetScheduleAndLoc(t ScheduleType, dest world.Tile, delay int) {
	if a.schedule != nil && a.schedType == t && a.schedule.Busy() && a.Tile().Distance(dest) <= 16 {
		return
	}
	a.Stop()
	if a.schedule != nil {
		a.schedule.Ending(t)
		a.schedule = nil
	}
	if a.teleportOffscreen(dest, 12) {
		a.SetScheduleType(t)
		return
	}
	if a.schedType == WalkToSchedule {
		a.SetAction(nil)
	}
	a.scheduleLoc = dest
	a.nextSchedule = t
	a.schedType = WalkToSchedule
	a.schedule = a.env.Schedules.WalkTo(a, dest, t, delay)
	a.dormant = false
	a.env.trace(a, "schedule", fmt.Sprintf("%s to %s at %s", WalkToSchedule, t, dest))
	a.schedule.WhatNow()
}

// NextSchedule returns the schedule a walk-to schedule leads to.
func (a *Actor) NextSchedule() (ScheduleType, world.Tile) { return a.nextSchedule, a.scheduleLoc }

func (a *Actor) teleportOffscreen(dest world.Tile, dist int) bool {
	m := a.env.Map
	if m == nil || m.Loaded(a.Tile()) || m.Loaded(dest) {
		return false
	}
	if a.Tile().Distance(dest) > dist {
		a.Move(dest)
		a.SetFrame(DirFrame(a.Facing(), Standing))
	}
	return true
}

// Facing returns the direction the actor's frame faces.
func (a *Actor) Facing() int { return (a.Frame() >> 4 & 3) * 2 }

// ChangeFrame shows another frame.
func (a *Actor) ChangeFrame(f int) { a.SetFrame(f) }

// Face turns the actor towards dir, keeping its pose.
func (a *Actor) Face(dir world.Dir) {
	a.SetFrame(DirFrame(int(dir), a.Frame()&0xf))
}

// Say shows a line of text over the actor.
func (a *Actor) Say(text string) {
	if a.env.Media != nil {
		a.env.Media.Say(a, text)
	}
}

// Step moves the actor to an adjacent tile showing frame. It returns
// false if the actor cannot move or the tile is blocked. An actor
// stepping off the loaded region becomes dormant.
func (a *Actor) Step(to world.Tile, frame int) bool {
	if a.Flag(Paralyzed) || a.IsDead() {
		return false
	}
	if m := a.env.Map; m != nil {
		if !m.InBounds(to) {
			return false
		}
		if m.Blocked(to) {
			if blocker := a.env.Objs.SolidAt(to); blocker == nil || blocker != world.Object(a) {
				return false
			}
		}
	}
	a.Move(to)
	a.SetFrame(frame)
	if m := a.env.Map; m != nil && !m.Loaded(to) {
		a.dormant = true
	}
	return true
}

var walkCycle = [...]int{StepRight, Standing, StepLeft, Standing}

// WalkFrame implements script.Puppet.
func (a *Actor) WalkFrame(dir world.Dir, idx *int) int {
	f := DirFrame(int(dir), walkCycle[*idx%len(walkCycle)])
	*idx++
	return f
}

// ScriptStep implements script.Puppet.
func (a *Actor) ScriptStep(to world.Tile, frame int) bool { return a.Step(to, frame) }

// SetUsecodeDir implements script.Puppet.
func (a *Actor) SetUsecodeDir(dir world.Dir) { a.Face(dir) }

// UsecodeAttack implements script.Puppet: the actor hits its target
// with its readied weapon.
func (a *Actor) UsecodeAttack() {
	if t := a.Target(); t != nil {
		a.AttackTarget(t)
	}
}

// AttackTarget resolves one attack against target with the readied
// weapon. It returns false when a ranged weapon is out of ammunition or
// charges; nothing is consumed then.
func (a *Actor) AttackTarget(target world.Object) bool {
	w, ok := a.WeaponInfo()
	if ok && w.Ranged() {
		if !a.HasAmmoFor(w) {
			return false
		}
		if w.UsesCharges {
			a.charges--
		} else if w.AmmoFamily != 0 && !w.Returns {
			a.ammo--
		}
	}
	damage := 1 + a.props.Strength/5
	typ := 0
	if ok {
		damage += w.Damage
		typ = w.DamageType
	}
	d, isDamageable := target.(interface {
		Hit(attacker world.Object, hps, typ int)
	})
	if !isDamageable {
		return true
	}
	// The defender's dexterity against the attacker's combat skill.
	chance := 50 + 5*(a.props.Combat-defense(target))
	if chance < 5 {
		chance = 5
	} else if chance > 95 {
		chance = 95
	}
	if a.env.Rand.Intn(100) < chance {
		d.Hit(a, damage, typ)
		a.env.trace(a, "hit", fmt.Sprintf("%s for %d", target.Name(), damage))
	} else {
		a.env.trace(a, "miss", target.Name())
	}
	return true
}

func defense(o world.Object) int {
	if t, ok := o.(*Actor); ok {
		return t.props.Dexterity
	}
	return 0
}

// ReduceHealth implements script.Damageable.
func (a *Actor) ReduceHealth(hps, typ int) { a.Hit(nil, hps, typ) }

// Hit takes damage from an attacker (nil when there is none). An
// actor that cannot die only fights back.
func (a *Actor) Hit(attacker world.Object, hps, typ int) {
	if a.IsDead() {
		return
	}
	if a.Flag(CantDie) {
		a.FightBack(attacker)
		return
	}
	old := a.props.Health
	a.props.Health -= hps
	if a.props.Health < -50 {
		a.props.Health = -50
	}
	if at, ok := attacker.(*Actor); ok {
		a.oppressor = world.RefTo(at)
	}
	max := a.MaxHealth()
	if old >= max/2 && a.props.Health < max/2 && a.props.Health > 0 && a.env.Rand.Intn(2) != 0 {
		a.Say("Ouch!")
	}
	if a.props.Health <= 0 {
		a.Die(attacker)
		return
	}
	a.FightBack(attacker)
}

// FightBack targets the attacker, starting combat unless the attacker
// is dueling.
func (a *Actor) FightBack(attacker world.Object) {
	at, ok := attacker.(*Actor)
	if !ok || at.IsDead() || !a.target.IsZero() || a.InParty() {
		return
	}
	a.SetTarget(at, at.schedType != Duel)
}

// Die kills the actor: it leaves the time queue and the world, and a
// body takes its place.
func (a *Actor) Die(attacker world.Object) {
	if a.IsDead() {
		return
	}
	a.SetAction(nil)
	a.schedule = nil
	a.env.Queue.RemoveAll(a)
	a.SetFlag(Dead)
	log.Infof(a.ctx(), "died (attacker: %v)", attacker)
	if fun := a.traits.Fun; fun != 0 && a.env.Usecode != nil {
		a.env.Usecode.Call(fun, a, world.Died)
	}
	a.SetFrame(DirFrame(a.Facing(), SleepFrame))
	body := world.NewBody(a)
	a.env.Objs.Add(body)
	a.body = world.RefTo(body)
	a.env.Scripts.Terminate(a)
	a.env.Objs.Remove(a.ID())
	a.env.trace(a, "died", fmt.Sprint(attacker))
}

// Body returns the actor's body while it is dead.
func (a *Actor) Body() *world.Body {
	b, _ := a.body.Get(a.env.Objs).(*world.Body)
	return b
}

// Resurrect implements script.Resurrecter: the actor comes back where
// its body lies, with full health, and stands up.
func (a *Actor) Resurrect(b *world.Body) {
	if !a.IsDead() || b == nil || b.Of.ID() != a.ID() {
		return
	}
	pos := b.Tile()
	a.env.Remove(b)
	a.body = world.Ref{}
	a.Move(pos)
	a.env.Objs.Restore(a)
	a.props.Health = a.props.Strength
	a.ClearFlag(Dead | Paralyzed | Asleep | Charmed)
	a.charmAlign = a.alignment
	a.target = world.Ref{}
	a.env.trace(a, "resurrected", pos.String())
	if a.InParty() {
		a.SetScheduleType(FollowAvatar)
	} else {
		a.SetScheduleType(Loiter)
	}
	a.env.Run(a, 1,
		script.NPCFrame+script.Opcode(SleepFrame),
		script.NPCFrame+script.Opcode(Kneel),
		script.NPCFrame+script.Opcode(Standing))
}

// Remove takes the actor out of the world.
func (a *Actor) Remove() {
	a.SetAction(nil)
	a.env.Queue.RemoveAll(a)
	a.env.Scripts.Terminate(a)
	a.env.Objs.Remove(a.ID())
	a.env.trace(a, "removed", "")
}

// PickUp takes an object out of the world into the actor's hands.
func (a *Actor) PickUp(o world.Object) {
	a.env.Objs.Remove(o.ID())
	a.carried = append(a.carried, o)
}

// Carry gives the actor an object that is not in the world.
func (a *Actor) Carry(o world.Object) { a.carried = append(a.carried, o) }

// Discard destroys a carried object. It returns false if the actor
// does not carry it.
func (a *Actor) Discard(o world.Object) bool {
	for i, c := range a.carried {
		if c == o {
			a.carried = append(a.carried[:i], a.carried[i+1:]...)
			return true
		}
	}
	return false
}

// CarriedShape returns the carried objects of a shape.
func (a *Actor) CarriedShape(shape int) []world.Object {
	var res []world.Object
	for _, c := range a.carried {
		if c.Shape() == shape {
			res = append(res, c)
		}
	}
	return res
}

// PutDown places a carried object at t.
func (a *Actor) PutDown(o world.Object, t world.Tile) bool {
	for i, c := range a.carried {
		if c == o {
			a.carried = append(a.carried[:i], a.carried[i+1:]...)
			o.Move(t)
			a.env.Objs.Restore(o)
			return true
		}
	}
	return false
}

// Trace reports a noteworthy event to the environment's observer.
func (a *Actor) Trace(what, detail string) { a.env.trace(a, what, detail) }
