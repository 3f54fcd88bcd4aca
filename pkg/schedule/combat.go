package schedule

import (
	"context"

	"github.com/cockroachdb/cockroach/pkg/util/log"
	"github.com/cockroachdb/logtags"
	"github.com/wonst719/exult-sub000/pkg/npc"
	"github.com/wonst719/exult-sub000/pkg/tqueue"
	"github.com/wonst719/exult-sub000/pkg/world"
)

// dexToAttack is the dexterity an actor accumulates between attacks.
const dexToAttack = 30

// Music tracks played around battles.
const (
	musicAttacked1 = 1
	musicAttacked2 = 2
	musicRunAway   = 4
)

// battleMusicGap is the least time between two battle tunes.
const battleMusicGap = 30000

// maxFailures is how many failed approaches make an actor give up.
const maxFailures = 5

// Effects and sounds of monster spells.
const (
	effectFireField = 1
	effectStars     = 7
	effectVanish    = 12
	sfxTeleport     = 43
	sfxInvisible    = 44
)

var (
	battleCries  = []string{"Have at thee!", "To arms!", "Die, villain!", "Thou art mine!"}
	taunts       = []string{"Take that!", "Ha!", "Is that thy best?", "Yield!"}
	fleeCries    = []string{"Run away!", "Help!", "Spare me!", "Mercy!"}
	fleeScream   = "Aaaagh!"
	willHelp     = []string{"I will help thee!", "Hold on!", "I am coming!"}
	combatStates = [...]string{"initial", "approach", "strike", "fire", "wait_return"}
)

type combatState int

const (
	initial combatState = iota
	approach
	strike
	fire
	waitReturn
)

func (s combatState) String() string { return combatStates[s] }

// duelInfo is what a duel adds to combat.
type duelInfo struct {
	start    world.Tile
	attacks  int
	practice world.Ref
}

// Combat is the schedule of an actor fighting. Dueling is a combat
// variant that practices on targets or other duelists.
type Combat struct {
	base
	state     combatState
	opponents []world.Ref

	weapon     world.WeaponInfo
	hasWeapon  bool
	noBlocking bool

	yelled        bool
	startedBattle bool
	canYell       bool
	fleed         int
	failures      int
	dex           int
	alignment     npc.Alignment

	teleportTime  tqueue.Time
	summonTime    tqueue.Time
	invisibleTime tqueue.Time

	duel *duelInfo
}

var _ npc.Schedule = (*Combat)(nil)

func newCombat(m *Maker, a *npc.Actor, prev npc.ScheduleType) *Combat {
	c := &Combat{
		base:      newBase(m, a, npc.Combat, prev),
		canYell:   !a.Traits().Monster,
		alignment: a.EffectiveAlignment(),
	}
	now := c.now()
	c.summonTime = now + 4000
	c.invisibleTime = now + 4500
	c.SetWeapon(false)
	return c
}

func newDuel(m *Maker, a *npc.Actor, prev npc.ScheduleType) *Combat {
	c := newCombat(m, a, prev)
	c.typ = npc.Duel
	c.duel = &duelInfo{start: a.Tile()}
	c.canYell = false
	// No music for practice.
	c.startedBattle = true
	return c
}

func (c *Combat) ctx() context.Context {
	return logtags.AddTag(c.npc.Ctx(), "combat", nil)
}

// State returns the name of the combat state.
func (c *Combat) State() string { return c.state.String() }

// Failures returns the number of failed approaches in a row.
func (c *Combat) Failures() int { return c.failures }

// Opponents returns the remaining known opponents.
func (c *Combat) Opponents() []world.Ref { return c.opponents }

func (c *Combat) cantDie() bool { return c.npc.Flag(npc.CantDie) }

// WhatNow implements npc.Schedule.
func (c *Combat) WhatNow() {
	if c.duel != nil && (c.state == strike || c.state == fire) {
		if c.duelBreakOff() {
			return
		}
	}
	c.whatNow()
}

func (c *Combat) whatNow() {
	a := c.npc
	env := c.env()
	if c.state == initial {
		// Nothing happens in the initial state so that behavior
		// functions can pick the opponent.
		if env.Map != nil && a.Tile().Distance(env.Map.Camera()) > 50 {
			a.SetDormant(true)
			return
		}
		c.state = approach
		a.Start(200, 200)
		return
	}
	if a.Flag(npc.Asleep) {
		a.Start(200, 1000)
		return
	}
	if a.AttackMode() == npc.Flee {
		switch {
		case c.cantDie():
			a.SetAttackMode(npc.Nearest)
			a.StartStd()
		case c.fleed > 2 && a.InParty() && !c.leaderFighting():
			a.SetScheduleType(npc.FollowAvatar)
		default:
			c.runAway()
		}
		return
	}
	if c.needNewOpponent() {
		a.SetTarget(nil, false)
		c.state = approach
	}
	opponent := a.Target()
	switch c.state {
	case approach:
		switch {
		case opponent == nil:
			c.approachFoe(false)
		case c.dex >= dexToAttack:
			intel := a.Intelligence()
			if !a.Flag(npc.Invisible) && a.Traits().CanGoInvis &&
				c.now() >= c.invisibleTime && c.rnd(300) < intel {
				c.beInvisible()
				c.dex -= dexToAttack
			} else if a.Traits().CanSummon && c.now() >= c.summonTime &&
				c.rnd(600) < intel && c.summon() {
				c.dex -= dexToAttack
			} else {
				c.startStrike()
			}
		default:
			c.dex += a.Dexterity()
			a.StartStd()
		}
	case strike:
		c.state = approach
		std := c.std()
		a.SetAction(npc.NewFrames(std, npc.DirFrame(a.Facing(), npc.Ready)))
		a.Start(std, std)
		if opponent != nil {
			c.attack(opponent)
		}
	case fire:
		c.failures = 0
		c.state = approach
		if opponent != nil && !c.attack(opponent) {
			c.SetWeapon(false)
		}
		std := c.std()
		a.SetAction(npc.NewFrames(std, npc.DirFrame(a.Facing(), npc.Ready)))
		a.Start(std, std)
		if c.hasWeapon && c.weapon.Returns {
			c.state = waitReturn
		}
	case waitReturn:
		c.state = approach
		c.dex += a.Dexterity()
		a.StartStd()
	}
	if c.failures > maxFailures && !a.IsAvatar() {
		c.giveUp()
	}
}

// attack resolves one attack against opponent. Objects are struck only
// once.
func (c *Combat) attack(opponent world.Object) bool {
	a := c.npc
	ok := a.AttackTarget(opponent)
	if ok {
		a.Trace("strike", opponent.Name())
	}
	if c.duel != nil && opponent.Shape() == shapeArcheryTarg && opponent.NumFrames() > 1 {
		// The arrow sticks.
		opponent.SetFrame((opponent.Frame() + 1) % opponent.NumFrames())
	}
	if t := a.Target(); t != nil && t.Kind() != world.KindActor && c.duel == nil {
		a.SetTarget(nil, false)
	}
	return ok
}

// leader returns the party leader, or else the avatar.
func (c *Combat) leader() *npc.Actor {
	a := c.npc
	if l := a.Leader(); l != nil && l != a {
		return l
	}
	if av, ok := c.env().AvatarObj().(*npc.Actor); ok && av != a {
		return av
	}
	return nil
}

func (c *Combat) leaderFighting() bool {
	l := c.leader()
	return l != nil && l.ScheduleType() == npc.Combat
}

// needNewOpponent is true when the target is gone, dead, unseen or
// off the screen while the actor is on it.
func (c *Combat) needNewOpponent() bool {
	a := c.npc
	t := a.Target()
	if t == nil {
		return true
	}
	if o, ok := t.(*npc.Actor); ok {
		if o.IsDead() {
			return true
		}
		if o.Flag(npc.Invisible) && !a.Flag(npc.SeeInvisible) && c.rnd(4) == 0 {
			return true
		}
	}
	env := c.env()
	return !onScreen(env, t.Tile(), 2) && onScreen(env, a.Tile(), 2)
}

// giveUp ends a hopeless fight.
func (c *Combat) giveUp() {
	a := c.npc
	env := c.env()
	log.VEventf(c.ctx(), 1, "giving up after %d failures", c.failures)
	a.Trace("give_up", "")
	switch {
	case a.InParty():
		if l := c.leader(); l != nil {
			a.WalkToTile(l.Tile(), c.std(), 0, 0)
		}
		a.SetScheduleType(npc.FollowAvatar)
	case !onScreen(env, a.Tile(), 0):
		env.Queue.RemoveAll(a)
		a.SetDormant(true)
	case a.Alignment() == npc.Good && c.prev != npc.Combat && c.prev != npc.NoSchedule:
		a.SetScheduleType(c.prev)
	default:
		t := a.Tile()
		dist := 2 + c.rnd(3)
		dest := t.Add(c.rnd(2*dist)-dist, c.rnd(2*dist)-dist, 0)
		a.WalkToTile(dest, 2*c.std(), c.rnd(1000), 0)
	}
}

// startBattle plays battle music, once per combat and not more often
// than every battleMusicGap.
func (c *Combat) startBattle() {
	if c.startedBattle {
		return
	}
	c.startedBattle = true
	a := c.npc
	env := c.env()
	now := int64(c.now())
	if !a.IsAvatar() || env.Media == nil || now-c.m.battleMusic < battleMusicGap {
		return
	}
	if len(c.opponents) == 0 {
		if _, ok := a.Target().(*npc.Actor); !ok {
			return
		}
	}
	track := musicAttacked1
	if c.rnd(2) != 0 {
		track = musicAttacked2
	}
	env.Media.Music(track, false)
	c.m.battleMusic = now
}

// weaponRange is the distance to attack from.
func (c *Combat) weaponRange() int {
	return c.npc.EffectiveRange(c.weapon, c.hasWeapon)
}

// shouldFlee decides whether an actor runs instead of fighting.
func (c *Combat) shouldFlee() bool {
	a := c.npc
	if c.cantDie() {
		return false
	}
	if a.AttackMode() == npc.Flee {
		return true
	}
	return a.AttackMode() != npc.BerserkMode && !a.Flag(npc.Berserk) && !a.IsAvatar() &&
		a.Health() < a.MaxHealth()/3
}

// approachFoe finds an opponent and walks towards it. forProjectile
// wants to get adjacent, as when the line of fire is blocked.
func (c *Combat) approachFoe(forProjectile bool) {
	a := c.npc
	dist := 1
	if !forProjectile {
		dist = c.weaponRange()
	}
	opponent := a.Target()
	if opponent == nil {
		if opponent = c.findFoe(a.AttackMode()); opponent == nil {
			c.failures++
			a.Start(200, 400)
			return
		}
	}
	a.SetTarget(opponent, false)
	if c.shouldFlee() {
		if a.AttackMode() != npc.Flee {
			a.SetAttackMode(npc.Flee)
		}
		c.runAway()
		return
	}
	if a.Traits().CanTeleport && c.rnd(4) == 0 && c.teleport() {
		c.startBattle()
		a.StartStd()
		return
	}
	fireRange := 0
	if !forProjectile && c.hasWeapon && c.weapon.Ranged() {
		fireRange = c.weapon.Range
	}
	act, ok := npc.NewApproach(a, opponent, dist, fireRange, c.std())
	if !ok {
		c.failures++
		retried := false
		if a.AttackMode() != npc.Manual {
			closest := c.findFoe(npc.Nearest)
			switch {
			case closest == nil:
				a.SetTarget(nil, false)
			case closest != opponent:
				opponent = closest
				a.SetTarget(opponent, false)
				act, retried = npc.NewApproach(a, opponent, dist, fireRange, c.std())
			}
		}
		if !retried {
			// Just try to walk towards the opponent.
			c.walkTowards(opponent)
			c.failures++
			return
		}
	}
	c.failures = 0
	c.startBattle()
	log.VEventf(c.ctx(), 1, "pursuing %s", opponent.Name())
	env := c.env()
	if !c.yelled && onScreen(env, a.Tile(), 0) {
		c.yelled = true
		if c.canYell && c.rnd(2) != 0 {
			c.say(battleCries)
		}
	}
	a.SetAction(act)
	delay := c.std()
	if !onScreen(env, opponent.Tile(), 2) {
		delay = 5 * c.std()
	}
	a.Start(c.std(), delay)
}

// walkTowards takes a few blind steps in the direction of o.
func (c *Combat) walkTowards(o world.Object) {
	pos, to := c.npc.Tile(), o.Tile()
	step := func(from, to int) int {
		switch {
		case to > from:
			return 2
		case to < from:
			return -2
		}
		return c.rnd(3) - 1
	}
	dx, dy := step(pos.X, to.X), step(pos.Y, to.Y)
	dest := pos.Add(dx*(1+c.rnd(4)), dy*(1+c.rnd(4)), 0)
	c.npc.WalkToTile(dest, 2*c.std(), 500+c.rnd(500), 0)
}

// runAway walks to a random spot 8 to 15 tiles away.
func (c *Combat) runAway() {
	a := c.npc
	c.fleed++
	a.SetFlag(npc.Fleeing)
	dirx, diry := 2*c.rnd(2)-1, 2*c.rnd(2)-1
	dest := a.Tile().Add(dirx*(8+c.rnd(8)), diry*(8+c.rnd(8)), 0)
	a.Trace("flee", dest.String())
	a.WalkToTile(dest, c.std(), 0, 0)
	if c.fleed == 1 && c.duel == nil && c.rnd(3) != 0 && onScreen(c.env(), a.Tile(), 0) {
		c.yelled = true
		if c.canYell {
			if c.rnd(4) != 0 {
				a.Say(fleeScream)
			} else {
				c.say(fleeCries)
			}
		}
	}
}

// findFoe picks the next opponent according to mode, and forgets it
// from the list of known opponents.
func (c *Combat) findFoe(mode npc.AttackMode) world.Object {
	a := c.npc
	env := c.env()
	if mode == npc.Manual {
		return nil
	}
	if al := a.EffectiveAlignment(); al != c.alignment {
		c.opponents = nil
		c.alignment = al
	}
	live := c.opponents[:0]
	for _, r := range c.opponents {
		o := env.Actor(r)
		if o == nil || o.IsDead() || (a.IsAvatar() && o.Flag(npc.Asleep)) {
			continue
		}
		live = append(live, r)
	}
	c.opponents = live
	if len(c.opponents) == 0 {
		if practice := c.findOpponents(); practice != nil {
			return practice
		}
	}
	best := -1
	switch mode {
	case npc.Weakest:
		least := 100
		for i, r := range c.opponents {
			if o := env.Actor(r); o != nil && o.Strength() < least {
				least, best = o.Strength(), i
			}
		}
	case npc.Strongest:
		most := -100
		for i, r := range c.opponents {
			if o := env.Actor(r); o != nil && o.Strength() > most {
				most, best = o.Strength(), i
			}
		}
	case npc.Nearest:
		bestDist := 64
		for i, r := range c.opponents {
			o := env.Actor(r)
			if o == nil {
				continue
			}
			d := a.DistanceTo(o)
			if o.AttackMode() == npc.Flee {
				d += 16
			}
			if d < bestDist {
				bestDist, best = d, i
			}
		}
	case npc.Protect:
		best = c.findProtectedAttacker()
	}
	if best < 0 && len(c.opponents) > 0 && mode != npc.Nearest {
		best = 0
	}
	if best < 0 {
		return nil
	}
	o := env.Actor(c.opponents[best])
	c.opponents = append(c.opponents[:best], c.opponents[best+1:]...)
	if o == nil {
		return nil
	}
	return o
}

// findProtectedAttacker returns the index of the closest opponent
// attacking the protected party member, or -1.
func (c *Combat) findProtectedAttacker() int {
	a := c.npc
	env := c.env()
	if !a.InParty() {
		return -1
	}
	var prot *npc.Actor
	for _, o := range env.Actors() {
		if (o.InParty() || o.IsAvatar()) && o.Flag(npc.Protected) {
			prot = o
			break
		}
	}
	if prot == nil {
		return -1
	}
	best, bestDist := -1, 64
	for i, r := range c.opponents {
		o := env.Actor(r)
		if o == nil || o.Target() != world.Object(prot) {
			continue
		}
		if d := a.DistanceTo(o); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best >= 0 && c.failures < maxFailures && c.yelled && c.rnd(2) != 0 && a != prot && c.canYell {
		c.say(willHelp)
	}
	return best
}

// findOpponents scans for enemies within 40 tiles. A duel returns its
// practice target instead, when it picks one.
func (c *Combat) findOpponents() world.Object {
	if c.duel != nil {
		if p := c.findDuelOpponents(); p != nil {
			return p
		}
		return nil
	}
	a := c.npc
	env := c.env()
	c.opponents = nil
	var sleeping []world.Ref
	inParty := a.InParty() || a.IsAvatar()
	align := a.EffectiveAlignment()
	seeInvisible := a.Flag(npc.SeeInvisible)
	friendlyPartyMember := func(o *npc.Actor) bool {
		return o != nil && (o.InParty() || o.IsAvatar()) && !align.Hostile(o.EffectiveAlignment())
	}
	for _, o := range env.ActorsNear(a.Tile(), 40) {
		if o == a || (!seeInvisible && o.Flag(npc.Invisible)) {
			continue
		}
		if align.Hostile(o.EffectiveAlignment()) {
			if o.Flag(npc.Asleep) {
				sleeping = append(sleeping, world.RefTo(o))
			} else {
				c.opponents = append(c.opponents, world.RefTo(o))
			}
			continue
		}
		if !inParty {
			continue
		}
		if t, ok := o.Target().(*npc.Actor); ok && t != o && friendlyPartyMember(t) {
			// Attacking one of us.
			c.opponents = append(c.opponents, world.RefTo(o))
			continue
		}
		if op := o.Oppressor(); op != nil && op != o && friendlyPartyMember(op) && o.Target() != nil {
			// Fighting one of us.
			c.opponents = append(c.opponents, world.RefTo(o))
		}
	}
	if len(c.opponents) == 0 && inParty {
		if l := c.leader(); l != nil && l.EffectiveAlignment() == align {
			if t, ok := l.Target().(*npc.Actor); ok && t != a && t.ScheduleType() == npc.Combat {
				c.opponents = append(c.opponents, world.RefTo(t))
			}
		}
	}
	if len(c.opponents) == 0 && !a.IsAvatar() {
		c.opponents = sleeping
	}
	log.VEventf(c.ctx(), 2, "%d opponents", len(c.opponents))
	return nil
}

// teleport moves a monster close to its target. It returns true when
// the spell was cast, even if it fizzled.
func (c *Combat) teleport() bool {
	a := c.npc
	env := c.env()
	trg := a.Target()
	now := c.now()
	if trg == nil || now < c.teleportTime {
		return false
	}
	c.teleportTime = now + 2000 + tqueue.Time(c.rnd(2000))
	dest, ok := findSpot(env, trg.Tile().Add(4-c.rnd(8), 4-c.rnd(8), 0), 3)
	if !ok {
		return false
	}
	src := a.Tile()
	if dest.Distance(src) > 7 && c.rnd(2) != 0 {
		// Give the target a chance to get away.
		return false
	}
	if env.Media != nil {
		env.Media.Effect(effectFireField, src)
		env.Media.Sfx(sfxTeleport, a)
	}
	if !straightPath(env, a, trg) {
		return true
	}
	a.Move(dest)
	if env.Media != nil {
		env.Media.Effect(effectStars, dest)
	}
	a.Trace("teleport", dest.String())
	return true
}

// summon calls for help when the target is in sight.
func (c *Combat) summon() bool {
	a := c.npc
	env := c.env()
	trg := a.Target()
	if trg == nil || !straightPath(env, a, trg) {
		return false
	}
	if env.Usecode != nil {
		env.Usecode.Call(SummonUsecode, a, world.DoubleClick)
	}
	a.Trace("summon", "")
	a.StartStd()
	return true
}

func (c *Combat) beInvisible() {
	a := c.npc
	env := c.env()
	if env.Media != nil {
		env.Media.Sfx(sfxInvisible, a)
		env.Media.Effect(effectVanish, a.Tile())
	}
	a.SetFlag(npc.Invisible)
	a.Trace("invisible", "")
	a.StartStd()
}

// attackPoses are the poses of an attack by weapon class.
var attackPoses = map[world.WeaponClass][]int{
	world.Swing:  {npc.Ready, npc.Raise1, npc.Reach1, npc.Strike1},
	world.Thrust: {npc.Ready, npc.Raise2, npc.Reach2, npc.Strike2},
	world.Shoot:  {npc.Ready, npc.Raise2, npc.Strike2},
	world.Cast:   {npc.Ready, npc.Up, npc.Out},
}

var handPoses = []int{npc.Ready, npc.Raise1, npc.Strike1}

// startStrike begins an attack on the target, or goes back to
// approaching it.
func (c *Combat) startStrike() {
	a := c.npc
	env := c.env()
	opponent := a.Target()
	if opponent == nil {
		c.state = approach
		c.approachFoe(false)
		return
	}
	dist := a.DistanceTo(opponent)
	reach := 1
	if c.hasWeapon && c.weapon.Reach > 0 {
		reach = c.weapon.Reach
	} else if !c.hasWeapon && a.Traits().Reach > 0 {
		reach = a.Traits().Reach
	}
	ranged := dist > reach || (c.hasWeapon && c.weapon.Ranged())
	checkLOF := !c.noBlocking
	if c.weaponRange() < dist {
		c.state = approach
		c.approachFoe(false)
		return
	}
	if ranged {
		if c.hasWeapon && !a.HasAmmoFor(c.weapon) {
			// Out of ammunition or charges.
			log.VEventf(c.ctx(), 1, "%s is spent", c.weapon.Name)
			if c.duel == nil {
				if a.SwapWeapon() {
					c.SetWeapon(false)
				} else {
					c.setHandToHand()
				}
			}
			c.stand()
			c.state = approach
			a.SetTarget(nil, false)
			a.Start(200, 500)
			return
		}
		c.state = fire
	} else {
		checkLOF = reach > 1
		c.state = strike
	}
	if checkLOF && !straightPath(env, a, opponent) {
		c.state = approach
		c.approachFoe(true)
		return
	}
	c.startBattle()
	if c.yelled && c.canYell && c.rnd(20) == 0 {
		c.say(taunts)
	}
	log.VEventf(c.ctx(), 1, "attacks %s", opponent.Name())
	poses := handPoses
	if c.hasWeapon {
		poses = attackPoses[c.weapon.Class]
	}
	dir := world.DirTowards(a.Tile(), opponent.Tile())
	a.SetAction(npc.NewFrames(c.std(), dirFrames(dir, poses...)...))
	a.Start(c.std(), 0)
	c.dex -= dexToAttack
}

// SetWeapon implements npc.Schedule: the weapon cache is refreshed,
// and a new weapon readied unless one was just taken away.
func (c *Combat) SetWeapon(removed bool) {
	a := c.npc
	c.weapon, c.hasWeapon = a.WeaponInfo()
	if !removed && c.duel == nil && c.state != waitReturn && !c.hasWeapon {
		if a.ReadyBestWeapon() {
			c.weapon, c.hasWeapon = a.WeaponInfo()
		}
	}
	if !c.hasWeapon {
		c.setHandToHand()
	} else {
		// Spells need no line of fire unless told otherwise.
		c.noBlocking = c.weapon.Spell && !c.weapon.NeedsLOF
	}
	if c.state == strike || c.state == fire {
		c.state = approach
	}
}

func (c *Combat) setHandToHand() {
	c.weapon, c.hasWeapon = world.WeaponInfo{}, false
	c.noBlocking = false
	if c.npc.Weapon() >= 0 {
		c.npc.EmptyHands()
	}
}

// Ending implements npc.Schedule: an avatar walking away from close
// enemies gets the coward's tune.
func (c *Combat) Ending(npc.ScheduleType) {
	a := c.npc
	env := c.env()
	a.ClearFlag(npc.Fleeing)
	if !a.IsAvatar() || env.Media == nil {
		return
	}
	c.findOpponents()
	for _, r := range c.opponents {
		if o := env.Actor(r); o != nil && a.DistanceTo(o) < 8 && straightPath(env, a, o) {
			env.Media.Music(musicRunAway, false)
			return
		}
	}
}

// OnDormant implements npc.Schedule: good monsters stop fighting once
// out of sight.
func (c *Combat) OnDormant() {
	a := c.npc
	if a.EffectiveAlignment() == npc.Good && a.Traits().Monster &&
		c.prev != c.typ && c.prev != npc.NoSchedule {
		a.SetScheduleType(c.prev)
	}
}

// findDuelOpponents picks a practice target (archery target or
// dummy) or fellow duelists.
func (c *Combat) findDuelOpponents() world.Object {
	a := c.npc
	env := c.env()
	d := c.duel
	c.opponents = nil
	d.attacks = 0
	d.practice = world.Ref{}
	var practice world.Object
	r := c.rnd(3)
	if r == 0 {
		if practice = c.closest([]int{shapeArcheryTarg}, 24); practice != nil {
			c.readyDuelWeapon(shapeDuelBow, 1+c.rnd(3))
		}
	}
	if practice == nil {
		c.readyDuelWeapon(shapeDuelSword, 0)
		if r == 1 {
			practice = c.closest([]int{shapeDummy}, 24)
		}
	}
	c.SetWeapon(false)
	if practice != nil {
		d.practice = world.RefTo(practice)
		a.SetTarget(practice, false)
		return practice
	}
	for _, o := range env.ActorsNear(a.Tile(), 24) {
		t := o.Target()
		if o != a && o.ScheduleType() == npc.Duel && (t == nil || t == world.Object(a)) {
			c.opponents = append(c.opponents, world.RefTo(o))
		}
	}
	return nil
}

func (c *Combat) readyDuelWeapon(shape, ammo int) {
	a := c.npc
	if a.Weapon() != shape {
		a.SetWeapon(shape)
	}
	if ammo > 0 {
		a.SetAmmo(ammo)
	}
}

// duelBreakOff counts a duelist's attacks and every eighth one walks
// back near the starting spot. It returns true if it did.
func (c *Combat) duelBreakOff() bool {
	a := c.npc
	env := c.env()
	d := c.duel
	d.attacks++
	if p := d.practice.Get(env.Objs); p != nil && p.Shape() == shapeArcheryTarg &&
		p.Frame() > 0 && p.Frame()%3 == 0 {
		// The target is full.
		d.attacks = 0
		p.SetFrame(0)
	}
	if d.attacks%8 != 0 {
		return false
	}
	a.SetTarget(nil, false)
	c.state = approach
	pos := d.start.Add(c.rnd(24)-12, c.rnd(24)-12, 0)
	if dest, ok := findSpot(env, pos, 3); !ok || !a.WalkPathToTile(world.NoTile, dest, c.std(), c.rnd(2000), 0, 0) {
		a.Start(250, c.rnd(3000))
	}
	return true
}
