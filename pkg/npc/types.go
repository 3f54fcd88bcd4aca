package npc

import (
	"fmt"
	"sort"
	"strings"
)

// ScheduleType identifies a behavior. The values follow the numbering
// used by saved games; values from FirstScripted up name externally
// defined behavior classes.
type ScheduleType int

// Schedule types.
const (
	Combat ScheduleType = iota
	HorizPace
	VertPace
	Talk
	Dance
	Eat
	Farm
	TendShop
	Miner
	Hound
	Stand
	Loiter
	Wander
	Blacksmith
	Sleep
	Wait
	Sit
	Graze
	Bake
	Sew
	Shy
	Lab
	Thief
	Waiter
	Special
	KidGames
	EatAtInn
	Duel
	Preach
	Patrol
	DeskWork
	FollowAvatar
	WalkToSchedule
	StreetMaintenance
	ArrestAvatar

	// FirstScripted is the first behavior class defined outside the
	// built-in catalogue.
	FirstScripted ScheduleType = 0x80
	// NoSchedule is used where no schedule applies.
	NoSchedule ScheduleType = -1
)

var scheduleNames = []string{
	"combat", "horiz_pace", "vert_pace", "talk", "dance", "eat", "farm",
	"tend_shop", "miner", "hound", "stand", "loiter", "wander",
	"blacksmith", "sleep", "wait", "sit", "graze", "bake", "sew", "shy",
	"lab", "thief", "waiter", "special", "kid_games", "eat_at_inn", "duel",
	"preach", "patrol", "desk_work", "follow_avatar", "walk_to_schedule",
	"street_maintenance", "arrest_avatar",
}

func (t ScheduleType) String() string {
	if t == NoSchedule {
		return "none"
	}
	if t >= 0 && int(t) < len(scheduleNames) {
		return scheduleNames[t]
	}
	if t >= FirstScripted {
		return fmt.Sprintf("scripted%d", int(t-FirstScripted))
	}
	return fmt.Sprintf("schedule%d", int(t))
}

// ParseScheduleType resolves a schedule name.
func ParseScheduleType(s string) (ScheduleType, bool) {
	for i, n := range scheduleNames {
		if n == s {
			return ScheduleType(i), true
		}
	}
	// Short aliases used in scenario files.
	switch s {
	case "follow", "follow_leader":
		return FollowAvatar, true
	case "desk":
		return DeskWork, true
	case "forge":
		return Blacksmith, true
	case "arrest":
		return ArrestAvatar, true
	}
	return NoSchedule, false
}

// ScheduleNames returns the names of the built-in schedules, sorted.
func ScheduleNames() []string {
	res := append([]string(nil), scheduleNames...)
	sort.Strings(res)
	return res
}

// Alignment decides who fights whom.
type Alignment int

// Alignments.
const (
	Neutral Alignment = iota
	Good
	Evil
	Chaotic
)

var alignmentNames = []string{"neutral", "good", "evil", "chaotic"}

func (al Alignment) String() string {
	if al >= 0 && int(al) < len(alignmentNames) {
		return alignmentNames[al]
	}
	return "alignment?"
}

// ParseAlignment resolves an alignment name.
func ParseAlignment(s string) (Alignment, bool) {
	for i, n := range alignmentNames {
		if n == s {
			return Alignment(i), true
		}
	}
	return Neutral, false
}

// Hostile reports whether an actor with alignment al treats one with
// alignment other as an enemy. Good, evil and chaotic are mutual
// enemies; neutral actors are never hostile by default.
func (al Alignment) Hostile(other Alignment) bool {
	switch al {
	case Good:
		return other == Evil || other == Chaotic
	case Evil:
		return other == Good || other == Chaotic
	case Chaotic:
		return other == Good || other == Evil
	}
	return false
}

// Flags are the boolean states of an actor.
type Flags uint32

// Actor flags.
const (
	Asleep Flags = 1 << iota
	Paralyzed
	Invisible
	SeeInvisible
	CantDie
	InParty
	Dead
	Charmed
	Berserk
	Protected
	UsecodeControl
	Fleeing
)

var flagNames = []string{
	"asleep", "paralyzed", "invisible", "see_invisible", "cant_die",
	"in_party", "dead", "charmed", "berserk", "protected", "usecode_control",
	"fleeing",
}

func (f Flags) String() string {
	var parts []string
	for i, n := range flagNames {
		if f&(1<<uint(i)) != 0 {
			parts = append(parts, n)
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ",")
}

// ParseFlag resolves a single flag name.
func ParseFlag(s string) (Flags, bool) {
	for i, n := range flagNames {
		if n == s {
			return 1 << uint(i), true
		}
	}
	return 0, false
}

// AttackMode is the targeting policy of an actor in combat.
type AttackMode int

// Attack modes.
const (
	Nearest AttackMode = iota
	Weakest
	Strongest
	BerserkMode
	Protect
	Defend
	Flank
	Flee
	Random
	Manual
)

var attackModeNames = []string{
	"nearest", "weakest", "strongest", "berserk", "protect", "defend",
	"flank", "flee", "random", "manual",
}

func (m AttackMode) String() string {
	if m >= 0 && int(m) < len(attackModeNames) {
		return attackModeNames[m]
	}
	return "mode?"
}

// ParseAttackMode resolves an attack mode name.
func ParseAttackMode(s string) (AttackMode, bool) {
	for i, n := range attackModeNames {
		if n == s {
			return AttackMode(i), true
		}
	}
	return Nearest, false
}

// Props are the gameplay properties of an actor. The strength is
// also the maximum health.
type Props struct {
	Strength     int
	Dexterity    int
	Intelligence int
	Health       int
	Combat       int
}

// Traits are the innate capabilities of a creature.
type Traits struct {
	// Reach is the innate melee reach, 0 for the default of 1.
	Reach       int
	CanTeleport bool
	CanSummon   bool
	CanGoInvis  bool
	// Monster actors are not part of the population of named people.
	Monster bool
	// Fun is the behavior function called for proximity and death.
	Fun int
}

// Poses are the low nibble of actor frame numbers.
const (
	Standing   = 0
	StepRight  = 1
	StepLeft   = 2
	Ready      = 3
	Raise1     = 4
	Reach1     = 5
	Strike1    = 6
	Raise2     = 7
	Reach2     = 8
	Strike2    = 9
	SitFrame   = 10
	Bow        = 11
	Kneel      = 12
	SleepFrame = 13
	Up         = 14
	Out        = 15
)

// DirFrame combines a pose with a facing direction.
func DirFrame(dir int, pose int) int {
	return pose&0xf | ((dir&7)/2)<<4
}
