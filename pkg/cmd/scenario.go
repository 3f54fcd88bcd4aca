package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/wonst719/exult-sub000/pkg/npc"
	"github.com/wonst719/exult-sub000/pkg/schedule"
	"github.com/wonst719/exult-sub000/pkg/script"
	"github.com/wonst719/exult-sub000/pkg/tqueue"
	"github.com/wonst719/exult-sub000/pkg/world"
)

// worldSpec describes the map and its furniture.
type worldSpec struct {
	w, h   int
	walls  [][4]int
	loaded *world.Rect
	camera *world.Tile
	items  []*itemSpec
	// weapons make up the armory; defaultArmory is used when empty.
	weapons []world.WeaponInfo
	// itemNames records the names given to items, for cue checks.
	itemNames map[string]struct{}
}

type itemSpec struct {
	name    string
	shape   int
	frame   int
	quality int
	nframes int
	at      world.Tile
	// path is set for patrol path markers.
	path bool
}

func (ws *worldSpec) print(w io.Writer) {
	fmt.Fprintf(w, "world %dx%d\n", ws.w, ws.h)
	for _, wl := range ws.walls {
		fmt.Fprintf(w, "  wall %d %d %d %d\n", wl[0], wl[1], wl[2], wl[3])
	}
	if r := ws.loaded; r != nil {
		fmt.Fprintf(w, "  loaded %d %d %d %d\n", r.X, r.Y, r.W, r.H)
	}
	if c := ws.camera; c != nil {
		fmt.Fprintf(w, "  camera %d %d\n", c.X, c.Y)
	}
	for _, wi := range ws.weapons {
		fmt.Fprintf(w, "  weapon %s %d damage %d", wi.Name, wi.Shape, wi.Damage)
		if wi.Range > 0 {
			fmt.Fprintf(w, " range %d", wi.Range)
		}
		if wi.Reach > 0 {
			fmt.Fprintf(w, " reach %d", wi.Reach)
		}
		if wi.AmmoFamily > 0 {
			fmt.Fprintf(w, " ammo %d", wi.AmmoFamily)
		}
		fmt.Fprintln(w)
	}
	for _, it := range ws.items {
		if it.path {
			fmt.Fprintf(w, "  path %d at %s quality %d\n", it.frame, fmtTile(it.at), it.quality)
			continue
		}
		fmt.Fprintf(w, "  item %s %d at %s", it.name, it.shape, fmtTile(it.at))
		if it.frame != 0 {
			fmt.Fprintf(w, " frame %d", it.frame)
		}
		if it.quality != 0 {
			fmt.Fprintf(w, " quality %d", it.quality)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, "end")
}

// defaultArmory knows the weapons the built-in schedules hand out.
var defaultArmory = []world.WeaponInfo{
	{Shape: 599, Name: "sword", Damage: 4},
	{Shape: 602, Name: "duel_sword", Damage: 6},
	{Shape: 597, Name: "bow", Damage: 5, Range: 8, AmmoFamily: 722, Class: world.Shoot, NeedsLOF: true},
}

func (ws *worldSpec) armory() world.TableArmory {
	src := ws.weapons
	if len(src) == 0 {
		src = defaultArmory
	}
	t := make(world.TableArmory, len(src))
	for _, w := range src {
		t[w.Shape] = w
	}
	return t
}

func fmtTile(t world.Tile) string { return fmt.Sprintf("%d %d %d", t.X, t.Y, t.Z) }

// defaultActorShape is the shape of actors that do not name one.
const defaultActorShape = 465

// actorSpec describes one member of the cast.
type actorSpec struct {
	name      string
	shape     int
	at        world.Tile
	alignment npc.Alignment
	props     npc.Props
	traits    npc.Traits
	flags     npc.Flags
	weapon    int
	spare     []int
	ammo      int
	party     bool
	avatar    bool
	leader    string
	post      *world.Tile
	attack    npc.AttackMode
	// schedName is resolved against the behaviors by check().
	schedName string
}

func newActorSpec(name string) *actorSpec {
	return &actorSpec{
		name:   name,
		shape:  defaultActorShape,
		weapon: -1,
		props: npc.Props{
			Strength: 10, Dexterity: 10, Intelligence: 10, Health: 10, Combat: 10,
		},
		schedName: npc.Loiter.String(),
	}
}

func (a *actorSpec) print(w io.Writer) {
	fmt.Fprintf(w, "actor %s\n", a.name)
	if a.shape != defaultActorShape {
		fmt.Fprintf(w, "  shape %d\n", a.shape)
	}
	fmt.Fprintf(w, "  at %s\n", fmtTile(a.at))
	fmt.Fprintf(w, "  alignment %s\n", a.alignment)
	p := a.props
	fmt.Fprintf(w, "  stats hp %d str %d dex %d int %d combat %d\n",
		p.Health, p.Strength, p.Dexterity, p.Intelligence, p.Combat)
	if a.weapon >= 0 {
		fmt.Fprintf(w, "  weapon %d\n", a.weapon)
	}
	for _, s := range a.spare {
		fmt.Fprintf(w, "  carries %d\n", s)
	}
	if a.ammo > 0 {
		fmt.Fprintf(w, "  ammo %d\n", a.ammo)
	}
	if t := a.traits; t != (npc.Traits{}) {
		var caps []string
		if t.CanTeleport {
			caps = append(caps, "teleport")
		}
		if t.CanSummon {
			caps = append(caps, "summon")
		}
		if t.CanGoInvis {
			caps = append(caps, "invisible")
		}
		if len(caps) > 0 {
			fmt.Fprintf(w, "  can %s\n", strings.Join(caps, " "))
		}
		if t.Monster {
			fmt.Fprintln(w, "  monster")
		}
		if t.Reach > 0 {
			fmt.Fprintf(w, "  reach %d\n", t.Reach)
		}
		if t.Fun != 0 {
			fmt.Fprintf(w, "  usecode %#x\n", t.Fun)
		}
	}
	if a.flags != 0 {
		fmt.Fprintf(w, "  flags %s\n", strings.Replace(a.flags.String(), ",", " ", -1))
	}
	if a.party {
		fmt.Fprintln(w, "  party")
	}
	if a.avatar {
		fmt.Fprintln(w, "  avatar")
	}
	if a.leader != "" {
		fmt.Fprintf(w, "  follows %s\n", a.leader)
	}
	if a.post != nil {
		fmt.Fprintf(w, "  post %s\n", fmtTile(*a.post))
	}
	fmt.Fprintf(w, "  attack %s\n", a.attack)
	fmt.Fprintf(w, "  schedule %s\n", a.schedName)
	fmt.Fprintln(w, "end")
}

// scriptSpec is a named script, run on an object when cued.
type scriptSpec struct {
	name string
	// obj is the name of the actor or item the script runs for.
	obj  string
	code []script.Cell
}

func (s *scriptSpec) disassemble() string { return script.Disassemble(s.code, -1) }

// cueVerb says what a cue does.
type cueVerb int

const (
	cueSchedule cueVerb = iota
	cueWalk
	cueTarget
	cueHealth
	cueFlag
	cueUnflag
	cueMove
	cueSay
	cuePause
	cueResume
	cueStart
	cueRemove
	cueStop
)

// cue is a timed intervention into the simulation.
type cue struct {
	at   tqueue.Time
	verb cueVerb
	// subject is the actor, object or script the cue applies to.
	subject string
	// arg is the schedule, target or flag name, or the text to say.
	arg  string
	n    int
	tile world.Tile

	// Resolved by check().
	schedType npc.ScheduleType
	flag      npc.Flags
}

func (c *cue) String() string {
	prefix := fmt.Sprintf("at %d", c.at)
	switch c.verb {
	case cueSchedule:
		return fmt.Sprintf("%s %s schedule %s", prefix, c.subject, c.arg)
	case cueWalk:
		return fmt.Sprintf("%s %s walk %s then %s", prefix, c.subject, fmtTile(c.tile), c.arg)
	case cueTarget:
		return fmt.Sprintf("%s %s target %s", prefix, c.subject, c.arg)
	case cueHealth:
		return fmt.Sprintf("%s %s health %d", prefix, c.subject, c.n)
	case cueFlag:
		return fmt.Sprintf("%s %s flag %s", prefix, c.subject, c.arg)
	case cueUnflag:
		return fmt.Sprintf("%s %s unflag %s", prefix, c.subject, c.arg)
	case cueMove:
		return fmt.Sprintf("%s %s move %s", prefix, c.subject, fmtTile(c.tile))
	case cueSay:
		return fmt.Sprintf("%s %s say %q", prefix, c.subject, c.arg)
	case cuePause:
		return prefix + " pause"
	case cueResume:
		return prefix + " resume"
	case cueStart:
		return fmt.Sprintf("%s start %s", prefix, c.subject)
	case cueRemove:
		return fmt.Sprintf("%s remove %s", prefix, c.subject)
	case cueStop:
		return prefix + " stop"
	}
	return prefix + " ?"
}

// pathItem makes the spec of a patrol path marker.
func pathItem(num, quality int, at world.Tile) *itemSpec {
	return &itemSpec{
		name:    fmt.Sprintf("path%d", num),
		shape:   schedule.PathShape,
		frame:   num,
		quality: quality,
		nframes: 32,
		at:      at,
		path:    true,
	}
}
