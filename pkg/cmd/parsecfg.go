package cmd

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/cockroachdb/cockroach/pkg/util/log"
	"github.com/cockroachdb/errors"
	"github.com/wonst719/exult-sub000/pkg/npc"
	"github.com/wonst719/exult-sub000/pkg/schedule"
	"github.com/wonst719/exult-sub000/pkg/script"
	"github.com/wonst719/exult-sub000/pkg/tqueue"
	"github.com/wonst719/exult-sub000/pkg/world"
)

// parseCfg parses a scenario from the given input, then the extra
// lines given on the command line.
func (cfg *config) parseCfg(ctx context.Context, rd *reader) error {
	rd.preproc = cfg.preprocReplace
	if err := cfg.parseScenario(ctx, rd); err != nil {
		return err
	}
	if len(cfg.extraScript) > 0 {
		extra, err := newReaderFromString("<command line>", strings.Join(cfg.extraScript, "\n"))
		if err != nil {
			return err
		}
		extra.preproc = cfg.preprocReplace
		if err := cfg.parseScenario(ctx, extra); err != nil {
			return err
		}
	}
	return cfg.check(ctx)
}

func (cfg *config) parseScenario(ctx context.Context, rd *reader) error {
	topLevelParsers := []struct {
		headerRe *regexp.Regexp
		parseFn  func(ctx context.Context, rd *reader, p pos, header []string) error
	}{
		{worldRe, cfg.parseWorld},
		{actorRe, cfg.parseActor},
		{behaviorRe, cfg.parseBehavior},
		{scriptRe, cfg.parseScript},
		{cuesRe, func(ctx context.Context, rd *reader, _ pos, _ []string) error {
			return parseSection(ctx, rd, cfg.parseCue)
		}},
		{audienceRe, func(ctx context.Context, rd *reader, _ pos, _ []string) error {
			return parseSection(ctx, rd, cfg.parseAudience)
		}},
	}
	for {
		line, p, stop, skip, err := rd.readLine(ctx)
		if err != nil || stop {
			return err
		} else if skip {
			continue
		}

		found := false
		for _, parser := range topLevelParsers {
			if m := parser.headerRe.FindStringSubmatch(line); m != nil {
				found = true
				// Errors are already decorated by the section parsers.
				if err := parser.parseFn(ctx, rd, p, m[1:]); err != nil {
					return err
				}
				break
			}
		}
		if !found {
			return p.wrapErr(explainAlternativesList(errors.New("unknown syntax"),
				"sections", "world", "actor", "behavior", "script", "cues", "audience"))
		}
	}
}

func compileRe(re string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("(?s:%s)", re))
}

// parseSection applies the given lineParser to every line inside a section,
// and stops at the "end" keyword.
func parseSection(ctx context.Context, rd *reader, lineParser func(line string) error) error {
	for {
		line, p, stop, skip, err := rd.readLine(ctx)
		if err != nil {
			return err
		} else if stop {
			return p.wrapErr(errors.New("section not terminated with end"))
		} else if skip {
			continue
		}
		if line == "end" {
			return nil
		}
		if err := lineParser(line); err != nil {
			return p.wrapErr(err)
		}
	}
}

var worldRe = compileRe(`^world\s+(\d+)x(\d+)$`)

func (cfg *config) parseWorld(ctx context.Context, rd *reader, p pos, header []string) error {
	if cfg.world != nil {
		return p.wrapErr(errors.New("world already defined"))
	}
	w, _ := strconv.Atoi(header[0])
	h, _ := strconv.Atoi(header[1])
	if w == 0 || h == 0 {
		return p.wrapErr(errors.Newf("invalid world size: %dx%d", w, h))
	}
	ws := &worldSpec{w: w, h: h, itemNames: make(map[string]struct{})}
	cfg.world = ws
	return parseSection(ctx, rd, func(line string) error { return ws.parseLine(line) })
}

func (ws *worldSpec) parseLine(line string) error {
	fields := strings.Fields(line)
	switch kw, args := fields[0], fields[1:]; kw {
	case "wall":
		v, err := parseInts(kw, args, 4)
		if err != nil {
			return err
		}
		ws.walls = append(ws.walls, [4]int{v[0], v[1], v[2], v[3]})

	case "loaded":
		v, err := parseInts(kw, args, 4)
		if err != nil {
			return err
		}
		ws.loaded = &world.Rect{X: v[0], Y: v[1], W: v[2], H: v[3]}

	case "camera":
		v, err := parseInts(kw, args, 2)
		if err != nil {
			return err
		}
		ws.camera = &world.Tile{X: v[0], Y: v[1]}

	case "item":
		if len(args) < 2 {
			return errors.New("item: expected a name and a shape")
		}
		if err := checkIdent(args[0]); err != nil {
			return err
		}
		shape, err := parseInt(args[1])
		if err != nil {
			return errors.Wrap(err, "item shape")
		}
		it := &itemSpec{name: args[0], shape: shape, nframes: 32}
		if err := it.parseOptions(args[2:]); err != nil {
			return err
		}
		ws.items = append(ws.items, it)
		ws.itemNames[it.name] = struct{}{}

	case "weapon":
		return ws.parseWeapon(args)

	case "path":
		if len(args) < 1 {
			return errors.New("path: expected a path number")
		}
		num, err := parseInt(args[0])
		if err != nil {
			return errors.Wrap(err, "path number")
		}
		if num < 0 || num > 31 {
			return errors.Newf("path number out of range: %d", num)
		}
		it := pathItem(num, 0, world.Tile{})
		if err := it.parseOptions(args[1:]); err != nil {
			return err
		}
		ws.items = append(ws.items, it)

	default:
		return explainAlternativesList(errors.Newf("unknown world property: %q", kw),
			"properties", "wall", "loaded", "camera", "item", "weapon", "path")
	}
	return nil
}

// parseWeapon reads: NAME SHAPE damage D [range R] [reach R] [ammo SHAPE].
func (ws *worldSpec) parseWeapon(args []string) error {
	if len(args) < 2 || len(args)%2 != 0 {
		return errors.New("weapon: expected a name, a shape and property/value pairs")
	}
	if err := checkIdent(args[0]); err != nil {
		return err
	}
	shape, err := parseInt(args[1])
	if err != nil {
		return errors.Wrap(err, "weapon shape")
	}
	wi := world.WeaponInfo{Name: args[0], Shape: shape}
	for i := 2; i < len(args); i += 2 {
		v, err := parseInt(args[i+1])
		if err != nil {
			return errors.Wrap(err, args[i])
		}
		switch args[i] {
		case "damage":
			wi.Damage = v
		case "range":
			wi.Range = v
			wi.Class = world.Shoot
			wi.NeedsLOF = true
		case "reach":
			wi.Reach = v
		case "ammo":
			wi.AmmoFamily = v
		default:
			return explainAlternativesList(errors.Newf("unknown weapon property: %q", args[i]),
				"properties", "damage", "range", "reach", "ammo")
		}
	}
	if wi.Damage <= 0 {
		return errors.Newf("weapon %s: expected a positive damage", wi.Name)
	}
	ws.weapons = append(ws.weapons, wi)
	return nil
}

// parseOptions reads "at X Y [Z]", "frame F", "quality Q" and
// "frames N" in any order.
func (it *itemSpec) parseOptions(args []string) error {
	seenAt := false
	for len(args) > 0 {
		kw := args[0]
		args = args[1:]
		switch kw {
		case "at":
			n := 3
			if len(args) < 3 || args[2] == "frame" || args[2] == "quality" || args[2] == "frames" {
				n = 2
			}
			if len(args) < n {
				return errors.New("at: expected X Y [Z]")
			}
			t, err := parseTile(args[:n])
			if err != nil {
				return err
			}
			it.at = t
			args = args[n:]
			seenAt = true
		case "frame", "quality", "frames":
			if len(args) < 1 {
				return errors.Newf("%s: expected a number", kw)
			}
			v, err := parseInt(args[0])
			if err != nil {
				return errors.Wrap(err, kw)
			}
			args = args[1:]
			switch kw {
			case "frame":
				if it.path {
					return errors.New("the frame of a path marker is its number")
				}
				it.frame = v
			case "quality":
				it.quality = v
			case "frames":
				it.nframes = v
			}
		default:
			return explainAlternativesList(errors.Newf("unknown item option: %q", kw),
				"options", "at", "frame", "quality", "frames")
		}
	}
	if !seenAt {
		return errors.New("missing position (at X Y [Z])")
	}
	return nil
}

var actorRe = compileRe(`^actor\s+(\S+)$`)

func (cfg *config) parseActor(ctx context.Context, rd *reader, p pos, header []string) error {
	name := header[0]
	if err := checkIdent(name); err != nil {
		return p.wrapErr(err)
	}
	if _, ok := cfg.actors[name]; ok {
		return p.wrapErr(errors.Newf("duplicate actor definition: %q", name))
	}
	a := newActorSpec(name)
	cfg.actors[name] = a
	cfg.actorNames = append(cfg.actorNames, name)
	return parseSection(ctx, rd, a.parseLine)
}

func (a *actorSpec) parseLine(line string) error {
	fields := strings.Fields(line)
	kw, args := fields[0], fields[1:]
	one := func() (string, error) {
		if len(args) != 1 {
			return "", errors.Newf("%s: expected one argument", kw)
		}
		return args[0], nil
	}
	oneInt := func() (int, error) {
		s, err := one()
		if err != nil {
			return 0, err
		}
		v, err := parseInt(s)
		return v, errors.Wrap(err, kw)
	}
	var err error
	switch kw {
	case "at", "post":
		t, err := parseTile(args)
		if err != nil {
			return err
		}
		if kw == "at" {
			a.at = t
		} else {
			a.post = &t
		}

	case "shape":
		a.shape, err = oneInt()

	case "alignment":
		s, err := one()
		if err != nil {
			return err
		}
		al, ok := npc.ParseAlignment(s)
		if !ok {
			return explainAlternativesList(errors.Newf("unknown alignment: %q", s),
				"alignments", "neutral", "good", "evil", "chaotic")
		}
		a.alignment = al

	case "stats":
		if len(args) == 0 || len(args)%2 != 0 {
			return errors.New("stats: expected name/value pairs")
		}
		for i := 0; i < len(args); i += 2 {
			v, err := parseInt(args[i+1])
			if err != nil {
				return errors.Wrap(err, args[i])
			}
			switch args[i] {
			case "hp", "health":
				a.props.Health = v
			case "str", "strength":
				a.props.Strength = v
			case "dex", "dexterity":
				a.props.Dexterity = v
			case "int", "intelligence":
				a.props.Intelligence = v
			case "combat":
				a.props.Combat = v
			default:
				return explainAlternativesList(errors.Newf("unknown stat: %q", args[i]),
					"stats", "hp", "str", "dex", "int", "combat")
			}
		}

	case "weapon":
		a.weapon, err = oneInt()

	case "carries":
		var w int
		if w, err = oneInt(); err == nil {
			a.spare = append(a.spare, w)
		}

	case "ammo":
		a.ammo, err = oneInt()

	case "reach":
		a.traits.Reach, err = oneInt()

	case "usecode":
		a.traits.Fun, err = oneInt()

	case "monster":
		a.traits.Monster = true

	case "can":
		if len(args) == 0 {
			return errors.New("can: expected abilities")
		}
		for _, c := range args {
			switch c {
			case "teleport":
				a.traits.CanTeleport = true
			case "summon":
				a.traits.CanSummon = true
			case "invisible":
				a.traits.CanGoInvis = true
			default:
				return explainAlternativesList(errors.Newf("unknown ability: %q", c),
					"abilities", "teleport", "summon", "invisible")
			}
		}

	case "flags":
		for _, f := range args {
			fl, ok := npc.ParseFlag(f)
			if !ok {
				return errors.Newf("unknown flag: %q", f)
			}
			a.flags |= fl
		}

	case "party":
		a.party = true

	case "avatar":
		a.avatar = true

	case "follows":
		a.leader, err = one()

	case "attack":
		s, err := one()
		if err != nil {
			return err
		}
		m, ok := npc.ParseAttackMode(s)
		if !ok {
			return explainAlternativesList(errors.Newf("unknown attack mode: %q", s),
				"modes", "nearest", "weakest", "strongest", "berserk", "protect",
				"defend", "flank", "flee", "random", "manual")
		}
		a.attack = m

	case "schedule":
		a.schedName, err = one()

	default:
		return explainAlternativesList(errors.Newf("unknown actor property: %q", kw),
			"properties", "at", "shape", "alignment", "stats", "weapon", "carries",
			"ammo", "reach", "usecode", "monster", "can", "flags", "party", "avatar",
			"follows", "post", "attack", "schedule")
	}
	return err
}

var behaviorRe = compileRe(`^behavior\s+(\S+)$`)

func (cfg *config) parseBehavior(ctx context.Context, rd *reader, p pos, header []string) error {
	name := header[0]
	if err := checkIdent(name); err != nil {
		return p.wrapErr(err)
	}
	if _, ok := npc.ParseScheduleType(name); ok {
		return p.wrapErr(errors.WithHint(
			errors.Newf("behavior %q would hide a built-in schedule", name),
			"choose another name"))
	}
	if _, ok := cfg.behaviors[name]; ok {
		return p.wrapErr(errors.Newf("duplicate behavior definition: %q", name))
	}
	var lines []string
	if err := parseSection(ctx, rd, func(line string) error {
		// Check every line on its own, so that errors point to it.
		if _, err := schedule.ParseBehavior(name, []string{line}); err != nil {
			return err
		}
		lines = append(lines, line)
		return nil
	}); err != nil {
		return err
	}
	b, err := schedule.ParseBehavior(name, lines)
	if err != nil {
		return p.wrapErr(err)
	}
	cfg.behaviors[name] = b
	cfg.behaviorNames = append(cfg.behaviorNames, name)
	return nil
}

var scriptRe = compileRe(`^script\s+(\S+)\s+on\s+(\S+)$`)

func (cfg *config) parseScript(ctx context.Context, rd *reader, p pos, header []string) error {
	name, obj := header[0], header[1]
	if err := checkIdents(name, obj); err != nil {
		return p.wrapErr(err)
	}
	if _, ok := cfg.scripts[name]; ok {
		return p.wrapErr(errors.Newf("duplicate script definition: %q", name))
	}
	sc := &scriptSpec{name: name, obj: obj}
	if err := parseSection(ctx, rd, func(line string) error {
		code, err := script.Assemble(line)
		if err != nil {
			return err
		}
		sc.code = append(sc.code, code...)
		return nil
	}); err != nil {
		return err
	}
	if len(sc.code) == 0 {
		return p.wrapErr(errors.Newf("script %q is empty", name))
	}
	cfg.scripts[name] = sc
	cfg.scriptNames = append(cfg.scriptNames, name)
	log.VEventf(ctx, 2, "script %s on %s: %s", name, obj, sc.disassemble())
	return nil
}

var cuesRe = compileRe(`^cues$`)
var cueRe = compileRe(`^at\s+(?P<at>\S+)\s+(?P<rest>.*)$`)
var cueSayRe = compileRe(`^(?P<actor>\S+)\s+say\s+(?P<text>".*")$`)

func (cfg *config) parseCue(line string) error {
	m := cueRe.FindStringSubmatch(line)
	if m == nil {
		return errors.WithHint(errors.New("unknown cue syntax"), "cues start with: at <time>")
	}
	at, err := parseGameTime(m[1])
	if err != nil {
		return err
	}
	c := &cue{at: at}
	rest := m[2]

	if sm := cueSayRe.FindStringSubmatch(rest); sm != nil {
		text, err := strconv.Unquote(sm[2])
		if err != nil {
			return errors.Wrap(err, "say")
		}
		c.verb, c.subject, c.arg = cueSay, sm[1], text
		cfg.cues = append(cfg.cues, c)
		return nil
	}

	fields := strings.Fields(rest)
	switch fields[0] {
	case "pause", "resume", "stop":
		if len(fields) != 1 {
			return errors.Newf("%s: unexpected arguments", fields[0])
		}
		c.verb = map[string]cueVerb{"pause": cuePause, "resume": cueResume, "stop": cueStop}[fields[0]]
	case "start", "remove":
		if len(fields) != 2 {
			return errors.Newf("%s: expected a name", fields[0])
		}
		c.verb = cueStart
		if fields[0] == "remove" {
			c.verb = cueRemove
		}
		c.subject = fields[1]
	default:
		if len(fields) < 2 {
			return errors.New("expected: <actor> <verb> <args>")
		}
		c.subject = fields[0]
		if err := c.parseActorVerb(fields[1], fields[2:]); err != nil {
			return err
		}
	}
	cfg.cues = append(cfg.cues, c)
	return nil
}

func (c *cue) parseActorVerb(verb string, args []string) error {
	switch verb {
	case "schedule", "target", "flag", "unflag":
		if len(args) != 1 {
			return errors.Newf("%s: expected one name", verb)
		}
		c.arg = args[0]
		c.verb = map[string]cueVerb{
			"schedule": cueSchedule, "target": cueTarget, "flag": cueFlag, "unflag": cueUnflag,
		}[verb]
	case "health":
		if len(args) != 1 {
			return errors.New("health: expected a number")
		}
		v, err := parseInt(args[0])
		if err != nil {
			return errors.Wrap(err, "health")
		}
		c.verb, c.n = cueHealth, v
	case "move":
		t, err := parseTile(args)
		if err != nil {
			return err
		}
		c.verb, c.tile = cueMove, t
	case "walk":
		// walk X Y [Z] then SCHEDULE
		n := len(args)
		if n < 4 || args[n-2] != "then" {
			return errors.New("walk: expected X Y [Z] then <schedule>")
		}
		t, err := parseTile(args[:n-2])
		if err != nil {
			return err
		}
		c.verb, c.tile, c.arg = cueWalk, t, args[n-1]
	default:
		return explainAlternativesList(errors.Newf("unknown cue verb: %q", verb),
			"verbs", "schedule", "walk", "target", "health", "flag", "unflag", "move", "say",
			"pause", "resume", "start", "remove", "stop")
	}
	return nil
}

var audienceRe = compileRe(`^audience$`)
var expectsRe = compileRe(`^(?P<name>\S+)\s+expects\s+(?P<when>[a-z]+[a-z ]*[a-z])\s*:\s*(?P<expr>.*)$`)
var activeRe = compileRe(`^(?P<name>\S+)\s+audits\s+(?:only\s+(?:while|when)\s+(?P<expr>.*)|throughout)\s*$`)

func (cfg *config) parseAudience(line string) error {
	if m := expectsRe.FindStringSubmatch(line); m != nil {
		aName, aWhen, aExpr := m[1], m[2], strings.TrimSpace(m[3])
		if err := checkIdent(aName); err != nil {
			return err
		}
		a := cfg.addOrGetAudienceMember(aName)
		if a.expectFsm != nil {
			return errors.Newf("auditor %q already has an expectation", aName)
		}
		when, err := parseAuditWhen(aWhen)
		if err != nil {
			return err
		}
		e, err := compileExpr(aExpr)
		if err != nil {
			return err
		}
		a.expectFsm = when
		a.expectExpr = e
		return nil
	}
	if m := activeRe.FindStringSubmatch(line); m != nil {
		aName, aExpr := m[1], strings.TrimSpace(m[2])
		if err := checkIdent(aName); err != nil {
			return err
		}
		a := cfg.addOrGetAudienceMember(aName)
		if aExpr == "" {
			aExpr = "true"
		}
		e, err := compileExpr(aExpr)
		if err != nil {
			return err
		}
		a.activeCond = e
		return nil
	}
	return errors.WithHint(errors.New("unknown audience syntax"),
		"try: <name> expects <modality>: <expr>, or <name> audits only while <expr>")
}

func parseAuditWhen(when string) (*fsm, error) {
	if f, ok := automata[when]; ok {
		return f, nil
	}
	return nil, explainAlternatives(
		errors.Newf("predicate modality %q not recognized", when),
		"modalities", automata)
}

func parseInt(s string) (int, error) {
	v, err := strconv.ParseInt(s, 0, 32)
	if err != nil {
		return 0, errors.Newf("invalid number: %q", s)
	}
	return int(v), nil
}

func parseInts(what string, args []string, n int) ([]int, error) {
	if len(args) != n {
		return nil, errors.Newf("%s: expected %d numbers, got %d", what, n, len(args))
	}
	res := make([]int, n)
	for i, a := range args {
		v, err := parseInt(a)
		if err != nil {
			return nil, errors.Wrap(err, what)
		}
		res[i] = v
	}
	return res, nil
}

// parseTile reads "X Y" or "X Y Z".
func parseTile(args []string) (world.Tile, error) {
	if len(args) != 2 && len(args) != 3 {
		return world.NoTile, errors.New("expected a position: X Y [Z]")
	}
	v, err := parseInts("position", args, len(args))
	if err != nil {
		return world.NoTile, err
	}
	t := world.Tile{X: v[0], Y: v[1]}
	if len(v) == 3 {
		t.Z = v[2]
	}
	return t, nil
}

// parseGameTime reads a number of game milliseconds, or a duration
// like "1.5s".
func parseGameTime(s string) (tqueue.Time, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		if v < 0 {
			return 0, errors.Newf("negative time: %s", s)
		}
		return tqueue.Time(v), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, errors.WithHint(errors.Newf("invalid time: %q", s),
			"use milliseconds or a duration, e.g. 1500 or 1.5s")
	}
	return tqueue.Time(d / time.Millisecond), nil
}

func explainAlternatives(err error, name string, theMap interface{}) error {
	keys := reflect.ValueOf(theMap).MapKeys()
	if len(keys) == 0 {
		return errors.WithHintf(err, "no %s defined yet", name)
	}
	keyS := make([]string, len(keys))
	for i, k := range keys {
		keyS[i] = fmt.Sprintf("%v", k)
	}
	return explainAlternativesList(err, name, keyS...)
}

func explainAlternativesList(err error, name string, values ...string) error {
	values = append([]string(nil), values...)
	sort.Strings(values)
	return errors.WithHintf(err,
		"available %s: %s", name, strings.Join(values, ", "))
}

var identRe = compileRe(`^[\p{L}\p{S}\p{M}_][\p{L}\p{S}\p{M}\p{N}_]*$`)

func checkIdents(names ...string) error {
	for _, name := range names {
		if err := checkIdent(name); err != nil {
			return err
		}
	}
	return nil
}

func checkIdent(name string) error {
	if len(name) == 0 {
		return errors.New("no identifier specified")
	}
	if !identRe.MatchString(name) {
		err := errors.Newf("not a valid identifier: %q", name)
		alternativeName := strings.Map(identify, name)
		if r, _ := utf8.DecodeRuneInString(alternativeName); unicode.IsDigit(r) {
			alternativeName = "_" + alternativeName
		}
		return errors.WithHintf(err, "try this instead: %s", alternativeName)
	}
	return nil
}

func identify(r rune) rune {
	if unicode.In(r, unicode.L, unicode.S, unicode.M, unicode.N) {
		return r
	}
	return '_'
}
