package schedule

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/cockroachdb/cockroach/pkg/util/log"
	"github.com/cockroachdb/errors"
	"github.com/wonst719/exult-sub000/pkg/npc"
	"github.com/wonst719/exult-sub000/pkg/script"
	"github.com/wonst719/exult-sub000/pkg/world"
)

// Behavior is an externally defined behavior class: rules evaluated
// in order each time the actor needs something to do. The first rule
// whose condition holds decides; otherwise the fallback step runs.
type Behavior struct {
	Name      string
	Rules     []Rule
	Otherwise Step
	// Poll is the delay in milliseconds before the rules are looked
	// at again after a step that does not keep the actor busy.
	Poll int
}

// Rule is a "when <expr> then <step>" clause.
type Rule struct {
	Cond string
	Then Step
}

// StepKind says what a Step does.
type StepKind int

// Step kinds.
const (
	StepNone StepKind = iota
	StepSchedule
	StepSay
	StepFlee
	StepWait
	StepUsecode
	StepWalk
)

// Step is the action of a rule.
type Step struct {
	Kind StepKind
	// Schedule is the name of the schedule to switch to.
	Schedule string
	Text     string
	// N is the delay for wait and the function for usecode.
	N      int
	DX, DY int
}

func (s Step) String() string {
	switch s.Kind {
	case StepSchedule:
		return s.Schedule
	case StepSay:
		return "say " + strconv.Quote(s.Text)
	case StepFlee:
		return "flee"
	case StepWait:
		return fmt.Sprintf("wait %d", s.N)
	case StepUsecode:
		return fmt.Sprintf("usecode %#x", s.N)
	case StepWalk:
		return fmt.Sprintf("walk %d %d", s.DX, s.DY)
	}
	return "nothing"
}

// defaultPoll is how often rules are checked by default.
const defaultPoll = 1000

// behaviorParams are the names a condition can use.
var behaviorParams = []string{
	"health", "maxhealth", "strength", "dexterity", "intelligence",
	"combat", "x", "y", "z", "hour", "time", "foes",
}

// behaviorFunctions are the functions a condition can call. The
// versions here only serve to check conditions; each schedule binds
// its own to its actor.
var behaviorFunctions = map[string]govaluate.ExpressionFunction{
	"distance_to": func(args ...interface{}) (interface{}, error) { return 0.0, nil },
	"rand":        func(args ...interface{}) (interface{}, error) { return 0.0, nil },
	"flag":        func(args ...interface{}) (interface{}, error) { return false, nil },
}

// ParseBehavior builds a behavior class from its definition lines:
//
//   when <expr> then <step>
//   otherwise <step>
//   poll <ms>
//
// where a step is a schedule name, "say <quoted text>", "flee",
// "wait <ms>", "usecode <fun>" or "walk <dx> <dy>".
func ParseBehavior(name string, lines []string) (*Behavior, error) {
	b := &Behavior{Name: name, Poll: defaultPoll}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		kw := strings.Fields(line)[0]
		rest := strings.TrimSpace(line[len(kw):])
		switch kw {
		case "when":
			i := strings.LastIndex(rest, " then ")
			if i < 0 {
				return nil, errors.WithHint(
					errors.Newf("%s: missing then: %q", name, line),
					"rules have the form: when <expr> then <step>")
			}
			cond := strings.TrimSpace(rest[:i])
			if err := checkCond(cond); err != nil {
				return nil, errors.Wrapf(err, "%s: %q", name, cond)
			}
			step, err := ParseStep(rest[i+len(" then "):])
			if err != nil {
				return nil, errors.Wrapf(err, "%s", name)
			}
			b.Rules = append(b.Rules, Rule{Cond: cond, Then: step})
		case "otherwise":
			step, err := ParseStep(rest)
			if err != nil {
				return nil, errors.Wrapf(err, "%s", name)
			}
			b.Otherwise = step
		case "poll":
			n, err := strconv.Atoi(rest)
			if err != nil || n <= 0 {
				return nil, errors.Newf("%s: invalid poll delay: %q", name, rest)
			}
			b.Poll = n
		default:
			return nil, errors.WithHint(
				errors.Newf("%s: unknown behavior clause: %q", name, kw),
				"supported clauses: when, otherwise, poll")
		}
	}
	return b, nil
}

// checkCond compiles a condition and verifies its variables.
func checkCond(src string) error {
	e, err := govaluate.NewEvaluableExpressionWithFunctions(src, behaviorFunctions)
	if err != nil {
		return err
	}
	for _, v := range e.Vars() {
		known := false
		for _, p := range behaviorParams {
			if p == v {
				known = true
				break
			}
		}
		if !known {
			return errors.WithHintf(errors.Newf("unknown variable: %q", v),
				"available: %s", strings.Join(behaviorParams, ", "))
		}
	}
	return nil
}

// ParseStep parses the action of a rule.
func ParseStep(src string) (Step, error) {
	src = strings.TrimSpace(src)
	fields := strings.Fields(src)
	if len(fields) == 0 {
		return Step{}, errors.New("missing step")
	}
	atoi := func(s string) (int, error) {
		n, err := strconv.ParseInt(s, 0, 32)
		return int(n), errors.Wrapf(err, "step %q", src)
	}
	switch fields[0] {
	case "say":
		text, err := strconv.Unquote(strings.TrimSpace(src[len("say"):]))
		if err != nil {
			return Step{}, errors.Wrapf(err, "step %q", src)
		}
		return Step{Kind: StepSay, Text: text}, nil
	case "flee":
		return Step{Kind: StepFlee}, nil
	case "wait", "usecode":
		if len(fields) != 2 {
			return Step{}, errors.Newf("%s: expected one argument", fields[0])
		}
		n, err := atoi(fields[1])
		if err != nil {
			return Step{}, err
		}
		if fields[0] == "wait" {
			return Step{Kind: StepWait, N: n}, nil
		}
		return Step{Kind: StepUsecode, N: n}, nil
	case "walk":
		if len(fields) != 3 {
			return Step{}, errors.New("walk: expected dx dy")
		}
		dx, err := atoi(fields[1])
		if err != nil {
			return Step{}, err
		}
		dy, err := atoi(fields[2])
		if err != nil {
			return Step{}, err
		}
		return Step{Kind: StepWalk, DX: dx, DY: dy}, nil
	case "schedule":
		if len(fields) != 2 {
			return Step{}, errors.New("schedule: expected a name")
		}
		return Step{Kind: StepSchedule, Schedule: fields[1]}, nil
	}
	if len(fields) != 1 {
		return Step{}, errors.Newf("unknown step: %q", src)
	}
	return Step{Kind: StepSchedule, Schedule: fields[0]}, nil
}

// scripted runs a behavior class for one actor.
type scripted struct {
	base
	b     *Behavior
	conds []*govaluate.EvaluableExpression
	fired string
}

func newScripted(m *Maker, a *npc.Actor, t, prev npc.ScheduleType, b *Behavior) *scripted {
	s := &scripted{base: newBase(m, a, t, prev), b: b}
	funcs := s.functions()
	for _, r := range b.Rules {
		e, err := govaluate.NewEvaluableExpressionWithFunctions(r.Cond, funcs)
		if err != nil {
			// Checked when parsed.
			log.Warningf(a.Ctx(), "%s: %v", b.Name, err)
		}
		s.conds = append(s.conds, e)
	}
	return s
}

// Fired returns the last step taken.
func (s *scripted) Fired() string { return s.fired }

func (s *scripted) functions() map[string]govaluate.ExpressionFunction {
	return map[string]govaluate.ExpressionFunction{
		"distance_to": func(args ...interface{}) (interface{}, error) {
			if len(args) != 1 {
				return nil, errors.Newf("distance_to: expected 1 argument, got %d", len(args))
			}
			name, ok := args[0].(string)
			if !ok {
				return nil, errors.Newf("distance_to: expected a name, got %T", args[0])
			}
			o := s.objs().ByName(name)
			if o == nil {
				return 1000.0, nil
			}
			return float64(s.npc.DistanceTo(o)), nil
		},
		"rand": func(args ...interface{}) (interface{}, error) {
			if len(args) != 1 {
				return nil, errors.Newf("rand: expected 1 argument, got %d", len(args))
			}
			n, ok := args[0].(float64)
			if !ok {
				return nil, errors.Newf("rand: expected a number, got %T", args[0])
			}
			return float64(s.rnd(int(n))), nil
		},
		"flag": func(args ...interface{}) (interface{}, error) {
			if len(args) != 1 {
				return nil, errors.Newf("flag: expected 1 argument, got %d", len(args))
			}
			name, _ := args[0].(string)
			f, ok := npc.ParseFlag(name)
			if !ok {
				return nil, errors.Newf("flag: unknown flag %q", name)
			}
			return s.npc.Flag(f), nil
		},
	}
}

func (s *scripted) params() govaluate.MapParameters {
	a := s.npc
	t := a.Tile()
	return govaluate.MapParameters{
		"health":       float64(a.Health()),
		"maxhealth":    float64(a.MaxHealth()),
		"strength":     float64(a.Strength()),
		"dexterity":    float64(a.Dexterity()),
		"intelligence": float64(a.Intelligence()),
		"combat":       float64(a.CombatSkill()),
		"x":            float64(t.X),
		"y":            float64(t.Y),
		"z":            float64(t.Z),
		"hour":         float64(s.env().Hour()),
		"time":         float64(s.now()),
		"foes":         float64(s.countFoes()),
	}
}

// countFoes counts the hostile actors in sight.
func (s *scripted) countFoes() int {
	a := s.npc
	n := 0
	for _, o := range s.env().ActorsNear(a.Tile(), 20) {
		if o != a && !o.IsDead() && a.EffectiveAlignment().Hostile(o.EffectiveAlignment()) &&
			straightPath(s.env(), a, o) {
			n++
		}
	}
	return n
}

// WhatNow implements npc.Schedule.
func (s *scripted) WhatNow() {
	params := s.params()
	for i, e := range s.conds {
		if e == nil {
			continue
		}
		v, err := e.Eval(params)
		if err != nil {
			log.Warningf(s.ctx(), "%s: %s: %v", s.b.Name, s.b.Rules[i].Cond, err)
			continue
		}
		if ok, _ := v.(bool); ok {
			s.run(s.b.Rules[i].Then)
			return
		}
	}
	s.run(s.b.Otherwise)
}

// run carries out a step. A schedule step replaces this schedule.
func (s *scripted) run(st Step) {
	a := s.npc
	s.fired = st.String()
	log.VEventf(s.ctx(), 2, "%s: %s", s.b.Name, st)
	switch st.Kind {
	case StepSchedule:
		t, ok := s.m.Lookup(st.Schedule)
		if !ok {
			log.Warningf(s.ctx(), "%s: unknown schedule %q", s.b.Name, st.Schedule)
			break
		}
		if t == s.typ {
			break
		}
		a.SetScheduleType(t)
		return
	case StepSay:
		a.Say(st.Text)
	case StepFlee:
		a.SetAttackMode(npc.Flee)
		a.SetScheduleType(npc.Combat)
		return
	case StepWait:
		a.Start(s.std(), st.N)
		return
	case StepUsecode:
		s.runScript(0, script.DontHalt, script.Usecode2, st.N, int(world.NPCProximity))
	case StepWalk:
		a.WalkToTile(a.Tile().Add(st.DX, st.DY, 0), s.std(), 0, 0)
		return
	}
	a.Start(s.std(), s.b.Poll)
}
