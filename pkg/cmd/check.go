package cmd

import (
	"context"
	"sort"

	"github.com/cockroachdb/cockroach/pkg/util/log"
	"github.com/cockroachdb/errors"
	"github.com/wonst719/exult-sub000/pkg/npc"
	"github.com/wonst719/exult-sub000/pkg/schedule"
	"github.com/wonst719/exult-sub000/pkg/world"
)

// check resolves the names used across sections once the whole
// scenario is known.
func (cfg *config) check(ctx context.Context) error {
	if cfg.world == nil {
		return errors.WithHint(errors.New("no world defined"),
			"add a section: world <W>x<H> ... end")
	}
	m := cfg.newMaker()

	for _, it := range cfg.world.items {
		if !cfg.world.contains(it.at) {
			return errors.Newf("item %s: position %s is outside of the world", it.name, it.at)
		}
	}

	for _, bn := range cfg.behaviorNames {
		b := cfg.behaviors[bn]
		steps := []schedule.Step{b.Otherwise}
		for _, r := range b.Rules {
			steps = append(steps, r.Then)
		}
		for _, s := range steps {
			if s.Kind != schedule.StepSchedule {
				continue
			}
			if _, ok := m.Lookup(s.Schedule); !ok {
				return cfg.unknownSchedule(errors.Newf("behavior %s: unknown schedule %q", bn, s.Schedule))
			}
		}
	}

	avatars := 0
	for _, an := range cfg.actorNames {
		a := cfg.actors[an]
		if !cfg.world.contains(a.at) {
			return errors.Newf("actor %s: position %s is outside of the world", an, a.at)
		}
		if _, ok := m.Lookup(a.schedName); !ok {
			return cfg.unknownSchedule(errors.Newf("actor %s: unknown schedule %q", an, a.schedName))
		}
		if a.leader != "" {
			if _, ok := cfg.actors[a.leader]; !ok {
				return explainAlternatives(
					errors.Newf("actor %s follows unknown actor %q", an, a.leader), "actors", cfg.actors)
			}
		}
		if a.avatar {
			avatars++
		}
	}
	if avatars > 1 {
		return errors.New("only one actor can be the avatar")
	}

	for _, sn := range cfg.scriptNames {
		sc := cfg.scripts[sn]
		if !cfg.isObject(sc.obj) {
			return errors.Wrapf(cfg.unknownObject(sc.obj), "script %s", sn)
		}
	}

	for _, c := range cfg.cues {
		if err := cfg.checkCue(m, c); err != nil {
			return errors.Wrapf(err, "cue %q", c.String())
		}
	}
	// Cues at the same time apply in definition order.
	sort.SliceStable(cfg.cues, func(i, j int) bool { return cfg.cues[i].at < cfg.cues[j].at })

	for _, an := range cfg.audienceNames {
		a := cfg.audience[an]
		if a.expectFsm == nil {
			return errors.WithHint(errors.Newf("auditor %s has no expectation", an),
				"add: <name> expects <modality>: <expr>")
		}
		for _, e := range []*expr{&a.activeCond, &a.expectExpr} {
			for v := range e.deps {
				if v.actorName == "" {
					continue
				}
				if _, ok := cfg.actors[v.actorName]; !ok {
					return explainAlternatives(
						errors.Newf("auditor %s: unknown actor %q", an, v.actorName), "actors", cfg.actors)
				}
			}
		}
	}

	log.Infof(ctx, "scenario: %d actors, %d behaviors, %d scripts, %d cues, %d auditors",
		len(cfg.actors), len(cfg.behaviors), len(cfg.scripts), len(cfg.cues), len(cfg.audience))
	return nil
}

func (cfg *config) checkCue(m *schedule.Maker, c *cue) error {
	switch c.verb {
	case cuePause, cueResume, cueStop:
		return nil
	case cueStart:
		if _, ok := cfg.scripts[c.subject]; !ok {
			return explainAlternatives(errors.Newf("unknown script %q", c.subject), "scripts", cfg.scripts)
		}
		return nil
	case cueRemove:
		if !cfg.isObject(c.subject) {
			return cfg.unknownObject(c.subject)
		}
		return nil
	}

	if _, ok := cfg.actors[c.subject]; !ok {
		return explainAlternatives(errors.Newf("unknown actor %q", c.subject), "actors", cfg.actors)
	}
	switch c.verb {
	case cueSchedule, cueWalk:
		t, ok := m.Lookup(c.arg)
		if !ok {
			return cfg.unknownSchedule(errors.Newf("unknown schedule %q", c.arg))
		}
		c.schedType = t
	case cueTarget:
		if !cfg.isObject(c.arg) {
			return cfg.unknownObject(c.arg)
		}
	case cueFlag, cueUnflag:
		f, ok := npc.ParseFlag(c.arg)
		if !ok {
			return errors.Newf("unknown flag %q", c.arg)
		}
		c.flag = f
	case cueMove:
		if !cfg.world.contains(c.tile) {
			return errors.Newf("position %s is outside of the world", c.tile)
		}
	}
	return nil
}

// newMaker returns a schedule maker knowing the scenario's behaviors.
// Classes are numbered in definition order.
func (cfg *config) newMaker() *schedule.Maker {
	m := schedule.NewMaker()
	for _, bn := range cfg.behaviorNames {
		m.Define(cfg.behaviors[bn])
	}
	return m
}

func (cfg *config) isObject(name string) bool {
	if _, ok := cfg.actors[name]; ok {
		return true
	}
	_, ok := cfg.world.itemNames[name]
	return ok
}

func (cfg *config) unknownObject(name string) error {
	var names []string
	names = append(names, cfg.actorNames...)
	for n := range cfg.world.itemNames {
		names = append(names, n)
	}
	return explainAlternativesList(errors.Newf("unknown object %q", name), "objects", names...)
}

func (cfg *config) unknownSchedule(err error) error {
	return explainAlternativesList(err, "schedules",
		append(npc.ScheduleNames(), cfg.behaviorNames...)...)
}

func (ws *worldSpec) contains(t world.Tile) bool {
	return t.X >= 0 && t.Y >= 0 && t.X < ws.w && t.Y < ws.h
}
