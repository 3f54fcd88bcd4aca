package cmd

import (
	"context"

	"github.com/cockroachdb/cockroach/pkg/util/log"
	"github.com/cockroachdb/errors"
	"github.com/wonst719/exult-sub000/pkg/tqueue"
)

// audienceMember is an auditor: a condition checked at every tick
// under a temporal modality, optionally only while another condition
// holds.
type audienceMember struct {
	name string
	// activeCond is empty when the auditor audits throughout.
	activeCond expr
	expectFsm  *fsm
	expectExpr expr
}

func (cfg *config) addOrGetAudienceMember(name string) *audienceMember {
	if a, ok := cfg.audience[name]; ok {
		return a
	}
	a := &audienceMember{name: name}
	cfg.audience[name] = a
	cfg.audienceNames = append(cfg.audienceNames, name)
	return a
}

// counting modalities count episodes: they see "t" only when the
// condition becomes true, not for as long as it stays true.
func (f *fsm) counting() bool {
	return f == onceFsm || f == twiceFsm || f == thriceFsm || f == atMostOnceFsm
}

var errAuditViolation = errors.New("audit violation")

// auditViolation describes one audit failure.
type auditViolation struct {
	at          tqueue.Time
	auditorName string
	// state is the automaton state at the point of failure.
	state string
	// final is set for failures detected at the end of the
	// simulation or of an audit period.
	final bool
}

type auditorState struct {
	eval fsmEval
	// active is whether the activation condition held at the last tick.
	active bool
	// last is the value of the expectation at the last tick.
	last bool
	// failed is set while the automaton sits in a failure state.
	failed bool
	evals int
}

// audition checks the observations against the audience.
type audition struct {
	cfg    *config
	logger *log.SecondaryLogger

	states     map[string]*auditorState
	violations []auditViolation
}

func newAudition(cfg *config) *audition {
	au := &audition{cfg: cfg, states: make(map[string]*auditorState)}
	for _, an := range cfg.audienceNames {
		a := cfg.audience[an]
		au.states[an] = &auditorState{eval: makeFsmEval(a.expectFsm)}
	}
	return au
}

// observe feeds one tick to every auditor. It returns
// errAuditViolation on a new failure when the simulation should stop
// at the first one.
func (au *audition) observe(ctx context.Context, obs *observation) error {
	vars := obs.vars()
	var newFailure bool
	for _, an := range au.cfg.audienceNames {
		a := au.cfg.audience[an]
		st := au.states[an]

		active := true
		if a.activeCond.compiled != nil {
			var err error
			active, err = a.activeCond.evalBool(vars)
			if err != nil {
				return errors.Wrapf(err, "auditor %s", an)
			}
		}
		if !active {
			if st.active {
				// The audit period ends: conclude, then start over.
				newFailure = au.advance(ctx, a, st, obs.at, "end", true) || newFailure
				au.advance(ctx, a, st, obs.at, "reset", false)
				st.last = false
			}
			st.active = false
			continue
		}
		st.active = true

		val, err := a.expectExpr.evalBool(vars)
		if err != nil {
			return errors.Wrapf(err, "auditor %s", an)
		}
		st.evals++
		label := "f"
		if val && (!a.expectFsm.counting() || !st.last) {
			label = "t"
		}
		st.last = val
		newFailure = au.advance(ctx, a, st, obs.at, label, false) || newFailure
	}
	if newFailure && au.cfg.earlyExit {
		return errAuditViolation
	}
	return nil
}

// advance moves one automaton and reports whether it entered a
// failure state.
func (au *audition) advance(
	ctx context.Context, a *audienceMember, st *auditorState, at tqueue.Time, label string, final bool,
) bool {
	prev := st.eval.state()
	st.eval.advance(label)
	cur := st.eval.state()
	if cur != prev && au.logger != nil {
		au.logger.Logf(ctx, "%d %s: %s -(%s)-> %s", at, a.name, prev, label, cur)
	}
	if cur != "bad" {
		st.failed = false
		return false
	}
	if st.failed {
		return false
	}
	st.failed = true
	au.violations = append(au.violations, auditViolation{
		at: at, auditorName: a.name, state: prev, final: final,
	})
	log.Infof(ctx, "auditor %s dissatisfied at %d (was %s)", a.name, at, prev)
	return true
}

// checkFinal concludes every auditor still active at the end of the
// simulation.
func (au *audition) checkFinal(ctx context.Context, at tqueue.Time) error {
	for _, an := range au.cfg.audienceNames {
		st := au.states[an]
		if !st.active {
			continue
		}
		au.advance(ctx, au.cfg.audience[an], st, at, "end", true)
	}
	if len(au.violations) > 0 {
		return errors.WithDetailf(errAuditViolation, "%d violations", len(au.violations))
	}
	return nil
}

// verdict summarizes an auditor for the final report.
func (au *audition) verdict(name string) string {
	st := au.states[name]
	if st.evals == 0 {
		return "never active"
	}
	n := 0
	for _, v := range au.violations {
		if v.auditorName == name {
			n++
		}
	}
	if n > 0 {
		return "dissatisfied"
	}
	return st.eval.state()
}
