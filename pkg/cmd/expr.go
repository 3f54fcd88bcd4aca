package cmd

import (
	"fmt"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/cockroachdb/errors"
)

// varName identifies a variable of an audience expression: either a
// global like "t", or the signal of an actor written [actor signal].
type varName struct {
	actorName string
	sigName   string
}

func (v varName) String() string {
	if v.actorName == "" {
		return v.sigName
	}
	return fmt.Sprintf("[%s %s]", v.actorName, v.sigName)
}

// key is how the variable is known to govaluate.
func (v varName) key() string {
	if v.actorName == "" {
		return v.sigName
	}
	return v.actorName + " " + v.sigName
}

// globalSignals are the variables not attached to an actor.
var globalSignals = []string{"t", "hour", "paused"}

// actorSignals are the observations made on every actor at every tick.
var actorSignals = []string{
	"schedule", "state", "health", "x", "y", "z",
	"dead", "asleep", "paralyzed", "strikes", "switches",
}

func isSignal(list []string, name string) bool {
	for _, s := range list {
		if s == name {
			return true
		}
	}
	return false
}

// expr is a boolean expression used in expects and audits clauses.
type expr struct {
	src      string
	compiled *govaluate.EvaluableExpression
	deps     map[varName]struct{}
}

// compileExpr validates and compiles a govaluate expression, and
// extracts its variable dependencies. Actor names are checked later,
// once the whole cast is known.
func compileExpr(src string) (expr, error) {
	compiled, err := govaluate.NewEvaluableExpressionWithFunctions(src, evalFunctions)
	if err != nil {
		return expr{}, errors.Wrapf(err, "in %q", src)
	}
	e := expr{src: src, compiled: compiled, deps: make(map[varName]struct{})}
	for _, v := range compiled.Vars() {
		parts := strings.Fields(v)
		switch len(parts) {
		case 1:
			if strings.Contains(v, ".") {
				// Common mistake: a.b when [a b] was meant.
				return expr{}, errors.WithHintf(
					errors.Newf("invalid syntax: %q", v),
					"try [%s]", strings.Replace(v, ".", " ", -1))
			}
			if !isSignal(globalSignals, v) {
				return expr{}, explainAlternativesList(
					errors.Newf("variable not defined: %q", v), "variables", globalSignals...)
			}
			e.deps[varName{sigName: v}] = struct{}{}
		case 2:
			if err := checkIdents(parts[0], parts[1]); err != nil {
				return expr{}, err
			}
			if !isSignal(actorSignals, parts[1]) {
				return expr{}, explainAlternativesList(
					errors.Newf("unknown signal: %q", parts[1]), "signals", actorSignals...)
			}
			e.deps[varName{actorName: parts[0], sigName: parts[1]}] = struct{}{}
		default:
			return expr{}, errors.WithHint(
				errors.Newf("invalid signal reference: %q", v), "use [actor signal]")
		}
	}
	return e, nil
}

// evalBool evaluates a condition. Non-boolean results are errors.
func (e *expr) evalBool(vars map[string]interface{}) (bool, error) {
	v, err := e.compiled.Eval(govaluate.MapParameters(vars))
	if err != nil {
		return false, errors.Wrapf(err, "evaluating %q", e.src)
	}
	b, ok := v.(bool)
	if !ok {
		return false, errors.Newf("%q: expected a boolean, got %T", e.src, v)
	}
	return b, nil
}
