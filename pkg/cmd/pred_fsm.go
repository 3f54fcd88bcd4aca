package cmd

import (
	"fmt"
	"io"
	"strings"
)

// fsm is a temporal modality: a small automaton fed with "t" or "f"
// for every evaluation of a condition, then "end" at the end of the
// simulation. The modality is violated when it ends in state "bad".
type fsm struct {
	name       string
	startState int
	edges      [][]int
	stateNames []string
	labels     []string
}

var fsmLabels = []string{"t", "f", "end", "reset"}

// defineFsm builds an automaton from its transition matrix. Each row
// names a state, then the states reached for each of fsmLabels. The
// start state is marked with a star.
func defineFsm(name string, rows ...string) *fsm {
	f := &fsm{name: name, labels: fsmLabels}
	idx := make(map[string]int)
	var targets [][]string
	for i, row := range rows {
		cols := strings.Fields(row)
		if len(cols) != len(fsmLabels)+1 {
			panic(fmt.Sprintf("%s: row %q: expected %d columns", name, row, len(fsmLabels)+1))
		}
		st := cols[0]
		if strings.HasSuffix(st, "*") {
			st = strings.TrimSuffix(st, "*")
			f.startState = i
		}
		idx[st] = i
		f.stateNames = append(f.stateNames, st)
		targets = append(targets, cols[1:])
	}
	for _, row := range targets {
		edges := make([]int, len(row))
		for j, t := range row {
			n, ok := idx[t]
			if !ok {
				panic(fmt.Sprintf("%s: unknown state %q", name, t))
			}
			edges[j] = n
		}
		f.edges = append(f.edges, edges)
	}
	return f
}

type fsmEval struct {
	curState int
	fsm      *fsm
}

func makeFsmEval(f *fsm) fsmEval {
	return fsmEval{curState: f.startState, fsm: f}
}

func (e *fsmEval) state() string {
	return e.fsm.stateNames[e.curState]
}

func (e *fsmEval) advance(label string) {
	for i, l := range e.fsm.labels {
		if l == label {
			e.curState = e.fsm.edges[e.curState][i]
			return
		}
	}
	panic(fmt.Sprintf("label not defined: %q", label))
}

var alwaysFsm = defineFsm("always",
	"checking* checking bad      good     checking",
	"good      good     good     good     checking",
	"bad       bad      bad      bad      checking")

var neverFsm = defineFsm("never",
	"checking* checking good     bad      checking",
	"bad       bad      bad      bad      checking",
	"good      good     good     good     checking")

var notAlwaysFsm = defineFsm("not always",
	"start* start good  bad   start",
	"good   good  good  good  start",
	"bad    bad   bad   bad   start")

var eventuallyFsm = defineFsm("eventually",
	"checking* good     checking bad      checking",
	"good      good     good     good     checking",
	"bad       bad      bad      bad      checking")

var eventuallyAlwaysFsm = defineFsm("eventually always",
	"start* good  start bad   start",
	"good   good  bad   good  start",
	"bad    bad   bad   bad   start")

var alwaysEventuallyFsm = defineFsm("always eventually",
	"start*     activated start     bad       start",
	"activated  activated start     good      start",
	"good       good      good      good      start",
	"bad        bad       bad       bad       start")

var onceFsm = defineFsm("once",
	"notyet* good   notyet bad    notyet",
	"good    bad    good   good   good",
	"bad     bad    bad    bad    good")

var twiceFsm = defineFsm("twice",
	"notyet* once   notyet bad    notyet",
	"once    good   once   bad    notyet",
	"good    bad    good   good   notyet",
	"bad     bad    bad    bad    good")

var thriceFsm = defineFsm("thrice",
	"notyet* once   notyet bad    notyet",
	"once    twice  once   bad    notyet",
	"twice   good   twice  bad    notyet",
	"good    bad    good   good   notyet",
	"bad     bad    bad    bad    good")

var atMostOnceFsm = defineFsm("at most once",
	"notyet* once   notyet good   notyet",
	"once    bad    once   good   notyet",
	"good    good   good   good   notyet",
	"bad     bad    bad    bad    once")

var automata = func() map[string]*fsm {
	r := make(map[string]*fsm)
	for _, f := range []*fsm{
		alwaysFsm, neverFsm, notAlwaysFsm, eventuallyFsm, eventuallyAlwaysFsm,
		alwaysEventuallyFsm, onceFsm, twiceFsm, thriceFsm, atMostOnceFsm,
	} {
		r[f.name] = f
	}
	return r
}()

// printMatrix prints the transition matrix in the form accepted by
// defineFsm, under a header of labels.
func (f *fsm) printMatrix(w io.Writer) {
	colWidth := 0
	for _, s := range f.stateNames {
		if colWidth < len(s) {
			colWidth = len(s)
		}
	}
	for _, l := range f.labels {
		if colWidth < len(l) {
			colWidth = len(l)
		}
	}
	row := func(first string, cols []string) {
		fmt.Fprintf(w, "%-*s", colWidth+1, first)
		for i, c := range cols {
			if i < len(cols)-1 {
				fmt.Fprintf(w, " %-*s", colWidth, c)
			} else {
				fmt.Fprintf(w, " %s", c)
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "#", f.name)
	row("", f.labels)
	for s, name := range f.stateNames {
		if f.startState == s {
			name += "*"
		}
		next := make([]string, len(f.edges[s]))
		for i, ns := range f.edges[s] {
			next[i] = f.stateNames[ns]
		}
		row(name, next)
	}
}
