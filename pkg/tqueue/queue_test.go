package tqueue

import (
	"fmt"
	"strings"
	"testing"
)

type recorder struct {
	name   string
	always bool
	log    *[]string
	onFire func(now Time)
}

func (r *recorder) OnFire(now Time, udata interface{}) {
	*r.log = append(*r.log, fmt.Sprintf("%s@%d/%v", r.name, now, udata))
	if r.onFire != nil {
		r.onFire(now)
	}
}

func (r *recorder) Always() bool { return r.always }

func (r *recorder) String() string { return r.name }

func TestFIFOAtEqualTime(t *testing.T) {
	var log []string
	q := New()
	for _, n := range []string{"a", "b", "c", "d", "e"} {
		q.Add(100, &recorder{name: n, log: &log}, nil)
	}
	// An earlier entry added last must still fire first.
	q.Add(50, &recorder{name: "z", log: &log}, nil)
	if n := q.Activate(100); n != 6 {
		t.Fatalf("expected 6 activations, got %d", n)
	}
	got := strings.Join(log, " ")
	const exp = "z@100/<nil> a@100/<nil> b@100/<nil> c@100/<nil> d@100/<nil> e@100/<nil>"
	if got != exp {
		t.Errorf("expected:\n%s\ngot:\n%s", exp, got)
	}
}

func TestRemoveThenReAdd(t *testing.T) {
	var log []string
	q := New()
	a := &recorder{name: "a", log: &log}
	b := &recorder{name: "b", log: &log}
	q.Add(10, a, nil)
	q.Add(10, b, nil)
	if !q.Remove(a) {
		t.Fatal("expected a to be removed")
	}
	// Idempotent when absent.
	if q.Remove(a) {
		t.Fatal("expected second removal to report false")
	}
	q.Add(10, a, nil)
	q.Activate(10)
	if got := strings.Join(log, " "); got != "b@10/<nil> a@10/<nil>" {
		t.Errorf("unexpected order: %s", got)
	}
}

func TestRemoveData(t *testing.T) {
	var log []string
	q := New()
	a := &recorder{name: "a", log: &log}
	q.Add(10, a, 1)
	q.Add(20, a, 2)
	q.Add(30, a, 3)
	if !q.RemoveData(a, 2) {
		t.Fatal("expected removal")
	}
	if q.RemoveData(a, 2) {
		t.Fatal("expected no second removal")
	}
	q.Activate(100)
	if got := strings.Join(log, " "); got != "a@100/1 a@100/3" {
		t.Errorf("unexpected: %s", got)
	}
	if q.Find(a) {
		t.Error("expected task to be gone")
	}
}

func TestFindDelay(t *testing.T) {
	var log []string
	q := New()
	a := &recorder{name: "a", log: &log}
	b := &recorder{name: "b", log: &log}
	testData := []struct {
		task Task
		now  Time
		exp  Time
	}{
		{a, 0, 300},
		{a, 250, 50},
		{a, 400, 0},
		{b, 0, -1},
	}
	q.Add(300, a, nil)
	for _, test := range testData {
		t.Run(fmt.Sprintf("%v/%d", test.task, test.now), func(t *testing.T) {
			if d := q.FindDelay(test.task, test.now); d != test.exp {
				t.Errorf("expected %d, got %d", test.exp, d)
			}
		})
	}
}

func TestPauseResume(t *testing.T) {
	var log []string
	q := New()
	regular := &recorder{name: "r", log: &log}
	always := &recorder{name: "s", always: true, log: &log}
	q.Add(100, regular, nil)
	q.Add(100, always, nil)

	q.Pause(50)
	q.Pause(60) // nested
	if q.FindDelay(regular, 90) != 50 {
		t.Errorf("expected delay measured from pause time, got %d", q.FindDelay(regular, 90))
	}
	q.Activate(150)
	if got := strings.Join(log, " "); got != "s@150/<nil>" {
		t.Fatalf("only the always task should fire while paused, got %s", got)
	}
	// Added while paused: must still land at 200 once resumed.
	late := &recorder{name: "l", log: &log}
	q.Add(200, late, nil)

	q.Resume(140)
	if !q.Paused() {
		t.Fatal("inner resume must keep the queue paused")
	}
	q.Resume(150)
	if q.Paused() {
		t.Fatal("expected queue to be running")
	}
	// The regular entry was pushed from 100 to 200.
	if d := q.FindDelay(regular, 150); d != 50 {
		t.Errorf("expected 50, got %d", d)
	}
	if d := q.FindDelay(late, 150); d != 50 {
		t.Errorf("expected 50, got %d", d)
	}
	q.Activate(200)
	if got := strings.Join(log, " "); got != "s@150/<nil> r@200/<nil> l@200/<nil>" {
		t.Errorf("unexpected: %s", got)
	}
}

func TestActivateReentrant(t *testing.T) {
	var log []string
	q := New()
	var a *recorder
	count := 0
	a = &recorder{name: "a", log: &log, onFire: func(now Time) {
		count++
		if count < 3 {
			q.Add(now, a, count)
		} else {
			q.Add(now+10, a, count)
		}
	}}
	q.Add(0, a, 0)
	if n := q.Activate(0); n != 3 {
		t.Errorf("expected 3 activations, got %d", n)
	}
	if q.Len() != 1 {
		t.Errorf("expected one pending entry, got %d", q.Len())
	}
	if next, ok := q.NextTime(); !ok || next != 10 {
		t.Errorf("expected next time 10, got %d (%v)", next, ok)
	}
	if s := q.String(); s != "10:a" {
		t.Errorf("unexpected queue rendering: %q", s)
	}
}
