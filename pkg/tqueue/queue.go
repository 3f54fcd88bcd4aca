// Package tqueue implements the time queue driving every actor,
// action and script of the simulation.
package tqueue

import (
	"fmt"
	"strings"

	"github.com/google/btree"
)

// Time is a point on the game clock, in milliseconds.
type Time int64

// Task is something that can be scheduled on the queue.
//
// Tasks are used as map keys and must be comparable (in practice,
// pointers).
type Task interface {
	OnFire(now Time, udata interface{})
}

// AlwaysTask can be implemented by tasks that keep running while the
// queue is paused.
type AlwaysTask interface {
	Task
	Always() bool
}

func isAlways(t Task) bool {
	at, ok := t.(AlwaysTask)
	return ok && at.Always()
}

// entry is one scheduled activation. The sequence number makes the
// ordering total and gives FIFO order among entries with the same
// wake time.
type entry struct {
	time  Time
	seq   uint64
	task  Task
	udata interface{}
}

var _ btree.Item = (*entry)(nil)

// Less implements btree.Item.
func (e *entry) Less(than btree.Item) bool {
	o := than.(*entry)
	if e.time != o.time {
		return e.time < o.time
	}
	return e.seq < o.seq
}

// Queue is the time-ordered priority structure of scheduled
// resumptions. It is not safe for concurrent use: the simulation
// drives it from a single goroutine.
type Queue struct {
	tree *btree.BTree
	seq  uint64

	// byTask indexes the pending entries of each task.
	byTask map[Task][]*entry

	// now is the last time seen by Activate, Pause or Resume.
	now Time

	pauseCount int
	pauseTime  Time
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{
		tree:   btree.New(8),
		byTask: make(map[Task][]*entry),
	}
}

// Len returns the number of pending entries.
func (q *Queue) Len() int { return q.tree.Len() }

// Now returns the last time seen by the queue.
func (q *Queue) Now() Time { return q.now }

// Paused returns true while at least one Pause is not matched by a Resume.
func (q *Queue) Paused() bool { return q.pauseCount > 0 }

// Add schedules task to fire at time t with the given user data.
//
// When the queue is paused, the wake time of a regular task is moved
// back by the time elapsed since the pause, so that the shift applied
// by the final Resume lands it where the caller asked.
func (q *Queue) Add(t Time, task Task, udata interface{}) {
	if q.pauseCount > 0 && !isAlways(task) {
		t -= q.now - q.pauseTime
	}
	q.seq++
	e := &entry{time: t, seq: q.seq, task: task, udata: udata}
	q.tree.ReplaceOrInsert(e)
	q.byTask[task] = append(q.byTask[task], e)
}

// first returns the earliest pending entry for task, optionally
// restricted to the given user data.
func (q *Queue) first(task Task, matchData bool, udata interface{}) (int, *entry) {
	idx := -1
	var best *entry
	for i, e := range q.byTask[task] {
		if matchData && e.udata != udata {
			continue
		}
		if best == nil || e.Less(best) {
			idx, best = i, e
		}
	}
	return idx, best
}

func (q *Queue) unlink(idx int, e *entry) {
	q.tree.Delete(e)
	entries := q.byTask[e.task]
	copy(entries[idx:], entries[idx+1:])
	entries[len(entries)-1] = nil
	entries = entries[:len(entries)-1]
	if len(entries) == 0 {
		delete(q.byTask, e.task)
	} else {
		q.byTask[e.task] = entries
	}
}

// Remove removes the earliest entry for task. It returns false if
// there was no such entry; calling it on an absent task is harmless.
func (q *Queue) Remove(task Task) bool {
	idx, e := q.first(task, false, nil)
	if e == nil {
		return false
	}
	q.unlink(idx, e)
	return true
}

// RemoveData removes the earliest entry for task carrying udata.
func (q *Queue) RemoveData(task Task, udata interface{}) bool {
	idx, e := q.first(task, true, udata)
	if e == nil {
		return false
	}
	q.unlink(idx, e)
	return true
}

// RemoveAll removes every entry for task and returns how many were removed.
func (q *Queue) RemoveAll(task Task) int {
	entries := q.byTask[task]
	for _, e := range entries {
		q.tree.Delete(e)
	}
	delete(q.byTask, task)
	return len(entries)
}

// Find returns true if task has at least one pending entry.
func (q *Queue) Find(task Task) bool {
	return len(q.byTask[task]) > 0
}

// FindDelay returns the time remaining before the earliest entry
// for task fires, or -1 if the task is not queued. While paused the
// delay is measured from the pause time. The result is never negative
// for a queued task.
func (q *Queue) FindDelay(task Task, now Time) Time {
	_, e := q.first(task, false, nil)
	if e == nil {
		return -1
	}
	if q.pauseCount > 0 && !isAlways(task) {
		now = q.pauseTime
	}
	if d := e.time - now; d > 0 {
		return d
	}
	return 0
}

// NextTime returns the wake time of the earliest entry.
func (q *Queue) NextTime() (Time, bool) {
	m := q.tree.Min()
	if m == nil {
		return 0, false
	}
	return m.(*entry).time, true
}

// Pause suspends the regular tasks. Pauses nest.
func (q *Queue) Pause(now Time) {
	q.now = now
	if q.pauseCount == 0 {
		q.pauseTime = now
	}
	q.pauseCount++
}

// Resume undoes one Pause. The outermost Resume pushes every regular
// entry ahead by the paused duration.
func (q *Queue) Resume(now Time) {
	q.now = now
	if q.pauseCount == 0 {
		return
	}
	q.pauseCount--
	if q.pauseCount > 0 {
		return
	}
	diff := now - q.pauseTime
	q.pauseTime = 0
	if diff <= 0 {
		return
	}
	// Keys change, so the tree is rebuilt. Sequence numbers are kept,
	// which preserves the relative order of equal-time entries.
	var all []*entry
	q.tree.Ascend(func(i btree.Item) bool {
		all = append(all, i.(*entry))
		return true
	})
	q.tree.Clear(false)
	for _, e := range all {
		if !isAlways(e.task) {
			e.time += diff
		}
		q.tree.ReplaceOrInsert(e)
	}
}

// Activate fires every entry due at now, in (time, insertion) order.
// Entries added by a firing task that are already due fire within the
// same call. While paused, only always-running tasks fire; the others
// stay queued until the queue is resumed.
// Activate returns the number of entries fired.
func (q *Queue) Activate(now Time) int {
	q.now = now
	fired := 0
	if q.pauseCount > 0 {
		for {
			var due *entry
			q.tree.Ascend(func(i btree.Item) bool {
				e := i.(*entry)
				if e.time > now {
					return false
				}
				if isAlways(e.task) {
					due = e
					return false
				}
				return true
			})
			if due == nil {
				return fired
			}
			q.fire(due, now)
			fired++
		}
	}
	for {
		m := q.tree.Min()
		if m == nil || m.(*entry).time > now {
			return fired
		}
		q.fire(m.(*entry), now)
		fired++
	}
}

func (q *Queue) fire(e *entry, now Time) {
	for i, o := range q.byTask[e.task] {
		if o == e {
			q.unlink(i, e)
			break
		}
	}
	e.task.OnFire(now, e.udata)
}

// Clear removes every entry.
func (q *Queue) Clear() {
	q.tree.Clear(false)
	q.byTask = make(map[Task][]*entry)
}

// String renders the pending entries, earliest first.
func (q *Queue) String() string {
	var buf strings.Builder
	comma := ""
	q.tree.Ascend(func(i btree.Item) bool {
		e := i.(*entry)
		fmt.Fprintf(&buf, "%s%d:%v", comma, e.time, e.task)
		comma = " "
		return true
	})
	return buf.String()
}
