// Package schedule provides a priority-ordered queue of time-stamped
// payloads. Entries sort by ascending tick, then descending priority, then
// insertion order, so equal-time equal-priority entries stay stable.
package schedule

import "sort"

// DefaultPriority is used when a caller has no ordering preference.
// Priorities range 0-10; higher is serviced first at equal time.
const DefaultPriority = 5

// EventID identifies a scheduled entry. IDs are unique per queue and never
// reused.
type EventID int64

// Event is the read-only view handed back to callers. The queue owns the
// underlying entries.
type Event[T any] struct {
	ID       EventID
	Tick     float64
	Priority int
	Payload  T
}

type entry[T any] struct {
	Event[T]
	seq uint64
}

// Queue keeps scheduled events ordered. The zero value is not ready; use New.
type Queue[T any] struct {
	entries []entry[T]
	nextID  EventID
	nextSeq uint64
}

// New returns an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{nextID: 1}
}

// Schedule inserts a payload at the given tick and returns its identity.
// Priority is clamped to 0-10.
func (q *Queue[T]) Schedule(tick float64, payload T, priority int) EventID {
	if priority < 0 {
		priority = 0
	}
	if priority > 10 {
		priority = 10
	}
	id := q.nextID
	q.nextID++
	q.insert(entry[T]{
		Event: Event[T]{ID: id, Tick: tick, Priority: priority, Payload: payload},
		seq:   q.nextSeq,
	})
	q.nextSeq++
	return id
}

func (q *Queue[T]) insert(e entry[T]) {
	// Binary search for the insertion point that keeps (tick asc, priority
	// desc, seq asc) ordering; ties on all keys cannot happen since seq is
	// unique.
	i := sort.Search(len(q.entries), func(i int) bool {
		c := &q.entries[i]
		if c.Tick != e.Tick {
			return c.Tick > e.Tick
		}
		if c.Priority != e.Priority {
			return c.Priority < e.Priority
		}
		return c.seq > e.seq
	})
	q.entries = append(q.entries, entry[T]{})
	copy(q.entries[i+1:], q.entries[i:])
	q.entries[i] = e
}

// Cancel removes the entry with the given identity. It reports whether the
// entry existed.
func (q *Queue[T]) Cancel(id EventID) bool {
	for i := range q.entries {
		if q.entries[i].ID == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Reschedule moves an entry to a new tick, keeping its identity and
// priority. It reports whether the entry existed.
func (q *Queue[T]) Reschedule(id EventID, newTick float64) bool {
	for i := range q.entries {
		if q.entries[i].ID == id {
			e := q.entries[i]
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			e.Tick = newTick
			e.seq = q.nextSeq
			q.nextSeq++
			q.insert(e)
			return true
		}
	}
	return false
}

// EventsInRange returns entries with start <= tick < end, in queue order,
// without removing them.
func (q *Queue[T]) EventsInRange(start, end float64) []Event[T] {
	var out []Event[T]
	for i := range q.entries {
		if q.entries[i].Tick >= end {
			break
		}
		if q.entries[i].Tick >= start {
			out = append(out, q.entries[i].Event)
		}
	}
	return out
}

// PopUntil removes and returns, in order, all entries with tick <= the given
// tick. The inclusive bound differs deliberately from EventsInRange's
// exclusive end: lookahead pops must drain events landing exactly on the
// window edge.
func (q *Queue[T]) PopUntil(tick float64) []Event[T] {
	n := 0
	for n < len(q.entries) && q.entries[n].Tick <= tick {
		n++
	}
	if n == 0 {
		return nil
	}
	out := make([]Event[T], n)
	for i := 0; i < n; i++ {
		out[i] = q.entries[i].Event
	}
	q.entries = append(q.entries[:0], q.entries[n:]...)
	return out
}

// Len returns the number of pending entries.
func (q *Queue[T]) Len() int { return len(q.entries) }

// Clear discards all entries without firing any cancellation side effects.
func (q *Queue[T]) Clear() { q.entries = q.entries[:0] }

// Pending returns read-only views of all entries in queue order.
func (q *Queue[T]) Pending() []Event[T] {
	out := make([]Event[T], len(q.entries))
	for i := range q.entries {
		out[i] = q.entries[i].Event
	}
	return out
}
