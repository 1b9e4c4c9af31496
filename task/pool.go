package task

import "time"

// Pool is a bounded collection of tasks with O(n) lookup by task-id.
// Creation returns a stable identifier; destruction releases the slot for
// reuse. The fixed array (rather than an intrusive linked list) trades a
// few bytes of unused slot space for predictable memory on a
// microcontroller and the removal of an entire allocation-failure mode.
type Pool struct {
	slots  []Task
	lastID ID
}

// NewPool returns a Pool bounded at capacity slots.
func NewPool(capacity int) *Pool {
	p := &Pool{slots: make([]Task, capacity)}
	for i := range p.slots {
		p.slots[i].State = Nothing
	}
	return p
}

// Len returns the pool's fixed capacity.
func (p *Pool) Len() int { return len(p.slots) }

// Create claims a free slot, initializes it as a new activity in the given
// state, and returns its Task pointer. Returns nil if the pool is full.
func (p *Pool) Create(state State, now time.Time) *Task {
	for i := range p.slots {
		if p.slots[i].State == Nothing {
			p.lastID++
			if p.lastID == 0 {
				p.lastID = 1 // task-id is non-zero
			}
			p.slots[i].ID = p.lastID
			p.slots[i].init(state, now)
			return &p.slots[i]
		}
	}
	return nil
}

// Get looks up a task by id, scanning in pool order. Returns nil if no
// live task has that id.
func (p *Pool) Get(id ID) *Task {
	for i := range p.slots {
		if p.slots[i].State != Nothing && p.slots[i].ID == id {
			return &p.slots[i]
		}
	}
	return nil
}

// Destroy returns t's slot to the pool.
func (p *Pool) Destroy(t *Task) {
	t.reset()
}

// Each calls fn once per live (non-Nothing) task, in pool order. fn may
// mutate the task in place; it must not attempt to destroy or create tasks
// (that would invalidate iteration order for tie-breaking purposes).
func (p *Pool) Each(fn func(t *Task)) {
	for i := range p.slots {
		if p.slots[i].State != Nothing {
			fn(&p.slots[i])
		}
	}
}

// CountLiveExcept returns the number of tasks not in the Nothing state,
// excluding the task at the given id, used by the sleep-eligibility
// predicate.
func (p *Pool) CountLiveExcept(id ID) int {
	n := 0
	for i := range p.slots {
		if p.slots[i].State != Nothing && p.slots[i].ID != id {
			n++
		}
	}
	return n
}
