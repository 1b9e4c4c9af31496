package task

import (
	"time"

	"github.com/gorflink/rflink/protocol"
)

// ID is a non-zero, monotonically increasing task identifier, stable for
// the lifetime of the task.
type ID uint16

// RXConfig narrows a receive request. Each field is independently
// present/absent, mirroring the original's bitfield-guarded RXConfig.
type RXConfig struct {
	HasSender bool
	Sender    protocol.Address

	HasTimeout bool
	Timeout    time.Duration

	Callback func(result protocol.Result, payload []byte, sender protocol.Address)
}

// Task is one in-flight send or receive activity: its state, its owned
// packet buffer, its retransmission schedule cursor, its event
// subscriptions, and its terminal return code.
type Task struct {
	ID    ID
	State State

	Buffer *protocol.Buffer

	// RefTime is when the task was created or entered its current
	// waiting state; schedule offsets are relative to it.
	RefTime time.Time
	// Deadline is the absolute wake-up time for the timer subscription.
	Deadline time.Time

	LastRetcode byte

	Schedule       Schedule
	ScheduleCursor int
	TransmitCount  int

	SubscribedTimer bool
	SubscribedFrame bool

	IsAck          bool
	NeedAck        bool
	HasReceivedAck bool
	Unattended     bool

	// AckOwed records that the last delivered frame had SIN set and has not
	// yet been acked; DataRetrieve consults it to create the ack task at the
	// DATA_AVAILABLE -> DATA_RETRIEVED transition, not at delivery.
	AckOwed bool

	FilterSender    bool
	FilterSenderVal protocol.Address

	RXConfig RXConfig

	// FinalStatus is the send-side or receive-side terminal result,
	// populated when the task reaches a state from which the public API
	// can report a final outcome.
	FinalStatus protocol.Result
}

// reset clears a Task back to its zero, Nothing-state value so a pool slot
// can be reused without leaking a previous activity's buffer or config.
func (t *Task) reset() {
	id := t.ID
	*t = Task{ID: id, State: Nothing}
}

// init prepares a freshly claimed slot for a new activity.
func (t *Task) init(state State, now time.Time) {
	t.State = state
	t.Buffer = protocol.NewBuffer()
	t.RefTime = now
	t.ScheduleCursor = 0
	t.TransmitCount = 0
	t.LastRetcode = 0
	t.HasReceivedAck = false
}

// ArmSchedule attaches a retransmission schedule to the task and computes
// the first deadline.
func (t *Task) ArmSchedule(s Schedule) {
	t.Schedule = s
	t.ScheduleCursor = 0
	t.SubscribedTimer = true
	t.Deadline = t.RefTime.Add(s.At(0))
}

// ScheduleExhausted reports whether the task's schedule has been fully
// consumed.
func (t *Task) ScheduleExhausted() bool {
	return t.Schedule.Exhausted(t.ScheduleCursor)
}

// AtListenWindow reports whether the task's current schedule cursor points
// at the schedule's non-transmitting final entry.
func (t *Task) AtListenWindow() bool {
	return t.Schedule.IsListenWindow(t.ScheduleCursor)
}

// AdvanceSchedule moves the cursor forward one entry and, if entries
// remain, recomputes the deadline. Returns false once exhausted.
func (t *Task) AdvanceSchedule() bool {
	t.ScheduleCursor++
	if t.Schedule.Exhausted(t.ScheduleCursor) {
		return false
	}
	t.Deadline = t.RefTime.Add(t.Schedule.At(t.ScheduleCursor))
	return true
}
