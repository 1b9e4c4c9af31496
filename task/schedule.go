package task

import "time"

// Schedule is a compile-time-fixed time grid: absolute offsets in
// milliseconds from a task's reference timestamp (NOT cumulative) at which
// the engine should either transmit or, for the reserved listen-window
// entry of an ACK-expecting schedule, simply wait. ListenIndex is the
// index of the one entry (if any) that gates the transition to SEND_DONE
// without transmitting; -1 means every entry transmits.
type Schedule struct {
	Offsets     []time.Duration
	ListenIndex int
}

// SND is used for sends that do not request an ACK: every entry transmits.
var SND = Schedule{
	Offsets: []time.Duration{
		0,
		200 * time.Millisecond,
		550 * time.Millisecond,
		900 * time.Millisecond,
	},
	ListenIndex: -1,
}

// SNDExpAck is used for sends that request an ACK. Its final entry (900ms)
// is a listen window: no transmit happens at that tick; it only gates the
// transition to SEND_DONE so a late ACK can still close the task before the
// schedule is declared exhausted.
var SNDExpAck = Schedule{
	Offsets: []time.Duration{
		0,
		100 * time.Millisecond,
		450 * time.Millisecond,
		800 * time.Millisecond,
		900 * time.Millisecond, // listen window: no transmit at this offset
	},
	ListenIndex: 4,
}

// SNDAck is used to send a single ACK frame; its one entry always
// transmits.
var SNDAck = Schedule{
	Offsets:     []time.Duration{0},
	ListenIndex: -1,
}

// Len returns the number of entries in the schedule.
func (s Schedule) Len() int { return len(s.Offsets) }

// IsListenWindow reports whether entry i is the schedule's reserved
// non-transmitting listen window.
func (s Schedule) IsListenWindow(i int) bool {
	return s.ListenIndex >= 0 && i == s.ListenIndex
}

// Exhausted reports whether cursor has consumed every entry of s.
func (s Schedule) Exhausted(cursor int) bool {
	return cursor >= len(s.Offsets)
}

// At returns the offset at index i.
func (s Schedule) At(i int) time.Duration {
	return s.Offsets[i]
}
