package task

import (
	"testing"
	"time"
)

func TestPoolCreateAssignsStableNonZeroIDs(t *testing.T) {
	p := NewPool(2)
	now := time.Now()

	a := p.Create(Send, now)
	if a == nil || a.ID == 0 {
		t.Fatal("Create() returned a nil task or zero id")
	}
	b := p.Create(Receive, now)
	if b == nil || b.ID == a.ID {
		t.Fatal("Create() did not assign a distinct id to the second task")
	}
}

func TestPoolCreateFailsWhenFull(t *testing.T) {
	p := NewPool(1)
	now := time.Now()

	if p.Create(Send, now) == nil {
		t.Fatal("first Create() unexpectedly failed")
	}
	if p.Create(Send, now) != nil {
		t.Fatal("Create() succeeded despite the pool being full")
	}
}

func TestPoolDestroyReleasesSlot(t *testing.T) {
	p := NewPool(1)
	now := time.Now()

	a := p.Create(Send, now)
	id := a.ID
	p.Destroy(a)

	if p.Get(id) != nil {
		t.Fatal("Get() still found a destroyed task")
	}
	if p.Create(Send, now) == nil {
		t.Fatal("Create() failed to reuse a destroyed slot")
	}
}

func TestPoolEachIsOrderStable(t *testing.T) {
	p := NewPool(3)
	now := time.Now()

	var order []ID
	for i := 0; i < 3; i++ {
		tk := p.Create(Receive, now)
		order = append(order, tk.ID)
	}

	var seen []ID
	p.Each(func(tk *Task) { seen = append(seen, tk.ID) })

	for i := range order {
		if seen[i] != order[i] {
			t.Fatalf("Each() visited tasks out of pool order: got %v, want %v", seen, order)
		}
	}
}

func TestScheduleListenWindowIsFinalExpAckEntryOnly(t *testing.T) {
	for i, off := range SNDExpAck.Offsets {
		want := i == SNDExpAck.Len()-1
		if SNDExpAck.IsListenWindow(i) != want {
			t.Errorf("IsListenWindow(%d) [offset %v] = %v, want %v", i, off, !want, want)
		}
	}
	for i := range SND.Offsets {
		if SND.IsListenWindow(i) {
			t.Errorf("SND schedule entry %d incorrectly treated as a listen window; SND has no listen window", i)
		}
	}
	for i := range SNDAck.Offsets {
		if SNDAck.IsListenWindow(i) {
			t.Errorf("SND_ACK schedule entry %d incorrectly treated as a listen window; the ACK must always transmit", i)
		}
	}
}

func TestTaskAdvanceScheduleReachesExhaustion(t *testing.T) {
	tk := &Task{RefTime: time.Now()}
	tk.ArmSchedule(SND)

	for i := 0; i < SND.Len()-1; i++ {
		if !tk.AdvanceSchedule() {
			t.Fatalf("AdvanceSchedule() reported exhausted too early at step %d", i)
		}
	}
	if tk.AdvanceSchedule() {
		t.Fatal("AdvanceSchedule() did not report exhaustion after the final entry")
	}
	if !tk.ScheduleExhausted() {
		t.Fatal("ScheduleExhausted() false after schedule ran out")
	}
}

func TestStateRequiresTimerSubscriptionInvariant(t *testing.T) {
	for _, s := range []State{Send, SendDone, ReceiveDataAvailable, ReceiveDataRetrieved, ReceiveTimedout} {
		if !s.RequiresTimerSubscription() {
			t.Errorf("%v must require a timer subscription", s)
		}
	}
	for _, s := range []State{Receive, Nothing, Finished} {
		if s.RequiresTimerSubscription() {
			t.Errorf("%v must not require a timer subscription", s)
		}
	}
}
