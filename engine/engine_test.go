package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gorflink/rflink/driver/stub"
	"github.com/gorflink/rflink/engine"
	"github.com/gorflink/rflink/protocol"
	"github.com/gorflink/rflink/task"
)

// fakeClock is a deterministic transport.Platform for driving the engine's
// event pump one simulated tick at a time, the same way the stub driver's
// Connect pair drives transport-layer tests without real wall-clock delay.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(1_700_000_000, 0)} }

func (c *fakeClock) Now() time.Time       { return c.now }
func (c *fakeClock) Sleep()               {}
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// pair bundles two connected engines over a pair of connected stub drivers,
// with distinct addresses already configured.
type pair struct {
	clock *fakeClock
	a, b  *engine.Engine
}

func newPair(t *testing.T, addrA, addrB protocol.Address) *pair {
	t.Helper()

	da, db := stub.New(), stub.New()
	stub.Connect(da, db)

	clock := newFakeClock()

	a, err := engine.New(da, engine.WithPlatform(clock))
	require.NoError(t, err)
	b, err := engine.New(db, engine.WithPlatform(clock))
	require.NoError(t, err)

	require.NoError(t, a.SetOpt(protocol.OptAddress, []byte{byte(addrA)}))
	require.NoError(t, b.SetOpt(protocol.OptAddress, []byte{byte(addrB)}))

	return &pair{clock: clock, a: a, b: b}
}

func TestSendWithoutAckDeliversPayloadExactlyOnce(t *testing.T) {
	p := newPair(t, 1, 2)

	rxID, res := p.b.ReceiveNoBlock(task.RXConfig{})
	require.Equal(t, protocol.TaskCreatedOK, res)
	p.b.Tick() // arm B's frame interrupt before anything is sent

	_, res = p.a.SendNoBlock(2, []byte("hello"), false)
	require.Equal(t, protocol.TaskCreatedOK, res)

	p.a.Tick() // A transmits the data frame at offset 0
	p.b.Tick() // B drains and delivers it

	payload, sender, res := p.b.DataRetrieve(rxID)
	require.Equal(t, protocol.OK, res)
	assert.Equal(t, []byte("hello"), payload)
	assert.Equal(t, protocol.Address(1), sender)
}

func TestSendWithAckResolvesOkAfterAckRoundTrip(t *testing.T) {
	p := newPair(t, 1, 2)

	rxID, _ := p.b.ReceiveNoBlock(task.RXConfig{})
	p.b.Tick()

	sendID, res := p.a.SendNoBlock(2, []byte("ping"), true)
	require.Equal(t, protocol.TaskCreatedOK, res)

	p.a.Tick() // A transmits the data frame
	p.b.Tick() // B receives it; data available, no ack owed yet

	state, ok := p.a.TaskGetStatus(sendID)
	require.True(t, ok)
	assert.Equal(t, task.Send, state, "A must still be waiting for the ack")

	payload, _, res := p.b.DataRetrieve(rxID) // creates the ack task now, not before
	require.Equal(t, protocol.OK, res)
	assert.Equal(t, []byte("ping"), payload)

	state, ok = p.a.TaskGetStatus(sendID)
	require.True(t, ok)
	assert.Equal(t, task.Send, state, "the ack DataRetrieve just created has not transmitted yet")

	p.b.Tick() // B's newly created ack task transmits
	p.a.Tick() // A observes the ack

	status, count := p.a.SendGetFinalStatus(sendID)
	assert.Equal(t, protocol.OK, status)
	assert.Equal(t, 1, count, "the data frame round-tripped on its first transmission")
}

func TestAckWithheldUntilApplicationRetrievesPayload(t *testing.T) {
	p := newPair(t, 1, 2)
	start := p.clock.Now()

	rxID, _ := p.b.ReceiveNoBlock(task.RXConfig{HasTimeout: true, Timeout: time.Second})
	p.b.Tick()

	sendID, _ := p.a.SendNoBlock(2, []byte("ping"), true)
	p.a.Tick() // A transmits the data frame at offset 0
	p.b.Tick() // B receives it; data becomes available, ack withheld until retrieved

	// The application never calls DataRetrieve. A's own schedule must
	// exhaust without ever observing an ack: no ack was ever transmitted on
	// B's behalf, unlike if it had been queued eagerly at delivery.
	for _, offset := range task.SNDExpAck.Offsets[1:] {
		p.clock.now = start.Add(offset)
		p.a.Tick()
	}

	status, count := p.a.SendGetFinalStatus(sendID)
	assert.Equal(t, protocol.ErrSendNoAckRcvd, status)
	assert.Equal(t, 4, count)

	// B's own receive task times out waiting to be drained rather than ever
	// having sent an ack.
	p.clock.now = start.Add(protocol.DefaultDataAvailDelay + time.Millisecond)
	p.b.Tick()

	state, ok := p.b.TaskGetStatus(rxID)
	require.True(t, ok)
	assert.Equal(t, task.ReceiveTimedout, state)
}

func TestNoTimeoutReceiveIsPurgedAfterRetrieval(t *testing.T) {
	p := newPair(t, 1, 2)
	start := p.clock.Now()

	// RXConfig{} carries no timeout at all, the case spec.md §5 explicitly
	// allows; the task must still carry a live timer subscription through
	// every state it passes through, or it never gets destroyed.
	rxID, res := p.b.ReceiveNoBlock(task.RXConfig{})
	require.Equal(t, protocol.TaskCreatedOK, res)
	p.b.Tick()

	_, res = p.a.SendNoBlock(2, []byte("hello"), false)
	require.Equal(t, protocol.TaskCreatedOK, res)

	p.a.Tick() // A transmits the data frame at offset 0
	p.b.Tick() // B delivers it; ReceiveDataAvailable, no configured deadline of its own

	payload, _, res := p.b.DataRetrieve(rxID)
	require.Equal(t, protocol.OK, res)
	assert.Equal(t, []byte("hello"), payload)

	state, ok := p.b.TaskGetStatus(rxID)
	require.True(t, ok)
	assert.Equal(t, task.ReceiveDataRetrieved, state)

	// Walk the clock past receive_purge_delay; the task must reach
	// Finished and then be destroyed, freeing its pool slot.
	p.clock.now = start.Add(protocol.DefaultReceivePurgeDelay + time.Millisecond)
	p.b.Tick()

	_, ok = p.b.TaskGetStatus(rxID)
	assert.False(t, ok, "a no-timeout receive task must still be purged after retrieval, not leaked")
}

func TestPlainReceiveTaskIgnoresUnrelatedDuplicate(t *testing.T) {
	p := newPair(t, 1, 2)
	start := p.clock.Now()

	firstRx, _ := p.b.ReceiveNoBlock(task.RXConfig{})
	p.b.Tick()

	_, _ = p.a.SendNoBlock(2, []byte("once"), true)
	p.a.Tick() // A transmits at offset 0
	p.b.Tick() // firstRx receives and delivers it

	// A second, unrelated receive task is created afterwards; it must never
	// have seen the original frame and must not be able to steal-and-ack a
	// retransmit of it.
	secondRx, _ := p.b.ReceiveNoBlock(task.RXConfig{})
	p.b.Tick()

	// firstRx's payload has not been retrieved yet, so no ack has gone back
	// to A and A's schedule still retransmits.
	p.clock.now = start.Add(task.SNDExpAck.Offsets[1])
	p.a.Tick() // A retransmits the identical packet-id
	p.b.Tick()

	_, _, res := p.b.DataRetrieve(firstRx)
	require.Equal(t, protocol.OK, res)

	state, ok := p.b.TaskGetStatus(secondRx)
	require.True(t, ok)
	assert.Equal(t, task.Receive, state, "an unrelated RECEIVE task must not consume a known duplicate")
}

func TestDuplicateRetransmitIsSuppressedButStillReacked(t *testing.T) {
	p := newPair(t, 1, 2)
	start := p.clock.Now()

	rxID, _ := p.b.ReceiveNoBlock(task.RXConfig{})
	p.b.Tick()

	_, _ = p.a.SendNoBlock(2, []byte("once"), true)
	p.a.Tick() // A transmits at offset 0
	p.b.Tick() // B receives it

	payload, _, res := p.b.DataRetrieve(rxID)
	require.Equal(t, protocol.OK, res)
	require.Equal(t, []byte("once"), payload)

	state, ok := p.b.TaskGetStatus(rxID)
	require.True(t, ok)
	require.Equal(t, task.ReceiveDataRetrieved, state)

	// A's own schedule retransmits the identical packet-id at its next
	// offset, independent of whether its ack ever made it back. B must
	// re-ack the retransmit without re-delivering the payload.
	p.clock.now = start.Add(task.SNDExpAck.Offsets[1])
	p.a.Tick()
	p.b.Tick()

	_, _, res = p.b.DataRetrieve(rxID)
	assert.Equal(t, protocol.TaskUnderway, res, "a duplicate must not produce a second deliverable payload")
}

func TestSendWithAckTimesOutWithoutAPeer(t *testing.T) {
	d := stub.New()
	clock := newFakeClock()
	e, err := engine.New(d, engine.WithPlatform(clock))
	require.NoError(t, err)
	require.NoError(t, e.SetOpt(protocol.OptAddress, []byte{1}))

	start := clock.Now()
	sendID, res := e.SendNoBlock(2, []byte("nobody listening"), true)
	require.Equal(t, protocol.TaskCreatedOK, res)

	// Walk the clock to just past every offset of the ack-expecting
	// schedule, ticking once at each, until the final (listen-window) entry
	// is consumed and the task gives up without ever seeing an ack.
	for _, offset := range task.SNDExpAck.Offsets {
		clock.now = start.Add(offset)
		e.Tick()
	}

	status, count := e.SendGetFinalStatus(sendID)
	assert.Equal(t, protocol.ErrSendNoAckRcvd, status)
	assert.Equal(t, 4, count, "every non-listen-window offset of SNDExpAck transmits once")
}

func TestReceiveTimesOutWithoutAMatchingFrame(t *testing.T) {
	d := stub.New()
	clock := newFakeClock()
	e, err := engine.New(d, engine.WithPlatform(clock))
	require.NoError(t, err)
	require.NoError(t, e.SetOpt(protocol.OptAddress, []byte{1}))

	rxID, res := e.ReceiveNoBlock(task.RXConfig{HasTimeout: true, Timeout: 50 * time.Millisecond})
	require.Equal(t, protocol.TaskCreatedOK, res)

	e.Tick()
	clock.Advance(51 * time.Millisecond)
	e.Tick()

	state, ok := e.TaskGetStatus(rxID)
	require.True(t, ok)
	assert.Equal(t, task.ReceiveTimedout, state)
}
