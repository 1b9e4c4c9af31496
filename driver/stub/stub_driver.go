// Package stub implements an in-memory transport.RadioDriver for host-side
// testing, with no hardware dependency. Two stub drivers can be wired
// together with Connect to simulate a two-peer radio link.
package stub

import (
	"sync"

	"github.com/gorflink/rflink/protocol"
)

const maxFrameSize = 64

// Driver is a mock radio driver. Frames pushed to it via InjectRx become
// available from Receive; frames handed to Send are recorded and can be
// read back with TxLog, or forwarded live to a peer via Connect.
type Driver struct {
	mu        sync.Mutex
	rx        ringBuffer
	tx        ringBuffer
	onForward func(frame []byte)
	onIRQ     func()
	armed     bool
	address   protocol.Address
	snifMode  bool
	power     byte
}

// New returns a Driver with no peer wired.
func New() *Driver { return &Driver{} }

func (d *Driver) Init(resetOnly bool) (int, error) {
	return maxFrameSize, nil
}

func (d *Driver) Send(frame []byte) error {
	d.mu.Lock()
	cp := append([]byte(nil), frame...)
	d.tx.push(cp)
	forward := d.onForward
	d.mu.Unlock()

	if forward != nil {
		forward(cp)
	}
	return nil
}

func (d *Driver) Receive(maxLen int) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	frame, ok := d.rx.pop()
	if !ok {
		return nil, nil
	}
	if len(frame) > maxLen {
		frame = frame[:maxLen]
	}
	return frame, nil
}

func (d *Driver) SetOption(opt protocol.OptionID, value []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch opt {
	case protocol.OptAddress:
		if len(value) != 1 {
			return protocol.ErrSendBadArguments
		}
		d.address = protocol.Address(value[0])
	case protocol.OptSnifMode:
		d.snifMode = len(value) == 1 && value[0] != 0
	case protocol.OptEmissionPower:
		if len(value) == 1 {
			d.power = value[0]
		}
	default:
		return protocol.ErrSendBadArguments
	}
	return nil
}

// SetInterrupt arms the data-ready callback. There is no real asynchronous
// hardware event on a hosted stub; InjectRx invokes fn synchronously in its
// caller's goroutine instead of from an interrupt context.
func (d *Driver) SetInterrupt(fn func()) {
	d.mu.Lock()
	d.onIRQ = fn
	d.armed = true
	d.mu.Unlock()
}

func (d *Driver) ResetInterrupt() {
	d.mu.Lock()
	d.armed = false
	d.mu.Unlock()
}

// InjectRx makes data available from the next Receive call, as if the
// hardware had just received it over the air, and fires the armed
// data-ready callback (if any) the way a real edge-triggered interrupt
// would.
func (d *Driver) InjectRx(data []byte) {
	d.mu.Lock()
	d.rx.push(append([]byte(nil), data...))
	armed, fn := d.armed, d.onIRQ
	d.mu.Unlock()

	if armed && fn != nil {
		fn()
	}
}

// TxLog returns, and clears, every frame handed to Send since the last
// call.
func (d *Driver) TxLog() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.tx.drain()
	return out
}

// Connect wires a's transmissions to arrive at b's Receive, and vice
// versa, simulating a bidirectional radio link between two in-memory
// peers.
func Connect(a, b *Driver) {
	a.mu.Lock()
	a.onForward = func(frame []byte) { b.InjectRx(frame) }
	a.mu.Unlock()

	b.mu.Lock()
	b.onForward = func(frame []byte) { a.InjectRx(frame) }
	b.mu.Unlock()
}

const ringCapacity = 64

type ringBuffer struct {
	data       [ringCapacity][]byte
	head, tail int
	count      int
}

func (rb *ringBuffer) push(frame []byte) {
	if rb.count == ringCapacity {
		rb.data[rb.head] = nil
		rb.head = (rb.head + 1) % ringCapacity
		rb.count--
	}
	rb.data[rb.tail] = frame
	rb.tail = (rb.tail + 1) % ringCapacity
	rb.count++
}

func (rb *ringBuffer) pop() ([]byte, bool) {
	if rb.count == 0 {
		return nil, false
	}
	frame := rb.data[rb.head]
	rb.data[rb.head] = nil
	rb.head = (rb.head + 1) % ringCapacity
	rb.count--
	return frame, true
}

func (rb *ringBuffer) drain() [][]byte {
	out := make([][]byte, 0, rb.count)
	for {
		f, ok := rb.pop()
		if !ok {
			break
		}
		out = append(out, f)
	}
	return out
}
