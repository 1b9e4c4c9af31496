// Package transport defines the narrow interface the engine binds to a raw
// radio driver through, and the interrupt-flag contract that connects a
// driver's data-ready notification to the event pump.
package transport

import "github.com/gorflink/rflink/protocol"

// RadioDriver is the four-callback, two-interrupt-control contract the
// engine binds to. All operations are synchronous. Implementations for
// specific hardware (see driver/cc1101) or for testing (see driver/stub)
// satisfy this interface.
type RadioDriver interface {
	// Init initializes the hardware and reports the maximum frame size in
	// maxDataLen. If resetOnly is true, a previously initialized device is
	// re-armed without changing its configuration (used for the
	// wedged-transceiver recovery path).
	Init(resetOnly bool) (maxDataLen int, err error)

	// Send transmits one frame synchronously and returns nil on success.
	// A non-nil error is recorded on the initiating task; retransmission
	// per schedule continues regardless.
	Send(frame []byte) error

	// Receive is a non-blocking drain of one pending frame. It returns
	// (nil, nil) when no frame is pending.
	Receive(maxLen int) (frame []byte, err error)

	// SetOption applies one configuration option (see protocol.OptionID).
	SetOption(opt protocol.OptionID, value []byte) error

	// SetInterrupt arms the falling-edge data-ready handler, invoking fn
	// from whatever goroutine the driver's hardware binding uses. The
	// engine's pump only ever reads a boolean flag set by fn; fn itself
	// must do no other work.
	SetInterrupt(fn func())

	// ResetInterrupt disarms the handler previously armed by SetInterrupt.
	ResetInterrupt()
}
