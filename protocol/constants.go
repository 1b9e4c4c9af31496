// Package protocol implements the on-air wire format shared by every peer:
// header layout, flag bits, packet buffers and the error/result codes
// exchanged between the engine and its callers.
package protocol

import "time"

// Address is the device's 1-byte link-layer identifier.
type Address uint8

// AddrBroadcast is the reserved destination meaning "every device on the
// channel". Broadcast frames never expect an ACK, regardless of SIN.
const AddrBroadcast Address = 0xFF

// PacketID is a 2-byte identifier, monotonically incremented per outgoing
// non-ACK packet and wrapping modulo 2^16.
type PacketID uint16

// HeaderSize is the fixed, on-wire header length in bytes: dst, src, flags,
// pktid (2B), len.
const HeaderSize = 6

// Flag bits occupy the low nibble of the header's flags byte.
const (
	// FlagSIN marks "sender is requesting an acknowledgement".
	FlagSIN byte = 1 << 0
	// FlagACK marks "this frame is an acknowledgement".
	FlagACK byte = 1 << 1

	flagOptionMask = 0x0F
	flagSeqShift   = 4
	flagSeqMask    = 0x0F
)

// Default tunable timing parameters, in milliseconds, matching the values
// carried over from the original implementation.
const (
	DefaultDataAvailDelayMS     = 900
	DefaultReceivePurgeDelayMS  = 1000
	DefaultSendPurgeDelayMS     = 1000
	DefaultCacheDiscardDelayMS  = 176_400_000 // ~49 hours
	DefaultMinDeviceResetDelay  = 1000
	DefaultPostDeviceResetDelay = 1
)

// Duration helpers for the defaults above, used where the engine wants a
// time.Duration rather than a raw millisecond count.
const (
	DefaultDataAvailDelay    = DefaultDataAvailDelayMS * time.Millisecond
	DefaultReceivePurgeDelay = DefaultReceivePurgeDelayMS * time.Millisecond
	DefaultSendPurgeDelay    = DefaultSendPurgeDelayMS * time.Millisecond
	DefaultCacheDiscardDelay = DefaultCacheDiscardDelayMS * time.Millisecond
	MinDeviceResetDelay      = DefaultMinDeviceResetDelay * time.Millisecond
)

// CacheSize is the fixed capacity of the duplicate-suppression table.
const CacheSize = 10

// DefaultMaxTaskCount is the default bound on concurrent tasks in the pool.
const DefaultMaxTaskCount = 15
