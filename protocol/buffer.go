package protocol

// Buffer owns one variable-length frame: a fixed 6-byte header plus
// 0..MaxPayload payload bytes. It can be shrunk to header-only once the
// payload is no longer needed, and knows how to validate a freshly-received
// frame against the declared header length.
//
// A Buffer is exclusively owned by whichever Task holds it; the engine
// decodes each received frame into a fresh Buffer of its own, which a task
// copies from rather than aliases.
type Buffer struct {
	header  Header
	payload []byte
}

// NewBuffer returns an empty, header-only buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Free releases the payload, leaving the header intact. Mirrors the
// original's "free" operation; in Go this just drops the slice reference.
func (b *Buffer) Free() {
	b.payload = nil
}

// CopyFrom replaces this buffer's contents with an independent copy of
// other's header and payload.
func (b *Buffer) CopyFrom(other *Buffer) {
	b.header = other.header
	if other.payload == nil {
		b.payload = nil
		return
	}
	b.payload = make([]byte, len(other.payload))
	copy(b.payload, other.payload)
}

// PrepareForSend materializes a full frame from a header and a payload.
// Precondition: (len(payload) == 0) <=> (payload == nil). Violating this is
// a programmer error and panics, exactly as the original's assertion did.
func (b *Buffer) PrepareForSend(header Header, payload []byte) {
	if (len(payload) == 0) != (payload == nil) {
		panic("protocol: PrepareForSend precondition violated: (len(payload)==0) must equal (payload==nil)")
	}
	header.Len = uint8(len(payload))
	b.header = header
	if payload == nil {
		b.payload = nil
		return
	}
	b.payload = make([]byte, len(payload))
	copy(b.payload, payload)
}

// Validate returns true iff the buffer is non-nil, the header's declared
// payload length does not exceed maxPayload, and the header plus declared
// payload length exactly accounts for nbBytesReceived on the wire.
func (b *Buffer) Validate(nbBytesReceived int, maxPayload int) bool {
	if b == nil {
		return false
	}
	if int(b.header.Len) > maxPayload {
		return false
	}
	return HeaderSize+int(b.header.Len) == nbBytesReceived
}

// ShrinkToHeader discards the payload, keeping only the header. Used after
// ACK receipt or after the application has retrieved the payload, to free
// payload memory while the task lingers in a purge-delay state.
func (b *Buffer) ShrinkToHeader() {
	b.payload = nil
	b.header.Len = 0
}

// Header returns a copy of the buffer's header.
func (b *Buffer) Header() Header { return b.header }

// SetHeader replaces the buffer's header, leaving the payload untouched.
func (b *Buffer) SetHeader(h Header) { b.header = h }

// Flags returns the header's flags byte.
func (b *Buffer) Flags() byte { return b.header.Flags }

// SetFlags replaces the header's flags byte.
func (b *Buffer) SetFlags(f byte) { b.header.Flags = f }

// Payload returns the buffer's payload bytes. May be nil.
func (b *Buffer) Payload() []byte { return b.payload }

// PayloadLen returns the payload length in bytes.
func (b *Buffer) PayloadLen() int { return len(b.payload) }

// FrameLen returns the total on-wire frame length: header plus payload.
func (b *Buffer) FrameLen() int { return HeaderSize + len(b.payload) }

// Encode materializes the full on-wire frame: header followed by payload.
func (b *Buffer) Encode() []byte {
	hdr := b.header
	hdr.Len = uint8(len(b.payload))
	enc := hdr.Encode()
	out := make([]byte, HeaderSize+len(b.payload))
	copy(out, enc[:])
	copy(out[HeaderSize:], b.payload)
	return out
}

// DecodeBuffer parses raw wire bytes into a Buffer. It only requires that
// data be at least HeaderSize long; the caller must still call Validate
// with the true byte count received from the driver, since a short or
// truncated frame can still parse a syntactically valid header.
func DecodeBuffer(data []byte) *Buffer {
	if len(data) < HeaderSize {
		return nil
	}
	b := &Buffer{header: DecodeHeader(data)}
	rest := data[HeaderSize:]
	if len(rest) > 0 {
		b.payload = make([]byte, len(rest))
		copy(b.payload, rest)
	}
	return b
}
