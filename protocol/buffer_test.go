package protocol

import (
	"bytes"
	"testing"
)

func TestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	h := Header{Dst: 0x5E, Src: 0x0B, Flags: 0, PktID: 0x1234, Len: 3}
	h.SetSIN(true)
	h.IncSeq()
	h.IncSeq()

	enc := h.Encode()
	got := DecodeHeader(enc[:])

	if got.Dst != h.Dst || got.Src != h.Src || got.Flags != h.Flags || got.PktID != h.PktID {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, h)
	}
	if !got.SIN() {
		t.Error("SIN flag lost across encode/decode")
	}
	if got.Seq() != 2 {
		t.Errorf("Seq() = %d, want 2", got.Seq())
	}
}

func TestHeaderSeqWraps(t *testing.T) {
	var h Header
	for i := 0; i < 16; i++ {
		h.IncSeq()
	}
	if h.Seq() != 0 {
		t.Errorf("Seq() after 16 increments = %d, want 0 (wrap)", h.Seq())
	}
}

func TestDestinationIsFirstByteOnWire(t *testing.T) {
	h := Header{Dst: 0x5E, Src: 0x0B}
	enc := h.Encode()
	if enc[0] != 0x5E {
		t.Fatalf("destination address must be first byte on wire, got %#x", enc[0])
	}
}

func TestBufferPrepareForSendPrecondition(t *testing.T) {
	b := NewBuffer()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on len==0 with non-nil payload violation")
		}
	}()
	b.PrepareForSend(Header{Dst: 1, Src: 2}, []byte{})
}

func TestBufferPrepareForSendAndEncode(t *testing.T) {
	b := NewBuffer()
	payload := []byte("hi\x00")
	b.PrepareForSend(Header{Dst: 0x5E, Src: 0x0B, Flags: FlagSIN, PktID: 1}, payload)

	if b.FrameLen() != HeaderSize+len(payload) {
		t.Fatalf("FrameLen() = %d, want %d", b.FrameLen(), HeaderSize+len(payload))
	}

	wire := b.Encode()
	decoded := DecodeBuffer(wire)
	if decoded == nil {
		t.Fatal("DecodeBuffer returned nil for a valid frame")
	}
	if !bytes.Equal(decoded.Payload(), payload) {
		t.Errorf("payload mismatch: got %v, want %v", decoded.Payload(), payload)
	}
	if !decoded.Validate(len(wire), 32) {
		t.Error("Validate() rejected a well-formed frame")
	}
}

func TestBufferValidateRejectsLengthMismatch(t *testing.T) {
	b := NewBuffer()
	b.PrepareForSend(Header{Dst: 1, Src: 2}, []byte{1, 2, 3})

	if b.Validate(HeaderSize+2, 32) {
		t.Error("Validate() accepted a frame whose declared length exceeds bytes received")
	}
	if b.Validate(HeaderSize+3, 2) {
		t.Error("Validate() accepted a payload longer than maxPayload")
	}
}

func TestBufferShrinkToHeaderDropsPayload(t *testing.T) {
	b := NewBuffer()
	b.PrepareForSend(Header{Dst: 1, Src: 2}, []byte{9, 9, 9})
	b.ShrinkToHeader()

	if b.PayloadLen() != 0 {
		t.Errorf("PayloadLen() after ShrinkToHeader = %d, want 0", b.PayloadLen())
	}
	if b.FrameLen() != HeaderSize {
		t.Errorf("FrameLen() after ShrinkToHeader = %d, want %d", b.FrameLen(), HeaderSize)
	}
}

func TestBufferCopyFromIsIndependent(t *testing.T) {
	a := NewBuffer()
	a.PrepareForSend(Header{Dst: 1, Src: 2}, []byte{1, 2, 3})

	b := NewBuffer()
	b.CopyFrom(a)
	b.Payload()[0] = 0xFF

	if a.Payload()[0] == 0xFF {
		t.Error("CopyFrom aliased the source payload slice")
	}
}

func TestDecodeBufferRejectsShortData(t *testing.T) {
	if DecodeBuffer([]byte{1, 2, 3}) != nil {
		t.Error("DecodeBuffer accepted data shorter than HeaderSize")
	}
}
