package protocol

import "encoding/binary"

// Header is the fixed 6-byte frame header, transmitted in this exact byte
// order: destination, source, flags, packet-id (little-endian), length.
// Destination MUST be the first byte on the wire — the radio's hardware
// address filter inspects it.
type Header struct {
	Dst   Address
	Src   Address
	Flags byte
	PktID PacketID
	Len   uint8
}

// SIN reports whether the sender requested an acknowledgement.
func (h Header) SIN() bool { return h.Flags&FlagSIN != 0 }

// ACK reports whether this header belongs to an acknowledgement frame.
func (h Header) ACK() bool { return h.Flags&FlagACK != 0 }

// SetSIN sets or clears the SIN flag.
func (h *Header) SetSIN(v bool) { h.setFlag(FlagSIN, v) }

// SetACK sets or clears the ACK flag.
func (h *Header) SetACK(v bool) { h.setFlag(FlagACK, v) }

func (h *Header) setFlag(bit byte, v bool) {
	if v {
		h.Flags |= bit
	} else {
		h.Flags &^= bit
	}
}

// Seq returns the 4-bit diagnostic retransmission counter carried in the
// flags byte's high nibble. Receivers MUST NOT use this for duplicate
// suppression.
func (h Header) Seq() uint8 {
	return uint8(h.Flags>>flagSeqShift) & flagSeqMask
}

// IncSeq increments the 4-bit sequence counter, wrapping at 16. Called once
// per non-ACK transmit.
func (h *Header) IncSeq() {
	next := (h.Seq() + 1) & flagSeqMask
	h.Flags = (h.Flags & flagOptionMask) | (next << flagSeqShift)
}

// Encode writes the header in wire order into a fixed 6-byte array.
func (h Header) Encode() [HeaderSize]byte {
	var out [HeaderSize]byte
	out[0] = byte(h.Dst)
	out[1] = byte(h.Src)
	out[2] = h.Flags
	binary.LittleEndian.PutUint16(out[3:5], uint16(h.PktID))
	out[5] = h.Len
	return out
}

// DecodeHeader parses the first HeaderSize bytes of data into a Header.
// The caller is responsible for ensuring len(data) >= HeaderSize.
func DecodeHeader(data []byte) Header {
	return Header{
		Dst:   Address(data[0]),
		Src:   Address(data[1]),
		Flags: data[2],
		PktID: PacketID(binary.LittleEndian.Uint16(data[3:5])),
		Len:   data[5],
	}
}
