//go:build tinygo || baremetal

// Package nrf52 wires the Nordic nRF52 series' built-in 2.4GHz radio
// peripheral, accessed through direct register access, to the
// transport.RadioDriver contract. Like driver/cc1101, it is glue, not
// core: the engine only ever depends on transport.RadioDriver.
package nrf52

import (
	"sync"
	"unsafe"

	"device/nrf"

	"github.com/gorflink/rflink/protocol"
	"github.com/gorflink/rflink/transport"
)

// MaxFrameSize is the total on-air frame size this driver configures the
// peripheral for: a 1-byte length prefix followed by up to
// maxPayloadBytes of rflink header+payload.
const MaxFrameSize = 64

const maxPayloadBytes = MaxFrameSize - 1

// Driver implements transport.RadioDriver on top of the nRF52 RADIO
// peripheral in its simple ShockBurst-less "generic" mode: fixed base
// address/prefix, variable length, hardware CRC.
type Driver struct {
	mu      sync.Mutex
	buf     [1 + maxPayloadBytes]byte
	onIRQ   func()
	armed   bool
	address uint32
	prefix  byte
	channel uint8
}

// New returns a Driver with default address/prefix/channel values;
// override with SetOption(protocol.OptAddress, ...) before Init.
func New() *Driver {
	return &Driver{address: 0xE7E7E7E7, prefix: 0xE7, channel: 80}
}

var _ transport.RadioDriver = (*Driver)(nil)

func (d *Driver) Init(resetOnly bool) (int, error) {
	if resetOnly {
		return maxPayloadBytes, nil
	}

	startHFCLK()

	nrf.RADIO.POWER.Set(1)
	nrf.RADIO.MODE.Set(nrf.RADIO_MODE_MODE_Nrf_1Mbit)
	nrf.RADIO.TXPOWER.Set(nrf.RADIO_TXPOWER_TXPOWER_0dBm)
	nrf.RADIO.FREQUENCY.Set(uint32(d.channel))

	nrf.RADIO.BASE0.Set(d.address)
	nrf.RADIO.PREFIX0.Set(uint32(d.prefix))
	nrf.RADIO.TXADDRESS.Set(0)
	nrf.RADIO.RXADDRESSES.Set(1)

	nrf.RADIO.PCNF0.Set(8 << nrf.RADIO_PCNF0_LFLEN_Pos)
	nrf.RADIO.PCNF1.Set(
		(maxPayloadBytes << nrf.RADIO_PCNF1_MAXLEN_Pos) |
			(3 << nrf.RADIO_PCNF1_BALEN_Pos) |
			(nrf.RADIO_PCNF1_ENDIAN_Little << nrf.RADIO_PCNF1_ENDIAN_Pos))

	nrf.RADIO.CRCCNF.Set(1)
	nrf.RADIO.CRCINIT.Set(0xFF)
	nrf.RADIO.CRCPOLY.Set(0x107)

	return maxPayloadBytes, nil
}

func (d *Driver) Send(frame []byte) error {
	if len(frame) > maxPayloadBytes {
		return protocol.ErrSendDataLenAboveLimit
	}

	d.mu.Lock()
	d.buf[0] = byte(len(frame))
	copy(d.buf[1:], frame)
	ptr := uint32(uintptr(unsafe.Pointer(&d.buf[0])))
	d.mu.Unlock()

	nrf.RADIO.PACKETPTR.Set(ptr)
	nrf.RADIO.EVENTS_READY.Set(0)
	nrf.RADIO.EVENTS_END.Set(0)

	nrf.RADIO.TASKS_TXEN.Set(1)
	for nrf.RADIO.EVENTS_READY.Get() == 0 {
	}
	nrf.RADIO.TASKS_START.Set(1)
	for nrf.RADIO.EVENTS_END.Get() == 0 {
	}
	nrf.RADIO.TASKS_DISABLE.Set(1)
	for nrf.RADIO.STATE.Get() != nrf.RADIO_STATE_STATE_Disabled {
	}
	return nil
}

// Receive reads out whatever watch's last completed listen window left in
// buf. It does not itself trigger a radio listen window: by the time the
// engine's drainFrame calls it, SetInterrupt's callback has already fired
// from watch and buf holds that frame's bytes.
func (d *Driver) Receive(maxLen int) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := int(d.buf[0])
	if n == 0 || n > maxPayloadBytes {
		return nil, nil
	}
	if n > maxLen {
		n = maxLen
	}
	out := make([]byte, n)
	copy(out, d.buf[1:1+n])
	return out, nil
}

func (d *Driver) SetOption(opt protocol.OptionID, value []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch opt {
	case protocol.OptAddress:
		if len(value) != 1 {
			return protocol.ErrSendBadArguments
		}
		d.prefix = value[0]
		return nil
	case protocol.OptSnifMode, protocol.OptEmissionPower:
		// Not modelled by this peripheral's register set; accepted as a
		// no-op so callers can apply a uniform option set across drivers.
		return nil
	default:
		return protocol.ErrSendBadArguments
	}
}

// SetInterrupt arms a background listen window, mirroring cc1101's GDO0
// edge watcher but over register polling instead of a GPIO: watch blocks
// on the radio's own END event rather than an external pin, since the
// nRF52 RADIO peripheral has no separate data-ready line to poll.
func (d *Driver) SetInterrupt(fn func()) {
	d.mu.Lock()
	d.onIRQ = fn
	d.armed = true
	d.mu.Unlock()
	go d.watch()
}

func (d *Driver) ResetInterrupt() {
	d.mu.Lock()
	d.armed = false
	d.mu.Unlock()
}

// watch runs one radio listen window at a time for as long as armed is
// true, invoking the registered callback after each frame so the engine's
// drainFrame finds buf already populated when it calls Receive.
func (d *Driver) watch() {
	for {
		d.mu.Lock()
		armed, fn := d.armed, d.onIRQ
		ptr := uint32(uintptr(unsafe.Pointer(&d.buf[0])))
		d.mu.Unlock()
		if !armed {
			return
		}

		nrf.RADIO.PACKETPTR.Set(ptr)
		nrf.RADIO.EVENTS_READY.Set(0)
		nrf.RADIO.EVENTS_END.Set(0)

		nrf.RADIO.TASKS_RXEN.Set(1)
		for nrf.RADIO.EVENTS_READY.Get() == 0 {
		}
		nrf.RADIO.TASKS_START.Set(1)
		for nrf.RADIO.EVENTS_END.Get() == 0 {
		}
		nrf.RADIO.TASKS_DISABLE.Set(1)
		for nrf.RADIO.STATE.Get() != nrf.RADIO_STATE_STATE_Disabled {
		}

		if fn != nil {
			fn()
		}
	}
}

func startHFCLK() {
	nrf.CLOCK.EVENTS_HFCLKSTARTED.Set(0)
	nrf.CLOCK.TASKS_HFCLKSTART.Set(1)
	for nrf.CLOCK.EVENTS_HFCLKSTARTED.Get() == 0 {
	}
}
