// Package cc1101 is the thin convenience layer that wires a Texas
// Instruments CC1101 sub-GHz transceiver, accessed over SPI, to the
// transport.RadioDriver contract. It is glue, not core: the engine only
// ever depends on transport.RadioDriver, never on this package directly.
package cc1101

import (
	"errors"
	"sync"

	"github.com/tve/devices"

	"github.com/gorflink/rflink/protocol"
	"github.com/gorflink/rflink/transport"
)

// Register addresses used by this driver, named the way tve-devices names
// its own Semtech/HopeRF register maps.
const (
	regIOCFG0   = 0x02
	regPKTLEN   = 0x06
	regPKTCTRL0 = 0x08
	regADDR     = 0x09
	regMDMCFG4  = 0x10
	regFREQ2    = 0x0D
	regPATABLE  = 0x3E
	regFIFO     = 0x3F

	cmdSRES  = 0x30
	cmdSTX   = 0x35
	cmdSRX   = 0x34
	cmdSIDLE = 0x36
	cmdSFRX  = 0x3A
	cmdSFTX  = 0x3B

	writeBurst = 0x40
	readBurst  = 0xC0

	maxFIFOLen = 61 // 64-byte FIFO minus the 3-byte protocol header overhead this driver reserves
)

// ErrNoData names the empty-FIFO condition. Receive does not return it:
// following the transport.RadioDriver contract, it returns (nil, nil) when
// nothing is pending.
var ErrNoData = errors.New("cc1101: no data pending")

// Driver implements transport.RadioDriver on top of a CC1101 reached via
// SPI, with its GDO0 pin wired to an interrupt-capable GPIO for the
// data-ready signal.
type Driver struct {
	spi  devices.SPI
	gdo0 devices.GPIO

	mu      sync.Mutex
	onIRQ   func()
	armed   bool
	address protocol.Address
}

// New returns a Driver bound to the given SPI bus and GDO0 interrupt pin.
// The caller is responsible for constructing spi/gdo0 the way
// tve-devices/sx1231 expects (SPI mode 0, GPIO configured for falling-edge
// detection).
func New(spi devices.SPI, gdo0 devices.GPIO) *Driver {
	return &Driver{spi: spi, gdo0: gdo0}
}

// Compile-time assertion that Driver satisfies transport.RadioDriver.
var _ transport.RadioDriver = (*Driver)(nil)

func (d *Driver) Init(resetOnly bool) (int, error) {
	if err := d.strobe(cmdSRES); err != nil {
		return 0, err
	}
	if resetOnly {
		if err := d.strobe(cmdSRX); err != nil {
			return 0, err
		}
		return maxFIFOLen, nil
	}

	// Variable packet length, CRC enabled, address check off (the engine
	// does its own address handling above this layer for snif mode).
	if err := d.writeReg(regPKTCTRL0, 0x05); err != nil {
		return 0, err
	}
	if err := d.writeReg(regPKTLEN, maxFIFOLen); err != nil {
		return 0, err
	}
	if err := d.strobe(cmdSRX); err != nil {
		return 0, err
	}
	return maxFIFOLen, nil
}

func (d *Driver) Send(frame []byte) error {
	if len(frame) > maxFIFOLen {
		return protocol.ErrSendDataLenAboveLimit
	}
	if err := d.strobe(cmdSIDLE); err != nil {
		return err
	}
	if err := d.strobe(cmdSFTX); err != nil {
		return err
	}
	buf := make([]byte, 0, len(frame)+2)
	buf = append(buf, writeBurst|regFIFO, byte(len(frame)))
	buf = append(buf, frame...)
	if err := d.spi.Tx(buf, make([]byte, len(buf))); err != nil {
		return err
	}
	if err := d.strobe(cmdSTX); err != nil {
		return err
	}
	return d.strobe(cmdSRX)
}

func (d *Driver) Receive(maxLen int) ([]byte, error) {
	if d.gdo0.Read() != devices.GpioHigh {
		return nil, nil
	}

	lenBuf := make([]byte, 2)
	if err := d.spi.Tx([]byte{readBurst | regFIFO, 0}, lenBuf); err != nil {
		return nil, err
	}
	n := int(lenBuf[1])
	if n == 0 {
		return nil, nil
	}
	if n > maxLen {
		n = maxLen
	}

	out := make([]byte, n)
	req := make([]byte, n+1)
	req[0] = readBurst | regFIFO
	resp := make([]byte, n+1)
	if err := d.spi.Tx(req, resp); err != nil {
		return nil, err
	}
	copy(out, resp[1:])

	return out, d.strobe(cmdSRX)
}

func (d *Driver) SetOption(opt protocol.OptionID, value []byte) error {
	switch opt {
	case protocol.OptAddress:
		if len(value) != 1 {
			return protocol.ErrSendBadArguments
		}
		d.address = protocol.Address(value[0])
		return d.writeReg(regADDR, value[0])
	case protocol.OptSnifMode:
		filterOn := byte(0x05) // CRC check, no address filtering
		if len(value) == 1 && value[0] == 0 {
			filterOn = 0x07 // address check, no broadcast
		}
		return d.writeReg(regPKTCTRL0, filterOn)
	case protocol.OptEmissionPower:
		level := byte(0x27) // ~0dBm
		if len(value) == 1 && value[0] != 0 {
			level = 0xC0 // max power, PA ramp
		}
		return d.writeReg(regPATABLE, level)
	default:
		return protocol.ErrSendBadArguments
	}
}

func (d *Driver) SetInterrupt(fn func()) {
	d.mu.Lock()
	d.onIRQ = fn
	d.armed = true
	d.mu.Unlock()
	_ = d.gdo0.In(devices.GpioRisingEdge)
	go d.watch()
}

func (d *Driver) ResetInterrupt() {
	d.mu.Lock()
	d.armed = false
	d.mu.Unlock()
}

// watch polls GDO0 for a rising edge (data ready) and invokes the
// registered callback exactly once per edge, mirroring the falling-edge
// contract of a real interrupt line without requiring the devices.GPIO
// implementation to support edge-triggered callbacks itself.
func (d *Driver) watch() {
	for {
		d.mu.Lock()
		armed, fn := d.armed, d.onIRQ
		d.mu.Unlock()
		if !armed {
			return
		}
		if d.gdo0.WaitForEdge(0) && fn != nil {
			fn()
		}
	}
}

func (d *Driver) strobe(cmd byte) error {
	return d.spi.Tx([]byte{cmd}, make([]byte, 1))
}

func (d *Driver) writeReg(reg, value byte) error {
	return d.spi.Tx([]byte{writeBurst | reg, value}, make([]byte, 2))
}
