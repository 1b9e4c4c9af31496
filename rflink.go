// Package rflink is the blocking façade over the non-blocking protocol
// engine: it owns the tick loop and turns SendNoBlock/ReceiveNoBlock plus
// polling into plain synchronous calls, the way an application author
// wants to use the link rather than how the engine internally schedules
// it.
package rflink

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gorflink/rflink/config"
	"github.com/gorflink/rflink/engine"
	"github.com/gorflink/rflink/protocol"
	"github.com/gorflink/rflink/task"
	"github.com/gorflink/rflink/transport"
)

// Re-exported types, so callers only ever import this one package for the
// common path.
type (
	Address  = protocol.Address
	Result   = protocol.Result
	State    = task.State
	TaskID   = task.ID
	RXConfig = task.RXConfig
	Driver   = transport.RadioDriver
)

// Re-exported result sentinels.
var (
	ErrSendDataLenAboveLimit = protocol.ErrSendDataLenAboveLimit
	ErrSendNoAckRcvd         = protocol.ErrSendNoAckRcvd
	ErrUnableToCreateTask    = protocol.ErrUnableToCreateTask
	ErrUnknownTaskID         = protocol.ErrUnknownTaskID
	ErrTimeout               = protocol.ErrTimeout
)

// AddrBroadcast re-exports protocol.AddrBroadcast.
const AddrBroadcast = protocol.AddrBroadcast

// TickInterval is the period at which Link drives the engine's do_events
// pump while a blocking Send or Receive call is underway.
const TickInterval = 10 * time.Millisecond

// Link binds an Engine to blocking convenience wrappers. There is no
// background tick loop: the engine only ticks inside Send, Receive and
// Poll.
type Link struct {
	engine *engine.Engine
}

// Open initializes driver and builds the engine, configuring its own
// address, timing parameters and radio options from cfg. It does not start
// ticking the engine.
func Open(driver transport.RadioDriver, cfg config.Config) (*Link, error) {
	logger := logrus.New()
	if lvl, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(lvl)
	}

	dataAvail, receivePurge, sendPurge, minReset := cfg.Timing.Durations()

	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithTimings(dataAvail, receivePurge, sendPurge, minReset),
	}
	if cfg.Node.MaxTasks > 0 {
		opts = append(opts, engine.WithMaxTaskCount(cfg.Node.MaxTasks))
	}

	e, err := engine.New(driver, opts...)
	if err != nil {
		return nil, err
	}

	if err := e.SetOpt(protocol.OptAddress, []byte{cfg.Node.Address}); err != nil {
		return nil, err
	}
	if cfg.Node.SnifMode {
		snif := byte(1)
		if err := e.SetOpt(protocol.OptSnifMode, []byte{snif}); err != nil {
			return nil, err
		}
	}
	if cfg.Radio.EmissionPowerHi {
		if err := e.SetOpt(protocol.OptEmissionPower, []byte{1}); err != nil {
			return nil, err
		}
	}
	e.SetAutoSleep(cfg.Node.AutoSleep)

	return &Link{engine: e}, nil
}

// Poll drives one iteration of the underlying engine's do_events pump.
// Applications that already run their own scheduler loop should call this
// directly instead of the blocking Send/Receive wrappers.
func (l *Link) Poll() { l.engine.Tick() }

// MaxPayload returns the maximum application payload size.
func (l *Link) MaxPayload() int { return l.engine.MaxPayload() }

// Send transmits payload to dst, optionally waiting for an acknowledgement,
// blocking until the send task reaches its terminal state.
func (l *Link) Send(dst protocol.Address, payload []byte, needAck bool) error {
	_, err := l.SendWithTransmitCount(dst, payload, needAck)
	return err
}

// SendWithTransmitCount is Send, additionally reporting how many times the
// frame was put on the wire (including retransmissions), restoring the
// original's send_get_final_status(task-id) -> (result, transmit-count)
// pair.
func (l *Link) SendWithTransmitCount(dst protocol.Address, payload []byte, needAck bool) (int, error) {
	id, res := l.engine.SendNoBlock(dst, payload, needAck)
	if !res.IsOK() {
		return 0, res
	}

	for {
		l.engine.Tick()
		status, count := l.engine.SendGetFinalStatus(id)
		if status != protocol.TaskUnderway {
			if status.IsOK() {
				return count, nil
			}
			return count, status
		}
		time.Sleep(TickInterval)
	}
}

// Receive blocks until a frame matching cfg arrives (or the configured
// timeout elapses), returning its payload and sender.
func (l *Link) Receive(cfg task.RXConfig) ([]byte, protocol.Address, error) {
	id, res := l.engine.ReceiveNoBlock(cfg)
	if !res.IsOK() {
		return nil, 0, res
	}

	for {
		l.engine.Tick()
		state, ok := l.engine.TaskGetStatus(id)
		if !ok {
			return nil, 0, protocol.ErrUnknownTaskID
		}
		switch state {
		case task.ReceiveDataAvailable:
			payload, sender, res := l.engine.DataRetrieve(id)
			return payload, sender, res
		case task.ReceiveTimedout:
			return nil, 0, protocol.ErrTimeout
		}
		time.Sleep(TickInterval)
	}
}

// DumpStatus restores the original's dbg_print_status diagnostic.
func (l *Link) DumpStatus() string { return l.engine.DumpStatus() }
