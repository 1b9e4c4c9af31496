// Package engine implements the protocol engine / event pump: the heart of
// rflink. On each Tick it drains at most one received frame, dispatches it
// to matching tasks, advances timers, fires scheduled retransmissions,
// destroys terminated tasks, and optionally parks the CPU.
package engine

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gorflink/rflink/cache"
	"github.com/gorflink/rflink/protocol"
	"github.com/gorflink/rflink/task"
	"github.com/gorflink/rflink/transport"
)

// Engine binds a transport.RadioDriver, a duplicate cache and a bounded
// task pool into the single-threaded cooperative scheduler described by
// spec.md §4.5.
type Engine struct {
	driver   transport.RadioDriver
	platform transport.Platform
	log      *logrus.Logger

	pool  *task.Pool
	cache *cache.Cache

	ownAddr        protocol.Address
	addrConfigured bool
	maxPayload     int

	lastPktID protocol.PacketID

	dataAvailDelay      time.Duration
	receivePurgeDelay   time.Duration
	sendPurgeDelay      time.Duration
	minDeviceResetDelay time.Duration

	lastDeviceReset time.Time
	autoSleep       bool

	interruptArmed bool
	frameFlag      atomic.Bool

	ackQueue []ackRequest
}

type ackRequest struct {
	dst   protocol.Address
	pktid protocol.PacketID
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithLogger overrides the engine's logrus logger. The default is
// logrus.StandardLogger(), matching how the reference corpus's toxcore
// package falls back to the package-level logger when nothing is
// injected; a nil l keeps that default.
func WithLogger(l *logrus.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithPlatform overrides the engine's clock/sleep collaborator. The
// default is transport.RealTimePlatform{}.
func WithPlatform(p transport.Platform) Option {
	return func(e *Engine) { e.platform = p }
}

// WithMaxTaskCount overrides the task pool's bound (default
// protocol.DefaultMaxTaskCount).
func WithMaxTaskCount(n int) Option {
	return func(e *Engine) { e.pool = task.NewPool(n) }
}

// WithTimings overrides the tunable delay parameters, in place of their
// spec-mandated defaults.
func WithTimings(dataAvail, receivePurge, sendPurge, minReset time.Duration) Option {
	return func(e *Engine) {
		e.dataAvailDelay = dataAvail
		e.receivePurgeDelay = receivePurge
		e.sendPurgeDelay = sendPurge
		e.minDeviceResetDelay = minReset
	}
}

// New constructs an Engine bound to driver, initializing the hardware and
// recording its reported maximum frame size.
func New(driver transport.RadioDriver, opts ...Option) (*Engine, error) {
	e := &Engine{
		driver:              driver,
		platform:            transport.RealTimePlatform{},
		log:                 logrus.StandardLogger(),
		pool:                task.NewPool(protocol.DefaultMaxTaskCount),
		cache:               cache.New(),
		dataAvailDelay:      protocol.DefaultDataAvailDelay,
		receivePurgeDelay:   protocol.DefaultReceivePurgeDelay,
		sendPurgeDelay:      protocol.DefaultSendPurgeDelay,
		minDeviceResetDelay: protocol.MinDeviceResetDelay,
	}
	for _, opt := range opts {
		opt(e)
	}

	maxLen, err := driver.Init(false)
	if err != nil {
		return nil, err
	}
	e.maxPayload = maxLen - protocol.HeaderSize
	if e.maxPayload < 0 {
		e.maxPayload = 0
	}

	e.log.WithFields(logrus.Fields{
		"max_payload": e.maxPayload,
	}).Debug("rflink: engine initialized")

	return e, nil
}

// MaxPayload returns the maximum application payload size accepted by
// Send, derived from the driver's reported maximum frame size.
func (e *Engine) MaxPayload() int { return e.maxPayload }

// SetOpt applies one driver configuration option. Setting OptAddress also
// records the device's own address for the engine's own header/ACK
// bookkeeping.
func (e *Engine) SetOpt(opt protocol.OptionID, value []byte) error {
	if err := e.driver.SetOption(opt, value); err != nil {
		return err
	}
	if opt == protocol.OptAddress && len(value) == 1 {
		e.ownAddr = protocol.Address(value[0])
		e.addrConfigured = true
	}
	return nil
}

// SetAutoSleep enables or disables the CPU-sleep optimization applied when
// the sleep-eligibility predicate holds (spec.md §4.5 step 5).
func (e *Engine) SetAutoSleep(v bool) { e.autoSleep = v }

// nextPacketID returns the next monotonically increasing packet-id,
// wrapping modulo 2^16.
func (e *Engine) nextPacketID() protocol.PacketID {
	e.lastPktID++
	return e.lastPktID
}

// Tick performs one invocation of the event pump (do_events).
func (e *Engine) Tick() {
	now := e.platform.Now()

	e.updateInterruptArming()

	frame, alreadySeen := e.drainFrame(now)

	e.ackQueue = e.ackQueue[:0]
	consumed := false
	var toDestroy []*task.Task

	e.pool.Each(func(t *task.Task) {
		newState := t.State

		if t.SubscribedFrame && frame != nil && !consumed {
			ns, didConsume := e.deliverFrame(t, frame, alreadySeen, now)
			newState = ns
			if didConsume {
				consumed = true
			}
		}

		if newState == t.State && t.SubscribedTimer && !now.Before(t.Deadline) {
			newState = e.deliverTimer(t, now)
		}

		t.State = newState
		if newState == task.Finished {
			toDestroy = append(toDestroy, t)
		}
	})

	needsReset := false
	for _, t := range toDestroy {
		if t.NeedAck && !t.HasReceivedAck && !t.IsAck {
			needsReset = true
		}
		e.pool.Destroy(t)
	}

	for _, req := range e.ackQueue {
		e.createAckTask(req.dst, req.pktid, now)
	}

	if needsReset && now.Sub(e.lastDeviceReset) >= e.minDeviceResetDelay {
		e.log.Warn("rflink: resetting radio device after ACK failure")
		if _, err := e.driver.Init(true); err != nil {
			e.log.WithError(err).Error("rflink: device reset failed")
		}
		e.lastDeviceReset = now
	}

	if e.autoSleep && e.sleepEligible() {
		e.log.Trace("rflink: entering auto-sleep")
		_, _ = e.driver.Init(true)
		e.platform.Sleep()
	}
}

func (e *Engine) updateInterruptArming() {
	anySub := false
	e.pool.Each(func(t *task.Task) {
		if t.SubscribedFrame {
			anySub = true
		}
	})
	if anySub && !e.interruptArmed {
		e.driver.SetInterrupt(func() { e.frameFlag.Store(true) })
		e.interruptArmed = true
	} else if !anySub && e.interruptArmed {
		e.driver.ResetInterrupt()
		e.interruptArmed = false
	}
}

func (e *Engine) drainFrame(now time.Time) (*protocol.Buffer, bool) {
	if !e.frameFlag.Load() {
		return nil, false
	}

	e.driver.ResetInterrupt()
	e.frameFlag.Store(false)

	raw, err := e.driver.Receive(e.maxPayload + protocol.HeaderSize)
	defer func() {
		if e.interruptArmed {
			e.driver.SetInterrupt(func() { e.frameFlag.Store(true) })
		}
	}()

	if err != nil || raw == nil {
		return nil, false
	}

	buf := protocol.DecodeBuffer(raw)
	if buf == nil || !buf.Validate(len(raw), e.maxPayload) {
		e.log.WithField("bytes", len(raw)).Trace("rflink: dropped malformed frame")
		return nil, false
	}

	hdr := buf.Header()
	seen := e.cache.Observe(hdr.Src, hdr.PktID, now)
	return buf, seen
}

// sleepEligible implements spec.md §4.5 step 5's predicate: exactly one
// task exists, it is subscribed only to frame-received (not to the
// timer), and no other task is in a non-Nothing state.
func (e *Engine) sleepEligible() bool {
	var only *task.Task
	e.pool.Each(func(t *task.Task) {
		if only == nil {
			only = t
		}
	})
	if only == nil || e.pool.CountLiveExcept(only.ID) != 0 {
		return false
	}
	return only.SubscribedFrame && !only.SubscribedTimer
}

// DumpStatus returns a human-readable snapshot of every live task,
// restoring the original's dbg_print_status diagnostic (spec.md's
// SUPPLEMENTED FEATURES). Callers decide whether/where to log it.
func (e *Engine) DumpStatus() string {
	out := "rflink engine status:\n"
	e.pool.Each(func(t *task.Task) {
		out += "  task " + strconv.Itoa(int(t.ID)) + ": " + t.State.String() + "\n"
	})
	return out
}
