package engine

import (
	"time"

	"github.com/gorflink/rflink/protocol"
	"github.com/gorflink/rflink/task"
)

// deliverFrame offers frame to one task. It returns the task's possibly new
// state and whether the task consumed the frame (at most one task per tick
// ever does; the caller stops offering it to later tasks once consumed is
// true).
func (e *Engine) deliverFrame(t *task.Task, frame *protocol.Buffer, alreadySeen bool, now time.Time) (task.State, bool) {
	hdr := frame.Header()

	switch t.State {
	case task.Send:
		own := t.Buffer.Header()
		if !hdr.ACK() || hdr.Src != own.Dst || hdr.PktID != own.PktID {
			return t.State, false
		}
		t.HasReceivedAck = true
		t.FinalStatus = protocol.OK
		t.Deadline = now.Add(e.sendPurgeDelay)
		t.Buffer.ShrinkToHeader()
		return task.SendDone, true

	case task.Receive, task.ReceiveDataRetrieved:
		if hdr.ACK() {
			return t.State, false
		}
		if hdr.Dst != e.ownAddr && hdr.Dst != protocol.AddrBroadcast {
			return t.State, false
		}
		if t.FilterSender && hdr.Src != t.FilterSenderVal {
			return t.State, false
		}

		needsAck := hdr.SIN() && hdr.Dst != protocol.AddrBroadcast

		if t.State == task.ReceiveDataRetrieved {
			// The application already drained this task's previous frame.
			// Only a retransmit of that same frame (same source and
			// packet-id, its ack presumably lost) is taken here, to be
			// re-acked without re-delivery; any other frame is left for
			// later tasks.
			own := t.Buffer.Header()
			if hdr.Src != own.Src || hdr.PktID != own.PktID {
				return t.State, false
			}
			if needsAck {
				e.ackQueue = append(e.ackQueue, ackRequest{dst: hdr.Src, pktid: hdr.PktID})
			}
			return t.State, true
		}

		if alreadySeen {
			// A plain RECEIVE task ignores a frame it has already seen:
			// the task that originally delivered it (or retrieved and
			// re-acked it) owns the response, not this one.
			return t.State, false
		}

		t.Buffer.CopyFrom(frame)
		t.AckOwed = needsAck
		t.SubscribedTimer = true
		t.Deadline = now.Add(e.dataAvailDelay)
		if t.RXConfig.Callback != nil {
			t.RXConfig.Callback(protocol.OK, frame.Payload(), hdr.Src)
		}
		return task.ReceiveDataAvailable, true
	}

	return t.State, false
}

// deliverTimer advances t past its elapsed deadline. Only called when t is
// subscribed to the timer and its deadline has passed.
func (e *Engine) deliverTimer(t *task.Task, now time.Time) task.State {
	switch t.State {
	case task.Send:
		if !t.AtListenWindow() {
			e.transmit(t, now)
		}
		if !t.AdvanceSchedule() {
			if t.NeedAck {
				t.FinalStatus = protocol.ErrSendNoAckRcvd
			} else if t.LastRetcode != 0 {
				t.FinalStatus = protocol.ErrSendIO
			} else {
				t.FinalStatus = protocol.OK
			}
			if t.Unattended {
				t.Deadline = now
			} else {
				t.Deadline = now.Add(e.sendPurgeDelay)
			}
			return task.SendDone
		}
		return task.Send

	case task.SendDone:
		return task.Finished

	case task.Receive:
		t.FinalStatus = protocol.ErrTimeout
		t.Deadline = now.Add(e.receivePurgeDelay)
		return task.ReceiveTimedout

	case task.ReceiveDataAvailable:
		t.FinalStatus = protocol.ErrTimeout
		t.Deadline = now.Add(e.receivePurgeDelay)
		return task.ReceiveTimedout

	case task.ReceiveDataRetrieved, task.ReceiveTimedout:
		return task.Finished
	}
	return t.State
}

// transmit sends t's current buffer over the driver, bumping the wire
// sequence counter for anything that is not itself an ack frame (acks are
// single-shot and carry no retransmit history worth diagnosing).
func (e *Engine) transmit(t *task.Task, now time.Time) {
	t.TransmitCount++

	err := e.driver.Send(t.Buffer.Encode())
	if err != nil {
		t.LastRetcode = 1
		e.log.WithError(err).WithField("task", t.ID).Warn("rflink: frame transmit failed")
	} else {
		t.LastRetcode = 0
	}

	if !t.IsAck {
		hdr := t.Buffer.Header()
		hdr.IncSeq()
		t.Buffer.SetHeader(hdr)
	}
}

// createAckTask materializes a fresh SEND task carrying an ACK frame for
// (dst, pktid). Called only after the current tick's task-dispatch loop has
// finished, so the ack is never visible before the tick following the
// frame that triggered it.
func (e *Engine) createAckTask(dst protocol.Address, pktid protocol.PacketID, now time.Time) {
	t := e.pool.Create(task.Send, now)
	if t == nil {
		e.log.Warn("rflink: task pool exhausted, dropping ack")
		return
	}

	hdr := protocol.Header{Dst: dst, Src: e.ownAddr}
	hdr.SetACK(true)
	hdr.PktID = pktid
	t.Buffer.PrepareForSend(hdr, nil)

	t.IsAck = true
	t.NeedAck = false
	t.Unattended = true
	t.SubscribedFrame = false
	t.ArmSchedule(task.SNDAck)
}
