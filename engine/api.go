package engine

import (
	"github.com/gorflink/rflink/protocol"
	"github.com/gorflink/rflink/task"
)

// SendNoBlock creates a new outgoing task carrying payload addressed to
// dst. If needAck, the task arms the ack-expecting schedule and its final
// status only resolves to OK once a matching ack is observed (or
// ErrSendNoAckRcvd once the schedule is exhausted without one). Returns the
// task id to poll via SendGetFinalStatus or TaskGetStatus.
func (e *Engine) SendNoBlock(dst protocol.Address, payload []byte, needAck bool) (task.ID, protocol.Result) {
	if len(payload) > e.maxPayload {
		return 0, protocol.ErrSendDataLenAboveLimit
	}

	now := e.platform.Now()
	t := e.pool.Create(task.Send, now)
	if t == nil {
		return 0, protocol.ErrUnableToCreateTask
	}

	hdr := protocol.Header{Dst: dst, Src: e.ownAddr, PktID: e.nextPacketID()}
	hdr.SetSIN(needAck && dst != protocol.AddrBroadcast)
	t.Buffer.PrepareForSend(hdr, payload)

	t.NeedAck = hdr.SIN()
	t.SubscribedFrame = t.NeedAck
	if t.NeedAck {
		t.ArmSchedule(task.SNDExpAck)
	} else {
		t.ArmSchedule(task.SND)
	}

	e.log.WithFields(map[string]interface{}{
		"task": t.ID, "dst": dst, "pktid": hdr.PktID, "need_ack": t.NeedAck,
	}).Debug("rflink: send task created")

	return t.ID, protocol.TaskCreatedOK
}

// ReceiveNoBlock creates a new incoming task that waits for a frame
// matching cfg. Returns the task id to poll via DataRetrieve or
// TaskGetStatus.
func (e *Engine) ReceiveNoBlock(cfg task.RXConfig) (task.ID, protocol.Result) {
	now := e.platform.Now()
	t := e.pool.Create(task.Receive, now)
	if t == nil {
		return 0, protocol.ErrUnableToCreateTask
	}

	t.RXConfig = cfg
	t.SubscribedFrame = true
	t.FilterSender = cfg.HasSender
	t.FilterSenderVal = cfg.Sender

	if cfg.HasTimeout {
		t.SubscribedTimer = true
		t.Deadline = now.Add(cfg.Timeout)
	}

	return t.ID, protocol.TaskCreatedOK
}

// DataRetrieve collects a delivered payload from a task in
// ReceiveDataAvailable, transitioning it to ReceiveDataRetrieved so a late
// duplicate retransmit can still be re-acked without re-delivering the
// payload to the application. This is also the point at which an ack owed
// for the retrieved frame is actually sent: if the application never
// retrieves the payload, the task instead times out and no ack is ever
// transmitted. Safe to call from outside the per-tick dispatch loop: the
// task's own state governs whether an immediate ack is still owed, not this
// call.
func (e *Engine) DataRetrieve(id task.ID) ([]byte, protocol.Address, protocol.Result) {
	t := e.pool.Get(id)
	if t == nil {
		return nil, 0, protocol.ErrUnknownTaskID
	}
	if t.State != task.ReceiveDataAvailable {
		return nil, 0, protocol.TaskUnderway
	}

	payload := t.Buffer.Payload()
	out := make([]byte, len(payload))
	copy(out, payload)
	hdr := t.Buffer.Header()
	sender := hdr.Src

	now := e.platform.Now()
	if t.AckOwed {
		e.createAckTask(hdr.Src, hdr.PktID, now)
		t.AckOwed = false
	}

	t.Buffer.ShrinkToHeader()
	t.State = task.ReceiveDataRetrieved
	t.SubscribedTimer = true
	t.Deadline = now.Add(e.receivePurgeDelay)
	t.FinalStatus = protocol.OK

	return out, sender, protocol.OK
}

// SendGetFinalStatus reports a send task's terminal outcome together with
// the number of times it was transmitted. Returns TaskUnderway (and a
// meaningless count) while the task is still running its schedule, and
// ErrUnknownTaskID once the task has been destroyed (SendDone's purge delay
// elapsed) without the caller having polled it in time.
func (e *Engine) SendGetFinalStatus(id task.ID) (protocol.Result, int) {
	t := e.pool.Get(id)
	if t == nil {
		return protocol.ErrUnknownTaskID, 0
	}
	if t.State != task.SendDone {
		return protocol.TaskUnderway, t.TransmitCount
	}
	return t.FinalStatus, t.TransmitCount
}

// TaskGetStatus reports a task's current state machine node, restoring the
// original's task_get_status diagnostic accessor.
func (e *Engine) TaskGetStatus(id task.ID) (task.State, bool) {
	t := e.pool.Get(id)
	if t == nil {
		return task.Nothing, false
	}
	return t.State, true
}
