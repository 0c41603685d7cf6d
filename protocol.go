package reqchan

import "sync/atomic"

// Code is the status result of the send/receive protocol operations (spec
// §6: "(code, reply?)" / "(code, request?)").
type Code int

const (
	// CodeOK indicates the operation completed without error.
	CodeOK Code = iota
	// CodeQueueFull indicates a data-queue push failed because the queue
	// was at capacity; the caller must retry later or drop the message.
	CodeQueueFull
	// CodeInactive indicates the operation was attempted on a channel
	// whose active flag is false.
	CodeInactive
)

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case CodeQueueFull:
		return "QUEUE_FULL"
	case CodeInactive:
		return "INACTIVE"
	default:
		return "UNKNOWN"
	}
}

// SendRequest implements spec §4.3.1: pushes msg onto the to-worker data
// queue, stamping sequence/ack, then applies the signal-elision policy
// (§4.3.3) deciding whether to wake the worker. On queue-full it
// opportunistically attempts one ReceiveReply and returns its result
// alongside CodeQueueFull, per §4.3.1 step 2 and testable property 6.
func (ch *Channel) SendRequest(msg *Message) (Code, *Message) {
	if !ch.Active() {
		return CodeInactive, nil
	}

	master := ch.end[EndpointToWorker]

	seq := master.Sequence + 1
	msg.SetSequence(seq)
	msg.SetAck(master.Ack())

	if !master.dataQueue.Push(msg) {
		return CodeQueueFull, ch.ReceiveReply()
	}

	wasIdle := master.NumOutstanding == 0
	master.Sequence = seq
	master.messageInterval.update(msg.When() - master.LastWrite)
	master.LastWrite = msg.When()
	master.NumOutstanding++

	if wasIdle {
		// num_outstanding went 0 -> 1: no reply can exist yet, so the
		// worker must be woken unconditionally (spec §4.3.1 step 4).
		ch.signal(EndpointToWorker, SignalDataToWorker)
		ch.observeMetrics()
		return CodeOK, nil
	}

	if reply := ch.ReceiveReply(); reply != nil && master.NumOutstanding > 0 {
		ch.observeMetrics()
		return CodeOK, reply
	}

	ch.maybeSignal(EndpointToWorker, SignalDataToWorker)
	ch.observeMetrics()
	return CodeOK, nil
}

// ReceiveReply implements spec §4.3.2: pops one reply from the
// from-worker data queue, validating it and folding its timing fields
// into the channel's aggregate estimators. Returns nil if the queue is
// empty.
func (ch *Channel) ReceiveReply() *Message {
	master := ch.end[EndpointToWorker]
	fromWorker := ch.end[EndpointFromWorker]

	msg := fromWorker.dataQueue.Pop()
	if msg == nil {
		return nil
	}

	ch.assert("receive_reply", msg.GetSequence() > master.Ack(), "reply sequence must exceed current ack")
	ch.assert("receive_reply", msg.GetSequence() <= master.Sequence, "reply sequence must not exceed requests sent")

	ch.processingTime.update(msg.GetProcessingTime())
	atomic.StoreUint64(&ch.cpuTime, msg.GetCPUTime())

	if master.NumOutstanding > 0 {
		master.NumOutstanding--
	}
	master.setAck(msg.GetSequence())
	master.LastReadOther = msg.When()

	return msg
}

// ReceiveRequest implements spec §4.3.4: symmetric to ReceiveReply with
// swapped endpoints, popping from the to-worker data queue.
func (ch *Channel) ReceiveRequest() *Message {
	worker := ch.end[EndpointFromWorker]
	toWorker := ch.end[EndpointToWorker]

	msg := toWorker.dataQueue.Pop()
	if msg == nil {
		return nil
	}

	ch.assert("receive_request", msg.GetSequence() > worker.Ack(), "request sequence must exceed current ack")
	ch.assert("receive_request", msg.GetSequence() >= worker.Sequence, "requests must outpace replies")

	worker.NumOutstanding++
	worker.setAck(msg.GetSequence())
	worker.LastReadOther = msg.When()

	return msg
}

// SendReply implements spec §4.3.5: mirrors SendRequest from the worker
// side, with the additional rule that num_outstanding reaching zero
// always triggers an unconditional SIGNAL_DATA_DONE_WORKER, since the
// master must learn the worker may shortly go idle even if there is
// fresh inbound data it hasn't yet seen.
func (ch *Channel) SendReply(msg *Message) (Code, *Message) {
	if !ch.Active() {
		return CodeInactive, nil
	}

	worker := ch.end[EndpointFromWorker]

	seq := worker.Sequence + 1
	msg.SetSequence(seq)
	msg.SetAck(worker.Ack())

	if !worker.dataQueue.Push(msg) {
		return CodeQueueFull, ch.ReceiveRequest()
	}

	worker.Sequence = seq
	worker.messageInterval.update(msg.When() - worker.LastWrite)
	worker.LastWrite = msg.When()
	if worker.NumOutstanding > 0 {
		worker.NumOutstanding--
	}

	if worker.NumOutstanding == 0 {
		ch.signal(EndpointFromWorker, SignalDataDoneWorker)
		ch.observeMetrics()
		return CodeOK, nil
	}

	if req := ch.ReceiveRequest(); req != nil && worker.NumOutstanding > 0 {
		ch.observeMetrics()
		return CodeOK, req
	}

	ch.maybeSignal(EndpointFromWorker, SignalDataFromWorker)
	ch.observeMetrics()
	return CodeOK, nil
}

// WorkerSleeping implements spec §4.3.6: called by the worker on its idle
// path. Posts SIGNAL_WORKER_SLEEPING unless the worker has nothing
// outstanding (in which case the master already knows it is caught up).
func (ch *Channel) WorkerSleeping() error {
	worker := ch.end[EndpointFromWorker]
	if worker.NumOutstanding == 0 {
		return nil
	}
	return ch.postSignal(EndpointFromWorker, SignalWorkerSleeping)
}

// signal unconditionally posts a signal for the given direction's sender
// endpoint and updates its bookkeeping, per spec §4.3.3's "when a signal
// is actually emitted" clause.
func (ch *Channel) signal(idx EndpointIndex, sig Signal) {
	e := ch.end[idx]
	when := ch.clock.NowNanos()
	e.LastSentSignal = when
	e.SequenceAtLastSignal = e.Sequence
	e.NumSignals++
	if err := ch.postSignal(idx, sig); err != nil {
		ch.logger().Err().Str("channel", ch.ID.String()).Str("signal", sig.String()).Log("reqchan: control queue full, signal dropped")
	}
}

func (ch *Channel) postSignal(idx EndpointIndex, sig Signal) error {
	e := ch.end[idx]
	if ch.metrics != nil {
		ch.metrics.incSignal(idx)
	}
	return e.control.send(ControlRecord{Signal: sig, Ack: e.Ack(), Channel: ch})
}

// maybeSignal applies the signal-elision policy of spec §4.3.3 to the
// given direction's sender endpoint: the coalesced-notifier fast path runs
// first and unconditionally (a signal the peer hasn't yet caught up to is
// always redundant on a reliably-coalescing notifier, whether or not the
// peer also happens to be behind window), then falls through to emitting
// the signal only if the peer is behind by more than the configured
// window, or idle beyond SIGNAL_INTERVAL, eliding otherwise.
func (ch *Channel) maybeSignal(idx EndpointIndex, sig Signal) {
	e := ch.end[idx]
	peerAck := ch.peerAck(idx)

	if ch.opts.coalescedNotify && e.SequenceAtLastSignal > peerAck {
		// Peer hasn't caught up to our prior signal yet; a fresh one
		// would be redundant on a reliably-coalescing notifier.
		return
	}

	behind := e.Sequence > peerAck && e.Sequence-peerAck > ch.opts.behindWindow
	if !behind {
		now := ch.clock.NowNanos()
		idleNoInbound := now-e.LastReadOther >= uint64(ch.opts.signalInterval)
		idleNoSignal := now-e.LastSentSignal >= uint64(ch.opts.signalInterval)
		if !(idleNoInbound && idleNoSignal) {
			return
		}
	}

	ch.signal(idx, sig)
}

// peerAck returns the peer's most recently observed ack value for the
// given sender direction: the ack the peer endpoint has recorded for
// messages sent in this direction, used by the signal-elision policy to
// judge how far behind the peer is.
func (ch *Channel) peerAck(idx EndpointIndex) uint64 {
	peer := ch.end[otherEndpoint(idx)]
	return peer.Ack()
}

func otherEndpoint(idx EndpointIndex) EndpointIndex {
	if idx == EndpointToWorker {
		return EndpointFromWorker
	}
	return EndpointToWorker
}

func (ch *Channel) observeMetrics() {
	if ch.metrics != nil {
		ch.metrics.observe()
	}
}
