package reqchan

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/google/uuid"
)

// Channel is the bidirectional, thread-safe request/reply channel
// connecting a master (producer) endpoint to a worker (consumer)
// endpoint, as defined by the package specification. It is created by one
// party (conventionally the master), shared with the worker via an OPEN
// control record, and destroyed only after both sides have acknowledged
// CLOSE.
type Channel struct {
	// ID uniquely identifies this channel instance, for log/metric
	// correlation in a process hosting many channels (one per worker
	// thread); see SPEC_FULL.md §12.
	ID uuid.UUID

	active atomic.Bool
	opened atomic.Bool

	// masterClosing/workerClosing guard SignalWorkerClose/WorkerAckClose
	// idempotence independently of each other and of the shared active
	// flag: either side may initiate close, and the side that did not
	// initiate must still be able to post its own CLOSE acknowledgement
	// even though active is already false (spec §4.5, testable property
	// 7).
	masterClosing atomic.Bool
	workerClosing atomic.Bool

	end [2]*Endpoint

	// CPUTime and ProcessingTime are the aggregate, channel-level timing
	// estimators reported by the worker (spec §3), written only by the
	// master on reply reception.
	cpuTime        uint64
	processingTime smoothedEstimator

	opts    channelOptions
	clock   MonotonicClock
	metrics *channelMetrics
}

// Create constructs a new channel given the master's and worker's
// notifiers and control queues (spec §6: "channel_create"). The master's
// control queue is the queue the worker posts control records onto
// (addressed to the master), and vice versa. Endpoint queues (the bulk
// data path) are allocated internally at WithQueueCapacity (default
// DefaultQueueCapacity).
func Create(masterNotifier Notifier, masterCtrl *ControlQueue, workerNotifier Notifier, workerCtrl *ControlQueue, opts ...ChannelOption) (*Channel, error) {
	cfg := resolveChannelOptions(opts)
	clock := MonotonicClock(SystemClock{})

	ch := &Channel{
		ID:             uuid.New(),
		opts:           cfg,
		clock:          clock,
		processingTime: newSmoothedEstimator(cfg.emaInverseAlpha),
	}

	when := clock.NowNanos()

	toWorker := newEndpoint(
		NewDataQueue(cfg.queueCapacity),
		controlPlane{queue: workerCtrl, notifier: workerNotifier},
		cfg.emaInverseAlpha,
		when,
	)
	fromWorker := newEndpoint(
		NewDataQueue(cfg.queueCapacity),
		controlPlane{queue: masterCtrl, notifier: masterNotifier},
		cfg.emaInverseAlpha,
		when,
	)

	ch.end[EndpointToWorker] = toWorker
	ch.end[EndpointFromWorker] = fromWorker
	ch.active.Store(true)

	if cfg.metricsRegisterer != nil {
		ch.metrics = newChannelMetrics(ch, cfg.metricsRegisterer)
	}

	ch.logger().Info().Str("channel", ch.ID.String()).Log("reqchan: channel created")

	return ch, nil
}

// Active reports whether the channel is still active: no close has been
// initiated by either side yet.
func (ch *Channel) Active() bool {
	return ch.active.Load()
}

// CPUTime returns the most recent worker-reported CPU time for this
// channel's replies, in nanoseconds.
func (ch *Channel) CPUTime() uint64 {
	return atomic.LoadUint64(&ch.cpuTime)
}

// ProcessingTime returns the smoothed (EMA) worker processing time for
// this channel's replies, in nanoseconds.
func (ch *Channel) ProcessingTime() uint64 {
	return ch.processingTime.get()
}

// Endpoint returns the requested endpoint for direct inspection (e.g. by
// tests or diagnostics). Only the owning thread of that endpoint should
// mutate fields on the returned value; reads from the other side are
// diagnostic-only and may be stale.
func (ch *Channel) Endpoint(idx EndpointIndex) *Endpoint {
	return ch.end[idx]
}

// SignalOpen posts the OPEN control record announcing this channel to the
// worker's control plane (spec §4.5, "Open"). It is an error to call this
// more than once.
func (ch *Channel) SignalOpen() error {
	if ch.opened.Swap(true) {
		return ErrAlreadyOpen
	}
	toWorker := ch.end[EndpointToWorker]
	return toWorker.control.send(ControlRecord{Signal: SignalOpen, Ack: 0, Channel: ch})
}

// SignalWorkerClose initiates close from the master side: marks the
// channel inactive and posts CLOSE to the worker, encoding EndpointToWorker
// as the initiator in the record's Ack field (spec §4.5, "Close").
func (ch *Channel) SignalWorkerClose() error {
	if ch.masterClosing.Swap(true) {
		return ErrInactive
	}
	ch.active.Store(false)
	toWorker := ch.end[EndpointToWorker]
	err := toWorker.control.send(ControlRecord{Signal: SignalClose, Ack: uint64(EndpointToWorker), Channel: ch})
	ch.logger().Info().Str("channel", ch.ID.String()).Log("reqchan: close initiated by master")
	return err
}

// WorkerAckClose acknowledges (or, symmetrically, initiates) close from
// the worker side: marks the channel inactive and posts CLOSE to the
// master, encoding EndpointFromWorker as the initiator.
func (ch *Channel) WorkerAckClose() error {
	if ch.workerClosing.Swap(true) {
		return ErrInactive
	}
	ch.active.Store(false)
	fromWorker := ch.end[EndpointFromWorker]
	err := fromWorker.control.send(ControlRecord{Signal: SignalClose, Ack: uint64(EndpointFromWorker), Channel: ch})
	ch.logger().Info().Str("channel", ch.ID.String()).Log("reqchan: close acked by worker")
	return err
}

// WorkerReceiveOpen allocates the worker's half of the control plane upon
// receiving an OPEN event (spec §4.5): it is the worker-side counterpart
// of SignalOpen, called once the worker's scheduler observes an OPEN
// event for this channel.
func (ch *Channel) WorkerReceiveOpen(workerNotifier Notifier, workerOwnCtrl *ControlQueue) error {
	fromWorker := ch.end[EndpointFromWorker]
	if fromWorker.controlInitialized {
		return ErrDoubleReceiveOpen
	}
	fromWorker.control = controlPlane{queue: workerOwnCtrl, notifier: workerNotifier}
	fromWorker.controlInitialized = true
	return nil
}

// WorkerCtxSet attaches worker-owned state to the channel's worker
// endpoint (spec §6: worker_ctx_set).
func (ch *Channel) WorkerCtxSet(ctx any) {
	ch.end[EndpointFromWorker].ctx = ctx
}

// WorkerCtxGet retrieves worker-owned state previously attached via
// WorkerCtxSet (spec §6: worker_ctx_get).
func (ch *Channel) WorkerCtxGet() any {
	return ch.end[EndpointFromWorker].ctx
}

// controlQueueEndpoint identifies which endpoint posts records onto ctrl
// (ctrl being that endpoint's peer queue), so a drained control queue can
// be attributed to the right
// endpoint's diagnostic counters (spec §4.2; mirrors the original's
// `aq == ch->end[TO_WORKER].aq_control` comparison in
// fr_channel_service_kevent). Defaults to EndpointFromWorker when ctrl
// isn't EndpointToWorker's peer queue, matching the original's if/else.
func (ch *Channel) controlQueueEndpoint(ctrl *ControlQueue) EndpointIndex {
	if ch.end[EndpointToWorker].control.queue == ctrl {
		return EndpointToWorker
	}
	return EndpointFromWorker
}

// DebugDump writes a plain-text snapshot of both endpoints' diagnostic
// counters and sequence state to w, in the format of the original
// implementation's debug dump (see SPEC_FULL.md §12).
func (ch *Channel) DebugDump(w io.Writer) error {
	toWorker := ch.end[EndpointToWorker]
	fromWorker := ch.end[EndpointFromWorker]

	_, err := fmt.Fprintf(w,
		"to worker\n"+
			"\tnum_signals sent = %d\n"+
			"\tnum_signals re-sent = %d\n"+
			"\tnum_kevents checked = %d\n"+
			"\tsequence = %d\n"+
			"\tack = %d\n"+
			"to receive\n"+
			"\tnum_signals sent = %d\n"+
			"\tnum_kevents checked = %d\n"+
			"\tsequence = %d\n"+
			"\tack = %d\n",
		toWorker.NumSignals, toWorker.NumResignals, toWorker.NumKevents, toWorker.Sequence, toWorker.Ack(),
		fromWorker.NumSignals, fromWorker.NumKevents, fromWorker.Sequence, fromWorker.Ack(),
	)
	return err
}
