package reqchan

import "sync/atomic"

// EndpointIndex identifies which of the two endpoints of a Channel a value
// refers to (spec §2/§3: "two endpoints indexed {TO_WORKER=0,
// FROM_WORKER=1}").
type EndpointIndex int

const (
	// EndpointToWorker is the master-owned, worker-read direction.
	EndpointToWorker EndpointIndex = 0
	// EndpointFromWorker is the worker-owned, master-read direction.
	EndpointFromWorker EndpointIndex = 1
)

func (i EndpointIndex) String() string {
	if i == EndpointToWorker {
		return "to_worker"
	}
	return "from_worker"
}

// Endpoint is one side of a Channel: the side from which this direction's
// data flows out (spec §3, "Endpoint"). Its mutable fields are written
// only by the thread that owns this side (it writes Sequence when sending,
// and Ack/NumOutstanding as it sends and receives), so no locking is required for most
// of them; see the package spec's Concurrency & Resource Model. Ack is the
// one exception: the signal-elision policy (§4.3.3) has the *peer*
// endpoint read it directly, outside the data/control queues, to judge
// how far behind it is, so it is kept as an atomic value (spec §9 flags
// this cross-thread read in the original design and asks implementers to
// make the synchronization explicit).
type Endpoint struct {
	// dataQueue holds outbound message handles, written by this endpoint,
	// read by the peer.
	dataQueue *DataQueue

	// control posts records to the peer's control queue and fires the
	// peer's notifier.
	control controlPlane

	// Sequence is the monotonically increasing count of messages this
	// endpoint has sent.
	Sequence uint64

	// ack is the highest Sequence value this endpoint has observed on a
	// message received from the peer. Read cross-thread by the peer's
	// signal-elision policy, hence atomic; see Ack/setAck.
	ack atomic.Uint64

	// NumOutstanding counts sent messages with no observed reply yet
	// (sender semantics) or received-but-not-replied-to requests
	// (receiver semantics).
	NumOutstanding int

	// Diagnostic counters, per spec §3/§4.2. Owned and updated only by
	// this endpoint's thread; never synchronized.
	NumSignals   uint64
	NumResignals uint64
	NumKevents   uint64

	// Timestamps, monotonic nanoseconds; each only ever advances.
	LastWrite            uint64
	LastReadOther        uint64
	LastSentSignal       uint64
	SequenceAtLastSignal uint64

	messageInterval smoothedEstimator

	// ctx is the opaque per-endpoint slot the consumer side may attach
	// its own state to (spec §3; worker_ctx_set/worker_ctx_get in §6).
	ctx any

	// controlInitialized records whether this endpoint's control plane
	// has already been set up by WorkerReceiveOpen, guarding against a
	// double call (spec §4.5, "Open").
	controlInitialized bool
}

func newEndpoint(dq *DataQueue, ctrl controlPlane, ialpha uint64, when uint64) *Endpoint {
	return &Endpoint{
		dataQueue:       dq,
		control:         ctrl,
		LastWrite:       when,
		LastReadOther:   when,
		LastSentSignal:  when,
		messageInterval: newSmoothedEstimator(ialpha),
	}
}

// MessageInterval returns the current smoothed inter-message interval, in
// nanoseconds.
func (e *Endpoint) MessageInterval() uint64 {
	return e.messageInterval.get()
}

// Ack returns the highest peer sequence this endpoint has observed. Safe
// to call from either thread.
func (e *Endpoint) Ack() uint64 {
	return e.ack.Load()
}

// setAck records a newly observed peer sequence; called only by this
// endpoint's owning thread.
func (e *Endpoint) setAck(v uint64) {
	e.ack.Store(v)
}
