package reqchan

// Signal identifies the kind of control record posted on a peer's control
// queue. The first five values share numeric identity with the
// corresponding Event values (package spec §6, "Event enumeration"): a
// control record's Signal can be returned directly as an Event by the
// dispatcher for those five.
type Signal int32

const (
	SignalError Signal = iota
	SignalDataToWorker
	SignalDataFromWorker
	SignalOpen
	SignalClose

	// The following have no Event with identical numeric identity; the
	// dispatcher maps them to a different Event (see dispatcher.go).
	SignalDataDoneWorker
	SignalWorkerSleeping
)

func (s Signal) String() string {
	switch s {
	case SignalError:
		return "ERROR"
	case SignalDataToWorker:
		return "DATA_TO_WORKER"
	case SignalDataFromWorker:
		return "DATA_FROM_WORKER"
	case SignalOpen:
		return "OPEN"
	case SignalClose:
		return "CLOSE"
	case SignalDataDoneWorker:
		return "DATA_DONE_WORKER"
	case SignalWorkerSleeping:
		return "WORKER_SLEEPING"
	default:
		return "UNKNOWN"
	}
}

// Event is the channel-event enumeration observable at the package
// boundary (spec §6). Its first five values share numeric identity with
// the corresponding Signal values above.
type Event int32

const (
	EventError Event = iota
	EventDataReadyWorker
	EventDataReadyReceiver
	EventOpen
	EventClose
	EventNoop
	EventEmpty
)

func (e Event) String() string {
	switch e {
	case EventError:
		return "ERROR"
	case EventDataReadyWorker:
		return "DATA_READY_WORKER"
	case EventDataReadyReceiver:
		return "DATA_READY_RECEIVER"
	case EventOpen:
		return "OPEN"
	case EventClose:
		return "CLOSE"
	case EventNoop:
		return "NOOP"
	case EventEmpty:
		return "EMPTY"
	default:
		return "UNKNOWN"
	}
}

// ControlRecord is the fixed-layout triple posted on a peer's control
// queue to request a wake (spec §3, "Control record").
type ControlRecord struct {
	Signal Signal
	// Ack carries the sender's ack sequence for most signals. For
	// SignalClose specifically, it instead carries which endpoint index
	// (EndpointToWorker or EndpointFromWorker) initiated the close; see
	// the Lifecycle section of the spec and the Design Notes' discussion
	// of this field reuse.
	Ack     uint64
	Channel *Channel
}

// controlPlane bundles a peer's control queue with the peer's notifier: it
// is "the handle for posting to the peer's control queue + firing the
// peer's notifier" described for Endpoint.control in spec §3.
type controlPlane struct {
	queue    *ControlQueue
	notifier Notifier
}

// send posts a record and fires the peer's notifier. Returns
// ErrControlQueueFull if the queue rejected the push (fatal at the
// protocol level per spec §7).
func (c *controlPlane) send(r ControlRecord) error {
	if !c.queue.Push(&r) {
		return ErrControlQueueFull
	}
	c.notifier.Fire()
	return nil
}
