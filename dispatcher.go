package reqchan

// WakeResult reports the outcome of ServiceWake (spec §4.1:
// "service_wake(event) ... returns 'nothing to do' if the wake did not
// correspond to a pending control record").
type WakeResult int

const (
	// WakeNothingToDo indicates the observed OS-level wake did not
	// correspond to a pending control record on this notifier.
	WakeNothingToDo WakeResult = iota
	// WakeServiced indicates one or more control records were drained
	// and dispatched.
	WakeServiced
)

// ServiceControlQueue implements spec §4.4/§6: pops one control record
// from ctrl and returns the corresponding Event along with the channel it
// refers to (a control queue may carry records addressed to more than
// one Channel sharing the same receiver thread). Returns (EventEmpty,
// nil) if the queue has nothing pending. Invoked by either thread on a
// drain of its own control queue.
func ServiceControlQueue(ctrl *ControlQueue) (Event, *Channel) {
	rec := ctrl.Pop()
	if rec == nil {
		return EventEmpty, nil
	}
	return dispatch(rec), rec.Channel
}

// dispatch maps a popped ControlRecord to its observable Event, applying
// the re-signaling rule of spec §4.4 for DATA_DONE_WORKER and
// WORKER_SLEEPING.
func dispatch(rec *ControlRecord) Event {
	switch rec.Signal {
	case SignalError:
		return EventError
	case SignalDataToWorker:
		return EventDataReadyWorker
	case SignalDataFromWorker:
		return EventDataReadyReceiver
	case SignalOpen:
		return EventOpen
	case SignalClose:
		return EventClose
	case SignalDataDoneWorker:
		rec.Channel.resignalIfBehind(rec)
		return EventDataReadyReceiver
	case SignalWorkerSleeping:
		rec.Channel.resignalIfBehind(rec)
		return EventNoop
	default:
		return EventError
	}
}

// resignalIfBehind implements the master-side re-signaling rule of spec
// §4.4: when a DATA_DONE_WORKER or WORKER_SLEEPING record is dispatched,
// compare the record's ack to to_worker.sequence. If the worker is
// behind despite having just signaled (it missed the most recent
// messages), emit a fresh DATA_TO_WORKER signal and count a resignal.
func (ch *Channel) resignalIfBehind(rec *ControlRecord) {
	toWorker := ch.end[EndpointToWorker]
	ch.assert("resignal", rec.Ack <= toWorker.Sequence, "record ack must never exceed to_worker sequence")

	if rec.Ack == toWorker.Sequence {
		return
	}

	toWorker.NumResignals++
	if ch.metrics != nil {
		ch.metrics.incResignal(EndpointToWorker)
	}
	ch.signal(EndpointToWorker, SignalDataToWorker)
}

// ServiceWake implements spec §6's service_wake(ch, ctrl_queue, event):
// called by a thread after its Notifier reports an OS-level wakeup, to
// confirm the wake actually corresponds to this notifier (TryConsume)
// and, if so, fully drain ctrl, invoking handle once per dispatched
// (Event, Channel) pair. Each dispatched record also increments
// NumKevents on whichever endpoint ctrl belongs to (spec §4.2; see
// Channel.controlQueueEndpoint), not a fixed endpoint, since ctrl may be
// either side's control queue depending on which thread calls this.
// Returns WakeNothingToDo without calling handle if the wake did not
// correspond to a pending record.
func ServiceWake(n Notifier, ctrl *ControlQueue, handle func(Event, *Channel)) WakeResult {
	if !n.TryConsume() {
		return WakeNothingToDo
	}

	serviced := false
	for {
		event, ch := ServiceControlQueue(ctrl)
		if event == EventEmpty {
			break
		}
		serviced = true
		if ch != nil {
			idx := ch.controlQueueEndpoint(ctrl)
			ch.end[idx].NumKevents++
			if ch.metrics != nil {
				ch.metrics.incKevent(idx)
			}
		}
		handle(event, ch)
	}

	if !serviced {
		return WakeNothingToDo
	}
	return WakeServiced
}
