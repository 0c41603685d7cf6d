package reqchan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchEventIdentity(t *testing.T) {
	ch := newTestChannel(t)

	cases := []struct {
		sig  Signal
		want Event
	}{
		{SignalError, EventError},
		{SignalDataToWorker, EventDataReadyWorker},
		{SignalDataFromWorker, EventDataReadyReceiver},
		{SignalOpen, EventOpen},
		{SignalClose, EventClose},
	}
	for _, tc := range cases {
		rec := &ControlRecord{Signal: tc.sig, Channel: ch}
		assert.Equal(t, tc.want, dispatch(rec))
	}
}

func TestServiceControlQueueEmpty(t *testing.T) {
	ctrl := NewControlQueue(4)
	event, ch := ServiceControlQueue(ctrl)
	assert.Equal(t, EventEmpty, event)
	assert.Nil(t, ch)
}

func TestServiceWakeNothingToDoWithoutFire(t *testing.T) {
	n := NewChanNotifier()
	defer n.Close()
	ctrl := NewControlQueue(4)

	var called bool
	result := ServiceWake(n, ctrl, func(Event, *Channel) { called = true })
	assert.Equal(t, WakeNothingToDo, result)
	assert.False(t, called)
}

func TestServiceWakeDrainsAllPendingRecords(t *testing.T) {
	ch := newTestChannel(t)
	ctrl := NewControlQueue(4)
	n := NewChanNotifier()
	defer n.Close()

	require.True(t, ctrl.Push(&ControlRecord{Signal: SignalDataToWorker, Channel: ch}))
	require.True(t, ctrl.Push(&ControlRecord{Signal: SignalDataFromWorker, Channel: ch}))
	n.Fire()

	var events []Event
	result := ServiceWake(n, ctrl, func(e Event, c *Channel) {
		events = append(events, e)
		assert.Same(t, ch, c)
	})
	assert.Equal(t, WakeServiced, result)
	assert.Equal(t, []Event{EventDataReadyWorker, EventDataReadyReceiver}, events)
}

func TestServiceWakeIncrementsNumKevents(t *testing.T) {
	masterCtrl := NewControlQueue(4)
	workerCtrl := NewControlQueue(4)
	masterNotifier := NewChanNotifier()
	workerNotifier := NewChanNotifier()
	t.Cleanup(func() {
		_ = masterNotifier.Close()
		_ = workerNotifier.Close()
	})

	ch, err := Create(masterNotifier, masterCtrl, workerNotifier, workerCtrl)
	require.NoError(t, err)

	// workerCtrl carries records posted to the worker (to_worker's peer
	// queue): servicing it must attribute to EndpointToWorker, never the
	// hardcoded default.
	require.True(t, workerCtrl.Push(&ControlRecord{Signal: SignalDataToWorker, Channel: ch}))
	workerNotifier.Fire()
	result := ServiceWake(workerNotifier, workerCtrl, func(Event, *Channel) {})
	assert.Equal(t, WakeServiced, result)
	assert.Equal(t, uint64(1), ch.end[EndpointToWorker].NumKevents)
	assert.Equal(t, uint64(0), ch.end[EndpointFromWorker].NumKevents)

	// masterCtrl carries records posted to the master (from_worker's peer
	// queue): servicing it must attribute to EndpointFromWorker instead.
	require.True(t, masterCtrl.Push(&ControlRecord{Signal: SignalDataFromWorker, Channel: ch}))
	masterNotifier.Fire()
	result = ServiceWake(masterNotifier, masterCtrl, func(Event, *Channel) {})
	assert.Equal(t, WakeServiced, result)
	assert.Equal(t, uint64(1), ch.end[EndpointToWorker].NumKevents)
	assert.Equal(t, uint64(1), ch.end[EndpointFromWorker].NumKevents)
}

func TestResignalIfBehindOnlyWhenAckTrailsSequence(t *testing.T) {
	ch := newTestChannel(t)
	toWorker := ch.end[EndpointToWorker]
	toWorker.Sequence = 5

	rec := &ControlRecord{Signal: SignalDataDoneWorker, Ack: 5, Channel: ch}
	event := dispatch(rec)
	assert.Equal(t, EventDataReadyReceiver, event)
	assert.Equal(t, uint64(0), toWorker.NumResignals, "ack caught up, no resignal expected")

	rec2 := &ControlRecord{Signal: SignalWorkerSleeping, Ack: 3, Channel: ch}
	event2 := dispatch(rec2)
	assert.Equal(t, EventNoop, event2)
	assert.Equal(t, uint64(1), toWorker.NumResignals, "ack behind sequence, one resignal expected")
}
