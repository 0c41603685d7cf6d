package reqchan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestChannel wires a Channel with portable, allocation-light
// collaborators (chanNotifier + small control queues) suitable for
// single-process tests.
func newTestChannel(t *testing.T, opts ...ChannelOption) *Channel {
	t.Helper()
	masterCtrl := NewControlQueue(16)
	workerCtrl := NewControlQueue(16)
	masterNotifier := NewChanNotifier()
	workerNotifier := NewChanNotifier()
	t.Cleanup(func() {
		_ = masterNotifier.Close()
		_ = workerNotifier.Close()
	})

	ch, err := Create(masterNotifier, masterCtrl, workerNotifier, workerCtrl, opts...)
	require.NoError(t, err)
	return ch
}

// S1 (ping): master sends one message, worker replies, master receives.
func TestScenarioS1Ping(t *testing.T) {
	ch := newTestChannel(t)

	req := &Message{WhenNanos: 100}
	code, piggyback := ch.SendRequest(req)
	require.Equal(t, CodeOK, code)
	assert.Nil(t, piggyback)

	got := ch.ReceiveRequest()
	require.NotNil(t, got)
	assert.Equal(t, uint64(1), got.Sequence)

	reply := &Message{WhenNanos: 200, ProcessingTime: 100, CPUTime: 100}
	code, _ = ch.SendReply(reply)
	require.Equal(t, CodeOK, code)

	out := ch.ReceiveReply()
	require.NotNil(t, out)

	assert.Equal(t, uint64(1), ch.end[EndpointToWorker].Sequence)
	assert.Equal(t, uint64(1), ch.end[EndpointToWorker].Ack())
	assert.Equal(t, 0, ch.end[EndpointToWorker].NumOutstanding)
	// EMA from 0 with sample 100, ialpha=8: (0 + 7*100)/8 = 87.
	assert.Equal(t, uint64(87), ch.ProcessingTime())
}

// S2 (burst): the master sends 10,000 messages back-to-back, without
// ever blocking to wait for a reply, while the worker concurrently
// drains and replies in order (exactly the two-thread concurrency model
// of spec §5). Control-record volume must stay O(N/BEHIND_WINDOW),
// not Θ(N).
func TestScenarioS2Burst(t *testing.T) {
	ch := newTestChannel(t)

	const n = 10_000
	done := make(chan struct{})

	go func() {
		defer close(done)
		// pending buffers requests not yet replied to: SendReply may
		// itself piggyback a freshly popped request on its return (spec
		// §4.3.5), so a request can arrive from either ReceiveRequest or
		// a prior SendReply call; both must eventually get a reply.
		var pending []*Message
		var replied int
		for replied < n {
			if len(pending) == 0 {
				req := ch.ReceiveRequest()
				if req == nil {
					continue
				}
				pending = append(pending, req)
			}
			req := pending[0]
			code, piggy := ch.SendReply(&Message{WhenNanos: req.WhenNanos + 1})
			if piggy != nil {
				pending = append(pending, piggy)
			}
			if code == CodeOK {
				pending = pending[1:]
				replied++
			}
		}
	}()

	// SendRequest may opportunistically piggyback a popped reply on its
	// return even on success (spec §4.3.1 step 7): count those here, or
	// the drain loop below would wait forever for replies it already
	// consumed and discarded.
	var received int
	for i := 0; i < n; i++ {
		msg := &Message{WhenNanos: uint64(i) * 1000}
		for {
			code, reply := ch.SendRequest(msg)
			if reply != nil {
				received++
			}
			if code == CodeOK {
				break
			}
		}
	}

	deadline := time.After(10 * time.Second)
	for received < n {
		if reply := ch.ReceiveReply(); reply != nil {
			received++
			continue
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for replies: got %d/%d", received, n)
		default:
		}
	}

	<-done

	assert.LessOrEqual(t, int(ch.end[EndpointToWorker].NumSignals), 40, "signal volume must stay roughly O(N/BEHIND_WINDOW)")
	assert.Equal(t, 0, ch.end[EndpointToWorker].NumOutstanding)
	assert.Equal(t, 0, ch.end[EndpointFromWorker].NumOutstanding)
}

// S3 (queue-full): 1025 sends without the worker draining; the 1025th
// push must fail and report an empty piggyback reply, while the channel
// stays active and later sends succeed once the worker has drained some.
func TestScenarioS3QueueFull(t *testing.T) {
	ch := newTestChannel(t) // default capacity 1024

	for i := 0; i < 1024; i++ {
		code, _ := ch.SendRequest(&Message{WhenNanos: uint64(i)})
		require.Equal(t, CodeOK, code)
	}

	code, piggyback := ch.SendRequest(&Message{WhenNanos: 1024})
	assert.Equal(t, CodeQueueFull, code)
	assert.Nil(t, piggyback)
	assert.True(t, ch.Active())

	// Drain one and retry.
	req := ch.ReceiveRequest()
	require.NotNil(t, req)

	code, _ = ch.SendRequest(&Message{WhenNanos: 1025})
	assert.Equal(t, CodeOK, code)
}

// S4 (idle wake): the very first send on an idle endpoint always signals
// unconditionally (spec §4.3.1 step 4), so the worker observes exactly
// one control record immediately, well within any SIGNAL_INTERVAL-based
// bound.
func TestScenarioS4IdleWake(t *testing.T) {
	ch := newTestChannel(t)

	code, _ := ch.SendRequest(&Message{WhenNanos: 1})
	require.Equal(t, CodeOK, code)

	workerCtrl := ch.end[EndpointToWorker].control.queue
	event, gotCh := ServiceControlQueue(workerCtrl)
	require.Equal(t, EventDataReadyWorker, event)
	assert.Same(t, ch, gotCh)

	assert.Equal(t, uint64(1), ch.end[EndpointToWorker].NumSignals)
}

// S5 (re-signal): master sends two messages, the second signal elided;
// the worker has only consumed the first and reports WORKER_SLEEPING
// with ack=1 while to_worker.sequence=2. The dispatcher must emit a
// fresh DATA_TO_WORKER signal and count a resignal.
func TestScenarioS5Resignal(t *testing.T) {
	ch := newTestChannel(t)

	_, _ = ch.SendRequest(&Message{WhenNanos: 1})
	_, _ = ch.SendRequest(&Message{WhenNanos: 2})
	require.Equal(t, uint64(2), ch.end[EndpointToWorker].Sequence)

	// Worker drains only the first request, leaving it behind.
	req := ch.ReceiveRequest()
	require.NotNil(t, req)
	require.Equal(t, uint64(1), ch.end[EndpointFromWorker].Ack())

	require.NoError(t, ch.WorkerSleeping())

	masterCtrl := ch.end[EndpointFromWorker].control.queue
	before := ch.end[EndpointToWorker].NumResignals
	event, gotCh := ServiceControlQueue(masterCtrl)
	require.Equal(t, EventNoop, event)
	assert.Same(t, ch, gotCh)

	assert.Equal(t, before+1, ch.end[EndpointToWorker].NumResignals)
}

// S6 (close handshake): master initiates close; worker observes CLOSE and
// acks; master observes the acknowledging CLOSE. Both sides end up
// inactive and further sends are rejected.
func TestScenarioS6CloseHandshake(t *testing.T) {
	ch := newTestChannel(t)

	require.NoError(t, ch.SignalOpen())
	workerCtrl := ch.end[EndpointToWorker].control.queue
	event, _ := ServiceControlQueue(workerCtrl)
	require.Equal(t, EventOpen, event)

	require.NoError(t, ch.SignalWorkerClose())
	assert.False(t, ch.Active())

	event, gotCh := ServiceControlQueue(workerCtrl)
	require.Equal(t, EventClose, event)
	require.NoError(t, gotCh.WorkerAckClose())

	masterCtrl := ch.end[EndpointFromWorker].control.queue
	event, _ = ServiceControlQueue(masterCtrl)
	require.Equal(t, EventClose, event)

	assert.False(t, ch.Active())
	code, _ := ch.SendRequest(&Message{WhenNanos: 1})
	assert.Equal(t, CodeInactive, code)

	// Second close attempt from either side is a no-op, not a re-send.
	assert.ErrorIs(t, ch.SignalWorkerClose(), ErrInactive)
}

func TestSignalOpenTwiceIsError(t *testing.T) {
	ch := newTestChannel(t)
	require.NoError(t, ch.SignalOpen())
	assert.ErrorIs(t, ch.SignalOpen(), ErrAlreadyOpen)
}

func TestDebugDump(t *testing.T) {
	ch := newTestChannel(t)
	_, _ = ch.SendRequest(&Message{WhenNanos: 1})

	var buf writerFunc
	var out string
	buf = func(p []byte) (int, error) {
		out += string(p)
		return len(p), nil
	}
	require.NoError(t, ch.DebugDump(buf))
	assert.Contains(t, out, "to worker")
	assert.Contains(t, out, "sequence = 1")
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

func TestWithCoalescedNotifierSkipsRedundantSignal(t *testing.T) {
	ch := newTestChannel(t, WithCoalescedNotifier(true), WithBehindWindow(100000))

	_, _ = ch.SendRequest(&Message{WhenNanos: 1})
	before := ch.end[EndpointToWorker].NumSignals

	// Immediately retrying without the peer having caught up should be
	// elided by the coalesced-notifier fast path.
	_, _ = ch.SendRequest(&Message{WhenNanos: 2})
	assert.Equal(t, before, ch.end[EndpointToWorker].NumSignals)
}

func TestCoalescedFastPathElidesEvenWhenBehindWindow(t *testing.T) {
	ch := newTestChannel(t, WithCoalescedNotifier(true), WithBehindWindow(1))
	toWorker := ch.end[EndpointToWorker]

	// Peer is far past behind-window (9 > BehindWindow=1) but still hasn't
	// caught up to the sequence at which we last signaled: the coalesced
	// fast path must elide regardless, since it runs unconditionally ahead
	// of the behind-window check, not only when the peer isn't behind.
	toWorker.Sequence = 10
	toWorker.SequenceAtLastSignal = 5
	ch.end[EndpointFromWorker].setAck(1)

	before := toWorker.NumSignals
	ch.maybeSignal(EndpointToWorker, SignalDataToWorker)
	assert.Equal(t, before, toWorker.NumSignals, "coalesced fast path must elide even though peer is past behind-window")
}

func TestWithSignalIntervalEnablesIdleResignal(t *testing.T) {
	ch := newTestChannel(t, WithSignalInterval(time.Millisecond), WithBehindWindow(100000))

	_, _ = ch.SendRequest(&Message{WhenNanos: 1})
	before := ch.end[EndpointToWorker].NumSignals

	time.Sleep(2 * time.Millisecond)
	_, _ = ch.SendRequest(&Message{WhenNanos: 2})
	assert.Greater(t, ch.end[EndpointToWorker].NumSignals, before)
}
