// Package reqchan implements a bidirectional, thread-safe request/reply
// channel connecting a producer endpoint (the "master" that dispatches
// work) to a consumer endpoint (the "worker" that processes it).
//
// # Architecture
//
// A [Channel] is owned jointly by two goroutines and is built from two
// symmetric [Endpoint] values, indexed ToWorker and FromWorker. Each
// endpoint pairs a lock-free bounded [DataQueue] of opaque message handles
// (bulk data, written by this endpoint's side and read by the peer) with a
// [Notifier] belonging to
// the peer (a scarce control-plane wakeup). Sequence/ACK counters on each
// endpoint let either side observe how far its peer has progressed, and a
// signal-elision policy decides when a control record is worth posting
// instead of letting the peer discover new data on its next drain.
//
// # Throughput model
//
// The data path ([Channel.SendRequest], [Channel.ReceiveReply],
// [Channel.ReceiveRequest], [Channel.SendReply]) never blocks: queue-full
// and empty are both ordinary, non-error return values. Only the control
// path ([ServiceControlQueue], [ServiceWake]) may involve a blocking wait
// (on the notifier, via [Notifier.Wait]), and that wait lives in the
// surrounding scheduler, not in this package.
//
// # Platform support
//
// The bundled [Notifier] implementation uses platform-native coalescing
// wakeup primitives:
//   - Linux: eventfd
//   - Darwin: a self-pipe whose read end is watched by a kqueue (EVFILT_READ)
//   - other platforms (including the BSDs): a buffered Go channel
//
// # Usage
//
//	ch, err := reqchan.Create(masterNotifier, masterCtrl, workerNotifier, workerCtrl)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := ch.SignalOpen(); err != nil {
//	    log.Fatal(err)
//	}
//
//	status, reply := ch.SendRequest(msg)
//	...
//	req := ch.ReceiveRequest()
package reqchan
