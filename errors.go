package reqchan

import (
	"errors"
	"fmt"
)

// Sentinel errors returned from the channel's control-plane operations.
//
// These are never returned from the hot data path: [Channel.SendRequest],
// [Channel.ReceiveReply], [Channel.ReceiveRequest] and [Channel.SendReply]
// report queue-full/empty as ordinary [Code] values, not errors, per
// spec.
var (
	// ErrAlreadyOpen is returned by SignalOpen when called more than once
	// on the same channel.
	ErrAlreadyOpen = errors.New("reqchan: channel already open")

	// ErrInactive is returned by SignalWorkerClose or WorkerAckClose when
	// that side has already posted its CLOSE. SignalOpen and
	// WorkerSleeping do not check the active flag and never return it;
	// the send operations report an inactive channel as CodeInactive.
	ErrInactive = errors.New("reqchan: channel is not active")

	// ErrControlQueueFull is returned when a control record cannot be
	// posted because the peer's control queue rejected the push. Unlike
	// data-queue-full, this is treated as fatal at the protocol level:
	// control records are small and rare, so a full control queue means
	// the peer has stopped draining it.
	ErrControlQueueFull = errors.New("reqchan: control queue full")

	// ErrDoubleReceiveOpen is returned if the worker's receive-side
	// control plane is initialized a second time.
	ErrDoubleReceiveOpen = errors.New("reqchan: worker control plane already initialized")
)

// ProtocolError reports a violation of one of the channel's invariants
// (see the Invariants section of the package specification): a regressed
// sequence number, an ACK that outruns the peer's sequence, or a
// reply/request observed out of the expected order.
//
// These indicate a programming error by a caller of this package (feeding
// it a message with a corrupted sequence/ack, or calling the protocol
// functions from both directions on the same endpoint, etc.) and are never
// expected in a correct deployment. In builds compiled with the
// "reqchan_debug" tag, assert panics instead of returning this error;
// see assert in debug.go / debug_release.go.
type ProtocolError struct {
	// Op names the operation that detected the violation, e.g.
	// "receive_reply".
	Op string
	// Msg describes the specific invariant that failed.
	Msg string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("reqchan: protocol violation in %s: %s", e.Op, e.Msg)
}

// Is implements matching against ErrProtocol via errors.Is, regardless of
// the specific Op/Msg content.
func (e *ProtocolError) Is(target error) bool {
	_, ok := target.(*ProtocolError)
	return ok
}

// ErrProtocol is a sentinel usable with errors.Is(err, reqchan.ErrProtocol)
// to detect any ProtocolError without matching its fields.
var ErrProtocol = &ProtocolError{}

func newProtocolError(op, msg string) *ProtocolError {
	return &ProtocolError{Op: op, Msg: msg}
}
