package reqchan

// Notifier is the event-notifier external collaborator from package spec
// §6.2: a cross-thread wakeup primitive whose repeated fires, between two
// observations by the waiting side, coalesce into a single observed wake.
//
// Fire must be safe to call from any goroutine, including concurrently
// with itself. TryConsume/Wait are only ever called by the single goroutine
// that owns this Notifier (the thread being woken).
type Notifier interface {
	// Fire requests a wakeup. Idempotent with respect to coalescing: N
	// fires before the next observation produce exactly one wake.
	Fire()

	// Wait blocks the calling goroutine until Fire has been called at
	// least once since the last Wait/TryConsume returned, or the given
	// done channel is closed. Returns false if done fired first.
	Wait(done <-chan struct{}) bool

	// TryConsume reports and clears a pending wake without blocking. Used
	// by ServiceWake to confirm an observed OS-level event actually
	// corresponds to this notifier, per the Notifier.Service contract in
	// spec §6.2.
	TryConsume() bool

	// Close releases any OS resources held by the notifier.
	Close() error
}

// NewNotifier constructs the platform-appropriate Notifier: eventfd on
// Linux, a self-pipe watched by a kqueue (EVFILT_READ) on Darwin, and a
// buffered-channel fallback elsewhere. See notifier_linux.go,
// notifier_darwin.go and notifier_other.go.
func NewNotifier() (Notifier, error) {
	return newPlatformNotifier()
}

// chanNotifier is a portable Notifier, backed by a buffered Go channel
// with a single slot: sends are non-blocking and a full channel means a
// wake is already pending, giving the same coalescing property the
// kernel-level notifiers provide. It is the fallback newPlatformNotifier
// on platforms without a native coalescing wakeup primitive (see
// notifier_other.go), and is also useful directly in tests that want a
// Notifier without touching any OS resource, on any platform.
type chanNotifier struct {
	ch chan struct{}
}

// NewChanNotifier constructs the portable channel-backed Notifier
// directly, regardless of platform.
func NewChanNotifier() Notifier {
	return &chanNotifier{ch: make(chan struct{}, 1)}
}

func (n *chanNotifier) Fire() {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

func (n *chanNotifier) Wait(done <-chan struct{}) bool {
	select {
	case <-n.ch:
		return true
	case <-done:
		return false
	}
}

func (n *chanNotifier) TryConsume() bool {
	select {
	case <-n.ch:
		return true
	default:
		return false
	}
}

func (n *chanNotifier) Close() error {
	return nil
}
