//go:build linux

package reqchan

import (
	"sync"

	"golang.org/x/sys/unix"
)

// eventfdNotifier is a Notifier backed by a Linux eventfd in its default
// (non-semaphore) counter mode. eventfd's counter already coalesces: any number of writes before
// a read collapse into a single non-zero read, which is exactly the
// coalescing property spec §4.1 requires of the notifier.
//
// Grounded on the teacher's wakeup_linux.go createWakeFd/drainWakeUpPipe
// pair, adapted from a single process-wide wake fd into one Notifier per
// endpoint.
type eventfdNotifier struct {
	fd int

	mu     sync.Mutex
	waitCh chan struct{} // closed exactly once per observed wake, then replaced
}

func newPlatformNotifier() (Notifier, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, err
	}
	n := &eventfdNotifier{fd: fd, waitCh: make(chan struct{})}
	go n.pump()
	return n, nil
}

// pump turns the eventfd into a Go-native wait primitive: it blocks in a
// (nonblocking-fd-friendly) poll loop and closes/replaces waitCh each time
// the eventfd reports readiness, so Wait can select on a channel instead
// of entering the kernel itself.
func (n *eventfdNotifier) pump() {
	var buf [8]byte
	for {
		_, err := unix.Read(n.fd, buf[:])
		if err != nil {
			if err == unix.EAGAIN {
				fds := []unix.PollFd{{Fd: int32(n.fd), Events: unix.POLLIN}}
				if _, perr := unix.Poll(fds, -1); perr != nil {
					return
				}
				continue
			}
			return // fd closed
		}
		n.wake()
	}
}

func (n *eventfdNotifier) wake() {
	n.mu.Lock()
	ch := n.waitCh
	n.waitCh = make(chan struct{})
	n.mu.Unlock()
	close(ch)
}

func (n *eventfdNotifier) Fire() {
	var buf [8]byte
	buf[7] = 1
	_, _ = unix.Write(n.fd, buf[:])
}

func (n *eventfdNotifier) Wait(done <-chan struct{}) bool {
	n.mu.Lock()
	ch := n.waitCh
	n.mu.Unlock()
	select {
	case <-ch:
		n.consume(ch)
		return true
	case <-done:
		return false
	}
}

func (n *eventfdNotifier) TryConsume() bool {
	n.mu.Lock()
	ch := n.waitCh
	n.mu.Unlock()
	select {
	case <-ch:
		n.consume(ch)
		return true
	default:
		return false
	}
}

// consume replaces waitCh with a fresh, unclosed channel if it still
// points at the one just observed closed, so a wake is reported at most
// once: without this, every Wait/TryConsume call between this wake and
// the next real Fire would keep observing the same closed channel.
func (n *eventfdNotifier) consume(observed chan struct{}) {
	n.mu.Lock()
	if n.waitCh == observed {
		n.waitCh = make(chan struct{})
	}
	n.mu.Unlock()
}

func (n *eventfdNotifier) Close() error {
	return unix.Close(n.fd)
}
