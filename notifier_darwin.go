//go:build darwin

package reqchan

import (
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// pipeNotifier is a Notifier backed by a non-blocking self-pipe plus a
// private kqueue, giving the same "repeated fires coalesce into one wake"
// property as Linux's eventfd: Fire writes a single byte only if the pipe
// is currently empty (best-effort; a full pipe already means a wake is
// pending), and the pump goroutine drains the pipe completely on each
// wake so a burst of Fire calls collapses into one observed wake.
//
// Grounded on the teacher's wakeup_darwin.go createWakeFd/drainWakeUpPipe
// pair (self-pipe) and poller_darwin.go's kqueue usage, adapted from a
// process-wide wake fd into one Notifier per endpoint.
type pipeNotifier struct {
	kq       int
	readFd   int
	writeFd  int
	fired    sync.Mutex // guards the "is a byte already in flight" check
	inFlight bool

	mu     sync.Mutex
	waitCh chan struct{}
}

func newPlatformNotifier() (Notifier, error) {
	var fds [2]int
	if err := syscall.Pipe(fds[:]); err != nil {
		return nil, err
	}
	_ = syscall.CloseOnExec(fds[0])
	_ = syscall.CloseOnExec(fds[1])
	if err := syscall.SetNonblock(fds[0], true); err != nil {
		syscall.Close(fds[0])
		syscall.Close(fds[1])
		return nil, err
	}
	if err := syscall.SetNonblock(fds[1], true); err != nil {
		syscall.Close(fds[0])
		syscall.Close(fds[1])
		return nil, err
	}

	kq, err := unix.Kqueue()
	if err != nil {
		syscall.Close(fds[0])
		syscall.Close(fds[1])
		return nil, err
	}

	ev := unix.Kevent_t{Ident: uint64(fds[0]), Filter: unix.EVFILT_READ, Flags: unix.EV_ADD | unix.EV_ENABLE}
	if _, err := unix.Kevent(kq, []unix.Kevent_t{ev}, nil, nil); err != nil {
		unix.Close(kq)
		syscall.Close(fds[0])
		syscall.Close(fds[1])
		return nil, err
	}

	n := &pipeNotifier{kq: kq, readFd: fds[0], writeFd: fds[1], waitCh: make(chan struct{})}
	go n.pump()
	return n, nil
}

func (n *pipeNotifier) pump() {
	events := make([]unix.Kevent_t, 1)
	for {
		nEvents, err := unix.Kevent(n.kq, nil, events, nil)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return
		}
		if nEvents == 0 {
			continue
		}
		n.drain()
		n.wake()
	}
}

func (n *pipeNotifier) drain() {
	var buf [64]byte
	for {
		_, err := unix.Read(n.readFd, buf[:])
		if err != nil {
			break
		}
	}
	n.fired.Lock()
	n.inFlight = false
	n.fired.Unlock()
}

func (n *pipeNotifier) wake() {
	n.mu.Lock()
	ch := n.waitCh
	n.waitCh = make(chan struct{})
	n.mu.Unlock()
	close(ch)
}

func (n *pipeNotifier) Fire() {
	n.fired.Lock()
	if n.inFlight {
		n.fired.Unlock()
		return
	}
	n.inFlight = true
	n.fired.Unlock()
	_, _ = unix.Write(n.writeFd, []byte{1})
}

func (n *pipeNotifier) Wait(done <-chan struct{}) bool {
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

func (n *pipeNotifier) TryConsume() bool {
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
// once; see eventfdNotifier.consume for the identical rationale.
func (n *pipeNotifier) consume(observed chan struct{}) {
	n.mu.Lock()
	if n.waitCh == observed {
		n.waitCh = make(chan struct{})
	}
	n.mu.Unlock()
}

func (n *pipeNotifier) Close() error {
	unix.Close(n.kq)
	syscall.Close(n.readFd)
	syscall.Close(n.writeFd)
	return nil
}
