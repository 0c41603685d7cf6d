package reqchan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChanNotifierCoalescesFires(t *testing.T) {
	n := NewChanNotifier()
	defer n.Close()

	n.Fire()
	n.Fire()
	n.Fire()

	require.True(t, n.TryConsume(), "first consume should see the coalesced wake")
	assert.False(t, n.TryConsume(), "second consume should find nothing pending")
}

func TestChanNotifierWaitUnblocksOnFire(t *testing.T) {
	n := NewChanNotifier()
	defer n.Close()

	done := make(chan struct{})
	woke := make(chan bool, 1)
	go func() {
		woke <- n.Wait(done)
	}()

	time.Sleep(10 * time.Millisecond)
	n.Fire()

	select {
	case ok := <-woke:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Wait did not unblock after Fire")
	}
}

func TestChanNotifierWaitUnblocksOnDone(t *testing.T) {
	n := NewChanNotifier()
	defer n.Close()

	done := make(chan struct{})
	woke := make(chan bool, 1)
	go func() {
		woke <- n.Wait(done)
	}()

	time.Sleep(10 * time.Millisecond)
	close(done)

	select {
	case ok := <-woke:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Wait did not unblock after done was closed")
	}
}

func TestNewNotifierRoundTrip(t *testing.T) {
	n, err := NewNotifier()
	require.NoError(t, err)
	defer n.Close()

	n.Fire()
	assert.True(t, n.TryConsume())
	assert.False(t, n.TryConsume())
}
