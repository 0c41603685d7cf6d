package reqchan

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain verifies that none of this package's concurrency-heavy tests
// (notifier pump goroutines, the S2 burst's producer/consumer pair) leak
// goroutines past test completion.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
