package reqchan

import "time"

// processStart anchors SystemClock's nanosecond counter so NowNanos values
// stay well clear of uint64 overflow for the lifetime of a process, and
// are comparable across the process regardless of wall-clock adjustments
// (time.Since uses the monotonic reading under the hood).
var processStart = time.Now()

func monotonicNow() int64 {
	return int64(time.Since(processStart))
}
