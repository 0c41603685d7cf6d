package reqchan

import "time"

// Tuning constants from the package specification, used as defaults when a
// ChannelOption does not override them.
const (
	// DefaultQueueCapacity is the default capacity, in message handles, of
	// each endpoint's data queue.
	DefaultQueueCapacity = 1024

	// DefaultSignalInterval is the default minimum gap within which a
	// signal is normally elided (spec's SIGNAL_INTERVAL).
	DefaultSignalInterval = time.Millisecond

	// DefaultEMAInverseAlpha is the default fixed-point inverse-alpha used
	// by the smoothed interval/processing-time estimator.
	DefaultEMAInverseAlpha = 8

	// DefaultBehindWindow is the default threshold beyond which a peer is
	// deemed to be falling behind and must be signaled regardless of the
	// signal interval.
	DefaultBehindWindow = 1000
)

// channelOptions holds resolved, immutable-after-construction configuration
// for a Channel. Unexported, following the teacher's loopOptions pattern:
// ChannelOption values mutate this struct during Create, then it is never
// touched again.
type channelOptions struct {
	queueCapacity     int
	signalInterval    time.Duration
	emaInverseAlpha   uint64
	behindWindow      uint64
	coalescedNotify   bool
	logger            *Logger
	metricsRegisterer MetricsRegisterer
}

func defaultChannelOptions() channelOptions {
	return channelOptions{
		queueCapacity:   DefaultQueueCapacity,
		signalInterval:  DefaultSignalInterval,
		emaInverseAlpha: DefaultEMAInverseAlpha,
		behindWindow:    DefaultBehindWindow,
		coalescedNotify: false,
	}
}

// ChannelOption configures a Channel at creation time.
type ChannelOption interface {
	applyChannel(*channelOptions)
}

type channelOptionFunc func(*channelOptions)

func (f channelOptionFunc) applyChannel(o *channelOptions) { f(o) }

// WithQueueCapacity overrides the data queue capacity (default
// DefaultQueueCapacity). Capacity must be a positive power of two to allow
// the ring buffer's bitwise wrapping; non-power-of-two values are rounded
// up.
func WithQueueCapacity(n int) ChannelOption {
	return channelOptionFunc(func(o *channelOptions) {
		if n > 0 {
			o.queueCapacity = nextPowerOfTwo(n)
		}
	})
}

// WithSignalInterval overrides SIGNAL_INTERVAL, the minimum inter-signal
// gap within which signaling is normally elided.
func WithSignalInterval(d time.Duration) ChannelOption {
	return channelOptionFunc(func(o *channelOptions) {
		if d > 0 {
			o.signalInterval = d
		}
	})
}

// WithBehindWindow overrides BEHIND_WINDOW, the sequence-gap threshold
// beyond which the peer is deemed to be falling behind and is signaled
// regardless of the signal interval. With WithCoalescedNotifier enabled,
// the coalesced fast path is checked first and can still elide the signal.
func WithBehindWindow(n uint64) ChannelOption {
	return channelOptionFunc(func(o *channelOptions) {
		if n > 0 {
			o.behindWindow = n
		}
	})
}

// WithEMAInverseAlpha overrides the smoothed estimator's fixed-point
// inverse alpha (default DefaultEMAInverseAlpha = 8). Must be >= 2.
func WithEMAInverseAlpha(ialpha uint64) ChannelOption {
	return channelOptionFunc(func(o *channelOptions) {
		if ialpha >= 2 {
			o.emaInverseAlpha = ialpha
		}
	})
}

// WithCoalescedNotifier enables the endpoint-coalesced fast path described
// in the package's design notes: when the underlying Notifier is known to
// coalesce repeated fires reliably between observations, a sender may skip
// signaling if the peer has not yet caught up to the sequence at which it
// last signaled. This is unsound on notifier implementations that drop or
// fail to coalesce fires, so it defaults to off and must be opted into
// per-channel (a run-time capability flag, not a source-level #ifdef).
func WithCoalescedNotifier(enabled bool) ChannelOption {
	return channelOptionFunc(func(o *channelOptions) {
		o.coalescedNotify = enabled
	})
}

// WithLogger sets a per-channel structured logger, overriding the
// package-level default installed via SetLogger.
func WithLogger(l *Logger) ChannelOption {
	return channelOptionFunc(func(o *channelOptions) {
		o.logger = l
	})
}

// WithPrometheusRegisterer enables Prometheus export of the channel's
// diagnostic counters and timing estimators. Metrics are only registered
// (and only updated) when this option is supplied, so the hot path pays
// nothing when it is omitted.
func WithPrometheusRegisterer(reg MetricsRegisterer) ChannelOption {
	return channelOptionFunc(func(o *channelOptions) {
		o.metricsRegisterer = reg
	})
}

func resolveChannelOptions(opts []ChannelOption) channelOptions {
	cfg := defaultChannelOptions()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyChannel(&cfg)
	}
	return cfg
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
