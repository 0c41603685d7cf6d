package reqchan

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsRegisterer is the subset of prometheus.Registerer a Channel needs
// to export its diagnostic counters and timing estimators. Satisfied
// directly by *prometheus.Registry or prometheus.DefaultRegisterer; kept
// narrow so callers are not forced to depend on a concrete registry type.
type MetricsRegisterer interface {
	Register(prometheus.Collector) error
	MustRegister(...prometheus.Collector)
}

// channelMetrics wires a Channel's per-endpoint diagnostic counters and
// smoothed timers into Prometheus gauge/counter vectors labeled by channel
// ID and endpoint direction. Only constructed when WithPrometheusRegisterer
// is supplied, so the hot path pays no cost otherwise.
type channelMetrics struct {
	ch *Channel

	signals   *prometheus.CounterVec
	resignals *prometheus.CounterVec
	kevents   *prometheus.CounterVec
	sequence  *prometheus.GaugeVec
	ack       *prometheus.GaugeVec

	messageInterval *prometheus.GaugeVec
	processingTime  prometheus.Gauge
	cpuTime         prometheus.Gauge
}

func newChannelMetrics(ch *Channel, reg MetricsRegisterer) *channelMetrics {
	labels := prometheus.Labels{"channel": ch.ID.String()}

	m := &channelMetrics{
		ch: ch,
		signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reqchan",
			Name:      "signals_sent_total",
			Help:      "Total control-plane signals sent by this endpoint.",
		}, []string{"channel", "endpoint"}),
		resignals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reqchan",
			Name:      "signals_resent_total",
			Help:      "Total control-plane re-signals sent by the dispatcher for this endpoint.",
		}, []string{"channel", "endpoint"}),
		kevents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reqchan",
			Name:      "kevents_total",
			Help:      "Total wakeup events observed for this endpoint.",
		}, []string{"channel", "endpoint"}),
		sequence: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "reqchan",
			Name:      "sequence",
			Help:      "Current send sequence number of this endpoint.",
		}, []string{"channel", "endpoint"}),
		ack: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "reqchan",
			Name:      "ack",
			Help:      "Highest sequence number acknowledged by this endpoint.",
		}, []string{"channel", "endpoint"}),
		messageInterval: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "reqchan",
			Name:      "message_interval_nanoseconds",
			Help:      "Smoothed inter-message interval observed by this endpoint.",
		}, []string{"channel", "endpoint"}),
		processingTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "reqchan",
			Name:        "processing_time_nanoseconds",
			Help:        "Smoothed worker processing time reported on this channel.",
			ConstLabels: labels,
		}),
		cpuTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "reqchan",
			Name:        "cpu_time_nanoseconds",
			Help:        "Most recently reported worker CPU time on this channel.",
			ConstLabels: labels,
		}),
	}

	reg.MustRegister(
		m.signals, m.resignals, m.kevents, m.sequence, m.ack, m.messageInterval,
		m.processingTime, m.cpuTime,
	)

	return m
}

// observe refreshes all exported metrics from the channel's current
// endpoint state. Called at the end of every successful SendRequest and
// SendReply, after the signaling decision; the receive operations do not
// call it.
func (m *channelMetrics) observe() {
	for _, idx := range [2]EndpointIndex{EndpointToWorker, EndpointFromWorker} {
		e := m.ch.end[idx]
		label := idx.String()
		m.sequence.WithLabelValues(m.ch.ID.String(), label).Set(float64(e.Sequence))
		m.ack.WithLabelValues(m.ch.ID.String(), label).Set(float64(e.Ack()))
		m.messageInterval.WithLabelValues(m.ch.ID.String(), label).Set(float64(e.MessageInterval()))
	}
	m.processingTime.Set(float64(m.ch.ProcessingTime()))
	m.cpuTime.Set(float64(m.ch.CPUTime()))
}

func (m *channelMetrics) incSignal(idx EndpointIndex) {
	m.signals.WithLabelValues(m.ch.ID.String(), idx.String()).Inc()
}

func (m *channelMetrics) incResignal(idx EndpointIndex) {
	m.resignals.WithLabelValues(m.ch.ID.String(), idx.String()).Inc()
}

func (m *channelMetrics) incKevent(idx EndpointIndex) {
	m.kevents.WithLabelValues(m.ch.ID.String(), idx.String()).Inc()
}
