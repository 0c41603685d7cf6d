package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dispatchkit/reqchan"
)

// demoChannel bundles a Channel with the two control queues used to build
// it. Per spec §6, channel_create's four collaborators (two notifiers, two
// control queues) are owned by whichever party constructs them -- here,
// the CLI process itself, playing both master and worker -- so unlike a
// real deployment split across two threads, this demo keeps both queues
// around to service either side with reqchan.ServiceControlQueue.
type demoChannel struct {
	ch         *reqchan.Channel
	masterCtrl *reqchan.ControlQueue // records posted to the master (from_worker's peer queue)
	workerCtrl *reqchan.ControlQueue // records posted to the worker (to_worker's peer queue)
}

// newDemoChannel builds an in-process master/worker channel pair using the
// portable channel-based Notifier (NewChanNotifier): a real two-process
// deployment would instead hand each side an OS-backed Notifier from
// reqchan.NewNotifier, shared via whatever IPC mechanism (shared memory,
// mmap'd fd passing) carries the ControlQueue/DataQueue memory across the
// process boundary, which is outside a CLI demo's scope.
func newDemoChannel(o *cliOptions) (*demoChannel, error) {
	logger, err := o.buildLogger()
	if err != nil {
		return nil, err
	}

	opts := o.channelOptions(logger)
	if o.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		opts = append(opts, reqchan.WithPrometheusRegisterer(reg))
		serveMetrics(o.metricsAddr, reg)
	}

	masterCtrl := reqchan.NewControlQueue(o.queueCapacity)
	workerCtrl := reqchan.NewControlQueue(o.queueCapacity)
	masterNotifier := reqchan.NewChanNotifier()
	workerNotifier := reqchan.NewChanNotifier()

	ch, err := reqchan.Create(masterNotifier, masterCtrl, workerNotifier, workerCtrl, opts...)
	if err != nil {
		return nil, err
	}
	return &demoChannel{ch: ch, masterCtrl: masterCtrl, workerCtrl: workerCtrl}, nil
}

// serveMetrics starts a best-effort background HTTP server exposing reg on
// /metrics; failures are swallowed since this is demo tooling, not a
// production daemon, and the command's real output is stdout/stderr.
func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		_ = http.ListenAndServe(addr, mux)
	}()
}
