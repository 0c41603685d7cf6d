package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dispatchkit/reqchan"
)

// channelStats is a condensed, script-friendly snapshot of a channel's
// diagnostic counters, printed as JSON by `reqchanctl stats` -- a JSON
// counterpart to the plain-text DebugDump of `open`/`pump` that adds the
// timing estimators and leaves out the kevent counts.
type channelStats struct {
	ChannelID            string `json:"channel_id"`
	ToWorkerSequence     uint64 `json:"to_worker_sequence"`
	ToWorkerAck          uint64 `json:"to_worker_ack"`
	ToWorkerSignals      uint64 `json:"to_worker_signals"`
	ToWorkerResignals    uint64 `json:"to_worker_resignals"`
	FromWorkerSequence   uint64 `json:"from_worker_sequence"`
	FromWorkerAck        uint64 `json:"from_worker_ack"`
	FromWorkerSignals    uint64 `json:"from_worker_signals"`
	ProcessingTimeNanos  uint64 `json:"processing_time_nanos"`
	CPUTimeNanos         uint64 `json:"cpu_time_nanos"`
	MessageIntervalNanos uint64 `json:"message_interval_nanos"`
}

func newStatsCmd(o *cliOptions) *cobra.Command {
	var count int
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Pump count round-trips through a fresh channel and print a JSON stats snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDemoChannel(o)
			if err != nil {
				return err
			}
			if err := runPump(d.ch, count, timeout); err != nil {
				return err
			}

			toWorker := d.ch.Endpoint(reqchan.EndpointToWorker)
			fromWorker := d.ch.Endpoint(reqchan.EndpointFromWorker)
			stats := channelStats{
				ChannelID:            d.ch.ID.String(),
				ToWorkerSequence:     toWorker.Sequence,
				ToWorkerAck:          toWorker.Ack(),
				ToWorkerSignals:      toWorker.NumSignals,
				ToWorkerResignals:    toWorker.NumResignals,
				FromWorkerSequence:   fromWorker.Sequence,
				FromWorkerAck:        fromWorker.Ack(),
				FromWorkerSignals:    fromWorker.NumSignals,
				ProcessingTimeNanos:  d.ch.ProcessingTime(),
				CPUTimeNanos:         d.ch.CPUTime(),
				MessageIntervalNanos: toWorker.MessageInterval(),
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		},
	}

	cmd.Flags().IntVar(&count, "count", 1000, "number of request/reply round-trips to push before reporting")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "maximum time to wait for the burst to drain")
	return cmd
}
