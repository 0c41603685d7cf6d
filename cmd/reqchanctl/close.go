package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dispatchkit/reqchan"
)

func newCloseCmd(o *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "close",
		Short: "Run the full open/close handshake on a fresh channel pair and report the outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDemoChannel(o)
			if err != nil {
				return err
			}

			if err := d.ch.SignalOpen(); err != nil {
				return fmt.Errorf("signal open: %w", err)
			}
			if event, _ := reqchan.ServiceControlQueue(d.workerCtrl); event != reqchan.EventOpen {
				return fmt.Errorf("worker expected OPEN, got %s", event)
			}

			if err := d.ch.SignalWorkerClose(); err != nil {
				return fmt.Errorf("signal worker close: %w", err)
			}
			event, gotCh := reqchan.ServiceControlQueue(d.workerCtrl)
			if event != reqchan.EventClose {
				return fmt.Errorf("worker expected CLOSE, got %s", event)
			}
			if err := gotCh.WorkerAckClose(); err != nil {
				return fmt.Errorf("worker ack close: %w", err)
			}

			event, _ = reqchan.ServiceControlQueue(d.masterCtrl)
			if event != reqchan.EventClose {
				return fmt.Errorf("master expected CLOSE ack, got %s", event)
			}

			fmt.Printf("channel %s: closed, active=%t\n", d.ch.ID, d.ch.Active())
			return nil
		},
	}
}
