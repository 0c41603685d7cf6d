package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dispatchkit/reqchan"
)

func newOpenCmd(o *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "open",
		Short: "Build a channel pair, signal open, and print the resulting control record",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDemoChannel(o)
			if err != nil {
				return err
			}

			if err := d.ch.SignalOpen(); err != nil {
				return fmt.Errorf("signal open: %w", err)
			}

			event, gotCh := reqchan.ServiceControlQueue(d.workerCtrl)
			fmt.Printf("channel %s: worker observed %s\n", d.ch.ID, event)
			if gotCh != d.ch {
				return fmt.Errorf("unexpected channel on control record")
			}

			return d.ch.DebugDump(os.Stdout)
		},
	}
}
