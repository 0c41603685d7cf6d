package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joeycumines/ilogrus"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dispatchkit/reqchan"
)

// cliOptions holds the persistent flag values shared by every subcommand.
type cliOptions struct {
	logFormat      string
	queueCapacity  int
	behindWindow   int
	signalInterval int
	metricsAddr    string
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:           "reqchanctl",
		Short:         "Drive a reqchan master/worker channel from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "stumpy", "structured log backend: stumpy|logrus")
	root.PersistentFlags().IntVar(&opts.queueCapacity, "queue-capacity", 1024, "data queue capacity per direction (rounded up to a power of two)")
	root.PersistentFlags().IntVar(&opts.behindWindow, "behind-window", 1000, "sequence numbers a peer may lag before an elided signal is forced")
	root.PersistentFlags().IntVar(&opts.signalInterval, "signal-interval-ms", 1, "idle interval, in milliseconds, before a re-signal is sent")
	root.PersistentFlags().StringVar(&opts.metricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :9090) for the duration of the command")

	root.AddCommand(
		newOpenCmd(opts),
		newPumpCmd(opts),
		newStatsCmd(opts),
		newCloseCmd(opts),
	)

	return root
}

// buildLogger constructs the logiface logger selected by --log-format,
// converting whichever concrete backend into the package's generic
// logiface.Logger[logiface.Event] via its Logger() method (the same
// conversion shown in the doc comment of reqchan.Logger).
func (o *cliOptions) buildLogger() (*reqchan.Logger, error) {
	switch o.logFormat {
	case "", "stumpy":
		l := stumpy.L.New(stumpy.L.WithStumpy(stumpy.WithWriter(os.Stderr)))
		return l.Logger(), nil
	case "logrus":
		backend := logrus.New()
		backend.SetOutput(os.Stderr)
		l := logiface.New[*ilogrus.Event](ilogrus.WithLogrus(backend))
		return l.Logger(), nil
	default:
		return nil, fmt.Errorf("unknown --log-format %q (want stumpy or logrus)", o.logFormat)
	}
}

// channelOptions translates the persistent flags into reqchan.ChannelOption
// values shared by every subcommand's demo channel.
func (o *cliOptions) channelOptions(logger *reqchan.Logger) []reqchan.ChannelOption {
	return []reqchan.ChannelOption{
		reqchan.WithQueueCapacity(o.queueCapacity),
		reqchan.WithBehindWindow(uint64(o.behindWindow)),
		reqchan.WithSignalInterval(time.Duration(o.signalInterval) * time.Millisecond),
		reqchan.WithLogger(logger),
	}
}
