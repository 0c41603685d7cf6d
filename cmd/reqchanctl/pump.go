package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dispatchkit/reqchan"
)

func newPumpCmd(o *cliOptions) *cobra.Command {
	var count int
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "pump",
		Short: "Push count request/reply round-trips through a fresh channel pair and print the final debug dump",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDemoChannel(o)
			if err != nil {
				return err
			}
			if err := runPump(d.ch, count, timeout); err != nil {
				return err
			}
			return d.ch.DebugDump(os.Stdout)
		},
	}

	cmd.Flags().IntVar(&count, "count", 1000, "number of request/reply round-trips to push")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "maximum time to wait for the burst to drain")
	return cmd
}

// runPump drives count request/reply round-trips through ch, with a
// dedicated worker goroutine concurrently draining requests and replying
// (the same two-thread concurrency model spec §5 assumes), so signal
// volume stays bounded instead of degenerating to one signal per message.
func runPump(ch *reqchan.Channel, count int, timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		// pending buffers requests not yet replied to: SendReply may
		// itself piggyback a freshly popped request on its return (spec
		// §4.3.5), so a request can arrive from either ReceiveRequest or
		// a prior SendReply call; both must eventually get a reply.
		var pending []*reqchan.Message
		var replied int
		for replied < count {
			if len(pending) == 0 {
				req := ch.ReceiveRequest()
				if req == nil {
					continue
				}
				pending = append(pending, req)
			}
			req := pending[0]
			code, piggy := ch.SendReply(&reqchan.Message{WhenNanos: req.WhenNanos + 1})
			if piggy != nil {
				pending = append(pending, piggy)
			}
			if code == reqchan.CodeOK {
				pending = pending[1:]
				replied++
			}
		}
	}()

	// SendRequest may opportunistically piggyback a popped reply on its
	// return even when it succeeds (spec §4.3.1 step 7): count those here
	// rather than discarding them, or the later drain loop would wait
	// forever for replies that were already consumed.
	var received int
	for i := 0; i < count; i++ {
		msg := &reqchan.Message{WhenNanos: uint64(i) * 1000}
		for {
			code, reply := ch.SendRequest(msg)
			if reply != nil {
				received++
			}
			if code == reqchan.CodeOK {
				break
			}
		}
	}

	deadline := time.After(timeout)
	for received < count {
		if reply := ch.ReceiveReply(); reply != nil {
			received++
			continue
		}
		select {
		case <-deadline:
			return fmt.Errorf("timed out waiting for replies: got %d/%d", received, count)
		default:
		}
	}

	<-done
	return nil
}
