// Command reqchanctl is a small demonstration CLI over the reqchan package:
// each subcommand builds its own ephemeral master/worker channel pair in
// process and drives one phase of the lifecycle described in reqchan's
// package documentation (open, pump, stats, close), printing the result.
//
// It exists to exercise the library's public surface end to end, not as a
// long-running service: there is no persistence between invocations.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
