// Command intmud runs a Script Language source tree against the event loop:
// it loads and compiles every class the source (and its includes) declare,
// optionally opens Telnet/WebSocket listeners, and ticks the event loop
// until the VM terminates or the process is signalled to stop. It uses a
// github.com/spf13/cobra command surface rather than hand-rolled flags.
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
