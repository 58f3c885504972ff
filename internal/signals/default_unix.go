// Unix/Darwin interrupt delivery.
//
// Both SIGINT (Ctrl+C) and SIGTERM, the conventional stop signal sent by
// process managers and container runtimes, request a graceful stop.

//go:build !windows

package signals

import (
	"os"
	"syscall"
)

// Default returns the asynchronous bridge for SIGINT and SIGTERM.
func Default() Bridge {
	return NewNotifyBridge(os.Interrupt, syscall.SIGTERM)
}
