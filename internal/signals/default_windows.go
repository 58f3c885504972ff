// Windows interrupt delivery.
//
// There is no POSIX SIGTERM to register for; Ctrl+C arrives as os.Interrupt and
// is handled by unwinding the run loop rather than by an async handler.

//go:build windows

package signals

import "os"

// Default returns the synchronous bridge for Ctrl+C.
func Default() Bridge {
	return NewUnwindBridge(os.Interrupt)
}
