// Package signals bridges OS interruption signals into a cooperative stop
// request.
//
// Two implementations sit behind [Bridge]:
//
//   - [NotifyBridge] registers asynchronous handlers and calls onStop from a
//     goroutine, outside the run loop's call stack.
//   - [UnwindBridge] lets the interrupt cancel the run loop's context and calls
//     onStop synchronously once the loop has unwound, inside [Bridge.Guard].
//
// [Default] picks one per platform, so callers never branch on GOOS.
package signals

import (
	"context"
	"errors"
)

// ///////////////////////////////////////////////
// Sentinel Errors
// ///////////////////////////////////////////////

// ErrInterrupted is returned by [Bridge.Guard] when an interrupt unwound the
// guarded run loop.
var ErrInterrupted = errors.New("interrupted by user")

// errAlreadyInstalled is returned when Install is called on an active bridge.
var errAlreadyInstalled = errors.New("signal bridge already installed")

// ///////////////////////////////////////////////
// Bridge
// ///////////////////////////////////////////////

// Bridge turns OS interrupts into calls to a stop callback.
//
// onStop may be called more than once (one call per delivered signal) and,
// for asynchronous implementations, from a goroutine other than the one
// running Guard. It must be idempotent and must not block.
type Bridge interface {
	// Install starts forwarding interrupts to onStop.
	Install(onStop func()) error
	// Guard runs the run loop under the bridge. Implementations that deliver
	// interrupts synchronously report them as [ErrInterrupted].
	Guard(ctx context.Context, run func(context.Context) error) error
	// Uninstall stops forwarding interrupts. It is idempotent and safe to call
	// even if Install failed or was never called.
	Uninstall()
}
