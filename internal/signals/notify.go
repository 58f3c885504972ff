package signals

import (
	"context"
	"os"
	"os/signal"
	"sync"
)

// ///////////////////////////////////////////////
// NotifyBridge
// ///////////////////////////////////////////////

// NotifyBridge delivers interrupts asynchronously: each received signal
// invokes onStop from a dedicated goroutine while the run loop keeps going
// until the client notices the stop request.
type NotifyBridge struct {
	// signals is the set of signals registered by Install.
	signals []os.Signal

	// mu protects ch and done across Install/Uninstall.
	mu sync.Mutex
	// ch receives notified signals. The buffer of 2 keeps a second signal
	// arriving in quick succession from being dropped.
	ch chan os.Signal
	// done is closed by Uninstall to stop the forwarding goroutine.
	done chan struct{}
	// wg tracks the forwarding goroutine so Uninstall returns only after it exits.
	wg sync.WaitGroup
}

// NewNotifyBridge returns a bridge that forwards the given signals.
func NewNotifyBridge(sigs ...os.Signal) *NotifyBridge {
	return &NotifyBridge{signals: sigs}
}

// Install registers the signal handlers and starts forwarding to onStop.
func (b *NotifyBridge) Install(onStop func()) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ch != nil {
		return errAlreadyInstalled
	}
	ch := make(chan os.Signal, 2)
	done := make(chan struct{})
	signal.Notify(ch, b.signals...)
	b.ch = ch
	b.done = done

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case <-ch:
				onStop()
			case <-done:
				return
			}
		}
	}()
	return nil
}

// Guard runs run directly; interrupts reach the client through onStop.
func (b *NotifyBridge) Guard(ctx context.Context, run func(context.Context) error) error {
	return run(ctx)
}

// Uninstall deregisters the handlers and waits for the forwarding goroutine.
func (b *NotifyBridge) Uninstall() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ch == nil {
		return
	}
	signal.Stop(b.ch)
	close(b.done)
	b.wg.Wait()
	b.ch = nil
	b.done = nil
}
