package signals

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
)

// ///////////////////////////////////////////////
// UnwindBridge
// ///////////////////////////////////////////////

// UnwindBridge delivers interrupts synchronously. The interrupt cancels the
// context handed to the run loop; once the loop has returned, Guard calls
// onStop on its own stack and reports [ErrInterrupted].
//
// If the run loop returned a real fault after the interrupt arrived, the fault
// is returned instead: it was observed first, so it wins the classification.
type UnwindBridge struct {
	// signals is the set of signals that cancel the guarded run.
	signals []os.Signal
	// notifyContext derives the cancellable run context. Defaults to
	// [signal.NotifyContext]; tests substitute a manual trigger.
	notifyContext func(context.Context, ...os.Signal) (context.Context, context.CancelFunc)

	// mu protects onStop.
	mu sync.Mutex
	// onStop is the installed stop callback, nil when uninstalled.
	onStop func()
}

// NewUnwindBridge returns a bridge that unwinds the run loop on the given signals.
func NewUnwindBridge(sigs ...os.Signal) *UnwindBridge {
	return &UnwindBridge{signals: sigs, notifyContext: signal.NotifyContext}
}

// Install records onStop. No handler runs until Guard is entered.
func (b *UnwindBridge) Install(onStop func()) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.onStop != nil {
		return errAlreadyInstalled
	}
	b.onStop = onStop
	return nil
}

// Guard runs run with a context that is cancelled by an interrupt.
func (b *UnwindBridge) Guard(ctx context.Context, run func(context.Context) error) error {
	runCtx, stop := b.notifyContext(ctx, b.signals...)
	err := run(runCtx)
	interrupted := runCtx.Err() != nil && ctx.Err() == nil
	stop()

	if !interrupted {
		return err
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	b.mu.Lock()
	onStop := b.onStop
	b.mu.Unlock()
	if onStop != nil {
		onStop()
	}
	return ErrInterrupted
}

// Uninstall forgets the stop callback.
func (b *UnwindBridge) Uninstall() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onStop = nil
}
