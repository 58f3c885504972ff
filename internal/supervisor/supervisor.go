// Package supervisor drives one run of the application and turns the way it
// ended into an exit status.
//
// A run acquires the instance lock, builds its session, installs the signal
// bridge and awaits the client's run loop. However the loop ends, the same
// cleanup follows: uninstall the bridge, shut the client down, save its state
// and release the lock, in that order and exactly once.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"tools.zach/dev/dropsminer/internal/catalog"
	"tools.zach/dev/dropsminer/internal/exitcode"
	"tools.zach/dev/dropsminer/internal/instance"
	"tools.zach/dev/dropsminer/internal/logger"
	"tools.zach/dev/dropsminer/internal/signals"
)

// ///////////////////////////////////////////////
// Collaborators
// ///////////////////////////////////////////////

// Client is the remote-service client the supervisor orchestrates.
type Client interface {
	// Run works until told to stop or until it fails.
	Run(ctx context.Context) error
	// Close requests a cooperative stop. It must be idempotent.
	Close()
	// Shutdown releases the client's resources.
	Shutdown(ctx context.Context) error
	// Save persists client state; force writes even if nothing changed.
	Save(force bool) error
	// PreventClose clears the close-requested flag.
	PreventClose()
	// CloseRequested reports whether the client considers itself closed.
	CloseRequested() bool
}

// Session holds everything a run needs once the lock is held.
type Session struct {
	Client  Client
	Bridge  signals.Bridge
	Catalog *catalog.Catalog
	Log     *slog.Logger
	// Level is the root logging level, reported at startup.
	Level slog.Level
	// Close, if set, runs after the state is saved and before the lock is
	// released.
	Close func() error
}

// Options configures [Run].
type Options struct {
	// LockPath is the instance lock file.
	LockPath string
	// Init builds the session. It is only called while the lock is held.
	Init func() (*Session, error)
	// Stderr receives messages printed before logging exists.
	Stderr io.Writer
}

// ///////////////////////////////////////////////
// Run
// ///////////////////////////////////////////////

// Run performs one supervised run and returns its exit status. If another
// instance holds the lock it returns [exitcode.AlreadyRunning] without
// calling Init.
func Run(ctx context.Context, opts Options) exitcode.Status {
	lock, ok, err := instance.Acquire(opts.LockPath)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "Failed to acquire instance lock: %v\n", err)
		return exitcode.FatalError
	}
	if !ok {
		fmt.Fprintln(opts.Stderr, "Application is already running")
		return exitcode.AlreadyRunning
	}
	defer lock.Release()

	s, err := opts.Init()
	if err != nil {
		fmt.Fprintf(opts.Stderr, "Startup error: %v\n", err)
		return exitcode.StatusOf(err)
	}
	if s.Close != nil {
		defer func() {
			if err := s.Close(); err != nil {
				fmt.Fprintf(opts.Stderr, "Failed to close session: %v\n", err)
			}
		}()
	}

	s.Log.Debug("Instance lock held", "path", lock.Path())
	status := supervise(ctx, s)

	if err := s.Client.Save(true); err != nil {
		s.Log.Error("Failed to save application state", "error", err)
		if status == exitcode.Clean || status == exitcode.UserInterrupt {
			status = exitcode.FatalError
		}
	}
	return status
}

// supervise runs the client under the bridge and classifies the outcome.
// Cleanup is deferred so it runs after classification on every path.
func supervise(ctx context.Context, s *Session) exitcode.Status {
	log := s.Log

	if s.Level < logger.LevelError {
		log.Info("Logging level: " + logger.LevelName(s.Level))
	}

	var (
		stopped  atomic.Bool
		stopOnce sync.Once
	)
	onStop := func() {
		stopOnce.Do(func() {
			stopped.Store(true)
			log.Info("Received shutdown signal, stopping...")
			s.Client.Close()
		})
	}

	defer func() {
		s.Bridge.Uninstall()
		log.Info(s.Catalog.Text("gui", "status", "exiting"))
		if err := s.Client.Shutdown(context.WithoutCancel(ctx)); err != nil {
			log.Error("Client shutdown failed", "error", err)
		}
		if !s.Client.CloseRequested() {
			log.Info(s.Catalog.Text("status", "terminated"))
		}
	}()

	err := s.Bridge.Install(onStop)
	if err != nil {
		err = fmt.Errorf("install signal handlers: %w", err)
	} else {
		log.Info("Starting Twitch Drops Miner...")
		log.Info("Use Ctrl+C to stop the application")
		err = s.Bridge.Guard(ctx, recoverRun(s.Client.Run))
	}
	return classify(s, err, stopped.Load())
}

// classify maps the run loop's result to an exit status, telling the client
// to suppress its close message where the run did not end by request.
func classify(s *Session, err error, stopped bool) exitcode.Status {
	switch {
	case err == nil:
		if stopped {
			return exitcode.UserInterrupt
		}
		return exitcode.Clean
	case errors.Is(err, exitcode.ErrCaptchaRequired):
		s.Client.PreventClose()
		s.Log.Error(s.Catalog.Text("error", "captcha"))
		return exitcode.CaptchaBlocked
	case errors.Is(err, signals.ErrInterrupted), errors.Is(err, context.Canceled):
		s.Log.Info("Interrupted by user")
		return exitcode.UserInterrupt
	default:
		s.Client.PreventClose()
		logger.Fail(s.Log, "Fatal error encountered:")
		s.Log.Error(err.Error())
		return exitcode.FatalError
	}
}

// panicError is a panic recovered from the run loop.
type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v\n%s", e.value, e.stack)
}

// recoverRun converts a panic in run into a *panicError.
func recoverRun(run func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = &panicError{value: r, stack: debug.Stack()}
			}
		}()
		return run(ctx)
	}
}
