package supervisor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"tools.zach/dev/dropsminer/internal/catalog"
	"tools.zach/dev/dropsminer/internal/exitcode"
	"tools.zach/dev/dropsminer/internal/instance"
	"tools.zach/dev/dropsminer/internal/logger"
	"tools.zach/dev/dropsminer/internal/signals"
)

// ///////////////////////////////////////////////
// Recorder
// ///////////////////////////////////////////////

// recorder collects client calls, bridge calls and log messages in order.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// index returns the position of the first event with the given prefix, or -1.
func (r *recorder) index(prefix string) int {
	return slices.IndexFunc(r.list(), func(e string) bool { return strings.HasPrefix(e, prefix) })
}

// count returns how many events start with prefix.
func (r *recorder) count(prefix string) int {
	n := 0
	for _, e := range r.list() {
		if strings.HasPrefix(e, prefix) {
			n++
		}
	}
	return n
}

// logHandler records every message as "log:<msg>", followed by " k=v" for
// each attribute.
type logHandler struct{ rec *recorder }

func (h logHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h logHandler) Handle(_ context.Context, r slog.Record) error {
	e := "log:" + r.Message
	r.Attrs(func(a slog.Attr) bool {
		e += " " + a.String()
		return true
	})
	h.rec.add(e)
	return nil
}
func (h logHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h logHandler) WithGroup(string) slog.Handler      { return h }

// ///////////////////////////////////////////////
// Fakes
// ///////////////////////////////////////////////

type fakeClient struct {
	rec *recorder
	run func(ctx context.Context, c *fakeClient) error

	saveErr  error
	lockPath string
	// lockHeldAtSave is set by Save: true if the instance lock was still held.
	lockHeldAtSave bool

	mu             sync.Mutex
	closeRequested bool
	closed         chan struct{}
	closeOnce      sync.Once
}

func newFakeClient(rec *recorder, run func(ctx context.Context, c *fakeClient) error) *fakeClient {
	return &fakeClient{rec: rec, run: run, closed: make(chan struct{})}
}

func (c *fakeClient) Run(ctx context.Context) error {
	c.rec.add("run")
	if c.run == nil {
		return nil
	}
	return c.run(ctx, c)
}

func (c *fakeClient) Close() {
	c.rec.add("close")
	c.mu.Lock()
	c.closeRequested = true
	c.mu.Unlock()
	c.closeOnce.Do(func() { close(c.closed) })
}

func (c *fakeClient) Shutdown(context.Context) error {
	c.rec.add("shutdown")
	return nil
}

func (c *fakeClient) Save(force bool) error {
	c.rec.add(fmt.Sprintf("save:%v", force))
	if c.lockPath != "" {
		l, ok, _ := instance.Acquire(c.lockPath)
		c.lockHeldAtSave = !ok
		l.Release()
	}
	return c.saveErr
}

func (c *fakeClient) PreventClose() {
	c.rec.add("prevent_close")
	c.mu.Lock()
	c.closeRequested = false
	c.mu.Unlock()
}

func (c *fakeClient) CloseRequested() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeRequested
}

// fakeBridge records calls. With unwind set, Guard behaves like an interrupt
// delivered synchronously: the run context is cancelled, and onStop is called
// after the run loop returns.
type fakeBridge struct {
	rec        *recorder
	installErr error
	unwind     bool
	onStop     func()
}

func (b *fakeBridge) Install(onStop func()) error {
	b.rec.add("install")
	b.onStop = onStop
	return b.installErr
}

func (b *fakeBridge) Guard(ctx context.Context, run func(context.Context) error) error {
	if !b.unwind {
		return run(ctx)
	}
	runCtx, cancel := context.WithCancel(ctx)
	cancel()
	err := run(runCtx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	b.onStop()
	return signals.ErrInterrupted
}

func (b *fakeBridge) Uninstall() { b.rec.add("uninstall") }

// ///////////////////////////////////////////////
// Harness
// ///////////////////////////////////////////////

type harness struct {
	rec      *recorder
	client   *fakeClient
	bridge   *fakeBridge
	lockPath string
	stderr   bytes.Buffer
	inits    int
	closed   bool
}

func newHarness(t *testing.T, run func(ctx context.Context, c *fakeClient) error) *harness {
	t.Helper()
	rec := &recorder{}
	h := &harness{
		rec:      rec,
		client:   newFakeClient(rec, run),
		bridge:   &fakeBridge{rec: rec},
		lockPath: filepath.Join(t.TempDir(), "lock.file"),
	}
	h.client.lockPath = h.lockPath
	return h
}

func (h *harness) run(t *testing.T) exitcode.Status {
	t.Helper()
	cat, err := catalog.New("")
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return Run(context.Background(), Options{
		LockPath: h.lockPath,
		Stderr:   &h.stderr,
		Init: func() (*Session, error) {
			h.inits++
			return &Session{
				Client:  h.client,
				Bridge:  h.bridge,
				Catalog: cat,
				Log:     slog.New(logHandler{h.rec}),
				Level:   logger.LevelInfo,
				Close: func() error {
					h.closed = true
					return nil
				},
			}, nil
		},
	})
}

// assertOrder fails unless each prefix first appears after the previous one.
func assertOrder(t *testing.T, rec *recorder, prefixes ...string) {
	t.Helper()
	last := -1
	for _, p := range prefixes {
		i := rec.index(p)
		if i < 0 {
			t.Fatalf("event %q missing from %q", p, rec.list())
		}
		if i <= last {
			t.Fatalf("event %q out of order in %q", p, rec.list())
		}
		last = i
	}
}

// assertLockReleased fails if the lock at path cannot be taken.
func assertLockReleased(t *testing.T, path string) {
	t.Helper()
	l, ok, err := instance.Acquire(path)
	if err != nil || !ok {
		t.Fatalf("lock not released after run: ok=%v err=%v", ok, err)
	}
	l.Release()
}

const terminatedPrefix = "log:\nApplication Terminated."

// ///////////////////////////////////////////////
// Exit Paths
// ///////////////////////////////////////////////

func TestRun_Clean(t *testing.T) {
	h := newHarness(t, nil)

	if got := h.run(t); got != exitcode.Clean {
		t.Fatalf("status = %v, want clean", got)
	}
	assertOrder(t, h.rec, "log:Logging level: INFO", "install", "run", "uninstall", "log:Exiting...", "shutdown", terminatedPrefix, "save:true")
	if h.rec.count("prevent_close") != 0 {
		t.Error("clean run must not prevent close")
	}
	if !h.client.lockHeldAtSave {
		t.Error("lock was released before save")
	}
	if !h.closed {
		t.Error("session Close not called")
	}
	assertLockReleased(t, h.lockPath)
}

func TestRun_LogsLockPath(t *testing.T) {
	h := newHarness(t, nil)
	h.run(t)
	assertOrder(t, h.rec, "log:Instance lock held path="+h.lockPath, "install", "run")
}

func TestRun_FatalError(t *testing.T) {
	h := newHarness(t, func(context.Context, *fakeClient) error {
		return errors.New("boom")
	})

	got := h.run(t)
	if got != exitcode.FatalError || got.Code() != 1 {
		t.Fatalf("status = %v (code %d), want fatal/1", got, got.Code())
	}
	assertOrder(t, h.rec, "run", "prevent_close", "log:Fatal error encountered:", "log:boom", "uninstall", "shutdown", terminatedPrefix, "save:true")
	if h.rec.count("save:") != 1 {
		t.Errorf("save called %d times, want 1", h.rec.count("save:"))
	}
	if !h.client.lockHeldAtSave {
		t.Error("lock was released before save")
	}
	assertLockReleased(t, h.lockPath)
}

func TestRun_Panic(t *testing.T) {
	h := newHarness(t, func(context.Context, *fakeClient) error {
		panic("kaboom")
	})

	if got := h.run(t); got != exitcode.FatalError {
		t.Fatalf("status = %v, want fatal", got)
	}
	assertOrder(t, h.rec, "prevent_close", "log:Fatal error encountered:", "log:panic: kaboom", "shutdown", "save:true")
	assertLockReleased(t, h.lockPath)
}

func TestRun_Captcha(t *testing.T) {
	h := newHarness(t, func(context.Context, *fakeClient) error {
		return fmt.Errorf("login: %w", exitcode.ErrCaptchaRequired)
	})

	got := h.run(t)
	if got != exitcode.CaptchaBlocked || got.Code() != 1 {
		t.Fatalf("status = %v (code %d), want captcha/1", got, got.Code())
	}
	assertOrder(t, h.rec, "prevent_close", "log:Your login attempt was denied by CAPTCHA.", "shutdown", terminatedPrefix, "save:true")
	if h.rec.index("log:Fatal error encountered:") >= 0 {
		t.Error("captcha must not be logged as a generic fatal error")
	}
}

func TestRun_AsyncInterrupt(t *testing.T) {
	var h *harness
	h = newHarness(t, func(ctx context.Context, c *fakeClient) error {
		// Two signals in quick succession.
		h.bridge.onStop()
		h.bridge.onStop()
		<-c.closed
		return nil
	})

	got := h.run(t)
	if got != exitcode.UserInterrupt || got.Code() != 0 {
		t.Fatalf("status = %v (code %d), want interrupted/0", got, got.Code())
	}
	if n := h.rec.count("log:Received shutdown signal"); n != 1 {
		t.Errorf("shutdown signal logged %d times, want 1", n)
	}
	if n := h.rec.count("close"); n != 1 {
		t.Errorf("client closed %d times, want 1", n)
	}
	if h.rec.index(terminatedPrefix) >= 0 {
		t.Error("terminated message shown although the client requested close")
	}
	assertOrder(t, h.rec, "close", "uninstall", "shutdown", "save:true")
	if h.rec.count("save:") != 1 {
		t.Errorf("save called %d times, want 1", h.rec.count("save:"))
	}
	assertLockReleased(t, h.lockPath)
}

func TestRun_UnwindInterrupt(t *testing.T) {
	h := newHarness(t, func(ctx context.Context, c *fakeClient) error {
		<-ctx.Done()
		return ctx.Err()
	})
	h.bridge.unwind = true

	if got := h.run(t); got != exitcode.UserInterrupt {
		t.Fatalf("status = %v, want interrupted", got)
	}
	assertOrder(t, h.rec, "run", "log:Received shutdown signal", "close", "log:Interrupted by user", "uninstall", "shutdown", "save:true")
	if h.rec.index(terminatedPrefix) >= 0 {
		t.Error("terminated message shown although the client requested close")
	}
}

func TestRun_UnwindFaultWins(t *testing.T) {
	h := newHarness(t, func(ctx context.Context, c *fakeClient) error {
		return errors.New("disk on fire")
	})
	h.bridge.unwind = true

	if got := h.run(t); got != exitcode.FatalError {
		t.Fatalf("status = %v, want fatal", got)
	}
	if h.rec.index("log:Interrupted by user") >= 0 {
		t.Error("fault was reported as an interrupt")
	}
}

func TestRun_InterruptWithoutCloseRequestShowsTerminated(t *testing.T) {
	h := newHarness(t, func(ctx context.Context, c *fakeClient) error {
		c.PreventClose()
		return signals.ErrInterrupted
	})

	if got := h.run(t); got != exitcode.UserInterrupt {
		t.Fatalf("status = %v, want interrupted", got)
	}
	if h.rec.index(terminatedPrefix) < 0 {
		t.Error("terminated message suppressed although close was not requested")
	}
}

// ///////////////////////////////////////////////
// Startup Failures
// ///////////////////////////////////////////////

func TestRun_AlreadyRunning(t *testing.T) {
	h := newHarness(t, nil)
	held, ok, err := instance.Acquire(h.lockPath)
	if err != nil || !ok {
		t.Fatalf("pre-acquire: ok=%v err=%v", ok, err)
	}
	defer held.Release()

	got := h.run(t)
	if got != exitcode.AlreadyRunning || got.Code() != 3 {
		t.Fatalf("status = %v (code %d), want already_running/3", got, got.Code())
	}
	if h.inits != 0 {
		t.Error("Init called without the lock")
	}
	if h.rec.count("shutdown") != 0 || h.rec.count("save:") != 0 {
		t.Errorf("shutdown or save touched: %q", h.rec.list())
	}
	if !strings.Contains(h.stderr.String(), "already running") {
		t.Errorf("stderr = %q", h.stderr.String())
	}
}

func TestRun_LockOpenError(t *testing.T) {
	h := newHarness(t, nil)
	h.lockPath = filepath.Join(t.TempDir(), "missing", "lock.file")

	if got := h.run(t); got != exitcode.FatalError {
		t.Fatalf("status = %v, want fatal", got)
	}
	if h.inits != 0 {
		t.Error("Init called without the lock")
	}
}

func TestRun_InitError(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "lock.file")
	var stderr bytes.Buffer

	got := Run(context.Background(), Options{
		LockPath: lockPath,
		Stderr:   &stderr,
		Init: func() (*Session, error) {
			return nil, exitcode.New(exitcode.InvalidConfiguration, "bad language dir")
		},
	})
	if got != exitcode.InvalidConfiguration {
		t.Fatalf("status = %v, want invalid_configuration", got)
	}
	if !strings.Contains(stderr.String(), "bad language dir") {
		t.Errorf("stderr = %q", stderr.String())
	}
	assertLockReleased(t, lockPath)
}

func TestRun_InstallError(t *testing.T) {
	h := newHarness(t, nil)
	h.bridge.installErr = errors.New("no signals here")

	if got := h.run(t); got != exitcode.FatalError {
		t.Fatalf("status = %v, want fatal", got)
	}
	if h.rec.count("run") != 0 {
		t.Error("run loop started without a bridge")
	}
	assertOrder(t, h.rec, "install", "prevent_close", "uninstall", "shutdown", "save:true")
	assertLockReleased(t, h.lockPath)
}

// ///////////////////////////////////////////////
// Save Failures
// ///////////////////////////////////////////////

func TestRun_SaveErrorUpgradesStatus(t *testing.T) {
	h := newHarness(t, nil)
	h.client.saveErr = errors.New("read-only")

	if got := h.run(t); got != exitcode.FatalError {
		t.Fatalf("status = %v, want fatal after failed save", got)
	}
	if h.rec.index("log:Failed to save application state") < 0 {
		t.Error("save failure not logged")
	}
	assertLockReleased(t, h.lockPath)
}

func TestRun_SaveErrorKeepsCaptcha(t *testing.T) {
	h := newHarness(t, func(context.Context, *fakeClient) error {
		return exitcode.ErrCaptchaRequired
	})
	h.client.saveErr = errors.New("read-only")

	if got := h.run(t); got != exitcode.CaptchaBlocked {
		t.Fatalf("status = %v, want captcha", got)
	}
}

// ///////////////////////////////////////////////
// Logging Level Line
// ///////////////////////////////////////////////

func TestSupervise_LoggingLevelLine(t *testing.T) {
	tests := []struct {
		level slog.Level
		want  bool
	}{
		{logger.LevelError, false},
		{logger.LevelWarn, true},
		{logger.LevelDebug, true},
	}
	for _, tt := range tests {
		rec := &recorder{}
		cat, _ := catalog.New("")
		s := &Session{
			Client:  newFakeClient(rec, nil),
			Bridge:  &fakeBridge{rec: rec},
			Catalog: cat,
			Log:     slog.New(logHandler{rec}),
			Level:   tt.level,
		}
		supervise(context.Background(), s)
		if got := rec.index("log:Logging level: ") >= 0; got != tt.want {
			t.Errorf("level %s: logged = %v, want %v", logger.LevelName(tt.level), got, tt.want)
		}
	}
}
