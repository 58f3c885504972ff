// Package twitch is the stand-in remote client driven by the supervisor.
//
// It does not speak the drops protocol. It periodically probes the configured
// endpoint until it is closed, reports outages with the catalog's retry
// messages, recognizes a captcha challenge, and persists a small state file so
// the supervisor's save and shutdown contract has something real to act on.
package twitch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"tools.zach/dev/dropsminer/internal/atomicfile"
	"tools.zach/dev/dropsminer/internal/catalog"
	"tools.zach/dev/dropsminer/internal/exitcode"
	"tools.zach/dev/dropsminer/internal/logger"
)

// maxHistory bounds the probe history kept for the diagnostic dump.
const maxHistory = 100

// maxBody bounds how much of a response body is inspected.
const maxBody = 64 << 10

// ///////////////////////////////////////////////
// Types
// ///////////////////////////////////////////////

// Options configures a [Client].
type Options struct {
	// Endpoint is the URL probed on every check.
	Endpoint string
	// Interval is the delay between checks.
	Interval time.Duration
	// Timeout bounds a single request.
	Timeout time.Duration
	// RetryMax is the number of retries for a failed request.
	RetryMax int
	// Proxy routes requests through a proxy when non-nil.
	Proxy *url.URL

	// StatePath is where Save writes the client state.
	StatePath string
	// DumpPath, when set, receives the probe history on shutdown.
	DumpPath string

	// Catalog renders user-facing messages.
	Catalog *catalog.Catalog
	// Log is the client's main logger.
	Log *slog.Logger
	// WS receives connection state changes.
	WS *slog.Logger
	// GQL receives one record per request.
	GQL *slog.Logger
}

// State is the persisted client state.
type State struct {
	Probes     int       `json:"probes"`
	Failures   int       `json:"failures"`
	LastStatus int       `json:"last_status"`
	LastOK     time.Time `json:"last_ok,omitzero"`
}

// Probe is one entry of the diagnostic dump.
type Probe struct {
	Time     time.Time     `json:"time"`
	Status   int           `json:"status,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Client probes the remote service until closed.
type Client struct {
	opts Options
	http *retryablehttp.Client

	// closed is closed by the first Close call.
	closed    chan struct{}
	closeOnce sync.Once

	// mu guards the fields below.
	mu             sync.Mutex
	closeRequested bool
	connected      bool
	dirty          bool
	state          State
	history        []Probe
}

// New returns a Client for opts. Nil loggers are replaced with opts.Log, and
// a nil opts.Log with [slog.Default].
func New(opts Options) *Client {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.WS == nil {
		opts.WS = opts.Log
	}
	if opts.GQL == nil {
		opts.GQL = opts.Log
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.RetryMax
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.Logger = nil
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.HTTPClient.Timeout = opts.Timeout
	if opts.Proxy != nil {
		if tr, ok := rc.HTTPClient.Transport.(*http.Transport); ok {
			tr.Proxy = http.ProxyURL(opts.Proxy)
		}
	}

	return &Client{opts: opts, http: rc, closed: make(chan struct{})}
}

// ///////////////////////////////////////////////
// Run Loop
// ///////////////////////////////////////////////

// Run probes the endpoint every Interval until Close is called (nil) or ctx
// is cancelled (ctx.Err()). Close also aborts a probe in flight, retries
// included. A captcha challenge ends the loop with
// [exitcode.ErrCaptchaRequired].
func (c *Client) Run(ctx context.Context) error {
	probeCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.closed:
			cancel()
		case <-probeCtx.Done():
		}
	}()

	c.opts.WS.Info(c.opts.Catalog.Text("gui", "websocket", "connecting"), "endpoint", c.opts.Endpoint)

	for {
		if err := c.check(probeCtx); err != nil {
			return err
		}

		select {
		case <-c.closed:
			return nil
		default:
		}
		select {
		case <-c.closed:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.opts.Interval):
		}
	}
}

// check runs a single probe and records its outcome.
func (c *Client) check(ctx context.Context) error {
	start := time.Now()
	status, body, err := c.probe(ctx)
	rec := Probe{Time: start, Status: status, Duration: time.Since(start)}
	if err != nil {
		rec.Error = err.Error()
	}
	c.record(rec)

	// A request aborted by shutdown is not an outage.
	if ctx.Err() != nil {
		return nil
	}

	seconds := strconv.Itoa(int(c.opts.Interval.Seconds()))
	switch {
	case err != nil:
		c.setConnected(false)
		c.opts.Log.Warn(catalog.Fill(c.opts.Catalog.Text("error", "no_connection"), "seconds", seconds), "error", err)
	case status == http.StatusForbidden && strings.Contains(strings.ToLower(body), "captcha"):
		return fmt.Errorf("probe %s: %w", c.opts.Endpoint, exitcode.ErrCaptchaRequired)
	case status >= 500:
		c.setConnected(false)
		c.opts.Log.Warn(catalog.Fill(c.opts.Catalog.Text("error", "site_down"), "seconds", seconds), "status", status)
	default:
		c.setConnected(true)
	}
	return nil
}

// probe issues one GET and returns the status code and a prefix of the body.
func (c *Client) probe(ctx context.Context) (int, string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.opts.Endpoint, nil)
	if err != nil {
		return 0, "", fmt.Errorf("build request: %w", err)
	}
	logger.Call(c.opts.GQL, "probe", "method", req.Method, "url", c.opts.Endpoint)

	resp, err := c.http.Do(req)
	if err != nil {
		c.opts.GQL.Debug("probe failed", "error", err)
		return 0, "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil && !errors.Is(err, context.Canceled) {
		return resp.StatusCode, "", fmt.Errorf("read body: %w", err)
	}
	c.opts.GQL.Debug("probe response", "status", resp.StatusCode, "bytes", len(data))
	return resp.StatusCode, string(data), nil
}

// record appends rec to the history and updates the persisted counters.
func (c *Client) record(rec Probe) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.history = append(c.history, rec)
	if len(c.history) > maxHistory {
		c.history = c.history[len(c.history)-maxHistory:]
	}
	c.state.Probes++
	c.state.LastStatus = rec.Status
	if rec.Error != "" || rec.Status >= 500 {
		c.state.Failures++
	} else {
		c.state.LastOK = rec.Time
	}
	c.dirty = true
}

// setConnected logs connection state transitions on the websocket channel.
func (c *Client) setConnected(up bool) {
	c.mu.Lock()
	changed := c.connected != up
	c.connected = up
	c.mu.Unlock()
	if !changed {
		return
	}
	key := "disconnected"
	if up {
		key = "connected"
	}
	c.opts.WS.Info(c.opts.Catalog.Text("gui", "websocket", key))
}

// ///////////////////////////////////////////////
// Lifecycle
// ///////////////////////////////////////////////

// Close requests a cooperative stop. It is safe to call more than once and
// from any goroutine.
func (c *Client) Close() {
	c.mu.Lock()
	c.closeRequested = true
	c.mu.Unlock()
	c.closeOnce.Do(func() { close(c.closed) })
}

// PreventClose clears the close-requested flag.
func (c *Client) PreventClose() {
	c.mu.Lock()
	c.closeRequested = false
	c.mu.Unlock()
}

// CloseRequested reports whether a stop was requested and not since prevented.
func (c *Client) CloseRequested() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeRequested
}

// Shutdown releases network resources and writes the diagnostic dump if one
// was requested.
func (c *Client) Shutdown(ctx context.Context) error {
	c.http.HTTPClient.CloseIdleConnections()

	c.mu.Lock()
	wasConnected := c.connected
	c.connected = false
	history := append([]Probe(nil), c.history...)
	c.mu.Unlock()

	if wasConnected {
		c.opts.WS.Info(c.opts.Catalog.Text("gui", "websocket", "disconnected"))
	}
	st := c.snapshot()
	c.opts.Log.Debug("Client stopped", "probes", st.Probes, "failures", st.Failures)

	if c.opts.DumpPath == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("write dump: %w", err)
	}
	if err := atomicfile.WriteJSON(c.opts.DumpPath, history, 0o644); err != nil {
		return fmt.Errorf("write dump: %w", err)
	}
	c.opts.Log.Info("Diagnostic dump written", "path", c.opts.DumpPath, "probes", len(history))
	return nil
}

// Save writes the state file when it changed since the last save, or always
// when force is set.
func (c *Client) Save(force bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirty && !force {
		return nil
	}
	if c.opts.StatePath == "" {
		return nil
	}
	if err := atomicfile.WriteJSON(c.opts.StatePath, c.state, 0o644); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	c.dirty = false
	return nil
}

// snapshot returns a copy of the current state.
func (c *Client) snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
