// Package main implements dropsminer, a long-running client that watches the
// remote service until interrupted and exits with a status that scripts can
// rely on.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	rootpkg "tools.zach/dev/dropsminer"
	"tools.zach/dev/dropsminer/internal/catalog"
	"tools.zach/dev/dropsminer/internal/config"
	"tools.zach/dev/dropsminer/internal/exitcode"
	"tools.zach/dev/dropsminer/internal/logger"
	"tools.zach/dev/dropsminer/internal/paths"
	"tools.zach/dev/dropsminer/internal/signals"
	"tools.zach/dev/dropsminer/internal/supervisor"
	"tools.zach/dev/dropsminer/internal/twitch"
)

// ///////////////////////////////////////////////
// Version
// ///////////////////////////////////////////////

// version is set at build time via ldflags:
//   - goreleaser: -X main.version={{.Version}}  -> "0.1.0"
//   - make build: -X main.version=$(VERSION)    -> "0.0.0-dev+05ffee5"
//
// When ldflags are not set (bare go build), resolveVersion reads the VCS info
// that Go embeds automatically.
var version = "dev"

// resolveVersion returns the build version string. If [version] was set via
// ldflags it is returned as-is; otherwise the embedded VCS revision is used to
// construct a "dev+<hash>" tag.
func resolveVersion() string {
	if version != "dev" {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version
	}
	var revision string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if revision == "" {
		return version
	}
	hash := revision[:min(7, len(revision))]
	if dirty {
		return "dev+" + hash + ".dirty"
	}
	return "dev+" + hash
}

// ///////////////////////////////////////////////
// Command
// ///////////////////////////////////////////////

// flags holds the parsed command line.
type flags struct {
	dataDir  string
	verbose  int
	log      bool
	dump     bool
	debugWS  bool
	debugGQL bool
}

// app carries the command's I/O and the status of the supervised run.
type app struct {
	stdout io.Writer
	stderr io.Writer
	// colorize enables coloured console level tags.
	colorize bool
	flags    flags
	status   exitcode.Status
}

// newRootCmd builds the dropsminer command bound to a.
func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           paths.BinaryName,
		Short:         "Mine timed drops on Twitch",
		Long:          "A program that allows you to mine timed drops on Twitch.",
		Version:       resolveVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.NoArgs(cmd, args); err != nil {
				return exitcode.Wrap(exitcode.InvalidUsage, "usage error", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd.Context())
		},
	}
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)
	cmd.SetVersionTemplate("v{{.Version}}\n")
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return exitcode.Wrap(exitcode.InvalidUsage, "usage error", err)
	})

	f := cmd.Flags()
	f.StringVar(&a.flags.dataDir, "data-dir", defaultDataDir(), "Data directory for settings, state, and logs")
	f.CountVarP(&a.flags.verbose, "verbose", "v", "Increase verbosity (repeatable, up to -vvvv)")
	f.BoolVar(&a.flags.log, "log", false, "Also write log records to "+paths.LogFile)
	f.BoolVar(&a.flags.dump, "dump", false, "Write a diagnostic dump to "+paths.DumpFile+" on shutdown")
	f.BoolVar(&a.flags.debugWS, "debug-ws", false, "Verbose websocket channel logging")
	f.BoolVar(&a.flags.debugGQL, "debug-gql", false, "Verbose gql channel logging")
	_ = f.MarkHidden("debug-ws")
	_ = f.MarkHidden("debug-gql")
	return cmd
}

// defaultDataDir returns ~/.dropsminer, or ./.dropsminer if the home
// directory cannot be determined.
func defaultDataDir() string {
	dir, err := paths.DefaultDataDir()
	if err != nil {
		return filepath.Join(".", paths.DataDirRel)
	}
	return dir
}

// run loads settings and hands over to the supervisor. Settings problems are
// reported before the instance lock is considered.
func (a *app) run(ctx context.Context) error {
	dd := paths.DataDir{Root: a.flags.dataDir}
	if err := dd.Ensure(); err != nil {
		return exitcode.Wrap(exitcode.FatalError, "startup error", err)
	}
	if err := config.Seed(dd.Settings(), rootpkg.DefaultConfigTOML); err != nil {
		return exitcode.Wrap(exitcode.InvalidConfiguration, "Settings error", err)
	}
	cfg, err := config.Load(dd.Root)
	if err != nil {
		return exitcode.Wrap(exitcode.InvalidConfiguration, "Settings error", err)
	}

	rc := config.NewRunConfig(a.flags.verbose, a.flags.debugWS, a.flags.debugGQL, a.flags.log, a.flags.dump)
	a.status = supervisor.Run(ctx, supervisor.Options{
		LockPath: dd.Lock(),
		Stderr:   a.stderr,
		Init: func() (*supervisor.Session, error) {
			return a.newSession(rc, cfg, dd)
		},
	})
	return nil
}

// newSession wires logging, the catalog and the client for one run.
func (a *app) newSession(rc config.RunConfig, cfg *config.Config, dd paths.DataDir) (*supervisor.Session, error) {
	opts := logger.Options{
		Level:     rc.LoggingLevel(),
		Console:   a.stdout,
		Color:     a.colorize,
		MaxSizeMB: cfg.Log.MaxSizeMB,
		RunID:     uuid.NewString(),
	}
	if rc.Log() {
		opts.File = dd.Log()
	}
	logs, err := logger.New(opts)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	log := logs.Root
	log.Debug("dropsminer starting", "version", resolveVersion(), "data_dir", dd.Root, "verbosity", rc.Verbosity())

	cat, err := catalog.New(dd.Lang())
	if err != nil {
		logs.Close()
		return nil, exitcode.Wrap(exitcode.InvalidConfiguration, "language directory", err)
	}
	if err := cat.SetLanguage(cfg.Language); err != nil {
		log.Warn("Language unavailable, using "+catalog.DefaultLanguage, "language", cfg.Language, "error", err)
	}

	clientOpts := twitch.Options{
		Endpoint:  cfg.Remote.Endpoint,
		Interval:  cfg.Remote.CheckInterval(),
		Timeout:   cfg.Remote.Timeout(),
		RetryMax:  cfg.Remote.RetryMax,
		Proxy:     cfg.ProxyURL(),
		StatePath: dd.State(),
		Catalog:   cat,
		Log:       log,
		WS:        logs.Channel("websocket", rc.DebugWS().Resolve(rc.LoggingLevel())),
		GQL:       logs.Channel("gql", rc.DebugGQL().Resolve(rc.LoggingLevel())),
	}
	if rc.Dump() {
		clientOpts.DumpPath = dd.Dump()
	}

	return &supervisor.Session{
		Client:  twitch.New(clientOpts),
		Bridge:  signals.Default(),
		Catalog: cat,
		Log:     log,
		Level:   rc.LoggingLevel(),
		Close:   logs.Close,
	}, nil
}

// ///////////////////////////////////////////////
// Main
// ///////////////////////////////////////////////

// execute runs the command with args and returns the process exit code.
func execute(args []string, stdout, stderr io.Writer, colorize bool) int {
	a := &app{stdout: stdout, stderr: stderr, colorize: colorize}
	cmd := newRootCmd(a)
	cmd.SetArgs(args)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		status := exitcode.StatusOf(err)
		fmt.Fprintln(stderr, err)
		if status == exitcode.InvalidUsage {
			fmt.Fprint(stderr, cmd.UsageString())
		}
		return status.Code()
	}
	return a.status.Code()
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr, !color.NoColor))
}
