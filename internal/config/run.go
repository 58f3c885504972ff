package config

import (
	"log/slog"

	"tools.zach/dev/dropsminer/internal/logger"
)

// ///////////////////////////////////////////////
// Channel Levels
// ///////////////////////////////////////////////

// ChannelLevel is the level override for one debug channel.
type ChannelLevel int

const (
	// ChannelInherit uses the root logging level.
	ChannelInherit ChannelLevel = iota
	// ChannelInfo quiets the channel to informational records.
	ChannelInfo
	// ChannelDebug forces raw debug output.
	ChannelDebug
)

func (c ChannelLevel) String() string {
	switch c {
	case ChannelInfo:
		return "info"
	case ChannelDebug:
		return "debug"
	default:
		return "inherit"
	}
}

// Resolve returns the slog level for the channel given the root level.
func (c ChannelLevel) Resolve(root slog.Level) slog.Level {
	switch c {
	case ChannelInfo:
		return logger.LevelInfo
	case ChannelDebug:
		return logger.LevelDebug
	default:
		return root
	}
}

// channelLevel derives a debug channel's override. At maximum verbosity the
// root already logs raw debug records, so the channel is quieted to Info
// whether or not its flag is set.
func channelLevel(flag bool, verbosity int) ChannelLevel {
	switch {
	case verbosity >= logger.MaxVerbosity:
		return ChannelInfo
	case flag:
		return ChannelDebug
	default:
		return ChannelInherit
	}
}

// ///////////////////////////////////////////////
// RunConfig
// ///////////////////////////////////////////////

// RunConfig is the immutable result of command-line parsing.
type RunConfig struct {
	verbosity int
	debugWS   ChannelLevel
	debugGQL  ChannelLevel
	log       bool
	dump      bool
}

// NewRunConfig builds a RunConfig. verbosity is clamped to 0..MaxVerbosity.
func NewRunConfig(verbosity int, debugWS, debugGQL, log, dump bool) RunConfig {
	v := logger.ClampVerbosity(verbosity)
	return RunConfig{
		verbosity: v,
		debugWS:   channelLevel(debugWS, v),
		debugGQL:  channelLevel(debugGQL, v),
		log:       log,
		dump:      dump,
	}
}

// Verbosity returns the clamped verbosity.
func (r RunConfig) Verbosity() int { return r.verbosity }

// LoggingLevel returns the root logging level for the verbosity.
func (r RunConfig) LoggingLevel() slog.Level { return logger.LevelFor(r.verbosity) }

// DebugWS returns the websocket channel override.
func (r RunConfig) DebugWS() ChannelLevel { return r.debugWS }

// DebugGQL returns the gql channel override.
func (r RunConfig) DebugGQL() ChannelLevel { return r.debugGQL }

// Log reports whether records are also written to the log file.
func (r RunConfig) Log() bool { return r.log }

// Dump reports whether a diagnostic dump was requested.
func (r RunConfig) Dump() bool { return r.dump }
