// Package exitcode defines the process exit contract for dropsminer.
//
// Downstream tooling (service managers, wrapper scripts) relies on these
// integer codes, so they must never be renumbered:
//
//	0  clean exit or user interrupt
//	1  fatal error or captcha-blocked login
//	2  invalid command line usage
//	3  another instance already holds the instance lock
//	4  settings failed to load or validate
package exitcode

import (
	"errors"
	"fmt"
)

// ///////////////////////////////////////////////
// Status
// ///////////////////////////////////////////////

// Status classifies how a run ended. It is computed once, at the end of the
// run, and mapped to an integer exit code by [Status.Code].
type Status int

const (
	Clean Status = iota
	UserInterrupt
	CaptchaBlocked
	FatalError
	AlreadyRunning
	InvalidConfiguration
	InvalidUsage
)

// Code returns the integer process exit code for s.
func (s Status) Code() int {
	switch s {
	case Clean, UserInterrupt:
		return 0
	case CaptchaBlocked, FatalError:
		return 1
	case InvalidUsage:
		return 2
	case AlreadyRunning:
		return 3
	case InvalidConfiguration:
		return 4
	default:
		return 1
	}
}

// String returns a short lowercase name for s, used in log attributes.
func (s Status) String() string {
	switch s {
	case Clean:
		return "clean"
	case UserInterrupt:
		return "interrupted"
	case CaptchaBlocked:
		return "captcha"
	case FatalError:
		return "fatal"
	case AlreadyRunning:
		return "already_running"
	case InvalidConfiguration:
		return "invalid_configuration"
	case InvalidUsage:
		return "invalid_usage"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ///////////////////////////////////////////////
// Sentinel Errors
// ///////////////////////////////////////////////

// ErrCaptchaRequired is returned (possibly wrapped) by a client's run loop when
// the remote service challenged the login with a captcha. It is terminal for
// the process but is reported with its own message instead of as a crash.
var ErrCaptchaRequired = errors.New("captcha required")

// ///////////////////////////////////////////////
// Coded Errors
// ///////////////////////////////////////////////

// Error attaches an exit [Status] to an error so it can travel through layers
// (cobra's RunE in particular) that only know about plain errors.
type Error struct {
	Status  Status
	Message string
	Cause   error
}

// Error returns the message, followed by the cause when present.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a coded error without a cause.
func New(status Status, message string) *Error {
	return &Error{Status: status, Message: message}
}

// Wrap attaches status and message to cause.
func Wrap(status Status, message string, cause error) *Error {
	return &Error{Status: status, Message: message, Cause: cause}
}

// StatusOf extracts the exit status carried by err. A nil error is [Clean];
// an error without a status is a [FatalError].
func StatusOf(err error) Status {
	if err == nil {
		return Clean
	}
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Status
	}
	return FatalError
}
