package exitcode

import (
	"errors"
	"fmt"
	"testing"
)

// ///////////////////////////////////////////////
// Status Codes
// ///////////////////////////////////////////////

func TestStatusCode(t *testing.T) {
	tests := []struct {
		status Status
		want   int
	}{
		{Clean, 0},
		{UserInterrupt, 0},
		{CaptchaBlocked, 1},
		{FatalError, 1},
		{InvalidUsage, 2},
		{AlreadyRunning, 3},
		{InvalidConfiguration, 4},
		{Status(99), 1},
	}
	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			if got := tt.status.Code(); got != tt.want {
				t.Errorf("%v.Code() = %d, want %d", tt.status, got, tt.want)
			}
		})
	}
}

func TestStatusStringUnknown(t *testing.T) {
	if got := Status(42).String(); got != "status(42)" {
		t.Errorf("String() = %q, want %q", got, "status(42)")
	}
}

// ///////////////////////////////////////////////
// StatusOf
// ///////////////////////////////////////////////

func TestStatusOf(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want Status
	}{
		{"nil is clean", nil, Clean},
		{"plain error is fatal", cause, FatalError},
		{"coded", New(AlreadyRunning, "busy"), AlreadyRunning},
		{"wrapped coded", fmt.Errorf("outer: %w", Wrap(InvalidConfiguration, "settings", cause)), InvalidConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusOf(tt.err); got != tt.want {
				t.Errorf("StatusOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorMessageAndUnwrap(t *testing.T) {
	cause := errors.New("bad toml")
	err := Wrap(InvalidConfiguration, "load settings", cause)

	if got := err.Error(); got != "load settings: bad toml" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	if got := New(FatalError, "plain").Error(); got != "plain" {
		t.Errorf("Error() without cause = %q", got)
	}
}
