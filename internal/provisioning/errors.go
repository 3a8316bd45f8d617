package provisioning

import (
	"errors"
	"fmt"
	"strings"
)

// Phase names the backend operation that failed.
type Phase string

const (
	PhaseInit    Phase = "init"
	PhaseApply   Phase = "apply"
	PhaseDestroy Phase = "destroy"
	PhaseOutput  Phase = "output"
)

// Error is returned by a Backend when a provisioning command fails.
type Error struct {
	Phase    Phase
	Dir      string
	Message  string
	ExitCode int
	Command  []string
}

func (e *Error) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "no output"
	}
	if e.Dir != "" {
		return fmt.Sprintf("%s failed in %s (exit code %d): %s", e.Phase, e.Dir, e.ExitCode, msg)
	}
	return fmt.Sprintf("%s failed (exit code %d): %s", e.Phase, e.ExitCode, msg)
}

// CommandLine returns the failed command as a single string.
func (e *Error) CommandLine() string {
	return strings.Join(e.Command, " ")
}

// IsPhase reports whether err is a provisioning error raised during phase.
func IsPhase(err error, phase Phase) bool {
	var pErr *Error
	return errors.As(err, &pErr) && pErr.Phase == phase
}
