// internal/mraid/errors.go
package mraid

import (
	"errors"
	"fmt"
)

// ErrSurfaceDestroyed is wrapped by commands that arrive after the primary
// surface has been torn down.
var ErrSurfaceDestroyed = errors.New("mraid: surface destroyed")

// CommandError is a failure reported back to the creative that issued a
// command. The controller itself stays usable.
type CommandError struct {
	Command string // protocol command name, filled in by the bridge if empty
	Message string
	Err     error
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	if e.Command == "" {
		return e.Message
	}
	return fmt.Sprintf("mraid %s: %s", e.Command, e.Message)
}

// Unwrap provides the underlying error for use with errors.Is/As.
func (e *CommandError) Unwrap() error {
	return e.Err
}

func commandErrorf(format string, args ...any) *CommandError {
	return &CommandError{Message: fmt.Sprintf(format, args...)}
}

// IsCommandError reports whether err carries a CommandError.
func IsCommandError(err error) bool {
	var ce *CommandError
	return errors.As(err, &ce)
}
