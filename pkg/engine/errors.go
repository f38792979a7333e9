package engine

import "fmt"

// ProcessorError wraps a failure of a match processor or no-match handler.
// Source names the token or handler that failed.
type ProcessorError struct {
	Source string
	Err    error
}

func (e *ProcessorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *ProcessorError) Unwrap() error { return e.Err }
