package nomatch

import (
	"fmt"

	"github.com/amitshokeen/streamflyer/pkg/modify"
	"github.com/amitshokeen/streamflyer/pkg/tokens"
)

// Handler is consulted when the matcher reports no match, and whenever
// unmatched text precedes a match. A nil result abstains.
type Handler interface {
	// ProcessNoMatch may override def, the directive the chain would
	// otherwise return.
	ProcessNoMatch(ev Event, def modify.AfterModification) (*modify.AfterModification, error)

	// ProcessNoMatchResult may supply the match to dispatch. m is the match
	// found after a gap, or nil when nothing matched; a non-nil result for a
	// nil m is a virtual match.
	ProcessNoMatchResult(ev Event, m *tokens.Match) (*tokens.Match, error)
}

// Funcs adapts a pair of functions to Handler. A nil function abstains.
type Funcs struct {
	Modification func(ev Event, def modify.AfterModification) (*modify.AfterModification, error)
	Match        func(ev Event, m *tokens.Match) (*tokens.Match, error)
}

func (f Funcs) ProcessNoMatch(ev Event, def modify.AfterModification) (*modify.AfterModification, error) {
	if f.Modification == nil {
		return nil, nil
	}
	return f.Modification(ev, def)
}

func (f Funcs) ProcessNoMatchResult(ev Event, m *tokens.Match) (*tokens.Match, error) {
	if f.Match == nil {
		return nil, nil
	}
	return f.Match(ev, m)
}

// HandlerError reports the failure of a handler in a Chain.
type HandlerError struct {
	Index int
	Err   error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("no-match handler %d: %v", e.Index, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// Chain is an ordered list of handlers.
type Chain []Handler

// Resolve returns the directive of the first handler that does not abstain,
// or Default(ev) when all do. Later handlers are not consulted.
func (c Chain) Resolve(ev Event) (modify.AfterModification, error) {
	def := Default(ev)
	for i, h := range c {
		am, err := h.ProcessNoMatch(ev, def)
		if err != nil {
			return modify.AfterModification{}, &HandlerError{Index: i, Err: err}
		}
		if am != nil {
			return *am, nil
		}
	}
	return def, nil
}

// ResolveMatch returns the match of the first handler that does not
// abstain, or m when all do.
func (c Chain) ResolveMatch(ev Event, m *tokens.Match) (*tokens.Match, error) {
	for i, h := range c {
		res, err := h.ProcessNoMatchResult(ev, m)
		if err != nil {
			return nil, &HandlerError{Index: i, Err: err}
		}
		if res != nil {
			return res, nil
		}
	}
	return m, nil
}
