package tokens

import (
	"github.com/amitshokeen/streamflyer/pkg/modify"
)

// Result is what a MatchProcessor reports after handling a match.
type Result struct {
	// FirstModifiable is the position scanning resumes at. Everything before
	// it may be finalized.
	FirstModifiable int

	// Continue asks to keep scanning the current buffer. If false, the
	// processor yields to the reader after finalizing up to FirstModifiable.
	Continue bool
}

// MatchProcessor handles a token match, possibly editing the buffer.
type MatchProcessor interface {
	Process(buf *modify.Buffer, firstModifiable int, m *Match) (Result, error)
}

// ProcessorFunc adapts a function to the MatchProcessor interface.
type ProcessorFunc func(buf *modify.Buffer, firstModifiable int, m *Match) (Result, error)

// Process calls f.
func (f ProcessorFunc) Process(buf *modify.Buffer, firstModifiable int, m *Match) (Result, error) {
	return f(buf, firstModifiable, m)
}

// DoNothing leaves matches unchanged.
type DoNothing struct{}

// Process skips past the match.
func (DoNothing) Process(_ *modify.Buffer, _ int, m *Match) (Result, error) {
	return Result{FirstModifiable: m.End(), Continue: true}, nil
}

// Replacing replaces matches with an expanded template.
type Replacing struct {
	Template string
}

// Process replaces the match and resumes scanning after the replacement.
func (r *Replacing) Process(buf *modify.Buffer, _ int, m *Match) (Result, error) {
	var repl []byte
	if m.Token != nil {
		repl = m.Token.re.Expand(nil, []byte(r.Template), buf.Bytes(), m.Index)
	} else {
		repl = []byte(r.Template)
	}
	buf.Replace(m.Start(), m.End(), repl)
	return Result{FirstModifiable: m.Start() + len(repl), Continue: true}, nil
}
