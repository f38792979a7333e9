// Package engine drives a token Matcher over a modifiable buffer: it
// dispatches matches to their token's processor and consults the no-match
// chain when nothing matches.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/amitshokeen/streamflyer/pkg/modify"
	"github.com/amitshokeen/streamflyer/pkg/nomatch"
	"github.com/amitshokeen/streamflyer/pkg/tokens"
)

const chainSource = "no-match chain"

// Options configures a Processor.
type Options struct {
	// Handlers are consulted in order when nothing matches, and when
	// unmatched text precedes a match.
	Handlers []nomatch.Handler

	// Logger receives debug events. Nil means slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns Options with no handlers, so the default no-match
// policy always applies.
func DefaultOptions() Options {
	return Options{}
}

// Processor is a modify.Modifier that rewrites token matches in a stream.
// A Processor holds per-stream state; use one per stream. The Matcher may be
// shared.
type Processor struct {
	matcher *tokens.Matcher
	chain   nomatch.Chain
	logger  *slog.Logger
	state   State
}

// New creates a Processor for m.
func New(m *tokens.Matcher, opts Options) *Processor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		matcher: m,
		chain:   nomatch.Chain(opts.Handlers),
		logger:  logger,
	}
}

// NewFromTokens builds a Matcher for toks and a Processor for it.
func NewFromTokens(toks []*tokens.Token, opts Options, mopts tokens.MatcherOptions) (*Processor, error) {
	m, err := tokens.NewMatcher(toks, mopts)
	if err != nil {
		return nil, err
	}
	return New(m, opts), nil
}

// State returns the phase of the last Modify call.
func (p *Processor) State() State {
	return p.state
}

// Matcher returns the matcher the processor scans with.
func (p *Processor) Matcher() *tokens.Matcher {
	return p.matcher
}

// Modify scans buf from firstModifiable, processing matches until it needs
// more input, the buffer is exhausted, or the no-match chain completes the
// stream.
func (p *Processor) Modify(buf *modify.Buffer, firstModifiable int, eos bool) (modify.AfterModification, error) {
	if p.state == Complete {
		return modify.Stop(buf, firstModifiable), nil
	}

	pos := firstModifiable
	for {
		p.state = Scanning
		out := p.matcher.TryMatch(buf.Bytes(), pos, eos)

		switch out.Status {
		case tokens.Inconclusive:
			p.logger.Debug("scan inconclusive, fetching more input", "pos", pos, "pending", buf.Len()-pos)
			return modify.FetchMoreInput(pos - firstModifiable), nil

		case tokens.Matched:
			p.state = Matched
			m := out.Match
			if m.Start() > pos {
				ev := p.event(buf, firstModifiable, pos, m.Start()-pos, eos)
				resolved, err := p.chain.ResolveMatch(ev, m)
				if err != nil {
					return modify.AfterModification{}, &ProcessorError{Source: chainSource, Err: err}
				}
				m = resolved
			}
			next, cont, err := p.dispatch(buf, pos, m)
			if err != nil {
				return modify.AfterModification{}, err
			}
			if !cont {
				return modify.SkipOrStop(next-firstModifiable, buf, firstModifiable, eos), nil
			}
			pos = next

		case tokens.NoMatch:
			p.state = NoMatch
			ev := p.event(buf, firstModifiable, pos, out.SafeSkip, eos)

			m, err := p.chain.ResolveMatch(ev, nil)
			if err != nil {
				return modify.AfterModification{}, &ProcessorError{Source: chainSource, Err: err}
			}
			if m != nil {
				next, cont, err := p.dispatch(buf, pos, m)
				if err != nil {
					return modify.AfterModification{}, err
				}
				if !cont {
					return modify.SkipOrStop(next-firstModifiable, buf, firstModifiable, eos), nil
				}
				pos = next
				continue
			}

			version := buf.Version()
			am, err := p.chain.Resolve(ev)
			if err != nil {
				return modify.AfterModification{}, &ProcessorError{Source: chainSource, Err: err}
			}
			if err := am.Validate(buf, firstModifiable); err != nil {
				return modify.AfterModification{}, &ProcessorError{Source: chainSource, Err: err}
			}

			switch {
			case am.Done:
				p.state = Complete
				p.logger.Debug("no-match chain completed the stream", "pos", pos, "skip", am.Skip)
				return am, nil
			case am.FetchMore:
				p.logger.Debug("no match, fetching more input", "pos", pos, "skip", am.Skip)
				return am, nil
			}

			next := firstModifiable + am.Skip
			if next <= pos && buf.Version() == version {
				return modify.AfterModification{}, &ProcessorError{Source: chainSource, Err: modify.ErrPolicyLivelock}
			}
			pos = next
		}
	}
}

func (p *Processor) event(buf *modify.Buffer, first, pos, safeSkip int, eos bool) nomatch.Event {
	return nomatch.Event{
		Start:           pos,
		Buffer:          buf,
		FirstModifiable: first,
		EOS:             eos,
		SafeSkip:        safeSkip,
	}
}

// dispatch hands m to its token's processor and returns the position to
// resume scanning at.
func (p *Processor) dispatch(buf *modify.Buffer, pos int, m *tokens.Match) (int, bool, error) {
	if m.Start() < pos || m.End() < m.Start() || m.End() > buf.Len() {
		return 0, false, &ProcessorError{
			Source: chainSource,
			Err:    fmt.Errorf("match [%d, %d) outside modifiable range [%d, %d)", m.Start(), m.End(), pos, buf.Len()),
		}
	}

	var proc tokens.MatchProcessor = tokens.DoNothing{}
	source := "virtual match"
	if m.Token != nil {
		proc = m.Token.Processor()
		source = "token " + m.Token.Name()
	}

	version := buf.Version()
	res, err := proc.Process(buf, pos, m)
	if err != nil {
		return 0, false, &ProcessorError{Source: source, Err: err}
	}
	if res.FirstModifiable < pos || res.FirstModifiable > buf.Len() {
		return 0, false, &ProcessorError{
			Source: source,
			Err:    fmt.Errorf("first modifiable %d outside [%d, %d]", res.FirstModifiable, pos, buf.Len()),
		}
	}
	if res.FirstModifiable == pos && buf.Version() == version {
		return 0, false, &ProcessorError{Source: source, Err: modify.ErrPolicyLivelock}
	}

	p.logger.Debug("processed match", "source", source, "start", m.Start(), "end", m.End(), "next", res.FirstModifiable)
	return res.FirstModifiable, res.Continue, nil
}
