package tokens

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// Mode selects where a token match may start.
type Mode int

const (
	// Search finds the earliest match at or after the scan position.
	Search Mode = iota
	// Anchored only accepts matches starting at the scan position.
	Anchored
)

func (m Mode) String() string {
	if m == Anchored {
		return "anchored"
	}
	return "search"
}

// TieBreak selects the winner among tokens matching at the same position.
type TieBreak int

const (
	// FirstRegistered picks the token registered first, whatever the match length.
	FirstRegistered TieBreak = iota
	// Longest picks the longest match; equal lengths go to the token registered first.
	Longest
)

func (t TieBreak) String() string {
	if t == Longest {
		return "longest"
	}
	return "first"
}

// DefaultLookAhead is the default number of bytes the matcher waits for
// before it stops treating a scan as inconclusive.
const DefaultLookAhead = 2048

// MatcherOptions configures a Matcher.
type MatcherOptions struct {
	Mode     Mode
	TieBreak TieBreak

	// LookAhead bounds how far past its start a candidate match is waited
	// for. A candidate with that many bytes buffered from its start on is
	// resolved as if the stream had ended. Zero selects DefaultLookAhead.
	LookAhead int
}

// DefaultMatcherOptions returns MatcherOptions with sensible defaults.
func DefaultMatcherOptions() MatcherOptions {
	return MatcherOptions{LookAhead: DefaultLookAhead}
}

// Status is the result kind of a scan.
type Status int

const (
	// NoMatch: no token can match at the scan position, whatever input follows.
	NoMatch Status = iota
	// Matched: the reported match does not depend on input not yet buffered.
	Matched
	// Inconclusive: more input could produce a match, or a different one.
	Inconclusive
)

func (s Status) String() string {
	switch s {
	case Matched:
		return "matched"
	case Inconclusive:
		return "inconclusive"
	default:
		return "no-match"
	}
}

// Outcome is the result of Matcher.TryMatch.
type Outcome struct {
	Status Status

	// Match is set when Status is Matched. Offsets are buffer positions.
	Match *Match

	// SafeSkip is set when Status is NoMatch: the number of bytes after the
	// scan position that can never begin a match.
	SafeSkip int
}

// Matcher finds registered tokens in a buffer. It compiles all tokens into a
// single alternation once; leftmost-first alternation then yields the
// earliest match, with ties going to the token registered first.
//
// A Matcher is read-only after construction and safe for concurrent use.
type Matcher struct {
	tokens []*Token

	// offsets[i] is the group index of token i in the alternation.
	offsets []int

	search   *regexp.Regexp
	anchored *regexp.Regexp
	live     *liveness
	opts     MatcherOptions
}

// NewMatcher creates a matcher for toks, tried in the given order.
func NewMatcher(toks []*Token, opts MatcherOptions) (*Matcher, error) {
	if opts.LookAhead <= 0 {
		opts.LookAhead = DefaultLookAhead
	}

	seen := make(map[string]bool, len(toks))
	parts := make([]string, 0, len(toks))
	offsets := make([]int, len(toks))
	group := 1
	for i, t := range toks {
		if t == nil {
			return nil, fmt.Errorf("token %d is nil", i)
		}
		if seen[t.name] {
			return nil, &DuplicateTokenError{Name: t.name}
		}
		seen[t.name] = true
		offsets[i] = group
		group += 1 + t.groups
		parts = append(parts, "("+t.regex+")")
	}

	pattern := strings.Join(parts, "|")
	if len(parts) == 0 {
		// Matches nothing.
		pattern = `[^\x00-\x{10FFFF}]`
	}

	search, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compiling token alternation: %w", err)
	}
	anchored, err := regexp.Compile(`\A(?:` + pattern + `)`)
	if err != nil {
		return nil, fmt.Errorf("compiling token alternation: %w", err)
	}
	live, err := newLiveness(pattern)
	if err != nil {
		return nil, fmt.Errorf("compiling token alternation: %w", err)
	}

	return &Matcher{
		tokens:   toks,
		offsets:  offsets,
		search:   search,
		anchored: anchored,
		live:     live,
		opts:     opts,
	}, nil
}

// Tokens returns the registered tokens in registration order.
func (m *Matcher) Tokens() []*Token {
	return m.tokens
}

// Options returns the options the matcher was built with.
func (m *Matcher) Options() MatcherOptions {
	return m.opts
}

// TryMatch scans buf from pos. eos reports whether buf holds the rest of the
// stream. Patterns see no text before pos: ^ and \A match at pos.
//
// Before eos, a candidate that started LookAhead bytes or more before the
// end of buf is no longer waited for.
func (m *Matcher) TryMatch(buf []byte, pos int, eos bool) Outcome {
	text := buf[pos:]

	if mt := m.find(text); mt != nil {
		if !eos && m.pending(text, mt) {
			return Outcome{Status: Inconclusive}
		}
		mt.shift(pos)
		return Outcome{Status: Matched, Match: mt}
	}

	if eos {
		return Outcome{Status: NoMatch, SafeSkip: m.deadSkip(text)}
	}

	limit := len(text)
	if m.opts.Mode == Anchored {
		limit = 0
	}
	start, alive := m.live.earliest(text, m.horizon(text), limit)
	switch {
	case !alive:
		return Outcome{Status: NoMatch, SafeSkip: m.deadSkip(text)}
	case start > 0:
		return Outcome{Status: NoMatch, SafeSkip: start}
	}
	return Outcome{Status: Inconclusive}
}

// pending reports whether more input could still extend mt or produce a
// match that beats it.
func (m *Matcher) pending(text []byte, mt *Match) bool {
	from := m.horizon(text)
	if mt.End() == len(text) && mt.Start() >= from {
		return true
	}
	_, alive := m.live.earliest(text, from, mt.Start())
	return alive
}

// horizon is the first position in text a candidate may start at and still
// be waited for.
func (m *Matcher) horizon(text []byte) int {
	return max(0, len(text)-m.opts.LookAhead+1)
}

// deadSkip is the skip for a position nothing can match at. In search mode
// nothing matches anywhere in text; in anchored mode only the current
// position is known to be dead.
func (m *Matcher) deadSkip(text []byte) int {
	if m.opts.Mode == Anchored {
		return firstGrapheme(text)
	}
	return len(text)
}

// find returns the winning non-empty match in text, in text coordinates.
func (m *Matcher) find(text []byte) *Match {
	re := m.search
	if m.opts.Mode == Anchored {
		re = m.anchored
	}

	off := 0
	for off <= len(text) {
		loc := re.FindSubmatchIndex(text[off:])
		if loc == nil {
			return nil
		}
		start := off + loc[0]
		if m.opts.TieBreak == FirstRegistered && loc[1] > loc[0] {
			mt := m.fromAlternation(loc)
			mt.shift(off)
			return mt
		}
		if mt := m.resolveAt(text, start); mt != nil {
			return mt
		}
		if m.opts.Mode == Anchored {
			return nil
		}
		_, size := utf8.DecodeRune(text[start:])
		if size == 0 {
			return nil
		}
		off = start + size
	}
	return nil
}

// fromAlternation maps a match of the alternation back to its token.
func (m *Matcher) fromAlternation(loc []int) *Match {
	for i, t := range m.tokens {
		o := m.offsets[i]
		if loc[2*o] < 0 {
			continue
		}
		index := make([]int, 2*(t.groups+1))
		copy(index, loc[2*o:2*(o+t.groups+1)])
		return &Match{Token: t, Index: index}
	}
	return nil
}

// resolveAt tries every token at start and picks the winner by tie-break.
// Empty matches never win.
func (m *Matcher) resolveAt(text []byte, start int) *Match {
	var best *Match
	for _, t := range m.tokens {
		loc := t.anchored.FindSubmatchIndex(text[start:])
		if loc == nil || loc[1] == loc[0] {
			continue
		}
		if best == nil || loc[1] > best.End() {
			best = &Match{Token: t, Index: loc}
		}
		if m.opts.TieBreak == FirstRegistered {
			break
		}
	}
	if best != nil {
		best.shift(start)
	}
	return best
}

func firstGrapheme(text []byte) int {
	cluster, _, _, _ := uniseg.FirstGraphemeCluster(text, -1)
	return len(cluster)
}
