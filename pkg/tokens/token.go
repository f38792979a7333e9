// Package tokens holds the tokens a stream processor recognizes and the
// Matcher that finds them in a buffer.
package tokens

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Token is a named regular expression bound to the processor that handles
// its matches. Tokens are immutable and may be shared between matchers.
type Token struct {
	// An ID for the token, unique among the tokens of one Matcher.
	name string

	// The pattern; flags are embedded in-band, see EmbedFlags.
	regex string

	re       *regexp.Regexp
	anchored *regexp.Regexp

	// Number of capturing groups in regex.
	groups int

	processor MatchProcessor
}

// New creates a token whose matches are left unchanged.
func New(name, regex string) (*Token, error) {
	return NewWithProcessor(name, regex, nil)
}

// NewReplacing creates a token whose matches are replaced by template.
// The template may refer to the token's own groups as $1, ${1} or ${name};
// references to groups the regex does not have are rejected.
func NewReplacing(name, regex, template string) (*Token, error) {
	t, err := NewWithProcessor(name, regex, nil)
	if err != nil {
		return nil, err
	}
	if err := checkTemplate(t, template); err != nil {
		return nil, err
	}
	t.processor = &Replacing{Template: template}
	return t, nil
}

// NewWithProcessor creates a token whose matches are handled by p.
// A nil p is replaced by DoNothing.
func NewWithProcessor(name, regex string, p MatchProcessor) (*Token, error) {
	re, err := regexp.Compile(regex)
	if err != nil {
		return nil, &InvalidPatternError{Name: name, Pattern: regex, Err: err}
	}
	anchored, err := regexp.Compile(`\A(?:` + regex + `)`)
	if err != nil {
		return nil, &InvalidPatternError{Name: name, Pattern: regex, Err: err}
	}
	if p == nil {
		p = DoNothing{}
	}
	return &Token{
		name:      name,
		regex:     regex,
		re:        re,
		anchored:  anchored,
		groups:    re.NumSubexp(),
		processor: p,
	}, nil
}

// Must panics if err is non-nil. It is intended for token tables built from
// literal patterns.
func Must(t *Token, err error) *Token {
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Token) Name() string { return t.name }
func (t *Token) Regex() string { return t.regex }
func (t *Token) CapturingGroupCount() int { return t.groups }
func (t *Token) Processor() MatchProcessor { return t.processor }
func (t *Token) Regexp() *regexp.Regexp { return t.re }

func (t *Token) String() string {
	return fmt.Sprintf("Token[name=%s, regex=%s, capturingGroupCount=%d, processor=%T]",
		t.name, t.regex, t.groups, t.processor)
}

// checkTemplate verifies that every $-reference in template names a group of t.
// The reference syntax is the one regexp.Expand accepts.
func checkTemplate(t *Token, template string) error {
	rest := template
	for {
		i := strings.IndexByte(rest, '$')
		if i < 0 {
			return nil
		}
		rest = rest[i+1:]
		if strings.HasPrefix(rest, "$") {
			rest = rest[1:]
			continue
		}
		name, n, ok := extractRef(rest)
		if !ok {
			// regexp.Expand keeps a malformed $ as text.
			continue
		}
		rest = rest[n:]

		if num, err := strconv.Atoi(name); err == nil {
			if num > t.groups {
				return &InvalidTemplateError{Name: t.name, Template: template, Ref: name}
			}
			continue
		}
		if t.re.SubexpIndex(name) < 0 {
			return &InvalidTemplateError{Name: t.name, Template: template, Ref: name}
		}
	}
}

// extractRef parses a group reference at the start of s (after the $).
// n is the number of bytes consumed.
func extractRef(s string) (name string, n int, ok bool) {
	if s == "" {
		return "", 0, false
	}
	brace := s[0] == '{'
	if brace {
		s = s[1:]
	}
	i := 0
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			break
		}
		i += size
	}
	if i == 0 {
		return "", 0, false
	}
	name = s[:i]
	if brace {
		if i >= len(s) || s[i] != '}' {
			return "", 0, false
		}
		return name, i + 2, true
	}
	return name, i, true
}
