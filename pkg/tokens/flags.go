package tokens

import (
	"fmt"
	"strings"
)

// Flag is a regex flag that can be embedded in a pattern.
type Flag uint8

const (
	CaseInsensitive Flag = 1 << iota // i
	MultiLine                        // m: ^ and $ match at line breaks
	DotAll                           // s: . matches \n
	Ungreedy                         // U: swap the meaning of x* and x*?
)

var flagLetters = []struct {
	flag   Flag
	letter byte
}{
	{CaseInsensitive, 'i'},
	{MultiLine, 'm'},
	{DotAll, 's'},
	{Ungreedy, 'U'},
}

// ParseFlags parses flag letters such as "is".
func ParseFlags(s string) (Flag, error) {
	var f Flag
outer:
	for i := 0; i < len(s); i++ {
		for _, fl := range flagLetters {
			if s[i] == fl.letter {
				f |= fl.flag
				continue outer
			}
		}
		return 0, fmt.Errorf("unknown regex flag %q in %q", s[i], s)
	}
	return f, nil
}

// String returns the flag letters in canonical order.
func (f Flag) String() string {
	var sb strings.Builder
	for _, fl := range flagLetters {
		if f&fl.flag != 0 {
			sb.WriteByte(fl.letter)
		}
	}
	return sb.String()
}

// EmbedFlags returns regex with flags embedded in a non-capturing group, so
// the result is self-describing and has the same capturing groups.
func EmbedFlags(regex string, flags Flag) string {
	if flags == 0 {
		return regex
	}
	return "(?" + flags.String() + ":" + regex + ")"
}
