// Package nomatch decides what a stream processor does when its matcher
// reports no match. Handlers form a chain; the first one with an opinion
// wins and the Default policy applies when all of them abstain.
package nomatch

import (
	"github.com/amitshokeen/streamflyer/pkg/modify"
)

// Event describes the buffer state when a handler is consulted.
type Event struct {
	// Start is the scan position the matcher was run from.
	Start int

	Buffer *modify.Buffer

	// FirstModifiable is the first position the current Modify call may
	// change. Skips in AfterModification are relative to it.
	FirstModifiable int

	// EOS reports whether the buffer holds the rest of the stream.
	EOS bool

	// SafeSkip is the number of bytes after Start that cannot begin a match.
	// For a gap before a real match it is the length of the gap.
	SafeSkip int
}

// Gap returns the unmatched text covered by the event.
func (e Event) Gap() string {
	return e.Buffer.Slice(e.Start, e.Start+e.SafeSkip)
}
