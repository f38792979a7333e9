// Package modify defines the contract between a stream-buffering reader and
// the code that edits its buffer: the Buffer itself, the Modifier interface,
// and the AfterModification directive a Modifier returns.
package modify

import (
	"errors"
	"fmt"
)

// ErrPolicyLivelock reports a modification that would leave the scan position
// and the buffer unchanged without asking for more input.
var ErrPolicyLivelock = errors.New("modification makes no progress")

// Modifier edits the modifiable part of a buffer.
//
// Characters before firstModifiable are finalized and must not be edited.
// eos reports whether the underlying stream has no more input.
type Modifier interface {
	Modify(buf *Buffer, firstModifiable int, eos bool) (AfterModification, error)
}

// ModifierFunc adapts a function to the Modifier interface.
type ModifierFunc func(buf *Buffer, firstModifiable int, eos bool) (AfterModification, error)

// Modify calls f.
func (f ModifierFunc) Modify(buf *Buffer, firstModifiable int, eos bool) (AfterModification, error) {
	return f(buf, firstModifiable, eos)
}

// AfterModification tells the reader what to do after a call to Modify.
// Exactly one of FetchMore, Again and Done is set.
type AfterModification struct {
	// Skip is the number of characters after firstModifiable that are now
	// finalized and may be flushed.
	Skip int

	// FetchMore asks for more input before the next call to Modify.
	FetchMore bool

	// Again asks for another call to Modify without reading more input.
	Again bool

	// Done means Modify is not called again. Everything left in the buffer
	// and in the stream is emitted unchanged.
	Done bool
}

// FetchMoreInput finalizes skip characters and asks for more input.
func FetchMoreInput(skip int) AfterModification {
	return AfterModification{Skip: skip, FetchMore: true}
}

// ModifyAgainImmediately finalizes skip characters and asks to be called again
// on the same buffer.
func ModifyAgainImmediately(skip int) AfterModification {
	return AfterModification{Skip: skip, Again: true}
}

// Stop finalizes the whole buffer and ends modification.
func Stop(buf *Buffer, firstModifiable int) AfterModification {
	return AfterModification{Skip: buf.Len() - firstModifiable, Done: true}
}

// SkipEntireBuffer finalizes the whole buffer. At end of stream this completes
// the modification, otherwise more input is requested.
func SkipEntireBuffer(buf *Buffer, firstModifiable int, eos bool) AfterModification {
	if eos {
		return Stop(buf, firstModifiable)
	}
	return FetchMoreInput(buf.Len() - firstModifiable)
}

// SkipOrStop finalizes skip characters. If that consumes the buffer the
// modification completes at end of stream or asks for more input otherwise;
// if characters remain they are scanned again immediately.
func SkipOrStop(skip int, buf *Buffer, firstModifiable int, eos bool) AfterModification {
	if firstModifiable+skip >= buf.Len() {
		return SkipEntireBuffer(buf, firstModifiable, eos)
	}
	return ModifyAgainImmediately(skip)
}

// Validate checks that the directive is consistent with the buffer it applies to.
func (a AfterModification) Validate(buf *Buffer, firstModifiable int) error {
	if a.Skip < 0 || firstModifiable+a.Skip > buf.Len() {
		return fmt.Errorf("skip %d out of range [0, %d]", a.Skip, buf.Len()-firstModifiable)
	}
	n := 0
	for _, set := range []bool{a.FetchMore, a.Again, a.Done} {
		if set {
			n++
		}
	}
	if n != 1 {
		return fmt.Errorf("invalid modification %s: exactly one of fetch-more, again, done must be set", a)
	}
	return nil
}

func (a AfterModification) String() string {
	var what string
	switch {
	case a.Done:
		what = "done"
	case a.Again:
		what = "again"
	case a.FetchMore:
		what = "fetch-more"
	default:
		what = "none"
	}
	return fmt.Sprintf("{skip=%d %s}", a.Skip, what)
}
