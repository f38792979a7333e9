package modify

import "slices"

// Buffer is the growable character buffer that a Modifier edits in place.
// Positions are byte offsets into UTF-8 text.
type Buffer struct {
	b       []byte
	version uint64
}

// NewBuffer creates a buffer holding s.
func NewBuffer(s string) *Buffer {
	return &Buffer{b: []byte(s)}
}

// Len returns the number of buffered bytes.
func (b *Buffer) Len() int {
	return len(b.b)
}

// Bytes returns the buffered bytes. The slice is only valid until the next edit.
func (b *Buffer) Bytes() []byte {
	return b.b
}

// String returns a copy of the buffered text.
func (b *Buffer) String() string {
	return string(b.b)
}

// Slice returns a copy of the text in [start, end).
func (b *Buffer) Slice(start, end int) string {
	return string(b.b[start:end])
}

// Version changes every time the buffer content is edited. It lets callers
// tell whether a processor touched the buffer.
func (b *Buffer) Version() uint64 {
	return b.version
}

// Replace replaces the bytes in [start, end) with repl.
func (b *Buffer) Replace(start, end int, repl []byte) {
	b.b = slices.Replace(b.b, start, end, repl...)
	b.version++
}

// ReplaceString replaces the bytes in [start, end) with s.
func (b *Buffer) ReplaceString(start, end int, s string) {
	b.Replace(start, end, []byte(s))
}

// Insert inserts s at pos.
func (b *Buffer) Insert(pos int, s string) {
	b.Replace(pos, pos, []byte(s))
}

// Delete removes the bytes in [start, end).
func (b *Buffer) Delete(start, end int) {
	b.Replace(start, end, nil)
}

// Append adds p to the end of the buffer.
func (b *Buffer) Append(p []byte) {
	if len(p) == 0 {
		return
	}
	b.b = append(b.b, p...)
	b.version++
}

// Discard removes the first n bytes and returns a copy of them.
func (b *Buffer) Discard(n int) []byte {
	if n == 0 {
		return nil
	}
	out := slices.Clone(b.b[:n])
	b.b = slices.Delete(b.b, 0, n)
	b.version++
	return out
}
