// Package stream connects a modify.Modifier to an io.Reader. It buffers
// input, lets the modifier edit the buffer, and hands out the characters the
// modifier has finalized.
package stream

import (
	"context"
	"io"
	"log/slog"
	"unicode/utf8"

	"github.com/amitshokeen/streamflyer/pkg/modify"
)

// DefaultChunkSize is the default number of bytes read from the source at a time.
const DefaultChunkSize = 4096

// Options configures a Reader.
type Options struct {
	// ChunkSize is the size of reads from the source. Zero selects DefaultChunkSize.
	ChunkSize int

	// Logger receives debug events. Nil means slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() Options {
	return Options{ChunkSize: DefaultChunkSize}
}

// Reader is an io.Reader yielding the modified content of a source.
//
// The modifier never sees a UTF-8 sequence split across reads: incomplete
// sequences at the end of a chunk are held back until the rest arrives.
// Once the modifier reports Done, the remaining input is copied unchanged.
//
// If the source or the modifier fails, Read first returns everything that was
// finalized before the failure and then the error. Unfinalized text is lost.
type Reader struct {
	ctx    context.Context
	src    io.Reader
	mod    modify.Modifier
	logger *slog.Logger

	buf   *modify.Buffer
	chunk []byte
	carry []byte // incomplete UTF-8 sequence read but not yet buffered
	out   []byte // finalized, not yet returned

	fetch bool
	eos   bool
	done  bool
	err   error
}

// NewReader returns a Reader that applies m to the content of src.
func NewReader(src io.Reader, m modify.Modifier, opts Options) *Reader {
	return newReader(context.Background(), src, m, opts)
}

func newReader(ctx context.Context, src io.Reader, m modify.Modifier, opts Options) *Reader {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{
		ctx:    ctx,
		src:    src,
		mod:    m,
		logger: logger,
		buf:    modify.NewBuffer(""),
		chunk:  make([]byte, opts.ChunkSize),
		fetch:  true,
	}
}

func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(r.out) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		r.err = r.step()
	}
	n := copy(p, r.out)
	r.out = r.out[n:]
	return n, nil
}

// step advances the reader by one modifier call, or one read once the
// modifier is done.
func (r *Reader) step() error {
	if r.done {
		return r.passThrough()
	}
	if r.fetch && !r.eos {
		if err := r.fill(); err != nil {
			return err
		}
		r.fetch = false
	}

	version := r.buf.Version()
	am, err := r.mod.Modify(r.buf, 0, r.eos)
	if err != nil {
		return err
	}
	if err := am.Validate(r.buf, 0); err != nil {
		return err
	}
	changed := r.buf.Version() != version

	r.out = append(r.out, r.buf.Discard(am.Skip)...)

	switch {
	case am.Done:
		r.out = append(r.out, r.buf.Discard(r.buf.Len())...)
		r.out = append(r.out, r.carry...)
		r.carry = nil
		r.done = true
		r.logger.Debug("modifier done, passing the rest through")
	case am.Again:
		if am.Skip == 0 && !changed {
			return modify.ErrPolicyLivelock
		}
	case am.FetchMore:
		if !r.eos {
			r.fetch = true
			return nil
		}
		if r.buf.Len() == 0 {
			return io.EOF
		}
		if am.Skip == 0 && !changed {
			return modify.ErrPolicyLivelock
		}
	}
	return nil
}

// fill reads until at least one complete character has been buffered or
// the source is exhausted. A cancelled context ends the stream.
func (r *Reader) fill() error {
	for {
		if err := r.ctx.Err(); err != nil {
			r.logger.Debug("context done, treating as end of stream", "err", err)
			r.endOfStream()
			return nil
		}

		n, err := r.src.Read(r.chunk)
		if n > 0 {
			data := append(r.carry, r.chunk[:n]...)
			k := completePrefix(data)
			r.buf.Append(data[:k])
			r.carry = append(r.carry[:0], data[k:]...)
			if k > 0 && err == nil {
				return nil
			}
		}
		if err == io.EOF {
			r.endOfStream()
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (r *Reader) endOfStream() {
	r.eos = true
	r.buf.Append(r.carry)
	r.carry = nil
}

func (r *Reader) passThrough() error {
	if r.eos {
		return io.EOF
	}
	if r.ctx.Err() != nil {
		r.eos = true
		return io.EOF
	}
	n, err := r.src.Read(r.chunk)
	r.out = append(r.out, r.chunk[:n]...)
	if err == io.EOF {
		r.eos = true
		return nil
	}
	return err
}

// completePrefix returns the length of the longest prefix of p that does
// not end inside a UTF-8 sequence.
func completePrefix(p []byte) int {
	for i := len(p) - 1; i >= 0 && i >= len(p)-utf8.UTFMax; i-- {
		if utf8.RuneStart(p[i]) {
			if utf8.FullRune(p[i:]) {
				return len(p)
			}
			return i
		}
	}
	return len(p)
}
