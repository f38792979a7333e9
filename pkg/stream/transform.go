package stream

import (
	"context"
	"io"
	"strings"

	"github.com/amitshokeen/streamflyer/pkg/modify"
)

// Transform copies src to dst, applying m. Cancelling ctx ends the input
// early: what was read so far is processed as the end of the stream.
func Transform(ctx context.Context, dst io.Writer, src io.Reader, m modify.Modifier, opts Options) (int64, error) {
	return io.Copy(dst, newReader(ctx, src, m, opts))
}

// String applies m to s. On error it returns the output finalized so far.
func String(s string, m modify.Modifier, opts Options) (string, error) {
	var sb strings.Builder
	_, err := Transform(context.Background(), &sb, strings.NewReader(s), m, opts)
	return sb.String(), err
}
