package engine

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amitshokeen/streamflyer/pkg/modify"
	"github.com/amitshokeen/streamflyer/pkg/nomatch"
	"github.com/amitshokeen/streamflyer/pkg/tokens"
)

// runToCompletion feeds the whole input at end of stream, calling Modify
// until the processor reports Done.
func runToCompletion(t *testing.T, p *Processor, input string) (string, error) {
	t.Helper()
	buf := modify.NewBuffer(input)
	first := 0
	for i := 0; i < 100; i++ {
		am, err := p.Modify(buf, first, true)
		if err != nil {
			return buf.String(), err
		}
		require.NoError(t, am.Validate(buf, first))
		first += am.Skip
		if am.Done {
			return buf.String(), nil
		}
		require.True(t, am.Again, "unexpected %s at end of stream", am)
	}
	t.Fatal("processor did not complete")
	return "", nil
}

func newProcessor(t *testing.T, opts Options, mopts tokens.MatcherOptions, toks ...*tokens.Token) *Processor {
	t.Helper()
	p, err := NewFromTokens(toks, opts, mopts)
	require.NoError(t, err)
	return p
}

func TestReplaceNumbers(t *testing.T) {
	num := tokens.Must(tokens.NewReplacing("NUM", `\d+`, "<N>"))

	tests := []struct {
		input    string
		expected string
	}{
		{"a12b", "a<N>b"},
		{"12", "<N>"},
		{"x1y22z333", "x<N>y<N>z<N>"},
		{"", ""},
		{"none", "none"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p := newProcessor(t, DefaultOptions(), tokens.DefaultMatcherOptions(), num)
			require.Equal(t, []*tokens.Token{num}, p.Matcher().Tokens())
			got, err := runToCompletion(t, p, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, Complete, p.State())
		})
	}
}

func TestIncrementalInput(t *testing.T) {
	num := tokens.Must(tokens.NewReplacing("NUM", `\d+`, "<N>"))
	p := newProcessor(t, DefaultOptions(), tokens.DefaultMatcherOptions(), num)

	buf := modify.NewBuffer("a12")
	am, err := p.Modify(buf, 0, false)
	require.NoError(t, err)
	assert.Equal(t, modify.FetchMoreInput(0), am)
	assert.Equal(t, "a12", buf.String())

	buf.Append([]byte("b"))
	am, err = p.Modify(buf, 0, false)
	require.NoError(t, err)
	assert.Equal(t, modify.FetchMoreInput(5), am)
	assert.Equal(t, "a<N>b", buf.String())
	assert.Equal(t, NoMatch, p.State())

	am, err = p.Modify(buf, 5, true)
	require.NoError(t, err)
	assert.Equal(t, modify.AfterModification{Skip: 0, Done: true}, am)
	assert.Equal(t, Complete, p.State())
}

func TestNoMatchAtEndOfStreamCompletes(t *testing.T) {
	p := newProcessor(t, DefaultOptions(), tokens.DefaultMatcherOptions(),
		tokens.Must(tokens.New("NUM", `\d+`)))

	buf := modify.NewBuffer("xyz")
	am, err := p.Modify(buf, 0, true)
	require.NoError(t, err)
	assert.Equal(t, modify.AfterModification{Skip: 3, Done: true}, am)
	assert.Equal(t, "xyz", buf.String())
	assert.Equal(t, Complete, p.State())

	// A completed processor leaves everything alone.
	buf.Append([]byte("42"))
	am, err = p.Modify(buf, 3, true)
	require.NoError(t, err)
	assert.Equal(t, modify.AfterModification{Skip: 2, Done: true}, am)
	assert.Equal(t, "xyz42", buf.String())
}

func TestTerminatePassesRemainderThrough(t *testing.T) {
	num := tokens.Must(tokens.NewReplacing("NUM", `\d+`, "<N>"))
	p := newProcessor(t,
		Options{Handlers: []nomatch.Handler{nomatch.Terminate()}},
		tokens.MatcherOptions{Mode: tokens.Anchored},
		num)

	got, err := runToCompletion(t, p, "1a2")
	require.NoError(t, err)
	assert.Equal(t, "<N>a2", got)
	assert.Equal(t, Complete, p.State())
}

func TestVirtualMatch(t *testing.T) {
	num := tokens.Must(tokens.New("NUM", `\d+`))
	gap := tokens.Must(tokens.NewReplacing("GAP", `.+`, "?"))

	handler := nomatch.Funcs{
		Match: func(ev nomatch.Event, m *tokens.Match) (*tokens.Match, error) {
			if m != nil || ev.SafeSkip == 0 {
				return nil, nil
			}
			return tokens.NewMatch(gap, ev.Start, ev.Start+ev.SafeSkip), nil
		},
	}
	p := newProcessor(t, Options{Handlers: []nomatch.Handler{handler}}, tokens.DefaultMatcherOptions(), num)

	got, err := runToCompletion(t, p, "ab12cd")
	require.NoError(t, err)
	assert.Equal(t, "ab12?", got)
}

func TestGapOverride(t *testing.T) {
	num := tokens.Must(tokens.NewReplacing("NUM", `\d+`, "#"))
	gaps := 0
	handler := nomatch.Funcs{
		Match: func(ev nomatch.Event, m *tokens.Match) (*tokens.Match, error) {
			if m == nil {
				return nil, nil
			}
			gaps++
			// Consume the gap as a match of its own; the real match is found again.
			return tokens.NewMatch(nil, ev.Start, m.Start()), nil
		},
	}
	p := newProcessor(t, Options{Handlers: []nomatch.Handler{handler}}, tokens.DefaultMatcherOptions(), num)

	got, err := runToCompletion(t, p, "ab1c2")
	require.NoError(t, err)
	assert.Equal(t, "ab#c#", got)
	assert.Equal(t, 2, gaps)
}

func TestTextObserver(t *testing.T) {
	var seen []string
	p := newProcessor(t,
		Options{Handlers: []nomatch.Handler{nomatch.TextObserver(func(s string) { seen = append(seen, s) })}},
		tokens.DefaultMatcherOptions(),
		tokens.Must(tokens.New("NUM", `\d+`)))

	got, err := runToCompletion(t, p, "ab12cd")
	require.NoError(t, err)
	assert.Equal(t, "ab12cd", got)
	assert.Equal(t, []string{"ab", "cd"}, seen)
}

func TestStopAfterMatch(t *testing.T) {
	once := tokens.Must(tokens.NewWithProcessor("NUM", `\d`, tokens.ProcessorFunc(
		func(buf *modify.Buffer, _ int, m *tokens.Match) (tokens.Result, error) {
			buf.ReplaceString(m.Start(), m.End(), "X")
			return tokens.Result{FirstModifiable: m.Start() + 1, Continue: false}, nil
		})))
	p := newProcessor(t, DefaultOptions(), tokens.DefaultMatcherOptions(), once)

	buf := modify.NewBuffer("1a1")
	am, err := p.Modify(buf, 0, true)
	require.NoError(t, err)
	assert.Equal(t, modify.ModifyAgainImmediately(1), am)

	got, err := runToCompletion(t, p, "1a1")
	require.NoError(t, err)
	assert.Equal(t, "XaX", got)
}

func TestProcessorErrors(t *testing.T) {
	boom := errors.New("boom")

	failing := tokens.Must(tokens.NewWithProcessor("FAIL", `\d`, tokens.ProcessorFunc(
		func(*modify.Buffer, int, *tokens.Match) (tokens.Result, error) {
			return tokens.Result{}, boom
		})))
	stuck := tokens.Must(tokens.NewWithProcessor("STUCK", `\d`, tokens.ProcessorFunc(
		func(_ *modify.Buffer, _ int, m *tokens.Match) (tokens.Result, error) {
			return tokens.Result{FirstModifiable: m.Start(), Continue: true}, nil
		})))
	backwards := tokens.Must(tokens.NewWithProcessor("BACK", `\d`, tokens.ProcessorFunc(
		func(*modify.Buffer, int, *tokens.Match) (tokens.Result, error) {
			return tokens.Result{FirstModifiable: 0, Continue: true}, nil
		})))

	tests := []struct {
		name     string
		tok      *tokens.Token
		handlers []nomatch.Handler
		wantIs   error
		source   string
	}{
		{"processor failure", failing, nil, boom, "token FAIL"},
		{"processor makes no progress", stuck, nil, modify.ErrPolicyLivelock, "token STUCK"},
		{"processor moves backwards", backwards, nil, nil, "token BACK"},
		{"handler failure", tokens.Must(tokens.New("NUM", `\d`)), []nomatch.Handler{nomatch.Funcs{
			Modification: func(nomatch.Event, modify.AfterModification) (*modify.AfterModification, error) {
				return nil, boom
			},
		}}, boom, chainSource},
		{"handler makes no progress", tokens.Must(tokens.New("NUM", `\d`)), []nomatch.Handler{nomatch.Funcs{
			Modification: func(nomatch.Event, modify.AfterModification) (*modify.AfterModification, error) {
				am := modify.ModifyAgainImmediately(0)
				return &am, nil
			},
		}}, modify.ErrPolicyLivelock, chainSource},
		{"handler skips past the buffer", tokens.Must(tokens.New("NUM", `\d`)), []nomatch.Handler{nomatch.Funcs{
			Modification: func(nomatch.Event, modify.AfterModification) (*modify.AfterModification, error) {
				am := modify.ModifyAgainImmediately(99)
				return &am, nil
			},
		}}, nil, chainSource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProcessor(t, Options{Handlers: tt.handlers}, tokens.DefaultMatcherOptions(), tt.tok)
			_, err := runToCompletion(t, p, "ab1cd")
			require.Error(t, err)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
			var perr *ProcessorError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.source, perr.Source)
		})
	}
}

func TestDebugLogging(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	p := newProcessor(t, Options{Logger: logger}, tokens.DefaultMatcherOptions(),
		tokens.Must(tokens.NewReplacing("NUM", `\d+`, "<N>")))

	_, err := runToCompletion(t, p, "a1")
	require.NoError(t, err)
	out := logs.String()
	assert.Contains(t, out, `source="token NUM"`)
	assert.Contains(t, out, "no-match chain completed the stream")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "SCANNING", Scanning.String())
	assert.Equal(t, "MATCHED", Matched.String())
	assert.Equal(t, "NO_MATCH", NoMatch.String())
	assert.Equal(t, "COMPLETE", Complete.String())
}
