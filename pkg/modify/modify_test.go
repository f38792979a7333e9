package modify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferEdits(t *testing.T) {
	buf := NewBuffer("hello world")
	v := buf.Version()

	buf.ReplaceString(0, 5, "goodbye")
	assert.Equal(t, "goodbye world", buf.String())
	assert.NotEqual(t, v, buf.Version())

	buf.Insert(7, ",")
	assert.Equal(t, "goodbye, world", buf.String())

	buf.Delete(8, 9)
	assert.Equal(t, "goodbye,world", buf.String())

	buf.Append([]byte("!"))
	assert.Equal(t, "goodbye,world!", buf.String())
	assert.Equal(t, 14, buf.Len())
	assert.Equal(t, "world", buf.Slice(8, 13))

	head := buf.Discard(8)
	assert.Equal(t, "goodbye,", string(head))
	assert.Equal(t, "world!", buf.String())
}

func TestBufferAppendEmptyKeepsVersion(t *testing.T) {
	buf := NewBuffer("x")
	v := buf.Version()
	buf.Append(nil)
	assert.Equal(t, v, buf.Version())
}

func TestFactories(t *testing.T) {
	buf := NewBuffer("abcdef")

	tests := []struct {
		name string
		got  AfterModification
		want AfterModification
	}{
		{"fetch more", FetchMoreInput(2), AfterModification{Skip: 2, FetchMore: true}},
		{"again", ModifyAgainImmediately(1), AfterModification{Skip: 1, Again: true}},
		{"stop", Stop(buf, 2), AfterModification{Skip: 4, Done: true}},
		{"skip entire buffer", SkipEntireBuffer(buf, 1, false), AfterModification{Skip: 5, FetchMore: true}},
		{"skip entire buffer at eos", SkipEntireBuffer(buf, 1, true), AfterModification{Skip: 5, Done: true}},
		{"skip or stop partial", SkipOrStop(2, buf, 1, true), AfterModification{Skip: 2, Again: true}},
		{"skip or stop to end", SkipOrStop(5, buf, 1, false), AfterModification{Skip: 5, FetchMore: true}},
		{"skip or stop to end at eos", SkipOrStop(5, buf, 1, true), AfterModification{Skip: 5, Done: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
			require.NoError(t, tt.got.Validate(buf, 1))
		})
	}
}

func TestValidate(t *testing.T) {
	buf := NewBuffer("abc")

	assert.NoError(t, FetchMoreInput(3).Validate(buf, 0))
	assert.Error(t, FetchMoreInput(4).Validate(buf, 0))
	assert.Error(t, FetchMoreInput(-1).Validate(buf, 0))
	assert.Error(t, AfterModification{Skip: 1}.Validate(buf, 0))
	assert.Error(t, AfterModification{Skip: 1, Again: true, Done: true}.Validate(buf, 0))
}

func TestString(t *testing.T) {
	assert.Equal(t, "{skip=3 fetch-more}", FetchMoreInput(3).String())
	assert.Equal(t, "{skip=0 again}", ModifyAgainImmediately(0).String())
	assert.Equal(t, "{skip=0 none}", AfterModification{}.String())
}
