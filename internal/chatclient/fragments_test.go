package chatclient

import (
	"errors"
	"strings"
	"testing"
	"testing/iotest"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, it func(func(string, error) bool)) ([]string, error) {
	t.Helper()
	var out []string
	for s, err := range it {
		if err != nil {
			return out, err
		}
		out = append(out, s)
	}
	return out, nil
}

func TestFragments_OneByteReadsStayValidUTF8(t *testing.T) {
	text := "Héllo wörld 🎬 ça va? 映画"
	frags, err := collect(t, Fragments(iotest.OneByteReader(strings.NewReader(text))))
	require.NoError(t, err)

	for _, f := range frags {
		assert.True(t, utf8.ValidString(f), "fragment %q is not valid UTF-8", f)
		assert.NotEmpty(t, f)
	}
	assert.Equal(t, text, strings.Join(frags, ""))
}

func TestFragments_EmptyStream(t *testing.T) {
	frags, err := collect(t, Fragments(strings.NewReader("")))
	require.NoError(t, err)
	assert.Empty(t, frags)
}

func TestFragments_TruncatedRuneFlushedAtEOF(t *testing.T) {
	frags, err := collect(t, Fragments(strings.NewReader("ok\xe6\x98")))
	require.NoError(t, err)
	assert.Equal(t, "ok\xe6\x98", strings.Join(frags, ""))
}

func TestFragments_ReadError(t *testing.T) {
	boom := errors.New("connection reset")
	frags, err := collect(t, Fragments(iotest.ErrReader(boom)))
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, frags)
}

func TestFragments_StopEarly(t *testing.T) {
	var got []string
	for s := range Fragments(iotest.OneByteReader(strings.NewReader("abc"))) {
		got = append(got, s)
		break
	}
	assert.Equal(t, []string{"a"}, got)
}

func TestCompletePrefix(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"abc", 3},
		{"a\xc3", 1},
		{"a\xc3\xa9", 3},
		{"\xf0\x9f\x8e", 0},
		{"\xf0\x9f\x8e\xac", 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, completePrefix([]byte(tt.in)), "input %q", tt.in)
	}
}
