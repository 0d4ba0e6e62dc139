package stream

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, input string) []string {
	t.Helper()
	var out []string
	err := readEvents(strings.NewReader(input), func(data []byte) bool {
		out = append(out, string(data))
		return true
	})
	require.NoError(t, err)
	return out
}

func TestReadEvents(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "single frames",
			input: "data: {\"percent\":5}\n\ndata: {\"percent\":10}\n\n",
			want:  []string{`{"percent":5}`, `{"percent":10}`},
		},
		{
			name:  "no space after colon",
			input: "data:{\"percent\":5}\n\n",
			want:  []string{`{"percent":5}`},
		},
		{
			name:  "multi-line data joined",
			input: "data: {\"percent\":5,\ndata: \"message\":\"x\"}\n\n",
			want:  []string{"{\"percent\":5,\n\"message\":\"x\"}"},
		},
		{
			name:  "comments and other fields skipped",
			input: ": connected\n\nevent: progress\nid: 7\nretry: 1000\ndata: a\n\n",
			want:  []string{"a"},
		},
		{
			name:  "crlf line endings",
			input: "data: a\r\n\r\ndata: b\r\n\r\n",
			want:  []string{"a", "b"},
		},
		{
			name:  "unterminated frame at eof is dropped",
			input: "data: a\n\ndata: partial",
			want:  []string{"a"},
		},
		{
			name:  "blank lines without data dispatch nothing",
			input: "\n\n\n",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, collect(t, tt.input))
		})
	}
}

func TestReadEvents_OversizedLineDropsOnlyItsFrame(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 2*maxLineBytes)
	input := "data: a\n\n" +
		"data: {\"percent\":7,\n" +
		"data: \"message\":\"" + long + "\"}\n\n" +
		"data: b\n\n" +
		"data: " + long

	assert.Equal(t, []string{"a", "b"}, collect(t, input))
}

func TestReadEvents_StopsWhenEmitDeclines(t *testing.T) {
	t.Parallel()

	var n int
	err := readEvents(strings.NewReader("data: a\n\ndata: b\n\ndata: c\n\n"), func([]byte) bool {
		n++
		return n < 2
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
