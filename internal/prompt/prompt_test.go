package prompt

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlways(t *testing.T) {
	ok, err := Always(true).YesNo(context.Background(), "Proceed? ")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Always(false).YesNo(context.Background(), "Proceed? ")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLine_Answers(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"Y\n", true},
		{"yes\n", true},
		{"n\n", false},
		{" No \n", false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			ok, err := NewLine(strings.NewReader(tt.input), &out).YesNo(context.Background(), "Proceed (y/n)? ")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, "Proceed (y/n)? ", out.String())
		})
	}
}

func TestLine_RepeatsUntilValid(t *testing.T) {
	var out bytes.Buffer
	ok, err := NewLine(strings.NewReader("maybe\n\ny\n"), &out).YesNo(context.Background(), "? ")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "? ? ? ", out.String())
}

func TestLine_EOF(t *testing.T) {
	var out bytes.Buffer
	_, err := NewLine(strings.NewReader(""), &out).YesNo(context.Background(), "? ")
	assert.ErrorIs(t, err, ErrNoAnswer)
}

func TestLine_SharedReaderAcrossQuestions(t *testing.T) {
	var out bytes.Buffer
	l := NewLine(strings.NewReader("y\nn\n"), &out)

	first, err := l.YesNo(context.Background(), "1? ")
	require.NoError(t, err)
	second, err := l.YesNo(context.Background(), "2? ")
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
}

func TestLine_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	_, err := NewLine(strings.NewReader("y\n"), &out).YesNo(ctx, "? ")
	assert.ErrorIs(t, err, context.Canceled)
}
