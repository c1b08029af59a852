package splitter

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitIsDeterministic(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 60)
	s := New(DefaultConfig())

	first := s.Split(context.Background(), text)
	second := s.Split(context.Background(), text)

	require.Equal(t, first, second)
	assert.NotEmpty(t, first)
}

func TestSplitRespectsChunkSize(t *testing.T) {
	text := strings.Repeat("word ", 500)
	s := New(Config{ChunkSize: 100, Overlap: 20, Separators: DefaultSeparators})

	chunks := s.Split(context.Background(), text)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 140) // chunk size plus carried overlap
	}
}

func TestSplitEmptyInput(t *testing.T) {
	s := New(DefaultConfig())
	assert.Empty(t, s.Split(context.Background(), "   \n\n  "))
}

func TestSplitPreservesOrder(t *testing.T) {
	text := "alpha beta gamma delta epsilon zeta eta theta iota kappa"
	s := New(Config{ChunkSize: 20, Overlap: 5, Separators: []string{" "}})

	chunks := s.Split(context.Background(), text)
	require.NotEmpty(t, chunks)
	assert.True(t, strings.HasPrefix(chunks[0], "alpha"))
}
