package loader

import (
	"context"
	"testing"

	coreerrors "github.com/xxxsen/ragcore/internal/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatPDF, DetectFormat("application/pdf", "x.bin"))
	assert.Equal(t, FormatMarkdown, DetectFormat("", "notes.md"))
	assert.Equal(t, FormatPlain, DetectFormat("text/plain", "x"))
	assert.Equal(t, Format(""), DetectFormat("", "x.exe"))
}

func TestLoadEmptyContent(t *testing.T) {
	l := New()
	_, err := l.Load(context.Background(), nil, "text/plain", "a.txt")
	require.ErrorIs(t, err, coreerrors.ErrEmptyContent)
}

func TestLoadUnsupportedFormat(t *testing.T) {
	l := New()
	_, err := l.Load(context.Background(), []byte("data"), "application/zip", "a.zip")
	require.ErrorIs(t, err, coreerrors.ErrUnsupportedFormat)
}

func TestLoadPlainTextAppliesPostProcessing(t *testing.T) {
	l := New()
	text, err := l.Load(context.Background(), []byte("Hello   world\n\n\n\nPage 3\n\n7\n\nReal content “curly”"), "text/plain", "a.txt")
	require.NoError(t, err)
	assert.NotContains(t, text, "Page 3")
	assert.Contains(t, text, "\"curly\"")
}

func TestPostProcessCollapsesWhitespace(t *testing.T) {
	out := postProcess("a    b\n\n\n\nc")
	assert.Equal(t, "a b\n\nc", out)
}
