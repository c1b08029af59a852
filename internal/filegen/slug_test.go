package filegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlugLowercasesAndCollapsesSeparators(t *testing.T) {
	require.Equal(t, "photosynthesis-study-guide", Slug("Photosynthesis  Study --- Guide!!"))
}

func TestSlugIsIdempotent(t *testing.T) {
	first := Slug("Célula & Mitocôndria: Resumo")
	second := Slug(first)
	require.Equal(t, first, second)
}

func TestSlugTruncatesAt50Chars(t *testing.T) {
	long := strings.Repeat("word ", 30)
	slug := Slug(long)
	require.LessOrEqual(t, len(slug), 50)
	require.False(t, strings.HasSuffix(slug, "-"))
}

func TestSlugEmptyInputYieldsEmptyString(t *testing.T) {
	require.Equal(t, "", Slug("!!!"))
}
