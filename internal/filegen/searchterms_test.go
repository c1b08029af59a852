package filegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractSearchTermsDropsStopWordsAndShortTokens(t *testing.T) {
	terms := ExtractSearchTerms("Crie um quiz sobre fotossíntese com perguntas e alternativas")
	require.Contains(t, terms, "fotoss")
	require.NotContains(t, terms, "quiz")
	require.NotContains(t, terms, "crie")
	require.NotContains(t, terms, "sobre")
	require.NotContains(t, terms, "com")
}

func TestExtractSearchTermsCapsAtFive(t *testing.T) {
	terms := ExtractSearchTerms("alpha beta gamma delta epsilon zeta theta")
	require.Len(t, strings.Fields(terms), 5)
}

func TestExtractSearchTermsEmptyPromptYieldsEmptyString(t *testing.T) {
	require.Equal(t, "", ExtractSearchTerms("a an to quiz"))
}
