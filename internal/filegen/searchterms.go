package filegen

import "strings"

var searchTermStopWords = map[string]struct{}{
	"create": {}, "generate": {}, "make": {}, "about": {}, "with": {},
	"guide": {}, "quiz": {}, "crie": {}, "sobre": {}, "perguntas": {},
	"alternativas": {}, "tema": {},
}

// ExtractSearchTerms implements §4.9's term extraction: lowercase, strip
// non-alphanumerics, split on whitespace, drop short tokens and the fixed
// stop set, keep the first five survivors.
func ExtractSearchTerms(prompt string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(prompt) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	var terms []string
	for _, token := range strings.Fields(b.String()) {
		if len(token) <= 3 {
			continue
		}
		if _, stop := searchTermStopWords[token]; stop {
			continue
		}
		terms = append(terms, token)
		if len(terms) == 5 {
			break
		}
	}
	return strings.Join(terms, " ")
}
