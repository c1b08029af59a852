package pdfrender

import (
	"strings"

	"github.com/xxxsen/ragcore/internal/filegen"
)

// styledWord is one whitespace-delimited word plus the styling the text
// layout and the content-stream writer both need: its font weight, size,
// and (for the first word on an emitted line only) its left x position.
type styledWord struct {
	Text string
	Bold bool
	Size float64
	X    float64
}

// plainText concatenates every inline run's text, ignoring styling; used
// for heading blocks where the whole line renders in one weight already.
func plainText(inlines []filegen.PDFInline) string {
	var b strings.Builder
	for _, in := range inlines {
		b.WriteString(in.Text)
	}
	return b.String()
}

// styledWords splits a block's inline runs into individual words,
// preserving each run's bold flag.
func styledWords(inlines []filegen.PDFInline, size float64) []styledWord {
	var words []styledWord
	for _, in := range inlines {
		for _, w := range strings.Fields(in.Text) {
			words = append(words, styledWord{Text: w, Bold: in.Bold, Size: size})
		}
	}
	return words
}

// avgCharWidth approximates Helvetica's average glyph width as a
// fraction of the font size; bold glyphs run slightly wider. Good enough
// for word-wrap without embedding real font metrics.
func avgCharWidth(bold bool, size float64) float64 {
	factor := 0.5
	if bold {
		factor = 0.56
	}
	return factor * size
}

func wordWidth(w styledWord) float64 {
	return float64(len(w.Text)) * avgCharWidth(w.Bold, w.Size)
}

const spaceWidthFactor = 0.28

// wrap packs words onto lines no wider than maxWidth; each word of a line
// is later written as its own Tj operator.
func wrap(words []styledWord, maxWidth float64) [][]styledWord {
	if len(words) == 0 {
		return nil
	}
	var lines [][]styledWord
	var current []styledWord
	var width float64

	for _, w := range words {
		ww := wordWidth(w)
		spaceWidth := avgCharWidth(false, w.Size) * spaceWidthFactor
		extra := ww
		if len(current) > 0 {
			extra += spaceWidth
		}
		if len(current) > 0 && width+extra > maxWidth {
			lines = append(lines, current)
			current = nil
			width = 0
			extra = ww
		}
		current = append(current, w)
		width += extra
	}
	if len(current) > 0 {
		lines = append(lines, current)
	}
	return lines
}
