package pdfrender

import (
	"fmt"

	"github.com/xxxsen/ragcore/internal/filegen"
)

// Engine is the "external PDF engine" §4.9 step 5 refers to. It writes a
// minimal, uncompressed PDF directly against the file format (no
// third-party library exists anywhere in the retrieved examples for PDF
// generation), producing one Tm-positioned Tj text-showing operator per
// word so internal/loader's own pdfLoader can read the text back out.
type Engine struct{}

func New() *Engine { return &Engine{} }

const (
	pageWidth    = 595.0
	pageHeight   = 842.0
	marginLeft   = 50.0
	marginRight  = 50.0
	marginTop    = 792.0
	marginBottom = 50.0
	lineHeight   = 14.0
	bodyFontSize = 10.0
)

// Render lays doc's blocks out onto as many pages as needed and returns
// the serialized PDF bytes and the page count.
func (e *Engine) Render(doc filegen.PDFDocument) ([]byte, int, error) {
	pages := layout(doc)
	if len(pages) == 0 {
		pages = [][]renderedLine{{}}
	}
	return writePDF(pages), len(pages), nil
}

// renderedLine is one already-wrapped, already-positioned line of text.
type renderedLine struct {
	segments []styledWord
	y        float64
}

func layout(doc filegen.PDFDocument) [][]renderedLine {
	var pages [][]renderedLine
	var current []renderedLine
	y := marginTop

	newPage := func() {
		pages = append(pages, current)
		current = nil
		y = marginTop
	}
	emit := func(words []styledWord) {
		if y < marginBottom+lineHeight {
			newPage()
		}
		current = append(current, renderedLine{segments: withIndent(words, marginLeft), y: y})
		y -= lineHeight
	}
	spacer := func() {
		y -= lineHeight / 2
	}

	emit([]styledWord{{Text: doc.CoverLine, Bold: true, Size: 20}})
	spacer()
	emit([]styledWord{{Text: doc.MetaLine, Size: 9}})
	spacer()
	spacer()

	numbered := 0
	for _, block := range doc.Blocks {
		switch block.Type {
		case filegen.PDFPageBreak:
			newPage()
			numbered = 0
			continue
		case filegen.PDFHeading1:
			numbered = 0
			spacer()
			emit([]styledWord{{Text: plainText(block.Inlines), Bold: true, Size: 16}})
			continue
		case filegen.PDFHeading2:
			numbered = 0
			spacer()
			emit([]styledWord{{Text: plainText(block.Inlines), Bold: true, Size: 13}})
			continue
		case filegen.PDFHeading3:
			numbered = 0
			spacer()
			emit([]styledWord{{Text: plainText(block.Inlines), Bold: true, Size: 11}})
			continue
		}

		indent := marginLeft
		prefix := ""
		switch block.Type {
		case filegen.PDFBullet:
			indent = marginLeft + 14
			prefix = "• "
			numbered = 0
		case filegen.PDFNumbered:
			indent = marginLeft + 14
			numbered++
			prefix = fmt.Sprintf("%d. ", numbered)
		default:
			numbered = 0
		}

		words := styledWords(block.Inlines, bodyFontSize)
		if prefix != "" {
			words = append([]styledWord{{Text: prefix, Size: bodyFontSize}}, words...)
		}
		for _, wrapped := range wrap(words, pageWidth-indent-marginRight) {
			emitIndented(&current, &y, wrapped, indent, newPage)
		}
	}
	pages = append(pages, current)
	return pages
}

func emitIndented(current *[]renderedLine, y *float64, words []styledWord, indent float64, newPage func()) {
	if *y < marginBottom+lineHeight {
		newPage()
	}
	*current = append(*current, renderedLine{segments: withIndent(words, indent), y: *y})
	*y -= lineHeight
}

// withIndent tags the first word of a wrapped line with its left x
// position; every subsequent word's x is computed relative to it when the
// content stream is written.
func withIndent(words []styledWord, indent float64) []styledWord {
	if len(words) == 0 {
		return words
	}
	out := make([]styledWord, len(words))
	copy(out, words)
	out[0].X = indent
	return out
}
