package pdfrender

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/ragcore/internal/filegen"
)

func TestRenderProducesValidPDFHeader(t *testing.T) {
	doc := filegen.PDFDocument{
		CoverLine: "Photosynthesis Guide",
		MetaLine:  "Biology 101 • Guia de Estudos • Gerado em 06/08/2026",
		Blocks: []filegen.PDFBlock{
			{Type: filegen.PDFHeading1, Inlines: []filegen.PDFInline{{Text: "Introduction"}}},
			{Type: filegen.PDFParagraph, Inlines: []filegen.PDFInline{{Text: "Photosynthesis converts "}, {Text: "light energy", Bold: true}, {Text: " into chemical energy."}}},
		},
	}

	data, pages, err := New().Render(doc)
	require.NoError(t, err)
	require.GreaterOrEqual(t, pages, 1)
	require.True(t, strings.HasPrefix(string(data), "%PDF-"))
	require.Contains(t, string(data), "endobj")
	require.Contains(t, string(data), "trailer")
	require.Contains(t, string(data), "Tj")
	require.Contains(t, string(data), "/BaseFont /Helvetica")
	require.Contains(t, string(data), "/BaseFont /Helvetica-Bold")
}

func TestRenderOverflowsToMultiplePages(t *testing.T) {
	var blocks []filegen.PDFBlock
	for i := 0; i < 80; i++ {
		blocks = append(blocks, filegen.PDFBlock{
			Type:    filegen.PDFParagraph,
			Inlines: []filegen.PDFInline{{Text: "This is a line of body text that takes up vertical space on the page."}},
		})
	}
	doc := filegen.PDFDocument{CoverLine: "Long Document", MetaLine: "meta", Blocks: blocks}

	_, pages, err := New().Render(doc)
	require.NoError(t, err)
	require.Greater(t, pages, 1)
}

func TestRenderHonorsExplicitPageBreak(t *testing.T) {
	doc := filegen.PDFDocument{
		CoverLine: "Quiz",
		MetaLine:  "meta",
		Blocks: []filegen.PDFBlock{
			{Type: filegen.PDFHeading1, Inlines: []filegen.PDFInline{{Text: "Questions"}}},
			{Type: filegen.PDFParagraph, Inlines: []filegen.PDFInline{{Text: "Question 1?"}}},
			{Type: filegen.PDFPageBreak},
			{Type: filegen.PDFHeading1, Inlines: []filegen.PDFInline{{Text: "Gabarito (Answer Key)"}}},
		},
	}

	_, pages, err := New().Render(doc)
	require.NoError(t, err)
	require.Equal(t, 2, pages)
}

func TestRenderEmptyDocumentStillProducesOnePage(t *testing.T) {
	doc := filegen.PDFDocument{CoverLine: "Empty", MetaLine: "meta"}
	data, pages, err := New().Render(doc)
	require.NoError(t, err)
	require.Equal(t, 1, pages)
	require.True(t, strings.HasPrefix(string(data), "%PDF-"))
}
