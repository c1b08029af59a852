package pdfrender

import (
	"bytes"
	"fmt"
	"strings"
)

// writePDF serializes already-laid-out pages into a minimal, valid,
// uncompressed PDF: a catalog, a pages tree, one content stream per page,
// and the two base-14 fonts every line uses (no font embedding needed).
//
// Object numbers are fixed up front so every reference (Pages -> Page,
// Page -> Contents, Page -> Font) can be written in one pass, in object
// order, with no forward-reference patching:
//
//	1            catalog
//	2            pages tree
//	3            /F1 Helvetica
//	4            /F2 Helvetica-Bold
//	5 + 2*i      page i's content stream
//	6 + 2*i      page i's page object
func writePDF(pages [][]renderedLine) []byte {
	const (
		catalogID = 1
		pagesID   = 2
		fontF1ID  = 3
		fontF2ID  = 4
		firstID   = 5
	)

	pageIDs := make([]int, len(pages))
	contentIDs := make([]int, len(pages))
	for i := range pages {
		contentIDs[i] = firstID + 2*i
		pageIDs[i] = firstID + 2*i + 1
	}
	objectCount := firstID + 2*len(pages)

	var buf bytes.Buffer
	offsets := make([]int, objectCount)

	buf.WriteString("%PDF-1.4\n")

	writeObj := func(id int, body string) {
		offsets[id] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", id, body)
	}

	var kids strings.Builder
	for i, id := range pageIDs {
		if i > 0 {
			kids.WriteString(" ")
		}
		fmt.Fprintf(&kids, "%d 0 R", id)
	}
	writeObj(catalogID, fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pagesID))
	writeObj(pagesID, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids.String(), len(pageIDs)))
	writeObj(fontF1ID, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	writeObj(fontF2ID, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica-Bold >>")

	for i, page := range pages {
		content := renderContentStream(page)
		writeObj(contentIDs[i], fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
		writeObj(pageIDs[i], fmt.Sprintf(
			"<< /Type /Page /Parent %d 0 R /MediaBox [0 0 %.0f %.0f] /Resources << /Font << /F1 %d 0 R /F2 %d 0 R >> >> /Contents %d 0 R >>",
			pagesID, pageWidth, pageHeight, fontF1ID, fontF2ID, contentIDs[i],
		))
	}

	xrefStart := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", objectCount)
	buf.WriteString("0000000000 65535 f \n")
	for id := 1; id < objectCount; id++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[id])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF", objectCount, catalogID, xrefStart)

	return buf.Bytes()
}

func renderContentStream(lines []renderedLine) string {
	var b strings.Builder
	currentBold := false
	currentSize := 0.0
	fontSet := false

	for _, line := range lines {
		x := marginLeft
		for _, seg := range line.segments {
			if seg.X != 0 {
				x = seg.X
			}
			if !fontSet || seg.Bold != currentBold || seg.Size != currentSize {
				name := "F1"
				if seg.Bold {
					name = "F2"
				}
				fmt.Fprintf(&b, "/%s %.1f Tf\n", name, seg.Size)
				currentBold, currentSize, fontSet = seg.Bold, seg.Size, true
			}
			fmt.Fprintf(&b, "1 0 0 1 %.2f %.2f Tm (%s) Tj\n", x, line.y, escapePDFText(seg.Text))
			x += wordWidth(seg) + avgCharWidth(false, seg.Size)*spaceWidthFactor*2
		}
	}
	return b.String()
}

func escapePDFText(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "(", "\\(")
	s = strings.ReplaceAll(s, ")", "\\)")
	return s
}
