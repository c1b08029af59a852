package loader

import (
	"bufio"
	"bytes"
	"context"
	"regexp"
)

// pdfLoader extracts text by scanning PDF content streams for the Tj/TJ
// text-showing operators, the same minimal approach the project's own PDF
// writer (internal/pdfrender) produces output for. It does not attempt
// layout reconstruction, font decoding, or compressed stream inflation
// beyond what is already uncompressed in the file - adequate for the
// loader's contract (flattened text, not fidelity).
type pdfLoader struct{}

var (
	tjRe  = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)\s*Tj`)
	ttjRe = regexp.MustCompile(`\[((?:[^\[\]]|\\.)*)\]\s*TJ`)
)

func (l *pdfLoader) Load(ctx context.Context, data []byte) (string, error) {
	var out bytes.Buffer
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	found := false
	for scanner.Scan() {
		line := scanner.Bytes()
		for _, m := range tjRe.FindAllSubmatch(line, -1) {
			out.Write(unescapePDFString(m[1]))
			out.WriteByte(' ')
			found = true
		}
		for _, m := range ttjRe.FindAllSubmatch(line, -1) {
			for _, piece := range tjRe.FindAllSubmatch(append([]byte("("), append(m[1], []byte(") Tj")...)...), -1) {
				out.Write(unescapePDFString(piece[1]))
			}
			out.WriteByte(' ')
			found = true
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	if !found {
		// An image-only or no-text-layer PDF is not a parse failure; it
		// flows into Loader.Load's empty-content check like any other
		// format that extracts to nothing.
		return "", nil
	}
	return out.String(), nil
}

func unescapePDFString(raw []byte) []byte {
	var out bytes.Buffer
	for i := 0; i < len(raw); i++ {
		if raw[i] == '\\' && i+1 < len(raw) {
			switch raw[i+1] {
			case 'n':
				out.WriteByte('\n')
			case 'r':
				out.WriteByte('\r')
			case 't':
				out.WriteByte('\t')
			case '(', ')', '\\':
				out.WriteByte(raw[i+1])
			default:
				out.WriteByte(raw[i+1])
			}
			i++
			continue
		}
		out.WriteByte(raw[i])
	}
	return out.Bytes()
}
