package loader

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
)

// docxLoader reads the OOXML word/document.xml part directly from the zip
// container and concatenates its <w:t> text runs, inserting a newline per
// paragraph. No temp files are created: the whole archive is read from the
// in-memory buffer, so there is nothing to clean up on any exit path.
type docxLoader struct{}

type wordBody struct {
	Paragraphs []wordParagraph `xml:"body>p"`
}

type wordParagraph struct {
	Runs []wordRun `xml:"r"`
}

type wordRun struct {
	Text string `xml:"t"`
}

func (l *docxLoader) Load(ctx context.Context, data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx archive: %w", err)
	}
	var docFile *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", fmt.Errorf("word/document.xml not found in docx")
	}
	rc, err := docFile.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	var body wordBody
	if err := xml.Unmarshal(raw, &body); err != nil {
		return "", fmt.Errorf("parse document.xml: %w", err)
	}
	var buf bytes.Buffer
	for _, p := range body.Paragraphs {
		for _, r := range p.Runs {
			buf.WriteString(r.Text)
		}
		buf.WriteByte('\n')
	}
	return buf.String(), nil
}
