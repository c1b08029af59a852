package loader

import (
	"bytes"
	"context"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// markdownLoader flattens Markdown to plain text by walking the parsed AST
// and concatenating text nodes, dropping syntax markers rather than
// rendering to HTML.
type markdownLoader struct{}

func (l *markdownLoader) Load(ctx context.Context, data []byte) (string, error) {
	md := goldmark.New()
	reader := text.NewReader(data)
	doc := md.Parser().Parse(reader)

	var buf bytes.Buffer
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if n.Kind() == ast.KindText {
			buf.Write(n.(*ast.Text).Segment.Value(reader.Source()))
			buf.WriteByte(' ')
		}
		if n.Kind() == ast.KindHeading || n.Kind() == ast.KindParagraph || n.Kind() == ast.KindListItem {
			buf.WriteByte('\n')
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
