package filegen

import (
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/xxxsen/ragcore/internal/model"
)

// PDFBlockType enumerates the block kinds a PDFEngine must be able to lay
// out; this is the entire vocabulary §4.9's markdown-ish parser produces.
type PDFBlockType string

const (
	PDFHeading1  PDFBlockType = "h1"
	PDFHeading2  PDFBlockType = "h2"
	PDFHeading3  PDFBlockType = "h3"
	PDFParagraph PDFBlockType = "p"
	PDFBullet    PDFBlockType = "bullet"
	PDFNumbered  PDFBlockType = "numbered"
	PDFPageBreak PDFBlockType = "page_break"
)

// PDFInline is one run of text within a block; Bold marks a `**...**` span.
type PDFInline struct {
	Text string
	Bold bool
}

type PDFBlock struct {
	Type    PDFBlockType
	Inlines []PDFInline
}

// PDFDocument is the fully-parsed artifact a PDFEngine renders to bytes.
type PDFDocument struct {
	CoverLine string
	MetaLine  string
	Blocks    []PDFBlock
}

// PDFEngine is the external PDF engine named in §4.9 step 5. No library in
// the retrieved examples produces PDF bytes, so this is a small interface
// over a from-scratch renderer (internal/pdfrender) rather than a
// standard-library shortcut for the whole file generator.
type PDFEngine interface {
	Render(doc PDFDocument) ([]byte, int, error)
}

func metaLine(projectName, typeLabel string) string {
	return fmt.Sprintf("%s • %s • Gerado em %s", projectName, typeLabel, time.Now().Format("02/01/2006"))
}

var fileTypeLabels = map[model.FileType]string{
	model.FileTypeStudyGuide: "Guia de Estudos",
	model.FileTypeQuiz:       "Quiz",
	model.FileTypeSummary:    "Resumo",
	model.FileTypeLessonPlan: "Plano de Aula",
	model.FileTypeCustom:     "Documento",
}

func typeLabel(t model.FileType) string {
	if label, ok := fileTypeLabels[t]; ok {
		return label
	}
	return "Documento"
}

// buildPDFDocument turns the model's Markdown body into a PDFDocument. Quiz
// files get a dedicated structured layout (§4.9: "render them as distinct
// blocks with a dedicated page break before the answer key"); every other
// type is parsed with the generic markdown-ish block parser.
func buildPDFDocument(file *model.GeneratedFile, projectName, body string) PDFDocument {
	doc := PDFDocument{
		CoverLine: file.DisplayName,
		MetaLine:  metaLine(projectName, typeLabel(file.FileType)),
	}
	if file.FileType == model.FileTypeQuiz {
		if quiz, ok := parseQuiz(body); ok {
			doc.Blocks = renderQuizBlocks(quiz)
			return doc
		}
	}
	doc.Blocks = parseMarkdownBlocks(body)
	return doc
}

func renderQuizBlocks(quiz quizDocument) []PDFBlock {
	var blocks []PDFBlock
	blocks = append(blocks, PDFBlock{Type: PDFHeading1, Inlines: []PDFInline{{Text: "Instructions"}}})
	if quiz.Instructions != "" {
		blocks = append(blocks, PDFBlock{Type: PDFParagraph, Inlines: parseInlines(quiz.Instructions)})
	}
	blocks = append(blocks, PDFBlock{Type: PDFHeading1, Inlines: []PDFInline{{Text: "Questions"}}})
	for _, q := range quiz.Questions {
		blocks = append(blocks, PDFBlock{Type: PDFHeading3, Inlines: []PDFInline{{Text: fmt.Sprintf("Question %d", q.Number)}}})
		blocks = append(blocks, PDFBlock{Type: PDFParagraph, Inlines: parseInlines(q.Prompt)})
		for _, opt := range q.Options {
			blocks = append(blocks, PDFBlock{Type: PDFBullet, Inlines: parseInlines(opt)})
		}
	}
	blocks = append(blocks, PDFBlock{Type: PDFPageBreak})
	blocks = append(blocks, PDFBlock{Type: PDFHeading1, Inlines: []PDFInline{{Text: "Gabarito (Answer Key)"}}})
	if quiz.AnswerKey != "" {
		blocks = append(blocks, PDFBlock{Type: PDFParagraph, Inlines: parseInlines(quiz.AnswerKey)})
	}
	return blocks
}

// parseMarkdownBlocks walks the goldmark AST the same way
// internal/loader/markdown.go does, translating headings, paragraphs, and
// list items into PDFBlocks instead of hand-rolling line-prefix detection;
// unlike quiz.go's parseQuiz, the input here is arbitrary LLM-authored
// markdown rather than a fixed, self-imposed section structure.
func parseMarkdownBlocks(body string) []PDFBlock {
	source := []byte(body)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var blocks []PDFBlock
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			blocks = append(blocks, PDFBlock{Type: headingBlockType(node.Level), Inlines: inlinesFromNode(node, source)})
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph:
			blocks = append(blocks, PDFBlock{Type: PDFParagraph, Inlines: inlinesFromNode(node, source)})
			return ast.WalkSkipChildren, nil
		case *ast.ListItem:
			blockType := PDFBullet
			if list, ok := node.Parent().(*ast.List); ok && list.IsOrdered() {
				blockType = PDFNumbered
			}
			blocks = append(blocks, PDFBlock{Type: blockType, Inlines: inlinesFromNode(node, source)})
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return blocks
}

// headingBlockType flattens goldmark's six heading levels onto the three
// PDFBlockType levels the renderer supports.
func headingBlockType(level int) PDFBlockType {
	switch level {
	case 1:
		return PDFHeading1
	case 2:
		return PDFHeading2
	default:
		return PDFHeading3
	}
}

// inlinesFromNode flattens a block node's inline descendants into
// PDFInlines, marking text under a level-2 *ast.Emphasis (the "**strong**"
// delimiter) as bold.
func inlinesFromNode(n ast.Node, source []byte) []PDFInline {
	var inlines []PDFInline
	var walk func(n ast.Node, bold bool)
	walk = func(n ast.Node, bold bool) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch node := c.(type) {
			case *ast.Text:
				inlines = append(inlines, PDFInline{Text: string(node.Segment.Value(source)), Bold: bold})
			case *ast.Emphasis:
				walk(node, bold || node.Level >= 2)
			default:
				walk(node, bold)
			}
		}
	}
	walk(n, false)
	return inlines
}

// parseInlines is kept for quiz.go's parseQuiz, whose fields (question
// prompts, options, answer key) are plain strings rather than markdown AST
// nodes; it splits a line into plain and bold runs on "**" delimiters.
func parseInlines(text string) []PDFInline {
	var inlines []PDFInline
	parts := strings.Split(text, "**")
	for i, part := range parts {
		if part == "" {
			continue
		}
		inlines = append(inlines, PDFInline{Text: part, Bold: i%2 == 1})
	}
	if len(inlines) == 0 {
		return []PDFInline{{Text: text}}
	}
	return inlines
}
