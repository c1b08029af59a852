package loader

import (
	"context"
	"regexp"
	"strings"

	"github.com/xxxsen/common/logutil"
	coreerrors "github.com/xxxsen/ragcore/internal/pkg/errors"
	"go.uber.org/zap"
)

// Format is the discriminated set of document formats the loader dispatches
// on. The dispatcher selects one based on the caller-declared content type
// and filename extension, never by sniffing bytes.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
	FormatPlain    Format = "text"
	FormatMarkdown Format = "markdown"
)

// ILoader is the contract each format implementation satisfies: raw bytes in,
// flattened UTF-8 text out.
type ILoader interface {
	Load(ctx context.Context, data []byte) (string, error)
}

type Loader struct {
	loaders map[Format]ILoader
}

func New() *Loader {
	return &Loader{
		loaders: map[Format]ILoader{
			FormatPDF:      &pdfLoader{},
			FormatDOCX:     &docxLoader{},
			FormatPlain:    &plainLoader{},
			FormatMarkdown: &markdownLoader{},
		},
	}
}

// DetectFormat maps a MIME type or filename extension to a supported
// Format, or "" if unsupported.
func DetectFormat(mimeType, filename string) Format {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.Contains(mimeType, "pdf"):
		return FormatPDF
	case strings.Contains(mimeType, "wordprocessingml"), strings.Contains(mimeType, "msword"):
		return FormatDOCX
	case strings.Contains(mimeType, "markdown"):
		return FormatMarkdown
	case strings.Contains(mimeType, "text/plain"):
		return FormatPlain
	}
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".pdf"):
		return FormatPDF
	case strings.HasSuffix(lower, ".docx"):
		return FormatDOCX
	case strings.HasSuffix(lower, ".md"), strings.HasSuffix(lower, ".markdown"):
		return FormatMarkdown
	case strings.HasSuffix(lower, ".txt"):
		return FormatPlain
	}
	return ""
}

// Load extracts flattened text from data and applies the shared
// post-processing pipeline (§4.1). Loaders never retain references to data
// past return, and any on-disk temp material a format library requires is
// removed on every exit path inside the individual loader implementation.
func (l *Loader) Load(ctx context.Context, data []byte, mimeType, filename string) (string, error) {
	logger := logutil.GetLogger(ctx)
	if len(data) == 0 {
		return "", coreerrors.ErrEmptyContent
	}
	format := DetectFormat(mimeType, filename)
	if format == "" {
		logger.Warn("unsupported document format", zap.String("mime_type", mimeType), zap.String("filename", filename))
		return "", coreerrors.ErrUnsupportedFormat
	}
	impl, ok := l.loaders[format]
	if !ok {
		return "", coreerrors.ErrUnsupportedFormat
	}
	raw, err := impl.Load(ctx, data)
	if err != nil {
		logger.Error("document loader failed", zap.String("format", string(format)), zap.Error(err))
		return "", coreerrors.ErrLoaderFailure
	}
	text := postProcess(raw)
	if strings.TrimSpace(text) == "" {
		return "", coreerrors.ErrEmptyContent
	}
	logger.Info("document loaded", zap.String("format", string(format)), zap.Int("chars", len(text)))
	return text, nil
}

var (
	whitespaceRunRe = regexp.MustCompile(`[ \t]+`)
	tripleNewlineRe = regexp.MustCompile(`\n{3,}`)
	isolatedDigitRe = regexp.MustCompile(`(?m)^\s*\d+\s*$\n?`)
	pageHeaderRe    = regexp.MustCompile(`(?mi)^Page \d+.*$\n?`)
)

var curlyQuoteReplacer = strings.NewReplacer(
	"‘", "'", "’", "'",
	"“", "\"", "”", "\"",
)

// postProcess applies the normalization pipeline common to every format:
// whitespace/newline collapse, form-feed/carriage-return handling, curly
// quote normalization, and removal of page-number artifacts.
func postProcess(text string) string {
	text = strings.ReplaceAll(text, "\f", " ")
	text = strings.ReplaceAll(text, "\r", "")
	text = curlyQuoteReplacer.Replace(text)
	text = isolatedDigitRe.ReplaceAllString(text, "")
	text = pageHeaderRe.ReplaceAllString(text, "")
	text = whitespaceRunRe.ReplaceAllString(text, " ")
	text = tripleNewlineRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
