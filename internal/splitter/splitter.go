package splitter

import (
	"context"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// DefaultSeparators mirrors the recursive-character splitter semantics: try
// the coarsest separator first, and fall back to progressively finer ones
// until segments fit within ChunkSize. The empty string is the hard-cut
// base case.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

type Config struct {
	ChunkSize  int
	Overlap    int
	Separators []string
}

func DefaultConfig() Config {
	return Config{ChunkSize: 1000, Overlap: 200, Separators: DefaultSeparators}
}

type Splitter struct {
	cfg Config
}

func New(cfg Config) *Splitter {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = 0
	}
	if cfg.Overlap >= cfg.ChunkSize {
		cfg.Overlap = cfg.ChunkSize / 5
	}
	if len(cfg.Separators) == 0 {
		cfg.Separators = DefaultSeparators
	}
	return &Splitter{cfg: cfg}
}

// ChunkSize returns the configured chunk_size this splitter was built
// with, the same value the Vector Store Gateway's point payload records
// per §4.4.
func (s *Splitter) ChunkSize() int { return s.cfg.ChunkSize }

// Split deterministically breaks text into overlapping, non-empty chunks in
// source order. Two calls with identical input and config always produce an
// identical sequence.
func (s *Splitter) Split(ctx context.Context, text string) []string {
	logger := logutil.GetLogger(ctx)
	if strings.TrimSpace(text) == "" {
		return nil
	}
	segments := s.recursiveSplit(text, s.cfg.Separators)
	chunks := s.mergeWithOverlap(segments)
	logger.Debug("text split completed", zap.Int("input_len", len(text)), zap.Int("chunks", len(chunks)))
	return chunks
}

// recursiveSplit breaks text into pieces no larger than ChunkSize by trying
// separators in order, recursing into oversized pieces with the remaining
// separator list. The base case (empty separator) hard-cuts at ChunkSize.
func (s *Splitter) recursiveSplit(text string, separators []string) []string {
	if len(text) <= s.cfg.ChunkSize {
		if text == "" {
			return nil
		}
		return []string{text}
	}
	if len(separators) == 0 {
		return hardCut(text, s.cfg.ChunkSize)
	}
	sep, rest := separators[0], separators[1:]
	var parts []string
	if sep == "" {
		parts = hardCut(text, s.cfg.ChunkSize)
		return parts
	}
	rawParts := strings.Split(text, sep)
	var out []string
	for i, part := range rawParts {
		if part == "" {
			continue
		}
		if i < len(rawParts)-1 {
			part += sep
		}
		if len(part) > s.cfg.ChunkSize {
			out = append(out, s.recursiveSplit(part, rest)...)
		} else {
			out = append(out, part)
		}
	}
	return out
}

func hardCut(text string, size int) []string {
	var out []string
	runes := []rune(text)
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[i:end]))
	}
	return out
}

// mergeWithOverlap greedily packs adjacent segments up to ChunkSize and
// carries a suffix of Overlap characters from a merged chunk's end into the
// next chunk's start, so neighboring chunks share context.
func (s *Splitter) mergeWithOverlap(segments []string) []string {
	var chunks []string
	var current strings.Builder
	for _, seg := range segments {
		if current.Len() > 0 && current.Len()+len(seg) > s.cfg.ChunkSize {
			chunks = append(chunks, current.String())
			overlap := suffix(current.String(), s.cfg.Overlap)
			current.Reset()
			current.WriteString(overlap)
		}
		current.WriteString(seg)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		trimmed := strings.TrimSpace(c)
		if trimmed == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

func suffix(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
