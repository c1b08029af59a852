package filegen

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/ragcore/internal/ai"
	"github.com/xxxsen/ragcore/internal/model"
	"github.com/xxxsen/ragcore/internal/repo"
	"github.com/xxxsen/ragcore/internal/vectorstore"
)

const contextTopK = 5

// contextChunk carries the full chunk content alongside its source
// attribution; RetrievedChunk only keeps a 200-char preview, which is
// enough for the persisted metadata but not for the model prompt.
type contextChunk struct {
	model.RetrievedChunk
	FullContent string
}

// gatherContext implements §4.9 step 2: locate the project's collection,
// extract search terms from the prompt, embed them, and search. Either an
// unindexed project or an empty term set yields an empty context rather
// than an error, since a generated file with no grounding is still a
// valid (if less useful) result.
func gatherContext(ctx context.Context, projects *repo.ProjectRepo, documents *repo.DocumentRepo, embedder ai.IEmbedder, gateway vectorstore.Gateway, projectID, prompt string) ([]contextChunk, error) {
	project, err := projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !project.HasCollection() {
		return nil, nil
	}
	terms := ExtractSearchTerms(prompt)
	if terms == "" {
		return nil, nil
	}

	vector, err := embedder.EmbedQuery(ctx, terms)
	if err != nil {
		return nil, err
	}
	matches, err := gateway.Search(ctx, project.CollectionHandle, vector, contextTopK, 0)
	if err != nil {
		return nil, err
	}

	filenames := map[string]string{}
	chunks := make([]contextChunk, 0, len(matches))
	for _, match := range matches {
		filename, ok := filenames[match.DocumentID]
		if !ok {
			filename = lookupFilename(ctx, documents, match.DocumentID)
			filenames[match.DocumentID] = filename
		}
		chunks = append(chunks, contextChunk{
			RetrievedChunk: model.RetrievedChunk{
				DocumentID:     match.DocumentID,
				Filename:       filename,
				ContentPreview: previewContent(match.Content),
				Score:          match.Score,
				ChunkIndex:     match.ChunkIndex,
			},
			FullContent: match.Content,
		})
	}
	return chunks, nil
}

func lookupFilename(ctx context.Context, documents *repo.DocumentRepo, documentID string) string {
	doc, err := documents.Get(ctx, documentID)
	if err != nil {
		return ""
	}
	return doc.OriginalName
}

func previewContent(content string) string {
	const maxPreviewRunes = 200
	runes := []rune(content)
	if len(runes) <= maxPreviewRunes {
		return content
	}
	return string(runes[:maxPreviewRunes]) + "…"
}

// renderContextBlock formats the gathered chunks as the {context}
// placeholder's value: one block per chunk naming its source document.
func renderContextBlock(chunks []contextChunk) string {
	if len(chunks) == 0 {
		return "(nenhum documento do projeto foi encontrado para este pedido)"
	}
	var b strings.Builder
	for i, c := range chunks {
		fmt.Fprintf(&b, "--- %s (trecho %d) ---\n%s\n\n", c.Filename, i+1, c.FullContent)
	}
	return strings.TrimRight(b.String(), "\n")
}

func sourcesOf(chunks []contextChunk) []model.RetrievedChunk {
	sources := make([]model.RetrievedChunk, 0, len(chunks))
	for _, c := range chunks {
		sources = append(sources, c.RetrievedChunk)
	}
	return sources
}
