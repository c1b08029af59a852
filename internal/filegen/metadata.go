package filegen

import (
	"encoding/json"

	"github.com/xxxsen/ragcore/internal/model"
)

// artifactMetadata is the sibling metadata.json §4.9 step 6 requires
// alongside every generated artifact.
type artifactMetadata struct {
	FileID      string                 `json:"file_id"`
	Version     int                    `json:"version"`
	DisplayName string                 `json:"display_name"`
	FileType    model.FileType         `json:"file_type"`
	Format      model.FileFormat       `json:"format"`
	Prompt      string                 `json:"prompt"`
	EditPrompt  string                 `json:"edit_prompt,omitempty"`
	Sources     []model.RetrievedChunk `json:"sources"`
}

func buildMetadataJSON(file *model.GeneratedFile, version *model.GeneratedFileVersion, chunks []contextChunk) []byte {
	meta := artifactMetadata{
		FileID:      file.ID,
		Version:     version.Version,
		DisplayName: file.DisplayName,
		FileType:    file.FileType,
		Format:      file.Format,
		Prompt:      version.Prompt,
		EditPrompt:  version.EditPrompt,
		Sources:     sourcesOf(chunks),
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return []byte("{}")
	}
	return data
}
