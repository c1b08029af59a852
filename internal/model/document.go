package model

// Document tracks a single uploaded source file through the ingestion
// pipeline. ProcessedAt is non-zero iff the document's current text is
// fully reflected by points in the project's vector collection.
type Document struct {
	ID             string `json:"id"`
	ProjectID      string `json:"project_id"`
	Filename       string `json:"filename"`
	OriginalName   string `json:"original_name"`
	MimeType       string `json:"mime_type"`
	ByteSize       int64  `json:"byte_size"`
	StorageKey     string `json:"storage_key"`
	ExtractedText  string `json:"extracted_text,omitempty"`
	TotalChunks    int    `json:"total_chunks"`
	ProcessedAt    int64  `json:"processed_at,omitempty"`
	Ctime          int64  `json:"ctime"`
	Mtime          int64  `json:"mtime"`
}

func (d *Document) IsProcessed() bool {
	return d != nil && d.ProcessedAt > 0
}

func (d *Document) HasExtractedText() bool {
	return d != nil && d.ExtractedText != ""
}

// Chunk is the transient unit exchanged between the Text Splitter, the
// Embedder, and the Vector Store Gateway. It is never persisted relationally:
// its embedding lives only in the vector store.
type Chunk struct {
	ID         string
	DocumentID string
	ProjectID  string
	Index      int
	Content    string
	Embedding  []float32
}

// ChunkType mirrors the coarse content classification used when a chunk
// straddles prose and fenced code.
type ChunkType string

const (
	ChunkTypeText  ChunkType = "text"
	ChunkTypeCode  ChunkType = "code"
	ChunkTypeMixed ChunkType = "mixed"
)
