package model

type FileType string

const (
	FileTypeStudyGuide FileType = "study-guide"
	FileTypeQuiz       FileType = "quiz"
	FileTypeSummary    FileType = "summary"
	FileTypeLessonPlan FileType = "lesson-plan"
	FileTypeCustom     FileType = "custom"
)

type FileFormat string

const (
	FileFormatPDF      FileFormat = "pdf"
	FileFormatMarkdown FileFormat = "markdown"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusGenerating JobStatus = "generating"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// GeneratedFile is unique per (ProjectID, FileName); CurrentVersion always
// points at the most recently created GeneratedFileVersion.
type GeneratedFile struct {
	ID             string     `json:"id"`
	ProjectID      string     `json:"project_id"`
	OwnerID        string     `json:"owner_id"`
	FileName       string     `json:"file_name"`
	DisplayName    string     `json:"display_name"`
	FileType       FileType   `json:"file_type"`
	Format         FileFormat `json:"format"`
	CurrentVersion int        `json:"current_version"`
	Ctime          int64      `json:"ctime"`
	Mtime          int64      `json:"mtime"`
}

type GeneratedFileVersion struct {
	ID              string           `json:"id"`
	FileID          string           `json:"file_id"`
	Version         int              `json:"version"`
	Prompt          string           `json:"prompt"`
	EditPrompt      string           `json:"edit_prompt,omitempty"`
	BaseVersion     int              `json:"base_version,omitempty"`
	StorageKey      string           `json:"storage_key,omitempty"`
	ByteSize        int64            `json:"byte_size,omitempty"`
	PageCount       int              `json:"page_count,omitempty"`
	Status          JobStatus        `json:"status"`
	ErrorMessage    string           `json:"error_message,omitempty"`
	GenerationMS    int64            `json:"generation_ms,omitempty"`
	Sources         []RetrievedChunk `json:"sources,omitempty"`
	Ctime           int64            `json:"ctime"`
}
