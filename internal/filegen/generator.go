package filegen

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/ragcore/internal/ai"
	"github.com/xxxsen/ragcore/internal/filestore"
	"github.com/xxxsen/ragcore/internal/model"
	coreerrors "github.com/xxxsen/ragcore/internal/pkg/errors"
	"github.com/xxxsen/ragcore/internal/repo"
	"github.com/xxxsen/ragcore/internal/vectorstore"
)

// CreateParams is create_file's input, per §4.9.
type CreateParams struct {
	ProjectID   string
	OwnerID     string
	Prompt      string
	DisplayName string
	FileType    model.FileType
	Format      model.FileFormat
}

// NewVersionParams is new_version's input, per §4.9.
type NewVersionParams struct {
	FileID      string
	EditPrompt  string
	BaseVersion int
}

// Generator is the File Generator of §4.9: it turns a prompt plus
// RAG-gathered context into a versioned markdown or PDF artifact.
type Generator struct {
	files     *repo.GeneratedFileRepo
	versions  *repo.GeneratedFileVersionRepo
	projects  *repo.ProjectRepo
	documents *repo.DocumentRepo
	embedder  ai.IEmbedder
	gateway   vectorstore.Gateway
	chat      ai.IChatModel
	store     filestore.Store
	pdf       PDFEngine
	progress  *ProgressBroadcaster

	fileLocks *keyedMutex
}

func New(
	files *repo.GeneratedFileRepo,
	versions *repo.GeneratedFileVersionRepo,
	projects *repo.ProjectRepo,
	documents *repo.DocumentRepo,
	embedder ai.IEmbedder,
	gateway vectorstore.Gateway,
	chat ai.IChatModel,
	store filestore.Store,
	pdf PDFEngine,
	progress *ProgressBroadcaster,
) *Generator {
	if progress == nil {
		progress = NewProgressBroadcaster()
	}
	return &Generator{
		files:     files,
		versions:  versions,
		projects:  projects,
		documents: documents,
		embedder:  embedder,
		gateway:   gateway,
		chat:      chat,
		store:     store,
		pdf:       pdf,
		progress:  progress,
		fileLocks: newKeyedMutex(),
	}
}

func (g *Generator) Progress() *ProgressBroadcaster { return g.progress }

// CreateFile implements §4.9's create_file. A second call with the same
// (project_id, display_name) slug delegates to NewVersion instead of
// creating a duplicate file record.
func (g *Generator) CreateFile(ctx context.Context, params CreateParams) (*model.GeneratedFile, error) {
	fileName := Slug(params.DisplayName)
	if fileName == "" {
		return nil, coreerrors.ErrInvalid
	}

	existing, err := g.files.GetByProjectAndName(ctx, params.ProjectID, fileName)
	if err == nil {
		if _, err := g.NewVersion(ctx, NewVersionParams{FileID: existing.ID, EditPrompt: params.Prompt}); err != nil {
			return nil, err
		}
		return existing, nil
	}
	if !coreerrors.IsNotFound(err) {
		return nil, err
	}

	now := time.Now().Unix()
	file := &model.GeneratedFile{
		ID:             uuid.NewString(),
		ProjectID:      params.ProjectID,
		OwnerID:        params.OwnerID,
		FileName:       fileName,
		DisplayName:    params.DisplayName,
		FileType:       params.FileType,
		Format:         params.Format,
		CurrentVersion: 1,
		Ctime:          now,
		Mtime:          now,
	}
	if err := g.files.Create(ctx, file); err != nil {
		return nil, err
	}

	version := &model.GeneratedFileVersion{
		ID:      uuid.NewString(),
		FileID:  file.ID,
		Version: 1,
		Prompt:  params.Prompt,
		Status:  model.JobStatusPending,
		Ctime:   now,
	}
	if err := g.versions.Create(ctx, version); err != nil {
		return nil, err
	}

	g.launch(ctx, file, version, "")
	return file, nil
}

// NewVersion implements §4.9's new_version: it always creates
// current_version+1, optionally seeded with the prior version's content
// as a genuine edit.
func (g *Generator) NewVersion(ctx context.Context, params NewVersionParams) (*model.GeneratedFileVersion, error) {
	unlock := g.fileLocks.Lock(params.FileID)
	defer unlock()

	file, err := g.files.Get(ctx, params.FileID)
	if err != nil {
		return nil, err
	}
	base := params.BaseVersion
	if base == 0 {
		base = file.CurrentVersion
	}
	baseContent := g.loadVersionContent(ctx, file, base)

	now := time.Now().Unix()
	newVersionNumber := file.CurrentVersion + 1
	version := &model.GeneratedFileVersion{
		ID:          uuid.NewString(),
		FileID:      file.ID,
		Version:     newVersionNumber,
		Prompt:      params.EditPrompt,
		EditPrompt:  params.EditPrompt,
		BaseVersion: base,
		Status:      model.JobStatusPending,
		Ctime:       now,
	}
	if err := g.versions.Create(ctx, version); err != nil {
		return nil, err
	}
	if err := g.files.SetCurrentVersion(ctx, file.ID, newVersionNumber, now); err != nil {
		return nil, err
	}
	file.CurrentVersion = newVersionNumber

	g.launch(ctx, file, version, baseContent)
	return version, nil
}

// loadVersionContent attempts to load a prior version's artifact bytes
// for use as {baseContent}; any failure (missing storage key, unreadable
// object) degrades to a fresh generation rather than an error, per §4.9
// step 2 of new_version. The stored bytes are returned as-is whatever the
// file's format, PDF included.
func (g *Generator) loadVersionContent(ctx context.Context, file *model.GeneratedFile, version int) string {
	if g.store == nil {
		return ""
	}
	v, err := g.versions.Get(ctx, file.ID, version)
	if err != nil || v.StorageKey == "" {
		return ""
	}
	reader, err := g.store.Open(ctx, v.StorageKey)
	if err != nil {
		return ""
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return ""
	}
	return string(data)
}

// launch runs the asynchronous generation job of §4.9 in its own
// goroutine so CreateFile/NewVersion return immediately. context.WithoutCancel
// detaches it from the caller's cancellation (a client disconnect must not
// abort generation) while keeping any values already attached to ctx.
func (g *Generator) launch(ctx context.Context, file *model.GeneratedFile, version *model.GeneratedFileVersion, baseContent string) {
	jobCtx := context.WithoutCancel(ctx)
	go g.run(jobCtx, file, version, baseContent)
}

func (g *Generator) run(ctx context.Context, file *model.GeneratedFile, version *model.GeneratedFileVersion, baseContent string) {
	logger := logutil.GetLogger(ctx).With(
		zap.String("file_id", file.ID), zap.Int("version", version.Version))
	started := time.Now()

	g.progress.Publish(file.OwnerID, ProgressEvent{FileID: file.ID, Version: version.Version, Status: ProgressGenerating, Progress: 0})

	if err := g.generate(ctx, file, version, baseContent); err != nil {
		logger.Error("file generation failed", zap.Error(err))
		if err := g.versions.UpdateFailed(ctx, version.ID, err.Error()); err != nil {
			logger.Error("failed to persist generation failure", zap.Error(err))
		}
		g.progress.Publish(file.OwnerID, ProgressEvent{FileID: file.ID, Version: version.Version, Status: ProgressFailed, Message: err.Error()})
		return
	}

	logger.Info("file generated", zap.Duration("elapsed", time.Since(started)))
	g.progress.Publish(file.OwnerID, ProgressEvent{FileID: file.ID, Version: version.Version, Status: ProgressCompleted, Progress: 100})
}

func (g *Generator) generate(ctx context.Context, file *model.GeneratedFile, version *model.GeneratedFileVersion, baseContent string) error {
	started := time.Now()

	project, err := g.projects.Get(ctx, file.ProjectID)
	if err != nil {
		return err
	}

	var chunks []contextChunk
	if version.Prompt != "" || version.EditPrompt != "" {
		prompt := version.Prompt
		if prompt == "" {
			prompt = version.EditPrompt
		}
		chunks, err = gatherContext(ctx, g.projects, g.documents, g.embedder, g.gateway, file.ProjectID, prompt)
		if err != nil {
			return err
		}
	}

	prompt := buildPrompt(file.FileType, templateVars{
		Prompt:      coalesce(version.EditPrompt, version.Prompt),
		Context:     renderContextBlock(chunks),
		ProjectName: project.Name,
		Subject:     file.DisplayName,
		BaseContent: baseContent,
	})

	text, _, err := g.chat.Generate(ctx, []ai.ChatMessage{
		{Role: "system", Content: "You are a meticulous Brazilian Portuguese educational content writer."},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return err
	}
	if text == "" {
		return coreerrors.ErrModelReturnedEmpty
	}

	artifact, pageCount, err := g.materialize(file, version.Version, project.Name, text)
	if err != nil {
		return err
	}

	key := storageKey(file.ID, version.Version, file.Format)
	if err := g.saveArtifact(ctx, key, artifact); err != nil {
		return err
	}
	if err := g.saveMetadata(ctx, file, version, key, chunks); err != nil {
		logutil.GetLogger(ctx).Warn("failed to persist generated file metadata", zap.Error(err))
	}

	sources := sourcesOf(chunks)
	generationMS := time.Since(started).Milliseconds()
	return g.versions.UpdateCompleted(ctx, version.ID, key, int64(len(artifact)), pageCount, sources, generationMS)
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (g *Generator) materialize(file *model.GeneratedFile, version int, projectName, body string) ([]byte, int, error) {
	switch file.Format {
	case model.FileFormatPDF:
		if g.pdf == nil {
			return nil, 0, coreerrors.ErrUnsupportedFormat
		}
		doc := buildPDFDocument(file, projectName, body)
		return g.pdf.Render(doc)
	case model.FileFormatMarkdown:
		return renderMarkdown(file, version, body), 0, nil
	default:
		return nil, 0, coreerrors.ErrUnsupportedFormat
	}
}

func (g *Generator) saveArtifact(ctx context.Context, key string, data []byte) error {
	return g.store.Save(ctx, key, nopReadSeekCloser{bytes.NewReader(data)}, int64(len(data)))
}

func (g *Generator) saveMetadata(ctx context.Context, file *model.GeneratedFile, version *model.GeneratedFileVersion, artifactKey string, chunks []contextChunk) error {
	metadata := buildMetadataJSON(file, version, chunks)
	key := metadataKey(artifactKey)
	return g.store.Save(ctx, key, nopReadSeekCloser{bytes.NewReader(metadata)}, int64(len(metadata)))
}

// storageKey implements §4.9 step 6's fixed layout.
func storageKey(fileID string, version int, format model.FileFormat) string {
	ext := "md"
	if format == model.FileFormatPDF {
		ext = "pdf"
	}
	return fileID + "/v" + strconv.Itoa(version) + "/file." + ext
}

func metadataKey(artifactKey string) string {
	dir := artifactKey[:len(artifactKey)-len("file."+extOf(artifactKey))]
	return dir + "metadata.json"
}

func extOf(key string) string {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '.' {
			return key[i+1:]
		}
	}
	return ""
}

// nopReadSeekCloser adapts a bytes.Reader (which is already Seek-capable)
// to filestore.ReadSeekCloser with a no-op Close.
type nopReadSeekCloser struct {
	*bytes.Reader
}

func (nopReadSeekCloser) Close() error { return nil }
