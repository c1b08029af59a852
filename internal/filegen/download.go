package filegen

import (
	"context"
	"io"
	"strconv"

	"github.com/xxxsen/ragcore/internal/model"
	coreerrors "github.com/xxxsen/ragcore/internal/pkg/errors"
)

// Download implements §4.9's download(file_id, version?): version 0 means
// "the file's current version".
func (g *Generator) Download(ctx context.Context, fileID string, version int) ([]byte, string, string, error) {
	file, err := g.files.Get(ctx, fileID)
	if err != nil {
		return nil, "", "", err
	}
	if version == 0 {
		version = file.CurrentVersion
	}
	v, err := g.versions.Get(ctx, fileID, version)
	if err != nil {
		return nil, "", "", err
	}
	if v.Status != model.JobStatusCompleted || v.StorageKey == "" {
		return nil, "", "", coreerrors.ErrNotFound
	}

	reader, err := g.store.Open(ctx, v.StorageKey)
	if err != nil {
		return nil, "", "", err
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", "", err
	}

	return data, downloadFilename(file, version), contentTypeOf(file.Format), nil
}

// Delete cascades a file and every version's bytes, per §4.9's
// versioning invariant.
func (g *Generator) Delete(ctx context.Context, fileID string) error {
	file, err := g.files.Get(ctx, fileID)
	if err != nil {
		return err
	}
	versions, err := g.versions.ListByFile(ctx, fileID)
	if err != nil {
		return err
	}
	for _, v := range versions {
		if v.StorageKey == "" {
			continue
		}
		if err := g.store.Delete(ctx, v.StorageKey); err != nil {
			return err
		}
		if err := g.store.Delete(ctx, metadataKey(v.StorageKey)); err != nil {
			return err
		}
	}
	if err := g.versions.DeleteByFile(ctx, fileID); err != nil {
		return err
	}
	return g.files.Delete(ctx, file.ID)
}

func downloadFilename(file *model.GeneratedFile, version int) string {
	ext := "md"
	if file.Format == model.FileFormatPDF {
		ext = "pdf"
	}
	name := file.DisplayName
	if version != file.CurrentVersion {
		name += "_v" + strconv.Itoa(version)
	}
	return name + "." + ext
}

func contentTypeOf(format model.FileFormat) string {
	if format == model.FileFormatPDF {
		return "application/pdf"
	}
	return "text/markdown; charset=utf-8"
}
