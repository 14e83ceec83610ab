package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/tender-checklist/constants"
	"github.com/joseph-ayodele/tender-checklist/internal/chunking"
	"github.com/joseph-ayodele/tender-checklist/internal/common"
	"github.com/joseph-ayodele/tender-checklist/internal/entity"
	"github.com/joseph-ayodele/tender-checklist/internal/storage"
)

type loadedDocuments struct {
	pages    []entity.Page
	uploaded []entity.UploadedFile
}

func (d loadedDocuments) fileIDs() []string {
	ids := make([]string, len(d.uploaded))
	for i, u := range d.uploaded {
		ids[i] = u.FileID
	}
	return ids
}

// loadDocuments downloads each document, archives it under the job, uploads it to the
// LLM file store and extracts its pages. Page numbers run on across documents.
func (o *Orchestrator) loadDocuments(ctx context.Context, run *jobRun, docs []entity.DocumentRef) (loadedDocuments, error) {
	var out loadedDocuments
	if len(docs) == 0 {
		return out, common.NewAppError("PRECONDITION", "no documents supplied", common.ErrPrecondition)
	}

	perDoc := make([][]entity.Page, 0, len(docs))
	for i, doc := range docs {
		idx := i + 1
		if strings.TrimSpace(doc.StorageKey) == "" {
			run.logger.Warn("job.document.skipped", "index", idx, "document_id", doc.ID, "reason", "missing storage_key")
			continue
		}
		filename := strings.TrimSpace(doc.Filename)
		if filename == "" {
			filename = fmt.Sprintf("document_%d.pdf", idx)
		}

		data, err := o.deps.Store.Get(ctx, doc.StorageKey)
		if err != nil {
			return out, fmt.Errorf("download %s: %w", doc.StorageKey, err)
		}
		archive := run.keys.Document(idx, constants.PDFFilename(filename))
		if err := o.deps.Store.Put(ctx, archive, data, constants.ContentTypePDF); err != nil {
			return out, err
		}

		fileID, err := o.deps.Uploader.UploadFile(ctx, filename, data)
		if err != nil {
			return out, common.NewAppError("UPSTREAM_UPLOAD", "upload "+filename,
				fmt.Errorf("%w: %w", common.ErrUpstreamUpload, err))
		}
		out.uploaded = append(out.uploaded, entity.UploadedFile{Filename: filename, FileID: fileID})

		pages, err := o.deps.Pages.ExtractPages(ctx, data)
		if err != nil {
			return out, fmt.Errorf("extract pages of %s: %w", filename, err)
		}
		perDoc = append(perDoc, pages)
		run.logger.Info("job.document.ok", "index", idx, "filename", filename, "file_id", fileID,
			"bytes", len(data), "pages", len(pages))
	}
	if len(perDoc) == 0 {
		return out, common.NewAppError("PRECONDITION", "no document has a storage_key", common.ErrPrecondition)
	}

	out.pages = chunking.OffsetPages(perDoc)
	if err := storage.PutJSON(ctx, o.deps.Store, run.keys.Pages(), out.pages); err != nil {
		return out, err
	}
	return out, nil
}
