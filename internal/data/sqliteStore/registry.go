package sqliteStore

import (
	"context"
	"time"

	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/internal/domain/ragErrors"
)

// InsertDocument registers filename and returns the row with its new file_id.
func (s *Store) InsertDocument(ctx context.Context, filename string) (commonModels.Document, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO document_store (filename, upload_timestamp) VALUES (?, ?)",
		filename, now.UnixNano())
	if err != nil {
		return commonModels.Document{}, ragErrors.NewStoreError("insert document", filename, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return commonModels.Document{}, ragErrors.NewStoreError("insert document", filename, err)
	}
	logger.WithTrace(ctx, config.TRACE_ID_KEY).Debug("document registered", "fileId", id, "filename", filename)
	return commonModels.Document{FileId: id, Filename: filename, UploadTimestamp: now}, nil
}

// ListDocuments returns every registered document, newest first.
func (s *Store) ListDocuments(ctx context.Context) ([]commonModels.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, filename, upload_timestamp FROM document_store ORDER BY upload_timestamp DESC, id DESC")
	if err != nil {
		return nil, ragErrors.NewStoreError("list documents", "", err)
	}
	defer rows.Close()

	docs := []commonModels.Document{}
	for rows.Next() {
		var (
			doc commonModels.Document
			ts  int64
		)
		if err := rows.Scan(&doc.FileId, &doc.Filename, &ts); err != nil {
			return nil, ragErrors.NewStoreError("list documents", "", err)
		}
		doc.UploadTimestamp = time.Unix(0, ts).UTC()
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, ragErrors.NewStoreError("list documents", "", err)
	}
	return docs, nil
}

// DeleteDocument removes the row for fileId. Deleting a missing row is not an
// error, deleted tells the caller whether anything was there.
func (s *Store) DeleteDocument(ctx context.Context, fileId int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM document_store WHERE id = ?", fileId)
	if err != nil {
		return false, ragErrors.NewStoreError("delete document", commonModels.FormatFileId(fileId), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, ragErrors.NewStoreError("delete document", commonModels.FormatFileId(fileId), err)
	}
	return n > 0, nil
}
