package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

// DocumentRepo persists uploaded documents.
type DocumentRepo interface {
	// Create inserts doc, assigning ID and CreatedAt when unset.
	Create(ctx context.Context, doc *Document) error

	// Get returns the document, or nil if it does not exist.
	Get(ctx context.Context, id string) (*Document, error)

	// List returns documents newest first.
	List(ctx context.Context) ([]Document, error)

	// SetCover records the blob key of the document's cover image.
	SetCover(ctx context.Context, id, coverKey string) error

	// SetPageCount records the number of pages found at extraction.
	SetPageCount(ctx context.Context, id string, pages int) error

	// Delete removes the document with its template and attempts.
	Delete(ctx context.Context, id string) error
}

type documentRepo struct {
	drv *entsql.Driver
	now func() time.Time
}

var documentColumns = []string{"id", "name", "blob_key", "blob_url", "size_bytes", "page_count", "cover_key", "created_at"}

func (r *documentRepo) Create(ctx context.Context, doc *Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = r.now().UTC()
	}
	stmt := builder.Insert("documents").
		Columns(documentColumns...).
		Values(doc.ID, doc.Name, doc.BlobKey, doc.BlobURL, doc.SizeBytes, doc.PageCount, doc.CoverKey, doc.CreatedAt.UnixMilli())
	if _, err := execStmt(ctx, r.drv, stmt); err != nil {
		return &PersistError{Op: "create document", Err: err}
	}
	return nil
}

func (r *documentRepo) Get(ctx context.Context, id string) (*Document, error) {
	stmt := builder.Select(documentColumns...).
		From(builder.Table("documents")).
		Where(entsql.EQ("id", id))

	var doc *Document
	found, err := queryOne(ctx, r.drv, stmt, func(s scanner) (err error) {
		doc, err = scanDocument(s)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	if !found {
		return nil, nil
	}
	return doc, nil
}

func (r *documentRepo) List(ctx context.Context) ([]Document, error) {
	stmt := builder.Select(documentColumns...).
		From(builder.Table("documents")).
		OrderBy(entsql.Desc("created_at"), "id")
	rows, err := queryRows(ctx, r.drv, stmt)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

func (r *documentRepo) SetCover(ctx context.Context, id, coverKey string) error {
	return r.set(ctx, "set cover", id, "cover_key", coverKey)
}

func (r *documentRepo) SetPageCount(ctx context.Context, id string, pages int) error {
	return r.set(ctx, "set page count", id, "page_count", pages)
}

func (r *documentRepo) set(ctx context.Context, op, id, column string, value any) error {
	stmt := builder.Update("documents").
		Set(column, value).
		Where(entsql.EQ("id", id))
	res, err := execStmt(ctx, r.drv, stmt)
	if err != nil {
		return &PersistError{Op: op, Err: err}
	}
	return expectRow(res)
}

func (r *documentRepo) Delete(ctx context.Context, id string) error {
	res, err := execStmt(ctx, r.drv, builder.Delete("documents").Where(entsql.EQ("id", id)))
	if err != nil {
		return &PersistError{Op: "delete document", Err: err}
	}
	return expectRow(res)
}

func scanDocument(s scanner) (*Document, error) {
	var (
		doc     Document
		created int64
	)
	err := s.Scan(&doc.ID, &doc.Name, &doc.BlobKey, &doc.BlobURL, &doc.SizeBytes, &doc.PageCount, &doc.CoverKey, &created)
	if err != nil {
		return nil, err
	}
	doc.CreatedAt = time.UnixMilli(created).UTC()
	return &doc, nil
}
