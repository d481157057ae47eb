package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

// TemplateRepo persists the question pool of each document. A document
// has at most one template.
type TemplateRepo interface {
	// Save replaces the document's template, minting a new revision and
	// resetting its expiry. It returns the template ID.
	Save(ctx context.Context, documentID string, questions []Question) (string, error)

	// IsValid reports whether an unexpired, non-empty template exists.
	IsValid(ctx context.Context, documentID string) (bool, error)

	// Get returns the template, or nil if none exists. Expired templates
	// are still returned; use IsValid to check freshness.
	Get(ctx context.Context, documentID string) (*Template, error)

	// Delete removes the template. Deleting a missing template is not an error.
	Delete(ctx context.Context, documentID string) error
}

type templateRepo struct {
	drv *entsql.Driver
	ttl time.Duration
	now func() time.Time
}

func (r *templateRepo) Save(ctx context.Context, documentID string, questions []Question) (string, error) {
	if len(questions) == 0 {
		return "", ErrEmptyTemplate
	}
	payload, err := json.Marshal(questions)
	if err != nil {
		return "", &PersistError{Op: "encode questions", Err: err}
	}

	now := r.now().UTC()
	// The row ID survives replacement; everything else is overwritten.
	upsert := builder.Insert("templates").
		Columns("id", "document_id", "revision", "questions", "question_count", "generated_at", "expires_at").
		Values(uuid.NewString(), documentID, uuid.NewString(), string(payload), len(questions),
			now.UnixMilli(), now.Add(r.ttl).UnixMilli()).
		OnConflict(
			entsql.ConflictColumns("document_id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				for _, c := range []string{"revision", "questions", "question_count", "generated_at", "expires_at"} {
					u.SetExcluded(c)
				}
			}),
		)
	if _, err := execStmt(ctx, r.drv, upsert); err != nil {
		return "", &PersistError{Op: "save template", Err: err}
	}

	var id string
	found, err := queryOne(ctx, r.drv, r.selectWhere(documentID, "id"), func(s scanner) error {
		return s.Scan(&id)
	})
	if err != nil {
		return "", &PersistError{Op: "save template", Err: err}
	}
	if !found {
		// Deleted between the upsert and the read.
		return "", &PersistError{Op: "save template", Err: ErrNotFound}
	}
	return id, nil
}

func (r *templateRepo) selectWhere(documentID string, columns ...string) *entsql.Selector {
	return builder.Select(columns...).
		From(builder.Table("templates")).
		Where(entsql.EQ("document_id", documentID))
}

func (r *templateRepo) IsValid(ctx context.Context, documentID string) (bool, error) {
	var (
		expires int64
		count   int
	)
	found, err := queryOne(ctx, r.drv, r.selectWhere(documentID, "expires_at", "question_count"), func(s scanner) error {
		return s.Scan(&expires, &count)
	})
	if err != nil {
		return false, fmt.Errorf("check template: %w", err)
	}
	return found && count > 0 && expires > r.now().UnixMilli(), nil
}

func (r *templateRepo) Get(ctx context.Context, documentID string) (*Template, error) {
	var (
		t                  Template
		payload            string
		generated, expires int64
	)
	stmt := r.selectWhere(documentID, "id", "document_id", "revision", "questions", "generated_at", "expires_at")
	found, err := queryOne(ctx, r.drv, stmt, func(s scanner) error {
		return s.Scan(&t.ID, &t.DocumentID, &t.Revision, &payload, &generated, &expires)
	})
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	if !found {
		return nil, nil
	}
	if err := json.Unmarshal([]byte(payload), &t.Questions); err != nil {
		return nil, fmt.Errorf("decode template questions: %w", err)
	}
	t.GeneratedAt = time.UnixMilli(generated).UTC()
	t.ExpiresAt = time.UnixMilli(expires).UTC()
	return &t, nil
}

func (r *templateRepo) Delete(ctx context.Context, documentID string) error {
	stmt := builder.Delete("templates").Where(entsql.EQ("document_id", documentID))
	if _, err := execStmt(ctx, r.drv, stmt); err != nil {
		return &PersistError{Op: "delete template", Err: err}
	}
	return nil
}
