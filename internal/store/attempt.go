package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

// AttemptRepo persists completed quiz attempts.
type AttemptRepo interface {
	// Record stores a completed attempt. It rejects attempts whose
	// selected indices don't match the question count or whose score is
	// out of range.
	Record(ctx context.Context, a *Attempt) error

	// ListByDocument returns a document's attempts, newest first.
	ListByDocument(ctx context.Context, documentID string, limit int) ([]Attempt, error)

	// List returns attempts across documents, newest first.
	List(ctx context.Context, opts QueryOpts) ([]Attempt, error)
}

type attemptRepo struct {
	drv *entsql.Driver
}

var attemptColumns = []string{"id", "document_id", "template_revision", "score", "total_questions", "selected_indices", "answers", "completed_at"}

// Validate checks the attempt's invariants.
func (a *Attempt) Validate() error {
	switch {
	case a.DocumentID == "":
		return fmt.Errorf("%w: missing document id", ErrInvalidAttempt)
	case a.TotalQuestions <= 0:
		return fmt.Errorf("%w: total questions must be positive, got %d", ErrInvalidAttempt, a.TotalQuestions)
	case len(a.SelectedIndices) != a.TotalQuestions:
		return fmt.Errorf("%w: %d selected indices for %d questions", ErrInvalidAttempt, len(a.SelectedIndices), a.TotalQuestions)
	case a.Score < 0 || a.Score > a.TotalQuestions:
		return fmt.Errorf("%w: score %d outside 0..%d", ErrInvalidAttempt, a.Score, a.TotalQuestions)
	case a.Answers != nil && len(a.Answers) != a.TotalQuestions:
		return fmt.Errorf("%w: %d answers for %d questions", ErrInvalidAttempt, len(a.Answers), a.TotalQuestions)
	}
	return nil
}

func (r *attemptRepo) Record(ctx context.Context, a *Attempt) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CompletedAt.IsZero() {
		a.CompletedAt = time.Now().UTC()
	}

	indices, err := json.Marshal(a.SelectedIndices)
	if err != nil {
		return &PersistError{Op: "encode attempt", Err: err}
	}
	answers := []byte("[]")
	if a.Answers != nil {
		if answers, err = json.Marshal(a.Answers); err != nil {
			return &PersistError{Op: "encode attempt", Err: err}
		}
	}

	stmt := builder.Insert("attempts").
		Columns(attemptColumns...).
		Values(a.ID, a.DocumentID, a.TemplateRevision, a.Score, a.TotalQuestions, string(indices), string(answers),
			a.CompletedAt.UnixMilli())
	_, err = execStmt(ctx, r.drv, stmt)
	if err != nil {
		return &PersistError{Op: "record attempt", Err: err}
	}
	return nil
}

func (r *attemptRepo) ListByDocument(ctx context.Context, documentID string, limit int) ([]Attempt, error) {
	return r.List(ctx, QueryOpts{DocumentID: documentID, Limit: limit})
}

func (r *attemptRepo) List(ctx context.Context, opts QueryOpts) ([]Attempt, error) {
	stmt := builder.Select(attemptColumns...).
		From(builder.Table("attempts")).
		OrderBy(entsql.Desc("completed_at"), "id").
		Limit(opts.limit(100))
	if opts.DocumentID != "" {
		stmt.Where(entsql.EQ("document_id", opts.DocumentID))
	}

	rows, err := queryRows(ctx, r.drv, stmt)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var (
			a                Attempt
			indices, answers string
			completed        int64
		)
		if err := rows.Scan(&a.ID, &a.DocumentID, &a.TemplateRevision, &a.Score, &a.TotalQuestions, &indices, &answers, &completed); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		if err := json.Unmarshal([]byte(indices), &a.SelectedIndices); err != nil {
			return nil, fmt.Errorf("decode selected indices: %w", err)
		}
		if err := json.Unmarshal([]byte(answers), &a.Answers); err != nil {
			return nil, fmt.Errorf("decode answers: %w", err)
		}
		a.CompletedAt = time.UnixMilli(completed).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}
