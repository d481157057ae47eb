package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

// migrations are applied in order. A migration's index+1 is its version,
// tracked through PRAGMA user_version.
var migrations = []string{
	`CREATE TABLE documents (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		blob_key    TEXT NOT NULL,
		blob_url    TEXT NOT NULL DEFAULT '',
		size_bytes  INTEGER NOT NULL DEFAULT 0,
		page_count  INTEGER NOT NULL DEFAULT 0,
		cover_key   TEXT NOT NULL DEFAULT '',
		created_at  INTEGER NOT NULL
	);

	CREATE TABLE templates (
		id              TEXT PRIMARY KEY,
		document_id     TEXT NOT NULL UNIQUE REFERENCES documents(id) ON DELETE CASCADE,
		revision        TEXT NOT NULL,
		questions       TEXT NOT NULL,
		question_count  INTEGER NOT NULL,
		generated_at    INTEGER NOT NULL,
		expires_at      INTEGER NOT NULL
	);

	CREATE TABLE attempts (
		id                 TEXT PRIMARY KEY,
		document_id        TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		template_revision  TEXT NOT NULL DEFAULT '',
		score              INTEGER NOT NULL,
		total_questions    INTEGER NOT NULL,
		selected_indices   TEXT NOT NULL,
		answers            TEXT NOT NULL DEFAULT '[]',
		completed_at       INTEGER NOT NULL,
		CHECK (score >= 0 AND score <= total_questions)
	);
	CREATE INDEX attempts_by_document ON attempts(document_id, completed_at);

	CREATE TABLE llm_request_events (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp      INTEGER NOT NULL,
		provider       TEXT NOT NULL,
		model          TEXT NOT NULL,
		purpose        TEXT NOT NULL,
		input_tokens   INTEGER NOT NULL DEFAULT 0,
		output_tokens  INTEGER NOT NULL DEFAULT 0,
		latency_ms     INTEGER NOT NULL DEFAULT 0,
		success        INTEGER NOT NULL,
		error_message  TEXT NOT NULL DEFAULT '',
		request_body   TEXT NOT NULL DEFAULT '',
		response_body  TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX llm_request_events_by_time ON llm_request_events(timestamp);`,
}

func migrate(ctx context.Context, drv *entsql.Driver) error {
	var version int
	found, err := queryOne(ctx, drv, rawQuery("PRAGMA user_version"), func(s scanner) error {
		return s.Scan(&version)
	})
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if !found {
		return fmt.Errorf("read schema version: no rows")
	}

	for i := version; i < len(migrations); i++ {
		tx, err := drv.Tx(ctx)
		if err != nil {
			return err
		}
		if err := tx.Exec(ctx, migrations[i], []any{}, nil); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if err := tx.Exec(ctx, fmt.Sprintf("PRAGMA user_version = %d", i+1), []any{}, nil); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: set version: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: commit: %w", i+1, err)
		}
	}
	return nil
}

// rawQuery adapts a literal statement to the builder interface.
type rawQuery string

func (q rawQuery) Query() (string, []any) { return string(q), []any{} }
