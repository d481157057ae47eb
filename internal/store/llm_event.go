package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// EventRepo records and queries LLM request events.
type EventRepo interface {
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEventRecord, error)
	// GetLLMEvent returns the event, or nil if it does not exist.
	GetLLMEvent(ctx context.Context, id int) (*LLMEventRecord, error)
	LLMUsageByPurpose(ctx context.Context) ([]LLMUsageByPurpose, error)
	LLMUsageByModel(ctx context.Context) ([]LLMUsageByModel, error)
}

type eventRepo struct {
	drv *entsql.Driver
	now func() time.Time
}

var llmEventColumns = []string{"id", "timestamp", "provider", "model", "purpose", "input_tokens", "output_tokens",
	"latency_ms", "success", "error_message", "request_body", "response_body"}

func (r *eventRepo) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	stmt := builder.Insert("llm_request_events").
		Columns(llmEventColumns[1:]...).
		Values(r.now().UnixMilli(), data.Provider, data.Model, data.Purpose, data.InputTokens, data.OutputTokens,
			data.LatencyMs, data.Success, data.ErrorMessage, data.RequestBody, data.ResponseBody)
	if _, err := execStmt(ctx, r.drv, stmt); err != nil {
		return fmt.Errorf("save llm request event: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEventRecord, error) {
	stmt := builder.Select(llmEventColumns...).
		From(builder.Table("llm_request_events")).
		OrderBy(entsql.Desc("id")).
		Limit(opts.limit(50))
	rows, err := queryRows(ctx, r.drv, stmt)
	if err != nil {
		return nil, fmt.Errorf("query llm request events: %w", err)
	}
	defer rows.Close()

	var out []LLMEventRecord
	for rows.Next() {
		rec, err := scanLLMEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan llm request event: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (r *eventRepo) GetLLMEvent(ctx context.Context, id int) (*LLMEventRecord, error) {
	stmt := builder.Select(llmEventColumns...).
		From(builder.Table("llm_request_events")).
		Where(entsql.EQ("id", id))

	var rec *LLMEventRecord
	found, err := queryOne(ctx, r.drv, stmt, func(s scanner) (err error) {
		rec, err = scanLLMEvent(s)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get llm request event: %w", err)
	}
	if !found {
		return nil, nil
	}
	return rec, nil
}

func (r *eventRepo) LLMUsageByPurpose(ctx context.Context) ([]LLMUsageByPurpose, error) {
	stmt := builder.Select("purpose", "COUNT(*)", "COALESCE(SUM(input_tokens), 0)", "COALESCE(SUM(output_tokens), 0)",
		"CAST(COALESCE(AVG(latency_ms), 0) AS INTEGER)").
		From(builder.Table("llm_request_events")).
		GroupBy("purpose").
		OrderBy("COUNT(*) DESC", "purpose")
	rows, err := queryRows(ctx, r.drv, stmt)
	if err != nil {
		return nil, fmt.Errorf("llm usage by purpose: %w", err)
	}
	defer rows.Close()

	var out []LLMUsageByPurpose
	for rows.Next() {
		var u LLMUsageByPurpose
		if err := rows.Scan(&u.Purpose, &u.Calls, &u.InputTokens, &u.OutputTokens, &u.AvgLatencyMs); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *eventRepo) LLMUsageByModel(ctx context.Context) ([]LLMUsageByModel, error) {
	stmt := builder.Select("model", "COUNT(*)", "COALESCE(SUM(input_tokens), 0)", "COALESCE(SUM(output_tokens), 0)").
		From(builder.Table("llm_request_events")).
		GroupBy("model").
		OrderBy("COUNT(*) DESC", "model")
	rows, err := queryRows(ctx, r.drv, stmt)
	if err != nil {
		return nil, fmt.Errorf("llm usage by model: %w", err)
	}
	defer rows.Close()

	var out []LLMUsageByModel
	for rows.Next() {
		var u LLMUsageByModel
		if err := rows.Scan(&u.Model, &u.Calls, &u.InputTokens, &u.OutputTokens); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func scanLLMEvent(s scanner) (*LLMEventRecord, error) {
	var (
		rec LLMEventRecord
		ts  int64
	)
	err := s.Scan(&rec.ID, &ts, &rec.Provider, &rec.Model, &rec.Purpose, &rec.InputTokens, &rec.OutputTokens,
		&rec.LatencyMs, &rec.Success, &rec.ErrorMessage, &rec.RequestBody, &rec.ResponseBody)
	if err != nil {
		return nil, err
	}
	rec.Timestamp = time.UnixMilli(ts).UTC()
	return &rec, nil
}
