package store

import (
	"context"
	"testing"
)

func TestLLMEvents(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	events := []LLMRequestEventData{
		{Provider: "openai", Model: "gpt-4o-mini", Purpose: "quiz-gen", InputTokens: 100, OutputTokens: 50, LatencyMs: 200, Success: true, RequestBody: `{"a":1}`, ResponseBody: `{"questions":[]}`},
		{Provider: "openai", Model: "gpt-4o-mini", Purpose: "quiz-gen", InputTokens: 300, OutputTokens: 10, LatencyMs: 400, Success: false, ErrorMessage: "rate limited"},
		{Provider: "anthropic", Model: "claude-haiku", Purpose: "unknown", InputTokens: 5, OutputTokens: 5, LatencyMs: 10, Success: true},
	}
	for _, e := range events {
		if err := repo.AppendLLMRequest(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	recs, err := repo.QueryLLMEvents(ctx, QueryOpts{Limit: 10})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 events, got %d", len(recs))
	}
	if recs[0].Provider != "anthropic" {
		t.Errorf("expected newest first, got %s", recs[0].Provider)
	}
	if recs[1].Success || recs[1].ErrorMessage != "rate limited" {
		t.Errorf("failure not persisted: %+v", recs[1])
	}

	rec, err := repo.GetLLMEvent(ctx, recs[2].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.RequestBody != `{"a":1}` || rec.ResponseBody != `{"questions":[]}` || !rec.Success {
		t.Errorf("unexpected record: %+v", rec)
	}

	missing, err := repo.GetLLMEvent(ctx, 9999)
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Fatal("expected nil for missing event")
	}

	byPurpose, err := repo.LLMUsageByPurpose(ctx)
	if err != nil {
		t.Fatalf("usage by purpose: %v", err)
	}
	if len(byPurpose) != 2 {
		t.Fatalf("expected 2 purposes, got %d", len(byPurpose))
	}
	qg := byPurpose[0]
	if qg.Purpose != "quiz-gen" || qg.Calls != 2 || qg.InputTokens != 400 || qg.OutputTokens != 60 || qg.AvgLatencyMs != 300 {
		t.Errorf("unexpected quiz-gen usage: %+v", qg)
	}

	byModel, err := repo.LLMUsageByModel(ctx)
	if err != nil {
		t.Fatalf("usage by model: %v", err)
	}
	if len(byModel) != 2 || byModel[0].Model != "gpt-4o-mini" || byModel[0].Calls != 2 {
		t.Errorf("unexpected model usage: %+v", byModel)
	}
}
