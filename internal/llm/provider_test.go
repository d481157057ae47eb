package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestMockProvider_ReturnsCannedResponses(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"a":1}`), Usage: Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}},
		MockResponse{Content: json.RawMessage(`{"b":2}`)},
	)

	resp1, err := mock.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "first"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp1.Content) != `{"a":1}` {
		t.Fatalf("expected {\"a\":1}, got %s", resp1.Content)
	}
	if resp1.Usage.InputTokens != 10 {
		t.Fatalf("expected 10 input tokens, got %d", resp1.Usage.InputTokens)
	}

	resp2, err := mock.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp2.Content) != `{"b":2}` {
		t.Fatalf("expected {\"b\":2}, got %s", resp2.Content)
	}
}

func TestMockProvider_EmptyQueueReturnsError(t *testing.T) {
	_, err := NewMockProvider().Generate(context.Background(), Request{})
	var unavail *ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected ErrProviderUnavailable, got: %T", err)
	}
}

func TestMockProvider_Fallback(t *testing.T) {
	mock := NewMockProvider()
	mock.Fallback = &MockResponse{Content: json.RawMessage(`{"questions":[]}`)}

	for range 3 {
		resp, err := mock.Generate(context.Background(), Request{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(resp.Content) != `{"questions":[]}` {
			t.Fatalf("unexpected content %s", resp.Content)
		}
	}
	if mock.CallCount() != 3 {
		t.Fatalf("expected 3 calls, got %d", mock.CallCount())
	}
}

func TestMockProvider_RecordsCalls(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{}`)})

	_, _ = mock.Generate(context.Background(), Request{
		System:   "sys",
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	})

	if mock.CallCount() != 1 {
		t.Fatalf("expected 1 call, got %d", mock.CallCount())
	}
	if mock.Calls[0].System != "sys" {
		t.Fatalf("expected system 'sys', got %q", mock.Calls[0].System)
	}
}

func TestPurposeContext(t *testing.T) {
	if got := PurposeFrom(context.Background()); got != PurposeUnknown {
		t.Fatalf("expected %q, got %q", PurposeUnknown, got)
	}
	ctx := WithPurpose(context.Background(), PurposeQuizGen)
	if got := PurposeFrom(ctx); got != PurposeQuizGen {
		t.Fatalf("expected %q, got %q", PurposeQuizGen, got)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{nil, ""},
		{&ErrRateLimit{}, KindRateLimit},
		{&ErrProviderUnavailable{}, KindUnavailable},
		{&ErrMaxTokensExceeded{}, KindMaxTokens},
		{&ErrInvalidResponse{Err: errors.New("x")}, KindInvalid},
		{context.DeadlineExceeded, KindTimeout},
		{context.Canceled, KindCanceled},
		{errors.New("boom"), KindOther},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestTimeoutProvider(t *testing.T) {
	slow := &blockingProvider{}
	p := WithTimeout(slow, 10*time.Millisecond)

	_, err := p.Generate(context.Background(), Request{})
	if KindOf(err) != KindTimeout {
		t.Fatalf("expected timeout, got %v", err)
	}
	if WithTimeout(slow, 0) != Provider(slow) {
		t.Fatal("zero timeout should return the provider unchanged")
	}
}

type blockingProvider struct{}

func (blockingProvider) Generate(ctx context.Context, _ Request) (*Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingProvider) ModelID() string { return "blocking" }

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"openai with key", Config{Provider: "openai", OpenAI: OpenAIConfig{APIKey: "k"}}, ""},
		{"openai without key", Config{Provider: "openai"}, "OPENAI_API_KEY"},
		{"anthropic without key", Config{Provider: "anthropic"}, "ANTHROPIC_API_KEY"},
		{"gemini without key", Config{Provider: "gemini"}, "GEMINI_API_KEY"},
		{"openrouter without key", Config{Provider: "openrouter"}, "OPENROUTER_API_KEY"},
		{"mock", Config{Provider: "mock"}, ""},
		{"unknown", Config{Provider: "llama"}, "unknown LLM provider"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigFromEnv_DiscoversProvider(t *testing.T) {
	t.Setenv("PDFQUIZ_LLM_PROVIDER", "")
	t.Setenv("PDFQUIZ_OPENAI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("PDFQUIZ_ANTHROPIC_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("PDFQUIZ_GEMINI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("PDFQUIZ_LLM_MAX_RETRIES", "2")

	cfg := ConfigFromEnv()
	if cfg.Provider != "gemini" {
		t.Fatalf("provider = %q, want gemini", cfg.Provider)
	}
	if cfg.Gemini.APIKey != "g-key" {
		t.Fatalf("gemini key = %q", cfg.Gemini.APIKey)
	}
	if cfg.Retry.MaxRetries != 2 {
		t.Fatalf("max retries = %d, want 2", cfg.Retry.MaxRetries)
	}
}

func TestNewProvider_Mock(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Provider: "mock"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ModelID() != "mock" {
		t.Fatalf("ModelID = %q, want mock", p.ModelID())
	}
}
