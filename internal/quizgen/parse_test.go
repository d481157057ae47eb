package quizgen

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/abhisek/pdfquiz/internal/llm"
)

func TestFirstObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, true},
		{"surrounding prose", "Sure! Here you go:\n{\"a\":1}\nHope that helps.", `{"a":1}`, true},
		{"nested", `x {"a":{"b":[1,{"c":2}]}} y {"z":0}`, `{"a":{"b":[1,{"c":2}]}}`, true},
		{"brace in string", `{"a":"}{"}`, `{"a":"}{"}`, true},
		{"escaped quote in string", `{"a":"say \"}\" now"} tail`, `{"a":"say \"}\" now"}`, true},
		{"code fence", "```json\n{\"questions\":[]}\n```", `{"questions":[]}`, true},
		{"unbalanced", `{"a":{"b":1}`, "", false},
		{"no object", `just text`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := firstObject([]byte(tt.in))
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	good := json.RawMessage(`{"questions":[{"question":"Q","options":["a","b"],"answer":0,"explanation":""}]}`)

	tests := []struct {
		name      string
		resp      *llm.Response
		err       error
		kind      OutcomeKind
		recovered bool
		items     int
		errKind   llm.ErrorKind
	}{
		{"parsed", &llm.Response{Content: good}, nil, Parsed, false, 1, ""},
		{"empty list parsed", &llm.Response{Content: json.RawMessage(`{"questions":[]}`)}, nil, Parsed, false, 0, ""},
		{"fenced content recovered", &llm.Response{Content: json.RawMessage("```json\n" + string(good) + "\n```")}, nil, Malformed, true, 1, ""},
		{"missing questions field", &llm.Response{Content: json.RawMessage(`{"items":[]}`)}, nil, Malformed, false, 0, ""},
		{"not json", &llm.Response{Content: json.RawMessage(`I cannot help`)}, nil, Malformed, false, 0, ""},
		{"schema failure recovered", nil, &llm.ErrInvalidResponse{Content: good, Err: errors.New("schema")}, Malformed, true, 1, ""},
		{"rate limit", nil, &llm.ErrRateLimit{}, ProviderError, false, 0, llm.KindRateLimit},
		{"truncated", nil, &llm.ErrMaxTokensExceeded{Content: json.RawMessage(`{"questions":[`)}, ProviderError, false, 0, llm.KindMaxTokens},
		{"other", nil, errors.New("boom"), ProviderError, false, 0, llm.KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := classify(tt.resp, tt.err)
			if o.Kind != tt.kind {
				t.Fatalf("kind = %q, want %q", o.Kind, tt.kind)
			}
			if o.Recovered != tt.recovered {
				t.Errorf("recovered = %v, want %v", o.Recovered, tt.recovered)
			}
			if len(o.Items) != tt.items {
				t.Errorf("items = %d, want %d", len(o.Items), tt.items)
			}
			if o.ErrKind != tt.errKind {
				t.Errorf("errKind = %q, want %q", o.ErrKind, tt.errKind)
			}
			if o.Usable() != (tt.kind == Parsed || tt.recovered) {
				t.Errorf("usable = %v", o.Usable())
			}
		})
	}
}
