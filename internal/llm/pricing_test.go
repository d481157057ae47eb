package llm

import (
	"math"
	"testing"
)

func TestLookupCost(t *testing.T) {
	tests := []struct {
		model string
		found bool
	}{
		{"gpt-4o-mini", true},
		{"openai/gpt-4o-mini", true},
		{"claude-haiku-4-5-20251001", true},
		{"mystery-model", false},
		{"vendor/mystery-model", false},
	}
	for _, tt := range tests {
		if got := LookupCost(tt.model); (got != nil) != tt.found {
			t.Errorf("LookupCost(%q) found = %v, want %v", tt.model, got != nil, tt.found)
		}
	}
}

func TestModelCost_Cost(t *testing.T) {
	c := ModelCost{InputPerMTok: 0.15, OutputPerMTok: 0.6}
	got := c.Cost(1_000_000, 500_000)
	if math.Abs(got-0.45) > 1e-9 {
		t.Fatalf("Cost = %f, want 0.45", got)
	}
}
