package cmd

import "testing"

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"gpt-4o-mini", 28, "gpt-4o-mini"},
		{"anthropic/claude-sonnet-4", 9, "anthropic"},
		{"héllo wörld", 5, "héllo"},
		{"", 3, ""},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestFormatCost(t *testing.T) {
	tests := []struct {
		usd  float64
		want string
	}{
		{0, "$0.0000"},
		{0.00123, "$0.0012"},
		{0.5, "$0.50"},
		{12.5, "$12.50"},
	}
	for _, tt := range tests {
		if got := formatCost(tt.usd); got != tt.want {
			t.Errorf("formatCost(%v) = %q, want %q", tt.usd, got, tt.want)
		}
	}
}

func TestEventCostUnknownModel(t *testing.T) {
	if got := eventCost("no-such-model", 1000, 1000); got != "?" {
		t.Errorf("eventCost = %q, want ?", got)
	}
}
