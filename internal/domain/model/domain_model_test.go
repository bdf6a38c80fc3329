//go:build !integration

package model

import (
	"math"
	"strings"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

// --- AccountMetadata Tests ---

func TestAccountMetadata_EffectivePrompt(t *testing.T) {
	t.Run("should use custom prompt when set", func(t *testing.T) {
		a := &AccountMetadata{AgentPrompt: strPtr("  You sell phones.  ")}
		if got := a.EffectivePrompt(); got != "You sell phones." {
			t.Errorf("expected trimmed custom prompt, got %q", got)
		}
	})

	t.Run("should fall back to default for nil or blank prompt", func(t *testing.T) {
		for _, a := range []*AccountMetadata{{}, {AgentPrompt: strPtr("   ")}, nil} {
			if got := a.EffectivePrompt(); got != DefaultAgentPrompt {
				t.Errorf("expected default prompt, got %q", got)
			}
		}
		if strings.TrimSpace(DefaultAgentPrompt) == "" {
			t.Fatal("default prompt must not be empty")
		}
	})
}

func TestAccountMetadata_WordLists(t *testing.T) {
	a := &AccountMetadata{
		TriggerWords: strPtr(" Prix, commande ,, ORDER "),
		IgnoreWords:  nil,
	}
	got := a.TriggerWordList()
	want := []string{"prix", "commande", "order"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %q, got %q", i, want[i], got[i])
		}
	}
	if l := a.IgnoreWordList(); len(l) != 0 {
		t.Errorf("expected empty ignore list, got %v", l)
	}
	if !MatchesAnyWord("Quel est le PRIX ?", got) {
		t.Error("expected case-insensitive match on 'prix'")
	}
	if MatchesAnyWord("bonjour", got) {
		t.Error("did not expect a match")
	}
}

func TestAccountMetadata_DailyLimit(t *testing.T) {
	tests := []struct {
		name     string
		count    int
		limit    int
		expected bool
	}{
		{"unlimited", 1000, 0, false},
		{"below limit", 4, 5, false},
		{"at limit", 5, 5, true},
		{"above limit", 6, 5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &AccountMetadata{DailyAIResponses: tt.count, DailyAIResponseLimit: tt.limit}
			if got := a.HasReachedDailyLimit(); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestAccountMetadata_DailyLimitRollsOverAtMidnight(t *testing.T) {
	now := time.Date(2026, 3, 2, 0, 5, 0, 0, time.UTC)
	yesterday := &AccountMetadata{
		DailyAIResponses: 5, DailyAIResponseLimit: 5,
		CountersResetAt: time.Date(2026, 3, 1, 0, 1, 0, 0, time.UTC),
	}
	if yesterday.HasReachedDailyLimitAt(now) {
		t.Error("yesterday's counter must not block today's replies")
	}
	if got := yesterday.DailyResponsesAt(now); got != 0 {
		t.Errorf("expected stale counter to read 0, got %d", got)
	}

	today := &AccountMetadata{
		DailyAIResponses: 5, DailyAIResponseLimit: 5,
		CountersResetAt: time.Date(2026, 3, 2, 0, 0, 30, 0, time.UTC),
	}
	if !today.HasReachedDailyLimitAt(now) {
		t.Error("counter reset today must still enforce the limit")
	}
}

func TestAccountMetadata_IsAgentActive(t *testing.T) {
	var nilAcc *AccountMetadata
	if nilAcc.IsAgentActive() {
		t.Error("nil account must not be active")
	}
	if !(&AccountMetadata{AgentEnabled: true}).IsAgentActive() {
		t.Error("expected enabled agent to be active")
	}
}

// --- ResponseTime Tests ---

func TestParseResponseTime(t *testing.T) {
	cases := map[string]ResponseTime{
		"instant": ResponseTimeInstant,
		"FAST":    ResponseTimeFast,
		" random": ResponseTimeRandom,
		"slow":    ResponseTimeSlow,
		"weird":   ResponseTimeInstant,
		"":        ResponseTimeInstant,
	}
	for in, want := range cases {
		if got := ParseResponseTime(in); got != want {
			t.Errorf("ParseResponseTime(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResponseTime_DelayRange(t *testing.T) {
	min, max := ResponseTimeSlow.DelayRange()
	if min != 8*time.Second || max != 20*time.Second {
		t.Errorf("unexpected slow range %v-%v", min, max)
	}
	min, max = ResponseTimeInstant.DelayRange()
	if min != 0 || max != 0 {
		t.Errorf("instant must have no delay, got %v-%v", min, max)
	}
}

// --- Pricing Tests ---

func TestModelPricing_Compute(t *testing.T) {
	p := &ModelPricing{InputMicrosPer1K: 150, OutputMicrosPer1K: 600}
	c := p.Compute(1000, 500, 600)
	if math.Abs(c.PromptCostUSD-0.00015) > 1e-12 {
		t.Errorf("unexpected prompt cost %v", c.PromptCostUSD)
	}
	if math.Abs(c.CompletionCostUSD-0.0003) > 1e-12 {
		t.Errorf("unexpected completion cost %v", c.CompletionCostUSD)
	}
	if math.Abs(c.TotalCostXAF-0.27) > 1e-9 {
		t.Errorf("unexpected XAF cost %v", c.TotalCostXAF)
	}
	if c.TotalMicros() != 450 {
		t.Errorf("expected 450 micros, got %d", c.TotalMicros())
	}

	var none *ModelPricing
	if none.Compute(10, 10, 600) != nil {
		t.Error("nil pricing must yield nil costs")
	}
}

// --- Message helpers ---

func TestMessageRequest_Helpers(t *testing.T) {
	m := MessageRequest{PushName: "Awa", Timestamp: 1700000000}
	if m.DisplayName() != "Awa" {
		t.Errorf("expected push name fallback, got %q", m.DisplayName())
	}
	if m.SentAt().Unix() != 1700000000 {
		t.Errorf("unexpected SentAt %v", m.SentAt())
	}
	if OutboundProviderID("ABC") != "ai:ABC" {
		t.Error("unexpected outbound provider id")
	}
	if got := Preview("héllo world", 5); got != "héllo…" {
		t.Errorf("unexpected preview %q", got)
	}
}

func TestNewUsageLog(t *testing.T) {
	resp := &AIResponse{
		Model:      "gpt-4o-mini",
		Provider:   "openai",
		TokensUsed: 30,
		Metadata: AIResponseMetadata{
			PromptTokens:     20,
			CompletionTokens: 10,
			Costs:            &Costs{TotalCostUSD: 0.01, TotalCostXAF: 6},
		},
	}
	l := NewUsageLog(7, 9, resp)
	if l.ID == "" || len(l.ID) != 26 {
		t.Errorf("expected a ULID id, got %q", l.ID)
	}
	if l.CostXAF != 6 || l.TotalTokens != 30 || l.AccountID != 9 {
		t.Errorf("unexpected usage log %+v", l)
	}
}
