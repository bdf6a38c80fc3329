package model

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// UsageLog records token consumption and cost of one AI response.
type UsageLog struct {
	ID               string
	UserID           int64
	AccountID        int64
	ConversationID   *string
	MessageID        *string
	AIModel          string
	Provider         string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	CostUSD          float64
	CostXAF          float64
	ResponseTimeMs   int64
	CreatedAt        time.Time
}

func NewUsageLog(userID, accountID int64, resp *AIResponse) *UsageLog {
	l := &UsageLog{
		ID:               ulid.Make().String(),
		UserID:           userID,
		AccountID:        accountID,
		AIModel:          resp.Model,
		Provider:         resp.Provider,
		PromptTokens:     resp.Metadata.PromptTokens,
		CompletionTokens: resp.Metadata.CompletionTokens,
		TotalTokens:      resp.TokensUsed,
		ResponseTimeMs:   resp.Metadata.LatencyMs,
		CreatedAt:        time.Now(),
	}
	if c := resp.Metadata.Costs; c != nil {
		l.CostUSD = c.TotalCostUSD
		l.CostXAF = c.TotalCostXAF
	}
	return l
}
