package model

import "time"

// Role of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// HistoryEntry is one turn of prior conversation, used only as prompt context.
type HistoryEntry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// MessageRequest is one inbound WhatsApp message forwarded by the bridge.
// ID is the provider message id and the idempotency key for storage.
type MessageRequest struct {
	ID          string
	From        string
	Body        string
	Timestamp   int64
	Type        string
	IsGroup     bool
	ContactName string
	PushName    string
}

// SentAt converts the bridge timestamp (unix seconds) to a time, defaulting to now.
func (m MessageRequest) SentAt() time.Time {
	if m.Timestamp <= 0 {
		return time.Now()
	}
	return time.Unix(m.Timestamp, 0)
}

// DisplayName picks the best available name for the contact.
func (m MessageRequest) DisplayName() string {
	if m.ContactName != "" {
		return m.ContactName
	}
	return m.PushName
}

// SkipReason explains why no AI reply was produced.
type SkipReason string

const (
	SkipNone               SkipReason = ""
	SkipAccountNotFound    SkipReason = "account_not_found"
	SkipAccountUnavailable SkipReason = "account_unavailable"
	SkipAgentDisabled      SkipReason = "agent_disabled"
	SkipGroupMessage       SkipReason = "group_message"
	SkipEmptyMessage       SkipReason = "empty_message"
	SkipIgnoreWord         SkipReason = "ignore_word"
	SkipNoTriggerWord      SkipReason = "no_trigger_word"
	SkipDailyLimit         SkipReason = "daily_limit_reached"
	SkipRateLimited        SkipReason = "rate_limited"
	SkipDuplicate          SkipReason = "duplicate_message"
	SkipAIFailed           SkipReason = "ai_failed"
)

// MessageResponse is the envelope returned for every processed message.
type MessageResponse struct {
	Processed     bool
	HasAIResponse bool
	AIResponse    *string
	ResponseTime  ResponseTime
	TypingDelay   time.Duration
	SkipReason    SkipReason
}

// Skipped builds the terminal "no AI reply" envelope.
func Skipped(reason SkipReason) MessageResponse {
	return MessageResponse{Processed: true, SkipReason: reason}
}

// Answered builds the envelope for a successful AI reply.
func Answered(content string, rt ResponseTime, delay time.Duration) MessageResponse {
	c := content
	return MessageResponse{
		Processed:     true,
		HasAIResponse: true,
		AIResponse:    &c,
		ResponseTime:  rt,
		TypingDelay:   delay,
	}
}
