package model

import (
	"strings"
	"time"
)

// ResponseTime is the typing-simulation profile the bridge applies before sending a reply.
type ResponseTime string

const (
	ResponseTimeInstant ResponseTime = "instant"
	ResponseTimeFast    ResponseTime = "fast"
	ResponseTimeRandom  ResponseTime = "random"
	ResponseTimeSlow    ResponseTime = "slow"
)

// ParseResponseTime maps a stored value onto the enum. Unknown values fall back to instant.
func ParseResponseTime(s string) ResponseTime {
	switch ResponseTime(strings.ToLower(strings.TrimSpace(s))) {
	case ResponseTimeFast:
		return ResponseTimeFast
	case ResponseTimeRandom:
		return ResponseTimeRandom
	case ResponseTimeSlow:
		return ResponseTimeSlow
	default:
		return ResponseTimeInstant
	}
}

// DelayRange returns the advisory typing delay bounds for the profile.
func (r ResponseTime) DelayRange() (min, max time.Duration) {
	switch r {
	case ResponseTimeFast:
		return 1 * time.Second, 3 * time.Second
	case ResponseTimeRandom:
		return 2 * time.Second, 12 * time.Second
	case ResponseTimeSlow:
		return 8 * time.Second, 20 * time.Second
	case ResponseTimeInstant:
		return 0, 0
	default:
		return 0, 0
	}
}

// DefaultAgentPrompt is used when the account has no custom agent prompt.
const DefaultAgentPrompt = "You are a professional and courteous customer service assistant answering " +
	"WhatsApp messages on behalf of this business. Greet customers politely, answer their questions " +
	"clearly and accurately, help them with products, services, prices and availability, and guide " +
	"them towards the next step (order, appointment, contact with the team). Keep answers short and " +
	"well suited to a WhatsApp conversation."

// AccountMetadata is the read-mostly snapshot of a WhatsApp account used by the message pipeline.
// It is loaded fresh from the account store for every inbound message.
type AccountMetadata struct {
	SessionID   string
	SessionName string
	AccountID   int64
	UserID      int64

	AgentEnabled          bool
	AIModelID             *int64
	AgentPrompt           *string
	ContextualInformation *string
	TriggerWords          *string
	IgnoreWords           *string
	ResponseTime          ResponseTime

	DailyAIResponses     int
	DailyAIResponseLimit int // 0 means unlimited
	CountersResetAt      time.Time
}

// IsAgentActive reports whether the AI agent is switched on for the account.
func (a *AccountMetadata) IsAgentActive() bool {
	return a != nil && a.AgentEnabled
}

// EffectivePrompt returns the custom agent prompt or the built-in default.
func (a *AccountMetadata) EffectivePrompt() string {
	if a != nil && a.AgentPrompt != nil {
		if p := strings.TrimSpace(*a.AgentPrompt); p != "" {
			return p
		}
	}
	return DefaultAgentPrompt
}

// Context returns the trimmed contextual business information, or "" when none is configured.
func (a *AccountMetadata) Context() string {
	if a == nil || a.ContextualInformation == nil {
		return ""
	}
	return strings.TrimSpace(*a.ContextualInformation)
}

func (a *AccountMetadata) TriggerWordList() []string { return splitWords(a.TriggerWords) }
func (a *AccountMetadata) IgnoreWordList() []string  { return splitWords(a.IgnoreWords) }

// HasReachedDailyLimit reports whether the account consumed today's AI response quota.
func (a *AccountMetadata) HasReachedDailyLimit() bool {
	return a.HasReachedDailyLimitAt(time.Now())
}

func (a *AccountMetadata) HasReachedDailyLimitAt(now time.Time) bool {
	return a.DailyAIResponseLimit > 0 && a.DailyResponsesAt(now) >= a.DailyAIResponseLimit
}

// DailyResponsesAt is the counter as of now: a counter last reset before
// today's midnight counts as 0 even if the reset worker has not run yet.
func (a *AccountMetadata) DailyResponsesAt(now time.Time) int {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if !a.CountersResetAt.IsZero() && a.CountersResetAt.Before(midnight) {
		return 0
	}
	return a.DailyAIResponses
}

// MatchesAnyWord reports whether text contains one of the words (case-insensitive).
func MatchesAnyWord(text string, words []string) bool {
	lower := strings.ToLower(text)
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func splitWords(raw *string) []string {
	if raw == nil {
		return nil
	}
	parts := strings.Split(*raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if w := strings.ToLower(strings.TrimSpace(p)); w != "" {
			out = append(out, w)
		}
	}
	return out
}
