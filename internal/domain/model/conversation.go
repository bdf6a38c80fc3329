package model

import (
	"time"

	"github.com/google/uuid"
)

// Direction of a stored WhatsApp message.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Conversation is the persisted thread between one account and one external contact.
type Conversation struct {
	ID                 string
	AccountID          int64
	ContactIdentifier  string
	ContactName        string
	ContactPhone       string
	IsGroup            bool
	LastMessageAt      time.Time
	LastMessagePreview string
	UnreadCount        int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func NewConversation(accountID int64, contact, name, phone string, isGroup bool) *Conversation {
	now := time.Now()
	if name == "" {
		name = phone
	}
	return &Conversation{
		ID:                uuid.NewString(),
		AccountID:         accountID,
		ContactIdentifier: contact,
		ContactName:       name,
		ContactPhone:      phone,
		IsGroup:           isGroup,
		LastMessageAt:     now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// StoredMessage is one persisted message of a conversation.
type StoredMessage struct {
	ID                string
	ConversationID    string
	ProviderMessageID string
	Direction         Direction
	Type              string
	Content           string
	IsAIGenerated     bool
	ReplyToMessageID  *string
	AIModel           string
	TokensUsed        int
	Encrypted         bool
	SentAt            time.Time
	CreatedAt         time.Time
}

// OutboundProviderID derives the idempotency key of the AI reply to an inbound message.
func OutboundProviderID(inboundID string) string {
	return "ai:" + inboundID
}

// Preview returns a bounded single-line preview of a message body.
func Preview(body string, max int) string {
	r := []rune(body)
	if max <= 0 || len(r) <= max {
		return body
	}
	return string(r[:max]) + "…"
}
