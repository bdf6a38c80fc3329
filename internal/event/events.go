package event

import "whatsapp-ai-agent/internal/domain/model"

const (
	NameMessageProcessed    = "message.processed"
	NameAIResponseGenerated = "ai_response.generated"
	NameMessageUnanswered   = "message.unanswered"
)

// Event is anything the dispatcher can route by name.
type Event interface {
	Name() string
}

// MessageProcessed fires after the AI answered an inbound message.
type MessageProcessed struct {
	SessionID     string
	AccountID     int64
	FromPhone     string
	WasSuccessful bool
}

func (MessageProcessed) Name() string { return NameMessageProcessed }

// AIResponseGenerated carries everything listeners need to store, bill and log one AI reply.
// Conversation is nil when the contact had no stored conversation yet.
type AIResponseGenerated struct {
	Account          *model.AccountMetadata
	Conversation     *model.Conversation
	Message          model.MessageRequest
	Response         *model.AIResponse
	ProcessingTimeMs int64
}

func (AIResponseGenerated) Name() string { return NameAIResponseGenerated }

// MessageUnanswered fires when an inbound message was skipped or the AI failed,
// so the message can still be stored without a reply.
type MessageUnanswered struct {
	Account *model.AccountMetadata
	Message model.MessageRequest
	Reason  model.SkipReason
}

func (MessageUnanswered) Name() string { return NameMessageUnanswered }
