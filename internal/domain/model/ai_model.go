package model

import "time"

// AIModel is a configured AI backend model an account can be bound to.
type AIModel struct {
	ID              int64         `json:"id"`
	Name            string        `json:"name"`
	Provider        string        `json:"provider"`
	ModelIdentifier string        `json:"model_identifier"`
	Endpoint        string        `json:"endpoint,omitempty"`
	IsActive        bool          `json:"is_active"`
	IsDefault       bool          `json:"is_default"`
	MaxTokens       int           `json:"max_tokens"`
	Temperature     float64       `json:"temperature"`
	Pricing         *ModelPricing `json:"pricing,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// ModelSource names the step of the resolution chain that produced the model.
type ModelSource string

const (
	ModelSourceAccount  ModelSource = "account"
	ModelSourceDefault  ModelSource = "store_default"
	ModelSourceFallback ModelSource = "configured_fallback"
)

// AIResponse is the normalized result of one AI call.
type AIResponse struct {
	Content      string
	TokensUsed   int
	Model        string
	Provider     string
	Confidence   float64
	FinishReason string
	Metadata     AIResponseMetadata
}

type AIResponseMetadata struct {
	Costs            *Costs
	PromptTokens     int
	CompletionTokens int
	LatencyMs        int64
	ModelSource      ModelSource
	ModelID          int64
}
