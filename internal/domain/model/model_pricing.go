package model

// ModelPricing holds token prices in micro-USD per 1K tokens.
type ModelPricing struct {
	InputMicrosPer1K  int64 `json:"input_micros_per_1k"`
	OutputMicrosPer1K int64 `json:"output_micros_per_1k"`
}

// Costs is the money spent on one AI response.
type Costs struct {
	PromptCostUSD     float64 `json:"prompt_cost_usd"`
	CompletionCostUSD float64 `json:"completion_cost_usd"`
	TotalCostUSD      float64 `json:"total_cost_usd"`
	TotalCostXAF      float64 `json:"total_cost_xaf"`
}

// TotalMicros returns the total cost in micro-USD, rounded to the nearest unit.
func (c *Costs) TotalMicros() int64 {
	if c == nil {
		return 0
	}
	return int64(c.TotalCostUSD*1e6 + 0.5)
}

// Compute prices a call. usdToXAF converts the USD total; zero leaves TotalCostXAF at 0.
func (p *ModelPricing) Compute(promptTokens, completionTokens int, usdToXAF float64) *Costs {
	if p == nil {
		return nil
	}
	in := float64(promptTokens) * float64(p.InputMicrosPer1K) / 1000 / 1e6
	out := float64(completionTokens) * float64(p.OutputMicrosPer1K) / 1000 / 1e6
	return &Costs{
		PromptCostUSD:     in,
		CompletionCostUSD: out,
		TotalCostUSD:      in + out,
		TotalCostXAF:      (in + out) * usdToXAF,
	}
}
