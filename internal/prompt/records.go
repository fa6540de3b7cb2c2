package prompt

// TestResult is one invocation of a filled template against one provider.
// A result belongs to exactly one test batch.
type TestResult struct {
	ID       string `json:"id,omitempty"`
	BatchID  string `json:"batch_id,omitempty"`
	Provider string `json:"provider"`

	// Response is the raw provider reply text (success only)
	Response string `json:"response,omitempty"`

	// LatencyMs is the elapsed wall time for the provider call
	LatencyMs int64 `json:"latency_ms,omitempty"`

	// TokensApprox is a whitespace-word-count proxy for response size,
	// not a tokenizer-accurate count
	TokensApprox int `json:"approximate_token_count,omitempty"`

	Success bool `json:"success"`

	// Error holds the failure detail when Success is false
	Error string `json:"error,omitempty"`

	TestedAt int64 `json:"tested_at,omitempty"`
}

// OptimizationRecord captures one optimization pass over a template body.
type OptimizationRecord struct {
	ID         string `json:"id,omitempty"`
	TemplateID string `json:"template_id,omitempty"`

	OriginalBody  string   `json:"original_body"`
	OptimizedBody string   `json:"optimized_body"`
	Improvements  []string `json:"improvements,omitempty"`

	// EffectivenessScore is the model's own 0-100 judgment, not verified
	EffectivenessScore float64 `json:"effectiveness_score"`

	Reasoning string `json:"reasoning,omitempty"`
	CreatedAt int64  `json:"created_at,omitempty"`
}
