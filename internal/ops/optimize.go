package ops

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/promptforge/promptforge/internal/config"
	"github.com/promptforge/promptforge/internal/db"
	"github.com/promptforge/promptforge/internal/errors"
	"github.com/promptforge/promptforge/internal/llm"
	"github.com/promptforge/promptforge/internal/prompt"
)

// optimizeSystemPrompt instructs the model to act as an optimization specialist.
const optimizeSystemPrompt = `You are an expert prompt optimization specialist. Analyze prompts
and suggest improvements for clarity, specificity, effectiveness, and token efficiency.
Consider factors like:
- Instruction clarity and specificity
- Appropriate context provision
- Output format definition
- Constraint specification
- Token efficiency
- Model-specific optimizations`

// OptimizeInput contains parameters for the Optimize operation.
type OptimizeInput struct {
	// Body is the template text to optimize. May be omitted when TemplateID
	// is set, in which case the stored body is used.
	Body string

	// Purpose describes what the template should accomplish. Required.
	Purpose string

	// TemplateID links the pass to a stored template. When set and the pass
	// improves the body, an optimization record is persisted. The template
	// row itself is never mutated.
	TemplateID string
}

// OptimizeOutput contains the result of the Optimize operation.
// A failed model call or unparseable reply degrades to Improved=false with
// Error carrying the detail, so the caller keeps the original body.
type OptimizeOutput struct {
	Improved           bool     `json:"improved"`
	OptimizedBody      string   `json:"optimized_body,omitempty"`
	Improvements       []string `json:"improvements,omitempty"`
	EffectivenessScore float64  `json:"effectiveness_score,omitempty"`
	Reasoning          string   `json:"reasoning,omitempty"`
	Error              string   `json:"error,omitempty"`
}

// optimizeReply is the structured shape the model reply must parse as.
type optimizeReply struct {
	Improved           bool     `json:"improved"`
	OptimizedPrompt    string   `json:"optimized_prompt"`
	Improvements       []string `json:"improvements"`
	EffectivenessScore float64  `json:"effectiveness_score"`
	Reasoning          string   `json:"reasoning"`
}

// Optimize asks the model to critique and rewrite a template body. It is a
// pure recommendation: callers that want the rewrite persisted must write the
// returned body explicitly via Put.
func Optimize(ctx context.Context, database *sql.DB, cfg *config.Config, inv llm.Invoker, input OptimizeInput) (*OptimizeOutput, error) {
	body := input.Body
	if body == "" && input.TemplateID != "" {
		t, err := Get(database, GetInput{ID: input.TemplateID})
		if err != nil {
			return nil, err
		}
		body = t.Body
	}
	if strings.TrimSpace(body) == "" {
		return nil, errors.NewInvalidRequest("body is required")
	}
	purpose := strings.TrimSpace(input.Purpose)
	if purpose == "" {
		return nil, errors.NewInvalidRequest("purpose is required")
	}

	reply, err := inv.Invoke(ctx, llm.Request{
		System:      optimizeSystemPrompt,
		User:        buildOptimizeRequest(body, purpose),
		Temperature: 0.5,
		MaxTokens:   1500,
	})
	if err != nil {
		return &OptimizeOutput{
			Improved: false,
			Error:    fmt.Sprintf("provider %s: %v", inv.Name(), err),
		}, nil
	}

	parsed, err := parseOptimizeReply(reply)
	if err != nil {
		return &OptimizeOutput{Improved: false, Error: err.Error()}, nil
	}

	out := &OptimizeOutput{
		Improved:           parsed.Improved,
		OptimizedBody:      parsed.OptimizedPrompt,
		Improvements:       parsed.Improvements,
		EffectivenessScore: parsed.EffectivenessScore,
		Reasoning:          parsed.Reasoning,
	}

	if out.Improved && input.TemplateID != "" {
		if err := recordOptimization(database, input.TemplateID, body, out); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// buildOptimizeRequest formats the user content for the optimization call.
func buildOptimizeRequest(body, purpose string) string {
	return fmt.Sprintf(`Analyze and optimize this prompt:

ORIGINAL PROMPT:
%s

PURPOSE:
%s

Provide optimization suggestions and an improved version. Return JSON:
{
    "improved": true/false,
    "optimized_prompt": "improved version",
    "improvements": ["list of specific improvements made"],
    "effectiveness_score": 0-100,
    "reasoning": "why these changes improve the prompt"
}`, body, purpose)
}

// parseOptimizeReply parses the model reply as the required structured
// object. The improved flag must be present; an improved reply must carry a
// non-empty rewrite and a score within [0,100].
func parseOptimizeReply(reply string) (*optimizeReply, error) {
	payload := unfence(reply)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("reply is not a JSON object: %w", err)
	}
	if _, ok := raw["improved"]; !ok {
		return nil, fmt.Errorf("reply missing required field %q", "improved")
	}

	var parsed optimizeReply
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, fmt.Errorf("reply field has wrong type: %w", err)
	}

	if parsed.Improved {
		if strings.TrimSpace(parsed.OptimizedPrompt) == "" {
			return nil, fmt.Errorf("reply field %q is empty", "optimized_prompt")
		}
		if parsed.EffectivenessScore < 0 || parsed.EffectivenessScore > 100 {
			return nil, fmt.Errorf("effectiveness_score %.1f outside [0,100]", parsed.EffectivenessScore)
		}
	}

	return &parsed, nil
}

// recordOptimization persists an optimization record linked to a template.
func recordOptimization(database *sql.DB, templateID, originalBody string, out *OptimizeOutput) error {
	id, err := generateULID()
	if err != nil {
		return errors.NewInternal(err)
	}
	return db.InsertOptimization(database, &prompt.OptimizationRecord{
		ID:                 id,
		TemplateID:         templateID,
		OriginalBody:       originalBody,
		OptimizedBody:      out.OptimizedBody,
		Improvements:       out.Improvements,
		EffectivenessScore: out.EffectivenessScore,
		Reasoning:          out.Reasoning,
		CreatedAt:          time.Now().Unix(),
	})
}
