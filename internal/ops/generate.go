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

// generateSystemPrompt instructs the model to act as a prompt engineer.
const generateSystemPrompt = `You are an expert prompt engineer specializing in creating
highly effective prompts for AI systems. Your prompts are clear, specific, and optimized
for different AI models. You understand prompt engineering best practices including:
- Clear instruction formatting
- Appropriate context inclusion
- Role-based prompting
- Few-shot examples when beneficial
- Output format specification
- Constraint definition

Generate production-ready prompts that achieve optimal results.`

// GenerateInput contains parameters for the Generate operation.
type GenerateInput struct {
	Purpose      string         // required, non-empty
	Context      map[string]any // arbitrary structured context, optional
	Category     string         // default: "general"
	AutoOptimize bool
}

// GenerateOutput contains the result of the Generate operation.
type GenerateOutput struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Version  int    `json:"version"`
	Category string `json:"category"`

	Body        string   `json:"body"`
	Variables   []string `json:"variables"`
	Description string   `json:"description"`

	BestPractices []string `json:"best_practices,omitempty"`
	ExampleUsage  string   `json:"example_usage,omitempty"`

	// OptimizationNotes lists improvements applied by auto-optimize
	OptimizationNotes []string `json:"optimization_notes,omitempty"`
}

// generateReply is the structured shape the model reply must parse as.
type generateReply struct {
	PromptTemplate string   `json:"prompt_template"`
	Variables      []string `json:"variables"`
	Description    string   `json:"description"`
	BestPractices  []string `json:"best_practices"`
	ExampleUsage   string   `json:"example_usage"`
}

// Generate asks the model for a new template matching the stated purpose and
// writes the result to the store. Exactly one store write happens on success,
// zero on failure. There is no retry; the caller decides whether to retry.
func Generate(ctx context.Context, database *sql.DB, cfg *config.Config, inv llm.Invoker, input GenerateInput) (*GenerateOutput, error) {
	purpose := strings.TrimSpace(input.Purpose)
	if purpose == "" {
		return nil, errors.NewInvalidRequest("purpose is required")
	}

	category, err := resolveCategory(input.Category, cfg)
	if err != nil {
		return nil, err
	}

	reply, err := inv.Invoke(ctx, llm.Request{
		System:      generateSystemPrompt,
		User:        buildGenerateRequest(purpose, category, input.Context),
		Temperature: 0.7,
		MaxTokens:   cfg.MaxTokens,
	})
	if err != nil {
		return nil, errors.NewProvider(inv.Name(), err)
	}

	parsed, err := parseGenerateReply(reply)
	if err != nil {
		return nil, errors.NewGeneration(err)
	}

	out := &GenerateOutput{
		Category:      category,
		Body:          parsed.PromptTemplate,
		Variables:     parsed.Variables,
		Description:   parsed.Description,
		BestPractices: parsed.BestPractices,
		ExampleUsage:  parsed.ExampleUsage,
	}

	// Auto-optimize is best-effort: a failed pass keeps the original body.
	var optRecord *prompt.OptimizationRecord
	if input.AutoOptimize {
		opt, err := Optimize(ctx, database, cfg, inv, OptimizeInput{
			Body:    out.Body,
			Purpose: purpose,
		})
		if err != nil {
			return nil, err
		}
		if opt.Improved {
			optRecord = &prompt.OptimizationRecord{
				OriginalBody:       out.Body,
				OptimizedBody:      opt.OptimizedBody,
				Improvements:       opt.Improvements,
				EffectivenessScore: opt.EffectivenessScore,
				Reasoning:          opt.Reasoning,
			}
			out.Body = opt.OptimizedBody
			out.OptimizationNotes = opt.Improvements
		}
	}

	stored, err := Put(database, cfg, PutInput{
		Name:        prompt.DeriveName(category, purpose),
		Category:    category,
		Body:        out.Body,
		Description: out.Description,
		Variables:   out.Variables,
	})
	if err != nil {
		return nil, err
	}

	out.ID = stored.ID
	out.Name = stored.Name
	out.Version = stored.Version

	// Link the applied optimization to the stored template. Secondary
	// bookkeeping: a history write failure does not undo the template write.
	if optRecord != nil {
		optRecord.TemplateID = stored.ID
		if id, err := generateULID(); err == nil {
			optRecord.ID = id
			optRecord.CreatedAt = time.Now().Unix()
			_ = db.InsertOptimization(database, optRecord)
		}
	}

	return out, nil
}

// buildGenerateRequest formats the user content for the generation call.
func buildGenerateRequest(purpose, category string, contextBag map[string]any) string {
	contextStr := "No additional context"
	if len(contextBag) > 0 {
		if data, err := json.MarshalIndent(contextBag, "", "  "); err == nil {
			contextStr = string(data)
		}
	}

	return fmt.Sprintf(`Generate an optimal AI prompt for the following purpose:

PURPOSE: %s

CATEGORY: %s

CONTEXT:
%s

REQUIREMENTS:
1. Create a clear, specific prompt that achieves the stated purpose
2. Include necessary role definition if applicable
3. Specify output format requirements
4. Add relevant constraints or guidelines
5. Include variable placeholders in {variable_name} format for dynamic content
6. Make it production-ready and reusable

Return a JSON object with:
{
    "prompt_template": "the complete prompt with {variables}",
    "variables": ["list", "of", "variables"],
    "description": "what this prompt does",
    "best_practices": ["tips", "for", "using", "this", "prompt"],
    "example_usage": "concrete example with filled variables"
}`, purpose, category, contextStr)
}

// parseGenerateReply parses the model reply as the required structured
// object. Missing or mistyped required fields fail the parse; there is no
// partial/best-effort fallback.
func parseGenerateReply(reply string) (*generateReply, error) {
	payload := unfence(reply)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("reply is not a JSON object: %w", err)
	}

	for _, key := range []string{"prompt_template", "variables", "description"} {
		if _, ok := raw[key]; !ok {
			return nil, fmt.Errorf("reply missing required field %q", key)
		}
	}

	var parsed generateReply
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, fmt.Errorf("reply field has wrong type: %w", err)
	}
	if strings.TrimSpace(parsed.PromptTemplate) == "" {
		return nil, fmt.Errorf("reply field %q is empty", "prompt_template")
	}

	return &parsed, nil
}
