package ops

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/promptforge/promptforge/internal/config"
	"github.com/promptforge/promptforge/internal/errors"
	"github.com/promptforge/promptforge/internal/llm"
)

const validGenerateReply = `{
	"prompt_template": "Analyze {data} for {goal}",
	"variables": ["data", "goal"],
	"description": "data analysis prompt",
	"best_practices": ["be specific"],
	"example_usage": "Analyze sales figures for growth trends"
}`

func TestGenerate_HappyPath(t *testing.T) {
	database := newTestDB(t)
	cfg := config.DefaultConfig()
	inv := &fakeInvoker{name: "anthropic", reply: validGenerateReply}

	output, err := Generate(context.Background(), database, cfg, inv, GenerateInput{
		Purpose:  "analyze data",
		Category: "analysis",
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if output.Body != "Analyze {data} for {goal}" {
		t.Errorf("Body = %q", output.Body)
	}
	if output.Name != "analysis_analyze_data" {
		t.Errorf("Name = %q, want analysis_analyze_data", output.Name)
	}
	if output.Version != 1 {
		t.Errorf("Version = %d, want 1", output.Version)
	}
	if len(output.Variables) != 2 {
		t.Errorf("Variables = %v", output.Variables)
	}

	// The template must be retrievable from the store
	stored, err := Get(database, GetInput{ID: output.ID})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.Body != output.Body {
		t.Errorf("stored Body = %q", stored.Body)
	}
}

func TestGenerate_FencedReply(t *testing.T) {
	database := newTestDB(t)
	inv := &fakeInvoker{name: "anthropic", reply: "```json\n" + validGenerateReply + "\n```"}

	output, err := Generate(context.Background(), database, config.DefaultConfig(), inv, GenerateInput{
		Purpose: "analyze data",
	})
	if err != nil {
		t.Fatalf("Generate should strip code fences: %v", err)
	}
	if output.Body == "" {
		t.Error("Body should be populated")
	}
}

func TestGenerate_EmptyPurpose(t *testing.T) {
	database := newTestDB(t)
	inv := &fakeInvoker{name: "anthropic", reply: validGenerateReply}

	_, err := Generate(context.Background(), database, config.DefaultConfig(), inv, GenerateInput{
		Purpose: "   ",
	})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("empty purpose should be rejected before any call, got: %v", err)
	}
	if len(inv.calls) != 0 {
		t.Error("validation must happen before the provider call")
	}
}

func TestGenerate_ProviderFailure(t *testing.T) {
	database := newTestDB(t)
	inv := &fakeInvoker{name: "anthropic", err: fmt.Errorf("connection refused")}

	_, err := Generate(context.Background(), database, config.DefaultConfig(), inv, GenerateInput{
		Purpose: "analyze data",
	})
	if !errors.Is(err, errors.ErrProvider) {
		t.Errorf("provider failure should map to PROVIDER_ERROR, got: %v", err)
	}

	// Zero store writes on failure
	list, err := List(database, ListInput{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if list.Count != 0 {
		t.Errorf("store should be untouched, found %d rows", list.Count)
	}
}

func TestGenerate_UnparseableReply(t *testing.T) {
	database := newTestDB(t)
	inv := &fakeInvoker{name: "anthropic", reply: "I think a good prompt would be..."}

	_, err := Generate(context.Background(), database, config.DefaultConfig(), inv, GenerateInput{
		Purpose: "analyze data",
	})
	if !errors.Is(err, errors.ErrGeneration) {
		t.Errorf("prose reply should map to GENERATION_ERROR, got: %v", err)
	}
}

func TestGenerate_MissingRequiredField(t *testing.T) {
	database := newTestDB(t)
	inv := &fakeInvoker{name: "anthropic", reply: `{"variables": [], "description": "d"}`}

	_, err := Generate(context.Background(), database, config.DefaultConfig(), inv, GenerateInput{
		Purpose: "analyze data",
	})
	if !errors.Is(err, errors.ErrGeneration) {
		t.Fatalf("missing prompt_template should fail, got: %v", err)
	}
	if !strings.Contains(err.Error(), "prompt_template") {
		t.Errorf("error should name the missing field: %v", err)
	}
}

func TestGenerate_EmptyTemplateRejected(t *testing.T) {
	database := newTestDB(t)
	inv := &fakeInvoker{name: "anthropic", reply: `{"prompt_template": "  ", "variables": [], "description": "d"}`}

	_, err := Generate(context.Background(), database, config.DefaultConfig(), inv, GenerateInput{
		Purpose: "analyze data",
	})
	if !errors.Is(err, errors.ErrGeneration) {
		t.Errorf("blank prompt_template should fail, got: %v", err)
	}
}

func TestGenerate_ContextInRequest(t *testing.T) {
	database := newTestDB(t)
	inv := &fakeInvoker{name: "anthropic", reply: validGenerateReply}

	_, err := Generate(context.Background(), database, config.DefaultConfig(), inv, GenerateInput{
		Purpose: "analyze data",
		Context: map[string]any{"audience": "executives"},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(inv.calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(inv.calls))
	}
	if !strings.Contains(inv.calls[0].User, "executives") {
		t.Error("context should be embedded in the request")
	}
	if !strings.Contains(inv.calls[0].User, "analyze data") {
		t.Error("purpose should be embedded in the request")
	}
}

func TestGenerate_SamePurposeUpdatesInPlace(t *testing.T) {
	database := newTestDB(t)
	cfg := config.DefaultConfig()
	inv := &fakeInvoker{name: "anthropic", reply: validGenerateReply}

	first, err := Generate(context.Background(), database, cfg, inv, GenerateInput{Purpose: "analyze data"})
	if err != nil {
		t.Fatalf("first Generate failed: %v", err)
	}
	second, err := Generate(context.Background(), database, cfg, inv, GenerateInput{Purpose: "analyze data"})
	if err != nil {
		t.Fatalf("second Generate failed: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("same purpose should hit the same row: %q vs %q", second.ID, first.ID)
	}
	if second.Version != 2 {
		t.Errorf("Version = %d, want 2", second.Version)
	}
}

func TestGenerate_AutoOptimizeApplied(t *testing.T) {
	database := newTestDB(t)
	cfg := config.DefaultConfig()

	// The invoker answers the generation call first, then the optimization call.
	inv := &scriptedInvoker{name: "anthropic", replies: []string{
		validGenerateReply,
		`{"improved": true, "optimized_prompt": "Better {data} for {goal}",
		  "improvements": ["tightened wording"], "effectiveness_score": 85,
		  "reasoning": "clearer ask"}`,
	}}

	output, err := Generate(context.Background(), database, cfg, inv, GenerateInput{
		Purpose:      "analyze data",
		AutoOptimize: true,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if output.Body != "Better {data} for {goal}" {
		t.Errorf("Body = %q, want the optimized rewrite", output.Body)
	}
	if len(output.OptimizationNotes) != 1 {
		t.Errorf("OptimizationNotes = %v", output.OptimizationNotes)
	}

	stored, err := Get(database, GetInput{ID: output.ID})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.Body != "Better {data} for {goal}" {
		t.Errorf("stored Body = %q, want the optimized rewrite", stored.Body)
	}
}

func TestGenerate_AutoOptimizeFailureKeepsOriginal(t *testing.T) {
	database := newTestDB(t)

	inv := &scriptedInvoker{name: "anthropic", replies: []string{
		validGenerateReply,
		"not json at all",
	}}

	output, err := Generate(context.Background(), database, config.DefaultConfig(), inv, GenerateInput{
		Purpose:      "analyze data",
		AutoOptimize: true,
	})
	if err != nil {
		t.Fatalf("a failed optimization pass must not fail generation: %v", err)
	}
	if output.Body != "Analyze {data} for {goal}" {
		t.Errorf("Body = %q, want the original", output.Body)
	}
	if output.OptimizationNotes != nil {
		t.Errorf("OptimizationNotes = %v, want none", output.OptimizationNotes)
	}
}

// scriptedInvoker returns a different canned reply per call.
type scriptedInvoker struct {
	name    string
	replies []string
	call    int
}

func (s *scriptedInvoker) Name() string { return s.name }

func (s *scriptedInvoker) Invoke(ctx context.Context, _ llm.Request) (string, error) {
	if s.call >= len(s.replies) {
		return "", fmt.Errorf("no scripted reply for call %d", s.call)
	}
	reply := s.replies[s.call]
	s.call++
	return reply, nil
}
