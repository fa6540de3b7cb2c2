package ops

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/promptforge/promptforge/internal/config"
	"github.com/promptforge/promptforge/internal/db"
	"github.com/promptforge/promptforge/internal/errors"
	"github.com/promptforge/promptforge/internal/llm"
	"github.com/promptforge/promptforge/internal/prompt"
)

// testSystemPrompt is the generic system role used for every test invocation.
const testSystemPrompt = "You are a helpful AI assistant."

// TestInput contains parameters for the TestRun operation.
type TestInput struct {
	// TemplateID selects a stored template to test. Mutually exclusive with Body.
	TemplateID string

	// Body is raw template text to test without touching the store.
	Body string

	// Data fills {variable} placeholders by literal substitution.
	Data map[string]string

	// Providers lists the provider keys to fan out to.
	// Defaults to the configured test set.
	Providers []string
}

// TestOutput contains the result of one evaluation batch.
type TestOutput struct {
	BatchID    string              `json:"batch_id"`
	PromptUsed string              `json:"prompt_used"`
	Results    []prompt.TestResult `json:"results"`
	Analysis   *Analysis           `json:"analysis"`
}

// Analysis aggregates a batch after all providers have reported.
type Analysis struct {
	SuccessfulModels []string `json:"successful_models"`
	FailedModels     []string `json:"failed_models"`
	FastestModel     string   `json:"fastest_model,omitempty"`
	FastestLatencyMs int64    `json:"fastest_latency_ms,omitempty"`
	AvgLatencyMs     float64  `json:"avg_latency_ms,omitempty"`
	Recommendation   string   `json:"recommendation,omitempty"`

	// Error is set instead of the fields above when no provider succeeded
	Error string `json:"error,omitempty"`
}

// TestRun evaluates one filled template across a set of providers. Providers
// run concurrently and independently; one provider's failure never aborts the
// others. Each call is bounded by the configured request timeout. There is no
// per-provider retry within a batch.
func TestRun(ctx context.Context, database *sql.DB, cfg *config.Config, factory llm.Factory, input TestInput) (*TestOutput, error) {
	body := input.Body
	if input.TemplateID != "" {
		if body != "" {
			return nil, errors.NewInvalidRequest("cannot specify both template_id and body")
		}
		t, err := Get(database, GetInput{ID: input.TemplateID})
		if err != nil {
			return nil, err
		}
		body = t.Body
	}
	if strings.TrimSpace(body) == "" {
		return nil, errors.NewInvalidRequest("body or template_id is required")
	}

	providers := input.Providers
	if len(providers) == 0 {
		providers = cfg.TestProviders
	}
	if len(providers) == 0 {
		return nil, errors.NewInvalidRequest("provider list is empty")
	}

	batchID, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	filled := prompt.Fill(body, input.Data)
	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second

	// Fan out. Results land at their provider's input position so the batch
	// report and tie-breaking follow the caller's provider order.
	results := make([]prompt.TestResult, len(providers))
	var wg sync.WaitGroup
	for i, name := range providers {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			results[i] = runProvider(ctx, factory, name, filled, cfg, timeout)
		}(i, name)
	}
	wg.Wait()

	now := time.Now().Unix()
	for i := range results {
		id, err := generateULID()
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		results[i].ID = id
		results[i].BatchID = batchID
		results[i].TestedAt = now
	}

	out := &TestOutput{
		BatchID:    batchID,
		PromptUsed: filled,
		Results:    results,
		Analysis:   analyze(results),
	}

	// Results are recorded only when the batch tested a stored template.
	if input.TemplateID != "" {
		for i := range results {
			if err := db.InsertTestResult(database, input.TemplateID, &results[i]); err != nil {
				return nil, err
			}
		}
	}

	return out, nil
}

// runProvider executes one provider attempt and never panics or aborts the
// batch: any failure becomes a failed result.
func runProvider(ctx context.Context, factory llm.Factory, name, filled string, cfg *config.Config, timeout time.Duration) prompt.TestResult {
	inv, err := factory.Provider(name)
	if err != nil {
		return prompt.TestResult{Provider: name, Success: false, Error: err.Error()}
	}

	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	response, err := inv.Invoke(callCtx, llm.Request{
		System:      testSystemPrompt,
		User:        filled,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return prompt.TestResult{Provider: name, Success: false, Error: err.Error()}
	}

	return prompt.TestResult{
		Provider:     name,
		Response:     response,
		LatencyMs:    latency,
		TokensApprox: prompt.ApproxTokens(response),
		Success:      true,
	}
}

// analyze aggregates per-provider results after all have reported.
func analyze(results []prompt.TestResult) *Analysis {
	a := &Analysis{
		SuccessfulModels: []string{},
		FailedModels:     []string{},
	}

	for _, r := range results {
		if r.Success {
			a.SuccessfulModels = append(a.SuccessfulModels, r.Provider)
		} else {
			a.FailedModels = append(a.FailedModels, r.Provider)
		}
	}

	if len(a.SuccessfulModels) == 0 {
		a.Error = "all providers failed"
		return a
	}

	var totalLatency int64
	fastestIdx := -1
	for i, r := range results {
		if !r.Success {
			continue
		}
		totalLatency += r.LatencyMs
		// Strict less-than: the first minimum in input order wins ties.
		if fastestIdx == -1 || r.LatencyMs < results[fastestIdx].LatencyMs {
			fastestIdx = i
		}
	}

	a.FastestModel = results[fastestIdx].Provider
	a.FastestLatencyMs = results[fastestIdx].LatencyMs
	a.AvgLatencyMs = float64(totalLatency) / float64(len(a.SuccessfulModels))
	a.Recommendation = recommend(results)

	return a
}

// recommend scores successful providers on speed and response size:
// 0.3 * (1000 / latency_ms) + 0.7 * min(response_chars / 1000, 1.0).
// Response length is a heuristic proxy for quality, not a correctness
// judgment. Ties go to the earlier provider in input order.
func recommend(results []prompt.TestResult) string {
	bestIdx := -1
	bestScore := 0.0
	for i, r := range results {
		if !r.Success {
			continue
		}
		score := providerScore(r)
		if bestIdx == -1 || score > bestScore {
			bestIdx = i
			bestScore = score
		}
	}
	if bestIdx == -1 {
		return ""
	}
	return fmt.Sprintf("%s (balanced speed and quality)", results[bestIdx].Provider)
}

// providerScore computes the speed/size score for one successful result.
// Sub-millisecond latencies count as 1ms so the speed term stays finite.
func providerScore(r prompt.TestResult) float64 {
	latency := r.LatencyMs
	if latency < 1 {
		latency = 1
	}
	quality := float64(len(r.Response)) / 1000.0
	if quality > 1.0 {
		quality = 1.0
	}
	return 0.3*(1000.0/float64(latency)) + 0.7*quality
}
