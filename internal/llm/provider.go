// Package llm provides outbound clients for generative-model providers.
// The rest of the system treats a provider as an opaque capability: invoke
// with system and user text, get text back or fail.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/promptforge/promptforge/internal/config"
)

// Request carries the inputs for a single model invocation.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Invoker is the generative-model capability consumed by the ops layer.
type Invoker interface {
	// Name returns the short provider key used for selection and reporting.
	Name() string

	// Invoke sends one request and returns the reply text. Cancellation and
	// per-call timeouts are the caller's responsibility via ctx.
	Invoke(ctx context.Context, req Request) (string, error)
}

// Factory resolves provider keys to Invokers.
type Factory interface {
	Provider(name string) (Invoker, error)
}

// Provider is an HTTP client for one generative-model vendor.
type Provider struct {
	name    string
	model   string
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// providerDefaults holds built-in endpoint settings per provider key.
var providerDefaults = map[string]struct {
	baseURL   string
	model     string
	apiKeyEnv string
}{
	"anthropic": {"https://api.anthropic.com/v1", "claude-sonnet-4-20250514", "ANTHROPIC_API_KEY"},
	"openai":    {"https://api.openai.com/v1", "gpt-4o", "OPENAI_API_KEY"},
	"deepseek":  {"https://api.deepseek.com/v1", "deepseek-chat", "DEEPSEEK_API_KEY"},
	"groq":      {"https://api.groq.com/openai/v1", "llama-3.3-70b-versatile", "GROQ_API_KEY"},
	"gemini":    {"https://generativelanguage.googleapis.com/v1beta", "gemini-1.5-pro", "GEMINI_API_KEY"},
}

// NewProvider creates a provider client for the given key, applying config
// overrides on top of the built-in defaults.
func NewProvider(name string, cfg *config.Config) (*Provider, error) {
	defaults, ok := providerDefaults[name]
	if !ok {
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}

	p := &Provider{
		name:    name,
		model:   defaults.model,
		baseURL: defaults.baseURL,
	}

	apiKeyEnv := defaults.apiKeyEnv
	if cfg != nil {
		if pc, ok := cfg.Providers[name]; ok {
			if pc.Model != "" {
				p.model = pc.Model
			}
			if pc.BaseURL != "" {
				p.baseURL = pc.BaseURL
			}
			if pc.APIKeyEnv != "" {
				apiKeyEnv = pc.APIKeyEnv
			}
		}
	}
	p.apiKey = os.Getenv(apiKeyEnv)

	timeout := 60 * time.Second
	if cfg != nil && cfg.RequestTimeoutSeconds > 0 {
		timeout = time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	}
	p.client = &http.Client{Timeout: timeout}

	if cfg != nil && cfg.RateLimitPerMinute > 0 {
		p.limiter = rate.NewLimiter(
			rate.Every(time.Minute/time.Duration(cfg.RateLimitPerMinute)),
			cfg.RateLimitPerMinute,
		)
	}

	return p, nil
}

// Name returns the provider key.
func (p *Provider) Name() string {
	return p.name
}

// Invoke sends one request to the provider and returns the reply text.
func (p *Provider) Invoke(ctx context.Context, req Request) (string, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	switch p.name {
	case "openai", "deepseek", "groq":
		return p.invokeOpenAI(ctx, req)
	case "anthropic":
		return p.invokeAnthropic(ctx, req)
	case "gemini":
		return p.invokeGemini(ctx, req)
	default:
		return "", fmt.Errorf("unsupported provider: %s", p.name)
	}
}

// invokeOpenAI handles the OpenAI chat completion API, which deepseek and
// groq also implement.
func (p *Provider) invokeOpenAI(ctx context.Context, req Request) (string, error) {
	reqBody := map[string]any{
		"model": p.model,
		"messages": []map[string]string{
			{"role": "system", "content": req.System},
			{"role": "user", "content": req.User},
		},
		"temperature": req.Temperature,
		"max_tokens":  req.MaxTokens,
	}

	respBody, err := p.post(ctx, p.baseURL+"/chat/completions", reqBody, map[string]string{
		"Authorization": "Bearer " + p.apiKey,
	})
	if err != nil {
		return "", err
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("API error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no response from API")
	}

	return result.Choices[0].Message.Content, nil
}

// invokeAnthropic handles the Anthropic messages API.
func (p *Provider) invokeAnthropic(ctx context.Context, req Request) (string, error) {
	reqBody := map[string]any{
		"model":       p.model,
		"max_tokens":  req.MaxTokens,
		"temperature": req.Temperature,
		"system":      req.System,
		"messages": []map[string]string{
			{"role": "user", "content": req.User},
		},
	}

	respBody, err := p.post(ctx, p.baseURL+"/messages", reqBody, map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": "2023-06-01",
	})
	if err != nil {
		return "", err
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("API error: %s", result.Error.Message)
	}
	if len(result.Content) == 0 {
		return "", fmt.Errorf("no response from API")
	}

	return result.Content[0].Text, nil
}

// invokeGemini handles the Gemini generateContent API.
func (p *Provider) invokeGemini(ctx context.Context, req Request) (string, error) {
	reqBody := map[string]any{
		"system_instruction": map[string]any{
			"parts": []map[string]string{{"text": req.System}},
		},
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": req.User}}},
		},
		"generationConfig": map[string]any{
			"temperature":     req.Temperature,
			"maxOutputTokens": req.MaxTokens,
		},
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", p.baseURL, p.model, p.apiKey)
	respBody, err := p.post(ctx, url, reqBody, nil)
	if err != nil {
		return "", err
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("API error: %s", result.Error.Message)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from API")
	}

	return result.Candidates[0].Content.Parts[0].Text, nil
}

// post sends a JSON POST and returns the response body on HTTP 200.
func (p *Provider) post(ctx context.Context, url string, reqBody any, headers map[string]string) ([]byte, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
