package mcp

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/promptforge/promptforge/internal/config"
	"github.com/promptforge/promptforge/internal/errors"
	"github.com/promptforge/promptforge/internal/llm"
	"github.com/promptforge/promptforge/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db      *sql.DB
	cfg     *config.Config
	factory llm.Factory
	baseDir string
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config, factory llm.Factory, baseDir string) *Handlers {
	return &Handlers{db: db, cfg: cfg, factory: factory, baseDir: baseDir}
}

// generator resolves the configured generator provider.
func (h *Handlers) generator() (llm.Invoker, error) {
	inv, err := h.factory.Provider(h.cfg.GeneratorProvider)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}
	return inv, nil
}

// Request types for each tool

// GenerateRequest represents the arguments for prompt_generate.
type GenerateRequest struct {
	Purpose      string         `json:"purpose"`
	Context      map[string]any `json:"context,omitempty"`
	Category     string         `json:"category,omitempty"`
	AutoOptimize bool           `json:"auto_optimize,omitempty"`
}

// OptimizeRequest represents the arguments for prompt_optimize.
type OptimizeRequest struct {
	Body       string `json:"body,omitempty"`
	Purpose    string `json:"purpose"`
	TemplateID string `json:"template_id,omitempty"`
}

// TestRequest represents the arguments for prompt_test.
type TestRequest struct {
	TemplateID string            `json:"template_id,omitempty"`
	Body       string            `json:"body,omitempty"`
	Data       map[string]string `json:"data,omitempty"`
	Providers  []string          `json:"providers,omitempty"`
}

// PutRequest represents the arguments for prompt_put.
type PutRequest struct {
	Name        string   `json:"name"`
	Body        string   `json:"body"`
	Category    string   `json:"category,omitempty"`
	Description string   `json:"description,omitempty"`
	Variables   []string `json:"variables,omitempty"`
}

// GetRequest represents the arguments for prompt_get.
type GetRequest struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// ListRequest represents the arguments for prompt_list.
type ListRequest struct {
	Category string `json:"category,omitempty"`
}

// LearnRequest represents the arguments for prompt_learn.
type LearnRequest struct {
	TemplateID   string   `json:"template_id"`
	Success      bool     `json:"success"`
	QualityScore *float64 `json:"quality_score,omitempty"`
}

// ExportRequest represents the arguments for prompt_export.
type ExportRequest struct {
	Path     string `json:"path,omitempty"`
	Category string `json:"category,omitempty"`
}

// Handler implementations

// HandleGenerate handles the prompt_generate tool call.
func (h *Handlers) HandleGenerate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GenerateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	inv, err := h.generator()
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Generate(ctx, h.db, h.cfg, inv, ops.GenerateInput{
		Purpose:      input.Purpose,
		Context:      input.Context,
		Category:     input.Category,
		AutoOptimize: input.AutoOptimize,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleOptimize handles the prompt_optimize tool call.
func (h *Handlers) HandleOptimize(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[OptimizeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	inv, err := h.generator()
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Optimize(ctx, h.db, h.cfg, inv, ops.OptimizeInput{
		Body:       input.Body,
		Purpose:    input.Purpose,
		TemplateID: input.TemplateID,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleTest handles the prompt_test tool call.
func (h *Handlers) HandleTest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TestRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.TestRun(ctx, h.db, h.cfg, h.factory, ops.TestInput{
		TemplateID: input.TemplateID,
		Body:       input.Body,
		Data:       input.Data,
		Providers:  input.Providers,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandlePut handles the prompt_put tool call.
func (h *Handlers) HandlePut(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PutRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Put(h.db, h.cfg, ops.PutInput{
		Name:        input.Name,
		Category:    input.Category,
		Body:        input.Body,
		Description: input.Description,
		Variables:   input.Variables,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleGet handles the prompt_get tool call.
func (h *Handlers) HandleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Get(h.db, ops.GetInput{
		ID:   input.ID,
		Name: input.Name,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleList handles the prompt_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.List(h.db, ops.ListInput{Category: input.Category})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleLearn handles the prompt_learn tool call.
func (h *Handlers) HandleLearn(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[LearnRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Learn(h.db, ops.LearnInput{
		TemplateID:   input.TemplateID,
		Success:      input.Success,
		QualityScore: input.QualityScore,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSeed handles the prompt_seed tool call.
func (h *Handlers) HandleSeed(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Seed(h.db, h.cfg)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleExport handles the prompt_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Export(h.db, ops.ExportInput{
		BaseDir:  h.baseDir,
		Path:     input.Path,
		Category: input.Category,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleStats handles the prompt_stats tool call.
func (h *Handlers) HandleStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Stats(h.db)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if fErr, ok := err.(*errors.ForgeError); ok {
		errorObj := map[string]any{
			"code":    fErr.Code,
			"message": fErr.Message,
			"status":  fErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if fErr.Code != errors.ErrInternal && fErr.Details != nil {
			errorObj["details"] = fErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
