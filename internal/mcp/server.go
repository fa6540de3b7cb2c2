package mcp

import (
	"context"
	"database/sql"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/promptforge/promptforge/internal/config"
	"github.com/promptforge/promptforge/internal/llm"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"prompt_generate": {
		def:     generateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGenerate },
	},
	"prompt_optimize": {
		def:     optimizeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleOptimize },
	},
	"prompt_test": {
		def:     testToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTest },
	},
	"prompt_put": {
		def:     putToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePut },
	},
	"prompt_get": {
		def:     getToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGet },
	},
	"prompt_list": {
		def:     listToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"prompt_learn": {
		def:     learnToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLearn },
	},
	"prompt_seed": {
		def:     seedToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSeed },
	},
	"prompt_export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"prompt_stats": {
		def:     statsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStats },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with PromptForge tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(db *sql.DB, cfg *config.Config, factory llm.Factory, baseDir, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"promptforge",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, cfg, factory, baseDir)

	disabled := make(map[string]bool, len(cfg.DisabledTools))
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	// Register tools (skip disabled)
	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(db *sql.DB, cfg *config.Config, factory llm.Factory, baseDir, version string) error {
	s := NewServer(db, cfg, factory, baseDir, version)
	return server.ServeStdio(s)
}

// ToolHandlerFunc is the signature for tool handlers.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
