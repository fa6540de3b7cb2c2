package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// Tool definitions

var generateToolDef = mcp.NewTool("prompt_generate",
	mcp.WithDescription("Generate a new prompt template for a given purpose using the configured generator model, and save it to the library. Returns the saved template with placeholders, description, and usage guidance."),
	mcp.WithString("purpose",
		mcp.Required(),
		mcp.Description("What the prompt should accomplish, e.g. 'analyze market sentiment from news headlines'"),
	),
	mcp.WithObject("context",
		mcp.Description("Optional key-value pairs with additional requirements or domain context"),
	),
	mcp.WithString("category",
		mcp.Description("Library category for the template (defaults to 'general')"),
	),
	mcp.WithBoolean("auto_optimize",
		mcp.Description("Run an optimization pass on the generated template before saving"),
	),
)

var optimizeToolDef = mcp.NewTool("prompt_optimize",
	mcp.WithDescription("Improve an existing prompt for a stated purpose. Provide either the prompt body or a template_id to load it from the library. Returns the optimized body, the list of improvements, and an effectiveness score. Never modifies the stored template."),
	mcp.WithString("body",
		mcp.Description("Prompt text to optimize (omit when template_id is given)"),
	),
	mcp.WithString("purpose",
		mcp.Required(),
		mcp.Description("What the prompt is meant to accomplish"),
	),
	mcp.WithString("template_id",
		mcp.Description("ID of a stored template to optimize (omit when body is given)"),
	),
)

var testToolDef = mcp.NewTool("prompt_test",
	mcp.WithDescription("Run a prompt against multiple LLM providers concurrently and compare responses, latency, and approximate token counts. Provide either template_id or body. Returns per-provider results plus a comparative analysis with a recommendation."),
	mcp.WithString("template_id",
		mcp.Description("ID of a stored template to test (mutually exclusive with body)"),
	),
	mcp.WithString("body",
		mcp.Description("Ad-hoc prompt text to test (mutually exclusive with template_id)"),
	),
	mcp.WithObject("data",
		mcp.Description("Values for the template's {placeholder} variables"),
	),
	mcp.WithArray("providers",
		mcp.Description("Provider names to test against (defaults to the configured test providers)"),
	),
)

var putToolDef = mcp.NewTool("prompt_put",
	mcp.WithDescription("Save a prompt template to the library. Saving under an existing name replaces the body and bumps the version; rating and usage history are preserved."),
	mcp.WithString("name",
		mcp.Required(),
		mcp.Description("Unique template name"),
	),
	mcp.WithString("body",
		mcp.Required(),
		mcp.Description("Template text; use {placeholder} for variables"),
	),
	mcp.WithString("category",
		mcp.Description("Library category (defaults to 'general')"),
	),
	mcp.WithString("description",
		mcp.Description("What the template is for"),
	),
	mcp.WithArray("variables",
		mcp.Description("Declared variable names; checked against the placeholders in the body"),
	),
)

var getToolDef = mcp.NewTool("prompt_get",
	mcp.WithDescription("Fetch a single template by ID or by name. Exactly one of id or name must be given."),
	mcp.WithString("id",
		mcp.Description("Template ID"),
	),
	mcp.WithString("name",
		mcp.Description("Template name"),
	),
)

var listToolDef = mcp.NewTool("prompt_list",
	mcp.WithDescription("List templates in the library, best-rated first. Optionally filter by category."),
	mcp.WithString("category",
		mcp.Description("Only return templates in this category"),
	),
)

var learnToolDef = mcp.NewTool("prompt_learn",
	mcp.WithDescription("Record a usage outcome for a template so its rating reflects real-world results. Pass success and optionally a quality_score between 0 and 1."),
	mcp.WithString("template_id",
		mcp.Required(),
		mcp.Description("ID of the template that was used"),
	),
	mcp.WithBoolean("success",
		mcp.Required(),
		mcp.Description("Whether the usage was successful"),
	),
	mcp.WithNumber("quality_score",
		mcp.Description("Optional quality rating in [0, 1]; overrides the success heuristic"),
	),
)

var seedToolDef = mcp.NewTool("prompt_seed",
	mcp.WithDescription("Populate the library with a starter set of templates covering trading, analysis, content creation, and automation. Re-seeding bumps versions of existing starters."),
)

var exportToolDef = mcp.NewTool("prompt_export",
	mcp.WithDescription("Export the template library to a JSON file. Returns the written path and template count."),
	mcp.WithString("path",
		mcp.Description("Destination file path (defaults to a timestamped file under the exports directory)"),
	),
	mcp.WithString("category",
		mcp.Description("Only export templates in this category"),
	),
)

var statsToolDef = mcp.NewTool("prompt_stats",
	mcp.WithDescription("Summarize the template library: totals, per-category counts, average rating, and the most used and top rated templates."),
)
