package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/promptforge/promptforge/internal/config"
	"github.com/promptforge/promptforge/internal/errors"
	"github.com/promptforge/promptforge/internal/llm"
	"github.com/promptforge/promptforge/internal/ops"
	"github.com/promptforge/promptforge/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config, factory llm.Factory, baseDir string) *cli.App {
	app := &cli.App{
		Name:    "promptforge",
		Usage:   "Prompt template library and multi-model test bench",
		Version: Version,
		Commands: []*cli.Command{
			generateCmd(db, cfg, factory),
			optimizeCmd(db, cfg, factory),
			testCmd(db, cfg, factory),
			putCmd(db, cfg),
			getCmd(db),
			listCmd(db),
			learnCmd(db),
			seedCmd(db, cfg),
			exportCmd(db, baseDir),
			statsCmd(db),
			serveCmd(db, cfg, factory, baseDir),
			shellCmd(db, cfg, factory, baseDir),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// generator resolves the configured generator provider.
func generator(cfg *config.Config, factory llm.Factory) (llm.Invoker, error) {
	inv, err := factory.Provider(cfg.GeneratorProvider)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}
	return inv, nil
}

// generateCmd creates the generate command.
func generateCmd(db *sql.DB, cfg *config.Config, factory llm.Factory) *cli.Command {
	return &cli.Command{
		Name:      "generate",
		Usage:     "Generate a prompt template for a purpose and save it to the library",
		ArgsUsage: "<purpose>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "Library category"},
			&cli.StringFlag{Name: "context", Usage: "Additional requirements as a JSON object"},
			&cli.BoolFlag{Name: "optimize", Aliases: []string{"o"}, Usage: "Run an optimization pass before saving"},
		},
		Action: func(c *cli.Context) error {
			purpose := strings.Join(c.Args().Slice(), " ")
			if purpose == "" {
				return outputError(errors.NewInvalidRequest("purpose is required"))
			}

			input := ops.GenerateInput{
				Purpose:      purpose,
				Category:     c.String("category"),
				AutoOptimize: c.Bool("optimize"),
			}

			if raw := c.String("context"); raw != "" {
				if err := json.Unmarshal([]byte(raw), &input.Context); err != nil {
					return outputError(errors.NewInvalidRequest("context must be a JSON object: " + err.Error()))
				}
			}

			inv, err := generator(cfg, factory)
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Generate(c.Context, db, cfg, inv, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// optimizeCmd creates the optimize command.
func optimizeCmd(db *sql.DB, cfg *config.Config, factory llm.Factory) *cli.Command {
	return &cli.Command{
		Name:  "optimize",
		Usage: "Improve a prompt for a purpose (reads the prompt from stdin unless --id is given)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "purpose", Aliases: []string{"p"}, Required: true, Usage: "What the prompt should accomplish"},
			&cli.StringFlag{Name: "id", Usage: "Optimize a stored template by ID"},
		},
		Action: func(c *cli.Context) error {
			input := ops.OptimizeInput{
				Purpose:    c.String("purpose"),
				TemplateID: c.String("id"),
			}

			if input.TemplateID == "" {
				if !stdinHasData() {
					return outputError(errors.NewInvalidRequest("prompt body must be piped via stdin, or pass --id"))
				}
				body, err := readStdin()
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				input.Body = body
			}

			inv, err := generator(cfg, factory)
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Optimize(c.Context, db, cfg, inv, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// testCmd creates the test command.
func testCmd(db *sql.DB, cfg *config.Config, factory llm.Factory) *cli.Command {
	return &cli.Command{
		Name:      "test",
		Usage:     "Run a prompt against multiple providers and compare the results",
		ArgsUsage: "[template-id]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "data", Aliases: []string{"d"}, Usage: "Placeholder values as a JSON object"},
			&cli.StringFlag{Name: "providers", Usage: "Comma-separated provider names"},
		},
		Action: func(c *cli.Context) error {
			input := ops.TestInput{}

			if c.NArg() > 0 {
				input.TemplateID = c.Args().First()
			} else {
				if !stdinHasData() {
					return outputError(errors.NewInvalidRequest("pass a template ID or pipe a prompt via stdin"))
				}
				body, err := readStdin()
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				input.Body = body
			}

			if raw := c.String("data"); raw != "" {
				if err := json.Unmarshal([]byte(raw), &input.Data); err != nil {
					return outputError(errors.NewInvalidRequest("data must be a JSON object: " + err.Error()))
				}
			}
			if providers := c.String("providers"); providers != "" {
				input.Providers = splitList(providers)
			}

			output, err := ops.TestRun(c.Context, db, cfg, factory, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// putCmd creates the put command.
func putCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "put",
		Usage: "Save a template to the library (reads the body from stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Required: true, Usage: "Unique template name"},
			&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "Library category"},
			&cli.StringFlag{Name: "description", Usage: "What the template is for"},
			&cli.StringFlag{Name: "variables", Usage: "Comma-separated variable names"},
		},
		Action: func(c *cli.Context) error {
			if !stdinHasData() {
				return outputError(errors.NewInvalidRequest("template body must be piped via stdin"))
			}

			body, err := readStdin()
			if err != nil {
				return outputError(errors.NewInternal(err))
			}

			input := ops.PutInput{
				Name:        c.String("name"),
				Category:    c.String("category"),
				Body:        body,
				Description: c.String("description"),
			}
			if vars := c.String("variables"); vars != "" {
				input.Variables = splitList(vars)
			}

			output, err := ops.Put(db, cfg, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// getCmd creates the get command.
func getCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Fetch a template by ID or name",
		ArgsUsage: "[id]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Template name"},
		},
		Action: func(c *cli.Context) error {
			input := ops.GetInput{}

			if c.NArg() > 0 {
				input.ID = c.Args().First()
			} else {
				input.Name = c.String("name")
			}

			output, err := ops.Get(db, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// listCmd creates the list command.
func listCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List templates, best-rated first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "Filter by category"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.List(db, ops.ListInput{
				Category: c.String("category"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// learnCmd creates the learn command.
func learnCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "learn",
		Usage:     "Record a usage outcome for a template",
		ArgsUsage: "<template-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "failed", Usage: "Record the usage as unsuccessful"},
			&cli.Float64Flag{Name: "quality", Aliases: []string{"q"}, Usage: "Quality score in [0, 1]"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("template ID is required"))
			}

			input := ops.LearnInput{
				TemplateID: c.Args().First(),
				Success:    !c.Bool("failed"),
			}
			if c.IsSet("quality") {
				quality := c.Float64("quality")
				input.QualityScore = &quality
			}

			output, err := ops.Learn(db, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// seedCmd creates the seed command.
func seedCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Populate the library with starter templates",
		Action: func(c *cli.Context) error {
			output, err := ops.Seed(db, cfg)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(db *sql.DB, baseDir string) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export the template library to a JSON file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: ~/.promptforge/exports/prompt_library_<timestamp>.json)"},
			&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "Filter by category"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(db, ops.ExportInput{
				BaseDir:  baseDir,
				Path:     c.String("path"),
				Category: c.String("category"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// statsCmd creates the stats command.
func statsCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Summarize the template library",
		Action: func(c *cli.Context) error {
			output, err := ops.Stats(db)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(db *sql.DB, cfg *config.Config, factory llm.Factory, baseDir string) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web dashboard",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Value: 8787, Usage: "Listen port"},
		},
		Action: func(c *cli.Context) error {
			srv := web.NewServer(db, cfg, factory, baseDir, Version, c.String("bind"), c.Int("port"))
			return web.Run(srv)
		},
	}
}

// shellCmd creates the shell command.
func shellCmd(db *sql.DB, cfg *config.Config, factory llm.Factory, baseDir string) *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "Interactive prompt library shell",
		Action: func(c *cli.Context) error {
			return runShell(c.Context, db, cfg, factory, baseDir)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if fErr, ok := err.(*errors.ForgeError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", fErr.Code, fErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// splitList splits a comma-separated string into a slice.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		item := strings.TrimSpace(p)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
