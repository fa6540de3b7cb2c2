package main

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/promptforge/promptforge/internal/config"
	"github.com/promptforge/promptforge/internal/llm"
	"github.com/promptforge/promptforge/internal/ops"
)

const shellHelp = `Commands:
  generate <purpose>            Generate and save a template for a purpose
  optimize <id> <purpose>       Improve a stored template for a purpose
  test <id>                     Run a template against the configured providers
  list [category]               List templates, best-rated first
  get <id>                      Show a template
  learn <id> ok|fail [score]    Record a usage outcome (score in [0, 1])
  seed                          Populate the library with starter templates
  export [path]                 Export the library to a JSON file
  stats                         Summarize the library
  help                          Show this help
  exit                          Leave the shell`

// runShell runs the interactive prompt library shell on stdin/stdout.
func runShell(ctx context.Context, db *sql.DB, cfg *config.Config, factory llm.Factory, baseDir string) error {
	fmt.Println("PromptForge shell. Type 'help' for commands, 'exit' to leave.")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("forge> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "exit", "quit":
			return nil
		case "help":
			fmt.Println(shellHelp)
		case "generate":
			shellGenerate(ctx, db, cfg, factory, strings.Join(args, " "))
		case "optimize":
			shellOptimize(ctx, db, cfg, factory, args)
		case "test":
			shellTest(ctx, db, cfg, factory, args)
		case "list":
			shellList(db, args)
		case "get":
			shellGet(db, args)
		case "learn":
			shellLearn(db, args)
		case "seed":
			shellOutput(ops.Seed(db, cfg))
		case "export":
			shellExport(db, baseDir, args)
		case "stats":
			shellOutput(ops.Stats(db))
		default:
			fmt.Printf("unknown command %q; type 'help' for commands\n", cmd)
		}
	}
}

func shellGenerate(ctx context.Context, db *sql.DB, cfg *config.Config, factory llm.Factory, purpose string) {
	if purpose == "" {
		fmt.Println("usage: generate <purpose>")
		return
	}

	inv, err := generator(cfg, factory)
	if err != nil {
		shellError(err)
		return
	}

	shellOutput(ops.Generate(ctx, db, cfg, inv, ops.GenerateInput{Purpose: purpose}))
}

func shellOptimize(ctx context.Context, db *sql.DB, cfg *config.Config, factory llm.Factory, args []string) {
	if len(args) < 2 {
		fmt.Println("usage: optimize <id> <purpose>")
		return
	}

	inv, err := generator(cfg, factory)
	if err != nil {
		shellError(err)
		return
	}

	shellOutput(ops.Optimize(ctx, db, cfg, inv, ops.OptimizeInput{
		TemplateID: args[0],
		Purpose:    strings.Join(args[1:], " "),
	}))
}

func shellTest(ctx context.Context, db *sql.DB, cfg *config.Config, factory llm.Factory, args []string) {
	if len(args) == 0 {
		fmt.Println("usage: test <id>")
		return
	}

	shellOutput(ops.TestRun(ctx, db, cfg, factory, ops.TestInput{TemplateID: args[0]}))
}

func shellList(db *sql.DB, args []string) {
	input := ops.ListInput{}
	if len(args) > 0 {
		input.Category = args[0]
	}
	shellOutput(ops.List(db, input))
}

func shellGet(db *sql.DB, args []string) {
	if len(args) == 0 {
		fmt.Println("usage: get <id>")
		return
	}
	shellOutput(ops.Get(db, ops.GetInput{ID: args[0]}))
}

func shellLearn(db *sql.DB, args []string) {
	if len(args) < 2 || (args[1] != "ok" && args[1] != "fail") {
		fmt.Println("usage: learn <id> ok|fail [score]")
		return
	}

	input := ops.LearnInput{
		TemplateID: args[0],
		Success:    args[1] == "ok",
	}
	if len(args) > 2 {
		score, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			fmt.Println("score must be a number in [0, 1]")
			return
		}
		input.QualityScore = &score
	}

	shellOutput(ops.Learn(db, input))
}

func shellExport(db *sql.DB, baseDir string, args []string) {
	input := ops.ExportInput{BaseDir: baseDir}
	if len(args) > 0 {
		input.Path = args[0]
	}
	shellOutput(ops.Export(db, input))
}

// shellOutput prints an op result as indented JSON, or the error.
func shellOutput[T any](result T, err error) {
	if err != nil {
		shellError(err)
		return
	}
	_ = outputJSON(result)
}

func shellError(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
}
