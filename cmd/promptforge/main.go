package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/promptforge/promptforge/internal/config"
	"github.com/promptforge/promptforge/internal/db"
	"github.com/promptforge/promptforge/internal/llm"
	"github.com/promptforge/promptforge/internal/mcp"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"generate": true, "optimize": true, "test": true,
	"put": true, "get": true, "list": true, "learn": true,
	"seed": true, "export": true, "stats": true,
	"serve": true, "shell": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	// Known subcommand → CLI
	if cliCommands[arg] {
		return true
	}
	// --help or --version → CLI
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false // Default → MCP server
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   ___                      _   ___
  | _ \_ _ ___ _ __  _ __| |_| __|__ _ _ __ _ ___
  |  _/ '_/ _ \ '  \| '_ \  _| _/ _ \ '_/ _' / -_)
  |_| |_| \___/_|_|_| .__/\__|_|\___/_| \__, \___|
                    |_|                 |___/

  Prompt template library and multi-model test bench

  Usage: promptforge <command> [options]
         promptforge --help

  MCP server mode requires piped input.`)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil, nil, nil, "")
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}

	baseDir := filepath.Join(homeDir, ".promptforge")

	database, err := db.Init(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	cfg, err := config.Load(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	db.ConfigurePool(database, cfg)

	factory := llm.NewFactory(cfg)

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(database, cfg, factory, baseDir)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'promptforge --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default)
	if err := mcp.Run(database, cfg, factory, baseDir, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
