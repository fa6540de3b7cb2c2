package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/promptforge/promptforge/internal/config"
	"github.com/promptforge/promptforge/internal/db"
	"github.com/promptforge/promptforge/internal/errors"
	"github.com/promptforge/promptforge/internal/llm"
	"github.com/promptforge/promptforge/internal/ops"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

type stubInvoker struct {
	name  string
	reply string
}

func (s *stubInvoker) Name() string { return s.name }

func (s *stubInvoker) Invoke(_ context.Context, _ llm.Request) (string, error) {
	return s.reply, nil
}

type stubFactory struct {
	invokers map[string]llm.Invoker
}

func (s *stubFactory) Provider(name string) (llm.Invoker, error) {
	if inv, ok := s.invokers[name]; ok {
		return inv, nil
	}
	return nil, errors.NewInvalidRequest("unsupported provider: " + name)
}

// runApp runs a CLI command and captures stdout.
func runApp(t *testing.T, database *sql.DB, args ...string) (string, error) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.TestProviders = []string{"anthropic"}
	factory := &stubFactory{invokers: map[string]llm.Invoker{
		"anthropic": &stubInvoker{name: "anthropic", reply: "model answer"},
	}}
	app := newCLIApp(database, cfg, factory, t.TempDir())

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := app.Run(append([]string{"promptforge"}, args...))

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stdout = oldStdout

	return buf.String(), err
}

func seedTemplate(t *testing.T, database *sql.DB, name string) string {
	t.Helper()
	out, err := ops.Put(database, config.DefaultConfig(), ops.PutInput{
		Name:     name,
		Category: "trading",
		Body:     "Analyze {symbol}",
	})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	return out.ID
}

// TestCLIList tests the list command.
func TestCLIList(t *testing.T) {
	database := setupTestDB(t)
	seedTemplate(t, database, "market_scan")

	stdout, err := runApp(t, database, "list", "--category", "trading")
	if err != nil {
		t.Fatalf("list command failed: %v", err)
	}

	var output ops.ListOutput
	if err := json.Unmarshal([]byte(stdout), &output); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, stdout)
	}
	if output.Count != 1 || output.Items[0].Name != "market_scan" {
		t.Errorf("list output = %+v", output)
	}
}

// TestCLIGet tests the get command with both addressing modes.
func TestCLIGet(t *testing.T) {
	database := setupTestDB(t)
	id := seedTemplate(t, database, "market_scan")

	t.Run("by id", func(t *testing.T) {
		stdout, err := runApp(t, database, "get", id)
		if err != nil {
			t.Fatalf("get command failed: %v", err)
		}
		var output struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal([]byte(stdout), &output); err != nil {
			t.Fatalf("failed to parse output: %v\nOutput: %s", err, stdout)
		}
		if output.Name != "market_scan" {
			t.Errorf("name = %q", output.Name)
		}
	})

	t.Run("by name", func(t *testing.T) {
		stdout, err := runApp(t, database, "get", "--name", "market_scan")
		if err != nil {
			t.Fatalf("get command failed: %v", err)
		}
		var output struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal([]byte(stdout), &output); err != nil {
			t.Fatalf("failed to parse output: %v\nOutput: %s", err, stdout)
		}
		if output.ID != id {
			t.Errorf("id = %q, want %q", output.ID, id)
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := runApp(t, database, "get", "--name", "missing")
		if err == nil {
			t.Error("expected error for missing template")
		}
	})
}

// TestCLILearn tests the learn command.
func TestCLILearn(t *testing.T) {
	database := setupTestDB(t)
	id := seedTemplate(t, database, "market_scan")

	stdout, err := runApp(t, database, "learn", "--quality", "0.9", id)
	if err != nil {
		t.Fatalf("learn command failed: %v", err)
	}

	var output ops.LearnOutput
	if err := json.Unmarshal([]byte(stdout), &output); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, stdout)
	}
	if output.Rating != 0.9 || output.UsageCount != 1 {
		t.Errorf("learn output = %+v", output)
	}

	// --failed without a quality score leaves the rating alone
	stdout, err = runApp(t, database, "learn", "--failed", id)
	if err != nil {
		t.Fatalf("learn command failed: %v", err)
	}
	if err := json.Unmarshal([]byte(stdout), &output); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if output.Rating != 0.9 || output.UsageCount != 2 {
		t.Errorf("learn output after failure = %+v", output)
	}
}

// TestCLISeed tests the seed command.
func TestCLISeed(t *testing.T) {
	database := setupTestDB(t)

	stdout, err := runApp(t, database, "seed")
	if err != nil {
		t.Fatalf("seed command failed: %v", err)
	}

	var output ops.SeedOutput
	if err := json.Unmarshal([]byte(stdout), &output); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, stdout)
	}
	if output.Seeded == 0 || len(output.Names) != output.Seeded {
		t.Errorf("seed output = %+v", output)
	}
}

// TestCLIExport tests the export command.
func TestCLIExport(t *testing.T) {
	database := setupTestDB(t)
	seedTemplate(t, database, "market_scan")

	exportPath := filepath.Join(t.TempDir(), "library.json")
	stdout, err := runApp(t, database, "export", "--path", exportPath)
	if err != nil {
		t.Fatalf("export command failed: %v", err)
	}

	var output ops.ExportOutput
	if err := json.Unmarshal([]byte(stdout), &output); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, stdout)
	}
	if output.Count != 1 || output.Path != exportPath {
		t.Errorf("export output = %+v", output)
	}
	if _, err := os.Stat(exportPath); err != nil {
		t.Errorf("export file missing: %v", err)
	}
}

// TestCLIStats tests the stats command.
func TestCLIStats(t *testing.T) {
	database := setupTestDB(t)
	seedTemplate(t, database, "market_scan")

	stdout, err := runApp(t, database, "stats")
	if err != nil {
		t.Fatalf("stats command failed: %v", err)
	}

	var output ops.StatsOutput
	if err := json.Unmarshal([]byte(stdout), &output); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, stdout)
	}
	if output.TotalTemplates != 1 {
		t.Errorf("stats output = %+v", output)
	}
}

// TestCLIGenerate tests the generate command.
func TestCLIGenerate(t *testing.T) {
	database := setupTestDB(t)

	cfg := config.DefaultConfig()
	factory := &stubFactory{invokers: map[string]llm.Invoker{
		"anthropic": &stubInvoker{name: "anthropic", reply: `{
			"prompt_template": "Summarize {text}",
			"variables": ["text"],
			"description": "summarizer",
			"best_practices": [],
			"example_usage": ""
		}`},
	}}
	app := newCLIApp(database, cfg, factory, t.TempDir())

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := app.Run([]string{"promptforge", "generate", "summarize", "text"})

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stdout = oldStdout

	if err != nil {
		t.Fatalf("generate command failed: %v", err)
	}

	var output ops.GenerateOutput
	if err := json.Unmarshal(buf.Bytes(), &output); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, buf.String())
	}
	if output.Body != "Summarize {text}" {
		t.Errorf("generate output = %+v", output)
	}
	if output.Name != "general_summarize_text" {
		t.Errorf("name = %q", output.Name)
	}
}

// TestIsCLIMode tests the mode dispatch rules.
func TestIsCLIMode(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want bool
	}{
		{"no args", []string{"promptforge"}, false},
		{"known subcommand", []string{"promptforge", "list"}, true},
		{"help flag", []string{"promptforge", "--help"}, true},
		{"version flag", []string{"promptforge", "-v"}, true},
		{"unknown arg", []string{"promptforge", "bogus"}, false},
	}

	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			if got := isCLIMode(); got != tt.want {
				t.Errorf("isCLIMode() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestIsHelpOrVersion tests detection of help/version requests.
func TestIsHelpOrVersion(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want bool
	}{
		{"no args", []string{"promptforge"}, false},
		{"help flag", []string{"promptforge", "--help"}, true},
		{"help subcommand", []string{"promptforge", "help"}, true},
		{"version flag", []string{"promptforge", "--version"}, true},
		{"regular subcommand", []string{"promptforge", "list"}, false},
	}

	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			if got := isHelpOrVersion(); got != tt.want {
				t.Errorf("isHelpOrVersion() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestSplitList tests the comma-separated list helper.
func TestSplitList(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b ", []string{"a", "b"}},
		{"a,,b", []string{"a", "b"}},
	}

	for _, tt := range tests {
		if got := splitList(tt.input); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitList(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
