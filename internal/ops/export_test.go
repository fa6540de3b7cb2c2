package ops

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/promptforge/promptforge/internal/config"
	"github.com/promptforge/promptforge/internal/errors"
	"github.com/promptforge/promptforge/internal/prompt"
)

func TestExport_DefaultPath(t *testing.T) {
	database := newTestDB(t)
	baseDir := t.TempDir()

	if _, err := Put(database, config.DefaultConfig(), PutInput{Name: "n", Body: "b"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	output, err := Export(database, ExportInput{BaseDir: baseDir})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	if output.Count != 1 {
		t.Errorf("Count = %d, want 1", output.Count)
	}
	if !strings.HasPrefix(output.Path, filepath.Join(baseDir, "exports")) {
		t.Errorf("Path = %q, want under exports dir", output.Path)
	}

	data, err := os.ReadFile(output.Path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var templates []prompt.Template
	if err := json.Unmarshal(data, &templates); err != nil {
		t.Fatalf("export is not a JSON array: %v", err)
	}
	if len(templates) != 1 || templates[0].Name != "n" {
		t.Errorf("exported templates = %+v", templates)
	}
}

func TestExport_ExplicitPath(t *testing.T) {
	database := newTestDB(t)
	path := filepath.Join(t.TempDir(), "out.json")

	output, err := Export(database, ExportInput{Path: path})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if output.Path != path {
		t.Errorf("Path = %q, want %q", output.Path, path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("export file missing: %v", err)
	}
}

func TestExport_CategoryFilter(t *testing.T) {
	database := newTestDB(t)
	cfg := config.DefaultConfig()

	if _, err := Put(database, cfg, PutInput{Name: "t1", Category: "trading", Body: "b"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := Put(database, cfg, PutInput{Name: "a1", Category: "analysis", Body: "b"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	output, err := Export(database, ExportInput{
		Path:     filepath.Join(t.TempDir(), "trading.json"),
		Category: "trading",
	})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if output.Count != 1 {
		t.Errorf("Count = %d, want 1", output.Count)
	}
}

func TestExport_NoPathNoBaseDir(t *testing.T) {
	database := newTestDB(t)

	_, err := Export(database, ExportInput{})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("Export should reject empty path and base dir, got: %v", err)
	}
}

func TestExport_EmptyLibrary(t *testing.T) {
	database := newTestDB(t)

	output, err := Export(database, ExportInput{Path: filepath.Join(t.TempDir(), "empty.json")})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if output.Count != 0 {
		t.Errorf("Count = %d, want 0", output.Count)
	}
}
