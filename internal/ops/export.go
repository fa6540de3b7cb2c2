package ops

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/promptforge/promptforge/internal/db"
	"github.com/promptforge/promptforge/internal/errors"
)

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	// BaseDir is the application data directory; the default export path
	// lives under BaseDir/exports.
	BaseDir string

	// Path overrides the default export file location.
	Path string

	// Category optionally restricts the export to one category.
	Category string
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// Export writes the template library as a JSON array. The file is written to
// a temp path and renamed so a failure never clobbers a previous export.
func Export(database *sql.DB, input ExportInput) (*ExportOutput, error) {
	now := time.Now()

	exportPath := input.Path
	if exportPath == "" {
		if input.BaseDir == "" {
			return nil, errors.NewInvalidRequest("path or base dir is required")
		}
		exportPath = filepath.Join(
			input.BaseDir, "exports",
			fmt.Sprintf("prompt_library_%s.json", now.UTC().Format("20060102_150405")),
		)
	}

	templates, err := db.List(database, input.Category)
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(templates, "", "  ")
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	dir := filepath.Dir(exportPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.NewStorage(fmt.Errorf("failed to create export directory: %w", err))
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := exportPath + "." + hex.EncodeToString(randBytes) + ".tmp"

	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return nil, errors.NewStorage(fmt.Errorf("failed to write export file: %w", err))
	}
	if err := os.Rename(tempPath, exportPath); err != nil {
		os.Remove(tempPath)
		return nil, errors.NewStorage(fmt.Errorf("failed to finalize export file: %w", err))
	}

	return &ExportOutput{
		Path:       exportPath,
		Count:      len(templates),
		ExportedAt: now.Unix(),
	}, nil
}
