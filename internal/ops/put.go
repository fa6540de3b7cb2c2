package ops

import (
	"database/sql"
	"strings"
	"time"

	"github.com/promptforge/promptforge/internal/config"
	"github.com/promptforge/promptforge/internal/db"
	"github.com/promptforge/promptforge/internal/errors"
	"github.com/promptforge/promptforge/internal/prompt"
)

// PutInput contains parameters for the Put operation.
type PutInput struct {
	Name        string   // required, unique across the store
	Category    string   // default: "general"
	Body        string   // required
	Description string
	Variables   []string
}

// PutOutput contains the result of the Put operation.
type PutOutput struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Version int    `json:"version"`
	Created bool   `json:"created"`

	// Declared-variable/placeholder mismatches, reported but accepted unless
	// validate_variables is configured.
	UndeclaredPlaceholders []string `json:"undeclared_placeholders,omitempty"`
	UnusedVariables        []string `json:"unused_variables,omitempty"`
}

// Put stores a template. A name collision does not create a second row: the
// existing row's body, description, and variables are replaced and its
// version increments, leaving rating and usage_count untouched.
func Put(database *sql.DB, cfg *config.Config, input PutInput) (*PutOutput, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errors.NewInvalidRequest("name is required")
	}
	if input.Body == "" {
		return nil, errors.NewInvalidRequest("body is required")
	}

	category, err := resolveCategory(input.Category, cfg)
	if err != nil {
		return nil, err
	}

	undeclared, unused := diffVariables(input.Body, input.Variables)
	if cfg.ValidateVariables && (len(undeclared) > 0 || len(unused) > 0) {
		return nil, &errors.ForgeError{
			Code:    errors.ErrInvalidRequest,
			Status:  400,
			Message: "declared variables do not match placeholders in body",
			Details: map[string]any{
				"undeclared_placeholders": undeclared,
				"unused_variables":        unused,
			},
		}
	}

	// Generate a ULID for a fresh insert; discarded when the upsert hits an
	// existing name.
	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	now := time.Now().Unix()
	t := &prompt.Template{
		ID:          id,
		Name:        name,
		Category:    category,
		Body:        input.Body,
		Description: input.Description,
		Variables:   input.Variables,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	storedID, version, err := db.Upsert(database, t)
	if err != nil {
		return nil, err
	}

	return &PutOutput{
		ID:                     storedID,
		Name:                   name,
		Version:                version,
		Created:                version == 1,
		UndeclaredPlaceholders: undeclared,
		UnusedVariables:        unused,
	}, nil
}
