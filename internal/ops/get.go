package ops

import (
	"database/sql"
	"strings"

	"github.com/promptforge/promptforge/internal/db"
	"github.com/promptforge/promptforge/internal/errors"
	"github.com/promptforge/promptforge/internal/prompt"
)

// GetInput contains parameters for the Get operation.
// Exactly one of ID or Name must be set.
type GetInput struct {
	ID   string
	Name string
}

// Get retrieves a single template by id or by unique name.
func Get(database *sql.DB, input GetInput) (*prompt.Template, error) {
	id := strings.TrimSpace(input.ID)
	name := strings.TrimSpace(input.Name)

	switch {
	case id != "" && name != "":
		return nil, errors.NewInvalidRequest("cannot specify both id and name; use one addressing mode")
	case id != "":
		return db.GetByID(database, id)
	case name != "":
		return db.GetByName(database, name)
	default:
		return nil, errors.NewInvalidRequest("must specify either id or name")
	}
}
