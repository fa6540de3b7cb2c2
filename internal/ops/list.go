package ops

import (
	"database/sql"
	"strings"

	"github.com/promptforge/promptforge/internal/db"
	"github.com/promptforge/promptforge/internal/prompt"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Category string // optional filter
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items []prompt.Template `json:"items"`
	Count int               `json:"count"`
	Sort  string            `json:"sort"`
}

// List retrieves all templates, optionally filtered to one category.
// The store orders by category then descending rating; within a category
// filter, usage_count breaks rating ties.
func List(database *sql.DB, input ListInput) (*ListOutput, error) {
	category := strings.TrimSpace(input.Category)

	items, err := db.List(database, category)
	if err != nil {
		return nil, err
	}

	// Ensure we return an empty array rather than nil
	if items == nil {
		items = []prompt.Template{}
	}

	sort := "category,rating_desc"
	if category != "" {
		sort = "rating_desc,usage_desc"
	}

	return &ListOutput{
		Items: items,
		Count: len(items),
		Sort:  sort,
	}, nil
}
