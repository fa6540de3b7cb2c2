package ops

import (
	"database/sql"

	"github.com/promptforge/promptforge/internal/db"
)

// StatsOutput contains template library statistics.
type StatsOutput struct {
	db.LibraryStats
}

// Stats summarizes the template library: totals, per-category counts,
// average rating, and the most used / top rated template names.
func Stats(database *sql.DB) (*StatsOutput, error) {
	stats, err := db.Stats(database)
	if err != nil {
		return nil, err
	}
	return &StatsOutput{LibraryStats: *stats}, nil
}
