package db

import (
	"database/sql"
	"encoding/json"

	"github.com/promptforge/promptforge/internal/errors"
	"github.com/promptforge/promptforge/internal/prompt"
)

// Upsert inserts a new template or, on a name collision, performs the
// versioned update-in-place: body, description, and variables are replaced,
// updated_at is refreshed, version increments by exactly 1, and rating and
// usage_count are left untouched. The whole operation is a single atomic
// statement, so concurrent callers never observe a duplicate name or a
// half-written version/body pair.
// Returns the surviving row's id and its version after the write.
func Upsert(database *sql.DB, t *prompt.Template) (string, int, error) {
	variablesJSON, err := marshalVariables(t.Variables)
	if err != nil {
		return "", 0, errors.NewInternal(err)
	}

	query := `
		INSERT INTO templates (
			id, name, category, body, description, variables_json,
			version, rating, usage_count, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, 1, 0.0, 0, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			body = excluded.body,
			description = excluded.description,
			variables_json = excluded.variables_json,
			updated_at = excluded.updated_at,
			version = version + 1
		RETURNING id, version
	`

	var (
		id      string
		version int
	)
	err = database.QueryRow(query,
		t.ID, t.Name, t.Category, t.Body, t.Description, variablesJSON,
		t.CreatedAt, t.UpdatedAt,
	).Scan(&id, &version)
	if err != nil {
		return "", 0, errors.NewStorage(err)
	}

	return id, version, nil
}

// GetByID retrieves a template by its ULID.
func GetByID(database *sql.DB, id string) (*prompt.Template, error) {
	row := database.QueryRow(selectColumns+" FROM templates WHERE id = ?", id)
	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewStorage(err)
	}
	return t, nil
}

// GetByName retrieves a template by its unique name.
func GetByName(database *sql.DB, name string) (*prompt.Template, error) {
	row := database.QueryRow(selectColumns+" FROM templates WHERE name = ?", name)
	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(name)
	}
	if err != nil {
		return nil, errors.NewStorage(err)
	}
	return t, nil
}

// List retrieves all templates, optionally filtered to one category.
// Unfiltered listings order by category then descending rating; within a
// category filter the order is rating DESC, usage_count DESC. The id column
// is the final tie-break so the ordering is stable.
func List(database *sql.DB, category string) ([]prompt.Template, error) {
	query := selectColumns + " FROM templates"
	var args []any
	if category != "" {
		query += " WHERE category = ? ORDER BY rating DESC, usage_count DESC, id ASC"
		args = append(args, category)
	} else {
		query += " ORDER BY category ASC, rating DESC, id ASC"
	}

	rows, err := database.Query(query, args...)
	if err != nil {
		return nil, errors.NewStorage(err)
	}
	defer rows.Close()

	var templates []prompt.Template
	for rows.Next() {
		t, err := scanTemplateRows(rows)
		if err != nil {
			return nil, errors.NewStorage(err)
		}
		templates = append(templates, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorage(err)
	}

	return templates, nil
}

// Learn applies one usage outcome to a template as a single atomic update:
// usage_count always increments by 1, and rating changes per the rule for the
// supplied inputs. The rating formula uses the pre-increment usage count.
// Returns the post-update rating and usage count.
func Learn(database *sql.DB, id string, success bool, qualityScore *float64) (float64, int, error) {
	hasQuality := 0
	quality := 0.0
	if qualityScore != nil {
		hasQuality = 1
		quality = *qualityScore
	}
	successInt := 0
	if success {
		successInt = 1
	}

	query := `
		UPDATE templates SET
			rating = CASE
				WHEN ? = 1 THEN (rating * usage_count + ?) / (usage_count + 1)
				WHEN ? = 1 THEN CASE WHEN rating = 0 THEN 0.7 ELSE rating * 0.9 + 0.1 END
				ELSE rating
			END,
			usage_count = usage_count + 1
		WHERE id = ?
		RETURNING rating, usage_count
	`

	var (
		rating     float64
		usageCount int
	)
	err := database.QueryRow(query, hasQuality, quality, successInt, id).Scan(&rating, &usageCount)
	if err == sql.ErrNoRows {
		return 0, 0, errors.NewNotFound(id)
	}
	if err != nil {
		return 0, 0, errors.NewStorage(err)
	}

	return rating, usageCount, nil
}

// InsertTestResult records one provider result from a test batch.
func InsertTestResult(database *sql.DB, templateID string, r *prompt.TestResult) error {
	var tmplID sql.NullString
	if templateID != "" {
		tmplID = sql.NullString{String: templateID, Valid: true}
	}

	query := `
		INSERT INTO test_results (
			id, batch_id, template_id, provider, response,
			latency_ms, tokens_approx, success, error, tested_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	success := 0
	if r.Success {
		success = 1
	}

	_, err := database.Exec(query,
		r.ID, r.BatchID, tmplID, r.Provider, r.Response,
		r.LatencyMs, r.TokensApprox, success, r.Error, r.TestedAt,
	)
	if err != nil {
		return errors.NewStorage(err)
	}
	return nil
}

// InsertOptimization records one optimization pass.
func InsertOptimization(database *sql.DB, rec *prompt.OptimizationRecord) error {
	improvementsJSON, err := marshalVariables(rec.Improvements)
	if err != nil {
		return errors.NewInternal(err)
	}

	var tmplID sql.NullString
	if rec.TemplateID != "" {
		tmplID = sql.NullString{String: rec.TemplateID, Valid: true}
	}

	query := `
		INSERT INTO optimizations (
			id, template_id, original_body, optimized_body,
			effectiveness_score, improvements_json, reasoning, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = database.Exec(query,
		rec.ID, tmplID, rec.OriginalBody, rec.OptimizedBody,
		rec.EffectivenessScore, improvementsJSON, rec.Reasoning, rec.CreatedAt,
	)
	if err != nil {
		return errors.NewStorage(err)
	}
	return nil
}

// CategoryCount pairs a category with its template count.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// LibraryStats aggregates template library statistics.
type LibraryStats struct {
	TotalTemplates int             `json:"total_templates"`
	TotalUsage     int             `json:"total_usage"`
	AvgRating      float64         `json:"avg_rating"`
	ByCategory     []CategoryCount `json:"by_category"`
	MostUsedName   string          `json:"most_used,omitempty"`
	TopRatedName   string          `json:"top_rated,omitempty"`
}

// Stats computes library statistics in a single read pass.
func Stats(database *sql.DB) (*LibraryStats, error) {
	stats := &LibraryStats{}

	err := database.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(usage_count), 0), COALESCE(AVG(rating), 0.0)
		FROM templates
	`).Scan(&stats.TotalTemplates, &stats.TotalUsage, &stats.AvgRating)
	if err != nil {
		return nil, errors.NewStorage(err)
	}

	rows, err := database.Query(`
		SELECT category, COUNT(*) FROM templates GROUP BY category ORDER BY category
	`)
	if err != nil {
		return nil, errors.NewStorage(err)
	}
	defer rows.Close()

	for rows.Next() {
		var cc CategoryCount
		if err := rows.Scan(&cc.Category, &cc.Count); err != nil {
			return nil, errors.NewStorage(err)
		}
		stats.ByCategory = append(stats.ByCategory, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorage(err)
	}

	// Most used and top rated; both empty on an empty library
	err = database.QueryRow(`
		SELECT name FROM templates ORDER BY usage_count DESC, id ASC LIMIT 1
	`).Scan(&stats.MostUsedName)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.NewStorage(err)
	}

	err = database.QueryRow(`
		SELECT name FROM templates ORDER BY rating DESC, usage_count DESC, id ASC LIMIT 1
	`).Scan(&stats.TopRatedName)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.NewStorage(err)
	}

	return stats, nil
}

const selectColumns = `
	SELECT id, name, category, body, description, variables_json,
		version, rating, usage_count, created_at, updated_at
`

// rowScanner abstracts sql.Row and sql.Rows for scanTemplate.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTemplate scans a single row into a Template struct.
func scanTemplate(row rowScanner) (*prompt.Template, error) {
	var (
		t             prompt.Template
		variablesJSON sql.NullString
	)

	err := row.Scan(
		&t.ID, &t.Name, &t.Category, &t.Body, &t.Description, &variablesJSON,
		&t.Version, &t.Rating, &t.UsageCount, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if variablesJSON.Valid && variablesJSON.String != "" {
		if err := json.Unmarshal([]byte(variablesJSON.String), &t.Variables); err != nil {
			return nil, err
		}
	}

	return &t, nil
}

func scanTemplateRows(rows *sql.Rows) (*prompt.Template, error) {
	return scanTemplate(rows)
}

// marshalVariables converts a string slice to a nullable JSON column value.
func marshalVariables(values []string) (sql.NullString, error) {
	if len(values) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
