package ops

import (
	"database/sql"
	"strings"

	"github.com/promptforge/promptforge/internal/db"
	"github.com/promptforge/promptforge/internal/errors"
)

// LearnInput contains parameters for the Learn operation.
type LearnInput struct {
	TemplateID string

	// Success reports whether the template achieved its outcome
	Success bool

	// QualityScore, when supplied, must be in [0,1] and takes precedence
	// over Success for the rating update
	QualityScore *float64
}

// LearnOutput contains the result of the Learn operation.
type LearnOutput struct {
	ID         string  `json:"id"`
	Rating     float64 `json:"rating"`
	UsageCount int     `json:"usage_count"`
}

// Learn folds one usage outcome back into a template's quality estimate as a
// single atomic update. usage_count always increments. With a quality score
// the rating becomes a running mean weighted by the pre-increment usage
// count; a bare success nudges the rating toward 1.0 (0.7 from zero, then an
// EMA step); a bare failure leaves the rating unchanged.
func Learn(database *sql.DB, input LearnInput) (*LearnOutput, error) {
	id := strings.TrimSpace(input.TemplateID)
	if id == "" {
		return nil, errors.NewInvalidRequest("template_id is required")
	}
	if input.QualityScore != nil {
		if q := *input.QualityScore; q < 0 || q > 1 {
			return nil, errors.NewInvalidRequest("quality_score must be in [0,1]")
		}
	}

	rating, usageCount, err := db.Learn(database, id, input.Success, input.QualityScore)
	if err != nil {
		return nil, err
	}

	return &LearnOutput{
		ID:         id,
		Rating:     rating,
		UsageCount: usageCount,
	}, nil
}
