package prompt

// Template represents a named, versioned unit of reusable instruction text
// with {variable} placeholders.
type Template struct {
	// ID is a ULID that uniquely identifies this template
	ID string `json:"id"`

	// Name is the unique human-readable key (collisions update in place)
	Name string `json:"name"`

	// Category is a classificatory tag; no behavior depends on it except filtering
	Category string `json:"category"`

	// Body is the template text containing zero or more {variable} placeholders
	Body string `json:"body"`

	// Description is free text describing what the template does
	Description string `json:"description"`

	// Variables is the set of placeholder identifiers declared for the template.
	// Not required to match the placeholders actually present in Body.
	Variables []string `json:"variables"`

	// Version starts at 1 and increments on every update-in-place
	Version int `json:"version"`

	// Rating is a quality estimate in [0,1], updated only by Learn
	Rating float64 `json:"rating"`

	// UsageCount increments once per learning event
	UsageCount int `json:"usage_count"`

	// CreatedAt is the Unix timestamp when the template was first stored
	CreatedAt int64 `json:"created_at"`

	// UpdatedAt is the Unix timestamp of the last update-in-place
	UpdatedAt int64 `json:"updated_at"`
}

// DefaultCategories lists the built-in category tags.
var DefaultCategories = []string{
	"trading", "analysis", "risk_management", "content_creation",
	"research", "strategy", "market_data", "automation", "general",
}

// KnownCategory reports whether name is one of the given categories.
func KnownCategory(name string, categories []string) bool {
	for _, c := range categories {
		if c == name {
			return true
		}
	}
	return false
}
