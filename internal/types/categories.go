package types

import "strings"

// Sentinel categories produced by the pipeline rather than the oracle.
const (
	CategoryUnknown = "unknown"
	CategoryError   = "error"
	CategoryNormal  = "normal"
)

// Category is one label of the closed incident vocabulary.
type Category struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// DefaultCategories is the vocabulary offered to the oracle, in prompt order.
var DefaultCategories = []Category{
	{"abuse", "Physical or emotional mistreatment"},
	{"arson", "Deliberately setting fire to property"},
	{"assault", "Violent physical attack"},
	{"burglary", "Breaking into buildings to steal"},
	{"explosion", "Sudden violent release of energy"},
	{"fighting", "Physical altercation between people"},
	{"normal", "No suspicious activity present"},
	{"road_accident", "Vehicle collisions"},
	{"shooting", "Discharge of firearms"},
	{"shoplifting", "Stealing from stores"},
	{"stealing", "Taking property without permission"},
	{"vandalism", "Deliberate property destruction"},
}

// CategoryNames returns the labels of cats in order.
func CategoryNames(cats []Category) []string {
	out := make([]string, 0, len(cats))
	for _, c := range cats {
		out = append(out, c.Name)
	}
	return out
}

// IsSentinel reports whether category is unknown or error.
func IsSentinel(category string) bool {
	return category == CategoryUnknown || category == CategoryError
}

// NormalizeCategory lower-cases a label and folds spaces and dashes to
// underscores ("Road Accident" -> "road_accident").
func NormalizeCategory(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return s
}
