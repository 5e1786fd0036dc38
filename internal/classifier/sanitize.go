package classifier

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"incident-insights-go/internal/types"
)

// extractJSON pulls the JSON object out of raw model text. Fenced output
// (```json ... ```) is unwrapped first; the outermost {...} span of what
// remains is returned.
func extractJSON(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if start := strings.Index(s, "```"); start >= 0 {
		rest := s[start+3:]
		// drop the language tag line (```json)
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 && !strings.Contains(rest[:nl], "{") {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		s = strings.TrimSpace(rest)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// parseClassification never fails: anything unusable becomes unknown/0 with a
// diagnostic description.
func parseClassification(raw string, vocabulary map[string]bool) types.Classification {
	if strings.TrimSpace(raw) == "" {
		return degraded(types.CategoryUnknown, "Empty API response")
	}
	js := extractJSON(raw)
	if js == "" || !gjson.Valid(js) {
		return degraded(types.CategoryUnknown, fmt.Sprintf("Failed to parse response: %s", snippet(raw)))
	}
	obj := gjson.Parse(js)
	if !obj.IsObject() {
		return degraded(types.CategoryUnknown, "Failed to parse response: not a JSON object")
	}

	category := types.NormalizeCategory(firstString(obj, "category", "crime_indication", "event_type"))
	description := strings.TrimSpace(firstString(obj, "description", "summary"))
	if category == "" {
		return degraded(types.CategoryUnknown, "Oracle response missing category")
	}
	if category != types.CategoryUnknown && !vocabulary[category] {
		return degraded(types.CategoryUnknown, fmt.Sprintf("Oracle returned unsupported category %q: %s", category, description))
	}

	return types.Classification{
		Category:    category,
		Confidence:  confidence(obj.Get("confidence")),
		Description: description,
	}
}

func firstString(obj gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := obj.Get(k); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

// confidence accepts numbers and numeric strings and clamps to [0,1].
func confidence(v gjson.Result) float64 {
	var f float64
	switch v.Type {
	case gjson.Number:
		f = v.Float()
	case gjson.String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	return clamp01(f)
}

func clamp01(f float64) float64 {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func degraded(category, description string) types.Classification {
	return types.Classification{Category: category, Confidence: 0, Description: description}
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
