package classifier

import (
	"fmt"
	"strings"

	"incident-insights-go/internal/types"
)

const responseSchema = `Return a JSON with exactly these fields:
{
  "category": "category_from_list",
  "confidence": 0.85,
  "description": "%s"
}`

func describe(categories []string) string {
	known := make(map[string]string, len(types.DefaultCategories))
	for _, c := range types.DefaultCategories {
		known[c.Name] = c.Description
	}
	var b strings.Builder
	for _, name := range categories {
		if d, ok := known[name]; ok {
			fmt.Fprintf(&b, "- %s: %s\n", name, d)
		} else {
			fmt.Fprintf(&b, "- %s\n", name)
		}
	}
	return b.String()
}

// buildPrompt is deterministic for a given kind, category list and text.
func buildPrompt(kind types.Kind, categories []string, text string) string {
	switch kind {
	case types.KindAudio:
		return fmt.Sprintf(`Based on this transcribed audio, analyze if there are indications of criminal activity.

Transcript: %q

Consider these categories:
%s
`+responseSchema, text, describe(categories), "Brief summary of what's happening in the audio")
	case types.KindText:
		return fmt.Sprintf(`Analyze this text to determine if it describes a crime scene or incident.

Text: %q

Consider these categories:
%s
`+responseSchema, text, describe(categories), "Concise explanation of what the text suggests is happening")
	default:
		return fmt.Sprintf(`Analyze this image and classify it into one of the following crime categories:
%s
`+responseSchema, describe(categories), "One concise description of what's happening in the image.")
	}
}
