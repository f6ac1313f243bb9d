package gemini

import "strings"

// StripCodeFences removes markdown code fences from model output. Models
// frequently wrap JSON in ```json ... ``` despite being told not to; the
// payload inside is kept intact and surrounding whitespace is trimmed.
func StripCodeFences(text string) string {
	text = strings.ReplaceAll(text, "```json\n", "")
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```\n", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}
