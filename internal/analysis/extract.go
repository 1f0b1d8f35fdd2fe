package analysis

import "strings"

// ExtractJSON pulls the JSON object out of a model completion. Completions
// often arrive wrapped in a ```json fence or with prose around the object.
// The result is the text between the first '{' and the last '}', or the
// trimmed input when no such pair exists.
func ExtractJSON(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
