package llm

import (
	"encoding/json"
	"log"
	"regexp"
)

var fencedJSONRe = regexp.MustCompile("```(?:json)?[ \t]*\n((?s:.*?))\n```")

// ExtractJSON pulls the first fenced code block (```json or bare ```) out of
// a free-form model response and unmarshals it into T. The fallback is
// returned unchanged when no block exists or its contents are not valid
// JSON. It never returns an error; this is the single seam between
// unstructured generation output and the typed pipeline.
func ExtractJSON[T any](text string, fallback T) T {
	m := fencedJSONRe.FindStringSubmatch(text)
	if m == nil {
		return fallback
	}

	var result T
	if err := json.Unmarshal([]byte(m[1]), &result); err != nil {
		log.Printf("Failed to parse fenced block as JSON: %v", err)
		return fallback
	}
	return result
}
