package extract

import (
	"strings"

	apperrors "github.com/openlearn/adaptive-api/internal/errors"
)

// Mermaid extracts a mermaid graph definition from free-text model output.
// It prefers a ```mermaid fence, falls back to any fence, and finally
// accepts the whole trimmed text when it already starts with a mermaid
// graph directive.
func Mermaid(text string) (string, error) {
	if block, ok := FencedBlock(text, "mermaid"); ok && looksLikeMermaid(block) {
		return block, nil
	}

	trimmed := strings.TrimSpace(text)
	if looksLikeMermaid(trimmed) {
		return trimmed, nil
	}

	return "", apperrors.Extraction("no mermaid graph found in model output")
}

func looksLikeMermaid(s string) bool {
	for _, prefix := range []string{"graph ", "flowchart ", "mindmap"} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
