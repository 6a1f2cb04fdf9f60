// Package service implements the adaptive-learning features on top of the
// batch-job lifecycle, the KV store, and the upstream learning-platform
// clients. Each generation feature is a thin configuration of job.Lifecycle
// plus its prompt builder and result assembler.
package service

import (
	"fmt"
	"strconv"
	"strings"
)

// ChunkSize is the fixed number of items packed into one batch sub-request.
// Larger inputs are split so each request stays within per-request limits.
const ChunkSize = 20

// Generation holds the model parameters applied to every prompt a feature
// submits.
type Generation struct {
	Model     string
	MaxTokens int
}

func (g Generation) withDefaults() Generation {
	if g.Model == "" {
		g.Model = "claude-sonnet-4-20250514"
	}
	if g.MaxTokens <= 0 {
		g.MaxTokens = 4096
	}
	return g
}

// chunkCustomID builds the correlation id for one chunk of a subject's batch.
func chunkCustomID(subjectID string, index int) string {
	return fmt.Sprintf("%s:chunk-%d", subjectID, index)
}

// chunks splits items into consecutive slices of at most size elements.
func chunks[T any](items []T, size int) [][]T {
	if size <= 0 || len(items) == 0 {
		return nil
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}

// numberedList renders items as a 1-based numbered block for prompt text.
func numberedList(items []string) string {
	var b strings.Builder
	for i, item := range items {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(item)
		b.WriteByte('\n')
	}
	return b.String()
}
