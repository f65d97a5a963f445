package services

import "strings"

// DefaultChunkSize bounds one generation call's worth of document text.
// Chosen to stay inside the provider's practical context and latency budget.
const DefaultChunkSize = 3000

// ChunkText splits text into segments no longer than maxChunkSize, packing
// whole sentences greedily. Sentences are delimited by '.', '!' or '?'.
// Sentence order is preserved and nothing is deduplicated. For non-empty
// input the result is never empty: when no sentence boundary produces a
// segment, the original text comes back as a single segment.
func ChunkText(text string, maxChunkSize int) []string {
	sentences := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})

	var chunks []string
	var current string

	for _, sentence := range sentences {
		trimmed := strings.TrimSpace(sentence)
		if trimmed == "" {
			continue
		}
		if len(current)+len(trimmed)+1 <= maxChunkSize {
			if current == "" {
				current = trimmed
			} else {
				current += ". " + trimmed
			}
		} else {
			if current != "" {
				chunks = append(chunks, current+".")
			}
			current = trimmed
		}
	}

	if current != "" {
		chunks = append(chunks, current+".")
	}

	if len(chunks) == 0 {
		return []string{text}
	}
	return chunks
}
