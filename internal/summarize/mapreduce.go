package summarize

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// chunkSummaryPrompt and mergeSummariesPrompt are opaque templates per
// spec.md §1 ("LLM prompt content treated as opaque"); the text below is
// a placeholder shape, not meant to be tuned.
const (
	chunkSummaryPromptTemplate   = "Summarize the following meeting transcript excerpt:\n\n%s"
	mergeSummariesPromptTemplate = "Combine the following partial summaries into one coherent meeting summary:\n\n%s"
)

// Summarize runs spec.md §4.4's map-then-reduce algorithm: if transcript
// fits within maxChunkSize it is summarized in a single call; otherwise it
// is sliced into fixed-size character chunks (map), each summarized
// independently, and the partials are joined with blank lines and reduced
// with a single merge call. The reduce step always runs when there is more
// than one chunk, regardless of how many.
func Summarize(ctx context.Context, provider Provider, transcript string, maxChunkSize int) (string, error) {
	if utf8.RuneCountInString(transcript) <= maxChunkSize {
		return provider.Generate(ctx, fmt.Sprintf(chunkSummaryPromptTemplate, transcript))
	}

	chunks := chunkText(transcript, maxChunkSize)

	partials := make([]string, 0, len(chunks))
	for _, c := range chunks {
		summary, err := provider.Generate(ctx, fmt.Sprintf(chunkSummaryPromptTemplate, c))
		if err != nil {
			return "", err
		}
		partials = append(partials, summary)
	}

	merged := strings.Join(partials, "\n\n")
	return provider.Generate(ctx, fmt.Sprintf(mergeSummariesPromptTemplate, merged))
}

// chunkText slices text into fixed-size character windows, matching
// original_source/summarize-service/src/utils/text.py's TextChunker.chunk
// (spec.md states the chunking algorithm in prose without this exact
// slicing convention).
func chunkText(text string, size int) []string {
	if size <= 0 {
		return []string{text}
	}
	runes := []rune(text)
	var chunks []string
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}
