// Package summarize implements the map-reduce summarization algorithm
// (spec.md §4.4), the LLM generation capability it runs on, and the
// swallow-on-parse-error JSON decoding for key notes and tasks.
package summarize

import "context"

// Provider is the summarization/LLM generation capability: one prompt in,
// one completion out. Concrete providers own their own retry policy.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
