package summarize

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider records every prompt it was asked to generate from and
// returns a deterministic, inspectable response.
type fakeProvider struct {
	calls     []string
	responses []string
}

func (f *fakeProvider) Generate(_ context.Context, prompt string) (string, error) {
	f.calls = append(f.calls, prompt)
	idx := len(f.calls) - 1
	if idx < len(f.responses) {
		return f.responses[idx], nil
	}
	return "summary", nil
}

func TestSummarizeBelowThresholdCallsOnce(t *testing.T) {
	// S4: transcript length 5,000 chars, summary_chunk_size=20000 — a
	// single-chunk prompt call, no merge-prompt invocation.
	transcript := strings.Repeat("a", 5000)
	p := &fakeProvider{responses: []string{"the summary"}}

	result, err := Summarize(context.Background(), p, transcript, 20000)

	require.NoError(t, err)
	assert.Equal(t, "the summary", result)
	assert.Len(t, p.calls, 1)
}

func TestSummarizeAboveThresholdMapsThenReduces(t *testing.T) {
	transcript := strings.Repeat("b", 25)
	p := &fakeProvider{responses: []string{"partial-1", "partial-2", "partial-3", "merged"}}

	result, err := Summarize(context.Background(), p, transcript, 10)

	require.NoError(t, err)
	assert.Equal(t, "merged", result)
	// 3 map calls (25 chars / 10-char chunks = 3) + 1 reduce call.
	assert.Len(t, p.calls, 4)
	assert.Contains(t, p.calls[3], "partial-1\n\npartial-2\n\npartial-3")
}

func TestChunkTextFixedSizeSlices(t *testing.T) {
	chunks := chunkText("abcdefghij", 4)
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, chunks)
}
