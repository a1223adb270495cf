// Package openai implements summarize.Provider against OpenAI chat
// completions, grounded on
// eternnoir-gollmscribe/pkg/providers/openai/provider.go's client
// construction, repointed at the summarization capability instead of
// that teacher's transcription use.
package openai

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	pkgerrors "meetscribe/internal/errors"
)

// Provider generates one completion per prompt, retrying up to maxRetries
// times with exponential backoff from baseDelay, capped at 10s, per
// spec.md §4.4's "2s → 10s capped" LLM retry policy.
type Provider struct {
	client     openai.Client
	model      string
	maxRetries int
	baseDelay  time.Duration
}

// New builds a Provider. baseURL may be empty to use the default API host.
func New(apiKey, baseURL, model string, maxRetries int, baseDelay time.Duration) *Provider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if baseDelay <= 0 {
		baseDelay = 2 * time.Second
	}
	return &Provider{
		client:     openai.NewClient(opts...),
		model:      model,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
	}
}

func (p *Provider) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			wait := p.baseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
			if wait > 10*time.Second {
				wait = 10 * time.Second
			}
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		completion, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: openai.ChatModel(p.model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(prompt),
			},
		})
		if err != nil {
			lastErr = err
			continue
		}
		if len(completion.Choices) == 0 {
			lastErr = fmt.Errorf("empty choices in completion")
			continue
		}
		return completion.Choices[0].Message.Content, nil
	}

	return "", &pkgerrors.LLMServiceError{Err: fmt.Errorf("generate after %d attempts: %w", p.maxRetries+1, lastErr)}
}
