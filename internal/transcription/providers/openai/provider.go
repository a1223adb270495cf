// Package openai implements transcription.Provider against OpenAI's
// Whisper transcription endpoint, grounded on
// eternnoir-gollmscribe/pkg/providers/openai/provider.go's client
// construction and retry-loop idiom, repointed at the audio-transcription
// capability (segments with timestamps) instead of that teacher's
// chat-completion-based multimodal approach.
package openai

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"meetscribe/internal/meeting"
)

const defaultModel = "whisper-1"

// Provider transcribes one chunk file per call via the Whisper endpoint,
// requesting verbose_json so per-segment timestamps come back directly.
type Provider struct {
	client  openai.Client
	model   string
	retries int
}

// New builds a Provider. baseURL may be empty to use the default API host.
func New(apiKey, baseURL, model string) *Provider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = defaultModel
	}
	return &Provider{
		client:  openai.NewClient(opts...),
		model:   model,
		retries: 3,
	}
}

func (p *Provider) Transcribe(ctx context.Context, filePath string) ([]meeting.Segment, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("openai transcription: open %s: %w", filePath, err)
	}
	defer f.Close()

	params := openai.AudioTranscriptionNewParams{
		File:           openai.File(f, filepath.Base(filePath), "audio/mpeg"),
		Model:          openai.AudioModel(p.model),
		ResponseFormat: openai.AudioResponseFormatVerboseJSON,
	}

	var resp *openai.Transcription
	var lastErr error
	for attempt := 0; attempt <= p.retries; attempt++ {
		resp, lastErr = p.client.Audio.Transcriptions.New(ctx, params)
		if lastErr == nil {
			break
		}
		if attempt < p.retries {
			time.Sleep(time.Duration(attempt+1) * time.Second)
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("openai transcription failed after %d attempts: %w", p.retries+1, lastErr)
	}

	if len(resp.Segments) == 0 {
		// No verbose segmentation came back (some backends behind the
		// same API surface only return flat text); fall back to a single
		// segment holding the whole text, with zero start and end since no
		// timing came back.
		return []meeting.Segment{{Start: 0, End: 0, Text: resp.Text}}, nil
	}

	segments := make([]meeting.Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		segments = append(segments, meeting.Segment{
			Start: s.Start,
			End:   s.End,
			Text:  s.Text,
		})
	}
	return segments, nil
}
