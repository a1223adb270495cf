// Package transcription defines the pluggable transcription-provider
// capability spec.md §4.2 step 1 and §9 ("Provider polymorphism") call
// for: one method, selected by configuration string at worker startup.
package transcription

import (
	"context"
	"fmt"

	"meetscribe/internal/config"
	"meetscribe/internal/meeting"
	assemblyaiprovider "meetscribe/internal/transcription/providers/assemblyai"
	openaiprovider "meetscribe/internal/transcription/providers/openai"
)

// Provider converts one audio file to segments with chunk-LOCAL
// timestamps starting at 0; the chunk worker applies the offset
// adjustment afterward (spec.md §4.2 step 3).
type Provider interface {
	Transcribe(ctx context.Context, filePath string) ([]meeting.Segment, error)
}

// NewProvider selects a concrete Provider by cfg.Provider, grounded on the
// teacher's AudioProcessorFactory selection pattern
// (modules/transcription/application/services/audio_processor_factory.go).
func NewProvider(cfg config.TranscriptionConfig, llm config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case "openai":
		return openaiprovider.New(llm.APIKey, llm.BaseURL, llm.Model), nil
	case "assemblyai":
		return assemblyaiprovider.New(cfg.AssemblyAIKey), nil
	default:
		return nil, fmt.Errorf("transcription: unknown provider %q", cfg.Provider)
	}
}
