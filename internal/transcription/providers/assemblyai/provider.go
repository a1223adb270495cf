// Package assemblyai implements transcription.Provider against the
// in-pack github.com/therealchrisrock/assemblyai-go client, grounded on
// the teacher's
// modules/transcription/infrastructure/providers/assemblyai_provider.go
// upload/create/poll idiom, trimmed of that file's live-session/
// diarization machinery (the pipeline transcribes one finished chunk
// file at a time, not a streaming session) and repointed at local
// chunk_<i>.mp3 paths instead of a Firebase-uploaded session buffer.
package assemblyai

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	assemblyai "github.com/therealchrisrock/assemblyai-go"

	"meetscribe/internal/meeting"
)

// Provider transcribes one chunk file per call: upload, create transcript,
// poll to completion, convert words into sentence-level segments.
type Provider struct {
	client       *assemblyai.Client
	pollInterval time.Duration
	pollTimeout  time.Duration
}

// New builds a Provider against AssemblyAI's default API host.
func New(apiKey string) *Provider {
	return &Provider{
		client:       assemblyai.NewClient(apiKey),
		pollInterval: 5 * time.Second,
		pollTimeout:  30 * time.Minute,
	}
}

func (p *Provider) Transcribe(ctx context.Context, filePath string) ([]meeting.Segment, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("assemblyai: open %s: %w", filePath, err)
	}
	defer f.Close()

	upload, err := p.client.UploadFile(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("assemblyai: upload %s: %w", filePath, err)
	}

	transcript, err := p.client.CreateTranscript(ctx, &assemblyai.TranscriptRequest{
		AudioURL:   upload.UploadURL,
		Punctuate:  assemblyai.Bool(true),
		FormatText: assemblyai.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("assemblyai: create transcript: %w", err)
	}

	transcript, err = p.pollForCompletion(ctx, transcript.ID)
	if err != nil {
		return nil, fmt.Errorf("assemblyai: %w", err)
	}

	return wordsToSegments(transcript), nil
}

func (p *Provider) pollForCompletion(ctx context.Context, transcriptID string) (*assemblyai.Transcript, error) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	timeout := time.NewTimer(p.pollTimeout)
	defer timeout.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeout.C:
			return nil, fmt.Errorf("transcript polling timeout for %s", transcriptID)
		case <-ticker.C:
			transcript, err := p.client.GetTranscript(ctx, transcriptID)
			if err != nil {
				continue
			}
			switch transcript.Status {
			case assemblyai.StatusCompleted:
				return transcript, nil
			case assemblyai.StatusError:
				msg := "unknown error"
				if transcript.Error != nil {
					msg = *transcript.Error
				}
				return nil, fmt.Errorf("transcript failed: %s", msg)
			default:
				continue
			}
		}
	}
}

// wordsToSegments groups a transcript's flat word list into sentence-level
// segments, splitting after any word ending in sentence punctuation. Word
// offsets are milliseconds; segment timestamps are seconds, chunk-local
// (the chunk worker applies the global offset afterward).
func wordsToSegments(t *assemblyai.Transcript) []meeting.Segment {
	if len(t.Words) == 0 {
		text := ""
		if t.Text != nil {
			text = *t.Text
		}
		if strings.TrimSpace(text) == "" {
			return nil
		}
		end := 0.0
		if t.AudioDuration != nil {
			end = *t.AudioDuration
		}
		return []meeting.Segment{{Start: 0, End: end, Text: text}}
	}

	var segments []meeting.Segment
	var words []string
	start := t.Words[0].Start

	flush := func(endMs int) {
		if len(words) == 0 {
			return
		}
		segments = append(segments, meeting.Segment{
			Start: float64(start) / 1000.0,
			End:   float64(endMs) / 1000.0,
			Text:  strings.Join(words, " "),
		})
		words = nil
	}

	for i, w := range t.Words {
		words = append(words, w.Text)
		endsSentence := strings.HasSuffix(w.Text, ".") || strings.HasSuffix(w.Text, "?") || strings.HasSuffix(w.Text, "!")
		if endsSentence || i == len(t.Words)-1 {
			flush(w.End)
			if i+1 < len(t.Words) {
				start = t.Words[i+1].Start
			}
		}
	}

	return segments
}
