// Package dispatcher implements the start-transcribe stage (spec.md
// §4.1): validate meeting state, stream the source recording, split it
// into fixed-duration chunks, and fan out one chunk message per chunk.
package dispatcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"meetscribe/internal/audio"
	"meetscribe/internal/broker"
	pkgerrors "meetscribe/internal/errors"
	"meetscribe/internal/logging"
	"meetscribe/internal/meeting"
	"meetscribe/internal/streaming"
)

// Publisher is the narrow broker capability the dispatcher needs.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey, messageID string, body interface{}) error
}

// Splitter is the narrow audio-splitting capability the dispatcher needs;
// *audio.Splitter satisfies it.
type Splitter interface {
	Split(sourcePath, stagingDir string, chunkDurationMs int64) ([]audio.ChunkFile, int64, error)
}

// Dispatcher runs the start-transcribe stage for one meeting at a time.
type Dispatcher struct {
	Meetings        meeting.Repository
	Splitter        Splitter
	S3Reader        streaming.Reader
	HTTPReader      streaming.Reader
	Publisher       Publisher
	StagingRoot     string
	ChunkDurationMs int64
	Log             *logging.Logger
}

// Result is returned on success for testability (spec.md §4.1 step 9).
type Result struct {
	MeetingID   string
	TotalChunks int
}

// Run executes spec.md §4.1 steps 1–9 for one StartTranscribeMessage.
func (d *Dispatcher) Run(ctx context.Context, msg broker.StartTranscribeMessage) (*Result, error) {
	m, err := d.Meetings.FindByID(ctx, msg.MeetingID)
	if err != nil {
		return nil, err
	}

	if !m.CanDispatch() {
		return nil, &pkgerrors.InvalidStateError{
			Kind: "meeting", State: string(m.Status), Wanted: "start-transcribe",
		}
	}

	m.BeginTranscribing()
	if err := d.Meetings.Update(ctx, m); err != nil {
		return nil, err
	}

	result, err := d.split(ctx, m, msg.AudioURL)
	if err != nil {
		m.FailTranscription(err.Error())
		d.Meetings.Update(ctx, m)
		return nil, err
	}

	return result, nil
}

func (d *Dispatcher) split(ctx context.Context, m *meeting.Meeting, audioURL string) (*Result, error) {
	stagingDir := filepath.Join(d.StagingRoot, m.GetID())
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return nil, &pkgerrors.AudioProcessingError{MeetingID: m.GetID(), Err: fmt.Errorf("create staging dir: %w", err)}
	}

	sourcePath, err := d.downloadSource(ctx, audioURL, stagingDir)
	if err != nil {
		return nil, err
	}

	chunks, durationMs, err := d.Splitter.Split(sourcePath, stagingDir, d.ChunkDurationMs)
	if err != nil {
		return nil, err
	}
	os.Remove(sourcePath)

	m.Duration = float64(durationMs) / 1000.0
	m.SetChunkPlan(len(chunks))
	if err := d.Meetings.Update(ctx, m); err != nil {
		return nil, &pkgerrors.StorageError{Op: "persist chunk plan", Err: err}
	}

	for _, c := range chunks {
		msg := broker.ChunkMessage{
			MeetingID:     m.GetID(),
			ChunkID:       c.ChunkID,
			ChunkPath:     c.Path,
			TotalChunks:   len(chunks),
			OffsetSeconds: c.OffsetSeconds,
		}
		messageID := broker.ChunkMessageID(m.GetID(), c.ChunkID)
		if err := d.Publisher.Publish(ctx, broker.TranscribeExchange, broker.RoutingChunk, messageID, msg); err != nil {
			return nil, &pkgerrors.StorageError{Op: "publish chunk message", Err: err}
		}
	}

	if d.Log != nil {
		d.Log.WithMeeting(m.GetID()).Info().Int("total_chunks", len(chunks)).Msg("dispatched chunk messages")
	}

	return &Result{MeetingID: m.GetID(), TotalChunks: len(chunks)}, nil
}

// downloadSource streams audioURL to a local file in stagingDir via the
// reader variant selected by URL scheme (spec.md §4.1 steps 3–4).
func (d *Dispatcher) downloadSource(ctx context.Context, audioURL, stagingDir string) (string, error) {
	reader, err := streaming.ForURL(audioURL, d.S3Reader, d.HTTPReader)
	if err != nil {
		return "", err
	}

	body, err := reader.Open(ctx, audioURL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	sourcePath := filepath.Join(stagingDir, "source"+sourceExt(audioURL))
	out, err := os.Create(sourcePath)
	if err != nil {
		return "", &pkgerrors.AudioProcessingError{Err: fmt.Errorf("create source file: %w", err)}
	}
	defer out.Close()

	if _, err := io.Copy(out, body); err != nil {
		return "", &pkgerrors.StreamingError{URL: audioURL, Err: err}
	}

	return sourcePath, nil
}

func sourceExt(url string) string {
	ext := filepath.Ext(strings.SplitN(url, "?", 2)[0])
	if ext == "" {
		return ".mp3"
	}
	return ext
}
