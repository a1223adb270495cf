// Package chunkworker implements the per-chunk transcription stage
// (spec.md §4.2): transcribe one audio chunk, adjust its segment
// timestamps to the meeting's global timeline, record the outcome in the
// completion-barrier cache, and trip the merge trigger when every chunk
// has reported in.
package chunkworker

import (
	"context"

	"meetscribe/internal/broker"
	"meetscribe/internal/cache"
	"meetscribe/internal/logging"
	"meetscribe/internal/meeting"
	"meetscribe/internal/transcription"
)

// Publisher is the narrow broker capability the chunk worker needs.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey, messageID string, body interface{}) error
}

// ChunkStore is the narrow completion-barrier cache capability the chunk
// worker needs; *cache.ChunkStore satisfies it.
type ChunkStore interface {
	Save(ctx context.Context, meetingID string, result cache.ChunkResult) error
	Count(ctx context.Context, meetingID string) (int, error)
}

// MeetingCounter is the narrow repository capability the chunk worker
// needs for the transcribe_done counter. The increment is capped at
// transcribe_total so a redelivered chunk message cannot push the
// counter past the total while the cache Save overwrite leaves the
// barrier keycount unchanged.
type MeetingCounter interface {
	IncrementTranscribeDone(ctx context.Context, id string) (int, error)
}

// Worker transcribes one chunk at a time and maintains the completion
// barrier. It only reads from the staging directory; the merger owns
// cleanup.
type Worker struct {
	Meetings  MeetingCounter
	Chunks    ChunkStore
	Provider  transcription.Provider
	Publisher Publisher
	Log       *logging.Logger
}

// Run executes spec.md §4.2 steps 1–8 for one ChunkMessage. A per-chunk
// transcription failure is recorded as a failed ChunkResult (spec.md
// invariant: a failed chunk still counts toward the completion barrier)
// and is not returned to the runner, so the transcription is not retried
// at the task level; the merger fails the meeting when it finds the
// failed entry.
func (w *Worker) Run(ctx context.Context, msg broker.ChunkMessage) error {
	log := w.Log
	if log != nil {
		log = log.WithMeeting(msg.MeetingID).WithChunk(msg.ChunkID)
	}

	result := cache.ChunkResult{ChunkID: msg.ChunkID}

	segments, err := w.Provider.Transcribe(ctx, msg.ChunkPath)
	if err != nil {
		result.Status = cache.ChunkFailed
		result.Error = err.Error()
		if log != nil {
			log.WithError(err).Warn().Msg("chunk transcription failed")
		}
	} else {
		result.Status = cache.ChunkSuccess
		result.Segments = adjustOffsets(segments, msg.OffsetSeconds)
	}

	if err := w.Chunks.Save(ctx, msg.MeetingID, result); err != nil {
		return err
	}

	done, err := w.Meetings.IncrementTranscribeDone(ctx, msg.MeetingID)
	if err != nil {
		return err
	}

	count, err := w.Chunks.Count(ctx, msg.MeetingID)
	if err != nil {
		return err
	}

	if log != nil {
		log.Info().Int("transcribe_done", done).Int("cache_count", count).Int("total", msg.TotalChunks).Msg("chunk processed")
	}

	if count < msg.TotalChunks {
		return nil
	}

	// Completion barrier tripped. Every chunk worker that observes
	// count==total publishes the merge trigger; deterministic message IDs
	// collapse the resulting duplicates at the broker (spec.md §5).
	mergeMsg := broker.MergeMessage{MeetingID: msg.MeetingID}
	return w.Publisher.Publish(ctx, broker.TranscribeExchange, broker.RoutingMerge, broker.MergeMessageID(msg.MeetingID), mergeMsg)
}

// adjustOffsets shifts chunk-local segment timestamps to the meeting's
// global timeline (spec.md §4.2 step 3).
func adjustOffsets(segments []meeting.Segment, offsetSeconds float64) []meeting.Segment {
	adjusted := make([]meeting.Segment, len(segments))
	for i, s := range segments {
		adjusted[i] = meeting.Segment{
			Start: s.Start + offsetSeconds,
			End:   s.End + offsetSeconds,
			Text:  s.Text,
		}
	}
	return adjusted
}
