// Package merger implements the merge stage (spec.md §4.3): collapse every
// chunk's cached transcript into the meeting's single transcript, then
// hand off to summarization.
//
// This stage is the system's single most important correctness property
// (spec.md §5, §8 S3): the completion barrier can trip twice for the same
// meeting when two chunk workers both observe the last-arriving count
// concurrently, so a merge message is not guaranteed to be delivered
// exactly once. Run is therefore idempotent by construction — it
// re-validates the meeting's status before doing any work and is a no-op
// whenever the meeting has already left the transcribing state.
package merger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"meetscribe/internal/broker"
	"meetscribe/internal/cache"
	"meetscribe/internal/logging"
	"meetscribe/internal/meeting"
)

// maxReportedFailures caps how many failed chunk ids/errors are folded
// into the failure reason, keeping it readable on meetings with many
// failed chunks.
const maxReportedFailures = 3

// Publisher is the narrow broker capability the merger needs.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey, messageID string, body interface{}) error
}

// Chunks is the narrow completion-barrier cache capability the merger
// needs; *cache.ChunkStore satisfies it.
type Chunks interface {
	GetAll(ctx context.Context, meetingID string) ([]cache.ChunkResult, error)
	DeleteAll(ctx context.Context, meetingID string) error
}

// Merger concatenates a meeting's cached chunk results into its
// transcript.
type Merger struct {
	Meetings    meeting.Repository
	Chunks      Chunks
	Publisher   Publisher
	StagingRoot string
	Log         *logging.Logger
}

// Run executes spec.md §4.3 for one MergeMessage. It returns nil without
// doing any work if the meeting is not (or is no longer) in the
// transcribing state — the idempotency guard a racing duplicate merge
// trigger relies on.
func (mg *Merger) Run(ctx context.Context, msg broker.MergeMessage) error {
	log := mg.Log
	if log != nil {
		log = log.WithMeeting(msg.MeetingID)
	}

	m, err := mg.Meetings.FindByID(ctx, msg.MeetingID)
	if err != nil {
		return err
	}

	if m.Status != meeting.StatusTranscribing {
		if log != nil {
			log.Info().Str("status", string(m.Status)).Msg("merge skipped: meeting already merged")
		}
		return nil
	}

	results, err := mg.Chunks.GetAll(ctx, msg.MeetingID)
	if err != nil {
		return err
	}

	transcript, segments, failureReason := combine(results)

	if failureReason != "" {
		m.FailTranscription(failureReason)
	} else {
		m.CompleteTranscription(transcript, segments)
	}
	if err := mg.Meetings.Update(ctx, m); err != nil {
		return err
	}

	mg.cleanup(ctx, msg.MeetingID)

	if failureReason != "" {
		return nil
	}

	return mg.Publisher.Publish(ctx, broker.SummarizeExchange, broker.RoutingSummarizeGenerate,
		"summarize_"+msg.MeetingID, broker.SummarizeMessage{MeetingID: msg.MeetingID})
}

// combine sorts results by chunk id, concatenates successful segments'
// text with single spaces, and builds a failure reason naming up to
// maxReportedFailures failed chunks if any chunk failed (spec.md §4.3
// step 3: any failed chunk fails the whole meeting).
func combine(results []cache.ChunkResult) (transcript string, segments []meeting.Segment, failureReason string) {
	sort.Slice(results, func(i, j int) bool { return results[i].ChunkID < results[j].ChunkID })

	var failed []cache.ChunkResult
	var texts []string

	for _, r := range results {
		if r.Status == cache.ChunkFailed {
			failed = append(failed, r)
			continue
		}
		segments = append(segments, r.Segments...)
		for _, s := range r.Segments {
			texts = append(texts, s.Text)
		}
	}

	if len(failed) > 0 {
		return "", nil, failureSummary(failed)
	}

	return strings.Join(texts, " "), segments, ""
}

func failureSummary(failed []cache.ChunkResult) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%d chunk(s) failed transcription: ", len(failed)))
	for i, r := range failed {
		if i >= maxReportedFailures {
			b.WriteString(fmt.Sprintf("(and %d more)", len(failed)-maxReportedFailures))
			break
		}
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(fmt.Sprintf("chunk %d: %s", r.ChunkID, r.Error))
	}
	return b.String()
}

func (mg *Merger) cleanup(ctx context.Context, meetingID string) {
	if err := mg.Chunks.DeleteAll(ctx, meetingID); err != nil && mg.Log != nil {
		mg.Log.WithMeeting(meetingID).WithError(err).Warn().Msg("failed to clear chunk cache")
	}
	if mg.StagingRoot != "" {
		os.RemoveAll(filepath.Join(mg.StagingRoot, meetingID))
	}
}
