// Package summarizer implements the summarization stage and its two
// downstream extraction jobs (spec.md §4.4): produce the meeting summary
// via map-reduce, then separately extract key notes and action items from
// it, neither of which can fail the meeting outright.
package summarizer

import (
	"context"

	"meetscribe/internal/broker"
	"meetscribe/internal/logging"
	"meetscribe/internal/meeting"
	"meetscribe/internal/summarize"
	"meetscribe/internal/task"
)

// Publisher is the narrow broker capability the summarizer needs.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey, messageID string, body interface{}) error
}

// extractionJobs is how many downstream jobs the summarizer fans out
// after persisting the summary: key notes and tasks. summarize_done
// counts them back in; the job that lands last completes the meeting.
const extractionJobs = 2

// Summarizer runs the summary, key-notes, and tasks stages.
type Summarizer struct {
	Meetings         meeting.Repository
	Tasks            task.Repository
	Provider         summarize.Provider
	Publisher        Publisher
	SummaryChunkSize int
	Log              *logging.Logger
}

// Summarize executes spec.md §4.4 steps 1–5: guard on CanSummarize,
// map-reduce the transcript into a summary, persist it, and fan out the
// two downstream extraction messages.
func (s *Summarizer) Summarize(ctx context.Context, msg broker.SummarizeMessage) error {
	m, err := s.Meetings.FindByID(ctx, msg.MeetingID)
	if err != nil {
		return err
	}

	if !m.CanSummarize() {
		if s.Log != nil {
			s.Log.WithMeeting(msg.MeetingID).Info().Str("status", string(m.Status)).Msg("summarize skipped: meeting not ready")
		}
		return nil
	}

	m.BeginSummarizing()
	if err := s.Meetings.Update(ctx, m); err != nil {
		return err
	}

	summary, err := summarize.Summarize(ctx, s.Provider, m.Transcript, s.SummaryChunkSize)
	if err != nil {
		m.FailSummarization(err.Error())
		s.Meetings.Update(ctx, m)
		return err
	}

	m.CompleteSummary(summary)
	m.SetExtractionPlan(extractionJobs)
	if err := s.Meetings.Update(ctx, m); err != nil {
		return err
	}

	if err := s.Publisher.Publish(ctx, broker.SummarizeExchange, broker.RoutingKeyNotesTask,
		"keynotes_"+msg.MeetingID, broker.KeyNotesMessage{MeetingID: msg.MeetingID}); err != nil {
		return err
	}
	return s.Publisher.Publish(ctx, broker.SummarizeExchange, broker.RoutingTasksTask,
		"tasks_"+msg.MeetingID, broker.TasksMessage{MeetingID: msg.MeetingID})
}

// ExtractKeyNotes runs spec.md §4.4's key-notes extraction job. A parse
// failure inside summarize.ExtractKeyNotes yields an empty list, never a
// meeting failure; this job never transitions the meeting to
// summarize_failed.
func (s *Summarizer) ExtractKeyNotes(ctx context.Context, msg broker.KeyNotesMessage) error {
	m, err := s.Meetings.FindByID(ctx, msg.MeetingID)
	if err != nil {
		return err
	}
	if m.Summary == "" {
		return nil
	}

	notes := summarize.ExtractKeyNotes(ctx, s.Provider, m.Summary)
	if err := s.Meetings.SaveKeyNotes(ctx, msg.MeetingID, notes); err != nil {
		return err
	}
	return s.finishExtraction(ctx, m)
}

// ExtractTasks runs spec.md §4.4's action-item extraction job, persisting
// each descriptor as a pending task.Task. A parse failure yields zero
// tasks, never a meeting failure.
func (s *Summarizer) ExtractTasks(ctx context.Context, msg broker.TasksMessage) error {
	m, err := s.Meetings.FindByID(ctx, msg.MeetingID)
	if err != nil {
		return err
	}
	if m.Summary == "" {
		return nil
	}

	descriptors := summarize.ExtractTasks(ctx, s.Provider, m.Summary)
	if len(descriptors) > 0 {
		tasks := make([]task.Task, 0, len(descriptors))
		for _, d := range descriptors {
			tasks = append(tasks, d.ToTask(msg.MeetingID))
		}
		if err := s.Tasks.CreateBatch(ctx, tasks); err != nil {
			return err
		}
	}
	return s.finishExtraction(ctx, m)
}

// finishExtraction counts one extraction job back in and, when the last
// one lands, advances the meeting from summarized to completed. The
// MarkCompleted status guard keeps the transition single-fire even if
// both jobs observe done == total on a redelivered message.
func (s *Summarizer) finishExtraction(ctx context.Context, m *meeting.Meeting) error {
	done, err := s.Meetings.IncrementSummarizeDone(ctx, m.GetID())
	if err != nil {
		return err
	}
	if done < m.SummarizeTotal {
		return nil
	}
	if s.Log != nil {
		s.Log.WithMeeting(m.GetID()).Info().Msg("all extraction jobs finished, completing meeting")
	}
	return s.Meetings.MarkCompleted(ctx, m.GetID())
}
