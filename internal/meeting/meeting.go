// Package meeting holds the Meeting aggregate: the persistent status
// machine, transcript, summary, and progress counters that every pipeline
// stage reads and mutates.
package meeting

import (
	"meetscribe/seedwork/domain"
)

// Status is the meeting's position in the transcription/summarization
// state machine.
type Status string

const (
	StatusCreated           Status = "created"
	StatusProcessing        Status = "processing"
	StatusTranscribing      Status = "transcribing"
	StatusTranscribed       Status = "transcribed"
	StatusTranscribeFailed  Status = "transcribe_failed"
	StatusSummarizing       Status = "summarizing"
	StatusSummarized        Status = "summarized"
	StatusSummarizeFailed   Status = "summarize_failed"
	StatusCompleted         Status = "completed"
)

// KeyNoteCategory classifies an extracted key note.
type KeyNoteCategory string

const (
	CategoryDecision KeyNoteCategory = "Decision"
	CategoryTask     KeyNoteCategory = "Task"
	CategoryKeyPoint KeyNoteCategory = "KeyPoint"
	CategoryRisk     KeyNoteCategory = "Risk"
	CategoryQuestion KeyNoteCategory = "Question"
)

// Segment is a (start, end, text) triple produced by a transcription
// provider. Start/End are expressed in seconds and are GLOBAL once a
// chunk worker has applied its offset adjustment.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// KeyNote is one classified note extracted from the summary stage.
type KeyNote struct {
	Category KeyNoteCategory `json:"category"`
	Note     string          `json:"note"`
}

// Meeting is the persistent aggregate root for one submitted recording.
type Meeting struct {
	domain.BaseEntity
	OwnerID   string  `json:"owner_id" gorm:"column:owner_id;not null"`
	Title     string  `json:"title" gorm:"column:title;not null"`
	AudioURL  string  `json:"audio_url" gorm:"column:audio_url;not null"`
	Duration  float64 `json:"duration_seconds" gorm:"column:duration_seconds"`
	Status    Status  `json:"status" gorm:"column:status;not null;type:meeting_status"`

	Transcript string    `json:"transcript" gorm:"column:transcript;type:text"`
	Segments   []Segment `json:"segments" gorm:"column:segments;type:jsonb;serializer:json"`

	Summary  string    `json:"summary" gorm:"column:summary;type:text"`
	KeyNotes []KeyNote `json:"key_notes" gorm:"column:key_notes;type:jsonb;serializer:json"`

	TranscribeTotal int `json:"transcribe_total" gorm:"column:transcribe_total;default:0"`
	TranscribeDone  int `json:"transcribe_done" gorm:"column:transcribe_done;default:0"`
	SummarizeTotal  int `json:"summarize_total" gorm:"column:summarize_total;default:0"`
	SummarizeDone   int `json:"summarize_done" gorm:"column:summarize_done;default:0"`

	FailureReason string `json:"failure_reason,omitempty" gorm:"column:failure_reason"`
}

// TableName sets the table name for GORM.
func (Meeting) TableName() string {
	return "meetings"
}

// New creates a new Meeting in the created status.
func New(ownerID, title, audioURL string) Meeting {
	m := Meeting{
		OwnerID:  ownerID,
		Title:    title,
		AudioURL: audioURL,
		Status:   StatusCreated,
	}
	m.SetID(domain.GenerateID())
	return m
}

// CanDispatch reports whether start-transcribe may run against this
// meeting's current status (spec.md §4.1: allowed from processing or
// transcribe_failed only).
func (m *Meeting) CanDispatch() bool {
	return m.Status == StatusProcessing || m.Status == StatusTranscribeFailed
}

// BeginTranscribing transitions the meeting into the transcribing state
// and clears any failure reason left by a previous run. The progress
// counters are reset later, by SetChunkPlan.
func (m *Meeting) BeginTranscribing() {
	m.Status = StatusTranscribing
	m.FailureReason = ""
}

// SetChunkPlan records the total chunk count once the dispatcher has
// finished splitting the source audio.
func (m *Meeting) SetChunkPlan(total int) {
	m.TranscribeTotal = total
	m.TranscribeDone = 0
}

// FailTranscription marks the meeting transcribe_failed with a reason.
func (m *Meeting) FailTranscription(reason string) {
	m.Status = StatusTranscribeFailed
	m.FailureReason = reason
}

// CompleteTranscription persists the merged transcript and segments and
// advances the meeting to transcribed.
func (m *Meeting) CompleteTranscription(transcript string, segments []Segment) {
	m.Transcript = transcript
	m.Segments = segments
	m.Status = StatusTranscribed
	m.FailureReason = ""
}

// CanSummarize reports whether the summarizer may run (spec.md §4.4:
// transcript must be non-empty and status must be transcribed).
func (m *Meeting) CanSummarize() bool {
	return m.Status == StatusTranscribed && m.Transcript != ""
}

// BeginSummarizing transitions the meeting into summarizing.
func (m *Meeting) BeginSummarizing() {
	m.Status = StatusSummarizing
}

// CompleteSummary persists the summary text and advances to summarized.
func (m *Meeting) CompleteSummary(summary string) {
	m.Summary = summary
	m.Status = StatusSummarized
}

// SetExtractionPlan records how many downstream extraction jobs the
// summarizer fans out (key notes + tasks). The jobs increment
// summarize_done as they land; the one that observes done == total marks
// the meeting completed.
func (m *Meeting) SetExtractionPlan(total int) {
	m.SummarizeTotal = total
	m.SummarizeDone = 0
}

// FailSummarization marks the meeting summarize_failed with a reason.
func (m *Meeting) FailSummarization(reason string) {
	m.Status = StatusSummarizeFailed
	m.FailureReason = reason
}
