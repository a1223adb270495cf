package api

import (
	"time"

	"meetscribe/internal/meeting"
	"meetscribe/internal/task"
)

// CreateMeetingRequest is the payload to register a recording for
// processing.
type CreateMeetingRequest struct {
	OwnerID  string `json:"-"` // set from the authentication context
	Title    string `json:"title" binding:"required"`
	AudioURL string `json:"audio_url" binding:"required"`
}

// MeetingResponse is the full meeting view.
type MeetingResponse struct {
	ID         string            `json:"id"`
	OwnerID    string            `json:"owner_id"`
	Title      string            `json:"title"`
	AudioURL   string            `json:"audio_url"`
	Status     meeting.Status    `json:"status"`
	Transcript string            `json:"transcript,omitempty"`
	Segments   []meeting.Segment `json:"segments,omitempty"`
	Summary    string            `json:"summary,omitempty"`
	KeyNotes   []meeting.KeyNote `json:"key_notes,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// StatusResponse is the lightweight progress-polling view.
type StatusResponse struct {
	ID              string         `json:"id"`
	Status          meeting.Status `json:"status"`
	TranscribeTotal int            `json:"transcribe_total"`
	TranscribeDone  int            `json:"transcribe_done"`
	SummarizeTotal  int            `json:"summarize_total"`
	SummarizeDone   int            `json:"summarize_done"`
	FailureReason   string         `json:"failure_reason,omitempty"`
}

// TaskResponse is one extracted action item.
type TaskResponse struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Assignee    string        `json:"assignee,omitempty"`
	DueDate     *time.Time    `json:"due_date,omitempty"`
	Priority    task.Priority `json:"priority"`
	Status      task.Status   `json:"status"`
}

// ToMeetingResponse converts a Meeting entity to its response DTO.
func ToMeetingResponse(m *meeting.Meeting) MeetingResponse {
	return MeetingResponse{
		ID:         m.GetID(),
		OwnerID:    m.OwnerID,
		Title:      m.Title,
		AudioURL:   m.AudioURL,
		Status:     m.Status,
		Transcript: m.Transcript,
		Segments:   m.Segments,
		Summary:    m.Summary,
		KeyNotes:   m.KeyNotes,
		CreatedAt:  m.GetCreatedAt(),
		UpdatedAt:  m.GetUpdatedAt(),
	}
}

// ToStatusResponse converts a Meeting entity to its progress view.
func ToStatusResponse(m *meeting.Meeting) StatusResponse {
	return StatusResponse{
		ID:              m.GetID(),
		Status:          m.Status,
		TranscribeTotal: m.TranscribeTotal,
		TranscribeDone:  m.TranscribeDone,
		SummarizeTotal:  m.SummarizeTotal,
		SummarizeDone:   m.SummarizeDone,
		FailureReason:   m.FailureReason,
	}
}

// ToTaskResponse converts a Task entity to its response DTO.
func ToTaskResponse(t *task.Task) TaskResponse {
	return TaskResponse{
		ID:          t.GetID(),
		Title:       t.Title,
		Description: t.Description,
		Assignee:    t.Assignee,
		DueDate:     t.DueDate,
		Priority:    t.Priority,
		Status:      t.Status,
	}
}
