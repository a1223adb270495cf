// Package api is the thin HTTP surface over the pipeline: meeting
// registration, transcription kick-off, and progress polling. It consumes
// the pipeline by publishing a start message and reading the meeting
// store; all heavy lifting happens in the workers.
package api

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"meetscribe/internal/broker"
	pkgerrors "meetscribe/internal/errors"
	"meetscribe/internal/logging"
	"meetscribe/internal/meeting"
	"meetscribe/internal/task"
)

// allowedExtensions is the upload-time format allowlist.
var allowedExtensions = map[string]bool{
	".mp3": true, ".wav": true, ".m4a": true, ".flac": true,
	".ogg": true, ".opus": true, ".aac": true, ".wma": true, ".aiff": true,
}

// Publisher is the narrow broker capability the API needs.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey, messageID string, body interface{}) error
}

// Handlers contains the meeting-pipeline HTTP handlers.
type Handlers struct {
	Meetings  meeting.Repository
	Tasks     task.Repository
	Publisher Publisher
	Log       *logging.Logger
}

// ownerID resolves the authenticated user. Identity-token verification is
// an external collaborator; the gateway in front of this service sets the
// header.
func ownerID(c *gin.Context) string {
	if id, exists := c.Get("user_id"); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return c.GetHeader("X-User-ID")
}

// CreateMeeting registers a recording URL for processing.
func (h *Handlers) CreateMeeting(c *gin.Context) {
	var req CreateMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	owner := ownerID(c)
	if owner == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	if err := validateAudioURL(req.AudioURL); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m := meeting.New(owner, req.Title, req.AudioURL)
	if err := h.Meetings.Create(c.Request.Context(), &m); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create meeting"})
		return
	}

	c.JSON(http.StatusCreated, ToMeetingResponse(&m))
}

// StartTranscription kicks off the pipeline for a meeting by publishing
// the start message. Accepts meetings in created, processing, or
// transcribe_failed (re-run) status.
func (h *Handlers) StartTranscription(c *gin.Context) {
	m, ok := h.findMeeting(c)
	if !ok {
		return
	}

	switch m.Status {
	case meeting.StatusCreated:
		m.Status = meeting.StatusProcessing
		if err := h.Meetings.Update(c.Request.Context(), m); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update meeting"})
			return
		}
	case meeting.StatusProcessing, meeting.StatusTranscribeFailed:
		// dispatchable as-is
	default:
		c.JSON(http.StatusConflict, gin.H{"error": "Meeting is not in a transcribable state", "status": m.Status})
		return
	}

	msg := broker.StartTranscribeMessage{MeetingID: m.GetID(), AudioURL: m.AudioURL}
	if err := h.Publisher.Publish(c.Request.Context(), broker.TranscribeExchange, broker.RoutingStart, "start_"+m.GetID(), msg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue transcription"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"meeting_id": m.GetID(), "status": m.Status})
}

// GetMeeting returns the full meeting, transcript and summary included.
func (h *Handlers) GetMeeting(c *gin.Context) {
	m, ok := h.findMeeting(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ToMeetingResponse(m))
}

// GetStatus is the progress-polling endpoint.
func (h *Handlers) GetStatus(c *gin.Context) {
	m, ok := h.findMeeting(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ToStatusResponse(m))
}

// ListMeetings returns the authenticated user's meetings.
func (h *Handlers) ListMeetings(c *gin.Context) {
	owner := ownerID(c)
	if owner == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	meetings, err := h.Meetings.FindByOwner(c.Request.Context(), owner)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list meetings"})
		return
	}

	responses := make([]MeetingResponse, 0, len(meetings))
	for i := range meetings {
		responses = append(responses, ToMeetingResponse(&meetings[i]))
	}
	c.JSON(http.StatusOK, gin.H{"meetings": responses, "total": len(responses)})
}

// ListTasks returns the action items extracted for a meeting.
func (h *Handlers) ListTasks(c *gin.Context) {
	m, ok := h.findMeeting(c)
	if !ok {
		return
	}

	tasks, err := h.Tasks.FindByMeetingID(c.Request.Context(), m.GetID())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list tasks"})
		return
	}

	responses := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		responses = append(responses, ToTaskResponse(&tasks[i]))
	}
	c.JSON(http.StatusOK, gin.H{"tasks": responses, "total": len(responses)})
}

func (h *Handlers) findMeeting(c *gin.Context) (*meeting.Meeting, bool) {
	m, err := h.Meetings.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		var notFound *pkgerrors.NotFoundError
		if errors.As(err, &notFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Meeting not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load meeting"})
		}
		return nil, false
	}
	return m, true
}

func validateAudioURL(url string) error {
	if !strings.HasPrefix(url, "s3://") && !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return errors.New("audio_url must use the s3://, http:// or https:// scheme")
	}
	ext := strings.ToLower(filepath.Ext(strings.SplitN(url, "?", 2)[0]))
	if ext != "" && !allowedExtensions[ext] {
		return errors.New("unsupported audio format " + ext)
	}
	return nil
}
