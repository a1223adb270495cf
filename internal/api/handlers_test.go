package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetscribe/internal/broker"
	pkgerrors "meetscribe/internal/errors"
	"meetscribe/internal/meeting"
	"meetscribe/internal/task"
)

type fakeMeetingRepo struct {
	meetings map[string]*meeting.Meeting
}

func newFakeMeetingRepo(ms ...meeting.Meeting) *fakeMeetingRepo {
	repo := &fakeMeetingRepo{meetings: map[string]*meeting.Meeting{}}
	for i := range ms {
		m := ms[i]
		repo.meetings[m.GetID()] = &m
	}
	return repo
}

func (r *fakeMeetingRepo) Create(ctx context.Context, m *meeting.Meeting) error {
	cp := *m
	r.meetings[m.GetID()] = &cp
	return nil
}

func (r *fakeMeetingRepo) FindByID(ctx context.Context, id string) (*meeting.Meeting, error) {
	m, ok := r.meetings[id]
	if !ok {
		return nil, &pkgerrors.NotFoundError{Kind: "meeting", ID: id}
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMeetingRepo) Update(ctx context.Context, m *meeting.Meeting) error {
	cp := *m
	r.meetings[m.GetID()] = &cp
	return nil
}

func (r *fakeMeetingRepo) IncrementTranscribeDone(ctx context.Context, id string) (int, error) {
	return 0, nil
}

func (r *fakeMeetingRepo) SaveKeyNotes(ctx context.Context, id string, notes []meeting.KeyNote) error {
	return nil
}

func (r *fakeMeetingRepo) IncrementSummarizeDone(ctx context.Context, id string) (int, error) {
	return 0, nil
}

func (r *fakeMeetingRepo) MarkCompleted(ctx context.Context, id string) error { return nil }

func (r *fakeMeetingRepo) FindByOwner(ctx context.Context, ownerID string) ([]meeting.Meeting, error) {
	var out []meeting.Meeting
	for _, m := range r.meetings {
		if m.OwnerID == ownerID {
			out = append(out, *m)
		}
	}
	return out, nil
}

type fakeTaskRepo struct {
	tasks []task.Task
}

func (r *fakeTaskRepo) CreateBatch(ctx context.Context, tasks []task.Task) error { return nil }

func (r *fakeTaskRepo) FindByMeetingID(ctx context.Context, meetingID string) ([]task.Task, error) {
	return r.tasks, nil
}

type fakePublisher struct {
	published []string
}

func (p *fakePublisher) Publish(ctx context.Context, exchange, routingKey, messageID string, body interface{}) error {
	p.published = append(p.published, routingKey)
	return nil
}

func newTestRouter(repo *fakeMeetingRepo, tasks *fakeTaskRepo, pub *fakePublisher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterRoutes(router, &Handlers{Meetings: repo, Tasks: tasks, Publisher: pub})
	return router
}

func TestCreateMeetingRejectsUnsupportedScheme(t *testing.T) {
	router := newTestRouter(newFakeMeetingRepo(), &fakeTaskRepo{}, &fakePublisher{})

	body := `{"title":"standup","audio_url":"ftp://example.com/a.mp3"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/meetings", strings.NewReader(body))
	req.Header.Set("X-User-ID", "owner-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateMeetingRejectsUnsupportedExtension(t *testing.T) {
	router := newTestRouter(newFakeMeetingRepo(), &fakeTaskRepo{}, &fakePublisher{})

	body := `{"title":"standup","audio_url":"https://example.com/a.mkv"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/meetings", strings.NewReader(body))
	req.Header.Set("X-User-ID", "owner-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartTranscriptionPublishesStartMessage(t *testing.T) {
	m := meeting.New("owner-1", "standup", "https://example.com/a.mp3")
	repo := newFakeMeetingRepo(m)
	pub := &fakePublisher{}
	router := newTestRouter(repo, &fakeTaskRepo{}, pub)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/meetings/"+m.GetID()+"/transcribe", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{broker.RoutingStart}, pub.published)
	assert.Equal(t, meeting.StatusProcessing, repo.meetings[m.GetID()].Status)
}

func TestStartTranscriptionConflictsOnActiveMeeting(t *testing.T) {
	m := meeting.New("owner-1", "standup", "https://example.com/a.mp3")
	m.Status = meeting.StatusTranscribing
	repo := newFakeMeetingRepo(m)
	pub := &fakePublisher{}
	router := newTestRouter(repo, &fakeTaskRepo{}, pub)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/meetings/"+m.GetID()+"/transcribe", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, pub.published)
}

func TestGetStatusReportsProgressCounters(t *testing.T) {
	m := meeting.New("owner-1", "standup", "https://example.com/a.mp3")
	m.Status = meeting.StatusTranscribing
	m.TranscribeTotal = 3
	m.TranscribeDone = 2
	repo := newFakeMeetingRepo(m)
	router := newTestRouter(repo, &fakeTaskRepo{}, &fakePublisher{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/meetings/"+m.GetID()+"/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, meeting.StatusTranscribing, resp.Status)
	assert.Equal(t, 3, resp.TranscribeTotal)
	assert.Equal(t, 2, resp.TranscribeDone)
}

func TestGetMeetingNotFound(t *testing.T) {
	router := newTestRouter(newFakeMeetingRepo(), &fakeTaskRepo{}, &fakePublisher{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/meetings/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
