package dispatcher

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetscribe/internal/audio"
	"meetscribe/internal/broker"
	"meetscribe/internal/meeting"
)

type fakeMeetingRepo struct {
	meetings map[string]*meeting.Meeting
	updates  []meeting.Meeting
}

func newFakeMeetingRepo(ms ...meeting.Meeting) *fakeMeetingRepo {
	repo := &fakeMeetingRepo{meetings: map[string]*meeting.Meeting{}}
	for i := range ms {
		m := ms[i]
		repo.meetings[m.GetID()] = &m
	}
	return repo
}

func (r *fakeMeetingRepo) Create(ctx context.Context, m *meeting.Meeting) error { return nil }

func (r *fakeMeetingRepo) FindByID(ctx context.Context, id string) (*meeting.Meeting, error) {
	m, ok := r.meetings[id]
	if !ok {
		return nil, assert.AnError
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMeetingRepo) Update(ctx context.Context, m *meeting.Meeting) error {
	cp := *m
	r.meetings[m.GetID()] = &cp
	r.updates = append(r.updates, cp)
	return nil
}

func (r *fakeMeetingRepo) IncrementTranscribeDone(ctx context.Context, id string) (int, error) {
	r.meetings[id].TranscribeDone++
	return r.meetings[id].TranscribeDone, nil
}

func (r *fakeMeetingRepo) SaveKeyNotes(ctx context.Context, id string, notes []meeting.KeyNote) error {
	return nil
}

func (r *fakeMeetingRepo) IncrementSummarizeDone(ctx context.Context, id string) (int, error) {
	return 0, nil
}

func (r *fakeMeetingRepo) MarkCompleted(ctx context.Context, id string) error { return nil }
func (r *fakeMeetingRepo) FindByOwner(ctx context.Context, ownerID string) ([]meeting.Meeting, error) {
	return nil, nil
}

type fakeSplitter struct {
	chunks []audio.ChunkFile
	err    error
}

func (s *fakeSplitter) Split(sourcePath, stagingDir string, chunkDurationMs int64) ([]audio.ChunkFile, int64, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	return s.chunks, 0, nil
}

type fakeReader struct {
	body string
	err  error
}

func (r *fakeReader) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	if r.err != nil {
		return nil, r.err
	}
	return io.NopCloser(strings.NewReader(r.body)), nil
}

type fakePublisher struct {
	published []publishedMessage
}

type publishedMessage struct {
	exchange, routingKey, messageID string
	body                            interface{}
}

func (p *fakePublisher) Publish(ctx context.Context, exchange, routingKey, messageID string, body interface{}) error {
	p.published = append(p.published, publishedMessage{exchange, routingKey, messageID, body})
	return nil
}

func TestRunRejectsMeetingNotInDispatchableState(t *testing.T) {
	m := meeting.New("owner-1", "standup", "https://example.com/a.mp3")
	m.Status = meeting.StatusCompleted
	repo := newFakeMeetingRepo(m)

	d := &Dispatcher{Meetings: repo, Publisher: &fakePublisher{}}

	_, err := d.Run(context.Background(), broker.StartTranscribeMessage{MeetingID: m.GetID()})

	assert.Error(t, err)
}

func TestRunHappyPathPublishesOneChunkMessagePerChunk(t *testing.T) {
	// S1: 25-minute meeting split into 3 chunks.
	m := meeting.New("owner-1", "standup", "https://example.com/a.mp3")
	m.Status = meeting.StatusProcessing
	repo := newFakeMeetingRepo(m)

	chunks := []audio.ChunkFile{
		{ChunkID: 0, Path: "/tmp/chunk_0.mp3", OffsetSeconds: 0},
		{ChunkID: 1, Path: "/tmp/chunk_1.mp3", OffsetSeconds: 600},
		{ChunkID: 2, Path: "/tmp/chunk_2.mp3", OffsetSeconds: 1200},
	}
	pub := &fakePublisher{}

	d := &Dispatcher{
		Meetings:        repo,
		Splitter:        &fakeSplitter{chunks: chunks},
		HTTPReader:      &fakeReader{body: "fake-audio-bytes"},
		Publisher:       pub,
		StagingRoot:     t.TempDir(),
		ChunkDurationMs: 600_000,
	}

	result, err := d.Run(context.Background(), broker.StartTranscribeMessage{
		MeetingID: m.GetID(), AudioURL: "https://example.com/a.mp3",
	})

	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalChunks)
	require.Len(t, pub.published, 3)
	for i, msg := range pub.published {
		assert.Equal(t, broker.RoutingChunk, msg.routingKey)
		assert.Equal(t, broker.ChunkMessageID(m.GetID(), i), msg.messageID)
	}

	updated := repo.meetings[m.GetID()]
	assert.Equal(t, meeting.StatusTranscribing, updated.Status)
	assert.Equal(t, 3, updated.TranscribeTotal)
}

func TestRunMarksTranscribeFailedOnSplitError(t *testing.T) {
	// S6: a split failure must leave the meeting in transcribe_failed so a
	// redelivered dispatch message can retry via CanDispatch's
	// transcribe_failed branch.
	m := meeting.New("owner-1", "standup", "https://example.com/a.mp3")
	m.Status = meeting.StatusProcessing
	repo := newFakeMeetingRepo(m)

	d := &Dispatcher{
		Meetings:        repo,
		Splitter:        &fakeSplitter{err: assert.AnError},
		HTTPReader:      &fakeReader{body: "fake-audio-bytes"},
		Publisher:       &fakePublisher{},
		StagingRoot:     t.TempDir(),
		ChunkDurationMs: 600_000,
	}

	_, err := d.Run(context.Background(), broker.StartTranscribeMessage{
		MeetingID: m.GetID(), AudioURL: "https://example.com/a.mp3",
	})

	assert.Error(t, err)
	updated := repo.meetings[m.GetID()]
	assert.Equal(t, meeting.StatusTranscribeFailed, updated.Status)
	assert.NotEmpty(t, updated.FailureReason)
}
