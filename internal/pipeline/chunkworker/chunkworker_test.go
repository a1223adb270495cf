package chunkworker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetscribe/internal/broker"
	"meetscribe/internal/cache"
	"meetscribe/internal/meeting"
)

type fakeChunkStore struct {
	saved       map[int]cache.ChunkResult
	preexisting int
}

func newFakeChunkStore(existingCount int) *fakeChunkStore {
	return &fakeChunkStore{saved: map[int]cache.ChunkResult{}, preexisting: existingCount}
}

func (s *fakeChunkStore) Save(ctx context.Context, meetingID string, result cache.ChunkResult) error {
	s.saved[result.ChunkID] = result
	return nil
}

// Count mirrors the real store's key scan: overwriting a chunk's entry
// on redelivery leaves the count unchanged.
func (s *fakeChunkStore) Count(ctx context.Context, meetingID string) (int, error) {
	return s.preexisting + len(s.saved), nil
}

type fakeMeetingCounter struct{ done int }

func (c *fakeMeetingCounter) IncrementTranscribeDone(ctx context.Context, id string) (int, error) {
	c.done++
	return c.done, nil
}

type fakeProvider struct {
	segments []meeting.Segment
	err      error
}

func (p *fakeProvider) Transcribe(ctx context.Context, filePath string) ([]meeting.Segment, error) {
	return p.segments, p.err
}

type fakePublisher struct {
	published []broker.MergeMessage
}

func (p *fakePublisher) Publish(ctx context.Context, exchange, routingKey, messageID string, body interface{}) error {
	if mm, ok := body.(broker.MergeMessage); ok {
		p.published = append(p.published, mm)
	}
	return nil
}

func TestRunAppliesOffsetAndSavesSuccess(t *testing.T) {
	chunks := newFakeChunkStore(0)
	pub := &fakePublisher{}
	w := &Worker{
		Meetings:  &fakeMeetingCounter{},
		Chunks:    chunks,
		Provider:  &fakeProvider{segments: []meeting.Segment{{Start: 0, End: 5, Text: "hello"}}},
		Publisher: pub,
	}

	err := w.Run(context.Background(), broker.ChunkMessage{
		MeetingID: "m1", ChunkID: 1, TotalChunks: 3, OffsetSeconds: 600,
	})

	require.NoError(t, err)
	saved := chunks.saved[1]
	assert.Equal(t, cache.ChunkSuccess, saved.Status)
	assert.Equal(t, 600.0, saved.Segments[0].Start)
	assert.Equal(t, 605.0, saved.Segments[0].End)
	assert.Empty(t, pub.published, "barrier not yet tripped: only 1 of 3 chunks reported")
}

func TestRunPublishesMergeOnceBarrierTrips(t *testing.T) {
	// S1: the third of three chunks to report in trips the barrier.
	chunks := newFakeChunkStore(2)
	pub := &fakePublisher{}
	w := &Worker{
		Meetings:  &fakeMeetingCounter{},
		Chunks:    chunks,
		Provider:  &fakeProvider{segments: []meeting.Segment{{Start: 0, End: 1, Text: "x"}}},
		Publisher: pub,
	}

	err := w.Run(context.Background(), broker.ChunkMessage{MeetingID: "m1", ChunkID: 2, TotalChunks: 3})

	require.NoError(t, err)
	require.Len(t, pub.published, 1)
	assert.Equal(t, "m1", pub.published[0].MeetingID)
}

func TestRunRecordsFailedChunkAndStillCountsTowardBarrier(t *testing.T) {
	// S2: a permanently failing chunk is recorded failed, not dropped, and
	// still trips the barrier like any other reporting chunk.
	chunks := newFakeChunkStore(2)
	pub := &fakePublisher{}
	w := &Worker{
		Meetings:  &fakeMeetingCounter{},
		Chunks:    chunks,
		Provider:  &fakeProvider{err: errors.New("provider unavailable")},
		Publisher: pub,
	}

	err := w.Run(context.Background(), broker.ChunkMessage{MeetingID: "m1", ChunkID: 2, TotalChunks: 3})

	require.NoError(t, err)
	saved := chunks.saved[2]
	assert.Equal(t, cache.ChunkFailed, saved.Status)
	assert.Contains(t, saved.Error, "provider unavailable")
	assert.Len(t, pub.published, 1)
}
