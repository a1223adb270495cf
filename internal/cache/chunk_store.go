// Package cache implements the completion-barrier ChunkResult store
// against Redis: one writer per chunk worker, one reader (the merger),
// keyed by (meeting_id, chunk_id), TTL-bounded.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	pkgerrors "meetscribe/internal/errors"
	"meetscribe/internal/meeting"
)

// ChunkStatus is the per-chunk outcome recorded by a chunk worker.
type ChunkStatus string

const (
	ChunkSuccess ChunkStatus = "success"
	ChunkFailed  ChunkStatus = "failed"
)

// ChunkResult is the ephemeral, cache-only record of one chunk's
// transcription outcome.
type ChunkResult struct {
	ChunkID  int               `json:"chunk_id"`
	Status   ChunkStatus       `json:"status"`
	Error    string            `json:"error,omitempty"`
	Segments []meeting.Segment `json:"segments"`
}

// ChunkStore is the Redis-backed ChunkResult store.
type ChunkStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewChunkStore creates a ChunkStore with the given TTL.
func NewChunkStore(client *redis.Client, ttl time.Duration) *ChunkStore {
	return &ChunkStore{client: client, ttl: ttl}
}

func chunkKey(meetingID string, chunkID int) string {
	return fmt.Sprintf("chunks:%s:%d", meetingID, chunkID)
}

func chunkPattern(meetingID string) string {
	return fmt.Sprintf("chunks:%s:*", meetingID)
}

// Save writes a ChunkResult under chunks:<meeting_id>:<chunk_id> with the
// store's TTL.
func (s *ChunkStore) Save(ctx context.Context, meetingID string, result ChunkResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return &pkgerrors.StorageError{Op: "marshal chunk result", Err: err}
	}
	if err := s.client.Set(ctx, chunkKey(meetingID, result.ChunkID), data, s.ttl).Err(); err != nil {
		return &pkgerrors.StorageError{Op: "save chunk result", Err: err}
	}
	return nil
}

// Count returns the number of cache keys currently recorded for a
// meeting — the completion counter in spec.md §4.2 step 5.
func (s *ChunkStore) Count(ctx context.Context, meetingID string) (int, error) {
	keys, err := s.scanKeys(ctx, meetingID)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// GetAll fetches every ChunkResult recorded for a meeting, sorted by
// chunk_id ascending (spec.md §4.3 step 1).
func (s *ChunkStore) GetAll(ctx context.Context, meetingID string) ([]ChunkResult, error) {
	keys, err := s.scanKeys(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, &pkgerrors.StorageError{Op: "mget chunk results", Err: err}
	}

	results := make([]ChunkResult, 0, len(values))
	for _, v := range values {
		if v == nil {
			continue
		}
		str, ok := v.(string)
		if !ok {
			continue
		}
		var r ChunkResult
		if err := json.Unmarshal([]byte(str), &r); err != nil {
			return nil, &pkgerrors.StorageError{Op: "unmarshal chunk result", Err: err}
		}
		results = append(results, r)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].ChunkID < results[j].ChunkID })
	return results, nil
}

// DeleteAll removes every cache key for a meeting (merger cleanup,
// spec.md §4.3 step 6 / invariant 7).
func (s *ChunkStore) DeleteAll(ctx context.Context, meetingID string) error {
	keys, err := s.scanKeys(ctx, meetingID)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return &pkgerrors.StorageError{Op: "delete chunk results", Err: err}
	}
	return nil
}

func (s *ChunkStore) scanKeys(ctx context.Context, meetingID string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	pattern := chunkPattern(meetingID)
	for {
		batch, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, &pkgerrors.StorageError{Op: "scan chunk keys", Err: err}
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}
