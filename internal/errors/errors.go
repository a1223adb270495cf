// Package errors defines the typed error taxonomy shared by every pipeline
// stage. Each error type carries its own retriable-ness so a worker's
// task-level retry wrapper can decide to requeue or fail terminally without
// string-matching error messages.
package errors

import "fmt"

// Retriable is implemented by every error in this package.
type Retriable interface {
	error
	Retriable() bool
}

// NotFoundError indicates a referenced entity does not exist. Never retried.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Retriable() bool { return false }

// InvalidStateError indicates an entity is not in a state that permits the
// requested operation. Never retried.
type InvalidStateError struct {
	Kind    string
	State   string
	Wanted  string
	Message string
}

func (e *InvalidStateError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s in state %q cannot %s", e.Kind, e.State, e.Wanted)
}

func (e *InvalidStateError) Retriable() bool { return false }

// StreamingError is the generic retriable error for streaming-reader
// failures that don't fall into a more specific subclass.
type StreamingError struct {
	URL string
	Err error
}

func (e *StreamingError) Error() string {
	return fmt.Sprintf("streaming %s: %v", e.URL, e.Err)
}

func (e *StreamingError) Unwrap() error { return e.Err }

func (e *StreamingError) Retriable() bool { return true }

// ThrottlingError indicates the object-store backend asked the reader to
// slow down. Retried inside the reader itself with exponential backoff.
type ThrottlingError struct {
	URL     string
	Attempt int
}

func (e *ThrottlingError) Error() string {
	return fmt.Sprintf("throttled reading %s (attempt %d)", e.URL, e.Attempt)
}

func (e *ThrottlingError) Retriable() bool { return true }

// NetworkRetryExhaustedError is raised once a streaming reader has used up
// its retry budget. Escalates to task-level retry.
type NetworkRetryExhaustedError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *NetworkRetryExhaustedError) Error() string {
	return fmt.Sprintf("exhausted %d retries reading %s: %v", e.Attempts, e.URL, e.Err)
}

func (e *NetworkRetryExhaustedError) Unwrap() error { return e.Err }

func (e *NetworkRetryExhaustedError) Retriable() bool { return true }

// AudioProcessingError indicates a decode or split failure. Task-level
// retry; on exhaustion the dispatcher marks the meeting transcribe_failed.
type AudioProcessingError struct {
	MeetingID string
	Err       error
}

func (e *AudioProcessingError) Error() string {
	return fmt.Sprintf("audio processing failed for meeting %s: %v", e.MeetingID, e.Err)
}

func (e *AudioProcessingError) Unwrap() error { return e.Err }

func (e *AudioProcessingError) Retriable() bool { return true }

// TranscriptionFailedError indicates the transcription provider returned an
// error. It is marked retriable, but the chunk worker does not return
// provider errors: it stores the chunk as failed in the cache on the first
// failure, so no task-level retry of the transcription takes place.
type TranscriptionFailedError struct {
	ChunkID int
	Err     error
}

func (e *TranscriptionFailedError) Error() string {
	return fmt.Sprintf("transcription failed for chunk %d: %v", e.ChunkID, e.Err)
}

func (e *TranscriptionFailedError) Unwrap() error { return e.Err }

func (e *TranscriptionFailedError) Retriable() bool { return true }

// StorageError wraps a cache or relational-store failure. Retried at task
// level.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Retriable() bool { return true }

// LLMServiceError wraps a summarization/LLM provider failure after its
// internal retries are exhausted. Not retried further at task level; the
// summarize job transitions the meeting to summarize_failed.
type LLMServiceError struct {
	Err error
}

func (e *LLMServiceError) Error() string {
	return fmt.Sprintf("llm service error: %v", e.Err)
}

func (e *LLMServiceError) Unwrap() error { return e.Err }

func (e *LLMServiceError) Retriable() bool { return false }
