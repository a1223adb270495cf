package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"meetscribe/internal/meeting"
	"meetscribe/internal/task"
)

const (
	keyNotesPromptTemplate      = "Extract key notes (as a JSON array of {\"category\", \"note\"} objects) from this meeting summary:\n\n%s"
	generateTasksPromptTemplate = "Extract action items (as a JSON array of task objects) from this meeting summary:\n\n%s"
)

// TaskDescriptor is the shape an LLM's task-extraction JSON array element
// decodes into, before being turned into a persisted task.Task.
type TaskDescriptor struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Assignee    string  `json:"assignee"`
	DueDate     *string `json:"due_date"`
	Priority    string  `json:"priority"`
}

// ExtractKeyNotes calls the LLM for a JSON array of key notes and parses
// it. A JSON decode error is swallowed into an empty list rather than
// propagated — spec.md §4.4 treats this as a soft failure, never a
// reason to fail the meeting.
func ExtractKeyNotes(ctx context.Context, provider Provider, summary string) []meeting.KeyNote {
	response, err := provider.Generate(ctx, fmt.Sprintf(keyNotesPromptTemplate, summary))
	if err != nil {
		return nil
	}

	var notes []meeting.KeyNote
	if err := json.Unmarshal([]byte(response), &notes); err != nil {
		return nil
	}
	return notes
}

// ExtractTasks calls the LLM for a JSON array of task descriptors and
// parses it. A JSON decode error yields zero tasks, matching
// ExtractKeyNotes's swallow policy.
func ExtractTasks(ctx context.Context, provider Provider, summary string) []TaskDescriptor {
	response, err := provider.Generate(ctx, fmt.Sprintf(generateTasksPromptTemplate, summary))
	if err != nil {
		return nil
	}

	var descriptors []TaskDescriptor
	if err := json.Unmarshal([]byte(response), &descriptors); err != nil {
		return nil
	}
	return descriptors
}

// ToTask converts a descriptor into a new, pending task.Task belonging to
// meetingID. Unknown/missing priority defaults to medium, matching the
// original implementation's `task_data.get("priority", "medium")`.
func (d TaskDescriptor) ToTask(meetingID string) task.Task {
	priority := task.PriorityMedium
	switch d.Priority {
	case string(task.PriorityHigh):
		priority = task.PriorityHigh
	case string(task.PriorityLow):
		priority = task.PriorityLow
	}

	var dueDate *time.Time
	if d.DueDate != nil {
		if parsed, err := time.Parse("2006-01-02", *d.DueDate); err == nil {
			dueDate = &parsed
		}
	}

	return task.New(meetingID, d.Title, d.Description, d.Assignee, dueDate, priority)
}
