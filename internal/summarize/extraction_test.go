package summarize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"meetscribe/internal/meeting"
	"meetscribe/internal/task"
)

func TestExtractKeyNotesParsesJSON(t *testing.T) {
	p := &fakeProvider{responses: []string{`[{"category":"Decision","note":"ship it"}]`}}

	notes := ExtractKeyNotes(context.Background(), p, "a summary")

	assert.Equal(t, []meeting.KeyNote{{Category: meeting.CategoryDecision, Note: "ship it"}}, notes)
}

func TestExtractKeyNotesSwallowsNonJSON(t *testing.T) {
	// S5: LLM returns non-JSON for key notes — persisted as an empty
	// list, never a pipeline failure.
	p := &fakeProvider{responses: []string{"not json at all"}}

	notes := ExtractKeyNotes(context.Background(), p, "a summary")

	assert.Nil(t, notes)
}

func TestExtractTasksSwallowsNonJSON(t *testing.T) {
	p := &fakeProvider{responses: []string{"<<not json>>"}}

	descriptors := ExtractTasks(context.Background(), p, "a summary")

	assert.Nil(t, descriptors)
}

func TestTaskDescriptorToTaskDefaultsPriorityMedium(t *testing.T) {
	d := TaskDescriptor{Title: "follow up", Priority: "urgent-ish-typo"}

	got := d.ToTask("meeting-1")

	assert.Equal(t, task.PriorityMedium, got.Priority)
	assert.Equal(t, task.StatusPending, got.Status)
	assert.Equal(t, "meeting-1", got.MeetingID)
}

func TestTaskDescriptorToTaskParsesDueDate(t *testing.T) {
	due := "2026-08-01"
	d := TaskDescriptor{Title: "x", DueDate: &due}

	got := d.ToTask("meeting-1")

	if assert.NotNil(t, got.DueDate) {
		assert.Equal(t, 2026, got.DueDate.Year())
	}
}
