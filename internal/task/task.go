// Package task holds the Task entity extracted by the summarizer's
// action-item stage.
package task

import (
	"time"

	"meetscribe/seedwork/domain"
)

// Priority is the task's urgency classification.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Status is the task's lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Task belongs to exactly one Meeting (cascade delete).
type Task struct {
	domain.BaseEntity
	MeetingID   string     `json:"meeting_id" gorm:"column:meeting_id;not null;index;constraint:OnDelete:CASCADE"`
	Title       string     `json:"title" gorm:"column:title;not null"`
	Description string     `json:"description" gorm:"column:description;type:text"`
	Assignee    string     `json:"assignee,omitempty" gorm:"column:assignee"`
	DueDate     *time.Time `json:"due_date,omitempty" gorm:"column:due_date"`
	Priority    Priority   `json:"priority" gorm:"column:priority;not null"`
	Status      Status     `json:"status" gorm:"column:status;not null"`
}

// TableName sets the table name for GORM.
func (Task) TableName() string {
	return "tasks"
}

// New creates a new Task in the pending status.
func New(meetingID, title, description, assignee string, dueDate *time.Time, priority Priority) Task {
	t := Task{
		MeetingID:   meetingID,
		Title:       title,
		Description: description,
		Assignee:    assignee,
		DueDate:     dueDate,
		Priority:    priority,
		Status:      StatusPending,
	}
	t.SetID(domain.GenerateID())
	return t
}
