package domain

import "time"

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// Task tracks one background job, e.g. processing an upload.
type Task struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	ResourceID string     `json:"resource_id,omitempty"`
	Status     TaskStatus `json:"status"`
	Progress   int        `json:"progress"` // 0-100
	Message    string     `json:"message"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
