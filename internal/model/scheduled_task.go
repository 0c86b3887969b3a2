package model

import "time"

type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

// ScheduledTask is a generic deferred unit of work (a reminder, a report
// run) not tied to an outreach campaign. Payload is an opaque bag handed
// to the execution callback.
type ScheduledTask struct {
	ID          string         `db:"id" json:"id"`
	TaskType    string         `db:"task_type" json:"task_type"`
	Description string         `db:"description" json:"description"`
	ScheduledAt time.Time      `db:"scheduled_at" json:"scheduled_at"`
	CreatedBy   string         `db:"created_by" json:"created_by"`
	Status      TaskStatus     `db:"status" json:"status"`
	Payload     map[string]any `db:"payload" json:"payload,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}
