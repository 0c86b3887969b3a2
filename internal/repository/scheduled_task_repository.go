package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/markbot/orchestrator/internal/apperrors"
	"github.com/markbot/orchestrator/internal/model"
)

type ScheduledTaskRepositoryInterface interface {
	Create(ctx context.Context, t *model.ScheduledTask) error
	GetByID(ctx context.Context, id string) (*model.ScheduledTask, error)
	UpdateStatus(ctx context.Context, id string, status model.TaskStatus) error
	ListPending(ctx context.Context, before time.Time) ([]*model.ScheduledTask, error)
}

type ScheduledTaskRepository struct {
	DB *sql.DB
}

func (r *ScheduledTaskRepository) Create(ctx context.Context, t *model.ScheduledTask) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	if t.Status == "" {
		t.Status = model.TaskPending
	}
	payload, err := json.Marshal(t.Payload)
	if err != nil {
		return err
	}
	query := `
        INSERT INTO scheduled_tasks (id, task_type, description, scheduled_at, created_by, status, payload, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	_, err = r.DB.ExecContext(ctx, query,
		t.ID, t.TaskType, t.Description, t.ScheduledAt, t.CreatedBy, t.Status, payload, t.CreatedAt)
	return err
}

func (r *ScheduledTaskRepository) GetByID(ctx context.Context, id string) (*model.ScheduledTask, error) {
	query := `
        SELECT id, task_type, description, scheduled_at, created_by, status, payload, created_at
        FROM scheduled_tasks WHERE id=$1
    `
	var (
		t       model.ScheduledTask
		payload []byte
	)
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.TaskType, &t.Description, &t.ScheduledAt,
		&t.CreatedBy, &t.Status, &payload, &t.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NewNotFound("task", id)
		}
		return nil, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &t.Payload); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

func (r *ScheduledTaskRepository) UpdateStatus(ctx context.Context, id string, status model.TaskStatus) error {
	query := `UPDATE scheduled_tasks SET status=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.DB.ExecContext(ctx, query, status, id)
	return err
}

func (r *ScheduledTaskRepository) ListPending(ctx context.Context, before time.Time) ([]*model.ScheduledTask, error) {
	query := `
        SELECT id, task_type, description, scheduled_at, created_by, status, payload, created_at
        FROM scheduled_tasks
        WHERE status='pending' AND scheduled_at <= $1
        ORDER BY scheduled_at ASC
    `
	rows, err := r.DB.QueryContext(ctx, query, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []*model.ScheduledTask{}
	for rows.Next() {
		t := &model.ScheduledTask{}
		var payload []byte
		if err := rows.Scan(&t.ID, &t.TaskType, &t.Description, &t.ScheduledAt,
			&t.CreatedBy, &t.Status, &payload, &t.CreatedAt); err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &t.Payload); err != nil {
				return nil, err
			}
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

var _ ScheduledTaskRepositoryInterface = (*ScheduledTaskRepository)(nil)
