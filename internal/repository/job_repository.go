package repository

import (
	"context"
	"database/sql"

	"github.com/markbot/orchestrator/internal/model"
)

// JobRepository is the durable backing for the scheduler's job table.
// Upsert carries the same replace-on-reschedule semantics as the
// in-memory table: the job id is the conflict key and the last writer
// wins.
type JobRepository struct {
	DB *sql.DB
}

func (r *JobRepository) Upsert(ctx context.Context, j model.Job) error {
	query := `
        INSERT INTO jobs (id, kind, entity_id, run_at, cron_spec)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (id) DO UPDATE
        SET kind=EXCLUDED.kind, entity_id=EXCLUDED.entity_id,
            run_at=EXCLUDED.run_at, cron_spec=EXCLUDED.cron_spec
    `
	_, err := r.DB.ExecContext(ctx, query, j.ID, j.Kind, j.EntityID, j.RunAt, j.CronSpec)
	return err
}

func (r *JobRepository) Delete(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM jobs WHERE id=$1`, id)
	return err
}

func (r *JobRepository) List(ctx context.Context) ([]model.Job, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, kind, entity_id, run_at, cron_spec FROM jobs`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := []model.Job{}
	for rows.Next() {
		var j model.Job
		if err := rows.Scan(&j.ID, &j.Kind, &j.EntityID, &j.RunAt, &j.CronSpec); err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
