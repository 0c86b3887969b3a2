package model

import "time"

// Job is a scheduler record pairing a trigger with a handler kind and an
// entity id. Jobs carry ids, never live objects, so the table can be
// reloaded from durable storage after a restart.
type Job struct {
	ID       string    `db:"id" json:"id"`
	Kind     string    `db:"kind" json:"kind"`
	EntityID string    `db:"entity_id" json:"entity_id"`
	RunAt    time.Time `db:"run_at" json:"run_at"`
	CronSpec string    `db:"cron_spec" json:"cron_spec,omitempty"`
}

// Recurring reports whether the job has a cron trigger rather than a
// one-shot run time.
func (j Job) Recurring() bool { return j.CronSpec != "" }
