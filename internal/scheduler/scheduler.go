package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/markbot/orchestrator/internal/apperrors"
	"github.com/markbot/orchestrator/internal/model"
)

// Handler executes one fired job. Jobs address their work by entity id;
// the handler re-reads whatever it needs from storage.
type Handler func(ctx context.Context, entityID string) error

// Store is the optional durable backing for the job table. Upsert keyed
// by job id carries the same replace-on-reschedule semantics as the
// in-memory table.
type Store interface {
	Upsert(ctx context.Context, j model.Job) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]model.Job, error)
}

// PendingJob is one row of the observable job table.
type PendingJob struct {
	ID      string    `json:"id"`
	NextRun time.Time `json:"next_run"`
	Trigger string    `json:"trigger"`
}

type entry struct {
	model.Job
	next  time.Time
	sched cron.Schedule // nil for one-shot jobs
}

// Scheduler holds a table of pending time-triggered jobs and fires them
// at or after their trigger time. Scheduling the same job id again
// atomically replaces the previous registration. Firing is serialized
// on a single run loop, so no job ever runs concurrently with itself;
// retries are the callback's business, not the scheduler's.
type Scheduler struct {
	mu       sync.Mutex
	jobs     map[string]*entry
	handlers map[string]Handler

	store Store
	grace time.Duration

	callbackTimeout time.Duration
	parser          cron.Parser

	wake chan struct{}
	done chan struct{}
	once sync.Once

	now func() time.Time
	log *logrus.Logger
}

// New builds a scheduler. store may be nil for a purely in-memory
// table; with a store, call Load before Start so pending jobs survive a
// restart. grace bounds how stale an overdue one-shot job may be and
// still fire on reload.
func New(store Store, callbackTimeout, grace time.Duration, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		jobs:            make(map[string]*entry),
		handlers:        make(map[string]Handler),
		store:           store,
		grace:           grace,
		callbackTimeout: callbackTimeout,
		parser:          cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		wake:            make(chan struct{}, 1),
		done:            make(chan struct{}),
		now:             time.Now,
		log:             log,
	}
}

// RegisterHandler binds a job kind to its callback. Handlers must be
// registered before jobs of that kind are scheduled.
func (s *Scheduler) RegisterHandler(kind string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[kind] = h
}

// ScheduleOnce registers a one-shot job. An existing job under the same
// id is replaced; last writer wins, duplicates are impossible.
func (s *Scheduler) ScheduleOnce(ctx context.Context, id, kind, entityID string, runAt time.Time) error {
	return s.schedule(ctx, model.Job{ID: id, Kind: kind, EntityID: entityID, RunAt: runAt})
}

// ScheduleRecurring registers a cron-triggered job. The spec is five
// fields (minute, hour, day-of-month, month, day-of-week); missing
// trailing fields default to "*".
func (s *Scheduler) ScheduleRecurring(ctx context.Context, id, kind, entityID, cronSpec string) error {
	normalized, err := normalizeCronSpec(cronSpec)
	if err != nil {
		return &apperrors.SchedulingError{JobID: id, Reason: err.Error()}
	}
	return s.schedule(ctx, model.Job{ID: id, Kind: kind, EntityID: entityID, CronSpec: normalized})
}

func (s *Scheduler) schedule(ctx context.Context, j model.Job) error {
	s.mu.Lock()
	if _, ok := s.handlers[j.Kind]; !ok {
		s.mu.Unlock()
		return &apperrors.SchedulingError{JobID: j.ID, Reason: fmt.Sprintf("no handler registered for kind %q", j.Kind)}
	}
	s.mu.Unlock()

	e := &entry{Job: j, next: j.RunAt}
	if j.Recurring() {
		sched, err := s.parser.Parse(j.CronSpec)
		if err != nil {
			return &apperrors.SchedulingError{JobID: j.ID, Reason: fmt.Sprintf("bad cron spec %q: %v", j.CronSpec, err)}
		}
		e.sched = sched
		e.next = sched.Next(s.now())
		e.RunAt = e.next
	}

	if s.store != nil {
		stored := e.Job
		stored.RunAt = e.next
		if err := s.store.Upsert(ctx, stored); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.jobs[j.ID] = e
	s.mu.Unlock()
	s.poke()
	return nil
}

// Cancel removes a pending job. It reports false when no job exists
// under the id - including a one-shot whose firing has already begun.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	_, ok := s.jobs[id]
	if ok {
		delete(s.jobs, id)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	if s.store != nil {
		if err := s.store.Delete(context.Background(), id); err != nil {
			s.log.WithError(err).WithField("job_id", id).Warn("failed to delete job from store")
		}
	}
	s.poke()
	return true
}

// ListPending snapshots the job table ordered by next run time.
func (s *Scheduler) ListPending() []PendingJob {
	s.mu.Lock()
	pending := make([]PendingJob, 0, len(s.jobs))
	for _, e := range s.jobs {
		trigger := "once at " + e.next.Format(time.RFC3339)
		if e.sched != nil {
			trigger = "cron " + e.CronSpec
		}
		pending = append(pending, PendingJob{ID: e.ID, NextRun: e.next, Trigger: trigger})
	}
	s.mu.Unlock()

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].NextRun.Before(pending[j].NextRun)
	})
	return pending
}

// Load restores the job table from the durable store. One-shot jobs
// overdue by more than the grace window are dropped; overdue jobs
// within it fire as soon as the loop starts.
func (s *Scheduler) Load(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	jobs, err := s.store.List(ctx)
	if err != nil {
		return err
	}

	now := s.now()
	for _, j := range jobs {
		e := &entry{Job: j, next: j.RunAt}
		if j.Recurring() {
			sched, err := s.parser.Parse(j.CronSpec)
			if err != nil {
				s.log.WithError(err).WithField("job_id", j.ID).Warn("dropping job with bad cron spec")
				_ = s.store.Delete(ctx, j.ID)
				continue
			}
			e.sched = sched
			e.next = sched.Next(now)
		} else if j.RunAt.Before(now.Add(-s.grace)) {
			s.log.WithField("job_id", j.ID).Warn("dropping stale one-shot job")
			_ = s.store.Delete(ctx, j.ID)
			continue
		}
		s.mu.Lock()
		s.jobs[j.ID] = e
		s.mu.Unlock()
	}

	s.log.WithField("jobs", len(s.jobs)).Info("job table reloaded")
	return nil
}

// Start launches the run loop.
func (s *Scheduler) Start() { go s.run() }

// Stop halts the run loop. A callback already running completes; there
// is no mid-callback cancellation.
func (s *Scheduler) Stop() { s.once.Do(func() { close(s.done) }) }

func (s *Scheduler) run() {
	for {
		wait := time.Hour
		now := s.now()

		s.mu.Lock()
		for _, e := range s.jobs {
			if d := e.next.Sub(now); d < wait {
				wait = d
			}
		}
		s.mu.Unlock()
		if wait < 0 {
			wait = 0
		}

		timer := time.NewTimer(wait)
		select {
		case <-s.done:
			timer.Stop()
			return
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
			s.fireDue()
		}
	}
}

// fireDue fires every job whose trigger time has passed, in trigger
// order. One-shot jobs leave the table the moment firing begins, which
// is what makes a late Cancel a no-op.
func (s *Scheduler) fireDue() {
	now := s.now()

	s.mu.Lock()
	due := make([]*entry, 0)
	for _, e := range s.jobs {
		if !e.next.After(now) {
			due = append(due, e)
		}
	}
	for _, e := range due {
		if e.sched == nil {
			delete(s.jobs, e.ID)
		}
	}
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].next.Before(due[j].next) })

	for _, e := range due {
		s.invoke(e)

		if e.sched == nil {
			if s.store != nil {
				if err := s.store.Delete(context.Background(), e.ID); err != nil {
					s.log.WithError(err).WithField("job_id", e.ID).Warn("failed to delete fired job from store")
				}
			}
			continue
		}

		next := e.sched.Next(s.now())
		s.mu.Lock()
		cur, ok := s.jobs[e.ID]
		if ok && cur == e {
			e.next = next
		}
		s.mu.Unlock()
		if ok && cur == e && s.store != nil {
			stored := e.Job
			stored.RunAt = next
			if err := s.store.Upsert(context.Background(), stored); err != nil {
				s.log.WithError(err).WithField("job_id", e.ID).Warn("failed to persist next run time")
			}
		}
	}
}

func (s *Scheduler) invoke(e *entry) {
	s.mu.Lock()
	h := s.handlers[e.Kind]
	s.mu.Unlock()
	if h == nil {
		s.log.WithField("job_id", e.ID).Error("fired job has no handler")
		return
	}

	ctx := context.Background()
	if s.callbackTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.callbackTimeout)
		defer cancel()
	}

	if err := h(ctx, e.EntityID); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"job_id": e.ID,
			"kind":   e.Kind,
		}).Error("job callback failed")
	}
}

func (s *Scheduler) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// normalizeCronSpec pads a partial cron expression out to the five
// standard fields.
func normalizeCronSpec(spec string) (string, error) {
	fields := strings.Fields(spec)
	if len(fields) == 0 {
		return "", fmt.Errorf("empty cron spec")
	}
	if len(fields) > 5 {
		return "", fmt.Errorf("cron spec %q has %d fields, want at most 5", spec, len(fields))
	}
	for len(fields) < 5 {
		fields = append(fields, "*")
	}
	return strings.Join(fields, " "), nil
}
