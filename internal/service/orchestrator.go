package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/markbot/orchestrator/internal/apperrors"
	"github.com/markbot/orchestrator/internal/mailer"
	"github.com/markbot/orchestrator/internal/model"
	"github.com/markbot/orchestrator/internal/platform"
	"github.com/markbot/orchestrator/internal/queue"
	"github.com/markbot/orchestrator/internal/repository"
	"github.com/markbot/orchestrator/internal/scheduler"
)

// Job kinds registered with the scheduler. A job carries only a kind
// and an entity id; the handler re-reads the entity when it fires.
const (
	JobKindSendCampaign = "send_campaign"
	JobKindPublishPost  = "publish_post"
	JobKindExecuteTask  = "execute_task"
)

func campaignJobID(id string) string { return "campaign_" + id }
func postJobID(id string) string     { return "post_" + id }
func taskJobID(id string) string     { return "task_" + id }

// JobScheduler is the slice of the scheduler the orchestrator drives.
type JobScheduler interface {
	RegisterHandler(kind string, h scheduler.Handler)
	ScheduleOnce(ctx context.Context, id, kind, entityID string, runAt time.Time) error
	ScheduleRecurring(ctx context.Context, id, kind, entityID, cronSpec string) error
	Cancel(id string) bool
	ListPending() []scheduler.PendingJob
}

// PostDispatcher is the fan-out publish contract.
type PostDispatcher interface {
	Publish(ctx context.Context, p platform.Platform, content, link string) platform.Result
	PublishMany(ctx context.Context, targets []platform.Platform, content, link string) map[platform.Platform]platform.Result
}

// Orchestrator owns the Campaign/ScheduledTask/SocialPost lifecycle: it
// builds the records, registers jobs, and at fire time drives the
// dispatcher or the mail collaborator and writes results back. Entities
// live in storage; the orchestrator never keeps one in memory past a
// single call.
type Orchestrator struct {
	Campaigns  repository.CampaignRepositoryInterface
	Posts      repository.SocialPostRepositoryInterface
	Tasks      repository.ScheduledTaskRepositoryInterface
	Customers  repository.CustomerRepositoryInterface
	Scheduler  JobScheduler
	Dispatcher PostDispatcher
	Mailer     mailer.Mailer
	Events     queue.Queue
	Log        *logrus.Logger
}

func NewOrchestrator(
	campaigns repository.CampaignRepositoryInterface,
	posts repository.SocialPostRepositoryInterface,
	tasks repository.ScheduledTaskRepositoryInterface,
	customers repository.CustomerRepositoryInterface,
	sched JobScheduler,
	dispatcher PostDispatcher,
	m mailer.Mailer,
	events queue.Queue,
	log *logrus.Logger,
) *Orchestrator {
	o := &Orchestrator{
		Campaigns:  campaigns,
		Posts:      posts,
		Tasks:      tasks,
		Customers:  customers,
		Scheduler:  sched,
		Dispatcher: dispatcher,
		Mailer:     m,
		Events:     events,
		Log:        log,
	}
	o.Scheduler.RegisterHandler(JobKindSendCampaign, o.sendCampaign)
	o.Scheduler.RegisterHandler(JobKindPublishPost, o.publishPost)
	o.Scheduler.RegisterHandler(JobKindExecuteTask, o.executeTask)
	return o
}

// ====================== Campaigns ======================

// CreateCampaign persists a draft campaign. With a schedule time it
// also registers the send job and moves the campaign to scheduled;
// without one the campaign waits for an explicit send.
func (o *Orchestrator) CreateCampaign(ctx context.Context, title string, recipients []model.Recipient, subject, body string, scheduledAt *time.Time) (*model.Campaign, error) {
	if len(recipients) == 0 {
		return nil, apperrors.NewValidation("recipients", "at least one recipient required")
	}

	c := &model.Campaign{
		ID:          uuid.NewString(),
		Title:       title,
		Recipients:  recipients,
		Subject:     subject,
		Body:        body,
		ScheduledAt: scheduledAt,
		Status:      model.CampaignDraft,
		CreatedAt:   time.Now(),
	}
	if err := o.Campaigns.Create(ctx, c); err != nil {
		return nil, err
	}

	if scheduledAt != nil {
		if err := o.Scheduler.ScheduleOnce(ctx, campaignJobID(c.ID), JobKindSendCampaign, c.ID, *scheduledAt); err != nil {
			return nil, err
		}
		if err := o.Campaigns.UpdateStatus(ctx, c.ID, model.CampaignScheduled, 0); err != nil {
			return nil, err
		}
		c.Status = model.CampaignScheduled
	}

	o.Log.WithFields(logrus.Fields{
		"campaign_id": c.ID,
		"recipients":  len(recipients),
		"status":      c.Status,
	}).Info("campaign created")
	return c, nil
}

// SendCampaignNow sends a campaign immediately, cancelling any pending
// scheduled send for the same campaign first.
func (o *Orchestrator) SendCampaignNow(ctx context.Context, campaignID string) (mailer.BulkResult, error) {
	o.Scheduler.Cancel(campaignJobID(campaignID))
	return o.executeCampaign(ctx, campaignID)
}

// sendCampaign is the scheduler callback for a fired campaign job.
func (o *Orchestrator) sendCampaign(ctx context.Context, campaignID string) error {
	_, err := o.executeCampaign(ctx, campaignID)
	return err
}

// executeCampaign re-reads the campaign by id - never a stale in-memory
// snapshot - renders per recipient, sends in bulk, and records the
// outcome. Partial recipient failures still finalize the campaign as
// sent with a reduced sent_count; only a total inability to read the
// campaign or run the sender marks it failed.
func (o *Orchestrator) executeCampaign(ctx context.Context, campaignID string) (mailer.BulkResult, error) {
	c, err := o.Campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return mailer.BulkResult{}, &apperrors.ExecutionError{CampaignID: campaignID, Cause: err}
	}
	if c.Status.Terminal() {
		o.Log.WithField("campaign_id", campaignID).Info("campaign already finalized, skipping send")
		return mailer.BulkResult{Sent: c.SentCount}, nil
	}

	result, err := o.Mailer.SendBulk(ctx, c.Recipients, c.Subject, c.Body)
	if err != nil {
		if uerr := o.Campaigns.UpdateStatus(ctx, campaignID, model.CampaignFailed, 0); uerr != nil {
			o.Log.WithError(uerr).WithField("campaign_id", campaignID).Error("failed to mark campaign failed")
		}
		return mailer.BulkResult{}, &apperrors.ExecutionError{CampaignID: campaignID, Cause: err}
	}

	if err := o.Campaigns.UpdateStatus(ctx, campaignID, model.CampaignSent, result.Sent); err != nil {
		return result, err
	}

	o.publishEvent(queue.EventCampaignSent, campaignID, map[string]any{
		"title":  c.Title,
		"sent":   result.Sent,
		"failed": result.Failed,
	})
	o.Log.WithFields(logrus.Fields{
		"campaign_id": campaignID,
		"sent":        result.Sent,
		"failed":      result.Failed,
	}).Info("campaign sent")
	return result, nil
}

// RenderPreview renders the campaign body for one recipient, optionally
// against an override template.
func (o *Orchestrator) RenderPreview(ctx context.Context, campaignID string, recipient model.Recipient, overrideTemplate *string) (string, error) {
	c, err := o.Campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return "", err
	}

	template := c.Body
	if overrideTemplate != nil && strings.TrimSpace(*overrideTemplate) != "" {
		template = *overrideTemplate
	}
	if strings.TrimSpace(template) == "" {
		return "", apperrors.NewValidation("template", "template cannot be empty")
	}

	return RenderTemplate(template, map[string]string{
		"name":  recipient.Name,
		"email": recipient.Email,
	}), nil
}

// CollectRecipients builds a campaign audience from the customer store.
// Customers without an email address are skipped.
func (o *Orchestrator) CollectRecipients(ctx context.Context, filter model.CustomerFilter) ([]model.Recipient, error) {
	customers, err := o.Customers.Query(ctx, filter)
	if err != nil {
		return nil, err
	}
	recipients := make([]model.Recipient, 0, len(customers))
	for _, c := range customers {
		if c.Email == "" {
			continue
		}
		recipients = append(recipients, model.Recipient{
			Email:       c.Email,
			Name:        c.Name,
			CustomerID:  c.ID,
			TotalOrders: c.TotalOrders,
		})
	}
	return recipients, nil
}

func (o *Orchestrator) GetCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	return o.Campaigns.GetByID(ctx, id)
}

// ListCampaigns fetches campaigns with pagination.
func (o *Orchestrator) ListCampaigns(ctx context.Context, page, pageSize int, status string) ([]*model.Campaign, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	campaigns, total, err := o.Campaigns.List(ctx, offset, pageSize, status)
	if err != nil {
		return nil, nil, err
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}
	return campaigns, pagination, nil
}

// ====================== Social posts ======================

// PostOutcome is the per-target view of a multi-platform request.
type PostOutcome struct {
	PostID    string `json:"post_id,omitempty"`
	Scheduled bool   `json:"scheduled,omitempty"`
	Published bool   `json:"published,omitempty"`
	RemoteID  string `json:"remote_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// PostNow records the post, dispatches it synchronously in a single
// attempt, and persists the terminal outcome. No implicit retry.
func (o *Orchestrator) PostNow(ctx context.Context, target platform.Platform, content, link string) (*model.SocialPost, platform.Result, error) {
	post := &model.SocialPost{
		ID:        uuid.NewString(),
		Platform:  string(target),
		Content:   content,
		Link:      link,
		Status:    model.PostScheduled,
		CreatedAt: time.Now(),
	}
	if err := o.Posts.Create(ctx, post); err != nil {
		return nil, platform.Result{}, err
	}

	res := o.Dispatcher.Publish(ctx, target, content, link)
	if err := o.recordPostResult(ctx, post, res); err != nil {
		return post, res, err
	}
	return post, res, nil
}

// SchedulePost persists a deferred post and registers its publish job.
// Content is stored untruncated; the per-target limit applies when the
// dispatcher runs, not before.
func (o *Orchestrator) SchedulePost(ctx context.Context, target platform.Platform, content string, scheduledAt time.Time, mediaURLs, tags []string) (*model.SocialPost, error) {
	post := &model.SocialPost{
		ID:          uuid.NewString(),
		Platform:    string(target),
		Content:     content,
		MediaURLs:   mediaURLs,
		Tags:        tags,
		ScheduledAt: &scheduledAt,
		Status:      model.PostScheduled,
		CreatedAt:   time.Now(),
	}
	if err := o.Posts.Create(ctx, post); err != nil {
		return nil, err
	}
	if err := o.Scheduler.ScheduleOnce(ctx, postJobID(post.ID), JobKindPublishPost, post.ID, scheduledAt); err != nil {
		return nil, err
	}

	o.Log.WithFields(logrus.Fields{
		"post_id":  post.ID,
		"platform": target,
		"run_at":   scheduledAt,
	}).Info("post scheduled")
	return post, nil
}

// PostToMany posts or schedules the same content for several targets.
// Each target is handled independently: an unknown identifier or a
// failed persist shows up in that target's outcome and never blocks
// the rest.
func (o *Orchestrator) PostToMany(ctx context.Context, targets []string, content string, scheduledAt *time.Time, link string) map[string]PostOutcome {
	outcomes := make(map[string]PostOutcome, len(targets))

	for _, raw := range targets {
		target, err := platform.Parse(raw)
		if err != nil {
			outcomes[raw] = PostOutcome{Error: err.Error()}
			continue
		}

		if scheduledAt != nil {
			post, err := o.SchedulePost(ctx, target, content, *scheduledAt, nil, nil)
			if err != nil {
				outcomes[raw] = PostOutcome{Error: err.Error()}
				continue
			}
			outcomes[raw] = PostOutcome{PostID: post.ID, Scheduled: true}
			continue
		}

		post, res, err := o.PostNow(ctx, target, content, link)
		if err != nil {
			outcomes[raw] = PostOutcome{Error: err.Error()}
			continue
		}
		outcomes[raw] = PostOutcome{
			PostID:    post.ID,
			Published: res.Success,
			RemoteID:  res.PostID,
			Error:     res.ErrorMessage(),
		}
	}
	return outcomes
}

// publishPost is the scheduler callback for a fired post job.
func (o *Orchestrator) publishPost(ctx context.Context, postID string) error {
	post, err := o.Posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.Status != model.PostScheduled {
		o.Log.WithField("post_id", postID).Info("post already dispatched, skipping")
		return nil
	}

	target, err := platform.Parse(post.Platform)
	if err != nil {
		return o.recordPostResult(ctx, post, platform.Result{Err: err})
	}

	res := o.Dispatcher.Publish(ctx, target, post.Content, post.Link)
	return o.recordPostResult(ctx, post, res)
}

// recordPostResult finalizes a post after its single dispatch attempt:
// published with a remote id, or failed with an error, never both.
func (o *Orchestrator) recordPostResult(ctx context.Context, post *model.SocialPost, res platform.Result) error {
	status := model.PostFailed
	eventType := queue.EventPostFailed
	if res.Success {
		status = model.PostPublished
		eventType = queue.EventPostPublished
	}

	if err := o.Posts.UpdateResult(ctx, post.ID, status, res.PostID, res.ErrorMessage()); err != nil {
		return err
	}
	post.Status = status
	post.PlatformPostID = res.PostID
	post.Error = res.ErrorMessage()

	o.publishEvent(eventType, post.ID, map[string]any{
		"platform":  post.Platform,
		"remote_id": res.PostID,
		"error":     res.ErrorMessage(),
	})
	return nil
}

func (o *Orchestrator) ListScheduledPosts(ctx context.Context, platformName string) ([]*model.SocialPost, error) {
	return o.Posts.ListScheduled(ctx, platformName)
}

// ====================== Generic tasks ======================

// ScheduleTask persists a generic deferred unit of work and registers
// its execution job.
func (o *Orchestrator) ScheduleTask(ctx context.Context, taskType, description string, scheduledAt time.Time, createdBy string, payload map[string]any) (*model.ScheduledTask, error) {
	if scheduledAt.IsZero() {
		return nil, apperrors.NewValidation("scheduled_at", "schedule time required")
	}

	task := &model.ScheduledTask{
		ID:          uuid.NewString(),
		TaskType:    taskType,
		Description: description,
		ScheduledAt: scheduledAt,
		CreatedBy:   createdBy,
		Status:      model.TaskPending,
		Payload:     payload,
		CreatedAt:   time.Now(),
	}
	if err := o.Tasks.Create(ctx, task); err != nil {
		return nil, err
	}
	if err := o.Scheduler.ScheduleOnce(ctx, taskJobID(task.ID), JobKindExecuteTask, task.ID, scheduledAt); err != nil {
		return nil, err
	}
	return task, nil
}

// ScheduleRecurringTask registers a cron-triggered task. The task
// record is executed anew on every firing.
func (o *Orchestrator) ScheduleRecurringTask(ctx context.Context, taskType, description, cronSpec, createdBy string, payload map[string]any) (*model.ScheduledTask, error) {
	task := &model.ScheduledTask{
		ID:          uuid.NewString(),
		TaskType:    taskType,
		Description: description,
		ScheduledAt: time.Now(),
		CreatedBy:   createdBy,
		Status:      model.TaskPending,
		Payload:     payload,
		CreatedAt:   time.Now(),
	}
	if err := o.Tasks.Create(ctx, task); err != nil {
		return nil, err
	}
	if err := o.Scheduler.ScheduleRecurring(ctx, taskJobID(task.ID), JobKindExecuteTask, task.ID, cronSpec); err != nil {
		return nil, err
	}
	return task, nil
}

// CancelScheduledTask drops the pending job and marks the task
// cancelled. Cancelling after execution has begun is a no-op.
func (o *Orchestrator) CancelScheduledTask(ctx context.Context, taskID string) (bool, error) {
	cancelled := o.Scheduler.Cancel(taskJobID(taskID))
	if !cancelled {
		return false, nil
	}
	if err := o.Tasks.UpdateStatus(ctx, taskID, model.TaskCancelled); err != nil {
		return true, err
	}
	return true, nil
}

// executeTask is the scheduler callback for a fired generic task.
func (o *Orchestrator) executeTask(ctx context.Context, taskID string) error {
	task, err := o.Tasks.GetByID(ctx, taskID)
	if err != nil {
		return err
	}
	if task.Status == model.TaskCancelled {
		return nil
	}

	if err := o.Tasks.UpdateStatus(ctx, taskID, model.TaskCompleted); err != nil {
		return err
	}
	o.publishEvent(queue.EventTaskCompleted, taskID, map[string]any{
		"task_type":   task.TaskType,
		"description": task.Description,
	})
	return nil
}

// ====================== Jobs ======================

func (o *Orchestrator) ListPendingJobs() []scheduler.PendingJob {
	return o.Scheduler.ListPending()
}

func (o *Orchestrator) publishEvent(eventType, entityID string, detail map[string]any) {
	if o.Events == nil {
		return
	}
	err := o.Events.Publish(queue.TopicEvents, queue.Event{
		Type:       eventType,
		EntityID:   entityID,
		Detail:     detail,
		OccurredAt: time.Now(),
	})
	if err != nil {
		o.Log.WithError(err).WithField("event", eventType).Warn("failed to publish event")
	}
}
