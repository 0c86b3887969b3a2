package controller

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sirupsen/logrus"

	"github.com/markbot/orchestrator/internal/model"
	"github.com/markbot/orchestrator/internal/service"
)

// OrchestratorController exposes the engine over HTTP for the chat
// transport. Payloads arrive already parsed: a schedule instant, a
// platform list, an audience filter. No free text is interpreted here.
type OrchestratorController struct {
	Orchestrator *service.Orchestrator
	Log          *logrus.Logger
}

type createCampaignRequest struct {
	Title       string            `json:"title"`
	Subject     string            `json:"subject"`
	Body        string            `json:"body"`
	Recipients  []model.Recipient `json:"recipients"`
	ScheduledAt *time.Time        `json:"scheduled_at"`
	MinOrders   int               `json:"min_orders"`
	Tags        []string          `json:"tags"`
}

func (r createCampaignRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required),
		validation.Field(&r.Subject, validation.Required),
		validation.Field(&r.Body, validation.Required),
	)
}

// CreateCampaign builds a campaign from explicit recipients or, when
// none are given, from the customer store filtered by min_orders/tags.
func (c *OrchestratorController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body createCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := body.Validate(); err != nil {
		writeError(w, err)
		return
	}

	recipients := body.Recipients
	if len(recipients) == 0 {
		collected, err := c.Orchestrator.CollectRecipients(r.Context(), model.CustomerFilter{
			MinOrders: body.MinOrders,
			Tags:      body.Tags,
			Status:    "active",
		})
		if err != nil {
			writeError(w, err)
			return
		}
		recipients = collected
	}

	campaign, err := c.Orchestrator.CreateCampaign(r.Context(), body.Title, recipients, body.Subject, body.Body, body.ScheduledAt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, campaign)
}

func (c *OrchestratorController) SendCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := c.Orchestrator.SendCampaignNow(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"campaign_id": id,
		"sent":        result.Sent,
		"failed":      result.Failed,
		"errors":      result.Errors,
	})
}

func (c *OrchestratorController) GetCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, err := c.Orchestrator.GetCampaign(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

func (c *OrchestratorController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	status := r.URL.Query().Get("status")

	campaigns, pagination, err := c.Orchestrator.ListCampaigns(r.Context(), page, pageSize, status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":       campaigns,
		"pagination": pagination,
	})
}

func (c *OrchestratorController) PreviewCampaign(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Recipient        model.Recipient `json:"recipient"`
		OverrideTemplate *string         `json:"override_template"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	rendered, err := c.Orchestrator.RenderPreview(r.Context(), chi.URLParam(r, "id"), body.Recipient, body.OverrideTemplate)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rendered_message": rendered,
		"recipient":        body.Recipient.Email,
	})
}

type createPostRequest struct {
	Platforms   []string   `json:"platforms"`
	Content     string     `json:"content"`
	Link        string     `json:"link"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

func (r createPostRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Platforms, validation.Required, validation.Length(1, 0)),
		validation.Field(&r.Content, validation.Required),
	)
}

// CreatePost publishes or schedules the same content for one or more
// platforms and reports the per-platform outcomes.
func (c *OrchestratorController) CreatePost(w http.ResponseWriter, r *http.Request) {
	var body createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := body.Validate(); err != nil {
		writeError(w, err)
		return
	}

	outcomes := c.Orchestrator.PostToMany(r.Context(), body.Platforms, body.Content, body.ScheduledAt, body.Link)
	writeJSON(w, http.StatusOK, map[string]any{"results": outcomes})
}

func (c *OrchestratorController) ListScheduledPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := c.Orchestrator.ListScheduledPosts(r.Context(), r.URL.Query().Get("platform"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": posts})
}

type createTaskRequest struct {
	TaskType    string         `json:"task_type"`
	Description string         `json:"description"`
	ScheduledAt *time.Time     `json:"scheduled_at"`
	CronSpec    string         `json:"cron_spec"`
	CreatedBy   string         `json:"created_by"`
	Payload     map[string]any `json:"payload"`
}

func (r createTaskRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.TaskType, validation.Required),
		validation.Field(&r.Description, validation.Required),
	)
}

// CreateTask schedules a generic deferred task, one-shot via
// scheduled_at or recurring via cron_spec.
func (c *OrchestratorController) CreateTask(w http.ResponseWriter, r *http.Request) {
	var body createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := body.Validate(); err != nil {
		writeError(w, err)
		return
	}

	var (
		task *model.ScheduledTask
		err  error
	)
	if body.CronSpec != "" {
		task, err = c.Orchestrator.ScheduleRecurringTask(r.Context(), body.TaskType, body.Description, body.CronSpec, body.CreatedBy, body.Payload)
	} else if body.ScheduledAt != nil {
		task, err = c.Orchestrator.ScheduleTask(r.Context(), body.TaskType, body.Description, *body.ScheduledAt, body.CreatedBy, body.Payload)
	} else {
		http.Error(w, "either scheduled_at or cron_spec is required", http.StatusBadRequest)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (c *OrchestratorController) CancelTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	cancelled, err := c.Orchestrator.CancelScheduledTask(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !cancelled {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no pending task " + id})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"task_id": id, "cancelled": true})
}

func (c *OrchestratorController) ListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"data": c.Orchestrator.ListPendingJobs()})
}
