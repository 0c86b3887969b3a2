package controller_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markbot/orchestrator/internal/apperrors"
	"github.com/markbot/orchestrator/internal/controller"
	"github.com/markbot/orchestrator/internal/mailer"
	"github.com/markbot/orchestrator/internal/model"
	"github.com/markbot/orchestrator/internal/platform"
	"github.com/markbot/orchestrator/internal/scheduler"
	"github.com/markbot/orchestrator/internal/service"
)

// --- mocks ---

type mockCampaignRepo struct {
	campaigns map[string]*model.Campaign
}

func (m *mockCampaignRepo) Create(ctx context.Context, c *model.Campaign) error {
	m.campaigns[c.ID] = c
	return nil
}

func (m *mockCampaignRepo) GetByID(ctx context.Context, id string) (*model.Campaign, error) {
	c, ok := m.campaigns[id]
	if !ok {
		return nil, apperrors.NewNotFound("campaign", id)
	}
	return c, nil
}

func (m *mockCampaignRepo) UpdateStatus(ctx context.Context, id string, status model.CampaignStatus, sentCount int) error {
	if c, ok := m.campaigns[id]; ok {
		c.Status = status
		if sentCount > c.SentCount {
			c.SentCount = sentCount
		}
	}
	return nil
}

func (m *mockCampaignRepo) List(ctx context.Context, offset, limit int, status string) ([]*model.Campaign, int, error) {
	out := make([]*model.Campaign, 0, len(m.campaigns))
	for _, c := range m.campaigns {
		out = append(out, c)
	}
	return out, len(out), nil
}

type mockPostRepo struct {
	posts map[string]*model.SocialPost
}

func (m *mockPostRepo) Create(ctx context.Context, p *model.SocialPost) error {
	m.posts[p.ID] = p
	return nil
}

func (m *mockPostRepo) GetByID(ctx context.Context, id string) (*model.SocialPost, error) {
	p, ok := m.posts[id]
	if !ok {
		return nil, apperrors.NewNotFound("social post", id)
	}
	return p, nil
}

func (m *mockPostRepo) UpdateResult(ctx context.Context, id string, status model.PostStatus, platformPostID, errMsg string) error {
	if p, ok := m.posts[id]; ok {
		p.Status = status
		p.PlatformPostID = platformPostID
		p.Error = errMsg
	}
	return nil
}

func (m *mockPostRepo) ListScheduled(ctx context.Context, platformName string) ([]*model.SocialPost, error) {
	return nil, nil
}

type mockTaskRepo struct {
	tasks map[string]*model.ScheduledTask
}

func (m *mockTaskRepo) Create(ctx context.Context, t *model.ScheduledTask) error {
	m.tasks[t.ID] = t
	return nil
}

func (m *mockTaskRepo) GetByID(ctx context.Context, id string) (*model.ScheduledTask, error) {
	t, ok := m.tasks[id]
	if !ok {
		return nil, apperrors.NewNotFound("scheduled task", id)
	}
	return t, nil
}

func (m *mockTaskRepo) UpdateStatus(ctx context.Context, id string, status model.TaskStatus) error {
	if t, ok := m.tasks[id]; ok {
		t.Status = status
	}
	return nil
}

func (m *mockTaskRepo) ListPending(ctx context.Context, before time.Time) ([]*model.ScheduledTask, error) {
	return nil, nil
}

type mockCustomerRepo struct{}

func (m *mockCustomerRepo) Query(ctx context.Context, filter model.CustomerFilter) ([]model.Customer, error) {
	return []model.Customer{
		{ID: "c1", Email: "alice@example.com", Name: "Alice", TotalOrders: 7, Status: "active"},
	}, nil
}

type mockScheduler struct {
	jobs map[string]bool
}

func (m *mockScheduler) RegisterHandler(kind string, h scheduler.Handler) {}

func (m *mockScheduler) ScheduleOnce(ctx context.Context, id, kind, entityID string, runAt time.Time) error {
	m.jobs[id] = true
	return nil
}

func (m *mockScheduler) ScheduleRecurring(ctx context.Context, id, kind, entityID, cronSpec string) error {
	m.jobs[id] = true
	return nil
}

func (m *mockScheduler) Cancel(id string) bool {
	ok := m.jobs[id]
	delete(m.jobs, id)
	return ok
}

func (m *mockScheduler) ListPending() []scheduler.PendingJob { return nil }

type mockDispatcher struct{}

func (m *mockDispatcher) Publish(ctx context.Context, p platform.Platform, content, link string) platform.Result {
	return platform.Result{Success: true, PostID: "remote-1"}
}

func (m *mockDispatcher) PublishMany(ctx context.Context, targets []platform.Platform, content, link string) map[platform.Platform]platform.Result {
	out := make(map[platform.Platform]platform.Result)
	for _, p := range targets {
		out[p] = m.Publish(ctx, p, content, link)
	}
	return out
}

type mockMailer struct{}

func (m *mockMailer) Send(ctx context.Context, to, subject, body string) error { return nil }

func (m *mockMailer) SendBulk(ctx context.Context, recipients []model.Recipient, subject, bodyTemplate string) (mailer.BulkResult, error) {
	return mailer.BulkResult{Sent: len(recipients)}, nil
}

func newTestController() *controller.OrchestratorController {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	orch := service.NewOrchestrator(
		&mockCampaignRepo{campaigns: make(map[string]*model.Campaign)},
		&mockPostRepo{posts: make(map[string]*model.SocialPost)},
		&mockTaskRepo{tasks: make(map[string]*model.ScheduledTask)},
		&mockCustomerRepo{},
		&mockScheduler{jobs: make(map[string]bool)},
		&mockDispatcher{},
		&mockMailer{},
		nil,
		log,
	)
	return &controller.OrchestratorController{Orchestrator: orch, Log: log}
}

func newTestRouter(ctrl *controller.OrchestratorController) *chi.Mux {
	r := chi.NewRouter()
	r.Post("/campaigns", ctrl.CreateCampaign)
	r.Get("/campaigns/{id}", ctrl.GetCampaign)
	r.Post("/campaigns/{id}/send", ctrl.SendCampaign)
	r.Post("/campaigns/{id}/preview", ctrl.PreviewCampaign)
	r.Post("/posts", ctrl.CreatePost)
	r.Post("/tasks", ctrl.CreateTask)
	r.Delete("/tasks/{id}", ctrl.CancelTask)
	return r
}

// --- tests ---

func TestCreateCampaignMissingTitle(t *testing.T) {
	router := newTestRouter(newTestController())

	b, _ := json.Marshal(map[string]any{"subject": "s", "body": "b"})
	req := httptest.NewRequest("POST", "/campaigns", bytes.NewReader(b))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateCampaignWithRecipients(t *testing.T) {
	router := newTestRouter(newTestController())

	b, _ := json.Marshal(map[string]any{
		"title":   "Sale",
		"subject": "Big Sale",
		"body":    "Hi {name}",
		"recipients": []map[string]string{
			{"email": "a@b.com", "name": "Ada"},
		},
	})
	req := httptest.NewRequest("POST", "/campaigns", bytes.NewReader(b))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var res model.Campaign
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, model.CampaignDraft, res.Status)
}

func TestCreateCampaignCollectsAudience(t *testing.T) {
	router := newTestRouter(newTestController())

	// no explicit recipients: the audience comes from the customer store
	b, _ := json.Marshal(map[string]any{
		"title":      "Sale",
		"subject":    "Big Sale",
		"body":       "Hi {name}",
		"min_orders": 5,
	})
	req := httptest.NewRequest("POST", "/campaigns", bytes.NewReader(b))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var res model.Campaign
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	require.Len(t, res.Recipients, 1)
	assert.Equal(t, "alice@example.com", res.Recipients[0].Email)
}

func TestSendCampaignEndpoint(t *testing.T) {
	ctrl := newTestController()
	router := newTestRouter(ctrl)

	b, _ := json.Marshal(map[string]any{
		"title": "Sale", "subject": "s", "body": "b",
		"recipients": []map[string]string{{"email": "a@b.com"}, {"email": "c@d.com"}},
	})
	req := httptest.NewRequest("POST", "/campaigns", bytes.NewReader(b))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var created model.Campaign
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))

	req = httptest.NewRequest("POST", "/campaigns/"+created.ID+"/send", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Sent   int `json:"sent"`
		Failed int `json:"failed"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, 0, res.Failed)
}

func TestGetCampaignNotFound(t *testing.T) {
	router := newTestRouter(newTestController())

	req := httptest.NewRequest("GET", "/campaigns/missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreatePostMultiPlatform(t *testing.T) {
	router := newTestRouter(newTestController())

	b, _ := json.Marshal(map[string]any{
		"platforms": []string{"twitter", "linkedin"},
		"content":   "hello world",
	})
	req := httptest.NewRequest("POST", "/posts", bytes.NewReader(b))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Results map[string]service.PostOutcome `json:"results"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	require.Len(t, res.Results, 2)
	assert.True(t, res.Results["twitter"].Published)
	assert.True(t, res.Results["linkedin"].Published)
}

func TestCreatePostRequiresPlatforms(t *testing.T) {
	router := newTestRouter(newTestController())

	b, _ := json.Marshal(map[string]any{"content": "hello"})
	req := httptest.NewRequest("POST", "/posts", bytes.NewReader(b))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateTaskRequiresTrigger(t *testing.T) {
	router := newTestRouter(newTestController())

	b, _ := json.Marshal(map[string]any{
		"task_type":   "reminder",
		"description": "call the vendor",
	})
	req := httptest.NewRequest("POST", "/tasks", bytes.NewReader(b))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelUnknownTask(t *testing.T) {
	router := newTestRouter(newTestController())

	req := httptest.NewRequest("DELETE", "/tasks/nope", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
