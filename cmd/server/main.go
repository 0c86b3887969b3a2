package main

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/markbot/orchestrator/internal/cache"
	"github.com/markbot/orchestrator/internal/config"
	"github.com/markbot/orchestrator/internal/controller"
	"github.com/markbot/orchestrator/internal/db"
	"github.com/markbot/orchestrator/internal/mailer"
	"github.com/markbot/orchestrator/internal/platform"
	"github.com/markbot/orchestrator/internal/queue"
	"github.com/markbot/orchestrator/internal/ratelimit"
	"github.com/markbot/orchestrator/internal/repository"
	"github.com/markbot/orchestrator/internal/scheduler"
	"github.com/markbot/orchestrator/internal/service"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	if err := godotenv.Load(); err != nil {
		log.Info("no .env file found, relying on OS environment variables")
	}
	cfg := config.Load()

	conn, err := db.Open(cfg.DB)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer conn.Close()

	redisCache := cache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer redisCache.Close()

	var events queue.Queue
	if cfg.AMQPURL != "" {
		amqpQueue, err := queue.NewAMQPQueue(cfg.AMQPURL, log)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to AMQP broker")
		}
		defer amqpQueue.Close()
		events = amqpQueue
	} else {
		log.Info("AMQP_URL not set, using in-memory event queue")
		events = queue.NewInMemoryQueue(log)
	}

	campaignRepo := &repository.CampaignRepository{DB: conn}
	postRepo := &repository.SocialPostRepository{DB: conn}
	taskRepo := &repository.ScheduledTaskRepository{DB: conn}
	customerRepo := &repository.CustomerRepository{DB: conn}
	jobRepo := &repository.JobRepository{DB: conn}

	sched := scheduler.New(jobRepo, cfg.PublishTimeout+cfg.MailTimeout, cfg.SchedulerGrace, log)
	dispatcher := platform.NewDispatcher(cfg.Platforms, cfg.PublishTimeout, log)
	smtpMailer := mailer.NewSMTPMailer(cfg.SMTP, log)
	limiter := ratelimit.New(redisCache, cfg.RateLimitPerCaller, cfg.RateLimitWindow)

	orchestrator := service.NewOrchestrator(
		campaignRepo, postRepo, taskRepo, customerRepo,
		sched, dispatcher, smtpMailer, events, log,
	)

	// restore pending jobs before the loop starts servicing them
	if err := sched.Load(context.Background()); err != nil {
		log.WithError(err).Fatal("failed to reload job table")
	}
	sched.Start()
	defer sched.Stop()

	ctrl := &controller.OrchestratorController{
		Orchestrator: orchestrator,
		Log:          log,
	}

	r := chi.NewRouter()
	r.Use(controller.RateLimit(limiter, log))

	r.Post("/campaigns", ctrl.CreateCampaign)
	r.Get("/campaigns", ctrl.ListCampaigns)
	r.Get("/campaigns/{id}", ctrl.GetCampaign)
	r.Post("/campaigns/{id}/send", ctrl.SendCampaign)
	r.Post("/campaigns/{id}/preview", ctrl.PreviewCampaign)
	r.Post("/posts", ctrl.CreatePost)
	r.Get("/posts", ctrl.ListScheduledPosts)
	r.Post("/tasks", ctrl.CreateTask)
	r.Delete("/tasks/{id}", ctrl.CancelTask)
	r.Get("/jobs", ctrl.ListJobs)

	log.WithField("port", cfg.HTTPPort).Info("server running")
	log.Fatal(http.ListenAndServe(":"+cfg.HTTPPort, r))
}
