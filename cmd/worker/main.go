package main

import (
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/markbot/orchestrator/internal/config"
	"github.com/markbot/orchestrator/internal/mailer"
	"github.com/markbot/orchestrator/internal/queue"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	if err := godotenv.Load(); err != nil {
		log.Info("no .env file found, relying on OS environment variables")
	}
	cfg := config.Load()

	if cfg.AMQPURL == "" {
		log.Fatal("AMQP_URL is required for the worker")
	}
	events, err := queue.NewAMQPQueue(cfg.AMQPURL, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to AMQP broker")
	}
	defer events.Close()

	n := &notifier{
		mailer: mailer.NewSMTPMailer(cfg.SMTP, log),
		to:     cfg.NotifyEmail,
		log:    log,
	}
	if err := events.Subscribe(queue.TopicEvents, n.handle); err != nil {
		log.WithError(err).Fatal("failed to subscribe to events")
	}

	log.Info("worker running, waiting for events...")
	select {}
}
