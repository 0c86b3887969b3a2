package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/markbot/orchestrator/internal/mailer"
	"github.com/markbot/orchestrator/internal/queue"
)

// notifier turns orchestration events into operator emails.
type notifier struct {
	mailer mailer.Mailer
	to     string
	log    *logrus.Logger
}

func (n *notifier) handle(ev queue.Event) error {
	subject, body := notificationFor(ev)
	if subject == "" {
		return nil
	}
	if n.to == "" {
		n.log.WithField("event", ev.Type).Info("NOTIFY_EMAIL not set, skipping notification")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return n.mailer.Send(ctx, n.to, subject, body)
}

// notificationFor maps an event to a mail; an empty subject means the
// event carries no notification.
func notificationFor(ev queue.Event) (subject, body string) {
	switch ev.Type {
	case queue.EventCampaignSent:
		return "Campaign Successfully Sent",
			fmt.Sprintf("Your campaign has been sent to %v recipients.", ev.Detail["sent"])
	case queue.EventTaskCompleted:
		return "Scheduled Task Completed",
			fmt.Sprintf("Task '%v' completed successfully.", ev.Detail["description"])
	case queue.EventPostFailed:
		return "Error Notification",
			fmt.Sprintf("An error occurred: %v", ev.Detail["error"])
	}
	return "", ""
}
