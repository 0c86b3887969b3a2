package queue

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Event is a domain notification emitted after an orchestration action
// completes: a campaign was sent, a post published or failed, a task
// executed. Consumers turn these into operator notifications.
type Event struct {
	Type       string         `json:"type"`
	EntityID   string         `json:"entity_id"`
	Detail     map[string]any `json:"detail,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// TopicEvents is the queue all orchestration events flow through.
const TopicEvents = "marketing_events"

const (
	EventCampaignSent  = "campaign.sent"
	EventPostPublished = "post.published"
	EventPostFailed    = "post.failed"
	EventTaskCompleted = "task.completed"
)

// Queue decouples event producers from consumers.
type Queue interface {
	Publish(topic string, event Event) error
	Subscribe(topic string, handler func(Event) error) error
}

// InMemoryQueue dispatches events to in-process subscribers, retrying a
// failing handler a few times with backoff. Used when no broker is
// configured and in tests.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(Event) error
	log      *logrus.Logger
}

func NewInMemoryQueue(log *logrus.Logger) *InMemoryQueue {
	return &InMemoryQueue{
		handlers: make(map[string][]func(Event) error),
		log:      log,
	}
}

func (q *InMemoryQueue) Publish(topic string, event Event) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	for _, handler := range handlers {
		go q.deliver(handler, event)
	}
	return nil
}

func (q *InMemoryQueue) deliver(handler func(Event) error, event Event) {
	const maxRetries = 3
	for attempt := 1; ; attempt++ {
		err := handler(event)
		if err == nil {
			return
		}
		if attempt > maxRetries {
			q.log.WithField("event", event.Type).
				Errorf("event permanently failed after %d attempts: %v", maxRetries, err)
			return
		}
		q.log.WithField("event", event.Type).
			Warnf("event handler failed (attempt %d/%d): %v", attempt, maxRetries, err)
		time.Sleep(time.Duration(attempt*500) * time.Millisecond)
	}
}

func (q *InMemoryQueue) Subscribe(topic string, handler func(Event) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

var _ Queue = (*InMemoryQueue)(nil)
