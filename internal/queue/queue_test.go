package queue

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue() *InMemoryQueue {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewInMemoryQueue(log)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	q := newTestQueue()
	err := q.Publish(TopicEvents, Event{Type: EventCampaignSent})
	assert.Error(t, err)
}

func TestPublishDeliversToAllSubscribers(t *testing.T) {
	q := newTestQueue()

	var mu sync.Mutex
	received := make(map[string]Event)
	done := make(chan struct{}, 2)

	for _, name := range []string{"first", "second"} {
		name := name
		require.NoError(t, q.Subscribe(TopicEvents, func(ev Event) error {
			mu.Lock()
			received[name] = ev
			mu.Unlock()
			done <- struct{}{}
			return nil
		}))
	}

	ev := Event{Type: EventPostPublished, EntityID: "post-1", OccurredAt: time.Now()}
	require.NoError(t, q.Publish(TopicEvents, ev))

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "post-1", received["first"].EntityID)
	assert.Equal(t, "post-1", received["second"].EntityID)
}

func TestPublishRetriesFailingHandler(t *testing.T) {
	q := newTestQueue()

	var mu sync.Mutex
	attempts := 0
	done := make(chan struct{})

	require.NoError(t, q.Subscribe(TopicEvents, func(ev Event) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 2 {
			return errors.New("transient failure")
		}
		close(done)
		return nil
	}))

	require.NoError(t, q.Publish(TopicEvents, Event{Type: EventTaskCompleted, EntityID: "task-1"}))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("handler never succeeded")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, attempts)
}

func TestTopicsAreIsolated(t *testing.T) {
	q := newTestQueue()

	received := make(chan Event, 1)
	require.NoError(t, q.Subscribe("other_topic", func(ev Event) error {
		received <- ev
		return nil
	}))

	err := q.Publish(TopicEvents, Event{Type: EventCampaignSent})
	assert.Error(t, err, "subscriber on another topic must not count")

	require.NoError(t, q.Publish("other_topic", Event{Type: EventCampaignSent, EntityID: "c1"}))
	select {
	case ev := <-received:
		assert.Equal(t, "c1", ev.EntityID)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}
