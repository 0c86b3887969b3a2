package queue

import (
	"encoding/json"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

// AMQPQueue carries events through RabbitMQ so a separate worker
// process can consume them. Queues are declared durable and named after
// their topic.
type AMQPQueue struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	log  *logrus.Logger
}

func NewAMQPQueue(url string, log *logrus.Logger) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &AMQPQueue{conn: conn, ch: ch, log: log}, nil
}

func (q *AMQPQueue) declare(topic string) (amqp.Queue, error) {
	return q.ch.QueueDeclare(
		topic,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
}

func (q *AMQPQueue) Publish(topic string, event Event) error {
	queue, err := q.declare(topic)
	if err != nil {
		return err
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return q.ch.Publish(
		"",
		queue.Name,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

// Subscribe consumes the topic on a background goroutine. A handler
// error requeues the delivery up to three times before it is dropped.
func (q *AMQPQueue) Subscribe(topic string, handler func(Event) error) error {
	queue, err := q.declare(topic)
	if err != nil {
		return err
	}
	msgs, err := q.ch.Consume(
		queue.Name,
		"",
		false, // autoAck off so failed handlers can requeue
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	go func() {
		for d := range msgs {
			var event Event
			if err := json.Unmarshal(d.Body, &event); err != nil {
				q.log.WithError(err).Warn("dropping malformed event")
				d.Ack(false)
				continue
			}

			if err := handler(event); err != nil {
				q.log.WithError(err).WithField("event", event.Type).Warn("event handler failed")
				var retries int32
				if v, ok := d.Headers["x-retry-count"].(int32); ok {
					retries = v
				}
				if retries < 3 {
					d.Nack(false, true)
					continue
				}
			}
			d.Ack(false)
		}
	}()
	return nil
}

func (q *AMQPQueue) Close() error {
	q.ch.Close()
	return q.conn.Close()
}

var _ Queue = (*AMQPQueue)(nil)
