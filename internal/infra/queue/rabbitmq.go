package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"promo-series/internal/domain"
	"promo-series/internal/infra/metrics"
)

// ErrQueueClosed канал доставки RabbitMQ закрыт.
var ErrQueueClosed = errors.New("rabbitmq: delivery channel closed")

// RabbitSeriesQueue реализует очередь задач через AMQP.
type RabbitSeriesQueue struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string

	mu         sync.Mutex
	deliveries <-chan amqp.Delivery
	prefetch   int
}

var _ domain.SeriesQueue = (*RabbitSeriesQueue)(nil)

// NewRabbitSeriesQueue подключается к брокеру и объявляет durable-очередь.
func NewRabbitSeriesQueue(amqpURL, queue string, prefetch int) (*RabbitSeriesQueue, error) {
	if amqpURL == "" {
		return nil, errors.New("amqp url is empty")
	}
	if queue == "" {
		return nil, errors.New("queue name is empty")
	}
	if prefetch <= 0 {
		prefetch = 1
	}
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	return &RabbitSeriesQueue{conn: conn, ch: ch, queue: queue, prefetch: prefetch}, nil
}

// Enqueue публикует задачу как persistent-сообщение.
func (q *RabbitSeriesQueue) Enqueue(ctx context.Context, job domain.SeriesJob) error {
	msg, err := encodeJob(job)
	if err != nil {
		return err
	}
	start := time.Now()
	err = q.ch.PublishWithContext(ctx, "", q.queue, false, false, msg)
	metrics.ObserveNetworkRequest("rabbitmq", "publish", q.queue, start, err)
	if err != nil {
		return fmt.Errorf("publish job: %w", err)
	}
	return nil
}

// Receive ждёт следующую задачу. Подтверждение обязательно: без него сообщение вернётся в очередь при обрыве.
func (q *RabbitSeriesQueue) Receive(ctx context.Context) (domain.SeriesJob, domain.AckFunc, error) {
	deliveries, err := q.consume()
	if err != nil {
		return domain.SeriesJob{}, nil, err
	}
	select {
	case <-ctx.Done():
		return domain.SeriesJob{}, nil, ctx.Err()
	case d, ok := <-deliveries:
		if !ok {
			return domain.SeriesJob{}, nil, ErrQueueClosed
		}
		job, err := decodeJob(d.Body)
		if err != nil {
			_ = d.Reject(false)
			return domain.SeriesJob{}, nil, err
		}
		ack := func(success bool) error {
			if success {
				return d.Ack(false)
			}
			return d.Nack(false, true)
		}
		return job, ack, nil
	}
}

// Close закрывает канал и соединение.
func (q *RabbitSeriesQueue) Close() error {
	_ = q.ch.Close()
	return q.conn.Close()
}

func (q *RabbitSeriesQueue) consume() (<-chan amqp.Delivery, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.deliveries != nil {
		return q.deliveries, nil
	}
	if err := q.ch.Qos(q.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := q.ch.Consume(q.queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}
	q.deliveries = deliveries
	return deliveries, nil
}

func encodeJob(job domain.SeriesJob) (amqp.Publishing, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal job: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID,
		Timestamp:    job.RequestedAt,
		Body:         payload,
	}, nil
}

func decodeJob(body []byte) (domain.SeriesJob, error) {
	var job domain.SeriesJob
	if err := json.Unmarshal(body, &job); err != nil {
		return domain.SeriesJob{}, fmt.Errorf("decode job: %w", err)
	}
	return job, nil
}
