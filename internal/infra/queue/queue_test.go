package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"promo-series/internal/domain"
)

func newTestQueue(t *testing.T) (*RedisSeriesQueue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSeriesQueue(client, "series_jobs"), mr
}

func sampleJob(id string) domain.SeriesJob {
	return domain.SeriesJob{
		ID:       id,
		UserID:   "u1",
		Benefits: []string{"Saves time"},
		Options:  domain.GenerationOptions{Domain: "x.io", Tone: domain.ToneFriendly},
	}
}

func TestRedisQueueFIFOAndAck(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		if err := q.Enqueue(ctx, sampleJob(id)); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	job, ack, err := q.Receive(ctx)
	if err != nil || job.ID != "a" {
		t.Fatalf("ожидали задачу a, получили %q %v", job.ID, err)
	}
	if job.Options.Tone != domain.ToneFriendly || job.Benefits[0] != "Saves time" {
		t.Fatalf("задача искажена: %+v", job)
	}
	if items, _ := mr.List("series_jobs" + processingSuffix); len(items) != 1 {
		t.Fatalf("задача должна лежать в processing: %v", items)
	}
	if err := ack(true); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if mr.Exists("series_jobs" + processingSuffix) {
		t.Fatal("processing должен опустеть после ack")
	}
}

func TestRedisQueueNackRequeues(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()
	_ = q.Enqueue(ctx, sampleJob("a"))
	_ = q.Enqueue(ctx, sampleJob("b"))

	_, ack, err := q.Receive(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if err := ack(false); err != nil {
		t.Fatalf("nack: %v", err)
	}
	job, _, err := q.Receive(ctx)
	if err != nil || job.ID != "a" {
		t.Fatalf("после nack задача должна вернуться первой, получили %q %v", job.ID, err)
	}
}

func TestRedisQueueReceiveHonoursContext(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, _, err := q.Receive(ctx); err == nil {
		t.Fatal("ожидали ошибку контекста на пустой очереди")
	}
}

func TestRabbitCodec(t *testing.T) {
	job := sampleJob("j1")
	job.RequestedAt = time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	msg, err := encodeJob(job)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if msg.DeliveryMode != amqp.Persistent || msg.MessageId != "j1" || msg.ContentType != "application/json" {
		t.Fatalf("неожиданные свойства сообщения: %+v", msg)
	}
	got, err := decodeJob(msg.Body)
	if err != nil || got.ID != "j1" || !got.RequestedAt.Equal(job.RequestedAt) {
		t.Fatalf("декодирование не совпало: %+v %v", got, err)
	}
	if _, err := decodeJob([]byte("{")); err == nil {
		t.Fatal("битый JSON должен давать ошибку")
	}
}
