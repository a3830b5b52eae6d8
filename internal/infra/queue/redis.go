package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"promo-series/internal/domain"
	"promo-series/internal/infra/metrics"
)

const processingSuffix = ":processing"

// RedisSeriesQueue реализует очередь задач на базе Redis lists.
// Взятая задача лежит в списке <key>:processing до подтверждения.
type RedisSeriesQueue struct {
	client *redis.Client
	key    string
}

var _ domain.SeriesQueue = (*RedisSeriesQueue)(nil)

// NewRedisSeriesQueue создаёт очередь по указанному ключу.
func NewRedisSeriesQueue(client *redis.Client, key string) *RedisSeriesQueue {
	return &RedisSeriesQueue{client: client, key: key}
}

// Enqueue публикует задачу в очередь.
func (q *RedisSeriesQueue) Enqueue(ctx context.Context, job domain.SeriesJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	start := time.Now()
	err = q.client.LPush(ctx, q.key, payload).Err()
	metrics.ObserveNetworkRequest("redis", "lpush", q.key, start, err)
	if err != nil {
		return fmt.Errorf("push job: %w", err)
	}
	return nil
}

// Receive блокирующе читает задачу из очереди.
func (q *RedisSeriesQueue) Receive(ctx context.Context) (domain.SeriesJob, domain.AckFunc, error) {
	processing := q.key + processingSuffix
	for {
		if err := ctx.Err(); err != nil {
			return domain.SeriesJob{}, nil, err
		}

		raw, err := q.client.BLMove(ctx, q.key, processing, "RIGHT", "LEFT", time.Second).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return domain.SeriesJob{}, nil, ctx.Err()
				}
				continue
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return domain.SeriesJob{}, nil, err
		}

		ack := func(success bool) error {
			ackCtx := context.Background()
			pipe := q.client.TxPipeline()
			pipe.LRem(ackCtx, processing, 1, raw)
			if !success {
				pipe.RPush(ackCtx, q.key, raw)
			}
			_, err := pipe.Exec(ackCtx)
			return err
		}

		var job domain.SeriesJob
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			_ = ack(true)
			return domain.SeriesJob{}, nil, fmt.Errorf("decode job: %w", err)
		}
		return job, ack, nil
	}
}
