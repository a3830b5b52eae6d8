package domain

import (
	"context"
	"time"
)

// SeriesJob задача фоновой генерации серии.
type SeriesJob struct {
	ID          string            `json:"job_id"`
	UserID      string            `json:"user_id"`
	SeriesName  string            `json:"series_name,omitempty"`
	Benefits    []string          `json:"benefits"`
	Options     GenerationOptions `json:"options"`
	RequestedAt time.Time         `json:"requested_at"`
}

// SeriesQueue очередь задач на генерацию серий.
type SeriesQueue interface {
	Enqueue(ctx context.Context, job SeriesJob) error
	Receive(ctx context.Context) (SeriesJob, AckFunc, error)
}

// AckFunc подтверждает успешную обработку или запрашивает повтор доставки задачи.
type AckFunc func(success bool) error
