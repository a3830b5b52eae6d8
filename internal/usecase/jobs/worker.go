package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"promo-series/internal/domain"
	"promo-series/internal/infra/metrics"
)

const (
	defaultMaxAttempts = 5
	defaultDedupTTL    = 24 * time.Hour
	dedupKeyPrefix     = "series-job:"
	receiveErrorPause  = time.Second
)

// Deduplicator выполняет fn не более одного раза на ключ.
type Deduplicator interface {
	Once(key string, ttl time.Duration, fn func() error) (bool, error)
}

// UsageRecorder учитывает готовую серию.
type UsageRecorder interface {
	RecordSeries(ctx context.Context, userID string, result domain.SeriesResult)
}

// Worker разбирает очередь задач на генерацию серий.
type Worker struct {
	queue       domain.SeriesQueue
	series      domain.SeriesGenerator
	repo        domain.SeriesRepo
	usage       UsageRecorder
	dedup       Deduplicator
	dedupTTL    time.Duration
	maxAttempts int
	log         zerolog.Logger
	pause       time.Duration

	mu       sync.Mutex
	attempts map[string]int
}

// Option настраивает Worker.
type Option func(*Worker)

// WithRepo сохраняет готовые серии.
func WithRepo(repo domain.SeriesRepo) Option {
	return func(w *Worker) { w.repo = repo }
}

// WithUsage включает учёт использования.
func WithUsage(usage UsageRecorder) Option {
	return func(w *Worker) { w.usage = usage }
}

// WithDeduplicator защищает от повторной обработки уже выполненной задачи.
func WithDeduplicator(d Deduplicator, ttl time.Duration) Option {
	return func(w *Worker) {
		w.dedup = d
		if ttl > 0 {
			w.dedupTTL = ttl
		}
	}
}

// WithMaxAttempts задаёт число попыток до отказа от задачи.
func WithMaxAttempts(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.maxAttempts = n
		}
	}
}

// WithLogger задаёт логгер.
func WithLogger(logger zerolog.Logger) Option {
	return func(w *Worker) { w.log = logger }
}

// NewWorker создаёт обработчик очереди.
func NewWorker(queue domain.SeriesQueue, series domain.SeriesGenerator, opts ...Option) *Worker {
	w := &Worker{
		queue:       queue,
		series:      series,
		dedupTTL:    defaultDedupTTL,
		maxAttempts: defaultMaxAttempts,
		log:         zerolog.Nop(),
		pause:       receiveErrorPause,
		attempts:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run читает очередь до отмены контекста.
func (w *Worker) Run(ctx context.Context) {
	for {
		job, ack, err := w.queue.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("worker: ошибка чтения очереди")
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.pause):
			}
			continue
		}
		w.Handle(ctx, job, ack)
	}
}

// Handle обрабатывает одну задачу и подтверждает её.
func (w *Worker) Handle(ctx context.Context, job domain.SeriesJob, ack domain.AckFunc) {
	jobLog := w.log.With().Str("job_id", job.ID).Str("user_id", job.UserID).Int("benefits", len(job.Benefits)).Logger()

	if job.ID == "" {
		jobLog.Error().Msg("worker: задача без идентификатора, подтверждаем и пропускаем")
		w.ack(ack, true, jobLog)
		return
	}

	err := w.runOnce(ctx, job, jobLog)
	if err == nil {
		w.forget(job.ID)
		metrics.IncQueueJob(true)
		w.ack(ack, true, jobLog)
		return
	}
	if ctx.Err() != nil {
		jobLog.Warn().Err(err).Msg("worker: остановка, возвращаем задачу в очередь")
		w.ack(ack, false, jobLog)
		return
	}

	metrics.IncQueueJob(false)
	attempt := w.attempt(job.ID)
	if attempt < w.maxAttempts {
		jobLog.Warn().Err(err).Int("attempt", attempt).Msg("worker: задача завершилась ошибкой, повторим позже")
		w.ack(ack, false, jobLog)
		return
	}
	jobLog.Error().Err(err).Int("attempt", attempt).Msg("worker: достигнут предел попыток, отбрасываем задачу")
	w.forget(job.ID)
	w.ack(ack, true, jobLog)
}

func (w *Worker) runOnce(ctx context.Context, job domain.SeriesJob, jobLog zerolog.Logger) error {
	if w.dedup == nil {
		return w.process(ctx, job, jobLog)
	}
	ran, err := w.dedup.Once(dedupKeyPrefix+job.ID, w.dedupTTL, func() error {
		return w.process(ctx, job, jobLog)
	})
	if err != nil {
		return err
	}
	if !ran {
		jobLog.Info().Msg("worker: задача уже обработана, подтверждаем")
	}
	return nil
}

// process возвращает ошибку только для повторяемых сбоев.
func (w *Worker) process(ctx context.Context, job domain.SeriesJob, jobLog zerolog.Logger) error {
	result, err := w.series.GenerateSeries(ctx, job.Benefits, job.Options)
	if err != nil {
		if domain.IsValidation(err) {
			jobLog.Warn().Err(err).Msg("worker: некорректная задача, отбрасываем")
			return nil
		}
		return fmt.Errorf("generate series: %w", err)
	}

	if w.repo != nil && job.UserID != "" {
		id, err := w.repo.SaveSeries(ctx, job.UserID, job.SeriesName, job.Options, result)
		if err != nil {
			return fmt.Errorf("save series: %w", err)
		}
		jobLog = jobLog.With().Int64("series_id", id).Logger()
	}
	if w.usage != nil && job.UserID != "" {
		w.usage.RecordSeries(ctx, job.UserID, result)
	}
	jobLog.Info().
		Int("emails", len(result.Emails)).
		Int("ai_success_rate", result.Usage.AISuccessRate).
		Str("outcome", string(result.Outcome)).
		Msg("worker: серия готова")
	return nil
}

func (w *Worker) ack(ack domain.AckFunc, success bool, jobLog zerolog.Logger) {
	if ack == nil {
		return
	}
	if err := ack(success); err != nil && !errors.Is(err, context.Canceled) {
		jobLog.Error().Err(err).Bool("success", success).Msg("worker: не удалось подтвердить задачу")
	}
}

func (w *Worker) attempt(id string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attempts[id]++
	return w.attempts[id]
}

func (w *Worker) forget(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.attempts, id)
}
