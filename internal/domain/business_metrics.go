package domain

import (
	"context"
	"time"
)

// UsageType тег счётчика использования.
type UsageType string

const (
	UsageEmailsGenerated UsageType = "emails_generated"
	UsageSeriesCreated   UsageType = "series_created"
	UsageAITokensUsed    UsageType = "ai_tokens_used"
)

// BusinessMetric описывает бизнесовое событие, которое сохраняется для последующего анализа.
type BusinessMetric struct {
	Event      string
	UserID     string
	Metadata   map[string]any
	OccurredAt time.Time
}

const (
	// BusinessMetricEventSeriesGenerated фиксирует успешную генерацию серии.
	BusinessMetricEventSeriesGenerated = "series_generated"
	// BusinessMetricEventSeriesQueued фиксирует постановку серии в очередь.
	BusinessMetricEventSeriesQueued = "series_queued"
)

// BusinessMetricRepo сохраняет бизнесовые события.
type BusinessMetricRepo interface {
	RecordBusinessMetric(ctx context.Context, metric BusinessMetric) error
}
