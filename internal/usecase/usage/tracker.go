package usage

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"promo-series/internal/domain"
	"promo-series/internal/infra/metrics"
)

// Tracker передаёт счётчики использования и никогда не ломает генерацию.
type Tracker struct {
	reporter domain.UsageReporter
	business domain.BusinessMetricRepo
	events   domain.EventSink
	logger   zerolog.Logger
}

// NewTracker создаёт трекер. business может быть nil.
func NewTracker(reporter domain.UsageReporter, business domain.BusinessMetricRepo, events domain.EventSink, logger zerolog.Logger) *Tracker {
	if events == nil {
		events = domain.NopSink{}
	}
	return &Tracker{reporter: reporter, business: business, events: events, logger: logger}
}

// RecordGeneration отправляет три независимых отчёта. Ошибки логируются и не возвращаются.
func (t *Tracker) RecordGeneration(ctx context.Context, userID string, emailCount, seriesCount, tokensUsed int) {
	if t.reporter == nil {
		return
	}
	t.report(ctx, userID, domain.UsageEmailsGenerated, emailCount)
	t.report(ctx, userID, domain.UsageSeriesCreated, seriesCount)
	if tokensUsed > 0 {
		t.report(ctx, userID, domain.UsageAITokensUsed, tokensUsed)
	}
}

// RecordSeries учитывает готовую серию и пишет бизнесовую метрику.
func (t *Tracker) RecordSeries(ctx context.Context, userID string, result domain.SeriesResult) {
	t.RecordGeneration(ctx, userID, len(result.Emails), 1, result.Usage.TotalTokens)
	if t.business == nil {
		return
	}
	err := t.business.RecordBusinessMetric(ctx, domain.BusinessMetric{
		Event:  domain.BusinessMetricEventSeriesGenerated,
		UserID: userID,
		Metadata: map[string]any{
			"emails":          len(result.Emails),
			"ai_success_rate": result.Usage.AISuccessRate,
			"tokens":          result.Usage.TotalTokens,
			"estimated_cost":  result.Usage.EstimatedCost,
			"model":           result.Usage.Model,
			"outcome":         string(result.Outcome),
		},
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		metrics.UsageTrackingErrors.Inc()
		t.logger.Warn().Err(err).Str("user_id", userID).Msg("usage: business metric failed")
	}
}

func (t *Tracker) report(ctx context.Context, userID string, usageType domain.UsageType, amount int) {
	err := t.reporter.ReportUsage(ctx, userID, usageType, amount)
	if err == nil {
		return
	}
	metrics.UsageTrackingErrors.Inc()
	t.events.Emit(domain.Event{Kind: domain.EventTrackingFailed, UsageType: usageType, Err: err})
	t.logger.Warn().Err(err).Str("user_id", userID).Str("usage_type", string(usageType)).Int("amount", amount).Msg("usage: tracking failed")
}
