package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"promo-series/internal/domain"
	"promo-series/internal/infra/metrics"
)

const (
	readingLevel      = "5th grade"
	wordsPerMinute    = 200
	defaultTimeout    = 5 * time.Second
	usageTrackingCall = "SELECT update_usage_tracking($1, $2, $3)"
)

// Postgres реализует репозитории на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.BusinessMetricRepo = (*Postgres)(nil)
	_ domain.SeriesRepo         = (*Postgres)(nil)
	_ domain.UsageReporter      = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, defaultTimeout)
}

// RecordBusinessMetric сохраняет бизнесовую метрику в БД.
func (p *Postgres) RecordBusinessMetric(ctx context.Context, metric domain.BusinessMetric) error {
	if metric.Event == "" {
		return nil
	}
	if metric.OccurredAt.IsZero() {
		metric.OccurredAt = time.Now().UTC()
	}
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var userID sql.NullString
	if metric.UserID != "" {
		userID = sql.NullString{String: metric.UserID, Valid: true}
	}
	var payload []byte
	if metric.Metadata != nil {
		if data, err := json.Marshal(metric.Metadata); err == nil {
			payload = data
		}
	}

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO business_metrics (event, user_id, metadata, occurred_at)
VALUES ($1, $2, $3, $4)
`, metric.Event, userID, payload, metric.OccurredAt)
	metrics.ObserveNetworkRequest("postgres", "business_metrics_insert", "business_metrics", start, err)
	return err
}

// ReportUsage вызывает хранимую процедуру update_usage_tracking.
func (p *Postgres) ReportUsage(ctx context.Context, userID string, usageType domain.UsageType, amount int) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	start := time.Now()
	_, err := p.pool.Exec(ctx, usageTrackingCall, userID, string(usageType), amount)
	metrics.ObserveNetworkRequest("postgres", "update_usage_tracking", string(usageType), start, err)
	if err != nil {
		return fmt.Errorf("update usage %s: %w", usageType, err)
	}
	return nil
}

// SaveSeries сохраняет серию и её письма в одной транзакции.
func (p *Postgres) SaveSeries(ctx context.Context, userID, name string, opts domain.GenerationOptions, result domain.SeriesResult) (int64, error) {
	if len(result.Emails) == 0 {
		return 0, fmt.Errorf("save series: %w", domain.ErrNoBenefits)
	}
	if strings.TrimSpace(name) == "" {
		name = fmt.Sprintf("%s series (%d emails)", siteLabel(opts), len(result.Emails))
	}
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	metrics.ObserveNetworkRequest("postgres", "begin_tx", "campaign_email_series", start, err)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var affiliate sql.NullString
	if opts.HasAffiliateLink() {
		affiliate = sql.NullString{String: strings.TrimSpace(opts.AffiliateLink), Valid: true}
	}

	var seriesID int64
	start = time.Now()
	err = tx.QueryRow(ctx, `
INSERT INTO campaign_email_series (user_id, series_name, series_description, total_emails, tone, industry, affiliate_link, ai_model_used, tokens_consumed, ai_success_rate)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id
`, userID, name, fmt.Sprintf("Generated %d emails for %s", len(result.Emails), siteLabel(opts)), len(result.Emails),
		string(opts.Tone), string(opts.Industry), affiliate, result.Usage.Model, result.Usage.TotalTokens, result.Usage.AISuccessRate).Scan(&seriesID)
	metrics.ObserveNetworkRequest("postgres", "series_insert", "campaign_email_series", start, err)
	if err != nil {
		return 0, fmt.Errorf("insert series: %w", err)
	}

	batch := &pgx.Batch{}
	for _, e := range result.Emails {
		words := wordCount(e.Body)
		batch.Queue(`
INSERT INTO campaign_emails (series_id, email_number, subject_line, email_body, focus_benefit, word_count, reading_level, estimated_read_time, generated_with_ai, model_used, tokens_used, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`, seriesID, e.EmailNumber, e.Subject, e.Body, e.Benefit, words, readingLevel, readTimeSeconds(words), e.GeneratedWithAI, e.Model, e.TokensUsed, e.CreatedAt)
	}
	start = time.Now()
	br := tx.SendBatch(ctx, batch)
	for range result.Emails {
		if _, err = br.Exec(); err != nil {
			break
		}
	}
	if closeErr := br.Close(); err == nil {
		err = closeErr
	}
	metrics.ObserveNetworkRequest("postgres", "emails_insert", "campaign_emails", start, err)
	if err != nil {
		return 0, fmt.Errorf("insert emails: %w", err)
	}

	start = time.Now()
	err = tx.Commit(ctx)
	metrics.ObserveNetworkRequest("postgres", "commit", "campaign_email_series", start, err)
	if err != nil {
		return 0, err
	}
	return seriesID, nil
}

// ListSeriesEmails возвращает письма серии по порядку.
func (p *Postgres) ListSeriesEmails(ctx context.Context, seriesID int64) ([]domain.GeneratedEmail, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT e.id, e.email_number, s.total_emails, e.subject_line, e.email_body, e.focus_benefit, e.generated_with_ai, e.model_used, e.tokens_used, e.created_at
FROM campaign_emails e
JOIN campaign_email_series s ON s.id = e.series_id
WHERE e.series_id = $1
ORDER BY e.email_number
`, seriesID)
	metrics.ObserveNetworkRequest("postgres", "emails_list", "campaign_emails", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []domain.GeneratedEmail
	for rows.Next() {
		var (
			e     domain.GeneratedEmail
			id    int64
			model sql.NullString
		)
		if err := rows.Scan(&id, &e.EmailNumber, &e.TotalEmails, &e.Subject, &e.Body, &e.Benefit, &e.GeneratedWithAI, &model, &e.TokensUsed, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.ID = fmt.Sprintf("%d", id)
		e.Model = model.String
		emails = append(emails, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(emails) == 0 {
		return nil, domain.ErrSeriesNotFound
	}
	return emails, nil
}

func siteLabel(opts domain.GenerationOptions) string {
	if d := strings.TrimSpace(opts.Domain); d != "" {
		return d
	}
	return "manual input"
}

func wordCount(body string) int {
	return len(strings.Fields(body))
}

func readTimeSeconds(words int) int {
	return int(math.Ceil(float64(words)/wordsPerMinute)) * 60
}
