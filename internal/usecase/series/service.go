package series

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"promo-series/internal/domain"
	"promo-series/internal/infra/metrics"
)

const (
	defaultCallTimeout = 2 * time.Minute
	defaultProbeTTL    = time.Minute
	probeCacheKey      = "series:ai-available"
	templateModel      = "template"
)

// ProgressFunc вызывается после готовности каждого письма в порядке завершения.
type ProgressFunc func(done, total int)

// Service строит серию писем: ИИ для каждой выгоды и шаблон при любой ошибке.
type Service struct {
	writer      domain.EmailWriter
	composer    domain.Composer
	events      domain.EventSink
	cache       domain.Cache
	logger      zerolog.Logger
	concurrency int
	callTimeout time.Duration
	probe       bool
	probeTTL    time.Duration
	now         func() time.Time
	newID       func() string
}

var _ domain.SeriesGenerator = (*Service)(nil)

// Option настраивает Service.
type Option func(*Service)

// WithConcurrency ограничивает число одновременных обращений к модели.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithCallTimeout задаёт таймаут одного обращения к модели.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.callTimeout = d
		}
	}
}

// WithProbe включает проверку доступности перед циклом. Результат кэшируется на ttl.
func WithProbe(cache domain.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.probe = true
		s.cache = cache
		if ttl > 0 {
			s.probeTTL = ttl
		}
	}
}

// WithLogger задаёт логгер.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock подменяет источник времени и идентификаторов.
func WithClock(now func() time.Time, newID func() string) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
		if newID != nil {
			s.newID = newID
		}
	}
}

// NewService создаёт оркестратор. writer может быть nil, тогда все письма собираются из шаблонов.
func NewService(writer domain.EmailWriter, composer domain.Composer, events domain.EventSink, opts ...Option) *Service {
	if events == nil {
		events = domain.NopSink{}
	}
	s := &Service{
		writer:      writer,
		composer:    composer,
		events:      events,
		logger:      zerolog.Nop(),
		concurrency: 1,
		callTimeout: defaultCallTimeout,
		probeTTL:    defaultProbeTTL,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateSeries строит серию без отчёта о прогрессе.
func (s *Service) GenerateSeries(ctx context.Context, benefits []string, opts domain.GenerationOptions) (domain.SeriesResult, error) {
	return s.GenerateSeriesWithProgress(ctx, benefits, opts, nil)
}

// GenerateSeriesWithProgress строит серию и сообщает о прогрессе.
func (s *Service) GenerateSeriesWithProgress(ctx context.Context, benefits []string, opts domain.GenerationOptions, progress ProgressFunc) (domain.SeriesResult, error) {
	items := cleanBenefits(benefits)
	if len(items) == 0 {
		s.events.Emit(domain.Event{Kind: domain.EventValidationFailed, Err: domain.ErrNoBenefits})
		return domain.SeriesResult{}, &domain.ValidationError{Err: domain.ErrNoBenefits}
	}
	if s.composer == nil {
		return domain.SeriesResult{}, fmt.Errorf("series: no template composer: %w", domain.ErrPipelineUnavailable)
	}
	opts.Tone = domain.ParseTone(string(opts.Tone))
	opts.Industry = domain.ParseIndustry(string(opts.Industry))

	start := time.Now()
	useAI := s.aiAvailable(ctx)
	total := len(items)
	emails := make([]domain.GeneratedEmail, total)
	usages := make([]domain.TokenUsage, total)

	var (
		mu   sync.Mutex
		done int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, benefit := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pos := domain.SeriesPosition{EmailNumber: i + 1, TotalEmails: total}
			email, usage, err := s.generateOne(gctx, benefit, opts, pos, useAI)
			if err != nil {
				return err
			}
			emails[i] = email
			usages[i] = usage
			if progress != nil {
				mu.Lock()
				done++
				progress(done, total)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.SeriesResult{}, ctxErr
		}
		return domain.SeriesResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.SeriesResult{}, err
	}

	result := domain.SeriesResult{Emails: emails, Usage: aggregate(emails, usages)}
	result.Outcome = outcomeOf(result)
	aiCount := result.AIGeneratedCount()
	metrics.ObserveSeries(string(result.Outcome), time.Since(start), aiCount, total-aiCount)
	s.events.Emit(domain.Event{Kind: domain.EventSeriesCompleted, EmailNumber: total})
	s.logger.Info().
		Int("emails", total).
		Int("ai_emails", aiCount).
		Int("tokens", result.Usage.TotalTokens).
		Str("outcome", string(result.Outcome)).
		Dur("elapsed", time.Since(start)).
		Msg("series: generated")
	return result, nil
}

// generateOne пробует ИИ и при любой ошибке собирает письмо из шаблона.
func (s *Service) generateOne(ctx context.Context, benefit string, opts domain.GenerationOptions, pos domain.SeriesPosition, useAI bool) (domain.GeneratedEmail, domain.TokenUsage, error) {
	email := domain.GeneratedEmail{
		ID:          s.newID(),
		Benefit:     benefit,
		EmailNumber: pos.EmailNumber,
		TotalEmails: pos.TotalEmails,
		Domain:      opts.Domain,
		UserTier:    opts.UserTier,
		CreatedAt:   s.now(),
	}
	if useAI {
		callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		ai, err := s.writer.GenerateFocusedEmail(callCtx, domain.FocusRequest{Benefit: benefit, Position: pos, Options: opts})
		cancel()
		if err == nil {
			email.Subject = ai.Subject
			email.Body = ai.Body
			email.GeneratedWithAI = true
			email.Model = ai.Usage.Model
			email.TokensUsed = ai.Usage.TotalTokens
			return email, ai.Usage, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.GeneratedEmail{}, domain.TokenUsage{}, ctxErr
		}
		kind := domain.AIErrorKind(err)
		if errors.Is(err, context.DeadlineExceeded) {
			kind = domain.EventAITransportFailed
		}
		metrics.IncFallback(string(kind))
		s.events.Emit(domain.Event{Kind: kind, EmailNumber: pos.EmailNumber, Benefit: benefit, Err: err})
		s.events.Emit(domain.Event{Kind: domain.EventTemplateFallback, EmailNumber: pos.EmailNumber, Benefit: benefit, Err: err})
	}

	composed, err := s.compose(benefit, opts, pos)
	if err != nil {
		return domain.GeneratedEmail{}, domain.TokenUsage{}, err
	}
	email.Subject = composed.Subject
	email.Body = composed.Body
	email.Model = templateModel
	return email, domain.TokenUsage{}, nil
}

// compose превращает панику шаблонизатора в ErrPipelineUnavailable.
func (s *Service) compose(benefit string, opts domain.GenerationOptions, pos domain.SeriesPosition) (email domain.ComposedEmail, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Int("email_number", pos.EmailNumber).Msg("series: template composer failed")
			err = fmt.Errorf("series: template composer: %v: %w", r, domain.ErrPipelineUnavailable)
		}
	}()
	return s.composer.Compose(benefit, opts, pos), nil
}

// aiAvailable решает, стоит ли обращаться к модели в этом прогоне.
func (s *Service) aiAvailable(ctx context.Context) bool {
	if s.writer == nil {
		s.events.Emit(domain.Event{Kind: domain.EventAIUnavailable})
		return false
	}
	if !s.probe {
		return true
	}
	if s.cache != nil {
		if cached, err := s.cache.Get(probeCacheKey); err == nil && len(cached) == 1 {
			return s.probeResult(cached[0] == '1')
		}
	}
	probeCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	ok := s.writer.Available(probeCtx)
	cancel()
	if s.cache != nil {
		value := []byte("0")
		if ok {
			value = []byte("1")
		}
		if err := s.cache.Set(probeCacheKey, value, s.probeTTL); err != nil {
			s.logger.Debug().Err(err).Msg("series: cache probe result")
		}
	}
	return s.probeResult(ok)
}

func (s *Service) probeResult(ok bool) bool {
	if !ok {
		s.events.Emit(domain.Event{Kind: domain.EventAIUnavailable})
	}
	return ok
}

// cleanBenefits обрезает пробелы и сохраняет позиции. Пустой результат, если все выгоды пустые.
func cleanBenefits(benefits []string) []string {
	out := make([]string, len(benefits))
	blank := true
	for i, b := range benefits {
		out[i] = strings.TrimSpace(b)
		if out[i] != "" {
			blank = false
		}
	}
	if blank {
		return nil
	}
	return out
}

func aggregate(emails []domain.GeneratedEmail, usages []domain.TokenUsage) domain.UsageSummary {
	summary := domain.UsageSummary{TotalEmails: len(emails)}
	aiCount := 0
	for i, e := range emails {
		if e.GeneratedWithAI {
			aiCount++
			summary.TotalTokens += usages[i].TotalTokens
			summary.EstimatedCost += usages[i].EstimatedCost
			if summary.Model == "" {
				summary.Model = usages[i].Model
			}
		}
	}
	if summary.Model == "" {
		summary.Model = templateModel
	}
	summary.AIFailureCount = len(emails) - aiCount
	if len(emails) > 0 {
		summary.AISuccessRate = int(math.Round(100 * float64(aiCount) / float64(len(emails))))
	}
	return summary
}

func outcomeOf(result domain.SeriesResult) domain.SeriesOutcome {
	switch ai := result.AIGeneratedCount(); {
	case ai == len(result.Emails):
		return domain.OutcomeAllAI
	case ai == 0:
		return domain.OutcomeAllTemplate
	default:
		return domain.OutcomePartialFallback
	}
}
