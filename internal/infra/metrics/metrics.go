package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	SeriesBuildSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "series_build_seconds",
		Help:    "Время построения серии писем",
		Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 20, 30, 60, 120, 240, 480},
	})
	SeriesRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "series_requests_total",
		Help: "Количество прогонов генерации серии по итогу",
	}, []string{"outcome"})
	EmailsGeneratedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "emails_generated_total",
		Help: "Количество писем по источнику (ai или template)",
	}, []string{"origin"})
	AIFallbacksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ai_fallbacks_total",
		Help: "Переходы на шаблон по классу ошибки ИИ",
	}, []string{"kind"})
	UsageTrackingErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "usage_tracking_errors_total",
		Help: "Ошибки записи счётчиков использования",
	})
	QueueJobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "series_jobs_total",
		Help: "Обработанные задачи очереди по статусу",
	}, []string{"status"})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15, 20, 30, 45, 60, 90, 120, 180, 240},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})

	LLMGenerationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "llm_generation_duration_seconds",
		Help:    "Длительность генерации ответа LLM",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})

	LLMTokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_tokens_total",
		Help: "Количество токенов, использованных LLM",
	}, []string{"model", "type"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		SeriesBuildSeconds,
		SeriesRequestsTotal,
		EmailsGeneratedTotal,
		AIFallbacksTotal,
		UsageTrackingErrors,
		QueueJobsTotal,
		NetworkRequestDuration,
		NetworkRequestTotal,
		LLMGenerationDuration,
		LLMTokensTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdownCtx.Done():
		}
		shutdownTimeout, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer timeoutCancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
		cancel()
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// ObserveLLMGeneration записывает длительность и токены генерации LLM.
func ObserveLLMGeneration(model string, duration time.Duration, promptTokens, completionTokens, totalTokens int) {
	if model == "" {
		model = "unknown"
	}
	LLMGenerationDuration.WithLabelValues(model).Observe(duration.Seconds())
	if promptTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
	if totalTokens <= 0 {
		totalTokens = promptTokens + completionTokens
	}
	if totalTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "total").Add(float64(totalTokens))
	}
}

// ObserveSeries записывает итог прогона генерации серии.
func ObserveSeries(outcome string, duration time.Duration, aiEmails, templateEmails int) {
	if outcome == "" {
		outcome = "unknown"
	}
	SeriesBuildSeconds.Observe(duration.Seconds())
	SeriesRequestsTotal.WithLabelValues(outcome).Inc()
	if aiEmails > 0 {
		EmailsGeneratedTotal.WithLabelValues("ai").Add(float64(aiEmails))
	}
	if templateEmails > 0 {
		EmailsGeneratedTotal.WithLabelValues("template").Add(float64(templateEmails))
	}
}

// IncFallback увеличивает счётчик переходов на шаблон.
func IncFallback(kind string) {
	AIFallbacksTotal.WithLabelValues(kind).Inc()
}

// IncQueueJob увеличивает счётчик задач очереди по статусу.
func IncQueueJob(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	QueueJobsTotal.WithLabelValues(status).Inc()
}
