package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"promo-series/internal/adapters/httpapi"
	"promo-series/internal/adapters/repo"
	"promo-series/internal/app"
	"promo-series/internal/domain"
	"promo-series/internal/infra/cache"
	"promo-series/internal/infra/config"
	"promo-series/internal/infra/db"
	httpinfra "promo-series/internal/infra/http"
	applog "promo-series/internal/infra/log"
	"promo-series/internal/infra/metrics"
	"promo-series/internal/infra/queue"
	"promo-series/internal/usecase/export"
	"promo-series/internal/usecase/usage"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		seriesRepo domain.SeriesRepo
		usageRPC   domain.UsageReporter
		business   domain.BusinessMetricRepo
	)
	if cfg.PGDSN != "" {
		pool, err := db.Connect(ctx, cfg.PGDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: нет подключения к БД")
		}
		defer pool.Close()
		pg := repo.NewPostgres(pool)
		seriesRepo, usageRPC, business = pg, pg, pg
	} else {
		logger.Warn().Msg("api: PG_DSN не задан, серии не сохраняются")
	}

	var (
		probeCache domain.Cache
		jobs       domain.SeriesQueue
	)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		probeCache = cache.NewRedis(rdb)
		if cfg.Queue.Backend == "redis" {
			jobs = queue.NewRedisSeriesQueue(rdb, cfg.Queue.Key)
		}
	}
	if cfg.Queue.Backend == "rabbitmq" && cfg.Queue.AMQPURL != "" {
		rq, err := queue.NewRabbitSeriesQueue(cfg.Queue.AMQPURL, cfg.Queue.Key, cfg.Queue.Prefetch)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: не удалось подключиться к RabbitMQ")
		}
		defer rq.Close()
		jobs = rq
	}

	completer, err := app.NewCompleter(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: не удалось создать транспорт ИИ")
	}
	if completer == nil {
		logger.Warn().Str("provider", cfg.AI.Provider).Msg("api: ИИ не настроен, письма собираются из шаблонов")
	}
	writer := app.NewWriter(cfg, completer, logger)
	service := app.NewSeriesService(cfg, writer, probeCache, applog.NewEventSink(logger), logger)

	reporter, err := app.NewUsageReporter(cfg, usageRPC)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: не удалось настроить учёт использования")
	}
	tracker := usage.NewTracker(reporter, business, applog.NewEventSink(logger), logger.With().Str("component", "usage").Logger())

	formatter, err := export.NewFormatter()
	if err != nil {
		logger.Fatal().Err(err).Msg("api: не удалось собрать шаблоны экспорта")
	}

	deps := httpapi.Deps{
		Series:    service,
		Queue:     jobs,
		Repo:      seriesRepo,
		Usage:     tracker,
		Formatter: formatter,
		Logger:    logger,
	}
	if writer != nil {
		deps.AI = writer
	}

	server := httpinfra.NewServer(logger, cfg.CORSOrigins)
	httpapi.NewHandler(deps).Register(server.Router)

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), cfg.MetricsAddr)
	go func() {
		if err := server.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logger.Error().Err(err).Msg("api: сервер остановлен")
			stop()
		}
	}()
	<-ctx.Done()
	logger.Info().Msg("api: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}
