package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"promo-series/internal/adapters/repo"
	"promo-series/internal/app"
	"promo-series/internal/domain"
	"promo-series/internal/infra/cache"
	"promo-series/internal/infra/config"
	"promo-series/internal/infra/db"
	applog "promo-series/internal/infra/log"
	"promo-series/internal/infra/metrics"
	"promo-series/internal/infra/queue"
	"promo-series/internal/usecase/jobs"
	"promo-series/internal/usecase/usage"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), cfg.MetricsAddr)

	if cfg.PGDSN == "" {
		logger.Fatal().Msg("worker: не указан PG_DSN")
	}
	pool, err := db.Connect(ctx, cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: нет подключения к БД")
	}
	defer pool.Close()
	pg := repo.NewPostgres(pool)

	var (
		redisCache *cache.RedisCache
		probeCache domain.Cache
		seriesJobs domain.SeriesQueue
	)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		redisCache = cache.NewRedis(rdb)
		probeCache = redisCache
		if cfg.Queue.Backend == "redis" {
			seriesJobs = queue.NewRedisSeriesQueue(rdb, cfg.Queue.Key)
		}
	}
	if cfg.Queue.Backend == "rabbitmq" {
		if cfg.Queue.AMQPURL == "" {
			logger.Fatal().Msg("worker: не указан адрес RabbitMQ (RABBITMQ_URL)")
		}
		rq, err := queue.NewRabbitSeriesQueue(cfg.Queue.AMQPURL, cfg.Queue.Key, cfg.Queue.Prefetch)
		if err != nil {
			logger.Fatal().Err(err).Msg("worker: не удалось инициализировать очередь RabbitMQ")
		}
		defer rq.Close()
		seriesJobs = rq
	}
	if seriesJobs == nil {
		logger.Fatal().Str("backend", cfg.Queue.Backend).Msg("worker: очередь не настроена")
	}

	completer, err := app.NewCompleter(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: не удалось создать транспорт ИИ")
	}
	writer := app.NewWriter(cfg, completer, logger)
	events := applog.NewEventSink(logger)
	service := app.NewSeriesService(cfg, writer, probeCache, events, logger)

	reporter, err := app.NewUsageReporter(cfg, pg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: не удалось настроить учёт использования")
	}
	tracker := usage.NewTracker(reporter, pg, events, logger.With().Str("component", "usage").Logger())

	opts := []jobs.Option{
		jobs.WithRepo(pg),
		jobs.WithUsage(tracker),
		jobs.WithLogger(logger.With().Str("component", "worker").Logger()),
	}
	if redisCache != nil {
		opts = append(opts, jobs.WithDeduplicator(redisCache, cfg.Worker.JobDedupTTL))
	}
	worker := jobs.NewWorker(seriesJobs, service, opts...)

	logger.Info().Str("queue", cfg.Queue.Key).Str("backend", cfg.Queue.Backend).Msg("worker: запуск обработки очереди")
	worker.Run(ctx)
	logger.Info().Msg("worker: остановлен")
}
