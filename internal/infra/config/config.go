package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	Port        int    `envconfig:"PORT" default:"8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`
	CORSOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`

	AI struct {
		// Provider: aiapi, openai или bedrock.
		Provider      string        `envconfig:"AI_PROVIDER" default:"aiapi"`
		BaseURL       string        `envconfig:"AI_BASE_URL"`
		Path          string        `envconfig:"AI_PATH" default:"/v1/ai/generate"`
		APIKey        string        `envconfig:"AI_API_KEY"`
		Model         string        `envconfig:"AI_MODEL"`
		Timeout       time.Duration `envconfig:"AI_TIMEOUT" default:"2m"`
		Retries       int           `envconfig:"AI_RETRIES" default:"2"`
		RetryBackoff  time.Duration `envconfig:"AI_RETRY_BACKOFF" default:"500ms"`
		Concurrency   int           `envconfig:"AI_CONCURRENCY" default:"1"`
		Probe         bool          `envconfig:"AI_PROBE" default:"true"`
		ProbeTTL      time.Duration `envconfig:"AI_PROBE_TTL" default:"1m"`
		BedrockRegion string        `envconfig:"AI_BEDROCK_REGION" default:"us-east-1"`
		BedrockModels ModelMap      `envconfig:"AI_BEDROCK_MODELS"`
	} `envconfig:""`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	Queue struct {
		// Backend: redis или rabbitmq.
		Backend  string `envconfig:"QUEUE_BACKEND" default:"redis"`
		Key      string `envconfig:"SERIES_QUEUE_KEY" default:"series_jobs"`
		AMQPURL  string `envconfig:"RABBITMQ_URL"`
		Prefetch int    `envconfig:"RABBITMQ_PREFETCH" default:"1"`
	} `envconfig:""`

	Usage struct {
		// Backend: rpc (update_usage_tracking в Postgres) или http.
		Backend string        `envconfig:"USAGE_BACKEND" default:"rpc"`
		URL     string        `envconfig:"USAGE_API_URL"`
		Token   string        `envconfig:"USAGE_API_TOKEN"`
		Timeout time.Duration `envconfig:"USAGE_API_TIMEOUT" default:"10s"`
	} `envconfig:""`

	Worker struct {
		JobDedupTTL time.Duration `envconfig:"WORKER_JOB_DEDUP_TTL" default:"24h"`
	} `envconfig:""`
}

// ModelMap пары имя=идентификатор через запятую.
// Разделитель "=", потому что идентификаторы Bedrock содержат ":".
type ModelMap map[string]string

// Decode реализует envconfig.Decoder.
func (m *ModelMap) Decode(value string) error {
	out := ModelMap{}
	for _, pair := range strings.Split(value, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, id, ok := strings.Cut(pair, "=")
		name, id = strings.TrimSpace(name), strings.TrimSpace(id)
		if !ok || name == "" || id == "" {
			return fmt.Errorf("invalid model mapping %q", pair)
		}
		out[name] = id
	}
	*m = out
	return nil
}

// Load загружает конфиг из окружения. Файл .env подхватывается, если есть.
func Load() AppConfig {
	_ = godotenv.Load()
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
