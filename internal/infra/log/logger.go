package log

import (
	"os"
	"time"

	"github.com/rs/zerolog"

	"promo-series/internal/domain"
)

// NewLogger создаёт настроенный zerolog.
func NewLogger(appEnv string) zerolog.Logger {
	level := zerolog.InfoLevel
	if appEnv == "dev" {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	zerolog.TimeFieldFormat = time.RFC3339
	return logger
}

// EventSink пишет события конвейера генерации в лог.
type EventSink struct {
	logger zerolog.Logger
}

var _ domain.EventSink = EventSink{}

// NewEventSink создаёт приёмник событий поверх логгера.
func NewEventSink(logger zerolog.Logger) EventSink {
	return EventSink{logger: logger.With().Str("component", "series").Logger()}
}

// Emit пишет событие. Ошибки ИИ и учёта идут уровнем warn.
func (s EventSink) Emit(e domain.Event) {
	ev := s.logger.Info()
	if e.Err != nil {
		ev = s.logger.Warn().Err(e.Err)
	}
	if e.EmailNumber > 0 {
		ev = ev.Int("email_number", e.EmailNumber)
	}
	if e.Benefit != "" {
		ev = ev.Str("benefit", e.Benefit)
	}
	if e.UsageType != "" {
		ev = ev.Str("usage_type", string(e.UsageType))
	}
	ev.Str("event", string(e.Kind)).Msg("series event")
}
