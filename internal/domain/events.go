package domain

// EventKind тип события конвейера генерации.
type EventKind string

const (
	EventAIAuthFailed      EventKind = "ai_auth_failed"
	EventAIServerFailed    EventKind = "ai_server_failed"
	EventAIModelFailed     EventKind = "ai_model_failed"
	EventAITransportFailed EventKind = "ai_transport_failed"
	EventAIParseFailed     EventKind = "ai_parse_failed"
	EventAIUnavailable     EventKind = "ai_unavailable"
	EventTemplateFallback  EventKind = "template_fallback"
	EventValidationFailed  EventKind = "validation_failed"
	EventTrackingFailed    EventKind = "tracking_failed"
	EventSeriesCompleted   EventKind = "series_completed"
)

// Event структурированное событие с контекстом письма.
type Event struct {
	Kind        EventKind
	EmailNumber int
	Benefit     string
	UsageType   UsageType
	Err         error
}

// EventSink принимает события конвейера.
type EventSink interface {
	Emit(Event)
}

// NopSink отбрасывает события.
type NopSink struct{}

func (NopSink) Emit(Event) {}
