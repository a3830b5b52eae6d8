package domain

import "errors"

var (
	// ErrNoBenefits не выбрано ни одной выгоды.
	ErrNoBenefits = errors.New("please select at least one benefit before generating emails")
	// ErrPipelineUnavailable не сработал ни ИИ, ни шаблонный генератор.
	ErrPipelineUnavailable = errors.New("email generation pipeline unavailable")
	// ErrSeriesNotFound серия с таким идентификатором не найдена.
	ErrSeriesNotFound = errors.New("email series not found")
)

// Классы ошибок генерации через ИИ.
var (
	ErrAIAuth      = errors.New("ai authentication failed")
	ErrAIServer    = errors.New("ai server error")
	ErrAIModel     = errors.New("ai model error")
	ErrAITransport = errors.New("ai transport error")
	ErrAIParse     = errors.New("ai response could not be parsed")
)

// ValidationError ошибка входных данных, видимая пользователю.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

// IsValidation сообщает, что ошибка относится к классу валидации.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// AIErrorKind возвращает класс ошибки ИИ для журналирования.
func AIErrorKind(err error) EventKind {
	switch {
	case errors.Is(err, ErrAIAuth):
		return EventAIAuthFailed
	case errors.Is(err, ErrAIParse):
		return EventAIParseFailed
	case errors.Is(err, ErrAIModel):
		return EventAIModelFailed
	case errors.Is(err, ErrAIServer):
		return EventAIServerFailed
	default:
		return EventAITransportFailed
	}
}
