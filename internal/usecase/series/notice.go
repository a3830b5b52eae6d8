package series

import (
	"errors"
	"fmt"

	"promo-series/internal/domain"
)

// NoticeLevel уровень уведомления для интерфейса.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice короткое уведомление о результате генерации.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// NoticeFor описывает результат прогона.
func NoticeFor(result domain.SeriesResult) Notice {
	total := len(result.Emails)
	ai := result.AIGeneratedCount()
	switch outcomeOf(result) {
	case domain.OutcomeAllAI:
		return Notice{Level: NoticeSuccess, Message: fmt.Sprintf("Successfully generated %d emails with AI!", total)}
	case domain.OutcomePartialFallback:
		return Notice{Level: NoticeWarning, Message: fmt.Sprintf("Generated %d emails: %d with AI, %d from templates", total, ai, total-ai)}
	default:
		return Notice{Level: NoticeWarning, Message: fmt.Sprintf("AI generation failed, falling back to templates. Generated %d emails.", total)}
	}
}

// NoticeForError описывает ошибку, дошедшую до вызывающего.
func NoticeForError(err error) Notice {
	switch {
	case errors.Is(err, domain.ErrNoBenefits):
		return Notice{Level: NoticeError, Message: "Please select at least one benefit"}
	default:
		return Notice{Level: NoticeError, Message: "Failed to generate emails. Please try again."}
	}
}
