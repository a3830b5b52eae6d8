package domain

import (
	"strings"
	"time"
)

// Tone задаёт тональность писем серии.
type Tone string

const (
	TonePersuasive   Tone = "persuasive"
	ToneUrgent       Tone = "urgent"
	ToneProfessional Tone = "professional"
	ToneFriendly     Tone = "friendly"
	ToneEducational  Tone = "educational"
)

// ParseTone нормализует тональность. Неизвестные значения сводятся к persuasive.
func ParseTone(raw string) Tone {
	switch t := Tone(strings.ToLower(strings.TrimSpace(raw))); t {
	case TonePersuasive, ToneUrgent, ToneProfessional, ToneFriendly, ToneEducational:
		return t
	default:
		return TonePersuasive
	}
}

// Industry задаёт отраслевые заготовки шаблонов.
type Industry string

const (
	IndustryHealth     Industry = "health"
	IndustryFinance    Industry = "finance"
	IndustryTechnology Industry = "technology"
	IndustryEcommerce  Industry = "ecommerce"
	IndustryEducation  Industry = "education"
	IndustryGeneral    Industry = "general"
)

// ParseIndustry нормализует отрасль. Неизвестные значения сводятся к general.
func ParseIndustry(raw string) Industry {
	switch i := Industry(strings.ToLower(strings.TrimSpace(raw))); i {
	case IndustryHealth, IndustryFinance, IndustryTechnology, IndustryEcommerce, IndustryEducation, IndustryGeneral:
		return i
	default:
		return IndustryGeneral
	}
}

// GenerationOptions неизменяемые параметры одного прогона генерации.
type GenerationOptions struct {
	Domain        string   `json:"domain"`
	AffiliateLink string   `json:"affiliate_link,omitempty"`
	Tone          Tone     `json:"tone"`
	Industry      Industry `json:"industry"`
	UserTier      string   `json:"user_tier"`
	WebsiteURL    string   `json:"website_url,omitempty"`
	WebsiteTitle  string   `json:"website_title,omitempty"`
}

// HasAffiliateLink сообщает, задана ли партнёрская ссылка.
func (o GenerationOptions) HasAffiliateLink() bool {
	return strings.TrimSpace(o.AffiliateLink) != ""
}

// SeriesPosition позиция письма в серии (нумерация с 1).
type SeriesPosition struct {
	EmailNumber int
	TotalEmails int
}

// IsLast сообщает, что письмо завершает серию.
func (p SeriesPosition) IsLast() bool {
	return p.EmailNumber >= p.TotalEmails
}

// ComposedEmail тема и тело письма без метаданных.
type ComposedEmail struct {
	Subject string
	Body    string
}

// GeneratedEmail письмо серии, созданное ИИ или шаблоном.
type GeneratedEmail struct {
	ID              string    `json:"id"`
	Subject         string    `json:"subject"`
	Body            string    `json:"body"`
	Benefit         string    `json:"benefit"`
	EmailNumber     int       `json:"email_number"`
	TotalEmails     int       `json:"total_emails"`
	GeneratedWithAI bool      `json:"generated_with_ai"`
	Domain          string    `json:"domain"`
	UserTier        string    `json:"user_tier,omitempty"`
	Model           string    `json:"model,omitempty"`
	TokensUsed      int       `json:"tokens_used"`
	CreatedAt       time.Time `json:"created_at"`
}

// TokenUsage статистика одного обращения к модели.
type TokenUsage struct {
	InputTokens   int     `json:"input_tokens"`
	OutputTokens  int     `json:"output_tokens"`
	TotalTokens   int     `json:"total_tokens"`
	EstimatedCost float64 `json:"estimated_cost"`
	Model         string  `json:"model"`
}

// UsageSummary агрегат по одному прогону серии.
type UsageSummary struct {
	TotalTokens    int     `json:"total_tokens"`
	EstimatedCost  float64 `json:"estimated_cost"`
	Model          string  `json:"model"`
	AISuccessRate  int     `json:"ai_success_rate"`
	AIFailureCount int     `json:"ai_failure_count"`
	TotalEmails    int     `json:"total_emails"`
}

// SeriesOutcome класс результата для сообщений пользователю.
type SeriesOutcome string

const (
	OutcomeAllAI           SeriesOutcome = "all_ai"
	OutcomePartialFallback SeriesOutcome = "partial_fallback"
	OutcomeAllTemplate     SeriesOutcome = "all_template"
)

// SeriesResult неизменяемый снимок результата прогона.
type SeriesResult struct {
	Emails  []GeneratedEmail `json:"emails"`
	Usage   UsageSummary     `json:"usage"`
	Outcome SeriesOutcome    `json:"outcome"`
}

// AIGeneratedCount количество писем, созданных моделью.
func (r SeriesResult) AIGeneratedCount() int {
	n := 0
	for _, e := range r.Emails {
		if e.GeneratedWithAI {
			n++
		}
	}
	return n
}
