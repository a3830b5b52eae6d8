package composer

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"promo-series/internal/domain"
)

const (
	subjectWords = 6
	greeting     = "Hi there!"
	fallbackSite = "our website"
)

// TemplateComposer реализует domain.Composer на заготовленных фразах.
type TemplateComposer struct {
	pick func(n int) int
}

var _ domain.Composer = (*TemplateComposer)(nil)

// NewTemplate создаёт Composer со случайным выбором темы письма.
func NewTemplate() *TemplateComposer {
	return &TemplateComposer{pick: rand.IntN}
}

// NewTemplateWithPicker позволяет зафиксировать выбор варианта темы.
func NewTemplateWithPicker(pick func(n int) int) *TemplateComposer {
	if pick == nil {
		pick = rand.IntN
	}
	return &TemplateComposer{pick: pick}
}

// Compose собирает тему и тело письма про одну выгоду.
func (c *TemplateComposer) Compose(benefit string, opts domain.GenerationOptions, pos domain.SeriesPosition) domain.ComposedEmail {
	benefit = strings.TrimSpace(benefit)
	site := strings.TrimSpace(opts.Domain)
	if site == "" {
		site = fallbackSite
	}
	return domain.ComposedEmail{
		Subject: c.subject(benefit, site, opts.Tone, pos),
		Body:    body(benefit, site, opts, pos),
	}
}

func (c *TemplateComposer) subject(benefit, site string, tone domain.Tone, pos domain.SeriesPosition) string {
	short := simplify(firstWords(benefit, subjectWords))
	templates := subjectTemplates(tone, site, short)
	idx := c.pick(len(templates))
	if idx < 0 || idx >= len(templates) {
		idx = 0
	}
	subject := templates[idx]
	if pos.TotalEmails > 1 {
		subject = fmt.Sprintf("[%d/%d] %s", pos.EmailNumber, pos.TotalEmails, subject)
	}
	return subject
}

func body(benefit, site string, opts domain.GenerationOptions, pos domain.SeriesPosition) string {
	sections := []string{greeting, intro(opts.Tone, site)}
	if pos.TotalEmails > 1 {
		sections = append(sections, fmt.Sprintf("This is email %d of %d in a short series about what %s can do for you.", pos.EmailNumber, pos.TotalEmails, site))
	}
	sections = append(sections,
		highlight(opts.Industry, benefit),
		evidence(opts.Industry),
		bulletList(visualization(opts.Industry)),
		callToAction(opts.Tone, site, strings.TrimSpace(opts.AffiliateLink)),
	)
	if !pos.IsLast() {
		sections = append(sections, fmt.Sprintf("Keep an eye on your inbox: in my next email I'll show you another way %s can help.", site))
	}
	sections = append(sections, signoff(opts.Tone))
	return strings.Join(sections, "\n\n")
}

func bulletList(items []string) string {
	var b strings.Builder
	b.WriteString("Picture this:")
	for _, item := range items {
		b.WriteString("\n• " + item)
	}
	return b.String()
}

func firstWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}
