package export

import (
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/osteele/liquid"

	"promo-series/internal/domain"
)

// Target формат экспорта.
type Target string

const (
	TargetText     Target = "text"
	TargetHTML     Target = "html"
	TargetMarkdown Target = "markdown"
	TargetCSV      Target = "csv"
)

// Mode способ доставки результата.
type Mode string

const (
	ModeClipboard Mode = "clipboard"
	ModeFile      Mode = "file"
)

// ErrUnsupportedFormat формат экспорта не поддерживается.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ErrPDFNotAvailable экспорт в PDF пока не реализован.
var ErrPDFNotAvailable = fmt.Errorf("PDF export will be available in a future update: %w", ErrUnsupportedFormat)

const documentTemplate = `<!DOCTYPE html>
<html>
<head>
  <title>{{ subject | escape }}</title>
  <meta charset="UTF-8">
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; max-width: 600px; margin: 0 auto; padding: 20px; }
    h1 { color: #333; }
    .badge { display: inline-block; padding: 2px 8px; border-radius: 4px; font-size: 12px; color: #fff; background: {% if ai %}#16a34a{% else %}#6b7280{% endif %}; }
    .email-meta { color: #666; font-size: 12px; }
  </style>
</head>
<body>
  <span class="badge">{{ badge }}</span>
  <h1>{{ subject | escape }}</h1>
  <div class="email-body">{{ body }}</div>
{%- if show_footer %}
  <hr>
  <div class="email-meta">{{ footer }}</div>
{%- endif %}
</body>
</html>`

const fragmentTemplate = `<h2>{{ subject | escape }}</h2>
<p><span class="badge">{{ badge }}</span></p>
<div>{{ body }}</div>`

var newlineRe = regexp.MustCompile(`\r?\n`)

// Formatter превращает письмо или серию в текст, HTML, Markdown или CSV.
type Formatter struct {
	document *liquid.Template
	fragment *liquid.Template
	series   *liquid.Template
}

// NewFormatter компилирует HTML-шаблоны.
func NewFormatter() (*Formatter, error) {
	engine := liquid.NewEngine()
	document, err := engine.ParseString(documentTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse document template: %w", err)
	}
	fragment, err := engine.ParseString(fragmentTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse fragment template: %w", err)
	}
	series, err := engine.ParseString(seriesTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse series template: %w", err)
	}
	return &Formatter{document: document, fragment: fragment, series: series}, nil
}

// ParseTarget разбирает имя формата.
func ParseTarget(raw string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "text", "txt", "plain":
		return TargetText, nil
	case "html", "htm":
		return TargetHTML, nil
	case "markdown", "md":
		return TargetMarkdown, nil
	case "csv":
		return TargetCSV, nil
	case "pdf":
		return "", ErrPDFNotAvailable
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, raw)
	}
}

// ParseMode разбирает способ доставки. По умолчанию clipboard.
func ParseMode(raw string) Mode {
	if strings.EqualFold(strings.TrimSpace(raw), string(ModeFile)) {
		return ModeFile
	}
	return ModeClipboard
}

// Format возвращает письмо в нужном формате. Для файла добавляется блок метаданных.
func (f *Formatter) Format(email domain.GeneratedEmail, target Target, mode Mode) (string, error) {
	withFooter := mode == ModeFile
	switch target {
	case TargetText:
		out := fmt.Sprintf("Subject: %s\n\n%s", email.Subject, email.Body)
		if withFooter {
			out += footer(email)
		}
		return out, nil
	case TargetMarkdown:
		out := fmt.Sprintf("# %s\n\n%s", email.Subject, email.Body)
		if withFooter {
			out += footer(email)
		}
		return out, nil
	case TargetHTML:
		return f.renderHTML(email, withFooter)
	case TargetCSV:
		return toCSV([]domain.GeneratedEmail{email})
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, target)
	}
}

func (f *Formatter) renderHTML(email domain.GeneratedEmail, withFooter bool) (string, error) {
	bindings := liquid.Bindings{
		"subject":     email.Subject,
		"body":        toBreaks(email.Body),
		"ai":          email.GeneratedWithAI,
		"badge":       badge(email),
		"footer":      "",
		"show_footer": withFooter,
	}
	tpl := f.fragment
	if withFooter {
		tpl = f.document
		bindings["footer"] = toBreaks(html.EscapeString(strings.TrimPrefix(footer(email), "\n\n---\n")))
	}
	out, err := tpl.RenderString(bindings)
	if err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return out, nil
}

// FileName имя файла для экспорта: email-<n>-<domain>.<ext>.
func FileName(email domain.GeneratedEmail, target Target) string {
	site := strings.TrimSpace(email.Domain)
	if site == "" {
		site = "email"
	}
	site = strings.NewReplacer("/", "-", "\\", "-", ":", "-", " ", "-").Replace(site)
	return fmt.Sprintf("email-%d-%s.%s", email.EmailNumber, site, Extension(target))
}

// Extension расширение файла для формата.
func Extension(target Target) string {
	switch target {
	case TargetHTML:
		return "html"
	case TargetMarkdown:
		return "md"
	case TargetCSV:
		return "csv"
	default:
		return "txt"
	}
}

// ContentType MIME-тип для формата.
func ContentType(target Target) string {
	switch target {
	case TargetHTML:
		return "text/html; charset=utf-8"
	case TargetMarkdown:
		return "text/markdown; charset=utf-8"
	case TargetCSV:
		return "text/csv; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// WordCount считает слова в тексте письма без HTML-разметки.
func WordCount(body string) int {
	text := body
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(body)); err == nil {
		text = doc.Text()
	}
	return len(strings.Fields(text))
}

func footer(email domain.GeneratedEmail) string {
	method := "Template"
	if email.GeneratedWithAI {
		method = "AI"
		if email.Model != "" {
			method += " (" + email.Model + ")"
		}
	}
	tier := email.UserTier
	if tier == "" {
		tier = "free"
	}
	var b strings.Builder
	b.WriteString("\n\n---\nEmail Metadata:\n")
	fmt.Fprintf(&b, "Generated with: %s\n", method)
	fmt.Fprintf(&b, "User Tier: %s\n", tier)
	fmt.Fprintf(&b, "Word Count: %d\n", WordCount(email.Body))
	fmt.Fprintf(&b, "Created: %s\n", email.CreatedAt.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "Focus Benefit: %s", email.Benefit)
	return b.String()
}

func badge(email domain.GeneratedEmail) string {
	if email.GeneratedWithAI {
		return "AI Generated"
	}
	return "Template"
}

func toBreaks(s string) string {
	return newlineRe.ReplaceAllString(s, "<br>")
}
