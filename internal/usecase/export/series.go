package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/osteele/liquid"

	"promo-series/internal/domain"
)

// ErrEmptySeries в серии нет писем для экспорта.
var ErrEmptySeries = errors.New("no emails to export")

const untitledSeries = "Untitled Series"

const seriesTemplate = `<!DOCTYPE html>
<html>
<head>
  <title>Email Series: {{ name | escape }}</title>
  <meta charset="UTF-8">
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; max-width: 800px; margin: 0 auto; padding: 20px; }
    h1 { color: #333; }
    h2 { color: #555; margin-top: 30px; }
    .email { margin-bottom: 40px; border-bottom: 1px solid #eee; padding-bottom: 20px; }
  </style>
</head>
<body>
  <h1>Email Series: {{ name | escape }}</h1>
{%- for email in emails %}
  <div class="email">
    <h2>Email {{ email.number }}: {{ email.subject | escape }}</h2>
    <div class="email-body">{{ email.body }}</div>
  </div>
{%- endfor %}
</body>
</html>`

// FormatSeries собирает всю серию в один документ.
func (f *Formatter) FormatSeries(name string, emails []domain.GeneratedEmail, target Target) (string, error) {
	if len(emails) == 0 {
		return "", ErrEmptySeries
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = untitledSeries
	}
	switch target {
	case TargetText:
		var b strings.Builder
		for i, email := range emails {
			fmt.Fprintf(&b, "Email %d: %s\n\n%s\n\n---\n\n", number(email, i), email.Subject, email.Body)
		}
		return b.String(), nil
	case TargetMarkdown:
		var b strings.Builder
		fmt.Fprintf(&b, "# Email Series: %s\n\n", name)
		for i, email := range emails {
			fmt.Fprintf(&b, "## Email %d: %s\n\n%s\n\n---\n\n", number(email, i), email.Subject, email.Body)
		}
		return b.String(), nil
	case TargetHTML:
		return f.renderSeriesHTML(name, emails)
	case TargetCSV:
		return toCSV(emails)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, target)
	}
}

func (f *Formatter) renderSeriesHTML(name string, emails []domain.GeneratedEmail) (string, error) {
	items := make([]map[string]any, len(emails))
	for i, email := range emails {
		items[i] = map[string]any{
			"number":  number(email, i),
			"subject": email.Subject,
			"body":    toBreaks(email.Body),
		}
	}
	out, err := f.series.RenderString(liquid.Bindings{"name": name, "emails": items})
	if err != nil {
		return "", fmt.Errorf("render series html: %w", err)
	}
	return out, nil
}

func toCSV(emails []domain.GeneratedEmail) (string, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)
	rows := [][]string{{"Email Number", "Subject", "Body", "Benefit", "Generated With AI"}}
	for i, email := range emails {
		rows = append(rows, []string{
			strconv.Itoa(number(email, i)),
			email.Subject,
			email.Body,
			email.Benefit,
			strconv.FormatBool(email.GeneratedWithAI),
		})
	}
	if err := w.WriteAll(rows); err != nil {
		return "", fmt.Errorf("write csv: %w", err)
	}
	return b.String(), nil
}

// number порядковый номер письма. Для писем без номера берётся позиция.
func number(email domain.GeneratedEmail, i int) int {
	if email.EmailNumber > 0 {
		return email.EmailNumber
	}
	return i + 1
}

// SeriesFileName имя файла для серии: email-series-<name>.<ext>.
func SeriesFileName(name string, target Target) string {
	slug := strings.Join(strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '.')
	}), "-")
	if slug == "" {
		return "email-series." + Extension(target)
	}
	return "email-series-" + slug + "." + Extension(target)
}
