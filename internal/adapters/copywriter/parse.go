package copywriter

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"promo-series/internal/domain"
)

var (
	subjectRe      = regexp.MustCompile(`(?s)Subject:(.+?)\n\n`)
	subjectLabelRe = regexp.MustCompile(`(?i)^\**subject:\**\s*`)
	markdownLinkRe = regexp.MustCompile(`\[([^\]]*?)\]\((\S+?)\)`)
	ctaRe          = regexp.MustCompile(`(?is)\[Call to Action:(.+?)\]|\*\*Call to Action:?\*\*(.+?)(\n\n|$)|Call to Action:(.+?)(\n\n|$)`)
	clickHereRe    = regexp.MustCompile(`(?i)click here`)
	signUpRe       = regexp.MustCompile(`(?i)sign up`)
	signatureRe    = regexp.MustCompile(`(?is)Best regards,\s*\n\s*\[Your Name\]\s*\n\s*\[Your Title\]\s*\n\s*\[Your Company\]\s*$`)
	anchorSpanRe   = regexp.MustCompile(`(?is)<a\b[^>]*>.*?</a>`)
	closingRe      = regexp.MustCompile(`(?sm)^(?:Best regards|Kind regards|Warm regards|Regards|Sincerely|Cheers|Best|Thanks|Talk soon),?[ \t]*\n+.+$`)
)

// ParseEmail выделяет тему и тело из ответа модели.
func ParseEmail(content string) (string, string, error) {
	content = strings.TrimSpace(strings.ReplaceAll(content, "\r\n", "\n"))
	var subject, body string
	if loc := subjectRe.FindStringSubmatchIndex(content); loc != nil {
		subject = content[loc[2]:loc[3]]
		body = content[loc[1]:]
	} else if first, rest, ok := strings.Cut(content, "\n"); ok {
		subject = subjectLabelRe.ReplaceAllString(strings.TrimSpace(first), "")
		body = rest
	}
	subject = unwrapSubject(subject)
	body = strings.TrimSpace(body)
	if subject == "" || body == "" {
		return "", "", fmt.Errorf("copywriter: %w: missing subject or body", domain.ErrAIParse)
	}
	return subject, body, nil
}

// unwrapSubject снимает обёртку **...** и парные кавычки вокруг всей темы.
// Кавычки внутри темы остаются.
func unwrapSubject(subject string) string {
	subject = strings.TrimSpace(subject)
	if len(subject) > 4 && strings.HasPrefix(subject, "**") && strings.HasSuffix(subject, "**") {
		subject = strings.TrimSpace(subject[2 : len(subject)-2])
	}
	if len(subject) >= 2 && subject[0] == '"' && subject[len(subject)-1] == '"' &&
		!strings.Contains(subject[1:len(subject)-1], `"`) {
		subject = strings.TrimSpace(subject[1 : len(subject)-1])
	}
	return subject
}

func anchor(link, text string) string {
	return fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(link), text)
}

func markdownToAnchors(body string) string {
	return markdownLinkRe.ReplaceAllStringFunc(body, func(m string) string {
		sub := markdownLinkRe.FindStringSubmatch(m)
		return anchor(sub[2], sub[1])
	})
}

// ensureAffiliateLink гарантирует, что тело содержит ссылку в виде HTML-якоря.
func ensureAffiliateLink(body, link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return body
	}
	if strings.Contains(body, link) {
		body = markdownToAnchors(body)
		if hasAnchor(body, link) {
			return body
		}
		if wrapped, ok := wrapBareLink(body, link); ok {
			return wrapped
		}
	}

	if m := ctaRe.FindStringSubmatchIndex(body); m != nil {
		return body[:m[0]] + rewriteCTA(body, m, link) + body[m[1]:]
	}

	if loc := signatureRe.FindStringIndex(body); loc != nil {
		return body[:loc[0]] + anchor(link, "Learn more about our offerings") + "\n\n" + body[loc[0]:]
	}
	if loc := closingRe.FindStringIndex(body); loc != nil {
		return body[:loc[0]] + anchor(link, "Learn more about our offerings") + "\n\n" + body[loc[0]:]
	}
	return body + "\n\n" + anchor(link, "Learn more")
}

// rewriteCTA вплетает ссылку в найденный блок призыва к действию.
func rewriteCTA(body string, m []int, link string) string {
	section := body[m[0]:m[1]]
	if loc := clickHereRe.FindStringIndex(section); loc != nil {
		return section[:loc[0]] + anchor(link, "Click here") + section[loc[1]:]
	}
	if loc := signUpRe.FindStringIndex(section); loc != nil {
		return section[:loc[0]] + anchor(link, "Sign up") + section[loc[1]:]
	}
	learnMore := anchor(link, "Learn more")
	switch {
	case m[2] >= 0:
		return "[Call to Action:" + body[m[2]:m[3]] + " - " + learnMore + "]"
	case m[4] >= 0:
		return "**Call to Action:**" + body[m[4]:m[5]] + " - " + learnMore + body[m[6]:m[7]]
	default:
		return "Call to Action:" + body[m[8]:m[9]] + " - " + learnMore + body[m[10]:m[11]]
	}
}

// hasAnchor ищет <a> с точным href.
func hasAnchor(body, link string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return strings.Contains(body, `href="`+link+`"`)
	}
	found := false
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if href, _ := s.Attr("href"); strings.TrimSpace(href) == link {
			found = true
			return false
		}
		return true
	})
	return found
}

// wrapBareLink оборачивает первое отдельное вхождение ссылки в якорь.
// Вхождения внутри атрибутов, внутри чужих якорей и префиксы более длинных URL пропускаются.
func wrapBareLink(body, link string) (string, bool) {
	spans := anchorSpanRe.FindAllStringIndex(body, -1)
	offset := 0
	for {
		idx := strings.Index(body[offset:], link)
		if idx < 0 {
			return body, false
		}
		idx += offset
		end := idx + len(link)
		offset = end
		prefix := body[:idx]
		if strings.HasSuffix(prefix, `="`) || strings.HasSuffix(prefix, `='`) {
			continue
		}
		if insideSpan(spans, idx) || !urlEndsAt(body, end) {
			continue
		}
		return prefix + anchor(link, link) + body[end:], true
	}
}

func insideSpan(spans [][]int, pos int) bool {
	for _, sp := range spans {
		if pos >= sp[0] && pos < sp[1] {
			return true
		}
	}
	return false
}

// urlEndsAt сообщает, заканчивается ли URL на позиции end.
// Завершающая пунктуация в конце предложения в URL не входит.
func urlEndsAt(body string, end int) bool {
	rest := strings.TrimLeft(body[end:], ".,;:!?")
	if rest == "" {
		return true
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return unicode.IsSpace(r) || strings.ContainsRune(`<>()[]"'`, r)
}
