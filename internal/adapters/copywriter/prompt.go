package copywriter

import (
	"fmt"
	"net/url"
	"strings"

	"promo-series/internal/domain"
)

const (
	minWords     = 100
	maxWords     = 300
	subjectLimit = 50
)

func systemPrompt(tone domain.Tone, tier string) string {
	var b strings.Builder
	b.WriteString("You are an expert email marketing copywriter who writes promotional affiliate marketing emails at a 5th grade reading level.\n\n")
	b.WriteString("CRITICAL REQUIREMENTS:\n")
	fmt.Fprintf(&b, "- Keep the email between %d-%d words total\n", minWords, maxWords)
	fmt.Fprintf(&b, "- The subject line must be under %d characters\n", subjectLimit)
	b.WriteString("- Use simple, everyday words and short sentences\n")
	b.WriteString("- Avoid jargon and technical terms\n")
	b.WriteString("- Focus on benefits, not features\n")
	b.WriteString("- Use a problem-solution-cta structure\n\n")
	b.WriteString("Start your answer with a line in the form \"Subject: <subject line>\" followed by a blank line and then the email body.\n\n")
	fmt.Fprintf(&b, "TONE: Write in a %s tone while keeping language simple and clear.", tone)
	switch normalizeTier(tier) {
	case "gold":
		b.WriteString(" Use premium persuasion techniques but keep language at 5th grade level.")
	case "pro":
		b.WriteString(" Use professional persuasion while maintaining simple language.")
	}
	return b.String()
}

func userPrompt(req domain.FocusRequest) string {
	opts := req.Options
	site := websiteName(opts)
	var b strings.Builder
	fmt.Fprintf(&b, "# EMAIL ASSIGNMENT\n\nCreate a promotional affiliate marketing email about %q for %s.\n\n", req.Benefit, site)
	b.WriteString("## WEBSITE INFORMATION\n")
	fmt.Fprintf(&b, "- Website Name: %s\n", site)
	fmt.Fprintf(&b, "- Main Benefit Focus: %q\n", req.Benefit)
	fmt.Fprintf(&b, "- Industry: %s\n", opts.Industry)
	fmt.Fprintf(&b, "- Email %d of %d in series\n\n", req.Position.EmailNumber, req.Position.TotalEmails)
	b.WriteString("Focus ONLY on this one benefit. Do not mention the other benefits of the series.\n\n")

	fmt.Fprintf(&b, "## EMAIL STRUCTURE (%d-%d words total)\n", minWords, maxWords)
	fmt.Fprintf(&b, "1. SUBJECT LINE under %d characters that creates curiosity about the benefit\n", subjectLimit)
	fmt.Fprintf(&b, "2. OPENING (20-40 words): a common problem related to %q\n", req.Benefit)
	fmt.Fprintf(&b, "3. MIDDLE (60-120 words): how %s solves it, with simple social proof\n", site)
	b.WriteString("4. CALL TO ACTION (20-40 words)\n")
	if opts.HasAffiliateLink() {
		link := strings.TrimSpace(opts.AffiliateLink)
		fmt.Fprintf(&b, "   - Include this exact link: %s\n", link)
		fmt.Fprintf(&b, "   - Format it as HTML: <a href=\"%s\">simple action words</a>\n", link)
		b.WriteString("   - Use action words like \"Get this now\" or \"Try it today\"\n")
	} else {
		fmt.Fprintf(&b, "   - Invite the reader to visit %s\n", site)
	}
	b.WriteString("5. CLOSING: a simple, friendly sign-off\n")
	if !req.Position.IsLast() {
		b.WriteString("\nEnd with one short line hinting that the next email will share another benefit.\n")
	}
	return b.String()
}

// websiteName выбирает имя сайта: заголовок, домен или хост из URL.
func websiteName(opts domain.GenerationOptions) string {
	if title := strings.TrimSpace(opts.WebsiteTitle); title != "" {
		return title
	}
	if d := strings.TrimSpace(opts.Domain); d != "" {
		return d
	}
	if raw := strings.TrimSpace(opts.WebsiteURL); raw != "" {
		if u, err := url.Parse(raw); err == nil && u.Hostname() != "" {
			return strings.TrimPrefix(u.Hostname(), "www.")
		}
	}
	return "our website"
}
