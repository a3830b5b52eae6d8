package copywriter

import (
	"errors"
	"math"
	"strings"
	"testing"

	"promo-series/internal/domain"
)

const link = "https://aff.example/go?id=1"

func TestParseEmailWithSubjectMarker(t *testing.T) {
	subject, body, err := ParseEmail("Subject: **Sleep better tonight**\r\n\r\nHello friend.\nMore text.")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if subject != "Sleep better tonight" {
		t.Fatalf("неожиданная тема: %q", subject)
	}
	if body != "Hello friend.\nMore text." {
		t.Fatalf("неожиданное тело: %q", body)
	}
}

func TestParseEmailFirstLineFallback(t *testing.T) {
	subject, body, err := ParseEmail("subject: Quick win\nBody line one\nBody line two")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if subject != "Quick win" || body != "Body line one\nBody line two" {
		t.Fatalf("неожиданный разбор: %q / %q", subject, body)
	}
}

func TestParseEmailRejectsEmptyParts(t *testing.T) {
	for _, input := range []string{"", "   ", "only one line", "Subject: \n\n"} {
		if _, _, err := ParseEmail(input); !errors.Is(err, domain.ErrAIParse) {
			t.Fatalf("ввод %q: ожидали ошибку разбора, получили %v", input, err)
		}
	}
}

func TestEnsureAffiliateLinkKeepsExistingAnchor(t *testing.T) {
	body := `Try it: <a href="` + link + `">Get this now</a>`
	if got := ensureAffiliateLink(body, link); got != body {
		t.Fatalf("готовый якорь не должен меняться: %q", got)
	}
}

func TestEnsureAffiliateLinkConvertsMarkdown(t *testing.T) {
	got := ensureAffiliateLink("Try it: [Get this now]("+link+")", link)
	if got != `Try it: <a href="`+link+`">Get this now</a>` {
		t.Fatalf("неожиданный результат: %q", got)
	}
}

func TestEnsureAffiliateLinkWrapsBareLink(t *testing.T) {
	got := ensureAffiliateLink("Go here: "+link+" now", link)
	if got != `Go here: <a href="`+link+`">`+link+`</a> now` {
		t.Fatalf("неожиданный результат: %q", got)
	}
}

func TestParseEmailKeepsInnerQuotes(t *testing.T) {
	cases := map[string]string{
		"Subject: \"Free\" forever\n\nBody.":     `"Free" forever`,
		"Subject: \"Quoted whole\"\n\nBody.":     "Quoted whole",
		"Subject: **\"Free\" forever**\n\nBody.": `"Free" forever`,
		"Subject: Deal of the day*\n\nBody.":     "Deal of the day*",
		"Subject: \"A\" or \"B\"\n\nBody.":       `"A" or "B"`,
	}
	for input, want := range cases {
		subject, _, err := ParseEmail(input)
		if err != nil {
			t.Fatalf("ввод %q: неожиданная ошибка: %v", input, err)
		}
		if subject != want {
			t.Fatalf("ввод %q: ожидали %q, получили %q", input, want, subject)
		}
	}
}

func TestEnsureAffiliateLinkSkipsLongerURL(t *testing.T) {
	short := "https://x.com/a"
	got := ensureAffiliateLink("See https://x.com/abc and "+short+".", short)
	want := `See https://x.com/abc and <a href="` + short + `">` + short + `</a>.`
	if got != want {
		t.Fatalf("неожиданный результат: %q", got)
	}
	got = ensureAffiliateLink("See https://x.com/abc today", short)
	if strings.Contains(got, `https://x.com/abc</a>`) || strings.Contains(got, `<a href="`+short+`">https`) {
		t.Fatalf("более длинный URL не должен ломаться: %q", got)
	}
	if !hasAnchor(got, short) {
		t.Fatalf("ссылка должна появиться: %q", got)
	}
}

func TestEnsureAffiliateLinkDoesNotNestAnchors(t *testing.T) {
	body := `Read <a href="https://other.example">` + link + `</a> now`
	got := ensureAffiliateLink(body, link)
	if !strings.HasPrefix(got, body) {
		t.Fatalf("чужой якорь не должен меняться: %q", got)
	}
	if strings.Count(got, "<a ") != 2 || !hasAnchor(got, link) {
		t.Fatalf("ожидали отдельный якорь партнёрской ссылки: %q", got)
	}
}

func TestAnchorEscapesHref(t *testing.T) {
	odd := `https://x.example/?q="a"&b=<c>`
	got := anchor(odd, "Go")
	if got != `<a href="https://x.example/?q=&#34;a&#34;&amp;b=&lt;c&gt;">Go</a>` {
		t.Fatalf("href не экранирован: %q", got)
	}
	if !hasAnchor(ensureAffiliateLink("Plain body.", odd), odd) {
		t.Fatal("экранированный якорь должен распознаваться")
	}
}

func TestEnsureAffiliateLinkCTAVariants(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "click here",
			body: "Intro.\n\nCall to Action: click here to start\n\nBye",
			want: "Intro.\n\nCall to Action: " + anchor(link, "Click here") + " to start\n\nBye",
		},
		{
			name: "sign up",
			body: "**Call to Action:** Sign up today\n\nBye",
			want: "**Call to Action:** " + anchor(link, "Sign up") + " today\n\nBye",
		},
		{
			name: "bracket",
			body: "Intro. [Call to Action: Try it today] Bye",
			want: "Intro. [Call to Action: Try it today - " + anchor(link, "Learn more") + "] Bye",
		},
		{
			name: "bold at end",
			body: "Intro.\n\n**Call to Action:** Try it today",
			want: "Intro.\n\n**Call to Action:** Try it today - " + anchor(link, "Learn more"),
		},
		{
			name: "plain",
			body: "Call to Action: Try it today\n\nBye",
			want: "Call to Action: Try it today - " + anchor(link, "Learn more") + "\n\nBye",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ensureAffiliateLink(tc.body, link); got != tc.want {
				t.Fatalf("ожидали %q, получили %q", tc.want, got)
			}
		})
	}
}

func TestEnsureAffiliateLinkBeforeClosing(t *testing.T) {
	got := ensureAffiliateLink("It helps a lot.\n\nBest regards,\nSam", link)
	want := "It helps a lot.\n\n" + anchor(link, "Learn more about our offerings") + "\n\nBest regards,\nSam"
	if got != want {
		t.Fatalf("ожидали %q, получили %q", want, got)
	}
}

func TestEnsureAffiliateLinkBeforePlaceholderSignature(t *testing.T) {
	body := "It helps.\n\nBest regards,\n[Your Name]\n[Your Title]\n[Your Company]"
	got := ensureAffiliateLink(body, link)
	if !strings.HasPrefix(got, "It helps.\n\n"+anchor(link, "Learn more about our offerings")+"\n\nBest regards,") {
		t.Fatalf("неожиданный результат: %q", got)
	}
}

func TestEnsureAffiliateLinkAppendsAsLastResort(t *testing.T) {
	got := ensureAffiliateLink("Short body.", link)
	if got != "Short body.\n\n"+anchor(link, "Learn more") {
		t.Fatalf("неожиданный результат: %q", got)
	}
}

func TestEnsureAffiliateLinkAlwaysProducesAnchor(t *testing.T) {
	bodies := []string{
		"plain",
		"see " + link,
		"[x](" + link + ")",
		"Call to Action: go",
		"Thanks\nTeam",
		`<a href="https://other.example">other</a>`,
	}
	for _, b := range bodies {
		if out := ensureAffiliateLink(b, link); !hasAnchor(out, link) {
			t.Fatalf("нет якоря для %q: %q", b, out)
		}
	}
}

func TestEstimateTokensAndCost(t *testing.T) {
	if got := EstimateTokens(strings.Repeat("a", 7)); got != 3 {
		t.Fatalf("ожидали 3 токена, получили %d", got)
	}
	if EstimateTokens("") != 0 {
		t.Fatal("пустой текст должен давать 0 токенов")
	}
	if got := EstimateCost("mystery-model", 1000, 1000); math.Abs(got-0.0015) > 1e-9 {
		t.Fatalf("неизвестная модель должна считаться по haiku, получили %f", got)
	}
	if got := EstimateCost("claude-3-opus-20240229", 1000, 0); math.Abs(got-0.015) > 1e-9 {
		t.Fatalf("неожиданная стоимость opus: %f", got)
	}
	if ModelForTier("GOLD").MaxTokens != 8000 || ModelForTier("platinum").Model != modelHaiku {
		t.Fatal("неожиданная таблица тарифов")
	}
}
