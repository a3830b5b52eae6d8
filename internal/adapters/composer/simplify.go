package composer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// простые замены сложных слов для уровня чтения 5 класса
var simpleWords = map[string]string{
	"accomplish":    "do",
	"achieve":       "get",
	"acquire":       "get",
	"additional":    "more",
	"adequate":      "enough",
	"advantageous":  "good",
	"approximately": "about",
	"assist":        "help",
	"beneficial":    "good",
	"commence":      "start",
	"complete":      "finish",
	"comprehensive": "full",
	"demonstrate":   "show",
	"determine":     "find out",
	"difficult":     "hard",
	"discover":      "find",
	"eliminate":     "remove",
	"enhance":       "make better",
	"enormous":      "huge",
	"establish":     "set up",
	"excellent":     "great",
	"exceptional":   "great",
	"experience":    "try",
	"extremely":     "very",
	"facilitate":    "help",
	"function":      "work",
	"generate":      "make",
	"implement":     "use",
	"improve":       "make better",
	"incredible":    "amazing",
	"indicate":      "show",
	"individuals":   "people",
	"innovative":    "new",
	"instruction":   "help",
	"maintain":      "keep",
	"maximum":       "most",
	"methodology":   "way",
	"minimum":       "least",
	"numerous":      "many",
	"objective":     "goal",
	"obtain":        "get",
	"opportunity":   "chance",
	"optimize":      "make better",
	"participate":   "join",
	"particular":    "special",
	"perform":       "do",
	"possess":       "have",
	"potential":     "possible",
	"previous":      "past",
	"primary":       "main",
	"procedure":     "steps",
	"produce":       "make",
	"professional":  "expert",
	"provide":       "give",
	"purchase":      "buy",
	"receive":       "get",
	"recommend":     "suggest",
	"reduce":        "cut",
	"require":       "need",
	"significant":   "big",
	"solution":      "answer",
	"sufficient":    "enough",
	"superior":      "better",
	"transform":     "change",
	"tremendous":    "huge",
	"utilize":       "use",
	"various":       "different",
}

var wordRe = regexp.MustCompile(`[A-Za-z]+`)

// simplify заменяет сложные слова простыми. Заглавная первая буква сохраняется.
func simplify(text string) string {
	return wordRe.ReplaceAllStringFunc(text, func(word string) string {
		simple, ok := simpleWords[strings.ToLower(word)]
		if !ok {
			return word
		}
		if r, _ := utf8.DecodeRuneInString(word); unicode.IsUpper(r) {
			return strings.ToUpper(simple[:1]) + simple[1:]
		}
		return simple
	})
}
