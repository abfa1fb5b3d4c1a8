package engine

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	defaultTitle  = "New conversation"
	titleMaxWords = 8
	titleMaxRunes = 60
)

var titleWordRE = regexp.MustCompile(`[\p{L}]+[\p{N}]*`)

var titleStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "to": {}, "in": {},
	"is": {}, "are": {}, "for": {}, "on": {}, "with": {}, "by": {}, "from": {},
	"at": {}, "as": {}, "that": {}, "this": {}, "it": {}, "be": {}, "was": {}, "were": {},
	"i": {}, "my": {}, "me": {}, "do": {}, "does": {}, "can": {}, "what": {}, "how": {},
}

// threadTitle derives a short title-cased label from the first message of a
// thread, falling back to a placeholder when nothing usable remains.
func threadTitle(message string) string {
	words := titleWordRE.FindAllString(strings.ToLower(message), -1)
	caser := cases.Title(language.English) // Caser is stateful, one per call
	out := make([]string, 0, titleMaxWords)
	for _, w := range words {
		if _, skip := titleStopWords[w]; skip {
			continue
		}
		out = append(out, caser.String(w))
		if len(out) == titleMaxWords {
			break
		}
	}
	if len(out) == 0 {
		return defaultTitle
	}
	title := strings.Join(out, " ")
	if utf8.RuneCountInString(title) > titleMaxRunes {
		title = strings.TrimSpace(string([]rune(title)[:titleMaxRunes]))
	}
	return title
}
