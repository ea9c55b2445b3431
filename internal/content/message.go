package content

import (
	"html"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// MaxMessageRunes bounds the notification message shown in the bell list.
const MaxMessageRunes = 200

const (
	boundarySearchWindow = 150
	hardCutMarker        = "..."
)

var (
	canonicalPhrasePattern = regexp.MustCompile(`(?i)(resume upload|preference ranking) deadline: (\d{4}-\d{2}-\d{2} \d{2}:\d{2}|please choose an end time)`)
	whitespacePattern      = regexp.MustCompile(`\s+`)

	plainTextPolicyOnce sync.Once
	plainTextPolicy     *bluemonday.Policy
)

// PlainText strips markup from rich-text content and collapses whitespace.
func PlainText(richText string) string {
	plainTextPolicyOnce.Do(func() {
		plainTextPolicy = bluemonday.StrictPolicy()
		plainTextPolicy.AddSpaceWhenStrippingTag(true)
	})

	stripped := html.UnescapeString(plainTextPolicy.Sanitize(richText))
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(stripped, " "))
}

// TruncateMessage bounds text to MaxMessageRunes. A canonical deadline phrase
// that would be cut off is kept whole: the text before it is shortened at the
// nearest sentence boundary and the phrase is appended verbatim.
func TruncateMessage(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxMessageRunes {
		return text
	}

	loc := canonicalPhrasePattern.FindStringIndex(text)
	if loc == nil {
		return string(runes[:MaxMessageRunes])
	}

	phrase := text[loc[0]:loc[1]]
	phraseStart := utf8.RuneCountInString(text[:loc[0]])
	phraseEnd := phraseStart + utf8.RuneCountInString(phrase)
	if phraseEnd <= MaxMessageRunes {
		return string(runes[:MaxMessageRunes])
	}

	budget := MaxMessageRunes - utf8.RuneCountInString(phrase) - utf8.RuneCountInString(hardCutMarker+" ")
	limit := minInt(boundarySearchWindow, budget, phraseStart)
	if limit <= 0 {
		return phrase
	}

	for i := limit - 1; i >= 0; i-- {
		if isSentenceBoundary(runes[i]) {
			head := strings.TrimSpace(string(runes[:i+1]))
			if head == "" {
				break
			}
			return head + " " + phrase
		}
	}

	head := strings.TrimSpace(string(runes[:limit]))
	if head == "" {
		return phrase
	}
	return head + hardCutMarker + " " + phrase
}

func isSentenceBoundary(r rune) bool {
	switch r {
	case '.', '!', '?', ';', '\n', '。', '！', '？', '；':
		return true
	default:
		return false
	}
}

func minInt(values ...int) int {
	out := values[0]
	for _, v := range values[1:] {
		if v < out {
			out = v
		}
	}
	return out
}
