// Package content repairs announcement text before it is stored and turns it
// into the bounded plain-text message carried by notifications.
//
// The normalizer is an ordered chain of small total rules. Every rule leaves
// text without a deadline label untouched, and the chain as a whole is
// idempotent: normalizing already-normalized content returns it unchanged.
package content

import (
	"regexp"
	"strings"
	"time"

	"internship-hub/pkg/clock"
)

// PendingDeadline is rendered when a deadline label is present but no end
// time has been chosen yet.
const PendingDeadline = "please choose an end time"

// Labels that carry a deadline in announcement text.
const (
	LabelResumeUpload      = "resume upload"
	LabelPreferenceRanking = "preference ranking"
)

const (
	labelGroup = `(resume upload|preference ranking)`
	// a value takes the whole run of date characters.
	valueGroup = `(please choose an end time|\d[\d\-/:]*(?:[ T]\d[\d:]*)?)`
)

var (
	// label, "deadline", separator/marker run, value.
	deadlinePattern = regexp.MustCompile(`(?i)` + labelGroup + `[ \t]*deadline[ \t]*((?:[:：\-~*#][ \t]*)*)` + valueGroup + `?`)
	// label directly followed by a colon and a date fragment, without the
	// "deadline" keyword.
	bareFragmentPattern = regexp.MustCompile(`(?i)` + labelGroup + `[ \t]*[:：]((?:[ \t]*[:：\-~*#])*)[ \t]*` + valueGroup)
	// a label already followed by a deadline phrase.
	phrasePresentPattern = regexp.MustCompile(`(?i)` + labelGroup + `[ \t]*deadline[ \t]*[:：\-~*#]`)
	// separator directly after a label that gains an appended phrase.
	labelSeparatorPattern = regexp.MustCompile(`^[ \t]*[:：]`)

	labelPatterns = map[string]*regexp.Regexp{
		LabelResumeUpload:      regexp.MustCompile(`(?i)resume upload`),
		LabelPreferenceRanking: regexp.MustCompile(`(?i)preference ranking`),
	}
	labelOrder = []string{LabelResumeUpload, LabelPreferenceRanking}
)

// Rule is one repair step of the normalization chain.
type Rule func(content string) string

type Normalizer struct {
	loc *time.Location
}

func NewNormalizer(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{loc: loc}
}

// Normalize applies the rule chain with the given end time. A nil end time
// renders the pending placeholder for malformed deadlines and appends
// nothing.
func (n *Normalizer) Normalize(content string, endTime *time.Time) string {
	out := content
	for _, rule := range n.Rules(endTime) {
		out = rule(out)
	}
	return out
}

// NormalizeRaw is Normalize with the end time given as a raw string in any of
// the accepted layouts. An unparseable end time counts as absent.
func (n *Normalizer) NormalizeRaw(content, rawEndTime string) string {
	var endTime *time.Time
	if ts, err := clock.Parse(rawEndTime, n.loc); err == nil {
		endTime = &ts
	}
	return n.Normalize(content, endTime)
}

func (n *Normalizer) Rules(endTime *time.Time) []Rule {
	formatted := ""
	if endTime != nil {
		formatted = clock.Format(*endTime, n.loc)
	}

	return []Rule{
		n.repairDeadlines(formatted),
		n.repairBareFragments(formatted),
		appendMissingDeadline(formatted),
	}
}

// FormatDeadline renders the canonical phrase for label.
func FormatDeadline(label, formattedTime string) string {
	if formattedTime == "" {
		formattedTime = PendingDeadline
	}
	return label + " deadline: " + formattedTime
}

func (n *Normalizer) repairDeadlines(formatted string) Rule {
	return func(content string) string {
		return rewrite(deadlinePattern, content, func(groups []string) (string, bool) {
			label, markers, value := groups[1], strings.TrimSpace(groups[2]), groups[3]
			if markers == "" && value == "" {
				// "deadline" used as a plain word; not a phrase.
				return "", false
			}
			return FormatDeadline(label, n.resolveTime(formatted, markers, value)), true
		})
	}
}

func (n *Normalizer) repairBareFragments(formatted string) Rule {
	return func(content string) string {
		return rewrite(bareFragmentPattern, content, func(groups []string) (string, bool) {
			label, markers, value := groups[1], strings.TrimSpace(groups[2]), groups[3]
			// the colon after the label has been consumed; anything left is stray.
			if markers == "" {
				markers = ":"
			} else {
				markers = ":" + markers
			}
			return FormatDeadline(label, n.resolveTime(formatted, markers, value)), true
		})
	}
}

// rewrite replaces each match of re with the phrase built by fn. Blanks that
// closed a match are kept, and a phrase never runs into a following digit or
// colon.
func rewrite(re *regexp.Regexp, content string, fn func(groups []string) (string, bool)) string {
	matches := re.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return content
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		groups := make([]string, len(m)/2)
		for i := range groups {
			if m[2*i] >= 0 {
				groups[i] = content[m[2*i]:m[2*i+1]]
			}
		}

		b.WriteString(content[last:m[0]])
		last = m[1]
		phrase, ok := fn(groups)
		if !ok {
			b.WriteString(groups[0])
			continue
		}

		b.WriteString(phrase)
		tail := groups[0][len(strings.TrimRight(groups[0], " \t")):]
		if tail == "" {
			tail = separatorBefore(content[m[1]:])
		}
		b.WriteString(tail)
	}
	b.WriteString(content[last:])
	return b.String()
}

func separatorBefore(rest string) string {
	if rest == "" {
		return ""
	}
	if c := rest[0]; c == ':' || (c >= '0' && c <= '9') {
		return " "
	}
	return ""
}

func (n *Normalizer) resolveTime(formatted, markers, value string) string {
	if formatted != "" {
		return formatted
	}
	if strings.EqualFold(value, PendingDeadline) {
		return PendingDeadline
	}
	if isStrayMarker(markers) {
		return PendingDeadline
	}
	ts, err := clock.Parse(value, n.loc)
	if err != nil {
		return PendingDeadline
	}
	return clock.Format(ts, n.loc)
}

func isStrayMarker(markers string) bool {
	compact := strings.Join(strings.Fields(markers), "")
	switch compact {
	case "", ":", "：":
		return false
	default:
		return true
	}
}

func appendMissingDeadline(formatted string) Rule {
	return func(content string) string {
		if formatted == "" {
			return content
		}

		out := content
		for _, label := range labelOrder {
			if hasPhraseFor(out, label) {
				continue
			}
			loc := labelPatterns[label].FindStringIndex(out)
			if loc == nil {
				continue
			}
			rest := out[loc[1]:]
			if sep := labelSeparatorPattern.FindStringIndex(rest); sep != nil {
				rest = rest[sep[1]:]
			}
			out = out[:loc[1]] + " deadline: " + formatted + separatorBefore(rest) + rest
		}
		return out
	}
}

func hasPhraseFor(content, label string) bool {
	for _, groups := range phrasePresentPattern.FindAllStringSubmatch(content, -1) {
		if strings.EqualFold(groups[1], label) {
			return true
		}
	}
	return false
}
