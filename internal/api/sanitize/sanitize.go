// Package sanitize cleans request fields before they reach the services.
// Titles and roles become plain text; announcement bodies keep a safe subset
// of rich-text markup.
package sanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicyOnce     sync.Once
	textPolicy         *bluemonday.Policy
	markdownPolicyOnce sync.Once
	markdownPolicy     *bluemonday.Policy
)

// Text strips every tag and returns unescaped, trimmed plain text.
func Text(input string) string {
	value := strings.TrimSpace(input)
	if value == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(getTextPolicy().Sanitize(value)))
}

func StringSlice(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	out := make([]string, 0, len(values))
	for _, item := range values {
		cleaned := Text(item)
		if cleaned == "" {
			continue
		}
		out = append(out, cleaned)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func Markdown(input string) string {
	value := strings.TrimSpace(input)
	if value == "" {
		return ""
	}
	return getMarkdownPolicy().Sanitize(value)
}

func getTextPolicy() *bluemonday.Policy {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return textPolicy
}

func getMarkdownPolicy() *bluemonday.Policy {
	markdownPolicyOnce.Do(func() {
		policy := bluemonday.UGCPolicy()
		policy.AllowElements("p", "pre", "code", "blockquote")
		markdownPolicy = policy
	})

	return markdownPolicy
}
