// Package sanitize cleans text that arrives from the work-management
// platform before it is rendered. Item and subitem names are free text on
// the platform side and may carry markup; the widget only ever shows them
// as plain text.
package sanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// maxNameLength caps a rendered name in runes.
const maxNameLength = 255

// policy is the singleton strict policy: every tag is stripped.
var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

// getPolicy returns the shared sanitization policy, initializing it on first call.
func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// PlainText strips all markup from input and returns the unescaped text,
// collapsed to single spaces and capped at maxNameLength runes. The result
// still has to be escaped by the renderer.
func PlainText(input string) string {
	if input == "" {
		return ""
	}
	stripped := html.UnescapeString(getPolicy().Sanitize(input))
	text := strings.Join(strings.Fields(stripped), " ")

	runes := []rune(text)
	if len(runes) > maxNameLength {
		text = string(runes[:maxNameLength-1]) + "…"
	}
	return text
}
