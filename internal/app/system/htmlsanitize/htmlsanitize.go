// Package htmlsanitize strips markup from user-supplied text before it is
// embedded in outgoing email.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// StripTags removes every HTML element from s and returns plain text.
// Entities are decoded so the result can be escaped again by html/template
// without double-encoding.
func StripTags(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}
