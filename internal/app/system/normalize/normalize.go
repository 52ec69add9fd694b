// Package normalize holds the canonical forms for user-supplied strings
// that are stored or compared.
package normalize

import "strings"

// Email trims and lowercases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace and keeps case. Department names are
// compared exactly after this step.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Role trims and lowercases a role name.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Text trims surrounding whitespace from free-form text such as complaint
// descriptions and resolution notes.
func Text(s string) string {
	return strings.TrimSpace(s)
}
