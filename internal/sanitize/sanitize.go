// Package sanitize cleans user-supplied text before it is stored. Uses
// bluemonday to strip dangerous HTML (script tags, event handlers,
// javascript: URLs) from event descriptions and all markup from single-line
// fields such as titles and cities.
package sanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// Policies are built once and shared; bluemonday policies are safe for
// concurrent use after construction.
var (
	richPolicy  *bluemonday.Policy
	plainPolicy *bluemonday.Policy
	policyOnce  sync.Once
)

func policies() (*bluemonday.Policy, *bluemonday.Policy) {
	policyOnce.Do(func() {
		richPolicy = bluemonday.UGCPolicy()
		// Links in descriptions open in a new tab without leaking the opener.
		richPolicy.AddTargetBlankToFullyQualifiedLinks(true)

		plainPolicy = bluemonday.StrictPolicy()
	})
	return richPolicy, plainPolicy
}

// HTML sanitizes rich text, keeping safe formatting tags and links.
//
// This MUST be called on every user-provided description before storing it.
func HTML(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	rich, _ := policies()
	return rich.Sanitize(input)
}

// Text strips all markup and surrounding whitespace from a single-line
// value. The result is plain text: entities the policy emits are decoded
// again, so "Rock & Roll" is stored as typed and stays searchable.
func Text(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	_, plain := policies()
	return strings.TrimSpace(html.UnescapeString(plain.Sanitize(input)))
}

// TextPtr applies Text to an optional value, keeping nil as nil.
func TextPtr(input *string) *string {
	if input == nil {
		return nil
	}
	out := Text(*input)
	return &out
}

// HTMLPtr applies HTML to an optional value, keeping nil as nil.
func HTMLPtr(input *string) *string {
	if input == nil {
		return nil
	}
	out := HTML(*input)
	return &out
}
