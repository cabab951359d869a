// Package wordlimit bounds the length of generated descriptions.
//
// The limit is applied twice: Clamp caps the value sent to the model and
// Enforce trims whatever comes back, since the model is asked but not
// guaranteed to respect the budget.
package wordlimit

import "strings"

const (
	// Ceiling is the absolute word budget no request may exceed.
	Ceiling = 300
	// Floor is the smallest budget a request can carry.
	Floor = 1
	// Ellipsis marks a description cut short by Enforce.
	Ellipsis = "..."
)

// Clamp returns the effective limit for a requested word count.
func Clamp(requested int) int {
	if requested > Ceiling {
		return Ceiling
	}
	if requested < Floor {
		return Floor
	}
	return requested
}

// Enforce returns text unchanged when it has at most max whitespace
// delimited words. Longer text is cut to exactly max words, joined by single
// spaces, with Ellipsis appended to the last one.
func Enforce(text string, max int) string {
	if max < Floor {
		max = Floor
	}
	words := strings.Fields(text)
	if len(words) <= max {
		return text
	}
	return strings.Join(words[:max], " ") + Ellipsis
}

// Count reports the number of whitespace delimited words in text.
func Count(text string) int {
	return len(strings.Fields(text))
}
