package catalog

import (
	"strings"

	"golang.org/x/text/cases"
)

// Key returns the canonical lookup form of a name: trimmed and case-folded.
// Course names, module titles, topics and answers are all compared by Key.
func Key(s string) string {
	// Casers are stateful, so each call gets its own.
	return cases.Fold().String(strings.TrimSpace(s))
}

// SameText reports whether two strings are equal after trimming and case folding.
func SameText(a, b string) bool {
	return Key(a) == Key(b)
}
