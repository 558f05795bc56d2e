// Package utils provides shared utilities for text and logging.
package utils

import "unicode/utf8"

// Truncate shortens s to at most maxLen runes and marks the cut with "...".
// A maxLen of zero or less leaves s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	n := 0
	for i := range s {
		if n == maxLen {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
