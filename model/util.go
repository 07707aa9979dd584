package model

import "strings"

// indexFold returns the index of needle within haystack, case-insensitive,
// or -1 if absent.
func indexFold(haystack, needle string) int {
	return strings.Index(strings.ToLower(haystack), strings.ToLower(needle))
}
