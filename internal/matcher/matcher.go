// Package matcher counts non-overlapping occurrences of a precompiled
// pattern in fetched documents.
package matcher

import (
	"fmt"
	"regexp"
)

// Matcher holds the pattern compiled once at construction. Matching is
// case-insensitive and the wildcard crosses line boundaries.
type Matcher struct {
	re *regexp.Regexp
}

// New compiles pattern. The pattern is never recompiled per call.
func New(pattern string) (*Matcher, error) {
	re, err := regexp.Compile("(?is)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("compile pattern: %w", err)
	}
	return &Matcher{re: re}, nil
}

// Count returns the number of non-overlapping matches in body. Empty
// input short-circuits without invoking the engine.
func (m *Matcher) Count(body []byte) int {
	if len(body) == 0 {
		return 0
	}
	return len(m.re.FindAllIndex(body, -1))
}
