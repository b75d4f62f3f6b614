package parser

import (
	"regexp"
	"strings"
)

var fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// extractCandidate locates a bracket-delimited or fenced candidate inside
// surrounding prose. The scan is purely syntactic: it never interprets the
// content, it only slices the text.
//
// Preference order: a fenced code block, the outermost {...} span, the
// outermost [...] span. When an opener exists with no matching closer the
// tail from the opener is returned so the repair stage can append the
// missing closers.
func extractCandidate(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)

	if strings.Contains(trimmed, "```") {
		if m := fenceRe.FindStringSubmatch(trimmed); len(m) > 1 {
			return strings.TrimSpace(m[1]), true
		}
	}

	if s, ok := delimitedSpan(trimmed, '{', '}'); ok {
		return s, true
	}
	if s, ok := delimitedSpan(trimmed, '[', ']'); ok {
		return s, true
	}
	return "", false
}

func delimitedSpan(s string, open, closer byte) (string, bool) {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return "", false
	}
	end := strings.LastIndexByte(s, closer)
	if end > start {
		return s[start : end+1], true
	}
	// Opener without closer: leave closing to the repair stage.
	return s[start:], true
}
