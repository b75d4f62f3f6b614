package parser

import "strings"

// repairCandidates applies the fixed, ordered repair transformations
// cumulatively and returns each intermediate text worth a decode attempt.
// Repair touches punctuation only: whitespace, trailing commas, missing
// closers. It never inserts or guesses content values.
func repairCandidates(base string) []string {
	var out []string
	push := func(s string) {
		if len(out) == 0 || out[len(out)-1] != s {
			out = append(out, s)
		}
	}

	t := strings.TrimSpace(base)
	push(t)

	t = stripTrailingCommas(t)
	push(t)

	t = appendMissingClosers(t)
	push(t)

	// Appending closers can surface a trailing comma that was previously
	// dangling at end of input, so strip once more.
	t = stripTrailingCommas(t)
	push(t)

	return out
}

// stripTrailingCommas removes commas sitting immediately before a closing
// brace or bracket, the single most common malformation in generated JSON.
// The scan tracks string literals the same way appendMissingClosers does:
// a ",}" or ",]" inside a string value is content, not punctuation, and
// stays untouched.
func stripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			b.WriteByte(c)
			continue
		}
		switch c {
		case '"':
			inString = true
		case ',':
			j := i + 1
			for j < len(s) && isJSONSpace(s[j]) {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				// Drop the comma and the whitespace run before the closer.
				i = j - 1
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isJSONSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// appendMissingClosers counts unmatched openers outside string literals
// and appends the corresponding closers in nesting order. Text with more
// closers than openers is returned unchanged; that is not a defect this
// stage repairs.
func appendMissingClosers(s string) string {
	var stack []byte
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if len(stack) == 0 {
		return s
	}

	var b strings.Builder
	b.WriteString(s)
	// An unterminated string has to be closed before any bracket can.
	if inString {
		b.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return b.String()
}
