package turnparse

import (
	"regexp"
	"strings"
)

// StripFences removes a markdown code fence that encloses the payload, with
// or without a language tag. A fence counts when the text opens with it, or
// when a fenced block inside prose holds a JSON object or list. Anything else,
// including backticks inside JSON strings, is returned unchanged.
func StripFences(s string) (string, error) {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "```") {
		body := trimmed[3:]
		if strings.HasSuffix(body, "```") {
			return strings.TrimSpace(dropFenceTag(body[:len(body)-3])), nil
		}
		if end := strings.Index(body, "```"); end != -1 {
			return strings.TrimSpace(dropFenceTag(body[:end])), nil
		}
		// Unterminated fence: drop the opening line only.
		if nl := strings.Index(body, "\n"); nl != -1 {
			return strings.TrimSpace(body[nl+1:]), nil
		}
		return trimmed, nil
	}

	start := strings.Index(trimmed, "```")
	if start == -1 {
		return trimmed, nil
	}
	body := trimmed[start+3:]
	end := strings.Index(body, "```")
	if end == -1 {
		return trimmed, nil
	}
	content := strings.TrimSpace(dropFenceTag(body[:end]))
	if strings.HasPrefix(content, "{") || strings.HasPrefix(content, "[") {
		return content, nil
	}
	return trimmed, nil
}

// dropFenceTag removes a language tag line such as "json".
func dropFenceTag(content string) string {
	if nl := strings.Index(content, "\n"); nl != -1 {
		if tag := strings.TrimSpace(content[:nl]); tag == "" || !strings.ContainsAny(tag, "{[\"") {
			return content[nl+1:]
		}
	}
	return content
}

var (
	// A literal (string, number, bool, null, or closed container) followed by
	// whitespace and the next object key with no comma between them.
	missingComma = regexp.MustCompile(`("|\d|true|false|null|[}\]])(\s+)("[^"\n]*"\s*:)`)
	// A comma directly before a closing bracket.
	trailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// RepairSyntax fixes the two slips providers make most: a missing separator
// between adjacent fields and a trailing separator before a closing bracket.
func RepairSyntax(s string) (string, error) {
	s = missingComma.ReplaceAllString(s, "$1,$2$3")
	s = trailingComma.ReplaceAllString(s, "$1")
	return s, nil
}

// ExtractBalanced returns the first balanced {...} or [...] region of s.
// Brackets inside string literals are ignored.
func ExtractBalanced(s string) (string, error) {
	regions := BalancedRegions(s)
	if len(regions) == 0 {
		return "", ErrNoJSON
	}
	return regions[0], nil
}

// BalancedRegions returns every top-level balanced {...} or [...] region of
// s in order of appearance. A mismatched closer abandons the current region
// and resumes the search after its opener.
func BalancedRegions(s string) []string {
	var regions []string
	start := -1
	var stack []byte
	inString, escaped := false, false

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if start == -1 {
			if ch == '{' || ch == '[' {
				start = i
				stack = append(stack[:0], ch)
				inString, escaped = false, false
			}
			continue
		}
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch ch {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, ch)
		case '}', ']':
			open := stack[len(stack)-1]
			if (ch == '}' && open != '{') || (ch == ']' && open != '[') {
				i = start
				start = -1
				continue
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				regions = append(regions, s[start:i+1])
				start = -1
			}
		}
	}
	return regions
}
