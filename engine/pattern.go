package engine

import "strings"

// MatchKeywords reports whether content matches any of patterns. An empty
// patterns slice always matches (per §4.1: "no keywords configured" is a
// wildcard pass for speech triggers).
//
// Pattern syntax:
//   - "|" separates alternatives, each tried independently.
//   - "*" is a wildcard matching any run of characters (including none).
//   - Matching is case-insensitive and a pattern without "*" matches as a
//     case-insensitive substring, so "pump" matches "pump it up".
func MatchKeywords(patterns []string, content string) bool {
	if len(patterns) == 0 {
		return true
	}
	lowerContent := strings.ToLower(content)
	for _, p := range patterns {
		if matchOnePattern(p, lowerContent) {
			return true
		}
	}
	return false
}

func matchOnePattern(pattern, lowerContent string) bool {
	for _, alt := range strings.Split(pattern, "|") {
		alt = strings.TrimSpace(alt)
		if alt == "" {
			continue
		}
		if matchGlob(strings.ToLower(alt), lowerContent) {
			return true
		}
	}
	return false
}

// matchGlob reports whether content matches glob, where "*" in glob matches
// any run of characters. A glob with "*" is matched against the whole
// content: text before the first "*" must be a prefix and text after the last
// "*" must be a suffix. Without "*", this reduces to a substring test.
func matchGlob(glob, content string) bool {
	if !strings.Contains(glob, "*") {
		return strings.Contains(content, glob)
	}

	segments := strings.Split(glob, "*")
	leadingAnchor := !strings.HasPrefix(glob, "*")
	trailingAnchor := !strings.HasSuffix(glob, "*")

	pos := 0
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		idx := strings.Index(content[pos:], seg)
		if idx == -1 {
			return false
		}
		if i == 0 && leadingAnchor && idx != 0 {
			return false
		}
		pos += idx + len(seg)
		if i == len(segments)-1 && trailingAnchor && pos != len(content) {
			return false
		}
	}
	return true
}
