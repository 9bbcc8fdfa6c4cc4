// Package llm - util.go provides shared utilities for LLM response processing.
package llm

import "strings"

// CleanJSONBlock removes markdown code block wrappers from JSON responses.
// Models often wrap JSON in ```json ... ``` blocks even when instructed not to.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)

	// Handle ```json ... ``` blocks
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		return strings.TrimSpace(text)
	}

	// Handle generic ``` ... ``` blocks
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		// Skip potential language identifier on first line
		if idx := strings.Index(text, "\n"); idx >= 0 {
			firstLine := text[:idx]
			if len(firstLine) < 20 && !strings.Contains(firstLine, " ") && !strings.Contains(firstLine, "{") {
				text = text[idx+1:]
			}
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		return strings.TrimSpace(text)
	}

	return text
}

// ExtractJSONObject returns the first balanced JSON object in text, tolerating
// preamble and trailing prose around it. Returns "" when no object is found.
func ExtractJSONObject(text string) string {
	text = CleanJSONBlock(text)
	start := strings.Index(text, "{")
	if start < 0 {
		return ""
	}
	return balancedSlice(text[start:], '{', '}')
}

// ExtractJSONArray returns the first balanced JSON array in text.
func ExtractJSONArray(text string) string {
	text = CleanJSONBlock(text)
	start := strings.Index(text, "[")
	if start < 0 {
		return ""
	}
	return balancedSlice(text[start:], '[', ']')
}

// balancedSlice scans for the matching close delimiter, skipping over string
// literals so braces inside values do not confuse the count.
func balancedSlice(text string, open, close byte) string {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
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
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return text[:i+1]
			}
		}
	}
	return ""
}
