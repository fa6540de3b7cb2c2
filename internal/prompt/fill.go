package prompt

import (
	"strings"
	"unicode"
)

// Fill substitutes every {identifier} placeholder in body whose identifier
// appears in data. Substitution is a single left-to-right pass: substituted
// values are never re-scanned, so the result is independent of key order.
// Placeholders with no matching key are left as-is.
func Fill(body string, data map[string]string) string {
	var b strings.Builder
	b.Grow(len(body))

	for i := 0; i < len(body); {
		if body[i] != '{' {
			b.WriteByte(body[i])
			i++
			continue
		}

		ident, end := scanPlaceholder(body, i)
		if ident == "" {
			b.WriteByte(body[i])
			i++
			continue
		}

		if value, ok := data[ident]; ok {
			b.WriteString(value)
		} else {
			b.WriteString(body[i:end])
		}
		i = end
	}

	return b.String()
}

// Placeholders returns the distinct placeholder identifiers present in body,
// in order of first appearance.
func Placeholders(body string) []string {
	seen := make(map[string]bool)
	var idents []string

	for i := 0; i < len(body); {
		if body[i] != '{' {
			i++
			continue
		}
		ident, end := scanPlaceholder(body, i)
		if ident == "" {
			i++
			continue
		}
		if !seen[ident] {
			seen[ident] = true
			idents = append(idents, ident)
		}
		i = end
	}

	return idents
}

// scanPlaceholder reads a {identifier} token starting at the '{' at body[start].
// Returns the identifier and the index just past the closing '}', or ("", start)
// if no well-formed placeholder begins there.
func scanPlaceholder(body string, start int) (string, int) {
	i := start + 1
	for i < len(body) && isIdentChar(rune(body[i])) {
		i++
	}
	if i == start+1 || i >= len(body) || body[i] != '}' {
		return "", start
	}
	return body[start+1 : i], i + 1
}

// isIdentChar reports whether r may appear in a placeholder identifier.
func isIdentChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// ApproxTokens returns a coarse token estimate for text: the count of
// whitespace-delimited words. Explicitly an estimate, not a tokenizer count.
func ApproxTokens(text string) int {
	return len(strings.Fields(text))
}

// DeriveName builds the deterministic store name for a generated template
// from its category and purpose: the whitespace-normalized purpose is
// truncated to 30 runes and spaces become underscores. Collisions are handled
// by the store's update-in-place rule, not here.
func DeriveName(category, purpose string) string {
	normalized := strings.Join(strings.Fields(purpose), " ")
	runes := []rune(normalized)
	if len(runes) > 30 {
		runes = runes[:30]
	}
	prefix := strings.TrimSpace(string(runes))
	prefix = strings.ReplaceAll(prefix, " ", "_")
	return category + "_" + prefix
}
