package security

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

// MaxSearchQueryLength caps the length of user-supplied search terms.
const MaxSearchQueryLength = 100

// dangerousPatterns matches input that looks like an injection attempt.
var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(union|select|insert|update|delete|drop|create|alter|exec|execute)\b`),
	regexp.MustCompile(`(?i)\b(or|and)\s+\d+\s*=\s*\d+`),
	regexp.MustCompile(`(?i)\b(or|and)\s+['"].*['"]\s*=\s*['"].*['"]`),
	regexp.MustCompile(`(--|#|/\*|\*/)`),
	regexp.MustCompile(`(?i)\b(waitfor|benchmark|sleep)\b`),
	regexp.MustCompile(`(?i)(<script|</script|javascript:|vbscript:|onload=|onerror=)`),
}

// ValidateSearchQuery rejects search input that could not be a plausible
// name or email fragment. It returns the trimmed query on success.
func ValidateSearchQuery(query string) (string, error) {
	if query == "" {
		return "", nil
	}

	if len(query) > MaxSearchQueryLength {
		return "", errors.New("search query too long")
	}

	query = strings.TrimSpace(query)

	for _, pattern := range dangerousPatterns {
		if pattern.MatchString(query) {
			return "", errors.New("search query contains invalid characters")
		}
	}

	for _, char := range query {
		if !isValidSearchChar(char) {
			return "", errors.New("search query contains invalid characters")
		}
	}

	return query, nil
}

// isValidSearchChar allows letters, digits, spaces, and the punctuation
// that appears in names and email addresses.
func isValidSearchChar(char rune) bool {
	return unicode.IsLetter(char) || unicode.IsNumber(char) ||
		char == ' ' || char == '-' || char == '_' || char == '.' ||
		char == '@' || char == '+'
}

// SanitizeSearchString escapes LIKE wildcards in a query string.
func SanitizeSearchString(query string) string {
	if query == "" {
		return ""
	}

	query = strings.ReplaceAll(query, `\`, `\\`)
	query = strings.ReplaceAll(query, "%", `\%`)
	query = strings.ReplaceAll(query, "_", `\_`)

	return query
}
