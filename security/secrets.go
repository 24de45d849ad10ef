package security

import (
	"fmt"
	"regexp"
	"strings"
)

// SecretPattern represents a pattern for detecting credentials in text that
// is about to be logged
type SecretPattern struct {
	Name     string
	Pattern  *regexp.Regexp
	Category string
}

// RedactionResult represents the result of secret redaction
type RedactionResult struct {
	Content         string
	RedactionsCount int
	Types           []string
}

// SecretDetector handles detection and redaction of secrets
type SecretDetector struct {
	patterns []SecretPattern
}

// NewSecretDetector creates a detector loaded with the credential shapes the
// chat client handles: bearer tokens, JWTs, access_token fields and passwords.
func NewSecretDetector() *SecretDetector {
	sd := &SecretDetector{}
	sd.addDefaultPatterns()
	return sd
}

func (sd *SecretDetector) addDefaultPatterns() {
	sd.addPattern("Bearer Token", `(?i)bearer\s+([a-zA-Z0-9\-_\.=+/]{8,})`, "token")
	sd.addPattern("JWT Token", `(eyJ[a-zA-Z0-9\-_]{8,}\.[a-zA-Z0-9\-_]{8,}\.[a-zA-Z0-9\-_]{8,})`, "token")
	sd.addPattern("Access Token", `(?i)"?access_token"?\s*[:=]\s*"?([^"&\s,}]+)`, "token")
	sd.addPattern("Verification Token", `(?i)[?&]token=([^&\s]+)`, "token")
	sd.addPattern("Password", `(?i)"?password"?\s*[:=]\s*"?([^"&\s,}]+)`, "auth")
}

// addPattern adds a new secret detection pattern. The first capture group is
// the part that gets redacted.
func (sd *SecretDetector) addPattern(name, pattern, category string) {
	sd.patterns = append(sd.patterns, SecretPattern{
		Name:     name,
		Pattern:  regexp.MustCompile(pattern),
		Category: category,
	})
}

// DetectAndRedact replaces every detected secret with a [REDACTED_<CATEGORY>]
// marker, keeping the surrounding text intact.
func (sd *SecretDetector) DetectAndRedact(content string) *RedactionResult {
	result := &RedactionResult{Content: content}

	for _, pattern := range sd.patterns {
		indices := pattern.Pattern.FindAllStringSubmatchIndex(result.Content, -1)
		if len(indices) == 0 {
			continue
		}

		marker := fmt.Sprintf("[REDACTED_%s]", strings.ToUpper(pattern.Category))
		var b strings.Builder
		last := 0
		for _, idx := range indices {
			if len(idx) < 4 || idx[2] < 0 {
				continue
			}
			b.WriteString(result.Content[last:idx[2]])
			b.WriteString(marker)
			last = idx[3]
			result.RedactionsCount++
		}
		b.WriteString(result.Content[last:])
		result.Content = b.String()
		result.Types = append(result.Types, pattern.Name)
	}

	return result
}

// GetPatternCount returns the number of registered patterns
func (sd *SecretDetector) GetPatternCount() int {
	return len(sd.patterns)
}

var defaultDetector = NewSecretDetector()

// Redact is DetectAndRedact with the default detector, returning only the
// cleaned text.
func Redact(content string) string {
	return defaultDetector.DetectAndRedact(content).Content
}
