package redact

import (
	"regexp"
	"strings"
)

const marker = "[REDACTED]"

var (
	// AWS access key ids (long-term AKIA and temporary ASIA).
	accessKeyPattern = regexp.MustCompile(`\b(AKIA|ASIA)[A-Z0-9]{16}\b`)
	// Secret keys and session tokens.
	secretPattern = regexp.MustCompile(`[A-Za-z0-9/+=]{40,}`)
)

type Redactor struct{}

func New() *Redactor {
	return &Redactor{}
}

func (r *Redactor) RedactString(input string) string {
	out := accessKeyPattern.ReplaceAllString(input, marker)
	return secretPattern.ReplaceAllString(out, marker)
}

// RedactMap masks values under sensitive keys wholesale and scans everything else.
func (r *Redactor) RedactMap(input map[string]any) map[string]any {
	output := map[string]any{}
	for k, v := range input {
		if s, ok := v.(string); ok && s != "" && sensitiveKey(k) {
			output[k] = marker
			continue
		}
		output[k] = r.RedactValue(v)
	}
	return output
}

func (r *Redactor) RedactValue(input any) any {
	switch v := input.(type) {
	case string:
		return r.RedactString(v)
	case map[string]any:
		return r.RedactMap(v)
	case []any:
		redacted := make([]any, 0, len(v))
		for _, item := range v {
			redacted = append(redacted, r.RedactValue(item))
		}
		return redacted
	default:
		return input
	}
}

func sensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	return strings.Contains(lower, "secret") || strings.Contains(lower, "token") || strings.Contains(lower, "access_key")
}
