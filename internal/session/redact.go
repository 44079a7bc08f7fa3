package session

import "regexp"

// Secret-shaped substrings scrubbed from transcripts before they hit
// disk. API keys leak into transcripts through provider error messages
// and pasted text, not through any code path we control.
var redactPatterns = []*regexp.Regexp{
	// Provider API keys: sk-..., sk-ant-..., sk-or-v1-...
	regexp.MustCompile(`sk-[A-Za-z0-9_-]{8,}`),
	// Google-style keys.
	regexp.MustCompile(`AIza[A-Za-z0-9_-]{20,}`),
}

// key=... query parameters keep the parameter name, lose the value.
var keyPattern = regexp.MustCompile(`(key|api_key|apikey|token)=[A-Za-z0-9_-]{8,}`)

// Redact replaces secret-shaped substrings with a placeholder.
func Redact(s string) string {
	if s == "" {
		return s
	}
	s = keyPattern.ReplaceAllString(s, "${1}=***REDACTED***")
	for _, re := range redactPatterns {
		s = re.ReplaceAllString(s, "***REDACTED***")
	}
	return s
}
