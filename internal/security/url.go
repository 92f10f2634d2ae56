// Package security provides input validators for siterag.
//
// The URL sanitizer applies a conservative allow-list policy to candidate
// crawl targets. It is not full RFC 3986 validation: letting an occasional
// malformed-but-harmless URL through is acceptable, letting a dangerous
// scheme through is not.
package security

import "strings"

// MaxURLLength is the maximum accepted URL length. Anything longer is
// rejected outright to bound downstream allocations and request lines.
const MaxURLLength = 2048

// blockedPatterns are scheme-smuggling substrings rejected anywhere in the
// lower-cased URL, not only at the front. A value like
// "https://x/?next=javascript:alert(1)" fails even though its scheme is fine.
var blockedPatterns = []string{"javascript:", "vbscript:", "data:", "file:"}

// SanitizeURL validates and normalizes a candidate URL.
//
// Policy, applied in order: reject empty input; trim surrounding
// whitespace; require an http:// or https:// prefix; reject if any blocked
// pattern appears in the lower-cased string; reject if longer than
// MaxURLLength. Returns the trimmed URL and true on acceptance, or "" and
// false on rejection. It never panics and never returns an error: a bad
// URL is a per-candidate rejection, not a failure of the caller.
func SanitizeURL(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}

	url := strings.TrimSpace(raw)
	if url == "" {
		return "", false
	}

	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "", false
	}

	lower := strings.ToLower(url)
	for _, pattern := range blockedPatterns {
		if strings.Contains(lower, pattern) {
			return "", false
		}
	}

	if len(url) > MaxURLLength {
		return "", false
	}

	return url, true
}
