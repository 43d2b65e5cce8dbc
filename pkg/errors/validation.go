package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateLines validates a line-count setting for the key image layout.
// Only 1 (single line), 2 (split halves), and 4 (one octet per line) are
// meaningful layouts.
func ValidateLines(lines int) error {
	switch lines {
	case 1, 2, 4:
		return nil
	}
	return New(ErrCodeInvalidMode, "lines must be 1, 2, or 4 (got %d)", lines)
}

// ValidateContextID validates an opaque key context token received from the
// stream-deck host. The host generates these, but they travel through logs
// and API responses, so reject anything that could smuggle in control
// sequences.
//
// The validation rules are intentionally conservative:
//   - No empty tokens
//   - No control characters
//   - No null bytes
//   - Maximum length of 256 characters
func ValidateContextID(id string) error {
	if id == "" {
		return New(ErrCodeHostProtocol, "context id cannot be empty")
	}

	if len(id) > 256 {
		return New(ErrCodeHostProtocol, "context id too long (max 256 characters)")
	}

	// Check for control characters and null bytes
	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeHostProtocol, "context id contains invalid control characters")
		}
	}

	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidConfig, "URL cannot be empty")
	}

	// Simple scheme validation without full URL parsing
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidConfig, "URL must use http or https scheme")
	}

	return nil
}

// providerNameRegex matches lookup provider names: lowercase alphanumerics
// with interior dashes, e.g. "icanhazip" or "ifconfig-me".
var providerNameRegex = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ValidateProviderName validates the shape of a lookup provider name.
// Whether the name is actually known is decided by the publicip package;
// this only rejects strings that could never be one.
func ValidateProviderName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidProvider, "provider name cannot be empty")
	}

	if !providerNameRegex.MatchString(name) {
		return New(ErrCodeInvalidProvider, "invalid provider name: %q", name)
	}

	return nil
}
