package errors

import (
	"testing"
)

func TestValidateLines(t *testing.T) {
	tests := []struct {
		name    string
		input   int
		wantErr bool
	}{
		{"single", 1, false},
		{"split", 2, false},
		{"quad", 4, false},

		{"zero", 0, true},
		{"three", 3, true},
		{"five", 5, true},
		{"negative", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLines(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateLines(%d) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidMode) {
				t.Errorf("ValidateLines(%d) returned wrong error code: %v", tt.input, err)
			}
		})
	}
}

func TestValidateContextID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid opaque", "F6CB52F7D25A6B9F2E1C", false},
		{"valid uuid", "2b41dc5a-1c9e-4c5e-b2b4-07a3e7b8c9d0", false},
		{"valid with dash", "key-context-1", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 300)), true},
		{"null byte", "foo\x00bar", true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
		{"carriage return", "foo\rbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateContextID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateContextID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"https", "https://example.com/path", false},
		{"http", "http://example.com/path", false},

		{"empty", "", true},
		{"ftp", "ftp://example.com", true},
		{"file", "file:///etc/passwd", true},
		{"javascript", "javascript:alert(1)", true},
		{"no scheme", "example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateProviderName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "ipify", false},
		{"with dash", "ifconfig-me", false},
		{"with digits", "provider2", false},

		{"empty", "", true},
		{"uppercase", "Ipify", true},
		{"leading dash", "-ipify", true},
		{"trailing dash", "ipify-", true},
		{"spaces", "my provider", true},
		{"url", "https://api.ipify.org", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProviderName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateProviderName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestErrorCodesAreUnique(t *testing.T) {
	codes := []Code{
		ErrCodeInvalidMode,
		ErrCodeInvalidAddress,
		ErrCodeInvalidProvider,
		ErrCodeInvalidConfig,
		ErrCodeInvalidSettings,
		ErrCodeNetwork,
		ErrCodeBadResponse,
		ErrCodeTimeout,
		ErrCodeHostProtocol,
		ErrCodeClipboard,
		ErrCodeInternal,
		ErrCodeUnsupported,
	}

	seen := make(map[Code]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %s", code)
		}
		seen[code] = true
	}
}
