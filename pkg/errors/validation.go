package errors

import (
	"strings"
	"unicode"
)

// maxOutputNameLength bounds output names received from the layout client.
const maxOutputNameLength = 128

// ValidateOutputName validates an output (connector) name such as "DP-1".
//
// Output names arrive from an untrusted process and end up in log lines,
// cache keys and URLs, so the rules are conservative:
//   - No empty names
//   - No control characters or whitespace
//   - No path separators
//   - Maximum length of 128 bytes
func ValidateOutputName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "output name cannot be empty")
	}
	if len(name) > maxOutputNameLength {
		return New(ErrCodeInvalidInput, "output name too long (max %d characters)", maxOutputNameLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidInput, "output name contains invalid characters")
		}
	}
	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidInput, "output name cannot contain path separators")
	}
	return nil
}
