package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// maxDisplayNameLength bounds the length of an algorithm display name.
const maxDisplayNameLength = 128

// ValidateDisplayName validates the display name of an algorithm run.
// Display names end up in log lines and history records, so they must be
// short printable text.
func ValidateDisplayName(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeInvalidInput, "display name cannot be empty")
	}

	if len(name) > maxDisplayNameLength {
		return New(ErrCodeInvalidInput, "display name too long (max %d characters)", maxDisplayNameLength)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "display name contains invalid control characters")
		}
	}

	return nil
}

// keyPrefixRegex matches key prefixes accepted for shared state backends.
var keyPrefixRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9:._-]*$`)

// ValidateKeyPrefix validates the namespace prefix used for shared state keys.
// Whitespace, wildcards and glob characters are rejected so that the prefix
// can safely be used in key patterns.
func ValidateKeyPrefix(prefix string) error {
	if prefix == "" {
		return New(ErrCodeInvalidConfig, "key prefix cannot be empty")
	}

	if len(prefix) > 64 {
		return New(ErrCodeInvalidConfig, "key prefix too long (max 64 characters)")
	}

	if !keyPrefixRegex.MatchString(prefix) {
		return New(ErrCodeInvalidConfig, "invalid key prefix: %q", prefix)
	}

	return nil
}

// ValidateRunID validates a run identifier received from outside the process.
// Run identifiers are used as file names by the file history store, so path
// separators and traversal sequences are rejected.
func ValidateRunID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "run ID cannot be empty")
	}

	if len(id) > 64 {
		return New(ErrCodeInvalidInput, "run ID too long (max 64 characters)")
	}

	if strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		return New(ErrCodeInvalidInput, "run ID contains invalid characters")
	}

	for _, r := range id {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidInput, "run ID contains invalid characters")
		}
	}

	return nil
}
