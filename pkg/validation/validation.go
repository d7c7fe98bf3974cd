package validation

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const MaxMessageLength = 5000

var (
	// ErrInvalidInput indicates the input failed validation
	ErrInvalidInput = errors.New("invalid input")

	// Server and sensor ids are short slugs such as srv3 or temp-1
	identifierRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,63}$`)

	// LINE user ids are "U" followed by 32 hex characters
	lineUserIDRegex = regexp.MustCompile(`^U[0-9a-f]{32}$`)
)

// SanitizeString removes potentially dangerous characters and trims whitespace
func SanitizeString(input string) string {
	// Trim whitespace
	input = strings.TrimSpace(input)

	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters except newline and tab
	var builder strings.Builder
	for _, r := range input {
		if !unicode.IsControl(r) || r == '\n' || r == '\t' {
			builder.WriteRune(r)
		}
	}

	return builder.String()
}

// ValidateIdentifier checks a server or sensor id taken from a request
func ValidateIdentifier(id string) error {
	if id == "" {
		return errors.New("id cannot be empty")
	}
	if !identifierRegex.MatchString(id) {
		return errors.New("id must start with alphanumeric and contain only letters, numbers, hyphens, and underscores")
	}
	return nil
}

// ValidateLineUserID checks the recipient of a LINE push message
func ValidateLineUserID(userID string) error {
	if userID == "" {
		return errors.New("userId cannot be empty")
	}
	if !lineUserIDRegex.MatchString(userID) {
		return errors.New("userId must be a LINE user id")
	}
	return nil
}

// ValidateMessage checks outgoing chat text after sanitizing
func ValidateMessage(message string) error {
	message = SanitizeString(message)

	if message == "" {
		return errors.New("message cannot be empty")
	}
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return errors.New("message must not exceed 5000 characters")
	}
	return nil
}
