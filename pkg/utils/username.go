package utils

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	MinUsernameLength    = 3
	MaxUsernameLength    = 32
	MaxDisplayNameLength = 40
)

var (
	usernameRegex = regexp.MustCompile(`^[a-z0-9_]+$`)
)

// ValidateUsername validates username format
// Rules: 3-32 characters, lowercase letters, numbers, underscores only
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)

	if len(username) < MinUsernameLength {
		return &ValidationError{Field: "username", Message: "Username must be at least 3 characters"}
	}

	if len(username) > MaxUsernameLength {
		return &ValidationError{Field: "username", Message: "Username must be at most 32 characters"}
	}

	if !usernameRegex.MatchString(username) {
		return &ValidationError{Field: "username", Message: "Username can only contain lowercase letters, numbers, and underscores"}
	}

	// Must start with a letter
	if !unicode.IsLetter(rune(username[0])) {
		return &ValidationError{Field: "username", Message: "Username must start with a letter"}
	}

	return nil
}

// ValidateDisplayName checks the free-text name shown next to an avatar.
func ValidateDisplayName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &ValidationError{Field: "displayName", Message: "Display name is required"}
	}
	if len([]rune(name)) > MaxDisplayNameLength {
		return &ValidationError{Field: "displayName", Message: "Display name must be at most 40 characters"}
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return &ValidationError{Field: "displayName", Message: "Display name cannot contain control characters"}
		}
	}
	return nil
}

// NormalizeUsername converts username to lowercase for storage
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
