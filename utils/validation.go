package utils

import (
	"net/url"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	apperrors "kydx-console/errors"

	"github.com/google/uuid"
)

const (
	// MaxInputRunes caps a single user message.
	MaxInputRunes = 4000
	// ChartsPrefix is where the backend serves the media it produces.
	ChartsPrefix = "/charts/"
)

var (
	// ErrEmptyInput rejects a message with nothing left after sanitizing.
	ErrEmptyInput = apperrors.WrapError(apperrors.ErrInvalidInput, "message cannot be empty")
	// ErrInputTooLong rejects a message over MaxInputRunes.
	ErrInputTooLong = apperrors.WrapErrorf(apperrors.ErrInvalidInput, "message exceeds %d characters", MaxInputRunes)
)

// GenerateMessageID creates a unique message identifier using UUID v4.
func GenerateMessageID() string {
	return uuid.New().String()
}

// SanitizeInput trims user text and drops control characters other than
// newlines and tabs.
func SanitizeInput(text string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, text)
	return strings.TrimSpace(cleaned)
}

// ValidateInput sanitizes text and rejects it when empty or too long.
func ValidateInput(text string) (string, error) {
	cleaned := SanitizeInput(text)
	if cleaned == "" {
		return "", ErrEmptyInput
	}
	if utf8.RuneCountInString(cleaned) > MaxInputRunes {
		return "", ErrInputTooLong
	}
	return cleaned, nil
}

// SafeMediaPath reports whether p is a clean locator under prefix, with no
// parent directory references.
func SafeMediaPath(p, prefix string) bool {
	if strings.Contains(p, "..") || strings.Contains(p, "\\") {
		return false
	}
	cleaned := path.Clean(p)
	return strings.HasPrefix(cleaned, prefix) && len(cleaned) > len(prefix)
}

// SafeMediaURL reports whether a backend locator may be placed in an href or
// src: a relative path under prefix, or an absolute http(s) URL.
func SafeMediaURL(locator, prefix string) bool {
	if strings.HasPrefix(locator, "/") && !strings.HasPrefix(locator, "//") {
		return SafeMediaPath(locator, prefix)
	}
	u, err := url.Parse(locator)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
