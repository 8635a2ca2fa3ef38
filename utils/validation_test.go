package utils

import (
	"strings"
	"testing"

	apperrors "kydx-console/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trims", "  show sales \n", "show sales"},
		{"keeps newlines", "a\nb", "a\nb"},
		{"drops control", "he\x00ll\x07o", "hello"},
		{"blank", " \t ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeInput(tt.input))
		})
	}
}

func TestValidateInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"ok", " hi\x00 ", "hi", nil},
		{"at limit", strings.Repeat("é", MaxInputRunes), strings.Repeat("é", MaxInputRunes), nil},
		{"blank", "\x07  ", "", ErrEmptyInput},
		{"too long", strings.Repeat("é", MaxInputRunes+1), "", ErrInputTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateInput(tt.input)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.True(t, apperrors.IsInvalidInput(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSafeMediaPath(t *testing.T) {
	assert.True(t, SafeMediaPath("/charts/table_1.png", "/charts/"))
	assert.False(t, SafeMediaPath("/charts/../secret", "/charts/"))
	assert.False(t, SafeMediaPath("/charts/", "/charts/"))
	assert.False(t, SafeMediaPath("/other/x.png", "/charts/"))
}

func TestSafeMediaURL(t *testing.T) {
	tests := []struct {
		locator string
		want    bool
	}{
		{"/charts/bar.png", true},
		{"https://cdn.example.com/v.mp4", true},
		{"http://localhost:8000/charts/a.png", true},
		{"javascript:alert(1)", false},
		{"JavaScript:alert(1)", false},
		{"data:image/png;base64,AAAA", false},
		{"//evil.example.com/x.png", false},
		{"/charts/../secret", false},
		{"/etc/passwd", false},
		{"charts/bar.png", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.locator, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeMediaURL(tt.locator, "/charts/"))
		})
	}
}

func TestGenerateMessageID(t *testing.T) {
	assert.NotEqual(t, GenerateMessageID(), GenerateMessageID())
}
