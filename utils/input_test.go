package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	valid := []string{"juan@example.com", "marinduque.psto@dost.gov.ph"}
	invalid := []string{"", "not-an-email", "juan@", strings.Repeat("a", 190) + "@x.ph"}
	for _, email := range valid {
		assert.True(t, ValidateEmail(email), email)
	}
	for _, email := range invalid {
		assert.False(t, ValidateEmail(email), email)
	}
}

func TestValidatePassword(t *testing.T) {
	ok, _ := ValidatePassword("Password123!")
	assert.True(t, ok)

	ok, msg := ValidatePassword("short")
	assert.False(t, ok)
	assert.Contains(t, msg, "at least 8")

	ok, msg = ValidatePassword(strings.Repeat("x", 73))
	assert.False(t, ok)
	assert.Contains(t, msg, "at most 72")
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "juan@example.com", NormalizeEmail("  Juan@Example.COM\x00 "))
	assert.Equal(t, "Palawan Cashew", SanitizeInput("\tPalawan Cashew\x00\n"))
}

func TestBuildResetURL(t *testing.T) {
	got, err := BuildResetURL("https://pmns.example.com/app/", "abc123")
	assert.NoError(t, err)
	assert.Equal(t, "https://pmns.example.com/app/reset-password?token=abc123", got)

	got, err = BuildResetURL("", "abc123")
	assert.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/reset-password?token=abc123", got)
}
