package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestValidateEmail tests the ValidateEmail function with valid and invalid emails.
func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("test@example.com"))
	assert.False(t, ValidateEmail("test@example"))
	assert.False(t, ValidateEmail("test@.com"))
	assert.False(t, ValidateEmail("test@."))
}

// TestValidatePassword tests the ValidatePassword function with valid and invalid passwords.
func TestValidatePassword(t *testing.T) {
	assert.True(t, ValidatePassword("Test1234"))
	assert.False(t, ValidatePassword("short1"))
	assert.False(t, ValidatePassword("onlyletters"))
	assert.False(t, ValidatePassword("12345678"))
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "[----------] 0%", ProgressBar(0, 10))
	assert.Equal(t, "[#####-----] 50%", ProgressBar(50, 10))
	assert.Equal(t, "[##########] 100%", ProgressBar(100, 10))
	// Clamped out-of-range input.
	assert.Equal(t, "[##########] 100%", ProgressBar(140, 10))
}
