package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnsupportedFormatError(t *testing.T) {
	err := fmt.Errorf("extract: %w", &UnsupportedFormatError{Filename: "notes.txt"})

	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Contains(t, err.Error(), "notes.txt")

	var ufe *UnsupportedFormatError
	assert.True(t, errors.As(err, &ufe))
	assert.Equal(t, "notes.txt", ufe.Filename)

	assert.NotErrorIs(t, err, ErrExtraction)
}
