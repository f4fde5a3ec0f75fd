package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelUnwrapping(t *testing.T) {
	assert.ErrorIs(t, NotFound("user", 42), ErrNotFound)
	assert.ErrorIs(t, DuplicateEmail("a@b.com"), ErrDuplicateEmail)
	assert.ErrorIs(t, Conflict("busy"), ErrConflict)
	assert.ErrorIs(t, Storage(errors.New("disk")), ErrStorage)
	assert.ErrorIs(t, Unauthorized("nope"), ErrUnauthorized)
}

func TestSentinelSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("while approving: %w", NotFound("membership", 7))
	assert.ErrorIs(t, err, ErrNotFound)

	var appErr *AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, "membership not found with id 7", appErr.Message)
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "user not found with id 42", NotFound("user", 42).Error())
	assert.Equal(t, "email address a@b.com already exists", DuplicateEmail("a@b.com").Error())
}
