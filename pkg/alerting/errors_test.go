package alerting

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKindMatching(t *testing.T) {
	err := NewError(KindDuplicateActiveAlert, "Active alert already exists for room %s", "E101")

	assert.Equal(t, "Active alert already exists for room E101", err.Error())
	assert.True(t, IsKind(err, KindDuplicateActiveAlert))
	assert.False(t, IsKind(err, KindValidation))
	assert.Equal(t, KindDuplicateActiveAlert, KindOf(err))
}

func TestErrorKindSurvivesWrapping(t *testing.T) {
	inner := NewError(KindNotFound, "Alert with ID %s not found", "a1")
	wrapped := fmt.Errorf("handling request: %w", inner)

	assert.True(t, IsKind(wrapped, KindNotFound))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
}

func TestNonDomainErrorsHaveNoKind(t *testing.T) {
	err := errors.New("connection refused")

	assert.False(t, IsKind(err, KindNotFound))
	assert.Equal(t, ErrorKind(""), KindOf(err))
}
