package core

import (
	stderrors "errors"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	errTaken := stderrors.New("already taken")

	err := NewFieldError("slug", errTaken)
	assert.Equal(t, "already taken", err.Error())
	assert.True(t, IsValidation(err, nil))
	assert.True(t, IsValidation(errors.Wrap(err, "creating center"), errTaken))
	assert.False(t, IsValidation(err, stderrors.New("already taken")))
	assert.False(t, IsValidation(errTaken, nil))

	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
	assert.Equal(t, map[string]string{"slug": "already taken"}, verr.FieldMap())

	err = NewValidationError(nil, FieldError{Field: "amount", Error: "must be positive"}, FieldError{Field: "currency", Error: "unknown"})
	assert.Equal(t, "amount: must be positive", err.Error())
	assert.Equal(t, "invalid input", NewValidationError(nil).Error())
}

func TestIsShutdown(t *testing.T) {
	assert.True(t, IsShutdown(errors.Wrap(NewShutdownError("integrity issue"), "handling request")))
	assert.False(t, IsShutdown(stderrors.New("integrity issue")))
}
