package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIs_MatchesByCode(t *testing.T) {
	err := NotFoundf("book %d not found", 7)

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrForbidden))
	assert.Equal(t, "book 7 not found", err.Error())
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("repo: %w", Wrapf(cause, CodeInternal, "failed to load book %d", 3))

	assert.True(t, errors.Is(err, ErrInternal))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NotFoundf("x"), http.StatusNotFound},
		{Forbiddenf("x"), http.StatusForbidden},
		{FieldError("title", "is required"), http.StatusUnprocessableEntity},
		{Wrapf(errors.New("dup"), CodeAlreadyExists, "x"), http.StatusConflict},
		{InvalidCredentials(), http.StatusUnauthorized},
		{ErrRateLimited, http.StatusTooManyRequests},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusOf(tt.err), tt.err.Error())
	}
}

func TestFieldsOf(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", FieldError("rate", "must be between 0 and 5"))
	assert.Equal(t, map[string]string{"rate": "must be between 0 and 5"}, FieldsOf(err))
	assert.Nil(t, FieldsOf(NotFoundf("x")))
}

func TestMessageOf_HidesUnknownErrors(t *testing.T) {
	assert.Equal(t, "internal server error", MessageOf(errors.New("pq: password authentication failed")))
	assert.Equal(t, "forbidden here", MessageOf(Forbiddenf("forbidden here")))
}
