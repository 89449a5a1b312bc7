package upload

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesByKind(t *testing.T) {
	specific := NewError(KindNotFound, "upload xyz not found")
	assert.True(t, errors.Is(specific, ErrNotFound))
	assert.False(t, errors.Is(specific, ErrForbidden))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	wrapped := Wrap(cause, KindInternal, "append failed")
	assert.ErrorIs(t, wrapped, cause)
	assert.Contains(t, wrapped.Error(), "disk full")
	assert.Contains(t, wrapped.Error(), "append failed")
}

func TestStatusCode(t *testing.T) {
	cases := map[error]int{
		ErrNotFound:             http.StatusNotFound,
		ErrWrongOffset:          http.StatusConflict,
		ErrForbidden:            http.StatusForbidden,
		ErrFrozenFile:           http.StatusBadRequest,
		ErrSizeAlreadyKnown:     http.StatusBadRequest,
		ErrUnknownHashAlgorithm: http.StatusBadRequest,
		ErrWrongHeaderValue:     http.StatusBadRequest,
		ErrWrongChecksum:        460,
		ErrUnsupported:          http.StatusUnsupportedMediaType,
	}
	for err, want := range cases {
		assert.Equal(t, want, StatusCode(err), err.Error())
	}

	assert.Equal(t, http.StatusInternalServerError, StatusCode(errors.New("plain")))

	hookErr := NewHookFailure(http.StatusTeapot, "no thanks", "text/plain")
	assert.Equal(t, http.StatusTeapot, StatusCode(hookErr))
}
