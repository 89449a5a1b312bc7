package upload

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind tags an Error with the category of failure, used by the server
// package to pick an HTTP status code and by notifiers to decide
// whether a failure should abort a hook chain.
type Kind int

const (
	// KindInternal covers transport/IO failures with no more specific
	// classification; maps to 500.
	KindInternal Kind = iota
	KindNotFound
	KindWrongOffset
	KindForbidden
	KindFrozenFile
	KindSizeAlreadyKnown
	KindWrongChecksum
	KindUnknownHashAlgorithm
	KindWrongHeaderValue
	KindUnsupported
	// KindHookFailure is produced by a failing pre-hook and carries an
	// HTTP response to relay to the client verbatim.
	KindHookFailure
)

// Error is the typed error returned by every operation in this module.
// The server package inspects Kind to decide the response status; it
// never pattern-matches on Error strings.
type Error struct {
	Kind    Kind
	Message string
	Cause   error

	// The following are only populated for KindHookFailure, carrying
	// the hook's own HTTP response through to the client unmodified.
	HookStatus      int
	HookBody        string
	HookContentType string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError builds an Error of the given kind with a static message.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error of the given kind around a lower-level cause.
func Wrap(cause error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// NewHookFailure builds the KindHookFailure error carrying a hook's
// HTTP response through verbatim, per the passthrough propagation
// policy for pre-hook rejections.
func NewHookFailure(status int, body, contentType string) *Error {
	return &Error{
		Kind:            KindHookFailure,
		Message:         fmt.Sprintf("hook rejected request with status %d", status),
		HookStatus:      status,
		HookBody:        body,
		HookContentType: contentType,
	}
}

// Common sentinel errors for the frequently-checked kinds, so callers
// can use errors.Is against a plain value instead of constructing a
// Kind comparison each time.
var (
	ErrNotFound             = NewError(KindNotFound, "upload not found")
	ErrWrongOffset          = NewError(KindWrongOffset, "upload offset mismatch")
	ErrForbidden            = NewError(KindForbidden, "upload is final and cannot be written to")
	ErrFrozenFile           = NewError(KindFrozenFile, "upload is already complete")
	ErrSizeAlreadyKnown     = NewError(KindSizeAlreadyKnown, "upload length is already known")
	ErrWrongChecksum        = NewError(KindWrongChecksum, "checksum mismatch")
	ErrUnknownHashAlgorithm = NewError(KindUnknownHashAlgorithm, "unknown checksum algorithm")
	ErrWrongHeaderValue     = NewError(KindWrongHeaderValue, "malformed header value")
	ErrUnsupported          = NewError(KindUnsupported, "unsupported operation")
)

// Is allows errors.Is(err, ErrNotFound) to match any *Error with the
// same Kind, not just the exact sentinel pointer, since stores
// construct their own Error values with more specific messages.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// StatusCode maps an error's Kind to the HTTP status to send, per the
// error handling design's wire mapping table.
func StatusCode(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindWrongOffset:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindFrozenFile, KindSizeAlreadyKnown, KindUnknownHashAlgorithm, KindWrongHeaderValue:
		return http.StatusBadRequest
	case KindWrongChecksum:
		// 460 is not a named constant in net/http; it is the
		// non-standard "Checksum Mismatch" status tus uses in place
		// of the nearest standard code, Expectation Failed.
		return 460
	case KindUnsupported:
		return http.StatusUnsupportedMediaType
	case KindHookFailure:
		return e.HookStatus
	default:
		return http.StatusInternalServerError
	}
}
