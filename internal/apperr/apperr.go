// Package apperr defines the error taxonomy shared by every service layer and
// its mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a client-facing failure. Message and Fields are safe to return
// verbatim; anything else stays in the logs.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches on kind and code so that a detailed error built with WithField
// still satisfies errors.Is against its sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Code == e.Code
}

// WithField returns a copy of e carrying a per-field message.
func (e *Error) WithField(field, msg string) *Error {
	out := &Error{Kind: e.Kind, Code: e.Code, Message: e.Message, Fields: map[string]string{}}
	for k, v := range e.Fields {
		out.Fields[k] = v
	}
	out.Fields[field] = msg
	return out
}

func New(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func Validation(code, msg string) *Error     { return New(KindValidation, code, msg) }
func Authentication(code, msg string) *Error { return New(KindAuthentication, code, msg) }
func Authorization(code, msg string) *Error  { return New(KindAuthorization, code, msg) }
func NotFound(code, msg string) *Error       { return New(KindNotFound, code, msg) }
func Conflict(code, msg string) *Error       { return New(KindConflict, code, msg) }

// As unwraps err into an *Error. Unclassified errors yield nil, false.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// HTTPStatus maps err onto a status code. Anything outside the taxonomy is a 500.
func HTTPStatus(err error) int {
	e, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
