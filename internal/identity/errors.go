package identity

import "musicplayer/internal/apperr"

var (
	// ErrInvalidToken covers malformed, expired and already consumed reset or
	// verification tokens alike.
	ErrInvalidToken       = apperr.Validation("invalid_token", "invalid or expired token")
	ErrWeakPassword       = apperr.Validation("weak_password", "password does not meet the requirements")
	ErrPasswordMismatch   = apperr.Validation("password_mismatch", "the two password fields didn't match")
	ErrWrongPassword      = apperr.Validation("wrong_password", "your old password was entered incorrectly")
	ErrInvalidUsername    = apperr.Validation("invalid_username", "enter a valid username")
	ErrEmailRequired      = apperr.Validation("email_required", "email is required").WithField("email", "this field is required")
	ErrDuplicateUsername  = apperr.Conflict("duplicate_username", "a user with that username already exists")
	ErrDuplicateEmail     = apperr.Conflict("duplicate_email", "a user is already registered with this e-mail address")
	ErrInvalidCredentials = apperr.Authentication("invalid_credentials", "unable to log in with provided credentials")
	ErrEmailNotVerified   = apperr.Authentication("email_not_verified", "e-mail is not verified")
	ErrInvalidSession     = apperr.Authentication("token_not_valid", "token is invalid or expired")
)
