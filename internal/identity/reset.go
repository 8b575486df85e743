package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"musicplayer/internal/logging"
	"musicplayer/internal/metrics"
	"musicplayer/internal/store"
)

// RequestPasswordReset mails a reset link when email belongs to an account.
// Unknown addresses and delivery failures are indistinguishable from success.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrEmailRequired
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		logging.Ctx(ctx).Debug().Msg("password reset requested for unknown email")
		metrics.RecordAuthEvent("password_reset_request", nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}

	uid := EncodeUID(u.ID)
	token := s.resets.Make(u)
	link := fmt.Sprintf("%s/reset-password/confirm/%s/%s/", s.frontendURL, uid, token)
	body := fmt.Sprintf(
		"Hello %s,\n\nYou're receiving this email because a password reset was requested for your account.\n\n"+
			"Follow the link below to choose a new password:\n%s\n\n"+
			"uid: %s\ntoken: %s\n\nIf you did not request this, you can ignore this email.\n",
		u.Username, link, uid, token,
	)
	s.send(ctx, u.Email, "Password reset", body)
	metrics.RecordAuthEvent("password_reset_request", nil)
	return nil
}

type ResetConfirm struct {
	UID                string
	Token              string
	NewPassword        string
	NewPasswordConfirm string
}

// ConfirmPasswordReset consumes a reset token. Token problems all surface as
// ErrInvalidToken; password problems are reported per field.
func (s *Service) ConfirmPasswordReset(ctx context.Context, in ResetConfirm) error {
	u, err := s.userForToken(ctx, in.UID, in.Token, s.resets)
	if err != nil {
		metrics.RecordAuthEvent("password_reset_confirm", err)
		return err
	}

	if in.NewPassword != in.NewPasswordConfirm {
		return ErrPasswordMismatch.WithField("new_password2", "the two password fields didn't match")
	}
	if err := ValidatePassword("new_password2", in.NewPassword, u.Username, u.Email); err != nil {
		return err
	}

	err = s.setPassword(ctx, u, in.NewPassword)
	if errors.Is(err, store.ErrStaleUser) {
		err = ErrInvalidToken
	}
	metrics.RecordAuthEvent("password_reset_confirm", err)
	return err
}

// ResetRedirectURL is where an emailed backend link forwards the browser.
func (s *Service) ResetRedirectURL(uid, token string) string {
	return fmt.Sprintf("%s/reset-password/confirm/%s/%s/", s.frontendURL, uid, token)
}

func (s *Service) userForToken(ctx context.Context, uid, token string, gen *TokenGenerator) (store.User, error) {
	userID, ok := DecodeUID(uid)
	if !ok {
		return store.User{}, ErrInvalidToken
	}
	u, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return store.User{}, ErrInvalidToken
	}
	if err != nil {
		return store.User{}, fmt.Errorf("find user: %w", err)
	}
	if !gen.Check(u, token) {
		return store.User{}, ErrInvalidToken
	}
	return u, nil
}

func verificationKey(uid, token string) string {
	return uid + ":" + token
}

func (s *Service) sendVerification(ctx context.Context, u store.User) {
	key := verificationKey(EncodeUID(u.ID), s.verifies.Make(u))
	link := fmt.Sprintf("%s/verify-email/%s/", s.frontendURL, key)
	body := fmt.Sprintf(
		"Hello %s,\n\nPlease confirm your e-mail address by following the link below:\n%s\n\nkey: %s\n",
		u.Username, link, key,
	)
	s.send(ctx, u.Email, "Confirm your e-mail address", body)
}

// VerifyEmail consumes a verification key and marks the address verified.
func (s *Service) VerifyEmail(ctx context.Context, key string) (store.User, error) {
	uid, token, ok := strings.Cut(strings.TrimSpace(key), ":")
	if !ok {
		return store.User{}, ErrInvalidToken
	}
	u, err := s.userForToken(ctx, uid, token, s.verifies)
	if err != nil {
		metrics.RecordAuthEvent("verify_email", err)
		return store.User{}, err
	}
	u, err = s.users.MarkEmailVerified(ctx, u.ID)
	metrics.RecordAuthEvent("verify_email", err)
	return u, err
}

// ResendVerification mails a fresh key to an unverified account. The outcome
// never reveals whether the address is registered.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrEmailRequired
	}
	u, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if !u.EmailVerified {
		s.sendVerification(ctx, u)
	}
	return nil
}

func (s *Service) send(ctx context.Context, to, subject, body string) {
	if err := s.mailer.Send(to, subject, body); err != nil {
		metrics.MailFailures.Inc()
		logging.Ctx(ctx).Error().Err(err).Str("subject", subject).Msg("send email")
	}
}
