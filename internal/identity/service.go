// Package identity manages accounts and credentials: registration, login,
// JWT sessions with revocation, password change and reset, and email
// verification.
package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"musicplayer/internal/logging"
	"musicplayer/internal/mail"
	"musicplayer/internal/metrics"
	"musicplayer/internal/store"
)

type UserStore interface {
	CreateUser(ctx context.Context, nu store.NewUser) (store.User, error)
	GetUserByID(ctx context.Context, id string) (store.User, error)
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	GetUserByUsername(ctx context.Context, username string) (store.User, error)
	UpdateUserProfile(ctx context.Context, id, username, avatarURL string) (store.User, error)
	UpdatePassword(ctx context.Context, id, hash string, expectVersion int) (store.User, error)
	MarkEmailVerified(ctx context.Context, id string) (store.User, error)
	TouchLastLogin(ctx context.Context, id string) error
}

type Options struct {
	JWTSecret                string
	AccessTTL                time.Duration
	RefreshTTL               time.Duration
	PasswordResetTTL         time.Duration
	EmailVerificationTTL     time.Duration
	RequireEmailVerification bool
	FrontendBaseURL          string
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	Now        func() time.Time
}

type Service struct {
	users    UserStore
	mailer   mail.Sender
	revoker  Revoker
	sessions *SessionIssuer
	resets   *TokenGenerator
	verifies *TokenGenerator

	requireVerified bool
	frontendURL     string
	cost            int
	dummyHash       []byte
}

func NewService(users UserStore, mailer mail.Sender, revoker Revoker, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if revoker == nil {
		revoker = NopRevoker{}
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("timing-equalizer"), opts.BcryptCost)

	return &Service{
		users:           users,
		mailer:          mailer,
		revoker:         revoker,
		sessions:        NewSessionIssuer(opts.JWTSecret, opts.AccessTTL, opts.RefreshTTL, opts.Now),
		resets:          NewTokenGenerator(opts.JWTSecret, purposePasswordReset, opts.PasswordResetTTL, opts.Now),
		verifies:        NewTokenGenerator(opts.JWTSecret, purposeEmailVerification, opts.EmailVerificationTTL, opts.Now),
		requireVerified: opts.RequireEmailVerification,
		frontendURL:     strings.TrimRight(opts.FrontendBaseURL, "/"),
		cost:            opts.BcryptCost,
		dummyHash:       dummy,
	}
}

// Session is what a successful login or refresh hands back.
type Session struct {
	AuthTokens
	User store.User `json:"user"`
}

var usernamePattern = regexp.MustCompile(`^[\w.@+-]{1,150}$`)

type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	PasswordConfirm string
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (store.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)

	if !usernamePattern.MatchString(username) {
		return store.User{}, ErrInvalidUsername.WithField("username", "letters, digits and @/./+/-/_ only, at most 150 characters")
	}
	if email == "" {
		return store.User{}, ErrEmailRequired
	}
	if in.PasswordConfirm != "" && in.Password != in.PasswordConfirm {
		return store.User{}, ErrPasswordMismatch.WithField("password2", "the two password fields didn't match")
	}
	if err := ValidatePassword("password1", in.Password, username, email); err != nil {
		return store.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return store.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.CreateUser(ctx, store.NewUser{Username: username, Email: email, PasswordHash: string(hash)})
	switch {
	case errors.Is(err, store.ErrDuplicateUsername):
		metrics.RecordAuthEvent("register", err)
		return store.User{}, ErrDuplicateUsername.WithField("username", "a user with that username already exists")
	case errors.Is(err, store.ErrDuplicateEmail):
		metrics.RecordAuthEvent("register", err)
		return store.User{}, ErrDuplicateEmail.WithField("email", "a user is already registered with this e-mail address")
	case err != nil:
		return store.User{}, fmt.Errorf("create user: %w", err)
	}
	metrics.RecordAuthEvent("register", nil)

	s.sendVerification(ctx, u)
	return u, nil
}

// Authenticate accepts a username or an email address as identifier.
func (s *Service) Authenticate(ctx context.Context, identifier, password string) (Session, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		metrics.RecordAuthEvent("login", ErrInvalidCredentials)
		return Session{}, ErrInvalidCredentials
	}

	u, err := s.lookup(ctx, identifier)
	if errors.Is(err, store.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		metrics.RecordAuthEvent("login", ErrInvalidCredentials)
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		metrics.RecordAuthEvent("login", ErrInvalidCredentials)
		return Session{}, ErrInvalidCredentials
	}
	if s.requireVerified && !u.EmailVerified {
		metrics.RecordAuthEvent("login", ErrEmailNotVerified)
		return Session{}, ErrEmailNotVerified
	}

	if err := s.users.TouchLastLogin(ctx, u.ID); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("user_id", u.ID).Msg("touch last login")
	}
	metrics.RecordAuthEvent("login", nil)
	return s.issue(u)
}

func (s *Service) lookup(ctx context.Context, identifier string) (store.User, error) {
	if strings.Contains(identifier, "@") {
		u, err := s.users.GetUserByEmail(ctx, identifier)
		if !errors.Is(err, store.ErrNotFound) {
			return u, err
		}
	}
	return s.users.GetUserByUsername(ctx, identifier)
}

func (s *Service) issue(u store.User) (Session, error) {
	tokens, err := s.sessions.Issue(u)
	if err != nil {
		return Session{}, fmt.Errorf("issue tokens: %w", err)
	}
	return Session{AuthTokens: tokens, User: u}, nil
}

// VerifyAccess parses an access token and rejects revoked ones.
func (s *Service) VerifyAccess(ctx context.Context, raw string) (*TokenClaims, error) {
	claims, err := s.sessions.Parse(raw, tokenTypeAccess)
	if err != nil {
		return nil, err
	}
	if err := s.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *Service) checkRevoked(ctx context.Context, claims *TokenClaims) error {
	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return ErrInvalidSession
	}
	return nil
}

// Refresh rotates a refresh token. The old one is revoked, and a password
// change since issue invalidates it.
func (s *Service) Refresh(ctx context.Context, raw string) (Session, error) {
	claims, err := s.sessions.Parse(raw, tokenTypeRefresh)
	if err != nil {
		return Session{}, err
	}
	if err := s.checkRevoked(ctx, claims); err != nil {
		return Session{}, err
	}

	u, err := s.users.GetUserByID(ctx, claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, ErrInvalidSession
	}
	if err != nil {
		return Session{}, fmt.Errorf("find user: %w", err)
	}
	if u.TokenVersion != claims.TokenVersion {
		return Session{}, ErrInvalidSession
	}

	s.revoke(ctx, claims)
	metrics.RecordAuthEvent("refresh", nil)
	return s.issue(u)
}

// Logout revokes the access token and, when given, the refresh token.
func (s *Service) Logout(ctx context.Context, access *TokenClaims, refreshRaw string) error {
	if access != nil {
		s.revoke(ctx, access)
	}
	if refreshRaw != "" {
		claims, err := s.sessions.Parse(refreshRaw, tokenTypeRefresh)
		if err != nil {
			return err
		}
		if access != nil && claims.UserID != access.UserID {
			return ErrInvalidSession
		}
		s.revoke(ctx, claims)
	}
	metrics.RecordAuthEvent("logout", nil)
	return nil
}

func (s *Service) revoke(ctx context.Context, claims *TokenClaims) {
	until, err := expiryOf(claims)
	if err != nil {
		return
	}
	if err := s.revoker.Revoke(ctx, claims.ID, until); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("jti", claims.ID).Msg("revoke token")
	}
}

func (s *Service) CurrentUser(ctx context.Context, userID string) (store.User, error) {
	u, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return store.User{}, ErrInvalidSession
	}
	return u, err
}

// ProfileUpdate carries the editable profile fields. Nil leaves a field as is.
type ProfileUpdate struct {
	Username  *string
	AvatarURL *string
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (store.User, error) {
	u, err := s.CurrentUser(ctx, userID)
	if err != nil {
		return store.User{}, err
	}
	username, avatar := u.Username, u.AvatarURL
	if in.Username != nil {
		username = strings.TrimSpace(*in.Username)
		if !usernamePattern.MatchString(username) {
			return store.User{}, ErrInvalidUsername.WithField("username", "letters, digits and @/./+/-/_ only, at most 150 characters")
		}
	}
	if in.AvatarURL != nil {
		avatar = strings.TrimSpace(*in.AvatarURL)
	}

	u, err = s.users.UpdateUserProfile(ctx, userID, username, avatar)
	if errors.Is(err, store.ErrDuplicateUsername) {
		return store.User{}, ErrDuplicateUsername.WithField("username", "a user with that username already exists")
	}
	return u, err
}

func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword, confirm string) error {
	u, err := s.CurrentUser(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(oldPassword)) != nil {
		return ErrWrongPassword.WithField("old_password", "your old password was entered incorrectly")
	}
	if newPassword != confirm {
		return ErrPasswordMismatch.WithField("new_password2", "the two password fields didn't match")
	}
	if err := ValidatePassword("new_password2", newPassword, u.Username, u.Email); err != nil {
		return err
	}
	err = s.setPassword(ctx, u, newPassword)
	if errors.Is(err, store.ErrStaleUser) {
		return ErrWrongPassword.WithField("old_password", "your old password was entered incorrectly")
	}
	metrics.RecordAuthEvent("password_change", err)
	return err
}

func (s *Service) setPassword(ctx context.Context, u store.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = s.users.UpdatePassword(ctx, u.ID, string(hash), u.TokenVersion)
	return err
}
