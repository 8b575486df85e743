package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"musicplayer/internal/store"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type TokenClaims struct {
	UserID        string `json:"uid"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
	TokenType     string `json:"typ"`
	TokenVersion  int    `json:"ver"`
	jwt.RegisteredClaims
}

type AuthTokens struct {
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh"`
}

// SessionIssuer signs and parses HS256 access/refresh token pairs.
type SessionIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewSessionIssuer(secret string, accessTTL, refreshTTL time.Duration, now func() time.Time) *SessionIssuer {
	if now == nil {
		now = time.Now
	}
	return &SessionIssuer{secret: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL, now: now}
}

func (s *SessionIssuer) sign(u store.User, typ string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := &TokenClaims{
		UserID:        u.ID,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		TokenType:     typ,
		TokenVersion:  u.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *SessionIssuer) Issue(u store.User) (AuthTokens, error) {
	access, err := s.sign(u, tokenTypeAccess, s.accessTTL)
	if err != nil {
		return AuthTokens{}, err
	}
	refresh, err := s.sign(u, tokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return AuthTokens{}, err
	}
	return AuthTokens{AccessToken: access, RefreshToken: refresh}, nil
}

// Parse validates signature, expiry and token type.
func (s *SessionIssuer) Parse(raw, wantType string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !tok.Valid {
		return nil, ErrInvalidSession
	}
	if claims.TokenType != wantType || claims.UserID == "" || claims.ID == "" {
		return nil, ErrInvalidSession
	}
	return claims, nil
}

func expiryOf(c *TokenClaims) (time.Time, error) {
	if c.ExpiresAt == nil {
		return time.Time{}, errors.New("identity: token has no expiry")
	}
	return c.ExpiresAt.Time, nil
}
