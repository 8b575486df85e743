package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"musicplayer/internal/store"
)

const (
	purposePasswordReset     = "password-reset"
	purposeEmailVerification = "email-verification"
)

var (
	uidPattern   = regexp.MustCompile(`^[0-9A-Za-z_\-]+$`)
	tokenPattern = regexp.MustCompile(`^[0-9a-z]{1,13}-[0-9a-f]{32}$`)
)

// EncodeUID is the unpadded URL-safe base64 form of a user id used in links.
func EncodeUID(userID string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(userID))
}

// DecodeUID reverses EncodeUID and rejects anything that is not a uuid.
func DecodeUID(uid string) (string, bool) {
	if !uidPattern.MatchString(uid) {
		return "", false
	}
	b, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", false
	}
	id, err := uuid.Parse(string(b))
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// TokenGenerator issues stateless single-use tokens of the form
// "<base36 unix seconds>-<32 hex chars>". The MAC covers the user's password
// hash, token_version and email, so any of those changing invalidates every
// token issued before. Verification tokens also cover the verified flag.
type TokenGenerator struct {
	secret  []byte
	purpose string
	ttl     time.Duration
	now     func() time.Time
}

func NewTokenGenerator(secret, purpose string, ttl time.Duration, now func() time.Time) *TokenGenerator {
	if now == nil {
		now = time.Now
	}
	return &TokenGenerator{secret: []byte(secret), purpose: purpose, ttl: ttl, now: now}
}

func (g *TokenGenerator) Make(u store.User) string {
	return g.makeAt(u, g.now().Unix())
}

func (g *TokenGenerator) makeAt(u store.User, ts int64) string {
	tsB36 := strconv.FormatInt(ts, 36)
	return tsB36 + "-" + g.mac(u, tsB36)
}

func (g *TokenGenerator) mac(u store.User, tsB36 string) string {
	parts := []string{
		g.purpose,
		u.ID,
		u.PasswordHash,
		strconv.Itoa(u.TokenVersion),
		strings.ToLower(u.Email),
		tsB36,
	}
	if g.purpose == purposeEmailVerification {
		parts = append(parts, strconv.FormatBool(u.EmailVerified))
	}

	h := hmac.New(sha256.New, g.secret)
	for _, part := range parts {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// Check reports whether token is valid for u right now. The MAC comparison is
// constant time; every failure looks the same to the caller.
func (g *TokenGenerator) Check(u store.User, token string) bool {
	if !tokenPattern.MatchString(token) {
		return false
	}
	tsB36, _, _ := strings.Cut(token, "-")
	ts, err := strconv.ParseInt(tsB36, 36, 64)
	if err != nil {
		return false
	}
	expected := g.makeAt(u, ts)
	if !hmac.Equal([]byte(expected), []byte(token)) {
		return false
	}
	issued := time.Unix(ts, 0)
	now := g.now()
	if issued.After(now.Add(time.Minute)) {
		return false
	}
	return now.Sub(issued) <= g.ttl
}
