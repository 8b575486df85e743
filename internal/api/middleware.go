package api

import (
	"context"
	"net/http"
	"strings"

	"musicplayer/internal/access"
	"musicplayer/internal/identity"
	"musicplayer/internal/logging"
)

type ctxClaimsKey struct{}

func claimsFrom(ctx context.Context) *identity.TokenClaims {
	c, _ := ctx.Value(ctxClaimsKey{}).(*identity.TokenClaims)
	return c
}

// authenticate resolves an optional bearer token into the request's caller.
// A request without a token proceeds anonymously; a bad token is rejected.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := s.identity.VerifyAccess(r.Context(), raw)
		if err != nil {
			writeError(w, r, "authenticate", err)
			return
		}

		ctx := access.WithCaller(r.Context(), access.Caller{UserID: claims.UserID})
		ctx = context.WithValue(ctx, ctxClaimsKey{}, claims)
		l := logging.Ctx(ctx).With().Str("user_id", claims.UserID).Logger()
		ctx = logging.WithLogger(ctx, l)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claimsFrom(r.Context()) == nil {
			writeError(w, r, "authenticate", access.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
