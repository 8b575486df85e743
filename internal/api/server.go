// Package api is the HTTP surface: route table, request shapes, auth
// middleware and error rendering.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"musicplayer/internal/catalog"
	"musicplayer/internal/history"
	"musicplayer/internal/identity"
	"musicplayer/internal/logging"
	"musicplayer/internal/metrics"
	"musicplayer/internal/playlist"
)

type Options struct {
	CORSOrigins []string
	// Requests per minute per client IP. Zero disables the limiter.
	LoginRateLimit int
	ResetRateLimit int
}

type Server struct {
	identity  *identity.Service
	catalog   *catalog.Service
	playlists *playlist.Service
	history   *history.Service
	opts      Options
}

func NewServer(id *identity.Service, cat *catalog.Service, pl *playlist.Service, hist *history.Service, opts Options) *Server {
	return &Server{
		identity:  id,
		catalog:   cat,
		playlists: pl,
		history:   hist,
		opts:      opts,
	}
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	if len(s.opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.opts.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/password-reset/confirm/{uidb64}/{token}/", s.handleResetRedirect)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(rateLimit(s.opts.LoginRateLimit))
				r.Post("/registration/", s.handleRegister)
				r.Post("/login/", s.handleLogin)
			})
			r.Group(func(r chi.Router) {
				r.Use(rateLimit(s.opts.ResetRateLimit))
				r.Post("/password/reset/", s.handlePasswordReset)
				r.Post("/password/reset/confirm/", s.handlePasswordResetConfirm)
				r.Post("/registration/resend-email/", s.handleResendVerification)
			})
			r.Post("/registration/verify-email/", s.handleVerifyEmail)
			r.Post("/token/refresh/", s.handleRefresh)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/logout/", s.handleLogout)
				r.Get("/user/", s.handleGetUser)
				r.Patch("/user/", s.handlePatchUser)
				r.Put("/user/", s.handlePatchUser)
				r.Post("/password/change/", s.handlePasswordChange)
			})
		})

		// Writes reject anonymous callers before their payload is read.
		r.Route("/songs", func(r chi.Router) {
			r.Get("/", s.handleListSongs)
			r.Get("/{id}/", s.handleGetSong)
			r.With(requireAuth).Post("/", s.handleCreateSong)
			r.With(requireAuth).Put("/{id}/", s.handleReplaceSong)
			r.With(requireAuth).Patch("/{id}/", s.handlePatchSong)
			r.With(requireAuth).Delete("/{id}/", s.handleDeleteSong)
		})

		r.Route("/playlists", func(r chi.Router) {
			r.Get("/", s.handleListPlaylists)
			r.Get("/{id}/", s.handleGetPlaylist)
			r.Get("/{id}/songs/", s.handleListPlaylistSongs)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", s.handleCreatePlaylist)
				r.Put("/{id}/", s.handleReplacePlaylist)
				r.Patch("/{id}/", s.handlePatchPlaylist)
				r.Delete("/{id}/", s.handleDeletePlaylist)
				r.Post("/{id}/add_song/", s.handleAddSong)
				r.Delete("/{id}/delete_song/", s.handleRemoveSong)
				r.Post("/{id}/move_song/", s.handleMoveSong)
			})
		})

		r.Get("/history/", s.handleListHistory)
		r.With(requireAuth).Post("/history/", s.handleRecordPlay)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "musicplayer",
	})
}

func rateLimit(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(perMinute, time.Minute,
		// RemoteAddr has already been rewritten by middleware.RealIP.
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusTooManyRequests, errorBody{
				Error: "request was throttled",
				Code:  "throttled",
			})
		}),
	)
}
