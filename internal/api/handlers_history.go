package api

import (
	"net/http"
	"strconv"

	"musicplayer/internal/access"
)

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, r, "list history", errInvalidRequest.WithField("limit", "must be a positive integer"))
			return
		}
		limit = n
	}
	out, err := s.history.ListHistory(r.Context(), access.CallerFrom(r.Context()), limit)
	if err != nil {
		writeError(w, r, "list history", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRecordPlay(w http.ResponseWriter, r *http.Request) {
	var req recordPlayRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, "record play", err)
		return
	}
	e, err := s.history.RecordPlay(r.Context(), access.CallerFrom(r.Context()), req.SongID)
	if err != nil {
		writeError(w, r, "record play", err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}
