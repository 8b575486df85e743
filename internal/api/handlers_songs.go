package api

import (
	"net/http"

	"github.com/google/uuid"

	"musicplayer/internal/access"
	"musicplayer/internal/catalog"
	"musicplayer/internal/store"
)

func (s *Server) handleListSongs(w http.ResponseWriter, r *http.Request) {
	var f store.SongFilter
	if raw := r.URL.Query().Get("uploaded_by"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeJSON(w, http.StatusOK, []store.Song{})
			return
		}
		f.UploadedBy = id.String()
	}
	songs, err := s.catalog.List(r.Context(), access.CallerFrom(r.Context()), f)
	if err != nil {
		writeError(w, r, "list songs", err)
		return
	}
	writeJSON(w, http.StatusOK, songs)
}

func (s *Server) handleCreateSong(w http.ResponseWriter, r *http.Request) {
	var req songRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, "create song", err)
		return
	}
	song, err := s.catalog.Create(r.Context(), access.CallerFrom(r.Context()), req.input())
	if err != nil {
		writeError(w, r, "create song", err)
		return
	}
	writeJSON(w, http.StatusCreated, song)
}

func (s *Server) handleGetSong(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, "get song", err)
		return
	}
	song, err := s.catalog.Get(r.Context(), access.CallerFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, "get song", err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

func (s *Server) handleReplaceSong(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, "replace song", err)
		return
	}
	var req songRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, "replace song", err)
		return
	}
	song, err := s.catalog.Replace(r.Context(), access.CallerFrom(r.Context()), id, req.input())
	if err != nil {
		writeError(w, r, "replace song", err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

func (s *Server) handlePatchSong(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, "patch song", err)
		return
	}
	var req songPatchRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, "patch song", err)
		return
	}
	song, err := s.catalog.Patch(r.Context(), access.CallerFrom(r.Context()), id, catalog.SongPatch{
		Title:       req.Title,
		Artist:      req.Artist,
		Album:       req.Album,
		FileURL:     req.FileURL,
		CoverArtURL: req.CoverArtURL,
		Duration:    req.Duration,
	})
	if err != nil {
		writeError(w, r, "patch song", err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

func (s *Server) handleDeleteSong(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, "delete song", err)
		return
	}
	if err := s.catalog.Delete(r.Context(), access.CallerFrom(r.Context()), id); err != nil {
		writeError(w, r, "delete song", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (req songRequest) input() catalog.SongInput {
	return catalog.SongInput{
		Title:       req.Title,
		Artist:      req.Artist,
		Album:       req.Album,
		FileURL:     req.FileURL,
		CoverArtURL: req.CoverArtURL,
		Duration:    req.Duration,
	}
}
