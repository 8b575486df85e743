package api

import (
	"net/http"

	"github.com/google/uuid"

	"musicplayer/internal/access"
	"musicplayer/internal/playlist"
)

func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	out, err := s.playlists.List(r.Context(), access.CallerFrom(r.Context()))
	if err != nil {
		writeError(w, r, "list playlists", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req playlistRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, "create playlist", err)
		return
	}
	p, err := s.playlists.Create(r.Context(), access.CallerFrom(r.Context()), playlist.Input{
		Title:       req.Title,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		writeError(w, r, "create playlist", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, "get playlist", err)
		return
	}
	d, err := s.playlists.Get(r.Context(), access.CallerFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, "get playlist", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleListPlaylistSongs(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, "list playlist songs", err)
		return
	}
	rows, err := s.playlists.ListOrdered(r.Context(), access.CallerFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, "list playlist songs", err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleReplacePlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, "replace playlist", err)
		return
	}
	var req playlistRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, "replace playlist", err)
		return
	}
	s.updatePlaylist(w, r, id, playlist.Patch{
		Title:       &req.Title,
		Description: &req.Description,
		IsPublic:    &req.IsPublic,
	})
}

func (s *Server) handlePatchPlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, "patch playlist", err)
		return
	}
	var req playlistPatchRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, "patch playlist", err)
		return
	}
	s.updatePlaylist(w, r, id, playlist.Patch{
		Title:       req.Title,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	})
}

func (s *Server) updatePlaylist(w http.ResponseWriter, r *http.Request, id string, patch playlist.Patch) {
	p, err := s.playlists.Update(r.Context(), access.CallerFrom(r.Context()), id, patch)
	if err != nil {
		writeError(w, r, "update playlist", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, "delete playlist", err)
		return
	}
	if err := s.playlists.Delete(r.Context(), access.CallerFrom(r.Context()), id); err != nil {
		writeError(w, r, "delete playlist", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddSong(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, "add song", err)
		return
	}
	// Authorize before looking at the body.
	if err := s.playlists.CheckWritable(r.Context(), access.CallerFrom(r.Context()), id); err != nil {
		writeError(w, r, "add song", err)
		return
	}
	var req addSongRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, "add song", err)
		return
	}
	m, err := s.playlists.AddSong(r.Context(), access.CallerFrom(r.Context()), id, req.SongID, req.Order)
	if err != nil {
		writeError(w, r, "add song", err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// handleRemoveSong takes song_id from the JSON body or, failing that, the
// query string.
func (s *Server) handleRemoveSong(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, "remove song", err)
		return
	}
	if err := s.playlists.CheckWritable(r.Context(), access.CallerFrom(r.Context()), id); err != nil {
		writeError(w, r, "remove song", err)
		return
	}
	var req struct {
		SongID string `json:"song_id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "remove song", err)
		return
	}
	if req.SongID == "" {
		req.SongID = r.URL.Query().Get("song_id")
	}
	if req.SongID == "" {
		writeError(w, r, "remove song", errInvalidRequest.WithField("song_id", "this field is required"))
		return
	}
	// A malformed id still passes through the ownership check, then misses.
	songID := uuid.Nil.String()
	if parsed, err := uuid.Parse(req.SongID); err == nil {
		songID = parsed.String()
	}
	if err := s.playlists.RemoveSong(r.Context(), access.CallerFrom(r.Context()), id, songID); err != nil {
		writeError(w, r, "remove song", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMoveSong(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, "move song", err)
		return
	}
	if err := s.playlists.CheckWritable(r.Context(), access.CallerFrom(r.Context()), id); err != nil {
		writeError(w, r, "move song", err)
		return
	}
	var req moveSongRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, "move song", err)
		return
	}
	m, err := s.playlists.MoveSong(r.Context(), access.CallerFrom(r.Context()), id, req.SongID, req.Order)
	if err != nil {
		writeError(w, r, "move song", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}
