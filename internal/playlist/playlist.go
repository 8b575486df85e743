// Package playlist owns playlists and their ordered song membership.
// Ownership and visibility are checked before any song lookup, so callers
// cannot learn the contents of playlists they do not own.
package playlist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"musicplayer/internal/access"
	"musicplayer/internal/apperr"
	"musicplayer/internal/events"
	"musicplayer/internal/metrics"
	"musicplayer/internal/store"
)

var (
	ErrPlaylistNotFound    = apperr.NotFound("not_found", "not found")
	ErrSongNotFound        = apperr.NotFound("song_not_found", "song not found")
	ErrMembershipNotFound  = apperr.NotFound("membership_not_found", "song is not in this playlist")
	ErrDuplicateMembership = apperr.Conflict("duplicate_membership", "song is already in this playlist")
	ErrInvalidPlaylist     = apperr.Validation("invalid_playlist", "invalid playlist data")
	ErrInvalidOrder        = apperr.Validation("invalid_order", "order must be between 1 and 1000000").WithField("order", "ensure this value is between 1 and 1000000")
)

type Store interface {
	CreatePlaylist(ctx context.Context, in store.Playlist) (store.Playlist, error)
	GetPlaylist(ctx context.Context, id string) (store.Playlist, error)
	ListVisiblePlaylists(ctx context.Context, callerID string) ([]store.Playlist, error)
	UpdatePlaylist(ctx context.Context, in store.Playlist) (store.Playlist, error)
	DeletePlaylist(ctx context.Context, id string) error
	AddSong(ctx context.Context, playlistID, songID string, order *int) (store.Membership, error)
	MoveSong(ctx context.Context, playlistID, songID string, order int) (store.Membership, error)
	RemoveSong(ctx context.Context, playlistID, songID string) error
	ListPlaylistSongs(ctx context.Context, playlistID string) ([]store.PlaylistSong, error)
}

type Service struct {
	store  Store
	events events.Publisher
}

func NewService(st Store, pub events.Publisher) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{store: st, events: pub}
}

// Detail is a playlist with its songs in order.
type Detail struct {
	store.Playlist
	Songs []store.PlaylistSong `json:"songs"`
}

type Input struct {
	Title       string
	Description string
	IsPublic    bool
}

// Patch holds a partial update. Nil fields are left unchanged.
type Patch struct {
	Title       *string
	Description *string
	IsPublic    *bool
}

func validate(p store.Playlist) error {
	if p.Title == "" || len(p.Title) > 255 {
		return ErrInvalidPlaylist.WithField("title", "title must be between 1 and 255 characters")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, caller access.Caller, in Input) (store.Playlist, error) {
	if err := access.RequireAuthenticated(caller); err != nil {
		return store.Playlist{}, err
	}
	p := store.Playlist{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		OwnerID:     caller.UserID,
		IsPublic:    in.IsPublic,
	}
	if err := validate(p); err != nil {
		return store.Playlist{}, err
	}
	p, err := s.store.CreatePlaylist(ctx, p)
	if err != nil {
		return store.Playlist{}, fmt.Errorf("create playlist: %w", err)
	}
	s.events.Publish(ctx, events.PlaylistCreated, p)
	return p, nil
}

// List returns the caller's playlists plus all public ones.
func (s *Service) List(ctx context.Context, caller access.Caller) ([]store.Playlist, error) {
	out, err := s.store.ListVisiblePlaylists(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, id string) (store.Playlist, error) {
	p, err := s.store.GetPlaylist(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return store.Playlist{}, ErrPlaylistNotFound
	}
	if err != nil {
		return store.Playlist{}, fmt.Errorf("get playlist: %w", err)
	}
	return p, nil
}

func (s *Service) loadReadable(ctx context.Context, caller access.Caller, id string) (store.Playlist, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return store.Playlist{}, err
	}
	if err := access.CanReadPlaylist(caller, p); err != nil {
		return store.Playlist{}, err
	}
	return p, nil
}

func (s *Service) loadWritable(ctx context.Context, caller access.Caller, id string) (store.Playlist, error) {
	if err := access.RequireAuthenticated(caller); err != nil {
		return store.Playlist{}, err
	}
	p, err := s.load(ctx, id)
	if err != nil {
		return store.Playlist{}, err
	}
	if err := access.CanWritePlaylist(caller, p); err != nil {
		return store.Playlist{}, err
	}
	return p, nil
}

// CheckWritable reports whether caller may change playlist id, without
// touching its songs.
func (s *Service) CheckWritable(ctx context.Context, caller access.Caller, id string) error {
	_, err := s.loadWritable(ctx, caller, id)
	return err
}

func validOrder(order int) bool {
	return order >= 1 && order <= store.MaxOrder
}

func (s *Service) Get(ctx context.Context, caller access.Caller, id string) (Detail, error) {
	p, err := s.loadReadable(ctx, caller, id)
	if err != nil {
		return Detail{}, err
	}
	songs, err := s.store.ListPlaylistSongs(ctx, p.ID)
	if err != nil {
		return Detail{}, fmt.Errorf("list playlist songs: %w", err)
	}
	return Detail{Playlist: p, Songs: songs}, nil
}

// ListOrdered returns the membership rows in ascending order.
func (s *Service) ListOrdered(ctx context.Context, caller access.Caller, id string) ([]store.PlaylistSong, error) {
	d, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	return d.Songs, nil
}

func (s *Service) Update(ctx context.Context, caller access.Caller, id string, patch Patch) (store.Playlist, error) {
	p, err := s.loadWritable(ctx, caller, id)
	if err != nil {
		return store.Playlist{}, err
	}
	if patch.Title != nil {
		p.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		p.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.IsPublic != nil {
		p.IsPublic = *patch.IsPublic
	}
	if err := validate(p); err != nil {
		return store.Playlist{}, err
	}

	p, err = s.store.UpdatePlaylist(ctx, p)
	if errors.Is(err, store.ErrNotFound) {
		return store.Playlist{}, ErrPlaylistNotFound
	}
	if err != nil {
		return store.Playlist{}, fmt.Errorf("update playlist: %w", err)
	}
	s.events.Publish(ctx, events.PlaylistUpdated, p)
	return p, nil
}

func (s *Service) Delete(ctx context.Context, caller access.Caller, id string) error {
	if _, err := s.loadWritable(ctx, caller, id); err != nil {
		return err
	}
	err := s.store.DeletePlaylist(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrPlaylistNotFound
	}
	if err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}
	s.events.Publish(ctx, events.PlaylistDeleted, map[string]string{"id": id})
	return nil
}

type membershipEvent struct {
	PlaylistID string `json:"playlist_id"`
	SongID     string `json:"song_id"`
	Order      int    `json:"order,omitempty"`
}

// AddSong appends songID, or inserts it at order when given.
func (s *Service) AddSong(ctx context.Context, caller access.Caller, playlistID, songID string, order *int) (store.Membership, error) {
	m, err := s.addSong(ctx, caller, playlistID, songID, order)
	metrics.RecordMembershipOp("add", err)
	return m, err
}

func (s *Service) addSong(ctx context.Context, caller access.Caller, playlistID, songID string, order *int) (store.Membership, error) {
	if _, err := s.loadWritable(ctx, caller, playlistID); err != nil {
		return store.Membership{}, err
	}
	if order != nil && !validOrder(*order) {
		return store.Membership{}, ErrInvalidOrder
	}

	m, err := s.store.AddSong(ctx, playlistID, songID, order)
	switch {
	case errors.Is(err, store.ErrSongNotFound):
		return store.Membership{}, ErrSongNotFound
	case errors.Is(err, store.ErrDuplicateMembership):
		return store.Membership{}, ErrDuplicateMembership
	case errors.Is(err, store.ErrOrderOutOfRange):
		return store.Membership{}, ErrInvalidOrder
	case errors.Is(err, store.ErrNotFound):
		return store.Membership{}, ErrPlaylistNotFound
	case err != nil:
		return store.Membership{}, fmt.Errorf("add song: %w", err)
	}
	s.events.Publish(ctx, events.PlaylistSongAdded, membershipEvent{PlaylistID: playlistID, SongID: songID, Order: m.Order})
	return m, nil
}

// RemoveSong deletes a membership. Other rows keep their order values.
func (s *Service) RemoveSong(ctx context.Context, caller access.Caller, playlistID, songID string) error {
	err := s.removeSong(ctx, caller, playlistID, songID)
	metrics.RecordMembershipOp("remove", err)
	return err
}

func (s *Service) removeSong(ctx context.Context, caller access.Caller, playlistID, songID string) error {
	if _, err := s.loadWritable(ctx, caller, playlistID); err != nil {
		return err
	}
	err := s.store.RemoveSong(ctx, playlistID, songID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrMembershipNotFound
	}
	if err != nil {
		return fmt.Errorf("remove song: %w", err)
	}
	s.events.Publish(ctx, events.PlaylistSongRemoved, membershipEvent{PlaylistID: playlistID, SongID: songID})
	return nil
}

// MoveSong gives a member a new order, shifting the row that held it.
func (s *Service) MoveSong(ctx context.Context, caller access.Caller, playlistID, songID string, order int) (store.Membership, error) {
	m, err := s.moveSong(ctx, caller, playlistID, songID, order)
	metrics.RecordMembershipOp("move", err)
	return m, err
}

func (s *Service) moveSong(ctx context.Context, caller access.Caller, playlistID, songID string, order int) (store.Membership, error) {
	if _, err := s.loadWritable(ctx, caller, playlistID); err != nil {
		return store.Membership{}, err
	}
	if !validOrder(order) {
		return store.Membership{}, ErrInvalidOrder
	}
	m, err := s.store.MoveSong(ctx, playlistID, songID, order)
	if errors.Is(err, store.ErrOrderOutOfRange) {
		return store.Membership{}, ErrInvalidOrder
	}
	if errors.Is(err, store.ErrNotFound) {
		return store.Membership{}, ErrMembershipNotFound
	}
	if err != nil {
		return store.Membership{}, fmt.Errorf("move song: %w", err)
	}
	s.events.Publish(ctx, events.PlaylistSongMoved, membershipEvent{PlaylistID: playlistID, SongID: songID, Order: m.Order})
	return m, nil
}
