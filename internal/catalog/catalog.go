// Package catalog manages song metadata. Media lives elsewhere and is only
// referenced by URL.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"musicplayer/internal/access"
	"musicplayer/internal/apperr"
	"musicplayer/internal/events"
	"musicplayer/internal/store"
)

var (
	ErrSongNotFound = apperr.NotFound("not_found", "not found")
	ErrInvalidSong  = apperr.Validation("invalid_song", "invalid song data")
)

var urls = validator.New()

func isURL(v string) bool {
	return urls.Var(v, "url,max=500") == nil
}

type SongStore interface {
	CreateSong(ctx context.Context, in store.Song) (store.Song, error)
	GetSong(ctx context.Context, id string) (store.Song, error)
	ListSongs(ctx context.Context, f store.SongFilter) ([]store.Song, error)
	UpdateSong(ctx context.Context, in store.Song) (store.Song, error)
	DeleteSong(ctx context.Context, id string) error
}

type Service struct {
	songs          SongStore
	events         events.Publisher
	anonymousReads bool
}

func NewService(songs SongStore, pub events.Publisher, anonymousReads bool) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{songs: songs, events: pub, anonymousReads: anonymousReads}
}

type SongInput struct {
	Title       string
	Artist      string
	Album       string
	FileURL     string
	CoverArtURL string
	Duration    int
}

// SongPatch holds a partial update. Nil fields are left unchanged.
type SongPatch struct {
	Title       *string
	Artist      *string
	Album       *string
	FileURL     *string
	CoverArtURL *string
	Duration    *int
}

func (in *SongInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Artist = strings.TrimSpace(in.Artist)
	in.Album = strings.TrimSpace(in.Album)
	in.FileURL = strings.TrimSpace(in.FileURL)
	in.CoverArtURL = strings.TrimSpace(in.CoverArtURL)
}

func (in SongInput) validate() error {
	err := ErrInvalidSong
	bad := false
	check := func(field string, ok bool, msg string) {
		if !ok {
			err = err.WithField(field, msg)
			bad = true
		}
	}
	check("title", in.Title != "" && len(in.Title) <= 255, "title must be between 1 and 255 characters")
	check("artist", in.Artist != "" && len(in.Artist) <= 255, "artist must be between 1 and 255 characters")
	check("album", len(in.Album) <= 255, "album is too long")
	check("file_url", in.FileURL != "", "this field is required")
	check("file_url", in.FileURL == "" || isURL(in.FileURL), "enter a valid URL")
	check("cover_art_url", in.CoverArtURL == "" || isURL(in.CoverArtURL), "enter a valid URL")
	check("duration", in.Duration > 0, "duration must be a positive number of seconds")
	if bad {
		return err
	}
	return nil
}

// Create stores a song owned by the caller.
func (s *Service) Create(ctx context.Context, caller access.Caller, in SongInput) (store.Song, error) {
	if err := access.RequireAuthenticated(caller); err != nil {
		return store.Song{}, err
	}
	in.normalize()
	if err := in.validate(); err != nil {
		return store.Song{}, err
	}

	song, err := s.songs.CreateSong(ctx, store.Song{
		Title:       in.Title,
		Artist:      in.Artist,
		Album:       in.Album,
		FileURL:     in.FileURL,
		CoverArtURL: in.CoverArtURL,
		Duration:    in.Duration,
		UploadedBy:  caller.UserID,
	})
	if err != nil {
		return store.Song{}, fmt.Errorf("create song: %w", err)
	}
	s.events.Publish(ctx, events.SongCreated, song)
	return song, nil
}

func (s *Service) Get(ctx context.Context, caller access.Caller, id string) (store.Song, error) {
	if err := access.CanReadSong(caller, s.anonymousReads); err != nil {
		return store.Song{}, err
	}
	return s.load(ctx, id)
}

func (s *Service) load(ctx context.Context, id string) (store.Song, error) {
	song, err := s.songs.GetSong(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return store.Song{}, ErrSongNotFound
	}
	if err != nil {
		return store.Song{}, fmt.Errorf("get song: %w", err)
	}
	return song, nil
}

func (s *Service) List(ctx context.Context, caller access.Caller, f store.SongFilter) ([]store.Song, error) {
	if err := access.CanReadSong(caller, s.anonymousReads); err != nil {
		return nil, err
	}
	songs, err := s.songs.ListSongs(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list songs: %w", err)
	}
	return songs, nil
}

// loadOwned fetches a song the caller may modify.
func (s *Service) loadOwned(ctx context.Context, caller access.Caller, id string) (store.Song, error) {
	if err := access.RequireAuthenticated(caller); err != nil {
		return store.Song{}, err
	}
	song, err := s.load(ctx, id)
	if err != nil {
		return store.Song{}, err
	}
	if err := access.CanWriteSong(caller, song); err != nil {
		return store.Song{}, err
	}
	return song, nil
}

// Replace is a full update; every field is required again.
func (s *Service) Replace(ctx context.Context, caller access.Caller, id string, in SongInput) (store.Song, error) {
	if _, err := s.loadOwned(ctx, caller, id); err != nil {
		return store.Song{}, err
	}
	in.normalize()
	if err := in.validate(); err != nil {
		return store.Song{}, err
	}
	return s.save(ctx, id, in)
}

func (s *Service) Patch(ctx context.Context, caller access.Caller, id string, p SongPatch) (store.Song, error) {
	cur, err := s.loadOwned(ctx, caller, id)
	if err != nil {
		return store.Song{}, err
	}
	in := SongInput{
		Title:       pick(p.Title, cur.Title),
		Artist:      pick(p.Artist, cur.Artist),
		Album:       pick(p.Album, cur.Album),
		FileURL:     pick(p.FileURL, cur.FileURL),
		CoverArtURL: pick(p.CoverArtURL, cur.CoverArtURL),
		Duration:    pick(p.Duration, cur.Duration),
	}
	in.normalize()
	if err := in.validate(); err != nil {
		return store.Song{}, err
	}
	return s.save(ctx, id, in)
}

func (s *Service) save(ctx context.Context, id string, in SongInput) (store.Song, error) {
	song, err := s.songs.UpdateSong(ctx, store.Song{
		ID:          id,
		Title:       in.Title,
		Artist:      in.Artist,
		Album:       in.Album,
		FileURL:     in.FileURL,
		CoverArtURL: in.CoverArtURL,
		Duration:    in.Duration,
	})
	if errors.Is(err, store.ErrNotFound) {
		return store.Song{}, ErrSongNotFound
	}
	if err != nil {
		return store.Song{}, fmt.Errorf("update song: %w", err)
	}
	s.events.Publish(ctx, events.SongUpdated, song)
	return song, nil
}

func (s *Service) Delete(ctx context.Context, caller access.Caller, id string) error {
	if _, err := s.loadOwned(ctx, caller, id); err != nil {
		return err
	}
	err := s.songs.DeleteSong(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrSongNotFound
	}
	if err != nil {
		return fmt.Errorf("delete song: %w", err)
	}
	s.events.Publish(ctx, events.SongDeleted, map[string]string{"id": id})
	return nil
}

func pick[T any](p *T, cur T) T {
	if p != nil {
		return *p
	}
	return cur
}
