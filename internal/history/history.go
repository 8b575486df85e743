// Package history records song plays. Entries are append-only and visible
// only to the user who played.
package history

import (
	"context"
	"errors"
	"fmt"

	"musicplayer/internal/access"
	"musicplayer/internal/apperr"
	"musicplayer/internal/events"
	"musicplayer/internal/metrics"
	"musicplayer/internal/store"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

var ErrSongNotFound = apperr.Validation("song_not_found", "song not found").WithField("song_id", "invalid pk - object does not exist")

type Store interface {
	CreatePlayLog(ctx context.Context, userID, songID string) (store.PlayLogEntry, error)
	ListPlayLogs(ctx context.Context, userID string, limit int) ([]store.PlayLogEntry, error)
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

// RecordPlay appends an entry. Replays create new entries.
func (s *Service) RecordPlay(ctx context.Context, caller access.Caller, songID string) (store.PlayLogEntry, error) {
	if err := access.RequireAuthenticated(caller); err != nil {
		return store.PlayLogEntry{}, err
	}
	e, err := s.store.CreatePlayLog(ctx, caller.UserID, songID)
	if errors.Is(err, store.ErrSongNotFound) {
		return store.PlayLogEntry{}, ErrSongNotFound
	}
	if err != nil {
		return store.PlayLogEntry{}, fmt.Errorf("record play: %w", err)
	}
	metrics.PlaysRecorded.Inc()
	s.events.Publish(ctx, events.SongPlayed, e)
	return e, nil
}

// ListHistory returns the caller's plays, most recent first. limit is
// clamped to [1, MaxLimit]; zero means DefaultLimit.
func (s *Service) ListHistory(ctx context.Context, caller access.Caller, limit int) ([]store.PlayLogEntry, error) {
	if err := access.CanReadHistory(caller, caller.UserID); err != nil {
		return nil, err
	}
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	out, err := s.store.ListPlayLogs(ctx, caller.UserID, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return out, nil
}
