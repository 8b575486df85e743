// Package events publishes domain events to Redis pub/sub. Publication is
// best-effort: failures are logged and never fail the request.
package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"musicplayer/internal/logging"
)

const Channel = "broadcast"

const (
	SongCreated         = "song.created"
	SongUpdated         = "song.updated"
	SongDeleted         = "song.deleted"
	SongPlayed          = "song.played"
	PlaylistCreated     = "playlist.created"
	PlaylistUpdated     = "playlist.updated"
	PlaylistDeleted     = "playlist.deleted"
	PlaylistSongAdded   = "playlist.song_added"
	PlaylistSongRemoved = "playlist.song_removed"
	PlaylistSongMoved   = "playlist.song_moved"
)

type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any)
}

type RedisPublisher struct {
	rdb *redis.Client
}

// NewRedisPublisher returns Nop when rdb is nil.
func NewRedisPublisher(rdb *redis.Client) Publisher {
	if rdb == nil {
		return Nop{}
	}
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) Publish(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("event", eventType).Msg("marshal event")
		return
	}
	if err := p.rdb.Publish(ctx, Channel, data).Err(); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("event", eventType).Msg("publish event")
	}
}

type Nop struct{}

func (Nop) Publish(context.Context, string, any) {}

// Recorder keeps published events in memory.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Publish(_ context.Context, eventType string, payload any) {
	r.Events = append(r.Events, Event{Type: eventType, Payload: payload})
}

// Types lists the recorded event types in publication order.
func (r *Recorder) Types() []string {
	out := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		out = append(out, e.Type)
	}
	return out
}
