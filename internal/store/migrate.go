package store

import (
	"context"
	"fmt"
)

var migrations = []struct {
	name string
	sql  string
}{
	{"users", `
      CREATE TABLE IF NOT EXISTS users (
          id             uuid PRIMARY KEY DEFAULT gen_random_uuid(),
          username       TEXT NOT NULL,
          email          TEXT NOT NULL,
          password       TEXT NOT NULL,
          email_verified BOOLEAN NOT NULL DEFAULT FALSE,
          avatar_url     TEXT NOT NULL DEFAULT '',
          token_version  INT NOT NULL DEFAULT 0,
          last_login     TIMESTAMPTZ,
          created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
          updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
          CONSTRAINT users_username_key UNIQUE (username)
      )`},
	{"users email index", `
      CREATE UNIQUE INDEX IF NOT EXISTS users_email_lower_key ON users (lower(email))`},
	{"songs", `
      CREATE TABLE IF NOT EXISTS songs (
          id            uuid PRIMARY KEY DEFAULT gen_random_uuid(),
          title         TEXT NOT NULL,
          artist        TEXT NOT NULL,
          album         TEXT NOT NULL DEFAULT '',
          file_url      TEXT NOT NULL,
          cover_art_url TEXT NOT NULL DEFAULT '',
          duration      INT NOT NULL CHECK (duration > 0),
          uploaded_by   uuid NOT NULL REFERENCES users(id) ON DELETE CASCADE,
          created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
      )`},
	{"playlists", `
      CREATE TABLE IF NOT EXISTS playlists (
          id          uuid PRIMARY KEY DEFAULT gen_random_uuid(),
          title       TEXT NOT NULL,
          description TEXT NOT NULL DEFAULT '',
          owner_id    uuid NOT NULL REFERENCES users(id) ON DELETE CASCADE,
          is_public   BOOLEAN NOT NULL DEFAULT FALSE,
          created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
          updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
      )`},
	{"playlist_songs", `
      CREATE TABLE IF NOT EXISTS playlist_songs (
          id          uuid PRIMARY KEY DEFAULT gen_random_uuid(),
          playlist_id uuid NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
          song_id     uuid NOT NULL REFERENCES songs(id) ON DELETE CASCADE,
          sort_order  INT NOT NULL,
          added_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
          CONSTRAINT playlist_songs_playlist_song_key UNIQUE (playlist_id, song_id),
          CONSTRAINT playlist_songs_playlist_order_key UNIQUE (playlist_id, sort_order) DEFERRABLE INITIALLY DEFERRED
      )`},
	{"play_logs", `
      CREATE TABLE IF NOT EXISTS play_logs (
          id        uuid PRIMARY KEY DEFAULT gen_random_uuid(),
          user_id   uuid NOT NULL REFERENCES users(id) ON DELETE CASCADE,
          song_id   uuid NOT NULL,
          played_at TIMESTAMPTZ NOT NULL DEFAULT now(),
          CONSTRAINT play_logs_song_id_fkey FOREIGN KEY (song_id) REFERENCES songs(id) ON DELETE CASCADE
      )`},
	{"play_logs index", `
      CREATE INDEX IF NOT EXISTS play_logs_user_played_idx ON play_logs (user_id, played_at DESC)`},
	{"playlists index", `
      CREATE INDEX IF NOT EXISTS playlists_owner_idx ON playlists (owner_id)`},
}

// AutoMigrate creates the schema. Every statement is idempotent.
func AutoMigrate(ctx context.Context, db DB) error {
	for _, m := range migrations {
		if _, err := db.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migrate %s: %w", m.name, err)
		}
	}
	return nil
}
