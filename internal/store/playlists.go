package store

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const playlistColumns = `id, title, description, owner_id, is_public, created_at, updated_at`

func scanPlaylist(row pgx.Row) (Playlist, error) {
	var p Playlist
	if err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Description,
		&p.OwnerID,
		&p.IsPublic,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return Playlist{}, notFound(err)
	}
	return p, nil
}

func (s *Store) CreatePlaylist(ctx context.Context, in Playlist) (Playlist, error) {
	row := s.db.QueryRow(ctx, `
      INSERT INTO playlists (title, description, owner_id, is_public)
      VALUES ($1, $2, $3, $4)
      RETURNING `+playlistColumns,
		in.Title, in.Description, in.OwnerID, in.IsPublic,
	)
	return scanPlaylist(row)
}

func (s *Store) GetPlaylist(ctx context.Context, id string) (Playlist, error) {
	return scanPlaylist(s.db.QueryRow(ctx, `SELECT `+playlistColumns+` FROM playlists WHERE id = $1`, id))
}

// ListVisiblePlaylists returns the caller's playlists plus every public one,
// each row once. An empty callerID yields public playlists only.
func (s *Store) ListVisiblePlaylists(ctx context.Context, callerID string) ([]Playlist, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if callerID == "" {
		rows, err = s.db.Query(ctx, `SELECT `+playlistColumns+` FROM playlists WHERE is_public ORDER BY created_at DESC, id`)
	} else {
		rows, err = s.db.Query(ctx, `SELECT `+playlistColumns+` FROM playlists WHERE owner_id = $1 OR is_public ORDER BY created_at DESC, id`, callerID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Playlist{}
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) UpdatePlaylist(ctx context.Context, in Playlist) (Playlist, error) {
	row := s.db.QueryRow(ctx, `
      UPDATE playlists SET title = $2, description = $3, is_public = $4, updated_at = now()
      WHERE id = $1
      RETURNING `+playlistColumns,
		in.ID, in.Title, in.Description, in.IsPublic,
	)
	return scanPlaylist(row)
}

// DeletePlaylist removes the playlist; membership rows go with it.
func (s *Store) DeletePlaylist(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM playlists WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
