package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

func validOrder(order int) bool {
	return order >= 1 && order <= MaxOrder
}

// lockPlaylist takes the row lock that serializes order assignment for one
// playlist. Concurrent AddSong and MoveSong calls queue here.
func lockPlaylist(ctx context.Context, tx pgx.Tx, playlistID string) error {
	var id string
	err := tx.QueryRow(ctx, `SELECT id FROM playlists WHERE id = $1 FOR UPDATE`, playlistID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// openSlot makes order free in the playlist by shifting the rows at or after
// it up by one. excludeSongID is left untouched.
func openSlot(ctx context.Context, tx pgx.Tx, playlistID string, order int, excludeSongID string) error {
	var taken bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM playlist_songs WHERE playlist_id = $1 AND sort_order = $2 AND song_id <> $3)`,
		playlistID, order, excludeSongID,
	).Scan(&taken); err != nil {
		return err
	}
	if !taken {
		return nil
	}
	_, err := tx.Exec(ctx,
		`UPDATE playlist_songs SET sort_order = sort_order + 1 WHERE playlist_id = $1 AND sort_order >= $2 AND song_id <> $3`,
		playlistID, order, excludeSongID,
	)
	return err
}

// AddSong appends songID to the playlist, or inserts it at order when given.
// Without an order the row gets max(order)+1, or 1 for an empty playlist.
func (s *Store) AddSong(ctx context.Context, playlistID, songID string, order *int) (Membership, error) {
	if order != nil && !validOrder(*order) {
		return Membership{}, ErrOrderOutOfRange
	}
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Membership{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockPlaylist(ctx, tx, playlistID); err != nil {
		return Membership{}, err
	}

	var songExists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM songs WHERE id = $1)`, songID).Scan(&songExists); err != nil {
		return Membership{}, err
	}
	if !songExists {
		return Membership{}, ErrSongNotFound
	}

	var member bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM playlist_songs WHERE playlist_id = $1 AND song_id = $2)`,
		playlistID, songID,
	).Scan(&member); err != nil {
		return Membership{}, err
	}
	if member {
		return Membership{}, ErrDuplicateMembership
	}

	var pos int
	if order != nil {
		pos = *order
		if err := openSlot(ctx, tx, playlistID, pos, songID); err != nil {
			return Membership{}, err
		}
	} else {
		if err := tx.QueryRow(ctx,
			`SELECT COALESCE(MAX(sort_order)::bigint + 1, 1) FROM playlist_songs WHERE playlist_id = $1`,
			playlistID,
		).Scan(&pos); err != nil {
			return Membership{}, err
		}
		if pos > maxSortOrder {
			return Membership{}, ErrOrderOutOfRange
		}
	}

	var m Membership
	err = tx.QueryRow(ctx, `
      INSERT INTO playlist_songs (playlist_id, song_id, sort_order)
      VALUES ($1, $2, $3)
      RETURNING id, playlist_id, song_id, sort_order, added_at`,
		playlistID, songID, pos,
	).Scan(&m.ID, &m.PlaylistID, &m.SongID, &m.Order, &m.AddedAt)
	if err != nil {
		return Membership{}, classify(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Membership{}, classify(err)
	}
	return m, nil
}

// MoveSong sets a member's order, shifting whatever occupies it.
func (s *Store) MoveSong(ctx context.Context, playlistID, songID string, order int) (Membership, error) {
	if !validOrder(order) {
		return Membership{}, ErrOrderOutOfRange
	}
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Membership{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockPlaylist(ctx, tx, playlistID); err != nil {
		return Membership{}, err
	}
	if err := openSlot(ctx, tx, playlistID, order, songID); err != nil {
		return Membership{}, err
	}

	var m Membership
	err = tx.QueryRow(ctx, `
      UPDATE playlist_songs SET sort_order = $3
      WHERE playlist_id = $1 AND song_id = $2
      RETURNING id, playlist_id, song_id, sort_order, added_at`,
		playlistID, songID, order,
	).Scan(&m.ID, &m.PlaylistID, &m.SongID, &m.Order, &m.AddedAt)
	if err != nil {
		return Membership{}, notFound(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Membership{}, classify(err)
	}
	return m, nil
}

// RemoveSong deletes the membership row. Remaining orders are not renumbered.
func (s *Store) RemoveSong(ctx context.Context, playlistID, songID string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM playlist_songs WHERE playlist_id = $1 AND song_id = $2`, playlistID, songID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPlaylistSongs returns memberships with their songs in ascending order.
func (s *Store) ListPlaylistSongs(ctx context.Context, playlistID string) ([]PlaylistSong, error) {
	rows, err := s.db.Query(ctx, `
      SELECT ps.id, ps.playlist_id, ps.song_id, ps.sort_order, ps.added_at,
             s.id, s.title, s.artist, s.album, s.file_url, s.cover_art_url, s.duration, s.uploaded_by, s.created_at
      FROM playlist_songs ps
      JOIN songs s ON s.id = ps.song_id
      WHERE ps.playlist_id = $1
      ORDER BY ps.sort_order ASC, ps.added_at ASC`,
		playlistID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []PlaylistSong{}
	for rows.Next() {
		var ps PlaylistSong
		if err := rows.Scan(
			&ps.ID, &ps.PlaylistID, &ps.SongID, &ps.Order, &ps.AddedAt,
			&ps.Song.ID, &ps.Song.Title, &ps.Song.Artist, &ps.Song.Album, &ps.Song.FileURL,
			&ps.Song.CoverArtURL, &ps.Song.Duration, &ps.Song.UploadedBy, &ps.Song.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, ps)
	}
	return out, rows.Err()
}
