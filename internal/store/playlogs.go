package store

import (
	"context"
)

// CreatePlayLog appends a play. A missing song surfaces as ErrSongNotFound.
func (s *Store) CreatePlayLog(ctx context.Context, userID, songID string) (PlayLogEntry, error) {
	var e PlayLogEntry
	err := s.db.QueryRow(ctx, `
      INSERT INTO play_logs (user_id, song_id)
      VALUES ($1, $2)
      RETURNING id, user_id, song_id, played_at`,
		userID, songID,
	).Scan(&e.ID, &e.UserID, &e.SongID, &e.PlayedAt)
	if err != nil {
		return PlayLogEntry{}, classify(err)
	}
	return e, nil
}

// ListPlayLogs returns the user's plays, most recent first.
func (s *Store) ListPlayLogs(ctx context.Context, userID string, limit int) ([]PlayLogEntry, error) {
	rows, err := s.db.Query(ctx, `
      SELECT pl.id, pl.user_id, pl.song_id, pl.played_at,
             s.id, s.title, s.artist, s.album, s.file_url, s.cover_art_url, s.duration, s.uploaded_by, s.created_at
      FROM play_logs pl
      JOIN songs s ON s.id = pl.song_id
      WHERE pl.user_id = $1
      ORDER BY pl.played_at DESC, pl.id
      LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []PlayLogEntry{}
	for rows.Next() {
		var e PlayLogEntry
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.SongID, &e.PlayedAt,
			&e.Song.ID, &e.Song.Title, &e.Song.Artist, &e.Song.Album, &e.Song.FileURL,
			&e.Song.CoverArtURL, &e.Song.Duration, &e.Song.UploadedBy, &e.Song.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
