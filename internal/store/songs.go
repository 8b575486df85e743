package store

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const songColumns = `id, title, artist, album, file_url, cover_art_url, duration, uploaded_by, created_at`

func scanSong(row pgx.Row) (Song, error) {
	var s Song
	if err := row.Scan(
		&s.ID,
		&s.Title,
		&s.Artist,
		&s.Album,
		&s.FileURL,
		&s.CoverArtURL,
		&s.Duration,
		&s.UploadedBy,
		&s.CreatedAt,
	); err != nil {
		return Song{}, notFound(err)
	}
	return s, nil
}

func (s *Store) CreateSong(ctx context.Context, in Song) (Song, error) {
	row := s.db.QueryRow(ctx, `
      INSERT INTO songs (title, artist, album, file_url, cover_art_url, duration, uploaded_by)
      VALUES ($1, $2, $3, $4, $5, $6, $7)
      RETURNING `+songColumns,
		in.Title, in.Artist, in.Album, in.FileURL, in.CoverArtURL, in.Duration, in.UploadedBy,
	)
	return scanSong(row)
}

func (s *Store) GetSong(ctx context.Context, id string) (Song, error) {
	return scanSong(s.db.QueryRow(ctx, `SELECT `+songColumns+` FROM songs WHERE id = $1`, id))
}

// ListSongs returns songs newest first.
func (s *Store) ListSongs(ctx context.Context, f SongFilter) ([]Song, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if f.UploadedBy != "" {
		rows, err = s.db.Query(ctx, `SELECT `+songColumns+` FROM songs WHERE uploaded_by = $1 ORDER BY created_at DESC, id`, f.UploadedBy)
	} else {
		rows, err = s.db.Query(ctx, `SELECT `+songColumns+` FROM songs ORDER BY created_at DESC, id`)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	songs := []Song{}
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, err
		}
		songs = append(songs, song)
	}
	return songs, rows.Err()
}

// UpdateSong rewrites the mutable columns. The uploader never changes.
func (s *Store) UpdateSong(ctx context.Context, in Song) (Song, error) {
	row := s.db.QueryRow(ctx, `
      UPDATE songs SET title = $2, artist = $3, album = $4, file_url = $5, cover_art_url = $6, duration = $7
      WHERE id = $1
      RETURNING `+songColumns,
		in.ID, in.Title, in.Artist, in.Album, in.FileURL, in.CoverArtURL, in.Duration,
	)
	return scanSong(row)
}

func (s *Store) DeleteSong(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM songs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
