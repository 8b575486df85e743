package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	playlistID = "11111111-1111-1111-1111-111111111111"
	songID     = "22222222-2222-2222-2222-222222222222"
	userID     = "33333333-3333-3333-3333-333333333333"
)

func setupMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return New(mock), mock
}

var membershipCols = []string{"id", "playlist_id", "song_id", "sort_order", "added_at"}

func TestAddSong(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("AppendsAfterMax", func(t *testing.T) {
		s, mock := setupMockStore(t)

		mock.ExpectBeginTx(pgx.TxOptions{})
		mock.ExpectQuery(`SELECT id FROM playlists WHERE id = \$1 FOR UPDATE`).
			WithArgs(playlistID).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(playlistID))
		mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM songs`).
			WithArgs(songID).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM playlist_songs WHERE playlist_id = \$1 AND song_id = \$2\)`).
			WithArgs(playlistID, songID).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectQuery(`SELECT COALESCE\(MAX\(sort_order\)::bigint \+ 1, 1\)`).
			WithArgs(playlistID).
			WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(3))
		mock.ExpectQuery(`INSERT INTO playlist_songs`).
			WithArgs(playlistID, songID, 3).
			WillReturnRows(pgxmock.NewRows(membershipCols).AddRow("m1", playlistID, songID, 3, now))
		mock.ExpectCommit()

		m, err := s.AddSong(ctx, playlistID, songID, nil)
		require.NoError(t, err)
		assert.Equal(t, 3, m.Order)
		assert.Equal(t, songID, m.SongID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ExplicitOrderShiftsOccupiedSlot", func(t *testing.T) {
		s, mock := setupMockStore(t)
		order := 1

		mock.ExpectBeginTx(pgx.TxOptions{})
		mock.ExpectQuery(`FOR UPDATE`).WithArgs(playlistID).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(playlistID))
		mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM songs`).WithArgs(songID).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery(`playlist_id = \$1 AND song_id = \$2\)`).WithArgs(playlistID, songID).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectQuery(`sort_order = \$2 AND song_id <> \$3`).WithArgs(playlistID, 1, songID).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectExec(`UPDATE playlist_songs SET sort_order = sort_order \+ 1`).WithArgs(playlistID, 1, songID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 2))
		mock.ExpectQuery(`INSERT INTO playlist_songs`).WithArgs(playlistID, songID, 1).
			WillReturnRows(pgxmock.NewRows(membershipCols).AddRow("m1", playlistID, songID, 1, now))
		mock.ExpectCommit()

		m, err := s.AddSong(ctx, playlistID, songID, &order)
		require.NoError(t, err)
		assert.Equal(t, 1, m.Order)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Duplicate", func(t *testing.T) {
		s, mock := setupMockStore(t)

		mock.ExpectBeginTx(pgx.TxOptions{})
		mock.ExpectQuery(`FOR UPDATE`).WithArgs(playlistID).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(playlistID))
		mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM songs`).WithArgs(songID).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery(`playlist_id = \$1 AND song_id = \$2\)`).WithArgs(playlistID, songID).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectRollback()

		_, err := s.AddSong(ctx, playlistID, songID, nil)
		assert.ErrorIs(t, err, ErrDuplicateMembership)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("SongMissing", func(t *testing.T) {
		s, mock := setupMockStore(t)

		mock.ExpectBeginTx(pgx.TxOptions{})
		mock.ExpectQuery(`FOR UPDATE`).WithArgs(playlistID).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(playlistID))
		mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM songs`).WithArgs(songID).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectRollback()

		_, err := s.AddSong(ctx, playlistID, songID, nil)
		assert.ErrorIs(t, err, ErrSongNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("PlaylistMissing", func(t *testing.T) {
		s, mock := setupMockStore(t)

		mock.ExpectBeginTx(pgx.TxOptions{})
		mock.ExpectQuery(`FOR UPDATE`).WithArgs(playlistID).WillReturnError(pgx.ErrNoRows)
		mock.ExpectRollback()

		_, err := s.AddSong(ctx, playlistID, songID, nil)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UniqueViolationOnInsert", func(t *testing.T) {
		s, mock := setupMockStore(t)

		mock.ExpectBeginTx(pgx.TxOptions{})
		mock.ExpectQuery(`FOR UPDATE`).WithArgs(playlistID).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(playlistID))
		mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM songs`).WithArgs(songID).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery(`playlist_id = \$1 AND song_id = \$2\)`).WithArgs(playlistID, songID).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectQuery(`COALESCE`).WithArgs(playlistID).
			WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(1))
		mock.ExpectQuery(`INSERT INTO playlist_songs`).WithArgs(playlistID, songID, 1).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "playlist_songs_playlist_song_key"})
		mock.ExpectRollback()

		_, err := s.AddSong(ctx, playlistID, songID, nil)
		assert.ErrorIs(t, err, ErrDuplicateMembership)
	})
}

func TestMembershipOrderBounds(t *testing.T) {
	ctx := context.Background()

	t.Run("ExplicitOrderRejectedBeforeQuerying", func(t *testing.T) {
		s, mock := setupMockStore(t)
		for _, order := range []int{0, MaxOrder + 1, 3_000_000_000} {
			_, err := s.AddSong(ctx, playlistID, songID, &order)
			assert.ErrorIs(t, err, ErrOrderOutOfRange)
			_, err = s.MoveSong(ctx, playlistID, songID, order)
			assert.ErrorIs(t, err, ErrOrderOutOfRange)
		}
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("AppendPastColumnLimit", func(t *testing.T) {
		s, mock := setupMockStore(t)

		mock.ExpectBeginTx(pgx.TxOptions{})
		mock.ExpectQuery(`FOR UPDATE`).WithArgs(playlistID).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(playlistID))
		mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM songs`).WithArgs(songID).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery(`playlist_id = \$1 AND song_id = \$2\)`).WithArgs(playlistID, songID).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectQuery(`COALESCE`).WithArgs(playlistID).
			WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(2147483648))
		mock.ExpectRollback()

		_, err := s.AddSong(ctx, playlistID, songID, nil)
		assert.ErrorIs(t, err, ErrOrderOutOfRange)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMoveSongNotMember(t *testing.T) {
	s, mock := setupMockStore(t)

	mock.ExpectBeginTx(pgx.TxOptions{})
	mock.ExpectQuery(`FOR UPDATE`).WithArgs(playlistID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(playlistID))
	mock.ExpectQuery(`sort_order = \$2 AND song_id <> \$3`).WithArgs(playlistID, 2, songID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`UPDATE playlist_songs SET sort_order = \$3`).WithArgs(playlistID, songID, 2).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := s.MoveSong(context.Background(), playlistID, songID, 2)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveSong(t *testing.T) {
	s, mock := setupMockStore(t)

	mock.ExpectExec(`DELETE FROM playlist_songs`).WithArgs(playlistID, songID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM playlist_songs`).WithArgs(playlistID, songID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, s.RemoveSong(context.Background(), playlistID, songID))
	assert.ErrorIs(t, s.RemoveSong(context.Background(), playlistID, songID), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var userCols = []string{"id", "username", "email", "password", "email_verified", "avatar_url", "token_version", "created_at", "updated_at"}

func TestCreateUserClassifiesDuplicates(t *testing.T) {
	tests := []struct {
		constraint string
		want       error
	}{
		{"users_username_key", ErrDuplicateUsername},
		{"users_email_lower_key", ErrDuplicateEmail},
	}
	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			s, mock := setupMockStore(t)
			mock.ExpectQuery(`INSERT INTO users`).
				WithArgs("alice", "alice@example.com", "hash").
				WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: tt.constraint})

			_, err := s.CreateUser(context.Background(), NewUser{Username: "alice", Email: "alice@example.com", PasswordHash: "hash"})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGetUserByEmailIsCaseInsensitive(t *testing.T) {
	s, mock := setupMockStore(t)
	now := time.Now()

	mock.ExpectQuery(`WHERE lower\(email\) = lower\(\$1\)`).
		WithArgs("ALICE@Example.com").
		WillReturnRows(pgxmock.NewRows(userCols).AddRow(userID, "alice", "alice@example.com", "hash", false, "", 0, now, now))

	u, err := s.GetUserByEmail(context.Background(), "ALICE@Example.com")
	require.NoError(t, err)
	assert.Equal(t, userID, u.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePasswordStaleVersion(t *testing.T) {
	s, mock := setupMockStore(t)
	now := time.Now()

	mock.ExpectQuery(`token_version = token_version \+ 1`).
		WithArgs(userID, "new-hash", 0).
		WillReturnRows(pgxmock.NewRows(userCols).AddRow(userID, "alice", "a@example.com", "new-hash", true, "", 1, now, now))
	mock.ExpectQuery(`token_version = token_version \+ 1`).
		WithArgs(userID, "newer-hash", 0).
		WillReturnError(pgx.ErrNoRows)

	u, err := s.UpdatePassword(context.Background(), userID, "new-hash", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, u.TokenVersion)

	_, err = s.UpdatePassword(context.Background(), userID, "newer-hash", 0)
	assert.ErrorIs(t, err, ErrStaleUser)
}

func TestListVisiblePlaylists(t *testing.T) {
	s, mock := setupMockStore(t)
	now := time.Now()
	cols := []string{"id", "title", "description", "owner_id", "is_public", "created_at", "updated_at"}

	mock.ExpectQuery(`WHERE owner_id = \$1 OR is_public`).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow("p1", "Mine", "", userID, false, now, now).
			AddRow("p2", "Shared", "", "someone", true, now, now))
	mock.ExpectQuery(`WHERE is_public ORDER BY`).
		WillReturnRows(pgxmock.NewRows(cols).AddRow("p2", "Shared", "", "someone", true, now, now))

	got, err := s.ListVisiblePlaylists(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = s.ListVisiblePlaylists(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].IsPublic)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePlayLogMissingSong(t *testing.T) {
	s, mock := setupMockStore(t)

	mock.ExpectQuery(`INSERT INTO play_logs`).
		WithArgs(userID, songID).
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "play_logs_song_id_fkey"})

	_, err := s.CreatePlayLog(context.Background(), userID, songID)
	assert.ErrorIs(t, err, ErrSongNotFound)
}

func TestDeleteSongMissing(t *testing.T) {
	s, mock := setupMockStore(t)
	mock.ExpectExec(`DELETE FROM songs`).WithArgs(songID).WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.ErrorIs(t, s.DeleteSong(context.Background(), songID), ErrNotFound)
}

func TestAutoMigrateStopsOnError(t *testing.T) {
	_, mock := setupMockStore(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS users`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`CREATE UNIQUE INDEX IF NOT EXISTS users_email_lower_key`).WillReturnError(errors.New("boom"))

	err := AutoMigrate(context.Background(), mock)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "users email index")
}
