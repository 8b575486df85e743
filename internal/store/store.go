// Package store is the Postgres persistence layer. Every table gets plain
// record types and explicit repository methods on Store; nothing is cached.
package store

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound            = errors.New("store: not found")
	ErrSongNotFound        = errors.New("store: song not found")
	ErrDuplicateMembership = errors.New("store: song already in playlist")
	ErrDuplicateUsername   = errors.New("store: username already taken")
	ErrDuplicateEmail      = errors.New("store: email already registered")
	// ErrStaleUser means the row's token_version moved since it was read.
	ErrStaleUser = errors.New("store: user changed concurrently")
	// ErrOrderOutOfRange rejects an explicit order outside [1, MaxOrder], or
	// an append that would overflow the sort_order column.
	ErrOrderOutOfRange = errors.New("store: order out of range")
)

// MaxOrder is the largest order a caller may request. Shifts and appends can
// still grow past it, up to the int4 limit of sort_order.
const MaxOrder = 1_000_000

const maxSortOrder = math.MaxInt32

// DB is the subset of *pgxpool.Pool the repositories use. pgxmock satisfies it.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type Store struct {
	db DB
}

func New(db DB) *Store {
	return &Store{db: db}
}

type User struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	EmailVerified bool      `json:"email_verified"`
	AvatarURL     string    `json:"avatar_url"`
	TokenVersion  int       `json:"-"`
	CreatedAt     time.Time `json:"date_joined"`
	UpdatedAt     time.Time `json:"-"`
}

type NewUser struct {
	Username     string
	Email        string
	PasswordHash string
}

type Song struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Artist      string    `json:"artist"`
	Album       string    `json:"album"`
	FileURL     string    `json:"file_url"`
	CoverArtURL string    `json:"cover_art_url"`
	Duration    int       `json:"duration"`
	UploadedBy  string    `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}

type SongFilter struct {
	UploadedBy string
}

type Playlist struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	OwnerID     string    `json:"owner"`
	IsPublic    bool      `json:"is_public"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Membership is one playlist_songs row.
type Membership struct {
	ID         string    `json:"id"`
	PlaylistID string    `json:"playlist"`
	SongID     string    `json:"song_id"`
	Order      int       `json:"order"`
	AddedAt    time.Time `json:"added_at"`
}

// PlaylistSong is a membership row joined with its song.
type PlaylistSong struct {
	Membership
	Song Song `json:"song"`
}

type PlayLogEntry struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user"`
	SongID   string    `json:"song_id"`
	PlayedAt time.Time `json:"played_at"`
	Song     Song      `json:"song"`
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgInvalidText         = "22P02"
)

// Constraint names as created by AutoMigrate.
const (
	constraintUsername        = "users_username_key"
	constraintEmail           = "users_email_lower_key"
	constraintMembershipSong  = "playlist_songs_playlist_song_key"
	constraintMembershipOrder = "playlist_songs_playlist_order_key"
	constraintPlayLogSong     = "play_logs_song_id_fkey"
)

// classify maps constraint violations onto store sentinels and passes
// everything else through.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		switch pgErr.ConstraintName {
		case constraintUsername:
			return ErrDuplicateUsername
		case constraintEmail:
			return ErrDuplicateEmail
		case constraintMembershipSong:
			return ErrDuplicateMembership
		}
	case pgForeignKeyViolation:
		if pgErr.ConstraintName == constraintPlayLogSong {
			return ErrSongNotFound
		}
	}
	return err
}

// notFound also treats a malformed uuid key as a missing row.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgInvalidText {
		return ErrNotFound
	}
	return classify(err)
}
