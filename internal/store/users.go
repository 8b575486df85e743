package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id, username, email, password, email_verified, avatar_url, token_version, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.EmailVerified,
		&u.AvatarURL,
		&u.TokenVersion,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return User{}, notFound(err)
	}
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, nu NewUser) (User, error) {
	row := s.db.QueryRow(ctx, `
      INSERT INTO users (username, email, password)
      VALUES ($1, $2, $3)
      RETURNING `+userColumns,
		nu.Username, nu.Email, nu.PasswordHash,
	)
	return scanUser(row)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (User, error) {
	return scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetUserByEmail matches case-insensitively.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

func (s *Store) UpdateUserProfile(ctx context.Context, id, username, avatarURL string) (User, error) {
	row := s.db.QueryRow(ctx, `
      UPDATE users SET username = $2, avatar_url = $3, updated_at = now()
      WHERE id = $1
      RETURNING `+userColumns,
		id, username, avatarURL,
	)
	return scanUser(row)
}

// UpdatePassword stores a new hash and bumps token_version, but only while the
// row still carries expectVersion. Otherwise it returns ErrStaleUser, which is
// what makes a consumed reset token fail on a concurrent second use.
func (s *Store) UpdatePassword(ctx context.Context, id, hash string, expectVersion int) (User, error) {
	row := s.db.QueryRow(ctx, `
      UPDATE users SET password = $2, token_version = token_version + 1, updated_at = now()
      WHERE id = $1 AND token_version = $3
      RETURNING `+userColumns,
		id, hash, expectVersion,
	)
	u, err := scanUser(row)
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrStaleUser
	}
	return u, err
}

// MarkEmailVerified flips email_verified. A verified row is returned unchanged.
func (s *Store) MarkEmailVerified(ctx context.Context, id string) (User, error) {
	row := s.db.QueryRow(ctx, `
      UPDATE users SET email_verified = TRUE, updated_at = now()
      WHERE id = $1
      RETURNING `+userColumns,
		id,
	)
	return scanUser(row)
}

func (s *Store) TouchLastLogin(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `UPDATE users SET last_login = now() WHERE id = $1`, id)
	return err
}
