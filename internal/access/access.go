// Package access holds the per-resource authorization rules. Handlers resolve
// the Caller once and call a guard before touching any data.
//
//	Resource      Read                          Write/Delete
//	Song          authenticated (or anyone)     uploader
//	Playlist      owner, anyone when public     owner
//	PlayLogEntry  owner                         create by owner only
package access

import (
	"context"

	"musicplayer/internal/apperr"
	"musicplayer/internal/store"
)

var (
	ErrUnauthenticated = apperr.Authentication("not_authenticated", "authentication credentials were not provided")
	ErrNotOwner        = apperr.Authorization("permission_denied", "you do not have permission to perform this action")
	// ErrNotVisible hides a private playlist from everyone but its owner.
	ErrNotVisible = apperr.NotFound("not_found", "not found")
)

// Caller is the identity a request acts as. The zero value is anonymous.
type Caller struct {
	UserID string
}

func (c Caller) Authenticated() bool { return c.UserID != "" }

type callerKey struct{}

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom returns the anonymous Caller when none was stored.
func CallerFrom(ctx context.Context) Caller {
	c, _ := ctx.Value(callerKey{}).(Caller)
	return c
}

func RequireAuthenticated(c Caller) error {
	if !c.Authenticated() {
		return ErrUnauthenticated
	}
	return nil
}

// CanReadSong lets anonymous callers through only when allowAnonymous is set.
func CanReadSong(c Caller, allowAnonymous bool) error {
	if allowAnonymous {
		return nil
	}
	return RequireAuthenticated(c)
}

func CanWriteSong(c Caller, s store.Song) error {
	if err := RequireAuthenticated(c); err != nil {
		return err
	}
	if s.UploadedBy != c.UserID {
		return ErrNotOwner
	}
	return nil
}

func CanReadPlaylist(c Caller, p store.Playlist) error {
	if p.IsPublic || (c.Authenticated() && p.OwnerID == c.UserID) {
		return nil
	}
	return ErrNotVisible
}

// CanWritePlaylist rejects non-owners. A private playlist stays invisible to
// them, so they get ErrNotVisible rather than learning it exists.
func CanWritePlaylist(c Caller, p store.Playlist) error {
	if err := RequireAuthenticated(c); err != nil {
		return err
	}
	if p.OwnerID == c.UserID {
		return nil
	}
	if !p.IsPublic {
		return ErrNotVisible
	}
	return ErrNotOwner
}

// CanReadHistory limits play history to the user it belongs to.
func CanReadHistory(c Caller, ownerID string) error {
	if err := RequireAuthenticated(c); err != nil {
		return err
	}
	if ownerID != c.UserID {
		return ErrNotOwner
	}
	return nil
}
