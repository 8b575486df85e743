// Package storetest provides an in-memory stand-in for store.Store with the
// same sentinel errors and ordering rules.
package storetest

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"musicplayer/internal/store"
)

type Memory struct {
	mu        sync.Mutex
	clock     time.Time
	users     map[string]store.User
	songs     map[string]store.Song
	playlists map[string]store.Playlist
	members   map[string][]store.Membership
	plays     []store.PlayLogEntry
}

func NewMemory() *Memory {
	return &Memory{
		clock:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		users:     map[string]store.User{},
		songs:     map[string]store.Song{},
		playlists: map[string]store.Playlist{},
		members:   map[string][]store.Membership{},
	}
}

// tick returns strictly increasing timestamps so ordering by time is stable.
func (m *Memory) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *Memory) CreateUser(_ context.Context, nu store.NewUser) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == nu.Username {
			return store.User{}, store.ErrDuplicateUsername
		}
		if strings.EqualFold(u.Email, nu.Email) {
			return store.User{}, store.ErrDuplicateEmail
		}
	}
	now := m.tick()
	u := store.User{
		ID:           uuid.NewString(),
		Username:     nu.Username,
		Email:        nu.Email,
		PasswordHash: nu.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *Memory) GetUserByID(_ context.Context, id string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return u, nil
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return store.User{}, store.ErrNotFound
}

func (m *Memory) GetUserByUsername(_ context.Context, username string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return store.User{}, store.ErrNotFound
}

func (m *Memory) UpdateUserProfile(_ context.Context, id, username, avatarURL string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	for _, other := range m.users {
		if other.ID != id && other.Username == username {
			return store.User{}, store.ErrDuplicateUsername
		}
	}
	u.Username = username
	u.AvatarURL = avatarURL
	u.UpdatedAt = m.tick()
	m.users[id] = u
	return u, nil
}

func (m *Memory) UpdatePassword(_ context.Context, id, hash string, expectVersion int) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.TokenVersion != expectVersion {
		return store.User{}, store.ErrStaleUser
	}
	u.PasswordHash = hash
	u.TokenVersion++
	u.UpdatedAt = m.tick()
	m.users[id] = u
	return u, nil
}

func (m *Memory) MarkEmailVerified(_ context.Context, id string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	u.EmailVerified = true
	m.users[id] = u
	return u, nil
}

func (m *Memory) TouchLastLogin(context.Context, string) error { return nil }

func (m *Memory) CreateSong(_ context.Context, in store.Song) (store.Song, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in.ID = uuid.NewString()
	in.CreatedAt = m.tick()
	m.songs[in.ID] = in
	return in, nil
}

func (m *Memory) GetSong(_ context.Context, id string) (store.Song, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.songs[id]
	if !ok {
		return store.Song{}, store.ErrNotFound
	}
	return s, nil
}

func (m *Memory) ListSongs(_ context.Context, f store.SongFilter) ([]store.Song, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []store.Song{}
	for _, s := range m.songs {
		if f.UploadedBy == "" || s.UploadedBy == f.UploadedBy {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) UpdateSong(_ context.Context, in store.Song) (store.Song, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.songs[in.ID]
	if !ok {
		return store.Song{}, store.ErrNotFound
	}
	in.UploadedBy = cur.UploadedBy
	in.CreatedAt = cur.CreatedAt
	m.songs[in.ID] = in
	return in, nil
}

func (m *Memory) DeleteSong(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.songs[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.songs, id)
	for pid, rows := range m.members {
		kept := rows[:0]
		for _, r := range rows {
			if r.SongID != id {
				kept = append(kept, r)
			}
		}
		m.members[pid] = kept
	}
	plays := m.plays[:0]
	for _, p := range m.plays {
		if p.SongID != id {
			plays = append(plays, p)
		}
	}
	m.plays = plays
	return nil
}

func (m *Memory) CreatePlaylist(_ context.Context, in store.Playlist) (store.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in.ID = uuid.NewString()
	in.CreatedAt = m.tick()
	in.UpdatedAt = in.CreatedAt
	m.playlists[in.ID] = in
	return in, nil
}

func (m *Memory) GetPlaylist(_ context.Context, id string) (store.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.playlists[id]
	if !ok {
		return store.Playlist{}, store.ErrNotFound
	}
	return p, nil
}

func (m *Memory) ListVisiblePlaylists(_ context.Context, callerID string) ([]store.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []store.Playlist{}
	for _, p := range m.playlists {
		if p.IsPublic || (callerID != "" && p.OwnerID == callerID) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) UpdatePlaylist(_ context.Context, in store.Playlist) (store.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.playlists[in.ID]
	if !ok {
		return store.Playlist{}, store.ErrNotFound
	}
	cur.Title = in.Title
	cur.Description = in.Description
	cur.IsPublic = in.IsPublic
	cur.UpdatedAt = m.tick()
	m.playlists[in.ID] = cur
	return cur, nil
}

func (m *Memory) DeletePlaylist(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.playlists[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.playlists, id)
	delete(m.members, id)
	return nil
}

// openSlot mirrors the Postgres shift: rows at or after order move up by one.
func (m *Memory) openSlot(playlistID string, order int, excludeSongID string) {
	rows := m.members[playlistID]
	taken := false
	for _, r := range rows {
		if r.Order == order && r.SongID != excludeSongID {
			taken = true
			break
		}
	}
	if !taken {
		return
	}
	for i := range rows {
		if rows[i].Order >= order && rows[i].SongID != excludeSongID {
			rows[i].Order++
		}
	}
}

func (m *Memory) AddSong(_ context.Context, playlistID, songID string, order *int) (store.Membership, error) {
	if order != nil && (*order < 1 || *order > store.MaxOrder) {
		return store.Membership{}, store.ErrOrderOutOfRange
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.playlists[playlistID]; !ok {
		return store.Membership{}, store.ErrNotFound
	}
	if _, ok := m.songs[songID]; !ok {
		return store.Membership{}, store.ErrSongNotFound
	}
	rows := m.members[playlistID]
	for _, r := range rows {
		if r.SongID == songID {
			return store.Membership{}, store.ErrDuplicateMembership
		}
	}

	pos := 1
	if order != nil {
		pos = *order
		m.openSlot(playlistID, pos, songID)
	} else {
		for _, r := range rows {
			if r.Order >= pos {
				pos = r.Order + 1
			}
		}
		if pos > math.MaxInt32 {
			return store.Membership{}, store.ErrOrderOutOfRange
		}
	}

	row := store.Membership{
		ID:         uuid.NewString(),
		PlaylistID: playlistID,
		SongID:     songID,
		Order:      pos,
		AddedAt:    m.tick(),
	}
	m.members[playlistID] = append(m.members[playlistID], row)
	return row, nil
}

func (m *Memory) MoveSong(_ context.Context, playlistID, songID string, order int) (store.Membership, error) {
	if order < 1 || order > store.MaxOrder {
		return store.Membership{}, store.ErrOrderOutOfRange
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.playlists[playlistID]; !ok {
		return store.Membership{}, store.ErrNotFound
	}
	rows := m.members[playlistID]
	idx := -1
	for i, r := range rows {
		if r.SongID == songID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return store.Membership{}, store.ErrNotFound
	}
	m.openSlot(playlistID, order, songID)
	rows[idx].Order = order
	return rows[idx], nil
}

func (m *Memory) RemoveSong(_ context.Context, playlistID, songID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.members[playlistID]
	for i, r := range rows {
		if r.SongID == songID {
			m.members[playlistID] = append(rows[:i], rows[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *Memory) ListPlaylistSongs(_ context.Context, playlistID string) ([]store.PlaylistSong, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []store.PlaylistSong{}
	for _, r := range m.members[playlistID] {
		out = append(out, store.PlaylistSong{Membership: r, Song: m.songs[r.SongID]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].AddedAt.Before(out[j].AddedAt)
	})
	return out, nil
}

func (m *Memory) CreatePlayLog(_ context.Context, userID, songID string) (store.PlayLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.songs[songID]; !ok {
		return store.PlayLogEntry{}, store.ErrSongNotFound
	}
	e := store.PlayLogEntry{
		ID:       uuid.NewString(),
		UserID:   userID,
		SongID:   songID,
		PlayedAt: m.tick(),
	}
	m.plays = append(m.plays, e)
	return e, nil
}

func (m *Memory) ListPlayLogs(_ context.Context, userID string, limit int) ([]store.PlayLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []store.PlayLogEntry{}
	for i := len(m.plays) - 1; i >= 0 && len(out) < limit; i-- {
		if e := m.plays[i]; e.UserID == userID {
			e.Song = m.songs[e.SongID]
			out = append(out, e)
		}
	}
	return out, nil
}
