package playlist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"musicplayer/internal/access"
	"musicplayer/internal/apperr"
	"musicplayer/internal/events"
	"musicplayer/internal/store"
	"musicplayer/internal/store/storetest"
)

var (
	alice = access.Caller{UserID: "alice"}
	bob   = access.Caller{UserID: "bob"}
	anon  = access.Caller{}
)

type fixture struct {
	svc    *Service
	mem    *storetest.Memory
	events *events.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := storetest.NewMemory()
	rec := &events.Recorder{}
	return &fixture{svc: NewService(mem, rec), mem: mem, events: rec}
}

func (f *fixture) song(t *testing.T, title string) store.Song {
	t.Helper()
	s, err := f.mem.CreateSong(context.Background(), store.Song{Title: title, Artist: "A", FileURL: "https://cdn/" + title, Duration: 100, UploadedBy: "alice"})
	require.NoError(t, err)
	return s
}

func (f *fixture) playlist(t *testing.T, caller access.Caller, title string, public bool) store.Playlist {
	t.Helper()
	p, err := f.svc.Create(context.Background(), caller, Input{Title: title, IsPublic: public})
	require.NoError(t, err)
	return p
}

func songIDs(rows []store.PlaylistSong) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.SongID)
	}
	return out
}

func TestMixScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	x, y := f.song(t, "X"), f.song(t, "Y")
	mix := f.playlist(t, alice, "Mix", false)

	_, err := f.svc.AddSong(ctx, alice, mix.ID, x.ID, nil)
	require.NoError(t, err)
	_, err = f.svc.AddSong(ctx, alice, mix.ID, y.ID, nil)
	require.NoError(t, err)

	rows, err := f.svc.ListOrdered(ctx, alice, mix.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, x.ID, rows[0].SongID)
	assert.Equal(t, 1, rows[0].Order)
	assert.Equal(t, y.ID, rows[1].SongID)
	assert.Equal(t, 2, rows[1].Order)
	assert.Equal(t, "X", rows[0].Song.Title)
}

func TestAddThenRemoveRestoresMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.song(t, "a"), f.song(t, "b")
	p := f.playlist(t, alice, "p", false)
	_, err := f.svc.AddSong(ctx, alice, p.ID, a.ID, nil)
	require.NoError(t, err)

	before, err := f.svc.ListOrdered(ctx, alice, p.ID)
	require.NoError(t, err)

	_, err = f.svc.AddSong(ctx, alice, p.ID, b.ID, nil)
	require.NoError(t, err)
	require.NoError(t, f.svc.RemoveSong(ctx, alice, p.ID, b.ID))

	after, err := f.svc.ListOrdered(ctx, alice, p.ID)
	require.NoError(t, err)
	assert.Equal(t, len(before), len(after))
	assert.NotContains(t, songIDs(after), b.ID)

	err = f.svc.RemoveSong(ctx, alice, p.ID, b.ID)
	assert.ErrorIs(t, err, ErrMembershipNotFound)
	assert.Equal(t, 404, apperr.HTTPStatus(err))
}

func TestDuplicateAddIsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.song(t, "s")
	p := f.playlist(t, alice, "p", false)

	_, err := f.svc.AddSong(ctx, alice, p.ID, s.ID, nil)
	require.NoError(t, err)
	_, err = f.svc.AddSong(ctx, alice, p.ID, s.ID, nil)
	assert.ErrorIs(t, err, ErrDuplicateMembership)
	assert.Equal(t, 400, apperr.HTTPStatus(err))
}

func TestAppendSortsLastAfterGaps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b, c := f.song(t, "a"), f.song(t, "b"), f.song(t, "c")
	p := f.playlist(t, alice, "p", false)

	ten := 10
	_, err := f.svc.AddSong(ctx, alice, p.ID, a.ID, &ten)
	require.NoError(t, err)
	_, err = f.svc.AddSong(ctx, alice, p.ID, b.ID, nil)
	require.NoError(t, err)
	require.NoError(t, f.svc.RemoveSong(ctx, alice, p.ID, a.ID))
	m, err := f.svc.AddSong(ctx, alice, p.ID, c.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 12, m.Order, "removal leaves gaps; append still goes past max")

	rows, err := f.svc.ListOrdered(ctx, alice, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID, c.ID}, songIDs(rows))
}

func TestInsertAtOccupiedOrderShifts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b, c := f.song(t, "a"), f.song(t, "b"), f.song(t, "c")
	p := f.playlist(t, alice, "p", false)

	for _, s := range []store.Song{a, b} {
		_, err := f.svc.AddSong(ctx, alice, p.ID, s.ID, nil)
		require.NoError(t, err)
	}
	one := 1
	_, err := f.svc.AddSong(ctx, alice, p.ID, c.ID, &one)
	require.NoError(t, err)

	rows, err := f.svc.ListOrdered(ctx, alice, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID, a.ID, b.ID}, songIDs(rows))

	_, err = f.svc.MoveSong(ctx, alice, p.ID, b.ID, 1)
	require.NoError(t, err)
	rows, err = f.svc.ListOrdered(ctx, alice, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID, c.ID, a.ID}, songIDs(rows))

	_, err = f.svc.MoveSong(ctx, alice, p.ID, b.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidOrder)
	zero := 0
	_, err = f.svc.AddSong(ctx, alice, p.ID, f.song(t, "d").ID, &zero)
	assert.ErrorIs(t, err, ErrInvalidOrder)
	huge := 3_000_000_000
	_, err = f.svc.AddSong(ctx, alice, p.ID, f.song(t, "e").ID, &huge)
	assert.ErrorIs(t, err, ErrInvalidOrder)
	_, err = f.svc.MoveSong(ctx, alice, p.ID, b.ID, store.MaxOrder+1)
	assert.ErrorIs(t, err, ErrInvalidOrder)

	_, err = f.svc.MoveSong(ctx, alice, p.ID, "missing", 2)
	assert.ErrorIs(t, err, ErrMembershipNotFound)
}

func TestOwnershipCheckedBeforeExistence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.song(t, "s")
	private := f.playlist(t, alice, "private", false)
	public := f.playlist(t, alice, "public", true)
	_, err := f.svc.AddSong(ctx, alice, public.ID, s.ID, nil)
	require.NoError(t, err)

	tests := []struct {
		name     string
		playlist string
		song     string
		want     error
	}{
		{"PrivateMissingSong", private.ID, "missing", access.ErrNotVisible},
		{"PrivateRealSong", private.ID, s.ID, access.ErrNotVisible},
		{"PublicMissingSong", public.ID, "missing", access.ErrNotOwner},
		{"PublicDuplicate", public.ID, s.ID, access.ErrNotOwner},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AddSong(ctx, bob, tt.playlist, tt.song, nil)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, f.svc.RemoveSong(ctx, bob, tt.playlist, tt.song), tt.want)
		})
	}

	_, err = f.svc.AddSong(ctx, anon, public.ID, s.ID, nil)
	assert.ErrorIs(t, err, access.ErrUnauthenticated)

	_, err = f.svc.AddSong(ctx, alice, private.ID, "missing", nil)
	assert.ErrorIs(t, err, ErrSongNotFound)
}

func TestVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	private := f.playlist(t, alice, "private", false)
	public := f.playlist(t, alice, "public", true)
	bobs := f.playlist(t, bob, "bobs", false)

	list, err := f.svc.List(ctx, bob)
	require.NoError(t, err)
	ids := map[string]bool{}
	for _, p := range list {
		ids[p.ID] = true
	}
	assert.False(t, ids[private.ID])
	assert.True(t, ids[public.ID])
	assert.True(t, ids[bobs.ID])
	assert.Len(t, list, 2)

	list, err = f.svc.List(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, list, 2, "own public playlist appears once")

	_, err = f.svc.Get(ctx, bob, private.ID)
	assert.ErrorIs(t, err, access.ErrNotVisible)
	_, err = f.svc.Get(ctx, anon, public.ID)
	assert.NoError(t, err)
	_, err = f.svc.Get(ctx, alice, "missing")
	assert.ErrorIs(t, err, ErrPlaylistNotFound)
}

func TestUpdateAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.playlist(t, alice, "p", false)

	public := true
	title := "Renamed"
	got, err := f.svc.Update(ctx, alice, p.ID, Patch{Title: &title, IsPublic: &public})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.True(t, got.IsPublic)

	_, err = f.svc.Update(ctx, bob, p.ID, Patch{Title: &title})
	assert.ErrorIs(t, err, access.ErrNotOwner)

	empty := " "
	_, err = f.svc.Update(ctx, alice, p.ID, Patch{Title: &empty})
	assert.ErrorIs(t, err, ErrInvalidPlaylist)

	assert.ErrorIs(t, f.svc.Delete(ctx, bob, p.ID), access.ErrNotOwner)
	require.NoError(t, f.svc.Delete(ctx, alice, p.ID))
	_, err = f.svc.Get(ctx, alice, p.ID)
	assert.ErrorIs(t, err, ErrPlaylistNotFound)

	assert.Equal(t, []string{events.PlaylistCreated, events.PlaylistUpdated, events.PlaylistDeleted}, f.events.Types())
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), alice, Input{Title: ""})
	assert.ErrorIs(t, err, ErrInvalidPlaylist)
	_, err = f.svc.Create(context.Background(), anon, Input{Title: "x"})
	assert.ErrorIs(t, err, access.ErrUnauthenticated)
}
