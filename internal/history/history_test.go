package history

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"musicplayer/internal/access"
	"musicplayer/internal/events"
	"musicplayer/internal/store"
	"musicplayer/internal/store/storetest"
)

func TestRecordAndList(t *testing.T) {
	mem := storetest.NewMemory()
	rec := &events.Recorder{}
	svc := NewService(mem, rec)
	ctx := context.Background()

	a, err := mem.CreateSong(ctx, store.Song{Title: "a", Artist: "x", FileURL: "u", Duration: 1, UploadedBy: "alice"})
	require.NoError(t, err)
	b, err := mem.CreateSong(ctx, store.Song{Title: "b", Artist: "x", FileURL: "u", Duration: 1, UploadedBy: "alice"})
	require.NoError(t, err)

	alice := access.Caller{UserID: "alice"}
	bob := access.Caller{UserID: "bob"}

	for _, id := range []string{a.ID, b.ID, a.ID} {
		_, err := svc.RecordPlay(ctx, alice, id)
		require.NoError(t, err)
	}
	_, err = svc.RecordPlay(ctx, bob, b.ID)
	require.NoError(t, err)

	got, err := svc.ListHistory(ctx, alice, 0)
	require.NoError(t, err)
	require.Len(t, got, 3, "replays are kept")
	assert.Equal(t, a.ID, got[0].SongID)
	assert.Equal(t, b.ID, got[1].SongID)
	assert.Equal(t, a.ID, got[2].SongID)
	assert.True(t, got[0].PlayedAt.After(got[1].PlayedAt))
	assert.Equal(t, "a", got[0].Song.Title)

	got, err = svc.ListHistory(ctx, bob, 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = svc.ListHistory(ctx, alice, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	assert.Len(t, rec.Events, 4)
}

func TestRecordPlayErrors(t *testing.T) {
	svc := NewService(storetest.NewMemory(), nil)
	ctx := context.Background()

	_, err := svc.RecordPlay(ctx, access.Caller{}, "s1")
	assert.ErrorIs(t, err, access.ErrUnauthenticated)

	_, err = svc.RecordPlay(ctx, access.Caller{UserID: "alice"}, "missing")
	assert.ErrorIs(t, err, ErrSongNotFound)

	_, err = svc.ListHistory(ctx, access.Caller{}, 10)
	assert.ErrorIs(t, err, access.ErrUnauthenticated)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreatePlayLog(ctx context.Context, userID, songID string) (store.PlayLogEntry, error) {
	args := m.Called(ctx, userID, songID)
	return args.Get(0).(store.PlayLogEntry), args.Error(1)
}

func (m *mockStore) ListPlayLogs(ctx context.Context, userID string, limit int) ([]store.PlayLogEntry, error) {
	args := m.Called(ctx, userID, limit)
	return args.Get(0).([]store.PlayLogEntry), args.Error(1)
}

func TestListHistoryClampsLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultLimit},
		{-5, DefaultLimit},
		{10, 10},
		{MaxLimit + 1, MaxLimit},
	}
	for _, tt := range tests {
		st := &mockStore{}
		st.On("ListPlayLogs", mock.Anything, "alice", tt.want).Return([]store.PlayLogEntry{}, nil).Once()

		_, err := NewService(st, nil).ListHistory(context.Background(), access.Caller{UserID: "alice"}, tt.in)
		require.NoError(t, err)
		st.AssertExpectations(t)
	}
}
