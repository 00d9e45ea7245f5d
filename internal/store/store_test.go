package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/resonatefm/sessioncore/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(DefaultConfig(filepath.Join(dir, "test.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func trackFixture(n uint64) model.PlaylistTrack {
	return model.PlaylistTrack{ID: model.NewNumberId(model.SourceLibrary, n), Source: model.SourceLibrary}
}

func TestCreateAndGetSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, model.CreateSession{
		Name:           "Kitchen",
		PlaylistTracks: []model.PlaylistTrack{trackFixture(1), trackFixture(2)},
	})
	require.NoError(t, err)
	require.Equal(t, "Kitchen", sess.Name)
	require.Len(t, sess.Playlist.Tracks, 2)
	require.False(t, sess.Active)
	require.Nil(t, sess.Position)

	loaded, err := s.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, sess.Name, loaded.Name)
	require.Len(t, loaded.Playlist.Tracks, 2)
}

func TestUpdateSessionRejectsPositionOutOfBounds(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, model.CreateSession{
		Name:           "Den",
		PlaylistTracks: []model.PlaylistTrack{trackFixture(1)},
	})
	require.NoError(t, err)

	pos := uint16(5)
	_, err = s.UpdateSession(ctx, model.UpdateSession{SessionID: sess.ID, Position: &pos})
	require.Error(t, err)
	var invalid *ErrInvalidRequest
	require.ErrorAs(t, err, &invalid)
}

func TestUpdateSessionShrinkBelowPositionRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, model.CreateSession{
		Name:           "Loft",
		PlaylistTracks: []model.PlaylistTrack{trackFixture(1), trackFixture(2), trackFixture(3)},
	})
	require.NoError(t, err)

	pos := uint16(2)
	sess, err = s.UpdateSession(ctx, model.UpdateSession{SessionID: sess.ID, Position: &pos})
	require.NoError(t, err)
	require.NotNil(t, sess.Position)

	_, err = s.UpdateSession(ctx, model.UpdateSession{
		SessionID: sess.ID,
		Playlist:  &model.UpdateSessionPlaylist{Tracks: []model.PlaylistTrack{trackFixture(1)}},
	})
	require.Error(t, err)
	var invalid *ErrInvalidRequest
	require.ErrorAs(t, err, &invalid)
}

func TestUpdateSessionNoPlaylistRejectsPositionWhenNoneExists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, model.CreateSession{Name: "Empty"})
	require.NoError(t, err)

	pos := uint16(0)
	_, err = s.UpdateSession(ctx, model.UpdateSession{SessionID: sess.ID, Position: &pos})
	require.Error(t, err)
}

func TestUpdateSessionReplacesPlaylistAtomically(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, model.CreateSession{
		Name:           "Studio",
		PlaylistTracks: []model.PlaylistTrack{trackFixture(1)},
	})
	require.NoError(t, err)

	updated, err := s.UpdateSession(ctx, model.UpdateSession{
		SessionID: sess.ID,
		Playlist: &model.UpdateSessionPlaylist{
			Tracks: []model.PlaylistTrack{trackFixture(5), trackFixture(6), trackFixture(7)},
		},
	})
	require.NoError(t, err)
	require.Len(t, updated.Playlist.Tracks, 3)
	require.True(t, updated.Playlist.Tracks[0].ID.Equal(model.NewNumberId(model.SourceLibrary, 5)))
}

func TestDeleteSessionIdempotenceLaw(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, model.CreateSession{Name: "Gone", PlaylistTracks: []model.PlaylistTrack{trackFixture(1)}})
	require.NoError(t, err)

	require.NoError(t, s.DeleteSession(ctx, sess.ID))

	err = s.DeleteSession(ctx, sess.ID)
	require.Error(t, err)
	var invalid *ErrInvalidRequest
	require.ErrorAs(t, err, &invalid)
}

func TestDeleteSessionCascadesPlaylist(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, model.CreateSession{Name: "Cascade", PlaylistTracks: []model.PlaylistTrack{trackFixture(1)}})
	require.NoError(t, err)

	require.NoError(t, s.DeleteSession(ctx, sess.ID))

	_, err = s.GetSession(ctx, sess.ID)
	require.Error(t, err)
}

func TestRegisterConnectionIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	req := model.RegisterConnection{
		ConnectionID: "conn-1",
		Name:         "Living Room Host",
		Players:      []model.Player{{ID: "p1", Name: "Speaker", AudioOutputID: "out-1"}},
	}

	first, err := s.RegisterConnection(ctx, req)
	require.NoError(t, err)

	second, err := s.RegisterConnection(ctx, req)
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, first.Players, second.Players)
}

func TestRegisterConnectionCascadeDeletesPlayers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.RegisterConnection(ctx, model.RegisterConnection{
		ConnectionID: "conn-2",
		Name:         "Office",
		Players:      []model.Player{{ID: "p2", Name: "Desk", AudioOutputID: "out-2"}},
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteConnection(ctx, "conn-2"))

	players, err := s.getPlayersByConnection(ctx, "conn-2")
	require.NoError(t, err)
	require.Empty(t, players)
}
