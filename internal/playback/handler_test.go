package playback

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resonatefm/sessioncore/internal/adapters"
	"github.com/resonatefm/sessioncore/internal/decode"
	"github.com/resonatefm/sessioncore/internal/model"
	"github.com/resonatefm/sessioncore/internal/target"
)

type fakeActivePlayers struct{ players []model.Player }

func (f fakeActivePlayers) ActivePlayers(context.Context) []model.Player { return f.players }

type fakePersistence struct{ zone model.AudioZone }

func (f *fakePersistence) GetAudioZone(context.Context, uint64) (model.AudioZone, error) {
	return f.zone, nil
}
func (f *fakePersistence) CreateSession(context.Context, model.CreateSession) (model.Session, error) {
	panic("unused")
}
func (f *fakePersistence) UpdateSession(context.Context, model.UpdateSession) (model.Session, error) {
	panic("unused")
}
func (f *fakePersistence) DeleteSession(context.Context, uint64) error { panic("unused") }
func (f *fakePersistence) GetSession(context.Context, uint64) (model.Session, error) {
	panic("unused")
}
func (f *fakePersistence) GetSessions(context.Context) ([]model.Session, error) { panic("unused") }
func (f *fakePersistence) GetSessionPlaylist(context.Context, uint64) (model.SessionPlaylist, error) {
	panic("unused")
}
func (f *fakePersistence) GetSessionActivePlayers(context.Context, uint64) ([]model.Player, error) {
	panic("unused")
}
func (f *fakePersistence) RegisterConnection(context.Context, model.RegisterConnection) (model.Connection, error) {
	panic("unused")
}
func (f *fakePersistence) GetConnection(context.Context, string) (model.Connection, error) {
	panic("unused")
}
func (f *fakePersistence) GetConnections(context.Context) ([]model.Connection, error) {
	panic("unused")
}
func (f *fakePersistence) DeleteConnection(context.Context, string) error { panic("unused") }
func (f *fakePersistence) GetAudioZones(context.Context) ([]model.AudioZone, error) {
	panic("unused")
}

type fakeMusicAPI struct{}

func (fakeMusicAPI) Source() model.ApiSource                                    { return model.SourceLibrary }
func (fakeMusicAPI) Artist(context.Context, model.Id) (adapters.Artist, error)  { panic("unused") }
func (fakeMusicAPI) Album(context.Context, model.Id) (adapters.Album, error)    { panic("unused") }
func (fakeMusicAPI) Track(context.Context, model.Id) (model.Track, error)      { panic("unused") }
func (fakeMusicAPI) AlbumTracks(context.Context, model.Id) (adapters.Page[model.Track], error) {
	panic("unused")
}
func (fakeMusicAPI) ArtistAlbums(context.Context, model.Id) (adapters.Page[adapters.Album], error) {
	panic("unused")
}
func (fakeMusicAPI) Search(context.Context, string) (adapters.SearchResults, error) {
	panic("unused")
}
func (fakeMusicAPI) TrackSource(context.Context, model.Id, model.PlaybackQuality) (model.TrackSource, error) {
	panic("unused")
}
func (fakeMusicAPI) TrackSize(context.Context, model.Id, model.PlaybackQuality) (uint64, error) {
	panic("unused")
}
func (fakeMusicAPI) AlbumCoverSource(context.Context, model.Id) (model.TrackSource, error) {
	panic("unused")
}

type fakeRunner struct {
	calls    int
	failN    int // fail this many times with ErrRetryRequested before succeeding
	lastErr  error
	lastSeek float64
}

func (r *fakeRunner) RunTrack(ctx context.Context, sessionID uint64, track model.Track, seekSeconds float64, quality model.PlaybackQuality, handles []target.Handle, cancel *decode.CancellationToken) error {
	r.calls++
	r.lastSeek = seekSeconds
	if r.lastErr != nil {
		return r.lastErr
	}
	if r.calls <= r.failN {
		return ErrRetryRequested
	}
	return nil
}

func newTestHandler(t *testing.T, runner DecodeRunner) (*Handler, []model.Player) {
	t.Helper()
	players := []model.Player{{ID: "p1", AudioOutputID: "out-1"}}
	persistence := &fakePersistence{zone: model.AudioZone{ID: 1, Players: players}}
	active := fakeActivePlayers{players: players}
	h := NewHandler(fakeMusicAPI{}, persistence, active, runner, nil)
	h.retry = RetryOptions{MaxRetryCount: 2, RetryDelay: 0}
	return h, players
}

func sampleTrack() model.Track {
	return model.Track{ID: model.NewNumberId(model.SourceLibrary, 1), Format: model.FormatMP3}
}

func TestPlayTracksResolvesTargetAndStartsDecode(t *testing.T) {
	runner := &fakeRunner{}
	h, _ := newTestHandler(t, runner)

	err := h.PlayTracks(context.Background(), 7, model.NewAudioZoneTarget(1), []model.Track{sampleTrack()}, 0, 0, 1, model.PlaybackQuality{Format: model.FormatSource})
	require.NoError(t, err)
	assert.Equal(t, 1, runner.calls)
}

func TestPlayTracksEmptyIsInvalidSource(t *testing.T) {
	h, _ := newTestHandler(t, &fakeRunner{})
	err := h.PlayTracks(context.Background(), 7, model.NewAudioZoneTarget(1), nil, 0, 0, 1, model.PlaybackQuality{})
	assert.ErrorIs(t, err, ErrInvalidSource)
}

func TestPlayTracksNoOwnedPlayersIsNoAudioOutputs(t *testing.T) {
	persistence := &fakePersistence{zone: model.AudioZone{ID: 1, Players: []model.Player{{ID: "other", AudioOutputID: "out-9"}}}}
	h := NewHandler(fakeMusicAPI{}, persistence, fakeActivePlayers{}, &fakeRunner{}, nil)

	err := h.PlayTracks(context.Background(), 7, model.NewAudioZoneTarget(1), []model.Track{sampleTrack()}, 0, 0, 1, model.PlaybackQuality{})
	assert.ErrorIs(t, err, ErrNoAudioOutputs)
}

func TestStopCancelsAndMarksNotPlaying(t *testing.T) {
	runner := &fakeRunner{}
	h, _ := newTestHandler(t, runner)
	require.NoError(t, h.PlayTracks(context.Background(), 7, model.NewAudioZoneTarget(1), []model.Track{sampleTrack()}, 0, 0, 1, model.PlaybackQuality{}))

	require.NoError(t, h.Stop(context.Background(), 7))

	p, ok := h.playbackFor(7)
	require.True(t, ok)
	assert.False(t, p.Playing)
}

func TestStopUnknownSessionIsInvalidState(t *testing.T) {
	h, _ := newTestHandler(t, &fakeRunner{})
	assert.ErrorIs(t, h.Stop(context.Background(), 999), ErrInvalidState)
}

func TestNextTrackAdvancesAndRestarts(t *testing.T) {
	runner := &fakeRunner{}
	h, _ := newTestHandler(t, runner)
	tracks := []model.Track{sampleTrack(), sampleTrack()}
	require.NoError(t, h.PlayTracks(context.Background(), 7, model.NewAudioZoneTarget(1), tracks, 0, 0, 1, model.PlaybackQuality{}))

	require.NoError(t, h.NextTrack(context.Background(), 7, 0))

	p, _ := h.playbackFor(7)
	assert.Equal(t, 1, p.Position)
	assert.Equal(t, 2, runner.calls)
}

func TestNextTrackAtEndIsInvalidState(t *testing.T) {
	runner := &fakeRunner{}
	h, _ := newTestHandler(t, runner)
	require.NoError(t, h.PlayTracks(context.Background(), 7, model.NewAudioZoneTarget(1), []model.Track{sampleTrack()}, 0, 0, 1, model.PlaybackQuality{}))

	assert.ErrorIs(t, h.NextTrack(context.Background(), 7, 0), ErrInvalidState)
}

func TestUpdatePlaybackPositionChangeRestartsDecode(t *testing.T) {
	runner := &fakeRunner{}
	h, _ := newTestHandler(t, runner)
	tracks := []model.Track{sampleTrack(), sampleTrack()}
	require.NoError(t, h.PlayTracks(context.Background(), 7, model.NewAudioZoneTarget(1), tracks, 0, 0, 1, model.PlaybackQuality{}))
	require.Equal(t, 1, runner.calls)

	newPos := 1
	err := h.UpdatePlayback(context.Background(), UpdatePlaybackRequest{SessionID: 7, Position: &newPos})
	require.NoError(t, err)
	assert.Equal(t, 2, runner.calls)
}

func TestUpdatePlaybackSeekOnlyRestartsDecodeAtNewSeek(t *testing.T) {
	runner := &fakeRunner{}
	h, _ := newTestHandler(t, runner)
	require.NoError(t, h.PlayTracks(context.Background(), 7, model.NewAudioZoneTarget(1), []model.Track{sampleTrack()}, 0, 0, 1, model.PlaybackQuality{}))
	require.Equal(t, 1, runner.calls)

	seek := 30.0
	err := h.UpdatePlayback(context.Background(), UpdatePlaybackRequest{SessionID: 7, Seek: &seek})
	require.NoError(t, err)
	assert.Equal(t, 2, runner.calls)
	assert.Equal(t, 30.0, runner.lastSeek)

	p, _ := h.playbackFor(7)
	assert.Equal(t, 30.0, p.Seek)
}

func TestUpdatePlaybackStopDoesNotRestart(t *testing.T) {
	runner := &fakeRunner{}
	h, _ := newTestHandler(t, runner)
	require.NoError(t, h.PlayTracks(context.Background(), 7, model.NewAudioZoneTarget(1), []model.Track{sampleTrack()}, 0, 0, 1, model.PlaybackQuality{}))

	stop := true
	err := h.UpdatePlayback(context.Background(), UpdatePlaybackRequest{SessionID: 7, Stop: &stop})
	require.NoError(t, err)
	assert.Equal(t, 1, runner.calls)

	p, _ := h.playbackFor(7)
	assert.False(t, p.Playing)
}

func TestUpdatePlaybackUnknownSessionIsInvalidState(t *testing.T) {
	h, _ := newTestHandler(t, &fakeRunner{})
	play := true
	err := h.UpdatePlayback(context.Background(), UpdatePlaybackRequest{SessionID: 404, Play: &play})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestPlayerStatusReportsPositionAndTracks(t *testing.T) {
	h, _ := newTestHandler(t, &fakeRunner{})
	tracks := []model.Track{sampleTrack(), sampleTrack()}
	require.NoError(t, h.PlayTracks(context.Background(), 7, model.NewAudioZoneTarget(1), tracks, 1, 2.5, 1, model.PlaybackQuality{}))

	status := h.PlayerStatus()
	require.Len(t, status.Playbacks, 1)
	assert.Equal(t, uint64(7), status.Playbacks[0].SessionID)
	assert.Equal(t, 1, status.Playbacks[0].Position)
	assert.Equal(t, 2.5, status.Playbacks[0].Seek)
	assert.Len(t, status.Playbacks[0].Tracks, 2)
}

func TestRetryTransientThenSucceeds(t *testing.T) {
	runner := &fakeRunner{failN: 1}
	h, _ := newTestHandler(t, runner)

	err := h.PlayTracks(context.Background(), 7, model.NewAudioZoneTarget(1), []model.Track{sampleTrack()}, 0, 0, 1, model.PlaybackQuality{})
	require.NoError(t, err)
	assert.Equal(t, 2, runner.calls)
}

func TestRetryExhaustsAndReturnsLastError(t *testing.T) {
	runner := &fakeRunner{failN: 10}
	h, _ := newTestHandler(t, runner)

	err := h.PlayTracks(context.Background(), 7, model.NewAudioZoneTarget(1), []model.Track{sampleTrack()}, 0, 0, 1, model.PlaybackQuality{})
	assert.ErrorIs(t, err, ErrRetryRequested)
	assert.Equal(t, h.retry.MaxRetryCount+1, runner.calls)
}

func TestFatalErrorIsNeverRetried(t *testing.T) {
	runner := &fakeRunner{lastErr: ErrInvalidState}
	h, _ := newTestHandler(t, runner)

	err := h.PlayTracks(context.Background(), 7, model.NewAudioZoneTarget(1), []model.Track{sampleTrack()}, 0, 0, 1, model.PlaybackQuality{})
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, 1, runner.calls)
}

func TestIsTransientClassification(t *testing.T) {
	assert.True(t, isTransient(ErrRetryRequested))
	assert.False(t, isTransient(ErrCancelled))
	assert.False(t, isTransient(ErrInvalidState))
	assert.False(t, isTransient(ErrInvalidSource))
	assert.False(t, isTransient(ErrNoAudioOutputs))
	assert.False(t, isTransient(nil))
	assert.False(t, isTransient(errors.New("some unrelated error")))
}
