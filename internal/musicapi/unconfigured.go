// ABOUTME: Placeholder adapters.MusicApi that reports itself unconfigured
// ABOUTME: Provider-client internals are out of core scope; a deployment swaps this for a real client
package musicapi

import (
	"context"
	"errors"

	"github.com/resonatefm/sessioncore/internal/adapters"
	"github.com/resonatefm/sessioncore/internal/model"
)

// ErrUnconfigured is returned by every Unconfigured method; it exists so a
// deployment can start cmd/sessiond without a real provider client wired in
// and get a clear, consistent error the moment playback actually needs one,
// rather than a nil pointer panic deep in the playback handler.
var ErrUnconfigured = errors.New("musicapi: no provider configured")

// Unconfigured satisfies adapters.MusicApi without talking to any real
// provider. It exists to keep the core's MusicApi boundary a pluggable
// contract (per spec, provider API client internals are out of scope) while
// still letting the rest of the system — routing, persistence, target
// resolution — run and be tested end to end.
type Unconfigured struct{}

func (Unconfigured) Source() model.ApiSource { return model.SourceLibrary }

func (Unconfigured) Artist(ctx context.Context, id model.Id) (adapters.Artist, error) {
	return adapters.Artist{}, ErrUnconfigured
}

func (Unconfigured) Album(ctx context.Context, id model.Id) (adapters.Album, error) {
	return adapters.Album{}, ErrUnconfigured
}

func (Unconfigured) Track(ctx context.Context, id model.Id) (model.Track, error) {
	return model.Track{}, ErrUnconfigured
}

func (Unconfigured) AlbumTracks(ctx context.Context, albumID model.Id) (adapters.Page[model.Track], error) {
	return nil, ErrUnconfigured
}

func (Unconfigured) ArtistAlbums(ctx context.Context, artistID model.Id) (adapters.Page[adapters.Album], error) {
	return nil, ErrUnconfigured
}

func (Unconfigured) Search(ctx context.Context, query string) (adapters.SearchResults, error) {
	return adapters.SearchResults{}, ErrUnconfigured
}

func (Unconfigured) TrackSource(ctx context.Context, trackID model.Id, quality model.PlaybackQuality) (model.TrackSource, error) {
	return model.TrackSource{}, ErrUnconfigured
}

func (Unconfigured) TrackSize(ctx context.Context, trackID model.Id, quality model.PlaybackQuality) (uint64, error) {
	return 0, ErrUnconfigured
}

func (Unconfigured) AlbumCoverSource(ctx context.Context, albumID model.Id) (model.TrackSource, error) {
	return model.TrackSource{}, ErrUnconfigured
}

var _ adapters.MusicApi = Unconfigured{}
