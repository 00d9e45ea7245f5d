// ABOUTME: MusicApi is the slim pluggable boundary to Tidal/Qobuz/YouTube/local library
// ABOUTME: Pagination is opaque; ErrUnsupportedAction below marks operations a provider does not implement
package adapters

import (
	"context"
	"errors"

	"github.com/resonatefm/sessioncore/internal/model"
)

// ErrUnsupportedAction is returned when a provider does not implement an
// operation (e.g. a provider with no album-cover endpoint).
var ErrUnsupportedAction = errors.New("adapters: unsupported action")

// Page is an opaque paginated result; callers ask it for its next slice
// rather than reasoning about offsets directly.
type Page[T any] interface {
	Items() []T
	HasNext() bool
	Next(ctx context.Context) (Page[T], error)
}

// MusicApi is the provider-facing contract the playback handler and session
// layer consume; concrete Tidal/Qobuz/YouTube/library clients are out of
// core scope (spec §1) — only this surface matters here.
type MusicApi interface {
	Source() model.ApiSource

	Artist(ctx context.Context, id model.Id) (Artist, error)
	Album(ctx context.Context, id model.Id) (Album, error)
	Track(ctx context.Context, id model.Id) (model.Track, error)

	AlbumTracks(ctx context.Context, albumID model.Id) (Page[model.Track], error)
	ArtistAlbums(ctx context.Context, artistID model.Id) (Page[Album], error)
	Search(ctx context.Context, query string) (SearchResults, error)

	TrackSource(ctx context.Context, trackID model.Id, quality model.PlaybackQuality) (model.TrackSource, error)
	TrackSize(ctx context.Context, trackID model.Id, quality model.PlaybackQuality) (uint64, error)
	AlbumCoverSource(ctx context.Context, albumID model.Id) (model.TrackSource, error)
}

// Artist is the minimal artist projection the core needs.
type Artist struct {
	ID   model.Id
	Name string
}

// Album is the minimal album projection the core needs.
type Album struct {
	ID     model.Id
	Title  string
	Artist Artist
}

// SearchResults groups cross-entity search hits.
type SearchResults struct {
	Artists []Artist
	Albums  []Album
	Tracks  []model.Track
}
