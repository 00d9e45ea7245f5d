// ABOUTME: External-content entities the decoder pipeline needs
// ABOUTME: Only the fields required to drive playback are retained
package model

// Track retains only the fields the decoder pipeline needs to select and
// drive a codec: identity, raw size, and format parameters.
type Track struct {
	ID         Id
	Source     ApiSource
	Bytes      uint64
	Format     PlaybackQualityFormat
	SampleRate uint32
	BitDepth   uint8
	Channels   uint8
}

// TrackSourceKind tags which variant a TrackSource carries.
type TrackSourceKind string

const (
	TrackSourceLocalFile TrackSourceKind = "LOCAL_FILE_PATH"
	TrackSourceRemoteURL TrackSourceKind = "REMOTE_URL"
)

// TrackSource is a tagged sum: LocalFilePath(path, format) or
// RemoteUrl{url, format, track_id, source, headers}.
type TrackSource struct {
	Kind    TrackSourceKind
	Path    string
	URL     string
	Format  PlaybackQualityFormat
	TrackID Id
	Source  ApiSource
	Headers map[string]string
}

func NewLocalFileSource(path string, format PlaybackQualityFormat) TrackSource {
	return TrackSource{Kind: TrackSourceLocalFile, Path: path, Format: format}
}

func NewRemoteURLSource(url string, format PlaybackQualityFormat, trackID Id, source ApiSource, headers map[string]string) TrackSource {
	return TrackSource{
		Kind: TrackSourceRemoteURL, URL: url, Format: format,
		TrackID: trackID, Source: source, Headers: headers,
	}
}
