// ABOUTME: Session, playlist, connection, player and audio-zone types
// ABOUTME: Carries the invariants spec §3/§4.2 assign to the session model
package model

import "fmt"

// PlaybackTargetKind tags which variant a PlaybackTarget carries.
type PlaybackTargetKind string

const (
	TargetAudioZone        PlaybackTargetKind = "AUDIO_ZONE"
	TargetConnectionOutput PlaybackTargetKind = "CONNECTION_OUTPUT"
)

// PlaybackTarget is a tagged sum: AudioZone{audio_zone_id} or
// ConnectionOutput{connection_id, output_id}.
type PlaybackTarget struct {
	Kind           PlaybackTargetKind
	AudioZoneID    uint64
	ConnectionID   string
	OutputID       string
}

func NewAudioZoneTarget(audioZoneID uint64) PlaybackTarget {
	return PlaybackTarget{Kind: TargetAudioZone, AudioZoneID: audioZoneID}
}

func NewConnectionOutputTarget(connectionID, outputID string) PlaybackTarget {
	return PlaybackTarget{Kind: TargetConnectionOutput, ConnectionID: connectionID, OutputID: outputID}
}

// PlaybackQualityFormat is the wire-level codec family for PlaybackQuality.
type PlaybackQualityFormat string

const (
	FormatSource PlaybackQualityFormat = "SOURCE"
	FormatFLAC   PlaybackQualityFormat = "FLAC"
	FormatMP3    PlaybackQualityFormat = "MP3"
	FormatAAC    PlaybackQualityFormat = "AAC"
	FormatOpus   PlaybackQualityFormat = "OPUS"
)

// PlaybackQuality describes the requested output encoding.
type PlaybackQuality struct {
	Format     PlaybackQualityFormat
	BitDepth   *uint8
	SampleRate *uint32
	Channels   *uint8
}

// PlaylistTrack is one entry of a SessionPlaylist.
type PlaylistTrack struct {
	ID     Id
	Source ApiSource
	Data   []byte // opaque JSON, may be nil
}

// SessionPlaylist is an ordered, externally meaningful sequence of tracks.
type SessionPlaylist struct {
	ID     uint64
	Tracks []PlaylistTrack
}

// Session is a durable, named playback context.
type Session struct {
	ID             uint64
	Name           string
	Active         bool
	Playing        bool
	Position       *uint16
	Seek           *float64
	Volume         *float64
	PlaybackTarget *PlaybackTarget
	Playlist       SessionPlaylist
}

// ValidationError reports a Session invariant violation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("model: invalid session.%s: %s", e.Field, e.Reason)
}

// Validate enforces the invariants from spec §3:
//   - position, when present, lies in [0, |playlist.tracks|)
//   - seek >= 0
//   - if playing then active
//   - if playlist.tracks is empty then position is absent
func (s Session) Validate() error {
	n := len(s.Playlist.Tracks)
	if s.Position != nil {
		if n == 0 {
			return &ValidationError{Field: "position", Reason: "playlist is empty"}
		}
		if int(*s.Position) >= n {
			return &ValidationError{Field: "position", Reason: "out of bounds of playlist"}
		}
	}
	if s.Seek != nil && *s.Seek < 0 {
		return &ValidationError{Field: "seek", Reason: "must be >= 0"}
	}
	if s.Playing && !s.Active {
		return &ValidationError{Field: "playing", Reason: "requires active"}
	}
	return nil
}

// Player is one audio output instance belonging to at most one zone.
type Player struct {
	ID            string
	ConnectionID  string
	AudioOutputID string
	Name          string
}

// Connection is a websocket-attached control/output host.
type Connection struct {
	ID      string
	Name    string
	Created int64 // unix millis
	Updated int64 // unix millis
	Players []Player
}

// AudioZone is a named group of players kept in step.
type AudioZone struct {
	ID      uint64
	Name    string
	Players []Player
}

// CreateSession is the request used to originate a new Session.
type CreateSession struct {
	Name           string
	AudioZoneID    *uint64
	PlaylistTracks []PlaylistTrack
}

// UpdateSessionPlaylist replaces a session's playlist atomically when present.
type UpdateSessionPlaylist struct {
	SessionPlaylistID uint64
	Tracks            []PlaylistTrack
}

// UpdateSession is a partial patch: absent optional fields mean "no change."
type UpdateSession struct {
	SessionID      uint64
	PlaybackTarget *PlaybackTarget
	Play           *bool
	Stop           *bool
	Name           *string
	Active         *bool
	Playing        *bool
	Position       *uint16
	Seek           *float64
	Volume         *float64
	Playlist       *UpdateSessionPlaylist
	Quality        *PlaybackQuality
}

// PlaybackUpdated reports whether this patch touches any playback-affecting
// field, mirroring the original's UpdateSession::playback_updated.
func (u UpdateSession) PlaybackUpdated() bool {
	return u.Play != nil || u.Stop != nil || u.Active != nil || u.Playing != nil ||
		u.Position != nil || u.Volume != nil || u.Seek != nil || u.Playlist != nil
}

// AudioOutputIDs resolves the set of output ids this patch's PlaybackTarget
// touches: an AudioZone expands to all member players' output ids, a
// ConnectionOutput names exactly one.
func (u UpdateSession) AudioOutputIDs(zones func(id uint64) (AudioZone, bool)) []string {
	if u.PlaybackTarget == nil {
		return nil
	}
	switch u.PlaybackTarget.Kind {
	case TargetAudioZone:
		zone, ok := zones(u.PlaybackTarget.AudioZoneID)
		if !ok {
			return nil
		}
		ids := make([]string, 0, len(zone.Players))
		for _, p := range zone.Players {
			ids = append(ids, p.AudioOutputID)
		}
		return ids
	case TargetConnectionOutput:
		return []string{u.PlaybackTarget.OutputID}
	default:
		return nil
	}
}

// RegisterConnection upserts a connection and its players.
type RegisterConnection struct {
	ConnectionID string
	Name         string
	Players      []Player
}
