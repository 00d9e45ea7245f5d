// ABOUTME: Tagged JSON envelopes for the websocket protocol of spec §4.6
// ABOUTME: type is SCREAMING_SNAKE_CASE; payload shape depends on type
package wsproto

import (
	"encoding/json"
	"fmt"

	"github.com/resonatefm/sessioncore/internal/model"
)

// Inbound message type tags.
const (
	TypeGetConnectionID    = "GET_CONNECTION_ID"
	TypeRegisterConnection = "REGISTER_CONNECTION"
	TypeRegisterPlayers    = "REGISTER_PLAYERS"
	TypeSetActivePlayers   = "SET_ACTIVE_PLAYERS"
	TypeSetSessionAudioZone = "SET_SESSION_AUDIO_ZONE"
	TypeCreateSession      = "CREATE_SESSION"
	TypeUpdateSession      = "UPDATE_SESSION"
	TypeDeleteSession      = "DELETE_SESSION"
	TypeSetSeek            = "SET_SEEK"
	TypeGetSessions        = "GET_SESSIONS"
	TypeGetConnections     = "GET_CONNECTIONS"
	TypeGetAudioZones      = "GET_AUDIO_ZONES"
)

// Outbound message type tags.
const (
	TypeConnectionID          = "CONNECTION_ID"
	TypeConnections           = "CONNECTIONS"
	TypeSessions              = "SESSIONS"
	TypeSessionUpdated        = "SESSION_UPDATED"
	TypeOutboundSetSeek       = "SET_SEEK"
	TypeAudioZoneWithSessions = "AUDIO_ZONE_WITH_SESSIONS"
)

// Envelope is the wire shape of every message: {"type": ..., "payload": ...}.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode wraps an outbound payload struct into a tagged Envelope and
// marshals it to bytes ready to send as a text frame.
func Encode(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("wsproto: marshal %s payload: %w", msgType, err)
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}

// ParseEnvelope unwraps a received frame into its type tag and raw payload.
func ParseEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("wsproto: unmarshal envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("wsproto: envelope missing type")
	}
	return env, nil
}

// --- Inbound payloads ---

type RegisterConnectionPayload struct {
	ConnectionID string         `json:"connectionId"`
	Name         string         `json:"name"`
	Players      []model.Player `json:"players"`
}

type RegisterPlayersPayload struct {
	ConnectionID string         `json:"connectionId"`
	Players      []model.Player `json:"players"`
}

type SetActivePlayersPayload struct {
	PlayerIDs []string `json:"playerIds"`
}

type SetSessionAudioZonePayload struct {
	SessionID   uint64 `json:"sessionId"`
	AudioZoneID uint64 `json:"audioZoneId"`
}

type CreateSessionPayload struct {
	Name           string               `json:"name"`
	AudioZoneID    *uint64              `json:"audioZoneId,omitempty"`
	PlaylistTracks []model.PlaylistTrack `json:"playlistTracks"`
}

// UpdateSessionPayload mirrors model.UpdateSession on the wire; all fields
// but SessionID are optional patch fields ("absent means no change").
type UpdateSessionPayload struct {
	SessionID      uint64                      `json:"sessionId"`
	PlaybackTarget *model.PlaybackTarget       `json:"playbackTarget,omitempty"`
	Play           *bool                       `json:"play,omitempty"`
	Stop           *bool                       `json:"stop,omitempty"`
	Name           *string                     `json:"name,omitempty"`
	Active         *bool                       `json:"active,omitempty"`
	Playing        *bool                       `json:"playing,omitempty"`
	Position       *uint16                     `json:"position,omitempty"`
	Seek           *float64                    `json:"seek,omitempty"`
	Volume         *float64                    `json:"volume,omitempty"`
	Playlist       *model.UpdateSessionPlaylist `json:"playlist,omitempty"`
	Quality        *model.PlaybackQuality      `json:"quality,omitempty"`
}

func (p UpdateSessionPayload) ToModel() model.UpdateSession {
	return model.UpdateSession{
		SessionID:      p.SessionID,
		PlaybackTarget: p.PlaybackTarget,
		Play:           p.Play,
		Stop:           p.Stop,
		Name:           p.Name,
		Active:         p.Active,
		Playing:        p.Playing,
		Position:       p.Position,
		Seek:           p.Seek,
		Volume:         p.Volume,
		Playlist:       p.Playlist,
		Quality:        p.Quality,
	}
}

type DeleteSessionPayload struct {
	SessionID uint64 `json:"sessionId"`
}

// SetSeekPayload is shorthand for UPDATE_SESSION with only seek set.
type SetSeekPayload struct {
	SessionID uint64  `json:"sessionId"`
	Seek      float64 `json:"seek"`
}

func (p SetSeekPayload) ToUpdateSession() model.UpdateSession {
	seek := p.Seek
	return model.UpdateSession{SessionID: p.SessionID, Seek: &seek}
}

// --- Outbound payloads ---

type ConnectionIDPayload struct {
	ConnectionID string `json:"connectionId"`
}

type ConnectionsPayload struct {
	Connections []model.Connection `json:"connections"`
}

type SessionsPayload struct {
	Sessions []model.Session `json:"sessions"`
}

type SessionUpdatedPayload struct {
	Session model.Session `json:"session"`
}

type AudioZoneWithSessionsPayload struct {
	AudioZone model.AudioZone `json:"audioZone"`
	Sessions  []model.Session `json:"sessions"`
}
