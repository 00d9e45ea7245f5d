// ABOUTME: Wires the façade as the wsproto Dispatcher/SnapshotUpdater and exposes handle_playback_update/update_audio_zones/update_connection_outputs/update_playlist
// ABOUTME: Grounded on the teacher's Server.handleClientMessage switch over inbound message types in internal/server/server.go
package appstate

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/resonatefm/sessioncore/internal/adapters"
	"github.com/resonatefm/sessioncore/internal/model"
	"github.com/resonatefm/sessioncore/internal/playback"
	"github.com/resonatefm/sessioncore/internal/wsproto"
)

// Broadcaster pushes an outbound message to every connected websocket client.
// *wsproto.Hub satisfies it. A Dispatcher doesn't need one to handle inbound
// requests (the reply to HandleInbound's caller goes back over the same
// connection regardless), only to act as a playback.SessionPublisher.
type Broadcaster interface {
	Broadcast(out wsproto.Outbound)
}

// Dispatcher binds a State to its collaborators and implements
// wsproto.Dispatcher and wsproto.SnapshotUpdater, so one value can be handed
// straight to wsproto.NewServerEngine/NewHub.
type Dispatcher struct {
	*State

	persistence adapters.Persistence
	musicAPI    adapters.MusicApi
	playback    *playback.Handler
	broadcaster Broadcaster
}

// NewDispatcher wires a State against the collaborators its dispatch logic
// needs. state is typically shared across every connection's Dispatcher so
// currentSessions/currentConnections/currentAudioZones stay host-wide.
func NewDispatcher(state *State, persistence adapters.Persistence, musicAPI adapters.MusicApi, handler *playback.Handler) *Dispatcher {
	return &Dispatcher{State: state, persistence: persistence, musicAPI: musicAPI, playback: handler}
}

// SetBroadcaster wires the Hub a Dispatcher's server-originated updates fan
// out through. cmd/sessiond calls this once after constructing both, since
// the Hub's newDispatcher factory and the Dispatcher it builds each need the
// other to already exist.
func (d *Dispatcher) SetBroadcaster(b Broadcaster) {
	d.broadcaster = b
}

// PublishSessionUpdate satisfies playback.SessionPublisher. It persists a
// playback-driven patch the same way applySessionUpdate does for a
// client-originated one, then
// broadcasts the resulting SESSIONS snapshot to every connection rather than
// just the one that triggered it.
func (d *Dispatcher) PublishSessionUpdate(ctx context.Context, update model.UpdateSession) error {
	if _, err := d.persistence.UpdateSession(ctx, update); err != nil {
		return err
	}
	outs, err := d.refreshSessions(ctx)
	if err != nil {
		return err
	}
	if d.broadcaster != nil {
		for _, out := range outs {
			d.broadcaster.Broadcast(out)
		}
	}
	return nil
}

// HandleInbound satisfies wsproto.Dispatcher.
func (d *Dispatcher) HandleInbound(ctx context.Context, env wsproto.Envelope) ([]wsproto.Outbound, error) {
	return d.HandleWSMessage(ctx, env)
}

// HandleWSMessage is spec §4.7's handle_ws_message: dispatches one inbound
// envelope, wrapped in its before/after listener hooks.
func (d *Dispatcher) HandleWSMessage(ctx context.Context, env wsproto.Envelope) ([]wsproto.Outbound, error) {
	d.hooks.fireBeforeHandleWSMessage(env)
	outs, err := d.route(ctx, env)
	d.hooks.fireAfterHandleWSMessage(env, err)
	return outs, err
}

func (d *Dispatcher) route(ctx context.Context, env wsproto.Envelope) ([]wsproto.Outbound, error) {
	switch env.Type {
	case wsproto.TypeGetConnectionID:
		return []wsproto.Outbound{{Type: wsproto.TypeConnectionID, Payload: wsproto.ConnectionIDPayload{ConnectionID: d.WSConnectionID()}}}, nil

	case wsproto.TypeRegisterConnection:
		var p wsproto.RegisterConnectionPayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		if _, err := d.persistence.RegisterConnection(ctx, model.RegisterConnection{ConnectionID: p.ConnectionID, Name: p.Name, Players: p.Players}); err != nil {
			return nil, err
		}
		return d.refreshConnections(ctx)

	case wsproto.TypeRegisterPlayers:
		var p wsproto.RegisterPlayersPayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		conn, err := d.persistence.GetConnection(ctx, p.ConnectionID)
		if err != nil {
			return nil, err
		}
		if _, err := d.persistence.RegisterConnection(ctx, model.RegisterConnection{ConnectionID: p.ConnectionID, Name: conn.Name, Players: p.Players}); err != nil {
			return nil, err
		}
		for _, sessionID := range d.ClearPendingPlayerSessions(p.ConnectionID) {
			_ = d.resumePendingSession(ctx, sessionID)
		}
		return d.refreshConnections(ctx)

	case wsproto.TypeSetActivePlayers:
		var p wsproto.SetActivePlayersPayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		wanted := make(map[string]bool, len(p.PlayerIDs))
		for _, id := range p.PlayerIDs {
			wanted[id] = true
		}
		var matched []model.Player
		for _, conn := range d.CurrentConnections() {
			for _, player := range conn.Players {
				if wanted[player.ID] {
					matched = append(matched, player)
				}
			}
		}
		d.SetActivePlayers(matched)
		if err := d.UpdateConnectionOutputs(ctx); err != nil {
			return nil, err
		}
		return nil, nil

	case wsproto.TypeSetSessionAudioZone:
		var p wsproto.SetSessionAudioZonePayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		target := model.NewAudioZoneTarget(p.AudioZoneID)
		return d.applySessionUpdate(ctx, model.UpdateSession{SessionID: p.SessionID, PlaybackTarget: &target})

	case wsproto.TypeCreateSession:
		var p wsproto.CreateSessionPayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		sess, err := d.persistence.CreateSession(ctx, model.CreateSession{Name: p.Name, AudioZoneID: p.AudioZoneID, PlaylistTracks: p.PlaylistTracks})
		if err != nil {
			return nil, err
		}
		if err := d.startSessionPlayback(ctx, sess); err != nil {
			return nil, err
		}
		return d.refreshSessions(ctx)

	case wsproto.TypeUpdateSession:
		var p wsproto.UpdateSessionPayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		return d.applySessionUpdate(ctx, p.ToModel())

	case wsproto.TypeDeleteSession:
		var p wsproto.DeleteSessionPayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		_ = d.playback.Stop(ctx, p.SessionID)
		if err := d.persistence.DeleteSession(ctx, p.SessionID); err != nil {
			return nil, err
		}
		return d.refreshSessions(ctx)

	case wsproto.TypeSetSeek:
		var p wsproto.SetSeekPayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		return d.applySessionUpdate(ctx, p.ToUpdateSession())

	case wsproto.TypeGetSessions:
		return d.refreshSessions(ctx)

	case wsproto.TypeGetConnections:
		return d.refreshConnections(ctx)

	case wsproto.TypeGetAudioZones:
		return d.refreshAudioZones(ctx)

	default:
		return nil, nil
	}
}

// applySessionUpdate is spec §4.7's handle_playback_update: applies a
// partial patch to persistence and, if a playback is already running for
// the session, to the live Playback too; a session that has never been
// started is started fresh instead.
func (d *Dispatcher) applySessionUpdate(ctx context.Context, update model.UpdateSession) ([]wsproto.Outbound, error) {
	d.hooks.fireBeforeHandlePlaybackUpdate(update)

	_, persistErr := d.persistence.UpdateSession(ctx, update)
	if persistErr != nil {
		d.hooks.fireAfterHandlePlaybackUpdate(update, persistErr)
		return nil, persistErr
	}

	req := playback.UpdatePlaybackRequest{
		SessionID:            update.SessionID,
		TriggerSessionUpdate: true,
		HandleUpdate:         true,
		Play:                 update.Play,
		Stop:                 update.Stop,
		Playing:              update.Playing,
		Position:             intFromUint16(update.Position),
		Seek:                 update.Seek,
		Volume:               update.Volume,
		Quality:              update.Quality,
		Target:               update.PlaybackTarget,
	}

	playErr := d.playback.UpdatePlayback(ctx, req)
	if errors.Is(playErr, playback.ErrInvalidState) {
		sess, err := d.persistence.GetSession(ctx, update.SessionID)
		if err != nil {
			d.hooks.fireAfterHandlePlaybackUpdate(update, err)
			return nil, err
		}
		playErr = d.startSessionPlayback(ctx, sess)
	}

	d.hooks.fireAfterHandlePlaybackUpdate(update, playErr)
	if playErr != nil {
		return nil, playErr
	}
	return d.refreshSessions(ctx)
}

// startSessionPlayback resolves a persisted session's playlist into full
// tracks via MusicApi and starts a fresh Playback for it. Sessions with no
// playback target yet (no audio zone/output chosen) are left un-started —
// handle_playback_update will start them once a target arrives.
func (d *Dispatcher) startSessionPlayback(ctx context.Context, sess model.Session) error {
	if sess.PlaybackTarget == nil || len(sess.Playlist.Tracks) == 0 {
		return nil
	}

	tracks := make([]model.Track, 0, len(sess.Playlist.Tracks))
	for _, pt := range sess.Playlist.Tracks {
		track, err := d.musicAPI.Track(ctx, pt.ID)
		if err != nil {
			return err
		}
		tracks = append(tracks, track)
	}

	position := 0
	if sess.Position != nil {
		position = int(*sess.Position)
	}
	seek := 0.0
	if sess.Seek != nil {
		seek = *sess.Seek
	}
	volume := 1.0
	if sess.Volume != nil {
		volume = *sess.Volume
	}

	return d.playback.PlayTracks(ctx, sess.ID, *sess.PlaybackTarget, tracks, position, seek, volume, d.PlaybackQuality())
}

func (d *Dispatcher) resumePendingSession(ctx context.Context, sessionID uint64) error {
	sess, err := d.persistence.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	return d.startSessionPlayback(ctx, sess)
}

func (d *Dispatcher) refreshSessions(ctx context.Context) ([]wsproto.Outbound, error) {
	sessions, err := d.persistence.GetSessions(ctx)
	if err != nil {
		return nil, err
	}
	return []wsproto.Outbound{{Type: wsproto.TypeSessions, Payload: wsproto.SessionsPayload{Sessions: sessions}}}, nil
}

func (d *Dispatcher) refreshConnections(ctx context.Context) ([]wsproto.Outbound, error) {
	conns, err := d.persistence.GetConnections(ctx)
	if err != nil {
		return nil, err
	}
	d.setCurrentConnections(conns)
	d.hooks.fireConnectionsUpdated(conns)
	return []wsproto.Outbound{{Type: wsproto.TypeConnections, Payload: wsproto.ConnectionsPayload{Connections: conns}}}, nil
}

func (d *Dispatcher) refreshAudioZones(ctx context.Context) ([]wsproto.Outbound, error) {
	zones, err := d.persistence.GetAudioZones(ctx)
	if err != nil {
		return nil, err
	}
	sessions, err := d.persistence.GetSessions(ctx)
	if err != nil {
		return nil, err
	}

	outs := make([]wsproto.Outbound, 0, len(zones))
	for _, zone := range zones {
		outs = append(outs, wsproto.Outbound{
			Type:    wsproto.TypeAudioZoneWithSessions,
			Payload: wsproto.AudioZoneWithSessionsPayload{AudioZone: zone, Sessions: sessionsForZone(zone, sessions)},
		})
	}
	return outs, nil
}

func sessionsForZone(zone model.AudioZone, sessions []model.Session) []model.Session {
	var matched []model.Session
	for _, s := range sessions {
		if s.PlaybackTarget != nil && s.PlaybackTarget.Kind == model.TargetAudioZone && s.PlaybackTarget.AudioZoneID == zone.ID {
			matched = append(matched, s)
		}
	}
	return matched
}

// --- wsproto.SnapshotUpdater ---

// UpdateSessionsSnapshot is step 1 of the broadcast discipline for SESSIONS.
func (d *Dispatcher) UpdateSessionsSnapshot(sessions []model.Session) {
	d.sessionsMu.Lock()
	d.currentSessions = sessions
	d.sessionsMu.Unlock()
	d.hooks.fireCurrentSessionsUpdated(sessions)
}

// UpdateAudioZoneSnapshot is step 1 of the broadcast discipline for
// AUDIO_ZONE_WITH_SESSIONS.
func (d *Dispatcher) UpdateAudioZoneSnapshot(zone model.AudioZone, sessions []model.Session) {
	d.zonesMu.Lock()
	replaced := false
	for i, z := range d.currentAudioZones {
		if z.ID == zone.ID {
			d.currentAudioZones[i] = zone
			replaced = true
			break
		}
	}
	if !replaced {
		d.currentAudioZones = append(d.currentAudioZones, zone)
	}
	d.zonesMu.Unlock()
	d.hooks.fireAudioZoneWithSessionsUpdated(zone, sessions)
}

// RecomputeZoneBindings is step 2: re-derive which sessions each zone's
// players currently belong to. The binding is computed on demand by
// sessionsForZone/PlaybackTarget rather than cached, so there is nothing to
// recompute eagerly beyond giving listeners a hook point.
func (d *Dispatcher) RecomputeZoneBindings() {
	d.hooks.fireBeforeSetState("current_audio_zones")
}

// ReconcileConnectionOutputs is step 3 of the broadcast discipline; it
// shares its logic with UpdateConnectionOutputs below.
func (d *Dispatcher) ReconcileConnectionOutputs() {
	_ = d.UpdateConnectionOutputs(context.Background())
}

// UpdateConnectionOutputs is spec §4.7's update_connection_outputs: drops
// active players whose connection no longer exists, keeping active_players
// consistent with current_connections.
func (d *Dispatcher) UpdateConnectionOutputs(ctx context.Context) error {
	known := make(map[string]bool)
	for _, conn := range d.CurrentConnections() {
		known[conn.ID] = true
	}

	d.activeMu.Lock()
	kept := d.activePlayers[:0:0]
	for _, p := range d.activePlayers {
		if known[p.ConnectionID] {
			kept = append(kept, p)
		}
	}
	d.activePlayers = kept
	d.activeMu.Unlock()
	return nil
}

// RefreshPlaylistViews is step 4 of the broadcast discipline; playlists are
// served straight from persistence on demand, so this is a pure hook point
// for listeners (e.g. a UI cache invalidation) rather than a cache refresh.
func (d *Dispatcher) RefreshPlaylistViews() {
	d.hooks.fireBeforeSetState("current_sessions.playlist")
}

// UpdatePlaylist is spec §4.7's update_playlist: replaces one session's
// playlist, wrapped in its before/after hooks.
func (d *Dispatcher) UpdatePlaylist(ctx context.Context, sessionID uint64, playlist model.SessionPlaylist) error {
	d.hooks.fireBeforeUpdatePlaylist(sessionID, playlist)

	_, err := d.persistence.UpdateSession(ctx, model.UpdateSession{
		SessionID: sessionID,
		Playlist:  &model.UpdateSessionPlaylist{SessionPlaylistID: playlist.ID, Tracks: playlist.Tracks},
	})

	d.hooks.fireAfterUpdatePlaylist(sessionID, playlist)
	return err
}

func decodePayload(env wsproto.Envelope, v any) error {
	if len(env.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(env.Payload, v)
}

var (
	_ wsproto.Dispatcher      = (*Dispatcher)(nil)
	_ wsproto.SnapshotUpdater = (*Dispatcher)(nil)
	_ playback.SessionPublisher = (*Dispatcher)(nil)
)

func intFromUint16(v *uint16) *int {
	if v == nil {
		return nil
	}
	n := int(*v)
	return &n
}
