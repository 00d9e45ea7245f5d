// ABOUTME: Shared client-side state behind per-concern async RW locks
// ABOUTME: Grounded on the teacher's Server/Client field-plus-RWMutex layout in internal/server/server.go
package appstate

import (
	"context"
	"sync"

	"github.com/resonatefm/sessioncore/internal/model"
)

// WSSender is the subset of wsproto.Engine the façade needs to push a
// message once a connection exists. Kept as an interface so this package
// never imports wsproto directly.
type WSSender interface {
	Send(msgType string, payload any) error
}

// pendingMessage is one buffered send awaiting a live WSSender.
type pendingMessage struct {
	msgType string
	payload any
}

// State holds every field spec §4.7 names, each behind the smallest lock
// that can guard it. Fields that are only ever read or written alone use
// their own mutex; the seven fields named in the lock order
// (ws_handle -> ws_message_buffer -> current_sessions -> current_audio_zones
// -> active_players -> pending_player_sessions -> playback_quality) are the
// only ones ever taken together, and always acquired in that order with
// release in reverse. Code that needs more than one of those locks must
// follow that order; do not acquire them ad hoc.
type State struct {
	connMu         sync.RWMutex
	apiURL         string
	profile        string
	clientID       string
	signatureToken string
	wsURL          string
	wsConnectionID string

	viewMu                 sync.RWMutex
	currentConnections     []model.Connection
	currentSessionID       *uint64
	currentPlaybackTarget  *model.PlaybackTarget

	wsHandleMu sync.RWMutex
	wsHandle   WSSender

	bufMu           sync.RWMutex
	wsMessageBuffer []pendingMessage

	sessionsMu      sync.RWMutex
	currentSessions []model.Session

	zonesMu           sync.RWMutex
	currentAudioZones []model.AudioZone

	activeMu      sync.RWMutex
	activePlayers []model.Player

	pendingMu             sync.RWMutex
	pendingPlayerSessions map[string][]uint64 // connection id -> session ids awaiting that connection's players

	qualityMu       sync.RWMutex
	playbackQuality model.PlaybackQuality

	hooks *Hooks
}

// New builds an empty façade with a fresh NewHooks() listener registry.
func New() *State {
	return &State{
		pendingPlayerSessions: make(map[string][]uint64),
		hooks:                 NewHooks(),
	}
}

// Hooks returns the listener registry so callers can register handlers at
// wiring time (cmd/sessiond).
func (s *State) Hooks() *Hooks { return s.hooks }

// --- simple single-lock fields ---

func (s *State) APIURL() string {
	s.connMu.RLock()
	defer s.connMu.RUnlock()
	return s.apiURL
}

func (s *State) SetAPIURL(v string) {
	s.connMu.Lock()
	s.apiURL = v
	s.connMu.Unlock()
}

func (s *State) Profile() string {
	s.connMu.RLock()
	defer s.connMu.RUnlock()
	return s.profile
}

func (s *State) SetProfile(v string) {
	s.connMu.Lock()
	s.profile = v
	s.connMu.Unlock()
}

func (s *State) ClientID() string {
	s.connMu.RLock()
	defer s.connMu.RUnlock()
	return s.clientID
}

func (s *State) SetClientID(v string) {
	s.connMu.Lock()
	s.clientID = v
	s.connMu.Unlock()
}

func (s *State) SignatureToken() string {
	s.connMu.RLock()
	defer s.connMu.RUnlock()
	return s.signatureToken
}

func (s *State) SetSignatureToken(v string) {
	s.connMu.Lock()
	s.signatureToken = v
	s.connMu.Unlock()
}

func (s *State) WSURL() string {
	s.connMu.RLock()
	defer s.connMu.RUnlock()
	return s.wsURL
}

func (s *State) SetWSURL(v string) {
	s.connMu.Lock()
	s.wsURL = v
	s.connMu.Unlock()
}

func (s *State) WSConnectionID() string {
	s.connMu.RLock()
	defer s.connMu.RUnlock()
	return s.wsConnectionID
}

func (s *State) SetWSConnectionID(v string) {
	s.connMu.Lock()
	s.wsConnectionID = v
	s.connMu.Unlock()
}

func (s *State) CurrentConnections() []model.Connection {
	s.viewMu.RLock()
	defer s.viewMu.RUnlock()
	return append([]model.Connection(nil), s.currentConnections...)
}

func (s *State) setCurrentConnections(conns []model.Connection) {
	s.viewMu.Lock()
	s.currentConnections = conns
	s.viewMu.Unlock()
}

func (s *State) CurrentSessionID() (uint64, bool) {
	s.viewMu.RLock()
	defer s.viewMu.RUnlock()
	if s.currentSessionID == nil {
		return 0, false
	}
	return *s.currentSessionID, true
}

func (s *State) SetCurrentSessionID(id uint64) {
	s.viewMu.Lock()
	s.currentSessionID = &id
	s.viewMu.Unlock()
}

func (s *State) CurrentPlaybackTarget() (model.PlaybackTarget, bool) {
	s.viewMu.RLock()
	defer s.viewMu.RUnlock()
	if s.currentPlaybackTarget == nil {
		return model.PlaybackTarget{}, false
	}
	return *s.currentPlaybackTarget, true
}

func (s *State) SetCurrentPlaybackTarget(t model.PlaybackTarget) {
	s.viewMu.Lock()
	s.currentPlaybackTarget = &t
	s.viewMu.Unlock()
}

// --- the seven lock-ordered fields ---

// SetWSHandle installs the live sender, e.g. once an Engine reaches OPEN.
func (s *State) SetWSHandle(h WSSender) {
	s.wsHandleMu.Lock()
	s.wsHandle = h
	s.wsHandleMu.Unlock()
}

// ClearWSHandle drops the sender, e.g. on disconnect; subsequent sends are
// buffered instead of failing outright.
func (s *State) ClearWSHandle() {
	s.wsHandleMu.Lock()
	s.wsHandle = nil
	s.wsHandleMu.Unlock()
}

// SendWSMessage sends immediately if a handle is live, otherwise buffers.
func (s *State) SendWSMessage(msgType string, payload any) error {
	s.wsHandleMu.RLock()
	handle := s.wsHandle
	s.wsHandleMu.RUnlock()

	if handle == nil {
		s.QueueWSMessage(msgType, payload)
		return nil
	}
	return handle.Send(msgType, payload)
}

// QueueWSMessage buffers a message for FlushWSMessageBuffer; used explicitly
// by callers that know no connection exists yet (spec §4.7 S5).
func (s *State) QueueWSMessage(msgType string, payload any) {
	s.bufMu.Lock()
	s.wsMessageBuffer = append(s.wsMessageBuffer, pendingMessage{msgType: msgType, payload: payload})
	s.bufMu.Unlock()
}

// FlushWSMessageBuffer drains the buffer in FIFO order through the current
// handle. Call once SetWSHandle has installed a live connection; the
// engine's own GET_CONNECTION_ID/CONNECTION_ID handshake message is sent by
// the engine itself before SetWSHandle is wired in, so it always precedes
// whatever this flush sends (spec §4.7 S5).
func (s *State) FlushWSMessageBuffer() error {
	s.wsHandleMu.RLock()
	handle := s.wsHandle
	s.wsHandleMu.RUnlock()
	if handle == nil {
		return nil
	}

	s.bufMu.Lock()
	pending := s.wsMessageBuffer
	s.wsMessageBuffer = nil
	s.bufMu.Unlock()

	for _, m := range pending {
		if err := handle.Send(m.msgType, m.payload); err != nil {
			return err
		}
	}
	return nil
}

// CurrentSessions returns a snapshot copy of the session list.
func (s *State) CurrentSessions() []model.Session {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	return append([]model.Session(nil), s.currentSessions...)
}

// CurrentAudioZones returns a snapshot copy of the zone list.
func (s *State) CurrentAudioZones() []model.AudioZone {
	s.zonesMu.RLock()
	defer s.zonesMu.RUnlock()
	return append([]model.AudioZone(nil), s.currentAudioZones...)
}

// ActivePlayers implements target.ActivePlayers: the players this host owns
// locally, as last reported to SetActivePlayers.
func (s *State) ActivePlayers(ctx context.Context) []model.Player {
	s.activeMu.RLock()
	defer s.activeMu.RUnlock()
	return append([]model.Player(nil), s.activePlayers...)
}

// SetActivePlayers replaces the set of locally-owned players.
func (s *State) SetActivePlayers(players []model.Player) {
	s.activeMu.Lock()
	s.activePlayers = append([]model.Player(nil), players...)
	s.activeMu.Unlock()
}

// PendingPlayerSessions returns the session ids still waiting on
// connectionID's players to register.
func (s *State) PendingPlayerSessions(connectionID string) []uint64 {
	s.pendingMu.RLock()
	defer s.pendingMu.RUnlock()
	return append([]uint64(nil), s.pendingPlayerSessions[connectionID]...)
}

// AddPendingPlayerSession records that sessionID is waiting on
// connectionID's players.
func (s *State) AddPendingPlayerSession(connectionID string, sessionID uint64) {
	s.pendingMu.Lock()
	s.pendingPlayerSessions[connectionID] = append(s.pendingPlayerSessions[connectionID], sessionID)
	s.pendingMu.Unlock()
}

// ClearPendingPlayerSessions drops connectionID's pending list, returning
// what was pending so the caller can resume those sessions now that players
// are known.
func (s *State) ClearPendingPlayerSessions(connectionID string) []uint64 {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	pending := s.pendingPlayerSessions[connectionID]
	delete(s.pendingPlayerSessions, connectionID)
	return pending
}

// PlaybackQuality returns the last negotiated quality preference.
func (s *State) PlaybackQuality() model.PlaybackQuality {
	s.qualityMu.RLock()
	defer s.qualityMu.RUnlock()
	return s.playbackQuality
}

// SetPlaybackQuality updates the quality preference.
func (s *State) SetPlaybackQuality(q model.PlaybackQuality) {
	s.qualityMu.Lock()
	s.playbackQuality = q
	s.qualityMu.Unlock()
}
