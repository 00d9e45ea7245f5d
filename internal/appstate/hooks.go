// ABOUTME: Listener registration for the before/after hook points spec §4.7 names
// ABOUTME: Grounded on wsproto.Listeners' registration-order-invoked-in-order pattern
package appstate

import (
	"sync"

	"github.com/resonatefm/sessioncore/internal/model"
	"github.com/resonatefm/sessioncore/internal/wsproto"
)

// Hooks holds every listener list the façade invokes around its mutating
// operations, each called in registration order.
type Hooks struct {
	mu sync.Mutex

	beforeHandleWSMessage []func(wsproto.Envelope)
	afterHandleWSMessage  []func(wsproto.Envelope, error)

	beforeUpdatePlaylist []func(sessionID uint64, playlist model.SessionPlaylist)
	afterUpdatePlaylist  []func(sessionID uint64, playlist model.SessionPlaylist)

	beforeHandlePlaybackUpdate []func(model.UpdateSession)
	afterHandlePlaybackUpdate  []func(model.UpdateSession, error)

	connectionsUpdated         []func([]model.Connection)
	currentSessionsUpdated     []func([]model.Session)
	audioZoneWithSessionsUpdated []func(model.AudioZone, []model.Session)

	beforeSetState []func(field string)
}

func NewHooks() *Hooks { return &Hooks{} }

func (h *Hooks) OnBeforeHandleWSMessage(fn func(wsproto.Envelope)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.beforeHandleWSMessage = append(h.beforeHandleWSMessage, fn)
}

func (h *Hooks) OnAfterHandleWSMessage(fn func(wsproto.Envelope, error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.afterHandleWSMessage = append(h.afterHandleWSMessage, fn)
}

func (h *Hooks) OnBeforeUpdatePlaylist(fn func(uint64, model.SessionPlaylist)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.beforeUpdatePlaylist = append(h.beforeUpdatePlaylist, fn)
}

func (h *Hooks) OnAfterUpdatePlaylist(fn func(uint64, model.SessionPlaylist)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.afterUpdatePlaylist = append(h.afterUpdatePlaylist, fn)
}

func (h *Hooks) OnBeforeHandlePlaybackUpdate(fn func(model.UpdateSession)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.beforeHandlePlaybackUpdate = append(h.beforeHandlePlaybackUpdate, fn)
}

func (h *Hooks) OnAfterHandlePlaybackUpdate(fn func(model.UpdateSession, error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.afterHandlePlaybackUpdate = append(h.afterHandlePlaybackUpdate, fn)
}

func (h *Hooks) OnConnectionsUpdated(fn func([]model.Connection)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connectionsUpdated = append(h.connectionsUpdated, fn)
}

func (h *Hooks) OnCurrentSessionsUpdated(fn func([]model.Session)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.currentSessionsUpdated = append(h.currentSessionsUpdated, fn)
}

func (h *Hooks) OnAudioZoneWithSessionsUpdated(fn func(model.AudioZone, []model.Session)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.audioZoneWithSessionsUpdated = append(h.audioZoneWithSessionsUpdated, fn)
}

// OnBeforeSetState fires at the Dispatcher's broadcast-discipline hook
// points (RecomputeZoneBindings and RefreshPlaylistViews), naming the state
// they concern. Other mutations, including the raw setters, do not fire it.
func (h *Hooks) OnBeforeSetState(fn func(field string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.beforeSetState = append(h.beforeSetState, fn)
}

func (h *Hooks) fireBeforeSetState(field string) {
	h.mu.Lock()
	fns := append([]func(string){}, h.beforeSetState...)
	h.mu.Unlock()
	for _, fn := range fns {
		fn(field)
	}
}

func (h *Hooks) fireBeforeHandleWSMessage(env wsproto.Envelope) {
	h.mu.Lock()
	fns := append([]func(wsproto.Envelope){}, h.beforeHandleWSMessage...)
	h.mu.Unlock()
	for _, fn := range fns {
		fn(env)
	}
}

func (h *Hooks) fireAfterHandleWSMessage(env wsproto.Envelope, err error) {
	h.mu.Lock()
	fns := append([]func(wsproto.Envelope, error){}, h.afterHandleWSMessage...)
	h.mu.Unlock()
	for _, fn := range fns {
		fn(env, err)
	}
}

func (h *Hooks) fireBeforeUpdatePlaylist(sessionID uint64, playlist model.SessionPlaylist) {
	h.mu.Lock()
	fns := append([]func(uint64, model.SessionPlaylist){}, h.beforeUpdatePlaylist...)
	h.mu.Unlock()
	for _, fn := range fns {
		fn(sessionID, playlist)
	}
}

func (h *Hooks) fireAfterUpdatePlaylist(sessionID uint64, playlist model.SessionPlaylist) {
	h.mu.Lock()
	fns := append([]func(uint64, model.SessionPlaylist){}, h.afterUpdatePlaylist...)
	h.mu.Unlock()
	for _, fn := range fns {
		fn(sessionID, playlist)
	}
}

func (h *Hooks) fireBeforeHandlePlaybackUpdate(u model.UpdateSession) {
	h.mu.Lock()
	fns := append([]func(model.UpdateSession){}, h.beforeHandlePlaybackUpdate...)
	h.mu.Unlock()
	for _, fn := range fns {
		fn(u)
	}
}

func (h *Hooks) fireAfterHandlePlaybackUpdate(u model.UpdateSession, err error) {
	h.mu.Lock()
	fns := append([]func(model.UpdateSession, error){}, h.afterHandlePlaybackUpdate...)
	h.mu.Unlock()
	for _, fn := range fns {
		fn(u, err)
	}
}

func (h *Hooks) fireConnectionsUpdated(conns []model.Connection) {
	h.mu.Lock()
	fns := append([]func([]model.Connection){}, h.connectionsUpdated...)
	h.mu.Unlock()
	for _, fn := range fns {
		fn(conns)
	}
}

func (h *Hooks) fireCurrentSessionsUpdated(sessions []model.Session) {
	h.mu.Lock()
	fns := append([]func([]model.Session){}, h.currentSessionsUpdated...)
	h.mu.Unlock()
	for _, fn := range fns {
		fn(sessions)
	}
}

func (h *Hooks) fireAudioZoneWithSessionsUpdated(zone model.AudioZone, sessions []model.Session) {
	h.mu.Lock()
	fns := append([]func(model.AudioZone, []model.Session){}, h.audioZoneWithSessionsUpdated...)
	h.mu.Unlock()
	for _, fn := range fns {
		fn(zone, sessions)
	}
}
