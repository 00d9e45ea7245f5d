// ABOUTME: Orchestrates one Playback per session/target pair: play/pause/seek/status
// ABOUTME: Applies the update_playback semantics of spec §4.5, retrying transient failures
package playback

import (
	"context"
	"sync"

	"github.com/resonatefm/sessioncore/internal/adapters"
	"github.com/resonatefm/sessioncore/internal/model"
	"github.com/resonatefm/sessioncore/internal/target"
)

// SessionPublisher is how a Handler tells the websocket side (C6) that a
// session update originated locally and must be broadcast. Kept separate
// from adapters.Persistence since publishing is a transport concern, not a
// storage one.
type SessionPublisher interface {
	PublishSessionUpdate(ctx context.Context, update model.UpdateSession) error
}

// Handler owns every live Playback, keyed by session id, and coordinates
// resolving targets, running decodes, and applying retries around them.
type Handler struct {
	mu        sync.Mutex
	playbacks map[uint64]*Playback

	musicAPI    adapters.MusicApi
	persistence adapters.Persistence
	active      target.ActivePlayers
	runner      DecodeRunner
	publisher   SessionPublisher
	retry       RetryOptions
}

// NewHandler wires a Handler against its collaborators. publisher may be nil,
// in which case UpdatePlayback publishes no session updates.
func NewHandler(musicAPI adapters.MusicApi, persistence adapters.Persistence, active target.ActivePlayers, runner DecodeRunner, publisher SessionPublisher) *Handler {
	return &Handler{
		playbacks:   make(map[uint64]*Playback),
		musicAPI:    musicAPI,
		persistence: persistence,
		active:      active,
		runner:      runner,
		publisher:   publisher,
		retry:       DefaultRetryOptions(),
	}
}

// WithRetryOptions overrides the default retry policy; returns the handler
// for chaining at construction time.
func (h *Handler) WithRetryOptions(opts RetryOptions) *Handler {
	h.retry = opts
	return h
}

func (h *Handler) playbackFor(sessionID uint64) (*Playback, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.playbacks[sessionID]
	return p, ok
}

func (h *Handler) setPlayback(sessionID uint64, p *Playback) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.playbacks[sessionID] = p
}

// resolveHandles asks C3 which local players a target maps to, and fails
// with ErrNoAudioOutputs when the target resolves to an empty set.
func (h *Handler) resolveHandles(ctx context.Context, tgt model.PlaybackTarget) ([]target.Handle, error) {
	handles, err := target.Resolve(ctx, h.persistence, h.active, tgt)
	if err != nil {
		return nil, err
	}
	if len(handles) == 0 {
		return nil, ErrNoAudioOutputs
	}
	return handles, nil
}

// PlayTracks starts playback of an explicit track list at the given target.
func (h *Handler) PlayTracks(ctx context.Context, sessionID uint64, tgt model.PlaybackTarget, tracks []model.Track, position int, seek float64, volume float64, quality model.PlaybackQuality) error {
	if len(tracks) == 0 {
		return ErrInvalidSource
	}
	handles, err := h.resolveHandles(ctx, tgt)
	if err != nil {
		return err
	}

	p := newPlayback(sessionID, tgt, handles, tracks)
	p.Position = position
	p.Seek = seek
	if volume > 0 {
		p.Volume = volume
	}
	p.Quality = quality
	h.setPlayback(sessionID, p)

	return h.startCurrentTrack(ctx, p)
}

// PlayTrack starts playback of a single resolved track.
func (h *Handler) PlayTrack(ctx context.Context, sessionID uint64, tgt model.PlaybackTarget, track model.Track, seek float64, volume float64, quality model.PlaybackQuality) error {
	return h.PlayTracks(ctx, sessionID, tgt, []model.Track{track}, 0, seek, volume, quality)
}

// PlayAlbum resolves an album's tracks via the MusicApi and starts playback
// of them starting at position.
func (h *Handler) PlayAlbum(ctx context.Context, sessionID uint64, tgt model.PlaybackTarget, albumID model.Id, position int, seek float64, volume float64, quality model.PlaybackQuality) error {
	page, err := h.musicAPI.AlbumTracks(ctx, albumID)
	if err != nil {
		return ErrInvalidSource
	}
	tracks := page.Items()
	if len(tracks) == 0 {
		return ErrInvalidSource
	}
	return h.PlayTracks(ctx, sessionID, tgt, tracks, position, seek, volume, quality)
}

func (h *Handler) startCurrentTrack(ctx context.Context, p *Playback) error {
	p.mu.Lock()
	track, ok := p.currentTrack()
	if !ok {
		p.mu.Unlock()
		return ErrInvalidSource
	}
	p.cancelCurrent()
	cancel := p.cancel
	seek := p.Seek
	quality := p.Quality
	handles := p.Handles
	p.Playing = true
	p.mu.Unlock()

	return withRetry(ctx, h.retry, func() error {
		return h.runner.RunTrack(ctx, p.SessionID, track, seek, quality, handles, cancel)
	})
}

// Stop cancels the current decode and marks the playback stopped.
func (h *Handler) Stop(ctx context.Context, sessionID uint64) error {
	p, ok := h.playbackFor(sessionID)
	if !ok {
		return ErrInvalidState
	}
	p.mu.Lock()
	p.cancelCurrent()
	p.Playing = false
	p.mu.Unlock()
	return nil
}

// Pause cancels the current decode without clearing playlist position,
// leaving Playing false until Resume.
func (h *Handler) Pause(ctx context.Context, sessionID uint64) error {
	return h.Stop(ctx, sessionID)
}

// Resume restarts decode of the current track from its last Seek position.
func (h *Handler) Resume(ctx context.Context, sessionID uint64) error {
	p, ok := h.playbackFor(sessionID)
	if !ok {
		return ErrInvalidState
	}
	return h.startCurrentTrack(ctx, p)
}

// Seek cancels and restarts the current track's decode from pos seconds.
func (h *Handler) Seek(ctx context.Context, sessionID uint64, pos float64) error {
	p, ok := h.playbackFor(sessionID)
	if !ok {
		return ErrInvalidState
	}
	p.mu.Lock()
	p.Seek = pos
	p.mu.Unlock()
	return h.startCurrentTrack(ctx, p)
}

// NextTrack advances Position by one and restarts decode at seekSeconds
// (default 0). Returns ErrInvalidState if already at the last track.
func (h *Handler) NextTrack(ctx context.Context, sessionID uint64, seekSeconds float64) error {
	return h.shiftTrack(ctx, sessionID, 1, seekSeconds)
}

// PreviousTrack rewinds Position by one and restarts decode at seekSeconds
// (default 0). Returns ErrInvalidState if already at the first track.
func (h *Handler) PreviousTrack(ctx context.Context, sessionID uint64, seekSeconds float64) error {
	return h.shiftTrack(ctx, sessionID, -1, seekSeconds)
}

func (h *Handler) shiftTrack(ctx context.Context, sessionID uint64, delta int, seekSeconds float64) error {
	p, ok := h.playbackFor(sessionID)
	if !ok {
		return ErrInvalidState
	}
	p.mu.Lock()
	next := p.Position + delta
	if next < 0 || next >= len(p.Tracks) {
		p.mu.Unlock()
		return ErrInvalidState
	}
	p.Position = next
	p.Seek = seekSeconds
	p.mu.Unlock()
	return h.startCurrentTrack(ctx, p)
}

// PlayerStatus reports the live playback state of every session this
// Handler is driving, per spec §4.5's ApiPlaybackStatus.
func (h *Handler) PlayerStatus() ApiPlaybackStatus {
	h.mu.Lock()
	defer h.mu.Unlock()

	status := ApiPlaybackStatus{Playbacks: make([]ApiPlayback, 0, len(h.playbacks))}
	for sessionID, p := range h.playbacks {
		p.mu.Lock()
		ids := make([]model.Id, 0, len(p.Tracks))
		for _, t := range p.Tracks {
			ids = append(ids, t.ID)
		}
		status.Playbacks = append(status.Playbacks, ApiPlayback{
			SessionID: sessionID,
			Position:  p.Position,
			Seek:      p.Seek,
			Tracks:    ids,
		})
		p.mu.Unlock()
	}
	return status
}

// ApiPlayback reports one session's current playback position.
type ApiPlayback struct {
	SessionID uint64
	Position  int
	Seek      float64
	Tracks    []model.Id
}

// ApiPlaybackStatus is the player-status response of spec §4.5.
type ApiPlaybackStatus struct {
	Playbacks []ApiPlayback
}

// UpdatePlaybackRequest mirrors spec §4.5's update_playback: every optional
// field absent (nil) means "no change." TriggerSessionUpdate+HandleUpdate
// together gate whether this update is echoed to the websocket side (C6) —
// set HandleUpdate false when the update originated from the server itself,
// to avoid echo storms.
type UpdatePlaybackRequest struct {
	SessionID            uint64
	TriggerSessionUpdate bool
	HandleUpdate         bool

	Play     *bool
	Stop     *bool
	Playing  *bool
	Position *int
	Seek     *float64
	Volume   *float64
	Tracks   []model.Track // non-nil replaces the playlist
	Quality  *model.PlaybackQuality
	Target   *model.PlaybackTarget
}

// UpdatePlayback applies a partial patch to a session's live playback,
// restarting the decode only when the patch actually changes what should be
// playing (position/playlist change, quality codec swap, an explicit seek,
// or an explicit play=true), and publishes the corresponding session update
// when the caller asked for one.
func (h *Handler) UpdatePlayback(ctx context.Context, req UpdatePlaybackRequest) error {
	p, ok := h.playbackFor(req.SessionID)
	if !ok {
		return ErrInvalidState
	}

	if req.Target != nil {
		handles, err := h.resolveHandles(ctx, *req.Target)
		if err != nil {
			return err
		}
		p.mu.Lock()
		p.Target = *req.Target
		p.Handles = handles
		p.mu.Unlock()
	}

	restart := false

	p.mu.Lock()
	if req.Tracks != nil {
		p.Tracks = req.Tracks
		restart = true
	}
	if req.Position != nil && *req.Position != p.Position {
		p.Position = *req.Position
		restart = true
	}
	if req.Seek != nil {
		p.Seek = *req.Seek
		restart = true
	} else if restart {
		p.Seek = 0
	}
	if req.Volume != nil {
		p.Volume = *req.Volume
	}
	if req.Quality != nil {
		if req.Quality.Format != p.Quality.Format {
			restart = true
		}
		p.Quality = *req.Quality
	}
	if req.Play != nil && *req.Play {
		restart = true
	}
	stopping := req.Stop != nil && *req.Stop
	if stopping {
		p.cancelCurrent()
		p.Playing = false
		restart = false
	}
	p.mu.Unlock()

	var err error
	if restart {
		err = h.startCurrentTrack(ctx, p)
	}

	if req.TriggerSessionUpdate && req.HandleUpdate && h.publisher != nil {
		update := model.UpdateSession{
			SessionID:      req.SessionID,
			PlaybackTarget: req.Target,
			Play:           req.Play,
			Stop:           req.Stop,
			Playing:        req.Playing,
			Volume:         req.Volume,
			Seek:           req.Seek,
			Quality:        req.Quality,
		}
		if req.Position != nil {
			pos := uint16(*req.Position)
			update.Position = &pos
		}
		if pubErr := h.publisher.PublishSessionUpdate(ctx, update); pubErr != nil && err == nil {
			err = pubErr
		}
	}

	return err
}
