// ABOUTME: Per session/target mutable playback state plus the DecodeRunner interface
// ABOUTME: One *Playback lives per (session, target) pair, owned exclusively by its Handler entry
package playback

import (
	"context"
	"sync"

	"github.com/resonatefm/sessioncore/internal/decode"
	"github.com/resonatefm/sessioncore/internal/model"
	"github.com/resonatefm/sessioncore/internal/target"
)

// Playback is the live state one session/target pair drives a decode with.
// Handler holds the only *Playback for a given session; callers reach it
// exclusively through Handler's methods.
type Playback struct {
	mu sync.Mutex

	SessionID uint64
	Target    model.PlaybackTarget
	Handles   []target.Handle

	Tracks   []model.Track
	Position int
	Seek     float64
	Volume   float64
	Quality  model.PlaybackQuality
	Playing  bool

	cancel *decode.CancellationToken
}

func newPlayback(sessionID uint64, tgt model.PlaybackTarget, handles []target.Handle, tracks []model.Track) *Playback {
	return &Playback{
		SessionID: sessionID,
		Target:    tgt,
		Handles:   handles,
		Tracks:    tracks,
		Volume:    1.0,
	}
}

// currentTrack returns the track at Position, or false if Position is out
// of range (e.g. an empty playlist).
func (p *Playback) currentTrack() (model.Track, bool) {
	if p.Position < 0 || p.Position >= len(p.Tracks) {
		return model.Track{}, false
	}
	return p.Tracks[p.Position], true
}

// cancelCurrent cancels any in-flight decode for this playback and installs
// a fresh cancellation token for the next one.
func (p *Playback) cancelCurrent() {
	if p.cancel != nil {
		p.cancel.Cancel()
	}
	p.cancel = decode.NewCancellationToken()
}

// DecodeRunner abstracts the actual decode.Decode invocation for one track,
// so Handler does not need to know how FormatReaders/sinks are constructed.
// Production wiring resolves the track's source via adapters.MusicApi and
// builds a decode.Options from it; tests substitute a fake.
type DecodeRunner interface {
	RunTrack(ctx context.Context, sessionID uint64, track model.Track, seekSeconds float64, quality model.PlaybackQuality, handles []target.Handle, cancel *decode.CancellationToken) error
}
