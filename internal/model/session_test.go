package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func u16(v uint16) *uint16 { return &v }
func f64(v float64) *float64 { return &v }

func track(n int) PlaylistTrack {
	return PlaylistTrack{ID: NewNumberId(SourceLibrary, uint64(n)), Source: SourceLibrary}
}

func TestSessionValidatePositionInBounds(t *testing.T) {
	s := Session{
		Active:   true,
		Position: u16(1),
		Playlist: SessionPlaylist{Tracks: []PlaylistTrack{track(1), track(2)}},
	}
	assert.NoError(t, s.Validate())
}

func TestSessionValidatePositionOutOfBounds(t *testing.T) {
	s := Session{
		Active:   true,
		Position: u16(2),
		Playlist: SessionPlaylist{Tracks: []PlaylistTrack{track(1), track(2)}},
	}
	err := s.Validate()
	assert.Error(t, err)
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
	assert.Equal(t, "position", ve.Field)
}

func TestSessionValidatePositionWithEmptyPlaylist(t *testing.T) {
	s := Session{Active: true, Position: u16(0)}
	err := s.Validate()
	assert.Error(t, err)
}

func TestSessionValidateNegativeSeek(t *testing.T) {
	s := Session{Active: true, Seek: f64(-1)}
	assert.Error(t, s.Validate())
}

func TestSessionValidatePlayingRequiresActive(t *testing.T) {
	s := Session{Active: false, Playing: true}
	err := s.Validate()
	assert.Error(t, err)
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
	assert.Equal(t, "playing", ve.Field)
}

func TestIdEqualityBySourceAndKind(t *testing.T) {
	n := NewNumberId(SourceLibrary, 7)
	s := NewStringId(SourceLibrary, "7")
	assert.False(t, n.Equal(s))
	assert.True(t, n.Equal(NewNumberId(SourceLibrary, 7)))
	assert.False(t, n.Equal(NewNumberId(SourceTidal, 7)))
}

func TestUpdateSessionPlaybackUpdated(t *testing.T) {
	u := UpdateSession{}
	assert.False(t, u.PlaybackUpdated())

	playing := true
	u.Playing = &playing
	assert.True(t, u.PlaybackUpdated())
}

func TestUpdateSessionAudioOutputIDsAudioZone(t *testing.T) {
	target := NewAudioZoneTarget(5)
	u := UpdateSession{PlaybackTarget: &target}

	zones := func(id uint64) (AudioZone, bool) {
		if id != 5 {
			return AudioZone{}, false
		}
		return AudioZone{ID: 5, Players: []Player{{AudioOutputID: "out-a"}, {AudioOutputID: "out-b"}}}, true
	}

	ids := u.AudioOutputIDs(zones)
	assert.Equal(t, []string{"out-a", "out-b"}, ids)
}

func TestUpdateSessionAudioOutputIDsConnectionOutput(t *testing.T) {
	target := NewConnectionOutputTarget("conn-1", "out-x")
	u := UpdateSession{PlaybackTarget: &target}

	ids := u.AudioOutputIDs(func(uint64) (AudioZone, bool) { return AudioZone{}, false })
	assert.Equal(t, []string{"out-x"}, ids)
}
