package appstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resonatefm/sessioncore/internal/model"
)

type recordingSender struct {
	sent []struct {
		msgType string
		payload any
	}
}

func (r *recordingSender) Send(msgType string, payload any) error {
	r.sent = append(r.sent, struct {
		msgType string
		payload any
	}{msgType, payload})
	return nil
}

func TestSendWSMessageBuffersWithoutHandleThenFlushesInOrder(t *testing.T) {
	s := New()

	require.NoError(t, s.SendWSMessage("M1", 1))
	require.NoError(t, s.SendWSMessage("M2", 2))

	sender := &recordingSender{}
	s.SetWSHandle(sender)
	require.NoError(t, s.FlushWSMessageBuffer())

	require.Len(t, sender.sent, 2)
	assert.Equal(t, "M1", sender.sent[0].msgType)
	assert.Equal(t, "M2", sender.sent[1].msgType)
}

func TestSendWSMessageSendsImmediatelyWhenHandleLive(t *testing.T) {
	s := New()
	sender := &recordingSender{}
	s.SetWSHandle(sender)

	require.NoError(t, s.SendWSMessage("M1", 1))
	require.Len(t, sender.sent, 1)

	s.bufMu.RLock()
	defer s.bufMu.RUnlock()
	assert.Empty(t, s.wsMessageBuffer)
}

func TestActivePlayersRoundTrip(t *testing.T) {
	s := New()
	players := []model.Player{{ID: "p1", ConnectionID: "c1"}}
	s.SetActivePlayers(players)

	got := s.ActivePlayers(nil)
	assert.Equal(t, players, got)

	players[0].ID = "mutated"
	assert.Equal(t, "p1", s.ActivePlayers(nil)[0].ID, "caller mutation must not leak into stored state")
}

func TestPendingPlayerSessionsAccumulateAndClear(t *testing.T) {
	s := New()
	s.AddPendingPlayerSession("conn-1", 10)
	s.AddPendingPlayerSession("conn-1", 11)

	assert.ElementsMatch(t, []uint64{10, 11}, s.PendingPlayerSessions("conn-1"))

	cleared := s.ClearPendingPlayerSessions("conn-1")
	assert.ElementsMatch(t, []uint64{10, 11}, cleared)
	assert.Empty(t, s.PendingPlayerSessions("conn-1"))
}

func TestCurrentSessionIDAbsentByDefault(t *testing.T) {
	s := New()
	_, ok := s.CurrentSessionID()
	assert.False(t, ok)

	s.SetCurrentSessionID(42)
	id, ok := s.CurrentSessionID()
	assert.True(t, ok)
	assert.Equal(t, uint64(42), id)
}

func TestPlaybackQualityRoundTrip(t *testing.T) {
	s := New()
	q := model.PlaybackQuality{Format: model.FormatFLAC}
	s.SetPlaybackQuality(q)
	assert.Equal(t, q, s.PlaybackQuality())
}
