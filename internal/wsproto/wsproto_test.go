package wsproto

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resonatefm/sessioncore/internal/model"
)

func TestStateMachineValidTransitions(t *testing.T) {
	assert.True(t, StateIdle.CanTransition(StateConnecting))
	assert.True(t, StateConnecting.CanTransition(StateOpen))
	assert.True(t, StateConnecting.CanTransition(StateClosed)) // cancelled
	assert.True(t, StateOpen.CanTransition(StateClosing))
	assert.True(t, StateOpen.CanTransition(StateClosed)) // cancelled
	assert.True(t, StateClosing.CanTransition(StateClosed))
}

func TestStateMachineInvalidTransitions(t *testing.T) {
	assert.False(t, StateIdle.CanTransition(StateOpen))
	assert.False(t, StateClosed.CanTransition(StateIdle))
	assert.False(t, StateOpen.CanTransition(StateConnecting))
}

func TestEncodeParseEnvelopeRoundTrip(t *testing.T) {
	data, err := Encode(TypeSetSeek, SetSeekPayload{SessionID: 3, Seek: 12.5})
	require.NoError(t, err)

	env, err := ParseEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, TypeSetSeek, env.Type)

	var payload SetSeekPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, uint64(3), payload.SessionID)
	assert.Equal(t, 12.5, payload.Seek)
}

func TestParseEnvelopeRejectsMissingType(t *testing.T) {
	_, err := ParseEnvelope([]byte(`{"payload":{}}`))
	assert.Error(t, err)
}

func TestSetSeekPayloadToUpdateSession(t *testing.T) {
	update := SetSeekPayload{SessionID: 9, Seek: 42}.ToUpdateSession()
	assert.Equal(t, uint64(9), update.SessionID)
	require.NotNil(t, update.Seek)
	assert.Equal(t, 42.0, *update.Seek)
	assert.Nil(t, update.Position)
}

func TestUpdateSessionPayloadToModel(t *testing.T) {
	play := true
	payload := UpdateSessionPayload{SessionID: 1, Play: &play}
	update := payload.ToModel()
	assert.Equal(t, uint64(1), update.SessionID)
	require.NotNil(t, update.Play)
	assert.True(t, *update.Play)
}

type fakeSocket struct {
	mu      sync.Mutex
	written [][]byte
	inbound chan []byte
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{inbound: make(chan []byte, 8)}
}

func (s *fakeSocket) ReadMessage() (int, []byte, error) {
	data, ok := <-s.inbound
	if !ok {
		return 0, nil, io.EOF
	}
	return websocket.TextMessage, data, nil
}

func (s *fakeSocket) WriteMessage(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := append([]byte(nil), data...)
	s.written = append(s.written, cp)
	return nil
}

func (s *fakeSocket) WriteControl(messageType int, data []byte, deadline time.Time) error {
	return nil
}

func (s *fakeSocket) Close() error { return nil }

func (s *fakeSocket) snapshotWritten() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.written...)
}

func TestEngineSendBuffersBeforeOpenThenFlushesOnStart(t *testing.T) {
	engine := NewEngine(nil, nil)
	require.NoError(t, engine.Send(TypeGetConnections, struct{}{}))
	assert.Len(t, engine.buffer, 1)

	socket := newFakeSocket()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- engine.Start(ctx, socket) }()

	require.Eventually(t, func() bool { return len(socket.snapshotWritten()) >= 2 }, time.Second, time.Millisecond)

	written := socket.snapshotWritten()
	first, err := ParseEnvelope(written[0])
	require.NoError(t, err)
	assert.Equal(t, TypeGetConnectionID, first.Type)

	second, err := ParseEnvelope(written[1])
	require.NoError(t, err)
	assert.Equal(t, TypeGetConnections, second.Type)

	close(socket.inbound)
	<-done
}

func TestEngineClosedByRemoteTransitionsToClosed(t *testing.T) {
	engine := NewEngine(nil, nil)
	socket := newFakeSocket()
	close(socket.inbound)

	err := engine.Start(context.Background(), socket)
	assert.Error(t, err)
	assert.Equal(t, StateClosed, engine.State())
}

func TestServerEngineSendsConnectionIDDirectly(t *testing.T) {
	engine := NewServerEngine("conn-1", nil, nil)
	socket := newFakeSocket()
	close(socket.inbound)

	_ = engine.Start(context.Background(), socket)

	written := socket.snapshotWritten()
	require.NotEmpty(t, written)
	env, err := ParseEnvelope(written[0])
	require.NoError(t, err)
	assert.Equal(t, TypeConnectionID, env.Type)

	var payload ConnectionIDPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "conn-1", payload.ConnectionID)
}

type fakeSnapshot struct {
	mu               sync.Mutex
	sessionsUpdated  bool
	zoneUpdated      bool
	rebound          int
	reconciled       int
	refreshed        int
}

func (f *fakeSnapshot) UpdateSessionsSnapshot([]model.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessionsUpdated = true
}
func (f *fakeSnapshot) UpdateAudioZoneSnapshot(model.AudioZone, []model.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.zoneUpdated = true
}
func (f *fakeSnapshot) RecomputeZoneBindings() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rebound++
}
func (f *fakeSnapshot) ReconcileConnectionOutputs() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconciled++
}
func (f *fakeSnapshot) RefreshPlaylistViews() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshed++
}

func TestBroadcastSessionsAppliesDisciplineAndListeners(t *testing.T) {
	snap := &fakeSnapshot{}
	engine := NewEngine(nil, snap)

	var gotPayload SessionsPayload
	var listenerCalled bool
	engine.Listeners().OnSessionsUpdated(func(p SessionsPayload) {
		listenerCalled = true
		gotPayload = p
	})

	engine.broadcast(Outbound{Type: TypeSessions, Payload: SessionsPayload{Sessions: []model.Session{{ID: 1}}}})

	assert.True(t, snap.sessionsUpdated)
	assert.Equal(t, 1, snap.rebound)
	assert.Equal(t, 1, snap.reconciled)
	assert.Equal(t, 1, snap.refreshed)
	assert.True(t, listenerCalled)
	assert.Len(t, gotPayload.Sessions, 1)
}

func TestBroadcastAudioZoneAppliesDisciplineAndListeners(t *testing.T) {
	snap := &fakeSnapshot{}
	engine := NewEngine(nil, snap)

	var listenerCalled bool
	engine.Listeners().OnAudioZoneWithSessionsUpdated(func(AudioZoneWithSessionsPayload) { listenerCalled = true })

	engine.broadcast(Outbound{Type: TypeAudioZoneWithSessions, Payload: AudioZoneWithSessionsPayload{AudioZone: model.AudioZone{ID: 2}}})

	assert.True(t, snap.zoneUpdated)
	assert.True(t, listenerCalled)
}
