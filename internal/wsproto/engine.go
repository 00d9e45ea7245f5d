// ABOUTME: Connection lifecycle state machine, FIFO buffering, and broadcast discipline
// ABOUTME: Grounded on the teacher's per-client sendChan/clientWriter/handleConnection split
package wsproto

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/resonatefm/sessioncore/internal/model"
)

const (
	pingInterval   = 30 * time.Second
	writeDeadline  = 10 * time.Second
	controlTimeout = 10 * time.Second
)

// Socket is the subset of *websocket.Conn the engine needs; satisfied
// directly by gorilla/websocket and by fakes in tests.
type Socket interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// Dispatcher handles one decoded inbound envelope and returns zero or more
// outbound envelopes the engine should broadcast in response. Kept separate
// from wsproto itself so this package never imports the store/playback
// layers directly.
type Dispatcher interface {
	HandleInbound(ctx context.Context, env Envelope) ([]Outbound, error)
}

// Outbound is one message a Dispatcher asks the engine to send.
type Outbound struct {
	Type    string
	Payload any
}

// SnapshotUpdater performs the four local-state steps of the broadcast
// discipline (spec §4.6) that precede listener invocation; step 5 (invoking
// listeners) is the engine's own responsibility.
type SnapshotUpdater interface {
	UpdateSessionsSnapshot(sessions []model.Session)
	UpdateAudioZoneSnapshot(zone model.AudioZone, sessions []model.Session)
	RecomputeZoneBindings()
	ReconcileConnectionOutputs()
	RefreshPlaylistViews()
}

// Listeners are invoked, in registration order, as step 5 of the broadcast
// discipline — once per SESSIONS or AUDIO_ZONE_WITH_SESSIONS outbound.
type Listeners struct {
	mu        sync.Mutex
	onSessions []func(SessionsPayload)
	onZone     []func(AudioZoneWithSessionsPayload)
}

func (l *Listeners) OnSessionsUpdated(fn func(SessionsPayload)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onSessions = append(l.onSessions, fn)
}

func (l *Listeners) OnAudioZoneWithSessionsUpdated(fn func(AudioZoneWithSessionsPayload)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onZone = append(l.onZone, fn)
}

func (l *Listeners) invokeSessions(p SessionsPayload) {
	l.mu.Lock()
	fns := append([]func(SessionsPayload){}, l.onSessions...)
	l.mu.Unlock()
	for _, fn := range fns {
		fn(p)
	}
}

func (l *Listeners) invokeZone(p AudioZoneWithSessionsPayload) {
	l.mu.Lock()
	fns := append([]func(AudioZoneWithSessionsPayload){}, l.onZone...)
	l.mu.Unlock()
	for _, fn := range fns {
		fn(p)
	}
}

// Engine drives one websocket connection through the lifecycle state
// machine, buffers outbound messages in FIFO order while not OPEN, and
// applies the broadcast discipline to SESSIONS/AUDIO_ZONE_WITH_SESSIONS.
type Engine struct {
	mu    sync.Mutex
	state State

	socket     Socket
	dispatcher Dispatcher
	snapshot   SnapshotUpdater
	listeners  *Listeners

	buffer   [][]byte // FIFO, queued while not OPEN
	outbound chan []byte

	connectionID string

	// onOpen runs once the connection reaches StateOpen, before the FIFO
	// buffer is flushed. The client role sends GET_CONNECTION_ID here (spec
	// §4.6); the server role already knows the id and sends CONNECTION_ID
	// directly instead.
	onOpen func(*Engine) error
}

// NewEngine wires a client-role Engine in StateIdle: on open it sends
// GET_CONNECTION_ID per spec §4.6. snapshot may be nil if the caller never
// broadcasts SESSIONS/AUDIO_ZONE_WITH_SESSIONS through it.
func NewEngine(dispatcher Dispatcher, snapshot SnapshotUpdater) *Engine {
	return &Engine{
		state:      StateIdle,
		dispatcher: dispatcher,
		snapshot:   snapshot,
		listeners:  &Listeners{},
		outbound:   make(chan []byte, 256),
		onOpen:     func(e *Engine) error { return e.Send(TypeGetConnectionID, struct{}{}) },
	}
}

// NewServerEngine wires a server-role Engine that already knows its
// connectionID: on open it sends CONNECTION_ID directly instead of
// requesting one.
func NewServerEngine(connectionID string, dispatcher Dispatcher, snapshot SnapshotUpdater) *Engine {
	e := NewEngine(dispatcher, snapshot)
	e.connectionID = connectionID
	e.onOpen = func(e *Engine) error {
		return e.Send(TypeConnectionID, ConnectionIDPayload{ConnectionID: connectionID})
	}
	return e
}

func (e *Engine) Listeners() *Listeners { return e.listeners }

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) transition(next State) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.CanTransition(next) {
		return fmt.Errorf("wsproto: illegal transition %s -> %s", e.state, next)
	}
	e.state = next
	return nil
}

// Start attaches socket and runs the connection through CONNECTING -> OPEN,
// running onOpen (GET_CONNECTION_ID in the client role, CONNECTION_ID in the
// server role) and flushing the FIFO buffer on success, then blocks running
// the read loop until ctx is cancelled or the socket closes. Start does not
// itself retry; RunClient loops it with ReconnectDelay between attempts.
func (e *Engine) Start(ctx context.Context, socket Socket) error {
	e.mu.Lock()
	e.socket = socket
	e.mu.Unlock()

	if err := e.transition(StateConnecting); err != nil {
		return err
	}
	if err := e.transition(StateOpen); err != nil {
		return err
	}

	if err := e.onOpen(e); err != nil {
		return err
	}
	e.flushBuffer()

	stopWrite := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		e.writeLoop(ctx, stopWrite)
	}()

	err := e.readLoop(ctx)

	cancelled := ctx.Err() != nil
	if cancelled {
		e.mu.Lock()
		e.state = StateClosed
		e.mu.Unlock()
		close(stopWrite)
		<-writerDone
		return ctx.Err()
	}

	_ = e.transition(StateClosing)
	socket.Close()
	_ = e.transition(StateClosed)
	close(stopWrite)
	<-writerDone
	return err
}

// ConnectionID returns the id this engine has been assigned, once a
// CONNECTION_ID response has been processed.
func (e *Engine) ConnectionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connectionID
}

func (e *Engine) setConnectionID(id string) {
	e.mu.Lock()
	e.connectionID = id
	e.mu.Unlock()
}

// Send encodes and enqueues an outbound message. While the connection is
// not OPEN, messages accumulate in the FIFO buffer instead of being
// dropped; Start flushes the buffer in order once OPEN is reached.
func (e *Engine) Send(msgType string, payload any) error {
	data, err := Encode(msgType, payload)
	if err != nil {
		return err
	}

	e.mu.Lock()
	open := e.state == StateOpen
	e.mu.Unlock()

	if !open {
		e.mu.Lock()
		e.buffer = append(e.buffer, data)
		e.mu.Unlock()
		return nil
	}

	select {
	case e.outbound <- data:
		return nil
	default:
		return fmt.Errorf("wsproto: outbound queue full")
	}
}

func (e *Engine) flushBuffer() {
	e.mu.Lock()
	pending := e.buffer
	e.buffer = nil
	e.mu.Unlock()

	for _, data := range pending {
		select {
		case e.outbound <- data:
		default:
		}
	}
}

func (e *Engine) writeLoop(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case data, ok := <-e.outbound:
			if !ok {
				return
			}
			if err := e.socket.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := e.socket.WriteControl(websocket.PingMessage, nil, time.Now().Add(controlTimeout)); err != nil {
				return
			}
		}
	}
}

// readLoop processes inbound messages strictly in arrival order (spec §5's
// per-connection ordering guarantee) and feeds each to the dispatcher.
func (e *Engine) readLoop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		_, data, err := e.socket.ReadMessage()
		if err != nil {
			return err
		}

		env, err := ParseEnvelope(data)
		if err != nil {
			continue
		}

		if env.Type == TypeConnectionID {
			var p ConnectionIDPayload
			if json.Unmarshal(env.Payload, &p) == nil {
				e.setConnectionID(p.ConnectionID)
			}
		}

		if e.dispatcher == nil {
			continue
		}
		outs, err := e.dispatcher.HandleInbound(ctx, env)
		if err != nil {
			continue
		}
		for _, out := range outs {
			e.broadcast(out)
		}
	}
}

// broadcast applies the discipline of spec §4.6 steps 1-5 for SESSIONS and
// AUDIO_ZONE_WITH_SESSIONS, then sends; all other outbound types are sent
// directly.
func (e *Engine) broadcast(out Outbound) {
	switch out.Type {
	case TypeSessions:
		payload, ok := out.Payload.(SessionsPayload)
		if ok && e.snapshot != nil {
			e.snapshot.UpdateSessionsSnapshot(payload.Sessions)
			e.snapshot.RecomputeZoneBindings()
			e.snapshot.ReconcileConnectionOutputs()
			e.snapshot.RefreshPlaylistViews()
		}
		if ok {
			e.listeners.invokeSessions(payload)
		}
	case TypeAudioZoneWithSessions:
		payload, ok := out.Payload.(AudioZoneWithSessionsPayload)
		if ok && e.snapshot != nil {
			e.snapshot.UpdateAudioZoneSnapshot(payload.AudioZone, payload.Sessions)
			e.snapshot.RecomputeZoneBindings()
			e.snapshot.ReconcileConnectionOutputs()
			e.snapshot.RefreshPlaylistViews()
		}
		if ok {
			e.listeners.invokeZone(payload)
		}
	}

	_ = e.Send(out.Type, out.Payload)
}
