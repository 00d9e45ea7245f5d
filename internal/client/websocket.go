// ABOUTME: Dials a sessiond /ws endpoint and runs a client-role wsproto.Engine against it
// ABOUTME: Grounded on the teacher's Client.Connect (url.URL build, DefaultDialer.Dial), re-pointed at wsproto
package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/gorilla/websocket"

	"github.com/resonatefm/sessioncore/internal/wsproto"
)

// Dial connects to addr's /ws endpoint and starts a client-role Engine
// against it in the background. gorilla's *websocket.Conn already satisfies
// wsproto.Socket (ReadMessage/WriteMessage/WriteControl/Close), so no socket
// adapter is needed the way the teacher's hand-rolled protocol required.
//
// The returned Engine is already running; callers Send requests through it
// and read replies through whatever Dispatcher they supplied. The returned
// channel receives Engine.Start's terminal error exactly once, when the
// connection closes or ctx is cancelled.
func Dial(ctx context.Context, addr string, dispatcher wsproto.Dispatcher, snapshot wsproto.SnapshotUpdater) (*wsproto.Engine, <-chan error, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws"}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("client: dial %s: %w", u.String(), err)
	}

	engine := wsproto.NewEngine(dispatcher, snapshot)

	done := make(chan error, 1)
	go func() { done <- engine.Start(ctx, conn) }()

	return engine, done, nil
}

// CaptureDispatcher is a client-role wsproto.Dispatcher that has nothing of
// its own to reply with — it exists purely to hand every inbound envelope a
// caller receives (CONNECTION_ID, SESSIONS, SESSION_UPDATED, ...) to a
// channel, which is how cmd/sessionctl waits for the response to a request
// it just sent.
type CaptureDispatcher struct {
	Envelopes chan wsproto.Envelope
}

// NewCaptureDispatcher builds a CaptureDispatcher with a reasonably buffered
// channel; a CLI session is short-lived and low-volume so this never needs
// to be large.
func NewCaptureDispatcher() *CaptureDispatcher {
	return &CaptureDispatcher{Envelopes: make(chan wsproto.Envelope, 32)}
}

func (c *CaptureDispatcher) HandleInbound(ctx context.Context, env wsproto.Envelope) ([]wsproto.Outbound, error) {
	select {
	case c.Envelopes <- env:
	case <-ctx.Done():
	default:
		// drop rather than block the read loop; a CLI session that isn't
		// keeping up with broadcasts has bigger problems than a dropped one.
	}
	return nil, nil
}

var _ wsproto.Dispatcher = (*CaptureDispatcher)(nil)
