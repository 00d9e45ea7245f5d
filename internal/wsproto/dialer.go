// ABOUTME: Client-side dial loop: connect, run the engine, reconnect with a fixed delay on failure
// ABOUTME: Grounded on the teacher's internal/client.Connect dial call, generalized to retry forever
package wsproto

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// ReconnectDelay is the fixed delay between dial attempts, per spec §5:
// "Websocket connects retry with a 5s delay and no maximum attempt limit
// unless cancelled."
const ReconnectDelay = 5 * time.Second

// RunClient dials wsURL and runs engine against it in a loop, reconnecting
// after ReconnectDelay whenever the connection drops, until ctx is
// cancelled. It never returns an error for ordinary disconnects — only for
// ctx cancellation.
func RunClient(ctx context.Context, engine *Engine, wsURL string, header http.Header) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
		if err != nil {
			if !sleepOrDone(ctx, ReconnectDelay) {
				return ctx.Err()
			}
			continue
		}

		_ = engine.Start(ctx, conn)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !sleepOrDone(ctx, ReconnectDelay) {
			return ctx.Err()
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// BuildClientURL builds the initial-handshake URL of spec §6:
// ?clientId=<id>&sender=true&signature=<token>.
func BuildClientURL(base, clientID, signature string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("clientId", clientID)
	q.Set("sender", "true")
	if signature != "" {
		q.Set("signature", signature)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
