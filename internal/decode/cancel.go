// ABOUTME: Cancellation token shared between the playback handler and its decoder
// ABOUTME: A plain atomic flag — checked, never awaited, inside the packet loop
package decode

import "sync/atomic"

// CancellationToken is a shared boolean cell. Cancel is idempotent; IsCancelled
// is a non-blocking poll safe to call on every loop iteration.
type CancellationToken struct {
	cancelled atomic.Bool
}

// NewCancellationToken returns a fresh, uncancelled token.
func NewCancellationToken() *CancellationToken {
	return &CancellationToken{}
}

// Cancel signals cancellation. Safe to call more than once or concurrently.
func (t *CancellationToken) Cancel() {
	t.cancelled.Store(true)
}

// IsCancelled reports whether Cancel has been called.
func (t *CancellationToken) IsCancelled() bool {
	return t.cancelled.Load()
}
