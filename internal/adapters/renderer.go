// ABOUTME: Renderer navigation contract — only what the core must observe
// ABOUTME: UI rendering itself (egui/fltk/HTML) is out of core scope per spec §1
package adapters

import "context"

// ContentKind tags what WaitForNavigation returned.
type ContentKind string

const (
	ContentView ContentKind = "VIEW"
	ContentRaw  ContentKind = "RAW"
	ContentJSON ContentKind = "JSON"
)

// Content is a navigation event surfaced by the renderer.
type Content struct {
	Kind ContentKind
	Body []byte
}

// Renderer exposes only the navigation contract the core needs: only a View
// content is meant to be rendered, others are unexpected and logged.
type Renderer interface {
	WaitForNavigation(ctx context.Context) (*Content, error)
}
