// ABOUTME: External adapter contracts the core consumes (C8)
// ABOUTME: Persistence is satisfied by internal/store; MusicApi/Renderer are slim boundaries
package adapters

import (
	"context"

	"github.com/resonatefm/sessioncore/internal/model"
)

// Persistence is the transactional, cascade-aware session store contract
// from spec §4.2. Every mutation is atomic; partial application is forbidden.
type Persistence interface {
	CreateSession(ctx context.Context, req model.CreateSession) (model.Session, error)
	UpdateSession(ctx context.Context, req model.UpdateSession) (model.Session, error)
	DeleteSession(ctx context.Context, id uint64) error
	GetSession(ctx context.Context, id uint64) (model.Session, error)
	GetSessions(ctx context.Context) ([]model.Session, error)
	GetSessionPlaylist(ctx context.Context, id uint64) (model.SessionPlaylist, error)
	GetSessionActivePlayers(ctx context.Context, id uint64) ([]model.Player, error)
	RegisterConnection(ctx context.Context, req model.RegisterConnection) (model.Connection, error)
	GetConnection(ctx context.Context, id string) (model.Connection, error)
	GetConnections(ctx context.Context) ([]model.Connection, error)
	DeleteConnection(ctx context.Context, id string) error
	GetAudioZone(ctx context.Context, id uint64) (model.AudioZone, error)
	GetAudioZones(ctx context.Context) ([]model.AudioZone, error)
}
