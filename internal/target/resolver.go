// ABOUTME: Maps (session_id, PlaybackTarget) to the local players that must apply it
// ABOUTME: Empty result means the update is a pure state broadcast (spec §4.3)
package target

import (
	"context"

	"github.com/resonatefm/sessioncore/internal/adapters"
	"github.com/resonatefm/sessioncore/internal/model"
)

// Handle identifies one local player a playback update should be applied to.
type Handle struct {
	Player model.Player
}

// ActivePlayers supplies the host's current set of locally-owned players —
// the app state façade (C7) is the concrete provider in production.
type ActivePlayers interface {
	ActivePlayers(ctx context.Context) []model.Player
}

// Resolve returns the PlaybackHandlers (as Handles) that the given target
// should drive, filtered down to players the host actually owns locally.
func Resolve(ctx context.Context, persistence adapters.Persistence, active ActivePlayers, target model.PlaybackTarget) ([]Handle, error) {
	owned := active.ActivePlayers(ctx)

	switch target.Kind {
	case model.TargetAudioZone:
		zone, err := persistence.GetAudioZone(ctx, target.AudioZoneID)
		if err != nil {
			return nil, err
		}
		return intersectByID(zone.Players, owned), nil

	case model.TargetConnectionOutput:
		var matches []Handle
		for _, p := range owned {
			if p.ConnectionID == target.ConnectionID && p.AudioOutputID == target.OutputID {
				matches = append(matches, Handle{Player: p})
			}
		}
		return matches, nil

	default:
		return nil, nil
	}
}

func intersectByID(zonePlayers, owned []model.Player) []Handle {
	ownedByID := make(map[string]model.Player, len(owned))
	for _, p := range owned {
		ownedByID[p.ID] = p
	}

	var handles []Handle
	for _, zp := range zonePlayers {
		if p, ok := ownedByID[zp.ID]; ok {
			handles = append(handles, Handle{Player: p})
		}
	}
	return handles
}
