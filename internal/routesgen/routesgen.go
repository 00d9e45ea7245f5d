// ABOUTME: Builds the websocket routes manifest the gen/clean/dynamic-routes subcommands emit
// ABOUTME: Enumerates wsproto's inbound/outbound type tags for client codegen consumers
package routesgen

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/resonatefm/sessioncore/internal/wsproto"
)

// FileName is the manifest's fixed name inside --output dir.
const FileName = "routes.json"

// Manifest lists every inbound message type this core accepts and every
// outbound type it can send, for a client codegen tool to consume.
type Manifest struct {
	Inbound  []string `json:"inbound"`
	Outbound []string `json:"outbound"`
}

// Build enumerates wsproto's type tags. The list is hand-kept in sync with
// messages.go since Go constants aren't enumerable by reflection.
func Build() Manifest {
	return Manifest{
		Inbound: []string{
			wsproto.TypeGetConnectionID,
			wsproto.TypeRegisterConnection,
			wsproto.TypeRegisterPlayers,
			wsproto.TypeSetActivePlayers,
			wsproto.TypeSetSessionAudioZone,
			wsproto.TypeCreateSession,
			wsproto.TypeUpdateSession,
			wsproto.TypeDeleteSession,
			wsproto.TypeSetSeek,
			wsproto.TypeGetSessions,
			wsproto.TypeGetConnections,
			wsproto.TypeGetAudioZones,
		},
		Outbound: []string{
			wsproto.TypeConnectionID,
			wsproto.TypeConnections,
			wsproto.TypeSessions,
			wsproto.TypeSessionUpdated,
			wsproto.TypeOutboundSetSeek,
			wsproto.TypeAudioZoneWithSessions,
		},
	}
}

// JSON renders the manifest as indented JSON.
func (m Manifest) JSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// WriteFile writes the manifest to dir/routes.json, creating dir if needed,
// and returns the path written.
func WriteFile(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("routesgen: create output dir: %w", err)
	}
	data, err := Build().JSON()
	if err != nil {
		return "", fmt.Errorf("routesgen: marshal manifest: %w", err)
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("routesgen: write %s: %w", path, err)
	}
	return path, nil
}

// RemoveFile removes dir/routes.json if present; missing is not an error.
func RemoveFile(dir string) error {
	err := os.Remove(filepath.Join(dir, FileName))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("routesgen: remove manifest: %w", err)
	}
	return nil
}
