// ABOUTME: Connection/player/audio-zone persistence operations
// ABOUTME: RegisterConnection upserts by connection id, idempotent on equal content
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/resonatefm/sessioncore/internal/model"
)

// RegisterConnection upserts a connection by id and upserts each of its
// players. Repeated calls with identical content mutate nothing observable.
func (s *Store) RegisterConnection(ctx context.Context, req model.RegisterConnection) (model.Connection, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Connection{}, err
	}
	defer tx.Rollback() //nolint:errcheck

	now := nowMillis()
	var existingCreated sql.NullInt64
	row := tx.QueryRowContext(ctx, `SELECT created FROM connections WHERE id = ?`, req.ConnectionID)
	err = row.Scan(&existingCreated)
	switch {
	case err == sql.ErrNoRows:
		if _, err := tx.ExecContext(ctx, `INSERT INTO connections (id, name, created, updated) VALUES (?, ?, ?, ?)`,
			req.ConnectionID, req.Name, now, now); err != nil {
			return model.Connection{}, fmt.Errorf("store: insert connection: %w", err)
		}
	case err != nil:
		return model.Connection{}, err
	default:
		if _, err := tx.ExecContext(ctx, `UPDATE connections SET name = ?, updated = ? WHERE id = ? AND name <> ?`,
			req.Name, now, req.ConnectionID, req.Name); err != nil {
			return model.Connection{}, fmt.Errorf("store: update connection: %w", err)
		}
	}

	for _, p := range req.Players {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO players (id, connection_id, name, audio_output_id) VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET connection_id = excluded.connection_id, name = excluded.name, audio_output_id = excluded.audio_output_id`,
			p.ID, req.ConnectionID, p.Name, p.AudioOutputID); err != nil {
			return model.Connection{}, fmt.Errorf("store: upsert player: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return model.Connection{}, err
	}

	return s.GetConnection(ctx, req.ConnectionID)
}

// GetConnection loads a connection and its players.
func (s *Store) GetConnection(ctx context.Context, id string) (model.Connection, error) {
	var conn model.Connection
	row := s.db.QueryRowContext(ctx, `SELECT id, name, created, updated FROM connections WHERE id = ?`, id)
	if err := row.Scan(&conn.ID, &conn.Name, &conn.Created, &conn.Updated); err != nil {
		if err == sql.ErrNoRows {
			return model.Connection{}, &ErrNotFound{What: "connection"}
		}
		return model.Connection{}, err
	}

	players, err := s.getPlayersByConnection(ctx, id)
	if err != nil {
		return model.Connection{}, err
	}
	conn.Players = players
	return conn, nil
}

func (s *Store) getPlayersByConnection(ctx context.Context, connectionID string) ([]model.Player, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, connection_id, name, audio_output_id FROM players WHERE connection_id = ?`, connectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []model.Player
	for rows.Next() {
		var p model.Player
		if err := rows.Scan(&p.ID, &p.ConnectionID, &p.Name, &p.AudioOutputID); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// GetConnections loads every connection.
func (s *Store) GetConnections(ctx context.Context) ([]model.Connection, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM connections ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	conns := make([]model.Connection, 0, len(ids))
	for _, id := range ids {
		conn, err := s.GetConnection(ctx, id)
		if err != nil {
			return nil, err
		}
		conns = append(conns, conn)
	}
	return conns, nil
}

// DeleteConnection cascades to its players.
func (s *Store) DeleteConnection(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM connections WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete connection: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &ErrInvalidRequest{Reason: "connection does not exist"}
	}
	return nil
}

// GetAudioZone loads a zone and its players.
func (s *Store) GetAudioZone(ctx context.Context, id uint64) (model.AudioZone, error) {
	var zone model.AudioZone
	row := s.db.QueryRowContext(ctx, `SELECT id, name FROM audio_zones WHERE id = ?`, id)
	if err := row.Scan(&zone.ID, &zone.Name); err != nil {
		if err == sql.ErrNoRows {
			return model.AudioZone{}, &ErrNotFound{What: "audio_zone"}
		}
		return model.AudioZone{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.connection_id, p.name, p.audio_output_id
		FROM audio_zone_players azp JOIN players p ON p.id = azp.player_id
		WHERE azp.audio_zone_id = ?`, id)
	if err != nil {
		return model.AudioZone{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var p model.Player
		if err := rows.Scan(&p.ID, &p.ConnectionID, &p.Name, &p.AudioOutputID); err != nil {
			return model.AudioZone{}, err
		}
		zone.Players = append(zone.Players, p)
	}
	return zone, rows.Err()
}

// GetAudioZones loads every zone.
func (s *Store) GetAudioZones(ctx context.Context) ([]model.AudioZone, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM audio_zones ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	zones := make([]model.AudioZone, 0, len(ids))
	for _, id := range ids {
		zone, err := s.GetAudioZone(ctx, id)
		if err != nil {
			return nil, err
		}
		zones = append(zones, zone)
	}
	return zones, nil
}
