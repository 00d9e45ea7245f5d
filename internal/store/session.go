// ABOUTME: Session CRUD operations enforcing the invariants of spec §4.2
// ABOUTME: create/update/delete are each wrapped in one transaction
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/resonatefm/sessioncore/internal/model"
)

func playbackTargetToColumns(t *model.PlaybackTarget) (target, connID, outID sql.NullString, zoneID sql.NullInt64) {
	if t == nil {
		return
	}
	switch t.Kind {
	case model.TargetAudioZone:
		target = sql.NullString{String: string(model.TargetAudioZone), Valid: true}
		zoneID = sql.NullInt64{Int64: int64(t.AudioZoneID), Valid: true}
	case model.TargetConnectionOutput:
		target = sql.NullString{String: string(model.TargetConnectionOutput), Valid: true}
		connID = sql.NullString{String: t.ConnectionID, Valid: true}
		outID = sql.NullString{String: t.OutputID, Valid: true}
	}
	return
}

func playbackTargetFromColumns(target, connID, outID sql.NullString, zoneID sql.NullInt64) *model.PlaybackTarget {
	if !target.Valid {
		return nil
	}
	switch model.PlaybackTargetKind(target.String) {
	case model.TargetAudioZone:
		t := model.NewAudioZoneTarget(uint64(zoneID.Int64))
		return &t
	case model.TargetConnectionOutput:
		t := model.NewConnectionOutputTarget(connID.String, outID.String)
		return &t
	default:
		return nil
	}
}

// CreateSession writes the playlist, playlist tracks and session row in one
// transaction. It writes no active-player bindings; a new session has none.
func (s *Store) CreateSession(ctx context.Context, req model.CreateSession) (model.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Session{}, err
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `INSERT INTO session_playlists DEFAULT VALUES`)
	if err != nil {
		return model.Session{}, fmt.Errorf("store: insert playlist: %w", err)
	}
	playlistID, err := res.LastInsertId()
	if err != nil {
		return model.Session{}, err
	}

	if err := insertPlaylistTracks(ctx, tx, uint64(playlistID), req.PlaylistTracks); err != nil {
		return model.Session{}, err
	}

	var target, connID, outID sql.NullString
	var zoneID sql.NullInt64
	if req.AudioZoneID != nil {
		zoneID = sql.NullInt64{Int64: int64(*req.AudioZoneID), Valid: true}
		target = sql.NullString{String: string(model.TargetAudioZone), Valid: true}
	}

	res, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (name, active, playing, position, seek, volume, playback_target, audio_zone_id, connection_id, output_id, session_playlist_id)
		VALUES (?, 0, 0, NULL, NULL, NULL, ?, ?, ?, ?, ?)`,
		req.Name, target, zoneID, connID, outID, playlistID)
	if err != nil {
		return model.Session{}, fmt.Errorf("store: insert session: %w", err)
	}
	sessionID, err := res.LastInsertId()
	if err != nil {
		return model.Session{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.Session{}, err
	}

	return s.GetSession(ctx, uint64(sessionID))
}

func insertPlaylistTracks(ctx context.Context, tx *sql.Tx, playlistID uint64, tracks []model.PlaylistTrack) error {
	for i, tr := range tracks {
		var data sql.NullString
		if tr.Data != nil {
			data = sql.NullString{String: string(tr.Data), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO session_playlist_tracks (session_playlist_id, track_id, type, data, order_index)
			VALUES (?, ?, ?, ?, ?)`,
			playlistID, tr.ID.String(), string(tr.Source), data, i); err != nil {
			return fmt.Errorf("store: insert playlist track: %w", err)
		}
	}
	return nil
}

// UpdateSession applies a partial patch. Replaces playlist tracks iff the
// playlist field is present; rejects when playlist is absent and none
// exists yet, or when the resolved position would fall outside playlist
// bounds (spec §9: prefer reject over re-clamp on shrink).
func (s *Store) UpdateSession(ctx context.Context, req model.UpdateSession) (model.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Session{}, err
	}
	defer tx.Rollback() //nolint:errcheck

	var playlistID int64
	var curPosition sql.NullInt64
	row := tx.QueryRowContext(ctx, `SELECT session_playlist_id, position FROM sessions WHERE id = ?`, req.SessionID)
	if err := row.Scan(&playlistID, &curPosition); err != nil {
		if err == sql.ErrNoRows {
			return model.Session{}, &ErrNotFound{What: "session"}
		}
		return model.Session{}, err
	}

	trackCount, err := playlistTrackCount(ctx, tx, uint64(playlistID))
	if err != nil {
		return model.Session{}, err
	}

	if req.Playlist != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM session_playlist_tracks WHERE session_playlist_id = ?`, playlistID); err != nil {
			return model.Session{}, fmt.Errorf("store: clear playlist tracks: %w", err)
		}
		if err := insertPlaylistTracks(ctx, tx, uint64(playlistID), req.Playlist.Tracks); err != nil {
			return model.Session{}, err
		}
		trackCount = len(req.Playlist.Tracks)
	} else if trackCount == 0 && req.Position != nil {
		return model.Session{}, &ErrInvalidRequest{Reason: "no playlist exists for session"}
	}

	resolvedPosition := curPosition
	if req.Position != nil {
		resolvedPosition = sql.NullInt64{Int64: int64(*req.Position), Valid: true}
	}
	if resolvedPosition.Valid && (resolvedPosition.Int64 < 0 || int(resolvedPosition.Int64) >= trackCount) {
		return model.Session{}, &ErrInvalidRequest{Reason: "position out of bounds of playlist"}
	}

	if err := applySessionScalarPatch(ctx, tx, req); err != nil {
		return model.Session{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.Session{}, err
	}

	return s.GetSession(ctx, req.SessionID)
}

func playlistTrackCount(ctx context.Context, tx *sql.Tx, playlistID uint64) (int, error) {
	var n int
	row := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM session_playlist_tracks WHERE session_playlist_id = ?`, playlistID)
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func applySessionScalarPatch(ctx context.Context, tx *sql.Tx, req model.UpdateSession) error {
	sets := []string{}
	args := []any{}

	if req.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *req.Name)
	}
	if req.Active != nil {
		sets = append(sets, "active = ?")
		args = append(args, boolToInt(*req.Active))
	}
	if req.Playing != nil {
		sets = append(sets, "playing = ?")
		args = append(args, boolToInt(*req.Playing))
	}
	if req.Position != nil {
		sets = append(sets, "position = ?")
		args = append(args, *req.Position)
	}
	if req.Seek != nil {
		sets = append(sets, "seek = ?")
		args = append(args, *req.Seek)
	}
	if req.Volume != nil {
		sets = append(sets, "volume = ?")
		args = append(args, *req.Volume)
	}
	if req.PlaybackTarget != nil {
		target, connID, outID, zoneID := playbackTargetToColumns(req.PlaybackTarget)
		sets = append(sets, "playback_target = ?", "connection_id = ?", "output_id = ?", "audio_zone_id = ?")
		args = append(args, target, connID, outID, zoneID)
	}

	if req.Stop != nil && *req.Stop {
		sets = append(sets, "playing = 0")
	}
	if req.Play != nil && *req.Play {
		sets = append(sets, "playing = 1", "active = 1")
	}

	if len(sets) == 0 {
		return nil
	}

	query := "UPDATE sessions SET "
	for i, set := range sets {
		if i > 0 {
			query += ", "
		}
		query += set
	}
	query += " WHERE id = ?"
	args = append(args, req.SessionID)

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("store: apply session patch: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// DeleteSession cascade-removes playlist-tracks, the session row, and the
// playlist itself. A second call on the same id returns ErrInvalidRequest.
func (s *Store) DeleteSession(ctx context.Context, id uint64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	var playlistID int64
	row := tx.QueryRowContext(ctx, `SELECT session_playlist_id FROM sessions WHERE id = ?`, id)
	if err := row.Scan(&playlistID); err != nil {
		if err == sql.ErrNoRows {
			return &ErrInvalidRequest{Reason: "session does not exist"}
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: delete session: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM session_playlists WHERE id = ?`, playlistID); err != nil {
		return fmt.Errorf("store: delete playlist: %w", err)
	}

	return tx.Commit()
}

// GetSession loads a session and its playlist.
func (s *Store) GetSession(ctx context.Context, id uint64) (model.Session, error) {
	var sess model.Session
	var position sql.NullInt64
	var seek, volume sql.NullFloat64
	var target, connID, outID sql.NullString
	var zoneID sql.NullInt64
	var active, playing int
	var playlistID int64

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, active, playing, position, seek, volume, playback_target, connection_id, output_id, audio_zone_id, session_playlist_id
		FROM sessions WHERE id = ?`, id)
	if err := row.Scan(&sess.ID, &sess.Name, &active, &playing, &position, &seek, &volume, &target, &connID, &outID, &zoneID, &playlistID); err != nil {
		if err == sql.ErrNoRows {
			return model.Session{}, &ErrNotFound{What: "session"}
		}
		return model.Session{}, err
	}

	sess.Active = active != 0
	sess.Playing = playing != 0
	if position.Valid {
		p := uint16(position.Int64)
		sess.Position = &p
	}
	if seek.Valid {
		sess.Seek = &seek.Float64
	}
	if volume.Valid {
		sess.Volume = &volume.Float64
	}
	sess.PlaybackTarget = playbackTargetFromColumns(target, connID, outID, zoneID)

	playlist, err := s.getPlaylistByID(ctx, uint64(playlistID))
	if err != nil {
		return model.Session{}, err
	}
	sess.Playlist = playlist

	return sess, nil
}

// GetSessions loads every session.
func (s *Store) GetSessions(ctx context.Context) ([]model.Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM sessions ORDER BY id`)
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

	sessions := make([]model.Session, 0, len(ids))
	for _, id := range ids {
		sess, err := s.GetSession(ctx, id)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}

// GetSessionPlaylist loads a session's playlist by session id.
func (s *Store) GetSessionPlaylist(ctx context.Context, id uint64) (model.SessionPlaylist, error) {
	var playlistID int64
	row := s.db.QueryRowContext(ctx, `SELECT session_playlist_id FROM sessions WHERE id = ?`, id)
	if err := row.Scan(&playlistID); err != nil {
		if err == sql.ErrNoRows {
			return model.SessionPlaylist{}, &ErrNotFound{What: "session"}
		}
		return model.SessionPlaylist{}, err
	}
	return s.getPlaylistByID(ctx, uint64(playlistID))
}

func (s *Store) getPlaylistByID(ctx context.Context, playlistID uint64) (model.SessionPlaylist, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT track_id, type, data FROM session_playlist_tracks
		WHERE session_playlist_id = ? ORDER BY order_index`, playlistID)
	if err != nil {
		return model.SessionPlaylist{}, err
	}
	defer rows.Close()

	playlist := model.SessionPlaylist{ID: playlistID}
	for rows.Next() {
		var trackID, typ string
		var data sql.NullString
		if err := rows.Scan(&trackID, &typ, &data); err != nil {
			return model.SessionPlaylist{}, err
		}
		pt := model.PlaylistTrack{
			ID:     model.NewStringId(model.ApiSource(typ), trackID),
			Source: model.ApiSource(typ),
		}
		if data.Valid {
			pt.Data = []byte(data.String)
		}
		playlist.Tracks = append(playlist.Tracks, pt)
	}
	return playlist, rows.Err()
}

// GetSessionActivePlayers loads the players bound to a session.
func (s *Store) GetSessionActivePlayers(ctx context.Context, id uint64) ([]model.Player, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.connection_id, p.name, p.audio_output_id
		FROM active_players ap JOIN players p ON p.id = ap.player_id
		WHERE ap.session_id = ?`, id)
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
