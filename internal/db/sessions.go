package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mesure/fieldcap/internal/geo"
)

// scanSession scans a row into a Session. The row must have all 12 columns in standard order.
func scanSession(scanner interface{ Scan(dest ...any) error }) (Session, error) {
	var s Session
	err := scanner.Scan(
		&s.ID, &s.SiteID, &s.StartedAt, &s.EndedAt,
		&s.Origin.X, &s.Origin.Y, &s.Origin.Z,
		&s.OriginRotation.X, &s.OriginRotation.Y, &s.OriginRotation.Z, &s.OriginRotation.W,
		&s.IsCalibrated,
	)
	return s, err
}

const sessionColumns = `id, site_id, started_at, ended_at,
	origin_x, origin_y, origin_z,
	origin_qx, origin_qy, origin_qz, origin_qw,
	is_calibrated`

// CreateSession starts a new, uncalibrated session for a site and
// returns it with its generated id.
func (d *DB) CreateSession(ctx context.Context, siteID string) (Session, error) {
	startedAt := time.Now().UnixMilli()

	res, err := d.conn.ExecContext(ctx,
		`INSERT INTO sessions (site_id, started_at) VALUES (?, ?)`,
		siteID, startedAt)
	if err != nil {
		return Session{}, fmt.Errorf("creating session for site %s: %w", siteID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return Session{}, fmt.Errorf("reading session id: %w", err)
	}

	return Session{
		ID:             id,
		SiteID:         siteID,
		StartedAt:      startedAt,
		OriginRotation: geo.Identity,
	}, nil
}

// GetSession returns a session by id, or nil if not found.
func (d *DB) GetSession(ctx context.Context, id int64) (*Session, error) {
	row := d.conn.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)

	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session %d: %w", id, err)
	}
	return &s, nil
}

// LatestSessionForSite returns the most recently started session for a
// site, or nil if the site has none. Callers decide create-vs-reuse.
func (d *DB) LatestSessionForSite(ctx context.Context, siteID string) (*Session, error) {
	row := d.conn.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE site_id = ? ORDER BY started_at DESC, id DESC LIMIT 1`, siteID)

	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading latest session for site %s: %w", siteID, err)
	}
	return &s, nil
}

// SessionsForSite returns a site's sessions, most recent first.
func (d *DB) SessionsForSite(ctx context.Context, siteID string) ([]Session, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE site_id = ? ORDER BY started_at DESC, id DESC`, siteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSessions(rows)
}

// AllSessions returns every session, most recent first.
func (d *DB) AllSessions(ctx context.Context) ([]Session, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions ORDER BY started_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSessions(rows)
}

func collectSessions(rows *sql.Rows) ([]Session, error) {
	var sessions []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// CalibrateSession writes the origin pose and sets the calibrated flag.
// It touches no other session fields. Re-calibration overwrites the
// origin and leaves the flag true; previously stored points keep the
// origin-relative values frozen at their capture time.
func (d *DB) CalibrateSession(ctx context.Context, id int64, origin geo.Vector3, rotation geo.Quaternion) error {
	res, err := d.conn.ExecContext(ctx, `
		UPDATE sessions SET
			is_calibrated = 1,
			origin_x = ?, origin_y = ?, origin_z = ?,
			origin_qx = ?, origin_qy = ?, origin_qz = ?, origin_qw = ?
		WHERE id = ?
	`, origin.X, origin.Y, origin.Z, rotation.X, rotation.Y, rotation.Z, rotation.W, id)
	if err != nil {
		return fmt.Errorf("calibrating session %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %d: %w", id, ErrNotFound)
	}
	return nil
}

// EndSession sets only the end timestamp.
func (d *DB) EndSession(ctx context.Context, id int64, endedAt int64) error {
	res, err := d.conn.ExecContext(ctx,
		`UPDATE sessions SET ended_at = ? WHERE id = ?`, endedAt, id)
	if err != nil {
		return fmt.Errorf("ending session %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %d: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteSession removes a session. Its points are cascade-deleted.
func (d *DB) DeleteSession(ctx context.Context, id int64) error {
	res, err := d.conn.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting session %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %d: %w", id, ErrNotFound)
	}
	return nil
}
