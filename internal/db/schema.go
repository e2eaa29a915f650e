package db

import "fmt"

// schema holds the three capture tables. Sessions cascade from their
// site and points cascade from their session. order_index is count-at-
// insert and is not unique: deleting an earlier point lets a later
// append legally reuse an index, so appends are serialized per session
// in the store instead of by a constraint.
const schema = `
CREATE TABLE IF NOT EXISTS sites (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	latitude REAL NOT NULL,
	longitude REAL NOT NULL,
	created_at INTEGER NOT NULL,
	raw_payload TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	site_id TEXT NOT NULL REFERENCES sites(id) ON DELETE CASCADE,
	started_at INTEGER NOT NULL,
	ended_at INTEGER,
	origin_x REAL NOT NULL DEFAULT 0,
	origin_y REAL NOT NULL DEFAULT 0,
	origin_z REAL NOT NULL DEFAULT 0,
	origin_qx REAL NOT NULL DEFAULT 0,
	origin_qy REAL NOT NULL DEFAULT 0,
	origin_qz REAL NOT NULL DEFAULT 0,
	origin_qw REAL NOT NULL DEFAULT 1,
	is_calibrated INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_sessions_site ON sessions(site_id);

CREATE TABLE IF NOT EXISTS points (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	order_index INTEGER NOT NULL,
	world_x REAL NOT NULL,
	world_y REAL NOT NULL,
	world_z REAL NOT NULL,
	rel_origin_x REAL NOT NULL,
	rel_origin_y REAL NOT NULL,
	rel_origin_z REAL NOT NULL,
	previous_point_id INTEGER,
	rel_prev_x REAL,
	rel_prev_y REAL,
	rel_prev_z REAL,
	distance_to_previous REAL,
	label TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_points_session ON points(session_id);
CREATE INDEX IF NOT EXISTS idx_points_previous ON points(previous_point_id);
`

func (d *DB) initialize() error {
	if _, err := d.conn.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
