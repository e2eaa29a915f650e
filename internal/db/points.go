package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mesure/fieldcap/internal/chain"
	"mesure/fieldcap/internal/geo"
)

const pointColumns = `id, session_id, order_index,
	world_x, world_y, world_z,
	rel_origin_x, rel_origin_y, rel_origin_z,
	previous_point_id, rel_prev_x, rel_prev_y, rel_prev_z,
	distance_to_previous, label, created_at`

// scanPoint scans a row into a Point. The row must have all 16 columns
// in standard order. The chain columns must be all present or all null;
// a torn row is refused.
func scanPoint(scanner interface{ Scan(dest ...any) error }) (Point, error) {
	var p Point
	var prevID sql.NullInt64
	var px, py, pz, dist sql.NullFloat64

	err := scanner.Scan(
		&p.ID, &p.SessionID, &p.OrderIndex,
		&p.World.X, &p.World.Y, &p.World.Z,
		&p.RelativeToOrigin.X, &p.RelativeToOrigin.Y, &p.RelativeToOrigin.Z,
		&prevID, &px, &py, &pz,
		&dist, &p.Label, &p.CreatedAt,
	)
	if err != nil {
		return Point{}, err
	}

	switch {
	case prevID.Valid && px.Valid && py.Valid && pz.Valid && dist.Valid:
		p.Chain = &chain.Link{
			PreviousID: prevID.Int64,
			Offset:     geo.Vector3{X: float32(px.Float64), Y: float32(py.Float64), Z: float32(pz.Float64)},
			Distance:   float32(dist.Float64),
		}
	case !prevID.Valid && !px.Valid && !py.Valid && !pz.Valid && !dist.Valid:
		// first point, no link
	default:
		return Point{}, fmt.Errorf("point %d has torn chain columns", p.ID)
	}

	return p, nil
}

// AppendPoint derives and inserts the next point of a session as one
// atomic unit: the last-point read, the count read and the insert run
// in a single transaction under the session's append lock. Appends to
// different sessions do not contend. An empty label is filled in as
// "Point N" from the count read inside the transaction, so concurrent
// placements never mint the same auto label. Returns the completed
// record including its generated id; on error nothing was committed.
func (d *DB) AppendPoint(ctx context.Context, sessionID int64, world, origin geo.Vector3, label string) (Point, error) {
	lock := d.lockSession(sessionID)
	lock.Lock()
	defer lock.Unlock()

	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return Point{}, fmt.Errorf("beginning append: %w", err)
	}
	defer tx.Rollback()

	prev, err := lastPointTx(tx, ctx, sessionID)
	if err != nil {
		return Point{}, err
	}

	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM points WHERE session_id = ?`, sessionID).Scan(&count); err != nil {
		return Point{}, fmt.Errorf("counting points for session %d: %w", sessionID, err)
	}

	var chainPrev *chain.Previous
	if prev != nil {
		chainPrev = &chain.Previous{ID: prev.ID, World: prev.World}
	}
	derived := chain.Derive(world, origin, chainPrev, count)

	if label == "" {
		label = fmt.Sprintf("Point %d", count+1)
	}

	p := Point{
		SessionID:        sessionID,
		OrderIndex:       derived.OrderIndex,
		World:            world,
		RelativeToOrigin: derived.RelativeToOrigin,
		Chain:            derived.Link,
		Label:            label,
		CreatedAt:        time.Now().UnixMilli(),
	}

	var prevID, px, py, pz, dist any
	if p.Chain != nil {
		prevID = p.Chain.PreviousID
		px, py, pz = p.Chain.Offset.X, p.Chain.Offset.Y, p.Chain.Offset.Z
		dist = p.Chain.Distance
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO points (
			session_id, order_index,
			world_x, world_y, world_z,
			rel_origin_x, rel_origin_y, rel_origin_z,
			previous_point_id, rel_prev_x, rel_prev_y, rel_prev_z,
			distance_to_previous, label, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.SessionID, p.OrderIndex,
		p.World.X, p.World.Y, p.World.Z,
		p.RelativeToOrigin.X, p.RelativeToOrigin.Y, p.RelativeToOrigin.Z,
		prevID, px, py, pz,
		dist, p.Label, p.CreatedAt)
	if err != nil {
		return Point{}, fmt.Errorf("inserting point: %w", err)
	}

	p.ID, err = res.LastInsertId()
	if err != nil {
		return Point{}, fmt.Errorf("reading point id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Point{}, fmt.Errorf("committing point: %w", err)
	}
	return p, nil
}

func lastPointTx(tx *sql.Tx, ctx context.Context, sessionID int64) (*Point, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+pointColumns+` FROM points
		 WHERE session_id = ? ORDER BY order_index DESC LIMIT 1`, sessionID)

	p, err := scanPoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading last point for session %d: %w", sessionID, err)
	}
	return &p, nil
}

// GetPoint returns a point by id, or nil if not found.
func (d *DB) GetPoint(ctx context.Context, id int64) (*Point, error) {
	row := d.conn.QueryRowContext(ctx,
		`SELECT `+pointColumns+` FROM points WHERE id = ?`, id)

	p, err := scanPoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading point %d: %w", id, err)
	}
	return &p, nil
}

// PointsForSession returns a session's points in capture order.
func (d *DB) PointsForSession(ctx context.Context, sessionID int64) ([]Point, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT `+pointColumns+` FROM points
		 WHERE session_id = ? ORDER BY order_index ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []Point
	for rows.Next() {
		p, err := scanPoint(rows)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// LastPointForSession returns the highest-index point of a session, or
// nil if the session has none.
func (d *DB) LastPointForSession(ctx context.Context, sessionID int64) (*Point, error) {
	row := d.conn.QueryRowContext(ctx,
		`SELECT `+pointColumns+` FROM points
		 WHERE session_id = ? ORDER BY order_index DESC LIMIT 1`, sessionID)

	p, err := scanPoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading last point for session %d: %w", sessionID, err)
	}
	return &p, nil
}

// PointCountForSession returns the number of stored points.
func (d *DB) PointCountForSession(ctx context.Context, sessionID int64) (int, error) {
	var count int
	err := d.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM points WHERE session_id = ?`, sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting points for session %d: %w", sessionID, err)
	}
	return count, nil
}

// DeletePoint removes one point. Remaining points keep their order
// indices and chain links; the capture log is append-only apart from
// this.
func (d *DB) DeletePoint(ctx context.Context, id int64) error {
	res, err := d.conn.ExecContext(ctx, `DELETE FROM points WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting point %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("point %d: %w", id, ErrNotFound)
	}
	return nil
}
