package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// scanSite scans a row into a Site. The row must have all 6 columns in standard order.
func scanSite(scanner interface{ Scan(dest ...any) error }) (Site, error) {
	var s Site
	err := scanner.Scan(&s.ID, &s.Name, &s.Latitude, &s.Longitude, &s.CreatedAt, &s.RawPayload)
	return s, err
}

const siteColumns = `id, name, latitude, longitude, created_at, raw_payload`

// CreateOrGetSite inserts the site if its id is unseen and returns the
// canonical stored record either way. A second scan of a known id
// ignores any differing name or coordinates in favor of what is stored.
func (d *DB) CreateOrGetSite(ctx context.Context, site Site) (Site, error) {
	if site.CreatedAt == 0 {
		site.CreatedAt = time.Now().UnixMilli()
	}

	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO sites (id, name, latitude, longitude, created_at, raw_payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, site.ID, site.Name, site.Latitude, site.Longitude, site.CreatedAt, site.RawPayload)
	if err != nil {
		return Site{}, fmt.Errorf("inserting site %s: %w", site.ID, err)
	}

	stored, err := d.GetSite(ctx, site.ID)
	if err != nil {
		return Site{}, err
	}
	if stored == nil {
		return Site{}, fmt.Errorf("site %s vanished after insert", site.ID)
	}
	return *stored, nil
}

// GetSite returns a site by id, or nil if not found.
func (d *DB) GetSite(ctx context.Context, id string) (*Site, error) {
	row := d.conn.QueryRowContext(ctx,
		`SELECT `+siteColumns+` FROM sites WHERE id = ?`, id)

	s, err := scanSite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading site %s: %w", id, err)
	}
	return &s, nil
}

// AllSites returns all sites ordered by creation time descending.
func (d *DB) AllSites(ctx context.Context) ([]Site, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT `+siteColumns+` FROM sites ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sites []Site
	for rows.Next() {
		s, err := scanSite(rows)
		if err != nil {
			return nil, err
		}
		sites = append(sites, s)
	}
	return sites, rows.Err()
}

// DeleteSite removes a site. Its sessions and their points are
// cascade-deleted by SQLite in the same statement.
func (d *DB) DeleteSite(ctx context.Context, id string) error {
	res, err := d.conn.ExecContext(ctx, `DELETE FROM sites WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting site %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("site %s: %w", id, ErrNotFound)
	}
	return nil
}
