package capture

import (
	"context"
	"fmt"

	"mesure/fieldcap/internal/db"
	"mesure/fieldcap/internal/scan"
)

// ScanResult is the outcome of resolving a scanned payload into an
// addressable session.
type ScanResult struct {
	Site    db.Site    `json:"site"`
	Session db.Session `json:"session"`
	Resumed bool       `json:"resumed"`
}

// ResolveScan is the single entry point that turns a scan event into a
// site and session. The payload is parsed (ErrMalformedPayload on bad
// input, nothing created), the site is created-or-gotten, and the
// site's latest session is reused when one exists, otherwise a fresh
// uncalibrated session is created. A scan never multiplies sessions.
func ResolveScan(ctx context.Context, d *db.DB, raw string) (ScanResult, error) {
	ident, err := scan.ParsePayload(raw)
	if err != nil {
		return ScanResult{}, err
	}

	site, err := d.CreateOrGetSite(ctx, db.Site{
		ID:         ident.ID,
		Name:       ident.Name,
		Latitude:   ident.Lat,
		Longitude:  ident.Lon,
		RawPayload: raw,
	})
	if err != nil {
		return ScanResult{}, fmt.Errorf("resolving site: %w", err)
	}

	session, err := d.LatestSessionForSite(ctx, site.ID)
	if err != nil {
		return ScanResult{}, fmt.Errorf("resolving session: %w", err)
	}
	if session != nil {
		return ScanResult{Site: site, Session: *session, Resumed: true}, nil
	}

	created, err := d.CreateSession(ctx, site.ID)
	if err != nil {
		return ScanResult{}, fmt.Errorf("creating session: %w", err)
	}
	return ScanResult{Site: site, Session: created}, nil
}

// StartSession forces a fresh session for a known site, bypassing the
// reuse rule of ResolveScan. Used when the operator explicitly begins a
// new survey of a site that already has history.
func StartSession(ctx context.Context, d *db.DB, siteID string) (db.Session, error) {
	site, err := d.GetSite(ctx, siteID)
	if err != nil {
		return db.Session{}, err
	}
	if site == nil {
		return db.Session{}, fmt.Errorf("site %s: %w", siteID, db.ErrNotFound)
	}
	return d.CreateSession(ctx, siteID)
}
