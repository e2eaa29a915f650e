package db

import (
	"mesure/fieldcap/internal/chain"
	"mesure/fieldcap/internal/geo"
)

// Site represents a row in the sites table. The id is the externally
// supplied marker identity; RawPayload preserves the scanned text
// verbatim for audit.
type Site struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	CreatedAt  int64   `json:"created_at"` // Unix millis
	RawPayload string  `json:"raw_payload"`
}

// Session represents a row in the sessions table. Origin fields are
// meaningful only while IsCalibrated is true.
type Session struct {
	ID             int64          `json:"id"`
	SiteID         string         `json:"site_id"`
	StartedAt      int64          `json:"started_at"` // Unix millis
	EndedAt        *int64         `json:"ended_at"`
	Origin         geo.Vector3    `json:"origin"`
	OriginRotation geo.Quaternion `json:"origin_rotation"`
	IsCalibrated   bool           `json:"is_calibrated"`
}

// Point represents a row in the points table. Chain is nil for the
// first point of a session; otherwise it carries the previous-point id,
// offset and distance together, never partially.
type Point struct {
	ID               int64       `json:"id"`
	SessionID        int64       `json:"session_id"`
	OrderIndex       int         `json:"order_index"`
	World            geo.Vector3 `json:"world"`
	RelativeToOrigin geo.Vector3 `json:"relative_to_origin"`
	Chain            *chain.Link `json:"chain"`
	Label            string      `json:"label"`
	CreatedAt        int64       `json:"created_at"` // Unix millis
}
