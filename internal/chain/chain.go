// Package chain derives the stored record for a newly captured point
// from the session origin and the previously captured point. It is pure
// computation; the store runs it inside the per-session append
// transaction so the count/last-point reads and the insert are atomic.
package chain

import "mesure/fieldcap/internal/geo"

// Previous identifies the most recently inserted point of a session.
type Previous struct {
	ID    int64
	World geo.Vector3
}

// Link is the chain connection from a point back to its predecessor.
// The three fields are always present together; a first point carries
// no Link at all.
type Link struct {
	PreviousID int64       `json:"previous_point_id"`
	Offset     geo.Vector3 `json:"relative_to_previous"`
	Distance   float32     `json:"distance_to_previous"`
}

// Derived is the computed portion of a point record.
type Derived struct {
	OrderIndex       int
	RelativeToOrigin geo.Vector3
	Link             *Link
}

// Derive computes the full derived record for a new point.
//
// The order index is the session's point count at insert time and is
// never reassigned, so deleting earlier points leaves gaps in the
// numbering by design of the capture log. The origin is frozen into
// RelativeToOrigin here; later re-calibration does not touch points
// already derived. prev is nil for the first point of a session, which
// yields a nil Link.
func Derive(world, origin geo.Vector3, prev *Previous, count int) Derived {
	d := Derived{
		OrderIndex:       count,
		RelativeToOrigin: world.Sub(origin),
	}

	if prev != nil {
		d.Link = &Link{
			PreviousID: prev.ID,
			Offset:     world.Sub(prev.World),
			Distance:   world.DistanceTo(prev.World),
		}
	}

	return d
}
