// Package capture owns the in-memory side of an AR capture session:
// origin calibration, the scan-to-session lifecycle, and the workflow
// that turns pose samples and placement requests into stored points and
// HUD snapshots.
package capture

import (
	"errors"

	"mesure/fieldcap/internal/geo"
)

// ErrNotCalibrated is returned when point placement is attempted before
// an origin exists. No write occurs.
var ErrNotCalibrated = errors.New("origin not calibrated")

// Anchor is the handle to an external AR anchor attached to the origin.
// It is optional decoration; calibration never depends on it.
type Anchor interface {
	Detach()
}

// Origin is the calibrated spatial reference of one capture session.
type Origin struct {
	Position geo.Vector3
	Rotation geo.Quaternion
	Anchor   Anchor
}

// Calibrator holds at most one origin for an active capture session.
// It is a plain value store: none of its operations can fail, and it is
// not safe for concurrent use on its own (the owning Workflow guards
// it). Persistence is a separate, explicit call by the owner.
type Calibrator struct {
	origin     *Origin
	calibrated bool
}

// SetOrigin unconditionally replaces any existing origin and marks the
// session calibrated. Calling it again simply re-calibrates.
func (c *Calibrator) SetOrigin(position geo.Vector3, rotation geo.Quaternion, anchor Anchor) {
	c.origin = &Origin{Position: position, Rotation: rotation, Anchor: anchor}
	c.calibrated = true
}

// IsCalibrated reports the in-memory flag only.
func (c *Calibrator) IsCalibrated() bool {
	return c.calibrated
}

// Origin returns the current origin, or nil before calibration.
func (c *Calibrator) Origin() *Origin {
	return c.origin
}

// RelativePosition returns world minus the origin position. Without an
// origin it deliberately degrades to world minus zero instead of
// erroring: callers are expected to gate placement on IsCalibrated
// first, and the HUD keeps working either way.
func (c *Calibrator) RelativePosition(world geo.Vector3) geo.Vector3 {
	if c.origin == nil {
		return world.Sub(geo.Zero)
	}
	return world.Sub(c.origin.Position)
}

// Reset clears the origin and calibration flag, detaching any held
// anchor. Persisted session state is untouched.
func (c *Calibrator) Reset() {
	if c.origin != nil && c.origin.Anchor != nil {
		c.origin.Anchor.Detach()
	}
	c.origin = nil
	c.calibrated = false
}
