package capture

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"mesure/fieldcap/internal/db"
	"mesure/fieldcap/internal/geo"
)

// TrackingState is the camera tracking quality reported per frame by
// the AR collaborator.
type TrackingState string

const (
	TrackingNormal  TrackingState = "TRACKING"
	TrackingPaused  TrackingState = "PAUSED"
	TrackingStopped TrackingState = "STOPPED"
)

// PoseSample is one camera pose delivered per frame (30-60Hz).
type PoseSample struct {
	Position geo.Vector3    `json:"position"`
	Rotation geo.Quaternion `json:"rotation"`
	Tracking TrackingState  `json:"tracking"`
}

// AnchorProvider creates visual AR anchors for the origin. It is an
// excluded collaborator: creation failure only skips the marker and
// never aborts calibration.
type AnchorProvider interface {
	CreateAnchor(position geo.Vector3, rotation geo.Quaternion) (Anchor, error)
}

// Snapshot is the UI-facing state of one capture workflow.
type Snapshot struct {
	WorkflowID string `json:"workflow_id"`
	SiteID     string `json:"site_id"`
	SiteName   string `json:"site_name"`
	SessionID  int64  `json:"session_id"`

	IsCalibrated bool        `json:"is_calibrated"`
	Origin       geo.Vector3 `json:"origin"`

	Points     []db.Point `json:"points"`
	PointCount int        `json:"point_count"`

	ReferenceName   string `json:"reference_name"`
	CurrentDistance string `json:"current_distance"`
	TrackingStatus  string `json:"tracking_status"`
	SurfaceCount    int    `json:"surface_count"`
	PlanesDetected  bool   `json:"planes_detected"`
	StatusMessage   string `json:"status_message"`

	Ended bool `json:"ended"`
}

// Workflow drives one active capture session. It owns the Calibrator
// exclusively, mediates all point placement for its session, and
// publishes a Snapshot to subscribers after every state change, in
// commit order. Pose observation is a pure in-memory update and never
// touches the store, so the frame producer is never stalled by I/O.
type Workflow struct {
	ID string

	store   *db.DB
	anchors AnchorProvider

	mu         sync.Mutex
	cal        Calibrator
	site       db.Site
	sessionID  int64
	points     []db.Point
	lastWorld  *geo.Vector3
	distance   string
	reference  string
	tracking   string
	surfaces   int
	planesSeen bool
	status     string
	ended      bool
	subs       map[int]chan Snapshot
	nextSub    int
}

// StartWorkflow loads a resolved site/session pair and returns a live
// workflow. A previously calibrated session restores its origin from
// the store (resume semantics) and its already-captured points.
func StartWorkflow(ctx context.Context, store *db.DB, siteID string, sessionID int64, anchors AnchorProvider) (*Workflow, error) {
	site, err := store.GetSite(ctx, siteID)
	if err != nil {
		return nil, err
	}
	if site == nil {
		return nil, fmt.Errorf("site %s: %w", siteID, db.ErrNotFound)
	}

	session, err := store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.SiteID != siteID {
		return nil, fmt.Errorf("session %d for site %s: %w", sessionID, siteID, db.ErrNotFound)
	}

	points, err := store.PointsForSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	w := &Workflow{
		ID:        uuid.NewString(),
		store:     store,
		anchors:   anchors,
		site:      *site,
		sessionID: sessionID,
		points:    points,
		distance:  "0.00 m",
		reference: site.Name,
		tracking:  "Initializing",
		status:    "Searching for site marker",
		subs:      make(map[int]chan Snapshot),
	}

	if session.IsCalibrated {
		w.cal.SetOrigin(session.Origin, session.OriginRotation, nil)
		w.status = "Calibration restored, ready to place points"
	}
	if n := len(points); n > 0 {
		last := points[n-1]
		w.lastWorld = &last.World
		w.reference = last.Label
	}

	return w, nil
}

// SessionID returns the persisted session this workflow drives.
func (w *Workflow) SessionID() int64 {
	return w.sessionID
}

// Calibrate persists the origin pose for the session and then installs
// it in memory. The write is confirmed before any state changes, so a
// storage failure leaves the workflow uncalibrated. Re-calibration
// overwrites the origin; points stored before it keep the origin they
// were captured against. Anchor creation failure is logged and skipped.
func (w *Workflow) Calibrate(ctx context.Context, position geo.Vector3, rotation geo.Quaternion) error {
	if err := w.store.CalibrateSession(ctx, w.sessionID, position, rotation); err != nil {
		return fmt.Errorf("persisting calibration: %w", err)
	}

	var anchor Anchor
	if w.anchors != nil {
		a, err := w.anchors.CreateAnchor(position, rotation)
		if err != nil {
			log.Printf("capture: anchor creation failed, placing without marker: %v", err)
		} else {
			anchor = a
		}
	}

	w.mu.Lock()
	w.cal.SetOrigin(position, rotation, anchor)
	w.status = "Marker detected, ready to place points"
	w.publishLocked(w.snapshotLocked())
	w.mu.Unlock()

	return nil
}

// ForceCalibrate calibrates from the current camera pose when no marker
// can be hit-tested. Same persistence path as Calibrate.
func (w *Workflow) ForceCalibrate(ctx context.Context, camera PoseSample) error {
	return w.Calibrate(ctx, camera.Position, camera.Rotation)
}

// ResetCalibration clears the in-memory origin only. The persisted
// session keeps its calibration fields until a new Calibrate call
// re-saves them; there is no persisted decalibrate transition.
func (w *Workflow) ResetCalibration() {
	w.mu.Lock()
	w.cal.Reset()
	w.surfaces = 0
	w.status = "Searching for site marker"
	w.publishLocked(w.snapshotLocked())
	w.mu.Unlock()
}

// IsCalibrated reports the in-memory calibration flag.
func (w *Workflow) IsCalibrated() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cal.IsCalibrated()
}

// PlacePoint chains a new world position into the session. It fails
// with ErrNotCalibrated before an origin exists. In-memory state is
// updated only after the store confirms the insert, so a failed write
// leaves the snapshot consistent with what is durable.
func (w *Workflow) PlacePoint(ctx context.Context, world geo.Vector3) (db.Point, error) {
	w.mu.Lock()
	if w.ended {
		w.mu.Unlock()
		return db.Point{}, fmt.Errorf("session %d already ended", w.sessionID)
	}
	if !w.cal.IsCalibrated() {
		w.mu.Unlock()
		return db.Point{}, ErrNotCalibrated
	}
	origin := w.cal.Origin().Position
	w.mu.Unlock()

	// Empty label: the store derives "Point N" from the point count
	// inside the append transaction, keeping auto labels collision-free
	// under concurrent placements.
	point, err := w.store.AppendPoint(ctx, w.sessionID, world, origin, "")
	if err != nil {
		return db.Point{}, fmt.Errorf("placing point: %w", err)
	}

	w.mu.Lock()
	w.points = append(w.points, point)
	w.lastWorld = &point.World
	w.reference = point.Label
	w.status = fmt.Sprintf("%s placed and chained", point.Label)
	w.publishLocked(w.snapshotLocked())
	w.mu.Unlock()

	return point, nil
}

// DeletePoint removes a stored point. Remaining points keep their
// indices and chain links.
func (w *Workflow) DeletePoint(ctx context.Context, id int64) error {
	if err := w.store.DeletePoint(ctx, id); err != nil {
		return err
	}

	w.mu.Lock()
	for i, p := range w.points {
		if p.ID == id {
			w.points = append(w.points[:i], w.points[i+1:]...)
			break
		}
	}
	w.publishLocked(w.snapshotLocked())
	w.mu.Unlock()

	return nil
}

// ObservePose ingests one camera pose sample. It refreshes the HUD
// distance against the last placed point, or the origin when no point
// exists yet, and records the tracking state. Pure in-memory; safe at
// frame rate.
func (w *Workflow) ObservePose(sample PoseSample) {
	w.mu.Lock()
	w.tracking = string(sample.Tracking)

	var reference *geo.Vector3
	if w.lastWorld != nil {
		reference = w.lastWorld
	} else if o := w.cal.Origin(); o != nil {
		reference = &o.Position
	}
	if reference != nil {
		w.distance = geo.FormatDistance(float64(reference.DistanceTo(sample.Position)))
	}
	w.publishLocked(w.snapshotLocked())
	w.mu.Unlock()
}

// SurfacesChanged records the number of detected planes.
func (w *Workflow) SurfacesChanged(count int) {
	w.mu.Lock()
	if count != w.surfaces {
		w.surfaces = count
		if count > 0 && !w.planesSeen {
			w.planesSeen = true
			w.tracking = "Planes detected"
		}
	}
	w.publishLocked(w.snapshotLocked())
	w.mu.Unlock()
}

// Snapshot returns the current UI state.
func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *Workflow) snapshotLocked() Snapshot {
	snap := Snapshot{
		WorkflowID:      w.ID,
		SiteID:          w.site.ID,
		SiteName:        w.site.Name,
		SessionID:       w.sessionID,
		IsCalibrated:    w.cal.IsCalibrated(),
		Points:          append([]db.Point(nil), w.points...),
		PointCount:      len(w.points),
		ReferenceName:   w.reference,
		CurrentDistance: w.distance,
		TrackingStatus:  w.tracking,
		SurfaceCount:    w.surfaces,
		PlanesDetected:  w.planesSeen,
		StatusMessage:   w.status,
		Ended:           w.ended,
	}
	if o := w.cal.Origin(); o != nil {
		snap.Origin = o.Position
	}
	return snap
}

// Subscribe registers a snapshot observer. The channel carries the
// latest snapshot after every mutation, in commit order; a slow reader
// only ever misses intermediate states, never the newest one. The
// returned cancel func closes the channel.
func (w *Workflow) Subscribe() (<-chan Snapshot, func()) {
	w.mu.Lock()
	id := w.nextSub
	w.nextSub++
	ch := make(chan Snapshot, 1)
	w.subs[id] = ch
	ch <- w.snapshotLocked()
	w.mu.Unlock()

	cancel := func() {
		w.mu.Lock()
		if c, ok := w.subs[id]; ok {
			delete(w.subs, id)
			close(c)
		}
		w.mu.Unlock()
	}
	return ch, cancel
}

// publishLocked delivers a snapshot to every subscriber. Callers hold
// w.mu, so deliveries happen in the same order as the state changes
// they reflect; a snapshot built under the lock but sent after it could
// overtake a newer one. Coalescing keeps this non-blocking: an unread
// older snapshot is replaced, never waited on.
func (w *Workflow) publishLocked(snap Snapshot) {
	for _, ch := range w.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// End finalizes the capture. The end timestamp is persisted first, with
// a short deadline; only a confirmed stamp tears the workflow down by
// releasing the origin and anchor state and closing all subscriber
// channels. A failed stamp returns the error and leaves the workflow
// live, so End can simply be called again. It never waits on in-flight
// placements; those either committed whole already or are dropped by
// the caller.
func (w *Workflow) End(ctx context.Context) error {
	w.mu.Lock()
	if w.ended {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := w.store.EndSession(ctx, w.sessionID, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("finalizing session %d: %w", w.sessionID, err)
	}

	w.mu.Lock()
	if w.ended {
		w.mu.Unlock()
		return nil
	}
	w.ended = true
	w.cal.Reset()
	subs := w.subs
	w.subs = make(map[int]chan Snapshot)
	w.mu.Unlock()

	for _, ch := range subs {
		close(ch)
	}
	return nil
}
