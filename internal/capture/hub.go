package capture

import (
	"context"
	"sync"
	"time"

	"mesure/fieldcap/internal/db"
)

func endSessionNow(ctx context.Context, store *db.DB, sessionID int64) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return store.EndSession(ctx, sessionID, time.Now().UnixMilli())
}

// Hub hands out capture workflows, one per session. The calibration
// state inside a workflow is owned by that single workflow; a repeated
// scan of the same site joins the existing workflow instead of spawning
// a competing one.
type Hub struct {
	store   *db.DB
	anchors AnchorProvider

	mu     sync.Mutex
	active map[int64]*Workflow
}

// NewHub creates a workflow registry over the store. anchors may be nil
// when no AR anchor collaborator is attached.
func NewHub(store *db.DB, anchors AnchorProvider) *Hub {
	return &Hub{
		store:   store,
		anchors: anchors,
		active:  make(map[int64]*Workflow),
	}
}

// Resolve turns a scanned payload into a live workflow: it resolves the
// site/session pair and then joins the session's active workflow or
// starts one.
func (h *Hub) Resolve(ctx context.Context, raw string) (ScanResult, *Workflow, error) {
	res, err := ResolveScan(ctx, h.store, raw)
	if err != nil {
		return ScanResult{}, nil, err
	}

	w, err := h.workflowFor(ctx, res.Site.ID, res.Session.ID)
	if err != nil {
		return ScanResult{}, nil, err
	}
	return res, w, nil
}

func (h *Hub) workflowFor(ctx context.Context, siteID string, sessionID int64) (*Workflow, error) {
	h.mu.Lock()
	if w, ok := h.active[sessionID]; ok {
		h.mu.Unlock()
		return w, nil
	}
	h.mu.Unlock()

	w, err := StartWorkflow(ctx, h.store, siteID, sessionID, h.anchors)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if existing, ok := h.active[sessionID]; ok {
		// Lost the race; the earlier workflow keeps ownership.
		return existing, nil
	}
	h.active[sessionID] = w
	return w, nil
}

// Get returns the active workflow for a session, or nil.
func (h *Hub) Get(sessionID int64) *Workflow {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active[sessionID]
}

// End finalizes and unregisters a session's workflow. Ending a session
// with no active workflow still stamps its end time in the store.
func (h *Hub) End(ctx context.Context, sessionID int64) error {
	h.mu.Lock()
	w := h.active[sessionID]
	delete(h.active, sessionID)
	h.mu.Unlock()

	if w != nil {
		return w.End(ctx)
	}
	return endSessionNow(ctx, h.store, sessionID)
}

// Shutdown ends every active workflow, used on server teardown.
func (h *Hub) Shutdown(ctx context.Context) {
	h.mu.Lock()
	workflows := make([]*Workflow, 0, len(h.active))
	for _, w := range h.active {
		workflows = append(workflows, w)
	}
	h.active = make(map[int64]*Workflow)
	h.mu.Unlock()

	for _, w := range workflows {
		_ = w.End(ctx)
	}
}
