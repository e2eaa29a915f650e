package db

import (
	"context"
	"sync"
	"testing"

	"mesure/fieldcap/internal/geo"
)

func newCalibratedSession(t *testing.T, d *DB, origin geo.Vector3) Session {
	t.Helper()
	ctx := context.Background()
	if _, err := d.CreateOrGetSite(ctx, testSite("A1")); err != nil {
		t.Fatal(err)
	}
	s, err := d.CreateSession(ctx, "A1")
	if err != nil {
		t.Fatal(err)
	}
	if err := d.CalibrateSession(ctx, s.ID, origin, geo.Identity); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestAppendPoint_FirstAndChained(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	origin := geo.Vector3{X: 0, Y: 0, Z: 0}
	s := newCalibratedSession(t, d, origin)

	first, err := d.AppendPoint(ctx, s.ID, geo.Vector3{X: 1, Y: 0, Z: 0}, origin, "Point 1")
	if err != nil {
		t.Fatalf("first append: %v", err)
	}
	if first.OrderIndex != 0 {
		t.Errorf("first order index: got %d, want 0", first.OrderIndex)
	}
	if first.RelativeToOrigin != (geo.Vector3{X: 1, Y: 0, Z: 0}) {
		t.Errorf("first relative to origin: got %v", first.RelativeToOrigin)
	}
	if first.Chain != nil {
		t.Errorf("first point must have no chain link, got %+v", first.Chain)
	}
	if first.ID == 0 {
		t.Error("append must return the generated id")
	}

	second, err := d.AppendPoint(ctx, s.ID, geo.Vector3{X: 1, Y: 1, Z: 0}, origin, "Point 2")
	if err != nil {
		t.Fatalf("second append: %v", err)
	}
	if second.OrderIndex != 1 {
		t.Errorf("second order index: got %d, want 1", second.OrderIndex)
	}
	if second.RelativeToOrigin != (geo.Vector3{X: 1, Y: 1, Z: 0}) {
		t.Errorf("second relative to origin: got %v", second.RelativeToOrigin)
	}
	if second.Chain == nil {
		t.Fatal("second point must be chained")
	}
	if second.Chain.PreviousID != first.ID {
		t.Errorf("previous id: got %d, want %d", second.Chain.PreviousID, first.ID)
	}
	if second.Chain.Offset != (geo.Vector3{X: 0, Y: 1, Z: 0}) {
		t.Errorf("offset: got %v, want (0,1,0)", second.Chain.Offset)
	}
	if second.Chain.Distance != 1.0 {
		t.Errorf("distance: got %v, want 1.0", second.Chain.Distance)
	}
}

func TestAppendPoint_RoundTripsThroughStore(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	origin := geo.Vector3{X: 2, Y: 0, Z: 1}
	s := newCalibratedSession(t, d, origin)

	inserted, err := d.AppendPoint(ctx, s.ID, geo.Vector3{X: 5, Y: 5, Z: 5}, origin, "Point 1")
	if err != nil {
		t.Fatal(err)
	}

	stored, err := d.GetPoint(ctx, inserted.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored == nil {
		t.Fatal("point not found after append")
	}
	if *stored != inserted {
		t.Errorf("round trip mismatch:\ninserted %+v\nstored   %+v", inserted, *stored)
	}
	if stored.RelativeToOrigin != (geo.Vector3{X: 3, Y: 5, Z: 4}) {
		t.Errorf("relative to origin: got %v, want (3,5,4)", stored.RelativeToOrigin)
	}
}

func TestAppendPoint_GaplessRunAndOrderedReads(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	origin := geo.Zero
	s := newCalibratedSession(t, d, origin)

	for i := 0; i < 5; i++ {
		if _, err := d.AppendPoint(ctx, s.ID, geo.Vector3{X: float32(i), Y: 0, Z: 0}, origin, "p"); err != nil {
			t.Fatal(err)
		}
	}

	points, err := d.PointsForSession(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 5 {
		t.Fatalf("want 5 points, got %d", len(points))
	}
	for i, p := range points {
		if p.OrderIndex != i {
			t.Errorf("points[%d].OrderIndex = %d", i, p.OrderIndex)
		}
		if i > 0 && p.Chain.PreviousID != points[i-1].ID {
			t.Errorf("broken chain at index %d", i)
		}
	}

	last, err := d.LastPointForSession(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if last.OrderIndex != 4 {
		t.Errorf("last point index: got %d, want 4", last.OrderIndex)
	}
}

func TestDeletePoint_NoRenumbering(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	origin := geo.Zero
	s := newCalibratedSession(t, d, origin)

	var ids []int64
	for i := 0; i < 3; i++ {
		p, err := d.AppendPoint(ctx, s.ID, geo.Vector3{X: float32(i), Y: 0, Z: 0}, origin, "p")
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, p.ID)
	}

	if err := d.DeletePoint(ctx, ids[0]); err != nil {
		t.Fatal(err)
	}

	points, err := d.PointsForSession(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 2 {
		t.Fatalf("want 2 points, got %d", len(points))
	}
	if points[0].OrderIndex != 1 || points[1].OrderIndex != 2 {
		t.Errorf("indices renumbered after delete: %d, %d", points[0].OrderIndex, points[1].OrderIndex)
	}

	// The next index is the current count, not max+1: after deleting
	// one of three points the count is 2, so the new point gets 2 even
	// though an index 2 already exists.
	next, err := d.AppendPoint(ctx, s.ID, geo.Vector3{X: 9, Y: 0, Z: 0}, origin, "p")
	if err != nil {
		t.Fatal(err)
	}
	if next.OrderIndex != 2 {
		t.Errorf("next index after delete: got %d, want 2", next.OrderIndex)
	}
}

func TestAppendPoint_Concurrent(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	origin := geo.Zero
	s := newCalibratedSession(t, d, origin)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := d.AppendPoint(ctx, s.ID, geo.Vector3{X: float32(i), Y: 0, Z: 0}, origin, "")
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent append: %v", err)
		}
	}

	points, err := d.PointsForSession(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != n {
		t.Fatalf("want %d points, got %d", n, len(points))
	}
	labels := make(map[string]bool)
	for i, p := range points {
		if p.OrderIndex != i {
			t.Errorf("sequence not gapless at %d: got %d", i, p.OrderIndex)
		}
		if i == 0 {
			if p.Chain != nil {
				t.Error("first point must be unchained")
			}
		} else if p.Chain == nil || p.Chain.PreviousID != points[i-1].ID {
			t.Errorf("chain broken at index %d", i)
		}
		// Auto labels come from the transactional count, so even racing
		// appends must never mint a duplicate.
		if labels[p.Label] {
			t.Errorf("duplicate auto label %q", p.Label)
		}
		labels[p.Label] = true
	}
}

func TestAppendPoint_AutoLabel(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	origin := geo.Zero
	s := newCalibratedSession(t, d, origin)

	first, err := d.AppendPoint(ctx, s.ID, geo.Vector3{X: 1, Y: 0, Z: 0}, origin, "")
	if err != nil {
		t.Fatal(err)
	}
	if first.Label != "Point 1" {
		t.Errorf("auto label: got %q, want Point 1", first.Label)
	}

	named, err := d.AppendPoint(ctx, s.ID, geo.Vector3{X: 2, Y: 0, Z: 0}, origin, "Corner NW")
	if err != nil {
		t.Fatal(err)
	}
	if named.Label != "Corner NW" {
		t.Errorf("explicit label overridden: got %q", named.Label)
	}

	third, err := d.AppendPoint(ctx, s.ID, geo.Vector3{X: 3, Y: 0, Z: 0}, origin, "")
	if err != nil {
		t.Fatal(err)
	}
	if third.Label != "Point 3" {
		t.Errorf("auto label after named point: got %q, want Point 3", third.Label)
	}
}

func TestCascadeDeletes(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	origin := geo.Zero
	s := newCalibratedSession(t, d, origin)

	for i := 0; i < 3; i++ {
		if _, err := d.AppendPoint(ctx, s.ID, geo.Vector3{X: float32(i), Y: 0, Z: 0}, origin, "p"); err != nil {
			t.Fatal(err)
		}
	}

	// Deleting the session removes its points.
	if err := d.DeleteSession(ctx, s.ID); err != nil {
		t.Fatal(err)
	}
	count, err := d.PointCountForSession(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("points survived session delete: %d", count)
	}

	// Deleting the site removes its sessions and, transitively, points.
	s2, err := d.CreateSession(ctx, "A1")
	if err != nil {
		t.Fatal(err)
	}
	if err := d.CalibrateSession(ctx, s2.ID, origin, geo.Identity); err != nil {
		t.Fatal(err)
	}
	if _, err := d.AppendPoint(ctx, s2.ID, geo.Vector3{X: 1, Y: 2, Z: 3}, origin, "p"); err != nil {
		t.Fatal(err)
	}

	if err := d.DeleteSite(ctx, "A1"); err != nil {
		t.Fatal(err)
	}
	sessions, err := d.SessionsForSite(ctx, "A1")
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 0 {
		t.Errorf("sessions survived site delete: %+v", sessions)
	}
	count, err = d.PointCountForSession(ctx, s2.ID)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("points survived site delete: %d", count)
	}
}
