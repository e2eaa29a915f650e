package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"mesure/fieldcap/internal/capture"
	"mesure/fieldcap/internal/db"
	"mesure/fieldcap/internal/geo"
)

func newTestServer(t *testing.T) (*httptest.Server, *db.DB) {
	t.Helper()
	store, err := db.OpenDB(filepath.Join(t.TempDir(), "fieldcap.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	hub := capture.NewHub(store, nil)
	mux := http.NewServeMux()
	Register(mux, NewCaptureHandler(hub), NewCatalogHandler(store))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, store
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

const scanPayload = `{"id":"A1","nom":"Field1","lat":1.0,"lon":2.0}`

func doScan(t *testing.T, srv *httptest.Server) capture.ScanResult {
	resp := postJSON(t, srv.URL+"/api/scan", ScanRequest{Payload: scanPayload})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decode[capture.ScanResult](t, resp)
}

func TestScanCalibratePlaceFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	res := doScan(t, srv)
	require.Equal(t, "A1", res.Site.ID)
	require.False(t, res.Session.IsCalibrated)

	// Placing before calibration is rejected as a conflict.
	resp := postJSON(t, srv.URL+"/api/place", PlaceRequest{
		SessionID: res.Session.ID,
		Position:  geo.Vector3{X: 1, Y: 0, Z: 0},
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/calibrate", CalibrateRequest{
		SessionID: res.Session.ID,
		Rotation:  geo.Identity,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decode[capture.Snapshot](t, resp)
	require.True(t, snap.IsCalibrated)

	resp = postJSON(t, srv.URL+"/api/place", PlaceRequest{
		SessionID: res.Session.ID,
		Position:  geo.Vector3{X: 1, Y: 0, Z: 0},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decode[db.Point](t, resp)
	require.Equal(t, 0, first.OrderIndex)
	require.Nil(t, first.Chain)

	resp = postJSON(t, srv.URL+"/api/place", PlaceRequest{
		SessionID: res.Session.ID,
		Position:  geo.Vector3{X: 1, Y: 1, Z: 0},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := decode[db.Point](t, resp)
	require.NotNil(t, second.Chain)
	require.Equal(t, first.ID, second.Chain.PreviousID)
	require.Equal(t, float32(1.0), second.Chain.Distance)

	// Ordered read-back over the catalog surface.
	listResp, err := http.Get(srv.URL + "/api/points?session=" + strconv.FormatInt(res.Session.ID, 10))
	require.NoError(t, err)
	points := decode[[]db.Point](t, listResp)
	require.Len(t, points, 2)
	require.Equal(t, 0, points[0].OrderIndex)
	require.Equal(t, 1, points[1].OrderIndex)
}

func TestScan_MalformedPayload(t *testing.T) {
	srv, store := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/scan", ScanRequest{Payload: "not json"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	sites, err := store.AllSites(context.Background())
	require.NoError(t, err)
	require.Empty(t, sites)
}

func TestPlace_UnknownSession(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/place", PlaceRequest{SessionID: 42})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestPose_UpdatesHUD(t *testing.T) {
	srv, _ := newTestServer(t)
	res := doScan(t, srv)

	resp := postJSON(t, srv.URL+"/api/calibrate", CalibrateRequest{SessionID: res.Session.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/pose", PoseRequest{
		SessionID: res.Session.ID,
		Position:  geo.Vector3{X: 0.5, Y: 0, Z: 0},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decode[capture.Snapshot](t, resp)
	require.Equal(t, "50 cm", snap.CurrentDistance)
}

func TestEndAndDeleteCascade(t *testing.T) {
	srv, store := newTestServer(t)
	res := doScan(t, srv)

	resp := postJSON(t, srv.URL+"/api/calibrate", CalibrateRequest{SessionID: res.Session.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	resp = postJSON(t, srv.URL+"/api/place", PlaceRequest{SessionID: res.Session.ID, Position: geo.Vector3{X: 1, Y: 0, Z: 0}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/end", EndRequest{SessionID: res.Session.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/sites?id=A1", nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, delResp.StatusCode)
	delResp.Body.Close()

	count, err := store.PointCountForSession(context.Background(), res.Session.ID)
	require.NoError(t, err)
	require.Zero(t, count, "site delete must cascade to points")
}

func TestSites_MethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/sites", map[string]string{})
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	resp.Body.Close()
}
