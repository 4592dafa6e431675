package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/beaconmap/beaconmap-go/internal/geo"
	"github.com/beaconmap/beaconmap-go/internal/testutil"
)

func newMock(t *testing.T) (*testutil.MockServer, *Client) {
	t.Helper()
	srv := testutil.NewMockServer()
	srv.Start()
	t.Cleanup(srv.Stop)
	return srv, NewClient(srv.APIURL(), 2*time.Second)
}

func TestBaseURL(t *testing.T) {
	tests := []struct {
		host     string
		port     int
		basePath string
		want     string
	}{
		{"localhost", 8000, "", "http://localhost:8000/api/v1"},
		{"10.0.0.2", 9000, "api/v2/", "http://10.0.0.2:9000/api/v2"},
		{"example", 80, "/", "http://example:80"},
	}
	for _, tt := range tests {
		if got := BaseURL(tt.host, tt.port, tt.basePath); got != tt.want {
			t.Errorf("BaseURL(%q, %d, %q) = %q, want %q", tt.host, tt.port, tt.basePath, got, tt.want)
		}
	}
}

func TestNewClient_TrimsSlash(t *testing.T) {
	c := NewClient("http://x/api/v1/", 0)
	if c.BaseURL() != "http://x/api/v1" {
		t.Errorf("Expected trailing slash trimmed, got %q", c.BaseURL())
	}
}

func TestBeacons(t *testing.T) {
	srv, c := newMock(t)
	srv.SetBeacons(testutil.SampleBeacons())

	beacons, err := c.Beacons(context.Background())
	if err != nil {
		t.Fatalf("Beacons failed: %v", err)
	}
	if len(beacons) != 4 {
		t.Fatalf("Expected 4 beacons, got %d", len(beacons))
	}
	want := testutil.SampleBeaconList()
	for i := range want {
		if beacons[i] != want[i] {
			t.Errorf("beacon %d: got %+v, want %+v", i, beacons[i], want[i])
		}
	}
}

func TestBeacons_SkipsMalformed(t *testing.T) {
	srv, c := newMock(t)
	srv.SetRawBeacons(`{
		"ok": [82.9, 55.0],
		"obj": {"x": 82.8, "y": 54.9},
		"short": [1],
		"text": "nope",
		"null": null,
		"half": {"x": 1}
	}`)

	beacons, err := c.Beacons(context.Background())
	if err != nil {
		t.Fatalf("Beacons failed: %v", err)
	}
	if len(beacons) != 2 {
		t.Fatalf("Expected 2 valid beacons, got %+v", beacons)
	}
	if beacons[0].ID != "obj" || beacons[1].ID != "ok" {
		t.Errorf("Expected beacons sorted by id, got %+v", beacons)
	}
	if beacons[0].Position != (geo.Coordinate{X: 82.8, Y: 54.9}) {
		t.Errorf("Unexpected object position %+v", beacons[0].Position)
	}
}

func TestBeacons_BadDocument(t *testing.T) {
	srv, c := newMock(t)
	srv.SetRawBeacons(`[1, 2, 3]`)
	if _, err := c.Beacons(context.Background()); err == nil {
		t.Error("Expected decode error for non-object document")
	}
}

func TestStandardPath(t *testing.T) {
	srv, c := newMock(t)
	srv.SetPath(testutil.SamplePath())

	path, err := c.StandardPath(context.Background())
	if err != nil {
		t.Fatalf("StandardPath failed: %v", err)
	}
	if len(path) != 5 || path[1] != (geo.Coordinate{X: 82.744, Y: 54.906}) {
		t.Errorf("Unexpected path %v", path)
	}

	srv.SetPath(nil)
	_, err = c.StandardPath(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing path, got %v", err)
	}
}

func TestTrack(t *testing.T) {
	srv, c := newMock(t)
	track := testutil.StraightTrack(82.70, 54.90, 82.74, 54.92, 5)
	srv.SetTrack("phone-1", track)

	resp, err := c.Track(context.Background(), "phone-1")
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if resp.DeviceID != "phone-1" || len(resp.Track) != 5 {
		t.Errorf("Unexpected response %+v", resp)
	}

	points, err := c.FetchTrack(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("FetchTrack failed: %v", err)
	}
	if len(points) != 0 {
		t.Errorf("Expected empty track for unknown device, got %v", points)
	}
}

func TestLatestPosition(t *testing.T) {
	srv, c := newMock(t)

	_, err := c.LatestPosition(context.Background(), "phone-1")
	if !errors.Is(err, ErrNoTrack) {
		t.Errorf("Expected ErrNoTrack, got %v", err)
	}

	srv.SetTrack("phone-1", testutil.StraightTrack(82.70, 54.90, 82.74, 54.92, 3))
	pos, err := c.LatestPosition(context.Background(), "phone-1")
	if err != nil {
		t.Fatalf("LatestPosition failed: %v", err)
	}
	if pos != (geo.Coordinate{X: 82.74, Y: 54.92}) {
		t.Errorf("Expected last point, got %+v", pos)
	}
}

func TestClearTrack(t *testing.T) {
	srv, c := newMock(t)
	srv.SetTrack("phone-1", testutil.StraightTrack(0, 0, 1, 1, 3))

	if err := c.ClearTrack(context.Background(), "phone-1"); err != nil {
		t.Fatalf("ClearTrack failed: %v", err)
	}
	if len(srv.Track("phone-1")) != 0 {
		t.Error("Expected backend track cleared")
	}
	if srv.Requests("clear") != 1 {
		t.Errorf("Expected one DELETE, got %d", srv.Requests("clear"))
	}
}

func TestExportPath(t *testing.T) {
	srv, c := newMock(t)
	if _, err := c.ExportPath(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound before export is ready, got %v", err)
	}

	srv.SetExportPath("54.9 82.7\n54.91 82.71\n")
	content, err := c.ExportPath(context.Background())
	if err != nil {
		t.Fatalf("ExportPath failed: %v", err)
	}
	if !strings.Contains(content, "54.91 82.71") {
		t.Errorf("Unexpected export content %q", content)
	}
}

func TestHealthAndInfo(t *testing.T) {
	srv, c := newMock(t)

	h, err := c.Health(context.Background())
	if err != nil || !h.OK() {
		t.Errorf("Expected healthy backend, got %+v err=%v", h, err)
	}

	info, err := c.Info(context.Background())
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if info.Team != "mock" || info.PathFile != "out.path" {
		t.Errorf("Unexpected info %+v", info)
	}

	srv.FailEndpoint("health", http.StatusServiceUnavailable)
	_, err = c.Health(context.Background())
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("Expected StatusError, got %v", err)
	}
	if se.Code != http.StatusServiceUnavailable || se.Endpoint != "health" {
		t.Errorf("Unexpected status error %+v", se)
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("503 must not match ErrNotFound")
	}
}

func TestRequestHonoursContext(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	c := NewClient(srv.URL, 5*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.FetchTrack(ctx, "phone-1")
	if err == nil {
		t.Fatal("Expected error from cancelled request")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("Request did not stop at context deadline")
	}
}

func TestWithHTTPClient(t *testing.T) {
	hc := &http.Client{Timeout: time.Second}
	c := NewClient("http://x", time.Minute, WithHTTPClient(hc))
	if c.httpClient != hc {
		t.Error("Expected custom HTTP client")
	}
}
