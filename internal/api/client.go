// Package api is the client for the positioning backend REST API
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/beaconmap/beaconmap-go/internal/geo"
	"github.com/beaconmap/beaconmap-go/internal/metrics"
)

// DefaultBasePath is the API prefix served by the backend
const DefaultBasePath = "/api/v1"

var (
	// ErrNotFound is returned when the backend answers 404
	ErrNotFound = errors.New("not found")
	// ErrNoTrack is returned by LatestPosition when the device has no track yet
	ErrNoTrack = errors.New("no track yet")
)

// StatusError is returned for unexpected HTTP status codes
type StatusError struct {
	Code     int
	Endpoint string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Endpoint, e.Code)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Code == http.StatusNotFound
}

// Health is the /health response
type Health struct {
	Status string `json:"status"`
}

// OK reports whether the backend considers itself healthy
func (h Health) OK() bool { return h.Status == "ok" }

// Info is the /info response
type Info struct {
	Team        string `json:"team"`
	BeaconsFile string `json:"beacons_file"`
	PathFile    string `json:"path_file"`
}

// TrackResponse is the /tracks/{id} response
type TrackResponse struct {
	DeviceID string           `json:"device_id"`
	Track    []geo.Coordinate `json:"track"`
}

// Client talks to the backend
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for request diagnostics
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for baseURL, e.g. http://localhost:8000/api/v1
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL builds the API root from host, port and base path
func BaseURL(host string, port int, basePath string) string {
	if basePath == "" {
		basePath = DefaultBasePath
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	return fmt.Sprintf("http://%s:%d%s", host, port, strings.TrimRight(basePath, "/"))
}

// BaseURL returns the API root the client uses
func (c *Client) BaseURL() string { return c.baseURL }

// Beacons fetches the beacon map (id -> [x, y]). Entries that are not a pair
// of finite numbers are skipped. The result is ordered by id.
func (c *Client) Beacons(ctx context.Context) ([]geo.Beacon, error) {
	var raw map[string]json.RawMessage
	if err := c.getJSON(ctx, "beacons", "/beacons", &raw); err != nil {
		return nil, err
	}

	coords := make(map[string]geo.Coordinate, len(raw))
	for id, msg := range raw {
		pos, ok := parseBeaconPosition(msg)
		if !ok {
			continue
		}
		coords[id] = pos
	}
	if skipped := len(raw) - len(coords); skipped > 0 {
		c.logger.Warn("skipped malformed beacons", "count", skipped)
	}
	return geo.BeaconsFromMap(coords), nil
}

// parseBeaconPosition accepts [x, y] pairs and {"x":..,"y":..} objects
func parseBeaconPosition(msg json.RawMessage) (geo.Coordinate, bool) {
	var pair []float64
	if err := json.Unmarshal(msg, &pair); err == nil {
		if len(pair) != 2 {
			return geo.Coordinate{}, false
		}
		c := geo.Coordinate{X: pair[0], Y: pair[1]}
		return c, c.Valid()
	}

	var obj struct {
		X *float64 `json:"x"`
		Y *float64 `json:"y"`
	}
	if err := json.Unmarshal(msg, &obj); err == nil && obj.X != nil && obj.Y != nil {
		c := geo.Coordinate{X: *obj.X, Y: *obj.Y}
		return c, c.Valid()
	}
	return geo.Coordinate{}, false
}

// StandardPath fetches the reference path
func (c *Client) StandardPath(ctx context.Context) ([]geo.Coordinate, error) {
	var path []geo.Coordinate
	if err := c.getJSON(ctx, "path", "/path/standard", &path); err != nil {
		return nil, err
	}
	return geo.ValidCoordinates(path), nil
}

// Track fetches the full track response for a device
func (c *Client) Track(ctx context.Context, deviceID string) (*TrackResponse, error) {
	var resp TrackResponse
	if err := c.getJSON(ctx, "track", "/tracks/"+url.PathEscape(deviceID), &resp); err != nil {
		return nil, err
	}
	resp.Track = geo.ValidCoordinates(resp.Track)
	return &resp, nil
}

// FetchTrack returns the track points for a device
func (c *Client) FetchTrack(ctx context.Context, deviceID string) ([]geo.Coordinate, error) {
	resp, err := c.Track(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	return resp.Track, nil
}

// LatestPosition fetches the last known position of a device
func (c *Client) LatestPosition(ctx context.Context, deviceID string) (geo.Coordinate, error) {
	var pos geo.Coordinate
	err := c.getJSON(ctx, "latest", "/tracks/"+url.PathEscape(deviceID)+"/latest", &pos)
	if errors.Is(err, ErrNotFound) {
		return geo.Coordinate{}, ErrNoTrack
	}
	if err != nil {
		return geo.Coordinate{}, err
	}
	if !pos.Valid() {
		return geo.Coordinate{}, fmt.Errorf("latest position for %s is not finite", deviceID)
	}
	return pos, nil
}

// ClearTrack deletes the stored track of a device
func (c *Client) ClearTrack(ctx context.Context, deviceID string) error {
	var resp struct {
		Status string `json:"status"`
	}
	return c.doJSON(ctx, http.MethodDelete, "clear", "/tracks/"+url.PathEscape(deviceID), &resp)
}

// ExportPath asks the backend for its computed path file and returns its contents
func (c *Client) ExportPath(ctx context.Context) (string, error) {
	var resp struct {
		Path string `json:"path"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "export", "/path/export", &resp); err != nil {
		return "", err
	}
	return resp.Path, nil
}

// Health checks the backend
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	err := c.getJSON(ctx, "health", "/health", &h)
	return h, err
}

// Info fetches backend metadata
func (c *Client) Info(ctx context.Context) (Info, error) {
	var info Info
	err := c.getJSON(ctx, "info", "/info", &info)
	return info, err
}

func (c *Client) getJSON(ctx context.Context, endpoint, path string, out any) error {
	return c.doJSON(ctx, http.MethodGet, endpoint, path, out)
}

// doJSON performs a request and decodes a JSON body into out. endpoint is a
// short stable name used for metrics and errors.
func (c *Client) doJSON(ctx context.Context, method, endpoint, path string, out any) error {
	start := time.Now()
	status := "error"
	defer func() {
		metrics.ObserveRequest(endpoint, status, time.Since(start))
	}()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	status = strconv.Itoa(resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, Endpoint: endpoint}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	c.logger.Debug("api request", "endpoint", endpoint, "method", method, "elapsed", time.Since(start))
	return nil
}
