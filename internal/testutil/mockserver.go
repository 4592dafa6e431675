// Package testutil provides a fake positioning backend and helpers for tests
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/beaconmap/beaconmap-go/internal/geo"
)

// Track stream message types
const (
	TrackSnapshot = "track:snapshot"
	TrackUpdate   = "track:update"
)

// WebSocketMessage represents a message sent over WebSocket
type WebSocketMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// TrackPayload is the data of track stream messages and the REST track response
type TrackPayload struct {
	DeviceID string           `json:"device_id"`
	Track    []geo.Coordinate `json:"track"`
}

// MockServer implements a fake positioning backend: REST endpoints under
// /api/v1 and a track stream under /ws/tracks/{device}.
type MockServer struct {
	server   *httptest.Server
	upgrader websocket.Upgrader

	mu          sync.RWMutex
	beacons     json.RawMessage
	path        []geo.Coordinate
	pathMissing bool
	exportPath  string
	tracks      map[string][]geo.Coordinate
	trackQueue  map[string][][]geo.Coordinate
	trackDelay  time.Duration
	statusCodes map[string]int
	requests    map[string]int
	wsClients   map[*websocket.Conn]string
}

// NewMockServer creates a mock backend with no data
func NewMockServer() *MockServer {
	return &MockServer{
		beacons:     json.RawMessage(`{}`),
		tracks:      make(map[string][]geo.Coordinate),
		trackQueue:  make(map[string][][]geo.Coordinate),
		statusCodes: make(map[string]int),
		requests:    make(map[string]int),
		wsClients:   make(map[*websocket.Conn]string),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Start starts the server on a loopback port
func (s *MockServer) Start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/health", s.handleHealth)
	mux.HandleFunc("/api/v1/info", s.handleInfo)
	mux.HandleFunc("/api/v1/beacons", s.handleBeacons)
	mux.HandleFunc("/api/v1/path/standard", s.handlePath)
	mux.HandleFunc("/api/v1/path/export", s.handleExport)
	mux.HandleFunc("/api/v1/tracks/", s.handleTracks)
	mux.HandleFunc("/ws/tracks/", s.handleTrackWS)
	s.server = httptest.NewServer(mux)
}

// Stop closes all WebSocket connections and the server
func (s *MockServer) Stop() {
	s.mu.Lock()
	for conn := range s.wsClients {
		conn.Close()
	}
	s.wsClients = make(map[*websocket.Conn]string)
	s.mu.Unlock()

	if s.server != nil {
		s.server.CloseClientConnections()
		s.server.Close()
	}
}

// URL returns the server root, e.g. http://127.0.0.1:34567
func (s *MockServer) URL() string {
	return s.server.URL
}

// APIURL returns the REST root including /api/v1
func (s *MockServer) APIURL() string {
	return s.server.URL + "/api/v1"
}

// HostPort returns the host and port the server listens on
func (s *MockServer) HostPort() (string, int) {
	addr := strings.TrimPrefix(s.server.URL, "http://")
	var host string
	var port int
	i := strings.LastIndex(addr, ":")
	host = addr[:i]
	fmt.Sscanf(addr[i+1:], "%d", &port)
	return host, port
}

// SetBeacons serves beacons as id -> [x, y]
func (s *MockServer) SetBeacons(beacons map[string][2]float64) {
	data, _ := json.Marshal(beacons)
	s.SetRawBeacons(string(data))
}

// SetRawBeacons serves the given JSON document from /beacons
func (s *MockServer) SetRawBeacons(raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beacons = json.RawMessage(raw)
}

// SetPath serves the reference path; nil makes /path/standard answer 404
func (s *MockServer) SetPath(path []geo.Coordinate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.path = path
	s.pathMissing = path == nil
}

// SetExportPath sets the content returned by POST /path/export
func (s *MockServer) SetExportPath(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exportPath = content
}

// SetTrack sets the stored track of a device
func (s *MockServer) SetTrack(deviceID string, track []geo.Coordinate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracks[deviceID] = track
}

// QueueTracks makes successive GET /tracks/{device} calls return the given
// tracks in order; the last one is repeated.
func (s *MockServer) QueueTracks(deviceID string, tracks ...[]geo.Coordinate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trackQueue[deviceID] = tracks
}

// Track returns the stored track of a device
func (s *MockServer) Track(deviceID string) []geo.Coordinate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]geo.Coordinate(nil), s.tracks[deviceID]...)
}

// SetTrackDelay delays every track response
func (s *MockServer) SetTrackDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trackDelay = d
}

// FailEndpoint makes an endpoint (health, info, beacons, path, export, track,
// latest, clear) answer with code; zero restores normal behavior.
func (s *MockServer) FailEndpoint(endpoint string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code == 0 {
		delete(s.statusCodes, endpoint)
		return
	}
	s.statusCodes[endpoint] = code
}

// Requests returns how many requests an endpoint has received
func (s *MockServer) Requests(endpoint string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.requests[endpoint]
}

// StreamClients returns the number of connected track stream clients
func (s *MockServer) StreamClients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.wsClients)
}

// PushTrack stores a track and broadcasts it to stream clients of the device
func (s *MockServer) PushTrack(deviceID string, track []geo.Coordinate) error {
	s.SetTrack(deviceID, track)
	return s.broadcast(deviceID, WebSocketMessage{
		Type: TrackUpdate,
		Data: TrackPayload{DeviceID: deviceID, Track: track},
	})
}

// SendRawMessage sends raw bytes to every stream client
func (s *MockServer) SendRawMessage(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.wsClients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return err
		}
	}
	return nil
}

// DropStreamClients closes every stream connection but keeps serving
func (s *MockServer) DropStreamClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.wsClients {
		conn.Close()
	}
}

// WaitForStreamClients waits until n stream clients are connected
func (s *MockServer) WaitForStreamClients(n int, timeout time.Duration) error {
	return WaitForConditionWithMessage(func() bool {
		return s.StreamClients() >= n
	}, timeout, fmt.Sprintf("waiting for %d stream clients", n))
}

func (s *MockServer) broadcast(deviceID string, msg WebSocketMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	// writes hold the full lock: a websocket.Conn allows one writer
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn, dev := range s.wsClients {
		if dev != deviceID {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return err
		}
	}
	return nil
}

// begin counts the request and reports an injected failure, if any
func (s *MockServer) begin(w http.ResponseWriter, endpoint string) bool {
	s.mu.Lock()
	s.requests[endpoint]++
	code := s.statusCodes[endpoint]
	s.mu.Unlock()
	if code != 0 {
		http.Error(w, http.StatusText(code), code)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (s *MockServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.begin(w, "health") {
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *MockServer) handleInfo(w http.ResponseWriter, r *http.Request) {
	if !s.begin(w, "info") {
		return
	}
	writeJSON(w, map[string]string{
		"team":         "mock",
		"beacons_file": "beacons.csv",
		"path_file":    "out.path",
	})
}

func (s *MockServer) handleBeacons(w http.ResponseWriter, r *http.Request) {
	if !s.begin(w, "beacons") {
		return
	}
	s.mu.RLock()
	data := s.beacons
	s.mu.RUnlock()
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *MockServer) handlePath(w http.ResponseWriter, r *http.Request) {
	if !s.begin(w, "path") {
		return
	}
	s.mu.RLock()
	path, missing := s.path, s.pathMissing
	s.mu.RUnlock()
	if missing {
		http.Error(w, "standard path not found", http.StatusNotFound)
		return
	}
	if path == nil {
		path = []geo.Coordinate{}
	}
	writeJSON(w, path)
}

func (s *MockServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.begin(w, "export") {
		return
	}
	s.mu.RLock()
	content := s.exportPath
	s.mu.RUnlock()
	if content == "" {
		http.Error(w, "path not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]string{"path": content})
}

// handleTracks serves GET/DELETE /tracks/{id} and GET /tracks/{id}/latest
func (s *MockServer) handleTracks(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/tracks/")
	deviceID, latest := strings.CutSuffix(rest, "/latest")

	switch {
	case latest && r.Method == http.MethodGet:
		if !s.begin(w, "latest") {
			return
		}
		track := s.Track(deviceID)
		if len(track) == 0 {
			http.Error(w, "no track yet", http.StatusNotFound)
			return
		}
		writeJSON(w, track[len(track)-1])

	case !latest && r.Method == http.MethodDelete:
		if !s.begin(w, "clear") {
			return
		}
		s.mu.Lock()
		if _, ok := s.tracks[deviceID]; ok {
			s.tracks[deviceID] = []geo.Coordinate{}
		}
		s.mu.Unlock()
		writeJSON(w, map[string]string{"status": "cleared"})

	case !latest && r.Method == http.MethodGet:
		if !s.begin(w, "track") {
			return
		}
		s.mu.Lock()
		delay := s.trackDelay
		if q := s.trackQueue[deviceID]; len(q) > 0 {
			s.tracks[deviceID] = q[0]
			if len(q) > 1 {
				s.trackQueue[deviceID] = q[1:]
			}
		}
		track := s.tracks[deviceID]
		s.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if track == nil {
			track = []geo.Coordinate{}
		}
		writeJSON(w, TrackPayload{DeviceID: deviceID, Track: track})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleTrackWS streams track updates for /ws/tracks/{id}
func (s *MockServer) handleTrackWS(w http.ResponseWriter, r *http.Request) {
	deviceID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/ws/tracks/"), "/")
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.wsClients[conn] = deviceID
	snapshot := TrackPayload{DeviceID: deviceID, Track: s.tracks[deviceID]}
	s.mu.Unlock()

	if snapshot.Track != nil {
		data, _ := json.Marshal(WebSocketMessage{Type: TrackSnapshot, Data: snapshot})
		s.mu.Lock()
		conn.WriteMessage(websocket.TextMessage, data)
		s.mu.Unlock()
	}

	defer func() {
		s.mu.Lock()
		delete(s.wsClients, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	// Read until the client goes away
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
