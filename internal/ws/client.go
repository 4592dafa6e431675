// Package ws provides the WebSocket track stream client
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/beaconmap/beaconmap-go/internal/geo"
	"github.com/beaconmap/beaconmap-go/internal/metrics"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	TrackSnapshot MessageType = "track:snapshot"
	TrackUpdate   MessageType = "track:update"
)

var (
	// ErrNotConnected is returned by FetchTrack while the stream is down
	ErrNotConnected = errors.New("track stream not connected")
	// ErrNoData is returned by FetchTrack before the first track message
	ErrNoData = errors.New("no track received yet")
)

// Message represents a WebSocket message from the server
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// TrackData is the payload of track messages
type TrackData struct {
	DeviceID string           `json:"device_id"`
	Track    []geo.Coordinate `json:"track"`
}

// ClientState represents the connection state
type ClientState int

const (
	StateDisconnected ClientState = iota
	StateConnecting
	StateConnected
)

func (s ClientState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Client keeps a WebSocket open to /ws/tracks/{device} and caches the most
// recent track it received. It implements track.Source.
type Client struct {
	host           string
	port           int
	deviceID       string
	reconnectDelay time.Duration
	logger         *slog.Logger

	mu       sync.RWMutex
	state    ClientState
	conn     *websocket.Conn
	latest   []geo.Coordinate
	hasData  bool
	received uint64

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewClient creates a stream client; reconnectDelay is in seconds
func NewClient(host string, port int, deviceID string, reconnectDelay int) *Client {
	delay := time.Duration(reconnectDelay) * time.Second
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	return &Client{
		host:           host,
		port:           port,
		deviceID:       deviceID,
		reconnectDelay: delay,
		logger:         slog.Default(),
		state:          StateDisconnected,
		stopCh:         make(chan struct{}),
	}
}

// SetLogger replaces the client logger
func (c *Client) SetLogger(l *slog.Logger) {
	if l != nil {
		c.logger = l
	}
}

// URL returns the stream endpoint
func (c *Client) URL() string {
	return fmt.Sprintf("ws://%s:%d/ws/tracks/%s", c.host, c.port, url.PathEscape(c.deviceID))
}

// State returns the current connection state
func (c *Client) State() ClientState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsConnected returns true if the client is connected
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// Received returns the number of track messages applied
func (c *Client) Received() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.received
}

// Start begins the connection goroutine
func (c *Client) Start() {
	c.wg.Add(1)
	go c.runConnection()
}

// Stop closes the connection and waits for the reader to exit
func (c *Client) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		c.mu.Lock()
		if c.conn != nil {
			c.conn.Close()
		}
		c.mu.Unlock()
	})
	c.wg.Wait()
}

// FetchTrack returns the cached track. deviceID must match the streamed device.
func (c *Client) FetchTrack(ctx context.Context, deviceID string) ([]geo.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if deviceID != c.deviceID {
		return nil, fmt.Errorf("stream is for device %q, not %q", c.deviceID, deviceID)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != StateConnected {
		return nil, ErrNotConnected
	}
	if !c.hasData {
		return nil, ErrNoData
	}
	return append([]geo.Coordinate(nil), c.latest...), nil
}

func (c *Client) setState(state ClientState) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
	if state == StateConnected {
		metrics.StreamConnected.Set(1)
	} else {
		metrics.StreamConnected.Set(0)
	}
}

func (c *Client) runConnection() {
	defer c.wg.Done()
	defer c.setState(StateDisconnected)

	endpoint := c.URL()
	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		c.setState(StateConnecting)

		dialer := websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		}
		conn, _, err := dialer.Dial(endpoint, nil)
		if err != nil {
			c.setState(StateDisconnected)
			c.logger.Warn("track stream dial failed", "url", endpoint, "error", err)
			if !c.wait() {
				return
			}
			continue
		}

		c.mu.Lock()
		select {
		case <-c.stopCh:
			c.mu.Unlock()
			conn.Close()
			return
		default:
		}
		c.conn = conn
		c.mu.Unlock()

		c.setState(StateConnected)
		c.logger.Info("track stream connected", "url", endpoint)

		c.readLoop(conn)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
		c.setState(StateDisconnected)

		// Wait before reconnecting
		if !c.wait() {
			return
		}
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch MessageType(msg.Type) {
		case TrackSnapshot, TrackUpdate:
		default:
			continue
		}

		td, err := ParseTrack(msg.Data)
		if err != nil {
			c.logger.Debug("skipping malformed track message", "error", err)
			continue
		}
		if td.DeviceID != "" && td.DeviceID != c.deviceID {
			continue
		}

		c.mu.Lock()
		c.latest = geo.ValidCoordinates(td.Track)
		c.hasData = true
		c.received++
		c.mu.Unlock()
	}
}

// wait sleeps for the reconnect delay; it returns false once stopped
func (c *Client) wait() bool {
	select {
	case <-c.stopCh:
		return false
	case <-time.After(c.reconnectDelay):
		return true
	}
}

// ParseTrack parses track message data: either {"device_id", "track"} or a
// bare array of points
func ParseTrack(data json.RawMessage) (*TrackData, error) {
	var td TrackData
	if err := json.Unmarshal(data, &td); err == nil && td.Track != nil {
		return &td, nil
	}

	var list []geo.Coordinate
	if err := json.Unmarshal(data, &list); err == nil && list != nil {
		return &TrackData{Track: list}, nil
	}

	return nil, fmt.Errorf("unable to parse track data")
}
