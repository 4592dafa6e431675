// Package metrics exposes Prometheus collectors for the beacon map
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// REST collaborator metrics
	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beaconmap",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Total REST requests issued to the positioning backend",
	}, []string{"endpoint", "status"})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "beaconmap",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "REST request latency in seconds",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"endpoint"})

	// Track synchronizer metrics
	TrackPolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beaconmap",
		Subsystem: "track",
		Name:      "polls_total",
		Help:      "Track polls by result (ok, error)",
	}, []string{"result"})

	TrackResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beaconmap",
		Subsystem: "track",
		Name:      "results_total",
		Help:      "Completed track fetches by outcome (applied, stale)",
	}, []string{"outcome"})

	TrackPoints = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "beaconmap",
		Subsystem: "track",
		Name:      "points",
		Help:      "Number of points in the currently displayed track",
	})

	// Rendering metrics
	OverlayRedraws = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beaconmap",
		Subsystem: "overlay",
		Name:      "redraws_total",
		Help:      "Grid overlay repaints by trigger",
	}, []string{"trigger"})

	OverlaySurfaces = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "beaconmap",
		Subsystem: "overlay",
		Name:      "surfaces_active",
		Help:      "Drawing surfaces currently mounted",
	})

	ViewListeners = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "beaconmap",
		Subsystem: "view",
		Name:      "listeners_active",
		Help:      "View-change subscriptions currently attached",
	})

	// Stream transport metrics
	StreamConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "beaconmap",
		Subsystem: "ws",
		Name:      "connected",
		Help:      "1 while the track stream WebSocket is connected",
	})
)

// ObserveRequest records one REST call
func ObserveRequest(endpoint, status string, elapsed time.Duration) {
	APIRequests.WithLabelValues(endpoint, status).Inc()
	APIRequestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// Handler returns the Prometheus scrape handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Server serves /metrics until it is shut down
type Server struct {
	srv  *http.Server
	done chan error
}

// Serve starts the metrics endpoint on addr in the background
func Serve(addr string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	s := &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		done: make(chan error, 1),
	}
	go func() {
		err := s.srv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.done <- err
	}()
	return s
}

// Shutdown stops the endpoint and returns the listener error, if any
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		return err
	}
	return <-s.done
}
