package main

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/apexsim/raceserver/config"
	"github.com/apexsim/raceserver/internal/network"
	"github.com/apexsim/raceserver/internal/race"
	"github.com/apexsim/raceserver/internal/session"
	"github.com/apexsim/raceserver/internal/track"
)

// server binds the session manager and observer hub to HTTP.
type server struct {
	cfg      *config.ServerConfig
	manager  *session.Manager
	hub      *network.Hub
	upgrader websocket.Upgrader
}

// runServe builds the track, the simulation and the broadcast loop, then
// serves until the process is killed. Construction failures (degenerate
// track geometry) abort here, before any stepping begins.
func runServe(cfg *config.ServerConfig) error {
	trk, err := track.Build(track.GPLayout(), config.TrackResolution)
	if err != nil {
		return fmt.Errorf("building track: %w", err)
	}

	sim := race.New(trk, race.Options{})
	hub := network.NewHub()
	manager := session.NewManager(sim, hub)

	s := &server{
		cfg:     cfg,
		manager: manager,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// In production, consider a whitelist of allowed origins.
			CheckOrigin: func(r *http.Request) bool {
				return cfg.EnableCORS
			},
		},
	}

	stop := make(chan struct{})
	defer close(stop)
	go manager.Run(stop)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/track", s.handleTrack)
	mux.HandleFunc("/api/start", s.handleStart)
	mux.HandleFunc("/api/reset", s.handleReset)
	mux.HandleFunc("/api/race-status", s.handleStatus)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	log.WithFields(log.Fields{
		"addr":       addr,
		"laps":       sim.TotalLaps(),
		"cars":       len(sim.Cars()),
		"lap_length": math.Round(trk.Length()),
	}).Info("race server listening")

	return http.ListenAndServe(addr, s.withCORS(mux))
}

// withCORS adds permissive CORS headers for the REST control surface when
// enabled. WebSocket origin checks are handled by the upgrader.
func (s *server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.EnableCORS {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// handleWebSocket upgrades the connection and hands it to the hub. The
// greeting carries the track outline so observers can draw the circuit
// before the first snapshot lands.
func (s *server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	s.hub.ServeClient(ws, s.manager.TrackMessage(), s.manager.HandleClientMessage)
}

// handleHealth responds to health check requests from load balancers and
// container orchestrators.
func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleTrack returns the track layout for late-joining REST consumers.
func (s *server) handleTrack(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.manager.TrackInfo())
}

// startRequest carries the weather overrides for a race start.
type startRequest struct {
	Rain      float64 `json:"rain"`
	TrackTemp float64 `json:"track_temp"`
	Wind      float64 `json:"wind"`
}

// handleStart re-grids the field under the requested weather and starts
// the race. Weather inputs are clamped to their physical ranges.
func (s *server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var req startRequest
	req.TrackTemp = 25.0
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	weather := race.Weather{
		Rain:      clamp(req.Rain, 0, 1),
		TrackTemp: clamp(req.TrackTemp, config.MinTrackTemp, config.MaxTrackTemp),
		Wind:      clamp(req.Wind, 0, config.MaxWind),
	}
	writeJSON(w, s.manager.StartRace(weather))
}

// handleReset abandons the current race and re-grids.
func (s *server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.manager.ResetRace())
}

// handleStatus reports the session lifecycle state.
func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.manager.Status())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("response encode failed")
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
