// Package preview serves the produced backdrop over HTTP so the blur
// result can be inspected in a browser while tuning scale and radius.
package preview

import (
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/lockveil/lockveil/internal/backdrop"
	"github.com/lockveil/lockveil/internal/logger"
	"github.com/lockveil/lockveil/internal/screencopy"
)

// Server exposes the backdrop pipeline over HTTP: a PNG endpoint that
// serves the most recent backdrop, a refresh endpoint that runs a new
// capture-and-blur cycle, and a websocket stream that notifies
// connected clients whenever a fresh backdrop is available.
type Server struct {
	router   *mux.Router
	pipeline *backdrop.Pipeline
	output   screencopy.OutputHandle
	scale    int
	upgrader websocket.Upgrader

	frameMu    sync.RWMutex
	current    *backdrop.Image
	lastUpdate time.Time

	clientsMu sync.Mutex
	clients   map[*websocket.Conn]struct{}
}

// NewServer creates a preview server over the given pipeline.
func NewServer(pipeline *backdrop.Pipeline, output screencopy.OutputHandle, scale int) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		pipeline: pipeline,
		output:   output,
		scale:    scale,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]struct{}),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/backdrop.png", s.handleBackdrop).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/refresh", s.handleRefresh).Methods("POST")
	api.HandleFunc("/stream", s.handleStream)
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start starts the HTTP server and blocks.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	logger.WithComponent("preview").Info().
		Str("addr", addr).
		Msg("Preview server listening")
	return http.ListenAndServe(addr, s.router)
}

// refresh runs one capture-and-blur cycle and stores the result.
func (s *Server) refresh(ctx context.Context) (*backdrop.Image, error) {
	img, err := s.pipeline.Produce(ctx, s.output, s.scale)
	if err != nil {
		return nil, err
	}

	s.frameMu.Lock()
	s.current = img
	s.lastUpdate = time.Now()
	s.frameMu.Unlock()

	s.notifyClients()
	return img, nil
}

func (s *Server) handleBackdrop(w http.ResponseWriter, r *http.Request) {
	s.frameMu.RLock()
	img := s.current
	s.frameMu.RUnlock()

	if img == nil {
		var err error
		img, err = s.refresh(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
	}

	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, img.ToRGBA()); err != nil {
		logger.WithComponent("preview").Error().Err(err).Msg("Failed to encode backdrop")
	}
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	img, err := s.refresh(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"width":  img.Width,
		"height": img.Height,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.frameMu.RLock()
	hasFrame := s.current != nil
	last := s.lastUpdate
	s.frameMu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":      "ok",
		"has_frame":   hasFrame,
		"last_update": last,
	})
}

// handleStream upgrades to a websocket and pushes a message whenever
// a new backdrop has been produced.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithComponent("preview").Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = struct{}{}
	s.clientsMu.Unlock()

	// Drain the connection; client messages are ignored.
	go func() {
		defer func() {
			s.clientsMu.Lock()
			delete(s.clients, conn)
			s.clientsMu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) notifyClients() {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	msg := map[string]interface{}{
		"event": "backdrop_updated",
		"time":  time.Now(),
	}
	for conn := range s.clients {
		if err := conn.WriteJSON(msg); err != nil {
			conn.Close()
			delete(s.clients, conn)
		}
	}
}
