package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bryanchriswhite/FocusRecorder/internal/capture"
	"github.com/bryanchriswhite/FocusRecorder/internal/config"
	"github.com/bryanchriswhite/FocusRecorder/internal/logger"
	"github.com/bryanchriswhite/FocusRecorder/internal/output"
	"github.com/bryanchriswhite/FocusRecorder/internal/recorder"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Version is reported by the health endpoint
var Version = "0.1.0"

// Server represents the HTTP API server
type Server struct {
	router    *mux.Router
	recorder  *recorder.Recorder
	configMgr *config.Manager
	preview   *output.PreviewOutput
	screen    capture.Bounder
	upgrader  websocket.Upgrader
	now       func() time.Time

	// ctx bounds background encodes; cancelled only when shutdown times out
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	outputs    map[string]string // session id -> output path, until finalize begins
	lastResult *recorder.Result
	lastError  string
	encodes    sync.WaitGroup

	events     chan recorder.Event
	watchDone  chan struct{}
	httpServer *http.Server
}

// NewServer creates a new API server. preview and screen may be nil.
func NewServer(rec *recorder.Recorder, configMgr *config.Manager, preview *output.PreviewOutput, screen capture.Bounder) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		router:    mux.NewRouter(),
		recorder:  rec,
		configMgr: configMgr,
		preview:   preview,
		screen:    screen,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for development
			},
		},
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
		outputs:   make(map[string]string),
		watchDone: make(chan struct{}),
	}

	s.setupRoutes()

	s.events = rec.Subscribe()
	go s.watch()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Recording control
	api.HandleFunc("/recording/start", s.handleStart).Methods("POST")
	api.HandleFunc("/recording/stop", s.handleStop).Methods("POST")
	api.HandleFunc("/recording/cancel", s.handleCancel).Methods("POST")
	api.HandleFunc("/recording/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/events", s.handleEvents)

	// Configuration
	api.HandleFunc("/config", s.handleGetConfig).Methods("GET")
	api.HandleFunc("/config", s.handleUpdateConfig).Methods("PUT")

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	if s.preview != nil {
		api.HandleFunc("/preview/stats", s.preview.StatsHandler()).Methods("GET")
		s.router.HandleFunc("/preview/stream", s.preview.StreamHandler()).Methods("GET")
		s.router.HandleFunc("/preview", s.preview.ViewerHandler()).Methods("GET")
	}

	s.router.HandleFunc("/", s.handleIndex).Methods("GET")
}

// Handler returns the routed handler with CORS applied
func (s *Server) Handler() http.Handler {
	return s.enableCORS(s.router)
}

// Start serves HTTP until Shutdown is called
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.mu.Lock()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	logger.WithComponent("api").Info().
		Str("addr", "http://localhost"+addr).
		Msg("Starting server")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, finalizes any active recording and
// waits for pending encodes until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}

	if _, _, ferr := s.finalize(); ferr == nil {
		logger.WithComponent("api").Info().Msg("Finalizing active recording before exit")
	}

	done := make(chan struct{})
	go func() {
		s.encodes.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.cancel()
		<-done
		if err == nil {
			err = ctx.Err()
		}
	}

	s.Close()
	return err
}

// Close detaches the server from the recorder
func (s *Server) Close() {
	select {
	case <-s.watchDone:
		return
	default:
	}
	s.recorder.Unsubscribe(s.events)
	<-s.watchDone
}

// watch finalizes sessions that hit their maximum duration
func (s *Server) watch() {
	defer close(s.watchDone)
	for ev := range s.events {
		if ev.Type != recorder.EventMaxDurationReached {
			continue
		}
		if _, path, err := s.finalize(); err == nil {
			logger.WithComponent("api").Info().
				Str("session_id", ev.SessionID).
				Str("output", path).
				Msg("Auto-finalizing recording at maximum duration")
		}
	}
}

// finalize starts a background encode of the active session. It fails with
// ErrNotRecording when there is no session or one is already finalizing.
func (s *Server) finalize() (string, string, error) {
	st := s.recorder.Status()
	if st.State != recorder.StateRecording {
		return "", "", recorder.ErrNotRecording
	}

	s.mu.Lock()
	path, ok := s.outputs[st.SessionID]
	if !ok {
		s.mu.Unlock()
		return "", "", recorder.ErrNotRecording
	}
	delete(s.outputs, st.SessionID)
	s.mu.Unlock()

	s.encodes.Add(1)
	go func() {
		defer s.encodes.Done()
		log := logger.WithComponent("api").With().Str("session_id", st.SessionID).Logger()

		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			log.Error().Err(err).Str("output", path).Msg("Failed to create output directory")
		}
		res, err := s.recorder.StopAndEncode(s.ctx, output.NewFileSink(path))

		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			s.lastResult = nil
			s.lastError = err.Error()
			log.Error().Err(err).Msg("Recording finalize failed")
			return
		}
		s.lastResult = &res
		s.lastError = ""
	}()
	return st.SessionID, path, nil
}

// HTTP Handlers

type startRequest struct {
	Region *config.Region `json:"region,omitempty"`
	Output string         `json:"output,omitempty"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	cfg := s.configMgr.Get()
	region, err := s.resolveRegion(req.Region, cfg)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	path := req.Output
	if path == "" {
		path = cfg.OutputPath(s.now())
	}

	id, err := s.recorder.Start(region, cfg.RecordingSettings())
	switch {
	case errors.Is(err, recorder.ErrInvalidRegion):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, recorder.ErrAlreadyRecording):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	s.outputs[id] = path
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]string{
		"session_id": id,
		"output":     path,
	})
}

// resolveRegion picks the request region, then the configured one, then
// the full screen.
func (s *Server) resolveRegion(req *config.Region, cfg *config.Config) (image.Rectangle, error) {
	if req != nil && !req.IsZero() {
		return req.Rect(), nil
	}
	if !cfg.Recording.Region.IsZero() {
		return cfg.Recording.Region.Rect(), nil
	}
	if s.screen == nil {
		return image.Rectangle{}, fmt.Errorf("no region given and screen bounds are unknown")
	}
	return s.screen.ScreenBounds(), nil
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	id, path, err := s.finalize()
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":     "finalizing",
		"session_id": id,
		"output":     path,
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	st := s.recorder.Status()
	if err := s.recorder.Cancel(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	s.mu.Lock()
	delete(s.outputs, st.SessionID)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

type statusResponse struct {
	recorder.Status
	LastResult *recorder.Result `json:"last_result,omitempty"`
	LastError  string           `json:"last_error,omitempty"`
}

func (s *Server) status() statusResponse {
	resp := statusResponse{Status: s.recorder.Status()}
	s.mu.Lock()
	resp.LastResult = s.lastResult
	resp.LastError = s.lastError
	s.mu.Unlock()
	return resp
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("api")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}
	defer conn.Close()

	updates := s.recorder.Subscribe()
	defer s.recorder.Unsubscribe(updates)

	// Reads only detect the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Send initial status
	if err := conn.WriteJSON(map[string]any{"type": "status", "status": s.status()}); err != nil {
		log.Debug().Err(err).Msg("WebSocket write error")
		return
	}

	for {
		select {
		case <-closed:
			return
		case ev, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				log.Debug().Err(err).Msg("WebSocket write error")
				return
			}
		}
	}
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.configMgr.Get())
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	// Absent fields keep their current values
	cfg := s.configMgr.Get()
	if err := json.NewDecoder(r.Body).Decode(cfg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.configMgr.Update(cfg); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, s.configMgr.Get())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": Version,
		"state":   s.recorder.Status().State.String(),
	})
}

// enableCORS adds CORS headers
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithComponent("api").Debug().Err(err).Msg("Failed to write response")
	}
}
