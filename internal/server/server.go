package server

import (
	"encoding/json"
	"net/http"
	"path"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"giftdiscovery/internal/adapters/notify"
	"giftdiscovery/internal/jobs"
)

// JobSubmitter starts discovery jobs; satisfied by service.Pipeline.
type JobSubmitter interface {
	Submit(ownerID, categoryID string, count int) string
}

// Server exposes the job status surface over HTTP: submit, poll, delete, and
// a websocket feed of completion events. Validation and rate limiting belong
// to an outer layer.
type Server struct {
	pipeline JobSubmitter
	registry *jobs.Registry
	hub      *notify.Hub
	logger   *logrus.Logger
	upgrader websocket.Upgrader
}

// NewServer creates the HTTP surface. hub may be nil to disable /ws.
func NewServer(pipeline JobSubmitter, registry *jobs.Registry, hub *notify.Hub, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Server{
		pipeline: pipeline,
		registry: registry,
		hub:      hub,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Handler returns the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/jobs", s.handleJobs)
	mux.HandleFunc("/jobs/", s.handleJobDetails)
	if s.hub != nil {
		mux.HandleFunc("/ws", s.handleWebSocket)
	}
	return mux
}

type submitRequest struct {
	OwnerID    string `json:"owner_id"`
	CategoryID string `json:"category_id"`
	Count      int    `json:"count"`
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.OwnerID == "" || req.CategoryID == "" {
		http.Error(w, "owner_id and category_id are required", http.StatusBadRequest)
		return
	}
	if req.Count <= 0 {
		req.Count = 3
	}

	jobID := s.pipeline.Submit(req.OwnerID, req.CategoryID, req.Count)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"job_id": jobID})
}

func (s *Server) handleJobDetails(w http.ResponseWriter, r *http.Request) {
	jobID := path.Base(strings.TrimSuffix(r.URL.Path, "/"))
	if jobID == "" || jobID == "jobs" {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		// A reaped job and a never-created one are indistinguishable here.
		job, ok := s.registry.Get(jobID)
		if !ok {
			http.Error(w, "job not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(job)
	case http.MethodDelete:
		if !s.registry.Delete(jobID) {
			http.Error(w, "job not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	s.hub.RegisterClient(conn)

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.hub.UnregisterClient(conn)
				return
			}
		}
	}()
}
