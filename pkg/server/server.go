// Package server exposes the clustering engine over HTTP. Each uploaded
// graph becomes a session keyed by a uuid; clustering, streaming updates and
// k-core queries run against the session.
package server

import (
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/vikramr2/ikc/pkg/ikc"
	"github.com/vikramr2/ikc/pkg/streaming"
)

// Session is one uploaded graph plus its streaming clustering state.
type Session struct {
	ID        string
	Streaming *streaming.StreamingIKC
	Clustered bool
	mu        sync.Mutex
}

// Server routes HTTP requests onto clustering sessions.
type Server struct {
	config   *ikc.Config
	logger   zerolog.Logger
	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewServer creates a server with the given algorithm configuration.
func NewServer(config *ikc.Config) *Server {
	return &Server{
		config:   config,
		logger:   config.CreateLogger(),
		sessions: make(map[string]*Session),
	}
}

// Handler builds the full middleware and routing stack.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", s.HealthCheck).Methods("GET")
	api.HandleFunc("/graphs", s.UploadGraph).Methods("POST")
	api.HandleFunc("/graphs/{id}", s.GetGraph).Methods("GET")
	api.HandleFunc("/graphs/{id}", s.DeleteGraph).Methods("DELETE")
	api.HandleFunc("/graphs/{id}/cluster", s.RunClustering).Methods("POST")
	api.HandleFunc("/graphs/{id}/clusters", s.GetClusters).Methods("GET")
	api.HandleFunc("/graphs/{id}/update", s.StreamingUpdate).Methods("POST")
	api.HandleFunc("/graphs/{id}/stats", s.GetStats).Methods("GET")
	api.HandleFunc("/graphs/{id}/kcore/maximal/{node}", s.MaximalKCore).Methods("GET")
	api.HandleFunc("/graphs/{id}/kcore/minimum/{node}", s.MinimumKCore).Methods("GET")

	router.Use(s.loggingMiddleware)
	router.Use(s.recoveryMiddleware)

	return cors.Default().Handler(router)
}

// session looks up a session by id.
func (s *Server) session(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// addSession registers a new session.
func (s *Server) addSession(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
}

// removeSession drops a session; reports whether it existed.
func (s *Server) removeSession(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}
