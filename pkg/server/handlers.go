package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/vikramr2/ikc/pkg/graph"
	"github.com/vikramr2/ikc/pkg/ikc"
	"github.com/vikramr2/ikc/pkg/kcore"
	"github.com/vikramr2/ikc/pkg/kcoresearch"
	"github.com/vikramr2/ikc/pkg/streaming"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// HealthCheck reports service liveness.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	n := len(s.sessions)
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "healthy",
		"sessions": n,
	})
}

// UploadGraph reads a TSV edge list from the request body and creates a new
// session around it.
func (s *Server) UploadGraph(w http.ResponseWriter, r *http.Request) {
	g, err := graph.ReadTSVEdgeList(r.Body, s.logger)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if g.NumNodes == 0 {
		writeError(w, http.StatusBadRequest, "graph is empty")
		return
	}

	sess := &Session{
		ID:        uuid.New().String(),
		Streaming: streaming.NewStreamingIKC(g, s.config),
	}
	s.addSession(sess)

	s.logger.Info().
		Str("graph_id", sess.ID).
		Int("nodes", g.NumNodes).
		Int("edges", g.NumEdges).
		Msg("Graph uploaded")

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"graph_id":  sess.ID,
		"num_nodes": g.NumNodes,
		"num_edges": g.NumEdges,
	})
}

// GetGraph returns session metadata.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "graph not found")
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"graph_id":  sess.ID,
		"num_nodes": sess.Streaming.NumNodes(),
		"num_edges": sess.Streaming.NumEdges(),
		"max_core":  sess.Streaming.MaxCore(),
		"clustered": sess.Clustered,
	})
}

// DeleteGraph drops a session.
func (s *Server) DeleteGraph(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.removeSession(id) {
		writeError(w, http.StatusNotFound, "graph not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RunClustering runs the initial IKC clustering on a session. The min_k
// query parameter overrides the configured threshold.
func (s *Server) RunClustering(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "graph not found")
		return
	}

	if minK := r.URL.Query().Get("min_k"); minK != "" {
		val, err := strconv.Atoi(minK)
		if err != nil || val < 0 {
			writeError(w, http.StatusBadRequest, "invalid min_k")
			return
		}
		s.config.Set("algorithm.min_k", val)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	clusters, err := sess.Streaming.InitialClustering(nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sess.Clustered = true

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"clusters": clusters,
		"summary":  ikc.Summarize(clusters),
	})
}

// GetClusters returns the current clustering and its summary.
func (s *Server) GetClusters(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "graph not found")
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if !sess.Clustered {
		writeError(w, http.StatusConflict, "graph has not been clustered yet")
		return
	}
	clusters := sess.Streaming.Clusters()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"clusters": clusters,
		"summary":  ikc.Summarize(clusters),
	})
}

type updateRequest struct {
	Edges []streaming.Edge `json:"edges"`
	Nodes []uint64         `json:"nodes"`
}

// StreamingUpdate applies an incremental update of edges and nodes.
func (s *Server) StreamingUpdate(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "graph not found")
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if !sess.Clustered {
		writeError(w, http.StatusConflict, "graph has not been clustered yet")
		return
	}

	clusters, err := sess.Streaming.Update(req.Edges, req.Nodes)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"clusters": clusters,
		"stats":    sess.Streaming.LastStats(),
	})
}

// GetStats returns the statistics of the last streaming update.
func (s *Server) GetStats(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "graph not found")
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	writeJSON(w, http.StatusOK, sess.Streaming.LastStats())
}

// MaximalKCore answers a maximal k-core query for an external node id.
func (s *Server) MaximalKCore(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sess, ok := s.session(vars["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "graph not found")
		return
	}

	extID, err := strconv.ParseUint(vars["node"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid node id")
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	g := sess.Streaming.Graph()
	internal, ok := g.NodeMap[extID]
	if !ok {
		writeJSON(w, http.StatusOK, kcoresearch.MaximalResult{})
		return
	}

	coreNumbers := sess.Streaming.CoreNumbers()
	if len(coreNumbers) != g.NumNodes {
		coreNumbers = kcore.Decompose(g).CoreNumbers
	}

	writeJSON(w, http.StatusOK, kcoresearch.FindMaximalKCoreWithCoreNumbers(g, internal, coreNumbers))
}

// MinimumKCore answers a minimum k-core query for an external node id; the k
// query parameter gives the degree requirement.
func (s *Server) MinimumKCore(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sess, ok := s.session(vars["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "graph not found")
		return
	}

	extID, err := strconv.ParseUint(vars["node"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid node id")
		return
	}
	k, err := strconv.Atoi(r.URL.Query().Get("k"))
	if err != nil || k < 1 {
		writeError(w, http.StatusBadRequest, "k query parameter must be a positive integer")
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	g := sess.Streaming.Graph()
	internal, ok := g.NodeMap[extID]
	if !ok {
		writeJSON(w, http.StatusOK, kcoresearch.MinimumResult{KValue: k})
		return
	}

	coreNumbers := sess.Streaming.CoreNumbers()
	if len(coreNumbers) != g.NumNodes {
		coreNumbers = kcore.Decompose(g).CoreNumbers
	}

	writeJSON(w, http.StatusOK, kcoresearch.FindMinimumKCoreContainingNodeWithCoreNumbers(g, internal, k, coreNumbers))
}
