// Package streaming maintains an IKC clustering under a stream of edge and
// node insertions without full recomputation. Core numbers are updated
// incrementally, invalidated clusters are detected and reclustered on a
// localized subgraph, and results are merged with the untouched clusters.
package streaming

import (
	"container/heap"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vikramr2/ikc/pkg/graph"
	"github.com/vikramr2/ikc/pkg/ikc"
	"github.com/vikramr2/ikc/pkg/kcore"
)

const unassigned = -1

// ErrUnsupported is returned for operations outside the maintained update
// model: the clustering is kept coherent under insertions only.
var ErrUnsupported = errors.New("operation not supported")

// Edge is an undirected edge between two external node ids.
type Edge struct {
	U uint64 `json:"u"`
	V uint64 `json:"v"`
}

// UpdateStats describes the work done by the last non-batched update.
type UpdateStats struct {
	AffectedNodes       int     `json:"affected_nodes"`
	InvalidatedClusters int     `json:"invalidated_clusters"`
	ValidClusters       int     `json:"valid_clusters"`
	MergeCandidates     int     `json:"merge_candidates"`
	RecomputeTimeMS     float64 `json:"recompute_time_ms"`
	TotalTimeMS         float64 `json:"total_time_ms"`
}

// StreamingIKC owns the graph, the current clustering and the cached core
// numbers, and keeps them coherent across updates. Not safe for concurrent
// use; callers serialize access.
type StreamingIKC struct {
	graph             *graph.Graph
	origGraph         *graph.Graph // snapshot at construction, for modularity
	clusters          []ikc.Cluster
	coreNumbers       []uint32
	clusterAssignment []int // internal id -> cluster index, or unassigned
	maxCore           uint32
	config            *ikc.Config
	logger            zerolog.Logger
	lastStats         UpdateStats
	initialized       bool

	batchMode    bool
	pendingEdges []Edge
	pendingNodes []uint64
}

// NewStreamingIKC creates streaming state around a loaded graph. The graph is
// owned by the streaming state from here on.
func NewStreamingIKC(g *graph.Graph, config *ikc.Config) *StreamingIKC {
	return &StreamingIKC{
		graph:             g,
		origGraph:         g.Clone(),
		clusters:          make([]ikc.Cluster, 0),
		clusterAssignment: newAssignment(g.NumNodes),
		config:            config,
		logger:            config.CreateLogger(),
	}
}

func newAssignment(n int) []int {
	assignment := make([]int, n)
	for i := range assignment {
		assignment[i] = unassigned
	}
	return assignment
}

// InitialClustering runs the full IKC pipeline and caches core numbers,
// maximum core and cluster assignments for incremental maintenance.
func (s *StreamingIKC) InitialClustering(progress ikc.ProgressCallback) ([]ikc.Cluster, error) {
	result, err := ikc.Run(s.graph, s.config, progress)
	if err != nil {
		return nil, fmt.Errorf("initial clustering failed: %w", err)
	}
	s.clusters = result.Clusters

	kc := kcore.Decompose(s.graph)
	s.coreNumbers = kc.CoreNumbers
	s.maxCore = kc.MaxCore

	s.updateClusterAssignments()
	s.initialized = true

	s.logger.Info().
		Int("clusters", len(s.clusters)).
		Uint32("max_core", s.maxCore).
		Msg("Initial clustering complete")

	return s.clusters, nil
}

// coreHeap is a min-heap of (core number, node) pairs.
type coreHeap [][2]uint32

func (h coreHeap) Len() int            { return len(h) }
func (h coreHeap) Less(i, j int) bool  { return h[i][0] < h[j][0] }
func (h coreHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *coreHeap) Push(x interface{}) { *h = append(*h, x.([2]uint32)) }
func (h *coreHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// updateCoreNumbersIncremental promotes core numbers after a batch of new
// internal edges, following Sariyuce et al. (2013). Candidate endpoints are
// processed through a min-heap by core number; a node is promoted to k+1 when
// it has at least k+1 neighbors already at core >= k+1. Promotions cascade to
// same-core neighbors. Returns the set of promoted nodes.
func (s *StreamingIKC) updateCoreNumbersIncremental(newEdges [][2]int) map[int]bool {
	affected := make(map[int]bool)
	if len(newEdges) == 0 {
		return affected
	}

	kMax := uint32(0)
	for _, e := range newEdges {
		if s.coreNumbers[e[0]] > kMax {
			kMax = s.coreNumbers[e[0]]
		}
		if s.coreNumbers[e[1]] > kMax {
			kMax = s.coreNumbers[e[1]]
		}
	}

	candidates := make(map[int]bool)
	for _, e := range newEdges {
		if s.coreNumbers[e[0]] >= kMax {
			candidates[e[0]] = true
		}
		if s.coreNumbers[e[1]] >= kMax {
			candidates[e[1]] = true
		}
	}

	pq := make(coreHeap, 0, len(candidates))
	for node := range candidates {
		pq = append(pq, [2]uint32{s.coreNumbers[node], uint32(node)})
	}
	heap.Init(&pq)

	visited := make(map[int]bool)

	for pq.Len() > 0 {
		top := heap.Pop(&pq).([2]uint32)
		kCurrent, v := top[0], int(top[1])

		if visited[v] {
			continue
		}
		visited[v] = true

		neighborsInHigherCore := uint32(0)
		for _, w := range s.graph.Neighbors(v) {
			if s.coreNumbers[w] >= kCurrent+1 {
				neighborsInHigherCore++
			}
		}

		if neighborsInHigherCore >= kCurrent+1 {
			s.coreNumbers[v] = kCurrent + 1
			affected[v] = true
			if s.coreNumbers[v] > s.maxCore {
				s.maxCore = s.coreNumbers[v]
			}

			for _, w := range s.graph.Neighbors(v) {
				if s.coreNumbers[w] == kCurrent && !visited[w] {
					heap.Push(&pq, [2]uint32{s.coreNumbers[w], uint32(w)})
				}
			}
		}
	}

	return affected
}

// detectInvalidClusters partitions the current clusters into untouched ones
// and ones needing recomputation. A cluster with no promoted nodes is kept
// as-is. A touched cluster is invalidated when its k-validity broke, or when
// an external neighbor reached its k-core (potential merge); in the merge
// case the high-core neighborhood joins the recompute set.
func (s *StreamingIKC) detectInvalidClusters(affected map[int]bool) (validIdx, invalidIdx []int, nodesToRecompute map[int]bool) {
	nodesToRecompute = make(map[int]bool)

	for clusterIdx, cluster := range s.clusters {
		hasAffected := false
		for _, extID := range cluster.Nodes {
			if internal, ok := s.graph.NodeMap[extID]; ok && affected[internal] {
				hasAffected = true
				break
			}
		}

		if !hasAffected {
			validIdx = append(validIdx, clusterIdx)
			continue
		}

		k := cluster.KValue
		members := make(map[uint64]bool, len(cluster.Nodes))
		for _, extID := range cluster.Nodes {
			members[extID] = true
		}

		kValid := true
		for _, extID := range cluster.Nodes {
			internal, ok := s.graph.NodeMap[extID]
			if !ok {
				kValid = false
				break
			}
			degree := uint32(0)
			for _, neighbor := range s.graph.Neighbors(internal) {
				if members[s.graph.IDMap[neighbor]] {
					degree++
				}
			}
			if degree < k {
				kValid = false
				break
			}
		}

		if !kValid {
			invalidIdx = append(invalidIdx, clusterIdx)
			for _, extID := range cluster.Nodes {
				if internal, ok := s.graph.NodeMap[extID]; ok {
					nodesToRecompute[internal] = true
				}
			}
			continue
		}

		hasMergeCandidates := false
		for _, extID := range cluster.Nodes {
			internal, ok := s.graph.NodeMap[extID]
			if !ok {
				continue
			}
			for _, neighbor := range s.graph.Neighbors(internal) {
				if !members[s.graph.IDMap[neighbor]] && s.coreNumbers[neighbor] >= k {
					hasMergeCandidates = true
					break
				}
			}
			if hasMergeCandidates {
				break
			}
		}

		if hasMergeCandidates {
			invalidIdx = append(invalidIdx, clusterIdx)
			for _, extID := range cluster.Nodes {
				if internal, ok := s.graph.NodeMap[extID]; ok {
					nodesToRecompute[internal] = true
					for _, neighbor := range s.graph.Neighbors(internal) {
						if s.coreNumbers[neighbor] >= k {
							nodesToRecompute[neighbor] = true
						}
					}
				}
			}
		} else {
			validIdx = append(validIdx, clusterIdx)
		}
	}

	return validIdx, invalidIdx, nodesToRecompute
}

// recomputeAffectedClusters reruns IKC on the induced subgraph over the
// recompute set. Modularity uses the original graph's edge count, so scores
// can differ slightly from a from-scratch run; under the simplified policy
// the clusterings still match.
func (s *StreamingIKC) recomputeAffectedClusters(nodesToRecompute map[int]bool) ([]ikc.Cluster, error) {
	if len(nodesToRecompute) == 0 {
		return nil, nil
	}

	nodes := make([]int, 0, len(nodesToRecompute))
	for v := 0; v < s.graph.NumNodes; v++ {
		if nodesToRecompute[v] {
			nodes = append(nodes, v)
		}
	}

	sub := s.graph.Subgraph(nodes)

	result, err := ikc.RunWithOriginal(sub, s.origGraph, s.config, nil)
	if err != nil {
		return nil, fmt.Errorf("localized recompute failed: %w", err)
	}

	s.logger.Debug().
		Int("recompute_nodes", len(nodes)).
		Int("new_clusters", len(result.Clusters)).
		Msg("Localized recompute complete")

	return result.Clusters, nil
}

// updateClusterAssignments rebuilds the internal id -> cluster index array.
func (s *StreamingIKC) updateClusterAssignments() {
	s.clusterAssignment = newAssignment(s.graph.NumNodes)
	for clusterIdx, cluster := range s.clusters {
		for _, extID := range cluster.Nodes {
			if internal, ok := s.graph.NodeMap[extID]; ok {
				s.clusterAssignment[internal] = clusterIdx
			}
		}
	}
}

// AddEdges inserts undirected edges given as external id pairs and updates
// the clustering. InitialClustering must have run first. Edges whose
// endpoints are unknown are skipped with a warning; use Update to add edges
// together with their nodes. With recompute=false only the graph is mutated
// and the clustering is left stale until a later update.
func (s *StreamingIKC) AddEdges(edges []Edge, recompute bool) ([]ikc.Cluster, error) {
	if !s.initialized {
		return nil, fmt.Errorf("initial clustering has not been run")
	}
	if s.batchMode {
		s.pendingEdges = append(s.pendingEdges, edges...)
		return s.clusters, nil
	}

	if len(edges) == 0 {
		return s.clusters, nil
	}

	startTime := time.Now()

	internalEdges := make([][2]int, 0, len(edges))
	for _, e := range edges {
		u, uOK := s.graph.NodeMap[e.U]
		v, vOK := s.graph.NodeMap[e.V]
		if !uOK || !vOK {
			s.logger.Warn().
				Uint64("u", e.U).
				Uint64("v", e.V).
				Msg("Edge references unknown nodes, skipping")
			continue
		}
		if u == v {
			s.logger.Warn().Uint64("node", e.U).Msg("Self-loop dropped")
			continue
		}
		internalEdges = append(internalEdges, [2]int{u, v})
	}

	if len(internalEdges) == 0 {
		return s.clusters, nil
	}

	if _, err := s.graph.AddEdges(internalEdges); err != nil {
		return nil, fmt.Errorf("edge insertion failed: %w", err)
	}

	if !recompute {
		return s.clusters, nil
	}

	affected := s.updateCoreNumbersIncremental(internalEdges)

	recomputeStart := time.Now()

	validIdx, invalidIdx, nodesToRecompute := s.detectInvalidClusters(affected)

	if len(invalidIdx) == 0 && len(nodesToRecompute) == 0 {
		s.lastStats = UpdateStats{
			AffectedNodes: len(affected),
			ValidClusters: len(s.clusters),
			TotalTimeMS:   float64(time.Since(startTime).Microseconds()) / 1000.0,
		}
		return s.clusters, nil
	}

	newClusters, err := s.recomputeAffectedClusters(nodesToRecompute)
	if err != nil {
		return nil, err
	}

	recomputeTime := time.Since(recomputeStart)

	updated := make([]ikc.Cluster, 0, len(validIdx)+len(newClusters))
	for _, idx := range validIdx {
		updated = append(updated, s.clusters[idx])
	}
	updated = append(updated, newClusters...)

	s.clusters = updated
	s.updateClusterAssignments()

	s.lastStats = UpdateStats{
		AffectedNodes:       len(affected),
		InvalidatedClusters: len(invalidIdx),
		ValidClusters:       len(validIdx),
		MergeCandidates:     len(nodesToRecompute),
		RecomputeTimeMS:     float64(recomputeTime.Microseconds()) / 1000.0,
		TotalTimeMS:         float64(time.Since(startTime).Microseconds()) / 1000.0,
	}

	s.logger.Info().
		Int("affected_nodes", len(affected)).
		Int("invalidated_clusters", len(invalidIdx)).
		Int("total_clusters", len(s.clusters)).
		Msg("Streaming update complete")

	return s.clusters, nil
}

// AddNodes inserts isolated nodes given by external id. New nodes start with
// core number 0 and no cluster. With recompute=true each new node becomes a
// singleton cluster unless an earlier update already assigned it.
func (s *StreamingIKC) AddNodes(nodes []uint64, recompute bool) ([]ikc.Cluster, error) {
	if !s.initialized {
		return nil, fmt.Errorf("initial clustering has not been run")
	}
	if s.batchMode {
		s.pendingNodes = append(s.pendingNodes, nodes...)
		return s.clusters, nil
	}

	if len(nodes) == 0 {
		return s.clusters, nil
	}

	for _, extID := range nodes {
		if s.graph.HasNode(extID) {
			continue
		}
		s.graph.AddNode(extID)
		s.coreNumbers = append(s.coreNumbers, 0)
		s.clusterAssignment = append(s.clusterAssignment, unassigned)
	}

	if recompute {
		for _, extID := range nodes {
			if internal, ok := s.graph.NodeMap[extID]; ok && s.clusterAssignment[internal] == unassigned {
				s.clusters = append(s.clusters, ikc.Cluster{Nodes: []uint64{extID}, KValue: 0, Modularity: 0.0})
			}
		}
		s.updateClusterAssignments()
	}

	s.logger.Debug().Int("nodes", len(nodes)).Msg("Isolated nodes added")

	return s.clusters, nil
}

// Update applies edges and nodes in a single operation. Every edge endpoint
// must already exist or appear in nodes; otherwise the update fails without
// mutating anything. Nodes left unassigned after the edge-triggered recompute
// become singleton clusters.
func (s *StreamingIKC) Update(edges []Edge, nodes []uint64) ([]ikc.Cluster, error) {
	if !s.initialized {
		return nil, fmt.Errorf("initial clustering has not been run")
	}
	if len(edges) > 0 {
		newNodes := make(map[uint64]bool, len(nodes))
		for _, n := range nodes {
			newNodes[n] = true
		}
		for _, e := range edges {
			uExists := s.graph.HasNode(e.U) || newNodes[e.U]
			vExists := s.graph.HasNode(e.V) || newNodes[e.V]
			if !uExists || !vExists {
				missing := make([]uint64, 0, 2)
				if !uExists {
					missing = append(missing, e.U)
				}
				if !vExists {
					missing = append(missing, e.V)
				}
				return nil, fmt.Errorf("edge (%d, %d) references non-existent node(s) %v: "+
					"all endpoints must exist in the graph or be included in new nodes", e.U, e.V, missing)
			}
		}
	}

	if len(nodes) > 0 {
		if _, err := s.AddNodes(nodes, false); err != nil {
			return nil, err
		}
	}

	if len(edges) > 0 {
		if _, err := s.AddEdges(edges, true); err != nil {
			return nil, err
		}
	}

	// Any new node not swept into a cluster by the recompute becomes a
	// singleton.
	changed := false
	for _, extID := range nodes {
		if internal, ok := s.graph.NodeMap[extID]; ok && s.clusterAssignment[internal] == unassigned {
			s.clusters = append(s.clusters, ikc.Cluster{Nodes: []uint64{extID}, KValue: 0, Modularity: 0.0})
			changed = true
		}
	}
	if changed {
		s.updateClusterAssignments()
	}

	return s.clusters, nil
}

// BeginBatch enters batch mode: subsequent AddEdges/AddNodes calls accumulate
// without recomputation until CommitBatch.
func (s *StreamingIKC) BeginBatch() {
	s.batchMode = true
	s.pendingEdges = s.pendingEdges[:0]
	s.pendingNodes = s.pendingNodes[:0]
}

// CommitBatch leaves batch mode and applies all pending updates as a single
// Update call. Outside batch mode it returns the clustering unchanged.
func (s *StreamingIKC) CommitBatch() ([]ikc.Cluster, error) {
	if !s.batchMode {
		s.logger.Warn().Msg("CommitBatch called outside batch mode")
		return s.clusters, nil
	}

	s.batchMode = false

	s.logger.Info().
		Int("pending_edges", len(s.pendingEdges)).
		Int("pending_nodes", len(s.pendingNodes)).
		Msg("Committing batch")

	return s.Update(s.pendingEdges, s.pendingNodes)
}

// RemoveEdges is not supported.
func (s *StreamingIKC) RemoveEdges(edges []Edge) error {
	return fmt.Errorf("edge deletion: %w", ErrUnsupported)
}

// Accessors.

func (s *StreamingIKC) Clusters() []ikc.Cluster { return s.clusters }
func (s *StreamingIKC) CoreNumbers() []uint32   { return s.coreNumbers }
func (s *StreamingIKC) Graph() *graph.Graph     { return s.graph }
func (s *StreamingIKC) LastStats() UpdateStats  { return s.lastStats }
func (s *StreamingIKC) NumNodes() int           { return s.graph.NumNodes }
func (s *StreamingIKC) NumEdges() int           { return s.graph.NumEdges }
func (s *StreamingIKC) MaxCore() uint32         { return s.maxCore }
func (s *StreamingIKC) BatchMode() bool         { return s.batchMode }

// ClusterAssignment returns the cluster index for an external node id, or
// false when the node is unknown or unassigned.
func (s *StreamingIKC) ClusterAssignment(extID uint64) (int, bool) {
	internal, ok := s.graph.NodeMap[extID]
	if !ok {
		return 0, false
	}
	idx := s.clusterAssignment[internal]
	if idx == unassigned {
		return 0, false
	}
	return idx, true
}
