package kcoresearch

import (
	"sort"

	"github.com/vikramr2/ikc/pkg/graph"
	"github.com/vikramr2/ikc/pkg/kcore"
)

// MinimumResult is the outcome of a minimum k-core query.
type MinimumResult struct {
	Nodes  []uint64 `json:"nodes"` // external ids
	KValue int      `json:"k_value"`
	Size   int      `json:"size"`
	Found  bool     `json:"found"`
}

// isSPlex reports whether the vertex set forms an s-plex: every vertex has
// intra-set degree >= |S| - s.
func isSPlex(g *graph.Graph, vertexSet []int, s int) bool {
	members := make(map[int]bool, len(vertexSet))
	for _, v := range vertexSet {
		members[v] = true
	}

	required := len(vertexSet) - s
	for _, v := range vertexSet {
		degree := 0
		for _, neighbor := range g.Neighbors(v) {
			if members[neighbor] {
				degree++
			}
		}
		if degree < required {
			return false
		}
	}

	return true
}

// backtrackSPlex searches for an s-plex of exactly targetSize extending
// current with vertices from candidates (in position order). Returns the
// first s-plex found, or nil.
func backtrackSPlex(g *graph.Graph, current, candidates []int, s, targetSize int) []int {
	if len(current) == targetSize {
		if isSPlex(g, current, s) {
			found := make([]int, len(current))
			copy(found, current)
			return found
		}
		return nil
	}

	if len(current)+len(candidates) < targetSize || len(current) > targetSize {
		return nil
	}

	for i, v := range candidates {
		current = append(current, v)

		// Lower-bound check before descending: a partial set that already
		// violates the s-plex degree bound cannot be completed.
		if isSPlex(g, current, s) {
			if found := backtrackSPlex(g, current, candidates[i+1:], s, targetSize); found != nil {
				return found
			}
		}

		current = current[:len(current)-1]
	}

	return nil
}

// findSPlexWithSize searches for an s-plex of exactly targetSize containing
// the query node. Candidates are the query node's first-hop neighborhood;
// for s >= 2 this can miss feasible s-plexes that need 2-hop members, a known
// limitation of the search.
func findSPlexWithSize(g *graph.Graph, queryNode, s, targetSize int) []int {
	current := []int{queryNode}

	candidates := make([]int, 0, g.Degree(queryNode))
	seen := map[int]bool{queryNode: true}
	for _, neighbor := range g.Neighbors(queryNode) {
		if !seen[neighbor] {
			seen[neighbor] = true
			candidates = append(candidates, neighbor)
		}
	}
	sort.Ints(candidates)

	return backtrackSPlex(g, current, candidates, s, targetSize)
}

// FindMinimumKCoreContainingNode finds the smallest k-core containing the
// query node. Computes a fresh decomposition; use the WithCoreNumbers variant
// to reuse a cached one.
func FindMinimumKCoreContainingNode(g *graph.Graph, queryNode, k int) MinimumResult {
	kc := kcore.Decompose(g)
	return FindMinimumKCoreContainingNodeWithCoreNumbers(g, queryNode, k, kc.CoreNumbers)
}

// FindMinimumKCoreContainingNodeWithCoreNumbers finds the smallest k-core
// containing the query node using precomputed core numbers.
//
// The minimum k-core containing q is the smallest s-plex of size s+k for the
// least s >= 1 admitting one (IBB formulation, CIKM 2023): each vertex of an
// s-plex misses at most s-1 other members, so an s-plex of size s+k has
// minimum degree k.
func FindMinimumKCoreContainingNodeWithCoreNumbers(g *graph.Graph, queryNode, k int, coreNumbers []uint32) MinimumResult {
	result := MinimumResult{KValue: k}

	if queryNode < 0 || queryNode >= len(coreNumbers) {
		return result
	}
	if coreNumbers[queryNode] < uint32(k) {
		return result
	}

	maxS := 0
	if g.NumNodes > k {
		maxS = g.NumNodes - k
	}

	for s := 1; s <= maxS; s++ {
		targetSize := s + k
		if targetSize > g.NumNodes {
			break
		}

		found := findSPlexWithSize(g, queryNode, s, targetSize)
		if found != nil {
			nodes := make([]uint64, len(found))
			for i, internal := range found {
				nodes[i] = g.IDMap[internal]
			}
			result.Nodes = nodes
			result.Size = len(nodes)
			result.Found = true
			return result
		}
	}

	return result
}

// FindMinimumKCore finds the smallest k-core in the whole graph by running
// the per-node query for every vertex with core number >= k, reusing a single
// decomposition.
func FindMinimumKCore(g *graph.Graph, k int) MinimumResult {
	kc := kcore.Decompose(g)
	return FindMinimumKCoreWithCoreNumbers(g, k, kc.CoreNumbers)
}

// FindMinimumKCoreWithCoreNumbers finds the smallest k-core in the graph
// using precomputed core numbers.
func FindMinimumKCoreWithCoreNumbers(g *graph.Graph, k int, coreNumbers []uint32) MinimumResult {
	best := MinimumResult{KValue: k}

	for v, core := range coreNumbers {
		if core < uint32(k) {
			continue
		}
		result := FindMinimumKCoreContainingNodeWithCoreNumbers(g, v, k, coreNumbers)
		if result.Found && (!best.Found || result.Size < best.Size) {
			best = result
		}
	}

	return best
}
