// Package kcoresearch implements targeted k-core queries: the maximal k-core
// containing a node (core-number-guided BFS) and the minimum k-core containing
// a node (iterative branch-and-bound over s-plexes).
package kcoresearch

import (
	"github.com/vikramr2/ikc/pkg/graph"
	"github.com/vikramr2/ikc/pkg/kcore"
)

// MaximalResult is the outcome of a maximal k-core query.
type MaximalResult struct {
	Nodes  []uint64 `json:"nodes"` // external ids
	KValue uint32   `json:"k_value"`
	Size   int      `json:"size"`
	Found  bool     `json:"found"`
}

// FindMaximalKCore finds the maximal k-core containing the query node, where
// k is the query node's core number. Computes a fresh decomposition; use
// FindMaximalKCoreWithCoreNumbers to reuse a cached one.
func FindMaximalKCore(g *graph.Graph, queryNode int) MaximalResult {
	kc := kcore.Decompose(g)
	return FindMaximalKCoreWithCoreNumbers(g, queryNode, kc.CoreNumbers)
}

// FindMaximalKCoreWithCoreNumbers finds the maximal k-core containing the
// query node using precomputed core numbers. The result is the connected
// component of the query node within the subgraph induced by all nodes of
// core number >= core(query). Runs in O(n + m).
func FindMaximalKCoreWithCoreNumbers(g *graph.Graph, queryNode int, coreNumbers []uint32) MaximalResult {
	var result MaximalResult

	if queryNode < 0 || queryNode >= len(coreNumbers) {
		return result
	}

	k := coreNumbers[queryNode]
	result.KValue = k

	if k == 0 {
		result.Nodes = []uint64{g.IDMap[queryNode]}
		result.Size = 1
		result.Found = true
		return result
	}

	inCore := make([]bool, len(coreNumbers))
	for v, core := range coreNumbers {
		if core >= k {
			inCore[v] = true
		}
	}

	visited := make(map[int]bool)
	queue := []int{queryNode}
	visited[queryNode] = true

	component := make([]uint64, 0)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		component = append(component, g.IDMap[current])

		for _, neighbor := range g.Neighbors(current) {
			if inCore[neighbor] && !visited[neighbor] {
				visited[neighbor] = true
				queue = append(queue, neighbor)
			}
		}
	}

	result.Nodes = component
	result.Size = len(component)
	result.Found = true

	return result
}
