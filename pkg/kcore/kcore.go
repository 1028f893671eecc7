// Package kcore implements batch k-core decomposition via bucket-based
// peeling.
package kcore

import (
	"github.com/vikramr2/ikc/pkg/graph"
)

// Result holds the per-node core numbers and the maximum core of the graph.
// CoreNumbers is aligned to the graph's internal ids.
type Result struct {
	CoreNumbers []uint32 `json:"core_numbers"`
	MaxCore     uint32   `json:"max_core"`
}

// Decompose computes the k-core decomposition of the graph using the peeling
// algorithm. Nodes are processed in buckets of increasing residual degree;
// stale bucket entries are filtered at pop time. Runs in O(n + m).
func Decompose(g *graph.Graph) Result {
	result := Result{CoreNumbers: make([]uint32, g.NumNodes)}

	if g.NumNodes == 0 {
		return result
	}

	degrees := make([]uint32, g.NumNodes)
	removed := make([]bool, g.NumNodes)

	maxDegree := uint32(0)
	for v := 0; v < g.NumNodes; v++ {
		degrees[v] = uint32(g.Degree(v))
		if degrees[v] > maxDegree {
			maxDegree = degrees[v]
		}
	}

	bins := make([][]int, maxDegree+1)
	for v := 0; v < g.NumNodes; v++ {
		bins[degrees[v]] = append(bins[degrees[v]], v)
	}

	currentCore := uint32(0)
	for binIdx := uint32(0); binIdx <= maxDegree; binIdx++ {
		for len(bins[binIdx]) > 0 {
			node := bins[binIdx][len(bins[binIdx])-1]
			bins[binIdx] = bins[binIdx][:len(bins[binIdx])-1]

			if removed[node] {
				continue
			}

			result.CoreNumbers[node] = binIdx
			if binIdx > currentCore {
				currentCore = binIdx
			}
			removed[node] = true

			for _, neighbor := range g.Neighbors(node) {
				if !removed[neighbor] && degrees[neighbor] > binIdx {
					degrees[neighbor]--
					bins[degrees[neighbor]] = append(bins[degrees[neighbor]], neighbor)
				}
			}
		}
	}

	result.MaxCore = currentCore
	return result
}

// KCoreNodes returns the internal ids of nodes with core number >= k, in
// internal id order.
func (r Result) KCoreNodes(k uint32) []int {
	nodes := make([]int, 0)
	for v, core := range r.CoreNumbers {
		if core >= k {
			nodes = append(nodes, v)
		}
	}
	return nodes
}
