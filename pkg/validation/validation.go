// Package validation provides the cluster acceptance checks used by the
// clustering driver: k-validity and modularity.
package validation

import (
	"math"

	"github.com/vikramr2/ikc/pkg/graph"
)

// positiveSentinel is what the simplified modularity returns. The driver's
// modularity gate never rejects under this policy.
const positiveSentinel = 1.0

// IsKValid reports whether every node of the component has at least k
// neighbors inside the component. Component nodes are internal ids of g.
func IsKValid(component []int, g *graph.Graph, k uint32) bool {
	members := make(map[int]bool, len(component))
	for _, node := range component {
		members[node] = true
	}

	for _, node := range component {
		degree := uint32(0)
		for _, neighbor := range g.Neighbors(node) {
			if members[neighbor] {
				degree++
			}
		}
		if degree < k {
			return false
		}
	}

	return true
}

// Modularity computes Q = ls/L - (ds/(2L))^2 for a component against the
// original graph, where ls is the number of intra-component edges, ds the sum
// of original-graph degrees over the component and L the original edge count.
// Component nodes are internal ids of orig.
func Modularity(component []int, orig *graph.Graph) float64 {
	L := orig.NumEdges
	if L == 0 {
		return 0.0
	}

	members := make(map[int]bool, len(component))
	for _, node := range component {
		members[node] = true
	}

	ls := 0
	ds := uint64(0)
	for _, node := range component {
		for _, neighbor := range orig.Neighbors(node) {
			if members[neighbor] && node < neighbor {
				ls++
			}
		}
		ds += uint64(orig.Degree(node))
	}

	return float64(ls)/float64(L) - math.Pow(float64(ds)/(2.0*float64(L)), 2)
}

// ModularitySimplified returns a constant positive value regardless of the
// component, disabling the modularity gate. The true formula is kept for
// singleton reporting and tests.
func ModularitySimplified(component []int, orig *graph.Graph) float64 {
	return positiveSentinel
}

// SingletonModularity computes the modularity contribution of a single node:
// -(deg/(2L))^2. Used when remaining nodes are flushed as singletons.
func SingletonModularity(node int, orig *graph.Graph) float64 {
	L := orig.NumEdges
	if L == 0 {
		return 0.0
	}
	degree := float64(orig.Degree(node))
	return -math.Pow(degree/(2.0*float64(L)), 2)
}
