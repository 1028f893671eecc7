package kcoresearch

import (
	"sort"
	"testing"

	"github.com/vikramr2/ikc/pkg/graph"
	"github.com/vikramr2/ikc/pkg/kcore"
)

func buildGraph(t *testing.T, edges [][2]uint64, isolated ...uint64) *graph.Graph {
	t.Helper()
	g := graph.NewGraph()
	addNode := func(ext uint64) {
		if !g.HasNode(ext) {
			if err := g.AddNode(ext); err != nil {
				t.Fatalf("AddNode(%d) failed: %v", ext, err)
			}
		}
	}
	for _, e := range edges {
		addNode(e[0])
		addNode(e[1])
		if _, err := g.AddEdges([][2]int{{g.NodeMap[e[0]], g.NodeMap[e[1]]}}); err != nil {
			t.Fatalf("AddEdges failed: %v", err)
		}
	}
	for _, ext := range isolated {
		addNode(ext)
	}
	return g
}

func sortedNodes(nodes []uint64) []uint64 {
	out := append([]uint64(nil), nodes...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func TestFindMaximalKCore(t *testing.T) {
	// Triangle 1-2-3 plus pendant 4 on 3.
	g := buildGraph(t, [][2]uint64{{1, 2}, {2, 3}, {1, 3}, {3, 4}})

	result := FindMaximalKCore(g, g.NodeMap[1])
	if !result.Found {
		t.Fatalf("Expected result")
	}
	if result.KValue != 2 {
		t.Errorf("Expected k=2, got %d", result.KValue)
	}
	want := []uint64{1, 2, 3}
	got := sortedNodes(result.Nodes)
	if len(got) != len(want) {
		t.Fatalf("Expected nodes %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected nodes %v, got %v", want, got)
		}
	}

	// The pendant has core 1; its maximal 1-core is the whole connected
	// graph.
	result = FindMaximalKCore(g, g.NodeMap[4])
	if result.KValue != 1 {
		t.Errorf("Expected k=1, got %d", result.KValue)
	}
	if result.Size != 4 {
		t.Errorf("Expected 4 nodes in 1-core component, got %d", result.Size)
	}
}

func TestFindMaximalKCoreIsolated(t *testing.T) {
	g := buildGraph(t, [][2]uint64{{1, 2}}, 9)

	result := FindMaximalKCore(g, g.NodeMap[9])
	if !result.Found {
		t.Fatalf("Expected result for isolated node")
	}
	if result.KValue != 0 || result.Size != 1 || result.Nodes[0] != 9 {
		t.Errorf("Expected singleton {9} at k=0, got %+v", result)
	}
}

func TestFindMaximalKCoreInvalidNode(t *testing.T) {
	g := buildGraph(t, [][2]uint64{{1, 2}})
	result := FindMaximalKCore(g, 99)
	if result.Found {
		t.Errorf("Expected no result for out-of-range node")
	}
}

// TestFindMaximalKCoreComponentProperty checks the returned set is exactly
// the connected component of the query in the core-restricted subgraph.
func TestFindMaximalKCoreComponentProperty(t *testing.T) {
	// Two disjoint triangles; query in one must not leak into the other.
	g := buildGraph(t, [][2]uint64{
		{1, 2}, {2, 3}, {1, 3},
		{4, 5}, {5, 6}, {4, 6},
	})

	kc := kcore.Decompose(g)
	result := FindMaximalKCoreWithCoreNumbers(g, g.NodeMap[5], kc.CoreNumbers)

	if result.KValue != kc.CoreNumbers[g.NodeMap[5]] {
		t.Errorf("k value %d does not match core number %d", result.KValue, kc.CoreNumbers[g.NodeMap[5]])
	}
	got := sortedNodes(result.Nodes)
	want := []uint64{4, 5, 6}
	if len(got) != 3 {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, got)
		}
	}
}

func TestFindMinimumKCoreContainingNode(t *testing.T) {
	// Triangle plus pendant: minimum 2-core containing node 1 is the
	// triangle itself (s=1, size 3).
	g := buildGraph(t, [][2]uint64{{1, 2}, {2, 3}, {1, 3}, {3, 4}})

	result := FindMinimumKCoreContainingNode(g, g.NodeMap[1], 2)
	if !result.Found {
		t.Fatalf("Expected result")
	}
	if result.Size != 3 {
		t.Errorf("Expected size 3, got %d", result.Size)
	}
	got := sortedNodes(result.Nodes)
	want := []uint64{1, 2, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, got)
		}
	}
}

func TestFindMinimumKCoreContainingNodePrecondition(t *testing.T) {
	g := buildGraph(t, [][2]uint64{{1, 2}, {2, 3}, {1, 3}, {3, 4}})

	// Pendant has core 1 < 2: no 2-core contains it.
	result := FindMinimumKCoreContainingNode(g, g.NodeMap[4], 2)
	if result.Found {
		t.Errorf("Expected no result for node below core threshold")
	}

	result = FindMinimumKCoreContainingNode(g, 99, 2)
	if result.Found {
		t.Errorf("Expected no result for out-of-range node")
	}
}

// TestFindMinimumKCoreSPlexProperty verifies that on a K4 the minimum 2-core
// containing a node is a proper subset: a triangle (s=1, size 3), which is a
// 1-plex of size 3.
func TestFindMinimumKCoreSPlexProperty(t *testing.T) {
	g := buildGraph(t, [][2]uint64{
		{1, 2}, {1, 3}, {1, 4}, {2, 3}, {2, 4}, {3, 4},
	})

	result := FindMinimumKCoreContainingNode(g, g.NodeMap[1], 2)
	if !result.Found {
		t.Fatalf("Expected result")
	}
	if result.Size != 3 {
		t.Errorf("Expected minimum 2-core of size 3 inside K4, got %d", result.Size)
	}

	// Verify the s-plex property directly: size = s + k with s = 1, so each
	// member needs intra-set degree >= 2.
	members := make(map[uint64]bool)
	for _, n := range result.Nodes {
		members[n] = true
	}
	if !members[1] {
		t.Errorf("Result must contain the query node, got %v", result.Nodes)
	}
	for _, n := range result.Nodes {
		internal := g.NodeMap[n]
		degree := 0
		for _, w := range g.Neighbors(internal) {
			if members[g.IDMap[w]] {
				degree++
			}
		}
		if degree < result.Size-1 {
			t.Errorf("Node %d has intra-set degree %d, want >= %d", n, degree, result.Size-1)
		}
	}
}

func TestFindMinimumKCoreGlobal(t *testing.T) {
	// A K4 and a K5 sharing no nodes: the global minimum 3-core is the K4.
	g := buildGraph(t, [][2]uint64{
		{1, 2}, {1, 3}, {1, 4}, {2, 3}, {2, 4}, {3, 4},
		{10, 11}, {10, 12}, {10, 13}, {10, 14},
		{11, 12}, {11, 13}, {11, 14},
		{12, 13}, {12, 14}, {13, 14},
	})

	result := FindMinimumKCore(g, 3)
	if !result.Found {
		t.Fatalf("Expected result")
	}
	if result.Size != 4 {
		t.Errorf("Expected global minimum 3-core of size 4, got %d", result.Size)
	}
	for _, n := range sortedNodes(result.Nodes) {
		if n > 4 {
			t.Errorf("Expected the K4 nodes, got %v", result.Nodes)
			break
		}
	}
}

func TestFindMinimumKCoreGlobalNotFound(t *testing.T) {
	g := buildGraph(t, [][2]uint64{{1, 2}, {2, 3}})
	result := FindMinimumKCore(g, 2)
	if result.Found {
		t.Errorf("Expected no 2-core in a path")
	}
}
