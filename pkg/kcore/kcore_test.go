package kcore

import (
	"testing"

	"github.com/vikramr2/ikc/pkg/graph"
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

// bruteForceCoreNumbers computes core numbers by repeatedly removing every
// node whose remaining degree is below k, independently for each k.
func bruteForceCoreNumbers(g *graph.Graph) []uint32 {
	cores := make([]uint32, g.NumNodes)

	maxDeg := 0
	for v := 0; v < g.NumNodes; v++ {
		if d := g.Degree(v); d > maxDeg {
			maxDeg = d
		}
	}

	for k := 1; k <= maxDeg; k++ {
		alive := make([]bool, g.NumNodes)
		for v := range alive {
			alive[v] = true
		}

		for {
			removedAny := false
			for v := 0; v < g.NumNodes; v++ {
				if !alive[v] {
					continue
				}
				deg := 0
				for _, w := range g.Neighbors(v) {
					if alive[w] {
						deg++
					}
				}
				if deg < k {
					alive[v] = false
					removedAny = true
				}
			}
			if !removedAny {
				break
			}
		}

		for v := 0; v < g.NumNodes; v++ {
			if alive[v] {
				cores[v] = uint32(k)
			}
		}
	}

	return cores
}

func TestDecompose(t *testing.T) {
	tests := []struct {
		name      string
		edges     [][2]uint64
		isolated  []uint64
		wantCores map[uint64]uint32 // external id -> core number
		wantMax   uint32
	}{
		{
			name:      "triangle",
			edges:     [][2]uint64{{1, 2}, {2, 3}, {1, 3}},
			wantCores: map[uint64]uint32{1: 2, 2: 2, 3: 2},
			wantMax:   2,
		},
		{
			name:      "path",
			edges:     [][2]uint64{{1, 2}, {2, 3}, {3, 4}},
			wantCores: map[uint64]uint32{1: 1, 2: 1, 3: 1, 4: 1},
			wantMax:   1,
		},
		{
			name:      "triangle with pendant",
			edges:     [][2]uint64{{1, 2}, {2, 3}, {1, 3}, {3, 4}},
			wantCores: map[uint64]uint32{1: 2, 2: 2, 3: 2, 4: 1},
			wantMax:   2,
		},
		{
			name:      "isolated node",
			edges:     [][2]uint64{{1, 2}},
			isolated:  []uint64{9},
			wantCores: map[uint64]uint32{1: 1, 2: 1, 9: 0},
			wantMax:   1,
		},
		{
			name: "k4",
			edges: [][2]uint64{
				{1, 2}, {1, 3}, {1, 4}, {2, 3}, {2, 4}, {3, 4},
			},
			wantCores: map[uint64]uint32{1: 3, 2: 3, 3: 3, 4: 3},
			wantMax:   3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := buildGraph(t, tt.edges, tt.isolated...)
			result := Decompose(g)

			if result.MaxCore != tt.wantMax {
				t.Errorf("Expected max core %d, got %d", tt.wantMax, result.MaxCore)
			}
			for ext, want := range tt.wantCores {
				got := result.CoreNumbers[g.NodeMap[ext]]
				if got != want {
					t.Errorf("Node %d: expected core %d, got %d", ext, want, got)
				}
			}
		})
	}
}

func TestDecomposeEmpty(t *testing.T) {
	result := Decompose(graph.NewGraph())
	if result.MaxCore != 0 {
		t.Errorf("Expected max core 0 for empty graph, got %d", result.MaxCore)
	}
	if len(result.CoreNumbers) != 0 {
		t.Errorf("Expected no core numbers, got %d", len(result.CoreNumbers))
	}
}

func TestDecomposeMatchesBruteForce(t *testing.T) {
	graphs := map[string][][2]uint64{
		"two triangles bridged": {
			{1, 2}, {2, 3}, {1, 3}, {4, 5}, {5, 6}, {4, 6}, {3, 4},
		},
		"k4 with tail": {
			{1, 2}, {1, 3}, {1, 4}, {2, 3}, {2, 4}, {3, 4}, {4, 5}, {5, 6},
		},
		"star": {
			{1, 2}, {1, 3}, {1, 4}, {1, 5}, {1, 6},
		},
		"wheel": {
			{1, 2}, {2, 3}, {3, 4}, {4, 5}, {5, 1},
			{6, 1}, {6, 2}, {6, 3}, {6, 4}, {6, 5},
		},
	}

	for name, edges := range graphs {
		t.Run(name, func(t *testing.T) {
			g := buildGraph(t, edges)
			result := Decompose(g)
			want := bruteForceCoreNumbers(g)

			for v := 0; v < g.NumNodes; v++ {
				if result.CoreNumbers[v] != want[v] {
					t.Errorf("Node %d (external %d): expected core %d, got %d",
						v, g.IDMap[v], want[v], result.CoreNumbers[v])
				}
			}
		})
	}
}

func TestKCoreNodes(t *testing.T) {
	g := buildGraph(t, [][2]uint64{{1, 2}, {2, 3}, {1, 3}, {3, 4}})
	result := Decompose(g)

	core2 := result.KCoreNodes(2)
	if len(core2) != 3 {
		t.Errorf("Expected 3 nodes in 2-core, got %d", len(core2))
	}
	// Internal id order.
	for i := 1; i < len(core2); i++ {
		if core2[i-1] >= core2[i] {
			t.Errorf("KCoreNodes not in internal id order: %v", core2)
		}
	}

	core0 := result.KCoreNodes(0)
	if len(core0) != g.NumNodes {
		t.Errorf("Expected all nodes in 0-core, got %d", len(core0))
	}

	core9 := result.KCoreNodes(9)
	if len(core9) != 0 {
		t.Errorf("Expected empty 9-core, got %d nodes", len(core9))
	}
}
