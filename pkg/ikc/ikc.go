// Package ikc implements Iterative K-Core Clustering: repeatedly peel the
// maximum k-core of the graph, emit its k-valid connected components as
// clusters and recurse on the remainder.
package ikc

import (
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vikramr2/ikc/pkg/graph"
	"github.com/vikramr2/ikc/pkg/kcore"
	"github.com/vikramr2/ikc/pkg/validation"
)

// Cluster is one emitted cluster: external node ids, the k value of the core
// it was peeled from and its modularity score.
type Cluster struct {
	Nodes      []uint64 `json:"nodes"`
	KValue     uint32   `json:"k_value"`
	Modularity float64  `json:"modularity"`
}

// ProgressCallback is invoked once per outer iteration with the current
// maximum core number.
type ProgressCallback func(maxCore uint32)

// Statistics contains counters and timings for one driver run.
type Statistics struct {
	Iterations       int   `json:"iterations"`
	FailedKValid     int   `json:"failed_k_valid"`
	FailedModularity int   `json:"failed_modularity"`
	Singletons       int   `json:"singletons"`
	RuntimeMS        int64 `json:"runtime_ms"`
	MemoryPeakMB     int64 `json:"memory_peak_mb"`
}

// Result is the output of a driver run.
type Result struct {
	Clusters   []Cluster  `json:"clusters"`
	Statistics Statistics `json:"statistics"`
}

// componentOutcome is the disposition of a single k-core component, produced
// by the parallel evaluation step and merged sequentially.
type componentOutcome struct {
	graphNodes       []int // internal ids in the working graph
	cluster          *Cluster
	failedKValid     bool
	failedModularity bool
}

// Run executes IKC on the graph. The graph itself is not mutated; each outer
// iteration compacts the remainder into a fresh working graph.
func Run(g *graph.Graph, config *Config, progress ProgressCallback) (*Result, error) {
	return RunWithOriginal(g, g, config, progress)
}

// RunWithOriginal executes IKC on a working graph while computing modularity
// against a separate original graph. The streaming layer uses this to
// recluster an affected subgraph without losing the original edge count.
func RunWithOriginal(working, orig *graph.Graph, config *Config, progress ProgressCallback) (*Result, error) {
	startTime := time.Now()
	logger := config.CreateLogger()
	minK := config.MinK()

	if err := working.Validate(); err != nil {
		return nil, fmt.Errorf("invalid graph: %w", err)
	}

	logger.Info().
		Int("nodes", working.NumNodes).
		Int("edges", working.NumEdges).
		Uint32("min_k", minK).
		Msg("Starting IKC")

	result := &Result{Clusters: make([]Cluster, 0)}
	singletons := make([]uint64, 0)
	current := working

	for current.NumNodes > 0 {
		result.Statistics.Iterations++

		kc := kcore.Decompose(current)
		maxK := kc.MaxCore

		if progress != nil && config.EnableProgress() {
			progress(maxK)
		}
		logger.Debug().
			Uint32("max_core", maxK).
			Int("nodes", current.NumNodes).
			Msg("Iteration")

		// Peeling bottomed out: flush everything left as singletons.
		if maxK < minK {
			for v := 0; v < current.NumNodes; v++ {
				ext := current.IDMap[v]
				origIdx := orig.NodeMap[ext]
				mod := validation.SingletonModularity(origIdx, orig)
				result.Clusters = append(result.Clusters, Cluster{Nodes: []uint64{ext}, KValue: 0, Modularity: mod})
				result.Statistics.Singletons++
			}
			for _, ext := range singletons {
				result.Clusters = append(result.Clusters, Cluster{Nodes: []uint64{ext}, KValue: 0, Modularity: 0.0})
				result.Statistics.Singletons++
			}
			break
		}

		coreNodes := kc.KCoreNodes(maxK)
		if len(coreNodes) == 0 {
			break
		}

		sub := current.Subgraph(coreNodes)
		components := graph.ConnectedComponents(sub)

		logger.Debug().
			Int("kcore_nodes", len(coreNodes)).
			Int("components", len(components)).
			Msg("Max k-core extracted")

		outcomes := evaluateComponents(components, sub, coreNodes, current, orig, maxK, minK, config)

		toRemove := make(map[int]bool)
		for _, outcome := range outcomes {
			for _, node := range outcome.graphNodes {
				toRemove[node] = true
			}
			switch {
			case outcome.failedKValid:
				result.Statistics.FailedKValid++
				for _, node := range outcome.graphNodes {
					singletons = append(singletons, current.IDMap[node])
				}
			case outcome.failedModularity:
				result.Statistics.FailedModularity++
				for _, node := range outcome.graphNodes {
					singletons = append(singletons, current.IDMap[node])
				}
			default:
				result.Clusters = append(result.Clusters, *outcome.cluster)
			}
		}

		remaining := make([]int, 0, current.NumNodes-len(toRemove))
		for v := 0; v < current.NumNodes; v++ {
			if !toRemove[v] {
				remaining = append(remaining, v)
			}
		}
		current = current.Subgraph(remaining)
	}

	result.Statistics.RuntimeMS = time.Since(startTime).Milliseconds()
	result.Statistics.MemoryPeakMB = getMemoryUsage()

	logger.Info().
		Int("clusters", len(result.Clusters)).
		Int("failed_k_valid", result.Statistics.FailedKValid).
		Int("failed_modularity", result.Statistics.FailedModularity).
		Int64("runtime_ms", result.Statistics.RuntimeMS).
		Msg("IKC completed")

	return result, nil
}

// evaluateComponents decides the disposition of each component of the max
// k-core. Components are independent, so evaluation fans out over a bounded
// worker pool; each worker writes only its own slot.
func evaluateComponents(components [][]int, sub *graph.Graph, coreNodes []int,
	current, orig *graph.Graph, maxK, minK uint32, config *Config) []componentOutcome {

	outcomes := make([]componentOutcome, len(components))

	evaluate := func(i int) {
		component := components[i]
		graphNodes := make([]int, len(component))
		for j, subNode := range component {
			graphNodes[j] = coreNodes[subNode]
		}
		outcomes[i].graphNodes = graphNodes

		if !validation.IsKValid(component, sub, minK) {
			outcomes[i].failedKValid = true
			return
		}

		var mod float64
		if config.TrueModularity() {
			origNodes := make([]int, len(graphNodes))
			for j, node := range graphNodes {
				origNodes[j] = orig.NodeMap[current.IDMap[node]]
			}
			mod = validation.Modularity(origNodes, orig)
		} else {
			mod = validation.ModularitySimplified(component, orig)
		}

		if mod <= 0 {
			outcomes[i].failedModularity = true
			return
		}

		nodes := make([]uint64, len(graphNodes))
		for j, node := range graphNodes {
			nodes[j] = current.IDMap[node]
		}
		outcomes[i].cluster = &Cluster{Nodes: nodes, KValue: maxK, Modularity: mod}
	}

	if config.Parallel() && config.NumWorkers() > 1 && len(components) > 1 {
		var eg errgroup.Group
		eg.SetLimit(config.NumWorkers())
		for i := range components {
			i := i
			eg.Go(func() error {
				evaluate(i)
				return nil
			})
		}
		eg.Wait()
	} else {
		for i := range components {
			evaluate(i)
		}
	}

	return outcomes
}

// getMemoryUsage returns current memory usage in MB
func getMemoryUsage() int64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return int64(m.Alloc / 1024 / 1024)
}
