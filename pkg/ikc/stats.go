package ikc

import (
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates cluster size statistics for run reporting.
type Summary struct {
	NumClusters   int     `json:"num_clusters"`
	NumSingletons int     `json:"num_singletons"`
	NumNodes      int     `json:"num_nodes"`
	MinSize       int     `json:"min_size"`
	MaxSize       int     `json:"max_size"`
	MeanSize      float64 `json:"mean_size"`
	StdDevSize    float64 `json:"std_dev_size"`
	MaxKValue     uint32  `json:"max_k_value"`
	LargeClusters int     `json:"large_clusters"` // clusters with > 100 nodes
}

// Summarize computes size statistics over a clustering.
func Summarize(clusters []Cluster) Summary {
	s := Summary{NumClusters: len(clusters)}
	if len(clusters) == 0 {
		return s
	}

	sizes := make([]float64, len(clusters))
	s.MinSize = len(clusters[0].Nodes)
	for i, cluster := range clusters {
		size := len(cluster.Nodes)
		sizes[i] = float64(size)
		s.NumNodes += size
		if size == 1 {
			s.NumSingletons++
		}
		if size > 100 {
			s.LargeClusters++
		}
		if size < s.MinSize {
			s.MinSize = size
		}
		if size > s.MaxSize {
			s.MaxSize = size
		}
		if cluster.KValue > s.MaxKValue {
			s.MaxKValue = cluster.KValue
		}
	}

	s.MeanSize = stat.Mean(sizes, nil)
	if len(sizes) > 1 {
		s.StdDevSize = stat.StdDev(sizes, nil)
	}

	return s
}
