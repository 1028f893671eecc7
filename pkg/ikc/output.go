package ikc

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// WriteCSV writes clusters as header-less CSV rows:
// node_id,cluster_index,k_value,modularity. Cluster indices are 1-based in
// emission order.
func WriteCSV(w io.Writer, clusters []Cluster) error {
	bw := bufio.NewWriter(w)
	for i, cluster := range clusters {
		for _, node := range cluster.Nodes {
			if _, err := fmt.Fprintf(bw, "%d,%d,%d,%g\n", node, i+1, cluster.KValue, cluster.Modularity); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// WriteTSV writes clusters as header-less TSV rows: node_id<TAB>cluster_index.
func WriteTSV(w io.Writer, clusters []Cluster) error {
	bw := bufio.NewWriter(w)
	for i, cluster := range clusters {
		for _, node := range cluster.Nodes {
			if _, err := fmt.Fprintf(bw, "%d\t%d\n", node, i+1); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// WriteClustersFile writes the clustering to a file in CSV or TSV format.
func WriteClustersFile(path string, clusters []Cluster, tsvFormat bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", path, err)
	}
	defer f.Close()

	if tsvFormat {
		err = WriteTSV(f, clusters)
	} else {
		err = WriteCSV(f, clusters)
	}
	if err != nil {
		return fmt.Errorf("failed to write clusters to %s: %w", path, err)
	}
	return nil
}
