package graph

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// LoadTSVEdgeList reads an undirected edge list from a TSV file: one edge per
// line, two integer node ids separated by a tab. Lines starting with '#' are
// comments. Duplicate edges and self-loops are dropped.
func LoadTSVEdgeList(path string, logger zerolog.Logger) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open edge list %s: %w", path, err)
	}
	defer f.Close()

	g, err := ReadTSVEdgeList(f, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to parse edge list %s: %w", path, err)
	}
	return g, nil
}

// ReadTSVEdgeList parses a TSV edge list from a reader.
func ReadTSVEdgeList(r io.Reader, logger zerolog.Logger) (*Graph, error) {
	g := NewGraph()

	type edgeKey struct{ u, v uint64 }
	seen := make(map[edgeKey]bool)

	selfLoops := 0
	duplicates := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: expected two node ids, got %q", lineNum, line)
		}

		u, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid node id %q: %w", lineNum, fields[0], err)
		}
		v, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid node id %q: %w", lineNum, fields[1], err)
		}

		if u == v {
			selfLoops++
			continue
		}

		key := edgeKey{u, v}
		if v < u {
			key = edgeKey{v, u}
		}
		if seen[key] {
			duplicates++
			continue
		}
		seen[key] = true

		if !g.HasNode(u) {
			g.AddNode(u)
		}
		if !g.HasNode(v) {
			g.AddNode(v)
		}
		if _, err := g.AddEdges([][2]int{{g.NodeMap[u], g.NodeMap[v]}}); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read edge list: %w", err)
	}

	logger.Info().
		Int("nodes", g.NumNodes).
		Int("edges", g.NumEdges).
		Int("self_loops_dropped", selfLoops).
		Int("duplicates_dropped", duplicates).
		Msg("Edge list loaded")

	return g, nil
}
