package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matsen/atlas/internal/graph"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines (1MB per line).
const MaxJSONLLineCapacity = 1024 * 1024

// Record kinds in a graph JSONL dump.
const (
	RecordNode = "node"
	RecordEdge = "edge"
)

// Record is one line of a graph JSONL dump. Exactly one of Node and Edge is set.
type Record struct {
	Kind string      `json:"kind"`
	Node *graph.Node `json:"node,omitempty"`
	Edge *graph.Edge `json:"edge,omitempty"`
}

// WriteJSONL writes every node and then every edge of g, one record per line.
// Unlike the interchange format this keeps edge keys, attributes, and timestamps.
func WriteJSONL(w io.Writer, g *graph.Graph) error {
	enc := json.NewEncoder(w)
	for _, n := range g.Nodes() {
		n := n
		if err := enc.Encode(Record{Kind: RecordNode, Node: &n}); err != nil {
			return fmt.Errorf("encoding node %s: %w", n.Name, err)
		}
	}
	for _, e := range g.Edges() {
		e := e
		if err := enc.Encode(Record{Kind: RecordEdge, Edge: &e}); err != nil {
			return fmt.Errorf("encoding edge %s: %w", e.Key, err)
		}
	}
	return nil
}

// ReadJSONL rebuilds a graph from a JSONL dump.
func ReadJSONL(r io.Reader, opts ...graph.Option) (*graph.Graph, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, MaxJSONLLineCapacity)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	var (
		nodes []graph.Node
		edges []graph.Edge
	)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue // Skip empty lines
		}

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}
		switch {
		case rec.Kind == RecordNode && rec.Node != nil:
			nodes = append(nodes, *rec.Node)
		case rec.Kind == RecordEdge && rec.Edge != nil:
			edges = append(edges, *rec.Edge)
		default:
			return nil, fmt.Errorf("line %d: unknown record kind %q", lineNum, rec.Kind)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading JSONL: %w", err)
	}

	g, err := graph.FromParts(nodes, edges, opts...)
	if err != nil {
		return nil, fmt.Errorf("rebuilding graph: %w", err)
	}
	return g, nil
}

// WriteJSONLFile writes a JSONL dump of g to path, replacing existing content.
func WriteJSONLFile(path string, g *graph.Graph) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteJSONL(f, g); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadJSONLFile reads a JSONL dump from path.
func ReadJSONLFile(path string, opts ...graph.Option) (*graph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSONL(f, opts...)
}
