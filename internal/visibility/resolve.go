// Package visibility derives the subgraph to render from level filters, edge
// type filters, and explicit node selections.
package visibility

import (
	"github.com/matsen/atlas/internal/graph"
	"github.com/matsen/atlas/internal/selection"
)

// Result is the visible subgraph. Nodes and Edges follow graph insertion order.
type Result struct {
	Nodes []string     `json:"nodes"`
	Edges []graph.Edge `json:"edges"`

	visible map[string]bool
}

// Contains reports whether name is in the visible node set.
func (r Result) Contains(name string) bool {
	return r.visible[name]
}

// Resolve computes the visible nodes and edges.
//
// Selected nodes are always visible. A neighbor of a visible node is added only
// when its own level passes the filter: adjacency never bypasses the level
// filter the way selection does. Expansion runs once, not to a fixed point.
// An edge is visible iff both endpoints are visible and its relationship
// passes the edge type filter.
func Resolve(g *graph.Graph, st *selection.State) Result {
	nodes := g.Nodes()
	levelOK := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		levelOK[n.Name] = st.Levels.Allows(n.Level)
	}

	seed := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if levelOK[n.Name] || st.SelectedNodes[n.Name] {
			seed[n.Name] = true
		}
	}

	visible := make(map[string]bool, len(seed))
	for name := range seed {
		visible[name] = true
	}
	for _, n := range nodes {
		if !seed[n.Name] {
			continue
		}
		for _, neighbor := range g.Neighbors(n.Name) {
			if levelOK[neighbor] {
				visible[neighbor] = true
			}
		}
	}

	r := Result{visible: visible}
	for _, n := range nodes {
		if visible[n.Name] {
			r.Nodes = append(r.Nodes, n.Name)
		}
	}
	for _, e := range g.Edges() {
		if visible[e.Source] && visible[e.Target] && st.EdgeTypes.Allows(e.Relationship) {
			r.Edges = append(r.Edges, e)
		}
	}
	return r
}
