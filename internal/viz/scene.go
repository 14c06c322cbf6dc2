package viz

import (
	"fmt"
	"html"
	"strings"

	"github.com/matsen/atlas/internal/graph"
	"github.com/matsen/atlas/internal/selection"
	"github.com/matsen/atlas/internal/visibility"
)

// BuildScene maps the visible subgraph to styled scene elements.
// Node highlighting follows node selection and edge highlighting follows pair
// selection; the two are independent.
func BuildScene(g *graph.Graph, r visibility.Result, st *selection.State) *Scene {
	scene := &Scene{
		Nodes: make([]Node, 0, len(r.Nodes)),
		Edges: make([]Edge, 0, len(r.Edges)),
	}

	for _, name := range r.Nodes {
		n, ok := g.Node(name)
		if !ok {
			continue
		}
		scene.Nodes = append(scene.Nodes, buildNode(n, st.IsNodeSelected(name)))
	}

	for _, e := range r.Edges {
		scene.Edges = append(scene.Edges, buildEdge(e, st.IsEdgeSelected(e)))
	}

	return scene
}

func buildNode(n graph.Node, selected bool) Node {
	style := NodeStyleFor(n.Type)
	out := Node{
		ID:          n.Name,
		Label:       n.Name,
		Type:        n.Type.String(),
		Level:       n.Level,
		Title:       nodeTitle(n),
		URL:         n.Metadata.URL,
		Description: n.Metadata.Description,
		Color:       style.Color,
		Shape:       style.Shape,
		Size:        NodeSize,
	}
	if selected {
		out.Color = HighlightColor
		out.Size = SelectedNodeSize
		out.Selected = true
	}
	return out
}

func buildEdge(e graph.Edge, selected bool) Edge {
	style := EdgeStyleFor(e.Relationship)
	out := Edge{
		ID:           e.Key,
		Source:       e.Source,
		Target:       e.Target,
		Relationship: e.Relationship,
		Label:        e.Relationship,
		Color:        style.Color,
		Arrow:        style.Arrow,
		Width:        EdgeWidth,
	}
	if selected {
		out.Color = EdgeHighlightColor
		out.Width = SelectedEdgeWidth
		out.Selected = true
	}
	return out
}

// nodeTitle builds the hover text. Name, URL, and description are escaped.
func nodeTitle(n graph.Node) string {
	var b strings.Builder
	b.WriteString(html.EscapeString(n.Name))
	b.WriteString("<br>")
	if n.Metadata.URL != "" {
		fmt.Fprintf(&b, "<a href='%s' target='_blank'>URL</a><br>", html.EscapeString(n.Metadata.URL))
	}
	if n.Metadata.Description != "" {
		fmt.Fprintf(&b, "Description: %s<br>", html.EscapeString(n.Metadata.Description))
	}
	fmt.Fprintf(&b, "Type: %s<br>", n.Type)
	fmt.Fprintf(&b, "Level: %d", n.Level)
	return b.String()
}
