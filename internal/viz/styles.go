package viz

import "github.com/matsen/atlas/internal/graph"

// Sizes and highlight colors.
const (
	NodeSize         = 20
	SelectedNodeSize = 30
	HighlightColor   = "#ffd700" // gold, overrides the type color

	EdgeWidth          = 1
	SelectedEdgeWidth  = 3
	EdgeHighlightColor = "#FFA500" // orange, overrides the relationship color

	// ArrowTo is the Cytoscape target-arrow-shape for directed edges.
	ArrowTo = "triangle"
)

// NodeStyle is the color and Cytoscape shape for a node type.
type NodeStyle struct {
	Color string `json:"color"`
	Shape string `json:"shape"`
}

// EdgeStyle is the color and arrow for a relationship label.
type EdgeStyle struct {
	Color string `json:"color"`
	Arrow string `json:"arrow"`
}

var nodeStyles = map[graph.NodeType]NodeStyle{
	graph.MainTopic: {Color: "#ff7f7f", Shape: "ellipse"},
	graph.SubTopic:  {Color: "#7f7fff", Shape: "ellipse"},
	graph.Paper:     {Color: "#7fff7f", Shape: "diamond"},
	graph.Concept:   {Color: "#ff7fff", Shape: "triangle"},
	graph.Method:    {Color: "#ffff7f", Shape: "star"},
	graph.Tool:      {Color: "#7fffff", Shape: "rectangle"},
	graph.Dataset:   {Color: "#ffa07a", Shape: "hexagon"},
	graph.Other:     {Color: "#d3d3d3", Shape: "ellipse"},
}

// DefaultNodeStyle applies to any type missing from the table.
var DefaultNodeStyle = NodeStyle{Color: "#d3d3d3", Shape: "ellipse"}

var edgeStyles = map[string]EdgeStyle{
	graph.RelationshipBelongsTo: {Color: "#808080", Arrow: ArrowTo},
	graph.RelationshipRelatedTo: {Color: "#0000ff", Arrow: ArrowTo},
	graph.RelationshipDependsOn: {Color: "#ff0000", Arrow: ArrowTo},
}

// DefaultEdgeStyle applies to any relationship missing from the table.
var DefaultEdgeStyle = EdgeStyle{Color: "#000000", Arrow: ArrowTo}

// NodeStyleFor returns the style for a node type.
func NodeStyleFor(t graph.NodeType) NodeStyle {
	if s, ok := nodeStyles[t]; ok {
		return s
	}
	return DefaultNodeStyle
}

// EdgeStyleFor returns the style for a relationship label.
func EdgeStyleFor(relationship string) EdgeStyle {
	if s, ok := edgeStyles[relationship]; ok {
		return s
	}
	return DefaultEdgeStyle
}

// LegendEntry describes one row of the rendered legend.
type LegendEntry struct {
	Label string `json:"label"`
	Color string `json:"color"`
	Shape string `json:"shape,omitempty"`
}

// NodeLegend lists node styles in type order.
func NodeLegend() []LegendEntry {
	entries := make([]LegendEntry, 0, len(nodeStyles))
	for _, t := range graph.AllNodeTypes() {
		s := NodeStyleFor(t)
		entries = append(entries, LegendEntry{Label: t.String(), Color: s.Color, Shape: s.Shape})
	}
	return entries
}

// EdgeLegend lists the named relationship styles followed by the fallback.
func EdgeLegend() []LegendEntry {
	entries := []LegendEntry{}
	for _, rel := range []string{graph.RelationshipBelongsTo, graph.RelationshipRelatedTo, graph.RelationshipDependsOn} {
		entries = append(entries, LegendEntry{Label: rel, Color: EdgeStyleFor(rel).Color})
	}
	return append(entries, LegendEntry{Label: "other", Color: DefaultEdgeStyle.Color})
}
