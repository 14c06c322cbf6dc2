package viz

import (
	"encoding/json"
	"fmt"
)

// CytoscapeElements represents the Cytoscape.js data format.
type CytoscapeElements struct {
	Nodes []CytoscapeNode `json:"nodes"`
	Edges []CytoscapeEdge `json:"edges"`
}

// CytoscapeNode represents a node in Cytoscape.js format.
type CytoscapeNode struct {
	Data    Node   `json:"data"`
	Classes string `json:"classes,omitempty"`
}

// CytoscapeEdge represents an edge in Cytoscape.js format.
type CytoscapeEdge struct {
	Data    Edge   `json:"data"`
	Classes string `json:"classes,omitempty"`
}

// Elements converts the scene to Cytoscape.js elements. Edge IDs are the graph
// edge keys, so they are stable across builds.
func (s *Scene) Elements() CytoscapeElements {
	elements := CytoscapeElements{
		Nodes: make([]CytoscapeNode, 0, len(s.Nodes)),
		Edges: make([]CytoscapeEdge, 0, len(s.Edges)),
	}

	for _, n := range s.Nodes {
		elements.Nodes = append(elements.Nodes, CytoscapeNode{Data: n, Classes: selectedClass(n.Selected)})
	}
	for _, e := range s.Edges {
		elements.Edges = append(elements.Edges, CytoscapeEdge{Data: e, Classes: selectedClass(e.Selected)})
	}
	return elements
}

// ToCytoscapeJSON converts the scene to Cytoscape.js JSON format.
func (s *Scene) ToCytoscapeJSON() (string, error) {
	jsonBytes, err := json.Marshal(s.Elements())
	if err != nil {
		return "", fmt.Errorf("marshaling Cytoscape elements to JSON: %w", err)
	}
	return string(jsonBytes), nil
}

func selectedClass(selected bool) string {
	if selected {
		return "selected"
	}
	return ""
}
