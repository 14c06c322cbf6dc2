// Package viz maps the visible subgraph to styled scene elements and renders
// them as a Cytoscape.js page.
package viz

// Scene contains everything needed to render the visible subgraph.
type Scene struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node is a visible graph node with its visual encoding.
type Node struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type"`
	Level int    `json:"level"`

	// Tooltip HTML. Components are escaped.
	Title       string `json:"title"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`

	Color    string `json:"color"`
	Shape    string `json:"shape"`
	Size     int    `json:"size"`
	Selected bool   `json:"selected"`
}

// Edge is a visible graph edge with its visual encoding.
type Edge struct {
	ID           string `json:"id"` // graph edge key
	Source       string `json:"source"`
	Target       string `json:"target"`
	Relationship string `json:"relationship"`
	Label        string `json:"label"`

	Color    string `json:"color"`
	Arrow    string `json:"arrow"`
	Width    int    `json:"width"`
	Selected bool   `json:"selected"`
}

// IsEmpty returns true if the scene has no nodes.
func (s *Scene) IsEmpty() bool {
	return len(s.Nodes) == 0
}
