// Package graph defines the knowledge graph: typed, leveled nodes connected by
// directed, labeled multi-edges.
package graph

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// NodeType classifies a node. The set is closed; see AllNodeTypes.
type NodeType int

// Node types, in display order.
const (
	MainTopic NodeType = iota
	SubTopic
	Paper
	Concept
	Method
	Tool
	Dataset
	Other
)

var nodeTypeNames = [...]string{
	MainTopic: "main_topic",
	SubTopic:  "sub_topic",
	Paper:     "paper",
	Concept:   "concept",
	Method:    "method",
	Tool:      "tool",
	Dataset:   "dataset",
	Other:     "other",
}

// Relationship labels used by convention. Edges may carry any other label.
const (
	RelationshipBelongsTo = "belongs_to"
	RelationshipRelatedTo = "related_to"
	RelationshipDependsOn = "depends_on"

	// DefaultRelationship is used when an edge is created without a label.
	DefaultRelationship = RelationshipRelatedTo
)

// Validation errors.
var (
	ErrEmptyName       = errors.New("node name is required")
	ErrNegativeLevel   = errors.New("level must be >= 0")
	ErrDuplicateNode   = errors.New("node with this name already exists")
	ErrNodeNotFound    = errors.New("node not found")
	ErrEdgeNotFound    = errors.New("edge not found")
	ErrUnknownNodeType = errors.New("unknown node type")
)

// AllNodeTypes returns every node type in declaration order.
func AllNodeTypes() []NodeType {
	types := make([]NodeType, len(nodeTypeNames))
	for i := range nodeTypeNames {
		types[i] = NodeType(i)
	}
	return types
}

// String returns the canonical lowercase name.
func (t NodeType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("NodeType(%d)", int(t))
	}
	return nodeTypeNames[t]
}

// Valid reports whether t is one of the declared node types.
func (t NodeType) Valid() bool {
	return t >= 0 && int(t) < len(nodeTypeNames)
}

// ParseNodeType matches s case-insensitively against the canonical names.
// Anything else is rejected rather than coerced to Other.
func ParseNodeType(s string) (NodeType, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for i, name := range nodeTypeNames {
		if name == want {
			return NodeType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownNodeType, s)
}

// MarshalText implements encoding.TextMarshaler.
func (t NodeType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownNodeType, int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *NodeType) UnmarshalText(text []byte) error {
	parsed, err := ParseNodeType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Metadata holds the optional descriptive fields of a node.
type Metadata struct {
	URL         string    `json:"url,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewMetadata returns metadata with both timestamps set to now.
func NewMetadata(url, description string) Metadata {
	now := time.Now().UTC()
	return Metadata{
		URL:         url,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Node is a named vertex. The name is the identity.
type Node struct {
	Name     string   `json:"name"`
	Type     NodeType `json:"type"`
	Level    int      `json:"level"`
	Metadata Metadata `json:"metadata"`
}

// Edge is a directed, labeled edge. Parallel edges between the same pair are
// distinct entities distinguished by Key.
type Edge struct {
	Key          string            `json:"key"`
	Source       string            `json:"source"`
	Target       string            `json:"target"`
	Relationship string            `json:"relationship"`
	Attrs        map[string]string `json:"attrs,omitempty"`
}

// Pair returns the ordered endpoint pair of the edge.
func (e Edge) Pair() Pair {
	return Pair{Source: e.Source, Target: e.Target}
}

// Touches reports whether name is either endpoint.
func (e Edge) Touches(name string) bool {
	return e.Source == name || e.Target == name
}

// Pair is an ordered (source, target) endpoint pair.
type Pair struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// String formats the pair as "source -> target".
func (p Pair) String() string {
	return p.Source + " -> " + p.Target
}

// NodeInfo bundles a node with its undirected neighbors.
type NodeInfo struct {
	Node           Node     `json:"node"`
	ConnectedNodes []string `json:"connected_nodes"`
}
