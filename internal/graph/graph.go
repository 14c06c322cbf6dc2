package graph

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Graph is an in-memory directed multigraph with insertion-ordered nodes and
// edges. It is not safe for concurrent use; callers serialize mutations.
type Graph struct {
	nodes  map[string]*Node
	order  []string
	edges  []Edge
	newKey func() string
}

// Option configures a Graph.
type Option func(*Graph)

// WithKeyFunc overrides the edge key generator (UUIDs by default).
func WithKeyFunc(fn func() string) Option {
	return func(g *Graph) {
		g.newKey = fn
	}
}

// New returns an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		nodes:  make(map[string]*Node),
		newKey: uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// FromParts rebuilds a graph from nodes and edges in their original order,
// keeping edge keys. Edges missing a key get a fresh one.
func FromParts(nodes []Node, edges []Edge, opts ...Option) (*Graph, error) {
	g := New(opts...)
	for _, n := range nodes {
		if err := validateNode(n.Name, n.Type, n.Level); err != nil {
			return nil, fmt.Errorf("node %q: %w", n.Name, err)
		}
		if _, exists := g.nodes[n.Name]; exists {
			return nil, fmt.Errorf("node %q: %w", n.Name, ErrDuplicateNode)
		}
		node := n
		g.nodes[n.Name] = &node
		g.order = append(g.order, n.Name)
	}
	seen := make(map[string]bool, len(edges))
	for _, e := range edges {
		if err := g.checkEndpoints(e.Source, e.Target); err != nil {
			return nil, err
		}
		if e.Key == "" || seen[e.Key] {
			e.Key = g.newKey()
		}
		seen[e.Key] = true
		e.Attrs = copyAttrs(e.Attrs)
		g.edges = append(g.edges, e)
	}
	return g, nil
}

func validateNode(name string, t NodeType, level int) error {
	if name == "" {
		return ErrEmptyName
	}
	if !t.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownNodeType, int(t))
	}
	if level < 0 {
		return ErrNegativeLevel
	}
	return nil
}

// AddNode inserts a node. It fails without mutating the graph if the name is
// already present. A nil metadata gets empty fields stamped with the current time.
func (g *Graph) AddNode(name string, t NodeType, level int, metadata *Metadata) error {
	if err := validateNode(name, t, level); err != nil {
		return err
	}
	if _, exists := g.nodes[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateNode, name)
	}

	md := NewMetadata("", "")
	if metadata != nil {
		md = *metadata
		if md.CreatedAt.IsZero() {
			md.CreatedAt = time.Now().UTC()
		}
		if md.UpdatedAt.IsZero() {
			md.UpdatedAt = md.CreatedAt
		}
	}

	g.nodes[name] = &Node{Name: name, Type: t, Level: level, Metadata: md}
	g.order = append(g.order, name)
	return nil
}

func (g *Graph) checkEndpoints(source, target string) error {
	if _, ok := g.nodes[source]; !ok {
		return fmt.Errorf("source %q: %w", source, ErrNodeNotFound)
	}
	if _, ok := g.nodes[target]; !ok {
		return fmt.Errorf("target %q: %w", target, ErrNodeNotFound)
	}
	return nil
}

// AddEdge inserts a new parallel edge and returns its key. Both endpoints must
// already exist. Existing edges with the same endpoints and label are kept.
func (g *Graph) AddEdge(source, target, relationship string, attrs map[string]string) (string, error) {
	if err := g.checkEndpoints(source, target); err != nil {
		return "", err
	}
	if relationship == "" {
		relationship = DefaultRelationship
	}
	e := Edge{
		Key:          g.newKey(),
		Source:       source,
		Target:       target,
		Relationship: relationship,
		Attrs:        copyAttrs(attrs),
	}
	g.edges = append(g.edges, e)
	return e.Key, nil
}

// UpdateNodeMetadata replaces a node's metadata wholesale.
func (g *Graph) UpdateNodeMetadata(name string, metadata Metadata) error {
	n, ok := g.nodes[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, name)
	}
	if metadata.CreatedAt.IsZero() {
		metadata.CreatedAt = n.Metadata.CreatedAt
	}
	metadata.UpdatedAt = time.Now().UTC()
	n.Metadata = metadata
	return nil
}

// UpdateNode changes the type, level, and metadata of an existing node in place.
func (g *Graph) UpdateNode(name string, t NodeType, level int, metadata Metadata) error {
	n, ok := g.nodes[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, name)
	}
	if err := validateNode(name, t, level); err != nil {
		return err
	}
	n.Type = t
	n.Level = level
	return g.UpdateNodeMetadata(name, metadata)
}

// RemoveNode deletes a node and every edge touching it. Removing an absent
// node is a no-op and returns false.
func (g *Graph) RemoveNode(name string) bool {
	if _, ok := g.nodes[name]; !ok {
		return false
	}
	delete(g.nodes, name)
	for i, n := range g.order {
		if n == name {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	g.filterEdges(func(e Edge) bool { return !e.Touches(name) })
	return true
}

// RemoveEdge deletes every parallel edge from source to target and returns how
// many were removed.
func (g *Graph) RemoveEdge(source, target string) int {
	before := len(g.edges)
	g.filterEdges(func(e Edge) bool { return e.Source != source || e.Target != target })
	return before - len(g.edges)
}

// RemoveEdgeByKey deletes the single edge with the given key.
func (g *Graph) RemoveEdgeByKey(key string) bool {
	before := len(g.edges)
	g.filterEdges(func(e Edge) bool { return e.Key != key })
	return before != len(g.edges)
}

// UpdateEdge rewires the edge identified by key. The key and position are kept.
func (g *Graph) UpdateEdge(key, source, target, relationship string) error {
	idx := g.edgeIndex(key)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrEdgeNotFound, key)
	}
	if err := g.checkEndpoints(source, target); err != nil {
		return err
	}
	if relationship == "" {
		relationship = DefaultRelationship
	}
	e := &g.edges[idx]
	e.Source = source
	e.Target = target
	e.Relationship = relationship
	return nil
}

func (g *Graph) filterEdges(keep func(Edge) bool) {
	kept := g.edges[:0]
	for _, e := range g.edges {
		if keep(e) {
			kept = append(kept, e)
		}
	}
	// Clear the tail so dropped attr maps can be collected.
	for i := len(kept); i < len(g.edges); i++ {
		g.edges[i] = Edge{}
	}
	g.edges = kept
}

func (g *Graph) edgeIndex(key string) int {
	for i, e := range g.edges {
		if e.Key == key {
			return i
		}
	}
	return -1
}

// RenameNode replaces old with a node called newName, re-creating every edge
// that touched old with newName substituted at the matching endpoint. If the
// new node cannot be added, the graph is restored exactly and the error returned.
func (g *Graph) RenameNode(old, newName string, t NodeType, level int, metadata Metadata) error {
	if old == newName {
		return g.UpdateNode(old, t, level, metadata)
	}
	if _, ok := g.nodes[old]; !ok {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, old)
	}

	backup := g.Clone()

	var incident []Edge
	for _, e := range g.edges {
		if e.Touches(old) {
			incident = append(incident, e)
		}
	}

	g.RemoveNode(old)
	if metadata.CreatedAt.IsZero() {
		metadata.CreatedAt = backup.nodes[old].Metadata.CreatedAt
	}
	metadata.UpdatedAt = time.Now().UTC()
	if err := g.AddNode(newName, t, level, &metadata); err != nil {
		g.restore(backup)
		return err
	}

	for _, e := range incident {
		source, target := e.Source, e.Target
		if source == old {
			source = newName
		}
		if target == old {
			target = newName
		}
		if _, err := g.AddEdge(source, target, e.Relationship, e.Attrs); err != nil {
			g.restore(backup)
			return fmt.Errorf("re-creating edge %s: %w", e.Pair(), err)
		}
	}
	return nil
}

func (g *Graph) restore(from *Graph) {
	g.nodes = from.nodes
	g.order = from.order
	g.edges = from.edges
}

// Clone returns a deep copy sharing nothing mutable with g.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		nodes:  make(map[string]*Node, len(g.nodes)),
		order:  append([]string(nil), g.order...),
		edges:  make([]Edge, len(g.edges)),
		newKey: g.newKey,
	}
	for name, n := range g.nodes {
		node := *n
		c.nodes[name] = &node
	}
	for i, e := range g.edges {
		e.Attrs = copyAttrs(e.Attrs)
		c.edges[i] = e
	}
	return c
}

func copyAttrs(attrs map[string]string) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}

// HasNode reports whether a node with the given name exists.
func (g *Graph) HasNode(name string) bool {
	_, ok := g.nodes[name]
	return ok
}

// Node returns a copy of the named node.
func (g *Graph) Node(name string) (Node, bool) {
	n, ok := g.nodes[name]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []Node {
	nodes := make([]Node, 0, len(g.order))
	for _, name := range g.order {
		nodes = append(nodes, *g.nodes[name])
	}
	return nodes
}

// Names returns all node names in insertion order.
func (g *Graph) Names() []string {
	return append([]string(nil), g.order...)
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, len(g.edges))
	for i, e := range g.edges {
		e.Attrs = copyAttrs(e.Attrs)
		edges[i] = e
	}
	return edges
}

// Edge returns the edge with the given key.
func (g *Graph) Edge(key string) (Edge, bool) {
	idx := g.edgeIndex(key)
	if idx < 0 {
		return Edge{}, false
	}
	e := g.edges[idx]
	e.Attrs = copyAttrs(e.Attrs)
	return e, true
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.order)
}

// EdgeCount returns the number of edges, counting parallel edges separately.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// EdgesBetween returns every edge from source to target.
func (g *Graph) EdgesBetween(source, target string) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.Source == source && e.Target == target {
			out = append(out, e)
		}
	}
	return out
}

// Successors returns the distinct targets of edges leaving name.
func (g *Graph) Successors(name string) []string {
	return g.collect(func(e Edge) (string, bool) {
		return e.Target, e.Source == name
	})
}

// Predecessors returns the distinct sources of edges entering name.
func (g *Graph) Predecessors(name string) []string {
	return g.collect(func(e Edge) (string, bool) {
		return e.Source, e.Target == name
	})
}

// Neighbors returns predecessors and successors of name, each once.
func (g *Graph) Neighbors(name string) []string {
	return g.ConnectedNodes(name, "")
}

// ConnectedNodes returns the nodes sharing at least one edge with name in
// either direction. A non-empty relationship restricts the result to
// neighbors joined by at least one edge with that label.
func (g *Graph) ConnectedNodes(name, relationship string) []string {
	if !g.HasNode(name) {
		return nil
	}
	return g.collect(func(e Edge) (string, bool) {
		if relationship != "" && e.Relationship != relationship {
			return "", false
		}
		switch {
		case e.Source == name:
			return e.Target, true
		case e.Target == name:
			return e.Source, true
		}
		return "", false
	})
}

func (g *Graph) collect(pick func(Edge) (string, bool)) []string {
	var out []string
	seen := make(map[string]bool)
	for _, e := range g.edges {
		name, ok := pick(e)
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// NodesByType returns the names of nodes with the given type, in insertion order.
func (g *Graph) NodesByType(t NodeType) []string {
	var out []string
	for _, name := range g.order {
		if g.nodes[name].Type == t {
			out = append(out, name)
		}
	}
	return out
}

// NodesByLevel returns the names of nodes at the given level, in insertion order.
func (g *Graph) NodesByLevel(level int) []string {
	var out []string
	for _, name := range g.order {
		if g.nodes[name].Level == level {
			out = append(out, name)
		}
	}
	return out
}

// Levels returns the distinct node levels in ascending order.
func (g *Graph) Levels() []int {
	seen := make(map[int]bool)
	var levels []int
	for _, n := range g.nodes {
		if !seen[n.Level] {
			seen[n.Level] = true
			levels = append(levels, n.Level)
		}
	}
	sort.Ints(levels)
	return levels
}

// Relationships returns the distinct edge labels in ascending order.
func (g *Graph) Relationships() []string {
	seen := make(map[string]bool)
	var rels []string
	for _, e := range g.edges {
		if !seen[e.Relationship] {
			seen[e.Relationship] = true
			rels = append(rels, e.Relationship)
		}
	}
	sort.Strings(rels)
	return rels
}

// NodeInfo returns the node and its connected nodes.
func (g *Graph) NodeInfo(name string) (NodeInfo, bool) {
	n, ok := g.Node(name)
	if !ok {
		return NodeInfo{}, false
	}
	return NodeInfo{Node: n, ConnectedNodes: g.ConnectedNodes(name, "")}, true
}
