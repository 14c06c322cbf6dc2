// Package session ties a graph to its selection state and applies user
// interactions as single synchronous steps, each followed by a full re-render.
package session

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/matsen/atlas/internal/graph"
	"github.com/matsen/atlas/internal/interchange"
	"github.com/matsen/atlas/internal/selection"
	"github.com/matsen/atlas/internal/visibility"
	"github.com/matsen/atlas/internal/viz"
)

// Session owns one graph and its filter/selection state.
// It is not safe for concurrent use.
type Session struct {
	Graph     *graph.Graph
	Selection *selection.State

	logger *zap.Logger
}

// New returns a session over g. A nil state starts from the defaults and a
// nil graph starts empty.
func New(g *graph.Graph, st *selection.State, logger *zap.Logger) *Session {
	if g == nil {
		g = graph.New()
	}
	if st == nil {
		st = selection.NewState()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{Graph: g, Selection: st, logger: logger}
}

// AddNode adds a node with fresh metadata.
func (s *Session) AddNode(name string, t graph.NodeType, level int, url, description string) error {
	md := graph.NewMetadata(url, description)
	if err := s.Graph.AddNode(name, t, level, &md); err != nil {
		return err
	}
	s.logger.Debug("node added", zap.String("node", name), zap.Stringer("type", t), zap.Int("level", level))
	return nil
}

// EditNode updates a node, renaming it when newName differs from old. A
// failed rename leaves both the graph and the selection untouched.
func (s *Session) EditNode(old, newName string, t graph.NodeType, level int, url, description string) error {
	existing, ok := s.Graph.Node(old)
	if !ok {
		return fmt.Errorf("%w: %q", graph.ErrNodeNotFound, old)
	}
	md := existing.Metadata
	md.URL = url
	md.Description = description

	if err := s.Graph.RenameNode(old, newName, t, level, md); err != nil {
		return err
	}
	if old != newName {
		s.Selection.RenameNode(old, newName)
		s.logger.Debug("node renamed", zap.String("from", old), zap.String("to", newName))
	}
	return nil
}

// DeleteNode removes a node, its incident edges, and any selection of either.
func (s *Session) DeleteNode(name string) bool {
	if !s.Graph.RemoveNode(name) {
		return false
	}
	s.Selection.ForgetNode(name)
	s.logger.Debug("node deleted", zap.String("node", name))
	return true
}

// AddEdge adds a parallel edge and returns its key.
func (s *Session) AddEdge(source, target, relationship string) (string, error) {
	key, err := s.Graph.AddEdge(source, target, relationship, nil)
	if err != nil {
		return "", err
	}
	s.logger.Debug("edge added", zap.String("source", source), zap.String("target", target), zap.String("key", key))
	return key, nil
}

// EditEdge rewires the edge with the given key. A pair selection that no
// longer has any edge behind it is dropped.
func (s *Session) EditEdge(key, source, target, relationship string) error {
	before, ok := s.Graph.Edge(key)
	if !ok {
		return fmt.Errorf("%w: %q", graph.ErrEdgeNotFound, key)
	}
	if err := s.Graph.UpdateEdge(key, source, target, relationship); err != nil {
		return err
	}
	s.forgetPairIfEmpty(before.Source, before.Target)
	return nil
}

// DeleteEdge removes every parallel edge from source to target and returns
// how many were removed.
func (s *Session) DeleteEdge(source, target string) int {
	n := s.Graph.RemoveEdge(source, target)
	if n > 0 {
		s.Selection.ForgetEdge(source, target)
		s.logger.Debug("edges deleted", zap.String("source", source), zap.String("target", target), zap.Int("count", n))
	}
	return n
}

// DeleteEdgeByKey removes a single edge. Its pair stays selected while other
// parallel edges remain.
func (s *Session) DeleteEdgeByKey(key string) bool {
	e, ok := s.Graph.Edge(key)
	if !ok {
		return false
	}
	s.Graph.RemoveEdgeByKey(key)
	s.forgetPairIfEmpty(e.Source, e.Target)
	s.logger.Debug("edge deleted", zap.String("key", key))
	return true
}

func (s *Session) forgetPairIfEmpty(source, target string) {
	if len(s.Graph.EdgesBetween(source, target)) == 0 {
		s.Selection.ForgetEdge(source, target)
	}
}

// ToggleNode flips the selection of an existing node.
func (s *Session) ToggleNode(name string) (bool, error) {
	if !s.Graph.HasNode(name) {
		return false, fmt.Errorf("%w: %q", graph.ErrNodeNotFound, name)
	}
	return s.Selection.ToggleNode(name), nil
}

// ToggleEdge flips the selection of a pair that has at least one edge.
func (s *Session) ToggleEdge(source, target string) (bool, error) {
	if len(s.Graph.EdgesBetween(source, target)) == 0 {
		return false, fmt.Errorf("%w: %s -> %s", graph.ErrEdgeNotFound, source, target)
	}
	return s.Selection.ToggleEdge(source, target), nil
}

// ToggleLevel flips a level filter. Narrowing from "all" keeps every other
// level present in the graph.
func (s *Session) ToggleLevel(level int) (bool, error) {
	if level < 0 {
		return false, graph.ErrNegativeLevel
	}
	return s.Selection.ToggleLevel(level, s.Graph.Levels()...), nil
}

// ToggleEdgeType flips a relationship filter.
func (s *Session) ToggleEdgeType(relationship string) bool {
	universe := append(s.Graph.Relationships(), selection.DefaultEdgeTypes...)
	return s.Selection.ToggleEdgeType(relationship, universe...)
}

// ReplaceGraph swaps in g, typically after an import. Selections refer to
// the old graph and are cleared; filters are kept.
func (s *Session) ReplaceGraph(g *graph.Graph) {
	s.Graph = g
	s.Selection.ClearSelection()
	s.logger.Info("graph replaced", zap.Int("nodes", g.NodeCount()), zap.Int("edges", g.EdgeCount()))
}

// MergeGraph adds src into the current graph.
func (s *Session) MergeGraph(src *graph.Graph) *interchange.Report {
	return interchange.Merge(s.Graph, src, s.logger)
}

// Render resolves the visible subgraph and maps it to a scene.
func (s *Session) Render() (*viz.Scene, visibility.Result) {
	r := visibility.Resolve(s.Graph, s.Selection)
	return viz.BuildScene(s.Graph, r, s.Selection), r
}

// HTML renders the current view as a complete page.
func (s *Session) HTML(opts viz.HTMLOptions) (string, error) {
	scene, _ := s.Render()
	return viz.GenerateHTML(scene, opts)
}
