package selection

import (
	"sort"

	"github.com/matsen/atlas/internal/graph"
)

// DefaultLevels are visible when a session starts.
var DefaultLevels = []int{0, 1, 2}

// DefaultEdgeTypes are visible when a session starts.
var DefaultEdgeTypes = []string{
	graph.RelationshipBelongsTo,
	graph.RelationshipRelatedTo,
	graph.RelationshipDependsOn,
}

// State is the filter and selection state of one session.
//
// SelectedEdges is keyed by endpoint pair, so every parallel edge between the
// same ordered pair is highlighted together.
type State struct {
	Levels        Set[int]
	EdgeTypes     Set[string]
	SelectedNodes map[string]bool
	SelectedEdges map[graph.Pair]bool
}

// NewState returns the state a fresh session starts with.
func NewState() *State {
	return &State{
		Levels:        Only(DefaultLevels...),
		EdgeTypes:     Only(DefaultEdgeTypes...),
		SelectedNodes: make(map[string]bool),
		SelectedEdges: make(map[graph.Pair]bool),
	}
}

// ToggleLevel flips visibility of a level. universe is the set of levels
// currently offered, used when narrowing from "all".
func (s *State) ToggleLevel(level int, universe ...int) bool {
	return s.Levels.Toggle(level, universe...)
}

// ToggleEdgeType flips visibility of a relationship label.
func (s *State) ToggleEdgeType(rel string, universe ...string) bool {
	return s.EdgeTypes.Toggle(rel, universe...)
}

// ShowAllLevels switches the level filter to the allow-everything sentinel.
func (s *State) ShowAllLevels() {
	s.Levels = All[int]()
}

// ShowAllEdgeTypes switches the edge type filter to the allow-everything sentinel.
func (s *State) ShowAllEdgeTypes() {
	s.EdgeTypes = All[string]()
}

// ToggleNode flips the selection of a node and reports whether it is now selected.
func (s *State) ToggleNode(name string) bool {
	if s.SelectedNodes[name] {
		delete(s.SelectedNodes, name)
		return false
	}
	s.SelectedNodes[name] = true
	return true
}

// ToggleEdge flips the selection of an endpoint pair.
func (s *State) ToggleEdge(source, target string) bool {
	p := graph.Pair{Source: source, Target: target}
	if s.SelectedEdges[p] {
		delete(s.SelectedEdges, p)
		return false
	}
	s.SelectedEdges[p] = true
	return true
}

// IsNodeSelected reports whether name is selected.
func (s *State) IsNodeSelected(name string) bool {
	return s.SelectedNodes[name]
}

// IsEdgeSelected reports whether the pair of e is selected.
func (s *State) IsEdgeSelected(e graph.Edge) bool {
	return s.SelectedEdges[e.Pair()]
}

// ClearSelection drops all node and edge selections.
func (s *State) ClearSelection() {
	s.SelectedNodes = make(map[string]bool)
	s.SelectedEdges = make(map[graph.Pair]bool)
}

// ForgetNode removes a deleted node from every selection.
func (s *State) ForgetNode(name string) {
	delete(s.SelectedNodes, name)
	for p := range s.SelectedEdges {
		if p.Source == name || p.Target == name {
			delete(s.SelectedEdges, p)
		}
	}
}

// ForgetEdge removes a deleted pair from the edge selection.
func (s *State) ForgetEdge(source, target string) {
	delete(s.SelectedEdges, graph.Pair{Source: source, Target: target})
}

// RenameNode carries selections over from old to newName.
func (s *State) RenameNode(old, newName string) {
	if s.SelectedNodes[old] {
		delete(s.SelectedNodes, old)
		s.SelectedNodes[newName] = true
	}
	for p := range s.SelectedEdges {
		if p.Source != old && p.Target != old {
			continue
		}
		delete(s.SelectedEdges, p)
		if p.Source == old {
			p.Source = newName
		}
		if p.Target == old {
			p.Target = newName
		}
		s.SelectedEdges[p] = true
	}
}

// SelectedNodeNames returns the selected node names sorted.
func (s *State) SelectedNodeNames() []string {
	names := make([]string, 0, len(s.SelectedNodes))
	for n := range s.SelectedNodes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SelectedPairs returns the selected pairs sorted by source then target.
func (s *State) SelectedPairs() []graph.Pair {
	pairs := make([]graph.Pair, 0, len(s.SelectedEdges))
	for p := range s.SelectedEdges {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Source != pairs[j].Source {
			return pairs[i].Source < pairs[j].Source
		}
		return pairs[i].Target < pairs[j].Target
	})
	return pairs
}

// Summary is a serializable view of the state.
type Summary struct {
	Levels        []int        `json:"levels"`
	AllLevels     bool         `json:"all_levels"`
	EdgeTypes     []string     `json:"edge_types"`
	AllEdgeTypes  bool         `json:"all_edge_types"`
	SelectedNodes []string     `json:"selected_nodes"`
	SelectedEdges []graph.Pair `json:"selected_edges"`
}

// Summary returns the state in display order.
func (s *State) Summary() Summary {
	return Summary{
		Levels:        s.Levels.Values(),
		AllLevels:     s.Levels.IsAll(),
		EdgeTypes:     s.EdgeTypes.Values(),
		AllEdgeTypes:  s.EdgeTypes.IsAll(),
		SelectedNodes: s.SelectedNodeNames(),
		SelectedEdges: s.SelectedPairs(),
	}
}
