package visibility

import (
	"reflect"
	"testing"

	"github.com/matsen/atlas/internal/graph"
	"github.com/matsen/atlas/internal/selection"
)

// xyzGraph builds X(0) -related_to-> Y(1) -depends_on-> Z(2).
func xyzGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	for _, n := range []struct {
		name  string
		level int
	}{{"X", 0}, {"Y", 1}, {"Z", 2}} {
		if err := g.AddNode(n.name, graph.Concept, n.level, nil); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := g.AddEdge("X", "Y", graph.RelationshipRelatedTo, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := g.AddEdge("Y", "Z", graph.RelationshipDependsOn, nil); err != nil {
		t.Fatal(err)
	}
	return g
}

func edgeTriples(edges []graph.Edge) []string {
	var out []string
	for _, e := range edges {
		out = append(out, e.Source+">"+e.Target+":"+e.Relationship)
	}
	return out
}

func TestResolve_Scenarios(t *testing.T) {
	tests := []struct {
		name      string
		levels    selection.Set[int]
		edgeTypes selection.Set[string]
		selected  []string
		wantNodes []string
		wantEdges []string
	}{
		{
			name:      "level filter excludes Z despite adjacency",
			levels:    selection.Only(0, 1),
			edgeTypes: selection.Only(graph.RelationshipRelatedTo),
			wantNodes: []string{"X", "Y"},
			wantEdges: []string{"X>Y:related_to"},
		},
		{
			name:      "selection forces Z in but edge type still filters",
			levels:    selection.Only(0, 1),
			edgeTypes: selection.Only(graph.RelationshipRelatedTo),
			selected:  []string{"Z"},
			wantNodes: []string{"X", "Y", "Z"},
			wantEdges: []string{"X>Y:related_to"},
		},
		{
			name:      "selection plus allowed edge type shows Y to Z",
			levels:    selection.Only(0, 1),
			edgeTypes: selection.Only(graph.RelationshipRelatedTo, graph.RelationshipDependsOn),
			selected:  []string{"Z"},
			wantNodes: []string{"X", "Y", "Z"},
			wantEdges: []string{"X>Y:related_to", "Y>Z:depends_on"},
		},
		{
			name:      "all sentinels show everything",
			levels:    selection.All[int](),
			edgeTypes: selection.All[string](),
			wantNodes: []string{"X", "Y", "Z"},
			wantEdges: []string{"X>Y:related_to", "Y>Z:depends_on"},
		},
		{
			name:      "empty level set shows nothing",
			levels:    selection.Only[int](),
			edgeTypes: selection.All[string](),
			wantNodes: nil,
			wantEdges: nil,
		},
		{
			name:      "empty level set still shows selected node",
			levels:    selection.Only[int](),
			edgeTypes: selection.All[string](),
			selected:  []string{"Y"},
			wantNodes: []string{"Y"},
			wantEdges: nil,
		},
		{
			name:      "selected node neighbors are still level filtered",
			levels:    selection.Only(0),
			edgeTypes: selection.All[string](),
			selected:  []string{"Z"},
			wantNodes: []string{"X", "Z"},
			wantEdges: nil,
		},
		{
			name:      "edge types filter independently of levels",
			levels:    selection.All[int](),
			edgeTypes: selection.Only[string](),
			wantNodes: []string{"X", "Y", "Z"},
			wantEdges: nil,
		},
		{
			name:      "selected name absent from graph is ignored",
			levels:    selection.Only(0),
			edgeTypes: selection.All[string](),
			selected:  []string{"ghost"},
			wantNodes: []string{"X"},
			wantEdges: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := xyzGraph(t)
			st := selection.NewState()
			st.Levels = tt.levels
			st.EdgeTypes = tt.edgeTypes
			for _, n := range tt.selected {
				st.ToggleNode(n)
			}

			r := Resolve(g, st)
			if !reflect.DeepEqual(r.Nodes, tt.wantNodes) {
				t.Errorf("Nodes = %v, want %v", r.Nodes, tt.wantNodes)
			}
			if got := edgeTriples(r.Edges); !reflect.DeepEqual(got, tt.wantEdges) {
				t.Errorf("Edges = %v, want %v", got, tt.wantEdges)
			}
			for _, n := range tt.wantNodes {
				if !r.Contains(n) {
					t.Errorf("Contains(%q) = false", n)
				}
			}
		})
	}
}

func TestResolve_HiddenLevelNeverLeaksThroughAdjacency(t *testing.T) {
	g := graph.New()
	levels := map[string]int{"hub": 0, "a": 1, "b": 3, "c": 3, "d": 4}
	for _, name := range []string{"hub", "a", "b", "c", "d"} {
		if err := g.AddNode(name, graph.SubTopic, levels[name], nil); err != nil {
			t.Fatal(err)
		}
	}
	for _, spoke := range []string{"a", "b", "c", "d"} {
		if _, err := g.AddEdge(spoke, "hub", graph.RelationshipBelongsTo, nil); err != nil {
			t.Fatal(err)
		}
	}

	st := selection.NewState()
	st.Levels = selection.Only(0, 1)
	st.ShowAllEdgeTypes()
	st.ToggleNode("c")

	r := Resolve(g, st)
	for name, level := range levels {
		hidden := !st.Levels.Allows(level) && !st.IsNodeSelected(name)
		if hidden && r.Contains(name) {
			t.Errorf("node %q at hidden level %d is visible", name, level)
		}
		if !hidden && !r.Contains(name) {
			t.Errorf("node %q should be visible", name)
		}
	}

	for _, e := range r.Edges {
		if !r.Contains(e.Source) || !r.Contains(e.Target) {
			t.Errorf("edge %s has an invisible endpoint", e.Pair())
		}
	}
}

func TestResolve_ParallelEdges(t *testing.T) {
	g := graph.New()
	for _, n := range []string{"A", "B"} {
		if err := g.AddNode(n, graph.Method, 0, nil); err != nil {
			t.Fatal(err)
		}
	}
	for _, rel := range []string{graph.RelationshipRelatedTo, graph.RelationshipDependsOn, "cites"} {
		if _, err := g.AddEdge("A", "B", rel, nil); err != nil {
			t.Fatal(err)
		}
	}

	st := selection.NewState()
	r := Resolve(g, st)
	want := []string{"A>B:related_to", "A>B:depends_on"}
	if got := edgeTriples(r.Edges); !reflect.DeepEqual(got, want) {
		t.Errorf("Edges = %v, want %v", got, want)
	}
}
