package viz

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/matsen/atlas/internal/graph"
	"github.com/matsen/atlas/internal/selection"
	"github.com/matsen/atlas/internal/visibility"
)

func testGraph(t *testing.T) *graph.Graph {
	t.Helper()
	n := 0
	g := graph.New(graph.WithKeyFunc(func() string {
		n++
		return "k" + string(rune('0'+n))
	}))
	md := graph.NewMetadata("https://example.org/?a=1&b=2", "uses <b>bold</b> claims")
	if err := g.AddNode("Topic", graph.MainTopic, 0, &md); err != nil {
		t.Fatal(err)
	}
	if err := g.AddNode("Paper", graph.Paper, 1, nil); err != nil {
		t.Fatal(err)
	}
	if err := g.AddNode("Thing", graph.Other, 2, nil); err != nil {
		t.Fatal(err)
	}
	for _, e := range [][3]string{
		{"Paper", "Topic", graph.RelationshipBelongsTo},
		{"Paper", "Topic", graph.RelationshipRelatedTo},
		{"Thing", "Paper", "cites"},
	} {
		if _, err := g.AddEdge(e[0], e[1], e[2], nil); err != nil {
			t.Fatal(err)
		}
	}
	return g
}

func buildAll(t *testing.T, g *graph.Graph, st *selection.State) *Scene {
	t.Helper()
	st.ShowAllLevels()
	st.ShowAllEdgeTypes()
	return BuildScene(g, visibility.Resolve(g, st), st)
}

func findNode(s *Scene, id string) (Node, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

func TestBuildScene_NodeStyles(t *testing.T) {
	g := testGraph(t)
	st := selection.NewState()
	st.ToggleNode("Paper")
	scene := buildAll(t, g, st)

	tests := []struct {
		id    string
		color string
		shape string
		size  int
	}{
		{"Topic", "#ff7f7f", "ellipse", NodeSize},
		{"Paper", HighlightColor, "diamond", SelectedNodeSize},
		{"Thing", "#d3d3d3", "ellipse", NodeSize},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			n, ok := findNode(scene, tt.id)
			if !ok {
				t.Fatalf("node %q missing from scene", tt.id)
			}
			if n.Color != tt.color {
				t.Errorf("Color = %q, want %q", n.Color, tt.color)
			}
			if n.Shape != tt.shape {
				t.Errorf("Shape = %q, want %q", n.Shape, tt.shape)
			}
			if n.Size != tt.size {
				t.Errorf("Size = %d, want %d", n.Size, tt.size)
			}
		})
	}
}

func TestBuildScene_EdgeStylesAndPairHighlight(t *testing.T) {
	g := testGraph(t)
	st := selection.NewState()
	st.ToggleEdge("Paper", "Topic")
	scene := buildAll(t, g, st)

	if len(scene.Edges) != 3 {
		t.Fatalf("got %d edges, want 3", len(scene.Edges))
	}

	want := []struct {
		id    string
		color string
		width int
	}{
		{"k1", EdgeHighlightColor, SelectedEdgeWidth},
		{"k2", EdgeHighlightColor, SelectedEdgeWidth},
		{"k3", "#000000", EdgeWidth},
	}
	for i, w := range want {
		e := scene.Edges[i]
		if e.ID != w.id {
			t.Errorf("edge %d ID = %q, want %q", i, e.ID, w.id)
		}
		if e.Color != w.color || e.Width != w.width {
			t.Errorf("edge %s = (%s, %d), want (%s, %d)", e.ID, e.Color, e.Width, w.color, w.width)
		}
		if e.Arrow != ArrowTo {
			t.Errorf("edge %s arrow = %q", e.ID, e.Arrow)
		}
	}
}

func TestBuildScene_EdgeColorsByRelationship(t *testing.T) {
	tests := []struct {
		rel  string
		want string
	}{
		{graph.RelationshipBelongsTo, "#808080"},
		{graph.RelationshipRelatedTo, "#0000ff"},
		{graph.RelationshipDependsOn, "#ff0000"},
		{"cites", "#000000"},
	}
	for _, tt := range tests {
		if got := EdgeStyleFor(tt.rel).Color; got != tt.want {
			t.Errorf("EdgeStyleFor(%q) = %q, want %q", tt.rel, got, tt.want)
		}
	}
}

func TestBuildScene_NodeSelectionDoesNotHighlightEdges(t *testing.T) {
	g := testGraph(t)
	st := selection.NewState()
	st.ToggleNode("Paper")
	st.ToggleNode("Topic")
	scene := buildAll(t, g, st)

	for _, e := range scene.Edges {
		if e.Selected {
			t.Errorf("edge %s highlighted by node selection", e.ID)
		}
	}
}

func TestNodeTitle(t *testing.T) {
	g := testGraph(t)
	n, _ := g.Node("Topic")
	got := nodeTitle(n)
	want := "Topic<br>" +
		"<a href='https://example.org/?a=1&amp;b=2' target='_blank'>URL</a><br>" +
		"Description: uses &lt;b&gt;bold&lt;/b&gt; claims<br>" +
		"Type: main_topic<br>" +
		"Level: 0"
	if got != want {
		t.Errorf("nodeTitle() =\n%s\nwant\n%s", got, want)
	}

	plain, _ := g.Node("Paper")
	if got := nodeTitle(plain); got != "Paper<br>Type: paper<br>Level: 1" {
		t.Errorf("nodeTitle() without metadata = %q", got)
	}
}

func TestToCytoscapeJSON_UsesEdgeKeys(t *testing.T) {
	g := testGraph(t)
	scene := buildAll(t, g, selection.NewState())

	out, err := scene.ToCytoscapeJSON()
	if err != nil {
		t.Fatal(err)
	}

	var elements CytoscapeElements
	if err := json.Unmarshal([]byte(out), &elements); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(elements.Nodes) != 3 || len(elements.Edges) != 3 {
		t.Fatalf("got %d nodes, %d edges", len(elements.Nodes), len(elements.Edges))
	}
	for i, e := range elements.Edges {
		if e.Data.ID != g.Edges()[i].Key {
			t.Errorf("edge %d id = %q, want key %q", i, e.Data.ID, g.Edges()[i].Key)
		}
	}
}

func TestGenerateHTML(t *testing.T) {
	g := testGraph(t)
	scene := buildAll(t, g, selection.NewState())

	out, err := GenerateHTML(scene, HTMLOptions{Layout: "breadthfirst", Title: "Atlas"})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"<title>Atlas</title>", CDNScriptURL, "breadthfirst", "data(color)", "main_topic"} {
		if !strings.Contains(out, want) {
			t.Errorf("HTML missing %q", want)
		}
	}
}

func TestGenerateHTML_Errors(t *testing.T) {
	scene := &Scene{Nodes: []Node{{ID: "a", Label: "a"}}}

	if _, err := GenerateHTML(nil, DefaultOptions()); err == nil {
		t.Error("expected error for nil scene")
	}
	if _, err := GenerateHTML(scene, HTMLOptions{Layout: "spiral"}); err == nil {
		t.Error("expected error for invalid layout")
	}
	if _, err := GenerateHTML(scene, HTMLOptions{Offline: true}); !errors.Is(err, ErrNoScriptSource) {
		t.Errorf("offline without source: err = %v", err)
	}
}

func TestGenerateHTML_OfflineInlinesSource(t *testing.T) {
	scene := &Scene{Nodes: []Node{{ID: "a", Label: "a"}}}
	out, err := GenerateHTML(scene, HTMLOptions{Offline: true, ScriptSource: "window.cytoscape = function(){};"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, CDNScriptURL) {
		t.Error("offline page references the CDN")
	}
	if !strings.Contains(out, "window.cytoscape = function(){};") {
		t.Error("offline page missing inline source")
	}
}

func TestGenerateHTML_Empty(t *testing.T) {
	out, err := GenerateHTML(&Scene{}, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Nothing to show") {
		t.Error("empty scene did not render the empty state")
	}
}

func TestValidateLayout(t *testing.T) {
	for _, l := range append([]string{""}, ValidLayouts...) {
		if err := ValidateLayout(l); err != nil {
			t.Errorf("ValidateLayout(%q) = %v", l, err)
		}
	}
	if ValidateLayout("random") == nil {
		t.Error("ValidateLayout(random) = nil")
	}
}
