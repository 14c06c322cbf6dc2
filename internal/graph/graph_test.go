package graph

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
)

// sequentialKeys returns a deterministic edge key generator for tests.
func sequentialKeys() Option {
	n := 0
	return WithKeyFunc(func() string {
		n++
		return fmt.Sprintf("e%d", n)
	})
}

func mustAddNode(t *testing.T, g *Graph, name string, nt NodeType, level int) {
	t.Helper()
	if err := g.AddNode(name, nt, level, nil); err != nil {
		t.Fatalf("AddNode(%q) error = %v", name, err)
	}
}

func mustAddEdge(t *testing.T, g *Graph, source, target, rel string) string {
	t.Helper()
	key, err := g.AddEdge(source, target, rel, nil)
	if err != nil {
		t.Fatalf("AddEdge(%q, %q) error = %v", source, target, err)
	}
	return key
}

func TestAddNode_Duplicate(t *testing.T) {
	g := New()
	mustAddNode(t, g, "Phylogenetics", MainTopic, 0)

	err := g.AddNode("Phylogenetics", Concept, 3, nil)
	if !errors.Is(err, ErrDuplicateNode) {
		t.Fatalf("AddNode duplicate error = %v, want ErrDuplicateNode", err)
	}
	if g.NodeCount() != 1 {
		t.Errorf("NodeCount() = %d, want 1", g.NodeCount())
	}
	n, _ := g.Node("Phylogenetics")
	if n.Type != MainTopic || n.Level != 0 {
		t.Errorf("duplicate add mutated node: %+v", n)
	}
}

func TestAddNode_NamesAreCaseSensitive(t *testing.T) {
	g := New()
	mustAddNode(t, g, "BEAST", Tool, 2)
	mustAddNode(t, g, "beast", Tool, 2)
	if g.NodeCount() != 2 {
		t.Errorf("NodeCount() = %d, want 2", g.NodeCount())
	}
}

func TestAddNode_Validation(t *testing.T) {
	tests := []struct {
		name    string
		node    string
		nt      NodeType
		level   int
		wantErr error
	}{
		{"empty name", "", Paper, 0, ErrEmptyName},
		{"negative level", "x", Paper, -1, ErrNegativeLevel},
		{"invalid type", "x", NodeType(42), 0, ErrUnknownNodeType},
		{"valid", "x", Dataset, 7, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New().AddNode(tt.node, tt.nt, tt.level, nil)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("AddNode() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAddNode_DefaultMetadata(t *testing.T) {
	g := New()
	mustAddNode(t, g, "x", Other, 0)
	n, _ := g.Node("x")
	if n.Metadata.URL != "" || n.Metadata.Description != "" {
		t.Errorf("default metadata not empty: %+v", n.Metadata)
	}
	if n.Metadata.CreatedAt.IsZero() || n.Metadata.UpdatedAt.IsZero() {
		t.Error("default metadata timestamps not set")
	}
}

func TestAddEdge_MissingEndpoint(t *testing.T) {
	g := New()
	mustAddNode(t, g, "A", Concept, 1)

	tests := []struct {
		name   string
		source string
		target string
	}{
		{"missing target", "A", "Z"},
		{"missing source", "Z", "A"},
		{"missing both", "Y", "Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.AddEdge(tt.source, tt.target, RelationshipRelatedTo, nil)
			if !errors.Is(err, ErrNodeNotFound) {
				t.Errorf("AddEdge() error = %v, want ErrNodeNotFound", err)
			}
			if g.EdgeCount() != 0 {
				t.Errorf("EdgeCount() = %d, want 0", g.EdgeCount())
			}
			if g.NodeCount() != 1 {
				t.Errorf("endpoints were auto-created: NodeCount() = %d", g.NodeCount())
			}
		})
	}
}

func TestAddEdge_ParallelEdgesAreDistinct(t *testing.T) {
	g := New(sequentialKeys())
	mustAddNode(t, g, "A", Concept, 1)
	mustAddNode(t, g, "B", Concept, 1)

	k1 := mustAddEdge(t, g, "A", "B", RelationshipRelatedTo)
	k2 := mustAddEdge(t, g, "A", "B", RelationshipRelatedTo)
	k3 := mustAddEdge(t, g, "A", "B", RelationshipDependsOn)

	if k1 == k2 || k2 == k3 {
		t.Errorf("edge keys not distinct: %q %q %q", k1, k2, k3)
	}
	if got := len(g.EdgesBetween("A", "B")); got != 3 {
		t.Errorf("EdgesBetween() = %d edges, want 3", got)
	}
}

func TestAddEdge_DefaultRelationship(t *testing.T) {
	g := New()
	mustAddNode(t, g, "A", Concept, 1)
	mustAddNode(t, g, "B", Concept, 1)
	key := mustAddEdge(t, g, "A", "B", "")

	e, ok := g.Edge(key)
	if !ok {
		t.Fatal("edge not found by key")
	}
	if e.Relationship != DefaultRelationship {
		t.Errorf("Relationship = %q, want %q", e.Relationship, DefaultRelationship)
	}
}

func TestUpdateNodeMetadata(t *testing.T) {
	g := New()
	md := NewMetadata("https://example.org", "first")
	if err := g.AddNode("A", Paper, 2, &md); err != nil {
		t.Fatal(err)
	}

	if err := g.UpdateNodeMetadata("A", Metadata{Description: "second"}); err != nil {
		t.Fatalf("UpdateNodeMetadata() error = %v", err)
	}
	n, _ := g.Node("A")
	if n.Metadata.URL != "" {
		t.Errorf("metadata was merged, URL = %q", n.Metadata.URL)
	}
	if n.Metadata.Description != "second" {
		t.Errorf("Description = %q, want second", n.Metadata.Description)
	}
	if !n.Metadata.CreatedAt.Equal(md.CreatedAt) {
		t.Errorf("CreatedAt changed: %v -> %v", md.CreatedAt, n.Metadata.CreatedAt)
	}

	if err := g.UpdateNodeMetadata("missing", Metadata{}); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("UpdateNodeMetadata(missing) error = %v, want ErrNodeNotFound", err)
	}
}

func TestRemoveNode_DropsIncidentEdges(t *testing.T) {
	g := New()
	mustAddNode(t, g, "A", MainTopic, 0)
	mustAddNode(t, g, "B", SubTopic, 1)
	mustAddNode(t, g, "C", Paper, 2)
	mustAddEdge(t, g, "B", "A", RelationshipBelongsTo)
	mustAddEdge(t, g, "C", "B", RelationshipBelongsTo)
	mustAddEdge(t, g, "A", "C", RelationshipRelatedTo)

	if !g.RemoveNode("B") {
		t.Fatal("RemoveNode(B) = false, want true")
	}
	if g.HasNode("B") {
		t.Error("B still present")
	}
	if g.EdgeCount() != 1 {
		t.Errorf("EdgeCount() = %d, want 1", g.EdgeCount())
	}
	if !reflect.DeepEqual(g.Names(), []string{"A", "C"}) {
		t.Errorf("Names() = %v", g.Names())
	}

	if g.RemoveNode("B") {
		t.Error("RemoveNode on absent node returned true")
	}
}

func TestRemoveEdge_RemovesAllParallelEdges(t *testing.T) {
	g := New()
	mustAddNode(t, g, "A", Concept, 1)
	mustAddNode(t, g, "B", Concept, 1)
	mustAddEdge(t, g, "A", "B", RelationshipRelatedTo)
	mustAddEdge(t, g, "A", "B", RelationshipDependsOn)
	mustAddEdge(t, g, "B", "A", RelationshipRelatedTo)

	if n := g.RemoveEdge("A", "B"); n != 2 {
		t.Errorf("RemoveEdge() removed %d, want 2", n)
	}
	if g.EdgeCount() != 1 {
		t.Errorf("EdgeCount() = %d, want 1 (reverse edge kept)", g.EdgeCount())
	}
	if n := g.RemoveEdge("A", "B"); n != 0 {
		t.Errorf("second RemoveEdge() removed %d, want 0", n)
	}
}

func TestRemoveEdgeByKey(t *testing.T) {
	g := New()
	mustAddNode(t, g, "A", Concept, 1)
	mustAddNode(t, g, "B", Concept, 1)
	k1 := mustAddEdge(t, g, "A", "B", RelationshipRelatedTo)
	k2 := mustAddEdge(t, g, "A", "B", RelationshipDependsOn)

	if !g.RemoveEdgeByKey(k1) {
		t.Fatal("RemoveEdgeByKey() = false")
	}
	edges := g.Edges()
	if len(edges) != 1 || edges[0].Key != k2 {
		t.Errorf("remaining edges = %+v, want only %q", edges, k2)
	}
	if g.RemoveEdgeByKey(k1) {
		t.Error("RemoveEdgeByKey on removed key returned true")
	}
}

func TestUpdateEdge(t *testing.T) {
	g := New()
	mustAddNode(t, g, "A", Concept, 1)
	mustAddNode(t, g, "B", Concept, 1)
	mustAddNode(t, g, "C", Concept, 1)
	key := mustAddEdge(t, g, "A", "B", RelationshipRelatedTo)

	if err := g.UpdateEdge(key, "A", "C", RelationshipDependsOn); err != nil {
		t.Fatalf("UpdateEdge() error = %v", err)
	}
	e, _ := g.Edge(key)
	if e.Target != "C" || e.Relationship != RelationshipDependsOn {
		t.Errorf("edge after update = %+v", e)
	}

	err := g.UpdateEdge(key, "A", "missing", RelationshipDependsOn)
	if !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("UpdateEdge(missing target) error = %v", err)
	}
	e, _ = g.Edge(key)
	if e.Target != "C" {
		t.Errorf("failed update mutated edge: %+v", e)
	}

	if err := g.UpdateEdge("nope", "A", "B", ""); !errors.Is(err, ErrEdgeNotFound) {
		t.Errorf("UpdateEdge(unknown key) error = %v", err)
	}
}

func TestConnectedNodes(t *testing.T) {
	g := New()
	for _, n := range []string{"A", "B", "C", "D", "E"} {
		mustAddNode(t, g, n, Concept, 1)
	}
	mustAddEdge(t, g, "A", "B", RelationshipRelatedTo)
	mustAddEdge(t, g, "C", "A", RelationshipDependsOn)
	mustAddEdge(t, g, "A", "B", RelationshipDependsOn)
	mustAddEdge(t, g, "D", "E", RelationshipRelatedTo)

	tests := []struct {
		name         string
		node         string
		relationship string
		want         []string
	}{
		{"both directions", "A", "", []string{"B", "C"}},
		{"filtered related_to", "A", RelationshipRelatedTo, []string{"B"}},
		{"filtered depends_on", "A", RelationshipDependsOn, []string{"C", "B"}},
		{"no matching label", "A", RelationshipBelongsTo, nil},
		{"incoming only", "E", "", []string{"D"}},
		{"unknown node", "Z", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.ConnectedNodes(tt.node, tt.relationship)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ConnectedNodes(%q, %q) = %v, want %v", tt.node, tt.relationship, got, tt.want)
			}
		})
	}
}

func TestNodesByTypeAndLevel(t *testing.T) {
	g := New()
	mustAddNode(t, g, "p1", Paper, 2)
	mustAddNode(t, g, "c1", Concept, 1)
	mustAddNode(t, g, "p2", Paper, 1)
	mustAddNode(t, g, "p3", Paper, 2)

	if got := g.NodesByType(Paper); !reflect.DeepEqual(got, []string{"p1", "p2", "p3"}) {
		t.Errorf("NodesByType(Paper) = %v", got)
	}
	if got := g.NodesByLevel(1); !reflect.DeepEqual(got, []string{"c1", "p2"}) {
		t.Errorf("NodesByLevel(1) = %v", got)
	}
	if got := g.NodesByType(Tool); got != nil {
		t.Errorf("NodesByType(Tool) = %v, want nil", got)
	}
	if got := g.Levels(); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("Levels() = %v", got)
	}
}

func TestRenameNode(t *testing.T) {
	g := New()
	mustAddNode(t, g, "A", MainTopic, 0)
	mustAddNode(t, g, "B", SubTopic, 1)
	mustAddNode(t, g, "C", Paper, 2)
	mustAddEdge(t, g, "B", "A", RelationshipBelongsTo)
	mustAddEdge(t, g, "B", "C", RelationshipRelatedTo)
	mustAddEdge(t, g, "C", "B", RelationshipDependsOn)

	md := NewMetadata("https://example.org/b", "renamed")
	if err := g.RenameNode("B", "B2", Concept, 3, md); err != nil {
		t.Fatalf("RenameNode() error = %v", err)
	}

	if g.HasNode("B") {
		t.Error("old name still present")
	}
	n, ok := g.Node("B2")
	if !ok || n.Type != Concept || n.Level != 3 || n.Metadata.Description != "renamed" {
		t.Errorf("renamed node = %+v", n)
	}

	var got []string
	for _, e := range g.Edges() {
		got = append(got, e.Source+">"+e.Target+":"+e.Relationship)
	}
	want := []string{"B2>A:belongs_to", "B2>C:related_to", "C>B2:depends_on"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("edges after rename = %v, want %v", got, want)
	}
}

func TestRenameNode_SelfLoop(t *testing.T) {
	g := New()
	mustAddNode(t, g, "A", Concept, 0)
	mustAddEdge(t, g, "A", "A", RelationshipRelatedTo)

	if err := g.RenameNode("A", "Z", Concept, 0, Metadata{}); err != nil {
		t.Fatal(err)
	}
	e := g.Edges()[0]
	if e.Source != "Z" || e.Target != "Z" {
		t.Errorf("self loop after rename = %s", e.Pair())
	}
}

func TestRenameNode_CollisionRollsBack(t *testing.T) {
	g := New(sequentialKeys())
	mustAddNode(t, g, "A", MainTopic, 0)
	mustAddNode(t, g, "B", SubTopic, 1)
	mustAddNode(t, g, "C", Paper, 2)
	mustAddEdge(t, g, "A", "B", RelationshipRelatedTo)
	mustAddEdge(t, g, "C", "A", RelationshipDependsOn)
	mustAddEdge(t, g, "B", "C", RelationshipBelongsTo)

	beforeNodes := g.Nodes()
	beforeEdges := g.Edges()

	err := g.RenameNode("A", "B", Concept, 5, Metadata{Description: "x"})
	if !errors.Is(err, ErrDuplicateNode) {
		t.Fatalf("RenameNode() error = %v, want ErrDuplicateNode", err)
	}

	if !reflect.DeepEqual(g.Nodes(), beforeNodes) {
		t.Errorf("nodes after failed rename = %+v, want %+v", g.Nodes(), beforeNodes)
	}
	if !reflect.DeepEqual(g.Edges(), beforeEdges) {
		t.Errorf("edges after failed rename = %+v, want %+v", g.Edges(), beforeEdges)
	}
}

func TestRenameNode_Missing(t *testing.T) {
	g := New()
	err := g.RenameNode("nope", "new", Concept, 0, Metadata{})
	if !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("RenameNode(missing) error = %v", err)
	}
}

func TestClone_IsIndependent(t *testing.T) {
	g := New()
	mustAddNode(t, g, "A", Concept, 0)
	mustAddNode(t, g, "B", Concept, 0)
	if _, err := g.AddEdge("A", "B", "", map[string]string{"weight": "1"}); err != nil {
		t.Fatal(err)
	}

	c := g.Clone()
	c.RemoveNode("A")
	if err := c.UpdateNodeMetadata("B", Metadata{Description: "changed"}); err != nil {
		t.Fatal(err)
	}

	if !g.HasNode("A") || g.EdgeCount() != 1 {
		t.Error("mutating clone affected original")
	}
	n, _ := g.Node("B")
	if n.Metadata.Description != "" {
		t.Error("clone shares node storage with original")
	}
}

func TestFromParts(t *testing.T) {
	g := New(sequentialKeys())
	mustAddNode(t, g, "A", Concept, 0)
	mustAddNode(t, g, "B", Tool, 1)
	mustAddEdge(t, g, "A", "B", RelationshipDependsOn)

	rebuilt, err := FromParts(g.Nodes(), g.Edges())
	if err != nil {
		t.Fatalf("FromParts() error = %v", err)
	}
	if !reflect.DeepEqual(rebuilt.Nodes(), g.Nodes()) || !reflect.DeepEqual(rebuilt.Edges(), g.Edges()) {
		t.Error("FromParts did not preserve nodes and edges")
	}

	_, err = FromParts(g.Nodes(), []Edge{{Source: "A", Target: "missing"}})
	if !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("FromParts(dangling edge) error = %v", err)
	}
}

func TestParseNodeType(t *testing.T) {
	tests := []struct {
		input   string
		want    NodeType
		wantErr bool
	}{
		{"main_topic", MainTopic, false},
		{"MAIN_TOPIC", MainTopic, false},
		{"Paper", Paper, false},
		{" dataset ", Dataset, false},
		{"other", Other, false},
		{"topic", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseNodeType(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseNodeType(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseNodeType(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if err != nil && !errors.Is(err, ErrUnknownNodeType) {
				t.Errorf("error %v does not wrap ErrUnknownNodeType", err)
			}
		})
	}
}

func TestNodeType_StringRoundTrip(t *testing.T) {
	for _, nt := range AllNodeTypes() {
		text, err := nt.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v) error = %v", nt, err)
		}
		var back NodeType
		if err := back.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%s) error = %v", text, err)
		}
		if back != nt {
			t.Errorf("round trip %v -> %s -> %v", nt, text, back)
		}
	}
	if len(AllNodeTypes()) != 8 {
		t.Errorf("AllNodeTypes() has %d entries, want 8", len(AllNodeTypes()))
	}
}
