package interchange

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/matsen/atlas/internal/graph"
)

const sampleDoc = `{
  "nodes": [
    {"id": "Phylogenetics", "type": "main_topic", "level": 0, "description": "Trees of life"},
    {"id": "BEAST", "type": "Tool", "level": 2, "url": "https://beast.community"},
    {"id": "MCMC", "type": "method", "level": 1}
  ],
  "edges": [
    {"source": "BEAST", "target": "MCMC", "relationship": "depends_on"},
    {"source": "MCMC", "target": "Phylogenetics", "relationship": "belongs_to"},
    {"source": "BEAST", "target": "Phylogenetics"}
  ]
}`

func TestImport_Valid(t *testing.T) {
	g, report, err := Import([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if report.NodesAccepted != 3 || report.EdgesAccepted != 3 || len(report.Rejected) != 0 {
		t.Errorf("report = %+v", report)
	}

	beast, ok := g.Node("BEAST")
	if !ok {
		t.Fatal("BEAST missing")
	}
	if beast.Type != graph.Tool {
		t.Errorf("BEAST type = %v, want tool", beast.Type)
	}
	if beast.Metadata.URL != "https://beast.community" {
		t.Errorf("BEAST url = %q", beast.Metadata.URL)
	}

	edges := g.EdgesBetween("BEAST", "Phylogenetics")
	if len(edges) != 1 || edges[0].Relationship != graph.DefaultRelationship {
		t.Errorf("edge without relationship = %+v, want default", edges)
	}
}

func TestImport_MalformedJSON(t *testing.T) {
	g, report, err := Import([]byte(`{"nodes": [`))
	if !errors.Is(err, ErrMalformedJSON) {
		t.Fatalf("err = %v, want ErrMalformedJSON", err)
	}
	if g != nil || report != nil {
		t.Error("malformed import returned a graph or report")
	}
}

func TestImport_NoValidNodes(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", `{"nodes": [], "edges": []}`},
		{"all unknown types", `{"nodes": [{"id": "a", "type": "widget", "level": 0}]}`},
		{"missing ids", `{"nodes": [{"type": "paper", "level": 0}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _, err := Import([]byte(tt.doc))
			if !errors.Is(err, ErrNoValidNodes) {
				t.Errorf("err = %v, want ErrNoValidNodes", err)
			}
			if g != nil {
				t.Error("graph returned for rejected import")
			}
		})
	}
}

func TestImport_PartialRejection(t *testing.T) {
	doc := `{
	  "nodes": [
	    {"id": "A", "type": "concept", "level": 0},
	    {"id": "A", "type": "concept", "level": 1},
	    {"id": "B", "type": "gizmo", "level": 0},
	    {"id": "C", "type": "paper", "level": -1},
	    {"id": "D", "type": "PAPER", "level": 3}
	  ],
	  "edges": [
	    {"source": "A", "target": "D", "relationship": "related_to"},
	    {"source": "A", "target": "B"},
	    {"source": "", "target": "D"}
	  ]
	}`

	core, logs := observer.New(zapcore.WarnLevel)
	g, report, err := Import([]byte(doc), WithLogger(zap.New(core)))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if got := g.Names(); !reflect.DeepEqual(got, []string{"A", "D"}) {
		t.Errorf("nodes = %v, want [A D]", got)
	}
	if report.NodesAccepted != 2 || report.EdgesAccepted != 1 {
		t.Errorf("accepted = %d nodes, %d edges", report.NodesAccepted, report.EdgesAccepted)
	}

	var kinds []string
	for _, d := range report.Rejected {
		kinds = append(kinds, d.Kind)
	}
	wantKinds := []string{"node", "node", "node", "edge", "edge"}
	if !reflect.DeepEqual(kinds, wantKinds) {
		t.Errorf("rejected kinds = %v, want %v", kinds, wantKinds)
	}
	if logs.Len() != len(report.Rejected) {
		t.Errorf("logged %d rejections, want %d", logs.Len(), len(report.Rejected))
	}
}

func TestImport_MistypedRecords(t *testing.T) {
	doc := `{
	  "nodes": [
	    {"id": "A", "type": "concept", "level": 0},
	    {"id": "B", "type": "paper", "level": "1"},
	    {"id": 7, "type": "tool", "level": 0},
	    "C",
	    {"id": "D", "type": "method", "level": 2}
	  ],
	  "edges": [
	    {"source": "A", "target": "D", "relationship": 3},
	    {"source": "D", "target": "A"}
	  ]
	}`

	g, report, err := Import([]byte(doc))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if got := g.Names(); !reflect.DeepEqual(got, []string{"A", "D"}) {
		t.Errorf("nodes = %v, want [A D]", got)
	}
	if report.NodesAccepted != 2 || report.EdgesAccepted != 1 {
		t.Errorf("accepted = %d nodes, %d edges; want 2, 1", report.NodesAccepted, report.EdgesAccepted)
	}

	tests := []struct {
		kind, id string
		index    int
	}{
		{"node", "B", 1},
		{"node", "7", 2},
		{"node", "", 3},
		{"edge", "A -> D", 0},
	}
	if len(report.Rejected) != len(tests) {
		t.Fatalf("rejected = %v, want %d entries", report.Rejected, len(tests))
	}
	for i, tt := range tests {
		d := report.Rejected[i]
		if d.Kind != tt.kind || d.ID != tt.id || d.Index != tt.index {
			t.Errorf("rejected[%d] = %+v, want %s %q at %d", i, d, tt.kind, tt.id, tt.index)
		}
	}
	if want := "level has the wrong type"; !strings.Contains(report.Rejected[0].Reason, want) {
		t.Errorf("reason = %q, want it to mention %q", report.Rejected[0].Reason, want)
	}
}

func TestImport_NonObjectDocument(t *testing.T) {
	for _, doc := range []string{`[1, 2]`, `{"nodes": {"id": "A"}}`} {
		if _, _, err := Import([]byte(doc)); !errors.Is(err, ErrMalformedJSON) {
			t.Errorf("Import(%s) err = %v, want ErrMalformedJSON", doc, err)
		}
	}
}

func TestImport_TrimsEdgeEndpoints(t *testing.T) {
	doc := `{
	  "nodes": [{"id": " A ", "type": "concept", "level": 0}, {"id": "B", "type": "paper", "level": 1}],
	  "edges": [{"source": " A ", "target": "B "}]
	}`
	g, report, err := Import([]byte(doc))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if report.EdgesAccepted != 1 || len(report.Rejected) != 0 {
		t.Errorf("report = %+v, want the edge accepted", report)
	}
	if len(g.EdgesBetween("A", "B")) != 1 {
		t.Error("edge A -> B missing")
	}
}

func TestReport_IncludeRejected(t *testing.T) {
	parsed := &Report{NodesAccepted: 3, Rejected: []Diagnostic{{Kind: "node", ID: "bad"}}}
	merged := &Report{NodesAccepted: 1, Rejected: []Diagnostic{{Kind: "node", ID: "dup"}}}

	merged.IncludeRejected(parsed)
	merged.IncludeRejected(nil)

	if merged.NodesAccepted != 1 {
		t.Errorf("NodesAccepted = %d, want 1", merged.NodesAccepted)
	}
	var ids []string
	for _, d := range merged.Rejected {
		ids = append(ids, d.ID)
	}
	if !reflect.DeepEqual(ids, []string{"bad", "dup"}) {
		t.Errorf("rejected = %v, want [bad dup]", ids)
	}
	if len(parsed.Rejected) != 1 {
		t.Errorf("earlier report modified: %v", parsed.Rejected)
	}
}

func TestExport_OmitsEmptyFields(t *testing.T) {
	g := graph.New()
	if err := g.AddNode("X", graph.Dataset, 4, nil); err != nil {
		t.Fatal(err)
	}

	data, err := Export(g)
	if err != nil {
		t.Fatal(err)
	}

	var raw struct {
		Nodes []map[string]any `json:"nodes"`
		Edges []map[string]any `json:"edges"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if len(raw.Nodes) != 1 {
		t.Fatalf("got %d nodes", len(raw.Nodes))
	}
	for _, key := range []string{"url", "description"} {
		if _, ok := raw.Nodes[0][key]; ok {
			t.Errorf("empty %s was exported", key)
		}
	}
	if raw.Nodes[0]["type"] != "dataset" {
		t.Errorf("type = %v, want dataset", raw.Nodes[0]["type"])
	}
	if raw.Edges == nil {
		t.Error("edges should export as an empty array")
	}
}

func TestRoundTrip(t *testing.T) {
	g, _, err := Import([]byte(sampleDoc))
	if err != nil {
		t.Fatal(err)
	}
	data, err := Export(g)
	if err != nil {
		t.Fatal(err)
	}

	var want, got Document
	if err := json.Unmarshal([]byte(sampleDoc), &want); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}

	// Canonicalize what import normalizes.
	want.Nodes[1].Type = "tool"
	want.Edges[2].Relationship = graph.DefaultRelationship

	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, want)
	}
}

func TestMerge(t *testing.T) {
	dst := graph.New()
	if err := dst.AddNode("MCMC", graph.Method, 0, nil); err != nil {
		t.Fatal(err)
	}
	src, _, err := Import([]byte(sampleDoc))
	if err != nil {
		t.Fatal(err)
	}

	report := Merge(dst, src, nil)
	if report.NodesAccepted != 2 {
		t.Errorf("NodesAccepted = %d, want 2", report.NodesAccepted)
	}
	if len(report.Rejected) != 1 || report.Rejected[0].ID != "MCMC" {
		t.Errorf("Rejected = %+v, want MCMC duplicate", report.Rejected)
	}
	if report.EdgesAccepted != 3 {
		t.Errorf("EdgesAccepted = %d, want 3", report.EdgesAccepted)
	}

	mcmc, _ := dst.Node("MCMC")
	if mcmc.Level != 0 {
		t.Error("merge overwrote existing node")
	}
}
