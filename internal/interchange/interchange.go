// Package interchange converts graphs to and from the portable JSON document
// format used for export, import, and assistant suggestions.
package interchange

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/matsen/atlas/internal/graph"
)

// Sentinel errors for import.
var (
	ErrMalformedJSON = errors.New("malformed JSON document")
	ErrNoValidNodes  = errors.New("document contains no valid nodes")
)

// Document is the interchange JSON shape.
type Document struct {
	Nodes []NodeRecord `json:"nodes"`
	Edges []EdgeRecord `json:"edges"`
}

// NodeRecord is one node in a Document.
type NodeRecord struct {
	ID          string `json:"id" validate:"required"`
	Type        string `json:"type" validate:"required"`
	Level       int    `json:"level" validate:"min=0"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
}

// EdgeRecord is one edge in a Document.
type EdgeRecord struct {
	Source       string `json:"source" validate:"required"`
	Target       string `json:"target" validate:"required"`
	Relationship string `json:"relationship,omitempty"`
}

// Diagnostic describes one rejected record.
type Diagnostic struct {
	Kind   string `json:"kind"` // "node" or "edge"
	Index  int    `json:"index"`
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s %d (%s): %s", d.Kind, d.Index, d.ID, d.Reason)
}

// Report summarizes an import or merge.
type Report struct {
	NodesAccepted int          `json:"nodes_accepted"`
	EdgesAccepted int          `json:"edges_accepted"`
	Rejected      []Diagnostic `json:"rejected,omitempty"`
}

// IncludeRejected puts the rejections of an earlier report, such as the one
// from parsing a document that is then merged, ahead of r's own. Accepted
// counts are left as they are.
func (r *Report) IncludeRejected(earlier *Report) {
	if earlier == nil || len(earlier.Rejected) == 0 {
		return
	}
	rejected := make([]Diagnostic, 0, len(earlier.Rejected)+len(r.Rejected))
	rejected = append(rejected, earlier.Rejected...)
	r.Rejected = append(rejected, r.Rejected...)
}

func (r *Report) reject(logger *zap.Logger, d Diagnostic) {
	r.Rejected = append(r.Rejected, d)
	logger.Warn("rejected record",
		zap.String("kind", d.Kind),
		zap.Int("index", d.Index),
		zap.String("id", d.ID),
		zap.String("reason", d.Reason))
}

var validate = validator.New()

type options struct {
	logger    *zap.Logger
	graphOpts []graph.Option
}

// Option configures Import.
type Option func(*options)

// WithLogger sets the logger used for per-record diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithGraphOptions passes options to the graph built by Import.
func WithGraphOptions(opts ...graph.Option) Option {
	return func(o *options) {
		o.graphOpts = append(o.graphOpts, opts...)
	}
}

// Export serializes g as pretty-printed JSON. Nodes and edges keep insertion
// order; empty url and description fields are omitted.
func Export(g *graph.Graph) ([]byte, error) {
	data, err := json.MarshalIndent(ToDocument(g), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling graph: %w", err)
	}
	return data, nil
}

// ToDocument converts g to its interchange form.
func ToDocument(g *graph.Graph) Document {
	doc := Document{
		Nodes: make([]NodeRecord, 0, g.NodeCount()),
		Edges: make([]EdgeRecord, 0, g.EdgeCount()),
	}
	for _, n := range g.Nodes() {
		doc.Nodes = append(doc.Nodes, NodeRecord{
			ID:          n.Name,
			Type:        n.Type.String(),
			Level:       n.Level,
			URL:         n.Metadata.URL,
			Description: n.Metadata.Description,
		})
	}
	for _, e := range g.Edges() {
		doc.Edges = append(doc.Edges, EdgeRecord{
			Source:       e.Source,
			Target:       e.Target,
			Relationship: e.Relationship,
		})
	}
	return doc
}

// Import builds a new graph from an interchange document. Invalid records are
// rejected one by one and reported, including records whose fields have the
// wrong JSON type; the import fails only when the document is not JSON or no
// node survives validation.
func Import(data []byte, opts ...Option) (*graph.Graph, *Report, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	var doc rawDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}

	g := graph.New(o.graphOpts...)
	report := &Report{}
	addDocument(g, doc, report, o.logger)

	if report.NodesAccepted == 0 {
		return nil, report, ErrNoValidNodes
	}
	return g, report, nil
}

// Merge adds every node and edge of src to dst. Nodes already present in dst
// are skipped with a diagnostic; edges are added when both endpoints exist.
func Merge(dst, src *graph.Graph, logger *zap.Logger) *Report {
	if logger == nil {
		logger = zap.NewNop()
	}
	report := &Report{}
	for i, n := range src.Nodes() {
		md := n.Metadata
		if err := dst.AddNode(n.Name, n.Type, n.Level, &md); err != nil {
			report.reject(logger, Diagnostic{Kind: "node", Index: i, ID: n.Name, Reason: err.Error()})
			continue
		}
		report.NodesAccepted++
	}
	for i, e := range src.Edges() {
		if _, err := dst.AddEdge(e.Source, e.Target, e.Relationship, e.Attrs); err != nil {
			report.reject(logger, Diagnostic{Kind: "edge", Index: i, ID: e.Pair().String(), Reason: err.Error()})
			continue
		}
		report.EdgesAccepted++
	}
	return report
}

// rawDocument defers record decoding so one mistyped record does not sink
// the rest of the document.
type rawDocument struct {
	Nodes []json.RawMessage `json:"nodes"`
	Edges []json.RawMessage `json:"edges"`
}

func addDocument(g *graph.Graph, doc rawDocument, report *Report, logger *zap.Logger) {
	for i, raw := range doc.Nodes {
		var rec NodeRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			report.reject(logger, Diagnostic{Kind: "node", Index: i, ID: rawField(raw, "id"), Reason: decodeReason(err)})
			continue
		}
		rec.ID = strings.TrimSpace(rec.ID)
		if err := validateRecord(rec); err != nil {
			report.reject(logger, Diagnostic{Kind: "node", Index: i, ID: rec.ID, Reason: err.Error()})
			continue
		}
		t, err := graph.ParseNodeType(rec.Type)
		if err != nil {
			report.reject(logger, Diagnostic{Kind: "node", Index: i, ID: rec.ID, Reason: err.Error()})
			continue
		}
		md := graph.NewMetadata(rec.URL, rec.Description)
		if err := g.AddNode(rec.ID, t, rec.Level, &md); err != nil {
			report.reject(logger, Diagnostic{Kind: "node", Index: i, ID: rec.ID, Reason: err.Error()})
			continue
		}
		report.NodesAccepted++
	}

	for i, raw := range doc.Edges {
		var rec EdgeRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			id := rawField(raw, "source") + " -> " + rawField(raw, "target")
			report.reject(logger, Diagnostic{Kind: "edge", Index: i, ID: id, Reason: decodeReason(err)})
			continue
		}
		// Endpoints are trimmed like node ids so they still resolve.
		rec.Source = strings.TrimSpace(rec.Source)
		rec.Target = strings.TrimSpace(rec.Target)
		id := rec.Source + " -> " + rec.Target
		if err := validateRecord(rec); err != nil {
			report.reject(logger, Diagnostic{Kind: "edge", Index: i, ID: id, Reason: err.Error()})
			continue
		}
		if _, err := g.AddEdge(rec.Source, rec.Target, rec.Relationship, nil); err != nil {
			report.reject(logger, Diagnostic{Kind: "edge", Index: i, ID: id, Reason: err.Error()})
			continue
		}
		report.EdgesAccepted++
	}
}

// decodeReason turns a per-record decode error into a diagnostic reason.
func decodeReason(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return fmt.Sprintf("%s has the wrong type: got JSON %s, want %s",
			strings.ToLower(typeErr.Field), typeErr.Value, typeErr.Type)
	}
	return "record is not an object: " + err.Error()
}

// rawField returns a best-effort rendering of one field of an undecodable
// record, for diagnostics.
func rawField(raw json.RawMessage, key string) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return ""
	}
	v, ok := fields[key]
	if !ok {
		return ""
	}
	var str string
	if err := json.Unmarshal(v, &str); err == nil {
		return strings.TrimSpace(str)
	}
	return string(v)
}

// validateRecord runs struct tag validation and formats the failures.
func validateRecord(rec any) error {
	err := validate.Struct(rec)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, formatFieldError(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func formatFieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
