package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matsen/atlas/internal/config"
	"github.com/matsen/atlas/internal/graph"
	"github.com/matsen/atlas/internal/interchange"
	"github.com/matsen/atlas/internal/session"
	"github.com/matsen/atlas/internal/storage"
)

var (
	importMerge  bool
	importFormat string
)

func init() {
	importCmd.Flags().BoolVar(&importMerge, "merge", false, "Merge into the current graph instead of replacing it")
	importCmd.Flags().StringVarP(&importFormat, "format", "f", "", "Input format: json or jsonl (default: from file extension)")
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a graph from JSON or JSONL",
	Long: `Import a graph.

By default the current graph is replaced; the previous snapshot is kept as
the "pre-import" backup. With --merge, nodes whose names already exist are
skipped and reported.

Invalid records (missing id, unknown type, negative level, edges to unknown
nodes) are skipped and listed in the result. The import fails only when the
file is not valid JSON or has no valid nodes.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

// ImportResult is the response for the import command.
type ImportResult struct {
	Mode   string              `json:"mode"`
	Report *interchange.Report `json:"report"`
	Backup string              `json:"backup,omitempty"`
	Nodes  int                 `json:"nodes"`
	Edges  int                 `json:"edges"`
}

func runImport(cmd *cobra.Command, args []string) error {
	root := mustFindRepository()
	path := args[0]

	imported, report, err := readGraphFile(path, importFormat)
	if err != nil {
		exitWithErr(err)
	}

	sess, _ := mustLoadSession(root)
	result := ImportResult{Mode: "replace"}
	if importMerge {
		result.Mode = "merge"
		result.Report = applyImport(sess, imported, report, true)
	} else {
		backup, err := storage.Backup(config.SnapshotPath(root), "pre-import")
		if err == nil {
			result.Backup = backup
		} else {
			logger.Debug("no pre-import backup", zap.Error(err))
		}
		result.Report = applyImport(sess, imported, report, false)
	}
	mustSaveGraph(root, sess.Graph)
	result.Nodes = sess.Graph.NodeCount()
	result.Edges = sess.Graph.EdgeCount()

	if humanOutput {
		printImportResult(result)
	} else {
		outputJSON(result)
	}
	return nil
}

// readGraphFile parses an interchange JSON document or a JSONL dump. JSONL
// dumps are all-or-nothing and produce an empty report.
func readGraphFile(path, format string) (*graph.Graph, *interchange.Report, error) {
	if format == "" {
		format = FormatJSON
		if strings.EqualFold(filepath.Ext(path), ".jsonl") {
			format = FormatJSONL
		}
	}

	switch format {
	case FormatJSON:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return interchange.Import(data, interchange.WithLogger(logger))
	case FormatJSONL:
		g, err := storage.ReadJSONLFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", interchange.ErrMalformedJSON, err)
		}
		if g.NodeCount() == 0 {
			return nil, nil, interchange.ErrNoValidNodes
		}
		return g, &interchange.Report{NodesAccepted: g.NodeCount(), EdgesAccepted: g.EdgeCount()}, nil
	default:
		return nil, nil, fmt.Errorf("unknown format %q: use json or jsonl", format)
	}
}

// applyImport replaces or merges and returns the report to show. A merge
// report also lists the records rejected while parsing.
func applyImport(sess *session.Session, g *graph.Graph, parsed *interchange.Report, merge bool) *interchange.Report {
	if !merge {
		sess.ReplaceGraph(g)
		return parsed
	}
	merged := sess.MergeGraph(g)
	merged.IncludeRejected(parsed)
	return merged
}

func printImportResult(r ImportResult) {
	verb := "Imported"
	if r.Mode == "merge" {
		verb = "Merged"
	}
	fmt.Printf("%s %d nodes and %d edges\n", styleGood.Sprint(verb), r.Report.NodesAccepted, r.Report.EdgesAccepted)
	if len(r.Report.Rejected) > 0 {
		styleWarn.Printf("Skipped %d records:\n", len(r.Report.Rejected))
		for _, d := range r.Report.Rejected {
			fmt.Printf("  %s\n", d)
		}
	}
	if r.Backup != "" {
		styleSubtle.Printf("Previous graph saved to %s\n", r.Backup)
	}
	fmt.Printf("Graph now has %d nodes and %d edges\n", r.Nodes, r.Edges)
}
