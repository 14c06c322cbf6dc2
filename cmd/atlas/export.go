package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matsen/atlas/internal/clipboard"
	"github.com/matsen/atlas/internal/interchange"
	"github.com/matsen/atlas/internal/storage"
)

// Export/import formats.
const (
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
)

var (
	exportFormat string
	exportOutput string
	exportCopy   bool
)

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", FormatJSON, "Output format: json (interchange) or jsonl (full dump with keys and timestamps)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path (default: stdout)")
	exportCmd.Flags().BoolVar(&exportCopy, "copy", false, "Copy the export to the clipboard instead of printing it")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the graph",
	Long: `Export the graph.

The json format is the portable interchange document:
  {"nodes": [{"id", "type", "level", "url", "description"}],
   "edges": [{"source", "target", "relationship"}]}

The jsonl format writes one node or edge record per line and keeps edge keys,
attributes, and timestamps.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	root := mustFindRepository()
	g := mustLoadGraph(root)

	var data []byte
	switch exportFormat {
	case FormatJSON:
		out, err := interchange.Export(g)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		data = append(out, '\n')
	case FormatJSONL:
		var buf bytes.Buffer
		if err := storage.WriteJSONL(&buf, g); err != nil {
			exitWithError(ExitError, "%v", err)
		}
		data = buf.Bytes()
	default:
		exitWithError(ExitError, "unknown format %q: use json or jsonl", exportFormat)
	}

	if exportCopy {
		if err := clipboard.Copy(string(data)); err != nil {
			exitWithError(ExitError, "copying to clipboard: %v", err)
		}
		if humanOutput {
			fmt.Printf("Copied %d nodes and %d edges to the clipboard\n", g.NodeCount(), g.EdgeCount())
		} else {
			outputJSON(StatusResponse{Status: "copied"})
		}
		return nil
	}
	if exportOutput == "" {
		os.Stdout.Write(data)
		return nil
	}
	if err := os.WriteFile(exportOutput, data, 0644); err != nil {
		exitWithError(ExitError, "writing %s: %v", exportOutput, err)
	}
	if humanOutput {
		fmt.Printf("Exported %d nodes and %d edges to %s\n", g.NodeCount(), g.EdgeCount(), exportOutput)
	} else {
		outputJSON(StatusResponse{Status: "exported", Path: exportOutput})
	}
	return nil
}
