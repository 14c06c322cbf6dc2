package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matsen/atlas/internal/graph"
	"github.com/matsen/atlas/internal/pdf"
)

// DefaultPaperLevel is the level given to papers added from PDFs.
const DefaultPaperLevel = 2

var (
	paperName         string
	paperLevel        int
	paperLink         string
	paperRelationship string
)

func init() {
	paperAddPDFCmd.Flags().StringVar(&paperName, "name", "", "Node name (default: title from the PDF, else the file name)")
	paperAddPDFCmd.Flags().IntVar(&paperLevel, "level", DefaultPaperLevel, "Node level")
	paperAddPDFCmd.Flags().StringVar(&paperLink, "link", "", "Also add an edge from the paper to this existing node")
	paperAddPDFCmd.Flags().StringVarP(&paperRelationship, "relationship", "r", graph.RelationshipBelongsTo, "Relationship of the --link edge")

	paperCmd.AddCommand(paperAddPDFCmd)
	rootCmd.AddCommand(paperCmd)
}

var paperCmd = &cobra.Command{
	Use:   "paper",
	Short: "Add papers to the graph",
}

var paperAddPDFCmd = &cobra.Command{
	Use:   "add-pdf <file>",
	Short: "Add a paper node from a PDF",
	Long: `Add a paper node from a PDF.

The first pages are searched for a DOI, which becomes the node URL
(https://doi.org/...). The first substantial line of the first page is used
as the node name unless --name is given.

Examples:
  atlas paper add-pdf ~/papers/suchard2018.pdf --link "Bayesian phylogenetics"
  atlas paper add-pdf draft.pdf --name "Our draft" --level 3`,
	Args: cobra.ExactArgs(1),
	RunE: runPaperAddPDF,
}

// PaperAddResult is the response for paper add-pdf.
type PaperAddResult struct {
	Node    NodeResponse `json:"node"`
	DOI     string       `json:"doi,omitempty"`
	EdgeKey string       `json:"edge_key,omitempty"`
}

func runPaperAddPDF(cmd *cobra.Command, args []string) error {
	root := mustFindRepository()

	info, err := pdf.Extract(args[0])
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}
	logger.Debug("pdf scanned",
		zap.String("path", info.Path),
		zap.String("doi", info.DOI),
		zap.String("title", info.Title))

	name := info.NodeName()
	if paperName != "" {
		name = paperName
	}

	sess, _ := mustLoadSession(root)
	if err := sess.AddNode(name, graph.Paper, paperLevel, info.URL(), info.Description()); err != nil {
		exitWithErr(err)
	}

	result := PaperAddResult{DOI: info.DOI}
	if paperLink != "" {
		key, err := sess.AddEdge(name, paperLink, paperRelationship)
		if err != nil {
			exitWithErr(err)
		}
		result.EdgeKey = key
	}
	mustSaveGraph(root, sess.Graph)

	n, _ := sess.Graph.Node(name)
	result.Node = NodeResponse{Status: "added", Node: n}

	if humanOutput {
		fmt.Printf("%s paper: %s\n", styleGood.Sprint("Added"), name)
		if info.DOI != "" {
			fmt.Printf("  DOI: %s\n", info.DOI)
		} else {
			styleWarn.Println("  No DOI found")
		}
		if result.EdgeKey != "" {
			fmt.Printf("  Linked: %s -[%s]-> %s\n", name, paperRelationship, paperLink)
		}
	} else {
		outputJSON(result)
	}
	return nil
}
