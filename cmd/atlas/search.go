package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var searchLimit int

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", DefaultSearchLimit, "Maximum results to return")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over node names and descriptions",
	Long: `Search node names, descriptions, and URLs with SQLite full-text search.

Each word must match the start of a word in the node (so "phylo" matches
"phylogenetics"). Results are ordered by relevance.

Examples:
  atlas search phylogenetics
  atlas search "bayesian mcmc" --limit 10`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	root := mustFindRepository()
	db := mustOpenDatabase(root)
	defer db.Close()

	// An index that was never built is filled from the snapshot.
	count, err := db.CountNodes()
	if err != nil {
		exitWithError(ExitDataError, "reading index: %v", err)
	}
	if count == 0 {
		g := mustLoadGraph(root)
		if g.NodeCount() > 0 {
			logger.Info("search index empty, rebuilding", zap.Int("nodes", g.NodeCount()))
			if _, _, err := db.RebuildFromGraph(g); err != nil {
				exitWithError(ExitDataError, "rebuilding index: %v", err)
			}
		}
	}

	nodes, err := db.SearchNodes(args[0], searchLimit)
	if err != nil {
		exitWithError(ExitDataError, "search failed: %v", err)
	}

	if humanOutput {
		if len(nodes) == 0 {
			fmt.Println("No results found.")
			return nil
		}
		fmt.Printf("Found %d nodes:\n\n", len(nodes))
		printNodeTable(nodes)
	} else {
		outputJSON(nonNil(nodes))
	}
	return nil
}
