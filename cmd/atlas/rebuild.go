package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(rebuildCmd)
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the search index from the snapshot",
	Long: `Rebuild the SQLite search index from the graph snapshot.

The index is rebuilt after every change; use this if it was deleted,
corrupted, or a save reported that it was not updated.`,
	Args: cobra.NoArgs,
	RunE: runRebuild,
}

// RebuildResult is the response for the rebuild command.
type RebuildResult struct {
	Status        string         `json:"status"`
	Nodes         int            `json:"nodes"`
	Edges         int            `json:"edges"`
	Relationships map[string]int `json:"relationships"`
}

func runRebuild(cmd *cobra.Command, args []string) error {
	root := mustFindRepository()
	g := mustLoadGraph(root)

	nodes, edges, err := rebuildIndex(root, g)
	if err != nil {
		exitWithError(ExitDataError, "rebuilding index: %v", err)
	}

	db := mustOpenDatabase(root)
	defer db.Close()
	counts, err := db.EdgeCountsByRelationship()
	if err != nil {
		exitWithError(ExitDataError, "reading index: %v", err)
	}

	if humanOutput {
		fmt.Printf("Rebuilt index with %d nodes and %d edges\n", nodes, edges)
		for _, rel := range g.Relationships() {
			fmt.Printf("  %-14s %d\n", rel, counts[rel])
		}
	} else {
		outputJSON(RebuildResult{
			Status:        "rebuilt",
			Nodes:         nodes,
			Edges:         edges,
			Relationships: counts,
		})
	}
	return nil
}
