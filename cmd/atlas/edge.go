package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/atlas/internal/graph"
)

func init() {
	rootCmd.AddCommand(edgeCmd)

	edgeAddCmd.Flags().StringP("relationship", "r", graph.DefaultRelationship, "Relationship label")
	edgeCmd.AddCommand(edgeAddCmd)

	edgeListCmd.Flags().StringP("node", "n", "", "Only edges touching this node")
	edgeListCmd.Flags().StringP("relationship", "r", "", "Only edges with this relationship")
	edgeCmd.AddCommand(edgeListCmd)

	edgeUpdateCmd.Flags().StringP("source", "s", "", "New source node")
	edgeUpdateCmd.Flags().StringP("target", "t", "", "New target node")
	edgeUpdateCmd.Flags().StringP("relationship", "r", "", "New relationship label")
	edgeCmd.AddCommand(edgeUpdateCmd)

	edgeDeleteCmd.Flags().StringP("key", "k", "", "Delete only the edge with this key")
	edgeCmd.AddCommand(edgeDeleteCmd)
}

var edgeCmd = &cobra.Command{
	Use:   "edge",
	Short: "Manage graph edges",
	Long: `Commands for managing directed, labeled edges between nodes.

Several edges may join the same pair of nodes. Each has a unique key.`,
}

var edgeAddCmd = &cobra.Command{
	Use:   "add <source> <target>",
	Short: "Add an edge",
	Long: `Add a directed edge. An existing edge between the same nodes is kept,
so repeated adds create parallel edges.

Examples:
  atlas edge add "BEAST 2" "Phylogenetics" -r belongs_to
  atlas edge add "MCMC" "BEAST 2"`,
	Args: cobra.ExactArgs(2),
	RunE: runEdgeAdd,
}

func runEdgeAdd(cmd *cobra.Command, args []string) error {
	root := mustFindRepository()
	sess, _ := mustLoadSession(root)

	rel, _ := cmd.Flags().GetString("relationship")
	key, err := sess.AddEdge(args[0], args[1], rel)
	if err != nil {
		exitWithErr(err)
	}
	mustSaveGraph(root, sess.Graph)

	e, _ := sess.Graph.Edge(key)
	if humanOutput {
		fmt.Printf("%s %s\n", styleGood.Sprint("Added edge:"), formatEdge(e))
		styleSubtle.Printf("  key %s\n", e.Key)
	} else {
		outputJSON(EdgeResponse{Status: "added", Edge: e})
	}
	return nil
}

var edgeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List edges",
	Args:  cobra.NoArgs,
	RunE:  runEdgeList,
}

func runEdgeList(cmd *cobra.Command, args []string) error {
	root := mustFindRepository()
	g := mustLoadGraph(root)

	node, _ := cmd.Flags().GetString("node")
	rel, _ := cmd.Flags().GetString("relationship")
	if node != "" && !g.HasNode(node) {
		exitWithError(ExitNotFound, "%v: %q", graph.ErrNodeNotFound, node)
	}

	edges := []graph.Edge{}
	for _, e := range g.Edges() {
		if node != "" && !e.Touches(node) {
			continue
		}
		if rel != "" && e.Relationship != rel {
			continue
		}
		edges = append(edges, e)
	}

	if humanOutput {
		if len(edges) == 0 {
			styleSubtle.Println("No edges.")
		}
		for _, e := range edges {
			fmt.Printf("%s  %s\n", formatEdge(e), styleSubtle.Sprint(e.Key))
		}
	} else {
		outputJSON(edges)
	}
	return nil
}

var edgeUpdateCmd = &cobra.Command{
	Use:   "update <key>",
	Short: "Rewire or relabel an edge",
	Long: `Change the endpoints or relationship of the edge with the given key.
Only the flags given are changed.`,
	Args: cobra.ExactArgs(1),
	RunE: runEdgeUpdate,
}

func runEdgeUpdate(cmd *cobra.Command, args []string) error {
	root := mustFindRepository()
	sess, _ := mustLoadSession(root)

	key := args[0]
	e, ok := sess.Graph.Edge(key)
	if !ok {
		exitWithError(ExitNotFound, "%v: %q", graph.ErrEdgeNotFound, key)
	}
	source, target, rel := e.Source, e.Target, e.Relationship
	if cmd.Flags().Changed("source") {
		source, _ = cmd.Flags().GetString("source")
	}
	if cmd.Flags().Changed("target") {
		target, _ = cmd.Flags().GetString("target")
	}
	if cmd.Flags().Changed("relationship") {
		rel, _ = cmd.Flags().GetString("relationship")
	}

	if err := sess.EditEdge(key, source, target, rel); err != nil {
		exitWithErr(err)
	}
	mustSaveGraph(root, sess.Graph)

	e, _ = sess.Graph.Edge(key)
	if humanOutput {
		fmt.Printf("%s %s\n", styleGood.Sprint("Updated edge:"), formatEdge(e))
	} else {
		outputJSON(EdgeResponse{Status: "updated", Edge: e})
	}
	return nil
}

// EdgeDeleteResult is the response for edge delete.
type EdgeDeleteResult struct {
	Status  string `json:"status"`
	Removed int    `json:"removed"`
	Source  string `json:"source,omitempty"`
	Target  string `json:"target,omitempty"`
	Key     string `json:"key,omitempty"`
}

var edgeDeleteCmd = &cobra.Command{
	Use:   "delete [<source> <target>]",
	Short: "Delete edges",
	Long: `Delete every edge from source to target, or a single edge by key.

Examples:
  atlas edge delete "MCMC" "BEAST 2"        # all parallel edges
  atlas edge delete --key 6f1c...           # one edge`,
	Args: cobra.RangeArgs(0, 2),
	RunE: runEdgeDelete,
}

func runEdgeDelete(cmd *cobra.Command, args []string) error {
	key, _ := cmd.Flags().GetString("key")
	if (key == "") == (len(args) != 2) {
		exitWithError(ExitError, "give either <source> <target> or --key")
	}

	root := mustFindRepository()
	sess, _ := mustLoadSession(root)

	result := EdgeDeleteResult{Status: "deleted"}
	if key != "" {
		if !sess.DeleteEdgeByKey(key) {
			exitWithError(ExitNotFound, "%v: %q", graph.ErrEdgeNotFound, key)
		}
		result.Key = key
		result.Removed = 1
	} else {
		result.Source, result.Target = args[0], args[1]
		result.Removed = sess.DeleteEdge(args[0], args[1])
		if result.Removed == 0 {
			exitWithError(ExitNotFound, "%v: %s -> %s", graph.ErrEdgeNotFound, args[0], args[1])
		}
	}
	mustSaveGraph(root, sess.Graph)

	if humanOutput {
		fmt.Printf("%s %d edge(s)\n", styleWarn.Sprint("Deleted"), result.Removed)
	} else {
		outputJSON(result)
	}
	return nil
}
