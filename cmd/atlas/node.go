package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/atlas/internal/graph"
)

func init() {
	rootCmd.AddCommand(nodeCmd)

	for _, c := range []*cobra.Command{nodeAddCmd, nodeUpdateCmd} {
		c.Flags().StringP("type", "t", "", "Node type: "+nodeTypeList())
		c.Flags().IntP("level", "l", 0, "Hierarchy level (0 = top)")
		c.Flags().StringP("url", "u", "", "Reference URL")
		c.Flags().StringP("description", "d", "", "Free-text description")
	}
	nodeAddCmd.MarkFlagRequired("type")
	nodeCmd.AddCommand(nodeAddCmd)

	nodeCmd.AddCommand(nodeGetCmd)

	nodeListCmd.Flags().StringP("type", "t", "", "Only nodes of this type")
	nodeListCmd.Flags().IntP("level", "l", -1, "Only nodes at this level")
	nodeCmd.AddCommand(nodeListCmd)

	nodeCmd.AddCommand(nodeUpdateCmd)
	nodeCmd.AddCommand(nodeRenameCmd)
	nodeCmd.AddCommand(nodeDeleteCmd)

	nodeNeighborsCmd.Flags().StringP("relationship", "r", "", "Only neighbors joined by this relationship")
	nodeCmd.AddCommand(nodeNeighborsCmd)
}

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Manage graph nodes",
	Long:  `Commands for adding, inspecting, editing, and removing nodes.`,
}

func nodeTypeList() string {
	names := make([]string, 0, len(graph.AllNodeTypes()))
	for _, t := range graph.AllNodeTypes() {
		names = append(names, t.String())
	}
	return strings.Join(names, ", ")
}

// mustParseNodeType parses a type flag, exits on error.
func mustParseNodeType(s string) graph.NodeType {
	t, err := graph.ParseNodeType(s)
	if err != nil {
		exitWithError(ExitDataError, "%v (valid types: %s)", err, nodeTypeList())
	}
	return t
}

var nodeAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a node",
	Long: `Add a node to the graph. Names are unique.

Examples:
  atlas node add "Phylogenetics" --type main_topic --level 0
  atlas node add "BEAST 2" -t tool -l 2 -u https://www.beast2.org`,
	Args: cobra.ExactArgs(1),
	RunE: runNodeAdd,
}

func runNodeAdd(cmd *cobra.Command, args []string) error {
	root := mustFindRepository()
	sess, _ := mustLoadSession(root)

	typeStr, _ := cmd.Flags().GetString("type")
	level, _ := cmd.Flags().GetInt("level")
	url, _ := cmd.Flags().GetString("url")
	desc, _ := cmd.Flags().GetString("description")

	name := strings.TrimSpace(args[0])
	if err := sess.AddNode(name, mustParseNodeType(typeStr), level, url, desc); err != nil {
		exitWithErr(err)
	}
	mustSaveGraph(root, sess.Graph)

	n, _ := sess.Graph.Node(name)
	if humanOutput {
		fmt.Printf("%s %s (%s, level %d)\n", styleGood.Sprint("Added node:"), n.Name, n.Type, n.Level)
	} else {
		outputJSON(NodeResponse{Status: "added", Node: n})
	}
	return nil
}

var nodeGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Show a node and its neighbors",
	Args:  cobra.ExactArgs(1),
	RunE:  runNodeGet,
}

func runNodeGet(cmd *cobra.Command, args []string) error {
	root := mustFindRepository()
	g := mustLoadGraph(root)

	info, ok := g.NodeInfo(args[0])
	if !ok {
		exitWithError(ExitNotFound, "%v: %q", graph.ErrNodeNotFound, args[0])
	}

	if humanOutput {
		printNodeDetail(info)
	} else {
		outputJSON(info)
	}
	return nil
}

var nodeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List nodes",
	Long: `List nodes in insertion order, optionally filtered by type or level.

Examples:
  atlas node list
  atlas node list --type paper
  atlas node list --level 1 --human`,
	Args: cobra.NoArgs,
	RunE: runNodeList,
}

func runNodeList(cmd *cobra.Command, args []string) error {
	root := mustFindRepository()
	g := mustLoadGraph(root)

	typeStr, _ := cmd.Flags().GetString("type")
	level, _ := cmd.Flags().GetInt("level")

	var filterType *graph.NodeType
	if typeStr != "" {
		t := mustParseNodeType(typeStr)
		filterType = &t
	}

	nodes := []graph.Node{}
	for _, n := range g.Nodes() {
		if filterType != nil && n.Type != *filterType {
			continue
		}
		if level >= 0 && n.Level != level {
			continue
		}
		nodes = append(nodes, n)
	}

	if humanOutput {
		printNodeTable(nodes)
	} else {
		outputJSON(nodes)
	}
	return nil
}

var nodeUpdateCmd = &cobra.Command{
	Use:   "update <name>",
	Short: "Update a node's type, level, URL, or description",
	Long: `Update a node in place. Only the flags given are changed.

Examples:
  atlas node update "BEAST 2" --level 1
  atlas node update "BEAST 2" -d "Bayesian evolutionary analysis"`,
	Args: cobra.ExactArgs(1),
	RunE: runNodeUpdate,
}

func runNodeUpdate(cmd *cobra.Command, args []string) error {
	root := mustFindRepository()
	sess, _ := mustLoadSession(root)

	name := args[0]
	n, ok := sess.Graph.Node(name)
	if !ok {
		exitWithError(ExitNotFound, "%v: %q", graph.ErrNodeNotFound, name)
	}

	t, level := n.Type, n.Level
	url, desc := n.Metadata.URL, n.Metadata.Description
	if cmd.Flags().Changed("type") {
		s, _ := cmd.Flags().GetString("type")
		t = mustParseNodeType(s)
	}
	if cmd.Flags().Changed("level") {
		level, _ = cmd.Flags().GetInt("level")
	}
	if cmd.Flags().Changed("url") {
		url, _ = cmd.Flags().GetString("url")
	}
	if cmd.Flags().Changed("description") {
		desc, _ = cmd.Flags().GetString("description")
	}

	if err := sess.EditNode(name, name, t, level, url, desc); err != nil {
		exitWithErr(err)
	}
	mustSaveGraph(root, sess.Graph)

	n, _ = sess.Graph.Node(name)
	if humanOutput {
		fmt.Printf("%s %s\n", styleGood.Sprint("Updated node:"), n.Name)
	} else {
		outputJSON(NodeResponse{Status: "updated", Node: n})
	}
	return nil
}

var nodeRenameCmd = &cobra.Command{
	Use:   "rename <old> <new>",
	Short: "Rename a node, keeping its edges",
	Long: `Rename a node. Every edge touching it is re-created against the new name.
If the new name is taken, nothing changes.`,
	Args: cobra.ExactArgs(2),
	RunE: runNodeRename,
}

func runNodeRename(cmd *cobra.Command, args []string) error {
	root := mustFindRepository()
	sess, _ := mustLoadSession(root)

	old, newName := args[0], strings.TrimSpace(args[1])
	n, ok := sess.Graph.Node(old)
	if !ok {
		exitWithError(ExitNotFound, "%v: %q", graph.ErrNodeNotFound, old)
	}

	if err := sess.EditNode(old, newName, n.Type, n.Level, n.Metadata.URL, n.Metadata.Description); err != nil {
		exitWithErr(err)
	}
	mustSaveGraph(root, sess.Graph)

	n, _ = sess.Graph.Node(newName)
	if humanOutput {
		fmt.Printf("%s %s -> %s\n", styleGood.Sprint("Renamed node:"), old, newName)
	} else {
		outputJSON(NodeResponse{Status: "renamed", Node: n})
	}
	return nil
}

var nodeDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a node and its edges",
	Args:  cobra.ExactArgs(1),
	RunE:  runNodeDelete,
}

func runNodeDelete(cmd *cobra.Command, args []string) error {
	root := mustFindRepository()
	sess, _ := mustLoadSession(root)

	name := args[0]
	edgesBefore := sess.Graph.EdgeCount()
	if !sess.DeleteNode(name) {
		exitWithError(ExitNotFound, "%v: %q", graph.ErrNodeNotFound, name)
	}
	mustSaveGraph(root, sess.Graph)

	removed := edgesBefore - sess.Graph.EdgeCount()
	if humanOutput {
		fmt.Printf("%s %s (%d edges removed)\n", styleWarn.Sprint("Deleted node:"), name, removed)
	} else {
		outputJSON(map[string]interface{}{"status": "deleted", "name": name, "edges_removed": removed})
	}
	return nil
}

// NeighborsResult is the response for node neighbors.
type NeighborsResult struct {
	Name         string   `json:"name"`
	Relationship string   `json:"relationship,omitempty"`
	Successors   []string `json:"successors"`
	Predecessors []string `json:"predecessors"`
	Connected    []string `json:"connected"`
}

var nodeNeighborsCmd = &cobra.Command{
	Use:   "neighbors <name>",
	Short: "List nodes connected to a node",
	Args:  cobra.ExactArgs(1),
	RunE:  runNodeNeighbors,
}

func runNodeNeighbors(cmd *cobra.Command, args []string) error {
	root := mustFindRepository()
	g := mustLoadGraph(root)

	name := args[0]
	if !g.HasNode(name) {
		exitWithError(ExitNotFound, "%v: %q", graph.ErrNodeNotFound, name)
	}
	rel, _ := cmd.Flags().GetString("relationship")

	result := NeighborsResult{
		Name:         name,
		Relationship: rel,
		Successors:   nonNil(g.Successors(name)),
		Predecessors: nonNil(g.Predecessors(name)),
		Connected:    nonNil(g.ConnectedNodes(name, rel)),
	}

	if humanOutput {
		styleTitle.Println(name)
		fmt.Printf("  Outgoing:  %s\n", strings.Join(result.Successors, ", "))
		fmt.Printf("  Incoming:  %s\n", strings.Join(result.Predecessors, ", "))
		if rel != "" {
			fmt.Printf("  Via %s: %s\n", rel, strings.Join(result.Connected, ", "))
		}
	} else {
		outputJSON(result)
	}
	return nil
}

// nonNil keeps empty results as [] in JSON output.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
