package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/matsen/atlas/internal/graph"
)

// Constants for output formatting.
const (
	DefaultSearchLimit = 50 // Default limit for search/list commands

	ListNameMaxLen        = 40 // Used in list command output
	DescriptionMaxLen     = 60 // Used in list and search summaries
	DetailDescriptionWrap = 68 // Wrap width for detail views
)

// Human output styles.
var (
	styleGood   = color.New(color.FgGreen)
	styleBad    = color.New(color.FgRed)
	styleWarn   = color.New(color.FgYellow)
	styleInfo   = color.New(color.FgCyan)
	styleSubtle = color.New(color.FgHiBlack)
	styleTitle  = color.New(color.Bold)
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputHuman writes a human-readable string to stdout.
func outputHuman(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "%s %s\n", styleBad.Sprint("error:"), msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	logger.Sync()
	os.Exit(code)
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
}

// UpdateResponse is the response for config set commands.
type UpdateResponse struct {
	Status string `json:"status"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NodeResponse is returned by commands that create or change a node.
type NodeResponse struct {
	Status string     `json:"status"`
	Node   graph.Node `json:"node"`
}

// EdgeResponse is returned by commands that create or change an edge.
type EdgeResponse struct {
	Status string     `json:"status"`
	Edge   graph.Edge `json:"edge"`
}

// printNodeTable prints nodes as aligned rows.
func printNodeTable(nodes []graph.Node) {
	if len(nodes) == 0 {
		styleSubtle.Println("No nodes.")
		return
	}
	width := 4
	for _, n := range nodes {
		width = max(width, len(truncateString(n.Name, ListNameMaxLen)))
	}
	styleSubtle.Printf("%-*s  %-10s  %5s  %s\n", width, "NAME", "TYPE", "LEVEL", "DESCRIPTION")
	for _, n := range nodes {
		fmt.Printf("%-*s  %-10s  %5d  %s\n",
			width, truncateString(n.Name, ListNameMaxLen),
			n.Type, n.Level,
			truncateString(n.Metadata.Description, DescriptionMaxLen))
	}
}

// printNodeDetail prints one node with its neighbors.
func printNodeDetail(info graph.NodeInfo) {
	n := info.Node
	styleTitle.Println(n.Name)
	fmt.Printf("  Type:  %s\n", styleInfo.Sprint(n.Type))
	fmt.Printf("  Level: %d\n", n.Level)
	if n.Metadata.URL != "" {
		fmt.Printf("  URL:   %s\n", n.Metadata.URL)
	}
	if n.Metadata.Description != "" {
		fmt.Printf("  Description: %s\n", wrapText(n.Metadata.Description, DetailDescriptionWrap, "    "))
	}
	if len(info.ConnectedNodes) > 0 {
		fmt.Printf("  Connected: %s\n", strings.Join(info.ConnectedNodes, ", "))
	}
}

// formatEdge formats an edge as "source --[relationship]--> target".
func formatEdge(e graph.Edge) string {
	return fmt.Sprintf("%s --[%s]--> %s", e.Source, e.Relationship, e.Target)
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// wrapText wraps text to the specified width with indentation on subsequent lines.
func wrapText(text string, width int, indent string) string {
	if len(text) <= width {
		return text
	}

	var lines []string
	var currentLine strings.Builder

	for _, word := range strings.Fields(text) {
		if currentLine.Len() == 0 {
			currentLine.WriteString(word)
		} else if currentLine.Len()+1+len(word) <= width {
			currentLine.WriteString(" ")
			currentLine.WriteString(word)
		} else {
			lines = append(lines, currentLine.String())
			currentLine.Reset()
			currentLine.WriteString(word)
		}
	}
	if currentLine.Len() > 0 {
		lines = append(lines, currentLine.String())
	}

	return strings.Join(lines, "\n"+indent)
}
