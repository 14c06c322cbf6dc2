package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matsen/atlas/internal/browser"
	"github.com/matsen/atlas/internal/config"
	"github.com/matsen/atlas/internal/graph"
	"github.com/matsen/atlas/internal/selection"
	"github.com/matsen/atlas/internal/session"
	"github.com/matsen/atlas/internal/viz"
)

// vizFlags are the filter and selection flags of the viz command.
type vizFlags struct {
	levels       string
	allLevels    bool
	edgeTypes    string
	allEdgeTypes bool
	selectNodes  []string
	selectEdges  []string
}

var (
	vizOpts    vizFlags
	vizOutput  string
	vizLayout  string
	vizTitle   string
	vizOffline bool
	vizOpen    bool
)

func init() {
	vizCmd.Flags().StringVar(&vizOpts.levels, "levels", "", "Comma-separated levels to show (default from config)")
	vizCmd.Flags().BoolVar(&vizOpts.allLevels, "all-levels", false, "Show every level")
	vizCmd.Flags().StringVar(&vizOpts.edgeTypes, "edge-types", "", "Comma-separated relationships to show (default from config)")
	vizCmd.Flags().BoolVar(&vizOpts.allEdgeTypes, "all-edge-types", false, "Show every relationship")
	vizCmd.Flags().StringArrayVar(&vizOpts.selectNodes, "select", nil, "Select a node (repeatable); selected nodes are always shown")
	vizCmd.Flags().StringArrayVar(&vizOpts.selectEdges, "select-edge", nil, "Highlight edges from source to target, as source:target (repeatable)")
	vizCmd.Flags().StringVarP(&vizOutput, "output", "o", "", "Output file path (default: stdout)")
	vizCmd.Flags().StringVar(&vizLayout, "layout", "", "Layout algorithm: "+strings.Join(viz.ValidLayouts, ", "))
	vizCmd.Flags().StringVar(&vizTitle, "title", "", "Page title")
	vizCmd.Flags().BoolVar(&vizOffline, "offline", false, "Inline Cytoscape.js from the cytoscape-js config path")
	vizCmd.Flags().BoolVar(&vizOpen, "open", false, "Open the page in the default browser")
	rootCmd.AddCommand(vizCmd)
}

var vizCmd = &cobra.Command{
	Use:   "viz",
	Short: "Render the visible graph as an HTML page",
	Long: `Render the graph as an interactive Cytoscape.js page.

Nodes are shown when their level is visible or when they are selected.
Neighbors of shown nodes are not pulled in past the level filter. Edges are
shown when both ends are shown and their relationship is visible.

Node colors and shapes follow the node type; selected nodes are gold and
larger. Edge colors follow the relationship; highlighted edges are orange
and thicker.

Examples:
  atlas viz > graph.html
  atlas viz --levels 0,1 --select "BEAST 2" -o graph.html --open
  atlas viz --all-levels --edge-types depends_on --select-edge "MCMC:BEAST 2"
  atlas viz --offline --layout circle -o graph.html`,
	Args: cobra.NoArgs,
	RunE: runViz,
}

func runViz(cmd *cobra.Command, args []string) error {
	root := mustFindRepository()
	sess, cfg := mustLoadSession(root)

	if err := applyVizFlags(sess, vizOpts); err != nil {
		exitWithErr(err)
	}

	opts := viz.DefaultOptions()
	if cfg.Layout != "" {
		opts.Layout = cfg.Layout
	}
	if vizLayout != "" {
		opts.Layout = vizLayout
	}
	if vizTitle != "" {
		opts.Title = vizTitle
	}
	if vizOffline {
		opts.Offline = true
		opts.ScriptSource = mustReadScriptSource(cfg)
	}

	html, err := sess.HTML(opts)
	if err != nil {
		exitWithError(ExitError, "generating HTML: %v", err)
	}

	if vizOutput == "" && vizOpen {
		vizOutput = filepath.Join(os.TempDir(), "atlas-graph.html")
	}
	if vizOutput == "" {
		fmt.Print(html)
		return nil
	}

	if err := os.WriteFile(vizOutput, []byte(html), 0644); err != nil {
		exitWithError(ExitError, "writing output file: %v", err)
	}
	if vizOpen {
		if err := browser.Open(runtime.GOOS, vizOutput); err != nil {
			logger.Warn("could not open browser", zap.Error(err))
		}
	}

	_, res := sess.Render()
	if humanOutput {
		fmt.Printf("Visualization written to %s %s\n", vizOutput,
			styleSubtle.Sprintf("(%d nodes, %d edges)", len(res.Nodes), len(res.Edges)))
	} else {
		outputJSON(map[string]interface{}{
			"output": vizOutput,
			"nodes":  len(res.Nodes),
			"edges":  len(res.Edges),
		})
	}
	return nil
}

// applyVizFlags narrows the session's configured filters and adds selections.
func applyVizFlags(sess *session.Session, f vizFlags) error {
	st := sess.Selection

	switch {
	case f.allLevels:
		st.ShowAllLevels()
	case f.levels != "":
		levels, err := config.ParseLevels(f.levels)
		if err != nil {
			return err
		}
		st.Levels = selection.Only(levels...)
	}

	switch {
	case f.allEdgeTypes:
		st.ShowAllEdgeTypes()
	case f.edgeTypes != "":
		st.EdgeTypes = selection.Only(config.ParseList(f.edgeTypes)...)
	}

	for _, name := range f.selectNodes {
		if st.IsNodeSelected(name) {
			continue
		}
		if _, err := sess.ToggleNode(name); err != nil {
			return err
		}
	}
	for _, spec := range f.selectEdges {
		source, target, err := parseEdgeSpec(spec)
		if err != nil {
			return err
		}
		if st.SelectedEdges[graph.Pair{Source: source, Target: target}] {
			continue
		}
		if _, err := sess.ToggleEdge(source, target); err != nil {
			return err
		}
	}
	return nil
}

// parseEdgeSpec splits "source:target" or "source->target".
func parseEdgeSpec(spec string) (string, string, error) {
	source, target, ok := strings.Cut(spec, "->")
	if !ok {
		source, target, ok = strings.Cut(spec, ":")
	}
	source, target = strings.TrimSpace(source), strings.TrimSpace(target)
	if !ok || source == "" || target == "" {
		return "", "", fmt.Errorf("invalid edge %q: want source:target", spec)
	}
	return source, target, nil
}

// mustReadScriptSource loads the configured Cytoscape.js bundle for offline pages.
func mustReadScriptSource(cfg *config.Config) string {
	if cfg.CytoscapeJS == "" {
		exitWithError(ExitConfigError, "%v\n\nDownload cytoscape.min.js and run 'atlas config cytoscape-js /path/to/cytoscape.min.js'.", viz.ErrNoScriptSource)
	}
	data, err := os.ReadFile(config.ExpandPath(cfg.CytoscapeJS))
	if err != nil {
		exitWithError(ExitConfigError, "reading Cytoscape.js bundle: %v", err)
	}
	return string(data)
}
