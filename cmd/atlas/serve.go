package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matsen/atlas/internal/graph"
	"github.com/matsen/atlas/internal/logging"
	"github.com/matsen/atlas/internal/server"
	"github.com/matsen/atlas/internal/viz"
)

var (
	serveAddr       string
	serveLayout     string
	serveOffline    bool
	serveSaveOnExit bool
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", server.DefaultAddr, "Listen address")
	serveCmd.Flags().StringVar(&serveLayout, "layout", "", "Layout algorithm (default from config)")
	serveCmd.Flags().BoolVar(&serveOffline, "offline", false, "Inline Cytoscape.js from the cytoscape-js config path")
	serveCmd.Flags().BoolVar(&serveSaveOnExit, "save-on-exit", true, "Save the graph when the server stops")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the interactive graph view and JSON API",
	Long: `Serve the graph in the browser.

Clicking a node or edge toggles its selection and the page redraws. The JSON
API under /api edits nodes and edges, toggles levels and relationship types,
and imports or exports the graph. POST /api/save writes the snapshot;
the graph is also saved on shutdown unless --save-on-exit=false.

Prometheus metrics are served at /metrics.

Examples:
  atlas serve
  atlas serve --addr :8080 --layout circle`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	root := mustFindRepository()
	sess, cfg := mustLoadSession(root)

	serverLogger, err := logging.NewServer(verbose)
	if err != nil {
		exitWithError(ExitError, "initializing logger: %v", err)
	}
	defer serverLogger.Sync()
	logger = serverLogger

	opts := viz.DefaultOptions()
	if cfg.Layout != "" {
		opts.Layout = cfg.Layout
	}
	if serveLayout != "" {
		if err := viz.ValidateLayout(serveLayout); err != nil {
			exitWithError(ExitError, "%v", err)
		}
		opts.Layout = serveLayout
	}
	if serveOffline {
		opts.Offline = true
		opts.ScriptSource = mustReadScriptSource(cfg)
	}

	srv := server.New(sess, logger,
		server.WithHTMLOptions(opts),
		server.WithSaveFunc(func(g *graph.Graph) error {
			return saveGraph(root, g)
		}),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx, serveAddr); err != nil {
		exitWithError(ExitError, "server: %v", err)
	}

	if serveSaveOnExit {
		if err := saveGraph(root, sess.Graph); err != nil {
			exitWithError(ExitDataError, "saving graph: %v", err)
		}
		logger.Info("graph saved",
			zap.Int("nodes", sess.Graph.NodeCount()),
			zap.Int("edges", sess.Graph.EdgeCount()))
	}
	return nil
}
