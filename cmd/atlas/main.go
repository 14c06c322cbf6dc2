// Package main provides the atlas CLI entry point.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matsen/atlas/internal/config"
	"github.com/matsen/atlas/internal/graph"
	"github.com/matsen/atlas/internal/logging"
	"github.com/matsen/atlas/internal/session"
	"github.com/matsen/atlas/internal/storage"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	verbose     bool

	logger = zap.NewNop()
)

func main() {
	err := rootCmd.Execute()
	logger.Sync()
	if err != nil {
		// SilenceErrors is set, so cobra errors (like missing flags) are printed here
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "atlas",
	Short: "Build and explore a personal knowledge graph",
	Long: `atlas is a CLI for a personal knowledge graph of topics, papers,
concepts, methods, tools, and datasets joined by typed relationships.

Nodes carry a type and a level. Rendering shows the levels and relationship
types you choose, plus anything you explicitly select.

The graph lives in a compressed snapshot under .atlas/, with a disposable
SQLite index for search. All commands output JSON by default.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.New(verbose)
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		logger = l
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging on stderr")
	rootCmd.Version = Version
}

// mustFindRepository finds the repository from the working directory,
// falling back to the global atlas_path. Exits on error.
func mustFindRepository() string {
	cwd, err := os.Getwd()
	if err != nil {
		exitWithError(ExitError, "getting current directory: %v", err)
	}

	root, err := config.LocateRepository(cwd)
	if err != nil {
		if errors.Is(err, config.ErrAtlasPathNotExist) {
			exitWithError(ExitConfigError, "%v", err)
		}
		fmt.Fprintln(os.Stderr, config.HelpfulConfigMessage())
		os.Exit(ExitConfigError)
	}
	logger.Debug("using repository", zap.String("root", root))
	return root
}

// mustLoadConfig loads configuration, exits on error.
func mustLoadConfig(root string) *config.Config {
	cfg, err := config.Load(root)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		exitWithError(ExitConfigError, "invalid config: %v", err)
	}
	return cfg
}

// mustLoadGraph reads the snapshot. A repository without a snapshot yet has
// an empty graph.
func mustLoadGraph(root string) *graph.Graph {
	g, err := storage.LoadSnapshot(config.SnapshotPath(root))
	if err != nil {
		if errors.Is(err, storage.ErrNoSnapshot) {
			logger.Debug("no snapshot, starting empty", zap.String("root", root))
			return graph.New()
		}
		exitWithError(ExitDataError, "loading graph: %v", err)
	}
	logger.Debug("graph loaded", zap.Int("nodes", g.NodeCount()), zap.Int("edges", g.EdgeCount()))
	return g
}

// mustLoadSession loads the graph into a session with the configured filters.
func mustLoadSession(root string) (*session.Session, *config.Config) {
	cfg := mustLoadConfig(root)
	g := mustLoadGraph(root)
	return session.New(g, cfg.InitialState(), logger), cfg
}

// mustSaveGraph writes the snapshot and refreshes the search index.
func mustSaveGraph(root string, g *graph.Graph) {
	if err := saveGraph(root, g); err != nil {
		exitWithError(ExitDataError, "saving graph: %v", err)
	}
}

// saveGraph writes the snapshot, then rebuilds the index. The snapshot is the
// source of truth, so an index failure is logged and not returned.
func saveGraph(root string, g *graph.Graph) error {
	if err := storage.SaveSnapshot(config.SnapshotPath(root), g); err != nil {
		return err
	}
	if _, _, err := rebuildIndex(root, g); err != nil {
		logger.Warn("search index not updated; run 'atlas rebuild'", zap.Error(err))
	}
	return nil
}

// rebuildIndex replaces the SQLite index contents with g.
func rebuildIndex(root string, g *graph.Graph) (nodes, edges int, err error) {
	if err := os.MkdirAll(config.CachePath(root), 0755); err != nil {
		return 0, 0, fmt.Errorf("creating cache directory: %w", err)
	}
	db, err := storage.OpenDB(config.DBPath(root))
	if err != nil {
		return 0, 0, err
	}
	defer db.Close()
	return db.RebuildFromGraph(g)
}

// mustOpenDatabase opens the SQLite index, exits on error.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenDatabase(root string) *storage.DB {
	if err := os.MkdirAll(config.CachePath(root), 0755); err != nil {
		exitWithError(ExitError, "creating cache directory: %v", err)
	}
	db, err := storage.OpenDB(config.DBPath(root))
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}
	return db
}
